// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package p7z

// Callback is the progress/control interface a batch reports through.
// Embed NoopCallback to get default no-op behavior for the methods you
// don't care about.
type Callback interface {
	// OnItemStart is called when a worker claims item index with the
	// given name.
	OnItemStart(index int, name string)

	// OnItemProgress reports bytes read from input and written to the
	// compressed sink for one item: at most once per configured progress
	// interval while the coder runs, and once more at the item's
	// completion.
	OnItemProgress(index int, inBytes, outBytes int64)

	// OnItemComplete is called once a job reaches a terminal status.
	OnItemComplete(index int, status JobStatus, inBytes, outBytes int64)

	// OnError is called for both fatal and per-item errors. index is -1
	// for batch-level (fatal) errors.
	OnError(index int, kind Kind, message string)

	// ShouldCancel is polled by each worker once, before it starts a
	// claimed job; returning true cancels every not-yet-claimed job.
	// Jobs already inside a coder run to completion.
	ShouldCancel() bool

	// GetNextItems is the optional look-ahead prefetch hook: it is asked
	// once per batch, before workers are released, for up to maxCount
	// additional items to append to the batch. If it returns false, no
	// more items are available. Implementations that don't support
	// prefetch should embed NoopCallback, whose GetNextItems always
	// returns (nil, false).
	GetNextItems(cursor, maxCount int) ([]InputItem, bool)
}

// NoopCallback implements Callback with no-ops, so a caller that only
// cares about one or two methods can embed it and override the rest.
type NoopCallback struct{}

func (NoopCallback) OnItemStart(int, string)                     {}
func (NoopCallback) OnItemProgress(int, int64, int64)            {}
func (NoopCallback) OnItemComplete(int, JobStatus, int64, int64) {}
func (NoopCallback) OnError(int, Kind, string)                   {}
func (NoopCallback) ShouldCancel() bool                          { return false }
func (NoopCallback) GetNextItems(int, int) ([]InputItem, bool)   { return nil, false }

var _ Callback = NoopCallback{}
