// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package p7z

import "io"

// InputItem is one input stream handle: a lazy byte source plus
// filesystem-style metadata. An InputItem does not need to know its
// length in advance; DeclaredSize of 0 means "unknown", and the source's
// actual length is always determined by draining it through the CRC
// stream, never taken from the declared size.
type InputItem struct {
	// Open returns a fresh byte source for this item. It is called
	// exactly once per item, by the worker (or solid encoder) that
	// processes it.
	Open func() (io.ReadCloser, error)

	// Name is the item's display name, conventionally a UTF-16-safe path;
	// may be empty.
	Name string

	// DeclaredSize is the caller's best-effort size hint; 0 means
	// unknown. It is only ever a hint to the coder, never recorded as
	// the item's actual size.
	DeclaredSize int64

	// Attrs holds filesystem-style attribute bits; 0 means none.
	Attrs uint32

	// MTime is a filesystem-style 64-bit tick value (100ns units since
	// the Windows epoch, matching 7z's own FILETIME convention); 0 means
	// unset.
	MTime uint64
}

// validateItems checks a batch's structural preconditions: a non-empty
// item array within the item-count ceiling, every item with a non-nil
// input handle.
func validateItems(items []InputItem) error {
	if len(items) == 0 {
		return newErr(KindInvalidArgument, "batch must contain at least one item")
	}
	if len(items) > MaxItemCount {
		return newErr(KindInvalidArgument, "batch has %d items, exceeding the %d item ceiling", len(items), MaxItemCount)
	}
	for i := range items {
		if items[i].Open == nil {
			return newErr(KindInvalidArgument, "item %d has a nil input handle", i)
		}
	}
	return nil
}
