// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package progressui provides an optional, ready-made p7z.Callback that
// renders a terminal progress bar with schollz/progressbar/v3, advancing
// it off per-item completions.
package progressui

import (
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/cosnicolaou/p7z"
)

// Bar is a p7z.Callback that reports completed-item byte counts to a
// schollz/progressbar/v3 bar. It embeds p7z.NoopCallback so it only
// overrides the methods it cares about, matching that type's documented
// use.
type Bar struct {
	p7z.NoopCallback

	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

// New returns a Bar that renders total's worth of progress (in bytes) to
// w. total of 0 renders a spinner-style indeterminate bar, the same
// fallback schollz/progressbar/v3 uses for an unknown size.
func New(w io.Writer, total int64) *Bar {
	bar := progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionClearOnFinish(),
	)
	return &Bar{bar: bar}
}

// OnItemComplete advances the bar by outBytes, the compressed size
// produced for the item, regardless of whether the job succeeded or
// failed (a failed job still consumed wall-clock progress).
func (b *Bar) OnItemComplete(index int, status p7z.JobStatus, inBytes, outBytes int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_ = b.bar.Add64(outBytes)
}

// Finish renders the bar's completed state and releases the line.
func (b *Bar) Finish() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bar.Finish()
}
