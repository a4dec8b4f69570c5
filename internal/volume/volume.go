// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package volume implements pure byte-wise splitting of an
// already-serialized archive stream into fixed-size volume files,
// `{prefix}.{NNN}`. It knows nothing about the 7z format itself; it only
// ever sees the bytes internal/sevenzip.Assemble already produced, so
// split points take no account of coder-block boundaries and readers must
// simply concatenate.
package volume

import (
	"context"
	"fmt"
	"io"

	"cloudeng.io/errors"
	"github.com/grailbio/base/file"
)

// Writer splits a single logical byte stream across a sequence of volume
// files, each at most Size bytes, named `{Prefix}.{NNN}` with NNN a
// 3-digit, 1-based volume number. Prefix may be a local path or (since
// grailbio/base/file.RegisterImplementation is a global registry) any
// scheme file has a registered Implementation for, e.g. "s3://bucket/key".
type Writer struct {
	ctx    context.Context
	prefix string
	size   int64

	cur       file.File
	curWriter io.Writer
	curN      int64
	volume    int
	opened    []file.File
}

// NewWriter returns a Writer that splits into volumes of at most size
// bytes. size must be positive.
func NewWriter(ctx context.Context, prefix string, size int64) (*Writer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("volume: size must be positive, got %d", size)
	}
	return &Writer{ctx: ctx, prefix: prefix, size: size}, nil
}

// Write implements io.Writer, rolling over to a new volume file whenever
// the current one reaches its size ceiling. A single Write call may span
// multiple volumes; the split point never depends on the caller's own
// buffer boundaries.
func (w *Writer) Write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		if w.cur == nil {
			if err := w.openNext(); err != nil {
				return written, err
			}
		}
		room := w.size - w.curN
		chunk := p
		if int64(len(chunk)) > room {
			chunk = chunk[:room]
		}
		n, err := w.curWriter.Write(chunk)
		written += n
		w.curN += int64(n)
		if err != nil {
			return written, err
		}
		p = p[n:]
		if w.curN >= w.size {
			w.cur = nil
			w.curWriter = nil
			w.curN = 0
		}
	}
	return written, nil
}

// openNext opens the next volume file in sequence and starts writing to
// it. Volume numbers are 1-based.
func (w *Writer) openNext() error {
	w.volume++
	name := fmt.Sprintf("%s.%03d", w.prefix, w.volume)
	f, err := file.Create(w.ctx, name)
	if err != nil {
		return fmt.Errorf("volume: creating %s: %w", name, err)
	}
	w.opened = append(w.opened, f)
	w.cur = f
	w.curWriter = f.Writer(w.ctx)
	return nil
}

// Close closes every volume file this Writer has opened so far, even if
// one close fails, aggregating the independent failures.
func (w *Writer) Close() error {
	errs := &errors.M{}
	for _, f := range w.opened {
		errs.Append(f.Close(w.ctx))
	}
	w.opened = nil
	w.cur = nil
	w.curWriter = nil
	return errs.Err()
}

// VolumeCount reports how many volume files have been opened so far.
func (w *Writer) VolumeCount() int { return w.volume }
