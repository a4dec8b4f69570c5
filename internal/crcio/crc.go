// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package crcio wraps an io.Reader with a rolling CRC-32 accumulator:
// every byte returned by the wrapped reader is folded into the checksum
// and counted, so a worker can read a job's uncompressed size and
// checksum for free as the coder drains the stream.
package crcio

import (
	"hash/crc32"
	"io"
)

// Reader wraps an underlying io.Reader, accumulating a standard CRC-32
// (IEEE polynomial) over every byte it returns and counting bytes seen.
// Failure semantics: errors from the underlying reader are passed through
// verbatim.
type Reader struct {
	r         io.Reader
	crc       uint32
	bytesSeen int64
}

// New returns a Reader wrapping r. The accumulator starts at the CRC-32
// initial state; Sum and BytesSeen are only meaningful once the wrapped
// reader has been drained to EOF.
func New(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Read implements io.Reader, folding every byte returned by the
// underlying reader into the CRC-32 accumulator before returning it.
func (c *Reader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.crc = crc32.Update(c.crc, crc32.IEEETable, p[:n])
		c.bytesSeen += int64(n)
	}
	return n, err
}

// Sum returns the CRC-32 of every byte read so far. Should be read once,
// after the coder has drained the stream to EOF.
func (c *Reader) Sum() uint32 { return c.crc }

// BytesSeen returns the number of bytes read so far.
func (c *Reader) BytesSeen() int64 { return c.bytesSeen }
