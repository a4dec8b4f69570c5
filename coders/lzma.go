// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package coders

import (
	"io"

	"github.com/ulikunitz/xz/lzma"
)

// lzmaDictSizes are the dictionary sizes used for levels 0-9, chosen to
// track 7-Zip's own level presets (level 5 = 8 MiB, the xz package's own
// default).
var lzmaDictSizes = [10]uint32{
	1 << 16, 1 << 18, 1 << 20, 1 << 21, 1 << 22,
	1 << 23, 1 << 24, 1 << 25, 1 << 26, 1 << 27,
}

// lzmaCoder backs method id LZMA with a real LZMA1 encoder from
// github.com/ulikunitz/xz/lzma.
type lzmaCoder struct {
	level    int
	props    lzma.Properties
	dictSize uint32
}

// NewLZMACoder returns a Coder for method id LZMA at the given 0-9 level.
func NewLZMACoder(level int) Coder {
	c := &lzmaCoder{level: level, props: lzma.Properties{LC: 3, LP: 0, PB: 2}}
	c.dictSize = lzmaDictSizes[clampLevel(level)]
	return c
}

func clampLevel(level int) int {
	if level < 0 {
		return 0
	}
	if level > 9 {
		return 9
	}
	return level
}

func (c *lzmaCoder) SetProperties(props []Property) {
	for _, p := range props {
		switch p.ID {
		case PropLevel:
			c.level = int(p.Value)
			c.dictSize = lzmaDictSizes[clampLevel(c.level)]
		case PropDictionarySize:
			c.dictSize = uint32(p.Value)
		}
	}
}

// lzmaClassicHeaderLen is the size of the .lzma file header lzma.Writer
// always emits: one properties byte, a 4-byte dictionary size, and an
// 8-byte uncompressed size. A 7z pack stream is raw LZMA data with those
// parameters carried in the folder's coder properties instead, so the
// header is dropped before bytes reach the sink.
const lzmaClassicHeaderLen = 13

func (c *lzmaCoder) Code(w io.Writer, r io.Reader, declaredInputSize int64, progress func(in, out int64)) error {
	props := c.props
	cfg := lzma.WriterConfig{
		Properties: &props,
		DictCap:    int(c.dictSize),
		// The folder's coder-properties field (SerializeProperties,
		// below) is the prelude a 7z decoder consults, so the stream's
		// uncompressed size stays out of the lzma framing and an
		// end-of-stream marker terminates it instead.
		SizeInHeader: false,
		EOSMarker:    true,
	}
	cw := &countingWriter{w: w, progress: progress}
	lw, err := cfg.NewWriter(&headerDroppingWriter{w: cw, skip: lzmaClassicHeaderLen})
	if err != nil {
		return err
	}
	if _, err := io.Copy(lw, &countingReader{r: r, n: &cw.in}); err != nil {
		return err
	}
	return lw.Close()
}

// headerDroppingWriter discards the first skip bytes written through it
// and passes everything after through verbatim.
type headerDroppingWriter struct {
	w    io.Writer
	skip int
}

func (h *headerDroppingWriter) Write(p []byte) (int, error) {
	if h.skip >= len(p) {
		h.skip -= len(p)
		return len(p), nil
	}
	n, err := h.w.Write(p[h.skip:])
	n += h.skip
	h.skip = 0
	return n, err
}

// SerializeProperties writes the 5-byte LZMA properties prelude a 7z
// decoder needs: one byte encoding (lc, lp, pb), followed by the 4-byte
// little-endian dictionary size.
func (c *lzmaCoder) SerializeProperties(w io.Writer) error {
	propsByte := byte((c.props.PB*5+c.props.LP)*9 + c.props.LC)
	buf := [5]byte{propsByte}
	buf[1] = byte(c.dictSize)
	buf[2] = byte(c.dictSize >> 8)
	buf[3] = byte(c.dictSize >> 16)
	buf[4] = byte(c.dictSize >> 24)
	_, err := w.Write(buf[:])
	return err
}

// countingWriter counts the bytes written through it in n and, when
// progress is set, reports in (the input count, kept up to date by a
// countingReader) and n through the progress callback on every write.
type countingWriter struct {
	w        io.Writer
	progress func(in, out int64)
	in       int64
	n        int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	if c.progress != nil {
		c.progress(c.in, c.n)
	}
	return n, err
}

// countingReader adds the number of bytes read through it to *n.
type countingReader struct {
	r io.Reader
	n *int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	*c.n += int64(n)
	return n, err
}
