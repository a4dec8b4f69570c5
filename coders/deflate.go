// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package coders

import (
	"io"

	"github.com/klauspost/compress/flate"
)

// deflateCoder backs method id Deflate with klauspost/compress/flate, a
// drop-in, faster fork of the standard library's flate.
type deflateCoder struct {
	level int
}

// NewDeflateCoder returns a Coder for method id Deflate at the given
// 0-9 level, mapped onto flate's -2..9 range.
func NewDeflateCoder(level int) Coder {
	return &deflateCoder{level: level}
}

func (d *deflateCoder) SetProperties(props []Property) {
	for _, p := range props {
		if p.ID == PropLevel {
			d.level = int(p.Value)
		}
	}
}

func flateLevel(level int) int {
	if level <= 0 {
		return flate.BestSpeed
	}
	if level >= 9 {
		return flate.BestCompression
	}
	return level
}

func (d *deflateCoder) Code(w io.Writer, r io.Reader, declaredInputSize int64, progress func(in, out int64)) error {
	cw := &countingWriter{w: w}
	fw, err := flate.NewWriter(cw, flateLevel(d.level))
	if err != nil {
		return err
	}
	buf := make([]byte, 64*1024)
	var in int64
	for {
		n, rerr := r.Read(buf)
		if n > 0 {
			if _, werr := fw.Write(buf[:n]); werr != nil {
				return werr
			}
			in += int64(n)
			if progress != nil {
				progress(in, cw.n)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return rerr
		}
	}
	return fw.Close()
}

// SerializeProperties writes nothing: raw deflate streams carry no
// out-of-band parameters beyond the method id itself.
func (d *deflateCoder) SerializeProperties(w io.Writer) error { return nil }
