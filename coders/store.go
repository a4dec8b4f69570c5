// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package coders

import "io"

// storeCoder implements the Store method id: a pass-through copy, used
// for incompressible data or zero-byte inputs. It takes no parameters
// and serializes no properties.
type storeCoder struct{}

// NewStoreCoder returns the pass-through Coder for method id Store. level
// is accepted to satisfy the Factory signature but has no effect.
func NewStoreCoder(level int) Coder { return &storeCoder{} }

func (s *storeCoder) SetProperties([]Property) {}

func (s *storeCoder) Code(w io.Writer, r io.Reader, declaredInputSize int64, progress func(in, out int64)) error {
	buf := make([]byte, 64*1024)
	var total int64
	for {
		n, rerr := r.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
			total += int64(n)
			if progress != nil {
				progress(total, total)
			}
		}
		if rerr == io.EOF {
			return nil
		}
		if rerr != nil {
			return rerr
		}
	}
}

func (s *storeCoder) SerializeProperties(w io.Writer) error { return nil }
