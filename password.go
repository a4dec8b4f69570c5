// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package p7z

// utf16LEPassword encodes pw as UTF-16LE, the byte form the 7z AES coder
// derives its key from.
func utf16LEPassword(pw string) []byte {
	out := make([]byte, 0, len(pw)*2)
	for _, r := range pw {
		if r <= 0xFFFF {
			out = append(out, byte(r), byte(r>>8))
			continue
		}
		r -= 0x10000
		hi := 0xD800 + (r >> 10)
		lo := 0xDC00 + (r & 0x3FF)
		out = append(out, byte(hi), byte(hi>>8), byte(lo), byte(lo>>8))
	}
	return out
}
