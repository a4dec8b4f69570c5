// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package p7z implements a parallel, multi-stream archival compressor
// that emits a single archive conforming to the 7z container format.
//
// A batch of independent input streams is compressed concurrently across
// a fixed worker pool (or, in solid mode, through a single coder instance)
// and assembled into a byte-exact 7z archive, optionally AES encrypted and
// optionally split across fixed-size volumes.
//
// The package does not implement entropy coding itself; it consumes
// compression algorithms through the Coder capability in the coders
// sub-package. It does not read or extract archives.
package p7z
