// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package coders declares the Coder capability the compression pipeline
// consumes to perform entropy coding, and provides a small registry of
// concrete implementations. The pipeline itself never implements an
// entropy coding algorithm; every Coder here is a thin adapter over a
// real compression or cryptography library.
package coders

import "io"

// MethodID is an opaque 64-bit coder family tag, as carried in a 7z
// folder's coder info. The values below are the ones the 7z format itself
// assigns; the core treats MethodID as opaque and never branches on it.
type MethodID uint64

// Method ids as assigned by the 7z container format.
const (
	Store        MethodID = 0x00
	LZMA         MethodID = 0x03_01_01
	LZMA2        MethodID = 0x21
	BZip2        MethodID = 0x04_02_02
	Deflate      MethodID = 0x04_01_08
	AES256SHA256 MethodID = 0x06_F1_07_01
)

// PropertyID identifies one entry in a Coder's pre-code configuration, set
// via SetProperties. Levels, dictionary sizes and thread counts are all
// passed this way so the Coder capability stays a single narrow interface
// regardless of which concrete algorithm backs it.
type PropertyID int

// Property ids understood by the coders in this package.
const (
	PropLevel PropertyID = iota
	PropDictionarySize
	PropThreadCount
)

// Property is one (id, value) pair passed to Coder.SetProperties.
type Property struct {
	ID    PropertyID
	Value int64
}

// Coder is the capability consumed to perform entropy coding of one
// job's bytes. A Coder instance is used for exactly one job (or one
// solid block) and then discarded; it is never reused across jobs.
type Coder interface {
	// SetProperties applies pre-code configuration (level, dictionary
	// size, thread count). Workers always run coders single-threaded;
	// parallelism lives in the worker pool, not the coder.
	SetProperties(props []Property)

	// Code reads uncompressed bytes from r and writes compressed bytes to
	// w. declaredInputSize is the input's declared size if known, or -1.
	// progress, if non-nil, is invoked periodically with the number of
	// bytes read from r and written to w so far.
	Code(w io.Writer, r io.Reader, declaredInputSize int64, progress func(in, out int64)) error

	// SerializeProperties writes the decoder prelude bytes a 7z decoder
	// needs to reconstruct this coder's state (e.g. LZMA's 5-byte
	// properties-and-dictionary prelude). Coders that take no
	// parameters, such as Store, may leave w untouched; that is normal
	// and must not be treated as failure.
	SerializeProperties(w io.Writer) error
}

// PasswordCoder is implemented by Coder instances that additionally need a
// password to operate, i.e. encryption coders such as AES.
type PasswordCoder interface {
	Coder
	// SetPassword configures the secret used to derive the coder's key,
	// as the UTF-16LE encoding of the configured password, the input the
	// 7z AES key-derivation schedule is defined over.
	SetPassword(utf16LE []byte)
}
