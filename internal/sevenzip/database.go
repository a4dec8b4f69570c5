// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package sevenzip

// FolderCoder is one coder in a folder's coder chain, in encode
// data-flow order: primary compressor first, then AES when encryption is
// enabled. Stock 7z writers order a chain by coder index rather than by
// data flow; this package uses data-flow order throughout and encodes
// the chain's bind pairs to match.
type FolderCoder struct {
	MethodID   uint64
	Properties []byte
}

// Folder is one 7z folder (coder chain + its input sub-streams): one
// folder per successful job in non-solid mode, or a single folder for
// the whole batch in solid mode.
type Folder struct {
	Coders []FolderCoder
	// NumSubStreams is the number of files packed into this folder: 1 in
	// non-solid mode, the number of non-empty items in solid mode.
	NumSubStreams int
	// SubStreamSizes gives each sub-stream's uncompressed size, in order;
	// len(SubStreamSizes) == NumSubStreams.
	SubStreamSizes []int64
	// SubStreamCRCs gives each sub-stream's CRC-32, in order.
	SubStreamCRCs []uint32
	// UnpackSize is the folder's overall uncompressed size: the sum of
	// SubStreamSizes, and the size presented to the final coder's output.
	UnpackSize int64
}

// FileEntry is one 7z file-table entry.
type FileEntry struct {
	Name       string
	Size       int64
	Attrs      uint32
	AttrsSet   bool
	MTime      uint64
	MTimeSet   bool
	HasStream  bool
	CRC        uint32
	CRCDefined bool
}

// Database is the archive database the assembler serializes into the
// encoded-header region: folders, pack sizes, pack CRCs, and the file
// table.
type Database struct {
	PackSizes []int64
	PackCRCs  []uint32
	Folders   []Folder
	Files     []FileEntry
}
