// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package sevenzip implements a byte-exact serializer for the 7z
// container format's archive database (folders, pack sizes, pack CRCs,
// file items, sub-stream counts), plus the signature header and
// pack-region framing around it. It does not implement entropy coding;
// callers supply already-compressed bytes and a coders.Coder to use for
// compressing (and, when required, encrypting) the header itself.
package sevenzip

// Property ids, as assigned by the 7z format's own header tagging scheme.
const (
	idEnd                   = 0x00
	idHeader                = 0x01
	idArchiveProperties     = 0x02
	idAdditionalStreamsInfo = 0x03
	idMainStreamsInfo       = 0x04
	idFilesInfo             = 0x05
	idPackInfo              = 0x06
	idUnpackInfo            = 0x07
	idSubStreamsInfo        = 0x08
	idSize                  = 0x09
	idCRC                   = 0x0A
	idFolder                = 0x0B
	idCodersUnpackSize      = 0x0C
	idNumUnpackStream       = 0x0D
	idEmptyStream           = 0x0E
	idEmptyFile             = 0x0F
	idAnti                  = 0x10
	idName                  = 0x11
	idCTime                 = 0x12
	idATime                 = 0x13
	idMTime                 = 0x14
	idWinAttributes         = 0x15
	idEncodedHeader         = 0x17
	idStartPos              = 0x18
	idDummy                 = 0x19
)

// Signature is the fixed 6-byte magic that opens every 7z archive.
var Signature = [6]byte{0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C}

// FormatVersion is the {major, minor} version pair this package emits.
var FormatVersion = [2]byte{0, 4}
