// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package sevenzip

import (
	"bytes"
	"hash/crc32"
	"io"

	"github.com/cosnicolaou/p7z/coders"
)

// HeaderMethod describes the method descriptor used to compress (and,
// optionally, encrypt) the header itself: the same coder family the data
// was compressed with, at the same level, with AES appended when
// encryption is enabled.
type HeaderMethod struct {
	MethodID coders.MethodID
	Primary  coders.Coder
	AES      coders.PasswordCoder // nil unless encryption is enabled
	Password string
}

// Assemble writes a byte-exact 7z archive to w: the 32-byte signature
// header, the pack payload region (db.PackSizes/PackCRCs must already be
// aligned with packedData, in job-index order), and the encoded header
// region built from db.
//
// packedData holds each job's already-compressed bytes, in the same order
// as db.PackSizes; Assemble writes them verbatim and never re-derives
// them, so an AssemblyError (mismatched declared vs actual pack size) is
// caught immediately rather than silently producing a corrupt archive.
func Assemble(w io.Writer, db *Database, packedData [][]byte, hm HeaderMethod) error {
	if len(packedData) != len(db.PackSizes) {
		return &AssemblyError{Msg: "pack data count does not match pack-size table"}
	}
	if len(db.PackCRCs) > 0 && len(db.PackCRCs) != len(db.PackSizes) {
		return &AssemblyError{Msg: "pack CRC count does not match pack-size table"}
	}
	for i, b := range packedData {
		if int64(len(b)) != db.PackSizes[i] {
			return &AssemblyError{Msg: "pack stream size mismatch"}
		}
	}

	rawHeader := BuildHeader(db)

	var compressedHeader bytes.Buffer
	if err := hm.Primary.Code(&compressedHeader, bytes.NewReader(rawHeader), int64(len(rawHeader)), nil); err != nil {
		return &AssemblyError{Msg: "compressing header", Cause: err}
	}
	var primaryProps bytes.Buffer
	if err := hm.Primary.SerializeProperties(&primaryProps); err != nil {
		return &AssemblyError{Msg: "serializing header coder properties", Cause: err}
	}
	headerCoders := []FolderCoder{{MethodID: uint64(hm.MethodID), Properties: primaryProps.Bytes()}}
	// Per-coder out-stream sizes in decode direction, chain order: the
	// primary coder unpacks to the raw header; AES, when present, unpacks
	// to the primary coder's compressed output.
	unpackSizes := []uint64{uint64(len(rawHeader))}

	finalHeaderPayload := compressedHeader.Bytes()
	if hm.AES != nil {
		hm.AES.SetPassword(utf16LEPassword(hm.Password))
		var encrypted bytes.Buffer
		if err := hm.AES.Code(&encrypted, bytes.NewReader(finalHeaderPayload), int64(len(finalHeaderPayload)), nil); err != nil {
			return &AssemblyError{Msg: "encrypting header", Cause: err}
		}
		var aesProps bytes.Buffer
		if err := hm.AES.SerializeProperties(&aesProps); err != nil {
			return &AssemblyError{Msg: "serializing AES properties", Cause: err}
		}
		headerCoders = append(headerCoders, FolderCoder{MethodID: uint64(coders.AES256SHA256), Properties: aesProps.Bytes()})
		unpackSizes = append(unpackSizes, uint64(len(finalHeaderPayload)))
		finalHeaderPayload = encrypted.Bytes()
	}

	var packRegionSize int64
	for _, sz := range db.PackSizes {
		packRegionSize += sz
	}

	// The encoded header's own pack stream lands immediately after the
	// main pack region, so the metadata below addresses it via PackPos;
	// the end-header pointer then skips past it to the metadata itself.
	var encodedRegion bytes.Buffer
	encodedRegion.WriteByte(idEncodedHeader)
	encodedRegion.WriteByte(idPackInfo)
	writeNumber(&encodedRegion, uint64(packRegionSize))
	writeNumber(&encodedRegion, 1)
	encodedRegion.WriteByte(idSize)
	writeNumber(&encodedRegion, uint64(len(finalHeaderPayload)))
	encodedRegion.WriteByte(idEnd)
	encodedRegion.WriteByte(idUnpackInfo)
	encodedRegion.WriteByte(idFolder)
	writeNumber(&encodedRegion, 1)
	encodedRegion.WriteByte(0)
	writeFolderCoders(&encodedRegion, Folder{Coders: headerCoders})
	encodedRegion.WriteByte(idCodersUnpackSize)
	for _, sz := range unpackSizes {
		writeNumber(&encodedRegion, sz)
	}
	encodedRegion.WriteByte(idEnd)
	encodedRegion.WriteByte(idEnd) // end of the meta StreamsInfo wrapper

	start := startHeader{
		NextHeaderOffset: uint64(packRegionSize) + uint64(len(finalHeaderPayload)),
		NextHeaderSize:   uint64(encodedRegion.Len()),
		NextHeaderCRC:    crc32.ChecksumIEEE(encodedRegion.Bytes()),
	}
	sig := buildSignatureHeader(start)

	if _, err := w.Write(sig); err != nil {
		return err
	}
	for _, b := range packedData {
		if _, err := w.Write(b); err != nil {
			return err
		}
	}
	if _, err := w.Write(finalHeaderPayload); err != nil {
		return err
	}
	if _, err := w.Write(encodedRegion.Bytes()); err != nil {
		return err
	}
	return nil
}

// AssembleStore writes an archive whose header is NOT compressed, only
// used when the caller has no coder to spare (kept for callers that want
// to sanity-check the file-table/pack-region framing in isolation).
func AssembleStore(w io.Writer, db *Database, packedData [][]byte) error {
	return Assemble(w, db, packedData, HeaderMethod{MethodID: coders.Store, Primary: coders.NewStoreCoder(0)})
}

type startHeader struct {
	NextHeaderOffset uint64
	NextHeaderSize   uint64
	NextHeaderCRC    uint32
}

// buildSignatureHeader writes the fixed 32-byte preamble: 6-byte magic,
// {major,minor} version, a CRC-32 over the 20-byte start-header, and the
// start-header itself.
func buildSignatureHeader(s startHeader) []byte {
	var sh bytes.Buffer
	writeUint64LE(&sh, s.NextHeaderOffset)
	writeUint64LE(&sh, s.NextHeaderSize)
	writeUint32LE(&sh, s.NextHeaderCRC)

	var out bytes.Buffer
	out.Write(Signature[:])
	out.Write(FormatVersion[:])
	writeUint32LE(&out, crc32.ChecksumIEEE(sh.Bytes()))
	out.Write(sh.Bytes())
	return out.Bytes()
}

// AssemblyError indicates an inconsistency the assembler detected in the
// metadata it was asked to serialize.
type AssemblyError struct {
	Msg   string
	Cause error
}

func (e *AssemblyError) Error() string {
	if e.Cause != nil {
		return "sevenzip: " + e.Msg + ": " + e.Cause.Error()
	}
	return "sevenzip: " + e.Msg
}

func (e *AssemblyError) Unwrap() error { return e.Cause }

// utf16LEPassword encodes pw as UTF-16LE, the byte form the AES coder's
// SetPassword expects.
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
