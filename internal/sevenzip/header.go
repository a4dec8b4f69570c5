// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package sevenzip

import "bytes"

// BuildHeader serializes db into the raw (uncompressed) kHeader-tagged
// byte stream: pack info, folder/coder info, sub-streams info, and the
// file table. The result is what gets handed to a coder for the header's
// own compression/encryption; it is never written to an archive
// unencoded.
func BuildHeader(db *Database) []byte {
	var buf bytes.Buffer
	buf.WriteByte(idHeader)
	if len(db.Folders) > 0 {
		writeMainStreamsInfo(&buf, db)
	}
	writeFilesInfo(&buf, db)
	buf.WriteByte(idEnd)
	return buf.Bytes()
}

func writeMainStreamsInfo(buf *bytes.Buffer, db *Database) {
	buf.WriteByte(idMainStreamsInfo)
	writePackInfo(buf, db)
	writeUnpackInfo(buf, db)
	writeSubStreamsInfo(buf, db)
	buf.WriteByte(idEnd)
}

func writePackInfo(buf *bytes.Buffer, db *Database) {
	buf.WriteByte(idPackInfo)
	writeNumber(buf, 0) // PackPos, relative to the start of the pack region.
	writeNumber(buf, uint64(len(db.PackSizes)))
	buf.WriteByte(idSize)
	for _, sz := range db.PackSizes {
		writeNumber(buf, uint64(sz))
	}
	if len(db.PackCRCs) > 0 {
		buf.WriteByte(idCRC)
		buf.WriteByte(1) // all pack digests defined
		for _, crc := range db.PackCRCs {
			writeUint32LE(buf, crc)
		}
	}
	buf.WriteByte(idEnd)
}

func writeUnpackInfo(buf *bytes.Buffer, db *Database) {
	buf.WriteByte(idUnpackInfo)
	buf.WriteByte(idFolder)
	writeNumber(buf, uint64(len(db.Folders)))
	buf.WriteByte(0) // External = 0: folder descriptions follow inline.
	for _, f := range db.Folders {
		writeFolderCoders(buf, f)
	}
	buf.WriteByte(idCodersUnpackSize)
	for _, f := range db.Folders {
		for range f.Coders {
			// Every coder's out-stream size equals the folder's overall
			// unpack size in this package's simple (non-complex) chains:
			// each coder has exactly one in-stream and one out-stream.
			writeNumber(buf, uint64(f.UnpackSize))
		}
	}
	writeFolderDigests(buf, db.Folders)
	buf.WriteByte(idEnd)
}

// writeFolderCoders writes one folder's coder chain. Every coder here is
// "simple" (1 in-stream, 1 out-stream); when a folder has more than one
// coder (the primary compressor followed by AES), a bind pair connects
// each coder's output to the next coder's input, and the folder's one
// packed stream feeds the first coder's input.
func writeFolderCoders(buf *bytes.Buffer, f Folder) {
	writeNumber(buf, uint64(len(f.Coders)))
	for _, c := range f.Coders {
		idBytes := methodIDBytes(c.MethodID)
		flags := byte(len(idBytes))
		if len(c.Properties) > 0 {
			flags |= 0x20 // hasAttributes
		}
		buf.WriteByte(flags)
		buf.Write(idBytes)
		if len(c.Properties) > 0 {
			writeNumber(buf, uint64(len(c.Properties)))
			buf.Write(c.Properties)
		}
	}
	if len(f.Coders) > 1 {
		// NumBindPairs = NumCoders - 1: a linear chain.
		writeNumber(buf, uint64(len(f.Coders)-1))
		for i := 0; i < len(f.Coders)-1; i++ {
			writeNumber(buf, uint64(i+1)) // InIndex: next coder's in-stream
			writeNumber(buf, uint64(i))   // OutIndex: this coder's out-stream
		}
	}
}

// methodIDBytes renders a coder method id as its minimal big-endian byte
// sequence, as 7z's folder coder flags require.
func methodIDBytes(id uint64) []byte {
	if id == 0 {
		return []byte{0}
	}
	var tmp [8]byte
	n := 0
	for v := id; v > 0; v >>= 8 {
		tmp[n] = byte(v)
		n++
	}
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = tmp[n-1-i]
	}
	return out
}

// writeFolderDigests writes the kCRC digest section for the folders whose
// overall output CRC is known up-front: only folders with exactly one
// sub-stream have a well-defined folder-level CRC (it equals that
// sub-stream's CRC); folders with more than one sub-stream (solid mode)
// leave their digest to the per-sub-stream CRC list in kSubStreamsInfo.
func writeFolderDigests(buf *bytes.Buffer, folders []Folder) {
	type digest struct {
		defined bool
		crc     uint32
	}
	digests := make([]digest, 0, len(folders))
	anyDefined := false
	allDefined := true
	for _, f := range folders {
		if f.NumSubStreams == 1 && len(f.SubStreamCRCs) == 1 {
			digests = append(digests, digest{true, f.SubStreamCRCs[0]})
			anyDefined = true
		} else {
			digests = append(digests, digest{false, 0})
			allDefined = false
		}
	}
	if !anyDefined {
		return
	}
	buf.WriteByte(idCRC)
	if allDefined {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
		bits := make([]bool, len(digests))
		for i, d := range digests {
			bits[i] = d.defined
		}
		buf.Write(bitVector(bits))
	}
	for _, d := range digests {
		if d.defined {
			writeUint32LE(buf, d.crc)
		}
	}
}

func writeSubStreamsInfo(buf *bytes.Buffer, db *Database) {
	buf.WriteByte(idSubStreamsInfo)

	needsCounts := false
	for _, f := range db.Folders {
		if f.NumSubStreams != 1 {
			needsCounts = true
			break
		}
	}
	if needsCounts {
		buf.WriteByte(idNumUnpackStream)
		for _, f := range db.Folders {
			writeNumber(buf, uint64(f.NumSubStreams))
		}
	}

	buf.WriteByte(idSize)
	for _, f := range db.Folders {
		// All but the last sub-stream size is explicit; the last is
		// implied by the folder's UnpackSize minus the rest.
		for i := 0; i < f.NumSubStreams-1; i++ {
			writeNumber(buf, uint64(f.SubStreamSizes[i]))
		}
	}

	// A sub-stream needs its own digest entry unless it is the sole
	// stream in a folder whose folder-level digest already covers it.
	type digest struct {
		defined bool
		crc     uint32
	}
	var digests []digest
	for _, f := range db.Folders {
		folderLevelCovers := f.NumSubStreams == 1 && len(f.SubStreamCRCs) == 1
		if folderLevelCovers {
			continue
		}
		for _, crc := range f.SubStreamCRCs {
			digests = append(digests, digest{true, crc})
		}
	}
	if len(digests) > 0 {
		buf.WriteByte(idCRC)
		allDefined := true
		for _, d := range digests {
			if !d.defined {
				allDefined = false
				break
			}
		}
		if allDefined {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
			bits := make([]bool, len(digests))
			for i, d := range digests {
				bits[i] = d.defined
			}
			buf.Write(bitVector(bits))
		}
		for _, d := range digests {
			if d.defined {
				writeUint32LE(buf, d.crc)
			}
		}
	}
	buf.WriteByte(idEnd)
}

func writeFilesInfo(buf *bytes.Buffer, db *Database) {
	buf.WriteByte(idFilesInfo)
	writeNumber(buf, uint64(len(db.Files)))

	var emptyStreamBits, emptyFileBits []bool
	for _, f := range db.Files {
		emptyStreamBits = append(emptyStreamBits, !f.HasStream)
	}
	anyEmptyStream := false
	for _, b := range emptyStreamBits {
		if b {
			anyEmptyStream = true
			break
		}
	}
	if anyEmptyStream {
		writeProperty(buf, idEmptyStream, bitVector(emptyStreamBits))
		for _, b := range emptyStreamBits {
			if b {
				// None of this package's files are directories, so
				// every empty-stream entry is an empty *file*.
				emptyFileBits = append(emptyFileBits, true)
			}
		}
		writeProperty(buf, idEmptyFile, bitVector(emptyFileBits))
	}

	var names bytes.Buffer
	names.WriteByte(0) // External = 0
	for _, f := range db.Files {
		writeUTF16LEName(&names, f.Name)
	}
	writeProperty(buf, idName, names.Bytes())

	writeAttrsProperty(buf, db.Files)
	writeMTimeProperty(buf, db.Files)

	buf.WriteByte(idEnd)
}

func writeAttrsProperty(buf *bytes.Buffer, files []FileEntry) {
	any := false
	for _, f := range files {
		if f.AttrsSet {
			any = true
			break
		}
	}
	if !any {
		return
	}
	var body bytes.Buffer
	allDefined := true
	for _, f := range files {
		if !f.AttrsSet {
			allDefined = false
			break
		}
	}
	if allDefined {
		body.WriteByte(1)
	} else {
		body.WriteByte(0)
		bits := make([]bool, len(files))
		for i, f := range files {
			bits[i] = f.AttrsSet
		}
		body.Write(bitVector(bits))
	}
	body.WriteByte(0) // External = 0
	for _, f := range files {
		if f.AttrsSet {
			writeUint32LE(&body, f.Attrs)
		}
	}
	writeProperty(buf, idWinAttributes, body.Bytes())
}

func writeMTimeProperty(buf *bytes.Buffer, files []FileEntry) {
	any := false
	for _, f := range files {
		if f.MTimeSet {
			any = true
			break
		}
	}
	if !any {
		return
	}
	var body bytes.Buffer
	allDefined := true
	for _, f := range files {
		if !f.MTimeSet {
			allDefined = false
			break
		}
	}
	if allDefined {
		body.WriteByte(1)
	} else {
		body.WriteByte(0)
		bits := make([]bool, len(files))
		for i, f := range files {
			bits[i] = f.MTimeSet
		}
		body.Write(bitVector(bits))
	}
	body.WriteByte(0) // External = 0
	for _, f := range files {
		if f.MTimeSet {
			writeUint64LE(&body, f.MTime)
		}
	}
	writeProperty(buf, idMTime, body.Bytes())
}

// writeProperty writes one FilesInfo property: its id, its size as a
// Number, then its body verbatim, so a reader that doesn't recognize the
// property id can skip it.
func writeProperty(buf *bytes.Buffer, id byte, body []byte) {
	buf.WriteByte(id)
	writeNumber(buf, uint64(len(body)))
	buf.Write(body)
}

func writeUint32LE(buf *bytes.Buffer, v uint32) {
	buf.WriteByte(byte(v))
	buf.WriteByte(byte(v >> 8))
	buf.WriteByte(byte(v >> 16))
	buf.WriteByte(byte(v >> 24))
}

func writeUint64LE(buf *bytes.Buffer, v uint64) {
	for i := 0; i < 8; i++ {
		buf.WriteByte(byte(v >> (8 * uint(i))))
	}
}
