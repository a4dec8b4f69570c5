// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package p7z

import (
	"bytes"
	"io"

	"github.com/cosnicolaou/p7z/coders"
	"github.com/cosnicolaou/p7z/internal/crcio"
	"github.com/cosnicolaou/p7z/internal/sevenzip"
)

// solidItemResult is the per-item bookkeeping the solid encoder produces
// for each input item folded into the single solid folder, mirroring a
// job's result slots minus the compressed bytes, which only exist once,
// for the whole folder.
type solidItemResult struct {
	name             string
	declaredSize     int64
	attrs            uint32
	mtime            uint64
	uncompressedSize int64
	crc              uint32
	ok               bool
}

// encodeSolid is the solid-mode path: drain every item, in order, into
// one contiguous buffer while tracking a per-item CRC, then run a single
// coder over the whole buffer so inter-item redundancy is exploited.
// Declared sizes are hints only (an item may declare 0 for "unknown", or
// understate itself), so the buffer grows with what is actually read and
// the size ceiling is enforced on actual bytes as well as on the summed
// declarations.
func encodeSolid(items []InputItem, registry *coders.Registry, methodID coders.MethodID, level int, stats *statsState, cb Callback) ([]byte, []byte, []solidItemResult, error) {
	var declared int64
	for i, it := range items {
		if it.DeclaredSize < 0 {
			return nil, nil, nil, newErr(KindInvalidArgument, "item %d has a negative declared size", i)
		}
		next := declared + it.DeclaredSize
		if next < declared {
			return nil, nil, nil, newErr(KindInvalidArgument, "solid batch size overflowed while summing declared sizes")
		}
		declared = next
	}
	if declared > MaxSolidSize {
		return nil, nil, nil, newErr(KindInvalidArgument, "solid batch size %d exceeds the %d byte ceiling", declared, int64(MaxSolidSize))
	}

	var buf bytes.Buffer
	if declared > 0 {
		buf.Grow(int(declared))
	}
	results := make([]solidItemResult, len(items))

	for i, it := range items {
		res := solidItemResult{name: it.Name, declaredSize: it.DeclaredSize, attrs: it.Attrs, mtime: it.MTime}
		stats.jobStarted()
		cb.OnItemStart(i, it.Name)
		rc, err := it.Open()
		if err != nil {
			stats.jobFinished(false, 0, 0, nowFunc())
			return nil, nil, nil, wrapErr(KindIO, err, "opening solid item %d", i)
		}
		crcRd := crcio.New(rc)
		room := int64(MaxSolidSize) - int64(buf.Len())
		n, err := io.Copy(&buf, io.LimitReader(crcRd, room+1))
		rc.Close()
		if err != nil {
			stats.jobFinished(false, 0, 0, nowFunc())
			return nil, nil, nil, wrapErr(KindIO, err, "reading solid item %d", i)
		}
		if n > room {
			stats.jobFinished(false, 0, 0, nowFunc())
			return nil, nil, nil, newErr(KindInvalidArgument, "solid batch exceeds the %d byte ceiling", int64(MaxSolidSize))
		}
		res.uncompressedSize = n
		res.crc = crcRd.Sum()
		res.ok = true
		results[i] = res
		stats.jobFinished(true, res.uncompressedSize, 0, nowFunc())
		cb.OnItemProgress(i, res.uncompressedSize, 0)
		cb.OnItemComplete(i, JobOK, res.uncompressedSize, 0)
	}

	coder, err := registry.New(methodID, level)
	if err != nil {
		return nil, nil, nil, wrapErr(KindCoder, err, "no coder for solid method id %#x", uint64(methodID))
	}
	coder.SetProperties([]coders.Property{{ID: coders.PropLevel, Value: int64(level)}})

	var sink bytes.Buffer
	if err := coder.Code(&sink, bytes.NewReader(buf.Bytes()), int64(buf.Len()), nil); err != nil {
		return nil, nil, nil, wrapErr(KindCoder, err, "coding solid block")
	}
	var propsBuf bytes.Buffer
	if err := coder.SerializeProperties(&propsBuf); err != nil {
		return nil, nil, nil, wrapErr(KindCoder, err, "serializing solid coder properties")
	}

	return sink.Bytes(), propsBuf.Bytes(), results, nil
}

// solidFolderFiles converts solid encoding results into the sevenzip
// package's file-entry shape, preserving item-input order.
func solidFolderFiles(results []solidItemResult) []sevenzip.FileEntry {
	files := make([]sevenzip.FileEntry, len(results))
	for i, r := range results {
		files[i] = sevenzip.FileEntry{
			Name:       r.name,
			Size:       r.uncompressedSize,
			Attrs:      r.attrs,
			MTime:      r.mtime,
			HasStream:  r.uncompressedSize > 0,
			CRC:        r.crc,
			CRCDefined: r.uncompressedSize > 0,
		}
	}
	return files
}
