// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package p7z

import (
	"bytes"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/cosnicolaou/p7z/coders"
)

func nopOpen(b []byte) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(b)), nil
	}
}

func TestEncodeSolidRejectsOverCeiling(t *testing.T) {
	items := []InputItem{
		{Name: "big", DeclaredSize: int64(MaxSolidSize) + 1, Open: nopOpen(nil)},
	}
	_, _, _, err := encodeSolid(items, coders.NewRegistry(), coders.Store, 0, &statsState{}, NoopCallback{})
	if err == nil {
		t.Fatalf("expected an error for a solid batch over the size ceiling")
	}
	var perr *Error
	if !errors.As(err, &perr) || perr.Kind != KindInvalidArgument {
		t.Errorf("got %v, want KindInvalidArgument", err)
	}
}

func TestEncodeSolidRejectsSizeOverflow(t *testing.T) {
	items := []InputItem{
		{Name: "a", DeclaredSize: math.MaxInt64, Open: nopOpen(nil)},
		{Name: "b", DeclaredSize: 10, Open: nopOpen(nil)},
	}
	_, _, _, err := encodeSolid(items, coders.NewRegistry(), coders.Store, 0, &statsState{}, NoopCallback{})
	if err == nil {
		t.Fatalf("expected an error for an overflowing declared-size sum")
	}
	var perr *Error
	if !errors.As(err, &perr) || perr.Kind != KindInvalidArgument {
		t.Errorf("got %v, want KindInvalidArgument", err)
	}
}

func TestEncodeSolidConcatenatesInOrder(t *testing.T) {
	a := bytes.Repeat([]byte("a"), 100)
	b := bytes.Repeat([]byte("b"), 50)
	items := []InputItem{
		{Name: "a", DeclaredSize: int64(len(a)), Open: nopOpen(a)},
		{Name: "b", DeclaredSize: int64(len(b)), Open: nopOpen(b)},
	}
	pack, props, results, err := encodeSolid(items, coders.NewRegistry(), coders.Store, 0, &statsState{}, NoopCallback{})
	if err != nil {
		t.Fatalf("encodeSolid: %v", err)
	}
	if len(props) != 0 {
		t.Errorf("store coder should serialize no properties, got %d bytes", len(props))
	}
	want := append(append([]byte{}, a...), b...)
	if !bytes.Equal(pack, want) {
		t.Errorf("store-coded solid block does not match the in-order concatenation of its items")
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].uncompressedSize != 100 || results[1].uncompressedSize != 50 {
		t.Errorf("per-item sizes = %d, %d, want 100, 50",
			results[0].uncompressedSize, results[1].uncompressedSize)
	}
}

func TestEncodeSolidUnknownDeclaredSizes(t *testing.T) {
	// A declared size of 0 means "unknown"; the item's actual length must
	// be discovered by draining it, and items after it must be unaffected.
	a := bytes.Repeat([]byte("unknown-size-item "), 64)
	b := bytes.Repeat([]byte("b"), 200)
	c := bytes.Repeat([]byte("trailing "), 30)
	items := []InputItem{
		{Name: "a", DeclaredSize: 0, Open: nopOpen(a)},
		{Name: "b", DeclaredSize: int64(len(b)), Open: nopOpen(b)},
		{Name: "c", DeclaredSize: 0, Open: nopOpen(c)},
	}
	pack, _, results, err := encodeSolid(items, coders.NewRegistry(), coders.Store, 0, &statsState{}, NoopCallback{})
	if err != nil {
		t.Fatalf("encodeSolid: %v", err)
	}
	want := append(append(append([]byte{}, a...), b...), c...)
	if !bytes.Equal(pack, want) {
		t.Errorf("store-coded solid block does not match the in-order concatenation of its items")
	}
	for i, wantLen := range []int64{int64(len(a)), int64(len(b)), int64(len(c))} {
		if results[i].uncompressedSize != wantLen {
			t.Errorf("item %d: uncompressedSize = %d, want %d", i, results[i].uncompressedSize, wantLen)
		}
	}
}

func TestSolidFolderFilesPreserveOrder(t *testing.T) {
	results := []solidItemResult{
		{name: "first", uncompressedSize: 10, crc: 0xAB},
		{name: "second", uncompressedSize: 0},
	}
	files := solidFolderFiles(results)
	if files[0].Name != "first" || files[1].Name != "second" {
		t.Errorf("file order does not match item-input order")
	}
	if !files[0].HasStream || files[0].CRC != 0xAB {
		t.Errorf("non-empty item should carry its stream and CRC")
	}
	if files[1].HasStream || files[1].CRCDefined {
		t.Errorf("zero-byte item should have no stream and no CRC")
	}
}
