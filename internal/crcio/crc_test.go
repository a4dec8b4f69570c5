// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package crcio_test

import (
	"bytes"
	"hash/crc32"
	"io"
	"testing"

	"github.com/cosnicolaou/p7z/internal/crcio"
)

func TestReaderMatchesStdlibCRC(t *testing.T) {
	input := bytes.Repeat([]byte("the quick brown fox "), 1000)
	r := crcio.New(bytes.NewReader(input))
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(out, input) {
		t.Errorf("Reader mutated the bytes it passed through")
	}
	want := crc32.ChecksumIEEE(input)
	if r.Sum() != want {
		t.Errorf("Sum() = %#x, want %#x", r.Sum(), want)
	}
	if r.BytesSeen() != int64(len(input)) {
		t.Errorf("BytesSeen() = %d, want %d", r.BytesSeen(), len(input))
	}
}

func TestReaderPropagatesUnderlyingError(t *testing.T) {
	wantErr := io.ErrUnexpectedEOF
	r := crcio.New(errReader{err: wantErr})
	_, err := io.ReadAll(r)
	if err != wantErr {
		t.Errorf("got error %v, want %v", err, wantErr)
	}
}

type errReader struct{ err error }

func (e errReader) Read([]byte) (int, error) { return 0, e.err }
