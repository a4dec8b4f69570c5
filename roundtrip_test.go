// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package p7z_test

import (
	"bytes"
	"context"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/uwedeportivo/sevenzip"

	"github.com/cosnicolaou/p7z"
	"github.com/cosnicolaou/p7z/coders"
	"github.com/cosnicolaou/p7z/inputs"
)

// decodeWithReference opens path with an independent 7z reader and
// returns each archived file's decoded bytes by name.
func decodeWithReference(t *testing.T, path string) map[string][]byte {
	t.Helper()
	zr, err := sevenzip.Open(path)
	if err != nil {
		t.Fatalf("sevenzip.Open(%s): %v", path, err)
	}
	defer zr.Close()
	decoded := make(map[string][]byte)
	for _, zf := range zr.File {
		rd, err := zf.OpenUnsafe()
		if err != nil {
			t.Fatalf("opening %s in %s: %v", zf.Name, path, err)
		}
		b, err := io.ReadAll(rd)
		if err != nil {
			t.Fatalf("reading %s in %s: %v", zf.Name, path, err)
		}
		decoded[zf.Name] = b
	}
	return decoded
}

// testRoundTrip emits an archive with the given method and checks, via
// the independent reader, that every file decodes byte-exact with a
// matching CRC.
func testRoundTrip(t *testing.T, method coders.MethodID, level int) {
	t.Helper()
	want := map[string][]byte{
		"alpha.bin": bytes.Repeat([]byte("roundtrip-alpha "), 512),
		"beta.bin":  bytes.Repeat([]byte{0x00, 0x01, 0x7F, 0xFF}, 1024),
	}
	items := []p7z.InputItem{
		inputs.FromBytes("alpha.bin", want["alpha.bin"]),
		inputs.FromBytes("beta.bin", want["beta.bin"]),
	}

	c := p7z.NewCoordinator(p7z.WithWorkerCount(2), p7z.WithLevel(level), p7z.WithMethodID(method))
	defer c.Close()

	path := filepath.Join(t.TempDir(), "roundtrip.7z")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating %s: %v", path, err)
	}
	outcome, err := c.CompressBatch(context.Background(), items, f, nil)
	if cerr := f.Close(); cerr != nil {
		t.Fatalf("closing %s: %v", path, cerr)
	}
	if err != nil {
		t.Fatalf("CompressBatch: %v", err)
	}
	if outcome != p7z.OutcomeOK {
		t.Fatalf("outcome = %v, want OK", outcome)
	}

	decoded := decodeWithReference(t, path)
	if len(decoded) != len(want) {
		t.Fatalf("reference reader saw %d files, want %d", len(decoded), len(want))
	}
	for name, wantBytes := range want {
		got, ok := decoded[name]
		if !ok {
			t.Errorf("file %q missing from the decoded archive", name)
			continue
		}
		if !bytes.Equal(got, wantBytes) {
			t.Errorf("file %q: decoded bytes differ from the input", name)
		}
		if gotCRC, wantCRC := crc32.ChecksumIEEE(got), crc32.ChecksumIEEE(wantBytes); gotCRC != wantCRC {
			t.Errorf("file %q: decoded CRC = %#x, want %#x", name, gotCRC, wantCRC)
		}
	}
}

func TestRoundTripStore(t *testing.T)   { testRoundTrip(t, coders.Store, 0) }
func TestRoundTripDeflate(t *testing.T) { testRoundTrip(t, coders.Deflate, 6) }
func TestRoundTripLZMA(t *testing.T)    { testRoundTrip(t, coders.LZMA, 5) }
