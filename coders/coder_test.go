// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package coders_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cosnicolaou/p7z/coders"
)

func TestRegistryDefaults(t *testing.T) {
	r := coders.NewRegistry()
	for _, id := range []coders.MethodID{coders.Store, coders.Deflate, coders.LZMA, coders.LZMA2} {
		if !r.Has(id) {
			t.Errorf("registry missing default factory for method id %#x", uint64(id))
		}
	}
	if r.Has(coders.AES256SHA256) {
		t.Errorf("AES should not be registered until RegisterAES is called")
	}
	r.RegisterAES()
	if !r.Has(coders.AES256SHA256) {
		t.Errorf("RegisterAES did not install the AES factory")
	}
}

func TestRegistryUnknownMethod(t *testing.T) {
	r := coders.NewRegistry()
	if _, err := r.New(coders.BZip2, 5); err == nil {
		t.Errorf("expected an error for an unregistered method id")
	}
}

func roundtripViaStore(t *testing.T, factory coders.Factory, level int, input []byte) ([]byte, []byte) {
	t.Helper()
	c := factory(level)
	c.SetProperties([]coders.Property{{ID: coders.PropLevel, Value: int64(level)}})
	var sink bytes.Buffer
	if err := c.Code(&sink, bytes.NewReader(input), int64(len(input)), nil); err != nil {
		t.Fatalf("Code: %v", err)
	}
	var props bytes.Buffer
	if err := c.SerializeProperties(&props); err != nil {
		t.Fatalf("SerializeProperties: %v", err)
	}
	return sink.Bytes(), props.Bytes()
}

func TestStoreCoderIsPassthrough(t *testing.T) {
	input := []byte(strings.Repeat("abcdefgh", 1024))
	out, props := roundtripViaStore(t, coders.NewStoreCoder, 0, input)
	if !bytes.Equal(out, input) {
		t.Errorf("store coder mutated its input")
	}
	if len(props) != 0 {
		t.Errorf("store coder should serialize no properties, got %d bytes", len(props))
	}
}

func TestDeflateCoderCompresses(t *testing.T) {
	input := []byte(strings.Repeat("the quick brown fox jumps over the lazy dog ", 256))
	out, props := roundtripViaStore(t, coders.NewDeflateCoder, 9, input)
	if len(out) >= len(input) {
		t.Errorf("deflate output (%d bytes) not smaller than input (%d bytes) for highly repetitive data", len(out), len(input))
	}
	if len(props) != 0 {
		t.Errorf("deflate coder should serialize no properties, got %d bytes", len(props))
	}
}

func TestLZMACoderPropertiesPrelude(t *testing.T) {
	input := []byte(strings.Repeat("p7z-lzma-roundtrip-sample ", 512))
	out, props := roundtripViaStore(t, coders.NewLZMACoder, 5, input)
	if len(out) == 0 {
		t.Fatalf("lzma coder produced no output")
	}
	if len(props) != 5 {
		t.Fatalf("lzma properties prelude should be 5 bytes, got %d", len(props))
	}
}

func TestZstdCoderForLZMA2Slot(t *testing.T) {
	input := []byte(strings.Repeat("zstd-stand-in-for-lzma2 ", 512))
	out, props := roundtripViaStore(t, coders.NewZstdCoder, 5, input)
	if len(out) == 0 {
		t.Fatalf("zstd coder produced no output")
	}
	if len(props) != 1 {
		t.Fatalf("LZMA2 dictionary-size control byte should be 1 byte, got %d", len(props))
	}
}

func TestAESCoderEncryptsAndSerializesSaltIV(t *testing.T) {
	r := coders.NewRegistry()
	r.RegisterAES()
	c, err := r.New(coders.AES256SHA256, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	pc, ok := c.(coders.PasswordCoder)
	if !ok {
		t.Fatalf("AES coder does not implement PasswordCoder")
	}
	pc.SetPassword([]byte{0x70, 0x00, 0x77, 0x00}) // UTF-16LE "pw"

	input := []byte(strings.Repeat("A", 4096))
	var sink bytes.Buffer
	if err := pc.Code(&sink, bytes.NewReader(input), int64(len(input)), nil); err != nil {
		t.Fatalf("Code: %v", err)
	}
	if bytes.Contains(sink.Bytes(), bytes.Repeat([]byte{'A'}, 16)) {
		t.Errorf("ciphertext contains a run of plaintext bytes")
	}
	var props bytes.Buffer
	if err := pc.SerializeProperties(&props); err != nil {
		t.Fatalf("SerializeProperties: %v", err)
	}
	if props.Len() == 0 {
		t.Errorf("AES properties prelude should not be empty")
	}
}
