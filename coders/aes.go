// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package coders

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"io"
)

// DefaultNumCyclesPower is the iteration count (as a power of two) used to
// derive an AES key from a password, matching 7-Zip's own default.
const DefaultNumCyclesPower = 19

// aesCoder backs method id AES256SHA256: AES-256 in CBC mode keyed by
// 7z's own SHA-256 key-stretching schedule. The schedule is specific to
// the 7z format, so it is implemented here directly on crypto/aes,
// crypto/cipher and crypto/sha256.
type aesCoder struct {
	numCyclesPower byte
	salt           []byte
	ivForProps     []byte
	password       []byte // UTF-16LE, set via SetPassword
}

// NewAESCoder returns the AES256SHA256 Coder. level is accepted for
// Factory-signature compatibility and has no effect: key strength here is
// fixed at AES-256.
func NewAESCoder(level int) Coder {
	return &aesCoder{numCyclesPower: DefaultNumCyclesPower}
}

func (a *aesCoder) SetProperties(props []Property) {
	// No tunable properties beyond the password and salt; numCyclesPower
	// is fixed at DefaultNumCyclesPower.
}

func (a *aesCoder) SetPassword(utf16LE []byte) {
	a.password = append([]byte(nil), utf16LE...)
}

// deriveKey implements 7z's AES key-stretching KDF: SHA-256 folded over
// salt || password || little-endian round counter, repeated 2^numCyclesPower
// times.
func deriveKey(salt, password []byte, numCyclesPower byte) [32]byte {
	h := sha256.New()
	var counter [8]byte
	rounds := uint64(1) << numCyclesPower
	for round := uint64(0); round < rounds; round++ {
		h.Write(salt)
		h.Write(password)
		binary.LittleEndian.PutUint64(counter[:], round)
		h.Write(counter[:])
	}
	var key [32]byte
	copy(key[:], h.Sum(nil))
	return key
}

// Code encrypts the bytes read from r with AES-256 in CBC mode.
// Plaintext is padded with zero bytes to a 16-byte boundary; the
// substream's own recorded uncompressed size is what lets a decoder
// discard the padding, so no length prefix is written here.
func (a *aesCoder) Code(w io.Writer, r io.Reader, declaredInputSize int64, progress func(in, out int64)) error {
	salt := make([]byte, 8)
	if _, err := rand.Read(salt); err != nil {
		return err
	}
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return err
	}
	a.salt = salt

	key := deriveKey(salt, a.password, a.numCyclesPower)
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return err
	}
	mode := cipher.NewCBCEncrypter(block, iv)

	plain, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if pad := len(plain) % aes.BlockSize; pad != 0 {
		plain = append(plain, make([]byte, aes.BlockSize-pad)...)
	}
	cipherText := make([]byte, len(plain))
	mode.CryptBlocks(cipherText, plain)

	if _, err := w.Write(cipherText); err != nil {
		return err
	}
	if progress != nil {
		progress(int64(len(plain)), int64(len(cipherText)))
	}
	a.ivForProps = iv
	return nil
}

// SerializeProperties writes the cycle count, salt and IV generated for
// the most recent Code call, in the property-byte encoding 7z's AES
// coder uses on disk.
func (a *aesCoder) SerializeProperties(w io.Writer) error {
	saltSize := len(a.salt)
	ivSize := len(a.ivForProps)
	b0 := a.numCyclesPower & 0x3F
	if saltSize > 0 {
		b0 |= 0x80
	}
	if ivSize > 0 {
		b0 |= 0x40
	}
	out := []byte{b0}
	if saltSize > 0 || ivSize > 0 {
		// Each nibble holds its size minus the one already implied by the
		// matching flag bit in b0.
		var b1 byte
		if saltSize > 0 {
			b1 |= byte(saltSize-1) << 4
		}
		if ivSize > 0 {
			b1 |= byte(ivSize - 1)
		}
		out = append(out, b1)
	}
	out = append(out, a.salt...)
	out = append(out, a.ivForProps...)
	_, err := w.Write(out)
	return err
}
