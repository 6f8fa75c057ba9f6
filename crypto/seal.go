// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package crypto

import (
	"crypto/rand"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/pbkdf2"
)

// sealMagic tags the on-disk blob format produced by Seal so Open can
// reject anything else before attempting to decrypt it.
var sealMagic = [4]byte{'T', 'X', 'F', '1'}

const (
	sealVersion       byte = 1
	sealSaltLen            = 32
	sealNonceLen           = chacha20poly1305.NonceSize // 12
	sealKDFIterations      = 310000
)

// Key types recorded in a sealed blob's header, distinguishing the kind
// of secret the ciphertext holds.
const (
	KeyTypeExtendedPrivate byte = 1 // 96-byte BIP32 XPrv
	KeyTypeStandardSeed    byte = 2 // 32-byte ed25519 seed
)

// ErrSealedBlobMalformed is returned when Open is given a blob with a
// bad magic, an unsupported version, or a truncated header.
var ErrSealedBlobMalformed = errors.New("crypto: malformed sealed key blob")

// ErrSealOpenFailed is returned when decryption fails, meaning either
// the passphrase was wrong or the blob was tampered with.
var ErrSealOpenFailed = errors.New("crypto: failed to open sealed key blob (wrong passphrase or corrupt data)")

// Seal encrypts plaintext key material under a passphrase, producing a
// self-describing blob: magic || version || keyType || salt || nonce ||
// length || ciphertext+tag. The encryption key is derived from the
// passphrase via PBKDF2-HMAC-SHA512 over a random salt, and the
// ciphertext is sealed with ChaCha20-Poly1305.
func Seal(plaintext []byte, passphrase string, keyType byte) ([]byte, error) {
	salt := make([]byte, sealSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("crypto: generating salt: %w", err)
	}
	nonce := make([]byte, sealNonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("crypto: generating nonce: %w", err)
	}

	key := pbkdf2.Key([]byte(passphrase), salt, sealKDFIterations, chacha20poly1305.KeySize, sha512.New)
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}

	header := make([]byte, 0, 4+1+1+sealSaltLen+sealNonceLen)
	header = append(header, sealMagic[:]...)
	header = append(header, sealVersion, keyType)
	header = append(header, salt...)
	header = append(header, nonce...)

	ciphertext := aead.Seal(nil, nonce, plaintext, header)

	out := make([]byte, 0, len(header)+4+len(ciphertext))
	out = append(out, header...)
	lenBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(lenBuf, uint32(len(ciphertext)))
	out = append(out, lenBuf...)
	out = append(out, ciphertext...)
	return out, nil
}

// Open decrypts a blob produced by Seal, returning the original
// plaintext and the key type it was sealed with.
func Open(blob []byte, passphrase string) ([]byte, byte, error) {
	minLen := 4 + 1 + 1 + sealSaltLen + sealNonceLen + 4
	if len(blob) < minLen {
		return nil, 0, ErrSealedBlobMalformed
	}
	if string(blob[0:4]) != string(sealMagic[:]) {
		return nil, 0, fmt.Errorf("%w: bad magic", ErrSealedBlobMalformed)
	}
	version := blob[4]
	if version != sealVersion {
		return nil, 0, fmt.Errorf("%w: unsupported version %d", ErrSealedBlobMalformed, version)
	}
	keyType := blob[5]
	offset := 6
	salt := blob[offset : offset+sealSaltLen]
	offset += sealSaltLen
	nonce := blob[offset : offset+sealNonceLen]
	offset += sealNonceLen
	ciphertextLen := binary.BigEndian.Uint32(blob[offset : offset+4])
	header := blob[0:offset]
	offset += 4
	if offset+int(ciphertextLen) != len(blob) {
		return nil, 0, fmt.Errorf("%w: length mismatch", ErrSealedBlobMalformed)
	}
	ciphertext := blob[offset:]

	key := pbkdf2.Key([]byte(passphrase), salt, sealKDFIterations, chacha20poly1305.KeySize, sha512.New)
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, 0, err
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, header)
	if err != nil {
		return nil, 0, ErrSealOpenFailed
	}
	return plaintext, keyType, nil
}
