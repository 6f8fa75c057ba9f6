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

// Package crypto collects the primitives the Cardano transaction pipeline
// needs: BLAKE2b hashing, standard and BIP32-extended Ed25519, BIP39
// mnemonics, PBKDF2 seed stretching, ChaCha20-Poly1305 sealing, and
// bech32/base58 text encodings.
package crypto

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// ErrInvalidDigestSize is returned when a caller asks for a BLAKE2b digest
// outside the valid 1..64 byte range.
var ErrInvalidDigestSize = errors.New("crypto: blake2b digest size must be in 1..64")

// Blake2b224 hashes data to a 28-byte digest, the size used throughout
// Cardano for key hashes, script hashes, and policy IDs.
func Blake2b224(data []byte) [28]byte {
	var out [28]byte
	h, _ := blake2b.New(28, nil)
	h.Write(data)
	copy(out[:], h.Sum(nil))
	return out
}

// Blake2b256 hashes data to a 32-byte digest, the size used for
// transaction body hashes, script-data hashes, and Plutus data hashes.
func Blake2b256(data []byte) [32]byte {
	var out [32]byte
	h, _ := blake2b.New(32, nil)
	h.Write(data)
	copy(out[:], h.Sum(nil))
	return out
}

// Blake2bSum hashes data to an arbitrary digest size in 1..64 bytes.
func Blake2bSum(data []byte, size int) ([]byte, error) {
	if size < 1 || size > 64 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidDigestSize, size)
	}
	h, err := blake2b.New(size, nil)
	if err != nil {
		return nil, err
	}
	h.Write(data)
	return h.Sum(nil), nil
}
