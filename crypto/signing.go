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
	"crypto/ed25519"
	"crypto/sha512"
	"fmt"

	"filippo.io/edwards25519"
)

// Sign produces a 64-byte Ed25519 signature over message using this
// extended private key's expanded scalar/prefix pair. The resulting
// signature verifies against the standard 32-byte Ed25519 public key
// returned by PublicKeyBytes, via crypto/ed25519.Verify or Verify below,
// exactly as a signature from a non-extended key would.
func (k *XPrv) Sign(message []byte) ([]byte, error) {
	pub, err := k.PublicKeyBytes()
	if err != nil {
		return nil, err
	}

	rh := sha512.New()
	rh.Write(k.prefix[:])
	rh.Write(message)
	rDigest := rh.Sum(nil)
	rScalar, err := edwards25519.NewScalar().SetUniformBytes(rDigest)
	if err != nil {
		return nil, err
	}
	R := new(edwards25519.Point).ScalarBaseMult(rScalar)
	RBytes := R.Bytes()

	kh := sha512.New()
	kh.Write(RBytes)
	kh.Write(pub[:])
	kh.Write(message)
	kDigest := kh.Sum(nil)
	kScalar, err := edwards25519.NewScalar().SetUniformBytes(kDigest)
	if err != nil {
		return nil, err
	}

	kLScalar, err := scalarAsEdwards(k.scalar)
	if err != nil {
		return nil, err
	}

	s := edwards25519.NewScalar().MultiplyAdd(kScalar, kLScalar, rScalar)

	sig := make([]byte, 64)
	copy(sig[:32], RBytes)
	copy(sig[32:], s.Bytes())
	return sig, nil
}

// Verify checks a 64-byte signature produced by either Sign or a
// standard (non-extended) Ed25519 signing routine, against a 32-byte
// Ed25519 public key.
func Verify(publicKey [32]byte, message, signature []byte) bool {
	return ed25519.Verify(publicKey[:], message, signature)
}

// SignStandard signs message with a standard (non-extended) 32-byte
// Ed25519 seed, used for payment/stake keys that were not derived
// through the BIP32 tree (e.g. imported raw keys).
func SignStandard(seed []byte, message []byte) ([]byte, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf(
			"crypto: ed25519 seed must be %d bytes, got %d",
			ed25519.SeedSize, len(seed),
		)
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return ed25519.Sign(priv, message), nil
}

// StandardPublicKey returns the 32-byte Ed25519 public key for a
// standard seed.
func StandardPublicKey(seed []byte) ([32]byte, error) {
	if len(seed) != ed25519.SeedSize {
		return [32]byte{}, fmt.Errorf(
			"crypto: ed25519 seed must be %d bytes, got %d",
			ed25519.SeedSize, len(seed),
		)
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	var out [32]byte
	copy(out[:], pub)
	return out, nil
}
