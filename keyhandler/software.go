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

package keyhandler

import (
	"fmt"

	"github.com/blinklabs-io/txforge/crypto"
	"github.com/blinklabs-io/txforge/tx"
)

// SoftwareHandler is the in-process Handler variant: a BIP32-Ed25519
// root seed kept sealed at rest (ChaCha20-Poly1305, PBKDF2-derived
// key) and unsealed only for the duration of a single derive/sign
// operation. The unsealed root and every derived child key are
// zeroised immediately after use.
type SoftwareHandler struct {
	sealed     []byte
	passphrase PassphraseFunc
}

var _ Handler = (*SoftwareHandler)(nil)

// NewSoftwareHandlerFromXPrv seals root under the passphrase produced
// by passphrase and returns a handler wrapping the sealed blob. root
// is zeroised before this function returns; the caller must not use it
// afterward.
func NewSoftwareHandlerFromXPrv(root *crypto.XPrv, passphrase PassphraseFunc) (*SoftwareHandler, error) {
	defer root.Zeroize()
	pass, err := readPassphrase(passphrase)
	if err != nil {
		return nil, err
	}
	sealed, err := crypto.Seal(root.Bytes(), pass, crypto.KeyTypeExtendedPrivate)
	if err != nil {
		return nil, fmt.Errorf("keyhandler: sealing root key: %w", err)
	}
	return &SoftwareHandler{sealed: sealed, passphrase: passphrase}, nil
}

// NewSoftwareHandlerFromMnemonic derives a root seed from a BIP-39
// mnemonic (and optional BIP-39 passphrase) and seals it under the
// sealing passphrase produced by passphrase.
func NewSoftwareHandlerFromMnemonic(mnemonic, bip39Passphrase string, passphrase PassphraseFunc) (*SoftwareHandler, error) {
	root, err := crypto.MnemonicToRootSeed(mnemonic, bip39Passphrase)
	if err != nil {
		return nil, fmt.Errorf("keyhandler: deriving root from mnemonic: %w", err)
	}
	return NewSoftwareHandlerFromXPrv(root, passphrase)
}

// Deserialize wraps a previously Serialize'd sealed blob, validating
// the passphrase once up front so a wrong passphrase surfaces
// immediately rather than on first use.
func Deserialize(sealed []byte, passphrase PassphraseFunc) (*SoftwareHandler, error) {
	h := &SoftwareHandler{
		sealed:     append([]byte(nil), sealed...),
		passphrase: passphrase,
	}
	root, err := h.unsealRoot()
	if err != nil {
		return nil, err
	}
	root.Zeroize()
	return h, nil
}

// Serialize returns the sealed root blob in the format Deserialize
// accepts.
func (h *SoftwareHandler) Serialize() ([]byte, error) {
	return append([]byte(nil), h.sealed...), nil
}

func (h *SoftwareHandler) unsealRoot() (*crypto.XPrv, error) {
	pass, err := readPassphrase(h.passphrase)
	if err != nil {
		return nil, err
	}
	plaintext, keyType, err := crypto.Open(h.sealed, pass)
	if err != nil {
		return nil, fmt.Errorf("keyhandler: unsealing root key: %w", err)
	}
	if keyType != crypto.KeyTypeExtendedPrivate {
		zeroBytes(plaintext)
		return nil, fmt.Errorf("keyhandler: sealed blob does not hold an extended private key")
	}
	root, err := crypto.NewXPrvFromBytes(plaintext)
	zeroBytes(plaintext)
	if err != nil {
		return nil, fmt.Errorf("keyhandler: reconstructing root key: %w", err)
	}
	return root, nil
}

// GetExtendedAccountPublicKey unseals the root, derives the hardened
// account path m/1852'/1815'/account', and returns its public
// counterpart.
func (h *SoftwareHandler) GetExtendedAccountPublicKey(account uint32) (*crypto.XPub, error) {
	root, err := h.unsealRoot()
	if err != nil {
		return nil, err
	}
	defer root.Zeroize()
	child, err := root.DerivePath(crypto.AccountPath(account))
	if err != nil {
		return nil, fmt.Errorf("keyhandler: deriving account key: %w", err)
	}
	defer child.Zeroize()
	return child.Public()
}

// SignTransaction unseals the root once, derives the child key for
// each path, signs the transaction id (BLAKE2b-256 of the canonical
// body CBOR), and returns one vkey witness per path in the order
// given.
func (h *SoftwareHandler) SignTransaction(txn *tx.Transaction, paths [][]uint32) ([]tx.VKeyWitness, error) {
	root, err := h.unsealRoot()
	if err != nil {
		return nil, err
	}
	defer root.Zeroize()

	id, err := txn.Id()
	if err != nil {
		return nil, fmt.Errorf("keyhandler: computing transaction id: %w", err)
	}

	witnesses := make([]tx.VKeyWitness, 0, len(paths))
	for _, path := range paths {
		child, err := root.DerivePath(path)
		if err != nil {
			return nil, fmt.Errorf("keyhandler: deriving signing key for path %v: %w", path, err)
		}
		sigBytes, err := child.Sign(id[:])
		if err != nil {
			child.Zeroize()
			return nil, fmt.Errorf("keyhandler: signing with path %v: %w", path, err)
		}
		pub, err := child.PublicKeyBytes()
		child.Zeroize()
		if err != nil {
			return nil, fmt.Errorf("keyhandler: deriving public key for path %v: %w", path, err)
		}
		var sig [64]byte
		copy(sig[:], sigBytes)
		witnesses = append(witnesses, tx.VKeyWitness{VKey: pub, Signature: sig})
	}
	return witnesses, nil
}
