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

// Package keyhandler implements the secure key handler: a polymorphic
// signing surface backed by either a sealed BIP32 root seed held in
// process memory (SoftwareHandler) or an external signer reached over
// some other channel (Handler, satisfied by anything that can produce
// witnesses without ever exposing private key material to this
// process).
package keyhandler

import (
	"fmt"

	"github.com/blinklabs-io/txforge/crypto"
	"github.com/blinklabs-io/txforge/tx"
)

// PassphraseFunc fills buf with a passphrase and returns the number of
// bytes written, or -1 on error (user cancellation, read failure). The
// caller owns buf and must zero it after use; SoftwareHandler does so
// immediately after deriving a key from it.
type PassphraseFunc func(buf []byte) int

// Handler is the polymorphic secure key handler surface. A hardware or
// remote implementation never holds private key bytes in this
// process; SoftwareHandler is the only variant that does, and it keeps
// them sealed at rest.
type Handler interface {
	// GetExtendedAccountPublicKey returns the 64-byte BIP32 extended
	// public key (32-byte curve point + 32-byte chain code) at
	// m/1852'/1815'/account'.
	GetExtendedAccountPublicKey(account uint32) (*crypto.XPub, error)

	// SignTransaction derives the child key at each of paths, signs
	// BLAKE2b-256(transaction body), and returns one vkey witness per
	// path.
	SignTransaction(txn *tx.Transaction, paths [][]uint32) ([]tx.VKeyWitness, error)

	// Serialize returns a byte representation safe to persist: for
	// SoftwareHandler, the sealed root seed blob; implementations that
	// hold no local secret may return an opaque reference instead.
	Serialize() ([]byte, error)
}

// ErrPassphraseCallbackFailed is returned when a PassphraseFunc returns
// a negative length.
var ErrPassphraseCallbackFailed = fmt.Errorf("keyhandler: passphrase callback failed")

// readPassphrase invokes fn into a fixed-size scratch buffer, copies out
// the result as a string, and zeroes the scratch buffer before
// returning — fn's own buffer is the caller's to zero, but the copy
// this function makes to build the string is unavoidable until it is
// consumed by PBKDF2, so callers of readPassphrase must not retain the
// returned string longer than the single derivation that needs it.
func readPassphrase(fn PassphraseFunc) (string, error) {
	buf := make([]byte, 256)
	defer zeroBytes(buf)
	n := fn(buf)
	if n < 0 {
		return "", ErrPassphraseCallbackFailed
	}
	if n > len(buf) {
		n = len(buf)
	}
	return string(buf[:n]), nil
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
