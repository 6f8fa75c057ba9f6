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

// Package ledger implements the Cardano domain types: addresses, values,
// UTxOs, Plutus data, scripts, certificates, and governance actions.
package ledger

import (
	"fmt"

	"github.com/blinklabs-io/txforge/cbor"
)

// CredentialKind distinguishes a key-hash credential from a script-hash
// credential; both are 28-byte BLAKE2b-224 digests.
type CredentialKind byte

const (
	CredentialKeyHash    CredentialKind = 0
	CredentialScriptHash CredentialKind = 1
)

func (k CredentialKind) String() string {
	if k == CredentialScriptHash {
		return "script"
	}
	return "key"
}

// Credential is a payment or staking credential: either a key hash or a
// script hash, both 28 bytes.
type Credential struct {
	Kind CredentialKind
	Hash [28]byte
}

// NewKeyHashCredential wraps a 28-byte key hash.
func NewKeyHashCredential(hash [28]byte) Credential {
	return Credential{Kind: CredentialKeyHash, Hash: hash}
}

// NewScriptHashCredential wraps a 28-byte script hash.
func NewScriptHashCredential(hash [28]byte) Credential {
	return Credential{Kind: CredentialScriptHash, Hash: hash}
}

// IsScript reports whether this credential is backed by a script hash.
func (c Credential) IsScript() bool {
	return c.Kind == CredentialScriptHash
}

// Equal reports structural equality.
func (c Credential) Equal(other Credential) bool {
	return c.Kind == other.Kind && c.Hash == other.Hash
}

func (c Credential) String() string {
	return fmt.Sprintf("%sHash(%x)", c.Kind, c.Hash)
}

// MarshalCBOR encodes the credential as the standard two-element
// [kind, hash] array used throughout certificates and governance actions.
func (c Credential) MarshalCBOR() ([]byte, error) {
	return cbor.Encode(cbor.IndefLengthList{uint64(c.Kind), c.Hash[:]})
}

// UnmarshalCBOR decodes a [kind, hash] array into the credential.
func (c *Credential) UnmarshalCBOR(data []byte) error {
	r := cbor.NewReader(data)
	if err := r.ValidateArrayOfN("Credential", 2); err != nil {
		return err
	}
	kind, err := r.ReadUint()
	if err != nil {
		return err
	}
	hashBytes, err := r.ReadBytes()
	if err != nil {
		return err
	}
	if len(hashBytes) != 28 {
		return fmt.Errorf("ledger: credential hash must be 28 bytes, got %d", len(hashBytes))
	}
	c.Kind = CredentialKind(kind)
	copy(c.Hash[:], hashBytes)
	return r.ValidateEndArray("Credential")
}
