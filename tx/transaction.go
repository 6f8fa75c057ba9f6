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

package tx

import (
	"github.com/blinklabs-io/txforge/cbor"
	"github.com/blinklabs-io/txforge/crypto"
)

// Transaction is the fully assembled, CBOR-ready Cardano transaction:
// the body subject to fee and signature, the witnesses authenticating
// it, and optional off-chain auxiliary data. IsValid tracks the
// Allegra-era validity flag (false marks a transaction whose scripts
// are known to fail, submitted anyway to collect collateral).
type Transaction struct {
	Body          Body
	WitnessSet    WitnessSet
	IsValid       bool
	AuxiliaryData *AuxiliaryData
}

// New returns a valid (IsValid=true), witness-free transaction wrapping
// body.
func New(body Body) *Transaction {
	return &Transaction{Body: body, IsValid: true}
}

// Id computes the transaction id: BLAKE2b-256 of the body's canonical
// CBOR encoding. The id is independent of the witness set and
// auxiliary data, matching the ledger's definition of a transaction's
// content address.
func (t *Transaction) Id() ([32]byte, error) {
	raw, err := t.Body.MarshalCBOR()
	if err != nil {
		return [32]byte{}, err
	}
	return crypto.Blake2b256(raw), nil
}

// MarshalCBOR encodes the transaction as the standard four-element
// array: [body, witness_set, is_valid, auxiliary_data_or_null].
func (t *Transaction) MarshalCBOR() ([]byte, error) {
	bodyBytes, err := t.Body.MarshalCBOR()
	if err != nil {
		return nil, err
	}
	witBytes, err := t.WitnessSet.MarshalCBOR()
	if err != nil {
		return nil, err
	}
	w := cbor.NewWriter()
	w.ArrayHeader(4)
	w.Value(cbor.RawMessage(bodyBytes))
	w.Value(cbor.RawMessage(witBytes))
	w.Bool(t.IsValid)
	if t.AuxiliaryData.IsEmpty() {
		w.Null()
	} else {
		auxBytes, err := t.AuxiliaryData.MarshalCBOR()
		if err != nil {
			return nil, err
		}
		w.Value(cbor.RawMessage(auxBytes))
	}
	return w.Bytes(), w.Err()
}

// UnmarshalCBOR decodes a transaction from its four-element array form.
func (t *Transaction) UnmarshalCBOR(data []byte) error {
	r := cbor.NewReader(data)
	if err := r.ValidateArrayOfN("Transaction", 4); err != nil {
		return err
	}
	bodyRaw, err := r.ReadEncodedValue()
	if err != nil {
		return err
	}
	var body Body
	if err := body.UnmarshalCBOR(bodyRaw); err != nil {
		return err
	}
	witRaw, err := r.ReadEncodedValue()
	if err != nil {
		return err
	}
	var wit WitnessSet
	if err := wit.UnmarshalCBOR(witRaw); err != nil {
		return err
	}
	isValid, err := r.ReadBool()
	if err != nil {
		return err
	}
	var aux *AuxiliaryData
	if r.IsNull() {
		if err := r.ReadNull(); err != nil {
			return err
		}
	} else {
		auxRaw, err := r.ReadEncodedValue()
		if err != nil {
			return err
		}
		aux = NewAuxiliaryData()
		if err := aux.UnmarshalCBOR(auxRaw); err != nil {
			return err
		}
	}
	t.Body = body
	t.WitnessSet = wit
	t.IsValid = isValid
	t.AuxiliaryData = aux
	return r.ValidateEndArray("Transaction")
}
