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

package ledger

import (
	"fmt"

	"github.com/blinklabs-io/txforge/cbor"
)

// TransactionInput identifies a spendable output by transaction id and
// output index.
type TransactionInput struct {
	TxId  [32]byte
	Index uint16
}

// Less implements the canonical (txid, index) ascending order used for
// input sets, coin-selection tie-breaking, and collateral selection.
func (i TransactionInput) Less(other TransactionInput) bool {
	for k := 0; k < 32; k++ {
		if i.TxId[k] != other.TxId[k] {
			return i.TxId[k] < other.TxId[k]
		}
	}
	return i.Index < other.Index
}

func (i TransactionInput) String() string {
	return fmt.Sprintf("%x#%d", i.TxId, i.Index)
}

// MarshalCBOR encodes the input as the standard [txid, index] array.
func (i TransactionInput) MarshalCBOR() ([]byte, error) {
	return cbor.Encode(cbor.IndefLengthList{i.TxId[:], uint64(i.Index)})
}

// UnmarshalCBOR decodes a [txid, index] array.
func (i *TransactionInput) UnmarshalCBOR(data []byte) error {
	r := cbor.NewReader(data)
	if err := r.ValidateArrayOfN("TransactionInput", 2); err != nil {
		return err
	}
	txid, err := r.ReadBytes()
	if err != nil {
		return err
	}
	idx, err := r.ReadUint()
	if err != nil {
		return err
	}
	copy(i.TxId[:], txid)
	i.Index = uint16(idx)
	return r.ValidateEndArray("TransactionInput")
}

// Datum is either an inline Plutus-data tree or a reference to one by
// its 32-byte hash.
type Datum struct {
	Inline *PlutusData
	Hash   *[32]byte
}

// ScriptRef wraps a script made available for reference-input-based
// spending without requiring a witness-set entry.
type ScriptRef struct {
	Script Script
}

// TransactionOutput is an address/value pair with an optional datum and
// script reference, the post-Alonzo output shape.
type TransactionOutput struct {
	Address   Address
	Value     Value
	Datum     *Datum
	ScriptRef *ScriptRef
}

// MarshalCBOR always encodes the output using the post-Babbage map form
// (keys 0 address, 1 value, 2 datum option, 3 script ref), even when no
// optional field is present; the legacy array form is never written.
func (o TransactionOutput) MarshalCBOR() ([]byte, error) {
	w := cbor.NewWriter()
	fields := 2
	if o.Datum != nil {
		fields++
	}
	if o.ScriptRef != nil {
		fields++
	}
	w.MapHeader(fields)
	w.Uint(0)
	w.Value(o.Address)
	w.Uint(1)
	w.Value(o.Value)
	if o.Datum != nil {
		w.Uint(2)
		if o.Datum.Inline != nil {
			w.ArrayHeader(2)
			w.Uint(1)
			inlineBytes, err := cbor.Encode(o.Datum.Inline)
			if err != nil {
				return nil, err
			}
			w.Value(cbor.Tag{Number: cbor.TagEmbeddedCBOR, Content: inlineBytes})
		} else {
			w.ArrayHeader(2)
			w.Uint(0)
			w.Bytes_(o.Datum.Hash[:])
		}
	}
	if o.ScriptRef != nil {
		scriptBytes, err := cbor.Encode(o.ScriptRef.Script)
		if err != nil {
			return nil, err
		}
		w.Uint(3)
		w.Value(cbor.Tag{Number: cbor.TagEmbeddedCBOR, Content: scriptBytes})
	}
	return w.Bytes(), w.Err()
}

// UnmarshalCBOR decodes either the legacy array form or the post-Babbage
// map form of a transaction output.
func (o *TransactionOutput) UnmarshalCBOR(data []byte) error {
	r := cbor.NewReader(data)
	major, err := r.PeekMajorType()
	if err != nil {
		return err
	}
	if major == cbor.MajorArray {
		return o.unmarshalLegacyArray(r)
	}
	return o.unmarshalMap(r)
}

func (o *TransactionOutput) unmarshalLegacyArray(r *cbor.Reader) error {
	length, _, err := r.ReadStartArray()
	if err != nil {
		return err
	}
	if err := decodeAddressValue(r, o); err != nil {
		return err
	}
	if length >= 3 {
		if r.IsNull() {
			if err := r.ReadNull(); err != nil {
				return err
			}
		} else {
			hashBytes, err := r.ReadBytes()
			if err != nil {
				return err
			}
			var h [32]byte
			copy(h[:], hashBytes)
			o.Datum = &Datum{Hash: &h}
		}
	}
	return r.ValidateEndArray("TransactionOutput")
}

func decodeAddressValue(r *cbor.Reader, o *TransactionOutput) error {
	var addr Address
	raw, err := r.ReadEncodedValue()
	if err != nil {
		return err
	}
	if err := addr.UnmarshalCBOR(raw); err != nil {
		return err
	}
	var value Value
	raw, err = r.ReadEncodedValue()
	if err != nil {
		return err
	}
	if err := value.UnmarshalCBOR(raw); err != nil {
		return err
	}
	o.Address = addr
	o.Value = value
	return nil
}

func (o *TransactionOutput) unmarshalMap(r *cbor.Reader) error {
	count, indefinite, err := r.ReadStartMap()
	if err != nil {
		return err
	}
	read := func() error {
		key, err := r.ReadUint()
		if err != nil {
			return err
		}
		switch key {
		case 0:
			raw, err := r.ReadEncodedValue()
			if err != nil {
				return err
			}
			return o.Address.UnmarshalCBOR(raw)
		case 1:
			raw, err := r.ReadEncodedValue()
			if err != nil {
				return err
			}
			return o.Value.UnmarshalCBOR(raw)
		case 2:
			if err := r.ValidateArrayOfN("datum_option", 2); err != nil {
				return err
			}
			tag, err := r.ReadUint()
			if err != nil {
				return err
			}
			if tag == 0 {
				hashBytes, err := r.ReadBytes()
				if err != nil {
					return err
				}
				var h [32]byte
				copy(h[:], hashBytes)
				o.Datum = &Datum{Hash: &h}
				return nil
			}
			var t cbor.Tag
			raw, err := r.ReadEncodedValue()
			if err != nil {
				return err
			}
			if err := t.UnmarshalCBOR(raw); err != nil {
				return err
			}
			var pd PlutusData
			if err := pd.UnmarshalCBOR(t.Content); err != nil {
				return err
			}
			o.Datum = &Datum{Inline: &pd}
			return nil
		case 3:
			var t cbor.Tag
			raw, err := r.ReadEncodedValue()
			if err != nil {
				return err
			}
			if err := t.UnmarshalCBOR(raw); err != nil {
				return err
			}
			script, err := ScriptFromCBOR(t.Content)
			if err != nil {
				return err
			}
			o.ScriptRef = &ScriptRef{Script: script}
			return nil
		default:
			_, err := r.ReadEncodedValue()
			return err
		}
	}
	if indefinite {
		for !r.IsBreak() {
			if err := read(); err != nil {
				return err
			}
		}
		return r.ReadBreak()
	}
	for k := 0; k < count; k++ {
		if err := read(); err != nil {
			return err
		}
	}
	return nil
}

// UTxO pairs an input with the output it references.
type UTxO struct {
	Input  TransactionInput
	Output TransactionOutput
}

// UTxOList is a collection of UTxOs supporting lookup, filtering, and
// aggregation (§4.4).
type UTxOList []UTxO

// Lookup finds the UTxO for a given input, if present.
func (l UTxOList) Lookup(input TransactionInput) (UTxO, bool) {
	for _, u := range l {
		if u.Input == input {
			return u, true
		}
	}
	return UTxO{}, false
}

// TotalValue sums the value of every UTxO in the list.
func (l UTxOList) TotalValue() Value {
	total := NewValue(0)
	for _, u := range l {
		total = total.Add(u.Output.Value)
	}
	return total
}

// FilterByAddress returns the subset of UTxOs locked at addr.
func (l UTxOList) FilterByAddress(addr Address) UTxOList {
	out := make(UTxOList, 0, len(l))
	addrBytes, err := addr.Bytes()
	if err != nil {
		return out
	}
	for _, u := range l {
		outBytes, err := u.Output.Address.Bytes()
		if err != nil {
			continue
		}
		if string(outBytes) == string(addrBytes) {
			out = append(out, u)
		}
	}
	return out
}
