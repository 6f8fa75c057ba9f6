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
	"math/big"

	"github.com/blinklabs-io/txforge/cbor"
	"github.com/blinklabs-io/txforge/crypto"
)

// PlutusDataKind distinguishes the five production forms of a Plutus
// data value.
type PlutusDataKind byte

const (
	PlutusDataInteger PlutusDataKind = iota
	PlutusDataBytes
	PlutusDataList
	PlutusDataMap
	PlutusDataConstr
)

// PlutusDataMapEntry is a single key/value pair of a Plutus data map; a
// slice rather than a Go map preserves the insertion order a script
// author chose and that canonical re-encoding must not disturb.
type PlutusDataMapEntry struct {
	Key   PlutusData
	Value PlutusData
}

// PlutusData is the recursive sum type backing Plutus script datums and
// redeemers: an integer, a byte string, a list, a map, or a tagged
// constructor application.
type PlutusData struct {
	Kind  PlutusDataKind
	Int   *big.Int
	Bytes []byte
	List  []PlutusData
	Map   []PlutusDataMapEntry

	ConstrIndex  uint64
	ConstrFields []PlutusData
}

// NewPlutusInt wraps an integer datum.
func NewPlutusInt(v int64) PlutusData {
	return PlutusData{Kind: PlutusDataInteger, Int: big.NewInt(v)}
}

// NewPlutusBigInt wraps an arbitrary-precision integer datum.
func NewPlutusBigInt(v *big.Int) PlutusData {
	return PlutusData{Kind: PlutusDataInteger, Int: new(big.Int).Set(v)}
}

// NewPlutusBytes wraps a byte-string datum.
func NewPlutusBytes(b []byte) PlutusData {
	return PlutusData{Kind: PlutusDataBytes, Bytes: append([]byte(nil), b...)}
}

// NewPlutusList wraps a list datum.
func NewPlutusList(items []PlutusData) PlutusData {
	return PlutusData{Kind: PlutusDataList, List: items}
}

// NewPlutusMap wraps a map datum, preserving entry order.
func NewPlutusMap(entries []PlutusDataMapEntry) PlutusData {
	return PlutusData{Kind: PlutusDataMap, Map: entries}
}

// NewPlutusConstr wraps a constructor-tagged datum.
func NewPlutusConstr(index uint64, fields []PlutusData) PlutusData {
	return PlutusData{Kind: PlutusDataConstr, ConstrIndex: index, ConstrFields: fields}
}

// MarshalCBOR encodes the Plutus data value in its canonical CBOR form.
func (d PlutusData) MarshalCBOR() ([]byte, error) {
	w := cbor.NewWriter()
	if err := d.encode(w); err != nil {
		return nil, err
	}
	return w.Bytes(), w.Err()
}

func (d PlutusData) encode(w *cbor.Writer) error {
	switch d.Kind {
	case PlutusDataInteger:
		if d.Int == nil {
			return fmt.Errorf("ledger: plutus data integer is nil")
		}
		w.Bignum(d.Int)
		return w.Err()
	case PlutusDataBytes:
		w.Bytes_(d.Bytes)
		return w.Err()
	case PlutusDataList:
		w.ArrayHeader(len(d.List))
		for _, item := range d.List {
			if err := item.encode(w); err != nil {
				return err
			}
		}
		return w.Err()
	case PlutusDataMap:
		w.MapHeader(len(d.Map))
		for _, entry := range d.Map {
			if err := entry.Key.encode(w); err != nil {
				return err
			}
			if err := entry.Value.encode(w); err != nil {
				return err
			}
		}
		return w.Err()
	case PlutusDataConstr:
		return encodeConstr(w, d.ConstrIndex, d.ConstrFields)
	default:
		return fmt.Errorf("ledger: unknown plutus data kind %d", d.Kind)
	}
}

func encodeConstr(w *cbor.Writer, index uint64, fields []PlutusData) error {
	fieldsAny := make(cbor.IndefLengthList, len(fields))
	for i, f := range fields {
		raw, err := f.MarshalCBOR()
		if err != nil {
			return err
		}
		fieldsAny[i] = cbor.RawMessage(raw)
	}
	c := cbor.NewConstructor(index, fieldsAny)
	raw, err := c.MarshalCBOR()
	if err != nil {
		return err
	}
	w.Value(cbor.RawMessage(raw))
	return w.Err()
}

// UnmarshalCBOR decodes a Plutus data value from its canonical CBOR form.
func (d *PlutusData) UnmarshalCBOR(data []byte) error {
	r := cbor.NewReader(data)
	decoded, err := decodePlutusData(r)
	if err != nil {
		return err
	}
	*d = decoded
	return nil
}

func decodePlutusData(r *cbor.Reader) (PlutusData, error) {
	major, err := r.PeekMajorType()
	if err != nil {
		return PlutusData{}, err
	}
	switch major {
	case cbor.MajorUnsignedInt, cbor.MajorNegativeInt:
		v, err := r.ReadBignum()
		if err != nil {
			return PlutusData{}, err
		}
		return NewPlutusBigInt(v), nil
	case cbor.MajorByteString:
		b, err := r.ReadBytes()
		if err != nil {
			return PlutusData{}, err
		}
		return NewPlutusBytes(b), nil
	case cbor.MajorArray:
		n, indefinite, err := r.ReadStartArray()
		if err != nil {
			return PlutusData{}, err
		}
		items := make([]PlutusData, 0, n)
		if indefinite {
			for !r.IsBreak() {
				sub, err := decodePlutusData(r)
				if err != nil {
					return PlutusData{}, err
				}
				items = append(items, sub)
			}
			if err := r.ReadBreak(); err != nil {
				return PlutusData{}, err
			}
		} else {
			for i := 0; i < n; i++ {
				sub, err := decodePlutusData(r)
				if err != nil {
					return PlutusData{}, err
				}
				items = append(items, sub)
			}
		}
		return NewPlutusList(items), nil
	case cbor.MajorMap:
		n, _, err := r.ReadStartMap()
		if err != nil {
			return PlutusData{}, err
		}
		entries := make([]PlutusDataMapEntry, 0, n)
		for i := 0; i < n; i++ {
			key, err := decodePlutusData(r)
			if err != nil {
				return PlutusData{}, err
			}
			val, err := decodePlutusData(r)
			if err != nil {
				return PlutusData{}, err
			}
			entries = append(entries, PlutusDataMapEntry{Key: key, Value: val})
		}
		return NewPlutusMap(entries), nil
	case cbor.MajorTag:
		return decodePlutusConstr(r)
	default:
		return PlutusData{}, fmt.Errorf("ledger: unexpected major type %d in plutus data", major)
	}
}

func decodePlutusConstr(r *cbor.Reader) (PlutusData, error) {
	tag, err := r.ReadTag()
	if err != nil {
		return PlutusData{}, err
	}
	if tag == 102 {
		if err := r.ValidateArrayOfN("PlutusConstr", 2); err != nil {
			return PlutusData{}, err
		}
		idx, err := r.ReadUint()
		if err != nil {
			return PlutusData{}, err
		}
		fields, err := decodePlutusFieldList(r)
		if err != nil {
			return PlutusData{}, err
		}
		if err := r.ValidateEndArray("PlutusConstr"); err != nil {
			return PlutusData{}, err
		}
		return NewPlutusConstr(idx, fields), nil
	}
	idx, ok := constructorIndexFromTag(tag)
	if !ok {
		return PlutusData{}, fmt.Errorf("ledger: unsupported plutus constructor tag %d", tag)
	}
	fields, err := decodePlutusFieldList(r)
	if err != nil {
		return PlutusData{}, err
	}
	return NewPlutusConstr(idx, fields), nil
}

// constructorIndexFromTag mirrors cbor's internal constructor tag
// mapping (121..127 => 0..6, 1280..1400 => 7..127) for the tag ranges
// this package needs to recognize while decoding raw constructor datums.
func constructorIndexFromTag(tag uint64) (uint64, bool) {
	const (
		base    = 121
		baseMax = 127
		alt     = 1280
		altMax  = 1400
	)
	switch {
	case tag >= base && tag <= baseMax:
		return tag - base, true
	case tag >= alt && tag <= altMax:
		return (tag - alt) + 7, true
	default:
		return 0, false
	}
}

func decodePlutusFieldList(r *cbor.Reader) ([]PlutusData, error) {
	n, indefinite, err := r.ReadStartArray()
	if err != nil {
		return nil, err
	}
	fields := make([]PlutusData, 0, n)
	if indefinite {
		for !r.IsBreak() {
			sub, err := decodePlutusData(r)
			if err != nil {
				return nil, err
			}
			fields = append(fields, sub)
		}
		if err := r.ReadBreak(); err != nil {
			return nil, err
		}
		return fields, nil
	}
	for i := 0; i < n; i++ {
		sub, err := decodePlutusData(r)
		if err != nil {
			return nil, err
		}
		fields = append(fields, sub)
	}
	return fields, nil
}

// Hash returns the BLAKE2b-256 content hash of the canonical CBOR
// encoding, the value bound into a UTxO's datum hash or a script-data
// hash.
func (d PlutusData) Hash() ([32]byte, error) {
	raw, err := d.MarshalCBOR()
	if err != nil {
		return [32]byte{}, err
	}
	return crypto.Blake2b256(raw), nil
}
