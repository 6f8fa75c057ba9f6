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
	"math/big"
	"sort"

	"github.com/blinklabs-io/txforge/cbor"
	"github.com/blinklabs-io/txforge/ledger"
)

// MetadatumKind distinguishes the five shapes a transaction_metadatum
// value may take.
type MetadatumKind byte

const (
	MetadatumInt MetadatumKind = iota
	MetadatumBytes
	MetadatumText
	MetadatumList
	MetadatumMap
)

// Metadatum is a recursive value stored under a metadata label, per the
// transaction_metadatum CDDL production. It is deliberately a separate
// type from ledger.PlutusData: metadata has no constructor-tag shape and
// its map keys may themselves be any metadatum, not just plutus data.
type Metadatum struct {
	Kind  MetadatumKind
	Int   *big.Int
	Bytes []byte
	Text  string
	List  []Metadatum
	Map   []MetadatumMapEntry
}

// MetadatumMapEntry is one key/value pair of a metadatum map, kept as an
// ordered slice (not a Go map) since metadatum keys are not restricted
// to hashable primitive kinds.
type MetadatumMapEntry struct {
	Key   Metadatum
	Value Metadatum
}

// NewMetadatumInt wraps an integer metadatum.
func NewMetadatumInt(v int64) Metadatum { return Metadatum{Kind: MetadatumInt, Int: big.NewInt(v)} }

// NewMetadatumBytes wraps a byte-string metadatum (at most 64 bytes per
// chunk; the codec below chunks transparently for longer payloads).
func NewMetadatumBytes(b []byte) Metadatum {
	return Metadatum{Kind: MetadatumBytes, Bytes: append([]byte(nil), b...)}
}

// NewMetadatumText wraps a text metadatum.
func NewMetadatumText(s string) Metadatum { return Metadatum{Kind: MetadatumText, Text: s} }

// NewMetadatumList wraps a list metadatum.
func NewMetadatumList(items []Metadatum) Metadatum { return Metadatum{Kind: MetadatumList, List: items} }

// NewMetadatumMap wraps a map metadatum.
func NewMetadatumMap(entries []MetadatumMapEntry) Metadatum {
	return Metadatum{Kind: MetadatumMap, Map: entries}
}

func (m Metadatum) MarshalCBOR() ([]byte, error) {
	w := cbor.NewWriter()
	if err := m.encode(w); err != nil {
		return nil, err
	}
	return w.Bytes(), w.Err()
}

func (m Metadatum) encode(w *cbor.Writer) error {
	switch m.Kind {
	case MetadatumInt:
		w.Bignum(m.Int)
	case MetadatumBytes:
		w.Bytes_(m.Bytes)
	case MetadatumText:
		w.Text(m.Text)
	case MetadatumList:
		w.ArrayHeader(len(m.List))
		for _, item := range m.List {
			if err := item.encode(w); err != nil {
				return err
			}
		}
	case MetadatumMap:
		w.MapHeader(len(m.Map))
		for _, entry := range m.Map {
			if err := entry.Key.encode(w); err != nil {
				return err
			}
			if err := entry.Value.encode(w); err != nil {
				return err
			}
		}
	}
	return w.Err()
}

func (m *Metadatum) UnmarshalCBOR(data []byte) error {
	r := cbor.NewReader(data)
	decoded, err := decodeMetadatum(r)
	if err != nil {
		return err
	}
	*m = decoded
	return nil
}

func decodeMetadatum(r *cbor.Reader) (Metadatum, error) {
	major, err := r.PeekMajorType()
	if err != nil {
		return Metadatum{}, err
	}
	switch major {
	case cbor.MajorUnsignedInt, cbor.MajorNegativeInt:
		v, err := r.ReadBignum()
		if err != nil {
			return Metadatum{}, err
		}
		return Metadatum{Kind: MetadatumInt, Int: v}, nil
	case cbor.MajorByteString:
		b, err := r.ReadBytes()
		if err != nil {
			return Metadatum{}, err
		}
		return Metadatum{Kind: MetadatumBytes, Bytes: b}, nil
	case cbor.MajorTextString:
		s, err := r.ReadText()
		if err != nil {
			return Metadatum{}, err
		}
		return Metadatum{Kind: MetadatumText, Text: s}, nil
	case cbor.MajorArray:
		n, indefinite, err := r.ReadStartArray()
		if err != nil {
			return Metadatum{}, err
		}
		var items []Metadatum
		if indefinite {
			for !r.IsBreak() {
				item, err := decodeMetadatum(r)
				if err != nil {
					return Metadatum{}, err
				}
				items = append(items, item)
			}
			if err := r.ReadBreak(); err != nil {
				return Metadatum{}, err
			}
		} else {
			for i := 0; i < n; i++ {
				item, err := decodeMetadatum(r)
				if err != nil {
					return Metadatum{}, err
				}
				items = append(items, item)
			}
		}
		return Metadatum{Kind: MetadatumList, List: items}, nil
	case cbor.MajorMap:
		n, indefinite, err := r.ReadStartMap()
		if err != nil {
			return Metadatum{}, err
		}
		var entries []MetadatumMapEntry
		readPair := func() error {
			k, err := decodeMetadatum(r)
			if err != nil {
				return err
			}
			v, err := decodeMetadatum(r)
			if err != nil {
				return err
			}
			entries = append(entries, MetadatumMapEntry{Key: k, Value: v})
			return nil
		}
		if indefinite {
			for !r.IsBreak() {
				if err := readPair(); err != nil {
					return Metadatum{}, err
				}
			}
			if err := r.ReadBreak(); err != nil {
				return Metadatum{}, err
			}
		} else {
			for i := 0; i < n; i++ {
				if err := readPair(); err != nil {
					return Metadatum{}, err
				}
			}
		}
		return Metadatum{Kind: MetadatumMap, Map: entries}, nil
	default:
		return Metadatum{}, NewAuxDataShapeError()
	}
}

// NewAuxDataShapeError reports an unsupported metadatum major type.
func NewAuxDataShapeError() error {
	return cbor.NewShapeError("transaction_metadatum", cbor.ErrUnexpectedMajorType)
}

type metadataEntry struct {
	Label uint64
	Value Metadatum
}

// AuxiliaryData is the transaction's off-chain-relevant payload: labeled
// metadata plus any scripts carried purely for provenance (not required
// to satisfy a witness, but published alongside the transaction).
type AuxiliaryData struct {
	Metadata        []metadataEntry
	NativeScripts   []ledger.NativeScript
	PlutusV1Scripts []ledger.PlutusScript
	PlutusV2Scripts []ledger.PlutusScript
	PlutusV3Scripts []ledger.PlutusScript
}

// NewAuxiliaryData returns an empty auxiliary data value.
func NewAuxiliaryData() *AuxiliaryData {
	return &AuxiliaryData{}
}

// SetMetadata records (or overwrites) the metadatum stored under label.
func (a *AuxiliaryData) SetMetadata(label uint64, value Metadatum) {
	for i, e := range a.Metadata {
		if e.Label == label {
			a.Metadata[i].Value = value
			return
		}
	}
	a.Metadata = append(a.Metadata, metadataEntry{Label: label, Value: value})
}

// IsEmpty reports whether the auxiliary data carries nothing at all.
func (a *AuxiliaryData) IsEmpty() bool {
	return a == nil || (len(a.Metadata) == 0 && len(a.NativeScripts) == 0 &&
		len(a.PlutusV1Scripts) == 0 && len(a.PlutusV2Scripts) == 0 && len(a.PlutusV3Scripts) == 0)
}

func (a *AuxiliaryData) encodeMetadataMap(w *cbor.Writer) error {
	sorted := append([]metadataEntry(nil), a.Metadata...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Label < sorted[j].Label })
	w.MapHeader(len(sorted))
	for _, e := range sorted {
		w.Uint(e.Label)
		if err := e.Value.encode(w); err != nil {
			return err
		}
	}
	return w.Err()
}

// MarshalCBOR encodes the auxiliary data as a tag-less map: key 0
// holds the metadata map and is always written, and keys 1-4 hold the
// script lists, each written only when that list is non-empty. The
// legacy shelley_ma array form is never written.
func (a *AuxiliaryData) MarshalCBOR() ([]byte, error) {
	w := cbor.NewWriter()
	fields := 1
	if len(a.NativeScripts) > 0 {
		fields++
	}
	if len(a.PlutusV1Scripts) > 0 {
		fields++
	}
	if len(a.PlutusV2Scripts) > 0 {
		fields++
	}
	if len(a.PlutusV3Scripts) > 0 {
		fields++
	}
	w.MapHeader(fields)
	w.Uint(0)
	if err := a.encodeMetadataMap(w); err != nil {
		return nil, err
	}
	writeScriptList := func(key uint64, scripts []ledger.PlutusScript) error {
		if len(scripts) == 0 {
			return nil
		}
		w.Uint(key)
		w.ArrayHeader(len(scripts))
		for _, s := range scripts {
			raw, err := s.MarshalCBOR()
			if err != nil {
				return err
			}
			w.Value(cbor.RawMessage(raw))
		}
		return nil
	}
	if len(a.NativeScripts) > 0 {
		w.Uint(1)
		w.ArrayHeader(len(a.NativeScripts))
		for _, s := range a.NativeScripts {
			raw, err := s.MarshalCBOR()
			if err != nil {
				return nil, err
			}
			w.Value(cbor.RawMessage(raw))
		}
	}
	if err := writeScriptList(2, a.PlutusV1Scripts); err != nil {
		return nil, err
	}
	if err := writeScriptList(3, a.PlutusV2Scripts); err != nil {
		return nil, err
	}
	if err := writeScriptList(4, a.PlutusV3Scripts); err != nil {
		return nil, err
	}
	return w.Bytes(), w.Err()
}

func (a *AuxiliaryData) UnmarshalCBOR(data []byte) error {
	r := cbor.NewReader(data)
	count, indefinite, err := r.ReadStartMap()
	if err != nil {
		return err
	}
	out := AuxiliaryData{}
	readField := func() error {
		key, err := r.ReadUint()
		if err != nil {
			return err
		}
		switch key {
		case 0:
			n, indef, err := r.ReadStartMap()
			if err != nil {
				return err
			}
			readPair := func() error {
				label, err := r.ReadUint()
				if err != nil {
					return err
				}
				v, err := decodeMetadatum(r)
				if err != nil {
					return err
				}
				out.SetMetadata(label, v)
				return nil
			}
			if indef {
				for !r.IsBreak() {
					if err := readPair(); err != nil {
						return err
					}
				}
				return r.ReadBreak()
			}
			for i := 0; i < n; i++ {
				if err := readPair(); err != nil {
					return err
				}
			}
		case 1:
			n, _, err := r.ReadStartArray()
			if err != nil {
				return err
			}
			for i := 0; i < n; i++ {
				raw, err := r.ReadEncodedValue()
				if err != nil {
					return err
				}
				var s ledger.NativeScript
				if err := s.UnmarshalCBOR(raw); err != nil {
					return err
				}
				out.NativeScripts = append(out.NativeScripts, s)
			}
		case 2, 3, 4:
			n, _, err := r.ReadStartArray()
			if err != nil {
				return err
			}
			lang := ledger.PlutusV1
			if key == 3 {
				lang = ledger.PlutusV2
			} else if key == 4 {
				lang = ledger.PlutusV3
			}
			for i := 0; i < n; i++ {
				raw, err := r.ReadBytes()
				if err != nil {
					return err
				}
				script := ledger.NewPlutusScript(lang, raw)
				switch key {
				case 2:
					out.PlutusV1Scripts = append(out.PlutusV1Scripts, script)
				case 3:
					out.PlutusV2Scripts = append(out.PlutusV2Scripts, script)
				case 4:
					out.PlutusV3Scripts = append(out.PlutusV3Scripts, script)
				}
			}
		default:
			_, err := r.ReadEncodedValue()
			return err
		}
		return nil
	}
	if indefinite {
		for !r.IsBreak() {
			if err := readField(); err != nil {
				return err
			}
		}
		if err := r.ReadBreak(); err != nil {
			return err
		}
	} else {
		for i := 0; i < count; i++ {
			if err := readField(); err != nil {
				return err
			}
		}
	}
	*a = out
	return nil
}
