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
	"bytes"
	"fmt"
	"sort"

	"github.com/blinklabs-io/txforge/cbor"
	"github.com/blinklabs-io/txforge/ledger"
)

// VKeyWitness is an Ed25519 signature over the transaction body hash,
// paired with the verification key that produced it.
type VKeyWitness struct {
	VKey      [32]byte
	Signature [64]byte
}

func (w VKeyWitness) MarshalCBOR() ([]byte, error) {
	return cbor.Encode(cbor.IndefLengthList{w.VKey[:], w.Signature[:]})
}

func (w *VKeyWitness) UnmarshalCBOR(data []byte) error {
	r := cbor.NewReader(data)
	if err := r.ValidateArrayOfN("VKeyWitness", 2); err != nil {
		return err
	}
	vkey, err := r.ReadBytes()
	if err != nil {
		return err
	}
	sig, err := r.ReadBytes()
	if err != nil {
		return err
	}
	copy(w.VKey[:], vkey)
	copy(w.Signature[:], sig)
	return r.ValidateEndArray("VKeyWitness")
}

// BootstrapWitness authenticates a Byron-era address input: a signature
// plus the chain code and address attributes needed to reconstruct and
// verify the spending address.
type BootstrapWitness struct {
	VKey       [32]byte
	Signature  [64]byte
	ChainCode  [32]byte
	Attributes []byte
}

func (w BootstrapWitness) MarshalCBOR() ([]byte, error) {
	cw := cbor.NewWriter()
	cw.ArrayHeader(4)
	cw.Bytes_(w.VKey[:])
	cw.Bytes_(w.Signature[:])
	cw.Bytes_(w.ChainCode[:])
	cw.Bytes_(w.Attributes)
	return cw.Bytes(), cw.Err()
}

func (w *BootstrapWitness) UnmarshalCBOR(data []byte) error {
	r := cbor.NewReader(data)
	if err := r.ValidateArrayOfN("BootstrapWitness", 4); err != nil {
		return err
	}
	vkey, err := r.ReadBytes()
	if err != nil {
		return err
	}
	sig, err := r.ReadBytes()
	if err != nil {
		return err
	}
	cc, err := r.ReadBytes()
	if err != nil {
		return err
	}
	attrs, err := r.ReadBytes()
	if err != nil {
		return err
	}
	copy(w.VKey[:], vkey)
	copy(w.Signature[:], sig)
	copy(w.ChainCode[:], cc)
	w.Attributes = attrs
	return r.ValidateEndArray("BootstrapWitness")
}

// RedeemerTag identifies which transaction element a redeemer attaches
// script execution to.
type RedeemerTag byte

const (
	RedeemerSpend RedeemerTag = iota
	RedeemerMint
	RedeemerCert
	RedeemerReward
	RedeemerVoting
	RedeemerProposing
)

// RedeemerKey identifies a single redeemer slot: which purpose, and the
// index of the relevant input/mint policy/certificate/withdrawal/vote/
// proposal within the body's corresponding (sorted) list.
type RedeemerKey struct {
	Tag   RedeemerTag
	Index uint64
}

func (k RedeemerKey) sortBytes() []byte {
	return []byte{byte(k.Tag), byte(k.Index >> 56), byte(k.Index >> 48), byte(k.Index >> 40), byte(k.Index >> 32),
		byte(k.Index >> 24), byte(k.Index >> 16), byte(k.Index >> 8), byte(k.Index)}
}

func (k RedeemerKey) MarshalCBOR() ([]byte, error) {
	return cbor.Encode(cbor.IndefLengthList{uint64(k.Tag), k.Index})
}

func (k *RedeemerKey) UnmarshalCBOR(data []byte) error {
	r := cbor.NewReader(data)
	if err := r.ValidateArrayOfN("RedeemerKey", 2); err != nil {
		return err
	}
	tag, err := r.ReadUint()
	if err != nil {
		return err
	}
	idx, err := r.ReadUint()
	if err != nil {
		return err
	}
	k.Tag = RedeemerTag(tag)
	k.Index = idx
	return r.ValidateEndArray("RedeemerKey")
}

// RedeemerValue carries the Plutus data argument passed to the script
// and the execution-unit budget the caller is willing to pay for it.
type RedeemerValue struct {
	Data    ledger.PlutusData
	ExUnits ledger.ExUnits
}

func (v RedeemerValue) MarshalCBOR() ([]byte, error) {
	w := cbor.NewWriter()
	w.ArrayHeader(2)
	dataBytes, err := v.Data.MarshalCBOR()
	if err != nil {
		return nil, err
	}
	w.Value(cbor.RawMessage(dataBytes))
	w.ArrayHeader(2)
	w.Uint(v.ExUnits.Mem)
	w.Uint(v.ExUnits.Steps)
	return w.Bytes(), w.Err()
}

func (v *RedeemerValue) UnmarshalCBOR(data []byte) error {
	r := cbor.NewReader(data)
	if err := r.ValidateArrayOfN("RedeemerValue", 2); err != nil {
		return err
	}
	dataRaw, err := r.ReadEncodedValue()
	if err != nil {
		return err
	}
	if err := v.Data.UnmarshalCBOR(dataRaw); err != nil {
		return err
	}
	if err := r.ValidateArrayOfN("ExUnits", 2); err != nil {
		return err
	}
	mem, err := r.ReadUint()
	if err != nil {
		return err
	}
	steps, err := r.ReadUint()
	if err != nil {
		return err
	}
	v.ExUnits = ledger.ExUnits{Mem: mem, Steps: steps}
	return r.ValidateEndArray("RedeemerValue")
}

type redeemerEntry struct {
	Key   RedeemerKey
	Value RedeemerValue
}

// WitnessSet carries every piece of evidence required to validate a
// transaction body: signatures, scripts, Plutus data, and redeemers.
type WitnessSet struct {
	VKeyWitnesses     []VKeyWitness
	NativeScripts     []ledger.NativeScript
	BootstrapWitnesses []BootstrapWitness
	PlutusV1Scripts   []ledger.PlutusScript
	PlutusV2Scripts   []ledger.PlutusScript
	PlutusV3Scripts   []ledger.PlutusScript
	PlutusData        []ledger.PlutusData
	Redeemers         []redeemerEntry

	// SetsTagged mirrors Body.SetsTagged: whether the set-typed fields
	// are wrapped in the tag-258 marker on encode. A decoded witness set
	// sets it only when the vkey-witness field (key 0) carries the tag;
	// a tag on any other set field is not recorded.
	SetsTagged bool
}

// AddRedeemer records (or overwrites) the redeemer for the given key.
func (ws *WitnessSet) AddRedeemer(key RedeemerKey, value RedeemerValue) {
	for i, e := range ws.Redeemers {
		if e.Key == key {
			ws.Redeemers[i].Value = value
			return
		}
	}
	ws.Redeemers = append(ws.Redeemers, redeemerEntry{Key: key, Value: value})
}

// IsEmpty reports whether every field of the witness set is empty.
func (ws WitnessSet) IsEmpty() bool {
	return len(ws.VKeyWitnesses) == 0 && len(ws.NativeScripts) == 0 &&
		len(ws.BootstrapWitnesses) == 0 && len(ws.PlutusV1Scripts) == 0 &&
		len(ws.PlutusV2Scripts) == 0 && len(ws.PlutusV3Scripts) == 0 &&
		len(ws.PlutusData) == 0 && len(ws.Redeemers) == 0
}

func writeSet(w *cbor.Writer, tagged bool, n int, each func(i int) error) error {
	if tagged {
		w.TagHeader(cbor.TagSet)
	}
	w.ArrayHeader(n)
	for i := 0; i < n; i++ {
		if err := each(i); err != nil {
			return err
		}
	}
	return w.Err()
}

// MarshalCBOR encodes the witness set as its numeric-keyed map, omitting
// every empty field.
func (ws WitnessSet) MarshalCBOR() ([]byte, error) {
	type field struct {
		key   uint64
		write func(*cbor.Writer) error
	}
	var fields []field
	if len(ws.VKeyWitnesses) > 0 {
		sorted := append([]VKeyWitness(nil), ws.VKeyWitnesses...)
		sort.Slice(sorted, func(i, j int) bool { return bytes.Compare(sorted[i].VKey[:], sorted[j].VKey[:]) < 0 })
		fields = append(fields, field{0, func(w *cbor.Writer) error {
			return writeSet(w, ws.SetsTagged, len(sorted), func(i int) error {
				raw, err := sorted[i].MarshalCBOR()
				if err != nil {
					return err
				}
				w.Value(cbor.RawMessage(raw))
				return nil
			})
		}})
	}
	if len(ws.NativeScripts) > 0 {
		fields = append(fields, field{1, func(w *cbor.Writer) error {
			return writeSet(w, ws.SetsTagged, len(ws.NativeScripts), func(i int) error {
				raw, err := ws.NativeScripts[i].MarshalCBOR()
				if err != nil {
					return err
				}
				w.Value(cbor.RawMessage(raw))
				return nil
			})
		}})
	}
	if len(ws.BootstrapWitnesses) > 0 {
		fields = append(fields, field{2, func(w *cbor.Writer) error {
			return writeSet(w, ws.SetsTagged, len(ws.BootstrapWitnesses), func(i int) error {
				raw, err := ws.BootstrapWitnesses[i].MarshalCBOR()
				if err != nil {
					return err
				}
				w.Value(cbor.RawMessage(raw))
				return nil
			})
		}})
	}
	if len(ws.PlutusV1Scripts) > 0 {
		fields = append(fields, field{3, func(w *cbor.Writer) error {
			return writeSet(w, ws.SetsTagged, len(ws.PlutusV1Scripts), func(i int) error {
				raw, err := ws.PlutusV1Scripts[i].MarshalCBOR()
				if err != nil {
					return err
				}
				w.Value(cbor.RawMessage(raw))
				return nil
			})
		}})
	}
	if len(ws.PlutusData) > 0 {
		fields = append(fields, field{4, func(w *cbor.Writer) error {
			return writeSet(w, ws.SetsTagged, len(ws.PlutusData), func(i int) error {
				raw, err := ws.PlutusData[i].MarshalCBOR()
				if err != nil {
					return err
				}
				w.Value(cbor.RawMessage(raw))
				return nil
			})
		}})
	}
	if len(ws.Redeemers) > 0 {
		sorted := append([]redeemerEntry(nil), ws.Redeemers...)
		sort.Slice(sorted, func(i, j int) bool {
			return bytes.Compare(sorted[i].Key.sortBytes(), sorted[j].Key.sortBytes()) < 0
		})
		fields = append(fields, field{5, func(w *cbor.Writer) error {
			w.MapHeader(len(sorted))
			for _, e := range sorted {
				w.Value(e.Key)
				raw, err := e.Value.MarshalCBOR()
				if err != nil {
					return err
				}
				w.Value(cbor.RawMessage(raw))
			}
			return nil
		}})
	}
	if len(ws.PlutusV2Scripts) > 0 {
		fields = append(fields, field{6, func(w *cbor.Writer) error {
			return writeSet(w, ws.SetsTagged, len(ws.PlutusV2Scripts), func(i int) error {
				raw, err := ws.PlutusV2Scripts[i].MarshalCBOR()
				if err != nil {
					return err
				}
				w.Value(cbor.RawMessage(raw))
				return nil
			})
		}})
	}
	if len(ws.PlutusV3Scripts) > 0 {
		fields = append(fields, field{7, func(w *cbor.Writer) error {
			return writeSet(w, ws.SetsTagged, len(ws.PlutusV3Scripts), func(i int) error {
				raw, err := ws.PlutusV3Scripts[i].MarshalCBOR()
				if err != nil {
					return err
				}
				w.Value(cbor.RawMessage(raw))
				return nil
			})
		}})
	}

	w := cbor.NewWriter()
	w.MapHeader(len(fields))
	for _, f := range fields {
		w.Uint(f.key)
		if err := f.write(w); err != nil {
			return nil, err
		}
	}
	return w.Bytes(), w.Err()
}

func readSet(r *cbor.Reader, each func() error) (tagged bool, err error) {
	if mt, err := r.PeekMajorType(); err == nil && mt == cbor.MajorTag {
		if err := r.ValidateTag(cbor.TagSet); err != nil {
			return false, err
		}
		tagged = true
	}
	n, indefinite, err := r.ReadStartArray()
	if err != nil {
		return tagged, err
	}
	if indefinite {
		for !r.IsBreak() {
			if err := each(); err != nil {
				return tagged, err
			}
		}
		return tagged, r.ReadBreak()
	}
	for i := 0; i < n; i++ {
		if err := each(); err != nil {
			return tagged, err
		}
	}
	return tagged, nil
}

// UnmarshalCBOR decodes a witness set from its numeric-keyed map.
func (ws *WitnessSet) UnmarshalCBOR(data []byte) error {
	r := cbor.NewReader(data)
	count, indefinite, err := r.ReadStartMap()
	if err != nil {
		return err
	}
	out := WitnessSet{}
	readField := func() error {
		key, err := r.ReadUint()
		if err != nil {
			return err
		}
		switch key {
		case 0:
			tagged, err := readSet(r, func() error {
				raw, err := r.ReadEncodedValue()
				if err != nil {
					return err
				}
				var v VKeyWitness
				if err := v.UnmarshalCBOR(raw); err != nil {
					return err
				}
				out.VKeyWitnesses = append(out.VKeyWitnesses, v)
				return nil
			})
			if err != nil {
				return err
			}
			if tagged {
				out.SetsTagged = true
			}
		case 1:
			_, err := readSet(r, func() error {
				raw, err := r.ReadEncodedValue()
				if err != nil {
					return err
				}
				var s ledger.NativeScript
				if err := s.UnmarshalCBOR(raw); err != nil {
					return err
				}
				out.NativeScripts = append(out.NativeScripts, s)
				return nil
			})
			return err
		case 2:
			_, err := readSet(r, func() error {
				raw, err := r.ReadEncodedValue()
				if err != nil {
					return err
				}
				var b BootstrapWitness
				if err := b.UnmarshalCBOR(raw); err != nil {
					return err
				}
				out.BootstrapWitnesses = append(out.BootstrapWitnesses, b)
				return nil
			})
			return err
		case 3:
			_, err := readSet(r, func() error {
				raw, err := r.ReadBytes()
				if err != nil {
					return err
				}
				out.PlutusV1Scripts = append(out.PlutusV1Scripts, ledger.NewPlutusScript(ledger.PlutusV1, raw))
				return nil
			})
			return err
		case 4:
			_, err := readSet(r, func() error {
				raw, err := r.ReadEncodedValue()
				if err != nil {
					return err
				}
				var d ledger.PlutusData
				if err := d.UnmarshalCBOR(raw); err != nil {
					return err
				}
				out.PlutusData = append(out.PlutusData, d)
				return nil
			})
			return err
		case 5:
			n, indef, err := r.ReadStartMap()
			if err != nil {
				return err
			}
			readPair := func() error {
				kRaw, err := r.ReadEncodedValue()
				if err != nil {
					return err
				}
				var k RedeemerKey
				if err := k.UnmarshalCBOR(kRaw); err != nil {
					return err
				}
				vRaw, err := r.ReadEncodedValue()
				if err != nil {
					return err
				}
				var v RedeemerValue
				if err := v.UnmarshalCBOR(vRaw); err != nil {
					return err
				}
				out.AddRedeemer(k, v)
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
		case 6:
			_, err := readSet(r, func() error {
				raw, err := r.ReadBytes()
				if err != nil {
					return err
				}
				out.PlutusV2Scripts = append(out.PlutusV2Scripts, ledger.NewPlutusScript(ledger.PlutusV2, raw))
				return nil
			})
			return err
		case 7:
			_, err := readSet(r, func() error {
				raw, err := r.ReadBytes()
				if err != nil {
					return err
				}
				out.PlutusV3Scripts = append(out.PlutusV3Scripts, ledger.NewPlutusScript(ledger.PlutusV3, raw))
				return nil
			})
			return err
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
	*ws = out
	return nil
}

// ApplyVKeyWitnesses merges incoming vkey witnesses into the set,
// last-write-wins by public key: an incoming witness for a key already
// present replaces the stored signature rather than appending a
// duplicate entry.
func (ws *WitnessSet) ApplyVKeyWitnesses(incoming []VKeyWitness) {
	for _, in := range incoming {
		replaced := false
		for i, existing := range ws.VKeyWitnesses {
			if existing.VKey == in.VKey {
				ws.VKeyWitnesses[i] = in
				replaced = true
				break
			}
		}
		if !replaced {
			ws.VKeyWitnesses = append(ws.VKeyWitnesses, in)
		}
	}
}

// ErrConflictingWitness is returned by StrictMerge when two witnesses
// for the same public key carry different signatures, which can only
// happen if the same key signed two different transaction bodies.
var ErrConflictingWitness = fmt.Errorf("tx: conflicting vkey witness for the same public key")

// StrictMergeVKeyWitnesses merges incoming witnesses like
// ApplyVKeyWitnesses, but rejects (rather than silently overwrites) a
// duplicate public key whose signature differs from what is already
// stored; an identical duplicate is accepted as a no-op.
func (ws *WitnessSet) StrictMergeVKeyWitnesses(incoming []VKeyWitness) error {
	for _, in := range incoming {
		found := false
		for _, existing := range ws.VKeyWitnesses {
			if existing.VKey == in.VKey {
				found = true
				if existing.Signature != in.Signature {
					return fmt.Errorf("%w: %x", ErrConflictingWitness, in.VKey)
				}
				break
			}
		}
		if !found {
			ws.VKeyWitnesses = append(ws.VKeyWitnesses, in)
		}
	}
	return nil
}
