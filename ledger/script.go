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
	"github.com/blinklabs-io/txforge/crypto"
)

// NativeScriptKind distinguishes the six node types of a native script
// predicate tree.
type NativeScriptKind byte

const (
	NativeScriptSig NativeScriptKind = iota
	NativeScriptAll
	NativeScriptAny
	NativeScriptNofK
	NativeScriptBefore
	NativeScriptAfter
)

// NativeScript is a predicate tree over key-hash signatures and
// absolute slot bounds.
type NativeScript struct {
	Kind     NativeScriptKind
	KeyHash  [28]byte     // Sig
	Scripts  []NativeScript // All, Any, NofK
	N        uint64         // NofK
	Slot     uint64         // Before, After
}

// NewSigScript requires a signature from the given key hash.
func NewSigScript(keyHash [28]byte) NativeScript {
	return NativeScript{Kind: NativeScriptSig, KeyHash: keyHash}
}

// NewAllScript requires every child script to be satisfied.
func NewAllScript(children []NativeScript) NativeScript {
	return NativeScript{Kind: NativeScriptAll, Scripts: children}
}

// NewAnyScript requires at least one child script to be satisfied.
func NewAnyScript(children []NativeScript) NativeScript {
	return NativeScript{Kind: NativeScriptAny, Scripts: children}
}

// NewNofKScript requires at least n of the child scripts to be satisfied.
func NewNofKScript(n uint64, children []NativeScript) NativeScript {
	return NativeScript{Kind: NativeScriptNofK, N: n, Scripts: children}
}

// NewBeforeScript requires the transaction's validity interval to end
// at or before slot.
func NewBeforeScript(slot uint64) NativeScript {
	return NativeScript{Kind: NativeScriptBefore, Slot: slot}
}

// NewAfterScript requires the transaction's validity interval to start
// at or after slot.
func NewAfterScript(slot uint64) NativeScript {
	return NativeScript{Kind: NativeScriptAfter, Slot: slot}
}

// MarshalCBOR encodes the native script as [kind, ...args], the CDDL
// native_script production.
func (s NativeScript) MarshalCBOR() ([]byte, error) {
	w := cbor.NewWriter()
	switch s.Kind {
	case NativeScriptSig:
		w.ArrayHeader(2)
		w.Uint(0)
		w.Bytes_(s.KeyHash[:])
	case NativeScriptAll, NativeScriptAny:
		w.ArrayHeader(2)
		if s.Kind == NativeScriptAll {
			w.Uint(1)
		} else {
			w.Uint(2)
		}
		w.ArrayHeader(len(s.Scripts))
		for _, child := range s.Scripts {
			raw, err := child.MarshalCBOR()
			if err != nil {
				return nil, err
			}
			w.Value(cbor.RawMessage(raw))
		}
	case NativeScriptNofK:
		w.ArrayHeader(3)
		w.Uint(3)
		w.Uint(s.N)
		w.ArrayHeader(len(s.Scripts))
		for _, child := range s.Scripts {
			raw, err := child.MarshalCBOR()
			if err != nil {
				return nil, err
			}
			w.Value(cbor.RawMessage(raw))
		}
	case NativeScriptBefore:
		w.ArrayHeader(2)
		w.Uint(4)
		w.Uint(s.Slot)
	case NativeScriptAfter:
		w.ArrayHeader(2)
		w.Uint(5)
		w.Uint(s.Slot)
	default:
		return nil, fmt.Errorf("ledger: unknown native script kind %d", s.Kind)
	}
	return w.Bytes(), w.Err()
}

// UnmarshalCBOR decodes a native script from its [kind, ...args] form.
func (s *NativeScript) UnmarshalCBOR(data []byte) error {
	r := cbor.NewReader(data)
	n, _, err := r.ReadStartArray()
	if err != nil {
		return err
	}
	kind, err := r.ReadUint()
	if err != nil {
		return err
	}
	switch kind {
	case 0:
		hashBytes, err := r.ReadBytes()
		if err != nil {
			return err
		}
		var h [28]byte
		copy(h[:], hashBytes)
		*s = NewSigScript(h)
	case 1, 2:
		children, err := decodeNativeScriptList(r)
		if err != nil {
			return err
		}
		if kind == 1 {
			*s = NewAllScript(children)
		} else {
			*s = NewAnyScript(children)
		}
	case 3:
		num, err := r.ReadUint()
		if err != nil {
			return err
		}
		children, err := decodeNativeScriptList(r)
		if err != nil {
			return err
		}
		*s = NewNofKScript(num, children)
	case 4:
		slot, err := r.ReadUint()
		if err != nil {
			return err
		}
		*s = NewBeforeScript(slot)
	case 5:
		slot, err := r.ReadUint()
		if err != nil {
			return err
		}
		*s = NewAfterScript(slot)
	default:
		return fmt.Errorf("ledger: unknown native script kind %d", kind)
	}
	if n < 0 {
		return r.ValidateEndArray("NativeScript")
	}
	return nil
}

func decodeNativeScriptList(r *cbor.Reader) ([]NativeScript, error) {
	n, indefinite, err := r.ReadStartArray()
	if err != nil {
		return nil, err
	}
	out := make([]NativeScript, 0, n)
	if indefinite {
		for !r.IsBreak() {
			raw, err := r.ReadEncodedValue()
			if err != nil {
				return nil, err
			}
			var child NativeScript
			if err := child.UnmarshalCBOR(raw); err != nil {
				return nil, err
			}
			out = append(out, child)
		}
		return out, r.ReadBreak()
	}
	for i := 0; i < n; i++ {
		raw, err := r.ReadEncodedValue()
		if err != nil {
			return nil, err
		}
		var child NativeScript
		if err := child.UnmarshalCBOR(raw); err != nil {
			return nil, err
		}
		out = append(out, child)
	}
	return out, nil
}

// Hash returns the 28-byte script hash: BLAKE2b-224 of the script-type
// tag byte (0 for native scripts) prepended to the script's CBOR.
func (s NativeScript) Hash() ([28]byte, error) {
	raw, err := s.MarshalCBOR()
	if err != nil {
		return [28]byte{}, err
	}
	return crypto.Blake2b224(append([]byte{0}, raw...)), nil
}

// PlutusLanguage identifies a Plutus script version.
type PlutusLanguage byte

const (
	PlutusV1 PlutusLanguage = iota + 1
	PlutusV2
	PlutusV3
)

// tag returns the script-type tag byte prepended before
// hashing, per the ledger's script_hash construction (0 = native,
// 1 = PlutusV1, 2 = PlutusV2, 3 = PlutusV3).
func (l PlutusLanguage) tag() byte {
	switch l {
	case PlutusV1:
		return 1
	case PlutusV2:
		return 2
	case PlutusV3:
		return 3
	default:
		return 0
	}
}

// PlutusScript wraps a compiled Plutus script's raw bytes and language
// version.
type PlutusScript struct {
	Language PlutusLanguage
	Bytes    []byte
}

// NewPlutusScript wraps compiled script bytes with their language version.
func NewPlutusScript(language PlutusLanguage, raw []byte) PlutusScript {
	return PlutusScript{Language: language, Bytes: append([]byte(nil), raw...)}
}

// Hash returns the 28-byte script hash: BLAKE2b-224 of the language tag
// byte prepended to the raw compiled script.
func (p PlutusScript) Hash() [28]byte {
	return crypto.Blake2b224(append([]byte{p.tag()}, p.Bytes...))
}

func (p PlutusScript) tag() byte { return p.Language.tag() }

// MarshalCBOR encodes the Plutus script as a plain CBOR byte string
// (the witness-set entry's array element type, not a tagged wrapper;
// the surrounding witness-set key already identifies the language).
func (p PlutusScript) MarshalCBOR() ([]byte, error) {
	return cbor.Encode(p.Bytes)
}

// UnmarshalCBOR decodes a Plutus script's raw bytes. The caller must set
// Language separately, since the bytes alone do not identify the
// language version (it is carried by the enclosing witness-set key).
func (p *PlutusScript) UnmarshalCBOR(data []byte) error {
	var raw []byte
	if _, err := cbor.Decode(data, &raw); err != nil {
		return err
	}
	p.Bytes = raw
	return nil
}

// ScriptKind distinguishes a native script from a Plutus script in the
// polymorphic Script union used by TransactionOutput.ScriptRef and by
// certificate/withdrawal/mint witnesses.
type ScriptKind byte

const (
	ScriptKindNative ScriptKind = iota
	ScriptKindPlutus
)

// Script is a polymorphic wrapper over NativeScript and PlutusScript,
// the shape referenced by script_ref and by a builder's add_script
// operation.
type Script struct {
	Kind   ScriptKind
	Native NativeScript
	Plutus PlutusScript
}

// NewNativeScriptRef wraps a native script.
func NewNativeScriptRef(s NativeScript) Script {
	return Script{Kind: ScriptKindNative, Native: s}
}

// NewPlutusScriptRef wraps a Plutus script.
func NewPlutusScriptRef(s PlutusScript) Script {
	return Script{Kind: ScriptKindPlutus, Plutus: s}
}

// Hash returns the script's 28-byte hash regardless of kind.
func (s Script) Hash() ([28]byte, error) {
	if s.Kind == ScriptKindNative {
		return s.Native.Hash()
	}
	return s.Plutus.Hash(), nil
}

// MarshalCBOR encodes the script using the script_ref tagged-script
// CDDL shape: [0, native_script] or [language, plutus_script_bytes].
func (s Script) MarshalCBOR() ([]byte, error) {
	w := cbor.NewWriter()
	w.ArrayHeader(2)
	switch s.Kind {
	case ScriptKindNative:
		w.Uint(0)
		raw, err := s.Native.MarshalCBOR()
		if err != nil {
			return nil, err
		}
		w.Value(cbor.RawMessage(raw))
	case ScriptKindPlutus:
		w.Uint(uint64(s.Plutus.tag()))
		raw, err := s.Plutus.MarshalCBOR()
		if err != nil {
			return nil, err
		}
		w.Value(cbor.RawMessage(raw))
	default:
		return nil, fmt.Errorf("ledger: unknown script kind %d", s.Kind)
	}
	return w.Bytes(), w.Err()
}

// ScriptFromCBOR decodes a tagged [language, bytes] script reference.
func ScriptFromCBOR(data []byte) (Script, error) {
	r := cbor.NewReader(data)
	if err := r.ValidateArrayOfN("Script", 2); err != nil {
		return Script{}, err
	}
	tag, err := r.ReadUint()
	if err != nil {
		return Script{}, err
	}
	raw, err := r.ReadEncodedValue()
	if err != nil {
		return Script{}, err
	}
	if err := r.ValidateEndArray("Script"); err != nil {
		return Script{}, err
	}
	if tag == 0 {
		var ns NativeScript
		if err := ns.UnmarshalCBOR(raw); err != nil {
			return Script{}, err
		}
		return NewNativeScriptRef(ns), nil
	}
	lang := PlutusLanguage(tag)
	if lang != PlutusV1 && lang != PlutusV2 && lang != PlutusV3 {
		return Script{}, fmt.Errorf("ledger: unknown script language tag %d", tag)
	}
	var ps PlutusScript
	if err := ps.UnmarshalCBOR(raw); err != nil {
		return Script{}, err
	}
	ps.Language = lang
	return NewPlutusScriptRef(ps), nil
}

// UnmarshalCBOR decodes a script reference into s.
func (s *Script) UnmarshalCBOR(data []byte) error {
	decoded, err := ScriptFromCBOR(data)
	if err != nil {
		return err
	}
	*s = decoded
	return nil
}
