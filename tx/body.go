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

// Package tx assembles the immutable Transaction value: its body, its
// witness set, and optional auxiliary data, plus the canonical CBOR
// codec and content-addressed transaction id.
package tx

import (
	"bytes"
	"sort"

	"github.com/blinklabs-io/txforge/cbor"
	"github.com/blinklabs-io/txforge/ledger"
)

// Body is the Conway-era transaction body: a numeric-keyed map. Absent
// optional fields are omitted from the encoding entirely, never encoded
// as null.
type Body struct {
	Inputs               []ledger.TransactionInput
	Outputs              []ledger.TransactionOutput
	Fee                  ledger.Coin
	TTL                  *uint64
	Certificates         []ledger.Certificate
	Withdrawals          map[string]ledger.Coin // keyed by bech32 reward address
	AuxDataHash          *[32]byte
	ValidityStart        *uint64
	Mint                 ledger.MultiAsset
	ScriptDataHash       *[32]byte
	CollateralInputs     []ledger.TransactionInput
	RequiredSigners      [][28]byte
	NetworkID            *byte
	CollateralReturn     *ledger.TransactionOutput
	TotalCollateral      *ledger.Coin
	ReferenceInputs      []ledger.TransactionInput
	VotingProcedures     *ledger.VotingProcedures
	ProposalProcedures   []ledger.ProposalProcedure
	CurrentTreasuryValue *ledger.Coin
	Donation             *ledger.Coin

	// SetsTagged controls whether set-typed fields (inputs, collateral
	// inputs, reference inputs, required signers) are wrapped in the
	// tag-258 set marker on encode. A decoded body sets this to true iff
	// the source bytes used tag 258 on any such field, so re-encoding a
	// parsed transaction preserves its original shape.
	SetsTagged bool
}

func sortedInputs(inputs []ledger.TransactionInput) []ledger.TransactionInput {
	out := append([]ledger.TransactionInput(nil), inputs...)
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

func (b Body) encodeInputSet(w *cbor.Writer, inputs []ledger.TransactionInput) error {
	sorted := sortedInputs(inputs)
	if b.SetsTagged {
		w.TagHeader(cbor.TagSet)
	}
	w.ArrayHeader(len(sorted))
	for _, in := range sorted {
		raw, err := in.MarshalCBOR()
		if err != nil {
			return err
		}
		w.Value(cbor.RawMessage(raw))
	}
	return w.Err()
}

func (b Body) encodeRequiredSigners(w *cbor.Writer) {
	sorted := append([][28]byte(nil), b.RequiredSigners...)
	sort.Slice(sorted, func(i, j int) bool { return bytes.Compare(sorted[i][:], sorted[j][:]) < 0 })
	if b.SetsTagged {
		w.TagHeader(cbor.TagSet)
	}
	w.ArrayHeader(len(sorted))
	for _, h := range sorted {
		w.Bytes_(h[:])
	}
}

func encodeWithdrawals(w *cbor.Writer, withdrawals map[string]ledger.Coin) error {
	keys := make([]string, 0, len(withdrawals))
	for k := range withdrawals {
		keys = append(keys, k)
	}
	type keyed struct {
		addrBytes []byte
		coin      ledger.Coin
	}
	entries := make([]keyed, 0, len(keys))
	for _, k := range keys {
		addr, err := ledger.AddressFromBech32(k)
		if err != nil {
			return err
		}
		raw, err := addr.Bytes()
		if err != nil {
			return err
		}
		entries = append(entries, keyed{addrBytes: raw, coin: withdrawals[k]})
	}
	sort.Slice(entries, func(i, j int) bool { return bytes.Compare(entries[i].addrBytes, entries[j].addrBytes) < 0 })
	w.MapHeader(len(entries))
	for _, e := range entries {
		w.Bytes_(e.addrBytes)
		w.Uint(uint64(e.coin))
	}
	return w.Err()
}

// MarshalCBOR encodes the body as its canonical numeric-keyed map.
func (b Body) MarshalCBOR() ([]byte, error) {
	type field struct {
		key   uint64
		write func(*cbor.Writer) error
	}
	var fields []field
	fields = append(fields, field{0, func(w *cbor.Writer) error { return b.encodeInputSet(w, b.Inputs) }})
	fields = append(fields, field{1, func(w *cbor.Writer) error {
		w.ArrayHeader(len(b.Outputs))
		for _, o := range b.Outputs {
			raw, err := o.MarshalCBOR()
			if err != nil {
				return err
			}
			w.Value(cbor.RawMessage(raw))
		}
		return w.Err()
	}})
	fields = append(fields, field{2, func(w *cbor.Writer) error { w.Uint(uint64(b.Fee)); return w.Err() }})
	if b.TTL != nil {
		fields = append(fields, field{3, func(w *cbor.Writer) error { w.Uint(*b.TTL); return w.Err() }})
	}
	if len(b.Certificates) > 0 {
		fields = append(fields, field{4, func(w *cbor.Writer) error {
			w.ArrayHeader(len(b.Certificates))
			for _, c := range b.Certificates {
				raw, err := c.MarshalCBOR()
				if err != nil {
					return err
				}
				w.Value(cbor.RawMessage(raw))
			}
			return w.Err()
		}})
	}
	if len(b.Withdrawals) > 0 {
		fields = append(fields, field{5, func(w *cbor.Writer) error { return encodeWithdrawals(w, b.Withdrawals) }})
	}
	if b.AuxDataHash != nil {
		fields = append(fields, field{7, func(w *cbor.Writer) error { w.Bytes_(b.AuxDataHash[:]); return w.Err() }})
	}
	if b.ValidityStart != nil {
		fields = append(fields, field{8, func(w *cbor.Writer) error { w.Uint(*b.ValidityStart); return w.Err() }})
	}
	if !b.Mint.IsEmpty() {
		fields = append(fields, field{9, func(w *cbor.Writer) error { encodeMint(w, b.Mint); return w.Err() }})
	}
	if b.ScriptDataHash != nil {
		fields = append(fields, field{11, func(w *cbor.Writer) error { w.Bytes_(b.ScriptDataHash[:]); return w.Err() }})
	}
	if len(b.CollateralInputs) > 0 {
		fields = append(fields, field{13, func(w *cbor.Writer) error { return b.encodeInputSet(w, b.CollateralInputs) }})
	}
	if len(b.RequiredSigners) > 0 {
		fields = append(fields, field{14, func(w *cbor.Writer) error { b.encodeRequiredSigners(w); return w.Err() }})
	}
	if b.NetworkID != nil {
		fields = append(fields, field{15, func(w *cbor.Writer) error { w.Uint(uint64(*b.NetworkID)); return w.Err() }})
	}
	if b.CollateralReturn != nil {
		fields = append(fields, field{16, func(w *cbor.Writer) error {
			raw, err := b.CollateralReturn.MarshalCBOR()
			if err != nil {
				return err
			}
			w.Value(cbor.RawMessage(raw))
			return nil
		}})
	}
	if b.TotalCollateral != nil {
		fields = append(fields, field{17, func(w *cbor.Writer) error { w.Uint(uint64(*b.TotalCollateral)); return w.Err() }})
	}
	if len(b.ReferenceInputs) > 0 {
		fields = append(fields, field{18, func(w *cbor.Writer) error { return b.encodeInputSet(w, b.ReferenceInputs) }})
	}
	if b.VotingProcedures != nil && !b.VotingProcedures.IsEmpty() {
		fields = append(fields, field{19, func(w *cbor.Writer) error {
			raw, err := b.VotingProcedures.MarshalCBOR()
			if err != nil {
				return err
			}
			w.Value(cbor.RawMessage(raw))
			return nil
		}})
	}
	if len(b.ProposalProcedures) > 0 {
		fields = append(fields, field{20, func(w *cbor.Writer) error {
			w.ArrayHeader(len(b.ProposalProcedures))
			for _, p := range b.ProposalProcedures {
				raw, err := p.MarshalCBOR()
				if err != nil {
					return err
				}
				w.Value(cbor.RawMessage(raw))
			}
			return w.Err()
		}})
	}
	if b.CurrentTreasuryValue != nil {
		fields = append(fields, field{21, func(w *cbor.Writer) error { w.Uint(uint64(*b.CurrentTreasuryValue)); return w.Err() }})
	}
	if b.Donation != nil {
		fields = append(fields, field{22, func(w *cbor.Writer) error { w.Uint(uint64(*b.Donation)); return w.Err() }})
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

// encodeMint mirrors ledger.encodeMultiAsset: asset_name is a CDDL bstr, not
// tstr, matching every asset map the retrieved gouroboros/apollo corpus
// builds (cbor.ByteString-keyed, never text-keyed).
func encodeMint(w *cbor.Writer, m ledger.MultiAsset) {
	policies := m.Policies()
	w.MapHeader(len(policies))
	for _, policy := range policies {
		w.Bytes_(policy[:])
		names := m.Assets(policy)
		w.MapHeader(len(names))
		for _, name := range names {
			w.Bytes_([]byte(name))
			w.Bignum(m.Get(policy, name))
		}
	}
}

func decodeMint(r *cbor.Reader) (ledger.MultiAsset, error) {
	policyCount, _, err := r.ReadStartMap()
	if err != nil {
		return nil, err
	}
	out := ledger.NewMultiAsset()
	for i := 0; i < policyCount; i++ {
		policyBytes, err := r.ReadBytes()
		if err != nil {
			return nil, err
		}
		var policy ledger.PolicyID
		copy(policy[:], policyBytes)
		nameCount, _, err := r.ReadStartMap()
		if err != nil {
			return nil, err
		}
		for j := 0; j < nameCount; j++ {
			name, err := r.ReadBytes()
			if err != nil {
				return nil, err
			}
			qty, err := r.ReadBignum()
			if err != nil {
				return nil, err
			}
			out.Set(policy, ledger.AssetName(name), qty)
		}
	}
	return out, nil
}

func decodeInputSet(r *cbor.Reader) ([]ledger.TransactionInput, bool, error) {
	tagged := false
	if mt, err := r.PeekMajorType(); err == nil && mt == cbor.MajorTag {
		if err := r.ValidateTag(cbor.TagSet); err != nil {
			return nil, false, err
		}
		tagged = true
	}
	n, indefinite, err := r.ReadStartArray()
	if err != nil {
		return nil, false, err
	}
	out := make([]ledger.TransactionInput, 0, n)
	if indefinite {
		for !r.IsBreak() {
			raw, err := r.ReadEncodedValue()
			if err != nil {
				return nil, false, err
			}
			var in ledger.TransactionInput
			if err := in.UnmarshalCBOR(raw); err != nil {
				return nil, false, err
			}
			out = append(out, in)
		}
		return out, tagged, r.ReadBreak()
	}
	for i := 0; i < n; i++ {
		raw, err := r.ReadEncodedValue()
		if err != nil {
			return nil, false, err
		}
		var in ledger.TransactionInput
		if err := in.UnmarshalCBOR(raw); err != nil {
			return nil, false, err
		}
		out = append(out, in)
	}
	return out, tagged, nil
}

func decodeRequiredSigners(r *cbor.Reader) ([][28]byte, bool, error) {
	tagged := false
	if mt, err := r.PeekMajorType(); err == nil && mt == cbor.MajorTag {
		if err := r.ValidateTag(cbor.TagSet); err != nil {
			return nil, false, err
		}
		tagged = true
	}
	n, indefinite, err := r.ReadStartArray()
	if err != nil {
		return nil, false, err
	}
	out := make([][28]byte, 0, n)
	readOne := func() error {
		b, err := r.ReadBytes()
		if err != nil {
			return err
		}
		var h [28]byte
		copy(h[:], b)
		out = append(out, h)
		return nil
	}
	if indefinite {
		for !r.IsBreak() {
			if err := readOne(); err != nil {
				return nil, false, err
			}
		}
		return out, tagged, r.ReadBreak()
	}
	for i := 0; i < n; i++ {
		if err := readOne(); err != nil {
			return nil, false, err
		}
	}
	return out, tagged, nil
}

func decodeWithdrawals(r *cbor.Reader) (map[string]ledger.Coin, error) {
	n, _, err := r.ReadStartMap()
	if err != nil {
		return nil, err
	}
	out := make(map[string]ledger.Coin, n)
	for i := 0; i < n; i++ {
		addrBytes, err := r.ReadBytes()
		if err != nil {
			return nil, err
		}
		amt, err := r.ReadUint()
		if err != nil {
			return nil, err
		}
		addr, err := ledger.AddressFromBytes(addrBytes)
		if err != nil {
			return nil, err
		}
		text, err := addr.Bech32()
		if err != nil {
			return nil, err
		}
		out[text] = ledger.Coin(amt)
	}
	return out, nil
}

// UnmarshalCBOR decodes a transaction body from its numeric-keyed map.
func (b *Body) UnmarshalCBOR(data []byte) error {
	r := cbor.NewReader(data)
	count, indefinite, err := r.ReadStartMap()
	if err != nil {
		return err
	}
	out := Body{Mint: ledger.NewMultiAsset()}
	readField := func() error {
		key, err := r.ReadUint()
		if err != nil {
			return err
		}
		switch key {
		case 0:
			inputs, tagged, err := decodeInputSet(r)
			if err != nil {
				return err
			}
			out.Inputs = inputs
			if tagged {
				out.SetsTagged = true
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
				var o ledger.TransactionOutput
				if err := o.UnmarshalCBOR(raw); err != nil {
					return err
				}
				out.Outputs = append(out.Outputs, o)
			}
		case 2:
			fee, err := r.ReadUint()
			if err != nil {
				return err
			}
			out.Fee = ledger.Coin(fee)
		case 3:
			ttl, err := r.ReadUint()
			if err != nil {
				return err
			}
			out.TTL = &ttl
		case 4:
			n, _, err := r.ReadStartArray()
			if err != nil {
				return err
			}
			for i := 0; i < n; i++ {
				raw, err := r.ReadEncodedValue()
				if err != nil {
					return err
				}
				var c ledger.Certificate
				if err := c.UnmarshalCBOR(raw); err != nil {
					return err
				}
				out.Certificates = append(out.Certificates, c)
			}
		case 5:
			withdrawals, err := decodeWithdrawals(r)
			if err != nil {
				return err
			}
			out.Withdrawals = withdrawals
		case 7:
			hashBytes, err := r.ReadBytes()
			if err != nil {
				return err
			}
			var h [32]byte
			copy(h[:], hashBytes)
			out.AuxDataHash = &h
		case 8:
			v, err := r.ReadUint()
			if err != nil {
				return err
			}
			out.ValidityStart = &v
		case 9:
			mint, err := decodeMint(r)
			if err != nil {
				return err
			}
			out.Mint = mint
		case 11:
			hashBytes, err := r.ReadBytes()
			if err != nil {
				return err
			}
			var h [32]byte
			copy(h[:], hashBytes)
			out.ScriptDataHash = &h
		case 13:
			inputs, tagged, err := decodeInputSet(r)
			if err != nil {
				return err
			}
			out.CollateralInputs = inputs
			if tagged {
				out.SetsTagged = true
			}
		case 14:
			signers, tagged, err := decodeRequiredSigners(r)
			if err != nil {
				return err
			}
			out.RequiredSigners = signers
			if tagged {
				out.SetsTagged = true
			}
		case 15:
			v, err := r.ReadUint()
			if err != nil {
				return err
			}
			nid := byte(v)
			out.NetworkID = &nid
		case 16:
			raw, err := r.ReadEncodedValue()
			if err != nil {
				return err
			}
			var o ledger.TransactionOutput
			if err := o.UnmarshalCBOR(raw); err != nil {
				return err
			}
			out.CollateralReturn = &o
		case 17:
			v, err := r.ReadUint()
			if err != nil {
				return err
			}
			coin := ledger.Coin(v)
			out.TotalCollateral = &coin
		case 18:
			inputs, tagged, err := decodeInputSet(r)
			if err != nil {
				return err
			}
			out.ReferenceInputs = inputs
			if tagged {
				out.SetsTagged = true
			}
		case 19:
			raw, err := r.ReadEncodedValue()
			if err != nil {
				return err
			}
			vp := ledger.NewVotingProcedures()
			if err := vp.UnmarshalCBOR(raw); err != nil {
				return err
			}
			out.VotingProcedures = vp
		case 20:
			n, _, err := r.ReadStartArray()
			if err != nil {
				return err
			}
			for i := 0; i < n; i++ {
				raw, err := r.ReadEncodedValue()
				if err != nil {
					return err
				}
				var p ledger.ProposalProcedure
				if err := p.UnmarshalCBOR(raw); err != nil {
					return err
				}
				out.ProposalProcedures = append(out.ProposalProcedures, p)
			}
		case 21:
			v, err := r.ReadUint()
			if err != nil {
				return err
			}
			coin := ledger.Coin(v)
			out.CurrentTreasuryValue = &coin
		case 22:
			v, err := r.ReadUint()
			if err != nil {
				return err
			}
			coin := ledger.Coin(v)
			out.Donation = &coin
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
	*b = out
	return nil
}
