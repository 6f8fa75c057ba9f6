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
	"bytes"
	"fmt"
	"math/big"
	"sort"

	"github.com/blinklabs-io/txforge/cbor"
)

// Coin is a non-negative lovelace amount.
type Coin uint64

// PolicyID is a 28-byte script hash identifying a minting policy.
type PolicyID [28]byte

// AssetName is 0..32 raw bytes.
type AssetName string

// AssetClass identifies a native asset by policy and name; the zero
// value (empty policy, empty name) denotes lovelace/ADA itself.
type AssetClass struct {
	Policy PolicyID
	Name   AssetName
}

// IsLovelace reports whether this class represents ADA rather than a
// native token minted under a policy.
func (a AssetClass) IsLovelace() bool {
	return a.Policy == PolicyID{} && a.Name == ""
}

func (a AssetClass) String() string {
	if a.IsLovelace() {
		return "lovelace"
	}
	return fmt.Sprintf("%x.%s", a.Policy, string(a.Name))
}

// MultiAsset is a sorted associative map: policy id primary key, asset
// name secondary key, to a signed quantity (negative while describing a
// mint/burn delta; values must be strictly positive on an output).
type MultiAsset map[PolicyID]map[AssetName]*big.Int

// NewMultiAsset returns an empty multi-asset map.
func NewMultiAsset() MultiAsset {
	return make(MultiAsset)
}

// Set stores qty for (policy, name), overwriting any existing quantity.
func (m MultiAsset) Set(policy PolicyID, name AssetName, qty *big.Int) {
	if m[policy] == nil {
		m[policy] = make(map[AssetName]*big.Int)
	}
	m[policy][name] = new(big.Int).Set(qty)
}

// Add accumulates qty onto the existing quantity for (policy, name).
func (m MultiAsset) Add(policy PolicyID, name AssetName, qty *big.Int) {
	if m[policy] == nil {
		m[policy] = make(map[AssetName]*big.Int)
	}
	existing, ok := m[policy][name]
	if !ok {
		existing = new(big.Int)
	}
	m[policy][name] = new(big.Int).Add(existing, qty)
}

// Get returns the quantity for (policy, name), or zero if absent.
func (m MultiAsset) Get(policy PolicyID, name AssetName) *big.Int {
	if assets, ok := m[policy]; ok {
		if qty, ok := assets[name]; ok {
			return new(big.Int).Set(qty)
		}
	}
	return new(big.Int)
}

// Policies returns the policy ids present, sorted ascending by bytes.
func (m MultiAsset) Policies() []PolicyID {
	out := make([]PolicyID, 0, len(m))
	for p := range m {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})
	return out
}

// Assets returns the asset names under a policy, sorted ascending.
func (m MultiAsset) Assets(policy PolicyID) []AssetName {
	names := m[policy]
	out := make([]AssetName, 0, len(names))
	for n := range names {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Normalize removes zero-quantity entries and empty policy maps,
// returning a new MultiAsset.
func (m MultiAsset) Normalize() MultiAsset {
	out := NewMultiAsset()
	for _, policy := range m.Policies() {
		for _, name := range m.Assets(policy) {
			qty := m[policy][name]
			if qty.Sign() != 0 {
				out.Set(policy, name, qty)
			}
		}
	}
	return out
}

// IsEmpty reports whether every entry is zero (after normalization).
func (m MultiAsset) IsEmpty() bool {
	return len(m.Normalize()) == 0
}

func multiAssetOp(a, b MultiAsset, op func(x, y *big.Int) *big.Int) MultiAsset {
	out := NewMultiAsset()
	seen := make(map[PolicyID]map[AssetName]bool)
	for _, policy := range a.Policies() {
		for _, name := range a.Assets(policy) {
			if seen[policy] == nil {
				seen[policy] = make(map[AssetName]bool)
			}
			seen[policy][name] = true
			out.Set(policy, name, op(a.Get(policy, name), b.Get(policy, name)))
		}
	}
	for _, policy := range b.Policies() {
		for _, name := range b.Assets(policy) {
			if seen[policy][name] {
				continue
			}
			out.Set(policy, name, op(a.Get(policy, name), b.Get(policy, name)))
		}
	}
	return out.Normalize()
}

// AddAll returns the component-wise sum of two multi-asset maps.
func (m MultiAsset) AddAll(other MultiAsset) MultiAsset {
	return multiAssetOp(m, other, func(x, y *big.Int) *big.Int {
		return new(big.Int).Add(x, y)
	})
}

// Sub returns the component-wise difference of two multi-asset maps.
func (m MultiAsset) Sub(other MultiAsset) MultiAsset {
	return multiAssetOp(m, other, func(x, y *big.Int) *big.Int {
		return new(big.Int).Sub(x, y)
	})
}

// LessOrEqual reports whether every component of m is <= the
// corresponding component of other (the partial order over values).
func (m MultiAsset) LessOrEqual(other MultiAsset) bool {
	for _, policy := range m.Policies() {
		for _, name := range m.Assets(policy) {
			if m.Get(policy, name).Cmp(other.Get(policy, name)) > 0 {
				return false
			}
		}
	}
	return true
}

// Equal reports structural equality after normalization.
func (m MultiAsset) Equal(other MultiAsset) bool {
	na, nb := m.Normalize(), other.Normalize()
	if len(na) != len(nb) {
		return false
	}
	for _, policy := range na.Policies() {
		for _, name := range na.Assets(policy) {
			if na.Get(policy, name).Cmp(nb.Get(policy, name)) != 0 {
				return false
			}
		}
	}
	return true
}

// Value is a Coin paired with a multi-asset map, Cardano's general
// representation of "an amount of stuff".
type Value struct {
	Coin   Coin
	Assets MultiAsset
}

// NewValue returns a coin-only value.
func NewValue(coin Coin) Value {
	return Value{Coin: coin, Assets: NewMultiAsset()}
}

// Add returns the sum of two values.
func (v Value) Add(other Value) Value {
	assets := v.Assets
	if assets == nil {
		assets = NewMultiAsset()
	}
	otherAssets := other.Assets
	if otherAssets == nil {
		otherAssets = NewMultiAsset()
	}
	return Value{Coin: v.Coin + other.Coin, Assets: assets.AddAll(otherAssets)}
}

// Sub returns the difference of two values (v - other); the coin
// component may underflow if the caller does not check LessOrEqual
// first.
func (v Value) Sub(other Value) Value {
	assets := v.Assets
	if assets == nil {
		assets = NewMultiAsset()
	}
	otherAssets := other.Assets
	if otherAssets == nil {
		otherAssets = NewMultiAsset()
	}
	return Value{Coin: v.Coin - other.Coin, Assets: assets.Sub(otherAssets)}
}

// ScalarMultiply returns the value scaled by a non-negative integer
// factor.
func (v Value) ScalarMultiply(factor uint64) Value {
	out := NewValue(Coin(uint64(v.Coin) * factor))
	bigFactor := new(big.Int).SetUint64(factor)
	for _, policy := range v.Assets.Policies() {
		for _, name := range v.Assets.Assets(policy) {
			qty := new(big.Int).Mul(v.Assets.Get(policy, name), bigFactor)
			out.Assets.Set(policy, name, qty)
		}
	}
	return out
}

// LessOrEqual implements the partial order over values: true iff every
// component of v is <= the corresponding component of other.
func (v Value) LessOrEqual(other Value) bool {
	if v.Coin > other.Coin {
		return false
	}
	return v.Assets.LessOrEqual(other.Assets)
}

// Equal reports structural equality (coin plus normalized assets).
func (v Value) Equal(other Value) bool {
	return v.Coin == other.Coin && v.Assets.Equal(other.Assets)
}

// IsPositive reports whether the coin is positive and every asset
// quantity is strictly positive, the requirement for an on-output
// value.
func (v Value) IsPositive() bool {
	if v.Coin <= 0 {
		return false
	}
	normalized := v.Assets.Normalize()
	for _, policy := range normalized.Policies() {
		for _, name := range normalized.Assets(policy) {
			if normalized.Get(policy, name).Sign() <= 0 {
				return false
			}
		}
	}
	return true
}

// MarshalCBOR encodes the value. A coin-only value encodes as a plain
// uint; a value carrying assets encodes as the two-element
// [coin, multiasset] array, per the Conway-era CDDL.
func (v Value) MarshalCBOR() ([]byte, error) {
	normalized := v.Assets.Normalize()
	if len(normalized) == 0 {
		return cbor.Encode(uint64(v.Coin))
	}
	w := cbor.NewWriter()
	w.ArrayHeader(2)
	w.Uint(uint64(v.Coin))
	encodeMultiAsset(w, normalized)
	return w.Bytes(), w.Err()
}

// encodeMultiAsset writes the canonical { policy_id => { asset_name => qty } }
// map. asset_name is a CDDL bstr (0..32 bytes), matching how every retrieved
// gouroboros/apollo asset map keys itself (cbor.ByteString, never tstr) —
// see other_examples/ac581c10_blinklabs-io-salvionied-apollo__helpers.go.go:142-148.
func encodeMultiAsset(w *cbor.Writer, m MultiAsset) {
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

// UnmarshalCBOR decodes either a plain uint (coin-only) or a
// [coin, multiasset] array.
func (v *Value) UnmarshalCBOR(data []byte) error {
	r := cbor.NewReader(data)
	major, err := r.PeekMajorType()
	if err != nil {
		return err
	}
	if major == cbor.MajorUnsignedInt {
		coin, err := r.ReadUint()
		if err != nil {
			return err
		}
		v.Coin = Coin(coin)
		v.Assets = NewMultiAsset()
		return nil
	}
	if err := r.ValidateArrayOfN("Value", 2); err != nil {
		return err
	}
	coin, err := r.ReadUint()
	if err != nil {
		return err
	}
	assets, err := decodeMultiAsset(r)
	if err != nil {
		return err
	}
	v.Coin = Coin(coin)
	v.Assets = assets
	return r.ValidateEndArray("Value")
}

func decodeMultiAsset(r *cbor.Reader) (MultiAsset, error) {
	policyCount, _, err := r.ReadStartMap()
	if err != nil {
		return nil, err
	}
	out := NewMultiAsset()
	for i := 0; i < policyCount; i++ {
		policyBytes, err := r.ReadBytes()
		if err != nil {
			return nil, err
		}
		var policy PolicyID
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
			out.Set(policy, AssetName(name), qty)
		}
	}
	return out, nil
}
