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

// Package coinselect implements input selection against a target
// value: a greedy multi-asset coverage pass over asset-bearing UTxOs
// followed by a descending-coin pass over pure-coin UTxOs, with
// deterministic tie-breaking and change-output splitting on
// max-value-size overflow.
package coinselect

import (
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/blinklabs-io/txforge/ledger"
)

// ErrTooManyInputs is returned when covering the target would require
// more inputs than the caller's stated maximum.
var ErrTooManyInputs = errors.New("coinselect: selection requires more inputs than allowed")

// ShortfallError reports that the candidate pool, even selected in
// full, does not cover the target value. Shortfall names exactly what
// remains uncovered, per component.
type ShortfallError struct {
	Shortfall ledger.Value
}

func (e *ShortfallError) Error() string {
	return fmt.Sprintf("coinselect: insufficient balance: short %d lovelace plus assets", e.Shortfall.Coin)
}

// Result is the outcome of a successful Select.
type Result struct {
	// Selected is every UTxO chosen to cover the target, in selection
	// order (asset-bearing picks before pure-coin picks).
	Selected ledger.UTxOList
	// Change is the excess value returned to the spender, split across
	// as many outputs as needed to respect MaxValueSize.
	Change []ledger.Value
}

func isPureCoin(u ledger.UTxO) bool {
	return u.Output.Value.Assets.IsEmpty()
}

func partition(pool ledger.UTxOList) (pureCoin, assetBearing ledger.UTxOList) {
	for _, u := range pool {
		if isPureCoin(u) {
			pureCoin = append(pureCoin, u)
		} else {
			assetBearing = append(assetBearing, u)
		}
	}
	return
}

func sortByInputAsc(list ledger.UTxOList) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Input.Less(list[j].Input)
	})
}

// sortDescCoinThenInputAsc orders by descending coin, breaking ties by
// ascending (txid, index) per spec.md §4.8 rule 5.
func sortDescCoinThenInputAsc(list ledger.UTxOList) {
	sort.SliceStable(list, func(i, j int) bool {
		ci, cj := list[i].Output.Value.Coin, list[j].Output.Value.Coin
		if ci != cj {
			return ci > cj
		}
		return list[i].Input.Less(list[j].Input)
	})
}

func sumValues(list ledger.UTxOList) ledger.Value {
	total := ledger.NewValue(0)
	for _, u := range list {
		total = total.Add(u.Output.Value)
	}
	return total
}

// Select chooses UTxOs from pool to cover target (outputs + fee +
// deposits − withdrawals − refunds, per spec.md §4.8), producing
// change split across outputs no larger than maxValueSize bytes of
// CBOR-encoded value. maxInputs <= 0 means unlimited.
func Select(target ledger.Value, pool ledger.UTxOList, maxValueSize uint64, maxInputs int) (*Result, error) {
	pureCoin, assetBearing := partition(pool)
	sortByInputAsc(assetBearing)
	sortDescCoinThenInputAsc(pureCoin)

	var selected ledger.UTxOList
	chosen := make(map[ledger.TransactionInput]bool)

	targetAssets := target.Assets.Normalize()
	for _, policy := range targetAssets.Policies() {
		for _, name := range targetAssets.Assets(policy) {
			need := targetAssets.Get(policy, name)
			have := new(big.Int)
			for _, u := range assetBearing {
				if have.Cmp(need) >= 0 {
					break
				}
				if chosen[u.Input] {
					continue
				}
				qty := u.Output.Value.Assets.Get(policy, name)
				if qty.Sign() <= 0 {
					continue
				}
				selected = append(selected, u)
				chosen[u.Input] = true
				have.Add(have, qty)
			}
		}
	}

	current := sumValues(selected)
	for _, u := range pureCoin {
		if uint64(current.Coin) >= uint64(target.Coin) {
			break
		}
		if chosen[u.Input] {
			continue
		}
		selected = append(selected, u)
		chosen[u.Input] = true
		current = current.Add(u.Output.Value)
	}

	if !target.LessOrEqual(current) {
		return nil, &ShortfallError{Shortfall: shortfallOf(target, current)}
	}
	if maxInputs > 0 && len(selected) > maxInputs {
		return nil, ErrTooManyInputs
	}

	change := current.Sub(target)
	var changeOutputs []ledger.Value
	if change.Coin > 0 || !change.Assets.IsEmpty() {
		var err error
		changeOutputs, err = splitChange(change, maxValueSize)
		if err != nil {
			return nil, err
		}
	}

	return &Result{Selected: selected, Change: changeOutputs}, nil
}

// shortfallOf returns, per component, how much of target exceeds what
// current actually covers.
func shortfallOf(target, current ledger.Value) ledger.Value {
	out := ledger.NewValue(0)
	if target.Coin > current.Coin {
		out.Coin = target.Coin - current.Coin
	}
	targetAssets := target.Assets.Normalize()
	for _, policy := range targetAssets.Policies() {
		for _, name := range targetAssets.Assets(policy) {
			need := targetAssets.Get(policy, name)
			have := current.Assets.Get(policy, name)
			if need.Cmp(have) > 0 {
				out.Assets.Set(policy, name, new(big.Int).Sub(need, have))
			}
		}
	}
	return out
}

// splitChange partitions change into one or more outputs, starting a
// new output whenever adding the next asset would push the current
// output's encoded size past maxValueSize. All of the lovelace goes on
// the first output; maxValueSize == 0 means unlimited (a single
// output).
func splitChange(change ledger.Value, maxValueSize uint64) ([]ledger.Value, error) {
	if maxValueSize == 0 {
		return []ledger.Value{change}, nil
	}

	assets := change.Assets.Normalize()
	type entry struct {
		policy ledger.PolicyID
		name   ledger.AssetName
		qty    *big.Int
	}
	var entries []entry
	for _, policy := range assets.Policies() {
		for _, name := range assets.Assets(policy) {
			entries = append(entries, entry{policy, name, assets.Get(policy, name)})
		}
	}

	outputs := []ledger.Value{{Coin: change.Coin, Assets: ledger.NewMultiAsset()}}
	for _, e := range entries {
		last := &outputs[len(outputs)-1]
		candidate := *last
		candidate.Assets = cloneMultiAsset(last.Assets)
		candidate.Assets.Set(e.policy, e.name, e.qty)

		encoded, err := candidate.MarshalCBOR()
		if err != nil {
			return nil, fmt.Errorf("coinselect: encoding candidate change output: %w", err)
		}
		if uint64(len(encoded)) <= maxValueSize || last.Assets.IsEmpty() {
			*last = candidate
			continue
		}

		next := ledger.Value{Coin: 0, Assets: ledger.NewMultiAsset()}
		next.Assets.Set(e.policy, e.name, e.qty)
		outputs = append(outputs, next)
	}
	return outputs, nil
}

func cloneMultiAsset(m ledger.MultiAsset) ledger.MultiAsset {
	out := ledger.NewMultiAsset()
	for _, policy := range m.Policies() {
		for _, name := range m.Assets(policy) {
			out.Set(policy, name, m.Get(policy, name))
		}
	}
	return out
}
