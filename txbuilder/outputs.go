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

package txbuilder

import (
	"math/big"

	"github.com/blinklabs-io/txforge/ledger"
)

// SendLovelace appends a pure-coin output to addr.
func (b *Builder) SendLovelace(addr ledger.Address, coin ledger.Coin) *Builder {
	return b.SendValue(addr, ledger.NewValue(coin))
}

// SendValue appends an output carrying value (coin plus any assets) to
// addr.
func (b *Builder) SendValue(addr ledger.Address, value ledger.Value) *Builder {
	b.outputs = append(b.outputs, ledger.TransactionOutput{Address: addr, Value: value})
	return b
}

// LockLovelace sends coin to a script address, optionally attaching an
// inline datum.
func (b *Builder) LockLovelace(scriptAddr ledger.Address, coin ledger.Coin, datum *ledger.PlutusData) *Builder {
	out := ledger.TransactionOutput{Address: scriptAddr, Value: ledger.NewValue(coin)}
	if datum != nil {
		out.Datum = &ledger.Datum{Inline: datum}
	}
	b.outputs = append(b.outputs, out)
	return b
}

// MintToken adds qty of the (policy, name) asset to body key 9. A
// negative qty burns. Duplicate (policy, name) entries aggregate by
// sum; a policy's redeemer is recorded at most once — a later non-nil
// redeemer for a policy already carrying one is ignored, since a single
// mint script is invoked once per transaction regardless of how many
// distinct assets it mints.
func (b *Builder) MintToken(policy ledger.PolicyID, name ledger.AssetName, qty int64, redeemer *ledger.PlutusData) *Builder {
	b.mint.Add(policy, name, big.NewInt(qty))
	if redeemer != nil {
		if _, ok := b.mintReds[policy]; !ok {
			b.mintReds[policy] = redeemer
		}
	}
	return b
}
