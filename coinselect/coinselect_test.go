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

package coinselect

import (
	"math/big"
	"testing"

	"github.com/blinklabs-io/txforge/ledger"
)

func addr(t *testing.T) ledger.Address {
	t.Helper()
	var hash [28]byte
	return ledger.NewEnterpriseAddress(ledger.NetworkTestnet, ledger.NewKeyHashCredential(hash))
}

func pureCoinUTxO(t *testing.T, seed byte, coin ledger.Coin) ledger.UTxO {
	t.Helper()
	var txid [32]byte
	txid[0] = seed
	return ledger.UTxO{
		Input:  ledger.TransactionInput{TxId: txid, Index: 0},
		Output: ledger.TransactionOutput{Address: addr(t), Value: ledger.NewValue(coin)},
	}
}

func assetUTxO(t *testing.T, seed byte, coin ledger.Coin, policy ledger.PolicyID, name ledger.AssetName, qty int64) ledger.UTxO {
	t.Helper()
	var txid [32]byte
	txid[0] = seed
	value := ledger.NewValue(coin)
	value.Assets.Set(policy, name, big.NewInt(qty))
	return ledger.UTxO{
		Input:  ledger.TransactionInput{TxId: txid, Index: 0},
		Output: ledger.TransactionOutput{Address: addr(t), Value: value},
	}
}

func TestSelectCoversPureCoinTarget(t *testing.T) {
	pool := ledger.UTxOList{
		pureCoinUTxO(t, 1, 1_000_000),
		pureCoinUTxO(t, 2, 5_000_000),
		pureCoinUTxO(t, 3, 2_000_000),
	}
	target := ledger.NewValue(4_000_000)
	result, err := Select(target, pool, 0, 0)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	// Descending-coin pass should pick the 5_000_000 output alone.
	if len(result.Selected) != 1 || result.Selected[0].Output.Value.Coin != 5_000_000 {
		t.Fatalf("unexpected selection: %+v", result.Selected)
	}
	if len(result.Change) != 1 || result.Change[0].Coin != 1_000_000 {
		t.Fatalf("unexpected change: %+v", result.Change)
	}
}

func TestSelectCoversAssetThenCoin(t *testing.T) {
	var policy ledger.PolicyID
	policy[0] = 0xAB
	name := ledger.AssetName("tok")

	pool := ledger.UTxOList{
		assetUTxO(t, 1, 1_500_000, policy, name, 10),
		pureCoinUTxO(t, 2, 3_000_000),
	}
	target := ledger.NewValue(4_000_000)
	target.Assets.Set(policy, name, big.NewInt(5))

	result, err := Select(target, pool, 0, 0)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(result.Selected) != 2 {
		t.Fatalf("expected both utxos selected, got %d", len(result.Selected))
	}
	if len(result.Change) != 1 {
		t.Fatalf("expected one change output, got %d", len(result.Change))
	}
	change := result.Change[0]
	if change.Coin != 500_000 {
		t.Errorf("expected 500000 lovelace change, got %d", change.Coin)
	}
	if change.Assets.Get(policy, name).Cmp(big.NewInt(5)) != 0 {
		t.Errorf("expected 5 leftover tokens, got %s", change.Assets.Get(policy, name))
	}
}

func TestSelectReportsShortfall(t *testing.T) {
	pool := ledger.UTxOList{pureCoinUTxO(t, 1, 1_000_000)}
	target := ledger.NewValue(5_000_000)
	_, err := Select(target, pool, 0, 0)
	shortErr, ok := err.(*ShortfallError)
	if !ok {
		t.Fatalf("expected *ShortfallError, got %v", err)
	}
	if shortErr.Shortfall.Coin != 4_000_000 {
		t.Errorf("expected shortfall of 4000000, got %d", shortErr.Shortfall.Coin)
	}
}

func TestSelectRejectsTooManyInputs(t *testing.T) {
	pool := ledger.UTxOList{
		pureCoinUTxO(t, 1, 1_000_000),
		pureCoinUTxO(t, 2, 1_000_000),
		pureCoinUTxO(t, 3, 1_000_000),
	}
	target := ledger.NewValue(2_500_000)
	_, err := Select(target, pool, 0, 2)
	if err != ErrTooManyInputs {
		t.Fatalf("expected ErrTooManyInputs, got %v", err)
	}
}

func TestSelectTieBreaksByInputAscending(t *testing.T) {
	pool := ledger.UTxOList{
		pureCoinUTxO(t, 9, 1_000_000),
		pureCoinUTxO(t, 1, 1_000_000),
	}
	target := ledger.NewValue(1_000_000)
	result, err := Select(target, pool, 0, 0)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(result.Selected) != 1 || result.Selected[0].Input.TxId[0] != 1 {
		t.Fatalf("expected the lower txid to be picked on a coin tie, got %+v", result.Selected)
	}
}

func TestSelectCollateralComputesReturn(t *testing.T) {
	pool := ledger.UTxOList{
		pureCoinUTxO(t, 1, 3_000_000),
		pureCoinUTxO(t, 2, 1_000_000),
	}
	result, err := SelectCollateral(pool, 200_000, 150, 3)
	if err != nil {
		t.Fatalf("select collateral: %v", err)
	}
	if len(result.Selected) != 1 {
		t.Fatalf("expected a single collateral input to suffice, got %d", len(result.Selected))
	}
	if result.Return != 2_800_000 {
		t.Errorf("expected return of 2800000, got %d", result.Return)
	}
}

func TestSelectCollateralRejectsWhenNoPureCoinAvailable(t *testing.T) {
	var policy ledger.PolicyID
	policy[0] = 1
	pool := ledger.UTxOList{assetUTxO(t, 1, 5_000_000, policy, "tok", 1)}
	_, err := SelectCollateral(pool, 200_000, 150, 3)
	if err != ErrNoCollateralCandidates {
		t.Fatalf("expected ErrNoCollateralCandidates, got %v", err)
	}
}
