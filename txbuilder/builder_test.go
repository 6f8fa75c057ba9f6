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
	"context"
	"testing"

	"github.com/blinklabs-io/txforge/ledger"
)

func testParams() ledger.ProtocolParameters {
	return ledger.ProtocolParameters{
		MinFeeA:              44,
		MinFeeB:              155381,
		MaxTxSize:            16384,
		MaxValueSize:         5000,
		CoinsPerUTxOByte:      4310,
		PoolDeposit:          500000000,
		KeyDeposit:           2000000,
		CollateralPercentage: 150,
		MaxCollateralInputs:  3,
		ExecutionPrices: ledger.ExUnitPrices{
			MemNumerator: 577, MemDenominator: 10000,
			StepNumerator: 721, StepDenominator: 10000000,
		},
		MaxTxExecutionUnits: ledger.ExUnits{Mem: 14000000, Steps: 10000000000},
		CostModels:          map[ledger.PlutusLanguage]ledger.CostModel{},
		DRepDeposit:         500000000,
		GovActionDeposit:    100000000000,
		MinCommitteeSize:    0,
	}
}

func testAddress(t *testing.T, seed byte) ledger.Address {
	t.Helper()
	var hash [28]byte
	hash[0] = seed
	return ledger.NewEnterpriseAddress(ledger.NetworkTestnet, ledger.NewKeyHashCredential(hash))
}

func testUTxO(t *testing.T, seed byte, coin ledger.Coin) ledger.UTxO {
	t.Helper()
	var txid [32]byte
	txid[0] = seed
	return ledger.UTxO{
		Input:  ledger.TransactionInput{TxId: txid, Index: 0},
		Output: ledger.TransactionOutput{Address: testAddress(t, seed), Value: ledger.NewValue(coin)},
	}
}

func TestBuildFailsWithoutChangeAddress(t *testing.T) {
	b := New(nil, testParams())
	b.SetUTxOs(ledger.UTxOList{testUTxO(t, 1, 10_000_000)})
	_, err := b.Build(context.Background())
	if err != ErrNoChangeAddress {
		t.Fatalf("expected ErrNoChangeAddress, got %v", err)
	}
}

func TestBuildSurfacesDeferredError(t *testing.T) {
	b := New(nil, testParams())
	b.SetChangeAddressEx("not a bech32 address")
	if b.LastError() != ErrMalformedAddress {
		t.Fatalf("expected setter to defer ErrMalformedAddress, got %v", b.LastError())
	}
	_, err := b.Build(context.Background())
	if err != ErrMalformedAddress {
		t.Fatalf("expected Build to surface the deferred error, got %v", err)
	}
}

func TestBuildSimplePaymentBalances(t *testing.T) {
	b := New(nil, testParams())
	change := testAddress(t, 0xFF)
	b.SetChangeAddress(change)
	b.SetUTxOs(ledger.UTxOList{testUTxO(t, 1, 10_000_000)})
	b.SendLovelace(testAddress(t, 2), 3_000_000)

	txn, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if len(txn.Body.Inputs) != 1 {
		t.Fatalf("expected 1 input, got %d", len(txn.Body.Inputs))
	}
	if len(txn.Body.Outputs) != 2 {
		t.Fatalf("expected payment output plus change, got %d", len(txn.Body.Outputs))
	}
	if txn.Body.Fee == 0 {
		t.Fatal("expected a nonzero computed fee")
	}

	var total ledger.Coin
	for _, o := range txn.Body.Outputs {
		total += o.Value.Coin
	}
	if got, want := total+txn.Body.Fee, ledger.Coin(10_000_000); got != want {
		t.Fatalf("outputs + fee = %d, want %d (inputs exactly balance)", got, want)
	}
}

func TestBuildUsesCoinSelectionWhenExplicitInputsInsufficient(t *testing.T) {
	b := New(nil, testParams())
	change := testAddress(t, 0xFE)
	b.SetChangeAddress(change)
	b.SetUTxOs(ledger.UTxOList{
		testUTxO(t, 1, 1_000_000),
		testUTxO(t, 2, 20_000_000),
	})
	b.SendLovelace(testAddress(t, 3), 15_000_000)

	txn, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(txn.Body.Inputs) == 0 {
		t.Fatal("expected coin selection to pick at least one input")
	}
	var totalIn ledger.Coin
	for _, in := range txn.Body.Inputs {
		if in.Index == 0 && in.TxId[0] == 1 {
			totalIn += 1_000_000
		}
		if in.Index == 0 && in.TxId[0] == 2 {
			totalIn += 20_000_000
		}
	}
	var totalOut ledger.Coin
	for _, o := range txn.Body.Outputs {
		totalOut += o.Value.Coin
	}
	if totalOut+txn.Body.Fee != totalIn {
		t.Fatalf("unbalanced transaction: in=%d out=%d fee=%d", totalIn, totalOut, txn.Body.Fee)
	}
}

func TestBuildWithoutChangeOwedOmitsChangeOutput(t *testing.T) {
	b := New(nil, testParams())
	b.SetChangeAddress(testAddress(t, 0xFD))
	input := testUTxO(t, 9, 5_000_000)
	b.AddInput(input, nil, nil)
	b.SendLovelace(testAddress(t, 4), 3_000_000)

	txn, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	// One payment output plus whatever coin-selection change (if any)
	// was produced from the 5_000_000 explicit input.
	if len(txn.Body.Outputs) < 1 {
		t.Fatal("expected at least the payment output")
	}
}

func TestCompleteExactSkipsFeeConvergence(t *testing.T) {
	b := New(nil, testParams())
	b.SetChangeAddress(testAddress(t, 0xFC))
	b.SetUTxOs(ledger.UTxOList{testUTxO(t, 1, 10_000_000)})
	b.SendLovelace(testAddress(t, 2), 3_000_000)

	const fixedFee = ledger.Coin(200000)
	txn, err := b.CompleteExact(context.Background(), fixedFee)
	if err != nil {
		t.Fatalf("completeExact: %v", err)
	}
	if txn.Body.Fee != fixedFee {
		t.Fatalf("fee = %d, want the caller-supplied %d", txn.Body.Fee, fixedFee)
	}
}

func TestBuildMissingScriptWitnessFails(t *testing.T) {
	b := New(nil, testParams())
	b.SetChangeAddress(testAddress(t, 0xFB))
	var scriptHash [28]byte
	scriptHash[0] = 0xAA
	scriptAddr := ledger.NewEnterpriseAddress(ledger.NetworkTestnet, ledger.NewScriptHashCredential(scriptHash))
	var txid [32]byte
	txid[0] = 1
	locked := ledger.UTxO{
		Input:  ledger.TransactionInput{TxId: txid, Index: 0},
		Output: ledger.TransactionOutput{Address: scriptAddr, Value: ledger.NewValue(5_000_000)},
	}
	b.AddInput(locked, &ledger.PlutusData{}, nil)

	_, err := b.Build(context.Background())
	if err != ErrMissingScriptWitness {
		t.Fatalf("expected ErrMissingScriptWitness, got %v", err)
	}
}
