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

package keyhandler

import (
	"testing"

	"github.com/blinklabs-io/txforge/crypto"
	"github.com/blinklabs-io/txforge/ledger"
	"github.com/blinklabs-io/txforge/tx"
)

func fixedPassphrase(p string) PassphraseFunc {
	return func(buf []byte) int {
		return copy(buf, p)
	}
}

func testMnemonic(t *testing.T) string {
	t.Helper()
	m, err := crypto.NewMnemonic(15)
	if err != nil {
		t.Fatalf("generating mnemonic: %v", err)
	}
	return m
}

func sampleTxn(t *testing.T) *tx.Transaction {
	t.Helper()
	var keyHash [28]byte
	keyHash[0] = 0x42
	addr := ledger.NewEnterpriseAddress(ledger.NetworkTestnet, ledger.NewKeyHashCredential(keyHash))
	var txid [32]byte
	txid[0] = 9
	body := tx.Body{
		Inputs:  []ledger.TransactionInput{{TxId: txid, Index: 0}},
		Outputs: []ledger.TransactionOutput{{Address: addr, Value: ledger.NewValue(1_500_000)}},
		Fee:     170000,
	}
	return tx.New(body)
}

func TestSoftwareHandlerSerializeDeserializeRoundTrip(t *testing.T) {
	h, err := NewSoftwareHandlerFromMnemonic(testMnemonic(t), "", fixedPassphrase("correct horse"))
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	blob, err := h.Serialize()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	restored, err := Deserialize(blob, fixedPassphrase("correct horse"))
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	pub1, err := h.GetExtendedAccountPublicKey(0)
	if err != nil {
		t.Fatalf("pubkey from original: %v", err)
	}
	pub2, err := restored.GetExtendedAccountPublicKey(0)
	if err != nil {
		t.Fatalf("pubkey from restored: %v", err)
	}
	if pub1.PointBytes() != pub2.PointBytes() {
		t.Error("expected restored handler to derive the same account public key")
	}
}

func TestDeserializeRejectsWrongPassphrase(t *testing.T) {
	h, err := NewSoftwareHandlerFromMnemonic(testMnemonic(t), "", fixedPassphrase("correct horse"))
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	blob, err := h.Serialize()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if _, err := Deserialize(blob, fixedPassphrase("wrong passphrase")); err == nil {
		t.Fatal("expected wrong passphrase to be rejected")
	}
}

func TestSignTransactionProducesVerifiableWitness(t *testing.T) {
	h, err := NewSoftwareHandlerFromMnemonic(testMnemonic(t), "", fixedPassphrase("hunter2"))
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	path := crypto.FullPath(0, crypto.RoleExternal, 0)
	txn := sampleTxn(t)
	witnesses, err := h.SignTransaction(txn, [][]uint32{path})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if len(witnesses) != 1 {
		t.Fatalf("expected 1 witness, got %d", len(witnesses))
	}
	id, err := txn.Id()
	if err != nil {
		t.Fatalf("id: %v", err)
	}
	w := witnesses[0]
	if !crypto.Verify(w.VKey, id[:], w.Signature[:]) {
		t.Error("expected witness signature to verify against the transaction id")
	}
}

func TestSignTransactionMultiplePathsYieldDistinctKeys(t *testing.T) {
	h, err := NewSoftwareHandlerFromMnemonic(testMnemonic(t), "", fixedPassphrase("hunter2"))
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	paths := [][]uint32{
		crypto.FullPath(0, crypto.RoleExternal, 0),
		crypto.FullPath(0, crypto.RoleExternal, 1),
	}
	txn := sampleTxn(t)
	witnesses, err := h.SignTransaction(txn, paths)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if len(witnesses) != 2 {
		t.Fatalf("expected 2 witnesses, got %d", len(witnesses))
	}
	if witnesses[0].VKey == witnesses[1].VKey {
		t.Error("expected distinct keys for distinct derivation indexes")
	}
}
