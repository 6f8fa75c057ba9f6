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
	"testing"

	"github.com/blinklabs-io/txforge/ledger"
)

func sampleAddress(t *testing.T) ledger.Address {
	t.Helper()
	var keyHash [28]byte
	for i := range keyHash {
		keyHash[i] = byte(i)
	}
	payment := ledger.NewKeyHashCredential(keyHash)
	return ledger.NewEnterpriseAddress(ledger.NetworkTestnet, payment)
}

func sampleInput(seed byte) ledger.TransactionInput {
	var txid [32]byte
	for i := range txid {
		txid[i] = seed
	}
	return ledger.TransactionInput{TxId: txid, Index: 0}
}

func TestBodyRoundTrip(t *testing.T) {
	addr := sampleAddress(t)
	ttl := uint64(1000)
	body := Body{
		Inputs: []ledger.TransactionInput{sampleInput(1), sampleInput(2)},
		Outputs: []ledger.TransactionOutput{
			{Address: addr, Value: ledger.NewValue(2_000_000)},
		},
		Fee: 170000,
		TTL: &ttl,
	}
	encoded, err := body.MarshalCBOR()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Body
	if err := decoded.UnmarshalCBOR(encoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Fee != body.Fee {
		t.Errorf("fee: got %d, want %d", decoded.Fee, body.Fee)
	}
	if len(decoded.Inputs) != 2 {
		t.Fatalf("expected 2 inputs, got %d", len(decoded.Inputs))
	}
	// Inputs are re-encoded in canonical (txid, index) order regardless
	// of construction order; both sample inputs share index 0 so the
	// canonical order is by txid byte value.
	if !decoded.Inputs[0].Less(decoded.Inputs[1]) {
		t.Error("expected canonically sorted inputs after round trip")
	}
	if decoded.TTL == nil || *decoded.TTL != ttl {
		t.Errorf("ttl: got %v, want %d", decoded.TTL, ttl)
	}
	if len(decoded.Outputs) != 1 || decoded.Outputs[0].Value.Coin != 2_000_000 {
		t.Fatalf("unexpected outputs: %+v", decoded.Outputs)
	}
}

func TestBodyOmitsAbsentOptionalFields(t *testing.T) {
	body := Body{
		Inputs:  []ledger.TransactionInput{sampleInput(7)},
		Outputs: []ledger.TransactionOutput{{Address: sampleAddress(t), Value: ledger.NewValue(1_000_000)}},
		Fee:     170000,
	}
	encoded, err := body.MarshalCBOR()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Body
	if err := decoded.UnmarshalCBOR(encoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.TTL != nil {
		t.Errorf("expected nil ttl, got %v", decoded.TTL)
	}
	if decoded.NetworkID != nil {
		t.Errorf("expected nil network id, got %v", decoded.NetworkID)
	}
	if len(decoded.Certificates) != 0 {
		t.Errorf("expected no certificates, got %d", len(decoded.Certificates))
	}
}

func TestWitnessSetRoundTrip(t *testing.T) {
	ws := WitnessSet{}
	var vkeyA, vkeyB [32]byte
	vkeyA[0], vkeyB[0] = 0x01, 0x02
	var sigA, sigB [64]byte
	sigA[0], sigB[0] = 0xAA, 0xBB
	ws.VKeyWitnesses = []VKeyWitness{{VKey: vkeyA, Signature: sigA}, {VKey: vkeyB, Signature: sigB}}
	ws.AddRedeemer(RedeemerKey{Tag: RedeemerSpend, Index: 0}, RedeemerValue{
		Data:    ledger.NewPlutusInt(42),
		ExUnits: ledger.ExUnits{Mem: 1000, Steps: 2000},
	})

	encoded, err := ws.MarshalCBOR()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded WitnessSet
	if err := decoded.UnmarshalCBOR(encoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded.VKeyWitnesses) != 2 {
		t.Fatalf("expected 2 vkey witnesses, got %d", len(decoded.VKeyWitnesses))
	}
	if len(decoded.Redeemers) != 1 {
		t.Fatalf("expected 1 redeemer, got %d", len(decoded.Redeemers))
	}
	if decoded.Redeemers[0].Value.ExUnits.Mem != 1000 {
		t.Errorf("redeemer mem units: got %d", decoded.Redeemers[0].Value.ExUnits.Mem)
	}
}

func TestApplyVKeyWitnessesLastWriteWins(t *testing.T) {
	ws := WitnessSet{}
	var key [32]byte
	key[0] = 9
	var sig1, sig2 [64]byte
	sig1[0] = 1
	sig2[0] = 2
	ws.ApplyVKeyWitnesses([]VKeyWitness{{VKey: key, Signature: sig1}})
	ws.ApplyVKeyWitnesses([]VKeyWitness{{VKey: key, Signature: sig2}})
	if len(ws.VKeyWitnesses) != 1 {
		t.Fatalf("expected single witness for duplicate key, got %d", len(ws.VKeyWitnesses))
	}
	if ws.VKeyWitnesses[0].Signature != sig2 {
		t.Error("expected last-write-wins signature to be retained")
	}
}

func TestStrictMergeVKeyWitnessesRejectsConflict(t *testing.T) {
	ws := WitnessSet{}
	var key [32]byte
	key[0] = 9
	var sig1, sig2 [64]byte
	sig1[0] = 1
	sig2[0] = 2
	if err := ws.StrictMergeVKeyWitnesses([]VKeyWitness{{VKey: key, Signature: sig1}}); err != nil {
		t.Fatalf("first merge: %v", err)
	}
	if err := ws.StrictMergeVKeyWitnesses([]VKeyWitness{{VKey: key, Signature: sig1}}); err != nil {
		t.Fatalf("identical duplicate should not error: %v", err)
	}
	if err := ws.StrictMergeVKeyWitnesses([]VKeyWitness{{VKey: key, Signature: sig2}}); err == nil {
		t.Fatal("expected conflicting signature to be rejected")
	}
}

func TestTransactionIdIsStableAcrossWitnessChanges(t *testing.T) {
	body := Body{
		Inputs:  []ledger.TransactionInput{sampleInput(3)},
		Outputs: []ledger.TransactionOutput{{Address: sampleAddress(t), Value: ledger.NewValue(5_000_000)}},
		Fee:     170000,
	}
	txn := New(body)
	idBefore, err := txn.Id()
	if err != nil {
		t.Fatalf("id: %v", err)
	}
	var vkey [32]byte
	var sig [64]byte
	txn.WitnessSet.VKeyWitnesses = append(txn.WitnessSet.VKeyWitnesses, VKeyWitness{VKey: vkey, Signature: sig})
	idAfter, err := txn.Id()
	if err != nil {
		t.Fatalf("id: %v", err)
	}
	if idBefore != idAfter {
		t.Fatal("transaction id must not depend on the witness set")
	}
}

func TestTransactionRoundTrip(t *testing.T) {
	body := Body{
		Inputs:  []ledger.TransactionInput{sampleInput(4)},
		Outputs: []ledger.TransactionOutput{{Address: sampleAddress(t), Value: ledger.NewValue(3_000_000)}},
		Fee:     170000,
	}
	txn := New(body)
	aux := NewAuxiliaryData()
	aux.SetMetadata(674, NewMetadatumMap([]MetadatumMapEntry{
		{Key: NewMetadatumText("msg"), Value: NewMetadatumText("hello")},
	}))
	txn.AuxiliaryData = aux

	encoded, err := txn.MarshalCBOR()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Transaction
	if err := decoded.UnmarshalCBOR(encoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.IsValid != true {
		t.Error("expected IsValid=true to round trip")
	}
	if decoded.AuxiliaryData == nil || decoded.AuxiliaryData.IsEmpty() {
		t.Fatal("expected auxiliary data to round trip")
	}
	reEncoded, err := decoded.MarshalCBOR()
	if err != nil {
		t.Fatalf("re-marshal: %v", err)
	}
	if !bytes.Equal(encoded, reEncoded) {
		t.Error("expected canonical re-encoding to be byte-identical")
	}
}
