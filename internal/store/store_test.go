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

package store

import (
	"testing"

	"github.com/blinklabs-io/txforge/ledger"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testUTxO(t *testing.T, seed byte, coin ledger.Coin) ledger.UTxO {
	t.Helper()
	var txid [32]byte
	txid[0] = seed
	var hash [28]byte
	hash[0] = seed
	addr := ledger.NewEnterpriseAddress(ledger.NetworkTestnet, ledger.NewKeyHashCredential(hash))
	return ledger.UTxO{
		Input:  ledger.TransactionInput{TxId: txid, Index: 0},
		Output: ledger.TransactionOutput{Address: addr, Value: ledger.NewValue(coin)},
	}
}

func TestLoadSealedBlobMissingReturnsNilNil(t *testing.T) {
	s := openTestStore(t)
	blob, err := s.LoadSealedBlob()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if blob != nil {
		t.Fatalf("expected nil blob, got %v", blob)
	}
}

func TestSaveAndLoadSealedBlobRoundTrips(t *testing.T) {
	s := openTestStore(t)
	want := []byte{0x01, 0x02, 0x03, 0xFF}
	if err := s.SaveSealedBlob(want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.LoadSealedBlob()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestListByAddressUnknownReturnsEmpty(t *testing.T) {
	s := openTestStore(t)
	utxos, err := s.ListByAddress("addr_test1unknown")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(utxos) != 0 {
		t.Fatalf("expected no cached utxos, got %d", len(utxos))
	}
}

func TestCacheUTxOsRoundTripsThroughListByAddress(t *testing.T) {
	s := openTestStore(t)
	const addr = "addr_test1cachekey"
	u1 := testUTxO(t, 1, 5_000_000)
	u2 := testUTxO(t, 2, 7_500_000)

	if err := s.CacheUTxOs(addr, ledger.UTxOList{u1, u2}); err != nil {
		t.Fatalf("cache: %v", err)
	}

	got, err := s.ListByAddress(addr)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 cached utxos, got %d", len(got))
	}

	seen := map[byte]ledger.Coin{}
	for _, u := range got {
		seen[u.Input.TxId[0]] = u.Output.Value.Coin
	}
	if seen[1] != 5_000_000 || seen[2] != 7_500_000 {
		t.Fatalf("unexpected cached values: %v", seen)
	}
}

func TestCacheUTxOsIsIdempotentPerKey(t *testing.T) {
	s := openTestStore(t)
	const addr = "addr_test1idempotent"
	u := testUTxO(t, 3, 1_000_000)

	if err := s.CacheUTxOs(addr, ledger.UTxOList{u}); err != nil {
		t.Fatalf("cache first: %v", err)
	}
	if err := s.CacheUTxOs(addr, ledger.UTxOList{u}); err != nil {
		t.Fatalf("cache second: %v", err)
	}

	got, err := s.ListByAddress(addr)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected the address index to dedupe the repeated key, got %d entries", len(got))
	}
}

func TestCacheUTxOsSeparatesAddresses(t *testing.T) {
	s := openTestStore(t)
	u1 := testUTxO(t, 4, 1_000_000)
	u2 := testUTxO(t, 5, 2_000_000)

	if err := s.CacheUTxOs("addr_test1a", ledger.UTxOList{u1}); err != nil {
		t.Fatalf("cache a: %v", err)
	}
	if err := s.CacheUTxOs("addr_test1b", ledger.UTxOList{u2}); err != nil {
		t.Fatalf("cache b: %v", err)
	}

	gotA, err := s.ListByAddress("addr_test1a")
	if err != nil {
		t.Fatalf("list a: %v", err)
	}
	if len(gotA) != 1 || gotA[0].Input.TxId[0] != 4 {
		t.Fatalf("unexpected contents for addr_test1a: %v", gotA)
	}

	gotB, err := s.ListByAddress("addr_test1b")
	if err != nil {
		t.Fatalf("list b: %v", err)
	}
	if len(gotB) != 1 || gotB[0].Input.TxId[0] != 5 {
		t.Fatalf("unexpected contents for addr_test1b: %v", gotB)
	}
}
