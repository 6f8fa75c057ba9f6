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

// Package store is a badger-backed local store for the demo binary:
// the keyhandler's sealed blob, and a best-effort UTxO cache keyed by
// address so repeated runs don't always hit the provider cold. Neither
// is required for correctness — txbuilder always accepts a caller-
// supplied ledger.UTxOList regardless of where it came from — this is
// purely a convenience layer for cmd/txforge-demo.
package store

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/blinklabs-io/txforge/cbor"
	"github.com/blinklabs-io/txforge/internal/logging"
	"github.com/blinklabs-io/txforge/ledger"
)

const (
	sealedBlobKey    = "keyhandler_sealed_blob"
	utxoKeyPrefix    = "utxo_"
	addressKeyPrefix = "address_"
)

// Store wraps a single badger database holding the sealed key-handler
// blob and a per-address UTxO cache.
type Store struct {
	db *badger.DB
}

// Open opens (creating if necessary) a badger database rooted at dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).
		WithLogger(newBadgerLogger()).
		WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("store: opening %s: %w", dir, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveSealedBlob persists a keyhandler.SoftwareHandler.Serialize()
// result so a later run can keyhandler.Deserialize it without asking
// the operator for their mnemonic again.
func (s *Store) SaveSealedBlob(sealed []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(sealedBlobKey), sealed)
	})
}

// LoadSealedBlob returns the previously saved sealed blob, or
// (nil, nil) if none has been saved yet.
func (s *Store) LoadSealedBlob() ([]byte, error) {
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(sealedBlobKey))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		return item.Value(func(v []byte) error {
			out = append([]byte{}, v...)
			return nil
		})
	})
	return out, err
}

// cachedUTxO is the CBOR shape a cache entry is stored under: the
// input and output together, so a lookup never needs to reconstruct
// the input from its key.
type cachedUTxO struct {
	Input  ledger.TransactionInput
	Output ledger.TransactionOutput
}

func (c cachedUTxO) MarshalCBOR() ([]byte, error) {
	w := cbor.NewWriter()
	w.ArrayHeader(2)
	w.Value(c.Input)
	w.Value(c.Output)
	return w.Bytes(), w.Err()
}

func (c *cachedUTxO) UnmarshalCBOR(data []byte) error {
	r := cbor.NewReader(data)
	if err := r.ValidateArrayOfN("cachedUTxO", 2); err != nil {
		return err
	}
	inputRaw, err := r.ReadEncodedValue()
	if err != nil {
		return err
	}
	if err := c.Input.UnmarshalCBOR(inputRaw); err != nil {
		return err
	}
	outputRaw, err := r.ReadEncodedValue()
	if err != nil {
		return err
	}
	if err := c.Output.UnmarshalCBOR(outputRaw); err != nil {
		return err
	}
	return r.ValidateEndArray("cachedUTxO")
}

// utxoKey and addressIndexKey derive the two keys a cached UTxO is
// stored under: the UTxO itself, and its membership in the per-address
// index used by ListByAddress.
func utxoKey(u ledger.TransactionInput) string {
	return fmt.Sprintf("%s%x.%d", utxoKeyPrefix, u.TxId, u.Index)
}

func addressIndexKey(addr string) string {
	return addressKeyPrefix + addr
}

// CacheUTxOs records each UTxO keyed by its input, and adds its key to
// the owning address's index so ListByAddress can find it again
// without an iterator scan over the whole database.
func (s *Store) CacheUTxOs(addr string, utxos ledger.UTxOList) error {
	logger := logging.GetLogger()
	return s.db.Update(func(txn *badger.Txn) error {
		var refs []string
		if item, err := txn.Get([]byte(addressIndexKey(addr))); err == nil {
			if err := item.Value(func(v []byte) error {
				_, err := cbor.Decode(v, &refs)
				return err
			}); err != nil {
				return err
			}
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		for _, u := range utxos {
			key := utxoKey(u.Input)
			raw, err := (cachedUTxO{Input: u.Input, Output: u.Output}).MarshalCBOR()
			if err != nil {
				return err
			}
			if err := txn.Set([]byte(key), raw); err != nil {
				return err
			}
			if !contains(refs, key) {
				refs = append(refs, key)
			}
		}

		refBytes, err := cbor.Encode(refs)
		if err != nil {
			return err
		}
		logger.Debugf("cached %d utxo(s) for %s", len(utxos), addr)
		return txn.Set([]byte(addressIndexKey(addr)), refBytes)
	})
}

// ListByAddress returns every cached UTxO previously recorded for
// addr via CacheUTxOs, in no particular order.
func (s *Store) ListByAddress(addr string) (ledger.UTxOList, error) {
	var out ledger.UTxOList
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(addressIndexKey(addr)))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		var refs []string
		if err := item.Value(func(v []byte) error {
			_, err := cbor.Decode(v, &refs)
			return err
		}); err != nil {
			return err
		}
		for _, key := range refs {
			utxoItem, err := txn.Get([]byte(key))
			if err != nil {
				if err == badger.ErrKeyNotFound {
					continue
				}
				return err
			}
			var cached cachedUTxO
			if err := utxoItem.Value(func(v []byte) error {
				return cached.UnmarshalCBOR(v)
			}); err != nil {
				return err
			}
			out = append(out, ledger.UTxO{Input: cached.Input, Output: cached.Output})
		}
		return nil
	})
	return out, err
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// badgerLogger adapts *logging.Logger to badger's expected interface.
type badgerLogger struct {
	*logging.Logger
}

func newBadgerLogger() *badgerLogger {
	return &badgerLogger{Logger: logging.GetLogger()}
}

func (b *badgerLogger) Warningf(msg string, args ...any) {
	b.Logger.Warnf(msg, args...)
}
