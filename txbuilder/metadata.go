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
	"encoding/json"
	"fmt"
	"math/big"
	"sort"

	"github.com/blinklabs-io/txforge/tx"
)

// SetMetadataEx converts jsonBytes into a transaction_metadatum tree and
// stores it under label; the hash of the resulting auxiliary data is
// attached to body key 7 at build time.
func (b *Builder) SetMetadataEx(label uint64, jsonBytes []byte) *Builder {
	var v any
	if err := json.Unmarshal(jsonBytes, &v); err != nil {
		b.fail(fmt.Errorf("txbuilder: metadata label %d: %w", label, err))
		return b
	}
	b.metadata = append(b.metadata, metadataIntent{Label: label, JSON: jsonBytes})
	_ = v
	return b
}

// metadatumFromJSON recursively converts a decoded JSON value into a
// Metadatum tree, per the no-ambiguity subset of transaction metadata
// (JSON numbers become integers when they carry no fractional part,
// object keys become text metadatum keys).
func metadatumFromJSON(v any) (tx.Metadatum, error) {
	switch t := v.(type) {
	case nil:
		return tx.NewMetadatumText(""), nil
	case bool:
		if t {
			return tx.NewMetadatumInt(1), nil
		}
		return tx.NewMetadatumInt(0), nil
	case float64:
		if t == float64(int64(t)) {
			return tx.NewMetadatumInt(int64(t)), nil
		}
		return tx.Metadatum{}, fmt.Errorf("txbuilder: metadata does not support fractional numbers: %v", t)
	case json.Number:
		i, err := t.Int64()
		if err != nil {
			return tx.Metadatum{}, fmt.Errorf("txbuilder: metadata does not support non-integer numbers: %v", t)
		}
		return tx.NewMetadatumInt(i), nil
	case string:
		return tx.NewMetadatumText(t), nil
	case []any:
		items := make([]tx.Metadatum, 0, len(t))
		for _, item := range t {
			m, err := metadatumFromJSON(item)
			if err != nil {
				return tx.Metadatum{}, err
			}
			items = append(items, m)
		}
		return tx.NewMetadatumList(items), nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		entries := make([]tx.MetadatumMapEntry, 0, len(keys))
		for _, k := range keys {
			val, err := metadatumFromJSON(t[k])
			if err != nil {
				return tx.Metadatum{}, err
			}
			entries = append(entries, tx.MetadatumMapEntry{Key: tx.NewMetadatumText(k), Value: val})
		}
		return tx.NewMetadatumMap(entries), nil
	default:
		return tx.Metadatum{}, fmt.Errorf("txbuilder: unsupported metadata JSON value of type %T", v)
	}
}

// bigIntMetadatum wraps an arbitrary-precision integer as an integer
// metadatum. It is unexported and nothing in this package calls it;
// metadatumFromJSON produces only int64-range integers.
func bigIntMetadatum(v *big.Int) tx.Metadatum {
	return tx.Metadatum{Kind: tx.MetadatumInt, Int: new(big.Int).Set(v)}
}
