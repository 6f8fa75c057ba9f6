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

package crypto

import (
	"fmt"

	"github.com/btcsuite/btcutil/base58"
)

// EncodeBase58 encodes raw bytes using the Bitcoin/Byron base58 alphabet,
// used for legacy Byron-era Cardano addresses.
func EncodeBase58(raw []byte) string {
	return base58.Encode(raw)
}

// DecodeBase58 decodes a base58 string back to raw bytes.
func DecodeBase58(s string) ([]byte, error) {
	decoded := base58.Decode(s)
	if len(decoded) == 0 && s != "" {
		return nil, fmt.Errorf("crypto: invalid base58 string %q", s)
	}
	return decoded, nil
}
