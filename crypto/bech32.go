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

	"github.com/btcsuite/btcutil/bech32"
)

// Human-readable prefixes used across the Cardano address/credential
// encodings this module produces or consumes. Unlike segwit, Cardano's
// bech32 payloads carry no embedded witness-version byte: the raw
// address/credential bytes are 8-to-5 bit converted directly.
const (
	HRPAddrMainnet    = "addr"
	HRPAddrTestnet    = "addr_test"
	HRPStakeMainnet   = "stake"
	HRPStakeTestnet   = "stake_test"
	HRPPool           = "pool"
	HRPDRep           = "drep"
	HRPDRepScript     = "drep_script"
	HRPCommitteeCold  = "cc_cold"
	HRPCommitteeHot   = "cc_hot"
	HRPGovAction      = "gov_action"
)

// EncodeBech32 converts raw bytes to a bech32 string under the given
// human-readable prefix.
func EncodeBech32(hrp string, raw []byte) (string, error) {
	converted, err := bech32.ConvertBits(raw, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("crypto: bech32 bit conversion: %w", err)
	}
	encoded, err := bech32.Encode(hrp, converted)
	if err != nil {
		return "", fmt.Errorf("crypto: bech32 encode: %w", err)
	}
	return encoded, nil
}

// DecodeBech32 recovers the human-readable prefix and raw bytes from a
// bech32 string.
func DecodeBech32(s string) (hrp string, raw []byte, err error) {
	hrp, data, err := bech32.Decode(s)
	if err != nil {
		return "", nil, fmt.Errorf("crypto: bech32 decode: %w", err)
	}
	raw, err = bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return "", nil, fmt.Errorf("crypto: bech32 bit conversion: %w", err)
	}
	return hrp, raw, nil
}
