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
	"fmt"

	"github.com/blinklabs-io/txforge/ledger"
)

// Network magic constants, per spec.md §6.
const (
	NetworkMagicMainnet uint32 = 764824073
	NetworkMagicPreprod uint32 = 1
	NetworkMagicPreview uint32 = 2
)

// epochParams carries the Shelley-era slot-to-time conversion constants
// for one network: the unix time of slot 0 and the slot length.
type epochParams struct {
	shelleyEpoch int64 // unix seconds at slot 0 of the Shelley era
	slotLength   int64 // seconds per slot
}

var (
	mainnetEpoch = epochParams{shelleyEpoch: 1596059091, slotLength: 1}
	preprodEpoch = epochParams{shelleyEpoch: 1654041600, slotLength: 1}
	previewEpoch = epochParams{shelleyEpoch: 1666656000, slotLength: 1}
)

// SlotFromUnixTime converts a posix timestamp to an absolute slot
// number for the given network, per spec.md §6's network-magic table.
// Byron-era slot arithmetic does not apply here: every network's
// Shelley hard-fork boundary is already folded into its epoch constant,
// matching how a provider's own tip typically reports slots for
// network-aware callers.
func SlotFromUnixTime(network ledger.Network, unixSeconds int64) (uint64, error) {
	var params epochParams
	switch network {
	case ledger.NetworkMainnet:
		params = mainnetEpoch
	case ledger.NetworkTestnet:
		params = preprodEpoch
	default:
		return 0, fmt.Errorf("txbuilder: unknown network %v", network)
	}
	if unixSeconds < params.shelleyEpoch {
		return 0, fmt.Errorf("txbuilder: timestamp %d predates the Shelley era", unixSeconds)
	}
	return uint64((unixSeconds - params.shelleyEpoch) / params.slotLength), nil
}

// PreviewSlotFromUnixTime converts a posix timestamp to a Preview
// testnet slot number; Preview is not distinguishable from Preprod via
// ledger.Network alone (both are "testnet"), so callers targeting
// Preview call this directly instead of SlotFromUnixTime.
func PreviewSlotFromUnixTime(unixSeconds int64) (uint64, error) {
	if unixSeconds < previewEpoch.shelleyEpoch {
		return 0, fmt.Errorf("txbuilder: timestamp %d predates Preview's epoch", unixSeconds)
	}
	return uint64((unixSeconds - previewEpoch.shelleyEpoch) / previewEpoch.slotLength), nil
}
