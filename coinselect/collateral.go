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

package coinselect

import (
	"errors"

	"github.com/blinklabs-io/txforge/ledger"
)

// ErrNoCollateralCandidates is returned when the pool contains no
// pure-coin UTxOs at all, so collateral selection cannot proceed
// regardless of how much is required.
var ErrNoCollateralCandidates = errors.New("coinselect: no pure-coin utxos available for collateral")

// CollateralResult is the outcome of a successful SelectCollateral.
type CollateralResult struct {
	// Selected is the chosen pure-coin collateral inputs, in selection
	// order.
	Selected ledger.UTxOList
	// Return is the collateral-return output value: the excess coin
	// left over once the fee is covered.
	Return ledger.Coin
}

// SelectCollateral chooses up to maxCollateralInputs pure-coin UTxOs
// from pool whose summed coin covers fee * collateralPercentage / 100
// (rounded up), per spec.md §4.8. maxCollateralInputs <= 0 means
// unlimited.
func SelectCollateral(pool ledger.UTxOList, fee ledger.Coin, collateralPercentage uint64, maxCollateralInputs int) (*CollateralResult, error) {
	pureCoin, _ := partition(pool)
	if len(pureCoin) == 0 {
		return nil, ErrNoCollateralCandidates
	}
	sortDescCoinThenInputAsc(pureCoin)

	required := requiredCollateral(fee, collateralPercentage)

	var selected ledger.UTxOList
	var sum ledger.Coin
	for _, u := range pureCoin {
		if sum >= required {
			break
		}
		selected = append(selected, u)
		sum += u.Output.Value.Coin
	}

	if sum < required {
		return nil, &ShortfallError{Shortfall: ledger.Value{Coin: required - sum, Assets: ledger.NewMultiAsset()}}
	}
	if maxCollateralInputs > 0 && len(selected) > maxCollateralInputs {
		return nil, ErrTooManyInputs
	}

	var ret ledger.Coin
	if sum > fee {
		ret = sum - fee
	}
	return &CollateralResult{Selected: selected, Return: ret}, nil
}

// requiredCollateral computes ceil(fee * collateralPercentage / 100).
func requiredCollateral(fee ledger.Coin, collateralPercentage uint64) ledger.Coin {
	numerator := uint64(fee) * collateralPercentage
	return ledger.Coin((numerator + 99) / 100)
}
