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

package ledger

// ExUnits are the execution-unit budget a redeemer is charged: memory
// units and CPU steps.
type ExUnits struct {
	Mem   uint64
	Steps uint64
}

// ExUnitPrices converts execution units into lovelace, expressed as
// rational coefficients per the CDDL's tag-30 unit_interval encoding.
type ExUnitPrices struct {
	MemNumerator   int64
	MemDenominator int64
	StepNumerator   int64
	StepDenominator int64
}

// CostModel is the flat list of integer cost-model arguments for one
// Plutus language version, order-significant per that language's spec.
type CostModel []int64

// ProtocolParameters is the subset of on-chain protocol parameters a
// transaction builder needs: fee coefficients, size and deposit limits,
// collateral rules, and Plutus execution pricing.
type ProtocolParameters struct {
	MinFeeA                 uint64
	MinFeeB                  uint64
	MaxTxSize                uint64
	MaxValueSize             uint64
	CoinsPerUTxOByte          uint64
	PoolDeposit              Coin
	KeyDeposit               Coin
	CollateralPercentage     uint64
	MaxCollateralInputs      int
	ExecutionPrices          ExUnitPrices
	MaxTxExecutionUnits      ExUnits
	CostModels               map[PlutusLanguage]CostModel
	DRepDeposit              Coin
	GovActionDeposit         Coin
	MinCommitteeSize         uint64
}

// MinUTxOCoin returns the minimum lovelace an output of the given
// serialized byte size must carry, per the linear coins-per-byte rule.
func (p ProtocolParameters) MinUTxOCoin(outputSize int) Coin {
	const minUTxOConstantOverhead = 160
	return Coin(uint64(outputSize+minUTxOConstantOverhead) * p.CoinsPerUTxOByte)
}

// LinearFee computes a*size+b, the base transaction fee before any
// script execution surcharge.
func (p ProtocolParameters) LinearFee(size int) Coin {
	return Coin(p.MinFeeA*uint64(size) + p.MinFeeB)
}

// ScriptFee converts a total execution-unit budget into its lovelace
// cost using the configured per-unit prices.
func (p ProtocolParameters) ScriptFee(total ExUnits) Coin {
	memCost := (int64(total.Mem) * p.ExecutionPrices.MemNumerator) / p.ExecutionPrices.MemDenominator
	stepCost := (int64(total.Steps) * p.ExecutionPrices.StepNumerator) / p.ExecutionPrices.StepDenominator
	return Coin(memCost + stepCost)
}
