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
	"context"
	"encoding/json"
	"math/big"
	"sort"

	"github.com/blinklabs-io/txforge/coinselect"
	"github.com/blinklabs-io/txforge/crypto"
	"github.com/blinklabs-io/txforge/ledger"
	"github.com/blinklabs-io/txforge/tx"
)

// maxFeeIterations bounds the fee/size convergence loop of step 6: tx
// size is bounded and, once a provider evaluation has run, script units
// are fixed, so the fee strictly stops moving well before this many
// passes in practice.
const maxFeeIterations = 3

// placeholderSizeGuess seeds the very first target-value computation,
// before any input is known. It only needs to be in the right order of
// magnitude: the fee/size loop that runs after coin selection corrects
// whatever slack this guess leaves.
const placeholderSizeGuess = 4000

// placeholderVKeyWitnessSize is the marginal CBOR byte cost of one
// [vkey, signature] witness. Nothing in this package reads it:
// estimatedSize sizes signatures that do not exist yet by encoding
// zero-filled VKeyWitness values.
const placeholderVKeyWitnessSize = 108

// Build runs the transaction-construction algorithm over everything
// accumulated so far: resolves scripts, selects inputs, attaches
// redeemers and their script-data hash, estimates execution units
// through the provider, and converges on a fee. The returned
// transaction carries no vkey witnesses; a keyhandler signs it
// afterward.
func (b *Builder) Build(ctx context.Context) (*tx.Transaction, error) {
	return b.build(ctx, nil)
}

// CompleteExact is Build but skips the fee-convergence loop entirely,
// balancing the transaction against a caller-supplied fixed fee
// instead. Useful when the caller already knows the fee a prior dry
// run converged on and wants to avoid re-running provider evaluation.
func (b *Builder) CompleteExact(ctx context.Context, fee ledger.Coin) (*tx.Transaction, error) {
	return b.build(ctx, &fee)
}

func (b *Builder) build(ctx context.Context, fixedFee *ledger.Coin) (*tx.Transaction, error) {
	// Step 1.
	if b.failed {
		return nil, b.lastErr
	}
	if b.changeAddress == nil {
		b.fail(ErrNoChangeAddress)
		return nil, b.lastErr
	}

	ws := b.witnessSetSkeleton()

	// Step 2.
	if err := b.checkScriptsResolved(ws); err != nil {
		b.fail(err)
		return nil, err
	}

	// Step 3: initial target value, using a placeholder fee.
	depositTotal, refundTotal := b.certificateDepositBalance()
	withdrawalTotal := b.withdrawalTotal()
	mintSupply, mintBurn := splitMintSupplyBurn(b.mint)
	outputsTotal := b.outputsValue()

	need := outputsTotal.
		Add(ledger.NewValue(b.params.LinearFee(placeholderSizeGuess))).
		Add(ledger.NewValue(depositTotal)).
		Add(mintBurn)
	have := explicitInputsValue(b.pendingInputs).
		Add(ledger.NewValue(withdrawalTotal)).
		Add(ledger.NewValue(refundTotal)).
		Add(mintSupply)

	deficit, surplus := splitDeficitSurplus(need, have)

	// Step 4: coin selection covers whatever the explicit inputs,
	// withdrawals, refunds, and mint supply don't already cover.
	var selectedFromPool ledger.UTxOList
	var poolChange []ledger.Value
	if !isZeroValue(deficit) {
		pool := excludeInputs(b.pool, b.pendingInputs)
		result, err := coinselect.Select(deficit, pool, b.params.MaxValueSize, 0)
		if err != nil {
			b.fail(err)
			return nil, err
		}
		selectedFromPool = result.Selected
		poolChange = result.Change
	}

	finalInputs := append(ledger.UTxOList{}, explicitUTxOs(b.pendingInputs)...)
	finalInputs = append(finalInputs, selectedFromPool...)
	sort.Slice(finalInputs, func(i, j int) bool { return finalInputs[i].Input.Less(finalInputs[j].Input) })

	changeValues := mergeSurplusIntoChange(surplus, poolChange)
	changeOutputs := make([]ledger.TransactionOutput, len(changeValues))
	for i, v := range changeValues {
		changeOutputs[i] = ledger.TransactionOutput{Address: *b.changeAddress, Value: v}
	}

	outputs := append(append([]ledger.TransactionOutput{}, b.outputs...), changeOutputs...)

	// Attach spend/mint/withdrawal/vote redeemers now that the final
	// sorted input list (and the other canonical orderings) are known.
	b.attachRedeemers(ws, finalInputs)

	inputList := make([]ledger.TransactionInput, len(finalInputs))
	for i, u := range finalInputs {
		inputList[i] = u.Input
	}

	body := &tx.Body{
		Inputs:             inputList,
		Outputs:            outputs,
		Certificates:       b.certs,
		Withdrawals:        b.withdrawals,
		ValidityStart:      b.invalidBefore,
		TTL:                b.invalidAfter,
		Mint:               b.mint,
		ReferenceInputs:    b.referenceInputs,
		RequiredSigners:    b.requiredSigners,
		ProposalProcedures: b.proposals,
	}
	if !b.votes.IsEmpty() {
		body.VotingProcedures = b.votes
	}
	if nid, ok := b.networkID(); ok {
		body.NetworkID = &nid
	}

	// Step 5: collateral and script-data hash, only when redeemers exist.
	if len(ws.Redeemers) > 0 {
		hash, present, err := b.computeScriptDataHash(ws)
		if err != nil {
			b.fail(err)
			return nil, err
		}
		if present {
			body.ScriptDataHash = &hash
		}

		collateralPool := b.collateralPool
		if collateralPool == nil {
			collateralPool = b.pool
		}
		estimatedFee := b.params.LinearFee(placeholderSizeGuess)
		collResult, err := coinselect.SelectCollateral(collateralPool, estimatedFee, b.params.CollateralPercentage, b.params.MaxCollateralInputs)
		if err != nil {
			b.fail(err)
			return nil, err
		}
		collateralInputs := make([]ledger.TransactionInput, len(collResult.Selected))
		for i, u := range collResult.Selected {
			collateralInputs[i] = u.Input
		}
		body.CollateralInputs = collateralInputs
		if b.collateralChange != nil {
			ret := ledger.TransactionOutput{Address: *b.collateralChange, Value: ledger.NewValue(collResult.Return)}
			body.CollateralReturn = &ret
			total := collResult.Return
			body.TotalCollateral = &total
		}

		if !b.disableEstimate && b.provider != nil {
			draft := &tx.Transaction{Body: *body, WitnessSet: *ws, IsValid: true}
			units, err := b.provider.EvaluateTransaction(ctx, draft, nil)
			if err != nil {
				b.fail(err)
				return nil, err
			}
			for key, exUnits := range units {
				for i, e := range ws.Redeemers {
					if e.Key == key {
						ws.Redeemers[i].Value.ExUnits = exUnits
					}
				}
			}
			hash, present, err := b.computeScriptDataHash(ws)
			if err != nil {
				b.fail(err)
				return nil, err
			}
			if present {
				body.ScriptDataHash = &hash
			}
		}
	}

	// Step 7: auxiliary data hash.
	aux, err := b.buildAuxiliaryData()
	if err != nil {
		b.fail(err)
		return nil, err
	}
	if !aux.IsEmpty() {
		placeholder := [32]byte{}
		body.AuxDataHash = &placeholder
	}

	signerCount := len(b.impliedSigners(finalInputs))

	fee := b.params.LinearFee(placeholderSizeGuess)
	if fixedFee != nil {
		fee = *fixedFee
	}
	body.Fee = fee

	if len(changeOutputs) > 0 {
		shiftLastChange(outputs, len(b.outputs), int64(b.params.LinearFee(placeholderSizeGuess))-int64(fee))
	}

	if fixedFee == nil {
		for i := 0; i < maxFeeIterations; i++ {
			size, err := estimatedSize(body, ws, signerCount)
			if err != nil {
				b.fail(err)
				return nil, err
			}
			scriptFee := b.redeemerScriptFee(ws)
			newFee := b.params.LinearFee(size) + scriptFee
			if newFee == body.Fee {
				break
			}
			delta := int64(newFee) - int64(body.Fee)
			body.Fee = newFee
			if len(changeOutputs) > 0 {
				shiftLastChange(outputs, len(b.outputs), -delta)
			}
		}
	}

	if !aux.IsEmpty() {
		auxBytes, err := aux.MarshalCBOR()
		if err != nil {
			b.fail(err)
			return nil, err
		}
		hash := crypto.Blake2b256(auxBytes)
		body.AuxDataHash = &hash
	}

	size, err := estimatedSize(body, ws, signerCount)
	if err != nil {
		b.fail(err)
		return nil, err
	}
	if uint64(size) > b.params.MaxTxSize {
		b.fail(ErrOversizeTransaction)
		return nil, ErrOversizeTransaction
	}

	txn := tx.New(*body)
	txn.WitnessSet = *ws
	if !aux.IsEmpty() {
		txn.AuxiliaryData = aux
	}
	return txn, nil
}

func (b *Builder) checkScriptsResolved(ws *tx.WitnessSet) error {
	need := make(map[[28]byte]bool)
	for _, in := range b.pendingInputs {
		if cred, ok := in.UTxO.Output.Address.PaymentCredential(); ok && cred.IsScript() {
			need[cred.Hash] = true
		}
	}
	for _, policy := range b.mint.Policies() {
		if _, ok := b.mintReds[policy]; ok {
			need[[28]byte(policy)] = true
		}
	}
	for bech32 := range b.withdrawalReds {
		addr, err := ledger.AddressFromBech32(bech32)
		if err != nil {
			return ErrMalformedAddress
		}
		if cred, ok := addr.StakingCredential(); ok && cred.IsScript() {
			need[cred.Hash] = true
		}
	}
	for _, byHash := range b.voteReds {
		for hash := range byHash {
			need[hash] = true
		}
	}
	for hash := range need {
		if _, ok := b.resolveScript(hash); !ok {
			return ErrMissingScriptWitness
		}
	}
	return nil
}

func (b *Builder) certificateDepositBalance() (deposits, refunds ledger.Coin) {
	for _, c := range b.certs {
		switch c.Kind {
		case ledger.CertStakeRegDeposit, ledger.CertDRepRegistration:
			deposits += c.Deposit
		case ledger.CertStakeDeregDeposit, ledger.CertDRepDeregistration:
			refunds += c.Deposit
		}
	}
	return deposits, refunds
}

func (b *Builder) withdrawalTotal() ledger.Coin {
	var total ledger.Coin
	for _, amt := range b.withdrawals {
		total += amt
	}
	return total
}

func (b *Builder) outputsValue() ledger.Value {
	total := ledger.NewValue(0)
	for _, o := range b.outputs {
		total = total.Add(o.Value)
	}
	return total
}

// splitMintSupplyBurn separates a mint's positive quantities (new
// supply, reduces what must be covered by inputs) from its negative
// quantities (burns, increase what must be covered).
func splitMintSupplyBurn(mint ledger.MultiAsset) (supply, burn ledger.Value) {
	supply = ledger.NewValue(0)
	burn = ledger.NewValue(0)
	for _, p := range mint.Policies() {
		for _, n := range mint.Assets(p) {
			qty := mint.Get(p, n)
			switch qty.Sign() {
			case 1:
				supply.Assets.Set(p, n, new(big.Int).Set(qty))
			case -1:
				burn.Assets.Set(p, n, new(big.Int).Neg(qty))
			}
		}
	}
	return supply, burn
}

func explicitInputsValue(pending []pendingInput) ledger.Value {
	total := ledger.NewValue(0)
	for _, in := range pending {
		total = total.Add(in.UTxO.Output.Value)
	}
	return total
}

func explicitUTxOs(pending []pendingInput) ledger.UTxOList {
	out := make(ledger.UTxOList, len(pending))
	for i, in := range pending {
		out[i] = in.UTxO
	}
	return out
}

func excludeInputs(pool ledger.UTxOList, pending []pendingInput) ledger.UTxOList {
	used := make(map[ledger.TransactionInput]bool, len(pending))
	for _, in := range pending {
		used[in.UTxO.Input] = true
	}
	out := make(ledger.UTxOList, 0, len(pool))
	for _, u := range pool {
		if !used[u.Input] {
			out = append(out, u)
		}
	}
	return out
}

// splitDeficitSurplus computes, per component, how much of need is not
// already covered by have (deficit) and how much have exceeds need by
// (surplus). Unlike ledger.Value.Sub this never lets the coin component
// wrap around: a negative difference is routed to the other return
// value instead.
func splitDeficitSurplus(need, have ledger.Value) (deficit, surplus ledger.Value) {
	deficit = ledger.NewValue(0)
	surplus = ledger.NewValue(0)
	if have.Coin >= need.Coin {
		surplus.Coin = have.Coin - need.Coin
	} else {
		deficit.Coin = need.Coin - have.Coin
	}

	policies := make(map[ledger.PolicyID]bool)
	for _, p := range need.Assets.Policies() {
		policies[p] = true
	}
	for _, p := range have.Assets.Policies() {
		policies[p] = true
	}
	for p := range policies {
		names := make(map[ledger.AssetName]bool)
		for _, n := range need.Assets.Assets(p) {
			names[n] = true
		}
		for _, n := range have.Assets.Assets(p) {
			names[n] = true
		}
		for n := range names {
			wantQty := need.Assets.Get(p, n)
			haveQty := have.Assets.Get(p, n)
			if haveQty.Cmp(wantQty) >= 0 {
				diff := new(big.Int).Sub(haveQty, wantQty)
				if diff.Sign() > 0 {
					surplus.Assets.Set(p, n, diff)
				}
			} else {
				diff := new(big.Int).Sub(wantQty, haveQty)
				deficit.Assets.Set(p, n, diff)
			}
		}
	}
	return deficit, surplus
}

func isZeroValue(v ledger.Value) bool {
	return v.Coin == 0 && v.Assets.IsEmpty()
}

// mergeSurplusIntoChange folds value already covered by explicit
// inputs, withdrawals, refunds, or minted supply into the change list
// coin selection produced, so a single transaction never produces two
// redundant change outputs for the same reason.
func mergeSurplusIntoChange(surplus ledger.Value, poolChange []ledger.Value) []ledger.Value {
	if isZeroValue(surplus) {
		return poolChange
	}
	if len(poolChange) == 0 {
		return []ledger.Value{surplus}
	}
	out := append([]ledger.Value{}, poolChange...)
	out[0] = out[0].Add(surplus)
	return out
}

func adjustChangeCoin(outputs []ledger.TransactionOutput, changeStart int, fee ledger.Coin) {
	if changeStart >= len(outputs) {
		return
	}
	last := len(outputs) - 1
	if outputs[last].Value.Coin >= fee {
		outputs[last].Value.Coin -= fee
	}
}

func shiftLastChange(outputs []ledger.TransactionOutput, changeStart int, delta int64) {
	if changeStart >= len(outputs) {
		return
	}
	last := len(outputs) - 1
	if delta >= 0 {
		outputs[last].Value.Coin += ledger.Coin(delta)
		return
	}
	dec := ledger.Coin(-delta)
	if outputs[last].Value.Coin >= dec {
		outputs[last].Value.Coin -= dec
	}
}

// attachRedeemers writes the spend/mint/withdrawal/vote redeemers
// gathered during configuration onto ws, using the canonical index of
// each redeemer's subject within the body's corresponding ordered list.
func (b *Builder) attachRedeemers(ws *tx.WitnessSet, finalInputs ledger.UTxOList) {
	for i, u := range finalInputs {
		for _, in := range b.pendingInputs {
			if in.UTxO.Input == u.Input && in.Redeemer != nil {
				ws.AddRedeemer(tx.RedeemerKey{Tag: tx.RedeemerSpend, Index: uint64(i)}, tx.RedeemerValue{Data: *in.Redeemer})
			}
		}
	}
	for i, policy := range b.mint.Policies() {
		if red, ok := b.mintReds[policy]; ok {
			ws.AddRedeemer(tx.RedeemerKey{Tag: tx.RedeemerMint, Index: uint64(i)}, tx.RedeemerValue{Data: *red})
		}
	}
	if len(b.withdrawalReds) > 0 {
		keys := make([]string, 0, len(b.withdrawals))
		for k := range b.withdrawals {
			keys = append(keys, k)
		}
		type keyed struct {
			bech32 string
			raw    []byte
		}
		entries := make([]keyed, 0, len(keys))
		for _, k := range keys {
			addr, err := ledger.AddressFromBech32(k)
			if err != nil {
				continue
			}
			raw, err := addr.Bytes()
			if err != nil {
				continue
			}
			entries = append(entries, keyed{bech32: k, raw: raw})
		}
		sort.Slice(entries, func(i, j int) bool { return string(entries[i].raw) < string(entries[j].raw) })
		for i, e := range entries {
			if red, ok := b.withdrawalReds[e.bech32]; ok {
				ws.AddRedeemer(tx.RedeemerKey{Tag: tx.RedeemerReward, Index: uint64(i)}, tx.RedeemerValue{Data: *red})
			}
		}
	}
	for i, e := range b.votes.Entries() {
		if byHash, ok := b.voteReds[e.Voter.Kind]; ok {
			if red, ok := byHash[e.Voter.Hash]; ok {
				ws.AddRedeemer(tx.RedeemerKey{Tag: tx.RedeemerVoting, Index: uint64(i)}, tx.RedeemerValue{Data: *red})
			}
		}
	}
}

// redeemerScriptFee sums the configured execution-unit prices over
// every redeemer currently attached to ws.
func (b *Builder) redeemerScriptFee(ws *tx.WitnessSet) ledger.Coin {
	var total ledger.ExUnits
	for _, e := range ws.Redeemers {
		total.Mem += e.Value.ExUnits.Mem
		total.Steps += e.Value.ExUnits.Steps
	}
	return b.params.ScriptFee(total)
}

func (b *Builder) networkID() (byte, bool) {
	if b.changeAddress == nil {
		return 0, false
	}
	net, err := b.changeAddress.NetworkID()
	if err != nil {
		return 0, false
	}
	return byte(net), true
}

func (b *Builder) buildAuxiliaryData() (*tx.AuxiliaryData, error) {
	aux := tx.NewAuxiliaryData()
	for _, m := range b.metadata {
		var v any
		if err := json.Unmarshal(m.JSON, &v); err != nil {
			return nil, err
		}
		metadatum, err := metadatumFromJSON(v)
		if err != nil {
			return nil, err
		}
		aux.SetMetadata(m.Label, metadatum)
	}
	return aux, nil
}

func (b *Builder) impliedSigners(finalInputs ledger.UTxOList) map[[28]byte]bool {
	signers := make(map[[28]byte]bool)
	for _, h := range b.requiredSigners {
		signers[h] = true
	}
	for _, u := range finalInputs {
		if cred, ok := u.Output.Address.PaymentCredential(); ok && !cred.IsScript() {
			signers[cred.Hash] = true
		}
	}
	for k := range b.withdrawals {
		addr, err := ledger.AddressFromBech32(k)
		if err != nil {
			continue
		}
		if cred, ok := addr.StakingCredential(); ok && !cred.IsScript() {
			signers[cred.Hash] = true
		}
	}
	for _, c := range b.certs {
		if !c.StakeCredential.IsScript() && c.StakeCredential != (ledger.Credential{}) {
			signers[c.StakeCredential.Hash] = true
		}
		if !c.DRepCredential.IsScript() && c.DRepCredential != (ledger.Credential{}) {
			signers[c.DRepCredential.Hash] = true
		}
		switch c.Kind {
		case ledger.CertPoolRegistration:
			signers[c.PoolParams.Operator] = true
		case ledger.CertPoolRetirement:
			signers[c.PoolKeyHash] = true
		}
	}
	for _, e := range b.votes.Entries() {
		if e.Voter.Kind == ledger.VoterDRepKeyHash || e.Voter.Kind == ledger.VoterCommitteeHotKeyHash || e.Voter.Kind == ledger.VoterStakePoolKeyHash {
			signers[e.Voter.Hash] = true
		}
	}
	return signers
}

// estimatedSize serializes a draft transaction carrying extraSigners
// placeholder (zero-byte) vkey witnesses alongside ws, for use as the
// size input to the ledger fee formula.
func estimatedSize(body *tx.Body, ws *tx.WitnessSet, extraSigners int) (int, error) {
	draftWs := *ws
	draftWs.VKeyWitnesses = make([]tx.VKeyWitness, extraSigners)
	txn := &tx.Transaction{Body: *body, WitnessSet: draftWs, IsValid: true}
	raw, err := txn.MarshalCBOR()
	if err != nil {
		return 0, err
	}
	return len(raw), nil
}
