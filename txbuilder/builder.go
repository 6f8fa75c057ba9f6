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

// Package txbuilder is the transaction builder: the component that
// turns a sequence of intents (spend this, pay that, delegate here,
// vote there) into a balanced, fee-correct, canonically encoded
// Cardano transaction. Configuration setters never return an error;
// the first failure sticks in a deferred-error slot and is surfaced
// only when Build is finally called, matching the contract of the
// reference builders this package's surface is modeled on.
package txbuilder

import (
	"github.com/blinklabs-io/txforge/ledger"
	"github.com/blinklabs-io/txforge/provider"
	"github.com/blinklabs-io/txforge/tx"
)

// pendingInput is a spendable input paired with the witness material it
// needs at build time.
type pendingInput struct {
	UTxO     ledger.UTxO
	Redeemer *ledger.PlutusData
	Datum    *ledger.PlutusData
}

// mintEntry records one policy's worth of minting intents plus its
// optional redeemer.
type mintEntry struct {
	Policy   ledger.PolicyID
	Redeemer *ledger.PlutusData
}

// Builder accumulates transaction-construction intent and produces a
// finished Transaction from Build. A Builder is single-use: once Build
// succeeds or fails it should be discarded rather than reused.
type Builder struct {
	provider provider.Provider
	params   ledger.ProtocolParameters

	pool             ledger.UTxOList
	collateralPool   ledger.UTxOList
	changeAddress    *ledger.Address
	collateralChange *ledger.Address

	pendingInputs   []pendingInput
	referenceInputs []ledger.TransactionInput
	outputs         []ledger.TransactionOutput

	mint      ledger.MultiAsset
	mintReds  map[ledger.PolicyID]*ledger.PlutusData
	certs     []ledger.Certificate
	withdrawals map[string]ledger.Coin
	withdrawalReds map[string]*ledger.PlutusData
	proposals []ledger.ProposalProcedure
	votes     *ledger.VotingProcedures
	voteReds  map[ledger.VoterKind]map[[28]byte]*ledger.PlutusData

	requiredSigners [][28]byte
	invalidAfter    *uint64
	invalidBefore   *uint64

	scripts map[[28]byte]ledger.Script

	metadata      []metadataIntent
	disableEstimate bool

	lastErr error
	failed  bool
}

type metadataIntent struct {
	Label uint64
	JSON  []byte
}

// New returns a Builder that draws chain data from p (which may be nil
// if the caller intends to supply UTxOs and parameters directly) and
// balances against params.
func New(p provider.Provider, params ledger.ProtocolParameters) *Builder {
	return &Builder{
		provider:       p,
		params:         params,
		mint:           ledger.NewMultiAsset(),
		mintReds:       make(map[ledger.PolicyID]*ledger.PlutusData),
		withdrawals:    make(map[string]ledger.Coin),
		withdrawalReds: make(map[string]*ledger.PlutusData),
		votes:          ledger.NewVotingProcedures(),
		voteReds:       make(map[ledger.VoterKind]map[[28]byte]*ledger.PlutusData),
		scripts:        make(map[[28]byte]ledger.Script),
	}
}

// fail records the first deferred error. Later calls are no-ops so the
// original failure is what Build eventually reports.
func (b *Builder) fail(err error) {
	if err == nil {
		return
	}
	if !b.failed {
		b.failed = true
		b.lastErr = err
	}
}

// LastError returns the first recorded deferred error, or nil
// if every setter so far has succeeded.
func (b *Builder) LastError() error {
	return b.lastErr
}

// SetUTxOs replaces the candidate pool coin selection draws from.
func (b *Builder) SetUTxOs(list ledger.UTxOList) *Builder {
	b.pool = list
	return b
}

// SetChangeAddress sets the address change outputs are sent to.
func (b *Builder) SetChangeAddress(addr ledger.Address) *Builder {
	b.changeAddress = &addr
	return b
}

// SetChangeAddressEx parses a bech32 address before delegating to
// SetChangeAddress, deferring any parse failure.
func (b *Builder) SetChangeAddressEx(bech32 string) *Builder {
	addr, err := ledger.AddressFromBech32(bech32)
	if err != nil {
		b.fail(ErrMalformedAddress)
		return b
	}
	return b.SetChangeAddress(addr)
}

// SetCollateralUTxOs replaces the candidate pool collateral selection
// draws from; only consulted when the built transaction carries a
// redeemer.
func (b *Builder) SetCollateralUTxOs(list ledger.UTxOList) *Builder {
	b.collateralPool = list
	return b
}

// SetCollateralChangeAddress sets the address the collateral-return
// output is sent to.
func (b *Builder) SetCollateralChangeAddress(addr ledger.Address) *Builder {
	b.collateralChange = &addr
	return b
}

// SetInvalidAfter sets body key 3 (ttl) directly to a slot number.
func (b *Builder) SetInvalidAfter(slot uint64) *Builder {
	b.invalidAfter = &slot
	return b
}

// SetInvalidBefore sets body key 8 (validity interval start) directly
// to a slot number.
func (b *Builder) SetInvalidBefore(slot uint64) *Builder {
	b.invalidBefore = &slot
	return b
}

// SetInvalidAfterEx converts a unix-seconds timestamp to a slot using
// the network's epoch constants and sets body key 3.
func (b *Builder) SetInvalidAfterEx(network ledger.Network, unixSeconds int64) *Builder {
	slot, err := SlotFromUnixTime(network, unixSeconds)
	if err != nil {
		b.fail(err)
		return b
	}
	return b.SetInvalidAfter(slot)
}

// AddReferenceInput appends a UTxO to the reference-input set. A script
// reachable only via a reference input's output script-ref does not
// need its own witness-set entry.
func (b *Builder) AddReferenceInput(u ledger.UTxO) *Builder {
	b.referenceInputs = append(b.referenceInputs, u.Input)
	if u.Output.ScriptRef != nil {
		if hash, err := u.Output.ScriptRef.Script.Hash(); err == nil {
			b.scripts[hash] = u.Output.ScriptRef.Script
		}
	}
	return b
}

// AddScript registers a script with the in-memory resolver so build can
// supply it as a witness-set entry (or confirm it is reachable by
// reference) for any redeemer or spending input that names its hash.
func (b *Builder) AddScript(s ledger.Script) *Builder {
	hash, err := s.Hash()
	if err != nil {
		b.fail(err)
		return b
	}
	b.scripts[hash] = s
	return b
}

// AddRequiredSigner records an additional key hash that must appear in
// the implied-signer set regardless of whether it spends an input.
func (b *Builder) AddRequiredSigner(keyHash [28]byte) *Builder {
	b.requiredSigners = append(b.requiredSigners, keyHash)
	return b
}

// DisableExecutionUnitsEstimation skips the build algorithm's step-5c
// provider.EvaluateTransaction call, using whatever execution units
// were already attached to each redeemer.
func (b *Builder) DisableExecutionUnitsEstimation() *Builder {
	b.disableEstimate = true
	return b
}

// resolveScript looks up a script by hash, checking explicitly
// registered scripts first and falling back to any reference-input
// script ref already folded into the same map by AddReferenceInput.
func (b *Builder) resolveScript(hash [28]byte) (ledger.Script, bool) {
	s, ok := b.scripts[hash]
	return s, ok
}

// witnessSetSkeleton assembles the portion of the witness set derivable
// purely from registered scripts and pending-input/mint/withdrawal/vote
// redeemers, before coin selection or fee balancing runs.
func (b *Builder) witnessSetSkeleton() *tx.WitnessSet {
	ws := &tx.WitnessSet{}
	seen := make(map[[28]byte]bool)
	addScript := func(hash [28]byte) {
		if seen[hash] {
			return
		}
		s, ok := b.scripts[hash]
		if !ok {
			return
		}
		seen[hash] = true
		switch s.Kind {
		case ledger.ScriptKindNative:
			ws.NativeScripts = append(ws.NativeScripts, s.Native)
		case ledger.ScriptKindPlutus:
			switch s.Plutus.Language {
			case ledger.PlutusV1:
				ws.PlutusV1Scripts = append(ws.PlutusV1Scripts, s.Plutus)
			case ledger.PlutusV2:
				ws.PlutusV2Scripts = append(ws.PlutusV2Scripts, s.Plutus)
			case ledger.PlutusV3:
				ws.PlutusV3Scripts = append(ws.PlutusV3Scripts, s.Plutus)
			}
		}
	}
	for _, in := range b.pendingInputs {
		if cred, ok := in.UTxO.Output.Address.PaymentCredential(); ok && cred.IsScript() {
			addScript(cred.Hash)
		}
		if in.Datum != nil {
			ws.PlutusData = append(ws.PlutusData, *in.Datum)
		}
	}
	for _, policy := range b.mint.Policies() {
		addScript([28]byte(policy))
	}
	return ws
}
