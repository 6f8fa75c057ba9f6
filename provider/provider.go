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

// Package provider defines the chain-data and submission surface a
// Builder (package txbuilder) draws on: protocol parameters, UTxO
// lookup, reward balances, datum resolution, submission, confirmation
// polling, and Plutus execution-unit evaluation. Implementations range
// from a thin HTTP façade (package provider/httpindexer) to an
// in-process indexer backed by a local node connection.
package provider

import (
	"context"
	"fmt"

	"github.com/blinklabs-io/txforge/ledger"
	"github.com/blinklabs-io/txforge/tx"
)

// Error is a typed error for Provider failures. Op names the failing
// operation; Err is the underlying cause. The provider/httpindexer
// implementation does not return *Error: it reports failures as
// fmt.Errorf-wrapped errors prefixed "provider: <operation>:". A provider implementation is free to keep its own
// last-error slot for diagnostics; Error.Error() always carries
// enough context on its own that callers need not consult it.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// Provider is the polymorphic chain-data and submission surface.
// Every method takes a context so long-running network calls
// (confirmation polling in particular) can be cancelled by the
// caller.
type Provider interface {
	// GetParameters returns the current protocol parameters.
	GetParameters(ctx context.Context) (ledger.ProtocolParameters, error)

	// GetUnspentOutputs returns every UTxO currently controlled by
	// addr.
	GetUnspentOutputs(ctx context.Context, addr ledger.Address) (ledger.UTxOList, error)

	// ResolveUnspentOutputs resolves a specific set of inputs to their
	// outputs, e.g. to hydrate reference inputs or collateral chosen
	// by the caller directly rather than discovered via
	// GetUnspentOutputs.
	ResolveUnspentOutputs(ctx context.Context, inputs []ledger.TransactionInput) (ledger.UTxOList, error)

	// GetRewardsAvailable returns the withdrawable reward balance for
	// a stake/reward address.
	GetRewardsAvailable(ctx context.Context, rewardAddr ledger.Address) (ledger.Coin, error)

	// GetDatum resolves a datum hash to its Plutus data, for inputs
	// that reference a datum by hash rather than carrying it inline.
	GetDatum(ctx context.Context, hash [32]byte) (ledger.PlutusData, error)

	// SubmitTransaction submits a fully witnessed transaction and
	// returns its id.
	SubmitTransaction(ctx context.Context, txn *tx.Transaction) ([32]byte, error)

	// ConfirmTransaction polls until txId is seen on chain or timeout
	// elapses (interpreted via ctx's deadline, not a separate
	// parameter), returning whether it confirmed in time.
	ConfirmTransaction(ctx context.Context, txId [32]byte) (bool, error)

	// EvaluateTransaction runs a not-yet-submitted transaction's
	// Plutus scripts against the chain state plus any additional
	// UTxOs the caller supplies (for inputs not yet visible on chain,
	// e.g. produced earlier in the same batch), returning the
	// execution units each redeemer actually consumed.
	EvaluateTransaction(ctx context.Context, txn *tx.Transaction, additionalUtxos ledger.UTxOList) (map[tx.RedeemerKey]ledger.ExUnits, error)
}
