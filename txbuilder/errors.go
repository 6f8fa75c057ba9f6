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

import "errors"

var (
	// ErrNoChangeAddress is returned by build when no change address was
	// ever configured, whether or not change is owed.
	ErrNoChangeAddress = errors.New("txbuilder: no change address set")
	// ErrMissingScriptWitness is returned when a required script hash
	// resolves to neither a witness-set entry nor a reference-input
	// script ref.
	ErrMissingScriptWitness = errors.New("txbuilder: missing script witness")
	// ErrMissingDatum is returned when an input's output carries a datum
	// hash but no matching datum was supplied.
	ErrMissingDatum = errors.New("txbuilder: missing datum for input")
	// ErrMissingRedeemer is returned when a script-locked input, or a
	// vote by a script-backed DRep or committee hot credential, is added
	// without a redeemer. Minting policies, certificates and withdrawals
	// are not checked for a redeemer.
	ErrMissingRedeemer = errors.New("txbuilder: missing redeemer")
	// ErrOversizeTransaction is returned when the assembled transaction
	// exceeds the protocol's max transaction size.
	ErrOversizeTransaction = errors.New("txbuilder: transaction exceeds max size")
	// ErrDuplicateCertificate is returned when a certificate that must be
	// unique (e.g. a DRep registration for the same credential) is added
	// twice.
	ErrDuplicateCertificate = errors.New("txbuilder: duplicate certificate")
	// ErrDuplicateProposal is returned when two proposal procedures are
	// added with an identical (deposit, reward address, action kind)
	// triple.
	ErrDuplicateProposal = errors.New("txbuilder: duplicate proposal procedure")
	// ErrMalformedAddress is returned when a bech32 or raw address
	// argument fails to parse.
	ErrMalformedAddress = errors.New("txbuilder: malformed address")
	// ErrNoProvider reports a missing provider. Build does not return
	// it: with no provider configured, coin selection draws only on the
	// SetUTxOs pool and execution-unit evaluation is skipped.
	ErrNoProvider = errors.New("txbuilder: no provider configured")
)
