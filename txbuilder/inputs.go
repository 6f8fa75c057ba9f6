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

import "github.com/blinklabs-io/txforge/ledger"

// AddInput appends a specific input to the transaction, bypassing coin
// selection for this UTxO. If the input's address is a script address,
// redeemer must be non-nil; if the output carries a datum hash (rather
// than an inline datum), datum must be supplied so the witness set can
// carry the preimage.
func (b *Builder) AddInput(u ledger.UTxO, redeemer, datum *ledger.PlutusData) *Builder {
	if cred, ok := u.Output.Address.PaymentCredential(); ok && cred.IsScript() && redeemer == nil {
		b.fail(ErrMissingRedeemer)
		return b
	}
	if u.Output.Datum != nil && u.Output.Datum.Hash != nil && u.Output.Datum.Inline == nil && datum == nil {
		b.fail(ErrMissingDatum)
		return b
	}
	b.pendingInputs = append(b.pendingInputs, pendingInput{UTxO: u, Redeemer: redeemer, Datum: datum})
	return b
}
