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

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/blinklabs-io/txforge/cbor"
)

// VoterKind enumerates the five voter shapes recognized by the
// Conway-era voting_procedures production. Dispatch on this field is
// required at every call site; treating voters as always-DRep (as an
// earlier revision of this dispatch mistakenly did) silently drops
// committee and SPO votes.
type VoterKind byte

const (
	VoterCommitteeHotKeyHash VoterKind = iota
	VoterCommitteeHotScriptHash
	VoterDRepKeyHash
	VoterDRepScriptHash
	VoterStakePoolKeyHash
)

// Voter identifies who cast a vote: a committee hot credential, a DRep
// credential, or a stake pool operator key.
type Voter struct {
	Kind VoterKind
	Hash [28]byte
}

func (v Voter) sortKey() []byte {
	return append([]byte{byte(v.Kind)}, v.Hash[:]...)
}

func (v Voter) MarshalCBOR() ([]byte, error) {
	if v.Kind > VoterStakePoolKeyHash {
		return nil, fmt.Errorf("ledger: unknown voter kind %d", v.Kind)
	}
	return cbor.Encode(cbor.IndefLengthList{uint64(v.Kind), v.Hash[:]})
}

func (v *Voter) UnmarshalCBOR(data []byte) error {
	r := cbor.NewReader(data)
	if err := r.ValidateArrayOfN("Voter", 2); err != nil {
		return err
	}
	kind, err := r.ReadUint()
	if err != nil {
		return err
	}
	hashBytes, err := r.ReadBytes()
	if err != nil {
		return err
	}
	if kind > uint64(VoterStakePoolKeyHash) {
		return fmt.Errorf("ledger: unknown voter kind %d", kind)
	}
	v.Kind = VoterKind(kind)
	copy(v.Hash[:], hashBytes)
	return r.ValidateEndArray("Voter")
}

// GovActionID identifies a specific governance action by the
// transaction that proposed it and its index within that transaction's
// proposal procedures.
type GovActionID struct {
	TxId  [32]byte
	Index uint64
}

func (g GovActionID) sortKey() []byte {
	idx := []byte{byte(g.Index >> 24), byte(g.Index >> 16), byte(g.Index >> 8), byte(g.Index)}
	return append(append([]byte(nil), g.TxId[:]...), idx...)
}

func (g GovActionID) MarshalCBOR() ([]byte, error) {
	return cbor.Encode(cbor.IndefLengthList{g.TxId[:], uint64(g.Index)})
}

func (g *GovActionID) UnmarshalCBOR(data []byte) error {
	r := cbor.NewReader(data)
	if err := r.ValidateArrayOfN("GovActionID", 2); err != nil {
		return err
	}
	txid, err := r.ReadBytes()
	if err != nil {
		return err
	}
	idx, err := r.ReadUint()
	if err != nil {
		return err
	}
	copy(g.TxId[:], txid)
	g.Index = idx
	return r.ValidateEndArray("GovActionID")
}

// VoteChoice is a single ballot value.
type VoteChoice byte

const (
	VoteNo VoteChoice = iota
	VoteYes
	VoteAbstain
)

// VotingProcedure is a single ballot: a choice plus an optional anchor
// pointing at the voter's published rationale.
type VotingProcedure struct {
	Vote   VoteChoice
	Anchor *Anchor
}

func (p VotingProcedure) MarshalCBOR() ([]byte, error) {
	w := cbor.NewWriter()
	w.ArrayHeader(2)
	w.Uint(uint64(p.Vote))
	if err := writeOptionalAnchor(w, p.Anchor); err != nil {
		return nil, err
	}
	return w.Bytes(), w.Err()
}

func (p *VotingProcedure) UnmarshalCBOR(data []byte) error {
	r := cbor.NewReader(data)
	if err := r.ValidateArrayOfN("VotingProcedure", 2); err != nil {
		return err
	}
	vote, err := r.ReadUint()
	if err != nil {
		return err
	}
	anchor, err := readOptionalAnchor(r)
	if err != nil {
		return err
	}
	p.Vote = VoteChoice(vote)
	p.Anchor = anchor
	return r.ValidateEndArray("VotingProcedure")
}

// voteEntry is a single (voter, action id) -> procedure record prior to
// grouping into the nested voting_procedures map shape.
type voteEntry struct {
	Voter     Voter
	ActionID  GovActionID
	Procedure VotingProcedure
}

// VotingProcedures is the transaction body's full vote set: one ballot
// per (voter, governance action) pair, encoded as a map of voter to a
// map of governance-action-id to ballot.
type VotingProcedures struct {
	entries []voteEntry
}

// NewVotingProcedures returns an empty vote set.
func NewVotingProcedures() *VotingProcedures {
	return &VotingProcedures{}
}

// Add records a ballot cast by voter on the given governance action,
// overwriting any prior ballot from the same voter on the same action.
func (vp *VotingProcedures) Add(voter Voter, action GovActionID, procedure VotingProcedure) {
	for i, e := range vp.entries {
		if e.Voter == voter && e.ActionID == action {
			vp.entries[i].Procedure = procedure
			return
		}
	}
	vp.entries = append(vp.entries, voteEntry{Voter: voter, ActionID: action, Procedure: procedure})
}

// IsEmpty reports whether no ballots have been recorded.
func (vp *VotingProcedures) IsEmpty() bool {
	return vp == nil || len(vp.entries) == 0
}

// VoteEntry is a single recorded ballot, exposed for callers (the
// transaction builder in particular) that need each vote's canonical
// position within the encoded voting_procedures map, e.g. to assign a
// redeemer index.
type VoteEntry struct {
	Voter     Voter
	ActionID  GovActionID
	Procedure VotingProcedure
}

// Entries returns every recorded ballot in the same (voter, action)
// order MarshalCBOR encodes them in: voters grouped and sorted by
// sortKey, each voter's actions sorted by their own sortKey. The
// position of a (voter, action) pair in this slice is its redeemer
// index under RedeemerVoting.
func (vp *VotingProcedures) Entries() []VoteEntry {
	if vp == nil {
		return nil
	}
	byVoter := make(map[string][]voteEntry)
	for _, e := range vp.entries {
		key := string(e.Voter.sortKey())
		byVoter[key] = append(byVoter[key], e)
	}
	voterKeys := make([]string, 0, len(byVoter))
	for k := range byVoter {
		voterKeys = append(voterKeys, k)
	}
	sort.Slice(voterKeys, func(i, j int) bool { return voterKeys[i] < voterKeys[j] })

	out := make([]VoteEntry, 0, len(vp.entries))
	for _, vk := range voterKeys {
		group := byVoter[vk]
		sort.Slice(group, func(i, j int) bool {
			return bytes.Compare(group[i].ActionID.sortKey(), group[j].ActionID.sortKey()) < 0
		})
		for _, e := range group {
			out = append(out, VoteEntry{Voter: e.Voter, ActionID: e.ActionID, Procedure: e.Procedure})
		}
	}
	return out
}

func (vp *VotingProcedures) MarshalCBOR() ([]byte, error) {
	byVoter := make(map[string][]voteEntry)
	for _, e := range vp.entries {
		key := string(e.Voter.sortKey())
		byVoter[key] = append(byVoter[key], e)
	}
	voterKeys := make([]string, 0, len(byVoter))
	for k := range byVoter {
		voterKeys = append(voterKeys, k)
	}
	sort.Slice(voterKeys, func(i, j int) bool { return voterKeys[i] < voterKeys[j] })

	w := cbor.NewWriter()
	w.MapHeader(len(voterKeys))
	for _, vk := range voterKeys {
		group := byVoter[vk]
		sort.Slice(group, func(i, j int) bool {
			return bytes.Compare(group[i].ActionID.sortKey(), group[j].ActionID.sortKey()) < 0
		})
		w.Value(group[0].Voter)
		w.MapHeader(len(group))
		for _, e := range group {
			w.Value(e.ActionID)
			procBytes, err := e.Procedure.MarshalCBOR()
			if err != nil {
				return nil, err
			}
			w.Value(cbor.RawMessage(procBytes))
		}
	}
	return w.Bytes(), w.Err()
}

func (vp *VotingProcedures) UnmarshalCBOR(data []byte) error {
	r := cbor.NewReader(data)
	voterCount, _, err := r.ReadStartMap()
	if err != nil {
		return err
	}
	out := &VotingProcedures{}
	for i := 0; i < voterCount; i++ {
		voterRaw, err := r.ReadEncodedValue()
		if err != nil {
			return err
		}
		var voter Voter
		if err := voter.UnmarshalCBOR(voterRaw); err != nil {
			return err
		}
		actionCount, _, err := r.ReadStartMap()
		if err != nil {
			return err
		}
		for j := 0; j < actionCount; j++ {
			actionRaw, err := r.ReadEncodedValue()
			if err != nil {
				return err
			}
			var actionID GovActionID
			if err := actionID.UnmarshalCBOR(actionRaw); err != nil {
				return err
			}
			procRaw, err := r.ReadEncodedValue()
			if err != nil {
				return err
			}
			var proc VotingProcedure
			if err := proc.UnmarshalCBOR(procRaw); err != nil {
				return err
			}
			out.Add(voter, actionID, proc)
		}
	}
	*vp = *out
	return nil
}
