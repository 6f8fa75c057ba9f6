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
	"fmt"

	"github.com/blinklabs-io/txforge/cbor"
)

// GovActionKind enumerates the seven governance action variants a
// proposal procedure may carry.
type GovActionKind byte

const (
	GovActionParameterChange GovActionKind = iota
	GovActionHardForkInitiation
	GovActionTreasuryWithdrawals
	GovActionNoConfidence
	GovActionUpdateCommittee
	GovActionNewConstitution
	GovActionInfo
)

// ErrInvalidProposalType is returned when a governance action carries a
// kind this module does not recognize.
var ErrInvalidProposalType = fmt.Errorf("ledger: invalid proposal action type")

// GovAction is a tagged union over the seven governance action bodies.
type GovAction struct {
	Kind GovActionKind

	// ParameterChange
	ParamUpdatesCbor []byte // opaque pre-encoded protocol_param_update
	GovActionIDCbor  []byte // opaque pre-encoded prev_gov_action_id or nil

	// HardForkInitiation
	ProtocolMajor uint64
	ProtocolMinor uint64

	// TreasuryWithdrawals: reward address -> lovelace amount
	Withdrawals map[string]Coin // keyed by bech32 reward address for deterministic iteration

	// UpdateCommittee
	CommitteeRemove []Credential
	CommitteeAdd    map[string]uint64 // credential hex -> epoch expiry
	CommitteeAddCreds []Credential     // parallel to CommitteeAdd, preserving input order
	CommitteeThresholdNum uint64
	CommitteeThresholdDen uint64

	// NewConstitution
	ConstitutionAnchor Anchor
	ConstitutionScript *[28]byte

	// Info carries no payload.
}

func (g GovAction) MarshalCBOR() ([]byte, error) {
	w := cbor.NewWriter()
	switch g.Kind {
	case GovActionParameterChange:
		w.ArrayHeader(3)
		w.Uint(0)
		if g.GovActionIDCbor == nil {
			w.Null()
		} else {
			w.Value(cbor.RawMessage(g.GovActionIDCbor))
		}
		if g.ParamUpdatesCbor == nil {
			w.MapHeader(0)
		} else {
			w.Value(cbor.RawMessage(g.ParamUpdatesCbor))
		}
	case GovActionHardForkInitiation:
		w.ArrayHeader(3)
		w.Uint(1)
		if g.GovActionIDCbor == nil {
			w.Null()
		} else {
			w.Value(cbor.RawMessage(g.GovActionIDCbor))
		}
		w.ArrayHeader(2)
		w.Uint(g.ProtocolMajor)
		w.Uint(g.ProtocolMinor)
	case GovActionTreasuryWithdrawals:
		w.ArrayHeader(2)
		w.Uint(2)
		w.MapHeader(len(g.Withdrawals))
		for _, addr := range sortedStringKeys(g.Withdrawals) {
			a, err := AddressFromBech32(addr)
			if err != nil {
				return nil, err
			}
			raw, err := a.Bytes()
			if err != nil {
				return nil, err
			}
			w.Bytes_(raw)
			w.Uint(uint64(g.Withdrawals[addr]))
		}
	case GovActionNoConfidence:
		w.ArrayHeader(2)
		w.Uint(3)
		if g.GovActionIDCbor == nil {
			w.Null()
		} else {
			w.Value(cbor.RawMessage(g.GovActionIDCbor))
		}
	case GovActionUpdateCommittee:
		w.ArrayHeader(5)
		w.Uint(4)
		if g.GovActionIDCbor == nil {
			w.Null()
		} else {
			w.Value(cbor.RawMessage(g.GovActionIDCbor))
		}
		w.ArrayHeader(len(g.CommitteeRemove))
		for _, cred := range g.CommitteeRemove {
			w.Value(cred)
		}
		w.MapHeader(len(g.CommitteeAddCreds))
		for _, cred := range g.CommitteeAddCreds {
			w.Value(cred)
			w.Uint(g.CommitteeAdd[fmt.Sprintf("%x", cred.Hash)])
		}
		w.Rational(int64(g.CommitteeThresholdNum), int64(g.CommitteeThresholdDen))
	case GovActionNewConstitution:
		w.ArrayHeader(3)
		w.Uint(5)
		if g.GovActionIDCbor == nil {
			w.Null()
		} else {
			w.Value(cbor.RawMessage(g.GovActionIDCbor))
		}
		w.ArrayHeader(2)
		anchorBytes, err := g.ConstitutionAnchor.MarshalCBOR()
		if err != nil {
			return nil, err
		}
		w.Value(cbor.RawMessage(anchorBytes))
		if g.ConstitutionScript == nil {
			w.Null()
		} else {
			w.Bytes_(g.ConstitutionScript[:])
		}
	case GovActionInfo:
		w.ArrayHeader(1)
		w.Uint(6)
	default:
		return nil, ErrInvalidProposalType
	}
	return w.Bytes(), w.Err()
}

func sortedStringKeys(m map[string]Coin) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

func (g *GovAction) UnmarshalCBOR(data []byte) error {
	r := cbor.NewReader(data)
	if _, _, err := r.ReadStartArray(); err != nil {
		return err
	}
	tag, err := r.ReadUint()
	if err != nil {
		return err
	}
	readOptGovActionID := func() ([]byte, error) {
		if r.IsNull() {
			return nil, r.ReadNull()
		}
		return r.ReadEncodedValue()
	}
	switch tag {
	case 0:
		prevID, err := readOptGovActionID()
		if err != nil {
			return err
		}
		params, err := r.ReadEncodedValue()
		if err != nil {
			return err
		}
		*g = GovAction{Kind: GovActionParameterChange, GovActionIDCbor: prevID, ParamUpdatesCbor: params}
	case 1:
		prevID, err := readOptGovActionID()
		if err != nil {
			return err
		}
		if err := r.ValidateArrayOfN("protocol_version", 2); err != nil {
			return err
		}
		major, err := r.ReadUint()
		if err != nil {
			return err
		}
		minor, err := r.ReadUint()
		if err != nil {
			return err
		}
		*g = GovAction{Kind: GovActionHardForkInitiation, GovActionIDCbor: prevID, ProtocolMajor: major, ProtocolMinor: minor}
	case 2:
		n, _, err := r.ReadStartMap()
		if err != nil {
			return err
		}
		withdrawals := make(map[string]Coin, n)
		for i := 0; i < n; i++ {
			addrBytes, err := r.ReadBytes()
			if err != nil {
				return err
			}
			amt, err := r.ReadUint()
			if err != nil {
				return err
			}
			addr, err := AddressFromBytes(addrBytes)
			if err != nil {
				return err
			}
			text, err := addr.Bech32()
			if err != nil {
				return err
			}
			withdrawals[text] = Coin(amt)
		}
		*g = GovAction{Kind: GovActionTreasuryWithdrawals, Withdrawals: withdrawals}
	case 3:
		prevID, err := readOptGovActionID()
		if err != nil {
			return err
		}
		*g = GovAction{Kind: GovActionNoConfidence, GovActionIDCbor: prevID}
	case 4:
		prevID, err := readOptGovActionID()
		if err != nil {
			return err
		}
		removeCount, _, err := r.ReadStartArray()
		if err != nil {
			return err
		}
		remove := make([]Credential, 0, removeCount)
		for i := 0; i < removeCount; i++ {
			raw, err := r.ReadEncodedValue()
			if err != nil {
				return err
			}
			var cred Credential
			if err := cred.UnmarshalCBOR(raw); err != nil {
				return err
			}
			remove = append(remove, cred)
		}
		addCount, _, err := r.ReadStartMap()
		if err != nil {
			return err
		}
		add := make(map[string]uint64, addCount)
		addCreds := make([]Credential, 0, addCount)
		for i := 0; i < addCount; i++ {
			raw, err := r.ReadEncodedValue()
			if err != nil {
				return err
			}
			var cred Credential
			if err := cred.UnmarshalCBOR(raw); err != nil {
				return err
			}
			epoch, err := r.ReadUint()
			if err != nil {
				return err
			}
			add[fmt.Sprintf("%x", cred.Hash)] = epoch
			addCreds = append(addCreds, cred)
		}
		if err := r.ValidateTag(cbor.TagRational); err != nil {
			return err
		}
		if err := r.ValidateArrayOfN("unit_interval", 2); err != nil {
			return err
		}
		num, err := r.ReadInt()
		if err != nil {
			return err
		}
		den, err := r.ReadInt()
		if err != nil {
			return err
		}
		*g = GovAction{
			Kind: GovActionUpdateCommittee, GovActionIDCbor: prevID,
			CommitteeRemove: remove, CommitteeAdd: add, CommitteeAddCreds: addCreds,
			CommitteeThresholdNum: uint64(num), CommitteeThresholdDen: uint64(den),
		}
	case 5:
		prevID, err := readOptGovActionID()
		if err != nil {
			return err
		}
		if err := r.ValidateArrayOfN("constitution", 2); err != nil {
			return err
		}
		anchorRaw, err := r.ReadEncodedValue()
		if err != nil {
			return err
		}
		var anchor Anchor
		if err := anchor.UnmarshalCBOR(anchorRaw); err != nil {
			return err
		}
		var script *[28]byte
		if r.IsNull() {
			if err := r.ReadNull(); err != nil {
				return err
			}
		} else {
			b, err := r.ReadBytes()
			if err != nil {
				return err
			}
			var h [28]byte
			copy(h[:], b)
			script = &h
		}
		*g = GovAction{Kind: GovActionNewConstitution, GovActionIDCbor: prevID, ConstitutionAnchor: anchor, ConstitutionScript: script}
	case 6:
		*g = GovAction{Kind: GovActionInfo}
	default:
		return ErrInvalidProposalType
	}
	return nil
}

// ProposalProcedure is a governance proposal: a deposit, the reward
// address the deposit is returned to, a governance action, and an
// anchor pointing at off-chain rationale.
type ProposalProcedure struct {
	Deposit       Coin
	RewardAddress Address
	Action        GovAction
	Anchor        Anchor
}

func (p ProposalProcedure) MarshalCBOR() ([]byte, error) {
	w := cbor.NewWriter()
	w.ArrayHeader(4)
	w.Uint(uint64(p.Deposit))
	rewardBytes, err := p.RewardAddress.Bytes()
	if err != nil {
		return nil, err
	}
	w.Bytes_(rewardBytes)
	actionBytes, err := p.Action.MarshalCBOR()
	if err != nil {
		return nil, err
	}
	w.Value(cbor.RawMessage(actionBytes))
	anchorBytes, err := p.Anchor.MarshalCBOR()
	if err != nil {
		return nil, err
	}
	w.Value(cbor.RawMessage(anchorBytes))
	return w.Bytes(), w.Err()
}

func (p *ProposalProcedure) UnmarshalCBOR(data []byte) error {
	r := cbor.NewReader(data)
	if err := r.ValidateArrayOfN("ProposalProcedure", 4); err != nil {
		return err
	}
	deposit, err := r.ReadUint()
	if err != nil {
		return err
	}
	rewardBytes, err := r.ReadBytes()
	if err != nil {
		return err
	}
	rewardAddr, err := AddressFromBytes(rewardBytes)
	if err != nil {
		return err
	}
	actionRaw, err := r.ReadEncodedValue()
	if err != nil {
		return err
	}
	var action GovAction
	if err := action.UnmarshalCBOR(actionRaw); err != nil {
		return err
	}
	anchorRaw, err := r.ReadEncodedValue()
	if err != nil {
		return err
	}
	var anchor Anchor
	if err := anchor.UnmarshalCBOR(anchorRaw); err != nil {
		return err
	}
	p.Deposit = Coin(deposit)
	p.RewardAddress = rewardAddr
	p.Action = action
	p.Anchor = anchor
	return r.ValidateEndArray("ProposalProcedure")
}
