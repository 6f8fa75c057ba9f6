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

// CertificateKind enumerates every Conway-era certificate type a
// transaction body's certificates field may carry.
type CertificateKind byte

const (
	CertStakeRegistration CertificateKind = iota
	CertStakeDeregistration
	CertStakeDelegation
	CertPoolRegistration
	CertPoolRetirement
	CertStakeRegDeposit // post-Conway, carries an explicit deposit
	CertStakeDeregDeposit
	CertVoteDelegation
	CertStakeVoteDelegation
	CertCommitteeHotKeyAuth
	CertCommitteeColdKeyResign
	CertDRepRegistration
	CertDRepUpdate
	CertDRepDeregistration
)

// DRep identifies a delegated representative: a credential, the
// "abstain" sentinel, or the "no confidence" sentinel.
type DRepKind byte

const (
	DRepKindCredential DRepKind = iota
	DRepKindAbstain
	DRepKindNoConfidence
)

// DRep is a governance voter target for vote delegation.
type DRep struct {
	Kind       DRepKind
	Credential Credential
}

func (d DRep) MarshalCBOR() ([]byte, error) {
	w := cbor.NewWriter()
	switch d.Kind {
	case DRepKindCredential:
		w.ArrayHeader(2)
		if d.Credential.Kind == CredentialKeyHash {
			w.Uint(0)
		} else {
			w.Uint(1)
		}
		w.Bytes_(d.Credential.Hash[:])
	case DRepKindAbstain:
		w.ArrayHeader(1)
		w.Uint(2)
	case DRepKindNoConfidence:
		w.ArrayHeader(1)
		w.Uint(3)
	default:
		return nil, fmt.Errorf("ledger: unknown drep kind %d", d.Kind)
	}
	return w.Bytes(), w.Err()
}

func (d *DRep) UnmarshalCBOR(data []byte) error {
	r := cbor.NewReader(data)
	if _, _, err := r.ReadStartArray(); err != nil {
		return err
	}
	tag, err := r.ReadUint()
	if err != nil {
		return err
	}
	switch tag {
	case 0, 1:
		hashBytes, err := r.ReadBytes()
		if err != nil {
			return err
		}
		var h [28]byte
		copy(h[:], hashBytes)
		kind := CredentialKeyHash
		if tag == 1 {
			kind = CredentialScriptHash
		}
		*d = DRep{Kind: DRepKindCredential, Credential: Credential{Kind: kind, Hash: h}}
	case 2:
		*d = DRep{Kind: DRepKindAbstain}
	case 3:
		*d = DRep{Kind: DRepKindNoConfidence}
	default:
		return fmt.Errorf("ledger: unknown drep tag %d", tag)
	}
	return nil
}

// PoolParams describes a stake pool registration.
type PoolParams struct {
	Operator       [28]byte
	VrfKeyHash     [32]byte
	Pledge         Coin
	Cost           Coin
	MarginNum      uint64
	MarginDen      uint64
	RewardAccount  Address
	PoolOwners     [][28]byte
	RelaysCbor     [][]byte // each a pre-encoded relay array, kept opaque
	MetadataURL    string
	MetadataHash   *[32]byte
}

// Certificate is a tagged union over every certificate variant. Exactly
// one payload field is meaningful, selected by Kind.
type Certificate struct {
	Kind CertificateKind

	StakeCredential Credential // Stake(De)Registration(Deposit), StakeDelegation, VoteDelegation, StakeVoteDelegation
	Deposit         Coin       // *RegDeposit, *DeregDeposit

	PoolKeyHash [28]byte   // StakeDelegation, StakeVoteDelegation, PoolRetirement
	DRepTarget  DRep       // VoteDelegation, StakeVoteDelegation

	PoolParams PoolParams // PoolRegistration
	RetireEpoch uint64    // PoolRetirement

	CommitteeColdCredential Credential // CommitteeHotKeyAuth, CommitteeColdKeyResign
	CommitteeHotCredential  Credential // CommitteeHotKeyAuth
	ResignAnchor            *Anchor    // CommitteeColdKeyResign

	DRepCredential Credential // DRep(De)Registration, DRepUpdate
	DRepAnchor     *Anchor    // DRepRegistration, DRepUpdate
}

// Anchor is a (url, content-hash) pair attached to governance metadata.
type Anchor struct {
	URL  string
	Hash [32]byte
}

func (a Anchor) MarshalCBOR() ([]byte, error) {
	return cbor.Encode(cbor.IndefLengthList{a.URL, a.Hash[:]})
}

func (a *Anchor) UnmarshalCBOR(data []byte) error {
	r := cbor.NewReader(data)
	if err := r.ValidateArrayOfN("Anchor", 2); err != nil {
		return err
	}
	url, err := r.ReadText()
	if err != nil {
		return err
	}
	hashBytes, err := r.ReadBytes()
	if err != nil {
		return err
	}
	a.URL = url
	copy(a.Hash[:], hashBytes)
	return r.ValidateEndArray("Anchor")
}

func writeOptionalAnchor(w *cbor.Writer, a *Anchor) error {
	if a == nil {
		w.Null()
		return w.Err()
	}
	raw, err := a.MarshalCBOR()
	if err != nil {
		return err
	}
	w.Value(cbor.RawMessage(raw))
	return nil
}

func readOptionalAnchor(r *cbor.Reader) (*Anchor, error) {
	if r.IsNull() {
		return nil, r.ReadNull()
	}
	raw, err := r.ReadEncodedValue()
	if err != nil {
		return nil, err
	}
	var a Anchor
	if err := a.UnmarshalCBOR(raw); err != nil {
		return nil, err
	}
	return &a, nil
}

// encodePoolParams writes the nine pool_params fields (operator, vrf
// key hash, pledge, cost, margin, reward account, owners, relays,
// metadata) in CDDL order.
func encodePoolParams(w *cbor.Writer, p PoolParams) error {
	w.Bytes_(p.Operator[:])
	w.Bytes_(p.VrfKeyHash[:])
	w.Uint(uint64(p.Pledge))
	w.Uint(uint64(p.Cost))
	w.Rational(int64(p.MarginNum), int64(p.MarginDen))
	rewardBytes, err := p.RewardAccount.Bytes()
	if err != nil {
		return err
	}
	w.Bytes_(rewardBytes)
	w.ArrayHeader(len(p.PoolOwners))
	for _, owner := range p.PoolOwners {
		w.Bytes_(owner[:])
	}
	w.ArrayHeader(len(p.RelaysCbor))
	for _, relay := range p.RelaysCbor {
		w.Value(cbor.RawMessage(relay))
	}
	if p.MetadataURL == "" && p.MetadataHash == nil {
		w.Null()
	} else {
		w.ArrayHeader(2)
		w.Text(p.MetadataURL)
		var h [32]byte
		if p.MetadataHash != nil {
			h = *p.MetadataHash
		}
		w.Bytes_(h[:])
	}
	return w.Err()
}

func decodePoolParams(r *cbor.Reader) (PoolParams, error) {
	var p PoolParams
	operator, err := r.ReadBytes()
	if err != nil {
		return p, err
	}
	copy(p.Operator[:], operator)
	vrf, err := r.ReadBytes()
	if err != nil {
		return p, err
	}
	copy(p.VrfKeyHash[:], vrf)
	pledge, err := r.ReadUint()
	if err != nil {
		return p, err
	}
	p.Pledge = Coin(pledge)
	cost, err := r.ReadUint()
	if err != nil {
		return p, err
	}
	p.Cost = Coin(cost)
	if err := r.ValidateTag(cbor.TagRational); err != nil {
		return p, err
	}
	if err := r.ValidateArrayOfN("unit_interval", 2); err != nil {
		return p, err
	}
	num, err := r.ReadInt()
	if err != nil {
		return p, err
	}
	den, err := r.ReadInt()
	if err != nil {
		return p, err
	}
	p.MarginNum = uint64(num)
	p.MarginDen = uint64(den)
	rewardBytes, err := r.ReadBytes()
	if err != nil {
		return p, err
	}
	rewardAddr, err := AddressFromBytes(rewardBytes)
	if err != nil {
		return p, err
	}
	p.RewardAccount = rewardAddr
	ownerCount, _, err := r.ReadStartArray()
	if err != nil {
		return p, err
	}
	for i := 0; i < ownerCount; i++ {
		ownerBytes, err := r.ReadBytes()
		if err != nil {
			return p, err
		}
		var h [28]byte
		copy(h[:], ownerBytes)
		p.PoolOwners = append(p.PoolOwners, h)
	}
	relayCount, _, err := r.ReadStartArray()
	if err != nil {
		return p, err
	}
	for i := 0; i < relayCount; i++ {
		raw, err := r.ReadEncodedValue()
		if err != nil {
			return p, err
		}
		p.RelaysCbor = append(p.RelaysCbor, raw)
	}
	if r.IsNull() {
		if err := r.ReadNull(); err != nil {
			return p, err
		}
		return p, nil
	}
	if err := r.ValidateArrayOfN("pool_metadata", 2); err != nil {
		return p, err
	}
	url, err := r.ReadText()
	if err != nil {
		return p, err
	}
	hashBytes, err := r.ReadBytes()
	if err != nil {
		return p, err
	}
	p.MetadataURL = url
	var h [32]byte
	copy(h[:], hashBytes)
	p.MetadataHash = &h
	return p, nil
}

// MarshalCBOR encodes the certificate as [kind, ...fields], per the
// CDDL certificate production.
func (c Certificate) MarshalCBOR() ([]byte, error) {
	w := cbor.NewWriter()
	switch c.Kind {
	case CertStakeRegistration:
		w.ArrayHeader(2)
		w.Uint(0)
		w.Value(c.StakeCredential)
	case CertStakeDeregistration:
		w.ArrayHeader(2)
		w.Uint(1)
		w.Value(c.StakeCredential)
	case CertStakeDelegation:
		w.ArrayHeader(3)
		w.Uint(2)
		w.Value(c.StakeCredential)
		w.Bytes_(c.PoolKeyHash[:])
	case CertPoolRegistration:
		w.ArrayHeader(10)
		w.Uint(3)
		if err := encodePoolParams(w, c.PoolParams); err != nil {
			return nil, err
		}
	case CertPoolRetirement:
		w.ArrayHeader(3)
		w.Uint(4)
		w.Bytes_(c.PoolKeyHash[:])
		w.Uint(c.RetireEpoch)
	case CertStakeRegDeposit:
		w.ArrayHeader(3)
		w.Uint(7)
		w.Value(c.StakeCredential)
		w.Uint(uint64(c.Deposit))
	case CertStakeDeregDeposit:
		w.ArrayHeader(3)
		w.Uint(8)
		w.Value(c.StakeCredential)
		w.Uint(uint64(c.Deposit))
	case CertVoteDelegation:
		w.ArrayHeader(3)
		w.Uint(9)
		w.Value(c.StakeCredential)
		drepBytes, err := c.DRepTarget.MarshalCBOR()
		if err != nil {
			return nil, err
		}
		w.Value(cbor.RawMessage(drepBytes))
	case CertStakeVoteDelegation:
		w.ArrayHeader(4)
		w.Uint(10)
		w.Value(c.StakeCredential)
		w.Bytes_(c.PoolKeyHash[:])
		drepBytes, err := c.DRepTarget.MarshalCBOR()
		if err != nil {
			return nil, err
		}
		w.Value(cbor.RawMessage(drepBytes))
	case CertCommitteeHotKeyAuth:
		w.ArrayHeader(3)
		w.Uint(14)
		w.Value(c.CommitteeColdCredential)
		w.Value(c.CommitteeHotCredential)
	case CertCommitteeColdKeyResign:
		w.ArrayHeader(3)
		w.Uint(15)
		w.Value(c.CommitteeColdCredential)
		if err := writeOptionalAnchor(w, c.ResignAnchor); err != nil {
			return nil, err
		}
	case CertDRepRegistration:
		w.ArrayHeader(4)
		w.Uint(16)
		w.Value(c.DRepCredential)
		w.Uint(uint64(c.Deposit))
		if err := writeOptionalAnchor(w, c.DRepAnchor); err != nil {
			return nil, err
		}
	case CertDRepDeregistration:
		w.ArrayHeader(3)
		w.Uint(17)
		w.Value(c.DRepCredential)
		w.Uint(uint64(c.Deposit))
	case CertDRepUpdate:
		w.ArrayHeader(3)
		w.Uint(18)
		w.Value(c.DRepCredential)
		if err := writeOptionalAnchor(w, c.DRepAnchor); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("ledger: unknown certificate kind %d", c.Kind)
	}
	return w.Bytes(), w.Err()
}

// UnmarshalCBOR decodes a certificate from its [kind, ...fields] form.
func (c *Certificate) UnmarshalCBOR(data []byte) error {
	r := cbor.NewReader(data)
	if _, _, err := r.ReadStartArray(); err != nil {
		return err
	}
	tag, err := r.ReadUint()
	if err != nil {
		return err
	}
	readCredential := func() (Credential, error) {
		raw, err := r.ReadEncodedValue()
		if err != nil {
			return Credential{}, err
		}
		var cred Credential
		err = cred.UnmarshalCBOR(raw)
		return cred, err
	}
	readPoolKeyHash := func() ([28]byte, error) {
		b, err := r.ReadBytes()
		var h [28]byte
		if err != nil {
			return h, err
		}
		copy(h[:], b)
		return h, nil
	}
	switch tag {
	case 0, 1, 7, 8:
		cred, err := readCredential()
		if err != nil {
			return err
		}
		kind := map[uint64]CertificateKind{0: CertStakeRegistration, 1: CertStakeDeregistration, 7: CertStakeRegDeposit, 8: CertStakeDeregDeposit}[tag]
		cert := Certificate{Kind: kind, StakeCredential: cred}
		if tag == 7 || tag == 8 {
			deposit, err := r.ReadUint()
			if err != nil {
				return err
			}
			cert.Deposit = Coin(deposit)
		}
		*c = cert
	case 2:
		cred, err := readCredential()
		if err != nil {
			return err
		}
		poolHash, err := readPoolKeyHash()
		if err != nil {
			return err
		}
		*c = Certificate{Kind: CertStakeDelegation, StakeCredential: cred, PoolKeyHash: poolHash}
	case 3:
		params, err := decodePoolParams(r)
		if err != nil {
			return err
		}
		*c = Certificate{Kind: CertPoolRegistration, PoolParams: params}
	case 4:
		poolHash, err := readPoolKeyHash()
		if err != nil {
			return err
		}
		epoch, err := r.ReadUint()
		if err != nil {
			return err
		}
		*c = Certificate{Kind: CertPoolRetirement, PoolKeyHash: poolHash, RetireEpoch: epoch}
	case 9:
		cred, err := readCredential()
		if err != nil {
			return err
		}
		drepRaw, err := r.ReadEncodedValue()
		if err != nil {
			return err
		}
		var drep DRep
		if err := drep.UnmarshalCBOR(drepRaw); err != nil {
			return err
		}
		*c = Certificate{Kind: CertVoteDelegation, StakeCredential: cred, DRepTarget: drep}
	case 10:
		cred, err := readCredential()
		if err != nil {
			return err
		}
		poolHash, err := readPoolKeyHash()
		if err != nil {
			return err
		}
		drepRaw, err := r.ReadEncodedValue()
		if err != nil {
			return err
		}
		var drep DRep
		if err := drep.UnmarshalCBOR(drepRaw); err != nil {
			return err
		}
		*c = Certificate{Kind: CertStakeVoteDelegation, StakeCredential: cred, PoolKeyHash: poolHash, DRepTarget: drep}
	case 14:
		cold, err := readCredential()
		if err != nil {
			return err
		}
		hot, err := readCredential()
		if err != nil {
			return err
		}
		*c = Certificate{Kind: CertCommitteeHotKeyAuth, CommitteeColdCredential: cold, CommitteeHotCredential: hot}
	case 15:
		cold, err := readCredential()
		if err != nil {
			return err
		}
		anchor, err := readOptionalAnchor(r)
		if err != nil {
			return err
		}
		*c = Certificate{Kind: CertCommitteeColdKeyResign, CommitteeColdCredential: cold, ResignAnchor: anchor}
	case 16:
		cred, err := readCredential()
		if err != nil {
			return err
		}
		deposit, err := r.ReadUint()
		if err != nil {
			return err
		}
		anchor, err := readOptionalAnchor(r)
		if err != nil {
			return err
		}
		*c = Certificate{Kind: CertDRepRegistration, DRepCredential: cred, Deposit: Coin(deposit), DRepAnchor: anchor}
	case 17:
		cred, err := readCredential()
		if err != nil {
			return err
		}
		deposit, err := r.ReadUint()
		if err != nil {
			return err
		}
		*c = Certificate{Kind: CertDRepDeregistration, DRepCredential: cred, Deposit: Coin(deposit)}
	case 18:
		cred, err := readCredential()
		if err != nil {
			return err
		}
		anchor, err := readOptionalAnchor(r)
		if err != nil {
			return err
		}
		*c = Certificate{Kind: CertDRepUpdate, DRepCredential: cred, DRepAnchor: anchor}
	default:
		return fmt.Errorf("ledger: unsupported or unknown certificate tag %d", tag)
	}
	return nil
}
