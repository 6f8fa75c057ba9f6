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
	"github.com/blinklabs-io/txforge/crypto"
	"github.com/blinklabs-io/txforge/ledger"
)

// bech32Credential decodes a bech32-encoded id (drep1..., pool1...,
// cc_cold1..., cc_hot1...) into its raw 28-byte hash, ignoring the hrp:
// these ids are not addresses, just a credential hash with a
// descriptive prefix.
func bech32Credential(s string) ([28]byte, error) {
	var out [28]byte
	_, raw, err := crypto.DecodeBech32(s)
	if err != nil {
		return out, ErrMalformedAddress
	}
	if len(raw) != 28 {
		return out, ErrMalformedAddress
	}
	copy(out[:], raw)
	return out, nil
}

func rewardCredential(addr ledger.Address) (ledger.Credential, bool) {
	return addr.StakingCredential()
}

// addCertificate appends c, rejecting an exact duplicate of a
// kind/credential pair that the ledger requires to be unique within a
// single transaction (stake and DRep registrations; deregistrations are
// not checked).
func (b *Builder) addCertificate(c ledger.Certificate) {
	if certMustBeUnique(c.Kind) {
		for _, existing := range b.certs {
			if existing.Kind == c.Kind && existing.StakeCredential.Equal(c.StakeCredential) &&
				existing.DRepCredential.Equal(c.DRepCredential) {
				b.fail(ErrDuplicateCertificate)
				return
			}
		}
	}
	b.certs = append(b.certs, c)
}

func certMustBeUnique(k ledger.CertificateKind) bool {
	switch k {
	case ledger.CertStakeRegistration, ledger.CertStakeRegDeposit,
		ledger.CertDRepRegistration:
		return true
	default:
		return false
	}
}

// RegisterRewardAddress appends a stake-registration certificate for
// addr's staking credential, carrying an explicit deposit.
func (b *Builder) RegisterRewardAddress(addr ledger.Address, deposit ledger.Coin) *Builder {
	cred, ok := rewardCredential(addr)
	if !ok {
		b.fail(ErrMalformedAddress)
		return b
	}
	b.addCertificate(ledger.Certificate{Kind: ledger.CertStakeRegDeposit, StakeCredential: cred, Deposit: deposit})
	return b
}

// RegisterRewardAddressEx is RegisterRewardAddress taking a bech32
// reward address.
func (b *Builder) RegisterRewardAddressEx(rewardAddrBech32 string, deposit ledger.Coin) *Builder {
	addr, err := ledger.AddressFromBech32(rewardAddrBech32)
	if err != nil {
		b.fail(ErrMalformedAddress)
		return b
	}
	return b.RegisterRewardAddress(addr, deposit)
}

// DeregisterRewardAddress appends a stake-deregistration certificate,
// refunding deposit to the transaction's balance.
func (b *Builder) DeregisterRewardAddress(addr ledger.Address, deposit ledger.Coin) *Builder {
	cred, ok := rewardCredential(addr)
	if !ok {
		b.fail(ErrMalformedAddress)
		return b
	}
	b.addCertificate(ledger.Certificate{Kind: ledger.CertStakeDeregDeposit, StakeCredential: cred, Deposit: deposit})
	return b
}

// DeregisterRewardAddressEx is DeregisterRewardAddress taking a bech32
// reward address.
func (b *Builder) DeregisterRewardAddressEx(rewardAddrBech32 string, deposit ledger.Coin) *Builder {
	addr, err := ledger.AddressFromBech32(rewardAddrBech32)
	if err != nil {
		b.fail(ErrMalformedAddress)
		return b
	}
	return b.DeregisterRewardAddress(addr, deposit)
}

// DelegateStake appends a stake-delegation certificate pointing addr's
// staking credential at poolKeyHash.
func (b *Builder) DelegateStake(addr ledger.Address, poolKeyHash [28]byte) *Builder {
	cred, ok := rewardCredential(addr)
	if !ok {
		b.fail(ErrMalformedAddress)
		return b
	}
	b.addCertificate(ledger.Certificate{Kind: ledger.CertStakeDelegation, StakeCredential: cred, PoolKeyHash: poolKeyHash})
	return b
}

// DelegateStakeEx is DelegateStake taking a bech32 reward address and a
// bech32 pool id.
func (b *Builder) DelegateStakeEx(rewardAddrBech32, poolIDBech32 string) *Builder {
	addr, err := ledger.AddressFromBech32(rewardAddrBech32)
	if err != nil {
		b.fail(ErrMalformedAddress)
		return b
	}
	pool, err := bech32Credential(poolIDBech32)
	if err != nil {
		b.fail(err)
		return b
	}
	return b.DelegateStake(addr, pool)
}

// DelegateVotingPower appends a vote-delegation certificate pointing
// addr's staking credential at drep.
func (b *Builder) DelegateVotingPower(addr ledger.Address, drep ledger.DRep) *Builder {
	cred, ok := rewardCredential(addr)
	if !ok {
		b.fail(ErrMalformedAddress)
		return b
	}
	b.addCertificate(ledger.Certificate{Kind: ledger.CertVoteDelegation, StakeCredential: cred, DRepTarget: drep})
	return b
}

// DelegateVotingPowerEx is DelegateVotingPower taking a bech32 reward
// address and a bech32 drep id ("abstain" and "no_confidence" are
// accepted as the two sentinel DRep targets).
func (b *Builder) DelegateVotingPowerEx(rewardAddrBech32, drepID string) *Builder {
	addr, err := ledger.AddressFromBech32(rewardAddrBech32)
	if err != nil {
		b.fail(ErrMalformedAddress)
		return b
	}
	drep, err := parseDRepID(drepID)
	if err != nil {
		b.fail(err)
		return b
	}
	return b.DelegateVotingPower(addr, drep)
}

func parseDRepID(s string) (ledger.DRep, error) {
	switch s {
	case "abstain":
		return ledger.DRep{Kind: ledger.DRepKindAbstain}, nil
	case "no_confidence":
		return ledger.DRep{Kind: ledger.DRepKindNoConfidence}, nil
	default:
		hash, err := bech32Credential(s)
		if err != nil {
			return ledger.DRep{}, err
		}
		return ledger.DRep{Kind: ledger.DRepKindCredential, Credential: ledger.NewKeyHashCredential(hash)}, nil
	}
}

// DelegateStakeAndVote appends both a stake-delegation and a
// vote-delegation certificate for addr's staking credential in one call,
// named and composed after Apollo.DelegateStakeAndVote
// (other_examples/5b971e8f_..._convenience.go.go:153-161).
func (b *Builder) DelegateStakeAndVote(addr ledger.Address, poolKeyHash [28]byte, drep ledger.DRep) *Builder {
	b.DelegateStake(addr, poolKeyHash)
	return b.DelegateVotingPower(addr, drep)
}

// RegisterAndDelegateStake appends a stake-registration certificate
// carrying deposit followed by a stake-delegation certificate, named and
// composed after Apollo.RegisterAndDelegateStake
// (other_examples/5b971e8f_..._convenience.go.go:163-171).
func (b *Builder) RegisterAndDelegateStake(addr ledger.Address, poolKeyHash [28]byte, deposit ledger.Coin) *Builder {
	b.RegisterRewardAddress(addr, deposit)
	return b.DelegateStake(addr, poolKeyHash)
}

// RegisterAndDelegateVote appends a stake-registration certificate
// carrying deposit followed by a vote-delegation certificate, named and
// composed after Apollo.RegisterAndDelegateVote
// (other_examples/5b971e8f_..._convenience.go.go:173-181).
func (b *Builder) RegisterAndDelegateVote(addr ledger.Address, drep ledger.DRep, deposit ledger.Coin) *Builder {
	b.RegisterRewardAddress(addr, deposit)
	return b.DelegateVotingPower(addr, drep)
}

// RegisterAndDelegateStakeAndVote appends registration, stake-delegation,
// and vote-delegation certificates in one call, named and composed after
// Apollo.RegisterAndDelegateStakeAndVote
// (other_examples/5b971e8f_..._convenience.go.go:183-191).
func (b *Builder) RegisterAndDelegateStakeAndVote(addr ledger.Address, poolKeyHash [28]byte, drep ledger.DRep, deposit ledger.Coin) *Builder {
	b.RegisterRewardAddress(addr, deposit)
	return b.DelegateStakeAndVote(addr, poolKeyHash, drep)
}

// RegisterDRep appends a DRep-registration certificate.
func (b *Builder) RegisterDRep(cred ledger.Credential, deposit ledger.Coin, anchor *ledger.Anchor) *Builder {
	b.addCertificate(ledger.Certificate{Kind: ledger.CertDRepRegistration, DRepCredential: cred, Deposit: deposit, DRepAnchor: anchor})
	return b
}

// RegisterDRepEx is RegisterDRep taking a bech32 drep id.
func (b *Builder) RegisterDRepEx(drepID string, deposit ledger.Coin, anchor *ledger.Anchor) *Builder {
	hash, err := bech32Credential(drepID)
	if err != nil {
		b.fail(err)
		return b
	}
	return b.RegisterDRep(ledger.NewKeyHashCredential(hash), deposit, anchor)
}

// DeregisterDRep appends a DRep-deregistration certificate.
func (b *Builder) DeregisterDRep(cred ledger.Credential, deposit ledger.Coin) *Builder {
	b.addCertificate(ledger.Certificate{Kind: ledger.CertDRepDeregistration, DRepCredential: cred, Deposit: deposit})
	return b
}

// DeregisterDRepEx is DeregisterDRep taking a bech32 drep id.
func (b *Builder) DeregisterDRepEx(drepID string, deposit ledger.Coin) *Builder {
	hash, err := bech32Credential(drepID)
	if err != nil {
		b.fail(err)
		return b
	}
	return b.DeregisterDRep(ledger.NewKeyHashCredential(hash), deposit)
}

// WithdrawRewards records a reward withdrawal. Duplicate reward
// addresses overwrite rather than sum, matching the ledger's own
// withdrawals map (a transaction withdraws a reward account's full
// balance at most once).
func (b *Builder) WithdrawRewards(addr ledger.Address, amount ledger.Coin, redeemer *ledger.PlutusData) *Builder {
	bech32, err := addr.Bech32()
	if err != nil {
		b.fail(ErrMalformedAddress)
		return b
	}
	b.withdrawals[bech32] = amount
	if redeemer != nil {
		b.withdrawalReds[bech32] = redeemer
	}
	return b
}

// WithdrawRewardsEx is WithdrawRewards taking a bech32 reward address.
func (b *Builder) WithdrawRewardsEx(rewardAddrBech32 string, amount ledger.Coin, redeemer *ledger.PlutusData) *Builder {
	addr, err := ledger.AddressFromBech32(rewardAddrBech32)
	if err != nil {
		b.fail(ErrMalformedAddress)
		return b
	}
	return b.WithdrawRewards(addr, amount, redeemer)
}

// addProposal appends p, rejecting an exact duplicate (deposit, reward
// address, action kind) triple.
func (b *Builder) addProposal(p ledger.ProposalProcedure) {
	for _, existing := range b.proposals {
		if existing.Deposit == p.Deposit && existing.Action.Kind == p.Action.Kind &&
			sameAddress(existing.RewardAddress, p.RewardAddress) {
			b.fail(ErrDuplicateProposal)
			return
		}
	}
	b.proposals = append(b.proposals, p)
}

func sameAddress(a, b ledger.Address) bool {
	ab, errA := a.Bytes()
	bb, errB := b.Bytes()
	if errA != nil || errB != nil {
		return false
	}
	return string(ab) == string(bb)
}

// ProposeTreasuryWithdrawals appends a treasury-withdrawals proposal
// procedure funded by deposit and returned to rewardAddr if the
// governance action does not pass.
func (b *Builder) ProposeTreasuryWithdrawals(rewardAddr ledger.Address, deposit ledger.Coin, withdrawals map[string]ledger.Coin, anchor ledger.Anchor) *Builder {
	b.addProposal(ledger.ProposalProcedure{
		Deposit:       deposit,
		RewardAddress: rewardAddr,
		Action:        ledger.GovAction{Kind: ledger.GovActionTreasuryWithdrawals, Withdrawals: withdrawals},
		Anchor:        anchor,
	})
	return b
}

// ProposeTreasuryWithdrawalsEx is ProposeTreasuryWithdrawals taking a
// bech32 reward address.
func (b *Builder) ProposeTreasuryWithdrawalsEx(rewardAddrBech32 string, deposit ledger.Coin, withdrawals map[string]ledger.Coin, anchor ledger.Anchor) *Builder {
	addr, err := ledger.AddressFromBech32(rewardAddrBech32)
	if err != nil {
		b.fail(ErrMalformedAddress)
		return b
	}
	return b.ProposeTreasuryWithdrawals(addr, deposit, withdrawals, anchor)
}

// ProposeInfo appends an info-action proposal procedure: a pure
// signalling vote with no on-chain effect.
func (b *Builder) ProposeInfo(rewardAddr ledger.Address, deposit ledger.Coin, anchor ledger.Anchor) *Builder {
	b.addProposal(ledger.ProposalProcedure{
		Deposit:       deposit,
		RewardAddress: rewardAddr,
		Action:        ledger.GovAction{Kind: ledger.GovActionInfo},
		Anchor:        anchor,
	})
	return b
}

// Vote appends a ballot. voter may identify a DRep, a stake pool
// operator, or a constitutional-committee hot credential; redeemer is
// required when voter is backed by a script credential.
func (b *Builder) Vote(voter ledger.Voter, action ledger.GovActionID, procedure ledger.VotingProcedure, redeemer *ledger.PlutusData) *Builder {
	if (voter.Kind == ledger.VoterCommitteeHotScriptHash || voter.Kind == ledger.VoterDRepScriptHash) && redeemer == nil {
		b.fail(ErrMissingRedeemer)
		return b
	}
	b.votes.Add(voter, action, procedure)
	if redeemer != nil {
		if b.voteReds[voter.Kind] == nil {
			b.voteReds[voter.Kind] = make(map[[28]byte]*ledger.PlutusData)
		}
		b.voteReds[voter.Kind][voter.Hash] = redeemer
	}
	return b
}
