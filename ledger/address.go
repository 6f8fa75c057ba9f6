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
	"errors"
	"fmt"

	"github.com/blinklabs-io/txforge/cbor"
	"github.com/blinklabs-io/txforge/crypto"
)

// Network is the 4-bit network id packed into an address's header byte.
type Network byte

const (
	NetworkTestnet Network = 0
	NetworkMainnet Network = 1
)

// NetworkMagic values for the well-known Cardano networks (§6).
const (
	NetworkMagicMainnet uint32 = 764824073
	NetworkMagicPreprod uint32 = 1
	NetworkMagicPreview uint32 = 2
)

// AddressVariant is the address shape: which credentials it carries.
type AddressVariant byte

const (
	AddressBase AddressVariant = iota
	AddressPointer
	AddressEnterprise
	AddressReward
	AddressByron
)

// ErrInvalidAddress is returned when address bytes, bech32, or base58
// text cannot be parsed into a well-formed Address.
var ErrInvalidAddress = errors.New("ledger: invalid address")

// Address is a Cardano address: a typed union of Base, Pointer,
// Enterprise, Reward, and legacy Byron variants, each scoped to a
// network id. See §3 for the binary layout.
type Address struct {
	Variant        AddressVariant
	Net            Network
	Payment        Credential
	Staking        Credential
	StakingPointer Pointer
	byronRaw       []byte
}

// Pointer addresses reference a stake credential indirectly via a
// certificate's position in the chain.
type Pointer struct {
	Slot      uint64
	TxIndex   uint64
	CertIndex uint64
}

// NewBaseAddress builds a Base address from payment and staking
// credentials.
func NewBaseAddress(net Network, payment, staking Credential) Address {
	return Address{Variant: AddressBase, Net: net, Payment: payment, Staking: staking}
}

// NewEnterpriseAddress builds an Enterprise address (payment credential
// only, no staking rights).
func NewEnterpriseAddress(net Network, payment Credential) Address {
	return Address{Variant: AddressEnterprise, Net: net, Payment: payment}
}

// NewRewardAddress builds a Reward address (staking credential only),
// used as a withdrawal destination.
func NewRewardAddress(net Network, staking Credential) Address {
	return Address{Variant: AddressReward, Net: net, Staking: staking}
}

// NewPointerAddress builds a Pointer address referencing a stake
// registration certificate by chain position.
func NewPointerAddress(net Network, payment Credential, ptr Pointer) Address {
	return Address{Variant: AddressPointer, Net: net, Payment: payment, StakingPointer: ptr}
}

// NewByronAddressFromRaw wraps an already-decoded legacy Byron address
// payload (the raw CBOR bytes produced by decoding its base58 text).
// Byron addresses are treated as opaque: this module only round-trips
// them, it never constructs new ones.
func NewByronAddressFromRaw(raw []byte) Address {
	return Address{Variant: AddressByron, byronRaw: append([]byte(nil), raw...)}
}

// IsScript reports whether the payment credential (if any) is a script
// hash.
func (a Address) IsScript() bool {
	return (a.Variant == AddressBase || a.Variant == AddressPointer || a.Variant == AddressEnterprise) &&
		a.Payment.IsScript()
}

// NetworkID returns the address's 4-bit network id, or an error for
// Byron addresses, which carry no Shelley-style network id.
func (a Address) NetworkID() (Network, error) {
	if a.Variant == AddressByron {
		return 0, fmt.Errorf("ledger: byron addresses have no network id")
	}
	return a.Net, nil
}

// PaymentCredential returns the payment credential, when the variant
// carries one.
func (a Address) PaymentCredential() (Credential, bool) {
	switch a.Variant {
	case AddressBase, AddressPointer, AddressEnterprise:
		return a.Payment, true
	default:
		return Credential{}, false
	}
}

// StakingCredential returns the staking credential, when the variant
// carries one directly (Pointer addresses do not; see StakingPointer).
func (a Address) StakingCredential() (Credential, bool) {
	switch a.Variant {
	case AddressBase, AddressReward:
		return a.Staking, true
	default:
		return Credential{}, false
	}
}

func headerNibble(a Address) (byte, error) {
	switch a.Variant {
	case AddressBase:
		switch {
		case a.Payment.Kind == CredentialKeyHash && a.Staking.Kind == CredentialKeyHash:
			return 0, nil
		case a.Payment.Kind == CredentialScriptHash && a.Staking.Kind == CredentialKeyHash:
			return 1, nil
		case a.Payment.Kind == CredentialKeyHash && a.Staking.Kind == CredentialScriptHash:
			return 2, nil
		default:
			return 3, nil
		}
	case AddressPointer:
		if a.Payment.Kind == CredentialScriptHash {
			return 5, nil
		}
		return 4, nil
	case AddressEnterprise:
		if a.Payment.Kind == CredentialScriptHash {
			return 7, nil
		}
		return 6, nil
	case AddressReward:
		if a.Staking.Kind == CredentialScriptHash {
			return 15, nil
		}
		return 14, nil
	default:
		return 0, fmt.Errorf("%w: unknown variant %d", ErrInvalidAddress, a.Variant)
	}
}

func credKindFromHeaderBit(nibble byte, bit byte) CredentialKind {
	if nibble&bit != 0 {
		return CredentialScriptHash
	}
	return CredentialKeyHash
}

// encodeVarLenNat encodes a pointer-address component using Shelley's
// variable-length natural number encoding: 7 payload bits per byte,
// most-significant group first, continuation bit set on every byte but
// the last.
func encodeVarLenNat(n uint64) []byte {
	if n == 0 {
		return []byte{0}
	}
	var groups []byte
	for n > 0 {
		groups = append([]byte{byte(n & 0x7f)}, groups...)
		n >>= 7
	}
	for i := 0; i < len(groups)-1; i++ {
		groups[i] |= 0x80
	}
	return groups
}

func decodeVarLenNat(b []byte) (uint64, int, error) {
	var n uint64
	for i, by := range b {
		n = (n << 7) | uint64(by&0x7f)
		if by&0x80 == 0 {
			return n, i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("%w: truncated pointer varint", ErrInvalidAddress)
}

// Bytes returns the canonical binary encoding of the address.
func (a Address) Bytes() ([]byte, error) {
	if a.Variant == AddressByron {
		return append([]byte(nil), a.byronRaw...), nil
	}
	nibble, err := headerNibble(a)
	if err != nil {
		return nil, err
	}
	out := []byte{(nibble << 4) | byte(a.Net)}
	switch a.Variant {
	case AddressBase:
		out = append(out, a.Payment.Hash[:]...)
		out = append(out, a.Staking.Hash[:]...)
	case AddressEnterprise:
		out = append(out, a.Payment.Hash[:]...)
	case AddressReward:
		out = append(out, a.Staking.Hash[:]...)
	case AddressPointer:
		out = append(out, a.Payment.Hash[:]...)
		out = append(out, encodeVarLenNat(a.StakingPointer.Slot)...)
		out = append(out, encodeVarLenNat(a.StakingPointer.TxIndex)...)
		out = append(out, encodeVarLenNat(a.StakingPointer.CertIndex)...)
	}
	return out, nil
}

// AddressFromBytes parses the canonical binary encoding of an address.
// A top header nibble of 8 (which, by design, coincides with the CBOR
// array-of-2 major-type byte that every Byron address begins with) is
// treated as an opaque legacy Byron address.
func AddressFromBytes(data []byte) (Address, error) {
	if len(data) == 0 {
		return Address{}, fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	nibble := data[0] >> 4
	if nibble == 8 {
		return NewByronAddressFromRaw(data), nil
	}
	net := Network(data[0] & 0x0f)
	rest := data[1:]
	readHash := func(b []byte) ([28]byte, []byte, error) {
		if len(b) < 28 {
			return [28]byte{}, nil, fmt.Errorf("%w: truncated credential", ErrInvalidAddress)
		}
		var h [28]byte
		copy(h[:], b[:28])
		return h, b[28:], nil
	}
	switch nibble {
	case 0, 1, 2, 3:
		paymentHash, rest, err := readHash(rest)
		if err != nil {
			return Address{}, err
		}
		stakingHash, rest, err := readHash(rest)
		if err != nil {
			return Address{}, err
		}
		if len(rest) != 0 {
			return Address{}, fmt.Errorf("%w: trailing bytes", ErrInvalidAddress)
		}
		return Address{
			Variant: AddressBase,
			Net:     net,
			Payment: Credential{Kind: credKindFromHeaderBit(nibble, 0x1), Hash: paymentHash},
			Staking: Credential{Kind: credKindFromHeaderBit(nibble, 0x2), Hash: stakingHash},
		}, nil
	case 4, 5:
		paymentHash, rest, err := readHash(rest)
		if err != nil {
			return Address{}, err
		}
		slot, n, err := decodeVarLenNat(rest)
		if err != nil {
			return Address{}, err
		}
		rest = rest[n:]
		txIndex, n, err := decodeVarLenNat(rest)
		if err != nil {
			return Address{}, err
		}
		rest = rest[n:]
		certIndex, n, err := decodeVarLenNat(rest)
		if err != nil {
			return Address{}, err
		}
		rest = rest[n:]
		if len(rest) != 0 {
			return Address{}, fmt.Errorf("%w: trailing bytes", ErrInvalidAddress)
		}
		return Address{
			Variant: AddressPointer,
			Net:     net,
			Payment: Credential{Kind: credKindFromHeaderBit(nibble, 0x1), Hash: paymentHash},
			StakingPointer: Pointer{
				Slot: slot, TxIndex: txIndex, CertIndex: certIndex,
			},
		}, nil
	case 6, 7:
		paymentHash, rest, err := readHash(rest)
		if err != nil {
			return Address{}, err
		}
		if len(rest) != 0 {
			return Address{}, fmt.Errorf("%w: trailing bytes", ErrInvalidAddress)
		}
		return Address{
			Variant: AddressEnterprise,
			Net:     net,
			Payment: Credential{Kind: credKindFromHeaderBit(nibble, 0x1), Hash: paymentHash},
		}, nil
	case 14, 15:
		stakingHash, rest, err := readHash(rest)
		if err != nil {
			return Address{}, err
		}
		if len(rest) != 0 {
			return Address{}, fmt.Errorf("%w: trailing bytes", ErrInvalidAddress)
		}
		return Address{
			Variant: AddressReward,
			Net:     net,
			Staking: Credential{Kind: credKindFromHeaderBit(nibble, 0x1), Hash: stakingHash},
		}, nil
	default:
		return Address{}, fmt.Errorf("%w: unknown header nibble %d", ErrInvalidAddress, nibble)
	}
}

func bech32HRPFor(a Address) (string, error) {
	switch a.Variant {
	case AddressBase, AddressPointer, AddressEnterprise:
		if a.Net == NetworkMainnet {
			return crypto.HRPAddrMainnet, nil
		}
		return crypto.HRPAddrTestnet, nil
	case AddressReward:
		if a.Net == NetworkMainnet {
			return crypto.HRPStakeMainnet, nil
		}
		return crypto.HRPStakeTestnet, nil
	default:
		return "", fmt.Errorf("ledger: byron addresses use base58, not bech32")
	}
}

// Bech32 encodes the address in its HRP-qualified bech32 text form.
func (a Address) Bech32() (string, error) {
	hrp, err := bech32HRPFor(a)
	if err != nil {
		return "", err
	}
	raw, err := a.Bytes()
	if err != nil {
		return "", err
	}
	return crypto.EncodeBech32(hrp, raw)
}

// AddressFromBech32 parses an HRP-qualified bech32 address string.
func AddressFromBech32(s string) (Address, error) {
	_, raw, err := crypto.DecodeBech32(s)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %s", ErrInvalidAddress, err)
	}
	return AddressFromBytes(raw)
}

// Base58 encodes a Byron address in legacy base58 text form. Non-Byron
// addresses return an error.
func (a Address) Base58() (string, error) {
	if a.Variant != AddressByron {
		return "", fmt.Errorf("ledger: only byron addresses use base58")
	}
	return crypto.EncodeBase58(a.byronRaw), nil
}

// AddressFromBase58 parses a legacy Byron base58 address string.
func AddressFromBase58(s string) (Address, error) {
	raw, err := crypto.DecodeBase58(s)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %s", ErrInvalidAddress, err)
	}
	return NewByronAddressFromRaw(raw), nil
}

// String renders the address in its natural text form (bech32 for
// Shelley-era variants, base58 for Byron).
func (a Address) String() string {
	var s string
	var err error
	if a.Variant == AddressByron {
		s, err = a.Base58()
	} else {
		s, err = a.Bech32()
	}
	if err != nil {
		return fmt.Sprintf("<invalid address: %s>", err)
	}
	return s
}

// MarshalCBOR encodes the address as a CBOR byte string of its raw
// binary encoding, as used in transaction output addresses.
func (a Address) MarshalCBOR() ([]byte, error) {
	raw, err := a.Bytes()
	if err != nil {
		return nil, err
	}
	return cbor.Encode(raw)
}

// UnmarshalCBOR decodes a CBOR byte string into the address.
func (a *Address) UnmarshalCBOR(data []byte) error {
	var raw []byte
	if _, err := cbor.Decode(data, &raw); err != nil {
		return err
	}
	parsed, err := AddressFromBytes(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
