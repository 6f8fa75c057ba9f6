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

package crypto

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"filippo.io/edwards25519"
	"golang.org/x/crypto/pbkdf2"
)

// HardenedOffset is the index at and above which a derivation step is
// "hardened" and therefore requires a private key.
const HardenedOffset uint32 = 0x80000000

// CIP-1852 purpose and coin-type constants for the Cardano derivation
// tree m / 1852' / 1815' / account' / role / index.
const (
	PurposeCIP1852 uint32 = 1852
	CoinTypeADA    uint32 = 1815
)

// Role enumerates the CIP-1852 account role indexes.
type Role uint32

const (
	RoleExternal      Role = 0
	RoleInternal      Role = 1
	RoleStaking       Role = 2
	RoleDRep          Role = 3
	RoleCommitteeCold Role = 4
	RoleCommitteeHot  Role = 5
)

// AccountPath returns the hardened path m/1852'/1815'/account'.
func AccountPath(account uint32) []uint32 {
	return []uint32{
		HardenedOffset + PurposeCIP1852,
		HardenedOffset + CoinTypeADA,
		HardenedOffset + account,
	}
}

// FullPath returns the full m/1852'/1815'/account'/role/index path.
func FullPath(account uint32, role Role, index uint32) []uint32 {
	return append(AccountPath(account), uint32(role), index)
}

// XPrv is a 96-byte BIP32-Ed25519 extended private key: a 32-byte scalar
// (kL), a 32-byte signing prefix (kR), and a 32-byte chain code.
type XPrv struct {
	scalar    [32]byte
	prefix    [32]byte
	chainCode [32]byte
}

// XPub is a 64-byte BIP32-Ed25519 extended public key: a 32-byte curve
// point followed by a 32-byte chain code.
type XPub struct {
	point     [32]byte
	chainCode [32]byte
}

func clampScalar(b *[32]byte) {
	b[0] &= 0xf8
	b[31] &= 0x1f
	b[31] |= 0x40
}

// RootKeyFromEntropy derives the Cardano Icarus-style BIP32 root key from
// raw BIP39 entropy (not the BIP39 seed phrase's 512-bit seed) and an
// optional passphrase, via 4096 rounds of PBKDF2-HMAC-SHA512 per the
// Cardano convention.
func RootKeyFromEntropy(entropy []byte, passphrase string) (*XPrv, error) {
	seed := pbkdf2.Key([]byte(passphrase), entropy, 4096, 96, sha512.New)
	var xprv XPrv
	copy(xprv.scalar[:], seed[0:32])
	copy(xprv.prefix[:], seed[32:64])
	copy(xprv.chainCode[:], seed[64:96])
	clampScalar(&xprv.scalar)
	return &xprv, nil
}

// NewXPrvFromBytes loads a 96-byte extended private key, as produced by
// Bytes or by the secure key handler's sealed-blob format.
func NewXPrvFromBytes(b []byte) (*XPrv, error) {
	if len(b) != 96 {
		return nil, fmt.Errorf(
			"crypto: extended private key must be 96 bytes, got %d",
			len(b),
		)
	}
	var xprv XPrv
	copy(xprv.scalar[:], b[0:32])
	copy(xprv.prefix[:], b[32:64])
	copy(xprv.chainCode[:], b[64:96])
	return &xprv, nil
}

// Bytes returns the 96-byte serialized form: scalar || prefix || chainCode.
func (k *XPrv) Bytes() []byte {
	out := make([]byte, 96)
	copy(out[0:32], k.scalar[:])
	copy(out[32:64], k.prefix[:])
	copy(out[64:96], k.chainCode[:])
	return out
}

// scalarAsEdwards reduces the raw 256-bit little-endian scalar modulo the
// curve order for scalar multiplication. This is a wide (64-byte uniform)
// reduction rather than the Ed25519 clamp: only the root key is ever
// clamped; derived keys carry whatever bit pattern the CIP-1852 child
// formula produced, and get reduced mod l only when used in point math.
func scalarAsEdwards(raw [32]byte) (*edwards25519.Scalar, error) {
	wide := make([]byte, 64)
	copy(wide[:32], raw[:])
	return edwards25519.NewScalar().SetUniformBytes(wide)
}

// scalarFromLE32 reduces a value already known to be < the curve order
// (true for 8*Zl, since Zl is 224 bits and 8*Zl is at most 227 bits,
// comfortably under l's ~252 bits) from its 32-byte little-endian form.
func scalarFromLE32(b []byte) (*edwards25519.Scalar, error) {
	var arr [32]byte
	copy(arr[:], b)
	return edwards25519.NewScalar().SetCanonicalBytes(arr[:])
}

// PublicKeyBytes returns the 32-byte Ed25519 point kL*G for this key.
func (k *XPrv) PublicKeyBytes() ([32]byte, error) {
	s, err := scalarAsEdwards(k.scalar)
	if err != nil {
		return [32]byte{}, err
	}
	p := new(edwards25519.Point).ScalarBaseMult(s)
	var out [32]byte
	copy(out[:], p.Bytes())
	return out, nil
}

// Public returns the extended public key paired with this private key.
func (k *XPrv) Public() (*XPub, error) {
	point, err := k.PublicKeyBytes()
	if err != nil {
		return nil, err
	}
	return &XPub{point: point, chainCode: k.chainCode}, nil
}

// ChainCode returns the 32-byte chain code.
func (k *XPrv) ChainCode() [32]byte { return k.chainCode }

func le32FromUint32(i uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, i)
	return b
}

func hmacSHA512(key, msg []byte) []byte {
	mac := hmac.New(sha512.New, key)
	mac.Write(msg)
	return mac.Sum(nil)
}

// Derive returns the child extended private key at the given index.
// Indexes >= HardenedOffset are hardened and use the private derivation
// formula; all others use the public (soft) derivation formula.
func (k *XPrv) Derive(index uint32) (*XPrv, error) {
	idxBytes := le32FromUint32(index)
	var z, i []byte
	if index >= HardenedOffset {
		msgZ := append([]byte{0x00}, k.scalar[:]...)
		msgZ = append(msgZ, k.prefix[:]...)
		msgZ = append(msgZ, idxBytes...)
		z = hmacSHA512(k.chainCode[:], msgZ)

		msgI := append([]byte{0x01}, k.scalar[:]...)
		msgI = append(msgI, k.prefix[:]...)
		msgI = append(msgI, idxBytes...)
		i = hmacSHA512(k.chainCode[:], msgI)
	} else {
		pub, err := k.PublicKeyBytes()
		if err != nil {
			return nil, err
		}
		msgZ := append([]byte{0x02}, pub[:]...)
		msgZ = append(msgZ, idxBytes...)
		z = hmacSHA512(k.chainCode[:], msgZ)

		msgI := append([]byte{0x03}, pub[:]...)
		msgI = append(msgI, idxBytes...)
		i = hmacSHA512(k.chainCode[:], msgI)
	}

	zl := z[0:28]
	zr := z[32:64]

	newScalar := add256LE(k.scalar[:], mul8LE(zl))
	newPrefix := add256LE(k.prefix[:], zr)

	var child XPrv
	copy(child.scalar[:], newScalar)
	copy(child.prefix[:], newPrefix)
	copy(child.chainCode[:], i[32:64])
	return &child, nil
}

// DerivePath walks a sequence of child indexes from this key.
func (k *XPrv) DerivePath(path []uint32) (*XPrv, error) {
	cur := k
	for _, idx := range path {
		next, err := cur.Derive(idx)
		if cur != k {
			cur.Zeroize()
		}
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// Zeroize overwrites the key material in place, for callers releasing a
// secret key handle.
func (k *XPrv) Zeroize() {
	for i := range k.scalar {
		k.scalar[i] = 0
	}
	for i := range k.prefix {
		k.prefix[i] = 0
	}
	for i := range k.chainCode {
		k.chainCode[i] = 0
	}
}

// --- XPub ---

// NewXPubFromBytes loads a 64-byte extended public key.
func NewXPubFromBytes(b []byte) (*XPub, error) {
	if len(b) != 64 {
		return nil, fmt.Errorf(
			"crypto: extended public key must be 64 bytes, got %d",
			len(b),
		)
	}
	var xpub XPub
	copy(xpub.point[:], b[0:32])
	copy(xpub.chainCode[:], b[32:64])
	return &xpub, nil
}

// Bytes returns the 64-byte serialized form: point || chainCode.
func (p *XPub) Bytes() []byte {
	out := make([]byte, 64)
	copy(out[0:32], p.point[:])
	copy(out[32:64], p.chainCode[:])
	return out
}

// PointBytes returns the raw 32-byte Ed25519 public key point.
func (p *XPub) PointBytes() [32]byte { return p.point }

// Derive returns the child extended public key at the given (necessarily
// soft) index.
func (p *XPub) Derive(index uint32) (*XPub, error) {
	if index >= HardenedOffset {
		return nil, errors.New("crypto: hardened derivation requires a private key")
	}
	idxBytes := le32FromUint32(index)
	msgZ := append([]byte{0x02}, p.point[:]...)
	msgZ = append(msgZ, idxBytes...)
	z := hmacSHA512(p.chainCode[:], msgZ)

	msgI := append([]byte{0x03}, p.point[:]...)
	msgI = append(msgI, idxBytes...)
	i := hmacSHA512(p.chainCode[:], msgI)

	zl := z[0:28]
	scalar8zl, err := scalarFromLE32(mul8LE(zl))
	if err != nil {
		return nil, err
	}
	basePoint, err := new(edwards25519.Point).SetBytes(p.point[:])
	if err != nil {
		return nil, fmt.Errorf("crypto: invalid extended public key point: %w", err)
	}
	delta := new(edwards25519.Point).ScalarBaseMult(scalar8zl)
	sum := new(edwards25519.Point).Add(basePoint, delta)

	var child XPub
	copy(child.point[:], sum.Bytes())
	copy(child.chainCode[:], i[32:64])
	return &child, nil
}

// DerivePath walks a sequence of (necessarily soft) child indexes.
func (p *XPub) DerivePath(path []uint32) (*XPub, error) {
	cur := p
	for _, idx := range path {
		next, err := cur.Derive(idx)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// --- 256-bit little-endian integer arithmetic helpers ---

func leToBigInt(b []byte) *big.Int {
	rev := make([]byte, len(b))
	for i, v := range b {
		rev[len(b)-1-i] = v
	}
	return new(big.Int).SetBytes(rev)
}

func bigIntToLE32(v *big.Int) []byte {
	be := v.Bytes()
	out := make([]byte, 32)
	n := len(be)
	if n > 32 {
		be = be[n-32:]
		n = 32
	}
	for i := 0; i < n; i++ {
		out[i] = be[n-1-i]
	}
	return out
}

// add256LE returns (a + b) mod 2^256, both operands and the result in
// little-endian byte order.
func add256LE(a, b []byte) []byte {
	mod := new(big.Int).Lsh(big.NewInt(1), 256)
	sum := new(big.Int).Add(leToBigInt(a), leToBigInt(b))
	sum.Mod(sum, mod)
	return bigIntToLE32(sum)
}

// mul8LE returns 8*value(b) in little-endian byte order.
func mul8LE(b []byte) []byte {
	v := new(big.Int).Mul(leToBigInt(b), big.NewInt(8))
	return bigIntToLE32(v)
}
