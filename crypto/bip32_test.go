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
	"bytes"
	"testing"
)

func testEntropy() []byte {
	entropy := make([]byte, 32)
	for i := range entropy {
		entropy[i] = byte(i)
	}
	return entropy
}

func TestRootKeyFromEntropyDeterministic(t *testing.T) {
	a, err := RootKeyFromEntropy(testEntropy(), "")
	if err != nil {
		t.Fatal(err)
	}
	b, err := RootKeyFromEntropy(testEntropy(), "")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Fatal("expected deterministic root key for identical entropy")
	}

	c, err := RootKeyFromEntropy(testEntropy(), "passphrase")
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(a.Bytes(), c.Bytes()) {
		t.Fatal("expected different root key for different passphrase")
	}
}

func TestDeriveHardenedAndSoft(t *testing.T) {
	root, err := RootKeyFromEntropy(testEntropy(), "")
	if err != nil {
		t.Fatal(err)
	}

	path := FullPath(0, RoleExternal, 0)
	if len(path) != 5 {
		t.Fatalf("expected 5-element path, got %d", len(path))
	}

	child, err := root.DerivePath(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(child.Bytes()) != 96 {
		t.Fatalf("expected 96-byte derived key, got %d", len(child.Bytes()))
	}

	// Deriving the same path twice must be deterministic.
	child2, err := root.DerivePath(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(child.Bytes(), child2.Bytes()) {
		t.Fatal("expected deterministic derivation")
	}
}

func TestPublicSoftDerivationMatchesPrivate(t *testing.T) {
	root, err := RootKeyFromEntropy(testEntropy(), "")
	if err != nil {
		t.Fatal(err)
	}
	accountPrv, err := root.DerivePath(AccountPath(0))
	if err != nil {
		t.Fatal(err)
	}
	accountPub, err := accountPrv.Public()
	if err != nil {
		t.Fatal(err)
	}

	childPrv, err := accountPrv.Derive(uint32(RoleExternal))
	if err != nil {
		t.Fatal(err)
	}
	childPrvPub, err := childPrv.Public()
	if err != nil {
		t.Fatal(err)
	}

	childPub, err := accountPub.Derive(uint32(RoleExternal))
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(childPrvPub.Bytes(), childPub.Bytes()) {
		t.Fatal("public-only soft derivation diverged from private derivation")
	}
}

func TestHardenedDerivationRejectedOnXPub(t *testing.T) {
	root, err := RootKeyFromEntropy(testEntropy(), "")
	if err != nil {
		t.Fatal(err)
	}
	pub, err := root.Public()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := pub.Derive(HardenedOffset); err == nil {
		t.Fatal("expected error deriving a hardened index from a public key")
	}
}

func TestSignVerifyRoundTrip(t *testing.T) {
	root, err := RootKeyFromEntropy(testEntropy(), "")
	if err != nil {
		t.Fatal(err)
	}
	key, err := root.DerivePath(FullPath(0, RoleExternal, 0))
	if err != nil {
		t.Fatal(err)
	}
	pub, err := key.PublicKeyBytes()
	if err != nil {
		t.Fatal(err)
	}
	msg := []byte("txforge signing test")
	sig, err := key.Sign(msg)
	if err != nil {
		t.Fatal(err)
	}
	if len(sig) != 64 {
		t.Fatalf("expected 64-byte signature, got %d", len(sig))
	}
	if !Verify(pub, msg, sig) {
		t.Fatal("expected signature to verify")
	}
	if Verify(pub, []byte("tampered"), sig) {
		t.Fatal("expected signature over different message to fail")
	}
}
