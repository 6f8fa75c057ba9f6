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

func TestSealOpenRoundTrip(t *testing.T) {
	root, err := RootKeyFromEntropy(testEntropy(), "")
	if err != nil {
		t.Fatal(err)
	}
	blob, err := Seal(root.Bytes(), "correct horse battery staple", KeyTypeExtendedPrivate)
	if err != nil {
		t.Fatal(err)
	}
	plaintext, keyType, err := Open(blob, "correct horse battery staple")
	if err != nil {
		t.Fatal(err)
	}
	if keyType != KeyTypeExtendedPrivate {
		t.Errorf("expected key type %d, got %d", KeyTypeExtendedPrivate, keyType)
	}
	if !bytes.Equal(plaintext, root.Bytes()) {
		t.Fatal("round-tripped plaintext did not match original")
	}
}

func TestOpenWrongPassphraseFails(t *testing.T) {
	blob, err := Seal([]byte("secret material"), "passphrase-one", KeyTypeStandardSeed)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := Open(blob, "passphrase-two"); err == nil {
		t.Fatal("expected Open to fail with wrong passphrase")
	}
}

func TestOpenRejectsMalformedBlob(t *testing.T) {
	if _, _, err := Open([]byte("not a sealed blob"), "whatever"); err == nil {
		t.Fatal("expected Open to reject a malformed blob")
	}
}

func TestOpenRejectsTamperedCiphertext(t *testing.T) {
	blob, err := Seal([]byte("secret material"), "passphrase", KeyTypeStandardSeed)
	if err != nil {
		t.Fatal(err)
	}
	tampered := make([]byte, len(blob))
	copy(tampered, blob)
	tampered[len(tampered)-1] ^= 0xFF
	if _, _, err := Open(tampered, "passphrase"); err == nil {
		t.Fatal("expected Open to reject tampered ciphertext")
	}
}
