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
	"strings"
	"testing"
)

func TestNewMnemonicWordCounts(t *testing.T) {
	for words, bytesLen := range validWordCounts {
		m, err := NewMnemonic(words)
		if err != nil {
			t.Fatalf("word count %d: %v", words, err)
		}
		if got := len(strings.Fields(m)); got != words {
			t.Errorf("word count %d: got %d words", words, got)
		}
		entropy, err := MnemonicToEntropy(m)
		if err != nil {
			t.Fatalf("word count %d: %v", words, err)
		}
		if len(entropy) != bytesLen {
			t.Errorf("word count %d: expected %d entropy bytes, got %d", words, bytesLen, len(entropy))
		}
	}
}

func TestNewMnemonicRejectsUnsupportedWordCount(t *testing.T) {
	if _, err := NewMnemonic(13); err == nil {
		t.Fatal("expected error for unsupported word count")
	}
}

func TestMnemonicToEntropyRejectsBadChecksum(t *testing.T) {
	m, err := NewMnemonic(12)
	if err != nil {
		t.Fatal(err)
	}
	words := strings.Fields(m)
	// Swap the first two words to change the encoded entropy. A 12-word
	// mnemonic carries only a 4-bit checksum, so roughly one random
	// mnemonic in sixteen (and any whose first two words are equal)
	// still validates after the swap.
	words[0], words[1] = words[1], words[0]
	if _, err := MnemonicToEntropy(strings.Join(words, " ")); err == nil {
		t.Fatal("expected checksum validation to fail")
	}
}

func TestEntropyToMnemonicRoundTrip(t *testing.T) {
	entropy := make([]byte, 32)
	for i := range entropy {
		entropy[i] = byte(i * 3)
	}
	m, err := EntropyToMnemonic(entropy)
	if err != nil {
		t.Fatal(err)
	}
	back, err := MnemonicToEntropy(m)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(back, entropy) {
		t.Fatal("entropy round trip mismatch")
	}
}

func TestMnemonicToRootSeedProducesValidKey(t *testing.T) {
	m, err := NewMnemonic(24)
	if err != nil {
		t.Fatal(err)
	}
	root, err := MnemonicToRootSeed(m, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(root.Bytes()) != 96 {
		t.Fatalf("expected 96-byte root key, got %d", len(root.Bytes()))
	}
}
