package crypto

import (
	"fmt"

	"github.com/tyler-smith/go-bip39"
)

// validWordCounts enumerates the supported mnemonic lengths and their
// corresponding entropy sizes in bytes.
var validWordCounts = map[int]int{
	12: 16,
	15: 20,
	18: 24,
	21: 28,
	24: 32,
}

// NewMnemonic generates a BIP39 mnemonic of the given word count
// (12/15/18/21/24), backed by crypto/rand entropy.
func NewMnemonic(wordCount int) (string, error) {
	bits, ok := validWordCounts[wordCount]
	if !ok {
		return "", fmt.Errorf("crypto: unsupported mnemonic word count %d", wordCount)
	}
	entropy, err := bip39.NewEntropy(bits * 8)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

// MnemonicToEntropy recovers the entropy bytes backing a mnemonic,
// validating its checksum.
func MnemonicToEntropy(mnemonic string) ([]byte, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("crypto: invalid mnemonic checksum or word")
	}
	return bip39.EntropyFromMnemonic(mnemonic)
}

// EntropyToMnemonic encodes entropy bytes (16/20/24/28/32) back into a
// mnemonic phrase.
func EntropyToMnemonic(entropy []byte) (string, error) {
	if _, ok := validWordCounts[entropyWordCount(len(entropy))]; !ok {
		return "", fmt.Errorf("crypto: unsupported entropy length %d", len(entropy))
	}
	return bip39.NewMnemonic(entropy)
}

func entropyWordCount(entropyBytes int) int {
	switch entropyBytes {
	case 16:
		return 12
	case 20:
		return 15
	case 24:
		return 18
	case 28:
		return 21
	case 32:
		return 24
	default:
		return 0
	}
}

// MnemonicToRootSeed derives the 96-byte Cardano BIP32-Ed25519 root
// extended key material from a mnemonic's entropy, Icarus-style: PBKDF2
// over the raw entropy bytes (not the BIP39 512-bit seed used by other
// chains), with an optional passphrase, 4096 iterations of HMAC-SHA512.
func MnemonicToRootSeed(mnemonic string, passphrase string) (*XPrv, error) {
	entropy, err := MnemonicToEntropy(mnemonic)
	if err != nil {
		return nil, err
	}
	return RootKeyFromEntropy(entropy, passphrase)
}
