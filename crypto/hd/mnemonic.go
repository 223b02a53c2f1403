// Package hd derives secp256k1 keys from BIP39 mnemonics along BIP44 paths.
package hd

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/cosmos/go-bip39"
	"golang.org/x/text/unicode/norm"

	"github.com/blockberries/crosign/crypto"
	"github.com/blockberries/crosign/types"
)

var (
	// ErrWordCount is returned by NewMnemonic for unsupported phrase lengths.
	ErrWordCount = types.NewKindError(types.ErrInput, "word count must be 12, 15, 18, 21 or 24")

	// ErrInvalidMnemonic is returned for phrases with unknown words, a bad
	// checksum or an unsupported length.
	ErrInvalidMnemonic = types.NewKindError(types.ErrMnemonic, "invalid mnemonic")

	// ErrDerivation is returned when key derivation fails.
	ErrDerivation = types.NewKindError(types.ErrMnemonic, "key derivation failed")
)

// entropyBits maps word count to entropy size.
var entropyBits = map[int]int{12: 128, 15: 160, 18: 192, 21: 224, 24: 256}

// Mnemonic is a validated BIP39 phrase with its optional passphrase.
// It never prints the phrase; use Phrase explicitly.
type Mnemonic struct {
	phrase     string
	passphrase string
}

// NewMnemonic generates a fresh English phrase of wordCount words.
func NewMnemonic(wordCount int, passphrase string) (*Mnemonic, error) {
	bitSize, ok := entropyBits[wordCount]
	if !ok {
		return nil, fmt.Errorf("%w: got %d", ErrWordCount, wordCount)
	}
	entropy, err := bip39.NewEntropy(bitSize)
	if err != nil {
		return nil, fmt.Errorf("%w: entropy: %v", types.ErrCryptographic, err)
	}
	defer crypto.Zeroize(entropy)

	phrase, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMnemonic, err)
	}
	return &Mnemonic{phrase: phrase, passphrase: normalize(passphrase)}, nil
}

// MnemonicFromPhrase validates words and returns the mnemonic. The phrase is
// NFKD-normalised and whitespace between words is collapsed.
func MnemonicFromPhrase(words, passphrase string) (*Mnemonic, error) {
	phrase := strings.Join(strings.Fields(normalize(words)), " ")

	if _, ok := entropyBits[len(strings.Fields(phrase))]; !ok {
		return nil, fmt.Errorf("%w: %d words", ErrInvalidMnemonic, len(strings.Fields(phrase)))
	}
	if _, err := bip39.MnemonicToByteArray(phrase); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMnemonic, err)
	}
	return &Mnemonic{phrase: phrase, passphrase: normalize(passphrase)}, nil
}

func normalize(s string) string {
	return norm.NFKD.String(s)
}

// Phrase returns the space-separated words.
func (m *Mnemonic) Phrase() string { return m.phrase }

// WordCount returns the number of words in the phrase.
func (m *Mnemonic) WordCount() int { return len(strings.Fields(m.phrase)) }

// String redacts the phrase.
func (m *Mnemonic) String() string {
	return fmt.Sprintf("Mnemonic(%d words, redacted)", m.WordCount())
}

// GoString redacts the phrase for %#v.
func (m *Mnemonic) GoString() string { return m.String() }

// Seed returns the 64-byte BIP39 seed. Callers should Zeroize it when done.
func (m *Mnemonic) Seed() ([]byte, error) {
	seed, err := bip39.NewSeedWithErrorChecking(m.phrase, m.passphrase)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMnemonic, err)
	}
	return seed, nil
}

// DerivePrivateKey derives the secp256k1 key at path.
func (m *Mnemonic) DerivePrivateKey(path Path) (*crypto.PrivateKey, error) {
	seed, err := m.Seed()
	if err != nil {
		return nil, err
	}
	defer crypto.Zeroize(seed)

	// The network only selects the xprv version bytes, which are never serialised here.
	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("%w: master key: %v", ErrDerivation, err)
	}

	key := master
	for depth, index := range path {
		child, err := key.Derive(index)
		key.Zero()
		if err != nil {
			return nil, fmt.Errorf("%w: %s at depth %d: %v", ErrDerivation, path, depth, err)
		}
		key = child
	}
	defer key.Zero()

	ecKey, err := key.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDerivation, err)
	}
	raw := ecKey.Serialize()
	defer crypto.Zeroize(raw)
	ecKey.Zero()

	priv, err := crypto.PrivateKeyFromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDerivation, err)
	}
	return priv, nil
}
