// Package address converts secp256k1 public keys to bech32 account addresses
// and parses addresses back, checking the human-readable prefix.
package address

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // account hash is fixed by the chain

	"github.com/blockberries/crosign/types"
)

const (
	// CompressedPubKeyLen is the length of a compressed secp256k1 public key.
	CompressedPubKeyLen = 33

	// HashLen is the length of an account hash.
	HashLen = 20

	// ModuleHashLen is the length of a module account hash (ADR-028), accepted by Parse.
	ModuleHashLen = 32
)

var (
	// ErrInvalidPrefix is returned when the address prefix differs from the codec's.
	ErrInvalidPrefix = types.NewKindError(types.ErrInput, "invalid address prefix")

	// ErrBech32 is returned for undecodable addresses: bad checksum, bad characters,
	// mixed case or a payload of the wrong length.
	ErrBech32 = types.NewKindError(types.ErrInput, "invalid bech32 address")

	// ErrInvalidPubKey is returned when the key is not a 33-byte compressed key.
	ErrInvalidPubKey = types.NewKindError(types.ErrInput, "invalid public key")
)

// Address is an account address: a human-readable prefix and the account hash.
// The zero value is the empty address.
type Address struct {
	prefix string
	hash   []byte
}

// String returns the bech32 form. The empty address renders as "".
func (a Address) String() string {
	if a.Empty() {
		return ""
	}
	conv, err := bech32.ConvertBits(a.hash, 8, 5, true)
	if err != nil {
		return ""
	}
	s, err := bech32.Encode(a.prefix, conv)
	if err != nil {
		return ""
	}
	return s
}

// Bytes returns a copy of the account hash.
func (a Address) Bytes() []byte {
	return append([]byte(nil), a.hash...)
}

// Prefix returns the human-readable part.
func (a Address) Prefix() string { return a.prefix }

// Empty reports whether a is the zero address.
func (a Address) Empty() bool { return len(a.hash) == 0 }

// Equals compares prefix and hash.
func (a Address) Equals(other Address) bool {
	return a.prefix == other.prefix && bytes.Equal(a.hash, other.hash)
}

// MarshalJSON encodes the bech32 string.
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// Codec converts between public keys, hashes and addresses for one prefix.
type Codec struct {
	prefix string
}

// NewCodec returns a codec for the given human-readable prefix (e.g. "cro").
func NewCodec(prefix string) Codec {
	return Codec{prefix: prefix}
}

// Prefix returns the codec's human-readable part.
func (c Codec) Prefix() string { return c.prefix }

// Hash returns RIPEMD160(SHA256(pubKey)).
func Hash(pubKey []byte) []byte {
	sha := sha256.Sum256(pubKey)
	h := ripemd160.New()
	h.Write(sha[:])
	return h.Sum(nil)
}

// AddressOf derives the address of a compressed secp256k1 public key.
func (c Codec) AddressOf(pubKey []byte) (Address, error) {
	if len(pubKey) != CompressedPubKeyLen || (pubKey[0] != 0x02 && pubKey[0] != 0x03) {
		return Address{}, fmt.Errorf("%w: want %d-byte compressed key, got %d bytes", ErrInvalidPubKey, CompressedPubKeyLen, len(pubKey))
	}
	return c.FromHash(Hash(pubKey))
}

// FromHash wraps an account hash in an address.
func (c Codec) FromHash(hash []byte) (Address, error) {
	if len(hash) != HashLen && len(hash) != ModuleHashLen {
		return Address{}, fmt.Errorf("%w: hash must be %d or %d bytes, got %d", ErrBech32, HashLen, ModuleHashLen, len(hash))
	}
	if c.prefix == "" {
		return Address{}, fmt.Errorf("%w: codec has no prefix", ErrInvalidPrefix)
	}
	return Address{prefix: c.prefix, hash: append([]byte(nil), hash...)}, nil
}

// Parse decodes a bech32 address and checks its prefix matches the codec's.
func (c Codec) Parse(text string) (Address, error) {
	hrp, data, err := bech32.Decode(text)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrBech32, err)
	}
	if hrp != c.prefix {
		return Address{}, fmt.Errorf("%w: got %q, want %q", ErrInvalidPrefix, hrp, c.prefix)
	}
	hash, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrBech32, err)
	}
	return c.FromHash(hash)
}

// MustParse is like Parse but panics on error.
func (c Codec) MustParse(text string) Address {
	a, err := c.Parse(text)
	if err != nil {
		panic(err)
	}
	return a
}
