// Package vectors provides cross-implementation test vectors for amino JSON
// transfers.
//
// Each vector fixes a key path, a chain profile and a set of transfers, and
// records the canonical sign doc, its SHA-256 digest and the signature the
// derived key produces over it. Any conforming client must reproduce them
// byte for byte.
//
// SECURITY: Vectors are generated from well-known test mnemonics. NEVER use
// these keys in production.
package vectors

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/blockberries/crosign/crypto"
	"github.com/blockberries/crosign/types"
)

// Version of the vector file format.
const Version = "1"

// File is the root structure of a vector file.
type File struct {
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Vectors     []Vector `json:"vectors"`
}

// Vector is a single test case.
type Vector struct {
	// Name is a unique identifier for this vector.
	Name string `json:"name"`

	// Description explains what the vector covers.
	Description string `json:"description"`

	// Category groups related vectors (transfer, memo, denomination, chain).
	Category string `json:"category"`

	Input    Input    `json:"input"`
	Expected Expected `json:"expected"`
}

// Input contains everything needed to rebuild the sign doc.
type Input struct {
	// Path is the BIP32 path of the signing key.
	Path string `json:"path"`

	// Prefix is the bech32 prefix addresses are encoded with.
	Prefix string `json:"prefix"`

	ChainID       string             `json:"chain_id"`
	AccountNumber types.StringUint64 `json:"account_number"`
	Sequence      types.StringUint64 `json:"sequence"`
	Memo          string             `json:"memo"`
	Fee           types.Amount       `json:"fee"`
	Gas           types.StringUint64 `json:"gas"`
	Transfers     []Transfer         `json:"transfers"`
}

// Transfer is one MsgSend. To may carry any prefix; it is re-encoded with
// the input's prefix.
type Transfer struct {
	To     string             `json:"to"`
	Amount types.StringUint64 `json:"amount"`
	Denom  string             `json:"denom"`
}

// Expected contains the outputs a conforming implementation must produce.
type Expected struct {
	// Address of the signing key under Input.Prefix.
	Address string `json:"address"`

	// PubKey is the base64 compressed public key.
	PubKey string `json:"pub_key"`

	// SignDocJSON is the canonical JSON sign doc.
	SignDocJSON string `json:"sign_doc_json"`

	// SignDocSHA256 is the digest that is actually signed.
	SignDocSHA256 HexBytes `json:"sign_doc_sha256"`

	// Signature is the base64 64-byte r||s signature.
	Signature string `json:"signature"`
}

// HexBytes encodes as a lowercase hex string in JSON.
type HexBytes []byte

// MarshalJSON encodes bytes as hex string.
func (h HexBytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(h))
}

// UnmarshalJSON decodes hex string to bytes.
func (h *HexBytes) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	*h = b
	return nil
}

// JSON returns the indented file encoding.
func (f *File) JSON() ([]byte, error) {
	return json.MarshalIndent(f, "", "  ")
}

// Parse decodes a vector file.
func Parse(data []byte) (*File, error) {
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrSerialization, err)
	}
	if f.Version != Version {
		return nil, fmt.Errorf("%w: unsupported vector file version %q", types.ErrSerialization, f.Version)
	}
	return &f, nil
}

// Check verifies the expected section of v is self-consistent: the digest
// matches the sign doc and the signature verifies under the public key.
// It does not need the private key.
func (v Vector) Check() error {
	sum := sha256.Sum256([]byte(v.Expected.SignDocJSON))
	if !bytes.Equal(sum[:], v.Expected.SignDocSHA256) {
		return fmt.Errorf("%s: sign doc digest mismatch", v.Name)
	}

	canonical, err := types.CanonicalizeJSON([]byte(v.Expected.SignDocJSON))
	if err != nil {
		return fmt.Errorf("%s: %w", v.Name, err)
	}
	if string(canonical) != v.Expected.SignDocJSON {
		return fmt.Errorf("%s: sign doc is not canonical", v.Name)
	}

	rawPub, err := base64.StdEncoding.DecodeString(v.Expected.PubKey)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", v.Name, types.ErrSerialization, err)
	}
	pub, err := crypto.PublicKeyFromBytes(rawPub)
	if err != nil {
		return fmt.Errorf("%s: %w", v.Name, err)
	}
	sig, err := base64.StdEncoding.DecodeString(v.Expected.Signature)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", v.Name, types.ErrSerialization, err)
	}
	if !pub.Verify([]byte(v.Expected.SignDocJSON), sig) {
		return fmt.Errorf("%s: %w", v.Name, crypto.ErrInvalidSignature)
	}
	return nil
}
