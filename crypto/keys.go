package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"runtime"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	dcrecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

const (
	// PrivateKeySize is the length of a serialized secp256k1 private key.
	PrivateKeySize = 32

	// PublicKeySize is the length of a compressed secp256k1 public key.
	PublicKeySize = 33

	// SignatureSize is the length of a compact r||s signature.
	SignatureSize = 64
)

// Zeroize securely overwrites a byte slice with zeros.
//
// subtle.XORBytes(b, b, b) cannot be eliminated as a dead store, and
// runtime.KeepAlive keeps b live until the write has happened.
func Zeroize(b []byte) {
	if len(b) == 0 {
		return
	}
	subtle.XORBytes(b, b, b)
	runtime.KeepAlive(b)
}

// PublicKey is a secp256k1 public key.
type PublicKey struct {
	key *secp256k1.PublicKey
}

// PublicKeyFromBytes parses a compressed (33 byte) or uncompressed (65 byte) key.
func PublicKeyFromBytes(data []byte) (*PublicKey, error) {
	key, err := secp256k1.ParsePubKey(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	return &PublicKey{key: key}, nil
}

// Bytes returns the 33-byte compressed public key.
func (k *PublicKey) Bytes() []byte {
	return k.key.SerializeCompressed()
}

// Verify checks a 64-byte r||s signature over SHA256(data).
// Both low-S and high-S forms are accepted.
func (k *PublicKey) Verify(data, signature []byte) bool {
	if len(signature) != SignatureSize {
		return false
	}

	var r, s secp256k1.ModNScalar
	if r.SetByteSlice(signature[:32]) {
		return false // overflow
	}
	if s.SetByteSlice(signature[32:]) {
		return false // overflow
	}

	sig := dcrecdsa.NewSignature(&r, &s)
	hash := sha256.Sum256(data)
	return sig.Verify(hash[:], k.key)
}

// Equals checks equality using constant-time comparison.
func (k *PublicKey) Equals(other *PublicKey) bool {
	if other == nil {
		return false
	}
	return subtle.ConstantTimeCompare(k.Bytes(), other.Bytes()) == 1
}

// String returns Base64-encoded public key.
func (k *PublicKey) String() string {
	return base64.StdEncoding.EncodeToString(k.Bytes())
}

// PrivateKey is a secp256k1 private key. It never prints its scalar.
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// GeneratePrivateKey returns a fresh random key.
func GeneratePrivateKey() (*PrivateKey, error) {
	key, err := secp256k1.GeneratePrivateKeyFromRand(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyGeneration, err)
	}
	return &PrivateKey{key: key}, nil
}

// PrivateKeyFromBytes loads a 32-byte big-endian scalar. Zero and values
// not below the curve order are rejected.
func PrivateKeyFromBytes(data []byte) (*PrivateKey, error) {
	if len(data) != PrivateKeySize {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidPrivateKey, PrivateKeySize, len(data))
	}
	var scalar secp256k1.ModNScalar
	if overflow := scalar.SetByteSlice(data); overflow || scalar.IsZero() {
		scalar.Zero()
		return nil, fmt.Errorf("%w: scalar out of range", ErrInvalidPrivateKey)
	}
	return &PrivateKey{key: secp256k1.NewPrivateKey(&scalar)}, nil
}

// Bytes returns the raw private key bytes (32 bytes).
// Callers should Zeroize the result when done with it.
func (k *PrivateKey) Bytes() []byte {
	return k.key.Serialize()
}

// PublicKey returns the corresponding public key.
func (k *PrivateKey) PublicKey() *PublicKey {
	return &PublicKey{key: k.key.PubKey()}
}

// Sign signs SHA256(data) with RFC 6979 deterministic nonces.
// Returns 64-byte signature: r||s in big-endian, with s in the lower half of the order.
func (k *PrivateKey) Sign(data []byte) ([]byte, error) {
	if k.key.Key.IsZero() {
		return nil, ErrKeyZeroized
	}
	hash := sha256.Sum256(data)
	sig := dcrecdsa.Sign(k.key, hash[:])
	return compact(sig), nil
}

// Zeroize overwrites the private key with zeros. The key is unusable afterwards.
func (k *PrivateKey) Zeroize() {
	k.key.Zero()
}

// String redacts the key.
func (k *PrivateKey) String() string { return "PrivateKey(redacted)" }

// GoString redacts the key for %#v.
func (k *PrivateKey) GoString() string { return k.String() }

func compact(sig *dcrecdsa.Signature) []byte {
	r := sig.R()
	s := sig.S()
	rBytes := r.Bytes()
	sBytes := s.Bytes()

	signature := make([]byte, SignatureSize)
	copy(signature[:32], rBytes[:])
	copy(signature[32:], sBytes[:])
	return signature
}
