package crypto

import (
	"context"
	"encoding/base64"
	"sync"

	"github.com/blockberries/crosign/address"
)

// Signer is the capability both transaction builders depend on: a public key,
// the account address derived from it, and a signature over arbitrary bytes.
// Implementations must never expose private key material.
type Signer interface {
	// PublicKey returns the 33-byte compressed secp256k1 public key.
	PublicKey() *PublicKey

	// Address returns the bech32 account address of PublicKey.
	Address() (address.Address, error)

	// Sign hashes msg with SHA256, signs the digest and returns the
	// base64 encoding of the 64-byte r||s signature.
	Sign(ctx context.Context, msg []byte) (string, error)
}

// SoftwareSigner signs with an in-process private key.
// Safe for concurrent use: signing is stateless and the address is computed once.
type SoftwareSigner struct {
	privateKey *PrivateKey
	publicKey  *PublicKey
	codec      address.Codec

	addrOnce sync.Once
	addr     address.Address
	addrErr  error
}

var _ Signer = (*SoftwareSigner)(nil)

// NewSoftwareSigner creates a signer that owns privateKey. Call Close to zeroize it.
func NewSoftwareSigner(privateKey *PrivateKey, codec address.Codec) *SoftwareSigner {
	return &SoftwareSigner{
		privateKey: privateKey,
		publicKey:  privateKey.PublicKey(),
		codec:      codec,
	}
}

// PublicKey returns the signer's public key.
func (s *SoftwareSigner) PublicKey() *PublicKey {
	return s.publicKey
}

// Address returns the cached account address.
func (s *SoftwareSigner) Address() (address.Address, error) {
	s.addrOnce.Do(func() {
		s.addr, s.addrErr = s.codec.AddressOf(s.publicKey.Bytes())
	})
	return s.addr, s.addrErr
}

// Sign signs msg. The context is only checked before signing; the
// operation itself does not block.
func (s *SoftwareSigner) Sign(ctx context.Context, msg []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	sig, err := s.privateKey.Sign(msg)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// Close zeroizes the private key. Sign fails afterwards.
func (s *SoftwareSigner) Close() error {
	s.privateKey.Zeroize()
	return nil
}
