package crypto

import (
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	dcrecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// Low-S signature normalization.
//
// ECDSA signatures are malleable: for any valid signature (r, s), the signature
// (r, n-s) is also valid. Cosmos chains reject the high-S form, so signatures
// that come from outside this package (hardware devices) are normalised here.

// IsLowS reports whether a 64-byte r||s signature has s <= n/2.
func IsLowS(sig []byte) bool {
	if len(sig) != SignatureSize {
		return false
	}
	var s secp256k1.ModNScalar
	if s.SetByteSlice(sig[32:]) {
		return false
	}
	return !s.IsOverHalfOrder()
}

// NormalizeLowS returns a copy of sig with s replaced by n-s when s is in the upper half.
func NormalizeLowS(sig []byte) ([]byte, error) {
	if len(sig) != SignatureSize {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidSignature, SignatureSize, len(sig))
	}
	var r, s secp256k1.ModNScalar
	if r.SetByteSlice(sig[:32]) || s.SetByteSlice(sig[32:]) {
		return nil, fmt.Errorf("%w: scalar overflow", ErrInvalidSignature)
	}
	if s.IsOverHalfOrder() {
		s.Negate()
	}
	return compact(dcrecdsa.NewSignature(&r, &s)), nil
}

// CompactFromDER converts a DER-encoded ECDSA signature into the 64-byte
// low-S r||s form used in Cosmos transactions.
func CompactFromDER(der []byte) ([]byte, error) {
	sig, err := dcrecdsa.ParseDERSignature(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return NormalizeLowS(compact(sig))
}
