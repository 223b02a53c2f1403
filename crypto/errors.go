package crypto

import "github.com/blockberries/crosign/types"

// Key and signature errors. All of them are types.ErrCryptographic.
var (
	// ErrInvalidPrivateKey is returned when private key bytes are malformed or out of range.
	ErrInvalidPrivateKey = types.NewKindError(types.ErrCryptographic, "invalid private key")

	// ErrInvalidPublicKey is returned when public key bytes do not decode to a curve point.
	ErrInvalidPublicKey = types.NewKindError(types.ErrCryptographic, "invalid public key")

	// ErrKeyGeneration is returned when the random source fails.
	ErrKeyGeneration = types.NewKindError(types.ErrCryptographic, "key generation failed")

	// ErrKeyZeroized is returned when signing with a key that has been zeroized.
	ErrKeyZeroized = types.NewKindError(types.ErrCryptographic, "private key has been zeroized")

	// ErrInvalidSignature is returned when a signature cannot be decoded or normalised.
	ErrInvalidSignature = types.NewKindError(types.ErrCryptographic, "invalid signature")
)
