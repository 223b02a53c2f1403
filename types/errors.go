package types

import "errors"

// Error kinds. Every error returned by this module wraps exactly one of these,
// so callers can classify failures with errors.Is.
var (
	// ErrInput indicates a malformed argument: a bad path, address, word count or amount.
	ErrInput = errors.New("input error")

	// ErrMnemonic indicates an invalid phrase, checksum or derivation failure.
	ErrMnemonic = errors.New("mnemonic error")

	// ErrCryptographic indicates a key or signature operation failed.
	ErrCryptographic = errors.New("cryptographic error")

	// ErrSerialization indicates encoding or decoding of a sign doc or transaction failed.
	ErrSerialization = errors.New("serialization error")

	// ErrDeviceConnection indicates the hardware device is missing, unreachable
	// or running the wrong application.
	ErrDeviceConnection = errors.New("device connection error")

	// ErrDeviceProtocol indicates the hardware device answered with an error
	// status or a malformed reply.
	ErrDeviceProtocol = errors.New("device protocol error")

	// ErrNode indicates a node query or broadcast failed or was rejected.
	ErrNode = errors.New("node error")
)

var (
	// ErrInvalidAmount indicates an amount that overflows once scaled to the base unit.
	ErrInvalidAmount = wrap(ErrInput, "invalid amount")

	// ErrUnknownDenom indicates a denomination that is neither the base nor the display unit.
	ErrUnknownDenom = wrap(ErrInput, "unknown denomination")

	// ErrInvalidBroadcastMode indicates a broadcast mode other than sync, async or block.
	ErrInvalidBroadcastMode = wrap(ErrInput, "invalid broadcast mode")

	// ErrCanonicalJSON indicates a value that cannot be rendered as canonical JSON.
	ErrCanonicalJSON = wrap(ErrSerialization, "canonical json")
)

// kindError is a sentinel that belongs to one error kind.
type kindError struct {
	kind error
	msg  string
}

func wrap(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

func (e *kindError) Error() string { return e.kind.Error() + ": " + e.msg }

func (e *kindError) Unwrap() error { return e.kind }

// NewKindError creates a sentinel error that reports kind through errors.Is.
// Packages use it to declare their own sentinels under one of the kinds above.
func NewKindError(kind error, msg string) error {
	return wrap(kind, msg)
}
