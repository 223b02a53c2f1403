package ledger

import (
	"fmt"

	"github.com/blockberries/crosign/types"
)

// Connection errors. All of them are types.ErrDeviceConnection.
var (
	// ErrDeviceNotFound is returned when no Ledger device is attached.
	ErrDeviceNotFound = types.NewKindError(types.ErrDeviceConnection, "ledger device not found")

	// ErrWrongApp is returned when the open app is not the expected one.
	ErrWrongApp = types.NewKindError(types.ErrDeviceConnection, "wrong ledger app")

	// ErrUnsupportedVersion is returned when the app major version is not supported.
	ErrUnsupportedVersion = types.NewKindError(types.ErrDeviceConnection, "unsupported ledger app version")

	// ErrDeviceIO is returned when reading from or writing to the device fails.
	ErrDeviceIO = types.NewKindError(types.ErrDeviceConnection, "device i/o failed")

	// ErrTransportClosed is returned by Exchange after Close.
	ErrTransportClosed = types.NewKindError(types.ErrDeviceConnection, "transport closed")
)

// Protocol errors. All of them are types.ErrDeviceProtocol.
var (
	ErrInvalidPK           = types.NewKindError(types.ErrDeviceProtocol, "received an invalid PK")
	ErrNoSignature         = types.NewKindError(types.ErrDeviceProtocol, "received no signature back")
	ErrInvalidSignature    = types.NewKindError(types.ErrDeviceProtocol, "received an invalid signature")
	ErrInvalidEmptyMessage = types.NewKindError(types.ErrDeviceProtocol, "message cannot be empty")
	ErrInvalidMessageSize  = types.NewKindError(types.ErrDeviceProtocol, "message size is invalid (too big)")
	ErrInvalidVersion      = types.NewKindError(types.ErrDeviceProtocol, "this version is not supported")
	ErrInvalidFormatID     = types.NewKindError(types.ErrDeviceProtocol, "invalid format id in app info")
	ErrInvalidUTF8         = types.NewKindError(types.ErrDeviceProtocol, "invalid utf-8 in device reply")
	ErrShortResponse       = types.NewKindError(types.ErrDeviceProtocol, "device reply too short")
	ErrInvalidFrame        = types.NewKindError(types.ErrDeviceProtocol, "invalid hid frame")
	ErrAddressMismatch     = types.NewKindError(types.ErrDeviceProtocol, "device address does not match its public key")
)

// StatusOK is the APDU status word for success.
const StatusOK uint16 = 0x9000

var statusDescriptions = map[uint16]string{
	0x6400: "Execution Error",
	0x6700: "Wrong Length",
	0x6982: "Empty Buffer",
	0x6983: "Output buffer too small",
	0x6984: "Data is invalid",
	0x6985: "Conditions not satisfied",
	0x6986: "Transaction rejected",
	0x6A80: "Bad key handle",
	0x6B00: "Invalid P1/P2",
	0x6D00: "Instruction not supported",
	0x6E00: "App does not seem to be open",
	0x6F00: "Unknown error",
	0x6F01: "Sign/verify error",
}

// StatusDescription returns the human-readable text for an APDU status word.
func StatusDescription(code uint16) string {
	if code == StatusOK {
		return "No errors"
	}
	if d, ok := statusDescriptions[code]; ok {
		return d
	}
	return "[APDU_ERROR] Unknown"
}

// AppError is a non-success status word returned by the device app.
type AppError struct {
	Code        uint16
	Description string
}

func newAppError(code uint16) *AppError {
	return &AppError{Code: code, Description: StatusDescription(code)}
}

func (e *AppError) Error() string {
	return fmt.Sprintf("ledger app error 0x%04x: %s", e.Code, e.Description)
}

// Unwrap classifies every app error as a protocol error.
func (e *AppError) Unwrap() error { return types.ErrDeviceProtocol }
