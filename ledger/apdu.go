// Package ledger speaks the APDU protocol of the Crypto.org Ledger app and
// exposes the device as a crypto.Signer.
package ledger

import (
	"context"
	"encoding/binary"
	"fmt"
)

// Command is an APDU request.
type Command struct {
	CLA  byte
	INS  byte
	P1   byte
	P2   byte
	Data []byte
}

// MaxCommandData is the largest payload a short APDU can carry.
const MaxCommandData = 255

// Serialize encodes the command as CLA INS P1 P2 Lc Data.
func (c Command) Serialize() ([]byte, error) {
	if len(c.Data) > MaxCommandData {
		return nil, fmt.Errorf("%w: apdu data %d bytes", ErrInvalidMessageSize, len(c.Data))
	}
	out := make([]byte, 0, 5+len(c.Data))
	out = append(out, c.CLA, c.INS, c.P1, c.P2, byte(len(c.Data)))
	return append(out, c.Data...), nil
}

// Response is an APDU reply: payload and trailing status word.
type Response struct {
	Data []byte
	Code uint16
}

// ParseResponse splits a raw reply into payload and status word.
func ParseResponse(raw []byte) (Response, error) {
	if len(raw) < 2 {
		return Response{}, fmt.Errorf("%w: %d bytes", ErrShortResponse, len(raw))
	}
	n := len(raw) - 2
	return Response{
		Data: append([]byte(nil), raw[:n]...),
		Code: binary.BigEndian.Uint16(raw[n:]),
	}, nil
}

// Err returns nil for StatusOK and an *AppError otherwise.
func (r Response) Err() error {
	if r.Code == StatusOK {
		return nil
	}
	return newAppError(r.Code)
}

// Transport exchanges one APDU with a device. Implementations serialise
// concurrent exchanges and do not retry.
type Transport interface {
	Exchange(ctx context.Context, cmd Command) (Response, error)
	Close() error
}

// exchangeOK performs an exchange and maps a non-success status to *AppError.
func exchangeOK(ctx context.Context, t Transport, cmd Command) ([]byte, error) {
	resp, err := t.Exchange(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return resp.Data, nil
}
