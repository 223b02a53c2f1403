package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// BroadcastMode tells the node how long to wait before answering a broadcast.
type BroadcastMode string

const (
	// BroadcastSync returns after CheckTx.
	BroadcastSync BroadcastMode = "sync"
	// BroadcastAsync returns immediately.
	BroadcastAsync BroadcastMode = "async"
	// BroadcastBlock returns after the transaction is committed.
	BroadcastBlock BroadcastMode = "block"
)

// ParseBroadcastMode parses a case-insensitive mode name.
func ParseBroadcastMode(s string) (BroadcastMode, error) {
	m := BroadcastMode(strings.ToLower(strings.TrimSpace(s)))
	if err := m.Validate(); err != nil {
		return "", err
	}
	return m, nil
}

// Validate returns ErrInvalidBroadcastMode for unknown modes.
func (m BroadcastMode) Validate() error {
	switch m {
	case BroadcastSync, BroadcastAsync, BroadcastBlock:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidBroadcastMode, string(m))
}

// MarshalJSON rejects unknown modes so an invalid transaction is never emitted.
func (m BroadcastMode) MarshalJSON() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(string(m))
}
