package testing

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	dcrecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/blockberries/crosign/address"
	"github.com/blockberries/crosign/crypto"
	"github.com/blockberries/crosign/crypto/hd"
	"github.com/blockberries/crosign/ledger"
)

// MockLedger emulates the Crypto.org Ledger app in memory. It derives keys
// from a mnemonic for whatever path it is asked about and answers sign
// requests with DER signatures, so it exercises the whole device protocol
// without hardware.
type MockLedger struct {
	mu sync.Mutex

	mnemonic *hd.Mnemonic

	// AppName is reported by the dashboard app-info command.
	AppName string
	// VersionReply is the raw get-version payload.
	VersionReply []byte
	// HighS makes the device return the malleated (r, n-s) signature.
	HighS bool
	// Hook, when set, may answer a command instead of the emulator.
	Hook func(cmd ledger.Command) (ledger.Response, bool)

	commands []ledger.Command
	closed   bool

	signPath    []byte
	signPending []byte
}

var _ ledger.Transport = (*MockLedger)(nil)

// NewMockLedger returns an emulated device holding the test mnemonic,
// running CRYP 2.1.0.
func NewMockLedger() *MockLedger {
	return NewMockLedgerWithMnemonic(TestMnemonic())
}

// NewMockLedgerWithMnemonic returns an emulated device holding m.
func NewMockLedgerWithMnemonic(m *hd.Mnemonic) *MockLedger {
	return &MockLedger{
		mnemonic:     m,
		AppName:      "CRYP",
		VersionReply: []byte{0, 2, 1, 0},
	}
}

// Commands returns a copy of every command received so far.
func (d *MockLedger) Commands() []ledger.Command {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]ledger.Command(nil), d.commands...)
}

// Closed reports whether Close was called.
func (d *MockLedger) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Close implements ledger.Transport.
func (d *MockLedger) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Exchange implements ledger.Transport.
func (d *MockLedger) Exchange(ctx context.Context, cmd ledger.Command) (ledger.Response, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Response{}, err
	}
	if _, err := cmd.Serialize(); err != nil {
		return ledger.Response{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ledger.Response{}, ledger.ErrTransportClosed
	}
	cmd.Data = append([]byte(nil), cmd.Data...)
	d.commands = append(d.commands, cmd)

	if d.Hook != nil {
		if resp, ok := d.Hook(cmd); ok {
			return resp, nil
		}
	}
	return d.handle(cmd), nil
}

func status(code uint16) ledger.Response { return ledger.Response{Code: code} }

func ok(data []byte) ledger.Response { return ledger.Response{Data: data, Code: ledger.StatusOK} }

func (d *MockLedger) handle(cmd ledger.Command) ledger.Response {
	switch {
	case cmd.CLA == 0xb0 && cmd.INS == 0x01:
		out := []byte{1, byte(len(d.AppName))}
		out = append(out, d.AppName...)
		out = append(out, 5)
		out = append(out, "2.1.0"...)
		return ok(append(out, 1, 0))
	case cmd.CLA == 0xe0 && cmd.INS == 0x01:
		out := []byte{0x31, 0x10, 0x00, 0x04, 5}
		out = append(out, "2.0.0"...)
		out = append(out, 4, 0xa6, 0, 0, 0, 4)
		return ok(append(out, "1.12"...))
	case cmd.CLA != ledger.CLA:
		return status(0x6E00)
	case cmd.INS == ledger.InsGetVersion:
		return ok(append([]byte(nil), d.VersionReply...))
	case cmd.INS == ledger.InsGetAddress:
		return d.getAddress(cmd)
	case cmd.INS == ledger.InsSign:
		return d.sign(cmd)
	default:
		return status(0x6D00)
	}
}

func (d *MockLedger) key(rawPath []byte) (*crypto.PrivateKey, bool) {
	if len(rawPath) != hd.SerializedPathLen {
		return nil, false
	}
	var path hd.Path
	for i := range path {
		path[i] = binary.LittleEndian.Uint32(rawPath[i*4:])
	}
	if _, err := hd.ParsePath(path.String()); err != nil {
		return nil, false
	}
	key, err := d.mnemonic.DerivePrivateKey(path)
	if err != nil {
		return nil, false
	}
	return key, true
}

func (d *MockLedger) getAddress(cmd ledger.Command) ledger.Response {
	if len(cmd.Data) < 1 || len(cmd.Data) != 1+int(cmd.Data[0])+hd.SerializedPathLen {
		return status(0x6700)
	}
	hrp := string(cmd.Data[1 : 1+cmd.Data[0]])
	key, found := d.key(cmd.Data[1+cmd.Data[0]:])
	if !found {
		return status(0x6984)
	}
	defer key.Zeroize()

	pub := key.PublicKey().Bytes()
	addr, err := address.NewCodec(hrp).AddressOf(pub)
	if err != nil {
		return status(0x6984)
	}
	return ok(append(pub, addr.String()...))
}

func (d *MockLedger) sign(cmd ledger.Command) ledger.Response {
	switch cmd.P1 {
	case ledger.ChunkInit:
		if len(cmd.Data) != hd.SerializedPathLen {
			return status(0x6700)
		}
		d.signPath = cmd.Data
		d.signPending = d.signPending[:0]
		return ok(nil)
	case ledger.ChunkAdd:
		if d.signPath == nil {
			return status(0x6985)
		}
		d.signPending = append(d.signPending, cmd.Data...)
		return ok(nil)
	case ledger.ChunkLast:
		if d.signPath == nil {
			return status(0x6985)
		}
		msg := append(d.signPending, cmd.Data...)
		key, found := d.key(d.signPath)
		d.signPath, d.signPending = nil, nil
		if !found {
			return status(0x6984)
		}
		defer key.Zeroize()
		return ok(d.derSignature(key, msg))
	default:
		return status(0x6B00)
	}
}

// derSignature signs msg and encodes it as DER. Serialize from dcrd always
// emits low-S, so the high-S form is encoded by hand.
func (d *MockLedger) derSignature(key *crypto.PrivateKey, msg []byte) []byte {
	compact, err := key.Sign(msg)
	if err != nil {
		return nil
	}
	var r, s secp256k1.ModNScalar
	r.SetByteSlice(compact[:32])
	s.SetByteSlice(compact[32:])
	if !d.HighS {
		return dcrecdsa.NewSignature(&r, &s).Serialize()
	}
	s.Negate()
	rb, sb := r.Bytes(), s.Bytes()
	return encodeDER(rb[:], sb[:])
}

func encodeDER(r, s []byte) []byte {
	integer := func(v []byte) []byte {
		for len(v) > 1 && v[0] == 0 && v[1]&0x80 == 0 {
			v = v[1:]
		}
		if v[0]&0x80 != 0 {
			v = append([]byte{0}, v...)
		}
		return append([]byte{0x02, byte(len(v))}, v...)
	}
	body := append(integer(r), integer(s)...)
	return append([]byte{0x30, byte(len(body))}, body...)
}
