package ledger

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"cosmossdk.io/log"

	"github.com/blockberries/crosign/address"
	"github.com/blockberries/crosign/crypto"
	"github.com/blockberries/crosign/crypto/hd"
)

// Defaults for the Crypto.org app.
const (
	DefaultAppName      = "CRYP"
	DefaultMajorVersion = 2
)

// Options configures ConnectHardwareSigner.
type Options struct {
	Path  hd.Path
	Codec address.Codec

	// AppName is compared case-insensitively with the name the dashboard reports.
	AppName      string
	MajorVersion uint16

	// RequireConfirmation shows the address on the device during connect.
	RequireConfirmation bool

	Logger log.Logger
}

// HardwareSigner is a crypto.Signer backed by a Ledger device. The private key
// never leaves the device; the public key and address are read once at connect.
//
// The device app parses what it signs, so it accepts amino JSON sign bytes.
type HardwareSigner struct {
	app    *App
	path   hd.Path
	pubKey *crypto.PublicKey
	addr   address.Address
	logger log.Logger
}

var _ crypto.Signer = (*HardwareSigner)(nil)

// ConnectHardwareSigner checks the open app and its version, then fetches
// the public key and address at opts.Path.
func ConnectHardwareSigner(ctx context.Context, transport Transport, opts Options) (*HardwareSigner, error) {
	if opts.AppName == "" {
		opts.AppName = DefaultAppName
	}
	if opts.MajorVersion == 0 {
		opts.MajorVersion = DefaultMajorVersion
	}
	app := NewApp(transport, opts.Logger)

	info, err := app.GetAppInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("get app info: %w", err)
	}
	if !strings.EqualFold(info.Name, opts.AppName) {
		return nil, fmt.Errorf("%w: open app is %q, want %q", ErrWrongApp, info.Name, opts.AppName)
	}

	version, err := app.GetVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("get version: %w", err)
	}
	if version.Major != opts.MajorVersion {
		return nil, fmt.Errorf("%w: %s, want major %d", ErrUnsupportedVersion, version, opts.MajorVersion)
	}

	reply, err := app.GetPubKeyAddress(ctx, opts.Codec.Prefix(), opts.Path, opts.RequireConfirmation)
	if err != nil {
		return nil, fmt.Errorf("get address: %w", err)
	}
	pubKey, err := crypto.PublicKeyFromBytes(reply.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPK, err)
	}
	addr, err := opts.Codec.Parse(reply.Address)
	if err != nil {
		return nil, fmt.Errorf("device address: %w", err)
	}
	derived, err := opts.Codec.AddressOf(pubKey.Bytes())
	if err != nil {
		return nil, err
	}
	if !derived.Equals(addr) {
		return nil, fmt.Errorf("%w: device %s, derived %s", ErrAddressMismatch, addr, derived)
	}

	s := &HardwareSigner{
		app:    app,
		path:   opts.Path,
		pubKey: pubKey,
		addr:   addr,
		logger: app.logger,
	}
	s.logger.Info("ledger connected", "app", info.Name, "version", version.String(), "address", addr.String())
	return s, nil
}

// PublicKey returns the key read at connect.
func (s *HardwareSigner) PublicKey() *crypto.PublicKey {
	return s.pubKey
}

// Address returns the address read at connect.
func (s *HardwareSigner) Address() (address.Address, error) {
	return s.addr, nil
}

// Path returns the derivation path the signer uses.
func (s *HardwareSigner) Path() hd.Path {
	return s.path
}

// App returns the underlying app client.
func (s *HardwareSigner) App() *App {
	return s.app
}

// Sign sends msg to the device and blocks until the user approves or
// rejects it. The DER reply is returned as base64 of the 64-byte low-S r||s.
func (s *HardwareSigner) Sign(ctx context.Context, msg []byte) (string, error) {
	der, err := s.app.Sign(ctx, s.path, msg)
	if err != nil {
		return "", err
	}
	sig, err := crypto.CompactFromDER(der)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if !s.pubKey.Verify(msg, sig) {
		return "", fmt.Errorf("%w: signature does not match device key", ErrInvalidSignature)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// Close closes the device transport.
func (s *HardwareSigner) Close() error {
	return s.app.Close()
}
