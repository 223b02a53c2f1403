// Package config holds the chain profile every other package is configured
// from: chain id, address prefix, derivation path, denominations and the
// endpoints used to reach a node or a Ledger.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/blockberries/crosign/address"
	"github.com/blockberries/crosign/crypto/hd"
	"github.com/blockberries/crosign/types"
)

// DefaultPath is the Crypto.org account path.
const DefaultPath = "m/44'/394'/0'/0/0"

// ErrInvalidConfig is returned for unreadable or inconsistent profiles.
var ErrInvalidConfig = types.NewKindError(types.ErrInput, "invalid config")

// Ledger configures the hardware signer.
type Ledger struct {
	AppName             string `yaml:"app_name"`
	MajorVersion        uint16 `yaml:"major_version"`
	RequireConfirmation bool   `yaml:"require_confirmation"`
}

// GRPC configures the node client.
type GRPC struct {
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Chain is a chain profile.
type Chain struct {
	ChainID      string `yaml:"chain_id"`
	Bech32Prefix string `yaml:"bech32_prefix"`
	HDPath       string `yaml:"hd_path"`

	types.DenomUnit `yaml:",inline"`

	DefaultGas uint64 `yaml:"default_gas"`

	Ledger Ledger `yaml:"ledger"`
	GRPC   GRPC   `yaml:"grpc"`
}

// Default returns the Crypto.org mainnet profile.
func Default() *Chain {
	return &Chain{
		ChainID:      "crypto-org-chain-mainnet-1",
		Bech32Prefix: "cro",
		HDPath:       DefaultPath,
		DenomUnit:    types.CroDenomUnit,
		DefaultGas:   types.DefaultGas,
		Ledger: Ledger{
			AppName:      "CRYP",
			MajorVersion: 2,
		},
		GRPC: GRPC{
			Endpoint: "localhost:9090",
			Timeout:  10 * time.Second,
		},
	}
}

// Load reads and validates the profile at path.
func Load(path string) (*Chain, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return Parse(data)
}

// Parse decodes a YAML profile over Default and validates it. Fields the
// document omits keep their default; unknown fields are rejected.
func Parse(data []byte) (*Chain, error) {
	c := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Marshal encodes the profile as YAML.
func (c *Chain) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Validate checks every field is usable.
func (c *Chain) Validate() error {
	if c.ChainID == "" {
		return fmt.Errorf("%w: chain_id is required", ErrInvalidConfig)
	}
	if c.Bech32Prefix == "" || c.Bech32Prefix != strings.ToLower(c.Bech32Prefix) {
		return fmt.Errorf("%w: bech32_prefix %q must be non-empty lowercase", ErrInvalidConfig, c.Bech32Prefix)
	}
	if _, err := hd.ParsePath(c.HDPath); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := c.DenomUnit.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Ledger.AppName == "" {
		return fmt.Errorf("%w: ledger.app_name is required", ErrInvalidConfig)
	}
	if c.Ledger.MajorVersion == 0 {
		return fmt.Errorf("%w: ledger.major_version is required", ErrInvalidConfig)
	}
	if c.GRPC.Timeout < 0 {
		return fmt.Errorf("%w: grpc.timeout cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// Codec returns the address codec for the profile's prefix.
func (c *Chain) Codec() address.Codec {
	return address.NewCodec(c.Bech32Prefix)
}

// Path returns the parsed derivation path. The profile must have been validated.
func (c *Chain) Path() hd.Path {
	return hd.MustParsePath(c.HDPath)
}

// Gas returns DefaultGas, or types.DefaultGas when it is zero.
func (c *Chain) Gas() uint64 {
	if c.DefaultGas == 0 {
		return types.DefaultGas
	}
	return c.DefaultGas
}
