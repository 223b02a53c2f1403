package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockberries/crosign/crypto/hd"
	"github.com/blockberries/crosign/types"
)

func TestDefault(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, "crypto-org-chain-mainnet-1", c.ChainID)
	assert.Equal(t, "cro", c.Codec().Prefix())
	assert.Equal(t, hd.NewFundraiserPath(394, 0, 0), c.Path())
	assert.Equal(t, types.CroDenomUnit, c.DenomUnit)
	assert.Equal(t, uint64(20000), c.Gas())
	assert.Equal(t, "CRYP", c.Ledger.AppName)
	assert.Equal(t, uint16(2), c.Ledger.MajorVersion)
}

func TestParse_OverridesDefaults(t *testing.T) {
	c, err := Parse([]byte(`
chain_id: testnet-croeseid-4
bech32_prefix: tcro
base_denom: basetcro
display_denom: tcro
ledger:
  require_confirmation: true
grpc:
  endpoint: grpc.testnet.example:443
  timeout: 3s
`))
	require.NoError(t, err)
	assert.Equal(t, "testnet-croeseid-4", c.ChainID)
	assert.Equal(t, "tcro", c.Bech32Prefix)
	assert.Equal(t, "basetcro", c.Base)
	assert.Equal(t, uint64(100_000_000), c.Scale, "omitted fields keep the default")
	assert.Equal(t, DefaultPath, c.HDPath)
	assert.True(t, c.Ledger.RequireConfirmation)
	assert.Equal(t, "CRYP", c.Ledger.AppName)
	assert.Equal(t, 3*time.Second, c.GRPC.Timeout)

	amt, err := c.NewAmount(2, "tcro")
	require.NoError(t, err)
	assert.Equal(t, "200000000basetcro", amt.String())
}

func TestParse_Empty(t *testing.T) {
	c, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestParse_Invalid(t *testing.T) {
	tests := map[string]string{
		"unknown field":  "chain_idd: x\n",
		"bad yaml":       "chain_id: [\n",
		"empty chain id": "chain_id: \"\"\n",
		"upper prefix":   "bech32_prefix: CRO\n",
		"bad path":       "hd_path: m/44/394/0/0/0\n",
		"zero scale":     "scale: 0\n",
		"same denoms":    "display_denom: basecro\n",
		"no app name":    "ledger:\n  app_name: \"\"\n",
		"no major":       "ledger:\n  major_version: 0\n",
		"neg timeout":    "grpc:\n  timeout: -1s\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.ErrorIs(t, err, types.ErrInput)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chain.yaml")
	data, err := Default().Marshal()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), c)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
