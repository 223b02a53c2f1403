package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blockberries/crosign/crypto"
	"github.com/blockberries/crosign/crypto/hd"
	"github.com/blockberries/crosign/ledger"
	"github.com/blockberries/crosign/types"
)

// mnemonicEnv names the environment variable holding the mnemonic.
const mnemonicEnv = "CROSIGN_MNEMONIC"

type signerFlags struct {
	mnemonicFile string
	ledger       bool
	account      uint32
	index        uint32
}

func (f *signerFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.mnemonicFile, "mnemonic-file", "", "file holding the mnemonic (default $"+mnemonicEnv+")")
	cmd.Flags().BoolVar(&f.ledger, "ledger", false, "sign with a Ledger device running the Crypto.org app")
	cmd.Flags().Uint32Var(&f.account, "account", 0, "account component of the derivation path")
	cmd.Flags().Uint32Var(&f.index, "index", 0, "address index component of the derivation path")
}

// path is the profile's path with --account and --index applied when they
// were given.
func (f *signerFlags) path(cmd *cobra.Command, a *app) (hd.Path, error) {
	p := a.chain.Path()
	if cmd.Flags().Changed("account") {
		if f.account >= hd.Hardened {
			return hd.Path{}, fmt.Errorf("%w: --account %d out of range", types.ErrInput, f.account)
		}
		p[2] = f.account | hd.Hardened
	}
	if cmd.Flags().Changed("index") {
		if f.index >= hd.Hardened {
			return hd.Path{}, fmt.Errorf("%w: --index %d out of range", types.ErrInput, f.index)
		}
		p[4] = f.index
	}
	return p, nil
}

func readMnemonic(file string) (string, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read mnemonic: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	if words := os.Getenv(mnemonicEnv); words != "" {
		return words, nil
	}
	return "", errors.New("no mnemonic: use --mnemonic-file or set " + mnemonicEnv)
}

// openSigner returns the signer selected by f and a function releasing it.
func openSigner(cmd *cobra.Command, a *app, f *signerFlags) (crypto.Signer, func() error, error) {
	ctx := cmd.Context()
	path, err := f.path(cmd, a)
	if err != nil {
		return nil, nil, err
	}

	if f.ledger {
		transport, err := ledger.OpenHID(a.logger)
		if err != nil {
			return nil, nil, err
		}
		s, err := ledger.ConnectHardwareSigner(ctx, transport, ledger.Options{
			Path:                path,
			Codec:               a.chain.Codec(),
			AppName:             a.chain.Ledger.AppName,
			MajorVersion:        a.chain.Ledger.MajorVersion,
			RequireConfirmation: a.chain.Ledger.RequireConfirmation,
			Logger:              a.logger,
		})
		if err != nil {
			_ = transport.Close()
			return nil, nil, err
		}
		return s, s.Close, nil
	}

	words, err := readMnemonic(f.mnemonicFile)
	if err != nil {
		return nil, nil, err
	}
	m, err := hd.MnemonicFromPhrase(words, "")
	if err != nil {
		return nil, nil, err
	}
	key, err := m.DerivePrivateKey(path)
	if err != nil {
		return nil, nil, err
	}
	s := crypto.NewSoftwareSigner(key, a.chain.Codec())
	a.logger.Debug("software signer ready", "path", path.String())
	return s, s.Close, nil
}
