package main

import (
	"fmt"
	"io"
	"strings"

	"cosmossdk.io/log"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/blockberries/crosign/config"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
}

// app carries what subcommands resolve from the global flags.
type app struct {
	flags  globalFlags
	chain  *config.Chain
	logger log.Logger
	stderr io.Writer
}

func newRootCmd(stderr io.Writer) *cobra.Command {
	a := &app{stderr: stderr}

	cmd := &cobra.Command{
		Use:   "crosign",
		Short: "Sign Cosmos SDK transactions with a mnemonic or a Ledger",
		Long: `crosign derives keys from a BIP39 mnemonic or talks to the Crypto.org
Ledger app, and builds signed transfers in amino JSON or protobuf form.

The mnemonic is read from the file named by --mnemonic-file or from the
CROSIGN_MNEMONIC environment variable. It is never accepted as a flag value.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
	}

	cmd.PersistentFlags().StringVar(&a.flags.configPath, "config", "", "chain profile (YAML); defaults to Crypto.org mainnet")
	cmd.PersistentFlags().StringVar(&a.flags.logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")

	cmd.AddCommand(
		newMnemonicCmd(a),
		newAddressCmd(a),
		newSendCmd(a),
		newConfigCmd(a),
	)
	return cmd
}

func (a *app) init() error {
	level, err := zerolog.ParseLevel(strings.ToLower(a.flags.logLevel))
	if err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", a.flags.logLevel, err)
	}
	a.logger = log.NewLogger(a.stderr, log.LevelOption(level))

	if a.flags.configPath == "" {
		a.chain = config.Default()
		return nil
	}
	chain, err := config.Load(a.flags.configPath)
	if err != nil {
		return err
	}
	a.chain = chain
	a.logger.Debug("loaded chain profile", "path", a.flags.configPath, "chain_id", chain.ChainID)
	return nil
}

func newConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective chain profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := a.chain.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
