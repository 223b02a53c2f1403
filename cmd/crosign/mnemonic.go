package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blockberries/crosign/crypto/hd"
)

func newMnemonicCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mnemonic",
		Short: "Generate or check BIP39 mnemonics",
	}
	cmd.AddCommand(newMnemonicNewCmd(a), newMnemonicCheckCmd(a))
	return cmd
}

func newMnemonicNewCmd(a *app) *cobra.Command {
	var words int
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Print a fresh random mnemonic",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := hd.NewMnemonic(words, "")
			if err != nil {
				return err
			}
			key, err := m.DerivePrivateKey(a.chain.Path())
			if err != nil {
				return err
			}
			defer key.Zeroize()
			addr, err := a.chain.Codec().AddressOf(key.PublicKey().Bytes())
			if err != nil {
				return err
			}
			a.logger.Info("generated mnemonic", "words", m.WordCount(), "address", addr.String())
			_, err = fmt.Fprintln(cmd.OutOrStdout(), m.Phrase())
			return err
		},
	}
	cmd.Flags().IntVar(&words, "words", 24, "number of words (12, 15, 18, 21 or 24)")
	return cmd
}

func newMnemonicCheckCmd(a *app) *cobra.Command {
	var sf signerFlags
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the configured mnemonic",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			words, err := readMnemonic(sf.mnemonicFile)
			if err != nil {
				return err
			}
			m, err := hd.MnemonicFromPhrase(words, "")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "valid %d-word mnemonic\n", m.WordCount())
			return err
		},
	}
	cmd.Flags().StringVar(&sf.mnemonicFile, "mnemonic-file", "", "file holding the mnemonic (default $"+mnemonicEnv+")")
	return cmd
}
