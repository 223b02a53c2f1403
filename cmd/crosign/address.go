package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAddressCmd(a *app) *cobra.Command {
	var (
		sf         signerFlags
		showPubKey bool
	)
	cmd := &cobra.Command{
		Use:   "address",
		Short: "Print the account address of the selected signer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			signer, closeSigner, err := openSigner(cmd, a, &sf)
			if err != nil {
				return err
			}
			defer func() { _ = closeSigner() }()

			addr, err := signer.Address()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if _, err := fmt.Fprintln(out, addr.String()); err != nil {
				return err
			}
			if showPubKey {
				_, err = fmt.Fprintln(out, signer.PublicKey().String())
			}
			return err
		},
	}
	sf.register(cmd)
	cmd.Flags().BoolVar(&showPubKey, "pubkey", false, "also print the base64 public key")
	return cmd
}
