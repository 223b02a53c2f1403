package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	basev1beta1 "cosmossdk.io/api/cosmos/base/v1beta1"
	txv1beta1 "cosmossdk.io/api/cosmos/tx/v1beta1"
	"github.com/spf13/cobra"

	"github.com/blockberries/crosign/client"
	"github.com/blockberries/crosign/crypto"
	"github.com/blockberries/crosign/tx/amino"
	"github.com/blockberries/crosign/tx/direct"
	"github.com/blockberries/crosign/types"
)

const (
	encodingAmino  = "amino"
	encodingDirect = "direct"
)

type sendFlags struct {
	signer signerFlags

	to            string
	amount        string
	fee           string
	gas           uint64
	memo          string
	encoding      string
	mode          string
	timeoutHeight uint64

	accountNumber uint64
	sequence      uint64
	broadcast     bool
}

func newSendCmd(a *app) *cobra.Command {
	var f sendFlags
	cmd := &cobra.Command{
		Use:   "send --to ADDRESS --amount AMOUNT",
		Short: "Sign a transfer and print or broadcast it",
		Long: `Sign a bank transfer from the selected signer.

Amounts are written as <integer><denom>, in either the base or the display
denomination of the chain profile (for example 100000000basecro or 1cro).

Account number and sequence are read from the node unless both
--account-number and --sequence are given. With --encoding amino the signed
transaction is printed as JSON; with --encoding direct it is printed as a
base64 TxRaw, or broadcast over gRPC with --broadcast.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			offline := cmd.Flags().Changed("account-number") && cmd.Flags().Changed("sequence")
			return runSend(cmd, a, &f, offline)
		},
	}

	f.signer.register(cmd)
	cmd.Flags().StringVar(&f.to, "to", "", "recipient address")
	cmd.Flags().StringVar(&f.amount, "amount", "", "amount to send, e.g. 1cro")
	cmd.Flags().StringVar(&f.fee, "fee", "5000basecro", "fee amount")
	cmd.Flags().Uint64Var(&f.gas, "gas", 0, "gas limit (default from the chain profile)")
	cmd.Flags().StringVar(&f.memo, "memo", "", "transaction memo")
	cmd.Flags().StringVar(&f.encoding, "encoding", encodingDirect, "transaction encoding: amino or direct")
	cmd.Flags().StringVar(&f.mode, "mode", string(types.BroadcastSync), "broadcast mode: sync, async or block")
	cmd.Flags().Uint64Var(&f.timeoutHeight, "timeout-height", 0, "block height after which the transaction is invalid (direct only)")
	cmd.Flags().Uint64Var(&f.accountNumber, "account-number", 0, "account number (skips the node query together with --sequence)")
	cmd.Flags().Uint64Var(&f.sequence, "sequence", 0, "account sequence")
	cmd.Flags().BoolVar(&f.broadcast, "broadcast", false, "broadcast the transaction over gRPC (direct only)")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

// parseCoin splits "<integer><denom>" and normalises it to the base unit.
func parseCoin(a *app, s string) (types.Amount, error) {
	s = strings.TrimSpace(s)
	i := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) })
	if i <= 0 {
		return types.Amount{}, fmt.Errorf("%w: %q: want <integer><denom>", types.ErrInvalidAmount, s)
	}
	n, err := strconv.ParseUint(s[:i], 10, 64)
	if err != nil {
		return types.Amount{}, fmt.Errorf("%w: %q: %v", types.ErrInvalidAmount, s, err)
	}
	return a.chain.NewAmount(n, s[i:])
}

func runSend(cmd *cobra.Command, a *app, f *sendFlags, offline bool) error {
	ctx := cmd.Context()

	mode, err := types.ParseBroadcastMode(f.mode)
	if err != nil {
		return err
	}
	if f.encoding != encodingAmino && f.encoding != encodingDirect {
		return fmt.Errorf("%w: unknown encoding %q", types.ErrInput, f.encoding)
	}
	if f.broadcast && f.encoding != encodingDirect {
		return fmt.Errorf("%w: --broadcast requires --encoding direct", types.ErrInput)
	}
	to, err := a.chain.Codec().Parse(f.to)
	if err != nil {
		return err
	}
	amount, err := parseCoin(a, f.amount)
	if err != nil {
		return err
	}
	fee, err := parseCoin(a, f.fee)
	if err != nil {
		return err
	}
	gas := f.gas
	if gas == 0 {
		gas = a.chain.Gas()
	}

	signer, closeSigner, err := openSigner(cmd, a, &f.signer)
	if err != nil {
		return err
	}
	defer func() { _ = closeSigner() }()

	var node *client.Client
	if !offline || f.broadcast {
		if node, err = client.NewClient(a.chain.GRPC, a.logger); err != nil {
			return err
		}
		defer node.Close()
	}

	accountNumber, sequence := f.accountNumber, f.sequence
	if !offline {
		from, err := signer.Address()
		if err != nil {
			return err
		}
		info, err := node.AccountInfo(ctx, from)
		if err != nil {
			return err
		}
		accountNumber, sequence = info.AccountNumber, info.Sequence
	}
	a.logger.Info("signing transfer", "to", to.String(), "amount", amount.String(), "encoding", f.encoding,
		"account_number", accountNumber, "sequence", sequence)

	out := cmd.OutOrStdout()
	if f.encoding == encodingAmino {
		b := amino.NewBuilder(fee, gas, f.memo, signer, a.chain.ChainID,
			amino.WithDenomUnit(a.chain.DenomUnit), amino.WithCodec(a.chain.Codec()))
		if err := b.AddTransfer(uint64(amount.Amount), amount.Denom, to); err != nil {
			return err
		}
		tx, err := b.Build(ctx, accountNumber, sequence, mode)
		if err != nil {
			return err
		}
		bz, err := tx.JSON()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(bz))
		return err
	}

	raw, err := buildDirect(ctx, signer, a.chain.ChainID, f, fee, amount, gas, to.String(), accountNumber, sequence)
	if err != nil {
		return err
	}
	if !f.broadcast {
		_, err = fmt.Fprintln(out, raw)
		return err
	}

	txBytes, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return err
	}
	res, err := node.BroadcastTx(ctx, txBytes, mode)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, res.Hash)
	return err
}

func buildDirect(ctx context.Context, signer crypto.Signer, chainID string, f *sendFlags, fee, amount types.Amount,
	gas uint64, to string, accountNumber, sequence uint64) (string, error) {
	b := direct.NewBuilder(signer, chainID, f.memo, f.timeoutHeight, &txv1beta1.Fee{
		Amount:   []*basev1beta1.Coin{{Denom: fee.Denom, Amount: fee.Amount.String()}},
		GasLimit: gas,
	}).SetAccountNumber(accountNumber).SetSequence(sequence)

	msg, err := b.CreateMsgSend(to, &basev1beta1.Coin{Denom: amount.Denom, Amount: amount.Amount.String()})
	if err != nil {
		return "", err
	}
	return b.AddMessage(msg).Build(ctx)
}
