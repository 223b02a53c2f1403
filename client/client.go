// Package client talks to a Cosmos SDK node over gRPC: it reads the account
// number and sequence a builder needs and broadcasts signed transactions.
package client

import (
	"context"
	"fmt"
	"time"

	authv1beta1 "cosmossdk.io/api/cosmos/auth/v1beta1"
	txv1beta1 "cosmossdk.io/api/cosmos/tx/v1beta1"
	vestingv1beta1 "cosmossdk.io/api/cosmos/vesting/v1beta1"
	"cosmossdk.io/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/anypb"

	"github.com/blockberries/crosign/address"
	"github.com/blockberries/crosign/config"
	"github.com/blockberries/crosign/types"
)

var (
	// ErrAccountNotFound is returned when the node has no account at the address.
	ErrAccountNotFound = types.NewKindError(types.ErrNode, "account not found")

	// ErrUnsupportedAccount is returned for account types without a base account.
	ErrUnsupportedAccount = types.NewKindError(types.ErrNode, "unsupported account type")

	// ErrTxRejected is returned when the node answers a broadcast with a non-zero code.
	ErrTxRejected = types.NewKindError(types.ErrNode, "transaction rejected")
)

// AccountInfo is what a builder needs from the chain before signing.
type AccountInfo struct {
	Address       string
	AccountNumber uint64
	Sequence      uint64
}

// TxResult is the node's answer to a broadcast.
type TxResult struct {
	Hash      string
	Height    int64
	Code      uint32
	Codespace string
	Log       string
}

// Client is a gRPC node client. It is safe for concurrent use.
type Client struct {
	conn    *grpc.ClientConn
	auth    authv1beta1.QueryClient
	tx      txv1beta1.ServiceClient
	timeout time.Duration
	logger  log.Logger
}

// NewClient connects to cfg.Endpoint. The connection is plaintext unless opts
// supply transport credentials. The connection is established lazily.
func NewClient(cfg config.GRPC, logger log.Logger, opts ...grpc.DialOption) (*Client, error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(cfg.Endpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", types.ErrNode, cfg.Endpoint, err)
	}
	return &Client{
		conn:    conn,
		auth:    authv1beta1.NewQueryClient(conn),
		tx:      txv1beta1.NewServiceClient(conn),
		timeout: cfg.Timeout,
		logger:  logger.With("module", "client"),
	}, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// AccountInfo returns the account number and sequence of addr.
func (c *Client) AccountInfo(ctx context.Context, addr address.Address) (AccountInfo, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	res, err := c.auth.Account(ctx, &authv1beta1.QueryAccountRequest{Address: addr.String()})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return AccountInfo{}, fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
		}
		return AccountInfo{}, fmt.Errorf("%w: query account %s: %v", types.ErrNode, addr, err)
	}

	base, err := baseAccount(res.GetAccount())
	if err != nil {
		return AccountInfo{}, err
	}
	info := AccountInfo{
		Address:       base.GetAddress(),
		AccountNumber: base.GetAccountNumber(),
		Sequence:      base.GetSequence(),
	}
	c.logger.Debug("account info", "address", info.Address, "account_number", info.AccountNumber, "sequence", info.Sequence)
	return info, nil
}

// baseAccount unpacks the BaseAccount of the account types a transfer
// sender can have.
func baseAccount(a *anypb.Any) (*authv1beta1.BaseAccount, error) {
	if a == nil {
		return nil, fmt.Errorf("%w: empty account", ErrUnsupportedAccount)
	}

	var (
		base      = &authv1beta1.BaseAccount{}
		module    = &authv1beta1.ModuleAccount{}
		delayed   = &vestingv1beta1.DelayedVestingAccount{}
		cont      = &vestingv1beta1.ContinuousVestingAccount{}
		periodic  = &vestingv1beta1.PeriodicVestingAccount{}
		permanent = &vestingv1beta1.PermanentLockedAccount{}
	)
	var target proto.Message
	switch {
	case a.MessageIs(base):
		target = base
	case a.MessageIs(module):
		target = module
	case a.MessageIs(delayed):
		target = delayed
	case a.MessageIs(cont):
		target = cont
	case a.MessageIs(periodic):
		target = periodic
	case a.MessageIs(permanent):
		target = permanent
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAccount, a.GetTypeUrl())
	}
	if err := proto.Unmarshal(a.GetValue(), target); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrSerialization, err)
	}

	var out *authv1beta1.BaseAccount
	switch acc := target.(type) {
	case *authv1beta1.BaseAccount:
		out = acc
	case *authv1beta1.ModuleAccount:
		out = acc.GetBaseAccount()
	case *vestingv1beta1.DelayedVestingAccount:
		out = acc.GetBaseVestingAccount().GetBaseAccount()
	case *vestingv1beta1.ContinuousVestingAccount:
		out = acc.GetBaseVestingAccount().GetBaseAccount()
	case *vestingv1beta1.PeriodicVestingAccount:
		out = acc.GetBaseVestingAccount().GetBaseAccount()
	case *vestingv1beta1.PermanentLockedAccount:
		out = acc.GetBaseVestingAccount().GetBaseAccount()
	}
	if out == nil {
		return nil, fmt.Errorf("%w: %s has no base account", ErrUnsupportedAccount, a.GetTypeUrl())
	}
	return out, nil
}

var broadcastModes = map[types.BroadcastMode]txv1beta1.BroadcastMode{
	types.BroadcastSync:  txv1beta1.BroadcastMode_BROADCAST_MODE_SYNC,
	types.BroadcastAsync: txv1beta1.BroadcastMode_BROADCAST_MODE_ASYNC,
	types.BroadcastBlock: txv1beta1.BroadcastMode_BROADCAST_MODE_BLOCK,
}

// BroadcastTx submits encoded TxRaw bytes. A non-zero result code returns
// both the result and ErrTxRejected.
func (c *Client) BroadcastTx(ctx context.Context, txBytes []byte, mode types.BroadcastMode) (*TxResult, error) {
	pbMode, ok := broadcastModes[mode]
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidBroadcastMode, string(mode))
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	res, err := c.tx.BroadcastTx(ctx, &txv1beta1.BroadcastTxRequest{TxBytes: txBytes, Mode: pbMode})
	if err != nil {
		return nil, fmt.Errorf("%w: broadcast: %v", types.ErrNode, err)
	}
	r := res.GetTxResponse()
	if r == nil {
		return nil, fmt.Errorf("%w: broadcast: empty response", types.ErrNode)
	}

	result := &TxResult{
		Hash:      r.GetTxhash(),
		Height:    r.GetHeight(),
		Code:      r.GetCode(),
		Codespace: r.GetCodespace(),
		Log:       r.GetRawLog(),
	}
	if result.Code != 0 {
		c.logger.Error("broadcast rejected", "hash", result.Hash, "code", result.Code, "codespace", result.Codespace)
		return result, fmt.Errorf("%w: code %d (%s): %s", ErrTxRejected, result.Code, result.Codespace, result.Log)
	}
	c.logger.Info("broadcast accepted", "hash", result.Hash, "mode", string(mode))
	return result, nil
}
