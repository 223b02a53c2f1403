package integration

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"

	authv1beta1 "cosmossdk.io/api/cosmos/auth/v1beta1"
	abciv1beta1 "cosmossdk.io/api/cosmos/base/abci/v1beta1"
	"cosmossdk.io/api/cosmos/crypto/secp256k1"
	txv1beta1 "cosmossdk.io/api/cosmos/tx/v1beta1"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/anypb"

	"github.com/blockberries/crosign/address"
	"github.com/blockberries/crosign/client"
	"github.com/blockberries/crosign/config"
	"github.com/blockberries/crosign/crypto"
)

// Result codes the node answers with, as in the Cosmos SDK error registry.
const (
	codeTxDecode     = 2
	codeUnauthorized = 4
	codeWrongSeq     = 32
)

type account struct {
	number   uint64
	sequence uint64
}

// node is an in-memory chain that checks SIGN_MODE_DIRECT signatures the way
// the ante handler does and bumps the signer's sequence on success.
type node struct {
	authv1beta1.UnimplementedQueryServer
	txv1beta1.UnimplementedServiceServer

	chainID string
	codec   address.Codec

	mu       sync.Mutex
	accounts map[string]*account
	height   int64
	accepted [][]byte
}

func newNode(chainID string, codec address.Codec) *node {
	return &node{chainID: chainID, codec: codec, accounts: make(map[string]*account)}
}

func (n *node) addAccount(addr string, number, sequence uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.accounts[addr] = &account{number: number, sequence: sequence}
}

func (n *node) sequence(addr string) uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.accounts[addr].sequence
}

func (n *node) Account(_ context.Context, req *authv1beta1.QueryAccountRequest) (*authv1beta1.QueryAccountResponse, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	acc, ok := n.accounts[req.Address]
	if !ok {
		return nil, status.Errorf(codes.NotFound, "account %s not found", req.Address)
	}
	packed, err := anypb.New(&authv1beta1.BaseAccount{
		Address:       req.Address,
		AccountNumber: acc.number,
		Sequence:      acc.sequence,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	// anypb.New omits the leading slash Cosmos SDK nodes emit.
	packed.TypeUrl = "/" + string(proto.MessageName(&authv1beta1.BaseAccount{}))
	return &authv1beta1.QueryAccountResponse{Account: packed}, nil
}

func (n *node) BroadcastTx(_ context.Context, req *txv1beta1.BroadcastTxRequest) (*txv1beta1.BroadcastTxResponse, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	sum := sha256.Sum256(req.TxBytes)
	res := &abciv1beta1.TxResponse{Txhash: strings.ToUpper(hex.EncodeToString(sum[:]))}
	if code, log := n.deliver(req.TxBytes); code != 0 {
		res.Code, res.Codespace, res.RawLog = code, "sdk", log
	} else {
		n.height++
		res.Height = n.height
		n.accepted = append(n.accepted, append([]byte(nil), req.TxBytes...))
	}
	return &txv1beta1.BroadcastTxResponse{TxResponse: res}, nil
}

func (n *node) deliver(txBytes []byte) (uint32, string) {
	var raw txv1beta1.TxRaw
	if err := proto.Unmarshal(txBytes, &raw); err != nil {
		return codeTxDecode, err.Error()
	}
	var info txv1beta1.AuthInfo
	if err := proto.Unmarshal(raw.AuthInfoBytes, &info); err != nil {
		return codeTxDecode, err.Error()
	}
	if len(info.SignerInfos) != 1 || len(raw.Signatures) != 1 {
		return codeUnauthorized, "want exactly one signer"
	}
	signer := info.SignerInfos[0]

	var pk secp256k1.PubKey
	if err := proto.Unmarshal(signer.PublicKey.GetValue(), &pk); err != nil {
		return codeTxDecode, err.Error()
	}
	pub, err := crypto.PublicKeyFromBytes(pk.Key)
	if err != nil {
		return codeUnauthorized, err.Error()
	}
	addr, err := n.codec.AddressOf(pk.Key)
	if err != nil {
		return codeUnauthorized, err.Error()
	}
	acc, ok := n.accounts[addr.String()]
	if !ok {
		return codeUnauthorized, fmt.Sprintf("account %s not found", addr)
	}
	if signer.Sequence != acc.sequence {
		return codeWrongSeq, fmt.Sprintf("account sequence mismatch, expected %d, got %d", acc.sequence, signer.Sequence)
	}

	signBytes, err := proto.MarshalOptions{Deterministic: true}.Marshal(&txv1beta1.SignDoc{
		BodyBytes:     raw.BodyBytes,
		AuthInfoBytes: raw.AuthInfoBytes,
		ChainId:       n.chainID,
		AccountNumber: acc.number,
	})
	if err != nil {
		return codeTxDecode, err.Error()
	}
	if !pub.Verify(signBytes, raw.Signatures[0]) {
		return codeUnauthorized, "signature verification failed"
	}
	acc.sequence++
	return 0, ""
}

// dial serves n over an in-memory listener and returns a client for it.
func dial(t *testing.T, n *node, cfg config.GRPC) *client.Client {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	authv1beta1.RegisterQueryServer(srv, n)
	txv1beta1.RegisterServiceServer(srv, n)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	c, err := client.NewClient(cfg, nil, grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}
