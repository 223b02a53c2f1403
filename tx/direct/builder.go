// Package direct builds protobuf transactions signed in SIGN_MODE_DIRECT.
//
// The signer signs the deterministic encoding of a SignDoc that embeds the
// already serialised TxBody and AuthInfo. Build returns the base64 TxRaw
// accepted by the node's BroadcastTx service.
package direct

import (
	"context"
	"encoding/base64"
	"fmt"

	bankv1beta1 "cosmossdk.io/api/cosmos/bank/v1beta1"
	basev1beta1 "cosmossdk.io/api/cosmos/base/v1beta1"
	"cosmossdk.io/api/cosmos/crypto/secp256k1"
	signingv1beta1 "cosmossdk.io/api/cosmos/tx/signing/v1beta1"
	txv1beta1 "cosmossdk.io/api/cosmos/tx/v1beta1"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/anypb"

	"github.com/blockberries/crosign/crypto"
	"github.com/blockberries/crosign/types"
)

var marshalOpts = proto.MarshalOptions{Deterministic: true}

// PackAny wraps msg in an Any with the "/<full name>" type URL Cosmos SDK
// chains expect.
func PackAny(msg proto.Message) (*anypb.Any, error) {
	value, err := marshalOpts.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrSerialization, err)
	}
	return &anypb.Any{
		TypeUrl: "/" + string(proto.MessageName(msg)),
		Value:   value,
	}, nil
}

// Builder assembles a single-signer transaction. Setters return the builder
// so calls can be chained. A Builder must not be shared between goroutines.
type Builder struct {
	signer        crypto.Signer
	chainID       string
	memo          string
	timeoutHeight uint64
	fee           *txv1beta1.Fee

	messages      []*anypb.Any
	accountNumber uint64
	sequence      uint64
}

// NewBuilder returns a builder for chainID. fee may be nil.
func NewBuilder(signer crypto.Signer, chainID, memo string, timeoutHeight uint64, fee *txv1beta1.Fee) *Builder {
	b := &Builder{
		signer:        signer,
		chainID:       chainID,
		memo:          memo,
		timeoutHeight: timeoutHeight,
	}
	if fee != nil {
		b.fee = proto.Clone(fee).(*txv1beta1.Fee)
	}
	return b
}

// SetAccountNumber sets the account number written into the SignDoc.
func (b *Builder) SetAccountNumber(accountNumber uint64) *Builder {
	b.accountNumber = accountNumber
	return b
}

// SetSequence sets the sequence written into the signer info.
func (b *Builder) SetSequence(sequence uint64) *Builder {
	b.sequence = sequence
	return b
}

// AddMessage appends a copy of msg to the body.
func (b *Builder) AddMessage(msg *anypb.Any) *Builder {
	b.messages = append(b.messages, proto.Clone(msg).(*anypb.Any))
	return b
}

// CreateMsgSend returns a bank MsgSend from the signer's address to to.
// It is not added to the builder.
func (b *Builder) CreateMsgSend(to string, amount ...*basev1beta1.Coin) (*anypb.Any, error) {
	from, err := b.signer.Address()
	if err != nil {
		return nil, fmt.Errorf("signer address: %w", err)
	}
	if to == "" {
		return nil, fmt.Errorf("%w: empty recipient address", types.ErrInput)
	}
	return PackAny(&bankv1beta1.MsgSend{
		FromAddress: from.String(),
		ToAddress:   to,
		Amount:      amount,
	})
}

// PubKeyAny returns the signer's key as a /cosmos.crypto.secp256k1.PubKey Any.
func (b *Builder) PubKeyAny() (*anypb.Any, error) {
	return PackAny(&secp256k1.PubKey{Key: b.signer.PublicKey().Bytes()})
}

// TxBody returns the transaction body.
func (b *Builder) TxBody() *txv1beta1.TxBody {
	msgs := make([]*anypb.Any, len(b.messages))
	for i, m := range b.messages {
		msgs[i] = proto.Clone(m).(*anypb.Any)
	}
	return &txv1beta1.TxBody{
		Messages:      msgs,
		Memo:          b.memo,
		TimeoutHeight: b.timeoutHeight,
	}
}

// TxBodyBytes returns the encoded TxBody.
func (b *Builder) TxBodyBytes() ([]byte, error) {
	return marshal(b.TxBody())
}

// AuthInfo returns the auth info: one SIGN_MODE_DIRECT signer and the fee.
func (b *Builder) AuthInfo() (*txv1beta1.AuthInfo, error) {
	pk, err := b.PubKeyAny()
	if err != nil {
		return nil, err
	}
	info := &txv1beta1.AuthInfo{
		SignerInfos: []*txv1beta1.SignerInfo{{
			PublicKey: pk,
			ModeInfo: &txv1beta1.ModeInfo{
				Sum: &txv1beta1.ModeInfo_Single_{
					Single: &txv1beta1.ModeInfo_Single{Mode: signingv1beta1.SignMode_SIGN_MODE_DIRECT},
				},
			},
			Sequence: b.sequence,
		}},
	}
	if b.fee != nil {
		info.Fee = proto.Clone(b.fee).(*txv1beta1.Fee)
	}
	return info, nil
}

// AuthInfoBytes returns the encoded AuthInfo.
func (b *Builder) AuthInfoBytes() ([]byte, error) {
	info, err := b.AuthInfo()
	if err != nil {
		return nil, err
	}
	return marshal(info)
}

// SignDoc returns the document the signer signs.
func (b *Builder) SignDoc() (*txv1beta1.SignDoc, error) {
	body, err := b.TxBodyBytes()
	if err != nil {
		return nil, err
	}
	authInfo, err := b.AuthInfoBytes()
	if err != nil {
		return nil, err
	}
	return &txv1beta1.SignDoc{
		BodyBytes:     body,
		AuthInfoBytes: authInfo,
		ChainId:       b.chainID,
		AccountNumber: b.accountNumber,
	}, nil
}

// SignDocBytes returns the encoded SignDoc.
func (b *Builder) SignDocBytes() ([]byte, error) {
	doc, err := b.SignDoc()
	if err != nil {
		return nil, err
	}
	return marshal(doc)
}

// Build signs the SignDoc and returns the base64 encoded TxRaw.
func (b *Builder) Build(ctx context.Context) (string, error) {
	if b.chainID == "" {
		return "", fmt.Errorf("%w: chain id cannot be empty", types.ErrInput)
	}
	doc, err := b.SignDoc()
	if err != nil {
		return "", err
	}
	signBytes, err := marshal(doc)
	if err != nil {
		return "", err
	}

	sigB64, err := b.signer.Sign(ctx, signBytes)
	if err != nil {
		return "", fmt.Errorf("sign: %w", err)
	}
	sig, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		return "", fmt.Errorf("%w: invalid base64 signature: %v", types.ErrSerialization, err)
	}

	raw, err := marshal(&txv1beta1.TxRaw{
		BodyBytes:     doc.BodyBytes,
		AuthInfoBytes: doc.AuthInfoBytes,
		Signatures:    [][]byte{sig},
	})
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func marshal(m proto.Message) ([]byte, error) {
	bz, err := marshalOpts.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrSerialization, err)
	}
	return bz, nil
}
