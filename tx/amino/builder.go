package amino

import (
	"context"
	"fmt"

	"github.com/blockberries/crosign/address"
	"github.com/blockberries/crosign/crypto"
	"github.com/blockberries/crosign/types"
)

// Option configures a Builder.
type Option func(*Builder)

// WithDenomUnit sets the unit table used to normalise transfer amounts.
// The default is types.CroDenomUnit.
func WithDenomUnit(unit types.DenomUnit) Option {
	return func(b *Builder) { b.unit = unit }
}

// WithCodec re-encodes every address placed in a message under codec's prefix.
// Without it addresses are written with the prefix they carry.
func WithCodec(codec address.Codec) Option {
	return func(b *Builder) {
		b.codec = codec
		b.hasCodec = true
	}
}

// Builder accumulates messages and produces signed amino transactions.
//
// Each Build signs the sign doc of the messages added so far and appends the
// resulting signature, so a second Build carries two signatures. A Builder
// must not be used from more than one goroutine at a time.
type Builder struct {
	fee     types.Amount
	gas     uint64
	memo    string
	chainID string
	signer  crypto.Signer

	unit     types.DenomUnit
	codec    address.Codec
	hasCodec bool

	msgs       []Msg
	signatures []Signature
}

// NewBuilder returns a builder paying fee for gas. A zero gas selects
// types.DefaultGas.
func NewBuilder(fee types.Amount, gas uint64, memo string, signer crypto.Signer, chainID string, opts ...Option) *Builder {
	if gas == 0 {
		gas = types.DefaultGas
	}
	b := &Builder{
		fee:     fee,
		gas:     gas,
		memo:    memo,
		chainID: chainID,
		signer:  signer,
		unit:    types.CroDenomUnit,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Fee returns the fee object written into the sign doc and the transaction.
func (b *Builder) Fee() types.Fee {
	return types.NewFee(b.gas, b.fee)
}

// Messages returns a copy of the messages added so far.
func (b *Builder) Messages() []Msg {
	return cloneMsgs(b.msgs)
}

// AddTransfer appends a MsgSend of amount denom from the signer's address to
// to. Display denominations are converted to the base unit.
func (b *Builder) AddTransfer(amount uint64, denom string, to address.Address) error {
	from, err := b.signer.Address()
	if err != nil {
		return fmt.Errorf("signer address: %w", err)
	}
	if to.Empty() {
		return fmt.Errorf("%w: empty recipient address", types.ErrInput)
	}
	coin, err := b.unit.NewAmount(amount, denom)
	if err != nil {
		return err
	}
	if b.hasCodec {
		if from, err = b.codec.FromHash(from.Bytes()); err != nil {
			return err
		}
		if to, err = b.codec.FromHash(to.Bytes()); err != nil {
			return err
		}
	}

	msg, err := NewMsg(MsgSendType, TransferValue{
		FromAddress: from.String(),
		ToAddress:   to.String(),
		Amount:      []types.Amount{coin},
	})
	if err != nil {
		return err
	}
	return b.AddMessage(msg)
}

// AddMessage appends an arbitrary amino message. The value is stored in
// canonical form so the signed document and the transaction carry the same
// bytes; values that are not a single JSON document, or that repeat an
// object key, are rejected.
func (b *Builder) AddMessage(msg Msg) error {
	if msg.Type == "" {
		return fmt.Errorf("%w: message type cannot be empty", types.ErrInput)
	}
	if len(msg.Value) == 0 {
		return fmt.Errorf("%w: message %s has no value", types.ErrInput, msg.Type)
	}
	if len(b.msgs) >= MaxMessages {
		return fmt.Errorf("%w: more than %d messages", types.ErrInput, MaxMessages)
	}
	value, err := types.CanonicalizeJSON(msg.Value)
	if err != nil {
		return fmt.Errorf("%w: message %s value: %v", types.ErrInput, msg.Type, err)
	}
	b.msgs = append(b.msgs, Msg{Type: msg.Type, Value: value})
	return nil
}

// SignDoc returns the document signed for accountNumber and sequence.
func (b *Builder) SignDoc(accountNumber, sequence uint64) SignDoc {
	return SignDoc{
		AccountNumber: types.StringUint64(accountNumber),
		Sequence:      types.StringUint64(sequence),
		ChainID:       b.chainID,
		Memo:          b.memo,
		Fee:           b.Fee(),
		Msgs:          cloneMsgs(b.msgs),
	}
}

// SignBytes returns the canonical JSON the signer is asked to sign.
func (b *Builder) SignBytes(accountNumber, sequence uint64) ([]byte, error) {
	return b.SignDoc(accountNumber, sequence).Bytes()
}

// Build signs the current messages and returns the transaction. On error no
// signature is recorded.
func (b *Builder) Build(ctx context.Context, accountNumber, sequence uint64, mode types.BroadcastMode) (*Transaction, error) {
	if b.chainID == "" {
		return nil, fmt.Errorf("%w: chain id cannot be empty", types.ErrInput)
	}
	if err := mode.Validate(); err != nil {
		return nil, err
	}

	signBytes, err := b.SignBytes(accountNumber, sequence)
	if err != nil {
		return nil, fmt.Errorf("encode sign doc: %w", err)
	}
	sig, err := b.signer.Sign(ctx, signBytes)
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}

	b.signatures = append(b.signatures, Signature{
		Signature: sig,
		PubKey: PubKey{
			Type:  PubKeySecp256k1Type,
			Value: b.signer.PublicKey().String(),
		},
		AccountNumber: accountNumber,
		Sequence:      sequence,
	})

	return &Transaction{
		Tx: Tx{
			Msgs:       cloneMsgs(b.msgs),
			Fee:        b.Fee(),
			Memo:       b.memo,
			Signatures: append([]Signature(nil), b.signatures...),
		},
		Mode: mode,
	}, nil
}

func cloneMsgs(msgs []Msg) []Msg {
	out := make([]Msg, len(msgs))
	for i, m := range msgs {
		out[i] = m.clone()
	}
	return out
}
