// Package amino builds legacy amino JSON transactions for Cosmos SDK chains.
//
// The sign bytes are the canonical JSON of a SignDoc: keys sorted, no
// insignificant whitespace, integers rendered as decimal strings. The
// resulting Transaction is the body of a legacy REST broadcast.
package amino

import (
	"encoding/json"

	"github.com/blockberries/crosign/types"
)

// MsgSendType is the amino type name of a bank send.
const MsgSendType = "cosmos-sdk/MsgSend"

// PubKeySecp256k1Type is the amino type name of a secp256k1 public key.
const PubKeySecp256k1Type = "tendermint/PubKeySecp256k1"

// MaxMessages limits the number of messages one builder accepts.
const MaxMessages = 256

// Msg is an amino message: a registered type name and its JSON value.
// Value is kept as raw JSON so arbitrary message types can be carried;
// canonicalisation sorts its keys when the sign doc is encoded.
type Msg struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// NewMsg encodes value as the body of a message of type msgType.
func NewMsg(msgType string, value interface{}) (Msg, error) {
	raw, err := types.CanonicalJSON(value)
	if err != nil {
		return Msg{}, err
	}
	return Msg{Type: msgType, Value: raw}, nil
}

func (m Msg) clone() Msg {
	return Msg{Type: m.Type, Value: append(json.RawMessage(nil), m.Value...)}
}

// TransferValue is the value of a cosmos-sdk/MsgSend message.
type TransferValue struct {
	FromAddress string         `json:"from_address"`
	ToAddress   string         `json:"to_address"`
	Amount      []types.Amount `json:"amount"`
}

// SignDoc is the document whose canonical JSON is signed.
type SignDoc struct {
	AccountNumber types.StringUint64 `json:"account_number"`
	Sequence      types.StringUint64 `json:"sequence"`
	ChainID       string             `json:"chain_id"`
	Memo          string             `json:"memo"`
	Fee           types.Fee          `json:"fee"`
	Msgs          []Msg              `json:"msgs"`
}

// Bytes returns the canonical JSON encoding of the sign doc.
func (d SignDoc) Bytes() ([]byte, error) {
	return types.CanonicalJSON(d)
}

// PubKey is an amino-typed public key.
type PubKey struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Signature is one signer's entry in Tx.Signatures. Unlike the sign doc,
// account number and sequence are plain JSON numbers here.
type Signature struct {
	Signature     string `json:"signature"`
	PubKey        PubKey `json:"pub_key"`
	AccountNumber uint64 `json:"account_number"`
	Sequence      uint64 `json:"sequence"`
}

// Tx is a signed amino transaction.
type Tx struct {
	Msgs       []Msg       `json:"msg"`
	Fee        types.Fee   `json:"fee"`
	Memo       string      `json:"memo"`
	Signatures []Signature `json:"signatures"`
}

// Transaction is a Tx paired with the broadcast mode, the body posted to a
// node's /txs endpoint.
type Transaction struct {
	Tx   Tx                  `json:"tx"`
	Mode types.BroadcastMode `json:"mode"`
}

// JSON encodes the transaction for broadcast.
func (t *Transaction) JSON() ([]byte, error) {
	return json.Marshal(t)
}
