package vectors

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/blockberries/crosign/address"
	"github.com/blockberries/crosign/crypto"
	"github.com/blockberries/crosign/crypto/hd"
	"github.com/blockberries/crosign/tx/amino"
	"github.com/blockberries/crosign/types"
)

const (
	testChainID = "test"
	recipientA  = "cro1wav0rvenku09q8rqx2nvu7wdl6jy5dx0009ulj"
	recipientB  = "cro1s2gsnugjhpzac8m7necv3527jp28z9w002najd"
)

// Case is a vector before its expected section is computed.
type Case struct {
	Name        string
	Description string
	Category    string
	Input       Input
}

func basicInput() Input {
	return Input{
		Path:    "m/44'/394'/0'/0/0",
		Prefix:  "cro",
		ChainID: testChainID,
		Fee:     types.Amount{Denom: "basecro", Amount: 100000},
		Gas:     300000,
		Transfers: []Transfer{
			{To: recipientA, Amount: 100000000, Denom: "basecro"},
		},
	}
}

// Cases returns the built-in vector inputs.
func Cases() []Case {
	with := func(mutate func(*Input)) Input {
		in := basicInput()
		mutate(&in)
		return in
	}

	return []Case{
		{
			Name:        "basic_transfer",
			Description: "Single MsgSend in the base denomination",
			Category:    "transfer",
			Input:       basicInput(),
		},
		{
			Name:        "display_denom",
			Description: "Amount given in cro is scaled to basecro before signing",
			Category:    "denomination",
			Input: with(func(in *Input) {
				in.Transfers[0] = Transfer{To: recipientA, Amount: 1, Denom: "cro"}
			}),
		},
		{
			Name:        "multiple_transfers",
			Description: "Two MsgSends keep their insertion order",
			Category:    "transfer",
			Input: with(func(in *Input) {
				in.Transfers = append(in.Transfers, Transfer{To: recipientB, Amount: 42, Denom: "basecro"})
			}),
		},
		{
			Name:        "account_and_sequence",
			Description: "Account number and sequence render as decimal strings",
			Category:    "transfer",
			Input: with(func(in *Input) {
				in.AccountNumber = 1234
				in.Sequence = 18446744073709551615
			}),
		},
		{
			Name:        "memo_whitespace",
			Description: "Whitespace inside the memo is signed verbatim",
			Category:    "memo",
			Input: with(func(in *Input) {
				in.Memo = "  line one\n\tline two  "
			}),
		},
		{
			Name:        "memo_html",
			Description: "HTML-significant characters are not escaped",
			Category:    "memo",
			Input: with(func(in *Input) {
				in.Memo = `<b>"fish" & 'chips'</b>`
			}),
		},
		{
			Name:        "memo_unicode",
			Description: "Non-ASCII memo is signed as UTF-8",
			Category:    "memo",
			Input: with(func(in *Input) {
				in.Memo = "crypto.org 支付 ✓ café"
			}),
		},
		{
			Name:        "second_index",
			Description: "Key at address index 1",
			Category:    "chain",
			Input: with(func(in *Input) {
				in.Path = "m/44'/394'/0'/0/1"
			}),
		},
		{
			Name:        "testnet",
			Description: "Testnet prefix and chain id; recipients are re-encoded as tcro",
			Category:    "chain",
			Input: with(func(in *Input) {
				in.Prefix = "tcro"
				in.ChainID = "testnet-croeseid-4"
			}),
		},
	}
}

// Generate computes every built-in case with keys derived from m.
func Generate(m *hd.Mnemonic) (*File, error) {
	f := &File{
		Version:     Version,
		Description: "amino JSON MsgSend sign docs and secp256k1 signatures",
	}
	for _, c := range Cases() {
		v, err := GenerateVector(m, c)
		if err != nil {
			return nil, err
		}
		f.Vectors = append(f.Vectors, v)
	}
	return f, nil
}

// GenerateVector computes the expected section for one case.
func GenerateVector(m *hd.Mnemonic, c Case) (Vector, error) {
	in := c.Input
	path, err := hd.ParsePath(in.Path)
	if err != nil {
		return Vector{}, fmt.Errorf("%s: %w", c.Name, err)
	}
	key, err := m.DerivePrivateKey(path)
	if err != nil {
		return Vector{}, fmt.Errorf("%s: %w", c.Name, err)
	}
	codec := address.NewCodec(in.Prefix)
	signer := crypto.NewSoftwareSigner(key, codec)
	defer signer.Close()

	b := amino.NewBuilder(in.Fee, uint64(in.Gas), in.Memo, signer, in.ChainID, amino.WithCodec(codec))
	for _, t := range in.Transfers {
		to, err := parseAnyPrefix(t.To)
		if err != nil {
			return Vector{}, fmt.Errorf("%s: %w", c.Name, err)
		}
		if err := b.AddTransfer(uint64(t.Amount), t.Denom, to); err != nil {
			return Vector{}, fmt.Errorf("%s: %w", c.Name, err)
		}
	}

	doc, err := b.SignBytes(uint64(in.AccountNumber), uint64(in.Sequence))
	if err != nil {
		return Vector{}, fmt.Errorf("%s: %w", c.Name, err)
	}
	sig, err := signer.Sign(context.Background(), doc)
	if err != nil {
		return Vector{}, fmt.Errorf("%s: %w", c.Name, err)
	}
	addr, err := signer.Address()
	if err != nil {
		return Vector{}, fmt.Errorf("%s: %w", c.Name, err)
	}

	sum := sha256.Sum256(doc)
	return Vector{
		Name:        c.Name,
		Description: c.Description,
		Category:    c.Category,
		Input:       in,
		Expected: Expected{
			Address:       addr.String(),
			PubKey:        signer.PublicKey().String(),
			SignDocJSON:   string(doc),
			SignDocSHA256: sum[:],
			Signature:     sig,
		},
	}, nil
}

func parseAnyPrefix(text string) (address.Address, error) {
	i := strings.LastIndexByte(text, '1')
	if i < 1 {
		return address.Address{}, fmt.Errorf("%w: %q has no bech32 separator", address.ErrBech32, text)
	}
	return address.NewCodec(text[:i]).Parse(text)
}
