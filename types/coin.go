package types

import (
	"fmt"
	"math/bits"
	"strings"
)

// Amount is a token quantity in the chain's base denomination.
// JSON form: {"amount":"<decimal>","denom":"<base denom>"}.
type Amount struct {
	Denom  string       `json:"denom"`
	Amount StringUint64 `json:"amount"`
}

// String returns the amount as "<n><denom>".
func (a Amount) String() string {
	return fmt.Sprintf("%d%s", uint64(a.Amount), a.Denom)
}

// IsZero returns true if the amount is zero
func (a Amount) IsZero() bool {
	return a.Amount == 0
}

// DenomUnit describes the chain's two denominations: the base unit used on the
// wire and the display unit users type, related by Scale.
type DenomUnit struct {
	Base    string `yaml:"base_denom" json:"base_denom"`
	Display string `yaml:"display_denom" json:"display_denom"`
	Scale   uint64 `yaml:"scale" json:"scale"`
}

// CroDenomUnit is the Crypto.org unit table: 1 cro = 10^8 basecro.
var CroDenomUnit = DenomUnit{Base: "basecro", Display: "cro", Scale: 100_000_000}

// Validate checks the unit table is usable.
func (u DenomUnit) Validate() error {
	if u.Base == "" || u.Display == "" {
		return fmt.Errorf("%w: denom unit requires base and display names", ErrInput)
	}
	if strings.EqualFold(u.Base, u.Display) {
		return fmt.Errorf("%w: base and display denom must differ", ErrInput)
	}
	if u.Scale == 0 {
		return fmt.Errorf("%w: denom scale must be positive", ErrInput)
	}
	return nil
}

// NewAmount normalises amount in denom to the base unit. Display amounts are
// multiplied by Scale; an overflowing product returns ErrInvalidAmount.
// Denominations are matched case-insensitively.
func (u DenomUnit) NewAmount(amount uint64, denom string) (Amount, error) {
	switch {
	case strings.EqualFold(denom, u.Base):
		return Amount{Denom: u.Base, Amount: StringUint64(amount)}, nil
	case strings.EqualFold(denom, u.Display):
		hi, lo := bits.Mul64(amount, u.Scale)
		if hi != 0 {
			return Amount{}, fmt.Errorf("%w: %d%s exceeds uint64 in %s", ErrInvalidAmount, amount, denom, u.Base)
		}
		return Amount{Denom: u.Base, Amount: StringUint64(lo)}, nil
	default:
		return Amount{}, fmt.Errorf("%w: %q", ErrUnknownDenom, denom)
	}
}

// MustNewAmount is like NewAmount but panics on error. For constants and tests.
func (u DenomUnit) MustNewAmount(amount uint64, denom string) Amount {
	a, err := u.NewAmount(amount, denom)
	if err != nil {
		panic(err)
	}
	return a
}

// Fee is the amino fee object: a gas limit and the amounts paid for it.
type Fee struct {
	Gas    StringUint64 `json:"gas"`
	Amount []Amount     `json:"amount"`
}

// DefaultGas is the gas limit used when a builder is not given one.
const DefaultGas uint64 = 20000

// NewFee returns a fee paying amounts for gas. A zero gas selects DefaultGas.
func NewFee(gas uint64, amounts ...Amount) Fee {
	if gas == 0 {
		gas = DefaultGas
	}
	if amounts == nil {
		amounts = []Amount{}
	}
	return Fee{Gas: StringUint64(gas), Amount: amounts}
}
