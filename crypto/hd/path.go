package hd

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"

	"github.com/blockberries/crosign/types"
)

const (
	// Hardened is the flag bit of a hardened path component.
	Hardened uint32 = hdkeychain.HardenedKeyStart

	// PathDepth is the number of components in a BIP44 path.
	PathDepth = 5

	// SerializedPathLen is the length of Path.Serialize.
	SerializedPathLen = PathDepth * 4
)

// ErrInvalidPath is returned for path strings that are not five-level BIP44 paths.
var ErrInvalidPath = types.NewKindError(types.ErrInput, "invalid hd path")

// Path is a BIP44 derivation path purpose'/coin'/account'/change/index.
// Components carry the Hardened bit where applicable.
type Path [PathDepth]uint32

// NewFundraiserPath returns m/44'/coinType'/account'/0/index.
func NewFundraiserPath(coinType, account, index uint32) Path {
	return Path{44 | Hardened, coinType | Hardened, account | Hardened, 0, index}
}

// ParsePath parses "m/44'/394'/0'/0/0". Hardened components may be marked
// with ' or h. Purpose, coin type and account must be hardened; change and
// index must not be.
func ParsePath(s string) (Path, error) {
	var p Path

	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != PathDepth+1 || parts[0] != "m" {
		return p, fmt.Errorf("%w: %q: want m/purpose'/coin'/account'/change/index", ErrInvalidPath, s)
	}

	for i, part := range parts[1:] {
		hardened := strings.HasSuffix(part, "'") || strings.HasSuffix(part, "h")
		if hardened {
			part = part[:len(part)-1]
		}
		if wantHardened := i < 3; hardened != wantHardened {
			return p, fmt.Errorf("%w: %q: component %d hardened=%t", ErrInvalidPath, s, i, hardened)
		}

		v, err := strconv.ParseUint(part, 10, 31)
		if err != nil {
			return p, fmt.Errorf("%w: %q: component %d: %v", ErrInvalidPath, s, i, err)
		}
		p[i] = uint32(v)
		if hardened {
			p[i] |= Hardened
		}
	}
	return p, nil
}

// MustParsePath is like ParsePath but panics on error.
func MustParsePath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

// String formats the path with ' for hardened components.
func (p Path) String() string {
	var b strings.Builder
	b.WriteString("m")
	for _, c := range p {
		b.WriteByte('/')
		b.WriteString(strconv.FormatUint(uint64(c&^Hardened), 10))
		if c&Hardened != 0 {
			b.WriteByte('\'')
		}
	}
	return b.String()
}

// Serialize returns the components as five little-endian uint32 values,
// hardened bit included. This is the layout hardware wallets expect.
func (p Path) Serialize() []byte {
	out := make([]byte, SerializedPathLen)
	for i, c := range p {
		binary.LittleEndian.PutUint32(out[i*4:], c)
	}
	return out
}

// CoinType returns the unhardened coin type.
func (p Path) CoinType() uint32 { return p[1] &^ Hardened }
