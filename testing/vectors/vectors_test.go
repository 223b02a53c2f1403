package vectors_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	crosigntesting "github.com/blockberries/crosign/testing"
	"github.com/blockberries/crosign/testing/vectors"
	"github.com/blockberries/crosign/types"
)

func generate(t *testing.T) *vectors.File {
	t.Helper()
	f, err := vectors.Generate(crosigntesting.TestMnemonic())
	require.NoError(t, err)
	return f
}

func byName(t *testing.T, f *vectors.File, name string) vectors.Vector {
	t.Helper()
	for _, v := range f.Vectors {
		if v.Name == name {
			return v
		}
	}
	t.Fatalf("vector %q not found", name)
	return vectors.Vector{}
}

func TestGenerate_KnownVector(t *testing.T) {
	f := generate(t)
	v := byName(t, f, "basic_transfer")

	assert.Equal(t, crosigntesting.Address, v.Expected.Address)
	assert.Equal(t, crosigntesting.PubKeyB64, v.Expected.PubKey)
	assert.Equal(t, crosigntesting.AminoSignDoc, v.Expected.SignDocJSON)
	assert.Equal(t, crosigntesting.AminoSignDocSignature, v.Expected.Signature)
}

func TestGenerate_AllVectorsCheck(t *testing.T) {
	f := generate(t)
	require.Len(t, f.Vectors, len(vectors.Cases()))

	seen := make(map[string]bool)
	for _, v := range f.Vectors {
		t.Run(v.Name, func(t *testing.T) {
			assert.False(t, seen[v.Name], "duplicate vector name")
			seen[v.Name] = true
			assert.NoError(t, v.Check())
		})
	}
}

func TestGenerate_Semantics(t *testing.T) {
	f := generate(t)
	basic := byName(t, f, "basic_transfer")

	// 1 cro and 100000000 basecro are the same document.
	assert.Equal(t, basic.Expected.SignDocJSON, byName(t, f, "display_denom").Expected.SignDocJSON)

	memo := byName(t, f, "memo_whitespace").Expected.SignDocJSON
	assert.Contains(t, memo, `"memo":"  line one\n\tline two  "`)

	html := byName(t, f, "memo_html").Expected.SignDocJSON
	assert.Contains(t, html, `<b>\"fish\" & 'chips'</b>`)

	unicode := byName(t, f, "memo_unicode").Expected.SignDocJSON
	assert.Contains(t, unicode, "支付 ✓ café")

	seq := byName(t, f, "account_and_sequence").Expected.SignDocJSON
	assert.Contains(t, seq, `"account_number":"1234"`)
	assert.Contains(t, seq, `"sequence":"18446744073709551615"`)

	multi := byName(t, f, "multiple_transfers").Expected.SignDocJSON
	assert.Less(t, strings.Index(multi, "cro1wav0"), strings.Index(multi, "cro1s2gs"))

	second := byName(t, f, "second_index")
	assert.NotEqual(t, basic.Expected.Address, second.Expected.Address)
	assert.NotEqual(t, basic.Expected.PubKey, second.Expected.PubKey)

	testnet := byName(t, f, "testnet")
	assert.True(t, strings.HasPrefix(testnet.Expected.Address, "tcro1"))
	assert.NotContains(t, testnet.Expected.SignDocJSON, `"cro1`)
	assert.Contains(t, testnet.Expected.SignDocJSON, `"chain_id":"testnet-croeseid-4"`)
	assert.Equal(t, basic.Expected.PubKey, testnet.Expected.PubKey)
}

func TestGenerate_Deterministic(t *testing.T) {
	a, err := generate(t).JSON()
	require.NoError(t, err)
	b, err := generate(t).JSON()
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestParse(t *testing.T) {
	data, err := generate(t).JSON()
	require.NoError(t, err)

	f, err := vectors.Parse(data)
	require.NoError(t, err)
	for _, v := range f.Vectors {
		assert.NoError(t, v.Check(), v.Name)
	}

	_, err = vectors.Parse([]byte(`{"version":"0","vectors":[]}`))
	assert.ErrorIs(t, err, types.ErrSerialization)

	_, err = vectors.Parse([]byte(`not json`))
	assert.ErrorIs(t, err, types.ErrSerialization)
}

func TestCheck_DetectsTampering(t *testing.T) {
	base := byName(t, generate(t), "basic_transfer")

	tests := map[string]func(v *vectors.Vector){
		"digest": func(v *vectors.Vector) {
			v.Expected.SignDocSHA256 = append(vectors.HexBytes(nil), v.Expected.SignDocSHA256...)
			v.Expected.SignDocSHA256[0] ^= 1
		},
		"non-canonical doc": func(v *vectors.Vector) {
			v.Expected.SignDocJSON = strings.Replace(v.Expected.SignDocJSON, `"account_number":"0",`, `"account_number": "0",`, 1)
		},
		"signature": func(v *vectors.Vector) {
			v.Expected.Signature = crosigntesting.DirectTxSignature
		},
		"pub key": func(v *vectors.Vector) {
			v.Expected.PubKey = "!!"
		},
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			v := base
			mutate(&v)
			assert.Error(t, v.Check())
		})
	}
}
