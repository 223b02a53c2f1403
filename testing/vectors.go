package testing

import (
	"encoding/base64"

	"github.com/blockberries/crosign/address"
	"github.com/blockberries/crosign/crypto"
	"github.com/blockberries/crosign/crypto/hd"
)

// Known vectors produced by the reference Crypto.org client library.
// SECURITY: well-known test keys. NEVER use these in production.
const (
	Mnemonic   = "dune car envelope chuckle elbow slight proud fury remove candy uphold puzzle call select sibling sport gadget please want vault glance verb damage gown"
	PrivKeyB64 = "1Jp5fbY7YcFI0XZ+YW/xXD3ZyDtjy6YcIY6hcvI4Yio="
	PubKeyB64  = "AntL+UxMyJ9NZ9DGLp2v7a3dlSxiNXMaItyOXSRw8iYi"
	Address    = "cro1u9q8mfpzhyv2s43js7l5qseapx5kt3g2rf7ppf"
	Prefix     = "cro"
	Path       = "m/44'/394'/0'/0/0"

	// AminoSignDoc and AminoSignDocSignature are a canonical amino sign
	// doc and its signature by the key above.
	AminoSignDoc          = `{"account_number":"0","chain_id":"test","fee":{"amount":[{"amount":"100000","denom":"basecro"}],"gas":"300000"},"memo":"","msgs":[{"type":"cosmos-sdk/MsgSend","value":{"amount":[{"amount":"100000000","denom":"basecro"}],"from_address":"cro1u9q8mfpzhyv2s43js7l5qseapx5kt3g2rf7ppf","to_address":"cro1wav0rvenku09q8rqx2nvu7wdl6jy5dx0009ulj"}}],"sequence":"0"}`
	AminoSignDocSignature = "bpPVZg1frGFAKM54i5Wr9PRcg31wk4vBNruYUuN9O9QvIJs+rFshRqZlhd++qBQYUvMdhHO4g/0UuB7JRaESvA=="

	// Amino transfer: fee 100000basecro, gas 300000, chain "test",
	// 100000000basecro to AminoRecipient, account 0, sequence 0.
	AminoRecipient      = "cro1s2gsnugjhpzac8m7necv3527jp28z9w002najd"
	AminoTxSignature    = "xi3rvdsoZMXhWq7MlgAMXpoVIZ0kv7uB00OrSRS8wxwoZhojZ5uGZ4shobn3ztOev4M1k5WVcBvVd+zTvzRHCg=="
	DirectRecipient     = "cro1fj6jpmuykvra4kxrw0cp20e4vx4r8eda8q3yn9"
	DirectTxSignature   = "jlqBo5nxRbq2RIYpjo4+gjevBEDALw+IjmqEPu4igfIgD8l4/CR3vmetHvhpyeQaYZ/bJJfehT6Z/RpxofJnxA=="
	DirectTxRaw         = "CpMBCo4BChwvY29zbW9zLmJhbmsudjFiZXRhMS5Nc2dTZW5kEm4KKmNybzF1OXE4bWZwemh5djJzNDNqczdsNXFzZWFweDVrdDNnMnJmN3BwZhIqY3JvMWZqNmpwbXV5a3ZyYTRreHJ3MGNwMjBlNHZ4NHI4ZWRhOHEzeW45GhQKB2Jhc2Vjcm8SCTEwMDAwMDAwMBgBEmoKUApGCh8vY29zbW9zLmNyeXB0by5zZWNwMjU2azEuUHViS2V5EiMKIQJ7S/lMTMifTWfQxi6dr+2t3ZUsYjVzGiLcjl0kcPImIhIECgIIARgEEhYKEAoHYmFzZWNybxIFMTAwMDAQ4KcSGkCOWoGjmfFFurZEhimOjj6CN68EQMAvD4iOaoQ+7iKB8iAPyXj8JHe+Z60e+GnJ5Bphn9skl96FPpn9GnGh8mfE"
	DirectAccountNumber = 9
	DirectSequence      = 4
)

// DirectPubKeyAny is the encoded secp256k1 PubKey message of the test key.
var DirectPubKeyAny = []byte{10, 33, 2, 123, 75, 249, 76, 76, 200, 159, 77, 103, 208, 198, 46, 157, 175, 237, 173, 221, 149, 44, 98, 53, 115, 26, 34, 220, 142, 93, 36, 112, 242, 38, 34}

// DirectAuthInfo is the encoded AuthInfo of the direct vector.
var DirectAuthInfo = []byte{10, 80, 10, 70, 10, 31, 47, 99, 111, 115, 109, 111, 115, 46, 99, 114, 121, 112, 116, 111, 46, 115, 101, 99, 112, 50, 53, 54, 107, 49, 46, 80, 117, 98, 75, 101, 121, 18, 35, 10, 33, 2, 123, 75, 249, 76, 76, 200, 159, 77, 103, 208, 198, 46, 157, 175, 237, 173, 221, 149, 44, 98, 53, 115, 26, 34, 220, 142, 93, 36, 112, 242, 38, 34, 18, 4, 10, 2, 8, 1, 24, 4, 18, 22, 10, 16, 10, 7, 98, 97, 115, 101, 99, 114, 111, 18, 5, 49, 48, 48, 48, 48, 16, 224, 167, 18}

// Codec returns the "cro" address codec.
func Codec() address.Codec {
	return address.NewCodec(Prefix)
}

// TestMnemonic returns the parsed test mnemonic. It panics on failure.
func TestMnemonic() *hd.Mnemonic {
	m, err := hd.MnemonicFromPhrase(Mnemonic, "")
	if err != nil {
		panic(err)
	}
	return m
}

// PrivateKey returns the test private key.
func PrivateKey() *crypto.PrivateKey {
	raw, err := base64.StdEncoding.DecodeString(PrivKeyB64)
	if err != nil {
		panic(err)
	}
	key, err := crypto.PrivateKeyFromBytes(raw)
	if err != nil {
		panic(err)
	}
	return key
}

// SoftwareSigner returns a signer for the test key with the "cro" codec.
func SoftwareSigner() *crypto.SoftwareSigner {
	return crypto.NewSoftwareSigner(PrivateKey(), Codec())
}
