package crypto

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"testing"

	"github.com/blockberries/crosign/types"
)

// Known key derived from the "dune car envelope ..." test mnemonic at m/44'/394'/0'/0/0.
// NEVER use in production.
const (
	testPrivKeyB64 = "1Jp5fbY7YcFI0XZ+YW/xXD3ZyDtjy6YcIY6hcvI4Yio="
	testPubKeyB64  = "AntL+UxMyJ9NZ9DGLp2v7a3dlSxiNXMaItyOXSRw8iYi"
)

func testPrivateKey(t testing.TB) *PrivateKey {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(testPrivKeyB64)
	if err != nil {
		t.Fatal(err)
	}
	key, err := PrivateKeyFromBytes(raw)
	if err != nil {
		t.Fatalf("PrivateKeyFromBytes failed: %v", err)
	}
	return key
}

func TestPrivateKeyFromBytes_KnownVector(t *testing.T) {
	key := testPrivateKey(t)

	if got := key.PublicKey().String(); got != testPubKeyB64 {
		t.Errorf("PublicKey() = %s, want %s", got, testPubKeyB64)
	}
	if got := base64.StdEncoding.EncodeToString(key.Bytes()); got != testPrivKeyB64 {
		t.Errorf("Bytes() round trip = %s, want %s", got, testPrivKeyB64)
	}
	if n := len(key.PublicKey().Bytes()); n != PublicKeySize {
		t.Errorf("public key length = %d, want %d", n, PublicKeySize)
	}
}

func TestPrivateKeyFromBytes_Invalid(t *testing.T) {
	order := []byte{
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xfe,
		0xba, 0xae, 0xdc, 0xe6, 0xaf, 0x48, 0xa0, 0x3b, 0xbf, 0xd2, 0x5e, 0x8c, 0xd0, 0x36, 0x41, 0x41,
	}
	cases := map[string][]byte{
		"empty":       nil,
		"short":       make([]byte, 31),
		"long":        make([]byte, 33),
		"zero":        make([]byte, 32),
		"curve order": order,
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := PrivateKeyFromBytes(data)
			if !errors.Is(err, ErrInvalidPrivateKey) {
				t.Fatalf("error = %v, want ErrInvalidPrivateKey", err)
			}
			if !errors.Is(err, types.ErrCryptographic) {
				t.Fatalf("error %v is not ErrCryptographic", err)
			}
		})
	}
}

func TestPublicKeyFromBytes(t *testing.T) {
	raw, _ := base64.StdEncoding.DecodeString(testPubKeyB64)
	pub, err := PublicKeyFromBytes(raw)
	if err != nil {
		t.Fatalf("PublicKeyFromBytes failed: %v", err)
	}
	if !pub.Equals(testPrivateKey(t).PublicKey()) {
		t.Error("parsed key differs from derived key")
	}
	if pub.Equals(nil) {
		t.Error("Equals(nil) = true")
	}

	bad := append([]byte(nil), raw...)
	bad[0] = 0x07
	if _, err := PublicKeyFromBytes(bad); !errors.Is(err, ErrInvalidPublicKey) {
		t.Errorf("error = %v, want ErrInvalidPublicKey", err)
	}
}

func TestPrivateKey_SignVerify(t *testing.T) {
	key := testPrivateKey(t)
	pub := key.PublicKey()

	for _, n := range []int{0, 1, 32, 33, 64, 250, 251, 1 << 16} {
		t.Run(fmt.Sprintf("len=%d", n), func(t *testing.T) {
			msg := bytes.Repeat([]byte{0xab}, n)
			sig, err := key.Sign(msg)
			if err != nil {
				t.Fatalf("Sign failed: %v", err)
			}
			if len(sig) != SignatureSize {
				t.Fatalf("signature length = %d, want %d", len(sig), SignatureSize)
			}
			if !IsLowS(sig) {
				t.Error("signature is not low-S")
			}
			if !pub.Verify(msg, sig) {
				t.Error("signature does not verify")
			}

			again, _ := key.Sign(msg)
			if !bytes.Equal(sig, again) {
				t.Error("signing is not deterministic")
			}
		})
	}
}

func TestPublicKey_VerifyRejects(t *testing.T) {
	key := testPrivateKey(t)
	sig, _ := key.Sign([]byte("hello"))

	if key.PublicKey().Verify([]byte("hellp"), sig) {
		t.Error("verified a different message")
	}
	if key.PublicKey().Verify([]byte("hello"), sig[:63]) {
		t.Error("verified a truncated signature")
	}
	overflow := bytes.Repeat([]byte{0xff}, SignatureSize)
	if key.PublicKey().Verify([]byte("hello"), overflow) {
		t.Error("verified an overflowing signature")
	}
}

func TestPrivateKey_Zeroize(t *testing.T) {
	key := testPrivateKey(t)
	key.Zeroize()

	if !bytes.Equal(key.Bytes(), make([]byte, PrivateKeySize)) {
		t.Error("key bytes not zero after Zeroize")
	}
	if _, err := key.Sign([]byte("x")); !errors.Is(err, ErrKeyZeroized) {
		t.Errorf("Sign after Zeroize error = %v, want ErrKeyZeroized", err)
	}
}

func TestPrivateKey_Redacted(t *testing.T) {
	key := testPrivateKey(t)
	for _, s := range []string{fmt.Sprint(key), fmt.Sprintf("%v", key), fmt.Sprintf("%#v", key)} {
		if s != "PrivateKey(redacted)" {
			t.Errorf("formatted key = %q", s)
		}
	}
}

func TestGeneratePrivateKey(t *testing.T) {
	a, err := GeneratePrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	b, err := GeneratePrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	if a.PublicKey().Equals(b.PublicKey()) {
		t.Error("two generated keys are equal")
	}
}

func TestZeroize(t *testing.T) {
	b := []byte{1, 2, 3, 4}
	Zeroize(b)
	if !bytes.Equal(b, []byte{0, 0, 0, 0}) {
		t.Errorf("Zeroize left %v", b)
	}
	Zeroize(nil)
}
