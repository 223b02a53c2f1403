package testing_test

import (
	"sync/atomic"
	"testing"

	basev1beta1 "cosmossdk.io/api/cosmos/base/v1beta1"
	txv1beta1 "cosmossdk.io/api/cosmos/tx/v1beta1"
	"github.com/stretchr/testify/require"

	crosigntesting "github.com/blockberries/crosign/testing"
	"github.com/blockberries/crosign/tx/amino"
	"github.com/blockberries/crosign/tx/direct"
	"github.com/blockberries/crosign/types"
)

func aminoBuilder(t *testing.T) *amino.Builder {
	t.Helper()
	fee := types.CroDenomUnit.MustNewAmount(100000, "basecro")
	b := amino.NewBuilder(fee, 300000, "memo with  spaces", crosigntesting.SoftwareSigner(), "test")
	for _, to := range []string{crosigntesting.AminoRecipient, crosigntesting.DirectRecipient} {
		require.NoError(t, b.AddTransfer(1, "cro", crosigntesting.Codec().MustParse(to)))
	}
	return b
}

func directBuilder(t *testing.T) *direct.Builder {
	t.Helper()
	b := direct.NewBuilder(crosigntesting.SoftwareSigner(), "test", "", 1, &txv1beta1.Fee{
		Amount:   []*basev1beta1.Coin{{Denom: "basecro", Amount: "10000"}},
		GasLimit: 300000,
	}).SetAccountNumber(crosigntesting.DirectAccountNumber).SetSequence(crosigntesting.DirectSequence)
	msg, err := b.CreateMsgSend(crosigntesting.DirectRecipient, &basev1beta1.Coin{Denom: "basecro", Amount: "100000000"})
	require.NoError(t, err)
	return b.AddMessage(msg)
}

func TestAssertSignBytesDeterminism_Amino(t *testing.T) {
	b := aminoBuilder(t)
	crosigntesting.AssertSignBytesDeterminism(t, func() ([]byte, error) {
		return b.SignBytes(7, 3)
	}, 50)
}

func TestAssertSignBytesDeterminism_Direct(t *testing.T) {
	b := directBuilder(t)
	crosigntesting.AssertSignBytesDeterminism(t, b.SignDocBytes, 50)
}

func TestAssertSignBytesDeterminismConcurrent(t *testing.T) {
	b := aminoBuilder(t)
	var calls atomic.Int64
	crosigntesting.AssertSignBytesDeterminismConcurrent(t, func() ([]byte, error) {
		calls.Add(1)
		return b.SignBytes(0, 0)
	}, 8, 25)
	require.Equal(t, int64(1+8*25), calls.Load())

	d := directBuilder(t)
	crosigntesting.AssertSignBytesDeterminismConcurrent(t, d.SignDocBytes, 4, 10)
}
