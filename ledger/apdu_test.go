package ledger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockberries/crosign/types"
)

func TestCommand_Serialize(t *testing.T) {
	raw, err := Command{CLA: 0x55, INS: 0x04, P1: 1, P2: 0, Data: []byte{3, 'c', 'r', 'o'}}.Serialize()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x55, 0x04, 0x01, 0x00, 0x04, 3, 'c', 'r', 'o'}, raw)

	raw, err = Command{CLA: 0xb0, INS: 0x01}.Serialize()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xb0, 0x01, 0, 0, 0}, raw)

	_, err = Command{Data: make([]byte, MaxCommandData+1)}.Serialize()
	assert.ErrorIs(t, err, ErrInvalidMessageSize)
}

func TestParseResponse(t *testing.T) {
	resp, err := ParseResponse([]byte{1, 2, 3, 0x90, 0x00})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, resp.Data)
	assert.Equal(t, StatusOK, resp.Code)

	resp, err = ParseResponse([]byte{0x6e, 0x00})
	require.NoError(t, err)
	assert.Empty(t, resp.Data)
	assert.Equal(t, uint16(0x6e00), resp.Code)

	_, err = ParseResponse([]byte{0x90})
	assert.ErrorIs(t, err, ErrShortResponse)
	assert.ErrorIs(t, err, types.ErrDeviceProtocol)
}

func TestStatusDescription(t *testing.T) {
	tests := map[uint16]string{
		0x9000: "No errors",
		0x6400: "Execution Error",
		0x6700: "Wrong Length",
		0x6982: "Empty Buffer",
		0x6983: "Output buffer too small",
		0x6984: "Data is invalid",
		0x6985: "Conditions not satisfied",
		0x6986: "Transaction rejected",
		0x6A80: "Bad key handle",
		0x6B00: "Invalid P1/P2",
		0x6D00: "Instruction not supported",
		0x6E00: "App does not seem to be open",
		0x6F00: "Unknown error",
		0x6F01: "Sign/verify error",
		0x1234: "[APDU_ERROR] Unknown",
	}
	for code, want := range tests {
		assert.Equal(t, want, StatusDescription(code), "0x%04x", code)
	}
}

func TestResponse_Err(t *testing.T) {
	assert.NoError(t, Response{Code: StatusOK}.Err())

	err := Response{Code: 0x6E00}.Err()
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrDeviceProtocol)

	var appErr *AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, uint16(0x6E00), appErr.Code)
	assert.Equal(t, "ledger app error 0x6e00: App does not seem to be open", appErr.Error())
}

func TestChunks(t *testing.T) {
	tests := []struct {
		size  int
		sizes []int
	}{
		{0, nil},
		{1, []int{1}},
		{250, []int{250}},
		{251, []int{250, 1}},
		{500, []int{250, 250}},
		{501, []int{250, 250, 1}},
	}
	for _, tt := range tests {
		chunks := Chunks(make([]byte, tt.size))
		var got []int
		for _, c := range chunks {
			got = append(got, len(c))
		}
		assert.Equal(t, tt.sizes, got, "size %d", tt.size)
	}
}
