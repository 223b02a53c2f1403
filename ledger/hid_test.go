package ledger

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockberries/crosign/types"
)

// fakeHID answers each complete APDU with reply(apdu), framed like a device.
type fakeHID struct {
	mu      sync.Mutex
	reply   func(apdu []byte) []byte
	written [][]byte
	pending []byte
	want    int
	out     bytes.Buffer
	block   chan struct{}
	unblock sync.Once
	closed  bool
}

func (f *fakeHID) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(p) != frameSize {
		return 0, errors.New("short frame")
	}
	f.written = append(f.written, append([]byte(nil), p...))
	payload := p[frameHeader:]
	if f.pending == nil {
		f.want = int(payload[0])<<8 | int(payload[1])
		f.pending = []byte{}
		payload = payload[2:]
	}
	left := f.want - len(f.pending)
	if left > len(payload) {
		left = len(payload)
	}
	f.pending = append(f.pending, payload[:left]...)
	if len(f.pending) == f.want {
		for _, frame := range wrapFrames(f.reply(f.pending)) {
			f.out.Write(frame)
		}
		f.pending = nil
	}
	return len(p), nil
}

func (f *fakeHID) Read(p []byte) (int, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.out.Read(p)
}

// Close unblocks a pending Read, as closing a real HID handle does.
func (f *fakeHID) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	f.release()
	return nil
}

func (f *fakeHID) release() {
	if f.block != nil {
		f.unblock.Do(func() { close(f.block) })
	}
}

func TestFrames_RoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 56, 57, 58, 59, 116, 117, 255, 260, 1000} {
		msg := bytes.Repeat([]byte{0x5a}, n)
		frames := wrapFrames(msg)

		var stream bytes.Buffer
		for i, f := range frames {
			require.Len(t, f, frameSize)
			assert.Equal(t, []byte{0x01, 0x01, 0x05, byte(i >> 8), byte(i)}, f[:frameHeader])
			stream.Write(f)
		}
		got, err := unwrapFrames(&stream)
		require.NoError(t, err, "n=%d", n)
		assert.Equal(t, msg, got, "n=%d", n)
	}
}

func TestFrames_FirstFrameLength(t *testing.T) {
	frames := wrapFrames(make([]byte, 300))
	assert.Equal(t, []byte{0x01, 0x2c}, frames[0][5:7])
	// 2 length bytes + 300 payload over 59-byte frames.
	assert.Len(t, frames, 6)
}

func TestUnwrapFrames_Invalid(t *testing.T) {
	good := wrapFrames([]byte{1, 2, 3})[0]

	badHeader := append([]byte(nil), good...)
	badHeader[2] = 0x06
	_, err := unwrapFrames(bytes.NewReader(badHeader))
	assert.ErrorIs(t, err, ErrInvalidFrame)

	badSeq := append([]byte(nil), good...)
	badSeq[4] = 1
	_, err = unwrapFrames(bytes.NewReader(badSeq))
	assert.ErrorIs(t, err, ErrInvalidFrame)

	_, err = unwrapFrames(bytes.NewReader(good[:10]))
	assert.ErrorIs(t, err, ErrDeviceIO)
	assert.ErrorIs(t, err, types.ErrDeviceConnection)
}

func TestHIDTransport_Exchange(t *testing.T) {
	var seen []byte
	dev := &fakeHID{reply: func(apdu []byte) []byte {
		seen = append([]byte(nil), apdu...)
		return []byte{0xaa, 0xbb, 0x90, 0x00}
	}}
	tr := NewHIDTransport(dev, nil)

	resp, err := tr.Exchange(context.Background(), Command{CLA: CLA, INS: InsGetVersion, P1: 1, P2: 2, Data: []byte{9}})
	require.NoError(t, err)
	assert.Equal(t, []byte{CLA, InsGetVersion, 1, 2, 1, 9}, seen)
	assert.Equal(t, []byte{0xaa, 0xbb}, resp.Data)
	assert.Equal(t, StatusOK, resp.Code)
	assert.NoError(t, resp.Err())
}

func TestHIDTransport_LargeCommand(t *testing.T) {
	var seen []byte
	dev := &fakeHID{reply: func(apdu []byte) []byte {
		seen = append([]byte(nil), apdu...)
		return []byte{0x69, 0x86}
	}}
	tr := NewHIDTransport(dev, nil)

	data := bytes.Repeat([]byte{7}, ChunkSize)
	resp, err := tr.Exchange(context.Background(), Command{CLA: CLA, INS: InsSign, P1: ChunkLast, Data: data})
	require.NoError(t, err)
	assert.Len(t, seen, 5+ChunkSize)
	assert.Len(t, dev.written, 5)

	var appErr *AppError
	require.ErrorAs(t, resp.Err(), &appErr)
	assert.Equal(t, uint16(0x6986), appErr.Code)
	assert.Equal(t, "Transaction rejected", appErr.Description)
}

func TestHIDTransport_ContextCancel(t *testing.T) {
	dev := &fakeHID{
		reply: func([]byte) []byte { return []byte{0x90, 0x00} },
		block: make(chan struct{}),
	}
	tr := NewHIDTransport(dev, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := tr.Exchange(ctx, Command{CLA: CLA})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// The abandoned exchange drains its own reply before the next one runs.
	dev.release()
	resp, err := tr.Exchange(context.Background(), Command{CLA: CLA})
	require.NoError(t, err)
	assert.Equal(t, StatusOK, resp.Code)
}

func TestHIDTransport_Close(t *testing.T) {
	dev := &fakeHID{reply: func([]byte) []byte { return []byte{0x90, 0x00} }}
	tr := NewHIDTransport(dev, nil)
	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())
	assert.True(t, dev.closed)

	_, err := tr.Exchange(context.Background(), Command{CLA: CLA})
	assert.ErrorIs(t, err, ErrTransportClosed)
}

func TestHIDTransport_CloseDuringAbandonedExchange(t *testing.T) {
	dev := &fakeHID{
		reply: func([]byte) []byte { return []byte{0x90, 0x00} },
		block: make(chan struct{}),
	}
	tr := NewHIDTransport(dev, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := tr.Exchange(ctx, Command{CLA: CLA, INS: InsSign})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	done := make(chan error, 1)
	go func() { done <- tr.Close() }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Close waited for the unanswered exchange")
	}

	_, err = tr.Exchange(context.Background(), Command{CLA: CLA})
	assert.ErrorIs(t, err, ErrTransportClosed)
}

func TestHIDTransport_WriteError(t *testing.T) {
	tr := NewHIDTransport(brokenDevice{}, nil)
	_, err := tr.Exchange(context.Background(), Command{CLA: CLA})
	assert.ErrorIs(t, err, ErrDeviceIO)
}

type brokenDevice struct{}

func (brokenDevice) Read([]byte) (int, error)  { return 0, io.ErrUnexpectedEOF }
func (brokenDevice) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }
func (brokenDevice) Close() error              { return nil }
