package ledger

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"cosmossdk.io/log"
	"github.com/karalabe/hid"
)

const (
	// VendorID is Ledger's USB vendor id.
	VendorID uint16 = 0x2c97

	// usagePage and hidInterface identify the APDU endpoint among a device's HID interfaces.
	usagePage    uint16 = 0xffa0
	hidInterface        = 0

	frameSize   = 64
	frameHeader = 5
	channelHi   = 0x01
	channelLo   = 0x01
	tagAPDU     = 0x05
)

// HIDTransport frames APDUs into 64-byte HID reports.
//
// Every report starts with channel 0x0101, tag 0x05 and a big-endian
// sequence index. The first report of a message additionally carries the
// big-endian APDU length.
type HIDTransport struct {
	mu     sync.Mutex
	device io.ReadWriteCloser
	logger log.Logger

	closeOnce sync.Once
	closeErr  error
	closed    atomic.Bool
}

var _ Transport = (*HIDTransport)(nil)

// NewHIDTransport frames APDUs over an already opened HID device.
func NewHIDTransport(device io.ReadWriteCloser, logger log.Logger) *HIDTransport {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &HIDTransport{device: device, logger: logger.With("module", "ledger")}
}

// OpenHID opens the first attached Ledger device exposing the APDU interface.
func OpenHID(logger log.Logger) (*HIDTransport, error) {
	if !hid.Supported() {
		return nil, fmt.Errorf("%w: hid not supported on this platform", ErrDeviceNotFound)
	}
	infos, err := hid.Enumerate(VendorID, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: enumerate: %v", ErrDeviceNotFound, err)
	}
	for _, info := range infos {
		if info.UsagePage != usagePage && info.Interface != hidInterface {
			continue
		}
		device, err := info.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: open %s: %v", ErrDeviceNotFound, info.Path, err)
		}
		t := NewHIDTransport(device, logger)
		t.logger.Debug("opened ledger", "product", info.Product, "path", info.Path)
		return t, nil
	}
	return nil, ErrDeviceNotFound
}

// Exchange sends cmd and waits for the reply or for ctx to be done. A
// cancelled exchange keeps the transport locked until the device answers or
// the transport is closed.
func (t *HIDTransport) Exchange(ctx context.Context, cmd Command) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	apdu, err := cmd.Serialize()
	if err != nil {
		return Response{}, err
	}

	type result struct {
		resp Response
		err  error
	}
	done := make(chan result, 1)

	t.mu.Lock()
	if t.closed.Load() {
		t.mu.Unlock()
		return Response{}, ErrTransportClosed
	}
	go func() {
		defer t.mu.Unlock()
		raw, err := t.roundTrip(apdu)
		if err != nil {
			done <- result{err: err}
			return
		}
		resp, err := ParseResponse(raw)
		done <- result{resp: resp, err: err}
	}()

	select {
	case <-ctx.Done():
		return Response{}, ctx.Err()
	case r := <-done:
		if r.err == nil {
			t.logger.Debug("apdu exchanged", "cla", cmd.CLA, "ins", cmd.INS, "p1", cmd.P1, "status", r.resp.Code)
		}
		return r.resp, r.err
	}
}

func (t *HIDTransport) roundTrip(apdu []byte) ([]byte, error) {
	for _, frame := range wrapFrames(apdu) {
		if _, err := t.device.Write(frame); err != nil {
			return nil, fmt.Errorf("%w: write: %v", ErrDeviceIO, err)
		}
	}
	return unwrapFrames(t.device)
}

// wrapFrames splits a serialized APDU into zero-padded HID reports.
func wrapFrames(apdu []byte) [][]byte {
	msg := make([]byte, 2, 2+len(apdu))
	binary.BigEndian.PutUint16(msg, uint16(len(apdu)))
	msg = append(msg, apdu...)

	var frames [][]byte
	for seq := 0; len(msg) > 0; seq++ {
		frame := make([]byte, frameSize)
		frame[0], frame[1], frame[2] = channelHi, channelLo, tagAPDU
		binary.BigEndian.PutUint16(frame[3:], uint16(seq))
		n := copy(frame[frameHeader:], msg)
		msg = msg[n:]
		frames = append(frames, frame)
	}
	return frames
}

// unwrapFrames reads HID reports until the announced reply length is filled.
func unwrapFrames(r io.Reader) ([]byte, error) {
	frame := make([]byte, frameSize)
	var reply []byte
	want := -1

	for seq := 0; ; seq++ {
		if _, err := io.ReadFull(r, frame); err != nil {
			return nil, fmt.Errorf("%w: read: %v", ErrDeviceIO, err)
		}
		if frame[0] != channelHi || frame[1] != channelLo || frame[2] != tagAPDU {
			return nil, fmt.Errorf("%w: bad header % x", ErrInvalidFrame, frame[:3])
		}
		if got := int(binary.BigEndian.Uint16(frame[3:5])); got != seq {
			return nil, fmt.Errorf("%w: sequence %d, want %d", ErrInvalidFrame, got, seq)
		}

		payload := frame[frameHeader:]
		if seq == 0 {
			want = int(binary.BigEndian.Uint16(payload[:2]))
			reply = make([]byte, 0, want)
			payload = payload[2:]
		}

		left := want - len(reply)
		if left <= len(payload) {
			return append(reply, payload[:left]...), nil
		}
		reply = append(reply, payload...)
	}
}

// Close releases the device without waiting for the transport lock, so an
// exchange abandoned by a cancelled context fails its pending read instead
// of holding Close until the device answers.
func (t *HIDTransport) Close() error {
	t.closeOnce.Do(func() {
		t.closed.Store(true)
		t.closeErr = t.device.Close()
	})
	return t.closeErr
}
