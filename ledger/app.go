package ledger

import (
	"context"
	"fmt"
	"unicode/utf8"

	"cosmossdk.io/log"

	"github.com/blockberries/crosign/crypto/hd"
)

// Crypto.org app instructions.
const (
	CLA byte = 0x55

	InsGetVersion byte = 0x00
	InsSign       byte = 0x02
	InsGetAddress byte = 0x04

	// Dashboard-level commands, answered regardless of the app's CLA.
	claAppInfo    byte = 0xb0
	insAppInfo    byte = 0x01
	claDeviceInfo byte = 0xe0
	insDeviceInfo byte = 0x01
)

const (
	// PubKeyLen is the length of the compressed key in a get-address reply.
	PubKeyLen = 33

	// MinSignatureLen is the shortest signature reply accepted from the device.
	MinSignatureLen = 65

	// ChunkSize is the payload size of each sign chunk.
	ChunkSize = 250

	// MaxChunks is the largest number of chunks a message may span.
	MaxChunks = 255
)

// Chunk payload types carried in P1 of sign commands.
const (
	ChunkInit byte = 0
	ChunkAdd  byte = 1
	ChunkLast byte = 2
)

// Version is the app version reported by GetVersion.
type Version struct {
	Mode     byte
	Major    uint16
	Minor    uint16
	Patch    uint16
	Locked   bool
	TargetID [4]byte
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// AppInfo is the dashboard description of the running app.
type AppInfo struct {
	Name    string
	Version string
	Flags   []byte
}

// DeviceInfo describes the device firmware.
type DeviceInfo struct {
	TargetID   [4]byte
	SEVersion  string
	Flags      []byte
	MCUVersion string
}

// PubKeyAddress is the reply of GetPubKeyAddress.
type PubKeyAddress struct {
	PublicKey []byte
	Address   string
}

// App issues Crypto.org app commands over a Transport.
type App struct {
	transport Transport
	logger    log.Logger
}

// NewApp wraps transport. A nil logger disables logging.
func NewApp(transport Transport, logger log.Logger) *App {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &App{transport: transport, logger: logger.With("module", "ledger")}
}

// Close closes the underlying transport.
func (a *App) Close() error {
	return a.transport.Close()
}

// GetVersion queries the app version. Replies of 4, 7, 9 or 12 bytes are understood.
func (a *App) GetVersion(ctx context.Context) (Version, error) {
	data, err := exchangeOK(ctx, a.transport, Command{CLA: CLA, INS: InsGetVersion})
	if err != nil {
		return Version{}, err
	}

	u16 := func(i int) uint16 { return uint16(data[i])<<8 | uint16(data[i+1]) }
	var v Version
	switch len(data) {
	case 4:
		v = Version{Mode: data[0], Major: uint16(data[1]), Minor: uint16(data[2]), Patch: uint16(data[3])}
	case 7:
		v = Version{Mode: data[0], Major: u16(1), Minor: u16(3), Patch: u16(5)}
	case 9:
		v = Version{Mode: data[0], Major: uint16(data[1]), Minor: uint16(data[2]), Patch: uint16(data[3]), Locked: data[4] != 0}
		copy(v.TargetID[:], data[5:9])
	case 12:
		v = Version{Mode: data[0], Major: u16(1), Minor: u16(3), Patch: u16(5), Locked: data[7] != 0}
		copy(v.TargetID[:], data[8:12])
	default:
		return Version{}, fmt.Errorf("%w: %d byte reply", ErrInvalidVersion, len(data))
	}
	a.logger.Debug("app version", "version", v.String(), "locked", v.Locked)
	return v, nil
}

// GetAppInfo asks the dashboard which app is open.
func (a *App) GetAppInfo(ctx context.Context) (AppInfo, error) {
	data, err := exchangeOK(ctx, a.transport, Command{CLA: claAppInfo, INS: insAppInfo})
	if err != nil {
		return AppInfo{}, err
	}

	r := &reader{data: data}
	if format := r.readByte(); format != 1 {
		if r.err != nil {
			return AppInfo{}, r.err
		}
		return AppInfo{}, fmt.Errorf("%w: %d", ErrInvalidFormatID, format)
	}
	info := AppInfo{
		Name:    r.readString(),
		Version: r.readString(),
		Flags:   r.readBytes(),
	}
	if r.err != nil {
		return AppInfo{}, r.err
	}
	a.logger.Debug("app info", "name", info.Name, "version", info.Version)
	return info, nil
}

// GetDeviceInfo asks the dashboard for firmware details.
func (a *App) GetDeviceInfo(ctx context.Context) (DeviceInfo, error) {
	data, err := exchangeOK(ctx, a.transport, Command{CLA: claDeviceInfo, INS: insDeviceInfo})
	if err != nil {
		return DeviceInfo{}, err
	}

	r := &reader{data: data}
	var info DeviceInfo
	copy(info.TargetID[:], r.take(4))
	info.SEVersion = r.readString()
	info.Flags = r.readBytes()
	mcu := r.readBytes()
	if r.err != nil {
		return DeviceInfo{}, r.err
	}
	if n := len(mcu); n > 0 && mcu[n-1] == 0 {
		mcu = mcu[:n-1]
	}
	info.MCUVersion = string(mcu)
	return info, nil
}

// GetPubKeyAddress returns the compressed public key and bech32 address at
// path. With requireConfirmation the device shows the address and waits for
// the user to approve it.
func (a *App) GetPubKeyAddress(ctx context.Context, hrp string, path hd.Path, requireConfirmation bool) (PubKeyAddress, error) {
	if len(hrp) > MaxCommandData-1-hd.SerializedPathLen {
		return PubKeyAddress{}, fmt.Errorf("%w: prefix of %d bytes", ErrInvalidMessageSize, len(hrp))
	}
	data := make([]byte, 0, 1+len(hrp)+hd.SerializedPathLen)
	data = append(data, byte(len(hrp)))
	data = append(data, hrp...)
	data = append(data, path.Serialize()...)

	var p1 byte
	if requireConfirmation {
		p1 = 1
	}

	reply, err := exchangeOK(ctx, a.transport, Command{CLA: CLA, INS: InsGetAddress, P1: p1, Data: data})
	if err != nil {
		return PubKeyAddress{}, err
	}
	if len(reply) < PubKeyLen {
		return PubKeyAddress{}, fmt.Errorf("%w: %d bytes", ErrInvalidPK, len(reply))
	}
	addr := reply[PubKeyLen:]
	if !utf8.Valid(addr) {
		return PubKeyAddress{}, ErrInvalidUTF8
	}
	return PubKeyAddress{
		PublicKey: append([]byte(nil), reply[:PubKeyLen]...),
		Address:   string(addr),
	}, nil
}

// Sign asks the device to sign message with the key at path. The device
// shows the message and waits for approval. The reply is a DER signature.
func (a *App) Sign(ctx context.Context, path hd.Path, message []byte) ([]byte, error) {
	start := Command{CLA: CLA, INS: InsSign, P1: ChunkInit, Data: path.Serialize()}

	a.logger.Debug("sign request", "path", path.String(), "bytes", len(message))
	resp, err := sendChunks(ctx, a.transport, start, message)
	if err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 {
		return nil, ErrNoSignature
	}
	if len(resp.Data) < MinSignatureLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidSignature, len(resp.Data))
	}
	return resp.Data, nil
}

// Chunks splits message into ChunkSize pieces.
func Chunks(message []byte) [][]byte {
	var chunks [][]byte
	for len(message) > 0 {
		n := min(ChunkSize, len(message))
		chunks = append(chunks, message[:n])
		message = message[n:]
	}
	return chunks
}

// sendChunks sends start followed by message split into chunks, each
// tagged ChunkAdd except the last which is ChunkLast. Every reply must be
// StatusOK; the last reply is returned.
func sendChunks(ctx context.Context, t Transport, start Command, message []byte) (Response, error) {
	chunks := Chunks(message)
	switch {
	case len(chunks) == 0:
		return Response{}, ErrInvalidEmptyMessage
	case len(chunks) > MaxChunks:
		return Response{}, fmt.Errorf("%w: %d chunks", ErrInvalidMessageSize, len(chunks))
	}

	resp, err := t.Exchange(ctx, start)
	if err != nil {
		return Response{}, err
	}
	if err := resp.Err(); err != nil {
		return Response{}, err
	}

	for i, chunk := range chunks {
		p1 := ChunkAdd
		if i == len(chunks)-1 {
			p1 = ChunkLast
		}
		cmd := Command{CLA: start.CLA, INS: start.INS, P1: p1, P2: 0, Data: chunk}
		resp, err = t.Exchange(ctx, cmd)
		if err != nil {
			return Response{}, err
		}
		if err := resp.Err(); err != nil {
			return Response{}, err
		}
	}
	return resp, nil
}

// reader decodes length-prefixed fields and records the first short read.
type reader struct {
	data []byte
	err  error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n > len(r.data) {
		r.err = fmt.Errorf("%w: need %d bytes, have %d", ErrShortResponse, n, len(r.data))
		return nil
	}
	out := r.data[:n]
	r.data = r.data[n:]
	return out
}

func (r *reader) readByte() byte {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) readBytes() []byte {
	n := r.readByte()
	return append([]byte(nil), r.take(int(n))...)
}

func (r *reader) readString() string {
	return string(r.readBytes())
}
