package serial

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/electric-propulsion/go-epcomms/packet"
	"github.com/electric-propulsion/go-epcomms/transmission"
)

func newTestConfig(t *testing.T, opts ...Option) *Config {
	t.Helper()

	cfg, err := NewConfig("/dev/ttyTEST0", opts...)
	require.NoError(t, err)

	return cfg
}

// newPipeConn returns a connection over net.Pipe and the remote end that plays
// the instrument.
func newPipeConn[RX any, TX packet.Transmittable[[]byte]](t *testing.T, cfg *Config, decode packet.Decoder[[]byte, RX]) (*transmission.Conn[RX, TX], net.Conn) {
	t.Helper()

	local, remote := net.Pipe()
	t.Cleanup(func() {
		_ = local.Close()
		_ = remote.Close()
	})

	c, err := NewConn[RX, TX](local, cfg, decode)
	require.NoError(t, err)

	return c, remote
}

func writeAsync(t *testing.T, w io.Writer, data []byte) {
	t.Helper()

	go func() {
		_, _ = w.Write(data)
	}()
}

func TestNewConfig_Defaults(t *testing.T) {
	cfg := newTestConfig(t)

	require.Equal(t, "/dev/ttyTEST0", cfg.Device())
	require.Equal(t, DefaultBaudRate, cfg.BaudRate())
	require.Equal(t, []byte("\r\n"), cfg.Frame().Terminator)
	require.Equal(t, transmission.TerminatorMode, cfg.Frame().Mode())
	require.Zero(t, cfg.ReadTimeout())
}

func TestNewConfig_Validation(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"no length and empty terminator", []Option{WithFrameTerminator(nil)}},
		{"zero baud", []Option{WithBaudRate(0)}},
		{"negative length", []Option{WithFrameLength(-2)}},
		{"empty marker", []Option{WithStartMarker(nil, 9)}},
		{"marker longer than frame", []Option{WithStartMarker([]byte{0x07, 0x05}, 1)}},
		{"negative timeout", []Option{WithReadTimeout(-time.Second)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConfig("/dev/ttyTEST0", tt.opts...)
			require.ErrorIs(t, err, transmission.ErrConfig)
		})
	}

	_, err := NewConfig("")
	require.ErrorIs(t, err, transmission.ErrConfig)
}

func TestNewConfig_LengthWithoutTerminator(t *testing.T) {
	cfg := newTestConfig(t, WithFrameTerminator(nil), WithFrameLength(7), WithFramePrefix([]byte{0x07, 0x05}))
	require.Equal(t, transmission.LengthMode, cfg.Frame().Mode())
}

func TestConn_ReadTerminated(t *testing.T) {
	require := require.New(t)

	c, remote := newPipeConn[packet.ASCII, packet.ASCII](t, newTestConfig(t), packet.DecodeASCII)
	writeAsync(t, remote, []byte("hello\r\nworld\r\n"))

	ctx := context.Background()
	p, err := c.Read(ctx)
	require.NoError(err)
	require.Equal("hello", p.Deserialize())

	p, err = c.Read(ctx)
	require.NoError(err)
	require.Equal("world", p.Deserialize())
}

func TestConn_CommandWritesSerializedPacket(t *testing.T) {
	c, remote := newPipeConn[packet.ASCII, packet.ASCII](t, newTestConfig(t), packet.DecodeASCII)

	done := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 3)
		_, _ = io.ReadFull(remote, buf)
		done <- buf
	}()

	require.NoError(t, c.Command(context.Background(), packet.NewASCII("p\r\n")))
	require.Equal(t, []byte("p\r\n"), <-done)
}

func TestConn_CommandEncodingError(t *testing.T) {
	c, _ := newPipeConn[packet.ASCII, packet.ASCII](t, newTestConfig(t), packet.DecodeASCII)

	err := c.Command(context.Background(), packet.NewASCII("5 µA"))
	require.ErrorIs(t, err, packet.ErrEncoding)
	require.NotErrorIs(t, err, transmission.ErrTransmission)
}

func TestConn_Poll(t *testing.T) {
	require := require.New(t)

	c, remote := newPipeConn[packet.ASCII, packet.ASCII](t, newTestConfig(t), packet.DecodeASCII)

	go func() {
		req := make([]byte, 3)
		if _, err := io.ReadFull(remote, req); err != nil {
			return
		}
		_, _ = remote.Write([]byte("1.3E-05\r\n"))
	}()

	p, err := c.Poll(context.Background(), packet.NewASCII("p\r\n"))
	require.NoError(err)
	require.Equal("1.3E-05", p.Deserialize())
}

func TestConn_PrefixLength(t *testing.T) {
	cfg := newTestConfig(t, WithFrameTerminator(nil), WithFramePrefix([]byte{0x07, 0x05}), WithFrameLength(7))
	c, remote := newPipeConn[packet.Bytes, packet.Bytes](t, cfg, packet.DecodeBytes)

	writeAsync(t, remote, []byte{0x00, 0x07, 0x05, 1, 2, 3, 4, 5, 6, 7})

	p, err := c.Read(context.Background())
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7}, p.Deserialize())
}

func TestConn_PrefixLengthTerminatorMismatch(t *testing.T) {
	cfg := newTestConfig(t, WithFramePrefix([]byte{0x07, 0x05}), WithFrameLength(2))
	c, remote := newPipeConn[packet.Bytes, packet.Bytes](t, cfg, packet.DecodeBytes)

	writeAsync(t, remote, []byte{0x07, 0x05, 0xAA, 0xBB, '\n', '\r'})

	_, err := c.Read(context.Background())
	require.ErrorIs(t, err, transmission.ErrFrameTerminator)
	require.Contains(t, err.Error(), "0D 0A")
	require.Equal(t, uint64(1), c.Metrics().Snapshot().Errors)
}

func TestConn_StartMarker(t *testing.T) {
	cfg := newTestConfig(t, WithStartMarker([]byte{0x07, 0x05}, 9))
	c, remote := newPipeConn[packet.Bytes, packet.Bytes](t, cfg, packet.DecodeBytes)

	frame := []byte{0x07, 0x05, 0x15, 0x00, 0x00, 0x00, 0x20, 0x00, 0x3A}
	writeAsync(t, remote, append([]byte{0x33, 0x07}, frame...))

	p, err := c.Read(context.Background())
	require.NoError(t, err)
	require.Equal(t, frame, p.Deserialize())
}

func TestConn_DecodeErrorPassesThrough(t *testing.T) {
	c, remote := newPipeConn[packet.ASCII, packet.ASCII](t, newTestConfig(t), packet.DecodeASCII)
	writeAsync(t, remote, []byte{'o', 'k', 0xB5, '\r', '\n'})

	_, err := c.Read(context.Background())
	require.ErrorIs(t, err, packet.ErrEncoding)
}

func TestConn_CloseClosesPort(t *testing.T) {
	local, remote := net.Pipe()
	t.Cleanup(func() { _ = remote.Close() })

	c, err := NewConn[packet.ASCII, packet.ASCII](local, newTestConfig(t), packet.DecodeASCII)
	require.NoError(t, err)

	require.NoError(t, c.Close())
	_, err = local.Write([]byte("x"))
	require.ErrorIs(t, err, io.ErrClosedPipe)

	require.ErrorIs(t, c.Close(), transmission.ErrConnClosed)
}

func TestConn_CloseInterruptsBlockedRead(t *testing.T) {
	local, remote := net.Pipe()
	t.Cleanup(func() { _ = remote.Close() })

	c, err := NewConn[packet.ASCII, packet.ASCII](local, newTestConfig(t), packet.DecodeASCII)
	require.NoError(t, err)

	errc := make(chan error, 1)
	go func() {
		_, err := c.Read(context.Background())
		errc <- err
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, c.Close())

	select {
	case err := <-errc:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("read was not interrupted by close")
	}
}
