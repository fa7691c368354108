// Package serial implements a framed byte-stream transmission over a serial
// port.
package serial

import (
	"context"
	"io"
	"os"
	"sync"

	goserial "go.bug.st/serial"

	"github.com/electric-propulsion/go-epcomms/logger"
	"github.com/electric-propulsion/go-epcomms/packet"
	"github.com/electric-propulsion/go-epcomms/transmission"
)

// Link sends serialized packets to a port and frames received bytes with the
// configured discipline.
type Link[RX any, TX packet.Transmittable[[]byte]] struct {
	port   io.ReadWriteCloser
	framer *transmission.Framer
	decode packet.Decoder[[]byte, RX]
	logger logger.Logger

	closeOnce sync.Once
	closeErr  error
}

var (
	_ transmission.Link[packet.Bytes, packet.Bytes] = (*Link[packet.Bytes, packet.Bytes])(nil)
	_ transmission.Interrupter                      = (*Link[packet.Bytes, packet.Bytes])(nil)
)

// Open opens the configured serial device and returns a connection decoding
// frames with decode.
func Open[RX any, TX packet.Transmittable[[]byte]](cfg *Config, decode packet.Decoder[[]byte, RX]) (*transmission.Conn[RX, TX], error) {
	port, err := OpenPort(cfg)
	if err != nil {
		return nil, err
	}

	return NewConn[RX, TX](port, cfg, decode)
}

// OpenPort opens the configured serial device without framing. When a read
// timeout is configured, a read that expires fails with os.ErrDeadlineExceeded.
func OpenPort(cfg *Config) (io.ReadWriteCloser, error) {
	mode := &goserial.Mode{BaudRate: cfg.baudRate}
	port, err := goserial.Open(cfg.device, mode)
	if err != nil {
		return nil, transmission.Errorf("serial: open %s: %w", cfg.device, err)
	}

	if cfg.readTimeout <= 0 {
		return port, nil
	}

	if err := port.SetReadTimeout(cfg.readTimeout); err != nil {
		_ = port.Close()
		return nil, transmission.Errorf("serial: set read timeout on %s: %w", cfg.device, err)
	}

	return timeoutPort{port}, nil
}

// OpenASCII opens a line-oriented ASCII connection.
func OpenASCII(device string, opts ...Option) (*transmission.Conn[packet.ASCII, packet.ASCII], error) {
	cfg, err := NewConfig(device, opts...)
	if err != nil {
		return nil, err
	}

	return Open[packet.ASCII, packet.ASCII](cfg, packet.DecodeASCII)
}

// OpenBytes opens a raw byte connection.
func OpenBytes(device string, opts ...Option) (*transmission.Conn[packet.Bytes, packet.Bytes], error) {
	cfg, err := NewConfig(device, opts...)
	if err != nil {
		return nil, err
	}

	return Open[packet.Bytes, packet.Bytes](cfg, packet.DecodeBytes)
}

// NewConn wraps an already opened port.
func NewConn[RX any, TX packet.Transmittable[[]byte]](port io.ReadWriteCloser, cfg *Config, decode packet.Decoder[[]byte, RX]) (*transmission.Conn[RX, TX], error) {
	if decode == nil {
		return nil, transmission.ConfigErrorf("serial: nil decoder")
	}

	framer, err := transmission.NewFramer(port, cfg.frame)
	if err != nil {
		return nil, err
	}

	l := cfg.logger.With("device", cfg.device)
	link := &Link[RX, TX]{
		port:   port,
		framer: framer,
		decode: decode,
		logger: l,
	}

	l.Debug("serial port opened", "baud", cfg.baudRate, "framing", cfg.frame.Mode().String())

	return transmission.NewConn[RX, TX]("serial:"+cfg.device, link, l), nil
}

// Send serializes p and writes it to the port.
func (l *Link[RX, TX]) Send(_ context.Context, p TX) error {
	wire, err := p.Serialize()
	if err != nil {
		return err
	}

	n, err := l.port.Write(wire)
	if err != nil {
		return transmission.Errorf("serial: write: %w", err)
	}
	l.logger.Debug("serial sent", "bytes", n)

	return nil
}

// Receive reads one frame and decodes it.
func (l *Link[RX, TX]) Receive(_ context.Context) (RX, error) {
	frame, err := l.framer.ReadFrame()
	if err != nil {
		var zero RX
		return zero, err
	}
	l.logger.Debug("serial received", "bytes", len(frame))

	return l.decode(frame)
}

// Interrupt closes the port, which ends a read blocked without a timeout.
func (l *Link[RX, TX]) Interrupt() {
	_ = l.closePort()
}

// Close closes the port.
func (l *Link[RX, TX]) Close() error {
	return l.closePort()
}

func (l *Link[RX, TX]) closePort() error {
	l.closeOnce.Do(func() { l.closeErr = l.port.Close() })
	return l.closeErr
}

// Ports returns the serial ports present on the system.
func Ports() ([]string, error) {
	ports, err := goserial.GetPortsList()
	if err != nil {
		return nil, transmission.Errorf("serial: list ports: %w", err)
	}

	return ports, nil
}

// timeoutPort reports an expired read timeout as os.ErrDeadlineExceeded; the
// port itself returns zero bytes and no error.
type timeoutPort struct {
	goserial.Port
}

func (p timeoutPort) Read(b []byte) (int, error) {
	n, err := p.Port.Read(b)
	if n == 0 && err == nil && len(b) > 0 {
		return 0, os.ErrDeadlineExceeded
	}

	return n, err
}
