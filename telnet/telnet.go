// Package telnet implements a line-oriented transmission over a telnet
// session.
//
// Commands are written with the configured terminator appended. A read waits
// until the terminator arrives or the timeout elapses and returns the line
// without it. Close half-closes the connection, drains what the device still
// sends and then closes it.
package telnet

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"os"
	"sync/atomic"
	"time"

	"github.com/ziutek/telnet"

	"github.com/electric-propulsion/go-epcomms/logger"
	"github.com/electric-propulsion/go-epcomms/packet"
	"github.com/electric-propulsion/go-epcomms/transmission"
)

// Conn is a telnet connection exchanging ASCII packets.
type Conn = transmission.Conn[packet.ASCII, packet.ASCII]

// drainTimeout bounds how long Close waits for the peer to finish.
const drainTimeout = time.Second

// Link is the telnet transport.
type Link struct {
	conn        *telnet.Conn
	term        []byte
	timeout     time.Duration
	interrupted atomic.Bool
	logger      logger.Logger
}

var (
	_ transmission.Link[packet.ASCII, packet.ASCII] = (*Link)(nil)
	_ transmission.Interrupter                      = (*Link)(nil)
)

// Open dials the endpoint described by cfg.
func Open(ctx context.Context, cfg *Config) (*Conn, error) {
	d := net.Dialer{Timeout: cfg.timeout}
	nc, err := d.DialContext(ctx, "tcp", cfg.Addr())
	if err != nil {
		return nil, transmission.Errorf("telnet: dial %s: %w", cfg.Addr(), err)
	}

	return NewConn(nc, cfg)
}

// Dial is a shorthand for NewConfig followed by Open.
func Dial(ctx context.Context, host string, port int, opts ...Option) (*Conn, error) {
	cfg, err := NewConfig(host, port, opts...)
	if err != nil {
		return nil, err
	}

	return Open(ctx, cfg)
}

// NewConn wraps an established network connection.
func NewConn(nc net.Conn, cfg *Config) (*Conn, error) {
	tc, err := telnet.NewConn(nc)
	if err != nil {
		_ = nc.Close()
		return nil, transmission.Errorf("telnet: %w", err)
	}

	l := cfg.logger.With("addr", cfg.Addr())
	link := &Link{
		conn:    tc,
		term:    []byte(cfg.terminator),
		timeout: cfg.timeout,
		logger:  l,
	}

	return transmission.NewConn[packet.ASCII, packet.ASCII]("telnet:"+cfg.Addr(), link, l), nil
}

// Send writes the packet followed by the terminator.
func (l *Link) Send(ctx context.Context, p packet.ASCII) error {
	wire, err := p.Serialize()
	if err != nil {
		return err
	}

	_ = l.conn.SetWriteDeadline(l.deadline(ctx, time.Now()))
	if _, err := l.conn.Write(append(wire, l.term...)); err != nil {
		return transmission.Errorf("telnet: write: %w", err)
	}
	l.logger.Debug("telnet write", "bytes", len(wire))

	return nil
}

// Receive reads one line. A timeout before the terminator arrives is a
// transmission error and the partial line is discarded.
func (l *Link) Receive(ctx context.Context) (packet.ASCII, error) {
	start := time.Now()
	deadline := l.deadline(ctx, start)
	_ = l.conn.SetReadDeadline(deadline)
	if l.interrupted.Load() {
		_ = l.conn.SetReadDeadline(start)
	}

	data, err := l.conn.ReadUntil(string(l.term))
	if err != nil {
		switch {
		case l.interrupted.Load():
			return packet.ASCII{}, transmission.Errorf("telnet: read interrupted by close: %w", err)
		case errors.Is(err, os.ErrDeadlineExceeded):
			armed := deadline.Sub(start).Round(time.Millisecond)
			return packet.ASCII{}, transmission.Errorf("telnet: timeout after %v waiting for %q: %w", armed, l.term, err)
		default:
			return packet.ASCII{}, transmission.Errorf("telnet: read: %w", err)
		}
	}
	l.logger.Debug("telnet read", "bytes", len(data))

	return packet.DecodeASCII(bytes.TrimSuffix(data, l.term))
}

// Interrupt ends a blocked Receive by expiring the read deadline. Later
// reads fail immediately.
func (l *Link) Interrupt() {
	l.interrupted.Store(true)
	_ = l.conn.SetReadDeadline(time.Now())
}

// Close shuts down the write side, drains pending input and closes the
// connection.
func (l *Link) Close() error {
	if cw, ok := l.conn.Conn.(interface{ CloseWrite() error }); ok {
		if err := cw.CloseWrite(); err != nil {
			l.logger.Debug("telnet half-close failed", "error", err)
		}
	}

	_ = l.conn.SetReadDeadline(time.Now().Add(drainTimeout))
	if n, err := io.Copy(io.Discard, l.conn); err != nil && !errors.Is(err, os.ErrDeadlineExceeded) {
		l.logger.Debug("telnet drain stopped", "error", err, "bytes", n)
	}

	return l.conn.Close()
}

func (l *Link) deadline(ctx context.Context, now time.Time) time.Time {
	d := now.Add(l.timeout)
	if cd, ok := ctx.Deadline(); ok && cd.Before(d) {
		return cd
	}

	return d
}
