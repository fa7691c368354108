// Package visa implements a message-based transmission over VISA resources.
//
// Resources are discovered and opened through a Registry, which serializes
// access to its ResourceManager. The built-in manager handles raw TCPIP
// SOCKET, HiSLIP TCPIP INSTR and ASRL serial resources; other managers (for
// example bindings to a vendor VISA library) plug in through the
// ResourceManager interface.
//
//	reg := visa.NewRegistry(visa.NewBuiltinManager(), nil)
//	defer reg.Close()
//
//	conn, err := visa.Open(ctx, reg, "TCPIP0::192.168.1.20::5025::SOCKET")
//	if err != nil {
//		return err
//	}
//	defer conn.Close()
//
//	idn, err := conn.Poll(ctx, packet.NewString("*IDN?"))
package visa

import (
	"context"
	"errors"

	"github.com/electric-propulsion/go-epcomms/logger"
	"github.com/electric-propulsion/go-epcomms/packet"
	"github.com/electric-propulsion/go-epcomms/transmission"
)

// Conn is a VISA connection exchanging String packets.
type Conn = transmission.Conn[packet.String, packet.String]

// Link adapts an open Resource to the transmission contract.
type Link struct {
	reg    *Registry
	id     uint64
	res    Resource
	logger logger.Logger
}

var (
	_ transmission.Link[packet.String, packet.String]    = (*Link)(nil)
	_ transmission.Querier[packet.String, packet.String] = (*Link)(nil)
	_ transmission.Interrupter                           = (*Link)(nil)
)

// Open opens the named resource through reg, retrying transient failures.
//
// When every attempt fails with *IOError, the last *IOError is returned
// unchanged. Other errors are returned immediately.
func Open(ctx context.Context, reg *Registry, name string, opts ...Option) (*Conn, error) {
	cfg, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}

	id, res, err := reg.open(ctx, name, cfg)
	if err != nil {
		return nil, err
	}

	l := cfg.logger.With("resource", name)
	l.Debug("visa resource opened", "timeout", cfg.attrs.Timeout)

	link := &Link{reg: reg, id: id, res: res, logger: l}

	return transmission.NewConn[packet.String, packet.String]("visa:"+name, link, l), nil
}

// Send writes the packet to the resource.
func (l *Link) Send(ctx context.Context, p packet.String) error {
	wire, err := p.Serialize()
	if err != nil {
		return err
	}

	if err := l.res.Write(ctx, wire); err != nil {
		return wrapIOError("write", err)
	}

	return nil
}

// Receive reads one response from the resource.
func (l *Link) Receive(ctx context.Context) (packet.String, error) {
	s, err := l.res.Read(ctx)
	if err != nil {
		return packet.String{}, wrapIOError("read", err)
	}

	return packet.DecodeString(s)
}

// Query uses the resource's native query when it has one, and a write
// followed by a read otherwise.
func (l *Link) Query(ctx context.Context, p packet.String) (packet.String, error) {
	q, ok := l.res.(Querier)
	if !ok {
		if err := l.Send(ctx, p); err != nil {
			return packet.String{}, err
		}

		return l.Receive(ctx)
	}

	wire, err := p.Serialize()
	if err != nil {
		return packet.String{}, err
	}

	s, err := q.Query(ctx, wire)
	if err != nil {
		return packet.String{}, wrapIOError("query", err)
	}

	return packet.DecodeString(s)
}

// Interrupt unblocks an in-flight read when the resource supports it.
func (l *Link) Interrupt() {
	if in, ok := l.res.(transmission.Interrupter); ok {
		in.Interrupt()
	}
}

// Close closes the resource and forgets the session. A session whose resource
// was already closed by Registry.Close is not closed again.
func (l *Link) Close() error {
	if !l.reg.release(l.id) {
		l.logger.Debug("visa resource already released by registry")
		return nil
	}

	return l.res.Close()
}

func wrapIOError(op string, err error) error {
	if errors.Is(err, transmission.ErrTransmission) {
		return err
	}

	return transmission.Errorf("visa: %s: %w", op, err)
}
