package transmission

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/electric-propulsion/go-epcomms/logger"
)

// Link is the pair of raw primitives a transport backend provides.
//
// Implementations need not be safe for concurrent use; Conn serializes every
// call to them.
type Link[RX, TX any] interface {
	// Send writes one packet to the transport.
	Send(ctx context.Context, p TX) error
	// Receive reads one framed packet from the transport.
	Receive(ctx context.Context) (RX, error)
}

// Querier is implemented by links with a transport-native request/response
// primitive. When present, Conn.Poll uses Query instead of Send followed by
// Receive.
type Querier[RX, TX any] interface {
	Query(ctx context.Context, p TX) (RX, error)
}

// Interrupter is implemented by links whose Receive can block. Close calls
// Interrupt before it waits for the connection lock, so an in-flight
// operation returns promptly. Interrupt must be safe to call concurrently
// with Send and Receive.
type Interrupter interface {
	Interrupt()
}

// Transceiver is the uniform contract every instrument driver is written
// against.
type Transceiver[RX, TX any] interface {
	// Command transmits p with no response expected.
	Command(ctx context.Context, p TX) error
	// Read receives one packet without transmitting.
	Read(ctx context.Context) (RX, error)
	// Poll transmits p and returns the response, atomically with respect to
	// every other operation on the same transceiver.
	Poll(ctx context.Context, p TX) (RX, error)
	// Close releases the underlying transport. Subsequent operations fail.
	Close() error
}

// Conn serializes access to a Link and tracks its lifecycle and metrics.
type Conn[RX, TX any] struct {
	mu      sync.Mutex
	link    Link[RX, TX]
	name    string
	state   AtomicState
	metrics Metrics
	logger  logger.Logger
}

var _ Transceiver[any, any] = (*Conn[any, any])(nil)

// NewConn wraps an opened link in a Conn. The name is used in log records.
// If l is nil the default logger is used.
func NewConn[RX, TX any](name string, link Link[RX, TX], l logger.Logger) *Conn[RX, TX] {
	if l == nil {
		l = logger.GetLogger()
	}

	c := &Conn[RX, TX]{
		link:   link,
		name:   name,
		logger: l.With("conn", name),
	}
	c.state.ToOpen()

	return c
}

// Name returns the connection name.
func (c *Conn[RX, TX]) Name() string {
	return c.name
}

// State returns the current lifecycle state.
func (c *Conn[RX, TX]) State() State {
	return c.state.Get()
}

// Metrics returns the connection's counters.
func (c *Conn[RX, TX]) Metrics() *Metrics {
	return &c.metrics
}

// Link returns the wrapped backend.
func (c *Conn[RX, TX]) Link() Link[RX, TX] {
	return c.link
}

// Command transmits p.
func (c *Conn[RX, TX]) Command(ctx context.Context, p TX) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ready(ctx); err != nil {
		return err
	}

	if err := c.link.Send(ctx, p); err != nil {
		c.metrics.incErrorCount()
		c.logger.Debug("command failed", "error", err)

		return err
	}
	c.metrics.incCommandCount()

	return nil
}

// Read receives one packet.
func (c *Conn[RX, TX]) Read(ctx context.Context) (RX, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero RX
	if err := c.ready(ctx); err != nil {
		return zero, err
	}

	rx, err := c.link.Receive(ctx)
	if err != nil {
		c.metrics.incErrorCount()
		c.logger.Debug("read failed", "error", err)

		return zero, err
	}
	c.metrics.incReadCount()

	return rx, nil
}

// Poll transmits p and receives the response while holding the connection
// lock for the whole exchange.
func (c *Conn[RX, TX]) Poll(ctx context.Context, p TX) (RX, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero RX
	if err := c.ready(ctx); err != nil {
		return zero, err
	}

	rx, err := c.poll(ctx, p)
	if err != nil {
		c.metrics.incErrorCount()
		c.logger.Debug("poll failed", "error", err)

		return zero, err
	}
	c.metrics.incPollCount()

	return rx, nil
}

func (c *Conn[RX, TX]) poll(ctx context.Context, p TX) (RX, error) {
	if q, ok := c.link.(Querier[RX, TX]); ok {
		return q.Query(ctx, p)
	}

	if err := c.link.Send(ctx, p); err != nil {
		var zero RX
		return zero, err
	}

	return c.link.Receive(ctx)
}

// Close marks the connection closed, interrupts an in-flight operation when
// the link implements Interrupter, waits for the connection lock and closes
// the link if it implements io.Closer. A second Close returns ErrConnClosed.
//
// Links without Interrupter are closed once their in-flight operation ends.
func (c *Conn[RX, TX]) Close() error {
	if !c.state.ToClosed() {
		return ErrConnClosed
	}

	c.logger.Debug("closing connection")

	if in, ok := c.link.(Interrupter); ok {
		in.Interrupt()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	closer, ok := c.link.(io.Closer)
	if !ok {
		return nil
	}

	if err := closer.Close(); err != nil {
		if errors.Is(err, ErrTransmission) {
			return err
		}

		return Errorf("close %s: %w", c.name, err)
	}

	return nil
}

func (c *Conn[RX, TX]) ready(ctx context.Context) error {
	if c.state.IsClosed() {
		return ErrConnClosed
	}

	return ctx.Err()
}
