// Package fake provides a scripted transceiver for instrument driver tests.
package fake

import (
	"context"
	"io"
	"sync"

	"github.com/electric-propulsion/go-epcomms/transmission"
)

// Transceiver records every transmitted packet and answers polls with Reply.
type Transceiver[RX, TX any] struct {
	mu sync.Mutex

	// Reply answers Poll. When nil, Poll returns the zero RX.
	Reply func(tx TX) (RX, error)
	// Reads is consumed by Read; an empty queue returns io.EOF.
	Reads []RX
	// CommandErr is returned by Command.
	CommandErr error

	sent   []TX
	closed bool
}

var _ transmission.Transceiver[any, any] = (*Transceiver[any, any])(nil)

func (t *Transceiver[RX, TX]) Command(_ context.Context, p TX) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.sent = append(t.sent, p)

	return t.CommandErr
}

func (t *Transceiver[RX, TX]) Read(ctx context.Context) (RX, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var zero RX
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if len(t.Reads) == 0 {
		return zero, io.EOF
	}
	rx := t.Reads[0]
	t.Reads = t.Reads[1:]

	return rx, nil
}

func (t *Transceiver[RX, TX]) Poll(_ context.Context, p TX) (RX, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.sent = append(t.sent, p)
	if t.Reply == nil {
		var zero RX
		return zero, nil
	}

	return t.Reply(p)
}

func (t *Transceiver[RX, TX]) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return transmission.ErrConnClosed
	}
	t.closed = true

	return nil
}

// Sent returns the packets passed to Command and Poll, in order.
func (t *Transceiver[RX, TX]) Sent() []TX {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]TX, len(t.sent))
	copy(out, t.sent)

	return out
}

// Closed reports whether Close was called.
func (t *Transceiver[RX, TX]) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.closed
}
