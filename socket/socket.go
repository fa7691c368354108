// Package socket implements a transmission over websocket text messages.
//
// Each Command and Poll opens a new websocket connection, exchanges one
// message (and, for Poll, one reply) and closes it. No connection is kept
// between calls. Read is unsupported.
package socket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/electric-propulsion/go-epcomms/logger"
	"github.com/electric-propulsion/go-epcomms/packet"
	"github.com/electric-propulsion/go-epcomms/transmission"
)

// ErrNonText is returned when a reply is not a text message.
var ErrNonText = fmt.Errorf("%w: non-text websocket message", transmission.ErrTransmission)

// Link sends TX packets as text messages and decodes text replies as RX.
type Link[RX any, TX packet.Transmittable[string]] struct {
	url     string
	dialer  *websocket.Dialer
	header  http.Header
	timeout time.Duration
	decode  packet.Decoder[string, RX]
	logger  logger.Logger
}

// Open creates a connection to the websocket URL, e.g. "ws://10.0.0.8:81".
// Nothing is dialed until the first Command or Poll.
func Open[RX any, TX packet.Transmittable[string]](rawURL string, decode packet.Decoder[string, RX], opts ...Option) (*transmission.Conn[RX, TX], error) {
	if decode == nil {
		return nil, transmission.ConfigErrorf("socket: nil decoder")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, transmission.ConfigErrorf("socket: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, transmission.ConfigErrorf("socket: url %q must use ws or wss", rawURL)
	}
	if u.Host == "" {
		return nil, transmission.ConfigErrorf("socket: url %q has no host", rawURL)
	}

	cfg, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}

	l := cfg.logger.With("url", u.String())
	link := &Link[RX, TX]{
		url:     u.String(),
		dialer:  &websocket.Dialer{HandshakeTimeout: cfg.handshakeTimeout},
		header:  cfg.header,
		timeout: cfg.timeout,
		decode:  decode,
		logger:  l,
	}

	return transmission.NewConn[RX, TX]("socket:"+u.String(), link, l), nil
}

// OpenString opens a connection exchanging String packets.
func OpenString(rawURL string, opts ...Option) (*transmission.Conn[packet.String, packet.String], error) {
	return Open[packet.String, packet.String](rawURL, packet.DecodeString, opts...)
}

// OpenJSON opens a connection sending Req documents and decoding Resp
// replies.
func OpenJSON[Req, Resp any](rawURL string, opts ...Option) (*transmission.Conn[packet.JSON[Resp], packet.JSON[Req]], error) {
	return Open[packet.JSON[Resp], packet.JSON[Req]](rawURL, packet.DecodeJSON[Resp], opts...)
}

// Send opens a connection, writes one text message and closes it.
func (l *Link[RX, TX]) Send(ctx context.Context, p TX) error {
	wire, err := p.Serialize()
	if err != nil {
		return err
	}

	ws, err := l.dial(ctx)
	if err != nil {
		return err
	}
	defer l.hangup(ws)

	return l.write(ctx, ws, wire)
}

// Receive is unsupported; a reply only exists in answer to a Poll.
func (l *Link[RX, TX]) Receive(context.Context) (RX, error) {
	var zero RX
	return zero, transmission.ErrReadUnsupported
}

// Query opens a connection, writes one text message, reads one reply and
// closes the connection.
func (l *Link[RX, TX]) Query(ctx context.Context, p TX) (RX, error) {
	var zero RX

	wire, err := p.Serialize()
	if err != nil {
		return zero, err
	}

	ws, err := l.dial(ctx)
	if err != nil {
		return zero, err
	}
	defer l.hangup(ws)

	if err := l.write(ctx, ws, wire); err != nil {
		return zero, err
	}

	_ = ws.SetReadDeadline(l.deadline(ctx))
	kind, msg, err := ws.ReadMessage()
	if err != nil {
		return zero, transmission.Errorf("socket: read: %w", err)
	}
	if kind != websocket.TextMessage {
		return zero, fmt.Errorf("%w: message type %d", ErrNonText, kind)
	}
	l.logger.Debug("websocket reply", "bytes", len(msg))

	return l.decode(string(msg))
}

func (l *Link[RX, TX]) dial(ctx context.Context) (*websocket.Conn, error) {
	ws, resp, err := l.dialer.DialContext(ctx, l.url, l.header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, transmission.Errorf("socket: dial %s: %s: %w", l.url, resp.Status, err)
		}

		return nil, transmission.Errorf("socket: dial %s: %w", l.url, err)
	}

	return ws, nil
}

func (l *Link[RX, TX]) write(ctx context.Context, ws *websocket.Conn, wire string) error {
	_ = ws.SetWriteDeadline(l.deadline(ctx))
	if err := ws.WriteMessage(websocket.TextMessage, []byte(wire)); err != nil {
		return transmission.Errorf("socket: write: %w", err)
	}
	l.logger.Debug("websocket message sent", "bytes", len(wire))

	return nil
}

// hangup sends a close frame and closes the connection.
func (l *Link[RX, TX]) hangup(ws *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	err := ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		l.logger.Debug("websocket close frame not sent", "error", err)
	}
	_ = ws.Close()
}

func (l *Link[RX, TX]) deadline(ctx context.Context) time.Time {
	d := time.Now().Add(l.timeout)
	if cd, ok := ctx.Deadline(); ok && cd.Before(d) {
		return cd
	}

	return d
}
