// Package eip implements an EtherNet/IP explicit messaging client.
//
// The client registers a session over TCP and sends unconnected CIP requests
// with SendRRData. It opens lazily: the first request dials the device when
// no session is registered, and an I/O failure drops the session so the next
// request reconnects.
package eip

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/electric-propulsion/go-epcomms/cip"
	"github.com/electric-propulsion/go-epcomms/logger"
)

const (
	DefaultPort    = 44818
	DefaultTimeout = 5 * time.Second
)

var (
	// ErrMalformed is returned for frames that cannot be parsed.
	ErrMalformed = errors.New("eip: malformed frame")
	// ErrNotConnected is returned when no session is registered.
	ErrNotConnected = errors.New("eip: not connected")
	// ErrStatus is returned when the encapsulation status is not zero.
	ErrStatus = errors.New("eip: encapsulation status")
	// ErrSession is returned when session registration fails or a reply
	// carries another session handle.
	ErrSession = errors.New("eip: session error")
)

// DialFunc dials the device.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Client is an EtherNet/IP explicit messaging client. It is safe for
// concurrent use; requests are serialized.
type Client struct {
	mu      sync.Mutex
	addr    string
	timeout time.Duration
	dial    DialFunc
	conn    net.Conn
	session uint32
	logger  logger.Logger
}

// Option is a functional option for configuring a Client.
type Option interface {
	apply(*Client) error
}

type optFunc func(*Client) error

func (f optFunc) apply(c *Client) error { return f(c) }

// WithTimeout sets the dial and per-request I/O timeout.
func WithTimeout(d time.Duration) Option {
	return optFunc(func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("eip: timeout %v must be positive", d)
		}
		c.timeout = d

		return nil
	})
}

// WithDialFunc replaces the TCP dialer.
func WithDialFunc(dial DialFunc) Option {
	return optFunc(func(c *Client) error {
		if dial == nil {
			return errors.New("eip: nil dial func")
		}
		c.dial = dial

		return nil
	})
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(c *Client) error {
		if l != nil {
			c.logger = l
		}

		return nil
	})
}

// NewClient creates a client for a device path of the form "host" or
// "host:port". No connection is made until Open or the first request.
func NewClient(path string, opts ...Option) (*Client, error) {
	addr, err := parsePath(path)
	if err != nil {
		return nil, err
	}

	var d net.Dialer
	c := &Client{
		addr:    addr,
		timeout: DefaultTimeout,
		dial:    d.DialContext,
		logger:  logger.GetLogger(),
	}
	for _, opt := range opts {
		if err := opt.apply(c); err != nil {
			return nil, err
		}
	}
	c.logger = c.logger.With("eip", addr)

	return c, nil
}

func parsePath(path string) (string, error) {
	if path == "" {
		return "", errors.New("eip: empty device path")
	}
	if strings.Contains(path, "/") {
		return "", fmt.Errorf("eip: routed path %q is not supported", path)
	}

	host, port, err := net.SplitHostPort(path)
	if err != nil {
		return net.JoinHostPort(path, strconv.Itoa(DefaultPort)), nil
	}
	if _, err := strconv.ParseUint(port, 10, 16); err != nil {
		return "", fmt.Errorf("eip: invalid port in %q", path)
	}

	return net.JoinHostPort(host, port), nil
}

// Addr returns the device address.
func (c *Client) Addr() string {
	return c.addr
}

// Connected reports whether a session is registered.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.conn != nil && c.session != 0
}

// Session returns the registered session handle, zero when not connected.
func (c *Client) Session() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.session
}

// Open dials the device and registers a session. It is a no-op when a
// session is already registered.
func (c *Client) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.open(ctx)
}

func (c *Client) open(ctx context.Context) error {
	if c.conn != nil && c.session != 0 {
		return nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, err := c.dial(dialCtx, "tcp", c.addr)
	if err != nil {
		return fmt.Errorf("eip: dial %s: %w", c.addr, err)
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetKeepAlive(true)
		_ = tc.SetKeepAlivePeriod(30 * time.Second)
	}
	c.conn = conn

	session, err := c.registerSession(ctx)
	if err != nil {
		c.drop()
		return err
	}
	c.session = session
	c.logger.Debug("eip session registered", "session", fmt.Sprintf("0x%08X", session))

	return nil
}

func (c *Client) registerSession(ctx context.Context) (uint32, error) {
	// protocol version 1, no option flags
	req := Encap{Command: CommandRegisterSession, Data: []byte{1, 0, 0, 0}}

	resp, err := c.transact(ctx, &req)
	if err != nil {
		return 0, fmt.Errorf("eip: register session: %w", err)
	}
	if resp.Status != 0 {
		return 0, fmt.Errorf("%w: register session status 0x%08X", ErrSession, resp.Status)
	}
	if resp.SessionHandle == 0 {
		return 0, fmt.Errorf("%w: register session returned handle 0", ErrSession)
	}

	return resp.SessionHandle, nil
}

// Close unregisters the session and closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}

	var err error
	if c.session != 0 {
		req := Encap{Command: CommandUnRegisterSession, SessionHandle: c.session}
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
		_, err = c.conn.Write(req.Bytes())
	}

	if cerr := c.conn.Close(); err == nil {
		err = cerr
	}
	c.conn = nil
	c.session = 0

	return err
}

// SendRRData sends an unconnected common packet and returns the reply,
// opening the session first if needed.
func (c *Client) SendRRData(ctx context.Context, p CommonPacket) (*CommonPacket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.open(ctx); err != nil {
		return nil, err
	}

	data := CommandData{Packet: p.Bytes()}
	req := Encap{Command: CommandSendRRData, SessionHandle: c.session, Data: data.Bytes()}

	resp, err := c.transact(ctx, &req)
	if err != nil {
		c.drop()
		return nil, fmt.Errorf("eip: send rr data: %w", err)
	}
	if resp.Status != 0 {
		return nil, fmt.Errorf("%w: send rr data status 0x%08X", ErrStatus, resp.Status)
	}

	cd, err := ParseCommandData(resp.Data)
	if err != nil {
		return nil, err
	}

	return ParseCommonPacket(cd.Packet)
}

// GenericMessage sends msg as an unconnected explicit request. A CIP error
// status is reported in the returned tag; the error result is reserved for
// transport and framing failures.
func (c *Client) GenericMessage(ctx context.Context, msg cip.GenericMessage) (cip.Tag, error) {
	request, err := msg.Marshal()
	if err != nil {
		return cip.Tag{}, err
	}

	reply, err := c.SendRRData(ctx, UnconnectedMessage(request))
	if err != nil {
		return cip.Tag{}, err
	}

	item, ok := reply.Find(ItemUnconnectedData)
	if !ok {
		return cip.Tag{}, fmt.Errorf("%w: reply has no unconnected data item", ErrMalformed)
	}

	resp, err := cip.ParseRouterResponse(item.Data)
	if err != nil {
		return cip.Tag{}, err
	}

	tag := resp.Tag(msg.Type)
	c.logger.Debug("eip generic message", "request", msg.String(), "status", resp.GeneralStatus, "ok", tag.OK())

	return tag, nil
}

func (c *Client) transact(ctx context.Context, req *Encap) (*Encap, error) {
	if c.conn == nil {
		return nil, ErrNotConnected
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		return nil, err
	}
	defer func() { _ = c.conn.SetDeadline(time.Time{}) }()

	if _, err := c.conn.Write(req.Bytes()); err != nil {
		return nil, fmt.Errorf("eip: write: %w", err)
	}

	resp, err := ReadEncap(c.conn)
	if err != nil {
		return nil, err
	}

	if resp.SessionHandle != 0 && req.SessionHandle != 0 && resp.SessionHandle != req.SessionHandle {
		return nil, fmt.Errorf("%w: reply session 0x%08X, want 0x%08X", ErrSession, resp.SessionHandle, req.SessionHandle)
	}

	return resp, nil
}

// drop closes the connection after an I/O failure so the next request
// reconnects.
func (c *Client) drop() {
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn = nil
	c.session = 0
}
