package bench

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/electric-propulsion/go-epcomms/logger"
	"github.com/electric-propulsion/go-epcomms/packet"
	"github.com/electric-propulsion/go-epcomms/scpi"
	"github.com/electric-propulsion/go-epcomms/serial"
	"github.com/electric-propulsion/go-epcomms/socket"
	"github.com/electric-propulsion/go-epcomms/telnet"
	"github.com/electric-propulsion/go-epcomms/transmission"
	"github.com/electric-propulsion/go-epcomms/visa"
)

// DefaultTelnetPort is used for telnet instruments without a port.
const DefaultTelnetPort = 23

var (
	// ErrUnknownInstrument is returned for names missing from the bench file.
	ErrUnknownInstrument = errors.New("bench: unknown instrument")
	// ErrBenchClosed is returned by a closed Bench.
	ErrBenchClosed = errors.New("bench: closed")
)

// conn is the transport-independent part of a transmission.Conn.
type conn interface {
	Name() string
	State() transmission.State
	Metrics() *transmission.Metrics
	Close() error
}

// Session is an open text session to a bench instrument.
type Session struct {
	scpi.Session

	inst Instrument
	conn conn
	read func(ctx context.Context) (string, error)
}

func newSession[P scpi.Text](inst Instrument, c *transmission.Conn[P, P], wrap func(string) P) *Session {
	return &Session{
		Session: scpi.NewSession[P](c, wrap),
		inst:    inst,
		conn:    c,
		read: func(ctx context.Context) (string, error) {
			p, err := c.Read(ctx)
			if err != nil {
				return "", err
			}

			return p.Deserialize(), nil
		},
	}
}

// Instrument returns the bench entry the session was opened from.
func (s *Session) Instrument() Instrument { return s.inst }

// Read receives one response without transmitting.
func (s *Session) Read(ctx context.Context) (string, error) {
	return s.read(ctx)
}

// State returns the connection state.
func (s *Session) State() transmission.State { return s.conn.State() }

// Metrics returns a snapshot of the connection counters.
func (s *Session) Metrics() transmission.Snapshot { return s.conn.Metrics().Snapshot() }

// Close closes the connection.
func (s *Session) Close() error { return s.conn.Close() }

// Bench opens and tracks sessions to the instruments of a Config.
type Bench struct {
	mu       sync.Mutex
	cfg      *Config
	reg      *visa.Registry
	sessions *xsync.MapOf[string, *Session]
	closed   bool
	logger   logger.Logger
}

// New creates a bench. VISA resources are opened through reg; when reg is nil
// a registry over the built-in resource manager is created and owned by the
// bench.
func New(cfg *Config, reg *visa.Registry, l logger.Logger) *Bench {
	if l == nil {
		l = logger.GetLogger()
	}
	if reg == nil {
		reg = visa.NewRegistry(visa.NewBuiltinManager(), l)
	}

	return &Bench{
		cfg:      cfg,
		reg:      reg,
		sessions: xsync.NewMapOf[string, *Session](),
		logger:   l.With("component", "bench"),
	}
}

// Config returns the bench description.
func (b *Bench) Config() *Config { return b.cfg }

// Registry returns the VISA registry used for visa instruments.
func (b *Bench) Registry() *visa.Registry { return b.reg }

// Open returns the session of the named instrument, opening it on first use.
func (b *Bench) Open(ctx context.Context, name string) (*Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBenchClosed
	}
	if s, ok := b.sessions.Load(name); ok && s.State() == transmission.OpenState {
		return s, nil
	}

	inst, ok := b.cfg.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownInstrument, name)
	}

	s, err := b.open(ctx, inst)
	if err != nil {
		return nil, err
	}
	b.sessions.Store(name, s)
	b.logger.Debug("instrument opened", "name", name, "transport", inst.Transport, "address", inst.Address)

	return s, nil
}

func (b *Bench) open(ctx context.Context, inst Instrument) (*Session, error) {
	switch inst.Transport {
	case TransportSerial:
		return openSerial(inst, b.logger)
	case TransportVISA:
		return openVISA(ctx, b.reg, inst, b.logger)
	case TransportTelnet:
		return openTelnet(ctx, inst, b.logger)
	case TransportSocket:
		return openSocket(inst, b.logger)
	default:
		return nil, transmission.ConfigErrorf("bench: %s: unknown transport %q", inst.Name, inst.Transport)
	}
}

func openSerial(inst Instrument, l logger.Logger) (*Session, error) {
	opts := []serial.Option{serial.WithLogger(l)}
	if inst.BaudRate > 0 {
		opts = append(opts, serial.WithBaudRate(inst.BaudRate))
	}
	if len(inst.Terminator) > 0 {
		opts = append(opts, serial.WithFrameTerminator(inst.Terminator))
	}
	if inst.Timeout > 0 {
		opts = append(opts, serial.WithReadTimeout(inst.Timeout))
	}

	c, err := serial.OpenASCII(inst.Address, opts...)
	if err != nil {
		return nil, err
	}

	return newSession(inst, c, packet.NewASCII), nil
}

func openVISA(ctx context.Context, reg *visa.Registry, inst Instrument, l logger.Logger) (*Session, error) {
	opts := []visa.Option{visa.WithLogger(l)}
	if inst.Timeout > 0 {
		opts = append(opts, visa.WithTimeout(inst.Timeout))
	}
	if len(inst.Terminator) > 0 {
		opts = append(opts,
			visa.WithReadTermination(string(inst.Terminator)),
			visa.WithWriteTermination(string(inst.Terminator)),
		)
	}
	if inst.BaudRate > 0 {
		opts = append(opts, visa.WithBaudRate(inst.BaudRate))
	}
	if inst.OpenAttempts > 0 {
		delay := inst.RetryDelay
		if delay == 0 {
			delay = visa.DefaultOpenRetryDelay
		}
		opts = append(opts, visa.WithOpenRetry(inst.OpenAttempts, delay))
	}

	c, err := visa.Open(ctx, reg, inst.Address, opts...)
	if err != nil {
		return nil, err
	}

	return newSession(inst, c, packet.NewString), nil
}

func openTelnet(ctx context.Context, inst Instrument, l logger.Logger) (*Session, error) {
	port := inst.Port
	if port == 0 {
		port = DefaultTelnetPort
	}

	opts := []telnet.Option{telnet.WithLogger(l)}
	if len(inst.Terminator) > 0 {
		opts = append(opts, telnet.WithTerminator(string(inst.Terminator)))
	}
	if inst.Timeout > 0 {
		opts = append(opts, telnet.WithTimeout(inst.Timeout))
	}

	c, err := telnet.Dial(ctx, inst.Address, port, opts...)
	if err != nil {
		return nil, err
	}

	return newSession(inst, c, packet.NewASCII), nil
}

func openSocket(inst Instrument, l logger.Logger) (*Session, error) {
	opts := []socket.Option{socket.WithLogger(l)}
	if inst.Timeout > 0 {
		opts = append(opts, socket.WithTimeout(inst.Timeout))
	}

	c, err := socket.OpenString(inst.Address, opts...)
	if err != nil {
		return nil, err
	}

	return newSession(inst, c, packet.NewString), nil
}

// Sessions returns the open sessions ordered by instrument name.
func (b *Bench) Sessions() []*Session {
	var out []*Session
	b.sessions.Range(func(_ string, s *Session) bool {
		if s.State() == transmission.OpenState {
			out = append(out, s)
		}
		return true
	})
	slices.SortFunc(out, func(a, b *Session) int { return strings.Compare(a.inst.Name, b.inst.Name) })

	return out
}

// CloseSession closes the named session.
func (b *Bench) CloseSession(name string) error {
	s, ok := b.sessions.LoadAndDelete(name)
	if !ok {
		return fmt.Errorf("%w: %q is not open", ErrUnknownInstrument, name)
	}

	return s.Close()
}

// Resources lists the VISA resources matching query.
func (b *Bench) Resources(query string) ([]string, error) {
	return b.reg.ListResources(query)
}

// Ports lists the serial ports present on the system.
func (b *Bench) Ports() ([]string, error) {
	return serial.Ports()
}

// Close closes every session and the VISA registry.
func (b *Bench) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBenchClosed
	}
	b.closed = true

	var errs []error
	b.sessions.Range(func(name string, s *Session) bool {
		b.sessions.Delete(name)
		if err := s.Close(); err != nil && !errors.Is(err, transmission.ErrConnClosed) {
			errs = append(errs, fmt.Errorf("bench: close %s: %w", name, err))
		}
		return true
	})
	if err := b.reg.Close(); err != nil && !errors.Is(err, visa.ErrRegistryClosed) {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
