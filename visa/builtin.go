package visa

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/electric-propulsion/go-epcomms/serial"
	"github.com/electric-propulsion/go-epcomms/transmission"
)

// BuiltinManager is a ResourceManager for raw TCPIP SOCKET, HiSLIP TCPIP
// INSTR and ASRL serial resources. It needs no vendor VISA library.
//
// ASRL resources are discovered from the serial ports present on the system.
// TCPIP resources cannot be discovered and are only listed while open.
type BuiltinManager struct {
	dialer   net.Dialer
	listPort func() ([]string, error)

	mu     sync.Mutex
	opened map[string]int
}

var _ ResourceManager = (*BuiltinManager)(nil)

// NewBuiltinManager creates the built-in resource manager.
func NewBuiltinManager() *BuiltinManager {
	return &BuiltinManager{
		listPort: serial.Ports,
		opened:   make(map[string]int),
	}
}

// ListResources returns ASRL resources for every system serial port and every
// TCPIP resource currently open through this manager, filtered by query.
func (m *BuiltinManager) ListResources(query string) ([]string, error) {
	var names []string

	ports, err := m.listPort()
	if err != nil {
		return nil, err
	}
	for _, p := range ports {
		names = append(names, InterfaceASRL+p+"::"+ClassInstr)
	}
	m.mu.Lock()
	for name := range m.opened {
		names = append(names, name)
	}
	m.mu.Unlock()

	matched := names[:0]
	for _, name := range names {
		ok, err := MatchResource(query, name)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, name)
		}
	}

	slices.Sort(matched)

	return matched, nil
}

// Open opens a TCPIP SOCKET, TCPIP HiSLIP INSTR or ASRL INSTR resource.
func (m *BuiltinManager) Open(ctx context.Context, name string, attrs Attributes) (Resource, error) {
	rn, err := ParseResourceName(name)
	if err != nil {
		return nil, err
	}

	switch {
	case rn.Interface == InterfaceTCPIP && rn.Class == ClassSocket:
		return m.openSocket(ctx, rn, attrs)
	case rn.Interface == InterfaceTCPIP && rn.Class == ClassInstr:
		return m.openHiSLIP(ctx, rn, attrs)
	case rn.Interface == InterfaceASRL:
		return m.openSerial(rn, attrs)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedResource, rn)
	}
}

// Close releases the manager. Open resources are not affected.
func (m *BuiltinManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	clear(m.opened)

	return nil
}

// track lists name until the returned function is called.
func (m *BuiltinManager) track(name string) func() {
	m.mu.Lock()
	m.opened[name]++
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		m.opened[name]--
		if m.opened[name] <= 0 {
			delete(m.opened, name)
		}
	}
}

func (m *BuiltinManager) openSocket(ctx context.Context, rn ResourceName, attrs Attributes) (Resource, error) {
	addr := net.JoinHostPort(rn.Address[0], rn.Address[1])

	dialCtx := ctx
	if attrs.Timeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, attrs.Timeout)
		defer cancel()
	}

	conn, err := m.dialer.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return nil, &IOError{Resource: rn.String(), Op: "open", Err: err}
	}

	res, err := newStreamResource(rn.String(), conn, conn.SetDeadline, attrs)
	if err != nil {
		return nil, err
	}
	res.onClose = m.track(res.name)

	return res, nil
}

func (m *BuiltinManager) openSerial(rn ResourceName, attrs Attributes) (Resource, error) {
	opts := []serial.Option{}
	if attrs.BaudRate > 0 {
		opts = append(opts, serial.WithBaudRate(attrs.BaudRate))
	}
	if attrs.Timeout > 0 {
		opts = append(opts, serial.WithReadTimeout(attrs.Timeout))
	}

	cfg, err := serial.NewConfig(serialDevice(rn.Board), opts...)
	if err != nil {
		return nil, err
	}

	port, err := serial.OpenPort(cfg)
	if err != nil {
		return nil, &IOError{Resource: rn.String(), Op: "open", Err: err}
	}

	res, err := newStreamResource(rn.String(), port, nil, attrs)
	if err != nil {
		return nil, err
	}

	return res, nil
}

// serialDevice maps an ASRL board to a device path: numeric boards are COM
// ports on Windows and ttyS devices elsewhere, anything else is used as is.
func serialDevice(board string) string {
	n, err := strconv.Atoi(board)
	if err != nil {
		return board
	}

	if runtime.GOOS == "windows" {
		return "COM" + strconv.Itoa(n)
	}

	return "/dev/ttyS" + strconv.Itoa(n)
}

// streamResource is a message-based session over a byte stream.
type streamResource struct {
	name        string
	rw          io.ReadWriteCloser
	framer      *transmission.Framer
	setDeadline func(time.Time) error
	timeout     time.Duration
	writeTerm   string
	onClose     func()

	closeOnce sync.Once
	closeErr  error
}

var _ transmission.Interrupter = (*streamResource)(nil)

func newStreamResource(name string, rw io.ReadWriteCloser, setDeadline func(time.Time) error, attrs Attributes) (*streamResource, error) {
	framer, err := transmission.NewFramer(rw, transmission.FrameSpec{Terminator: []byte(attrs.ReadTermination)})
	if err != nil {
		_ = rw.Close()
		return nil, err
	}

	return &streamResource{
		name:        name,
		rw:          rw,
		framer:      framer,
		setDeadline: setDeadline,
		timeout:     attrs.Timeout,
		writeTerm:   attrs.WriteTermination,
	}, nil
}

func (r *streamResource) Name() string {
	return r.name
}

func (r *streamResource) Write(ctx context.Context, data string) error {
	if err := r.arm(ctx); err != nil {
		return err
	}

	msg := data
	if r.writeTerm != "" && !strings.HasSuffix(msg, r.writeTerm) {
		msg += r.writeTerm
	}

	if _, err := io.WriteString(r.rw, msg); err != nil {
		return &IOError{Resource: r.name, Op: "write", Err: err}
	}

	return nil
}

func (r *streamResource) Read(ctx context.Context) (string, error) {
	if err := r.arm(ctx); err != nil {
		return "", err
	}

	frame, err := r.framer.ReadFrame()
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return "", &IOError{Resource: r.name, Op: "read", Err: err}
		}

		return "", err
	}

	return string(frame), nil
}

// Interrupt closes the stream, which ends a blocked read.
func (r *streamResource) Interrupt() {
	_ = r.Close()
}

func (r *streamResource) Close() error {
	r.closeOnce.Do(func() {
		r.closeErr = r.rw.Close()
		if r.onClose != nil {
			r.onClose()
		}
	})

	return r.closeErr
}

// arm applies the session timeout, shortened by the context deadline.
func (r *streamResource) arm(ctx context.Context) error {
	if r.setDeadline == nil {
		return nil
	}

	var deadline time.Time
	if r.timeout > 0 {
		deadline = time.Now().Add(r.timeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}

	if err := r.setDeadline(deadline); err != nil {
		return &IOError{Resource: r.name, Op: "set timeout", Err: err}
	}

	return nil
}
