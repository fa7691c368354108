package visa

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrUnsupportedResource is returned for resource names the manager cannot
	// open, e.g. GPIB resources on the built-in manager.
	ErrUnsupportedResource = errors.New("visa: unsupported resource")
	// ErrInvalidResourceName is returned for malformed resource names.
	ErrInvalidResourceName = errors.New("visa: invalid resource name")
	// ErrRegistryClosed is returned by a registry after Close.
	ErrRegistryClosed = errors.New("visa: registry closed")
)

// IOError is a transient I/O failure reported by a resource manager, such as
// an instrument refusing connections while it boots. Opening a resource is
// retried on IOError.
type IOError struct {
	Resource string
	Op       string
	Err      error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("visa: %s %s: %v", e.Op, e.Resource, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Attributes are the session attributes applied when a resource is opened.
type Attributes struct {
	// Timeout bounds each read and write.
	Timeout time.Duration
	// ReadTermination ends each response; it is stripped from the result.
	ReadTermination string
	// WriteTermination is appended to each write.
	WriteTermination string
	// BaudRate applies to ASRL resources.
	BaudRate int
}

// Resource is an open message-based session.
type Resource interface {
	Name() string
	Write(ctx context.Context, data string) error
	Read(ctx context.Context) (string, error)
	Close() error
}

// Querier is implemented by resources with a native write-then-read query.
type Querier interface {
	Query(ctx context.Context, data string) (string, error)
}

// ResourceManager discovers and opens resources. Implementations need not be
// safe for concurrent use; Registry serializes ListResources and Open.
type ResourceManager interface {
	// ListResources returns the resource names matching a VISA resource
	// expression such as "?*" or "ASRL?*INSTR".
	ListResources(query string) ([]string, error)
	// Open opens the named resource. Transient failures are returned as
	// *IOError.
	Open(ctx context.Context, name string, attrs Attributes) (Resource, error)
	Close() error
}

// Interface types of a resource name.
const (
	InterfaceTCPIP = "TCPIP"
	InterfaceASRL  = "ASRL"
	InterfaceGPIB  = "GPIB"
	InterfaceUSB   = "USB"
)

// Resource classes.
const (
	ClassInstr  = "INSTR"
	ClassSocket = "SOCKET"
)

// ResourceName is a parsed VISA resource name.
//
//	TCPIP[board]::host::port::SOCKET
//	TCPIP[board]::host[::device]::INSTR
//	ASRL<board>::INSTR
//	GPIB[board]::primary[::secondary]::INSTR
type ResourceName struct {
	Interface string
	Board     string
	// Address holds the fields between the interface and the class.
	Address []string
	Class   string
}

var interfaces = []string{InterfaceTCPIP, InterfaceASRL, InterfaceGPIB, InterfaceUSB}

// ParseResourceName parses a VISA resource name. Interface and class are
// case-insensitive and normalized to upper case.
func ParseResourceName(name string) (ResourceName, error) {
	parts := strings.Split(name, "::")
	if len(parts) < 2 {
		return ResourceName{}, fmt.Errorf("%w: %q", ErrInvalidResourceName, name)
	}

	head := parts[0]
	var rn ResourceName
	for _, intf := range interfaces {
		if len(head) >= len(intf) && strings.EqualFold(head[:len(intf)], intf) {
			rn.Interface = intf
			rn.Board = head[len(intf):]
			break
		}
	}
	if rn.Interface == "" {
		return ResourceName{}, fmt.Errorf("%w: unknown interface in %q", ErrInvalidResourceName, name)
	}

	rn.Class = strings.ToUpper(parts[len(parts)-1])
	if rn.Class != ClassInstr && rn.Class != ClassSocket {
		return ResourceName{}, fmt.Errorf("%w: unknown resource class in %q", ErrInvalidResourceName, name)
	}
	rn.Address = parts[1 : len(parts)-1]

	switch {
	case rn.Class == ClassSocket && (rn.Interface != InterfaceTCPIP || len(rn.Address) != 2):
		return ResourceName{}, fmt.Errorf("%w: SOCKET requires TCPIP::host::port in %q", ErrInvalidResourceName, name)
	case rn.Interface == InterfaceASRL && (rn.Board == "" || len(rn.Address) != 0):
		return ResourceName{}, fmt.Errorf("%w: ASRL requires ASRL<board>::INSTR in %q", ErrInvalidResourceName, name)
	case rn.Interface != InterfaceASRL && len(rn.Address) == 0:
		return ResourceName{}, fmt.Errorf("%w: missing address in %q", ErrInvalidResourceName, name)
	}

	if rn.Class == ClassSocket {
		if _, err := strconv.ParseUint(rn.Address[1], 10, 16); err != nil {
			return ResourceName{}, fmt.Errorf("%w: invalid port in %q", ErrInvalidResourceName, name)
		}
	}

	return rn, nil
}

// String formats the canonical resource name.
func (rn ResourceName) String() string {
	parts := make([]string, 0, len(rn.Address)+2)
	parts = append(parts, rn.Interface+rn.Board)
	parts = append(parts, rn.Address...)
	parts = append(parts, rn.Class)

	return strings.Join(parts, "::")
}

// MatchResource reports whether name matches the VISA resource expression
// query. '?' matches any single character and '*' repeats the preceding
// element, so "?*" matches everything. Matching is case-insensitive.
func MatchResource(query, name string) (bool, error) {
	var b strings.Builder
	b.WriteString("(?i)^")
	for _, r := range query {
		switch r {
		case '?':
			b.WriteByte('.')
		case '*':
			b.WriteByte('*')
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteByte('$')

	re, err := regexp.Compile(b.String())
	if err != nil {
		return false, fmt.Errorf("visa: invalid resource expression %q: %w", query, err)
	}

	return re.MatchString(name), nil
}
