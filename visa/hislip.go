package visa

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/xiabin827/gohislip"
)

// DefaultHiSLIPDevice is the sub-address used by TCPIP::host::INSTR.
const DefaultHiSLIPDevice = "hislip0"

// hislipTarget returns the TCP address and HiSLIP sub-address of a TCPIP INSTR
// resource:
//
//	TCPIP[board]::host::INSTR              hislip0 on port 4880
//	TCPIP[board]::host::hislipN::INSTR     hislipN on port 4880
//	TCPIP[board]::host::hislipN,port::INSTR
//
// Other devices, such as VXI-11 inst0, are unsupported.
func hislipTarget(rn ResourceName) (addr, sub string, err error) {
	host := rn.Address[0]
	sub = DefaultHiSLIPDevice
	port := strconv.Itoa(gohislip.DefaultPort)

	switch len(rn.Address) {
	case 1:
	case 2:
		dev, p, hasPort := strings.Cut(rn.Address[1], ",")
		if !strings.HasPrefix(strings.ToLower(dev), "hislip") {
			return "", "", fmt.Errorf("%w: %s is not a HiSLIP device", ErrUnsupportedResource, rn)
		}
		sub = strings.ToLower(dev)
		if hasPort {
			if _, err := strconv.ParseUint(p, 10, 16); err != nil {
				return "", "", fmt.Errorf("%w: invalid HiSLIP port in %q", ErrInvalidResourceName, rn)
			}
			port = p
		}
	default:
		return "", "", fmt.Errorf("%w: %s", ErrUnsupportedResource, rn)
	}

	return net.JoinHostPort(host, port), sub, nil
}

func (m *BuiltinManager) openHiSLIP(ctx context.Context, rn ResourceName, attrs Attributes) (Resource, error) {
	addr, sub, err := hislipTarget(rn)
	if err != nil {
		return nil, err
	}

	timeout := attrs.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := gohislip.Dial(dialCtx, addr, &gohislip.ClientConfig{
		SubAddress: sub,
		Timeout:    timeout,
	})
	if err != nil {
		return nil, &IOError{Resource: rn.String(), Op: "open", Err: err}
	}

	res := &hislipResource{
		name:      rn.String(),
		client:    client,
		timeout:   timeout,
		readTerm:  attrs.ReadTermination,
		writeTerm: attrs.WriteTermination,
	}
	res.onClose = m.track(res.name)

	return res, nil
}

// hislipResource is a HiSLIP session. Message boundaries come from the
// protocol's END flag; the read termination is only stripped.
type hislipResource struct {
	name      string
	client    *gohislip.Client
	timeout   time.Duration
	readTerm  string
	writeTerm string
	onClose   func()

	closeOnce sync.Once
	closeErr  error
}

var _ Querier = (*hislipResource)(nil)

func (r *hislipResource) Name() string {
	return r.name
}

func (r *hislipResource) Write(ctx context.Context, data string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := r.client.Write(r.terminate(data)); err != nil {
		return &IOError{Resource: r.name, Op: "write", Err: err}
	}

	return nil
}

func (r *hislipResource) Read(ctx context.Context) (string, error) {
	timeout, err := r.budget(ctx)
	if err != nil {
		return "", err
	}

	data, err := r.client.ReadWithTimeout(timeout)
	if err != nil {
		return "", &IOError{Resource: r.name, Op: "read", Err: err}
	}

	return strings.TrimSuffix(string(data), r.readTerm), nil
}

// Query uses the HiSLIP client's query, which trims surrounding whitespace
// from the response.
func (r *hislipResource) Query(ctx context.Context, data string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	resp, err := r.client.Query(r.terminate(data))
	if err != nil {
		return "", &IOError{Resource: r.name, Op: "query", Err: err}
	}

	return resp, nil
}

// Interrupt closes the session, which ends a blocked read.
func (r *hislipResource) Interrupt() {
	_ = r.Close()
}

func (r *hislipResource) Close() error {
	r.closeOnce.Do(func() {
		r.closeErr = r.client.Close()
		if r.onClose != nil {
			r.onClose()
		}
	})

	return r.closeErr
}

func (r *hislipResource) terminate(data string) string {
	if r.writeTerm != "" && !strings.HasSuffix(data, r.writeTerm) {
		return data + r.writeTerm
	}

	return data
}

// budget returns the read timeout, shortened by the context deadline.
func (r *hislipResource) budget(ctx context.Context) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	timeout := r.timeout
	if d, ok := ctx.Deadline(); ok {
		if left := time.Until(d); left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		return 0, &IOError{Resource: r.name, Op: "read", Err: context.DeadlineExceeded}
	}

	return timeout, nil
}
