package multimeter

import (
	"context"
	"io"
	"strconv"
	"time"

	"github.com/electric-propulsion/go-epcomms/scpi"
	"github.com/electric-propulsion/go-epcomms/telnet"
)

// DMM4050 drives a Tektronix DMM4050 over its telnet port.
type DMM4050 struct {
	*SCPIMultimeter
}

// NewDMM4050 creates a driver over s and switches the meter to remote mode.
func NewDMM4050(ctx context.Context, s scpi.Session, closer io.Closer) (*DMM4050, error) {
	d := &DMM4050{SCPIMultimeter: NewSCPIMultimeter(s, closer)}
	if err := d.Remote(ctx); err != nil {
		return nil, err
	}

	return d, nil
}

// OpenDMM4050 connects to host:port with "\n" terminated lines and a 5 s
// timeout unless opts say otherwise.
func OpenDMM4050(ctx context.Context, host string, port int, opts ...telnet.Option) (*DMM4050, error) {
	opts = append([]telnet.Option{telnet.WithTerminator("\n"), telnet.WithTimeout(5 * time.Second)}, opts...)

	conn, err := telnet.Dial(ctx, host, port, opts...)
	if err != nil {
		return nil, err
	}

	d, err := NewDMM4050(ctx, scpi.ASCII(conn), conn)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	return d, nil
}

// Remote switches the meter to remote control.
func (d *DMM4050) Remote(ctx context.Context) error {
	return d.s.Write(ctx, "SYST:REM")
}

// Local returns the meter to front panel control.
func (d *DMM4050) Local(ctx context.Context) error {
	return d.s.Write(ctx, "SYST:LOC")
}

// DisplayText shows text on the front panel.
func (d *DMM4050) DisplayText(ctx context.Context, text string) error {
	return d.s.Write(ctx, scpi.Command("DISP:TEXT", scpi.Args(strconv.Quote(text))))
}

// ClearText clears the front panel text.
func (d *DMM4050) ClearText(ctx context.Context) error {
	return d.s.Write(ctx, "DISP:TEXT:CLE")
}
