package powersupply

import (
	"context"
	"io"
	"strconv"

	"github.com/electric-propulsion/go-epcomms/equipment"
	"github.com/electric-propulsion/go-epcomms/scpi"
	"github.com/electric-propulsion/go-epcomms/visa"
)

// EDU36311AChannels is the number of outputs of the EDU36311A.
const EDU36311AChannels = 3

// EDU36311A drives a Keysight EDU36311A triple-output supply.
type EDU36311A struct {
	s      scpi.Session
	closer io.Closer
}

var _ PowerSupply = (*EDU36311A)(nil)

// NewEDU36311A creates a driver over s. closer, when not nil, is closed by
// Close.
func NewEDU36311A(s scpi.Session, closer io.Closer) *EDU36311A {
	return &EDU36311A{s: s, closer: closer}
}

// OpenEDU36311A opens the supply at a VISA resource name.
func OpenEDU36311A(ctx context.Context, reg *visa.Registry, resource string, opts ...visa.Option) (*EDU36311A, error) {
	conn, err := visa.Open(ctx, reg, resource, opts...)
	if err != nil {
		return nil, err
	}

	return NewEDU36311A(scpi.String(conn), conn), nil
}

func (p *EDU36311A) Beep(ctx context.Context) error {
	return p.s.Write(ctx, "SYST:BEEP")
}

func (p *EDU36311A) SetVoltage(ctx context.Context, volts float64, channel int) error {
	if err := p.selectChannel(ctx, channel); err != nil {
		return err
	}

	return p.s.Write(ctx, scpi.Command(":SOUR:VOLT:LEV:IMM:AMPL", scpi.Args(formatFloat(volts))))
}

func (p *EDU36311A) VoltageSetpoint(ctx context.Context, channel int) (float64, error) {
	if err := p.selectChannel(ctx, channel); err != nil {
		return 0, err
	}

	return scpi.QueryFloat(ctx, p.s, scpi.Query("SOUR:VOLT:LEV:IMM:AMPL", nil))
}

// Voltage measures the output voltage.
func (p *EDU36311A) Voltage(ctx context.Context, channel int) (float64, error) {
	if err := equipment.CheckChannel(channel, EDU36311AChannels); err != nil {
		return 0, err
	}

	return scpi.QueryFloat(ctx, p.s, scpi.Query(":MEAS:SCAL:VOLT:DC", scpi.Args(channelName(channel))))
}

func (p *EDU36311A) SetCurrentLimit(ctx context.Context, amps float64, channel int) error {
	if err := p.selectChannel(ctx, channel); err != nil {
		return err
	}

	return p.s.Write(ctx, scpi.Command(":SOUR:CURR:LEV:IMM:AMPL", scpi.Args(formatFloat(amps))))
}

func (p *EDU36311A) CurrentLimit(ctx context.Context, channel int) (float64, error) {
	if err := p.selectChannel(ctx, channel); err != nil {
		return 0, err
	}

	return scpi.QueryFloat(ctx, p.s, scpi.Query(":SOUR:CURR:LEV:IMM:AMPL", nil))
}

// Current measures the output current.
func (p *EDU36311A) Current(ctx context.Context, channel int) (float64, error) {
	if err := equipment.CheckChannel(channel, EDU36311AChannels); err != nil {
		return 0, err
	}

	return scpi.QueryFloat(ctx, p.s, scpi.Query(":MEAS:SCAL:CURR:DC", scpi.Args(channelName(channel))))
}

func (p *EDU36311A) Output(ctx context.Context, channel int) (bool, error) {
	if err := p.selectChannel(ctx, channel); err != nil {
		return false, err
	}

	resp, err := p.s.Query(ctx, scpi.Query(":OUTP:STAT", nil))
	if err != nil {
		return false, err
	}

	return scpi.ParseBool(resp)
}

func (p *EDU36311A) SetOutput(ctx context.Context, on bool, channel int) error {
	if err := p.selectChannel(ctx, channel); err != nil {
		return err
	}

	state := "0"
	if on {
		state = "1"
	}

	return p.s.Write(ctx, scpi.Command(":OUTP:STAT", scpi.Args(state)))
}

// Errors drains the instrument error queue.
func (p *EDU36311A) Errors(ctx context.Context) ([]string, error) {
	return scpi.Errors(ctx, p.s)
}

func (p *EDU36311A) Close() error {
	if p.closer == nil {
		return nil
	}

	return p.closer.Close()
}

func (p *EDU36311A) selectChannel(ctx context.Context, channel int) error {
	if err := equipment.CheckChannel(channel, EDU36311AChannels); err != nil {
		return err
	}

	return p.s.Write(ctx, scpi.Command(":INST:NSEL", scpi.Args(strconv.Itoa(channel))))
}

func channelName(channel int) string {
	return "CH" + strconv.Itoa(channel)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
