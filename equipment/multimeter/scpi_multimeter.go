package multimeter

import (
	"context"
	"io"

	"github.com/electric-propulsion/go-epcomms/scpi"
)

// SCPIMultimeter drives any multimeter speaking the common SCPI MEASure
// subsystem.
type SCPIMultimeter struct {
	s      scpi.Session
	closer io.Closer
}

var _ Multimeter = (*SCPIMultimeter)(nil)

// NewSCPIMultimeter creates a driver over s. closer, when not nil, is closed
// by Close.
func NewSCPIMultimeter(s scpi.Session, closer io.Closer) *SCPIMultimeter {
	return &SCPIMultimeter{s: s, closer: closer}
}

// Session returns the underlying session for instrument-specific commands.
func (m *SCPIMultimeter) Session() scpi.Session {
	return m.s
}

func (m *SCPIMultimeter) Beep(ctx context.Context) error {
	return m.s.Write(ctx, "SYST:BEEP")
}

func (m *SCPIMultimeter) VoltageAC(ctx context.Context, r scpi.Range, res scpi.Resolution) (float64, error) {
	return m.measure(ctx, "MEAS:VOLT:AC", r, res)
}

func (m *SCPIMultimeter) VoltageDC(ctx context.Context, r scpi.Range, res scpi.Resolution) (float64, error) {
	return m.measure(ctx, "MEAS:VOLT:DC", r, res)
}

func (m *SCPIMultimeter) CurrentAC(ctx context.Context, r scpi.Range, res scpi.Resolution) (float64, error) {
	return m.measure(ctx, "MEAS:CURR:AC", r, res)
}

func (m *SCPIMultimeter) CurrentDC(ctx context.Context, r scpi.Range, res scpi.Resolution) (float64, error) {
	return m.measure(ctx, "MEAS:CURR:DC", r, res)
}

func (m *SCPIMultimeter) Capacitance(ctx context.Context, r scpi.Range, res scpi.Resolution) (float64, error) {
	return m.measure(ctx, "MEAS:CAP", r, res)
}

// ContinuityResistance performs a 2-wire continuity test and returns the
// resistance reading.
func (m *SCPIMultimeter) ContinuityResistance(ctx context.Context) (float64, error) {
	return scpi.QueryFloat(ctx, m.s, scpi.Query("MEAS:CONT", nil))
}

// Continuity reports whether the continuity resistance is at most
// ContinuityThreshold.
func (m *SCPIMultimeter) Continuity(ctx context.Context) (bool, error) {
	ohms, err := m.ContinuityResistance(ctx)
	if err != nil {
		return false, err
	}

	return ohms <= ContinuityThreshold, nil
}

// Frequency sets the AC voltage range to amplitude (DefaultAmplitudeRange
// when empty) and measures frequency.
func (m *SCPIMultimeter) Frequency(ctx context.Context, r scpi.Range, res scpi.Resolution, amplitude scpi.Range) (float64, error) {
	if amplitude == "" {
		amplitude = DefaultAmplitudeRange
	}
	if err := amplitude.Validate(); err != nil {
		return 0, err
	}

	query, err := measureQuery("MEASURE:FREQUENCY", r, res)
	if err != nil {
		return 0, err
	}

	if err := m.s.Write(ctx, scpi.Command("SENS:FREQ:VOLT:RANGE", scpi.Args(string(amplitude)))); err != nil {
		return 0, err
	}

	return scpi.QueryFloat(ctx, m.s, query)
}

// Errors drains the instrument error queue.
func (m *SCPIMultimeter) Errors(ctx context.Context) ([]string, error) {
	return scpi.Errors(ctx, m.s)
}

func (m *SCPIMultimeter) Close() error {
	if m.closer == nil {
		return nil
	}

	return m.closer.Close()
}

func (m *SCPIMultimeter) measure(ctx context.Context, keyword string, r scpi.Range, res scpi.Resolution) (float64, error) {
	query, err := measureQuery(keyword, r, res)
	if err != nil {
		return 0, err
	}

	return scpi.QueryFloat(ctx, m.s, query)
}

func measureQuery(keyword string, r scpi.Range, res scpi.Resolution) (string, error) {
	if r == "" {
		r = scpi.Auto
	}
	if res == "" {
		res = scpi.ResolutionDefault
	}
	if err := r.Validate(); err != nil {
		return "", err
	}
	if err := res.Validate(); err != nil {
		return "", err
	}

	return scpi.Query(keyword, scpi.Args(string(r), string(res))), nil
}
