package multimeter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/electric-propulsion/go-epcomms/internal/fake"
	"github.com/electric-propulsion/go-epcomms/packet"
	"github.com/electric-propulsion/go-epcomms/scpi"
)

type asciiFake = fake.Transceiver[packet.ASCII, packet.ASCII]

func newMeter(replies map[string]string) (*SCPIMultimeter, *asciiFake) {
	f := &asciiFake{Reply: func(p packet.ASCII) (packet.ASCII, error) {
		r, ok := replies[p.Deserialize()]
		if !ok {
			return packet.ASCII{}, errors.New("unexpected query " + p.Deserialize())
		}

		return packet.NewASCII(r), nil
	}}

	return NewSCPIMultimeter(scpi.ASCII(f), f), f
}

func sent(f *asciiFake) []string {
	var out []string
	for _, p := range f.Sent() {
		out = append(out, p.Deserialize())
	}

	return out
}

func TestMeasure_Defaults(t *testing.T) {
	m, _ := newMeter(map[string]string{
		"MEAS:VOLT:DC? AUTO,DEF":     "+1.23450000E+00",
		"MEAS:VOLT:AC? MAX,MIN":      "+2.0E-01",
		"MEAS:CURR:DC? 1.00e-01,DEF": "-3.0E-03",
		"MEAS:CAP? AUTO,DEF":         "4.7E-06",
	})
	ctx := context.Background()

	v, err := m.VoltageDC(ctx, "", "")
	require.NoError(t, err)
	require.Equal(t, 1.2345, v)

	v, err = m.VoltageAC(ctx, scpi.Max, scpi.ResolutionMin)
	require.NoError(t, err)
	require.Equal(t, 0.2, v)

	v, err = m.CurrentDC(ctx, scpi.Numeric(0.1), "")
	require.NoError(t, err)
	require.Equal(t, -0.003, v)

	v, err = m.Capacitance(ctx, scpi.Auto, scpi.ResolutionDefault)
	require.NoError(t, err)
	require.Equal(t, 4.7e-6, v)
}

func TestMeasure_InvalidArguments(t *testing.T) {
	m, f := newMeter(nil)

	_, err := m.CurrentAC(context.Background(), "HIGH", "")
	require.Error(t, err)
	_, err = m.VoltageDC(context.Background(), "", "AUTO")
	require.Error(t, err)
	require.Empty(t, f.Sent())
}

func TestContinuity(t *testing.T) {
	tests := []struct {
		reading string
		want    bool
	}{
		{"+2.5E+00", true},
		{"+1.0E+01", true},
		{"+1.1E+01", false},
		{"+9.9E+37", false},
	}

	for _, tt := range tests {
		m, _ := newMeter(map[string]string{"MEAS:CONT?": tt.reading})
		ok, err := m.Continuity(context.Background())
		require.NoError(t, err)
		require.Equal(t, tt.want, ok, tt.reading)
	}
}

func TestFrequency_SetsAmplitudeRangeFirst(t *testing.T) {
	m, f := newMeter(map[string]string{"MEASURE:FREQUENCY? AUTO,DEF": "1.0E+03"})

	hz, err := m.Frequency(context.Background(), "", "", "")
	require.NoError(t, err)
	require.Equal(t, 1000.0, hz)
	require.Equal(t, []string{"SENS:FREQ:VOLT:RANGE 0.1", "MEASURE:FREQUENCY? AUTO,DEF"}, sent(f))
}

func TestErrorsAndBeep(t *testing.T) {
	m, f := newMeter(map[string]string{"SYST:ERR?": `+0,"No error"`})

	require.NoError(t, m.Beep(context.Background()))
	errs, err := m.Errors(context.Background())
	require.NoError(t, err)
	require.Empty(t, errs)
	require.Equal(t, []string{"SYST:BEEP", "SYST:ERR?"}, sent(f))
}

func TestDMM4050(t *testing.T) {
	ctx := context.Background()
	f := &asciiFake{}

	d, err := NewDMM4050(ctx, scpi.ASCII(f), f)
	require.NoError(t, err)

	require.NoError(t, d.DisplayText(ctx, "5.00V"))
	require.NoError(t, d.ClearText(ctx))
	require.NoError(t, d.Local(ctx))
	require.NoError(t, d.Close())

	require.Equal(t, []string{"SYST:REM", `DISP:TEXT "5.00V"`, "DISP:TEXT:CLE", "SYST:LOC"}, sent(f))
	require.True(t, f.Closed())
}

func TestDMM4050_RemoteFailure(t *testing.T) {
	f := &asciiFake{CommandErr: errors.New("broken pipe")}

	_, err := NewDMM4050(context.Background(), scpi.ASCII(f), f)
	require.Error(t, err)
}
