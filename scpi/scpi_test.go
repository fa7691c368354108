package scpi

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/electric-propulsion/go-epcomms/packet"
)

func TestBuild(t *testing.T) {
	tests := []struct {
		got  string
		want string
	}{
		{Command("OUTP", nil), "OUTP"},
		{Command("VOLT", Args("5.000")), "VOLT 5.000"},
		{Command("APPL", Args("CH1", "", "5.0", "0.1")), "APPL CH1,5.0,0.1"},
		{Command("OUTP", Args("ON"), 1, 2), "OUTP ON, (@1,2)"},
		{Command("OUTP", nil, 3), "OUTP (@3)"},
		{Command("OUTP", nil, 0), "OUTP"},
		{Query("MEAS:VOLT", nil, 1), "MEAS:VOLT? (@1)"},
		{Query("MEAS:VOLT:DC", Args("AUTO", "DEF")), "MEAS:VOLT:DC? AUTO,DEF"},
		{Query("*IDN", nil), "*IDN?"},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, tt.got)
	}
}

func TestParseResponse(t *testing.T) {
	vals, err := ParseFloats("+1.0E+00,-2.5,3\n")
	require.NoError(t, err)
	require.Equal(t, []float64{1, -2.5, 3}, vals)

	one, err := ParseResponse("42\n", strconv.Atoi)
	require.NoError(t, err)
	require.Equal(t, []int{42}, one)

	_, err = ParseFloats("1.0,abc")
	require.Error(t, err)

	v, err := ParseFloat(" +9.9E+37\r\n")
	require.NoError(t, err)
	require.Equal(t, 9.9e37, v)

	b, err := ParseBool("ON")
	require.NoError(t, err)
	require.True(t, b)
	_, err = ParseBool("maybe")
	require.Error(t, err)
}

func TestRange(t *testing.T) {
	require.Equal(t, Range("1.00e+01"), Numeric(10))
	require.Equal(t, Range("1.00e-01"), Numeric(0.1))

	for _, r := range []Range{Auto, "auto", Max, Numeric(3), "0.5"} {
		require.NoError(t, r.Validate(), r)
	}
	require.Error(t, Range("LOW").Validate())

	require.NoError(t, Resolution("max").Validate())
	require.Error(t, Resolution("AUTO").Validate())
}

// scriptedTransceiver answers polls from a queue and records every packet.
type scriptedTransceiver struct {
	sent    []string
	replies []string
	err     error
}

func (s *scriptedTransceiver) Command(_ context.Context, p packet.String) error {
	s.sent = append(s.sent, p.Deserialize())
	return s.err
}

func (s *scriptedTransceiver) Read(context.Context) (packet.String, error) {
	return packet.String{}, errors.New("unexpected read")
}

func (s *scriptedTransceiver) Poll(_ context.Context, p packet.String) (packet.String, error) {
	s.sent = append(s.sent, p.Deserialize())
	if s.err != nil {
		return packet.String{}, s.err
	}
	if len(s.replies) == 0 {
		return packet.NewString(`+0,"No error"`), nil
	}
	r := s.replies[0]
	s.replies = s.replies[1:]

	return packet.NewString(r), nil
}

func (s *scriptedTransceiver) Close() error { return nil }

func TestSession(t *testing.T) {
	tr := &scriptedTransceiver{replies: []string{"+1.2345E+00\n"}}
	s := String(tr)

	require.NoError(t, s.Write(context.Background(), "SYST:BEEP"))
	v, err := QueryFloat(context.Background(), s, "MEAS:VOLT:DC?")
	require.NoError(t, err)
	require.Equal(t, 1.2345, v)
	require.Equal(t, []string{"SYST:BEEP", "MEAS:VOLT:DC?"}, tr.sent)
}

func TestErrors(t *testing.T) {
	tr := &scriptedTransceiver{replies: []string{`-113,"Undefined header"`, `-222,"Data out of range"`, `+0,"No error"`}}

	errs, err := Errors(context.Background(), String(tr))
	require.NoError(t, err)
	require.Equal(t, []string{`-113,"Undefined header"`, `-222,"Data out of range"`}, errs)
	require.Len(t, tr.sent, 3)
}

func TestErrors_StopsAtLimit(t *testing.T) {
	replies := make([]string, 30)
	for i := range replies {
		replies[i] = `-350,"Queue overflow"`
	}
	tr := &scriptedTransceiver{replies: replies}

	errs, err := Errors(context.Background(), String(tr))
	require.NoError(t, err)
	require.Len(t, errs, MaxErrorQueue)
	require.Len(t, tr.sent, MaxErrorQueue)
}

func TestErrors_TransportFailure(t *testing.T) {
	ioErr := errors.New("timeout")
	_, err := Errors(context.Background(), String(&scriptedTransceiver{err: ioErr}))
	require.ErrorIs(t, err, ioErr)
}
