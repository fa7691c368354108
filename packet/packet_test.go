package packet

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var textSamples = []string{
	"EXAMPLE:TEST:STRING 0,(@0)",
	"",
	"a",
	"SOUR:MEAS:VOLT (@3)",
	"\r\n\t~",
}

func TestASCII_RoundTrip(t *testing.T) {
	for _, s := range textSamples {
		wire, err := NewASCII(s).Serialize()
		require.NoError(t, err)

		p, err := DecodeASCII(wire)
		require.NoError(t, err)
		assert.Equal(t, s, p.Deserialize())
	}
}

func TestASCII_SerializeRejectsNonASCII(t *testing.T) {
	_, err := NewASCII("5 µA").Serialize()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEncoding))

	// The same text goes through String without an encoding step.
	wire, err := NewString("5 µA").Serialize()
	require.NoError(t, err)
	p, err := DecodeString(wire)
	require.NoError(t, err)
	assert.Equal(t, "5 µA", p.Deserialize())
}

func TestDecodeASCII_RejectsHighBytes(t *testing.T) {
	_, err := DecodeASCII([]byte{'o', 'k', 0xB5})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEncoding))
	assert.Contains(t, err.Error(), "0xB5")
}

func TestBytes_RoundTrip(t *testing.T) {
	samples := [][]byte{
		{},
		{0x00},
		{0x07, 0x05, 0x00, 0xFF, 0x80},
	}
	for _, b := range samples {
		wire, err := NewBytes(b).Serialize()
		require.NoError(t, err)

		p, err := DecodeBytes(wire)
		require.NoError(t, err)
		assert.Equal(t, b, p.Deserialize())
	}
}

func TestBytes_Immutable(t *testing.T) {
	src := []byte{1, 2, 3}
	p := NewBytes(src)
	src[0] = 9

	out := p.Deserialize()
	assert.Equal(t, []byte{1, 2, 3}, out)

	out[1] = 9
	assert.Equal(t, []byte{1, 2, 3}, p.Deserialize())
}

func TestBytes_Ints(t *testing.T) {
	p := NewBytes([]byte{7, 5, 255})
	assert.Equal(t, []int{7, 5, 255}, p.Ints())
	assert.Equal(t, 3, p.Len())
}

func TestString_RoundTrip(t *testing.T) {
	for _, s := range append(textSamples, "Ω→λ") {
		wire, err := NewString(s).Serialize()
		require.NoError(t, err)

		p, err := DecodeString(wire)
		require.NoError(t, err)
		assert.Equal(t, s, p.Deserialize())
	}
}

type statusMsg struct {
	Value  int  `json:"value"`
	Enable bool `json:"enable"`
}

func TestJSON_RoundTrip(t *testing.T) {
	in := statusMsg{Value: 128, Enable: true}

	wire, err := NewJSON(in).Serialize()
	require.NoError(t, err)
	assert.JSONEq(t, `{"value":128,"enable":true}`, wire)

	p, err := DecodeJSON[statusMsg](wire)
	require.NoError(t, err)
	assert.Equal(t, in, p.Deserialize())
}

func TestDecodeJSON_Malformed(t *testing.T) {
	_, err := DecodeJSON[statusMsg]("{value:")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEncoding))
}

func TestJSON_ToString(t *testing.T) {
	s, err := NewJSON(map[string]string{"command": "getStatus"}).ToString()
	require.NoError(t, err)
	assert.Equal(t, `{"command":"getStatus"}`, s.Deserialize())
}
