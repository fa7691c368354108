package cip

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDataType_Encode(t *testing.T) {
	tests := []struct {
		dt    *DataType
		value any
		want  []byte
	}{
		{Bool, true, []byte{0xFF}},
		{Bool, 0, []byte{0x00}},
		{SInt, -1, []byte{0xFF}},
		{Int, -2, []byte{0xFE, 0xFF}},
		{DInt, 0x01020304, []byte{0x04, 0x03, 0x02, 0x01}},
		{LInt, int64(-1), []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}},
		{USInt, 200, []byte{0xC8}},
		{UInt, 0xBEEF, []byte{0xEF, 0xBE}},
		{UDInt, uint32(1), []byte{0x01, 0x00, 0x00, 0x00}},
		{Word, 2.0, []byte{0x02, 0x00}},
		{Real, 1.0, []byte{0x00, 0x00, 0x80, 0x3F}},
		{LReal, float32(-2), []byte{0, 0, 0, 0, 0, 0, 0x00, 0xC0}},
		{String, "hi", []byte{0x02, 0x00, 'h', 'i'}},
		{ShortString, []byte("abc"), []byte{0x03, 'a', 'b', 'c'}},
	}

	for _, tt := range tests {
		t.Run(tt.dt.Name(), func(t *testing.T) {
			got, err := tt.dt.Encode(tt.value)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestDataType_EncodeErrors(t *testing.T) {
	tests := []struct {
		dt    *DataType
		value any
	}{
		{SInt, 128},
		{Int, -32769},
		{USInt, -1},
		{UInt, 70000},
		{DInt, 1.5},
		{ULInt, "7"},
		{Real, math.MaxFloat64},
		{ShortString, string(make([]byte, 256))},
		{String, 42},
	}

	for _, tt := range tests {
		_, err := tt.dt.Encode(tt.value)
		require.ErrorIs(t, err, ErrDataType, "%s %v", tt.dt, tt.value)
	}
}

func TestDataType_Decode(t *testing.T) {
	require := require.New(t)

	v, err := Real.Decode([]byte{0x00, 0x00, 0x48, 0x41, 0xAA})
	require.NoError(err)
	require.Equal(float32(12.5), v)

	v, err = Int.Decode([]byte{0xFE, 0xFF})
	require.NoError(err)
	require.Equal(int16(-2), v)

	v, err = UDInt.Decode([]byte{0x01, 0x00, 0x00, 0x80})
	require.NoError(err)
	require.Equal(uint32(0x80000001), v)

	v, n, err := ShortString.DecodePrefix([]byte{0x05, 'A', 'l', 'i', 'c', 'a', 't', 'x'})
	require.NoError(err)
	require.Equal("Alica", v)
	require.Equal(6, n)

	_, err = DInt.Decode([]byte{0x01, 0x02})
	require.ErrorIs(err, ErrDataType)

	_, err = String.Decode([]byte{0x09, 0x00, 'x'})
	require.ErrorIs(err, ErrDataType)
}

func TestDataTypeLookup(t *testing.T) {
	dt, ok := DataTypeByName("real")
	require.True(t, ok)
	require.Same(t, Real, dt)

	dt, ok = DataTypeByCode(0xDA)
	require.True(t, ok)
	require.Same(t, ShortString, dt)

	_, ok = DataTypeByName("DOUBLE")
	require.False(t, ok)
}

func TestPathBuilder(t *testing.T) {
	tests := []struct {
		name string
		b    *PathBuilder
		want EPath
	}{
		{"8-bit", NewPath().Class(0x04).Instance(100).Attribute(3), EPath{0x20, 0x04, 0x24, 0x64, 0x30, 0x03}},
		{"16-bit instance", NewPath().Class(0x04).Instance(0x1234), EPath{0x20, 0x04, 0x25, 0x00, 0x34, 0x12}},
		{"32-bit instance", NewPath().Instance(0x00012345), EPath{0x26, 0x00, 0x45, 0x23, 0x01, 0x00}},
		{"16-bit class", NewPath().Class(0x0300), EPath{0x21, 0x00, 0x00, 0x03}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, err := tt.b.Build()
			require.NoError(t, err)
			require.Equal(t, tt.want, path)
			require.Equal(t, byte(len(tt.want)/2), path.WordLen())
		})
	}
}

func TestGenericMessage_Marshal(t *testing.T) {
	msg := GenericMessage{Service: SetAttributeSingle, Class: 4, Instance: 100, Attribute: 3, Data: []byte{0x00, 0x00, 0x48, 0x41}}

	raw, err := msg.Marshal()
	require.NoError(t, err)
	require.Equal(t, []byte{0x10, 0x03, 0x20, 0x04, 0x24, 0x64, 0x30, 0x03, 0x00, 0x00, 0x48, 0x41}, raw)
	require.Equal(t, "set_attribute_single class=4 instance=100 attribute=3", msg.String())
}

func TestParseRouterResponse(t *testing.T) {
	require := require.New(t)

	resp, err := ParseRouterResponse([]byte{0x8E, 0x00, 0x00, 0x00, 0x00, 0x00, 0x48, 0x41})
	require.NoError(err)
	require.Equal(byte(0x8E), resp.ReplyService)

	tag := resp.Tag(Real)
	require.True(tag.OK())
	require.Equal(float32(12.5), tag.Value)

	raw := resp.Tag(nil)
	require.True(raw.OK())
	require.Equal([]byte{0x00, 0x00, 0x48, 0x41}, raw.Value)

	resp, err = ParseRouterResponse([]byte{0x90, 0x00, 0x0E, 0x01, 0x05, 0x00})
	require.NoError(err)
	require.Equal([]uint16{5}, resp.AdditionalStatus)

	failed := resp.Tag(Real)
	require.False(failed.OK())
	require.Contains(failed.Error, "attribute not settable")

	_, err = ParseRouterResponse([]byte{0x8E, 0x00, 0x00, 0x02, 0x01})
	require.ErrorIs(err, ErrMalformed)
}

func TestRouterResponse_TagDecodeFailure(t *testing.T) {
	resp := &RouterResponse{ReplyService: 0x8E, Data: []byte{0x01}}
	tag := resp.Tag(Real)
	require.False(t, tag.OK())
	require.NotEmpty(t, tag.Error)
}

func TestTag_OK(t *testing.T) {
	require.False(t, Tag{}.OK())
	require.False(t, Tag{Value: float32(1), Error: "timeout"}.OK())
	require.True(t, Tag{Value: []byte{}}.OK())
	require.True(t, Tag{Value: false}.OK())
}

func TestRequest(t *testing.T) {
	require := require.New(t)

	req, err := NewValueRequest(4, 100, 3, 12.5, Real)
	require.NoError(err)

	msg, err := req.Serialize()
	require.NoError(err)
	require.Equal(GenericMessage{Class: 4, Instance: 100, Attribute: 3, Data: []byte{0x00, 0x00, 0x48, 0x41}, Type: Real}, msg)

	_, err = NewValueRequest(4, 100, 3, "x", Real)
	require.ErrorIs(err, ErrDataType)

	raw := NewRequest(4, 101, 3).WithData([]byte{1, 2})
	msg, err = raw.Serialize()
	require.NoError(err)
	require.Equal([]byte{1, 2}, msg.Data)
	require.Nil(msg.Type)
}

func TestResponse(t *testing.T) {
	resp, err := DecodeResponse(Tag{Value: []byte{1, 2}})
	require.NoError(t, err)

	b, ok := resp.Bytes()
	require.True(t, ok)
	require.Equal(t, []byte{1, 2}, b)
	require.Empty(t, resp.ErrorText())
	require.Nil(t, resp.Type())
}
