package cip

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrDataType is returned when a value cannot be encoded as, or bytes cannot
// be decoded from, a CIP data type.
var ErrDataType = errors.New("cip: data type error")

// DataType is a CIP elementary data type codec. All encodings are
// little-endian.
type DataType struct {
	name string
	code byte
	// size is the encoded width in bytes, zero for variable-length types
	size int
	enc  func(v any) ([]byte, error)
	dec  func(b []byte) (any, int, error)
}

// Elementary data types. Decoded values use these Go types:
//
//	Bool                      bool
//	SInt, Int, DInt, LInt     int8, int16, int32, int64
//	USInt, UInt, UDInt, ULInt uint8, uint16, uint32, uint64
//	Byte, Word, DWord, LWord  uint8, uint16, uint32, uint64
//	Real, LReal               float32, float64
//	String, ShortString       string
var (
	Bool  = &DataType{name: "BOOL", code: 0xC1, size: 1, enc: encodeBool, dec: decodeBool}
	SInt  = signed("SINT", 0xC2, 1)
	Int   = signed("INT", 0xC3, 2)
	DInt  = signed("DINT", 0xC4, 4)
	LInt  = signed("LINT", 0xC5, 8)
	USInt = unsigned("USINT", 0xC6, 1)
	UInt  = unsigned("UINT", 0xC7, 2)
	UDInt = unsigned("UDINT", 0xC8, 4)
	ULInt = unsigned("ULINT", 0xC9, 8)
	Real  = &DataType{name: "REAL", code: 0xCA, size: 4, enc: encodeReal, dec: decodeReal}
	LReal = &DataType{name: "LREAL", code: 0xCB, size: 8, enc: encodeLReal, dec: decodeLReal}
	Byte  = unsigned("BYTE", 0xD1, 1)
	Word  = unsigned("WORD", 0xD2, 2)
	DWord = unsigned("DWORD", 0xD3, 4)
	LWord = unsigned("LWORD", 0xD4, 8)

	// String has a UINT length prefix.
	String = &DataType{name: "STRING", code: 0xD0, enc: encodeString(2), dec: decodeString(2)}
	// ShortString has a USINT length prefix.
	ShortString = &DataType{name: "SHORT_STRING", code: 0xDA, enc: encodeString(1), dec: decodeString(1)}
)

var dataTypes = []*DataType{
	Bool, SInt, Int, DInt, LInt, USInt, UInt, UDInt, ULInt,
	Real, LReal, Byte, Word, DWord, LWord, String, ShortString,
}

// DataTypeByName returns the data type with the given CIP name, such as
// "REAL" or "SHORT_STRING". The lookup is case-insensitive.
func DataTypeByName(name string) (*DataType, bool) {
	for _, dt := range dataTypes {
		if strings.EqualFold(dt.name, name) {
			return dt, true
		}
	}

	return nil, false
}

// DataTypeByCode returns the data type with the given CIP type code.
func DataTypeByCode(code byte) (*DataType, bool) {
	for _, dt := range dataTypes {
		if dt.code == code {
			return dt, true
		}
	}

	return nil, false
}

// Name returns the CIP name of the type.
func (dt *DataType) Name() string { return dt.name }

// Code returns the CIP type code.
func (dt *DataType) Code() byte { return dt.code }

// Size returns the encoded width in bytes, or zero for variable-length types.
func (dt *DataType) Size() int { return dt.size }

func (dt *DataType) String() string { return dt.name }

// Encode encodes v. Numeric types accept any Go integer or float whose value
// fits the type; Bool accepts bool or a number; strings accept string or
// []byte.
func (dt *DataType) Encode(v any) ([]byte, error) {
	b, err := dt.enc(v)
	if err != nil {
		return nil, fmt.Errorf("%w: encode %v as %s: %w", ErrDataType, v, dt.name, err)
	}

	return b, nil
}

// Decode decodes a value from the start of b. Trailing bytes are ignored.
func (dt *DataType) Decode(b []byte) (any, error) {
	v, _, err := dt.DecodePrefix(b)
	return v, err
}

// DecodePrefix decodes a value from the start of b and returns the number of
// bytes consumed.
func (dt *DataType) DecodePrefix(b []byte) (any, int, error) {
	if dt.size > 0 && len(b) < dt.size {
		return nil, 0, fmt.Errorf("%w: decode %s: need %d bytes, got %d", ErrDataType, dt.name, dt.size, len(b))
	}

	v, n, err := dt.dec(b)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: decode %s: %w", ErrDataType, dt.name, err)
	}

	return v, n, nil
}

func encodeBool(v any) ([]byte, error) {
	if b, ok := v.(bool); ok {
		if b {
			return []byte{0xFF}, nil
		}

		return []byte{0x00}, nil
	}

	n, err := toFloat64(v)
	if err != nil {
		return nil, err
	}
	if n != 0 {
		return []byte{0xFF}, nil
	}

	return []byte{0x00}, nil
}

func decodeBool(b []byte) (any, int, error) {
	return b[0] != 0, 1, nil
}

func signed(name string, code byte, size int) *DataType {
	bits := size * 8
	minV := int64(-1) << (bits - 1)
	maxV := int64(^uint64(0) >> (65 - bits))

	return &DataType{
		name: name,
		code: code,
		size: size,
		enc: func(v any) ([]byte, error) {
			n, err := toInt64(v)
			if err != nil {
				return nil, err
			}
			if n < minV || n > maxV {
				return nil, fmt.Errorf("%d out of range [%d, %d]", n, minV, maxV)
			}

			return binary.LittleEndian.AppendUint64(nil, uint64(n))[:size], nil
		},
		dec: func(b []byte) (any, int, error) {
			switch size {
			case 1:
				return int8(b[0]), 1, nil
			case 2:
				return int16(binary.LittleEndian.Uint16(b)), 2, nil
			case 4:
				return int32(binary.LittleEndian.Uint32(b)), 4, nil
			default:
				return int64(binary.LittleEndian.Uint64(b)), 8, nil
			}
		},
	}
}

func unsigned(name string, code byte, size int) *DataType {
	maxV := ^uint64(0) >> (64 - size*8)

	return &DataType{
		name: name,
		code: code,
		size: size,
		enc: func(v any) ([]byte, error) {
			n, err := toUint64(v)
			if err != nil {
				return nil, err
			}
			if n > maxV {
				return nil, fmt.Errorf("%d out of range [0, %d]", n, maxV)
			}

			return binary.LittleEndian.AppendUint64(nil, n)[:size], nil
		},
		dec: func(b []byte) (any, int, error) {
			switch size {
			case 1:
				return b[0], 1, nil
			case 2:
				return binary.LittleEndian.Uint16(b), 2, nil
			case 4:
				return binary.LittleEndian.Uint32(b), 4, nil
			default:
				return binary.LittleEndian.Uint64(b), 8, nil
			}
		},
	}
}

func encodeReal(v any) ([]byte, error) {
	f, err := toFloat64(v)
	if err != nil {
		return nil, err
	}
	if !math.IsInf(f, 0) && !math.IsNaN(f) && math.Abs(f) > math.MaxFloat32 {
		return nil, fmt.Errorf("%g overflows REAL", f)
	}

	return binary.LittleEndian.AppendUint32(nil, math.Float32bits(float32(f))), nil
}

func decodeReal(b []byte) (any, int, error) {
	return math.Float32frombits(binary.LittleEndian.Uint32(b)), 4, nil
}

func encodeLReal(v any) ([]byte, error) {
	f, err := toFloat64(v)
	if err != nil {
		return nil, err
	}

	return binary.LittleEndian.AppendUint64(nil, math.Float64bits(f)), nil
}

func decodeLReal(b []byte) (any, int, error) {
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), 8, nil
}

func encodeString(prefix int) func(any) ([]byte, error) {
	maxLen := 1<<(8*prefix) - 1

	return func(v any) ([]byte, error) {
		var s []byte
		switch t := v.(type) {
		case string:
			s = []byte(t)
		case []byte:
			s = t
		default:
			return nil, fmt.Errorf("unsupported value type %T", v)
		}
		if len(s) > maxLen {
			return nil, fmt.Errorf("length %d exceeds %d", len(s), maxLen)
		}

		var out []byte
		if prefix == 1 {
			out = []byte{byte(len(s))}
		} else {
			out = binary.LittleEndian.AppendUint16(nil, uint16(len(s)))
		}

		return append(out, s...), nil
	}
}

func decodeString(prefix int) func([]byte) (any, int, error) {
	return func(b []byte) (any, int, error) {
		if len(b) < prefix {
			return nil, 0, fmt.Errorf("need %d byte length prefix, got %d bytes", prefix, len(b))
		}

		var n int
		if prefix == 1 {
			n = int(b[0])
		} else {
			n = int(binary.LittleEndian.Uint16(b))
		}
		if len(b) < prefix+n {
			return nil, 0, fmt.Errorf("need %d string bytes, got %d", n, len(b)-prefix)
		}

		return string(b[prefix : prefix+n]), prefix + n, nil
	}
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint, uint64:
		u, _ := toUint64(n)
		if u > math.MaxInt64 {
			return 0, fmt.Errorf("%d overflows int64", u)
		}

		return int64(u), nil
	case float32:
		return integral(float64(n))
	case float64:
		return integral(n)
	case bool:
		if n {
			return 1, nil
		}

		return 0, nil
	default:
		return 0, fmt.Errorf("unsupported value type %T", v)
	}
}

func toUint64(v any) (uint64, error) {
	switch n := v.(type) {
	case uint:
		return uint64(n), nil
	case uint64:
		return n, nil
	default:
		i, err := toInt64(v)
		if err != nil {
			return 0, err
		}
		if i < 0 {
			return 0, fmt.Errorf("%d is negative", i)
		}

		return uint64(i), nil
	}
}

func toFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	case uint:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	default:
		i, err := toInt64(v)
		if err != nil {
			return 0, err
		}

		return float64(i), nil
	}
}

func integral(f float64) (int64, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("%g is not an integer", f)
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("%g overflows int64", f)
	}

	return int64(f), nil
}
