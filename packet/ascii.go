package packet

import "fmt"

const maxASCII = 0x7F

// ASCII is a text packet sent and received as 7-bit ASCII bytes.
type ASCII struct {
	data string
}

var (
	_ Transmittable[[]byte] = ASCII{}
	_ Receivable[string]    = ASCII{}
)

// NewASCII creates a transmit-ready ASCII packet. Validation of the code points
// is deferred to Serialize.
func NewASCII(data string) ASCII {
	return ASCII{data: data}
}

// DecodeASCII creates an ASCII packet from wire bytes.
//
// It returns an error wrapping ErrEncoding if any byte is outside the ASCII range.
func DecodeASCII(wire []byte) (ASCII, error) {
	for i, b := range wire {
		if b > maxASCII {
			return ASCII{}, fmt.Errorf("%w: byte 0x%02X at position %d is not ASCII", ErrEncoding, b, i)
		}
	}

	return ASCII{data: string(wire)}, nil
}

// Serialize encodes the text as ASCII bytes.
//
// It returns an error wrapping ErrEncoding if the text contains a code point
// outside the ASCII range.
func (p ASCII) Serialize() ([]byte, error) {
	out := make([]byte, 0, len(p.data))
	for i, r := range p.data {
		if r > maxASCII {
			return nil, fmt.Errorf("%w: code point %U at position %d is not ASCII", ErrEncoding, r, i)
		}
		out = append(out, byte(r))
	}

	return out, nil
}

// Deserialize returns the carried text.
func (p ASCII) Deserialize() string {
	return p.data
}

// String implements fmt.Stringer.
func (p ASCII) String() string {
	return p.data
}
