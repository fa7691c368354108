package packet

import "slices"

// Bytes is a raw byte packet.
//
// The payload is copied on construction and on access so a Bytes value
// is immutable.
type Bytes struct {
	data []byte
}

var (
	_ Transmittable[[]byte] = Bytes{}
	_ Receivable[[]byte]    = Bytes{}
)

func NewBytes(data []byte) Bytes {
	return Bytes{data: slices.Clone(data)}
}

// DecodeBytes creates a Bytes packet from wire bytes. It never fails.
func DecodeBytes(wire []byte) (Bytes, error) {
	return Bytes{data: slices.Clone(wire)}, nil
}

func (p Bytes) Serialize() ([]byte, error) {
	return slices.Clone(p.data), nil
}

func (p Bytes) Deserialize() []byte {
	return slices.Clone(p.data)
}

// Ints returns the payload as a slice of integers, one per byte.
func (p Bytes) Ints() []int {
	out := make([]int, len(p.data))
	for i, b := range p.data {
		out[i] = int(b)
	}

	return out
}

// Len returns the payload length in bytes.
func (p Bytes) Len() int {
	return len(p.data)
}
