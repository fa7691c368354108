package cip

import (
	"encoding/binary"
	"fmt"
)

type logicalType byte
type logicalFormat byte

const (
	logicalSegment byte = 0b001

	logicalClassID     logicalType = 0b000
	logicalInstanceID  logicalType = 0b001
	logicalAttributeID logicalType = 0b100

	logicalFormat8bit  logicalFormat = 0b00
	logicalFormat16bit logicalFormat = 0b01
	logicalFormat32bit logicalFormat = 0b10
)

// EPath is an encoded, word-aligned CIP request path.
type EPath []byte

// WordLen returns the path length in 16-bit words.
func (p EPath) WordLen() byte {
	return byte(len(p) / 2)
}

// PathBuilder builds padded logical EPaths with a fluent interface. Each
// segment picks the narrowest logical format that holds its value.
//
//	path, err := cip.NewPath().Class(0x04).Instance(100).Attribute(3).Build()
type PathBuilder struct {
	err   error
	epath EPath
}

// NewPath starts a new padded path.
func NewPath() *PathBuilder {
	return &PathBuilder{}
}

// Class appends a class ID segment.
func (b *PathBuilder) Class(id uint16) *PathBuilder {
	return b.logical(logicalClassID, uint32(id))
}

// Instance appends an instance ID segment.
func (b *PathBuilder) Instance(id uint32) *PathBuilder {
	return b.logical(logicalInstanceID, id)
}

// Attribute appends an attribute ID segment.
func (b *PathBuilder) Attribute(id uint16) *PathBuilder {
	return b.logical(logicalAttributeID, uint32(id))
}

// Build returns a copy of the path, so the builder can keep growing.
func (b *PathBuilder) Build() (EPath, error) {
	if b.err != nil {
		return nil, b.err
	}

	out := append(EPath{}, b.epath...)
	if len(out)%2 != 0 {
		out = append(out, 0x00)
	}

	return out, nil
}

func (b *PathBuilder) logical(t logicalType, id uint32) *PathBuilder {
	if b.err != nil {
		return b
	}

	var (
		format logicalFormat
		value  []byte
	)
	switch {
	case id <= 0xFF:
		format, value = logicalFormat8bit, []byte{byte(id)}
	case id <= 0xFFFF:
		format, value = logicalFormat16bit, binary.LittleEndian.AppendUint16(nil, uint16(id))
	default:
		if t != logicalInstanceID {
			b.err = fmt.Errorf("cip: logical segment type %d does not support 32-bit id %d", t, id)
			return b
		}
		format, value = logicalFormat32bit, binary.LittleEndian.AppendUint32(nil, id)
	}

	seg := logicalSegment<<5 | byte(t)<<2 | byte(format)
	b.epath = append(b.epath, seg)

	// 16 and 32-bit values carry a pad byte so the value is word aligned
	if format != logicalFormat8bit {
		b.epath = append(b.epath, 0x00)
	}
	b.epath = append(b.epath, value...)

	return b
}
