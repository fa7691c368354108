package cip

import (
	"encoding/binary"
	"errors"
	"fmt"
	"slices"
)

// ErrMalformed is returned when a message router response cannot be parsed.
var ErrMalformed = errors.New("cip: malformed response")

// Service is a CIP service code.
type Service byte

const (
	GetAttributesAll   Service = 0x01
	GetAttributeSingle Service = 0x0E
	SetAttributeSingle Service = 0x10
)

func (s Service) String() string {
	switch s {
	case GetAttributesAll:
		return "get_attributes_all"
	case GetAttributeSingle:
		return "get_attribute_single"
	case SetAttributeSingle:
		return "set_attribute_single"
	default:
		return fmt.Sprintf("service_0x%02X", byte(s))
	}
}

// GenericMessage is an explicit request addressed by class, instance and
// attribute. It is the wire form of a Request.
type GenericMessage struct {
	Service   Service
	Class     uint16
	Instance  uint32
	Attribute uint16
	// Data is the encoded request payload.
	Data []byte
	// Type decodes the response payload. When nil the raw bytes are returned.
	Type *DataType
}

// Path builds the class/instance/attribute request path.
func (m GenericMessage) Path() (EPath, error) {
	return NewPath().Class(m.Class).Instance(m.Instance).Attribute(m.Attribute).Build()
}

// Marshal encodes the message router request: service, path size in words,
// path and data.
func (m GenericMessage) Marshal() ([]byte, error) {
	path, err := m.Path()
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, 2+len(path)+len(m.Data))
	out = append(out, byte(m.Service), path.WordLen())
	out = append(out, path...)
	out = append(out, m.Data...)

	return out, nil
}

func (m GenericMessage) String() string {
	return fmt.Sprintf("%s class=%d instance=%d attribute=%d", m.Service, m.Class, m.Instance, m.Attribute)
}

// RouterResponse is a parsed message router response.
type RouterResponse struct {
	ReplyService     byte
	GeneralStatus    byte
	AdditionalStatus []uint16
	Data             []byte
}

// ParseRouterResponse parses a message router response.
func ParseRouterResponse(raw []byte) (*RouterResponse, error) {
	if len(raw) < 4 {
		return nil, fmt.Errorf("%w: need at least 4 bytes, got %d", ErrMalformed, len(raw))
	}

	n := int(raw[3])
	if len(raw) < 4+2*n {
		return nil, fmt.Errorf("%w: %d additional status words truncated", ErrMalformed, n)
	}

	resp := &RouterResponse{
		ReplyService:  raw[0],
		GeneralStatus: raw[2],
		Data:          slices.Clone(raw[4+2*n:]),
	}
	for i := range n {
		resp.AdditionalStatus = append(resp.AdditionalStatus, binary.LittleEndian.Uint16(raw[4+2*i:]))
	}

	return resp, nil
}

// Tag converts the response to a Tag, decoding the payload with dt when it
// is not nil.
func (r *RouterResponse) Tag(dt *DataType) Tag {
	if r.GeneralStatus != StatusSuccess {
		msg := StatusText(r.GeneralStatus)
		if len(r.AdditionalStatus) > 0 {
			msg = fmt.Sprintf("%s (additional status % 04X)", msg, r.AdditionalStatus)
		}

		return Tag{Type: dt, Error: msg}
	}

	if dt == nil {
		return Tag{Value: r.Data}
	}

	v, err := dt.Decode(r.Data)
	if err != nil {
		return Tag{Type: dt, Error: err.Error()}
	}

	return Tag{Value: v, Type: dt}
}
