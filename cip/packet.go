package cip

import (
	"fmt"
	"slices"

	"github.com/electric-propulsion/go-epcomms/packet"
)

// Tag is the result of a generic message: the decoded value, its type and
// an error description when the request failed.
type Tag struct {
	Value any
	Type  *DataType
	Error string
}

// OK reports whether the tag carries a value and no error. A tag that is not
// OK is an empty response.
func (t Tag) OK() bool {
	return t.Value != nil && t.Error == ""
}

func (t Tag) String() string {
	if t.Error != "" {
		return "error: " + t.Error
	}
	if t.Type != nil {
		return fmt.Sprintf("%v (%s)", t.Value, t.Type)
	}

	return fmt.Sprintf("%v", t.Value)
}

// Request is a transmit packet addressing one attribute of a CIP object. The
// service is chosen by the transmission: set for commands, get for polls.
type Request struct {
	class     uint16
	instance  uint32
	attribute uint16
	data      []byte
	dataType  *DataType
}

var _ packet.Transmittable[GenericMessage] = Request{}

// NewRequest addresses class/instance/attribute with no payload.
func NewRequest(class uint16, instance uint32, attribute uint16) Request {
	return Request{class: class, instance: instance, attribute: attribute}
}

// NewValueRequest addresses class/instance/attribute with v encoded as dt.
// The response of a poll is decoded as dt too.
func NewValueRequest(class uint16, instance uint32, attribute uint16, v any, dt *DataType) (Request, error) {
	data, err := dt.Encode(v)
	if err != nil {
		return Request{}, err
	}

	return Request{class: class, instance: instance, attribute: attribute, data: data, dataType: dt}, nil
}

// WithData returns a copy carrying a raw payload.
func (r Request) WithData(data []byte) Request {
	r.data = slices.Clone(data)
	return r
}

// WithType returns a copy whose responses are decoded as dt.
func (r Request) WithType(dt *DataType) Request {
	r.dataType = dt
	return r
}

func (r Request) Class() uint16 { return r.class }

func (r Request) Instance() uint32 { return r.instance }

func (r Request) Attribute() uint16 { return r.attribute }

func (r Request) Data() []byte { return slices.Clone(r.data) }

func (r Request) DataType() *DataType { return r.dataType }

// Serialize returns the generic message with no service set.
func (r Request) Serialize() (GenericMessage, error) {
	return GenericMessage{
		Class:     r.class,
		Instance:  r.instance,
		Attribute: r.attribute,
		Data:      slices.Clone(r.data),
		Type:      r.dataType,
	}, nil
}

func (r Request) String() string {
	return fmt.Sprintf("class=%d instance=%d attribute=%d", r.class, r.instance, r.attribute)
}

// Response is a receive packet wrapping the tag returned by a driver.
type Response struct {
	tag Tag
}

var _ packet.Receivable[any] = Response{}

// DecodeResponse wraps a tag. It does not fail.
func DecodeResponse(tag Tag) (Response, error) {
	return Response{tag: tag}, nil
}

// Deserialize returns the tag value.
func (r Response) Deserialize() any {
	return r.tag.Value
}

// Type returns the value's data type, nil for raw bytes.
func (r Response) Type() *DataType {
	return r.tag.Type
}

// ErrorText returns the error description carried by the tag.
func (r Response) ErrorText() string {
	return r.tag.Error
}

// Bytes returns the value when it is a raw payload.
func (r Response) Bytes() ([]byte, bool) {
	b, ok := r.tag.Value.([]byte)
	return b, ok
}

// Tag returns the wrapped tag.
func (r Response) Tag() Tag {
	return r.tag
}
