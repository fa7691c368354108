package packet

import (
	"encoding/json"
	"fmt"
)

// JSON is a packet carrying a typed value encoded as a JSON text document.
// It replaces ad hoc maps for JSON devices: T is an explicit request or
// response struct.
type JSON[T any] struct {
	value T
}

func NewJSON[T any](value T) JSON[T] {
	return JSON[T]{value: value}
}

// DecodeJSON parses wire text into a JSON[T] packet.
func DecodeJSON[T any](wire string) (JSON[T], error) {
	var v T
	if err := json.Unmarshal([]byte(wire), &v); err != nil {
		return JSON[T]{}, fmt.Errorf("%w: %w", ErrEncoding, err)
	}

	return JSON[T]{value: v}, nil
}

func (p JSON[T]) Serialize() (string, error) {
	b, err := json.Marshal(p.value)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncoding, err)
	}

	return string(b), nil
}

func (p JSON[T]) Deserialize() T {
	return p.value
}

// ToString re-wraps the packet as a String packet, for transports typed on String.
func (p JSON[T]) ToString() (String, error) {
	s, err := p.Serialize()
	if err != nil {
		return String{}, err
	}

	return NewString(s), nil
}
