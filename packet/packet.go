// Package packet defines the typed envelopes exchanged over a transmission.
//
// A packet converts between the value an application works with (its data) and
// the representation that crosses a transport (its wire form). The two roles are
// expressed as separate interfaces so a type can be transmit-only, receive-only,
// or both:
//
//   - Transmittable[W] packets are built from data with a NewXxx constructor and
//     serialized to wire form W.
//   - Receivable[D] packets are built from wire data by a Decoder and expose their
//     data D.
//
// Concrete packets:
//
//	| Packet   | Data   | Wire   | Encoding                                  |
//	|----------|--------|--------|-------------------------------------------|
//	| ASCII    | string | []byte | 7-bit ASCII, fails on other code points   |
//	| Bytes    | []byte | []byte | identity                                  |
//	| String   | string | string | identity, for natively textual transports |
//	| JSON[T]  | T      | string | encoding/json                             |
//
// CIP request and response packets live in the cip package.
//
// For lossless formats the round trip holds:
//
//	p, _ := DecodeASCII(must(NewASCII(x).Serialize()))
//	p.Deserialize() == x
package packet

import "errors"

// ErrEncoding is returned when data or wire content is inconsistent with a
// packet's declared encoding, e.g. non-ASCII bytes fed to an ASCII packet.
var ErrEncoding = errors.New("packet: encoding error")

// Transmittable is a packet that can be serialized into wire form W.
//
// Serialize is deterministic and performs no I/O.
type Transmittable[W any] interface {
	Serialize() (W, error)
}

// Receivable is a packet carrying application data D.
type Receivable[D any] interface {
	Deserialize() D
}

// Decoder constructs a receive-side packet P from wire data W.
//
// A Decoder must not fail on well-formed input and may return an error
// wrapping ErrEncoding on malformed input.
type Decoder[W, P any] func(wire W) (P, error)
