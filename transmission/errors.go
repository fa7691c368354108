package transmission

import (
	"errors"
	"fmt"
)

var (
	// ErrTransmission is the uniform error kind for failed sends, empty
	// responses, framing mismatches and backend I/O failures.
	ErrTransmission = errors.New("transmission error")

	// ErrConfig indicates invalid construction arguments. It is returned before
	// any I/O is attempted and never wraps ErrTransmission.
	ErrConfig = errors.New("transmission: invalid configuration")
)

var (
	// ErrConnClosed is returned by operations on a closed connection.
	ErrConnClosed = fmt.Errorf("%w: connection closed", ErrTransmission)

	// ErrFrameTerminator is returned when the bytes following a fixed-length
	// frame do not match the configured terminator.
	ErrFrameTerminator = fmt.Errorf("%w: frame terminator not found where expected", ErrTransmission)

	// ErrEmptyResponse is returned when a request expecting data got an empty
	// or falsy response.
	ErrEmptyResponse = fmt.Errorf("%w: empty response", ErrTransmission)

	// ErrReadUnsupported is returned by Read on request/response-only backends.
	// Use Poll instead.
	ErrReadUnsupported = fmt.Errorf("transmission: standalone read unsupported, use poll: %w", errors.ErrUnsupported)
)

// Errorf formats a transmission error. The result wraps ErrTransmission, plus
// any error passed with a %w verb.
func Errorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrTransmission}, args...)...)
}

// ConfigErrorf formats a configuration error wrapping ErrConfig.
func ConfigErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrConfig}, args...)...)
}
