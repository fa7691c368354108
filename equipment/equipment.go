// Package equipment holds the errors shared by the instrument drivers in its
// subpackages.
//
// Drivers are thin: each one composes a transmission.Transceiver (and, for
// SCPI instruments, an scpi.Session) with the instrument's command set.
package equipment

import (
	"errors"
	"fmt"
)

var (
	// ErrMeasurement is returned when the instrument answered but reports no
	// valid measurement, e.g. a gauge that is off or out of range.
	ErrMeasurement = errors.New("equipment: measurement error")

	// ErrCommand is returned when the instrument did not acknowledge a command.
	ErrCommand = errors.New("equipment: command not acknowledged")

	// ErrChannel is returned for a channel the instrument does not have.
	ErrChannel = errors.New("equipment: invalid channel")

	// ErrUnsupported is returned for operations an instrument cannot perform.
	ErrUnsupported = fmt.Errorf("equipment: %w", errors.ErrUnsupported)
)

// CheckChannel returns ErrChannel unless 1 <= ch <= n.
func CheckChannel(ch, n int) error {
	if ch < 1 || ch > n {
		return fmt.Errorf("%w: %d (instrument has %d)", ErrChannel, ch, n)
	}

	return nil
}
