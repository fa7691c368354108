// Package multimeter contains digital multimeter drivers.
package multimeter

import (
	"context"

	"github.com/electric-propulsion/go-epcomms/scpi"
)

// ContinuityThreshold is the resistance at or below which a continuity test
// passes.
const ContinuityThreshold = 10.0

// DefaultAmplitudeRange is the AC voltage range set before a frequency
// measurement.
const DefaultAmplitudeRange = scpi.Range("0.1")

// Multimeter is the common measurement surface. An empty range means AUTO
// and an empty resolution means DEF.
type Multimeter interface {
	VoltageAC(ctx context.Context, r scpi.Range, res scpi.Resolution) (float64, error)
	VoltageDC(ctx context.Context, r scpi.Range, res scpi.Resolution) (float64, error)
	CurrentAC(ctx context.Context, r scpi.Range, res scpi.Resolution) (float64, error)
	CurrentDC(ctx context.Context, r scpi.Range, res scpi.Resolution) (float64, error)
	Capacitance(ctx context.Context, r scpi.Range, res scpi.Resolution) (float64, error)
	Continuity(ctx context.Context) (bool, error)
	Frequency(ctx context.Context, r scpi.Range, res scpi.Resolution, amplitude scpi.Range) (float64, error)
	Close() error
}
