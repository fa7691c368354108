// Package powersupply contains bench power supply drivers.
package powersupply

import "context"

// PowerSupply is the common control surface of a programmable supply.
// Channels are numbered from 1. Operations a model cannot perform return
// an error wrapping equipment.ErrUnsupported.
type PowerSupply interface {
	SetVoltage(ctx context.Context, volts float64, channel int) error
	VoltageSetpoint(ctx context.Context, channel int) (float64, error)
	Voltage(ctx context.Context, channel int) (float64, error)
	SetCurrentLimit(ctx context.Context, amps float64, channel int) error
	CurrentLimit(ctx context.Context, channel int) (float64, error)
	Current(ctx context.Context, channel int) (float64, error)
	Output(ctx context.Context, channel int) (bool, error)
	SetOutput(ctx context.Context, on bool, channel int) error
	Close() error
}
