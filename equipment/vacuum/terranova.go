// Package vacuum contains vacuum gauge controller drivers.
package vacuum

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/electric-propulsion/go-epcomms/equipment"
	"github.com/electric-propulsion/go-epcomms/packet"
	"github.com/electric-propulsion/go-epcomms/serial"
	"github.com/electric-propulsion/go-epcomms/transmission"
)

// Terranova962A drives a Duniway Terranova 962A dual gauge controller over
// its single-letter ASCII serial protocol.
type Terranova962A struct {
	t transmission.Transceiver[packet.ASCII, packet.ASCII]
}

var terranovaGaugeTypes = []string{"CEP", "275"}

func NewTerranova962A(t transmission.Transceiver[packet.ASCII, packet.ASCII]) *Terranova962A {
	return &Terranova962A{t: t}
}

// OpenTerranova962A opens the controller on a serial device with "\r\n"
// framed lines at 9600 baud unless opts say otherwise.
func OpenTerranova962A(device string, opts ...serial.Option) (*Terranova962A, error) {
	conn, err := serial.OpenASCII(device, opts...)
	if err != nil {
		return nil, err
	}

	return NewTerranova962A(conn), nil
}

// Pressure returns the reading of gauge 1 or 2 in the controller's units.
// Out-of-range and switched-off gauges return an error wrapping
// equipment.ErrMeasurement.
func (v *Terranova962A) Pressure(ctx context.Context, gauge int) (float64, error) {
	if err := equipment.CheckChannel(gauge, 2); err != nil {
		return 0, err
	}

	resp, err := v.query(ctx, "p")
	if err != nil {
		return 0, err
	}

	fields := strings.Fields(resp)
	if len(fields) < gauge {
		return 0, transmission.Errorf("vacuum: bad response %q (expected pressures)", resp)
	}

	field := fields[gauge-1]
	switch field {
	case "Low":
		return 0, fmt.Errorf("%w: pressure out of range (low)", equipment.ErrMeasurement)
	case "Hi":
		return 0, fmt.Errorf("%w: pressure out of range (high)", equipment.ErrMeasurement)
	case "Off":
		return 0, fmt.Errorf("%w: gauge %d off", equipment.ErrMeasurement, gauge)
	}

	p, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return 0, transmission.Errorf("vacuum: bad response %q (expected pressures): %w", field, err)
	}

	return p, nil
}

// Units returns the pressure unit name reported by the controller.
func (v *Terranova962A) Units(ctx context.Context) (string, error) {
	return v.query(ctx, "u")
}

// Identity returns the controller identification string.
func (v *Terranova962A) Identity(ctx context.Context) (string, error) {
	resp, err := v.query(ctx, "v")
	if err != nil {
		return "", err
	}
	if !strings.Contains(resp, "926") {
		return "", transmission.Errorf("vacuum: bad response %q (expected identity)", resp)
	}

	return resp, nil
}

// GaugeType returns the connected gauge type, CEP or 275.
func (v *Terranova962A) GaugeType(ctx context.Context) (string, error) {
	resp, err := v.query(ctx, "x")
	if err != nil {
		return "", err
	}
	if !slices.Contains(terranovaGaugeTypes, resp) {
		return "", transmission.Errorf("vacuum: bad response %q (expected gauge type)", resp)
	}

	return resp, nil
}

func (v *Terranova962A) Close() error {
	return v.t.Close()
}

func (v *Terranova962A) query(ctx context.Context, q string) (string, error) {
	resp, err := v.t.Poll(ctx, packet.NewASCII(q))
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(resp.Deserialize()), nil
}
