// Package flowcontroller contains mass flow controller drivers.
package flowcontroller

import (
	"context"
	"fmt"

	"github.com/electric-propulsion/go-epcomms/cip"
	"github.com/electric-propulsion/go-epcomms/equipment"
	"github.com/electric-propulsion/go-epcomms/ethernetip"
	"github.com/electric-propulsion/go-epcomms/transmission"
)

// Alicat assembly object addresses.
const (
	alicatClass            = 4
	alicatSetpointInstance = 100
	alicatReadingsInstance = 101
	alicatCommandInstance  = 102
	alicatAttribute        = 3

	identityClass    = 1
	identityInstance = 1

	readingsLen = 26
)

// Device command IDs and arguments.
const (
	cmdTare           = 4
	cmdResetTotalizer = 5
	cmdValveHold      = 6

	argTareFlow        = 2
	argValveRelease    = 0
	argValveClosed     = 1
	argValveAtPosition = 2
)

// IdentityAttribute is an attribute of the CIP identity object.
type IdentityAttribute struct {
	ID   uint16
	Type *cip.DataType
}

var (
	VendorID     = IdentityAttribute{1, cip.UInt}
	DeviceType   = IdentityAttribute{2, cip.UInt}
	ProductCode  = IdentityAttribute{3, cip.UInt}
	StatusWord   = IdentityAttribute{5, cip.Word}
	SerialNumber = IdentityAttribute{6, cip.UDInt}
	ProductName  = IdentityAttribute{7, cip.String}
)

// Readings is the device readings assembly.
type Readings struct {
	Gas              uint16
	Status           uint32
	GaugePressure    float32
	FlowTemp         float32
	VolumetricFlow   float32
	MassFlow         float32
	MassFlowSetpoint float32
}

// Alicat drives an Alicat flow controller over Ethernet/IP.
type Alicat struct {
	t transmission.Transceiver[cip.Response, cip.Request]
}

func NewAlicat(t transmission.Transceiver[cip.Response, cip.Request]) *Alicat {
	return &Alicat{t: t}
}

// OpenAlicat connects to the controller at path, e.g. "192.168.0.172".
func OpenAlicat(path string, opts ...ethernetip.Option) (*Alicat, error) {
	conn, err := ethernetip.Open(path, opts...)
	if err != nil {
		return nil, err
	}

	return NewAlicat(conn), nil
}

// Setpoint returns the flow setpoint.
func (a *Alicat) Setpoint(ctx context.Context) (float64, error) {
	req := cip.NewRequest(alicatClass, alicatSetpointInstance, alicatAttribute).WithType(cip.Real)

	resp, err := a.t.Poll(ctx, req)
	if err != nil {
		return 0, err
	}

	v, ok := resp.Deserialize().(float32)
	if !ok {
		return 0, transmission.Errorf("flowcontroller: setpoint is %T, want float32", resp.Deserialize())
	}

	return float64(v), nil
}

// SetSetpoint writes the flow setpoint.
func (a *Alicat) SetSetpoint(ctx context.Context, setpoint float64) error {
	req, err := cip.NewValueRequest(alicatClass, alicatSetpointInstance, alicatAttribute, setpoint, cip.Real)
	if err != nil {
		return err
	}

	return a.t.Command(ctx, req)
}

// Readings returns the device readings assembly.
func (a *Alicat) Readings(ctx context.Context) (Readings, error) {
	resp, err := a.t.Poll(ctx, cip.NewRequest(alicatClass, alicatReadingsInstance, alicatAttribute))
	if err != nil {
		return Readings{}, err
	}

	data, ok := resp.Bytes()
	if !ok {
		return Readings{}, transmission.Errorf("flowcontroller: device readings response is not bytes")
	}

	return decodeReadings(data)
}

func decodeReadings(data []byte) (Readings, error) {
	if len(data) < readingsLen {
		return Readings{}, transmission.Errorf("flowcontroller: device readings are %d bytes, want %d", len(data), readingsLen)
	}

	var r Readings
	fields := []struct {
		off int
		dt  *cip.DataType
		dst any
	}{
		{0, cip.UInt, &r.Gas},
		{2, cip.UDInt, &r.Status},
		{6, cip.Real, &r.GaugePressure},
		{10, cip.Real, &r.FlowTemp},
		{14, cip.Real, &r.VolumetricFlow},
		{18, cip.Real, &r.MassFlow},
		{22, cip.Real, &r.MassFlowSetpoint},
	}
	for _, f := range fields {
		v, err := f.dt.Decode(data[f.off:])
		if err != nil {
			return Readings{}, err
		}

		switch dst := f.dst.(type) {
		case *uint16:
			*dst = v.(uint16)
		case *uint32:
			*dst = v.(uint32)
		case *float32:
			*dst = v.(float32)
		}
	}

	return r, nil
}

func (a *Alicat) Pressure(ctx context.Context) (float64, error) {
	r, err := a.Readings(ctx)
	return float64(r.GaugePressure), err
}

func (a *Alicat) FlowTemp(ctx context.Context) (float64, error) {
	r, err := a.Readings(ctx)
	return float64(r.FlowTemp), err
}

func (a *Alicat) VolumetricFlow(ctx context.Context) (float64, error) {
	r, err := a.Readings(ctx)
	return float64(r.VolumetricFlow), err
}

func (a *Alicat) MassFlow(ctx context.Context) (float64, error) {
	r, err := a.Readings(ctx)
	return float64(r.MassFlow), err
}

func (a *Alicat) MassFlowSetpoint(ctx context.Context) (float64, error) {
	r, err := a.Readings(ctx)
	return float64(r.MassFlowSetpoint), err
}

func (a *Alicat) TareFlow(ctx context.Context) error {
	return a.deviceCommand(ctx, cmdTare, argTareFlow)
}

func (a *Alicat) ResetTotalizer(ctx context.Context) error {
	return a.deviceCommand(ctx, cmdResetTotalizer, 0)
}

func (a *Alicat) HoldValvesClosed(ctx context.Context) error {
	return a.deviceCommand(ctx, cmdValveHold, argValveClosed)
}

func (a *Alicat) HoldValvesAtCurrentPosition(ctx context.Context) error {
	return a.deviceCommand(ctx, cmdValveHold, argValveAtPosition)
}

func (a *Alicat) ReleaseValves(ctx context.Context) error {
	return a.deviceCommand(ctx, cmdValveHold, argValveRelease)
}

// deviceCommand writes a command ID and argument, then reads the command
// assembly back to check the device acknowledged it.
func (a *Alicat) deviceCommand(ctx context.Context, id, arg uint16) error {
	params := make([]byte, 0, 4)
	for _, v := range []uint16{id, arg} {
		b, err := cip.UInt.Encode(v)
		if err != nil {
			return err
		}
		params = append(params, b...)
	}

	req := cip.NewRequest(alicatClass, alicatCommandInstance, alicatAttribute)
	if err := a.t.Command(ctx, req.WithData(params)); err != nil {
		return err
	}

	resp, err := a.t.Poll(ctx, req)
	if err != nil {
		return err
	}

	data, ok := resp.Bytes()
	if !ok || len(data) < 4 {
		return transmission.Errorf("flowcontroller: command acknowledgement is not 4 bytes")
	}

	gotID, _ := cip.UInt.Decode(data[0:2])
	gotArg, _ := cip.UInt.Decode(data[2:4])
	if gotID != id || gotArg != arg {
		return fmt.Errorf("%w: command %d/%d, device reports %v/%v", equipment.ErrCommand, id, arg, gotID, gotArg)
	}

	return nil
}

// IdentityElement reads one identity object attribute. Integer attributes
// are returned as uint64, strings as string.
func (a *Alicat) IdentityElement(ctx context.Context, attr IdentityAttribute) (any, error) {
	req := cip.NewRequest(identityClass, identityInstance, attr.ID).WithType(attr.Type)

	resp, err := a.t.Poll(ctx, req)
	if err != nil {
		return nil, err
	}

	switch v := resp.Deserialize().(type) {
	case uint16:
		return uint64(v), nil
	case uint32:
		return uint64(v), nil
	case string:
		return v, nil
	default:
		return nil, transmission.Errorf("flowcontroller: identity attribute %d is %T, want integer or string", attr.ID, v)
	}
}

// IdentityString formats product name, vendor, device type, product code and
// serial number.
func (a *Alicat) IdentityString(ctx context.Context) (string, error) {
	attrs := []IdentityAttribute{ProductName, VendorID, DeviceType, ProductCode, SerialNumber}
	vals := make([]any, len(attrs))
	for i, attr := range attrs {
		v, err := a.IdentityElement(ctx, attr)
		if err != nil {
			return "", err
		}
		vals[i] = v
	}

	return fmt.Sprintf("%v (Vendor ID: %v, Device Type: %v, Product Code: %v, Serial Number: %v)", vals...), nil
}

// Status is the decoded identity status word.
type Status struct {
	TempOverflow               bool
	TempUnderflow              bool
	VolumetricOverflow         bool
	VolumetricUnderflow        bool
	MassOverflow               bool
	MassUnderflow              bool
	PressureOverflow           bool
	TotalizerOverflow          bool
	PIDLoopHold                bool
	ADCError                   bool
	PIDExhaust                 bool
	OverPressureLimit          bool
	FlowOverflowDuringTotalize bool
	MeasurementAborted         bool
}

// DecodeStatus decodes the status word. Bit 8 is not used.
func DecodeStatus(w uint64) Status {
	bit := func(n uint) bool { return w&(1<<n) != 0 }

	return Status{
		TempOverflow:               bit(0),
		TempUnderflow:              bit(1),
		VolumetricOverflow:         bit(2),
		VolumetricUnderflow:        bit(3),
		MassOverflow:               bit(4),
		MassUnderflow:              bit(5),
		PressureOverflow:           bit(6),
		TotalizerOverflow:          bit(7),
		PIDLoopHold:                bit(9),
		ADCError:                   bit(10),
		PIDExhaust:                 bit(11),
		OverPressureLimit:          bit(12),
		FlowOverflowDuringTotalize: bit(13),
		MeasurementAborted:         bit(14),
	}
}

// Status reads and decodes the identity status word.
func (a *Alicat) Status(ctx context.Context) (Status, error) {
	v, err := a.IdentityElement(ctx, StatusWord)
	if err != nil {
		return Status{}, err
	}

	w, ok := v.(uint64)
	if !ok {
		return Status{}, transmission.Errorf("flowcontroller: status value is not an integer")
	}

	return DecodeStatus(w), nil
}

func (a *Alicat) Close() error {
	return a.t.Close()
}
