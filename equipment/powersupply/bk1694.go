package powersupply

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/electric-propulsion/go-epcomms/equipment"
	"github.com/electric-propulsion/go-epcomms/packet"
	"github.com/electric-propulsion/go-epcomms/socket"
	"github.com/electric-propulsion/go-epcomms/transmission"
)

const (
	// BK1694Port is the websocket port of the ESP32 controller.
	BK1694Port = 7777
	// BK1694MaxVoltage is the voltage at full scale.
	BK1694MaxVoltage = 30.0
	// BK1694FullScale is the largest setpoint value.
	BK1694FullScale = 255
)

// BK1694Status is the controller state returned by getStatus.
type BK1694Status struct {
	Value  int  `json:"value"`
	Enable bool `json:"enable"`
}

type bk1694Request struct {
	Command string `json:"command"`
	Value   any    `json:"value,omitempty"`
}

// BK1694 drives a BK Precision 1694 through an ESP32 websocket bridge. The
// bridge maps 0 to 30 V onto 0 to 255 and has one channel; it reads back the
// setpoint but measures nothing.
type BK1694 struct {
	t transmission.Transceiver[packet.String, packet.String]
}

var _ PowerSupply = (*BK1694)(nil)

func NewBK1694(t transmission.Transceiver[packet.String, packet.String]) *BK1694 {
	return &BK1694{t: t}
}

// OpenBK1694 connects to the bridge at host on BK1694Port.
func OpenBK1694(host string, opts ...socket.Option) (*BK1694, error) {
	conn, err := socket.OpenString("ws://"+net.JoinHostPort(host, strconv.Itoa(BK1694Port)), opts...)
	if err != nil {
		return nil, err
	}

	return NewBK1694(conn), nil
}

// VoltageToValue maps volts onto the 0..255 setpoint scale, truncating.
func VoltageToValue(volts float64) int {
	return int(volts * BK1694FullScale / BK1694MaxVoltage)
}

// ValueToVoltage maps a setpoint value back to volts.
func ValueToVoltage(value int) float64 {
	return float64(value) * BK1694MaxVoltage / BK1694FullScale
}

func (p *BK1694) SetVoltage(ctx context.Context, volts float64, channel int) error {
	if err := equipment.CheckChannel(channel, 1); err != nil {
		return err
	}
	if volts < 0 || volts > BK1694MaxVoltage {
		return fmt.Errorf("powersupply: bk1694 voltage %v outside 0..%v V", volts, BK1694MaxVoltage)
	}

	_, err := p.request(ctx, bk1694Request{Command: "setValue", Value: VoltageToValue(volts)})

	return err
}

func (p *BK1694) VoltageSetpoint(ctx context.Context, channel int) (float64, error) {
	if err := equipment.CheckChannel(channel, 1); err != nil {
		return 0, err
	}

	st, err := p.Status(ctx)
	if err != nil {
		return 0, err
	}

	return ValueToVoltage(st.Value), nil
}

func (p *BK1694) Voltage(context.Context, int) (float64, error) {
	return 0, fmt.Errorf("%w: bk1694 cannot measure output voltage", equipment.ErrUnsupported)
}

func (p *BK1694) SetCurrentLimit(context.Context, float64, int) error {
	return fmt.Errorf("%w: bk1694 cannot set a current limit", equipment.ErrUnsupported)
}

func (p *BK1694) CurrentLimit(context.Context, int) (float64, error) {
	return 0, fmt.Errorf("%w: bk1694 cannot read a current limit", equipment.ErrUnsupported)
}

func (p *BK1694) Current(context.Context, int) (float64, error) {
	return 0, fmt.Errorf("%w: bk1694 cannot measure output current", equipment.ErrUnsupported)
}

func (p *BK1694) Output(ctx context.Context, channel int) (bool, error) {
	if err := equipment.CheckChannel(channel, 1); err != nil {
		return false, err
	}

	st, err := p.Status(ctx)
	if err != nil {
		return false, err
	}

	return st.Enable, nil
}

func (p *BK1694) SetOutput(ctx context.Context, on bool, channel int) error {
	if err := equipment.CheckChannel(channel, 1); err != nil {
		return err
	}

	_, err := p.request(ctx, bk1694Request{Command: "enable", Value: on})

	return err
}

// Status returns the bridge state.
func (p *BK1694) Status(ctx context.Context) (BK1694Status, error) {
	resp, err := p.request(ctx, bk1694Request{Command: "getStatus"})
	if err != nil {
		return BK1694Status{}, err
	}

	st, err := packet.DecodeJSON[BK1694Status](resp)
	if err != nil {
		return BK1694Status{}, err
	}

	return st.Deserialize(), nil
}

func (p *BK1694) Close() error {
	return p.t.Close()
}

func (p *BK1694) request(ctx context.Context, req bk1694Request) (string, error) {
	msg, err := packet.NewJSON(req).ToString()
	if err != nil {
		return "", err
	}

	resp, err := p.t.Poll(ctx, msg)
	if err != nil {
		return "", err
	}

	return resp.Deserialize(), nil
}
