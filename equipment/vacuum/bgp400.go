package vacuum

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/electric-propulsion/go-epcomms/packet"
	"github.com/electric-propulsion/go-epcomms/serial"
	"github.com/electric-propulsion/go-epcomms/transmission"
)

// BGP400 output frame layout.
const (
	BGP400FrameLen   = 9
	bgp400DataLen    = 7
	bgp400Page       = 5
	bgp400SensorType = 10
)

// BGP400Marker starts every output frame: the length and page bytes.
var BGP400Marker = []byte{bgp400DataLen, bgp400Page}

// Unit is a BGP400 pressure unit.
type Unit uint8

const (
	Mbar Unit = iota
	Torr
	Pa
	UnitUnknown
)

func (u Unit) String() string {
	switch u {
	case Mbar:
		return "mbar"
	case Torr:
		return "Torr"
	case Pa:
		return "Pa"
	default:
		return "Unknown"
	}
}

// offset is the constant subtracted from the scaled measurement word.
func (u Unit) offset() (float64, bool) {
	switch u {
	case Mbar:
		return 12.5, true
	case Torr:
		return 12.625, true
	case Pa:
		return 10.5, true
	default:
		return 0, false
	}
}

// Emission is the state of the hot cathode.
type Emission uint8

const (
	EmissionOff Emission = iota
	Emission25uA
	Emission5mA
	EmissionDegas
)

func (e Emission) String() string {
	switch e {
	case EmissionOff:
		return "Off"
	case Emission25uA:
		return "25 uA"
	case Emission5mA:
		return "5 mA"
	default:
		return "Degas"
	}
}

// Reading is a decoded BGP400 output frame.
type Reading struct {
	// Pressure is in Unit, or -1 when the unit is unknown.
	Pressure float64
	Unit     Unit
	Emission Emission
	// Adjustment reports whether the 1000 mbar adjustment is on.
	Adjustment bool
	Toggle     bool
	// ErrorCode is the raw error byte; zero means no error.
	ErrorCode       byte
	SoftwareVersion float64
}

// ErrorText describes ErrorCode, or returns "" when there is none.
func (r Reading) ErrorText() string {
	if r.ErrorCode == 0 {
		return ""
	}

	// 0b1001 is documented for both the BA and the Pirani error; the BA
	// reading is reported.
	switch r.ErrorCode >> 4 & 0x0F {
	case 0b0101:
		return "Pirani adjusted poorly"
	case 0b1001:
		return "BA error"
	default:
		return "Unknown error"
	}
}

func (r Reading) String() string {
	msg := r.ErrorText()
	if msg == "" {
		msg = "None"
	}

	return fmt.Sprintf("pressure %g %s, emission %s, adjustment %t, software v%g, toggle %t, error %s",
		r.Pressure, r.Unit, r.Emission, r.Adjustment, r.SoftwareVersion, r.Toggle, msg)
}

// BGP400Checksum is the sum of frame bytes 1 through 7 modulo 256.
func BGP400Checksum(frame []byte) byte {
	var sum byte
	for _, b := range frame[1:8] {
		sum += b
	}

	return sum
}

// DecodeBGP400 validates and decodes a 9-byte output frame.
func DecodeBGP400(frame []byte) (Reading, error) {
	if len(frame) != BGP400FrameLen {
		return Reading{}, transmission.Errorf("vacuum: frame is %d bytes (expected %d)", len(frame), BGP400FrameLen)
	}

	length, page, status, errByte := frame[0], frame[1], frame[2], frame[3]
	msb, lsb, sw, sensor, checksum := frame[4], frame[5], frame[6], frame[7], frame[8]

	if length != bgp400DataLen {
		return Reading{}, transmission.Errorf("vacuum: invalid data length: %d (expected %d)", length, bgp400DataLen)
	}
	if page != bgp400Page {
		return Reading{}, transmission.Errorf("vacuum: invalid page number: %d (expected %d)", page, bgp400Page)
	}
	if sensor != bgp400SensorType {
		return Reading{}, transmission.Errorf("vacuum: invalid sensor type: %d (expected %d)", sensor, bgp400SensorType)
	}
	if want := BGP400Checksum(frame); checksum != want {
		return Reading{}, transmission.Errorf("vacuum: invalid checksum: %d (expected %d)", checksum, want)
	}

	r := Reading{
		Emission:        Emission(status & 0b11),
		Adjustment:      status>>2&1 == 1,
		Toggle:          status>>3&1 == 1,
		Unit:            Unit(status >> 4 & 0b11),
		ErrorCode:       errByte,
		SoftwareVersion: float64(sw) / 20,
	}

	r.Pressure = -1
	if c, ok := r.Unit.offset(); ok {
		r.Pressure = math.Pow(10, float64(int(msb)*256+int(lsb))/4000-c)
	}

	return r, nil
}

// Command frames.
var (
	bgp400DegasOn  = []byte{3, 16, 93, 148, 1}
	bgp400DegasOff = []byte{3, 16, 93, 105, 214}
	bgp400Units    = map[Unit][]byte{
		Mbar: {3, 16, 62, 0, 78},
		Torr: {3, 16, 62, 1, 79},
		Pa:   {3, 16, 62, 2, 80},
	}
)

// InficonBGP400 drives an Inficon BPG400 combination gauge, which streams
// output frames continuously.
type InficonBGP400 struct {
	t transmission.Transceiver[packet.Bytes, packet.Bytes]
}

func NewInficonBGP400(t transmission.Transceiver[packet.Bytes, packet.Bytes]) *InficonBGP400 {
	return &InficonBGP400{t: t}
}

// OpenInficonBGP400 opens the gauge on a serial device, framing input on
// the 0x07 0x05 frame start.
func OpenInficonBGP400(device string, opts ...serial.Option) (*InficonBGP400, error) {
	opts = append([]serial.Option{serial.WithStartMarker(BGP400Marker, BGP400FrameLen)}, opts...)

	conn, err := serial.OpenBytes(device, opts...)
	if err != nil {
		return nil, err
	}

	return NewInficonBGP400(conn), nil
}

func (g *InficonBGP400) DegasOn(ctx context.Context) error {
	return g.t.Command(ctx, packet.NewBytes(bgp400DegasOn))
}

func (g *InficonBGP400) DegasOff(ctx context.Context) error {
	return g.t.Command(ctx, packet.NewBytes(bgp400DegasOff))
}

// SetUnit selects the display and output unit.
func (g *InficonBGP400) SetUnit(ctx context.Context, u Unit) error {
	frame, ok := bgp400Units[u]
	if !ok {
		return fmt.Errorf("vacuum: unit %s cannot be selected", u)
	}

	return g.t.Command(ctx, packet.NewBytes(frame))
}

// Read reads and decodes the next output frame.
func (g *InficonBGP400) Read(ctx context.Context) (Reading, error) {
	p, err := g.t.Read(ctx)
	if err != nil {
		return Reading{}, err
	}

	return DecodeBGP400(p.Deserialize())
}

// Watch reads frames until ctx is done or a read fails and passes each
// reading to fn. It returns nil when ctx ends the loop.
func (g *InficonBGP400) Watch(ctx context.Context, fn func(Reading)) error {
	for {
		r, err := g.Read(ctx)
		if err != nil {
			if ctx.Err() != nil && (errors.Is(err, ctx.Err()) || errors.Is(err, transmission.ErrTransmission)) {
				return nil
			}

			return err
		}
		fn(r)
	}
}

func (g *InficonBGP400) Close() error {
	return g.t.Close()
}
