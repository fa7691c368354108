package eip

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Encapsulation commands.
const (
	CommandNOP               uint16 = 0x00
	CommandRegisterSession   uint16 = 0x65
	CommandUnRegisterSession uint16 = 0x66
	CommandSendRRData        uint16 = 0x6F
)

const (
	encapHeaderLen = 24
	maxPayloadLen  = 65511
)

// Encap is an EtherNet/IP encapsulation frame.
type Encap struct {
	Command       uint16
	SessionHandle uint32
	Status        uint32
	Context       [8]byte
	Options       uint32
	Data          []byte
}

// Bytes encodes the frame. The length field is taken from Data.
func (m *Encap) Bytes() []byte {
	buf := make([]byte, 0, encapHeaderLen+len(m.Data))
	buf = binary.LittleEndian.AppendUint16(buf, m.Command)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(m.Data)))
	buf = binary.LittleEndian.AppendUint32(buf, m.SessionHandle)
	buf = binary.LittleEndian.AppendUint32(buf, m.Status)
	buf = append(buf, m.Context[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, m.Options)
	buf = append(buf, m.Data...)

	return buf
}

// ReadEncap reads one encapsulation frame from r.
func ReadEncap(r io.Reader) (*Encap, error) {
	header := make([]byte, encapHeaderLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("eip: read encapsulation header: %w", err)
	}

	length := binary.LittleEndian.Uint16(header[2:4])
	if length > maxPayloadLen {
		return nil, fmt.Errorf("%w: payload length %d", ErrMalformed, length)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("eip: read encapsulation payload: %w", err)
	}

	m := &Encap{
		Command:       binary.LittleEndian.Uint16(header[0:2]),
		SessionHandle: binary.LittleEndian.Uint32(header[4:8]),
		Status:        binary.LittleEndian.Uint32(header[8:12]),
		Options:       binary.LittleEndian.Uint32(header[20:24]),
		Data:          payload,
	}
	copy(m.Context[:], header[12:20])

	return m, nil
}

// CommandData is the SendRRData payload: interface handle, timeout and a
// common packet.
type CommandData struct {
	InterfaceHandle uint32
	Timeout         uint16
	Packet          []byte
}

// Bytes encodes the command data.
func (d *CommandData) Bytes() []byte {
	raw := binary.LittleEndian.AppendUint32(nil, d.InterfaceHandle)
	raw = binary.LittleEndian.AppendUint16(raw, d.Timeout)

	return append(raw, d.Packet...)
}

// ParseCommandData parses a SendRRData payload.
func ParseCommandData(raw []byte) (*CommandData, error) {
	if len(raw) < 8 {
		return nil, fmt.Errorf("%w: command data needs 8 bytes, got %d", ErrMalformed, len(raw))
	}

	return &CommandData{
		InterfaceHandle: binary.LittleEndian.Uint32(raw[:4]),
		Timeout:         binary.LittleEndian.Uint16(raw[4:6]),
		Packet:          raw[6:],
	}, nil
}
