package eip

import (
	"encoding/binary"
	"fmt"
)

// Common packet format item type IDs.
const (
	ItemNullAddress     uint16 = 0x00
	ItemUnconnectedData uint16 = 0xB2
)

// CommonPacket is a list of common packet format items.
type CommonPacket struct {
	Items []Item
}

// Item is a common packet format address or data item.
type Item struct {
	TypeID uint16
	Data   []byte
}

// UnconnectedMessage wraps a message router request in a null address item
// and an unconnected data item.
func UnconnectedMessage(request []byte) CommonPacket {
	return CommonPacket{Items: []Item{
		{TypeID: ItemNullAddress},
		{TypeID: ItemUnconnectedData, Data: request},
	}}
}

// Bytes encodes the packet.
func (p *CommonPacket) Bytes() []byte {
	raw := binary.LittleEndian.AppendUint16(nil, uint16(len(p.Items)))
	for _, item := range p.Items {
		raw = binary.LittleEndian.AppendUint16(raw, item.TypeID)
		raw = binary.LittleEndian.AppendUint16(raw, uint16(len(item.Data)))
		raw = append(raw, item.Data...)
	}

	return raw
}

// Find returns the first item with the given type ID.
func (p *CommonPacket) Find(typeID uint16) (Item, bool) {
	for _, item := range p.Items {
		if item.TypeID == typeID {
			return item, true
		}
	}

	return Item{}, false
}

// ParseCommonPacket parses a common packet.
func ParseCommonPacket(raw []byte) (*CommonPacket, error) {
	if len(raw) < 2 {
		return nil, fmt.Errorf("%w: common packet needs 2 bytes, got %d", ErrMalformed, len(raw))
	}

	count := binary.LittleEndian.Uint16(raw[:2])
	raw = raw[2:]

	p := &CommonPacket{}
	for i := range count {
		if len(raw) < 4 {
			return nil, fmt.Errorf("%w: truncated header of item %d", ErrMalformed, i)
		}

		typeID := binary.LittleEndian.Uint16(raw[:2])
		length := int(binary.LittleEndian.Uint16(raw[2:4]))
		if len(raw) < 4+length {
			return nil, fmt.Errorf("%w: item %d needs %d bytes, got %d", ErrMalformed, i, 4+length, len(raw))
		}

		p.Items = append(p.Items, Item{TypeID: typeID, Data: raw[4 : 4+length]})
		raw = raw[4+length:]
	}

	return p, nil
}
