package parser

import (
	"github.com/pkg/errors"
)

// MaxAdvPacketLength is the payload size of a legacy advertising PDU.
const MaxAdvPacketLength = 31

// ErrNotFit is returned when a field does not fit into the packet.
var ErrNotFit = errors.New("field does not fit in the packet")

// Packet is an advertising packet or scan response under construction.
type Packet struct {
	b []byte
}

// Field is an advertising field which can be appended to a packet.
type Field func(p *Packet) error

// NewPacket returns a packet holding fields in order.
func NewPacket(fields ...Field) (*Packet, error) {
	p := &Packet{b: make([]byte, 0, MaxAdvPacketLength)}
	for _, f := range fields {
		if err := f(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Bytes returns the bytes of the packet.
func (p *Packet) Bytes() []byte {
	return p.b
}

func (p *Packet) Len() int {
	return len(p.b)
}

// append leaves the packet intact when the field does not fit.
func (p *Packet) append(typ byte, b []byte) error {
	if p.Len()+1+1+len(b) > MaxAdvPacketLength {
		return ErrNotFit
	}
	p.b = append(p.b, byte(len(b)+1), typ)
	p.b = append(p.b, b...)
	return nil
}

func Flags(f byte) Field {
	return func(p *Packet) error {
		return p.append(types.flags, []byte{f})
	}
}

// CompleteName is a complete local name.
func CompleteName(n string) Field {
	return func(p *Packet) error {
		return p.append(types.namecomp, []byte(n))
	}
}

// ManufacturerData is manufacturer specific data. b starts with the
// little-endian company id.
func ManufacturerData(b []byte) Field {
	return func(p *Packet) error {
		if len(b) < 2 {
			return errors.New("manufacturer data without company id")
		}
		return p.append(types.mfgdata, b)
	}
}
