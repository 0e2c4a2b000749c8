package parser

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

var EmptyOrNilPdu = errors.New("nil/empty pdu")

// https://www.bluetooth.org/en-us/specification/assigned-numbers/generic-access-profile
var types = struct {
	flags     byte
	nameshort byte
	namecomp  byte
	mfgdata   byte
}{
	flags:     0x01,
	nameshort: 0x08,
	namecomp:  0x09,
	mfgdata:   0xff,
}

type field int

const (
	fieldName field = iota
	fieldMfg
)

type pduRecord struct {
	minSz int
	field field
}

// AD types not listed here are skipped.
var pduDecodeMap = map[byte]pduRecord{
	types.namecomp:  {1, fieldName},
	types.nameshort: {1, fieldName},
	types.mfgdata:   {2, fieldMfg},
}

// Record holds the AD structures of an advertising (or scan response) PDU
// that identify a device and carry its payload.
type Record struct {
	LocalName string

	// ManufacturerData maps the little endian company identifier to the
	// bytes following it.
	ManufacturerData map[uint16][]byte
}

// Parse decodes the AD structures of pdu. On error the fields decoded so far
// are returned with it.
func Parse(pdu []byte) (Record, error) {
	var r Record
	if len(pdu) == 0 {
		return r, EmptyOrNilPdu
	}

	for i := 0; (i + 1) < len(pdu); {
		//length @ offset 0
		//type @ offset 1
		//data @ 1 - (length-1)
		length := int(pdu[i])
		typ := pdu[i+1]

		//zero length marks the end of significant data
		if length == 0 {
			break
		}

		//do we have all the bytes for the payload?
		if (i + length) >= len(pdu) {
			return r, errors.Errorf("buffer overflow: want %v, have %v, idx %v", i+length, len(pdu), i)
		}

		start := i + 2
		end := start + length - 1
		bytes := make([]byte, len(pdu[start:end]))
		copy(bytes, pdu[start:end])

		dec, ok := pduDecodeMap[typ]
		if ok && len(bytes) != 0 {
			//have min length?
			if dec.minSz > len(bytes) {
				return r, errors.Errorf("adv type %v: min length %v, have %v, idx %v", typ, dec.minSz, len(bytes), i)
			}
			r.set(dec, bytes)
		}

		i += length + 1
	}

	return r, nil
}

func (r *Record) set(dec pduRecord, bytes []byte) {
	switch dec.field {
	case fieldName:
		r.LocalName = string(bytes)

	case fieldMfg:
		id := binary.LittleEndian.Uint16(bytes)
		r.addMfg(id, bytes[2:])
	}
}

func (r *Record) addMfg(id uint16, data []byte) {
	if r.ManufacturerData == nil {
		r.ManufacturerData = make(map[uint16][]byte)
	}
	// a scan response repeats the company id, only the data is appended
	r.ManufacturerData[id] = append(r.ManufacturerData[id], data...)
}

// Merge folds the records of a scan response into r. A name in o replaces
// the name in r; manufacturer data under the same company id is appended.
func (r *Record) Merge(o Record) {
	if o.LocalName != "" {
		r.LocalName = o.LocalName
	}
	for k, v := range o.ManufacturerData {
		r.addMfg(k, v)
	}
}
