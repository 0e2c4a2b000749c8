package bleosc

import (
	"encoding/binary"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
)

// MaxLegacyPayload is the room left for the CBOR map in a 31 byte legacy
// advertising PDU once the AD header and company identifier are written.
const MaxLegacyPayload = 27

var encMode = func() cbor.EncMode {
	em, err := cbor.EncOptions{
		ShortestFloat: cbor.ShortestFloat16,
	}.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// Encode encodes p as a definite length CBOR map in field order. It is the
// inverse of Decode for flat payloads.
func Encode(p Payload) ([]byte, error) {
	b := appendHead(nil, majorMap, uint64(len(p)))
	for _, f := range p {
		k, err := encMode.Marshal(f.Name)
		if err != nil {
			return nil, errors.Wrapf(err, "encode key %q", f.Name)
		}
		v, err := encMode.Marshal(f.Value.Interface())
		if err != nil {
			return nil, errors.Wrapf(err, "encode field %q", f.Name)
		}
		b = append(b, k...)
		b = append(b, v...)
	}
	return b, nil
}

// ManufacturerPayload prefixes an encoded payload with the little endian
// company identifier, producing the manufacturer specific data as it is put
// on air.
func ManufacturerPayload(id uint16, payload []byte) ([]byte, error) {
	if len(payload) > MaxLegacyPayload {
		return nil, errors.Wrapf(ErrPayloadTooLarge, "%d bytes, max %d", len(payload), MaxLegacyPayload)
	}
	b := make([]byte, 2, 2+len(payload))
	binary.LittleEndian.PutUint16(b, id)
	return append(b, payload...), nil
}

func appendHead(b []byte, major byte, n uint64) []byte {
	m := major << 5
	switch {
	case n < 24:
		return append(b, m|byte(n))
	case n <= 0xff:
		return append(b, m|24, byte(n))
	case n <= 0xffff:
		b = append(b, m|25, 0, 0)
		binary.BigEndian.PutUint16(b[len(b)-2:], uint16(n))
		return b
	case n <= 0xffffffff:
		b = append(b, m|26, 0, 0, 0, 0)
		binary.BigEndian.PutUint32(b[len(b)-4:], uint32(n))
		return b
	}
	b = append(b, m|27, 0, 0, 0, 0, 0, 0, 0, 0)
	binary.BigEndian.PutUint64(b[len(b)-8:], n)
	return b
}
