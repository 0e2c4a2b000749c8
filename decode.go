package bleosc

import (
	"bytes"
	"encoding/binary"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
)

// cbor major types
const (
	majorUint   = 0
	majorNegInt = 1
	majorBytes  = 2
	majorText   = 3
	majorArray  = 4
	majorMap    = 5
	majorTag    = 6
	majorSimple = 7

	breakCode = 0xff
)

// selfDescribe is the encoding of tag 55799, which marks data as CBOR.
var selfDescribe = []byte{0xd9, 0xd9, 0xf7}

var majorNames = [...]string{"uint", "negint", "bytes", "text", "array", "map", "tag", "simple"}

var decMode = func() cbor.DecMode {
	dm, err := cbor.DecOptions{
		MaxNestedLevels: 16,
	}.DecMode()
	if err != nil {
		panic(err)
	}
	return dm
}()

// Decode decodes a CBOR map into an ordered payload.
//
// Fields keep their encoded order. Nested maps and arrays are flattened into
// child fields named "parent/child" and "parent/0". A nested map under the
// empty key gives "/child". Bytes following the first complete item are
// ignored since advertising payloads may be padded. A leading self-describe
// tag is skipped.
func Decode(b []byte) (Payload, error) {
	for bytes.HasPrefix(b, selfDescribe) {
		b = b[len(selfDescribe):]
	}
	if len(b) == 0 {
		return nil, &DecodeError{Err: errors.New("empty payload")}
	}
	if m := b[0] >> 5; m != majorMap {
		return nil, &DecodeError{Err: errors.Errorf("outermost item is %s, want map", majorNames[m])}
	}

	var raw cbor.RawMessage
	if _, err := decMode.UnmarshalFirst(b, &raw); err != nil {
		return nil, &DecodeError{Err: err}
	}

	d := decoder{fields: Payload{}}
	_, arg, indef, n := head(raw)
	if err := d.mapItems("", raw[n:], arg, indef); err != nil {
		return nil, err
	}
	return d.fields, nil
}

type decoder struct {
	fields Payload
}

func (d *decoder) value(name string, raw []byte) error {
	major, arg, indef, n := head(raw)
	switch major {
	case majorMap:
		return d.mapItems(name+"/", raw[n:], arg, indef)
	case majorArray:
		return d.arrayItems(name+"/", raw[n:], arg, indef)
	case majorTag:
		// time and bignum tags carry meaning of their own, everything else is
		// unwrapped.
		if arg > 3 {
			return d.value(name, raw[n:])
		}
	}

	var v interface{}
	if err := decMode.Unmarshal(raw, &v); err != nil {
		return &DecodeError{Field: name, Err: err}
	}
	sv, err := scalar(v)
	if err != nil {
		return &DecodeError{Field: name, Err: err}
	}
	d.fields = append(d.fields, Field{Name: name, Value: sv})
	return nil
}

// mapItems names every child prefix+key. prefix is empty for the outermost
// map and "parent/" below it.
func (d *decoder) mapItems(prefix string, rest []byte, count uint64, indef bool) error {
	var err error
	for i := uint64(0); indef || i < count; i++ {
		if indef && rest[0] == breakCode {
			return nil
		}

		var k interface{}
		if rest, err = decMode.UnmarshalFirst(rest, &k); err != nil {
			return &DecodeError{Field: parent(prefix), Err: errors.Wrap(err, "key")}
		}
		key, err := keyName(k)
		if err != nil {
			return &DecodeError{Field: parent(prefix), Err: err}
		}

		var item cbor.RawMessage
		if rest, err = decMode.UnmarshalFirst(rest, &item); err != nil {
			return &DecodeError{Field: prefix + key, Err: err}
		}
		if err := d.value(prefix+key, item); err != nil {
			return err
		}
	}
	return nil
}

func (d *decoder) arrayItems(prefix string, rest []byte, count uint64, indef bool) error {
	var err error
	for i := uint64(0); indef || i < count; i++ {
		if indef && rest[0] == breakCode {
			return nil
		}

		elem := prefix + strconv.FormatUint(i, 10)
		var item cbor.RawMessage
		if rest, err = decMode.UnmarshalFirst(rest, &item); err != nil {
			return &DecodeError{Field: elem, Err: err}
		}
		if err := d.value(elem, item); err != nil {
			return err
		}
	}
	return nil
}

// head reads the initial byte and argument of a well formed item.
func head(b []byte) (major byte, arg uint64, indef bool, n int) {
	major = b[0] >> 5
	ai := b[0] & 0x1f
	switch {
	case ai < 24:
		return major, uint64(ai), false, 1
	case ai == 24:
		return major, uint64(b[1]), false, 2
	case ai == 25:
		return major, uint64(binary.BigEndian.Uint16(b[1:3])), false, 3
	case ai == 26:
		return major, uint64(binary.BigEndian.Uint32(b[1:5])), false, 5
	case ai == 27:
		return major, binary.BigEndian.Uint64(b[1:9]), false, 9
	}
	return major, 0, true, 1
}

func keyName(k interface{}) (string, error) {
	switch k := k.(type) {
	case string:
		return k, nil
	case uint64:
		return strconv.FormatUint(k, 10), nil
	case int64:
		return strconv.FormatInt(k, 10), nil
	}
	return "", errors.Errorf("unsupported key type %T", k)
}

func scalar(v interface{}) (Value, error) {
	switch v := v.(type) {
	case nil:
		return Nil(), nil
	case bool:
		return Bool(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return Float(float64(v)), nil
		}
		return Int(int64(v)), nil
	case int64:
		return Int(v), nil
	case float64:
		return Float(v), nil
	case string:
		return Text(v), nil
	case []byte:
		return Bytes(v), nil
	case time.Time:
		return Text(v.UTC().Format(time.RFC3339Nano)), nil
	case big.Int:
		return Text(v.String()), nil
	case *big.Int:
		return Text(v.String()), nil
	case cbor.SimpleValue:
		return Int(int64(v)), nil
	}
	return Value{}, errors.Errorf("unsupported value type %T", v)
}

func parent(prefix string) string {
	return strings.TrimSuffix(prefix, "/")
}
