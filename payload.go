package bleosc

import (
	"encoding/hex"
	"fmt"
	"strconv"
)

// Kind is the type of a decoded scalar.
type Kind uint8

const (
	KindNil Kind = iota
	KindInt
	KindFloat
	KindText
	KindBool
	KindBytes
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindText:
		return "text"
	case KindBool:
		return "bool"
	case KindBytes:
		return "bytes"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a decoded scalar. Only the field matching Kind is meaningful.
type Value struct {
	Kind  Kind
	Int   int64
	Float float64
	Text  string
	Bool  bool
	Bytes []byte
}

func Int(v int64) Value { return Value{Kind: KindInt, Int: v} }
func Float(v float64) Value { return Value{Kind: KindFloat, Float: v} }
func Text(v string) Value { return Value{Kind: KindText, Text: v} }
func Bool(v bool) Value { return Value{Kind: KindBool, Bool: v} }
func Bytes(v []byte) Value { return Value{Kind: KindBytes, Bytes: v} }
func Nil() Value { return Value{Kind: KindNil} }

// Interface returns the value as a plain Go value: int64, float64, string,
// bool, []byte or nil.
func (v Value) Interface() interface{} {
	switch v.Kind {
	case KindInt:
		return v.Int
	case KindFloat:
		return v.Float
	case KindText:
		return v.Text
	case KindBool:
		return v.Bool
	case KindBytes:
		return v.Bytes
	}
	return nil
}

// String formats the value as text, the way it is mirrored to text based
// sinks.
func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindText:
		return v.Text
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindBytes:
		return hex.EncodeToString(v.Bytes)
	case KindNil:
		return "nil"
	}
	return fmt.Sprintf("%v", v.Interface())
}

// Field is a single named measurement.
type Field struct {
	Name  string
	Value Value
}

// Payload is the ordered list of fields decoded from one advertisement.
type Payload []Field

// Get returns the first field called name.
func (p Payload) Get(name string) (Value, bool) {
	for _, f := range p {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Message is one outbound OSC message.
type Message struct {
	Address string
	Value   Value
}
