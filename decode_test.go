package bleosc

import (
	"encoding/hex"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(strings.Replace(s, " ", "", -1))
	if err != nil {
		t.Fatalf("bad hex %q: %v", s, err)
	}
	return b
}

func TestDecodeGood(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Payload
	}{
		{
			name: "single field",
			in:   "a1 63 62706d 18 3e",
			want: Payload{{"bpm", Int(62)}},
		},
		{
			name: "field order kept",
			in:   "a2 63 62706d 18 3e 62 7272 19 03b6",
			want: Payload{{"bpm", Int(62)}, {"rr", Int(950)}},
		},
		{
			name: "reverse order kept",
			in:   "a2 62 7272 19 03b6 63 62706d 18 3e",
			want: Payload{{"rr", Int(950)}, {"bpm", Int(62)}},
		},
		{
			name: "indefinite map",
			in:   "bf 63 62706d 18 3e ff",
			want: Payload{{"bpm", Int(62)}},
		},
		{
			name: "trailing padding ignored",
			in:   "a1 63 62706d 18 3e 00 00 00",
			want: Payload{{"bpm", Int(62)}},
		},
		{
			name: "empty map",
			in:   "a0",
			want: Payload{},
		},
		{
			name: "scalar kinds",
			in:   "a5 61 74 fb 4042400000000000 62 6964 61 61 62 6f6e f5 61 7a f6 61 62 42 0102",
			want: Payload{
				{"t", Float(36.5)},
				{"id", Text("a")},
				{"on", Bool(true)},
				{"z", Nil()},
				{"b", Bytes([]byte{1, 2})},
			},
		},
		{
			name: "negative int",
			in:   "a1 61 6e 38 63",
			want: Payload{{"n", Int(-100)}},
		},
		{
			name: "integer keys",
			in:   "a2 01 05 20 06",
			want: Payload{{"1", Int(5)}, {"-1", Int(6)}},
		},
		{
			name: "uint above int64",
			in:   "a1 61 75 1b ffffffffffffffff",
			want: Payload{{"u", Float(18446744073709551615)}},
		},
		{
			name: "unknown tag unwrapped",
			in:   "a1 61 76 d8 64 05",
			want: Payload{{"v", Int(5)}},
		},
		{
			name: "nested map and array flattened",
			in:   "a2 63 616363 a2 61 78 01 61 79 21 61 6e 82 01 02",
			want: Payload{
				{"acc/x", Int(1)},
				{"acc/y", Int(-2)},
				{"n/0", Int(1)},
				{"n/1", Int(2)},
			},
		},
		{
			name: "indefinite array",
			in:   "a1 61 6e 9f 01 02 ff",
			want: Payload{{"n/0", Int(1)}, {"n/1", Int(2)}},
		},
		{
			name: "empty nested map yields nothing",
			in:   "a2 61 65 a0 61 6b 01",
			want: Payload{{"k", Int(1)}},
		},
		{
			name: "self-describe tag",
			in:   "d9d9f7 a1 63 62706d 18 3e",
			want: Payload{{"bpm", Int(62)}},
		},
		{
			name: "empty parent key keeps its level",
			in:   "a2 60 a1 61 78 01 61 78 02",
			want: Payload{{"/x", Int(1)}, {"x", Int(2)}},
		},
		{
			name: "empty key nested twice",
			in:   "a1 61 61 a1 60 a1 61 78 01",
			want: Payload{{"a//x", Int(1)}},
		},
		{
			name: "duplicate keys kept",
			in:   "a2 61 6b 01 61 6b 02",
			want: Payload{{"k", Int(1)}, {"k", Int(2)}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Decode(mustHex(t, tc.in))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestDecodeBad(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"truncated map", "a2 63 6270"},
		{"truncated value", "a1 63 62706d 19 03"},
		{"array outermost", "83 01 02 03"},
		{"int outermost", "18 3e"},
		{"text outermost", "63 62706d"},
		{"byte string key", "a1 41 01 01"},
		{"map key", "a1 a0 01"},
		{"missing break", "bf 63 62706d 18 3e"},
		{"reserved additional info", "a1 61 6b 1c"},
		{"self-describe tag only", "d9d9f7"},
		{"self-describe tag on array", "d9d9f7 83 01 02 03"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, err := Decode(mustHex(t, tc.in))
			if err == nil {
				t.Fatalf("expected error, got %+v", p)
			}
			if !errors.Is(err, ErrDecode) {
				t.Fatalf("expected ErrDecode, got %v", err)
			}
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("expected *DecodeError, got %T", err)
			}
			if p != nil {
				t.Fatalf("expected nil payload, got %+v", p)
			}
		})
	}
}

func TestDecodeDeterministic(t *testing.T) {
	in := mustHex(t, "a3 63 62706d 18 3e 62 7272 19 03b6 63 616363 82 01 21")
	first, err := Decode(in)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		again, err := Decode(in)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("decode %d differs: %+v vs %+v", i, again, first)
		}
	}
}
