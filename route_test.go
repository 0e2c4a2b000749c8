package bleosc

import (
	"errors"
	"reflect"
	"sync"
	"testing"
)

type recordingSink struct {
	mu     sync.Mutex
	msgs   []Message
	failOn map[string]error
	closed int
}

func (s *recordingSink) Send(address string, v Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.failOn[address]; ok {
		return err
	}
	s.msgs = append(s.msgs, Message{Address: address, Value: v})
	return nil
}

func (s *recordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func (s *recordingSink) messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.msgs...)
}

func TestAddress(t *testing.T) {
	if got := Address("OH1-A1B2", "bpm"); got != "/OH1-A1B2/bpm" {
		t.Fatalf("got %q", got)
	}
	if got := Address("dev", "acc/x"); got != "/dev/acc/x" {
		t.Fatalf("got %q", got)
	}
}

func TestRouteOrder(t *testing.T) {
	s := &recordingSink{}
	p := Payload{{"bpm", Int(62)}, {"rr", Int(950)}}

	if errs := Route("OH1-A1B2", p, s); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	want := []Message{
		{"/OH1-A1B2/bpm", Int(62)},
		{"/OH1-A1B2/rr", Int(950)},
	}
	if got := s.messages(); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestRouteEmptyPayload(t *testing.T) {
	s := &recordingSink{}
	if errs := Route("dev", Payload{}, s); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if got := s.messages(); len(got) != 0 {
		t.Fatalf("expected no messages, got %+v", got)
	}
}

func TestRouteContinuesAfterFailure(t *testing.T) {
	boom := errors.New("boom")
	s := &recordingSink{failOn: map[string]error{"/dev/a": boom}}
	p := Payload{{"a", Int(1)}, {"b", Int(2)}, {"c", Int(3)}}

	errs := Route("dev", p, s)
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %v", errs)
	}

	var se *SendError
	if !errors.As(errs[0], &se) {
		t.Fatalf("expected *SendError, got %T", errs[0])
	}
	if se.Address != "/dev/a" || se.Device != "dev" || !errors.Is(se, boom) {
		t.Fatalf("unexpected send error %+v", se)
	}

	want := []Message{{"/dev/b", Int(2)}, {"/dev/c", Int(3)}}
	if got := s.messages(); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestFanout(t *testing.T) {
	boom := errors.New("boom")
	a := &recordingSink{}
	b := &recordingSink{failOn: map[string]error{"/dev/x": boom}}

	var partial []string
	f := Fanout(func(address string, err error) {
		if !errors.Is(err, boom) {
			t.Errorf("unexpected error %v", err)
		}
		partial = append(partial, address)
	}, a, b)

	// a delivered it, so the message is not lost
	if err := f.Send("/dev/x", Int(1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.Send("/dev/y", Int(2)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(a.messages()) != 2 || len(b.messages()) != 1 {
		t.Fatalf("unexpected deliveries: %+v %+v", a.messages(), b.messages())
	}
	if !reflect.DeepEqual(partial, []string{"/dev/x"}) {
		t.Fatalf("partial failures %v", partial)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	if a.closed != 1 || b.closed != 1 {
		t.Fatalf("expected both sinks closed once")
	}
}

func TestFanoutAllFail(t *testing.T) {
	boom := errors.New("boom")
	bang := errors.New("bang")
	a := &recordingSink{failOn: map[string]error{"/dev/x": boom}}
	b := &recordingSink{failOn: map[string]error{"/dev/x": bang}}

	called := false
	f := Fanout(func(string, error) { called = true }, a, b)
	err := f.Send("/dev/x", Int(1))
	if !errors.Is(err, boom) || !errors.Is(err, bang) {
		t.Fatalf("expected both errors, got %v", err)
	}
	if called {
		t.Fatal("total failure reported as partial")
	}
}

func TestHandleFanoutPartialFailure(t *testing.T) {
	primary := &recordingSink{}
	mirror := &recordingSink{failOn: map[string]error{"/dev/bpm": errors.New("mqtt not connected")}}

	b, err := New(Fanout(nil, primary, mirror))
	if err != nil {
		t.Fatal(err)
	}
	o := b.Handle(Event{Device: "dev", ManufacturerData: reserved(t, "a1 63 62706d 18 3e")})
	if o.Sent != 1 || o.Failed != 0 || len(o.SendErrs) != 0 {
		t.Fatalf("unexpected outcome %+v", o)
	}
	if len(primary.messages()) != 1 {
		t.Fatalf("primary got %+v", primary.messages())
	}
}
