package main

import (
	"errors"
	"reflect"
	"testing"

	"github.com/rigado/bleosc"
	"github.com/rigado/bleosc/scanner"
)

func TestHeartRateFitsLegacyAdvertisement(t *testing.T) {
	sim := newHeartRate(1)
	for i := 0; i < 1000; i++ {
		p := sim.next()

		bpm, ok := p.Get("bpm")
		if !ok || bpm.Int < 50 || bpm.Int > 180 {
			t.Fatalf("bpm %+v out of range", bpm)
		}
		rr, ok := p.Get("rr")
		if !ok || rr.Int != 60000/bpm.Int {
			t.Fatalf("rr %+v does not match bpm %d", rr, bpm.Int)
		}

		b, err := bleosc.Encode(p)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := bleosc.ManufacturerPayload(bleosc.ReservedCompanyID, b); err != nil {
			t.Fatal(err)
		}
		got, err := bleosc.Decode(b)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 2 || got[0].Name != "bpm" || got[1].Name != "rr" {
			t.Fatalf("decoded %+v", got)
		}
	}
}

func TestAdvertiseReplays(t *testing.T) {
	p := bleosc.Payload{
		{Name: "bpm", Value: bleosc.Int(62)},
		{Name: "rr", Value: bleosc.Int(950)},
	}
	line, err := advertise("OH1-A1B2", bleosc.ReservedCompanyID, p)
	if err != nil {
		t.Fatal(err)
	}

	ev, err := scanner.ParseLine(line)
	if err != nil {
		t.Fatal(err)
	}
	if ev.Device != "OH1-A1B2" {
		t.Fatalf("device %q", ev.Device)
	}
	got, err := bleosc.Decode(ev.ManufacturerData[bleosc.ReservedCompanyID])
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, p) {
		t.Fatalf("got %+v, want %+v", got, p)
	}
}

func TestAdvertiseTooLarge(t *testing.T) {
	p := bleosc.Payload{{Name: "note", Value: bleosc.Text("this text is far too long for one advertisement")}}
	if _, err := advertise("x", bleosc.ReservedCompanyID, p); !errors.Is(err, bleosc.ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
}
