package scanner

import (
	"bufio"
	"bytes"
	"context"
	"encoding/hex"
	"io"
	"strconv"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/rigado/bleosc"
	"github.com/rigado/bleosc/parser"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Line is one recorded advertisement. Manufacturer data is given either
// directly, keyed by company id ("65535" or "0xffff"), or as raw advertising
// and scan response PDUs.
type Line struct {
	Name string            `json:"name,omitempty"`
	Addr string            `json:"addr,omitempty"`
	RSSI int16             `json:"rssi,omitempty"`
	MFG  map[string]string `json:"mfg,omitempty"`
	PDU  string            `json:"pdu,omitempty"`
	Rsp  string            `json:"rsp,omitempty"`
}

// ParseLine decodes a JSON line into an event.
func ParseLine(b []byte) (bleosc.Event, error) {
	var l Line
	if err := json.Unmarshal(b, &l); err != nil {
		return bleosc.Event{}, errors.Wrap(err, "json")
	}

	ev := bleosc.Event{
		Device:  l.Name,
		Address: l.Addr,
		RSSI:    l.RSSI,
	}

	if l.PDU != "" || l.Rsp != "" {
		r, err := parseRecord(l.PDU, l.Rsp)
		if err != nil {
			return ev, err
		}
		if ev.Device == "" {
			ev.Device = r.LocalName
		}
		for id, data := range r.ManufacturerData {
			addMfg(&ev, id, data)
		}
	}

	for k, v := range l.MFG {
		id, err := strconv.ParseUint(k, 0, 16)
		if err != nil {
			return ev, errors.Wrapf(err, "company id %q", k)
		}
		data, err := hex.DecodeString(v)
		if err != nil {
			return ev, errors.Wrapf(err, "mfg data for %s", k)
		}
		addMfg(&ev, uint16(id), data)
	}

	if ev.Device == "" {
		ev.Device = ev.Address
	}
	return ev, nil
}

// Marshal encodes l as one newline terminated JSON line.
func (l Line) Marshal() ([]byte, error) {
	b, err := json.Marshal(l)
	if err != nil {
		return nil, errors.Wrap(err, "json")
	}
	return append(b, '\n'), nil
}

// parseRecord parses an advertising PDU and folds its scan response into it.
func parseRecord(pdu, rsp string) (parser.Record, error) {
	var r parser.Record
	for _, h := range []string{pdu, rsp} {
		if h == "" {
			continue
		}
		raw, err := hex.DecodeString(h)
		if err != nil {
			return r, errors.Wrap(err, "pdu")
		}
		p, err := parser.Parse(raw)
		if err != nil {
			return r, errors.Wrap(err, "pdu")
		}
		r.Merge(p)
	}
	return r, nil
}

func addMfg(ev *bleosc.Event, id uint16, data []byte) {
	if ev.ManufacturerData == nil {
		ev.ManufacturerData = make(map[uint16][]byte)
	}
	ev.ManufacturerData[id] = append(ev.ManufacturerData[id], data...)
}

// Replay delivers advertisements recorded as JSON lines. Malformed lines are
// logged and skipped; blank lines and lines starting with # are ignored.
type Replay struct {
	r        io.Reader
	interval time.Duration
	logger   bleosc.Logger

	stop     chan struct{}
	stopOnce sync.Once
}

// NewReplay reads lines from r, waiting interval between events.
func NewReplay(r io.Reader, interval time.Duration) *Replay {
	return &Replay{
		r:        r,
		interval: interval,
		logger:   bleosc.GetLogger().ChildLogger(map[string]interface{}{"component": "replay"}),
		stop:     make(chan struct{}),
	}
}

// Scan returns at the end of input, when ctx is done, or after Stop. A read
// blocked on r does not delay the return.
func (p *Replay) Scan(ctx context.Context, h bleosc.Handler) error {
	lines := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(p.r)
		for sc.Scan() {
			b := append([]byte(nil), sc.Bytes()...)
			select {
			case lines <- b:
			case <-ctx.Done():
				return
			case <-p.stop:
				return
			}
		}
		readErr <- sc.Err()
	}()

	n := 0
	for {
		var b []byte
		var ok bool
		select {
		case <-ctx.Done():
			return nil
		case <-p.stop:
			return nil
		case b, ok = <-lines:
		}
		if !ok {
			break
		}

		n++
		b = bytes.TrimSpace(b)
		if len(b) == 0 || b[0] == '#' {
			continue
		}

		ev, err := ParseLine(b)
		if err != nil {
			p.logger.Warnf("line %d: %v", n, err)
			continue
		}
		h(ev)

		if p.interval > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-p.stop:
				return nil
			case <-time.After(p.interval):
			}
		}
	}

	select {
	case err := <-readErr:
		return errors.Wrap(err, "read")
	default:
		return nil
	}
}

func (p *Replay) Stop() error {
	p.stopOnce.Do(func() { close(p.stop) })
	return nil
}
