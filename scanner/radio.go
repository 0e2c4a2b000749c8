package scanner

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"tinygo.org/x/bluetooth"

	"github.com/rigado/bleosc"
)

// scanAdapter is the part of *bluetooth.Adapter the radio uses.
type scanAdapter interface {
	Enable() error
	Scan(callback func(*bluetooth.Adapter, bluetooth.ScanResult)) error
	StopScan() error
}

const (
	stopRetries  = 20
	stopInterval = 50 * time.Millisecond
)

// Radio scans with the host Bluetooth adapter (BlueZ, CoreBluetooth or
// WinRT). It never connects to the devices it sees.
type Radio struct {
	adapter scanAdapter
	names   bleosc.NameCache
	logger  bleosc.Logger

	mu       sync.Mutex
	stopped  bool
	scanning bool
	scanDone chan struct{}
}

// NewRadio returns a scanner on adapter, or on the default adapter when nil.
// Local names are remembered in names when it is not nil, so a device keeps
// its name in advertisements that omit it.
func NewRadio(adapter *bluetooth.Adapter, names bleosc.NameCache) *Radio {
	if adapter == nil {
		adapter = bluetooth.DefaultAdapter
	}
	return newRadio(adapter, names)
}

func newRadio(adapter scanAdapter, names bleosc.NameCache) *Radio {
	return &Radio{
		adapter: adapter,
		names:   names,
		logger:  bleosc.GetLogger().ChildLogger(map[string]interface{}{"component": "radio"}),
	}
}

// Scan enables the adapter and delivers every advertisement to h until ctx
// is done or Stop is called. Failing to enable the adapter is returned.
// Scan returns nil without scanning when it is stopped before the scan
// starts.
func (r *Radio) Scan(ctx context.Context, h bleosc.Handler) error {
	if err := r.adapter.Enable(); err != nil {
		return errors.Wrap(err, "enable adapter")
	}

	r.mu.Lock()
	if r.stopped || ctx.Err() != nil {
		r.mu.Unlock()
		r.logger.Info("stopped before scanning")
		return nil
	}
	scanDone := make(chan struct{})
	r.scanning = true
	r.scanDone = scanDone
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.scanning = false
		r.mu.Unlock()
		close(scanDone)
	}()

	go func() {
		select {
		case <-ctx.Done():
			r.Stop()
		case <-scanDone:
		}
	}()

	r.logger.Info("scanning")
	err := r.adapter.Scan(func(_ *bluetooth.Adapter, res bluetooth.ScanResult) {
		addr := res.Address.String()
		h(eventFrom(r.name(addr, res.LocalName()), addr, res.RSSI, res.ManufacturerData()))
	})

	r.mu.Lock()
	stopped := r.stopped
	r.mu.Unlock()
	if stopped || ctx.Err() != nil {
		r.logger.Info("scanning stopped")
		return nil
	}
	return errors.Wrap(err, "scan")
}

// Stop ends a running scan, or keeps a scan that has not started yet from
// starting. Calls after the first have no effect.
//
// The adapter may report that it is not scanning when Stop races with the
// start of a scan, so stopping is retried until the scan returns.
func (r *Radio) Stop() error {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return nil
	}
	r.stopped = true
	scanning, scanDone := r.scanning, r.scanDone
	r.mu.Unlock()

	if !scanning {
		return nil
	}

	var err error
	for i := 0; i < stopRetries; i++ {
		if err = r.adapter.StopScan(); err == nil {
			return nil
		}
		select {
		case <-scanDone:
			return nil
		case <-time.After(stopInterval):
		}
	}
	return errors.Wrap(err, "stop scan")
}

func (r *Radio) name(addr, name string) string {
	if r.names == nil {
		return name
	}
	if name == "" {
		name, _ = r.names.Load(addr)
		return name
	}
	if err := r.names.Store(addr, name); err != nil {
		r.logger.Warnf("cache name of %s: %v", addr, err)
	}
	return name
}

func eventFrom(name, addr string, rssi int16, mfg []bluetooth.ManufacturerDataElement) bleosc.Event {
	ev := bleosc.Event{
		Device:  name,
		Address: addr,
		RSSI:    rssi,
	}
	if ev.Device == "" {
		ev.Device = addr
	}
	if len(mfg) != 0 {
		ev.ManufacturerData = make(map[uint16][]byte, len(mfg))
		for _, m := range mfg {
			ev.ManufacturerData[m.CompanyID] = append(ev.ManufacturerData[m.CompanyID], m.Data...)
		}
	}
	return ev
}
