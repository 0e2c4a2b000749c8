package bleosc

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// Scanner delivers advertisement events until it is stopped.
type Scanner interface {
	// Scan calls h for every advertisement and blocks until ctx is done,
	// Stop is called, or scanning fails.
	Scan(ctx context.Context, h Handler) error
	Stop() error
}

// DecodeFunc decodes manufacturer data into a payload.
type DecodeFunc func(b []byte) (Payload, error)

// Observer receives the outcome of every handled event.
type Observer func(ev Event, o Outcome)

// Outcome describes what Handle did with an event.
type Outcome struct {
	// Accepted is false for events without the reserved manufacturer data.
	Accepted bool

	Fields int
	Sent   int
	Failed int

	// Err is the decode error, or ErrClosed.
	Err      error
	SendErrs []error
}

// Bridge filters advertisements, decodes their payload and routes every
// field to a sink.
type Bridge struct {
	mu        sync.Mutex
	sink      Sink
	companyID uint16
	filter    Filter
	decode    DecodeFunc
	observer  Observer
	logger    Logger

	closed    bool
	closeOnce sync.Once
	closeErr  error
}

// New returns a bridge publishing to sink.
func New(sink Sink, opts ...Option) (*Bridge, error) {
	if sink == nil {
		return nil, errors.New("nil sink")
	}

	b := &Bridge{
		sink:      sink,
		companyID: ReservedCompanyID,
		decode:    Decode,
		logger:    GetLogger().ChildLogger(map[string]interface{}{"component": "bridge"}),
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}
	b.filter = CompanyFilter(b.companyID)

	return b, nil
}

func (b *Bridge) SetCompanyID(id uint16) error {
	b.companyID = id
	return nil
}

func (b *Bridge) SetDecoder(fn DecodeFunc) error {
	if fn == nil {
		return errors.New("nil decoder")
	}
	b.decode = fn
	return nil
}

func (b *Bridge) SetObserver(fn Observer) error {
	b.observer = fn
	return nil
}

func (b *Bridge) SetLogger(l Logger) error {
	if l == nil {
		return errors.New("nil logger")
	}
	b.logger = l
	return nil
}

// Accepts reports whether ev carries manufacturer data under the bridge's
// company identifier.
func (b *Bridge) Accepts(ev Event) bool {
	return b.filter(ev)
}

// Handle runs one event through the filter, the decoder and the router.
// Calls are serialized, so a scanner delivering events from several
// goroutines never sends to the sink concurrently.
func (b *Bridge) Handle(ev Event) (o Outcome) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.observer != nil {
		defer func() { b.observer(ev, o) }()
	}

	if b.closed {
		o.Err = ErrClosed
		return o
	}
	if !b.filter(ev) {
		return o
	}
	o.Accepted = true

	p, err := b.decode(ev.ManufacturerData[b.companyID])
	if err != nil {
		b.logger.ChildLogger(map[string]interface{}{"device": ev.Device}).Warnf("dropping advertisement: %v", err)
		o.Err = err
		return o
	}
	o.Fields = len(p)

	o.SendErrs = Route(ev.Device, p, b.sink)
	for _, err := range o.SendErrs {
		b.logger.ChildLogger(map[string]interface{}{"device": ev.Device}).Warnf("dropping message: %v", err)
	}
	o.Failed = len(o.SendErrs)
	o.Sent = o.Fields - o.Failed
	return o
}

// Run feeds events from s into Handle until ctx is done or the scanner
// returns. When ctx is done the scanner is stopped. The bridge is closed
// before Run returns.
func (b *Bridge) Run(ctx context.Context, s Scanner) error {
	defer b.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- s.Scan(ctx, func(ev Event) { b.Handle(ev) })
	}()

	var err error
	select {
	case <-ctx.Done():
		b.logger.Info("stopping")
		b.markClosed()
		if err := s.Stop(); err != nil {
			b.logger.Warnf("stop scanner: %v", err)
		}
		err = <-done
	case err = <-done:
		// the scanner has already returned, there is nothing to stop
		b.markClosed()
	}

	if err != nil {
		return errors.Wrap(err, "scan")
	}
	return nil
}

// Close stops accepting events and closes the sink. The sink is closed once
// however many times Close is called.
func (b *Bridge) Close() error {
	b.closeOnce.Do(func() {
		b.markClosed()
		b.closeErr = b.sink.Close()
	})
	return b.closeErr
}

func (b *Bridge) markClosed() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
}
