package bleosc

import "errors"

// Sink delivers outbound messages. Delivery is best effort: a failed Send is
// not retried.
type Sink interface {
	Send(address string, v Value) error
	Close() error
}

// Fanout returns a Sink that sends every message to all of sinks. A send
// fails only when no sink accepted the message. When at least one sink
// accepted it, the failures of the others are passed to onErr, if set, and
// logged at debug level.
func Fanout(onErr func(address string, err error), sinks ...Sink) Sink {
	return &fanout{
		sinks:  sinks,
		onErr:  onErr,
		logger: GetLogger().ChildLogger(map[string]interface{}{"component": "fanout"}),
	}
}

type fanout struct {
	sinks  []Sink
	onErr  func(string, error)
	logger Logger
}

func (f *fanout) Send(address string, v Value) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Send(address, v); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == len(f.sinks) {
		return errors.Join(errs...)
	}

	for _, err := range errs {
		f.logger.Debugf("send %s: %v", address, err)
		if f.onErr != nil {
			f.onErr(address, err)
		}
	}
	return nil
}

func (f *fanout) Close() error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
