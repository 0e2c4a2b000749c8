package bleosc

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrDecode matches every *DecodeError.
	ErrDecode = errors.New("malformed payload")

	// ErrClosed is reported for events delivered after the bridge was closed.
	ErrClosed = errors.New("bridge closed")

	// ErrSinkClosed is returned by sinks after Close.
	ErrSinkClosed = errors.New("sink closed")

	// ErrQueueFull is returned when an asynchronous sink cannot accept more
	// messages without blocking.
	ErrQueueFull = errors.New("send queue full")

	// ErrPayloadTooLarge is returned when an encoded payload does not fit in a
	// legacy advertising PDU.
	ErrPayloadTooLarge = errors.New("payload too large for legacy advertising")
)

// DecodeError is returned when manufacturer data is not a well formed CBOR
// map. Field is the flattened name being decoded when decoding failed, empty
// for errors in the outermost item.
type DecodeError struct {
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("decode payload: %v", e.Err)
	}
	return fmt.Sprintf("decode payload field %q: %v", e.Field, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrDecode) true for every DecodeError.
func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// SendError reports a message a sink failed to deliver.
type SendError struct {
	Device  string
	Address string
	Err     error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send %s: %v", e.Address, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }
