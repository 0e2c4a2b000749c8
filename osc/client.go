package osc

import (
	"math"
	"net"
	"strconv"
	"sync"

	"github.com/hypebeast/go-osc/osc"
	"github.com/pkg/errors"

	"github.com/rigado/bleosc"
)

// DefaultQueueSize is the number of messages buffered for the writer.
const DefaultQueueSize = 64

// Option configures a Client.
type Option func(*Client) error

// OptQueueSize sets the number of messages buffered between Send and the
// socket. Zero writes synchronously from Send.
func OptQueueSize(n int) Option {
	return func(c *Client) error {
		if n < 0 {
			return errors.Errorf("invalid queue size %d", n)
		}
		c.queueSize = n
		return nil
	}
}

// OptErrorHandler sets a function called for every write that fails after
// Send returned.
func OptErrorHandler(fn func(address string, err error)) Option {
	return func(c *Client) error {
		c.onWriteErr = fn
		return nil
	}
}

// OptLogger sets the client logger.
func OptLogger(l bleosc.Logger) Option {
	return func(c *Client) error {
		c.logger = l
		return nil
	}
}

// Client is a bleosc.Sink sending one OSC message per datagram to a fixed
// host and port. Messages are written by a single goroutine.
type Client struct {
	conn       *net.UDPConn
	queueSize  int
	queue      chan *osc.Message
	onWriteErr func(string, error)
	logger     bleosc.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// Dial opens the UDP socket used to reach host:port.
func Dial(host string, port int, opts ...Option) (*Client, error) {
	c := &Client{
		queueSize: DefaultQueueSize,
		logger:    bleosc.GetLogger().ChildLogger(map[string]interface{}{"component": "osc"}),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	raddr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s:%d", host, port)
	}
	c.conn, err = net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", raddr)
	}

	if c.queueSize > 0 {
		c.queue = make(chan *osc.Message, c.queueSize)
		c.wg.Add(1)
		go c.writer()
	}

	c.logger.Infof("sending to %s", raddr)
	return c, nil
}

// RemoteAddr returns the address messages are sent to.
func (c *Client) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Send queues a message for address carrying v. It never blocks on the
// network: a full queue drops the message and returns bleosc.ErrQueueFull.
func (c *Client) Send(address string, v bleosc.Value) error {
	msg := osc.NewMessage(address, Argument(v))

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return bleosc.ErrSinkClosed
	}
	if c.queue == nil {
		return c.write(msg)
	}

	select {
	case c.queue <- msg:
		return nil
	default:
		return bleosc.ErrQueueFull
	}
}

// Close flushes queued messages and closes the socket.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	if c.queue != nil {
		close(c.queue)
	}
	c.mu.Unlock()

	c.wg.Wait()
	return c.conn.Close()
}

func (c *Client) writer() {
	defer c.wg.Done()
	for msg := range c.queue {
		if err := c.write(msg); err != nil {
			c.logger.Warnf("dropping message: %v", err)
			if c.onWriteErr != nil {
				c.onWriteErr(msg.Address, err)
			}
		}
	}
}

func (c *Client) write(msg *osc.Message) error {
	b, err := msg.MarshalBinary()
	if err != nil {
		return errors.Wrapf(err, "marshal %s", msg.Address)
	}
	if _, err := c.conn.Write(b); err != nil {
		return errors.Wrapf(err, "write %s", msg.Address)
	}
	return nil
}

// Argument converts a decoded value to its OSC argument. Integers are sent
// as int32 when they fit, int64 otherwise; floats as float32.
func Argument(v bleosc.Value) interface{} {
	switch v.Kind {
	case bleosc.KindInt:
		if v.Int >= math.MinInt32 && v.Int <= math.MaxInt32 {
			return int32(v.Int)
		}
		return v.Int
	case bleosc.KindFloat:
		return float32(v.Float)
	case bleosc.KindText:
		return v.Text
	case bleosc.KindBool:
		return v.Bool
	case bleosc.KindBytes:
		return v.Bytes
	}
	return nil
}
