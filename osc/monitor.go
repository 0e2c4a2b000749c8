package osc

import (
	"context"
	"net"

	"github.com/hypebeast/go-osc/osc"
	"github.com/pkg/errors"
)

// HandlerFunc receives every message arriving at a Monitor, including the
// contents of bundles.
type HandlerFunc func(msg *osc.Message)

// Dispatch implements osc.Dispatcher.
func (h HandlerFunc) Dispatch(packet osc.Packet) {
	switch p := packet.(type) {
	case *osc.Message:
		h(p)
	case *osc.Bundle:
		for _, m := range p.Messages {
			h(m)
		}
		for _, b := range p.Bundles {
			h.Dispatch(b)
		}
	}
}

// Monitor listens for OSC datagrams, used to watch what the bridge sends.
type Monitor struct {
	conn   net.PacketConn
	server *osc.Server
}

// Listen binds addr (host:port) and returns a Monitor delivering messages to
// h. h may be called from several goroutines.
func Listen(addr string, h HandlerFunc) (*Monitor, error) {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listen %s", addr)
	}

	return &Monitor{
		conn:   conn,
		server: &osc.Server{Addr: addr, Dispatcher: h},
	}, nil
}

// Addr returns the bound address.
func (m *Monitor) Addr() net.Addr {
	return m.conn.LocalAddr()
}

// Serve handles datagrams until ctx is done.
func (m *Monitor) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		m.conn.Close()
	}()

	err := m.server.Serve(m.conn)
	if ctx.Err() != nil {
		return nil
	}
	return errors.Wrap(err, "serve")
}

// Close releases the socket.
func (m *Monitor) Close() error {
	return m.conn.Close()
}
