package mqtt

import (
	"context"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"

	"github.com/rigado/bleosc"
)

var ErrNotConnected = errors.New("mqtt client not connected")

// Options configures the MQTT mirror.
type Options struct {
	// Broker is a URL such as tcp://localhost:1883.
	Broker   string
	ClientID string

	// Prefix is prepended to the OSC address (without its leading slash) to
	// build the topic.
	Prefix string
}

// Sink mirrors every OSC message to an MQTT topic with the value as text.
// Publishing is QoS 0 and never waits for the broker.
type Sink struct {
	client mqtt.Client
	prefix string
	logger bleosc.Logger
}

// Connect dials the broker and waits for the first connection, or ctx.
func Connect(ctx context.Context, o Options) (*Sink, error) {
	logger := bleosc.GetLogger().ChildLogger(map[string]interface{}{"component": "mqtt"})

	opts := mqtt.NewClientOptions()
	opts.AddBroker(o.Broker)
	opts.SetClientID(o.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		logger.Infof("connected to %s", o.Broker)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warnf("connection lost: %v", err)
	})

	s := newSink(mqtt.NewClient(opts), o.Prefix, logger)

	token := s.client.Connect()
	const poll = 200 * time.Millisecond
	for !token.WaitTimeout(poll) {
		select {
		case <-ctx.Done():
			s.client.Disconnect(0)
			return nil, ctx.Err()
		default:
		}
	}
	if err := token.Error(); err != nil {
		return nil, errors.Wrapf(err, "connect %s", o.Broker)
	}

	return s, nil
}

func newSink(c mqtt.Client, prefix string, logger bleosc.Logger) *Sink {
	return &Sink{client: c, prefix: prefix, logger: logger}
}

// Topic maps an OSC address to its MQTT topic.
func Topic(prefix, address string) string {
	return prefix + strings.TrimPrefix(address, "/")
}

func (s *Sink) Send(address string, v bleosc.Value) error {
	if !s.client.IsConnectionOpen() {
		return ErrNotConnected
	}
	s.client.Publish(Topic(s.prefix, address), 0, false, v.String())
	return nil
}

func (s *Sink) Close() error {
	s.client.Disconnect(250)
	s.logger.Info("disconnected")
	return nil
}
