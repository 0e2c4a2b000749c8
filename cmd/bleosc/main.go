package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/hypebeast/go-osc/osc"
	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/rigado/bleosc"
	"github.com/rigado/bleosc/cache"
	"github.com/rigado/bleosc/config"
	"github.com/rigado/bleosc/metrics"
	"github.com/rigado/bleosc/mqtt"
	"github.com/rigado/bleosc/parser"
	bleoscosc "github.com/rigado/bleosc/osc"
	"github.com/rigado/bleosc/scanner"
)

func main() {
	app := cli.NewApp()

	app.Name = "bleosc"
	app.Usage = "Forward CBOR sensor advertisements to OSC"
	app.Version = "0.1.0"
	app.Flags = globalFlags
	app.Action = run

	app.Commands = []cli.Command{
		{
			Name:   "run",
			Usage:  "Scan with the Bluetooth adapter and forward payloads",
			Action: run,
		},
		{
			Name:      "replay",
			Usage:     "Forward advertisements recorded as JSON lines",
			ArgsUsage: "<file|->",
			Action:    replay,
			Flags:     []cli.Flag{flgInterval},
		},
		{
			Name:   "simulate",
			Usage:  "Print JSON lines for a simulated heart rate sensor",
			Action: simulate,
			Flags: []cli.Flag{
				cli.DurationFlag{Name: "interval, i", Value: defaultSimInterval, Usage: "delay between advertisements"},
				flgCount,
				flgName,
			},
		},
		{
			Name:   "monitor",
			Usage:  "Print OSC messages received on an address",
			Action: monitor,
			Flags:  []cli.Flag{flgListen},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func sigContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// loadConfig reads the config file, then applies flags and environment.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.GlobalString("config"))
	if err != nil {
		return cfg, err
	}

	if c.GlobalIsSet("host") {
		cfg.OSC.Host = c.GlobalString("host")
	}
	if c.GlobalIsSet("port") {
		cfg.OSC.Port = c.GlobalInt("port")
	}
	if c.GlobalIsSet("queue") {
		cfg.OSC.Queue = c.GlobalInt("queue")
	}
	if c.GlobalIsSet("company-id") {
		id, err := strconv.ParseUint(c.GlobalString("company-id"), 0, 16)
		if err != nil {
			return cfg, errors.Wrap(err, "company-id")
		}
		cfg.CompanyID = uint16(id)
	}
	if c.GlobalIsSet("log-level") {
		cfg.LogLevel = c.GlobalString("log-level")
	}
	if c.GlobalIsSet("metrics-addr") {
		cfg.Metrics.Addr = c.GlobalString("metrics-addr")
	}
	if c.GlobalIsSet("mqtt-broker") {
		cfg.MQTT.Broker = c.GlobalString("mqtt-broker")
	}
	if c.GlobalIsSet("adapter") {
		cfg.Adapter = c.GlobalString("adapter")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, bleosc.SetLogLevel(cfg.LogLevel)
}

func run(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.NewExitError(err, 2)
	}
	return forward(cfg, scanner.NewRadio(scanner.Adapter(cfg.Adapter), cache.New()))
}

func replay(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.NewExitError(err, 2)
	}

	var r io.Reader = os.Stdin
	if name := c.Args().First(); name != "" && name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return cli.NewExitError(err, 2)
		}
		defer f.Close()
		r = f
	}
	return forward(cfg, scanner.NewReplay(r, c.Duration("interval")))
}

// forward wires the sinks and runs the bridge until the scanner ends or a
// signal arrives.
func forward(cfg config.Config, s bleosc.Scanner) error {
	ctx, cancel := sigContext()
	defer cancel()

	logger := bleosc.GetLogger()
	m := metrics.New()

	client, err := bleoscosc.Dial(cfg.OSC.Host, cfg.OSC.Port,
		bleoscosc.OptQueueSize(cfg.OSC.Queue),
		bleoscosc.OptErrorHandler(m.WriteFailed),
	)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	logger.Infof("sending OSC to %s", client.RemoteAddr())

	var sink bleosc.Sink = client
	if cfg.MQTT.Broker != "" {
		ms, err := mqtt.Connect(ctx, mqtt.Options{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Prefix:   cfg.MQTT.Prefix,
		})
		if err != nil {
			client.Close()
			return cli.NewExitError(err, 1)
		}
		sink = bleosc.Fanout(m.MirrorFailed, client, ms)
	}

	b, err := bleosc.New(sink,
		bleosc.OptCompanyID(cfg.CompanyID),
		bleosc.OptObserver(m.Observe),
	)
	if err != nil {
		sink.Close()
		return cli.NewExitError(err, 1)
	}

	if cfg.Metrics.Addr != "" {
		go func() {
			if err := m.Serve(ctx, cfg.Metrics.Addr); err != nil {
				logger.Errorf("%v", err)
			}
		}()
	}

	if err := b.Run(ctx, s); err != nil {
		return cli.NewExitError(err, 1)
	}
	return nil
}

func simulate(c *cli.Context) error {
	ctx, cancel := sigContext()
	defer cancel()

	companyID := bleosc.ReservedCompanyID
	if c.GlobalIsSet("company-id") {
		id, err := strconv.ParseUint(c.GlobalString("company-id"), 0, 16)
		if err != nil {
			return cli.NewExitError(errors.Wrap(err, "company-id"), 2)
		}
		companyID = uint16(id)
	}

	sim := newHeartRate(time.Now().UnixNano())
	name := c.String("name")
	for i := 0; c.Int("count") == 0 || i < c.Int("count"); i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.Duration("interval")):
			}
		}

		line, err := advertise(name, companyID, sim.next())
		if err != nil {
			return cli.NewExitError(err, 1)
		}
		if _, err := os.Stdout.Write(line); err != nil {
			return cli.NewExitError(err, 1)
		}
	}
	return nil
}

// advertise renders p the way a sensor would broadcast it: flags and
// manufacturer data in the advertisement, the name in the scan response.
func advertise(name string, companyID uint16, p bleosc.Payload) ([]byte, error) {
	payload, err := bleosc.Encode(p)
	if err != nil {
		return nil, err
	}
	mfg, err := bleosc.ManufacturerPayload(companyID, payload)
	if err != nil {
		return nil, err
	}

	adv, err := parser.NewPacket(parser.Flags(0x06), parser.ManufacturerData(mfg))
	if err != nil {
		return nil, errors.Wrap(err, "advertisement")
	}
	rsp, err := parser.NewPacket(parser.CompleteName(name))
	if err != nil {
		return nil, errors.Wrap(err, "scan response")
	}

	return scanner.Line{
		Addr: name,
		RSSI: -60,
		PDU:  hex.EncodeToString(adv.Bytes()),
		Rsp:  hex.EncodeToString(rsp.Bytes()),
	}.Marshal()
}

// heartRate produces plausible bpm and R-R interval readings.
type heartRate struct {
	rnd *rand.Rand
	bpm int64
}

func newHeartRate(seed int64) *heartRate {
	return &heartRate{rnd: rand.New(rand.NewSource(seed)), bpm: 70}
}

func (h *heartRate) next() bleosc.Payload {
	h.bpm += int64(h.rnd.Intn(5)) - 2
	if h.bpm < 50 {
		h.bpm = 50
	}
	if h.bpm > 180 {
		h.bpm = 180
	}
	return bleosc.Payload{
		{Name: "bpm", Value: bleosc.Int(h.bpm)},
		{Name: "rr", Value: bleosc.Int(60000 / h.bpm)},
	}
}

func monitor(c *cli.Context) error {
	ctx, cancel := sigContext()
	defer cancel()

	m, err := bleoscosc.Listen(c.String("listen"), func(msg *osc.Message) {
		fmt.Println(msg.String())
	})
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer m.Close()

	bleosc.GetLogger().Infof("listening on %s", m.Addr())
	if err := m.Serve(ctx); err != nil {
		return cli.NewExitError(err, 1)
	}
	return nil
}
