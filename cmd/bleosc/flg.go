package main

import (
	"time"

	"github.com/urfave/cli"
)

var (
	flgConfig    = cli.StringFlag{Name: "config, c", EnvVar: "BLEOSC_CONFIG", Usage: "YAML config file"}
	flgHost      = cli.StringFlag{Name: "host", EnvVar: "BLEOSC_HOST", Usage: "OSC destination host (default 127.0.0.1)"}
	flgPort      = cli.IntFlag{Name: "port, p", EnvVar: "BLEOSC_PORT", Usage: "OSC destination port (default 9001)"}
	flgQueue     = cli.IntFlag{Name: "queue", EnvVar: "BLEOSC_QUEUE", Usage: "OSC send queue size, 0 to send synchronously"}
	flgCompanyID = cli.StringFlag{Name: "company-id", EnvVar: "BLEOSC_COMPANY_ID", Usage: "manufacturer id carrying CBOR payloads (default 0xffff)"}
	flgLogLevel  = cli.StringFlag{Name: "log-level", EnvVar: "BLEOSC_LOG_LEVEL", Usage: "debug, info, warn or error"}
	flgMetrics   = cli.StringFlag{Name: "metrics-addr", EnvVar: "BLEOSC_METRICS_ADDR", Usage: "serve Prometheus metrics on this address"}
	flgBroker    = cli.StringFlag{Name: "mqtt-broker", EnvVar: "BLEOSC_MQTT_BROKER", Usage: "also publish every value to this MQTT broker"}
	flgAdapter   = cli.StringFlag{Name: "adapter", EnvVar: "BLEOSC_ADAPTER", Usage: "Bluetooth adapter (Linux only, e.g. hci1)"}

	flgInterval = cli.DurationFlag{Name: "interval, i", Usage: "delay between events"}
	flgCount    = cli.IntFlag{Name: "count, n", Value: 0, Usage: "number of advertisements, 0 for no limit"}
	flgName     = cli.StringFlag{Name: "name", Value: "sim-hr", Usage: "simulated device name"}
	flgListen   = cli.StringFlag{Name: "listen, l", Value: "127.0.0.1:9001", Usage: "address to receive OSC on"}
)

var globalFlags = []cli.Flag{
	flgConfig, flgHost, flgPort, flgQueue, flgCompanyID,
	flgLogLevel, flgMetrics, flgBroker, flgAdapter,
}

const defaultSimInterval = 500 * time.Millisecond
