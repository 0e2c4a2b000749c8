package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/rigado/bleosc"
	"github.com/rigado/bleosc/osc"
)

const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 9001
)

// Config is read once at startup.
type Config struct {
	OSC       OSC     `yaml:"osc"`
	CompanyID uint16  `yaml:"company_id"`
	Adapter   string  `yaml:"adapter"`
	LogLevel  string  `yaml:"log_level"`
	Metrics   Metrics `yaml:"metrics"`
	MQTT      MQTT    `yaml:"mqtt"`
}

type OSC struct {
	Host  string `yaml:"host"`
	Port  int    `yaml:"port"`
	Queue int    `yaml:"queue"`
}

type Metrics struct {
	// Addr is the listen address of the /metrics endpoint, empty to disable.
	Addr string `yaml:"addr"`
}

type MQTT struct {
	// Broker enables the MQTT mirror when set, e.g. tcp://localhost:1883.
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Prefix   string `yaml:"prefix"`
}

func Default() Config {
	return Config{
		OSC: OSC{
			Host:  DefaultHost,
			Port:  DefaultPort,
			Queue: osc.DefaultQueueSize,
		},
		CompanyID: bleosc.ReservedCompanyID,
		LogLevel:  "info",
		MQTT: MQTT{
			ClientID: "bleosc",
			Prefix:   "bleosc/",
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.OSC.Host == "" {
		return errors.New("osc host is empty")
	}
	if c.OSC.Port < 1 || c.OSC.Port > 65535 {
		return errors.Errorf("osc port %d out of range", c.OSC.Port)
	}
	if c.OSC.Queue < 0 {
		return errors.Errorf("osc queue %d is negative", c.OSC.Queue)
	}
	return nil
}
