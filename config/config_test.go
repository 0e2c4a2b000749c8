package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bleosc.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Fatalf("got %+v", cfg)
	}
	if cfg.OSC.Host != "127.0.0.1" || cfg.OSC.Port != 9001 || cfg.CompanyID != 0xffff {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeFile(t, `
osc:
  host: 10.0.0.5
  port: 8000
company_id: 0x0059
metrics:
  addr: ":9100"
mqtt:
  broker: tcp://localhost:1883
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	want := Default()
	want.OSC.Host = "10.0.0.5"
	want.OSC.Port = 8000
	want.CompanyID = 0x0059
	want.Metrics.Addr = ":9100"
	want.MQTT.Broker = "tcp://localhost:1883"
	if !reflect.DeepEqual(cfg, want) {
		t.Fatalf("got %+v, want %+v", cfg, want)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad port", "osc:\n  port: 70000\n"},
		{"negative queue", "osc:\n  queue: -1\n"},
		{"empty host", "osc:\n  host: \"\"\n"},
		{"not yaml", "osc: [\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeFile(t, tc.content)); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
