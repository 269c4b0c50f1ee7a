package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	vl53l5cx "github.com/swdee/go-vl53l5cx"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
bus:
  driver: Periph
  address: 0x30
ranging:
  resolution: 8X8
  frequency_hz: 15
  mode: continuous
  target_order: closest
  sharpener_percent: 0
  targets_per_zone: 2
  outputs: [distance_mm, target_status]
  motion:
    min_mm: 1000
    max_mm: 2500
sinks:
  listen: ":8080"
  modbus:
    endpoint: 127.0.0.1:502
    unit_id: 3
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	Normalize(cfg)

	if cfg.Bus.Driver != "periph" || cfg.Bus.Address != 0x30 {
		t.Fatalf("bus = %+v", cfg.Bus)
	}
	// untouched keys keep their defaults
	if cfg.Bus.Device != "/dev/i2c-1" {
		t.Fatalf("device = %q", cfg.Bus.Device)
	}
	if cfg.Ranging.Resolution != "8x8" || cfg.Ranging.TargetsPerZone != 2 {
		t.Fatalf("ranging = %+v", cfg.Ranging)
	}
	if cfg.Ranging.SharpenerPercent == nil || *cfg.Ranging.SharpenerPercent != 0 {
		t.Fatalf("sharpener not set explicitly")
	}
	if m := cfg.Ranging.Motion; m == nil || m.MinMM != 1000 || m.MaxMM != 2500 {
		t.Fatalf("motion = %+v", cfg.Ranging.Motion)
	}
	if cfg.Sinks.Modbus.TimeoutMs != 1000 {
		t.Fatalf("modbus timeout = %d", cfg.Sinks.Modbus.TimeoutMs)
	}
}

func TestParseEmptyKeepsDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Ranging.Resolution != "4x4" {
		t.Fatalf("resolution = %q", cfg.Ranging.Resolution)
	}
}

func TestParseRejectsUnknownKey(t *testing.T) {
	_, err := Parse([]byte("ranging:\n  resolutoin: 8x8\n"))
	if err == nil {
		t.Fatalf("expected error for misspelt key")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sensor.yaml")
	if err := os.WriteFile(path, []byte("bus:\n  device: /dev/i2c-3\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Bus.Device != "/dev/i2c-3" {
		t.Fatalf("device = %q", cfg.Bus.Device)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestValidateRejects(t *testing.T) {
	sharp := uint8(100)

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"driver", func(c *Config) { c.Bus.Driver = "spi" }, "unknown driver"},
		{"device", func(c *Config) { c.Bus.Device = "" }, "device is required"},
		{"address", func(c *Config) { c.Bus.Address = 0x80 }, "7 bit"},
		{"chunk", func(c *Config) { c.Bus.ChunkSize = 4 }, "chunk_size"},
		{"payloads", func(c *Config) { c.Payloads.Xtalk = "" }, "payloads"},
		{"resolution", func(c *Config) { c.Ranging.Resolution = "2x2" }, "unknown resolution"},
		{"frequency 8x8", func(c *Config) {
			c.Ranging.Resolution = "8x8"
			c.Ranging.FrequencyHz = 16
		}, "1..15"},
		{"frequency zero", func(c *Config) { c.Ranging.FrequencyHz = 0 }, "1..60"},
		{"integration", func(c *Config) { c.Ranging.IntegrationMs = 1 }, "integration_ms"},
		{"mode", func(c *Config) { c.Ranging.Mode = "burst" }, "ranging mode"},
		{"order", func(c *Config) { c.Ranging.TargetOrder = "nearest" }, "target order"},
		{"sharpener", func(c *Config) { c.Ranging.SharpenerPercent = &sharp }, "sharpener_percent"},
		{"targets", func(c *Config) { c.Ranging.TargetsPerZone = 5 }, "targets_per_zone"},
		{"outputs", func(c *Config) { c.Ranging.Outputs = []string{"colour"} }, "unknown output"},
		{"timeout", func(c *Config) { c.Ranging.TimeoutMs = 0 }, "timeout_ms"},
		{"motion range", func(c *Config) { c.Ranging.Motion = &MotionWindow{MinMM: 300, MaxMM: 1000} }, "ranging.motion"},
		{"motion span", func(c *Config) { c.Ranging.Motion = &MotionWindow{MinMM: 1000, MaxMM: 2600} }, "ranging.motion"},
		{"motion order", func(c *Config) { c.Ranging.Motion = &MotionWindow{MinMM: 2000, MaxMM: 1000} }, "ranging.motion"},
		{"serial port", func(c *Config) { c.Sinks.Serial = &SerialConfig{Baud: 115200} }, "port is required"},
		{"serial baud", func(c *Config) { c.Sinks.Serial = &SerialConfig{Port: "/dev/ttyUSB0"} }, "baud"},
		{"modbus endpoint", func(c *Config) { c.Sinks.Modbus = &ModbusConfig{} }, "endpoint is required"},
		{"modbus overflow", func(c *Config) {
			c.Sinks.Modbus = &ModbusConfig{Endpoint: "plc:502", Address: 0xFFF0}
		}, "overflow"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestParseOutputs(t *testing.T) {
	o, err := ParseOutputs(nil)
	if err != nil || o != vl53l5cx.AllOutputs() {
		t.Fatalf("empty list should select all outputs, got %+v %v", o, err)
	}

	o, err = ParseOutputs([]string{"Distance_MM", "motion_indicator"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := vl53l5cx.Outputs{DistanceMM: true, MotionIndicator: true}
	if o != want {
		t.Fatalf("outputs = %+v, want %+v", o, want)
	}
}
