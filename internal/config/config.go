// Package config loads the YAML file driving the vl53l5cx command line tool.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Bus      BusConfig      `yaml:"bus"`
	Pins     PinsConfig     `yaml:"pins"`
	Payloads PayloadsConfig `yaml:"payloads"`
	Ranging  RangingConfig  `yaml:"ranging"`
	Sinks    SinksConfig    `yaml:"sinks"`
}

// ---- BUS ----

type BusConfig struct {
	// Driver is "linux" (i2c-dev through go-i2c) or "periph"
	Driver  string `yaml:"driver"`
	Device  string `yaml:"device"`
	Address uint8  `yaml:"address"`
	// ChunkSize caps a single bus transfer, 0 keeps the driver default
	ChunkSize int `yaml:"chunk_size"`
}

// ---- PINS ----

type PinsConfig struct {
	LPn    string `yaml:"lpn"`
	I2CRst string `yaml:"i2c_rst"`
}

// ---- PAYLOADS ----

type PayloadsConfig struct {
	Firmware      string `yaml:"firmware"`
	Configuration string `yaml:"configuration"`
	Xtalk         string `yaml:"xtalk"`
}

// ---- RANGING ----

type RangingConfig struct {
	Resolution       string   `yaml:"resolution"`
	FrequencyHz      uint8    `yaml:"frequency_hz"`
	IntegrationMs    uint32   `yaml:"integration_ms"`
	Mode             string   `yaml:"mode"`
	TargetOrder      string   `yaml:"target_order"`
	SharpenerPercent *uint8   `yaml:"sharpener_percent"`
	TargetsPerZone   int      `yaml:"targets_per_zone"`
	Outputs          []string `yaml:"outputs"` // empty => all
	RawFormat        bool     `yaml:"raw_format"`
	TimeoutMs        int      `yaml:"timeout_ms"`

	// Motion narrows the distance window of the motion indicator output
	Motion *MotionWindow `yaml:"motion"`
}

type MotionWindow struct {
	MinMM uint16 `yaml:"min_mm"`
	MaxMM uint16 `yaml:"max_mm"`
}

// ---- SINKS ----

type SinksConfig struct {
	Listen string        `yaml:"listen"`
	Serial *SerialConfig `yaml:"serial"`
	Modbus *ModbusConfig `yaml:"modbus"`
}

type SerialConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

type ModbusConfig struct {
	Endpoint  string `yaml:"endpoint"`
	UnitID    uint8  `yaml:"unit_id"`
	Address   uint16 `yaml:"address"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Bus: BusConfig{
			Driver:  "linux",
			Device:  "/dev/i2c-1",
			Address: 0x29,
		},
		Payloads: PayloadsConfig{
			Firmware:      "firmware/vl53l5cx_fw.bin",
			Configuration: "firmware/vl53l5cx_default_config.bin",
			Xtalk:         "firmware/vl53l5cx_default_xtalk.bin",
		},
		Ranging: RangingConfig{
			Resolution:     "4x4",
			FrequencyHz:    1,
			Mode:           "autonomous",
			TargetsPerZone: 1,
			TimeoutMs:      2000,
		},
	}
}

// Load reads path over the defaults. Unknown keys are rejected
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return Parse(raw)
}

// Parse decodes a YAML document over the defaults. Callers run Validate and
// then Normalize on the result
func Parse(raw []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	// an empty document keeps the defaults
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}
