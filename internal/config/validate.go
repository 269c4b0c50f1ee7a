package config

import (
	"fmt"
	"strings"

	vl53l5cx "github.com/swdee/go-vl53l5cx"
)

var outputNames = []string{
	"ambient_per_spad",
	"nb_spads_enabled",
	"nb_target_detected",
	"signal_per_spad",
	"range_sigma_mm",
	"distance_mm",
	"reflectance_percent",
	"target_status",
	"motion_indicator",
}

// Validate checks configuration correctness.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	// ---- bus ----

	switch strings.ToLower(cfg.Bus.Driver) {
	case "linux", "periph":
	default:
		return fmt.Errorf("bus: unknown driver %q (use linux or periph)", cfg.Bus.Driver)
	}

	if strings.EqualFold(cfg.Bus.Driver, "linux") && cfg.Bus.Device == "" {
		return fmt.Errorf("bus: device is required for the linux driver")
	}

	if cfg.Bus.Address == 0 || cfg.Bus.Address > 0x7F {
		return fmt.Errorf("bus: address 0x%02X is not a 7 bit I2C address", cfg.Bus.Address)
	}

	if cfg.Bus.ChunkSize != 0 && (cfg.Bus.ChunkSize < 6 || cfg.Bus.ChunkSize > 255) {
		return fmt.Errorf("bus: chunk_size %d out of range 6..255", cfg.Bus.ChunkSize)
	}

	// ---- payloads ----

	if cfg.Payloads.Firmware == "" || cfg.Payloads.Configuration == "" || cfg.Payloads.Xtalk == "" {
		return fmt.Errorf("payloads: firmware, configuration and xtalk paths are required")
	}

	// ---- ranging ----

	r := cfg.Ranging

	res, err := ParseResolution(r.Resolution)
	if err != nil {
		return fmt.Errorf("ranging: %w", err)
	}

	maxHz := uint8(60)
	if res == vl53l5cx.Resolution8x8 {
		maxHz = 15
	}
	if r.FrequencyHz < 1 || r.FrequencyHz > maxHz {
		return fmt.Errorf("ranging: frequency_hz %d out of range 1..%d for %s", r.FrequencyHz, maxHz, res)
	}

	if r.IntegrationMs != 0 && (r.IntegrationMs < 2 || r.IntegrationMs > 1000) {
		return fmt.Errorf("ranging: integration_ms %d out of range 2..1000", r.IntegrationMs)
	}

	if _, err := ParseRangingMode(r.Mode); err != nil {
		return fmt.Errorf("ranging: %w", err)
	}

	if r.TargetOrder != "" {
		if _, err := ParseTargetOrder(r.TargetOrder); err != nil {
			return fmt.Errorf("ranging: %w", err)
		}
	}

	if r.SharpenerPercent != nil && *r.SharpenerPercent > 99 {
		return fmt.Errorf("ranging: sharpener_percent %d out of range 0..99", *r.SharpenerPercent)
	}

	if r.TargetsPerZone < 1 || r.TargetsPerZone > vl53l5cx.MaxTargetsPerZone {
		return fmt.Errorf("ranging: targets_per_zone %d out of range 1..%d", r.TargetsPerZone, vl53l5cx.MaxTargetsPerZone)
	}

	if _, err := ParseOutputs(r.Outputs); err != nil {
		return fmt.Errorf("ranging: %w", err)
	}

	if r.TimeoutMs <= 0 {
		return fmt.Errorf("ranging: timeout_ms must be positive")
	}

	if m := r.Motion; m != nil {
		if m.MinMM < 400 || m.MaxMM > 4000 || m.MaxMM < m.MinMM || m.MaxMM-m.MinMM > 1500 {
			return fmt.Errorf("ranging.motion: window %d-%d mm must lie in 400..4000 and span at most 1500", m.MinMM, m.MaxMM)
		}
	}

	// ---- sinks ----

	if s := cfg.Sinks.Serial; s != nil {
		if s.Port == "" {
			return fmt.Errorf("sinks.serial: port is required")
		}
		if s.Baud <= 0 {
			return fmt.Errorf("sinks.serial: baud must be positive")
		}
	}

	if m := cfg.Sinks.Modbus; m != nil {
		if m.Endpoint == "" {
			return fmt.Errorf("sinks.modbus: endpoint is required")
		}

		// one holding register per zone and target
		regs := vl53l5cx.MaxZones * r.TargetsPerZone
		if int(m.Address)+regs > 0x10000 {
			return fmt.Errorf(
				"sinks.modbus: %d registers starting at %d overflow the register space",
				regs,
				m.Address,
			)
		}
	}

	return nil
}

// Normalize lower-cases the enumerated settings.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	cfg.Bus.Driver = strings.ToLower(cfg.Bus.Driver)
	cfg.Ranging.Resolution = strings.ToLower(cfg.Ranging.Resolution)
	cfg.Ranging.Mode = strings.ToLower(cfg.Ranging.Mode)
	cfg.Ranging.TargetOrder = strings.ToLower(cfg.Ranging.TargetOrder)

	for i, o := range cfg.Ranging.Outputs {
		cfg.Ranging.Outputs[i] = strings.ToLower(o)
	}

	if m := cfg.Sinks.Modbus; m != nil && m.TimeoutMs == 0 {
		m.TimeoutMs = 1000
	}
}

// ParseResolution maps "4x4" or "8x8" to a sensor resolution
func ParseResolution(s string) (vl53l5cx.Resolution, error) {
	switch strings.ToLower(s) {
	case "4x4":
		return vl53l5cx.Resolution4x4, nil
	case "8x8":
		return vl53l5cx.Resolution8x8, nil
	}

	return 0, fmt.Errorf("unknown resolution %q (use 4x4 or 8x8)", s)
}

// ParseRangingMode maps "continuous" or "autonomous" to a ranging mode
func ParseRangingMode(s string) (vl53l5cx.RangingMode, error) {
	switch strings.ToLower(s) {
	case "continuous":
		return vl53l5cx.Continuous, nil
	case "autonomous":
		return vl53l5cx.Autonomous, nil
	}

	return 0, fmt.Errorf("unknown ranging mode %q (use continuous or autonomous)", s)
}

// ParseTargetOrder maps "closest" or "strongest" to a target order
func ParseTargetOrder(s string) (vl53l5cx.TargetOrder, error) {
	switch strings.ToLower(s) {
	case "closest":
		return vl53l5cx.Closest, nil
	case "strongest":
		return vl53l5cx.Strongest, nil
	}

	return 0, fmt.Errorf("unknown target order %q (use closest or strongest)", s)
}

// ParseOutputs builds the output selection from names, an empty list
// selects every output
func ParseOutputs(names []string) (vl53l5cx.Outputs, error) {
	if len(names) == 0 {
		return vl53l5cx.AllOutputs(), nil
	}

	var o vl53l5cx.Outputs

	for _, n := range names {
		switch strings.ToLower(n) {
		case "ambient_per_spad":
			o.AmbientPerSpad = true
		case "nb_spads_enabled":
			o.NbSpadsEnabled = true
		case "nb_target_detected":
			o.NbTargetDetected = true
		case "signal_per_spad":
			o.SignalPerSpad = true
		case "range_sigma_mm":
			o.RangeSigmaMM = true
		case "distance_mm":
			o.DistanceMM = true
		case "reflectance_percent":
			o.ReflectancePercent = true
		case "target_status":
			o.TargetStatus = true
		case "motion_indicator":
			o.MotionIndicator = true
		default:
			return o, fmt.Errorf("unknown output %q (known: %s)", n, strings.Join(outputNames, ", "))
		}
	}

	return o, nil
}
