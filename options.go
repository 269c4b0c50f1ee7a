package vl53l5cx

import (
	"fmt"
	"io"
	"log"
	"time"

	"periph.io/x/conn/v3/gpio"
)

const (
	// ChunkSize is the default maximum bus transfer size in bytes
	ChunkSize = 32

	// MaxTargetsPerZone is the most targets the firmware reports per zone
	MaxTargetsPerZone = 4
)

// Outputs selects which result fields the sensor streams. Disabled fields are
// left out of the frame and stay zero in ResultsData
type Outputs struct {
	AmbientPerSpad     bool
	NbSpadsEnabled     bool
	NbTargetDetected   bool
	SignalPerSpad      bool
	RangeSigmaMM       bool
	DistanceMM         bool
	ReflectancePercent bool
	TargetStatus       bool
	MotionIndicator    bool
}

// AllOutputs returns an Outputs with every field enabled
func AllOutputs() Outputs {
	return Outputs{
		AmbientPerSpad:     true,
		NbSpadsEnabled:     true,
		NbTargetDetected:   true,
		SignalPerSpad:      true,
		RangeSigmaMM:       true,
		DistanceMM:         true,
		ReflectancePercent: true,
		TargetStatus:       true,
		MotionIndicator:    true,
	}
}

// enableMask returns the output enable bits for the optional fields, bits 0-2
// (start, metadata, common data) are always set by the caller
func (o Outputs) enableMask() uint32 {

	var mask uint32

	flags := []bool{
		o.AmbientPerSpad,
		o.NbSpadsEnabled,
		o.NbTargetDetected,
		o.SignalPerSpad,
		o.RangeSigmaMM,
		o.DistanceMM,
		o.ReflectancePercent,
		o.TargetStatus,
		o.MotionIndicator,
	}

	for i, on := range flags {
		if on {
			mask |= 1 << (3 + i)
		}
	}

	return mask
}

// Config holds the sensor instance configuration
type Config struct {
	// TargetsPerZone is the number of targets reported per zone (1-4)
	TargetsPerZone int

	// Outputs selects the streamed result fields
	Outputs Outputs

	// RawFormat disables conversion of results to physical units
	RawFormat bool

	// ChunkSize is the maximum bytes per bus transfer including the 2 byte
	// register address
	ChunkSize int

	// LPn and I2CRst are the power enable and I2C reset pins, nil when hard
	// wired
	LPn    gpio.PinOut
	I2CRst gpio.PinOut

	// Delay is the blocking millisecond delay source
	Delay func(time.Duration)

	// Logger is used for debugging output
	Logger *log.Logger
}

// defaultConfig returns the default configuration
func defaultConfig() Config {
	return Config{
		TargetsPerZone: 1,
		Outputs:        AllOutputs(),
		ChunkSize:      ChunkSize,
		Delay:          time.Sleep,
		Logger:         log.New(io.Discard, "", log.LstdFlags),
	}
}

// validate checks the configuration is usable
func (c Config) validate() error {

	if c.TargetsPerZone < 1 || c.TargetsPerZone > MaxTargetsPerZone {
		return fmt.Errorf("targets per zone %d not in 1-%d: %w",
			c.TargetsPerZone, MaxTargetsPerZone, ErrInvalidParam)
	}

	// room for the address and at least one 32 bit word
	if c.ChunkSize < 6 || c.ChunkSize > 255 {
		return fmt.Errorf("chunk size %d not in 6-255: %w", c.ChunkSize, ErrInvalidParam)
	}

	if c.Delay == nil {
		return fmt.Errorf("delay source is nil: %w", ErrInvalidParam)
	}

	return nil
}

// Option is a functional option for configuring the sensor
type Option func(*Config)

// WithTargetsPerZone sets the number of targets reported per zone
func WithTargetsPerZone(n int) Option {
	return func(c *Config) {
		c.TargetsPerZone = n
	}
}

// WithOutputs selects the streamed result fields
func WithOutputs(o Outputs) Option {
	return func(c *Config) {
		c.Outputs = o
	}
}

// WithRawFormat keeps results in the sensor's fixed point format
func WithRawFormat(raw bool) Option {
	return func(c *Config) {
		c.RawFormat = raw
	}
}

// WithChunkSize sets the maximum bus transfer size, eg: for host adapters
// limited to fewer bytes per transaction
func WithChunkSize(size int) Option {
	return func(c *Config) {
		c.ChunkSize = size
	}
}

// WithPins sets the LPn power enable and I2C reset pins
//
// Example:
//
//	sensor, err := vl53l5cx.New(bus, payloads,
//	    vl53l5cx.WithPins(gpioreg.ByName("GPIO17"), gpioreg.ByName("GPIO27")),
//	)
func WithPins(lpn, i2cRst gpio.PinOut) Option {
	return func(c *Config) {
		c.LPn = lpn
		c.I2CRst = i2cRst
	}
}

// WithDelay replaces the time.Sleep based delay source
func WithDelay(delay func(time.Duration)) Option {
	return func(c *Config) {
		c.Delay = delay
	}
}

// WithLogger sets the debug logger
func WithLogger(l *log.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}
