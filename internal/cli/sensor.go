package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	vl53l5cx "github.com/swdee/go-vl53l5cx"
	"github.com/swdee/go-vl53l5cx/internal/config"
	"github.com/swdee/go-vl53l5cx/internal/sink"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// sensor is an opened device together with the settings it was opened with
type sensor struct {
	dev     *vl53l5cx.VL53L5CX
	res     vl53l5cx.Resolution
	outputs vl53l5cx.Outputs
	motion  vl53l5cx.MotionConfig
	address uint8
	log     *log.Logger
	close   func() error
}

// openSensor opens the configured bus and pins and creates the driver. The
// sensor itself is not touched
func openSensor(cfg *config.Config, l *log.Logger) (*sensor, error) {
	payloads, err := vl53l5cx.LoadPayloads(cfg.Payloads.Firmware, cfg.Payloads.Configuration, cfg.Payloads.Xtalk)
	if err != nil {
		return nil, err
	}

	res, err := config.ParseResolution(cfg.Ranging.Resolution)
	if err != nil {
		return nil, err
	}

	outputs, err := config.ParseOutputs(cfg.Ranging.Outputs)
	if err != nil {
		return nil, err
	}

	needHost := cfg.Bus.Driver == "periph" || cfg.Pins.LPn != "" || cfg.Pins.I2CRst != ""
	if needHost {
		if _, err := host.Init(); err != nil {
			return nil, fmt.Errorf("failed to initialise periph host: %w", err)
		}
	}

	lpn, err := lookupPin(cfg.Pins.LPn)
	if err != nil {
		return nil, err
	}

	rst, err := lookupPin(cfg.Pins.I2CRst)
	if err != nil {
		return nil, err
	}

	// a sensor without a power pin cannot be cycled back to the default
	// address, so it is expected to already answer on the configured one
	openAddr := vl53l5cx.DefaultAddress
	if lpn == nil {
		openAddr = cfg.Bus.Address
	}

	var (
		bus     vl53l5cx.Bus
		closeFn func() error
	)

	switch cfg.Bus.Driver {
	case "periph":
		bc, err := i2creg.Open(cfg.Bus.Device)
		if err != nil {
			return nil, fmt.Errorf("failed to open I2C bus %q: %w", cfg.Bus.Device, err)
		}
		bus = vl53l5cx.NewPeriphBus(bc, openAddr)
		closeFn = bc.Close

	default:
		b, err := vl53l5cx.NewI2CBus(openAddr, cfg.Bus.Device)
		if err != nil {
			return nil, fmt.Errorf("failed to open I2C bus %s: %w", cfg.Bus.Device, err)
		}
		bus = b
		closeFn = b.Close
	}

	opts := []vl53l5cx.Option{
		vl53l5cx.WithTargetsPerZone(cfg.Ranging.TargetsPerZone),
		vl53l5cx.WithOutputs(outputs),
		vl53l5cx.WithRawFormat(cfg.Ranging.RawFormat),
		vl53l5cx.WithPins(lpn, rst),
	}

	if cfg.Bus.ChunkSize != 0 {
		opts = append(opts, vl53l5cx.WithChunkSize(cfg.Bus.ChunkSize))
	}

	dev, err := vl53l5cx.NewWithLog(bus, payloads, l, opts...)
	if err != nil {
		closeFn()
		return nil, err
	}

	return &sensor{
		dev:     dev,
		res:     res,
		outputs: outputs,
		address: cfg.Bus.Address,
		log:     l,
		close:   closeFn,
	}, nil
}

// lookupPin resolves a periph GPIO name, an empty name means not wired
func lookupPin(name string) (gpio.PinOut, error) {
	if name == "" {
		return nil, nil
	}

	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("unknown GPIO pin %q", name)
	}

	return p, nil
}

// bringUp power cycles the sensor, loads the firmware and applies the
// ranging settings
func (s *sensor) bringUp(r config.RangingConfig) error {
	if err := s.dev.InitSensor(s.address); err != nil {
		return err
	}

	return s.configure(r)
}

// configure applies the ranging settings of r to an initialised sensor
func (s *sensor) configure(r config.RangingConfig) error {
	if err := s.dev.SetResolution(s.res); err != nil {
		return fmt.Errorf("set resolution: %w", err)
	}

	if err := s.dev.SetRangingFrequencyHz(r.FrequencyHz); err != nil {
		return fmt.Errorf("set ranging frequency: %w", err)
	}

	mode, err := config.ParseRangingMode(r.Mode)
	if err != nil {
		return err
	}
	if err := s.dev.SetRangingMode(mode); err != nil {
		return fmt.Errorf("set ranging mode: %w", err)
	}

	if r.IntegrationMs != 0 {
		if err := s.dev.SetIntegrationTimeMs(r.IntegrationMs); err != nil {
			return fmt.Errorf("set integration time: %w", err)
		}
	}

	if r.TargetOrder != "" {
		order, err := config.ParseTargetOrder(r.TargetOrder)
		if err != nil {
			return err
		}
		if err := s.dev.SetTargetOrder(order); err != nil {
			return fmt.Errorf("set target order: %w", err)
		}
	}

	if r.SharpenerPercent != nil {
		if err := s.dev.SetSharpenerPercent(*r.SharpenerPercent); err != nil {
			return fmt.Errorf("set sharpener: %w", err)
		}
	}

	if s.outputs.MotionIndicator {
		if err := s.dev.MotionIndicatorInit(&s.motion, s.res); err != nil {
			return fmt.Errorf("init motion indicator: %w", err)
		}

		if m := r.Motion; m != nil {
			if err := s.dev.SetMotionDistance(&s.motion, m.MinMM, m.MaxMM); err != nil {
				return fmt.Errorf("set motion distance: %w", err)
			}
		}
	}

	s.dev.SetTimeout(time.Duration(r.TimeoutMs) * time.Millisecond)

	return nil
}

// stream starts ranging and hands every frame to fn until ctx is done, fn
// fails or limit frames were delivered. A limit of 0 streams until ctx is
// done. Ranging is always stopped before returning
func (s *sensor) stream(ctx context.Context, limit int, fn func(*sink.Frame) error) (err error) {
	if err := s.dev.StartRanging(); err != nil {
		return fmt.Errorf("start ranging: %w", err)
	}

	defer func() {
		if stopErr := s.dev.StopRanging(); stopErr != nil && err == nil {
			err = fmt.Errorf("stop ranging: %w", stopErr)
		}
	}()

	zones := int(s.res)

	for seq := uint64(1); limit == 0 || seq <= uint64(limit); {
		if ctx.Err() != nil {
			return nil
		}

		data, err := s.dev.ReadFrame()
		if err != nil {
			if errors.Is(err, vl53l5cx.ErrCorruptedFrame) {
				s.log.Printf("Dropping frame: %v", err)
				continue
			}
			return err
		}

		if err := fn(sink.NewFrame(seq, time.Now(), zones, s.outputs, data)); err != nil {
			return err
		}
		seq++
	}

	return nil
}
