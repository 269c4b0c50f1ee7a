// go-vl53l5cx is a driver for the ST VL53L5CX multi-zone time-of-flight
// ranging sensor.
package vl53l5cx

import (
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/gpio"
)

const (
	// DefaultAddress is the 7 bit address of the sensor on I2C bus after power
	// on (0x52 in 8 bit notation)
	DefaultAddress uint8 = 0x29

	// minScratchSize is the smallest scratch buffer, large enough for the NVM
	// dump and the crosstalk blob
	minScratchSize = 1024
)

// VL53L5CX represents a single VL53L5CX sensor instance. It is not safe for
// concurrent use, callers sharing a bus between sensors must serialise all
// operations
type VL53L5CX struct {
	// bus is the I2C interface
	bus Bus

	// lpn is the low power enable pin, rst the I2C interface reset pin
	lpn gpio.PinOut
	rst gpio.PinOut

	// sleep is the blocking delay source
	sleep func(time.Duration)

	// buf is the scratch buffer every transfer goes through, wbuf holds one
	// outgoing bus chunk
	buf  []byte
	wbuf []byte

	chunkSize int

	offsetData [OFFSET_BUFFER_SIZE]byte
	xtalkData  [XTALK_BUFFER_SIZE]byte

	payloads Payloads

	targetsPerZone int
	outputs        Outputs
	rawFormat      bool

	// streamCount is the sequence counter of the last frame seen
	streamCount uint8
	// dataReadSize is the frame size computed when ranging started
	dataReadSize uint32

	ioTimeout    time.Duration
	didTimeout   bool
	timeoutStart time.Time

	// log logger for debugging
	log *log.Logger
}

// New returns a new VL53L5CX sensor instance on the given bus. The sensor is
// not touched until InitSensor() or Init() is called, so several instances
// sharing one bus can all be powered off before being initialised one by one
func New(bus Bus, payloads Payloads, opts ...Option) (*VL53L5CX, error) {

	cfg := defaultConfig()

	for _, opt := range opts {
		opt(&cfg)
	}

	return newSensor(bus, payloads, cfg)
}

// NewWithLog creates sensor instance with logger to be used for debugging
func NewWithLog(bus Bus, payloads Payloads, log *log.Logger, opts ...Option) (*VL53L5CX, error) {
	return New(bus, payloads, append(opts, WithLogger(log))...)
}

// newSensor validates the configuration and allocates the buffers
func newSensor(bus Bus, payloads Payloads, cfg Config) (*VL53L5CX, error) {

	if bus == nil {
		return nil, fmt.Errorf("bus is not initiated")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if err := payloads.Validate(); err != nil {
		return nil, err
	}

	// size the scratch buffer for the largest frame the selected outputs can
	// produce at 8x8
	_, _, maxFrame := outputDescriptor(Resolution8x8, cfg.TargetsPerZone, cfg.Outputs)
	scratch := max(minScratchSize, int(maxFrame))

	v := &VL53L5CX{
		bus:            bus,
		lpn:            cfg.LPn,
		rst:            cfg.I2CRst,
		sleep:          cfg.Delay,
		buf:            make([]byte, scratch),
		wbuf:           make([]byte, cfg.ChunkSize),
		chunkSize:      cfg.ChunkSize,
		payloads:       payloads,
		targetsPerZone: cfg.TargetsPerZone,
		outputs:        cfg.Outputs,
		rawFormat:      cfg.RawFormat,
		ioTimeout:      time.Second,
		log:            cfg.Logger,
	}

	return v, nil
}

// InitSensor power cycles the sensor, moves it to address if that differs
// from the bus address, checks its identity and loads the firmware. A bus
// without AddressableBus can only be used at DefaultAddress
func (v *VL53L5CX) InitSensor(address uint8) error {

	v.log.Printf("Starting InitSensor(0x%02X)", address)

	if err := v.Off(); err != nil {
		return err
	}

	if err := v.On(); err != nil {
		return err
	}

	// after power on the sensor answers on DefaultAddress
	current := DefaultAddress

	if ab, ok := v.bus.(AddressableBus); ok {
		current = ab.Address()
	}

	if current != address {
		if err := v.SetAddress(address); err != nil {
			return fmt.Errorf("Failed to set address: %w", err)
		}
	}

	if err := v.IsAlive(); err != nil {
		return err
	}

	if err := v.Init(); err != nil {
		return fmt.Errorf("Failed to Init device: %w", err)
	}

	v.log.Printf("Device Init()'d")

	return nil
}

// On powers the sensor on by driving the LPn pin high
func (v *VL53L5CX) On() error {
	return v.drivePin(v.lpn, gpio.High)
}

// Off powers the sensor off by driving the LPn pin low
func (v *VL53L5CX) Off() error {
	return v.drivePin(v.lpn, gpio.Low)
}

// I2CReset drives the I2C reset pin low
func (v *VL53L5CX) I2CReset() error {

	if v.rst == nil {
		return nil
	}

	if err := v.rst.Out(gpio.Low); err != nil {
		return fmt.Errorf("I2C reset pin %s: %w", v.rst, err)
	}

	return nil
}

// drivePin sets pin to level and waits 10 ms. A nil pin means the line is
// hard wired and is skipped
func (v *VL53L5CX) drivePin(pin gpio.PinOut, level gpio.Level) error {

	if pin == nil {
		return nil
	}

	if err := pin.Out(level); err != nil {
		return fmt.Errorf("power pin %s: %w", pin, err)
	}

	v.delay(10)
	return nil
}

// IsAlive checks the sensor answers with the expected device and revision id
func (v *VL53L5CX) IsAlive() error {

	if err := v.selectPage(0x00); err != nil {
		return err
	}

	if err := v.readFromRegister(DEVICE_ID, 2); err != nil {
		return err
	}

	if err := v.selectPage(0x02); err != nil {
		return err
	}

	deviceID, revisionID := v.buf[0], v.buf[1]

	if deviceID != 0xF0 || revisionID != 0x02 {
		return fmt.Errorf("unexpected device ID 0x%02X revision 0x%02X: %w",
			deviceID, revisionID, ErrFailure)
	}

	return nil
}

// SetAddress change default address of sensor and switch the bus to it. The
// bus must implement AddressableBus
func (v *VL53L5CX) SetAddress(newAddr uint8) error {

	ab, ok := v.bus.(AddressableBus)

	if !ok {
		return fmt.Errorf("bus %T cannot change address: %w", v.bus, ErrFailure)
	}

	if err := v.selectPage(0x00); err != nil {
		return err
	}

	if err := v.writeToRegister(I2C_SLAVE_DEVICE_ADDRESS, newAddr&0x7F); err != nil {
		return err
	}

	if err := ab.SetAddress(newAddr); err != nil {
		return err
	}

	return v.selectPage(0x02)
}

// TargetsPerZone returns the number of targets reported per zone
func (v *VL53L5CX) TargetsPerZone() int {
	return v.targetsPerZone
}

// Outputs returns the enabled result fields
func (v *VL53L5CX) Outputs() Outputs {
	return v.outputs
}
