package vl53l5cx

import (
	"periph.io/x/conn/v3/i2c"
)

// PeriphBus adapts a periph.io I2C bus to the Bus interface
type PeriphBus struct {
	dev *i2c.Dev
}

// NewPeriphBus returns a Bus talking to addr on the periph.io bus b
func NewPeriphBus(b i2c.Bus, addr uint8) *PeriphBus {
	return &PeriphBus{dev: &i2c.Dev{Bus: b, Addr: uint16(addr)}}
}

// Read fills p from the device
func (b *PeriphBus) Read(p []byte) error {
	return b.dev.Tx(nil, p)
}

// Write sends p to the device
func (b *PeriphBus) Write(p []byte) error {
	return b.dev.Tx(p, nil)
}

// WriteRead performs a combined write then read transaction
func (b *PeriphBus) WriteRead(w, r []byte) error {
	return b.dev.Tx(w, r)
}

// Address returns the current device address
func (b *PeriphBus) Address() uint8 {
	return uint8(b.dev.Addr)
}

// SetAddress changes the device address used for following transactions
func (b *PeriphBus) SetAddress(addr uint8) error {
	b.dev.Addr = uint16(addr)
	return nil
}

// String implements fmt.Stringer
func (b *PeriphBus) String() string {
	return b.dev.String()
}
