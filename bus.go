package vl53l5cx

import (
	"fmt"

	"github.com/swdee/go-i2c"
)

// Bus is the physical transport to a single sensor at a fixed device address
type Bus interface {
	// Read fills p from the device
	Read(p []byte) error
	// Write sends p to the device
	Write(p []byte) error
	// WriteRead sends w then fills r from the device
	WriteRead(w, r []byte) error
}

// AddressableBus is a Bus whose device address can be changed after the
// sensor has been told to answer on a new address
type AddressableBus interface {
	Bus
	Address() uint8
	SetAddress(addr uint8) error
}

// I2CBus adapts a Linux i2c-dev connection to the Bus interface
type I2CBus struct {
	conn *i2c.Options
}

// NewI2CBus opens the i2c-dev device (eg: /dev/i2c-1) for the given address
func NewI2CBus(addr uint8, dev string) (*I2CBus, error) {

	conn, err := i2c.New(addr, dev)

	if err != nil {
		return nil, err
	}

	return &I2CBus{conn: conn}, nil
}

// Read fills p from the device
func (b *I2CBus) Read(p []byte) error {

	n, err := b.conn.ReadBytes(p)

	if err != nil {
		return err
	}

	if n < len(p) {
		return fmt.Errorf("short read: %d of %d bytes", n, len(p))
	}

	return nil
}

// Write sends p to the device
func (b *I2CBus) Write(p []byte) error {

	n, err := b.conn.WriteBytes(p)

	if err != nil {
		return err
	}

	if n < len(p) {
		return fmt.Errorf("short write: %d of %d bytes", n, len(p))
	}

	return nil
}

// WriteRead writes the register address in w then reads the response into r
func (b *I2CBus) WriteRead(w, r []byte) error {

	if err := b.Write(w); err != nil {
		return err
	}

	return b.Read(r)
}

// Address returns the current device address
func (b *I2CBus) Address() uint8 {
	return b.conn.GetAddr()
}

// SetAddress reopens the i2c-dev connection on a new device address
func (b *I2CBus) SetAddress(addr uint8) error {

	conn, err := i2c.New(addr, b.conn.GetDev())

	if err != nil {
		return err
	}

	// close existing connection and replace with new one
	b.conn.Close()
	b.conn = conn

	return nil
}

// Close closes the i2c-dev connection
func (b *I2CBus) Close() error {
	b.conn.Close()
	return nil
}
