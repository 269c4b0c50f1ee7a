package vl53l5cx

import (
	"fmt"
	"os"
)

const (
	// DEFAULT_CONFIGURATION_SIZE is the size of the default configuration
	// blob, it is written so it ends on UI_CMD_END
	DEFAULT_CONFIGURATION_SIZE = 972

	// firmwarePageSize is the size of each firmware download page
	firmwarePageSize = 0x8000

	// firmwareMinSize is the smallest image that reaches the third page
	firmwareMinSize = 2*firmwarePageSize + 1
)

// nvmCommand requests the factory calibration dump
var nvmCommand = [40]byte{
	0x54, 0x00, 0x00, 0x40,
	0x9E, 0x14, 0x00, 0xC0,
	0x9E, 0x20, 0x01, 0x40,
	0x9E, 0x34, 0x00, 0x40,
	0x9E, 0x38, 0x04, 0x04,
	0x9F, 0x38, 0x04, 0x02,
	0x9F, 0xB8, 0x01, 0x00,
	0x9F, 0xC8, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x0F,
	0x02, 0x00, 0x00, 0x28,
}

// Payloads are the vendor supplied blobs moved verbatim to the sensor during
// Init. The driver never modifies them
type Payloads struct {
	// Firmware is the MCU firmware image
	Firmware []byte
	// Configuration is the default configuration blob
	Configuration []byte
	// Xtalk is the default crosstalk calibration
	Xtalk []byte
}

// LoadPayloads reads the firmware, default configuration and default
// crosstalk blobs from files
func LoadPayloads(firmwarePath, configPath, xtalkPath string) (Payloads, error) {

	var p Payloads
	var err error

	if p.Firmware, err = os.ReadFile(firmwarePath); err != nil {
		return Payloads{}, fmt.Errorf("read firmware: %w", err)
	}

	if p.Configuration, err = os.ReadFile(configPath); err != nil {
		return Payloads{}, fmt.Errorf("read default configuration: %w", err)
	}

	if p.Xtalk, err = os.ReadFile(xtalkPath); err != nil {
		return Payloads{}, fmt.Errorf("read default xtalk: %w", err)
	}

	return p, p.Validate()
}

// Validate checks the blob sizes
func (p Payloads) Validate() error {

	if len(p.Firmware) < firmwareMinSize {
		return fmt.Errorf("firmware is %d bytes, want at least %d: %w",
			len(p.Firmware), firmwareMinSize, ErrInvalidParam)
	}

	if len(p.Configuration) != DEFAULT_CONFIGURATION_SIZE {
		return fmt.Errorf("default configuration is %d bytes, want %d: %w",
			len(p.Configuration), DEFAULT_CONFIGURATION_SIZE, ErrInvalidParam)
	}

	if len(p.Xtalk) != XTALK_BUFFER_SIZE {
		return fmt.Errorf("default xtalk is %d bytes, want %d: %w",
			len(p.Xtalk), XTALK_BUFFER_SIZE, ErrInvalidParam)
	}

	return nil
}
