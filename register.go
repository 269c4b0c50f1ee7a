package vl53l5cx

import "fmt"

const (
	// Register page selection, most sequences switch between page 0 (system),
	// page 1 (MCU), page 2 (UI mailbox) and pages 9-11 (firmware download)
	PAGE_SELECT uint16 = 0x7FFF

	// I2C address configuration
	I2C_SLAVE_DEVICE_ADDRESS uint16 = 0x0004

	// Identification registers (page 0)
	DEVICE_ID   uint16 = 0x0000
	REVISION_ID uint16 = 0x0001

	// GO2 status registers (page 0)
	GO2_STATUS_0 uint16 = 0x0006
	GO2_STATUS_1 uint16 = 0x0007

	// Power mode and interrupt bypass control (page 0)
	XSHUT_BYPASS uint16 = 0x0009

	// MCU stop control (page 0)
	MCU_STOP_CTRL    uint16 = 0x0014
	MCU_STOP_TRIGGER uint16 = 0x0015

	// Firmware access status (page 1)
	FW_ACCESS_STATUS uint16 = 0x0021

	// UI command mailbox (page 2)
	UI_CMD_STATUS uint16 = 0x2C00
	UI_CMD_START  uint16 = 0x2C04
	UI_CMD_END    uint16 = 0x2FFF

	// Calibration and configuration upload anchors (page 2)
	DEFAULT_CONFIG_START uint16 = 0x2C34
	XTALK_START          uint16 = 0x2CF8
	OFFSET_START         uint16 = 0x2E18
	NVM_CMD_START        uint16 = 0x2FD8
	AUTO_STOP_FLAG       uint16 = 0x2FFC
)

// readFromRegister fills the first size bytes of the scratch buffer from
// sequential registers starting at reg
func (v *VL53L5CX) readFromRegister(reg uint16, size int) error {

	if size > len(v.buf) {
		return fmt.Errorf("read of %d bytes exceeds scratch buffer: %w", size, ErrFailure)
	}

	for i := 0; i < size; i += v.chunkSize {

		n := min(v.chunkSize, size-i)
		addr := reg + uint16(i)

		// re-state the register address on every chunk
		v.wbuf[0] = byte(addr >> 8)
		v.wbuf[1] = byte(addr)

		if err := v.bus.WriteRead(v.wbuf[:2], v.buf[i:i+n]); err != nil {
			return &BusError{Op: "read", Reg: addr, Err: err}
		}
	}

	return nil
}

// writeToRegister writes a 8 bit value to the register
func (v *VL53L5CX) writeToRegister(reg uint16, value uint8) error {

	buf := []byte{byte(reg >> 8), byte(reg), value}

	if err := v.bus.Write(buf); err != nil {
		return &BusError{Op: "write", Reg: reg, Err: err}
	}

	return nil
}

// writeMultiToRegister writes data to sequential registers starting at reg.
// Each physical write carries the 2 byte register address so only
// chunkSize-2 bytes of data fit in a single transfer
func (v *VL53L5CX) writeMultiToRegister(reg uint16, data []byte) error {

	step := v.chunkSize - 2

	for i := 0; i < len(data); i += step {

		n := min(step, len(data)-i)
		addr := reg + uint16(i)

		v.wbuf[0] = byte(addr >> 8)
		v.wbuf[1] = byte(addr)
		copy(v.wbuf[2:], data[i:i+n])

		if err := v.bus.Write(v.wbuf[:2+n]); err != nil {
			return &BusError{Op: "write", Reg: addr, Err: err}
		}
	}

	return nil
}

// writeScratch writes the first size bytes of the scratch buffer starting at
// reg
func (v *VL53L5CX) writeScratch(reg uint16, size int) error {

	if size > len(v.buf) {
		return fmt.Errorf("write of %d bytes exceeds scratch buffer: %w", size, ErrFailure)
	}

	return v.writeMultiToRegister(reg, v.buf[:size])
}

// selectPage writes the register page selector
func (v *VL53L5CX) selectPage(page uint8) error {
	return v.writeToRegister(PAGE_SELECT, page)
}
