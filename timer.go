package vl53l5cx

import (
	"fmt"
	"time"
)

const (
	// pollRetries is the number of status reads made while waiting on a
	// command answer, each followed by pollDelayMs
	pollRetries = 200
	pollDelayMs = 10

	// bootPollRetries bounds the wait for the MCU to boot, polled every 1 ms
	bootPollRetries = 500

	// stopPollRetries bounds the wait for the MCU to stop, polled every 10 ms
	stopPollRetries = 500

	// mcuFaultThreshold is the lowest value of the third status byte that
	// signals the MCU has faulted
	mcuFaultThreshold = 0x7F
)

// delay blocks for ms milliseconds using the configured delay source
func (v *VL53L5CX) delay(ms int) {
	v.sleep(time.Duration(ms) * time.Millisecond)
}

// pollForAnswer reads size bytes from reg until the byte at pos masked with
// mask equals expected
func (v *VL53L5CX) pollForAnswer(size, pos int, reg uint16, mask, expected uint8) error {

	for i := 0; i < pollRetries; i++ {

		if err := v.readFromRegister(reg, size); err != nil {
			return err
		}

		v.delay(pollDelayMs)

		// sensor reports an internal fault rather than "not yet ready"
		if size >= 4 && v.buf[2] >= mcuFaultThreshold {
			return fmt.Errorf("poll register 0x%04X: status 0x%02X: %w", reg, v.buf[2], ErrFirmwareFault)
		}

		if v.buf[pos]&mask == expected {
			return nil
		}
	}

	return fmt.Errorf("poll register 0x%04X for 0x%02X: %w", reg, expected, ErrTimeout)
}

// pollForMCUBoot waits for the MCU to report it has booted
func (v *VL53L5CX) pollForMCUBoot() error {

	for i := 0; i < bootPollRetries; i++ {

		if err := v.readFromRegister(GO2_STATUS_0, 2); err != nil {
			return err
		}

		// boot complete flag combined with ready flag in status 1
		if v.buf[0]&0x80 != 0 && v.buf[1]&0x01 != 0 {
			return nil
		}

		v.delay(1)

		if v.buf[0]&0x01 != 0 {
			return nil
		}
	}

	return fmt.Errorf("waiting for MCU boot: %w", ErrTimeout)
}

// SetTimeout sets the timeout used by ReadFrame when waiting for data
func (v *VL53L5CX) SetTimeout(timeout time.Duration) {
	v.ioTimeout = timeout
}

// TimeoutOccurred reports whether a timeout has occurred
func (v *VL53L5CX) TimeoutOccurred() bool {
	tmp := v.didTimeout
	v.didTimeout = false
	return tmp
}

// startTimeout starts the timeout counter
func (v *VL53L5CX) startTimeout() {
	v.timeoutStart = time.Now()
}

// checkTimeoutExpired checks if timeout has expired
func (v *VL53L5CX) checkTimeoutExpired() bool {
	return (v.ioTimeout > 0) && (time.Since(v.timeoutStart) > v.ioTimeout)
}
