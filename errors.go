package vl53l5cx

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout is returned when a bounded poll exhausts its retries
	ErrTimeout = errors.New("timeout waiting for sensor")
	// ErrFirmwareFault is returned when the sensor MCU reports an internal fault
	// while a command is being polled
	ErrFirmwareFault = errors.New("sensor MCU reported a firmware fault")
	// ErrHardwareFault is returned when the GO2 fault bit is raised during a
	// data ready check
	ErrHardwareFault = errors.New("sensor reported a GO2 hardware fault")
	// ErrCorruptedFrame is returned when the header and footer ids of a
	// streamed frame do not match
	ErrCorruptedFrame = errors.New("corrupted frame, header and footer id mismatch")
	// ErrInvalidParam is returned for out of range arguments and oversized or
	// misaligned DCI requests
	ErrInvalidParam = errors.New("invalid parameter")
	// ErrChecksum is reserved for framing validation, no current path returns it
	ErrChecksum = errors.New("checksum failure")
	// ErrFailure is the generic failure for identity check, frame size
	// mismatch and oversized transfers
	ErrFailure = errors.New("sensor operation failed")
)

// BusError wraps a failure of the underlying bus capability
type BusError struct {
	// Op is the transport operation, "read" or "write"
	Op string
	// Reg is the first register of the failed sub-transfer
	Reg uint16
	Err error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("bus %s at register 0x%04X: %v", e.Op, e.Reg, e.Err)
}

func (e *BusError) Unwrap() error {
	return e.Err
}

// IsBusError reports whether err was caused by the bus capability
func IsBusError(err error) bool {
	var be *BusError
	return errors.As(err, &be)
}
