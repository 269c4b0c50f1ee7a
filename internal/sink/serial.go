package sink

import (
	"fmt"

	"go.bug.st/serial"
)

// OpenSerial opens a UART and returns a sink streaming frames onto it as a
// CBOR sequence
func OpenSerial(portName string, baudRate int) (*Recorder, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}

	return NewRecorder(port), nil
}
