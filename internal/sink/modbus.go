package sink

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goburrow/modbus"
	vl53l5cx "github.com/swdee/go-vl53l5cx"
)

// maxWriteRegisters is the register limit of one Write Multiple Registers
// request
const maxWriteRegisters = 123

// registerWriter is the part of modbus.Client used by the sink
type registerWriter interface {
	WriteMultipleRegisters(address, quantity uint16, value []byte) ([]byte, error)
}

// Modbus exports zone distances as holding registers, one register per zone
// and target starting at the base address. Distances are written as signed
// 16 bit values, slots without a valid target hold 0xFFFF
type Modbus struct {
	mu      sync.Mutex
	handler *modbus.TCPClientHandler
	client  registerWriter
	address uint16
	regs    []uint16
}

// ModbusConfig selects the modbus TCP endpoint and register block
type ModbusConfig struct {
	Endpoint string
	UnitID   uint8
	Address  uint16
	Timeout  time.Duration
}

// DialModbus connects to a modbus TCP endpoint
func DialModbus(cfg ModbusConfig) (*Modbus, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("sink modbus: endpoint required")
	}

	h := modbus.NewTCPClientHandler(cfg.Endpoint)
	h.Timeout = cfg.Timeout
	h.SlaveId = cfg.UnitID

	if err := h.Connect(); err != nil {
		return nil, err
	}

	return &Modbus{
		handler: h,
		client:  modbus.NewClient(h),
		address: cfg.Address,
	}, nil
}

// Send writes the distances of f, split into protocol sized requests
func (m *Modbus) Send(f *Frame) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(f.Distance) == 0 {
		return nil
	}

	m.regs = distanceRegisters(m.regs[:0], f)

	for off := 0; off < len(m.regs); off += maxWriteRegisters {
		end := min(off+maxWriteRegisters, len(m.regs))
		block := m.regs[off:end]

		addr := m.address + uint16(off)
		if _, err := m.client.WriteMultipleRegisters(addr, uint16(len(block)), packRegisters(block)); err != nil {
			return fmt.Errorf("modbus write at %d: %w", addr, err)
		}
	}

	return nil
}

// Close closes the TCP connection
func (m *Modbus) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.handler == nil {
		return nil
	}
	return m.handler.Close()
}

// distanceRegisters appends one register per slot of f to dst
func distanceRegisters(dst []uint16, f *Frame) []uint16 {
	for i, d := range f.Distance {
		if i < len(f.Status) && vl53l5cx.TargetStatus(f.Status[i]) == vl53l5cx.StatusNoTarget {
			dst = append(dst, 0xFFFF)
			continue
		}
		dst = append(dst, uint16(d))
	}
	return dst
}

func packRegisters(regs []uint16) []byte {
	out := make([]byte, len(regs)*2)
	for i, r := range regs {
		out[2*i] = byte(r >> 8)
		out[2*i+1] = byte(r)
	}
	return out
}
