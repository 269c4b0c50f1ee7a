package vl53l5cx

import (
	"encoding/binary"
	"errors"
	"testing"
	"time"
)

// busWrite records a single bus write
type busWrite struct {
	page uint8
	reg  uint16
	data []byte
}

// busRead records a single register read
type busRead struct {
	page uint8
	reg  uint16
	n    int
}

// fakeSensor simulates the register file and UI mailbox of a sensor. Writes
// that end on UI_CMD_END are decoded as commands: DCI blobs are kept by index
// in firmware byte order, NVM requests are answered with nvm and every other
// upload is captured by its start register
type fakeSensor struct {
	addr uint8
	page uint8
	mem  map[uint8]*[0x10000]byte

	blobs   map[uint16][]byte
	uploads map[uint16][]byte
	nvm     []byte

	// firmwareEnd is the highest register written on each download page
	firmwareEnd map[uint8]int

	// reportSize overrides the frame size reported after a start command
	reportSize int
	starts     int

	writes []busWrite
	reads  []busRead
	ops    int

	// failAt fails the nth bus operation (1 based) with failErr
	failAt  int
	failErr error

	burstStart uint16
	lastEnd    int
}

var errFakeBus = errors.New("fake bus failure")

func newFakeSensor() *fakeSensor {

	f := &fakeSensor{
		addr:     DefaultAddress,
		page:     0x02,
		mem:      make(map[uint8]*[0x10000]byte),
		blobs:    make(map[uint16][]byte),
		uploads:  make(map[uint16][]byte),
		failErr:  errFakeBus,

		firmwareEnd: make(map[uint8]int),
	}

	// identity, booted and firmware access granted
	f.pageMem(0x00)[DEVICE_ID] = 0xF0
	f.pageMem(0x00)[REVISION_ID] = 0x02
	f.pageMem(0x00)[GO2_STATUS_0] = 0x01
	f.pageMem(0x01)[FW_ACCESS_STATUS] = 0x10
	f.pageMem(0x00)[XSHUT_BYPASS] = 0x04

	// command status answers both NVM (0x02) and done (0x03) polls
	f.setStatus(0x02, 0x03, 0x00, 0x00)

	f.nvm = make([]byte, NVM_DATA_SIZE)
	for i := range f.nvm {
		f.nvm[i] = byte(i % 251)
	}

	// sensor boots at 4x4
	f.setBlobHost(DCI_ZONE_CONFIG, []byte{4, 4, 0, 0, 8, 8, 0, 0})

	return f
}

func (f *fakeSensor) pageMem(page uint8) *[0x10000]byte {

	m, ok := f.mem[page]

	if !ok {
		m = new([0x10000]byte)
		f.mem[page] = m
	}

	return m
}

func (f *fakeSensor) setStatus(b ...byte) {
	copy(f.pageMem(0x02)[UI_CMD_STATUS:], b)
}

// setBlobHost stores a DCI blob given in host byte order
func (f *fakeSensor) setBlobHost(index uint16, host []byte) {
	wire := append([]byte(nil), host...)
	swapBuffer(wire)
	f.blobs[index] = wire
}

// blobHost returns a DCI blob in host byte order
func (f *fakeSensor) blobHost(index uint16) []byte {
	host := append([]byte(nil), f.blobs[index]...)
	swapBuffer(host)
	return host
}

// firmwarePage returns the bytes downloaded to page
func (f *fakeSensor) firmwarePage(page uint8) []byte {
	return f.pageMem(page)[:f.firmwareEnd[page]]
}

// writesTo returns the data of every write to reg on page
func (f *fakeSensor) writesTo(page uint8, reg uint16) [][]byte {

	var out [][]byte

	for _, w := range f.writes {
		if w.page == page && w.reg == reg {
			out = append(out, w.data)
		}
	}

	return out
}

func (f *fakeSensor) fail() error {

	f.ops++

	if f.failAt > 0 && f.ops == f.failAt {
		return f.failErr
	}

	return nil
}

func (f *fakeSensor) Write(p []byte) error {

	if err := f.fail(); err != nil {
		return err
	}

	if len(p) < 2 {
		return errors.New("write without register address")
	}

	reg := binary.BigEndian.Uint16(p)
	data := append([]byte(nil), p[2:]...)

	f.writes = append(f.writes, busWrite{page: f.page, reg: reg, data: data})

	if reg == PAGE_SELECT && len(data) == 1 {
		f.page = data[0]
		f.lastEnd = -1
		return nil
	}

	if int(reg) != f.lastEnd {
		f.burstStart = reg
	}

	f.lastEnd = int(reg) + len(data)

	m := f.pageMem(f.page)
	copy(m[reg:], data)

	if f.page >= 0x09 && f.page <= 0x0B {
		f.firmwareEnd[f.page] = max(f.firmwareEnd[f.page], f.lastEnd)
	}

	if f.page == 0x02 && int(reg) <= int(UI_CMD_END) && f.lastEnd > int(UI_CMD_END) {
		f.mailbox()
	}

	return nil
}

// mailbox executes the command whose frame ends on UI_CMD_END
func (f *fakeSensor) mailbox() {

	m := f.pageMem(0x02)
	op := m[0x2FFC : 0x2FFC+4]

	switch {
	case op[0] == 0x05 && op[1] == 0x01:
		// dci write, footer carries payload length + 8
		size := int(binary.BigEndian.Uint16(op[2:])) - 8
		start := 0x3000 - size - dciFrameOverhead
		index := binary.BigEndian.Uint16(m[start:])
		f.blobs[index] = append([]byte(nil), m[start+4:start+4+size]...)

	case f.burstStart == UI_CMD_END-11 && op[1] == 0x02:
		// dci read request
		hdr := m[0x2FF4:0x2FF8]
		index := binary.BigEndian.Uint16(hdr)
		size := int(hdr[2])<<4 | int(hdr[3])>>4

		resp := make([]byte, size+dciFrameOverhead)
		copy(resp, hdr)
		copy(resp[4:4+size], f.blobs[index])
		copy(m[UI_CMD_START:], resp)

	case f.burstStart == NVM_CMD_START:
		copy(m[UI_CMD_START:], f.nvm)

	case f.burstStart == UI_CMD_END-3 && op[1] == 0x03:
		f.starts++

		cfg := make([]byte, 12)
		if f.reportSize > 0 {
			binary.BigEndian.PutUint32(cfg[8:], uint32(f.reportSize))
		} else if oc, ok := f.blobs[DCI_OUTPUT_CONFIG]; ok {
			copy(cfg[8:12], oc[:4])
		}
		f.blobs[DCI_UI_RANGE_DATA_CONFIG] = cfg

	default:
		f.uploads[f.burstStart] = append([]byte(nil), m[f.burstStart:0x3000]...)
	}
}

func (f *fakeSensor) Read(p []byte) error {

	if err := f.fail(); err != nil {
		return err
	}

	return errors.New("unaddressed read")
}

func (f *fakeSensor) WriteRead(w, r []byte) error {

	if err := f.fail(); err != nil {
		return err
	}

	reg := binary.BigEndian.Uint16(w)
	f.reads = append(f.reads, busRead{page: f.page, reg: reg, n: len(r)})

	copy(r, f.pageMem(f.page)[reg:])

	return nil
}

func (f *fakeSensor) Address() uint8 {
	return f.addr
}

func (f *fakeSensor) SetAddress(addr uint8) error {
	f.addr = addr
	return nil
}

// testPayloads returns blobs of valid size with recognisable content
func testPayloads() Payloads {

	p := Payloads{
		Firmware:      make([]byte, 2*firmwarePageSize+0x1234),
		Configuration: make([]byte, DEFAULT_CONFIGURATION_SIZE),
		Xtalk:         make([]byte, XTALK_BUFFER_SIZE),
	}

	for i := range p.Firmware {
		p.Firmware[i] = byte(i * 7)
	}

	for i := 0; i < 0x100; i++ {
		p.Configuration[i] = byte(i)
	}

	// tail kept clear so the upload is not taken for a command
	for i := 0; i < XTALK_BUFFER_SIZE-8; i++ {
		p.Xtalk[i] = byte(i % 13)
	}

	return p
}

// newTestSensor returns a sensor on a fresh fake with delays disabled
func newTestSensor(t *testing.T, opts ...Option) (*VL53L5CX, *fakeSensor) {

	t.Helper()

	f := newFakeSensor()
	opts = append([]Option{WithDelay(func(time.Duration) {})}, opts...)

	v, err := New(f, testPayloads(), opts...)

	if err != nil {
		t.Fatalf("New: %v", err)
	}

	return v, f
}
