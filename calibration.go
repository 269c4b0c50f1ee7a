package vl53l5cx

import "fmt"

const (
	// NVM_DATA_SIZE is the size of the factory calibration dump
	NVM_DATA_SIZE = 492
	// OFFSET_BUFFER_SIZE is the size of the offset calibration blob
	OFFSET_BUFFER_SIZE = 488
	// XTALK_BUFFER_SIZE is the size of the crosstalk calibration blob
	XTALK_BUFFER_SIZE = 776

	// zoneGrid is the number of cells in a native 8x8 calibration grid
	zoneGrid = 64
)

// byte layout of the calibration blobs
const (
	offsetDSSPos         = 0x10
	offsetSignalGridPos  = 0x3C
	offsetRangeGridPos   = 0x140
	offsetFooterPos      = 0x1E0
	xtalkResolutionPos   = 0x08
	xtalkDSSPos          = 0x20
	xtalkSignalGridPos   = 0x34
	xtalkProfilePos      = 0x134
	xtalkClearPos        = 0x78
	xtalkClearLen        = 4
	calibrationHeaderLen = 8
)

var (
	offsetDSS4x4    = [8]byte{0x0F, 0x04, 0x04, 0x00, 0x08, 0x10, 0x10, 0x07}
	offsetFooter    = [8]byte{0x00, 0x00, 0x00, 0x0F, 0x03, 0x01, 0x01, 0xE4}
	xtalkRes4x4     = [8]byte{0x0F, 0x04, 0x04, 0x17, 0x08, 0x10, 0x10, 0x07}
	xtalkDSS4x4     = [8]byte{0x00, 0x78, 0x00, 0x08, 0x00, 0x00, 0x00, 0x08}
	xtalkProfile4x4 = [4]byte{0xA0, 0xFC, 0x01, 0x00}
)

// extrapolateUint32 reduces a row major 8x8 grid to 4x4 in place. Each
// destination cell is the truncated mean of a 2x2 source block, cells 16-63
// are cleared
func extrapolateUint32(grid *[zoneGrid]uint32) {

	for j := 0; j < 4; j++ {
		for i := 0; i < 4; i++ {
			base := 2*i + 16*j
			sum := uint64(grid[base]) + uint64(grid[base+1]) +
				uint64(grid[base+8]) + uint64(grid[base+9])
			grid[i+4*j] = uint32(sum / 4)
		}
	}

	clear(grid[16:])
}

// extrapolateInt16 is extrapolateUint32 for the signed range grid
func extrapolateInt16(grid *[zoneGrid]int16) {

	for j := 0; j < 4; j++ {
		for i := 0; i < 4; i++ {
			base := 2*i + 16*j
			sum := int32(grid[base]) + int32(grid[base+1]) +
				int32(grid[base+8]) + int32(grid[base+9])
			grid[i+4*j] = int16(sum / 4)
		}
	}

	clear(grid[16:])
}

// sendOffsetData pushes the offset calibration blob, reduced to 4x4 when
// resolution requires it
func (v *VL53L5CX) sendOffsetData(res Resolution) error {

	buf := v.buf[:OFFSET_BUFFER_SIZE]
	copy(buf, v.offsetData[:])

	if res == Resolution4x4 {

		var signalGrid [zoneGrid]uint32
		var rangeGrid [zoneGrid]int16

		copy(buf[offsetDSSPos:], offsetDSS4x4[:])
		swapBuffer(buf)

		getUint32s(signalGrid[:], buf[offsetSignalGridPos:offsetSignalGridPos+4*zoneGrid])
		getInt16s(rangeGrid[:], buf[offsetRangeGridPos:offsetRangeGridPos+2*zoneGrid])

		extrapolateUint32(&signalGrid)
		extrapolateInt16(&rangeGrid)

		putUint32s(buf[offsetSignalGridPos:], signalGrid[:])
		putInt16s(buf[offsetRangeGridPos:], rangeGrid[:])

		swapBuffer(buf)
	}

	// drop the 8 byte NVM header
	copy(buf[:OFFSET_BUFFER_SIZE-4], buf[calibrationHeaderLen:])
	copy(buf[offsetFooterPos:], offsetFooter[:])

	if err := v.writeScratch(OFFSET_START, OFFSET_BUFFER_SIZE); err != nil {
		return err
	}

	if err := v.pollForAnswer(4, 1, UI_CMD_STATUS, 0xFF, statusCommandDone); err != nil {
		return fmt.Errorf("send offset data: %w", err)
	}

	return nil
}

// sendXtalkData pushes the crosstalk calibration blob, reduced to 4x4 when
// resolution requires it
func (v *VL53L5CX) sendXtalkData(res Resolution) error {

	buf := v.buf[:XTALK_BUFFER_SIZE]
	copy(buf, v.xtalkData[:])

	if res == Resolution4x4 {

		var signalGrid [zoneGrid]uint32

		copy(buf[xtalkResolutionPos:], xtalkRes4x4[:])
		copy(buf[xtalkDSSPos:], xtalkDSS4x4[:])
		swapBuffer(buf)

		getUint32s(signalGrid[:], buf[xtalkSignalGridPos:xtalkSignalGridPos+4*zoneGrid])
		extrapolateUint32(&signalGrid)
		putUint32s(buf[xtalkSignalGridPos:], signalGrid[:])

		swapBuffer(buf)

		copy(buf[xtalkProfilePos:], xtalkProfile4x4[:])
		clear(buf[xtalkClearPos : xtalkClearPos+xtalkClearLen])
	}

	if err := v.writeScratch(XTALK_START, XTALK_BUFFER_SIZE); err != nil {
		return err
	}

	if err := v.pollForAnswer(4, 1, UI_CMD_STATUS, 0xFF, statusCommandDone); err != nil {
		return fmt.Errorf("send xtalk data: %w", err)
	}

	return nil
}

// OffsetCalibration returns a copy of the offset calibration read from the
// sensor NVM during Init
func (v *VL53L5CX) OffsetCalibration() []byte {
	out := make([]byte, OFFSET_BUFFER_SIZE)
	copy(out, v.offsetData[:])
	return out
}

// XtalkCalibration returns a copy of the crosstalk calibration currently
// loaded on the sensor
func (v *VL53L5CX) XtalkCalibration() []byte {
	out := make([]byte, XTALK_BUFFER_SIZE)
	copy(out, v.xtalkData[:])
	return out
}

// SetXtalkCalibration replaces the crosstalk calibration, eg: one saved from
// an earlier calibration run, and pushes it for the current resolution
func (v *VL53L5CX) SetXtalkCalibration(blob []byte) error {

	if len(blob) != XTALK_BUFFER_SIZE {
		return fmt.Errorf("xtalk calibration is %d bytes, want %d: %w",
			len(blob), XTALK_BUFFER_SIZE, ErrInvalidParam)
	}

	res, err := v.Resolution()

	if err != nil {
		return err
	}

	copy(v.xtalkData[:], blob)

	return v.sendXtalkData(res)
}
