package vl53l5cx

import "fmt"

// DCI (device configuration interface) indexes of the blobs held in sensor
// memory
const (
	DCI_UI_RANGE_DATA_CONFIG     uint16 = 0x5440
	DCI_ZONE_CONFIG              uint16 = 0x5450
	DCI_FREQ_HZ                  uint16 = 0x5458
	DCI_INT_TIME                 uint16 = 0x545C
	DCI_FW_NB_TARGET             uint16 = 0x5478
	DCI_DET_THRESH_CONFIG        uint16 = 0x5488
	DCI_RANGING_MODE             uint16 = 0xAD30
	DCI_DSS_CONFIG               uint16 = 0xAD38
	DCI_TARGET_ORDER             uint16 = 0xAE64
	DCI_SHARPENER                uint16 = 0xAED8
	DCI_INTERNAL_CP              uint16 = 0xB39C
	DCI_SYNC_PIN                 uint16 = 0xB5F0
	DCI_DET_THRESH_GLOBAL_CONFIG uint16 = 0xB6E0
	DCI_DET_THRESH_START         uint16 = 0xB6E8
	DCI_DET_THRESH_VALID_STATUS  uint16 = 0xB9F0
	DCI_MOTION_DETECTOR_CFG      uint16 = 0xBFAC
	DCI_SINGLE_RANGE             uint16 = 0xCD5C
	DCI_OUTPUT_CONFIG            uint16 = 0xCD60
	DCI_OUTPUT_ENABLES           uint16 = 0xCD68
	DCI_OUTPUT_LIST              uint16 = 0xCD78
	DCI_PIPE_CONTROL             uint16 = 0xCF78
	DCI_GLARE_FILTER             uint16 = 0xE108
)

const (
	// dciFrameOverhead is the 4 byte header plus 8 byte footer wrapped around
	// every DCI payload
	dciFrameOverhead = 12

	// statusCommandDone is the UI command status once the firmware has
	// consumed a command
	statusCommandDone = 0x03
)

// dciHeader returns the 4 byte index and packed size header of a DCI frame
func dciHeader(index uint16, size int) [4]byte {
	return [4]byte{
		byte(index >> 8),
		byte(index),
		byte((size & 0xFF0) >> 4),
		byte((size & 0xF) << 4),
	}
}

// checkDCISize validates a DCI payload size, the firmware only accepts 32 bit
// aligned blobs
func (v *VL53L5CX) checkDCISize(index uint16, size int) error {

	if size <= 0 || size%4 != 0 || size+dciFrameOverhead > len(v.buf) {
		return fmt.Errorf("dci blob 0x%04X of %d bytes: %w", index, size, ErrInvalidParam)
	}

	return nil
}

// dciReadData reads the blob at index into the first size bytes of the
// scratch buffer, in host byte order
func (v *VL53L5CX) dciReadData(index uint16, size int) error {

	if err := v.checkDCISize(index, size); err != nil {
		return err
	}

	readSize := size + dciFrameOverhead
	hdr := dciHeader(index, size)

	cmd := [12]byte{
		hdr[0], hdr[1], hdr[2], hdr[3],
		0x00, 0x00, 0x00, 0x0F,
		0x00, 0x02, 0x00, 0x08,
	}

	// request data reading from firmware
	if err := v.writeMultiToRegister(UI_CMD_END-11, cmd[:]); err != nil {
		return err
	}

	if err := v.pollForAnswer(4, 1, UI_CMD_STATUS, 0xFF, statusCommandDone); err != nil {
		return fmt.Errorf("dci read 0x%04X: %w", index, err)
	}

	// read header + data + footer
	if err := v.readFromRegister(UI_CMD_START, readSize); err != nil {
		return err
	}

	swapBuffer(v.buf[:readSize])

	// drop the 4 byte header
	copy(v.buf[:size], v.buf[4:4+size])

	return nil
}

// dciWriteData writes the first size bytes of the scratch buffer to the blob
// at index. The frame is placed so its footer ends on UI_CMD_END. On return
// the scratch buffer again holds the payload in host byte order
func (v *VL53L5CX) dciWriteData(index uint16, size int) error {

	if err := v.checkDCISize(index, size); err != nil {
		return err
	}

	hdr := dciHeader(index, size)
	footer := [8]byte{
		0x00, 0x00, 0x00, 0x0F,
		0x05, 0x01,
		byte((size + 8) >> 8),
		byte(size + 8),
	}

	address := UI_CMD_END - uint16(size+dciFrameOverhead) + 1

	// convert to firmware byte order and make room for the header
	swapBuffer(v.buf[:size])
	copy(v.buf[4:4+size], v.buf[:size])

	copy(v.buf[:4], hdr[:])
	copy(v.buf[size+4:size+dciFrameOverhead], footer[:])

	if err := v.writeScratch(address, size+dciFrameOverhead); err != nil {
		return err
	}

	if err := v.pollForAnswer(4, 1, UI_CMD_STATUS, 0xFF, statusCommandDone); err != nil {
		return fmt.Errorf("dci write 0x%04X: %w", index, err)
	}

	// restore the caller's view of the payload
	copy(v.buf[:size], v.buf[4:4+size])
	swapBuffer(v.buf[:size])

	return nil
}

// dciReplaceData patches data into the blob at index at offset pos, leaving
// the rest of the blob untouched
func (v *VL53L5CX) dciReplaceData(index uint16, size int, data []byte, pos int) error {

	if pos < 0 || pos+len(data) > size {
		return fmt.Errorf("dci replace 0x%04X at %d+%d exceeds %d bytes: %w",
			index, pos, len(data), size, ErrInvalidParam)
	}

	if err := v.dciReadData(index, size); err != nil {
		return err
	}

	copy(v.buf[pos:], data)

	return v.dciWriteData(index, size)
}
