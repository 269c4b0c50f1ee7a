package vl53l5cx

import (
	"encoding/binary"
	"fmt"
)

const (
	// frameOverhead is the fixed per frame overhead on top of the block
	// headers and their payloads
	frameOverhead = 24

	// frameDataStart skips the fixed frame headers
	frameDataStart = 16

	// perZoneIdxStart and perZoneIdxEnd bound the field identifiers sized by
	// zone only, all other arrays are sized by zone and target
	perZoneIdxStart = 0x54D0
	perZoneIdxEnd   = perZoneIdxStart + 960

	// autoStopped is the auto stop flag value once the firmware has stopped
	// by itself
	autoStopped = 0x4FF

	// streamCountReset is the stream count sentinel, no frame has this count
	streamCountReset = 0xFF
)

// outputList is the candidate output fields in the order the firmware expects
var outputList = [12]BlockHeader{
	START_BH,
	METADATA_BH,
	COMMONDATA_BH,
	AMBIENT_RATE_BH,
	SPAD_COUNT_BH,
	NB_TARGET_DETECTED_BH,
	SIGNAL_RATE_BH,
	RANGE_SIGMA_MM_BH,
	DISTANCE_BH,
	REFLECTANCE_BH,
	TARGET_STATUS_BH,
	MOTION_DETECT_BH,
}

// outputDescriptor returns the output list sized for res and targets, the
// output enable words and the resulting frame size in bytes
func outputDescriptor(res Resolution, targets int, outputs Outputs) ([12]BlockHeader, [4]uint32, uint32) {

	list := outputList
	enables := [4]uint32{0x00000007, 0x00000000, 0x00000000, 0xC0000000}
	enables[0] |= outputs.enableMask()

	var size uint32

	for i, bh := range list {

		if bh == 0 || enables[i/32]&(1<<(i%32)) == 0 {
			continue
		}

		if bh.IsArray() {
			if bh.Idx() >= perZoneIdxStart && bh.Idx() < perZoneIdxEnd {
				bh = bh.WithSize(uint16(res))
			} else {
				bh = bh.WithSize(uint16(int(res) * targets))
			}
		}

		size += uint32(bh.PayloadSize()) + 4
		list[i] = bh
	}

	return list, enables, size + frameOverhead
}

// StartRanging starts a ranging session. Settings cannot be changed while the
// sensor streams
func (v *VL53L5CX) StartRanging() error {

	v.log.Print("Start ranging")

	res, err := v.Resolution()

	if err != nil {
		return err
	}

	v.dataReadSize = 0
	v.streamCount = streamCountReset

	list, enables, size := outputDescriptor(res, v.targetsPerZone, v.outputs)

	for i, bh := range list {
		binary.LittleEndian.PutUint32(v.buf[i*4:], uint32(bh))
	}

	if err := v.dciWriteData(DCI_OUTPUT_LIST, 4*len(list)); err != nil {
		return err
	}

	// frame size and number of block headers, start included
	binary.LittleEndian.PutUint32(v.buf[0:], size)
	binary.LittleEndian.PutUint32(v.buf[4:], uint32(len(list)+1))

	if err := v.dciWriteData(DCI_OUTPUT_CONFIG, 8); err != nil {
		return err
	}

	putUint32s(v.buf, enables[:])

	if err := v.dciWriteData(DCI_OUTPUT_ENABLES, 16); err != nil {
		return err
	}

	// start xshut bypass (interrupt mode)
	if err := v.writeSequence([]regWrite{
		{PAGE_SELECT, 0x00},
		{XSHUT_BYPASS, 0x05},
		{PAGE_SELECT, 0x02},
	}); err != nil {
		return err
	}

	cmd := []byte{0x00, 0x03, 0x00, 0x00}

	if err := v.writeMultiToRegister(UI_CMD_END-3, cmd); err != nil {
		return err
	}

	if err := v.pollForAnswer(4, 1, UI_CMD_STATUS, 0xFF, statusCommandDone); err != nil {
		return fmt.Errorf("start ranging: %w", err)
	}

	// check the firmware agrees on the frame size
	if err := v.dciReadData(DCI_UI_RANGE_DATA_CONFIG, 12); err != nil {
		return err
	}

	if got := binary.LittleEndian.Uint16(v.buf[8:10]); uint32(got) != size {
		v.log.Printf("Frame size mismatch, sensor %d, driver %d", got, size)
		return fmt.Errorf("sensor frame size %d, expected %d: %w", got, size, ErrFailure)
	}

	v.dataReadSize = size

	v.log.Printf("Ranging at %s, %d byte frames", res, size)

	return nil
}

// StopRanging stops the ranging session. A timeout waiting for the MCU to stop
// is logged but not returned
func (v *VL53L5CX) StopRanging() error {

	v.log.Print("Stop ranging")

	if err := v.readFromRegister(AUTO_STOP_FLAG, 4); err != nil {
		return err
	}

	if binary.LittleEndian.Uint32(v.buf[:4]) != autoStopped {

		// provoke MCU stop
		if err := v.writeSequence([]regWrite{
			{PAGE_SELECT, 0x00},
			{MCU_STOP_TRIGGER, 0x16},
			{MCU_STOP_CTRL, 0x01},
		}); err != nil {
			return err
		}

		stopped := false

		for i := 0; i < stopPollRetries; i++ {

			if err := v.readFromRegister(GO2_STATUS_0, 1); err != nil {
				return err
			}

			v.delay(pollDelayMs)

			if v.buf[0]&0x80 != 0 {
				stopped = true
				break
			}
		}

		if !stopped {
			v.log.Print("Timeout waiting for MCU stop")
		}
	}

	if err := v.selectPage(0x00); err != nil {
		return err
	}

	// check GO2 status 1 if status is still OK
	if err := v.readFromRegister(GO2_STATUS_0, 1); err != nil {
		return err
	}

	if v.buf[0]&0x80 != 0 {

		if err := v.readFromRegister(GO2_STATUS_1, 1); err != nil {
			return err
		}

		if v.buf[0] != 0x84 && v.buf[0] != 0x85 {
			v.dataReadSize = 0
			return v.selectPage(0x02)
		}
	}

	// undo MCU stop, then stop xshut bypass
	if err := v.writeSequence([]regWrite{
		{PAGE_SELECT, 0x00},
		{MCU_STOP_CTRL, 0x00},
		{MCU_STOP_TRIGGER, 0x00},
		{XSHUT_BYPASS, 0x04},
		{PAGE_SELECT, 0x02},
	}); err != nil {
		return err
	}

	v.dataReadSize = 0

	return nil
}

// CheckDataReady reports whether a new frame is available. A raised GO2 fault
// bit is returned as ErrHardwareFault
func (v *VL53L5CX) CheckDataReady() (bool, error) {

	if err := v.readFromRegister(0x0000, 4); err != nil {
		return false, err
	}

	if v.buf[3]&0x80 != 0 {
		return false, fmt.Errorf("status 0x%02X: %w", v.buf[3], ErrHardwareFault)
	}

	count := v.buf[0]

	if count != v.streamCount &&
		count != streamCountReset &&
		v.buf[1] == 0x05 &&
		v.buf[2]&0x05 == 0x05 &&
		v.buf[3]&0x10 == 0x10 {

		v.streamCount = count
		return true, nil
	}

	return false, nil
}

// GetRangingData reads and decodes the current frame
func (v *VL53L5CX) GetRangingData() (*ResultsData, error) {

	if v.dataReadSize == 0 {
		return nil, fmt.Errorf("ranging not started: %w", ErrFailure)
	}

	size := int(v.dataReadSize)

	if err := v.readFromRegister(0x0000, size); err != nil {
		return nil, err
	}

	v.streamCount = v.buf[0]
	frame := v.buf[:size]
	swapBuffer(frame)

	return parseFrame(frame, v.targetsPerZone, v.outputs, v.rawFormat)
}

// ReadFrame waits for a new frame and returns it, giving up with ErrTimeout
// once the timeout set by SetTimeout() expires
func (v *VL53L5CX) ReadFrame() (*ResultsData, error) {

	v.startTimeout()

	for {
		ready, err := v.CheckDataReady()

		if err != nil {
			return nil, err
		}

		if ready {
			break
		}

		if v.checkTimeoutExpired() {
			v.didTimeout = true
			return nil, fmt.Errorf("waiting for frame: %w", ErrTimeout)
		}

		v.delay(1)
	}

	return v.GetRangingData()
}

// parseFrame decodes a host order frame. The frame is rejected when its
// header and footer ids differ
func parseFrame(frame []byte, targets int, outputs Outputs, raw bool) (*ResultsData, error) {

	if len(frame) < frameDataStart {
		return nil, fmt.Errorf("frame of %d bytes: %w", len(frame), ErrCorruptedFrame)
	}

	r := &ResultsData{TargetsPerZone: targets}

	for i := frameDataStart; i+4 <= len(frame); {

		bh := BlockHeader(binary.LittleEndian.Uint32(frame[i:]))
		size := bh.PayloadSize()
		i += 4

		var src []byte

		if i+size <= len(frame) {
			src = frame[i : i+size]
		}

		i += size

		switch bh.Idx() {
		case METADATA_IDX:
			if len(src) > 8 {
				r.SiliconTempDegC = int8(src[8])
			}
		case AMBIENT_RATE_IDX:
			if outputs.AmbientPerSpad {
				getUint32s(r.AmbientPerSpad[:], src)
			}
		case SPAD_COUNT_IDX:
			if outputs.NbSpadsEnabled {
				getUint32s(r.NbSpadsEnabled[:], src)
			}
		case NB_TARGET_DETECTED_IDX:
			if outputs.NbTargetDetected {
				copy(r.NbTargetDetected[:], src)
			}
		case SIGNAL_RATE_IDX:
			if outputs.SignalPerSpad {
				getUint32s(r.SignalPerSpad[:], src)
			}
		case RANGE_SIGMA_MM_IDX:
			if outputs.RangeSigmaMM {
				getUint16s(r.RangeSigmaMM[:], src)
			}
		case DISTANCE_IDX:
			if outputs.DistanceMM {
				getInt16s(r.DistanceMM[:], src)
			}
		case REFLECTANCE_EST_PC_IDX:
			if outputs.ReflectancePercent {
				copy(r.ReflectancePercent[:], src)
			}
		case TARGET_STATUS_IDX:
			if outputs.TargetStatus {
				for j := 0; j < len(src) && j < len(r.TargetStatus); j++ {
					r.TargetStatus[j] = TargetStatus(src[j])
				}
			}
		case MOTION_DETECT_IDX:
			if outputs.MotionIndicator {
				decodeMotionIndicator(&r.MotionIndicator, src)
			}
		}
	}

	if !raw {
		r.convert(outputs)
	}

	// matching ids detect frames torn by a concurrent update
	headerID := uint16(frame[8])<<8 | uint16(frame[9])
	footerID := uint16(frame[len(frame)-4])<<8 | uint16(frame[len(frame)-3])

	if headerID != footerID {
		return nil, fmt.Errorf("header id 0x%04X, footer id 0x%04X: %w", headerID, footerID, ErrCorruptedFrame)
	}

	return r, nil
}

// convert scales the raw fixed point results to physical units
func (r *ResultsData) convert(outputs Outputs) {

	slots := MaxZones * r.TargetsPerZone

	for i := range r.AmbientPerSpad {
		r.AmbientPerSpad[i] /= ambientScale
	}

	for i := 0; i < slots; i++ {
		r.DistanceMM[i] /= distanceScale
		if r.DistanceMM[i] < 0 {
			r.DistanceMM[i] = 0
		}

		r.ReflectancePercent[i] /= reflectanceScale
		r.RangeSigmaMM[i] /= sigmaScale
		r.SignalPerSpad[i] /= signalScale
	}

	// flag zones without targets
	if outputs.DistanceMM && outputs.TargetStatus && outputs.NbTargetDetected {
		for zone := 0; zone < MaxZones; zone++ {
			if r.NbTargetDetected[zone] != 0 {
				continue
			}
			for t := 0; t < r.TargetsPerZone; t++ {
				r.TargetStatus[r.Index(zone, t)] = StatusNoTarget
			}
		}
	}

	for i := range r.MotionIndicator.Motion {
		r.MotionIndicator.Motion[i] /= motionScale
	}
}
