package vl53l5cx

import (
	"encoding/binary"
	"fmt"
)

// Resolution is the number of ranging zones
type Resolution int

const (
	// Resolution4x4 ranges 16 zones, up to 60 Hz
	Resolution4x4 Resolution = 16
	// Resolution8x8 ranges 64 zones, up to 15 Hz
	Resolution8x8 Resolution = 64
)

// Width returns the number of zones per row
func (r Resolution) Width() int {
	if r == Resolution4x4 {
		return 4
	}
	return 8
}

// String implements Stringer interface for Resolution
func (r Resolution) String() string {
	switch r {
	case Resolution4x4:
		return "4x4"
	case Resolution8x8:
		return "8x8"
	default:
		return fmt.Sprintf("Resolution(%d)", int(r))
	}
}

// RangingMode selects between free running and timed ranging
type RangingMode uint8

const (
	// Continuous ranges back to back, the integration time is ignored
	Continuous RangingMode = 1
	// Autonomous ranges at the programmed frequency with the programmed
	// integration time
	Autonomous RangingMode = 3
)

// String implements Stringer interface for RangingMode
func (m RangingMode) String() string {
	switch m {
	case Continuous:
		return "continuous"
	case Autonomous:
		return "autonomous"
	default:
		return "unknown mode"
	}
}

// TargetOrder selects which target is reported first when several targets
// are detected in a zone
type TargetOrder uint8

const (
	Closest   TargetOrder = 1
	Strongest TargetOrder = 2
)

// String implements Stringer interface for TargetOrder
func (o TargetOrder) String() string {
	switch o {
	case Closest:
		return "closest"
	case Strongest:
		return "strongest"
	default:
		return "unknown order"
	}
}

// PowerMode is the sensor power state
type PowerMode uint8

const (
	Sleep  PowerMode = 0
	Wakeup PowerMode = 1
)

const (
	// valid frequency ranges per resolution
	maxFrequency4x4 = 60
	maxFrequency8x8 = 15

	minIntegrationMs = 2
	maxIntegrationMs = 1000

	maxSharpenerPercent = 99
)

// Resolution reads the current ranging resolution from the sensor
func (v *VL53L5CX) Resolution() (Resolution, error) {

	if err := v.dciReadData(DCI_ZONE_CONFIG, 8); err != nil {
		return 0, err
	}

	return Resolution(int(v.buf[0x00]) * int(v.buf[0x01])), nil
}

// SetResolution changes the ranging resolution and re-sends the calibration
// data for it. Must be called before StartRanging()
func (v *VL53L5CX) SetResolution(res Resolution) error {

	var dss, zoneCfg byte

	switch res {
	case Resolution4x4:
		dss, zoneCfg = 64, 4
	case Resolution8x8:
		dss, zoneCfg = 16, 8
	default:
		return fmt.Errorf("resolution %d: %w", int(res), ErrInvalidParam)
	}

	v.log.Printf("Setting resolution %s", res)

	if err := v.dciReadData(DCI_DSS_CONFIG, 16); err != nil {
		return err
	}

	v.buf[0x04] = dss
	v.buf[0x06] = dss

	if res == Resolution4x4 {
		v.buf[0x09] = 4
	} else {
		v.buf[0x09] = 1
	}

	if err := v.dciWriteData(DCI_DSS_CONFIG, 16); err != nil {
		return err
	}

	if err := v.dciReadData(DCI_ZONE_CONFIG, 8); err != nil {
		return err
	}

	// zones per side, then zone pitch
	v.buf[0x00] = zoneCfg
	v.buf[0x01] = zoneCfg
	v.buf[0x04] = 32 / zoneCfg
	v.buf[0x05] = 32 / zoneCfg

	if err := v.dciWriteData(DCI_ZONE_CONFIG, 8); err != nil {
		return err
	}

	if err := v.sendOffsetData(res); err != nil {
		return err
	}

	return v.sendXtalkData(res)
}

// RangingFrequencyHz returns the ranging frequency
func (v *VL53L5CX) RangingFrequencyHz() (uint8, error) {

	if err := v.dciReadData(DCI_FREQ_HZ, 4); err != nil {
		return 0, err
	}

	return v.buf[0x01], nil
}

// SetRangingFrequencyHz sets the ranging frequency, 1-60 Hz at 4x4 and 1-15 Hz
// at 8x8
func (v *VL53L5CX) SetRangingFrequencyHz(hz uint8) error {

	res, err := v.Resolution()

	if err != nil {
		return err
	}

	limit := uint8(maxFrequency8x8)

	if res == Resolution4x4 {
		limit = maxFrequency4x4
	}

	if hz < 1 || hz > limit {
		return fmt.Errorf("frequency %d Hz not in 1-%d at %s: %w", hz, limit, res, ErrInvalidParam)
	}

	return v.dciReplaceData(DCI_FREQ_HZ, 4, []byte{hz}, 0x01)
}

// IntegrationTimeMs returns the integration time used in autonomous mode
func (v *VL53L5CX) IntegrationTimeMs() (uint32, error) {

	if err := v.dciReadData(DCI_INT_TIME, 20); err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint32(v.buf[:4]) / 1000, nil
}

// SetIntegrationTimeMs sets the integration time, 2-1000 ms
func (v *VL53L5CX) SetIntegrationTimeMs(ms uint32) error {

	if ms < minIntegrationMs || ms > maxIntegrationMs {
		return fmt.Errorf("integration time %d ms not in %d-%d: %w",
			ms, minIntegrationMs, maxIntegrationMs, ErrInvalidParam)
	}

	var us [4]byte
	binary.LittleEndian.PutUint32(us[:], ms*1000)

	return v.dciReplaceData(DCI_INT_TIME, 20, us[:], 0x00)
}

// RangingMode returns the ranging mode
func (v *VL53L5CX) RangingMode() (RangingMode, error) {

	if err := v.dciReadData(DCI_RANGING_MODE, 8); err != nil {
		return 0, err
	}

	if v.buf[0x01] == 0x01 {
		return Continuous, nil
	}

	return Autonomous, nil
}

// SetRangingMode sets the ranging mode and the matching single range flag
func (v *VL53L5CX) SetRangingMode(mode RangingMode) error {

	var singleRange uint32

	if err := v.dciReadData(DCI_RANGING_MODE, 8); err != nil {
		return err
	}

	switch mode {
	case Continuous:
		v.buf[0x01] = 0x01
		v.buf[0x03] = 0x03
		singleRange = 0x00
	case Autonomous:
		v.buf[0x01] = 0x03
		v.buf[0x03] = 0x02
		singleRange = 0x01
	default:
		return fmt.Errorf("ranging mode %d: %w", mode, ErrInvalidParam)
	}

	if err := v.dciWriteData(DCI_RANGING_MODE, 8); err != nil {
		return err
	}

	binary.LittleEndian.PutUint32(v.buf[:4], singleRange)

	return v.dciWriteData(DCI_SINGLE_RANGE, 4)
}

// TargetOrder returns the target order
func (v *VL53L5CX) TargetOrder() (TargetOrder, error) {

	if err := v.dciReadData(DCI_TARGET_ORDER, 4); err != nil {
		return 0, err
	}

	return TargetOrder(v.buf[0x00]), nil
}

// SetTargetOrder sets the target order
func (v *VL53L5CX) SetTargetOrder(order TargetOrder) error {

	if order != Closest && order != Strongest {
		return fmt.Errorf("target order %d: %w", order, ErrInvalidParam)
	}

	return v.dciReplaceData(DCI_TARGET_ORDER, 4, []byte{byte(order)}, 0x00)
}

// SharpenerPercent returns the sharpener, which removes signal bleeding from
// nearby zones
func (v *VL53L5CX) SharpenerPercent() (uint8, error) {

	if err := v.dciReadData(DCI_SHARPENER, 16); err != nil {
		return 0, err
	}

	return uint8(uint16(v.buf[0x0D]) * 100 / 255), nil
}

// SetSharpenerPercent sets the sharpener, 0-99 percent where 0 disables it
func (v *VL53L5CX) SetSharpenerPercent(percent uint8) error {

	if percent > maxSharpenerPercent {
		return fmt.Errorf("sharpener %d%% not in 0-%d: %w", percent, maxSharpenerPercent, ErrInvalidParam)
	}

	sharpener := byte(uint16(percent) * 255 / 100)

	return v.dciReplaceData(DCI_SHARPENER, 16, []byte{sharpener}, 0x0D)
}

// PowerMode returns the sensor power state
func (v *VL53L5CX) PowerMode() (PowerMode, error) {

	if err := v.selectPage(0x00); err != nil {
		return 0, err
	}

	if err := v.readFromRegister(XSHUT_BYPASS, 1); err != nil {
		return 0, err
	}

	state := v.buf[0]

	if err := v.selectPage(0x02); err != nil {
		return 0, err
	}

	switch state {
	case 0x04:
		return Wakeup, nil
	case 0x02:
		return Sleep, nil
	default:
		return 0, fmt.Errorf("unknown power state 0x%02X: %w", state, ErrFailure)
	}
}

// SetPowerMode puts the sensor to sleep or wakes it. Sleep keeps the firmware
// and configuration loaded
func (v *VL53L5CX) SetPowerMode(mode PowerMode) error {

	current, err := v.PowerMode()

	if err != nil {
		return err
	}

	if current == mode {
		return nil
	}

	var value, expected uint8

	switch mode {
	case Wakeup:
		value, expected = 0x04, 0x01
	case Sleep:
		value, expected = 0x02, 0x00
	default:
		return fmt.Errorf("power mode %d: %w", mode, ErrInvalidParam)
	}

	if err := v.selectPage(0x00); err != nil {
		return err
	}

	if err := v.writeToRegister(XSHUT_BYPASS, value); err != nil {
		return err
	}

	if err := v.pollForAnswer(1, 0, GO2_STATUS_0, 0x01, expected); err != nil {
		return fmt.Errorf("set power mode: %w", err)
	}

	return v.selectPage(0x02)
}

// EnableInternalCP turns on the internal charge pump used by the VCSEL
// driver. It is on by default after Init()
func (v *VL53L5CX) EnableInternalCP() error {
	return v.setInternalCP(0x01, 0x00)
}

// DisableInternalCP turns off the internal charge pump, for boards
// supplying AVDD at 3.3 V
func (v *VL53L5CX) DisableInternalCP() error {
	return v.setInternalCP(0x00, 0x01)
}

func (v *VL53L5CX) setInternalCP(vcselBootup, analogPad byte) error {

	if err := v.dciReplaceData(DCI_INTERNAL_CP, 16, []byte{vcselBootup}, 0x0A); err != nil {
		return err
	}

	return v.dciReplaceData(DCI_INTERNAL_CP, 16, []byte{analogPad}, 0x0E)
}

// ExternalSyncPinEnabled reports whether ranging waits on the external sync
// pin
func (v *VL53L5CX) ExternalSyncPinEnabled() (bool, error) {

	if err := v.dciReadData(DCI_SYNC_PIN, 4); err != nil {
		return false, err
	}

	return v.buf[0x03]&0x02 != 0, nil
}

// SetExternalSyncPin makes each ranging wait on the external sync pin
func (v *VL53L5CX) SetExternalSyncPin(enabled bool) error {

	if err := v.dciReadData(DCI_SYNC_PIN, 4); err != nil {
		return err
	}

	if enabled {
		v.buf[0x03] |= 0x02
	} else {
		v.buf[0x03] &^= 0x02
	}

	return v.dciWriteData(DCI_SYNC_PIN, 4)
}
