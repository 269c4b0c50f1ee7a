package vl53l5cx

import (
	"encoding/binary"
	"fmt"
)

const (
	// NB_THRESHOLDS is the number of detection thresholds held by the sensor
	NB_THRESHOLDS = 64

	thresholdSize       = 12
	thresholdsBlobSize  = NB_THRESHOLDS * thresholdSize
	thresholdConfigSize = 20
	thresholdGlobalSize = 8
)

// ThresholdMeasurement selects the result field a threshold is checked on
type ThresholdMeasurement uint8

const (
	MeasureDistanceMM         ThresholdMeasurement = 1
	MeasureSignalPerSpadKcps  ThresholdMeasurement = 2
	MeasureRangeSigmaMM       ThresholdMeasurement = 4
	MeasureAmbientPerSpadKcps ThresholdMeasurement = 8
	MeasureNbTargetDetected   ThresholdMeasurement = 9
	MeasureTargetStatus       ThresholdMeasurement = 12
	MeasureNbSpadsEnabled     ThresholdMeasurement = 13
	MeasureMotionIndicator    ThresholdMeasurement = 19
)

// ThresholdType is the comparison made against the low and high thresholds
type ThresholdType uint8

const (
	InWindow         ThresholdType = 0
	OutOfWindow      ThresholdType = 1
	LessThanEqualMin ThresholdType = 2
	GreaterThanMax   ThresholdType = 3
	EqualMin         ThresholdType = 4
	NotEqualMin      ThresholdType = 5
)

// ThresholdOperation combines a threshold with the previous ones of the same
// zone
type ThresholdOperation uint8

const (
	OperationNone ThresholdOperation = 0
	OperationOr   ThresholdOperation = 0
	OperationAnd  ThresholdOperation = 2
)

// LastThreshold is or'ed into ZoneNum of the last threshold in use
const LastThreshold uint8 = 128

// DetectionThreshold raises the interrupt when a zone measurement meets the
// comparison. Thresholds are in the physical units of ResultsData
type DetectionThreshold struct {
	LowThreshold  int32
	HighThreshold int32
	Measurement   ThresholdMeasurement
	Type          ThresholdType
	ZoneNum       uint8
	Operation     ThresholdOperation
}

// thresholdScale is the fixed point factor the firmware applies to a
// measurement
func thresholdScale(m ThresholdMeasurement) int32 {

	switch m {
	case MeasureDistanceMM:
		return 4
	case MeasureSignalPerSpadKcps, MeasureAmbientPerSpadKcps:
		return 2048
	case MeasureRangeSigmaMM:
		return 128
	case MeasureNbSpadsEnabled:
		return 256
	case MeasureMotionIndicator:
		return 65535
	default:
		return 1
	}
}

// DetectionThresholdsEnabled reports whether the thresholds drive the
// interrupt pin
func (v *VL53L5CX) DetectionThresholdsEnabled() (bool, error) {

	if err := v.dciReadData(DCI_DET_THRESH_GLOBAL_CONFIG, thresholdGlobalSize); err != nil {
		return false, err
	}

	return v.buf[0x01] == 0x01, nil
}

// SetDetectionThresholdsEnabled switches the interrupt between every new
// frame and frames meeting the detection thresholds
func (v *VL53L5CX) SetDetectionThresholdsEnabled(enabled bool) error {

	global := []byte{0x01, 0x00, 0x01, 0x00}
	intConfig := byte(0x0C)

	if enabled {
		global[0x01] = 0x01
		intConfig = 0x04
	}

	if err := v.dciReplaceData(DCI_DET_THRESH_GLOBAL_CONFIG, thresholdGlobalSize, global, 0x00); err != nil {
		return err
	}

	return v.dciReplaceData(DCI_DET_THRESH_CONFIG, thresholdConfigSize, []byte{intConfig}, 0x11)
}

// DetectionThresholds reads the thresholds back in physical units
func (v *VL53L5CX) DetectionThresholds() ([NB_THRESHOLDS]DetectionThreshold, error) {

	var th [NB_THRESHOLDS]DetectionThreshold

	if err := v.dciReadData(DCI_DET_THRESH_START, thresholdsBlobSize); err != nil {
		return th, err
	}

	for i := range th {
		b := v.buf[i*thresholdSize:]

		t := DetectionThreshold{
			LowThreshold:  int32(binary.LittleEndian.Uint32(b[0:])),
			HighThreshold: int32(binary.LittleEndian.Uint32(b[4:])),
			Measurement:   ThresholdMeasurement(b[8]),
			Type:          ThresholdType(b[9]),
			ZoneNum:       b[10],
			Operation:     ThresholdOperation(b[11]),
		}

		scale := thresholdScale(t.Measurement)
		t.LowThreshold /= scale
		t.HighThreshold /= scale

		th[i] = t
	}

	return th, nil
}

// SetDetectionThresholds writes the thresholds and marks range valid as the
// only status counted as a target
func (v *VL53L5CX) SetDetectionThresholds(th [NB_THRESHOLDS]DetectionThreshold) error {

	validTargets := []byte{0x05, 0x05, 0x05, 0x05, 0x05, 0x05, 0x05, 0x05, 0x05, 0x05, 0x05, 0x05}
	copy(v.buf, validTargets)

	if err := v.dciWriteData(DCI_DET_THRESH_VALID_STATUS, len(validTargets)); err != nil {
		return fmt.Errorf("threshold valid status: %w", err)
	}

	for i, t := range th {
		b := v.buf[i*thresholdSize:]
		scale := thresholdScale(t.Measurement)

		binary.LittleEndian.PutUint32(b[0:], uint32(t.LowThreshold*scale))
		binary.LittleEndian.PutUint32(b[4:], uint32(t.HighThreshold*scale))
		b[8] = byte(t.Measurement)
		b[9] = byte(t.Type)
		b[10] = t.ZoneNum
		b[11] = byte(t.Operation)
	}

	if err := v.dciWriteData(DCI_DET_THRESH_START, thresholdsBlobSize); err != nil {
		return fmt.Errorf("thresholds: %w", err)
	}

	return nil
}
