package vl53l5cx

import (
	"encoding/binary"

	"periph.io/x/conn/v3/physic"
)

// Block headers of the candidate output fields, in output list order. The
// size of the per zone and per target fields is rewritten for the active
// resolution when ranging starts
const (
	START_BH              BlockHeader = 0x0000000D
	METADATA_BH           BlockHeader = 0x54B400C0
	COMMONDATA_BH         BlockHeader = 0x54C00040
	AMBIENT_RATE_BH       BlockHeader = 0x54D00104
	SPAD_COUNT_BH         BlockHeader = 0x55D00404
	NB_TARGET_DETECTED_BH BlockHeader = 0xDB840401
	SIGNAL_RATE_BH        BlockHeader = 0xDBC40404
	RANGE_SIGMA_MM_BH     BlockHeader = 0xDEC40402
	DISTANCE_BH           BlockHeader = 0xDF440402
	REFLECTANCE_BH        BlockHeader = 0xE0440401
	TARGET_STATUS_BH      BlockHeader = 0xE0840401
	MOTION_DETECT_BH      BlockHeader = 0xD85808C0
)

// Field identifiers found in streamed frames
const (
	METADATA_IDX           uint16 = 0x54B4
	SPAD_COUNT_IDX         uint16 = 0x55D0
	AMBIENT_RATE_IDX       uint16 = 0x54D0
	NB_TARGET_DETECTED_IDX uint16 = 0xDB84
	SIGNAL_RATE_IDX        uint16 = 0xDBC4
	RANGE_SIGMA_MM_IDX     uint16 = 0xDEC4
	DISTANCE_IDX           uint16 = 0xDF44
	REFLECTANCE_EST_PC_IDX uint16 = 0xE044
	TARGET_STATUS_IDX      uint16 = 0xE084
	MOTION_DETECT_IDX      uint16 = 0xD858
)

const (
	// MaxZones is the zone count at 8x8
	MaxZones = 64

	// maxTargetSlots is the per target array length at the largest target
	// count
	maxTargetSlots = MaxZones * MaxTargetsPerZone

	// motionIndicatorSize is the encoded size of a MotionIndicator
	motionIndicatorSize = 140

	// fixed point scale of the raw results
	ambientScale     = 2048
	signalScale      = 2048
	distanceScale    = 4
	reflectanceScale = 2
	sigmaScale       = 128
	motionScale      = 65535
)

// TargetStatus is the validity of a target measurement
type TargetStatus uint8

const (
	StatusNotUpdated             TargetStatus = 0
	StatusLowSignal              TargetStatus = 1
	StatusTargetPhase            TargetStatus = 2
	StatusSigmaHigh              TargetStatus = 3
	StatusTargetConsistency      TargetStatus = 4
	StatusRangeValid             TargetStatus = 5
	StatusWrapAround             TargetStatus = 6
	StatusRateConsistency        TargetStatus = 7
	StatusLowSignalRate          TargetStatus = 8
	StatusRangeValidLargePulse   TargetStatus = 9
	StatusRangeValidNoTarget     TargetStatus = 10
	StatusMeasurementConsistency TargetStatus = 11
	StatusBlurred                TargetStatus = 12
	StatusTargetBlurred          TargetStatus = 13
	StatusNoTarget               TargetStatus = 255
)

// String implement Stringer interface for TargetStatus
func (s TargetStatus) String() string {
	switch s {
	case StatusNotUpdated:
		return "ranging data not updated"
	case StatusLowSignal:
		return "signal rate too low on SPAD array"
	case StatusTargetPhase:
		return "target phase"
	case StatusSigmaHigh:
		return "sigma estimator too high"
	case StatusTargetConsistency:
		return "target consistency failed"
	case StatusRangeValid:
		return "range valid"
	case StatusWrapAround:
		return "wrap around not performed"
	case StatusRateConsistency:
		return "rate consistency failed"
	case StatusLowSignalRate:
		return "signal rate too low for current target"
	case StatusRangeValidLargePulse:
		return "range valid with large pulse"
	case StatusRangeValidNoTarget:
		return "range valid, no target detected at previous range"
	case StatusMeasurementConsistency:
		return "measurement consistency failed"
	case StatusBlurred:
		return "target blurred by another one"
	case StatusTargetBlurred:
		return "target detected but inconsistent data"
	case StatusNoTarget:
		return "no target detected"
	default:
		return "unknown status"
	}
}

// Valid reports whether the status is one of the range valid codes
func (s TargetStatus) Valid() bool {
	return s == StatusRangeValid || s == StatusRangeValidLargePulse
}

// MotionIndicator holds the motion detector results
type MotionIndicator struct {
	GlobalIndicator1       uint32
	GlobalIndicator2       uint32
	Status                 uint8
	NbOfDetectedAggregates uint8
	NbOfAggregates         uint8
	Spare                  uint8
	Motion                 [32]uint32
}

// decodeMotionIndicator fills m from the little endian record in b
func decodeMotionIndicator(m *MotionIndicator, b []byte) {

	if len(b) < motionIndicatorSize {
		return
	}

	m.GlobalIndicator1 = binary.LittleEndian.Uint32(b[0:])
	m.GlobalIndicator2 = binary.LittleEndian.Uint32(b[4:])
	m.Status = b[8]
	m.NbOfDetectedAggregates = b[9]
	m.NbOfAggregates = b[10]
	m.Spare = b[11]

	getUint32s(m.Motion[:], b[12:motionIndicatorSize])
}

// ResultsData holds one decoded ranging frame. Per zone arrays are indexed by
// zone, per target arrays by zone*TargetsPerZone + target. Fields of disabled
// outputs stay zero
type ResultsData struct {
	// SiliconTempDegC is the internal sensor silicon temperature
	SiliconTempDegC int8

	// TargetsPerZone is the stride of the per target arrays
	TargetsPerZone int

	// per zone results, common to all targets

	// AmbientPerSpad is the ambient noise in kcps/spad
	AmbientPerSpad [MaxZones]uint32
	// NbTargetDetected is the number of valid targets in the zone
	NbTargetDetected [MaxZones]uint8
	// NbSpadsEnabled is the number of SPADs enabled for the ranging
	NbSpadsEnabled [MaxZones]uint32

	// per target results

	// SignalPerSpad is the returned signal in kcps/spad
	SignalPerSpad [maxTargetSlots]uint32
	// RangeSigmaMM is the sigma of the distance in mm
	RangeSigmaMM [maxTargetSlots]uint16
	// DistanceMM is the measured distance in mm
	DistanceMM [maxTargetSlots]int16
	// ReflectancePercent is the estimated reflectance in percent
	ReflectancePercent [maxTargetSlots]uint8
	// TargetStatus is the measurement validity
	TargetStatus [maxTargetSlots]TargetStatus

	// MotionIndicator holds the motion detector results
	MotionIndicator MotionIndicator
}

// Index returns the per target array index of target in zone
func (r *ResultsData) Index(zone, target int) int {
	return zone*r.TargetsPerZone + target
}

// Temperature returns the silicon temperature
func (r *ResultsData) Temperature() physic.Temperature {
	return physic.ZeroCelsius + physic.Temperature(r.SiliconTempDegC)*physic.Kelvin
}
