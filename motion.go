package vl53l5cx

import (
	"encoding/binary"
	"fmt"
)

const (
	// MOTION_CONFIG_SIZE is the size of the motion detector configuration blob
	MOTION_CONFIG_SIZE = 156

	// valid motion detection window
	motionMinDistanceMM  = 400
	motionMaxDistanceMM  = 4000
	motionMaxWindowMM    = 1500
	motionUnmappedZoneID = -1
)

// MotionConfig is the motion detector configuration. It is held by the
// caller and written whole to the sensor on every change
type MotionConfig struct {
	RefBinOffset              int32
	DetectionThreshold        uint32
	ExtraNoiseSigma           uint32
	NullDenClipValue          uint32
	MemUpdateMode             uint8
	MemUpdateChoice           uint8
	SumSpan                   uint8
	FeatureLength             uint8
	NbOfAggregates            uint8
	NbOfTemporalAccumulations uint8
	MinNbForGlobalDetection   uint8
	GlobalIndicatorFormat1    uint8
	GlobalIndicatorFormat2    uint8
	Spare1                    uint8
	Spare2                    uint8
	Spare3                    uint8
	// MapID maps every zone to one of the 16 motion aggregates, -1 leaves
	// the zone out
	MapID            [64]int8
	IndicatorFormat1 [32]uint8
	IndicatorFormat2 [32]uint8
}

// marshal writes c in host byte order into b
func (c *MotionConfig) marshal(b []byte) {

	binary.LittleEndian.PutUint32(b[0:], uint32(c.RefBinOffset))
	binary.LittleEndian.PutUint32(b[4:], c.DetectionThreshold)
	binary.LittleEndian.PutUint32(b[8:], c.ExtraNoiseSigma)
	binary.LittleEndian.PutUint32(b[12:], c.NullDenClipValue)

	copy(b[16:28], []byte{
		c.MemUpdateMode,
		c.MemUpdateChoice,
		c.SumSpan,
		c.FeatureLength,
		c.NbOfAggregates,
		c.NbOfTemporalAccumulations,
		c.MinNbForGlobalDetection,
		c.GlobalIndicatorFormat1,
		c.GlobalIndicatorFormat2,
		c.Spare1,
		c.Spare2,
		c.Spare3,
	})

	for i, id := range c.MapID {
		b[28+i] = byte(id)
	}

	copy(b[92:124], c.IndicatorFormat1[:])
	copy(b[124:156], c.IndicatorFormat2[:])
}

// writeMotionConfig sends the whole configuration to the sensor
func (v *VL53L5CX) writeMotionConfig(c *MotionConfig) error {

	c.marshal(v.buf[:MOTION_CONFIG_SIZE])

	if err := v.dciWriteData(DCI_MOTION_DETECTOR_CFG, MOTION_CONFIG_SIZE); err != nil {
		return fmt.Errorf("motion config: %w", err)
	}

	return nil
}

// MotionIndicatorInit resets c to the default motion detector settings for
// res and writes it to the sensor. It must be called after Init() and before
// StartRanging() for the MotionIndicator output to carry meaningful data
func (v *VL53L5CX) MotionIndicatorInit(c *MotionConfig, res Resolution) error {

	*c = MotionConfig{
		RefBinOffset:              13633,
		DetectionThreshold:        2883584,
		MemUpdateMode:             6,
		MemUpdateChoice:           2,
		SumSpan:                   4,
		FeatureLength:             9,
		NbOfAggregates:            16,
		NbOfTemporalAccumulations: 16,
		MinNbForGlobalDetection:   1,
		GlobalIndicatorFormat1:    8,
	}

	return v.SetMotionResolution(c, res)
}

// SetMotionResolution maps the zones of res onto the motion aggregates and
// writes c. It has to follow every SetResolution() while motion detection is
// in use
func (v *VL53L5CX) SetMotionResolution(c *MotionConfig, res Resolution) error {

	switch res {
	case Resolution4x4:
		for i := range c.MapID {
			if i < int(Resolution4x4) {
				c.MapID[i] = int8(i)
			} else {
				c.MapID[i] = motionUnmappedZoneID
			}
		}

	case Resolution8x8:
		// each 2x2 block of zones feeds one aggregate
		for i := range c.MapID {
			c.MapID[i] = int8((i%8)/2 + 4*(i/16))
		}

	default:
		return fmt.Errorf("motion resolution %d: %w", int(res), ErrInvalidParam)
	}

	return v.writeMotionConfig(c)
}

// SetMotionDistance sets the distance window watched for motion. The window
// must lie within 400-4000 mm and span at most 1500 mm
func (v *VL53L5CX) SetMotionDistance(c *MotionConfig, minMM, maxMM uint16) error {

	if minMM < motionMinDistanceMM || maxMM > motionMaxDistanceMM ||
		maxMM < minMM || maxMM-minMM > motionMaxWindowMM {
		return fmt.Errorf("motion window %d-%d mm: %w", minMM, maxMM, ErrInvalidParam)
	}

	c.RefBinOffset = int32((float32(minMM)/37.5348 - 4.0) * 2048.5)
	c.FeatureLength = uint8((float32(maxMM-minMM)/10.0+30.02784)/15.01392 + 0.5)

	return v.writeMotionConfig(c)
}
