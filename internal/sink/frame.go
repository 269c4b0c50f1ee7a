// Package sink carries decoded ranging frames out of the process: CBOR
// recordings, websocket clients, serial links and modbus holding registers.
package sink

import (
	"time"

	vl53l5cx "github.com/swdee/go-vl53l5cx"
)

// Frame is the wire form of one ranging frame. Per target slices are indexed
// zone*Targets + target, slices of disabled outputs are left out
type Frame struct {
	Seq         uint64   `cbor:"1,keyasint"`
	UnixMilli   int64    `cbor:"2,keyasint"`
	Zones       int      `cbor:"3,keyasint"`
	Targets     int      `cbor:"4,keyasint"`
	TempC       int8     `cbor:"5,keyasint"`
	Ambient     []uint32 `cbor:"6,keyasint,omitempty"`
	NbTargets   []uint8  `cbor:"7,keyasint,omitempty"`
	NbSpads     []uint32 `cbor:"8,keyasint,omitempty"`
	Signal      []uint32 `cbor:"9,keyasint,omitempty"`
	Sigma       []uint16 `cbor:"10,keyasint,omitempty"`
	Distance    []int16  `cbor:"11,keyasint,omitempty"`
	Reflectance []uint8  `cbor:"12,keyasint,omitempty"`
	Status      []uint8  `cbor:"13,keyasint,omitempty"`
	Motion      []uint32 `cbor:"14,keyasint,omitempty"`
}

// NewFrame copies the enabled outputs of r for the first zones zones
func NewFrame(seq uint64, at time.Time, zones int, outputs vl53l5cx.Outputs, r *vl53l5cx.ResultsData) *Frame {
	slots := zones * r.TargetsPerZone

	f := &Frame{
		Seq:       seq,
		UnixMilli: at.UnixMilli(),
		Zones:     zones,
		Targets:   r.TargetsPerZone,
		TempC:     r.SiliconTempDegC,
	}

	if outputs.AmbientPerSpad {
		f.Ambient = append([]uint32(nil), r.AmbientPerSpad[:zones]...)
	}
	if outputs.NbTargetDetected {
		f.NbTargets = append([]uint8(nil), r.NbTargetDetected[:zones]...)
	}
	if outputs.NbSpadsEnabled {
		f.NbSpads = append([]uint32(nil), r.NbSpadsEnabled[:zones]...)
	}
	if outputs.SignalPerSpad {
		f.Signal = append([]uint32(nil), r.SignalPerSpad[:slots]...)
	}
	if outputs.RangeSigmaMM {
		f.Sigma = append([]uint16(nil), r.RangeSigmaMM[:slots]...)
	}
	if outputs.DistanceMM {
		f.Distance = append([]int16(nil), r.DistanceMM[:slots]...)
	}
	if outputs.ReflectancePercent {
		f.Reflectance = append([]uint8(nil), r.ReflectancePercent[:slots]...)
	}
	if outputs.TargetStatus {
		f.Status = make([]uint8, slots)
		for i := range f.Status {
			f.Status[i] = uint8(r.TargetStatus[i])
		}
	}
	if outputs.MotionIndicator {
		f.Motion = append([]uint32(nil), r.MotionIndicator.Motion[:]...)
	}

	return f
}

// Time returns the capture time of the frame
func (f *Frame) Time() time.Time {
	return time.UnixMilli(f.UnixMilli)
}

// Width is the number of zones on one side of the grid
func (f *Frame) Width() int {
	if f.Zones == 64 {
		return 8
	}
	return 4
}

// Results rebuilds the driver view of the frame
func (f *Frame) Results() *vl53l5cx.ResultsData {
	r := &vl53l5cx.ResultsData{
		SiliconTempDegC: f.TempC,
		TargetsPerZone:  f.Targets,
	}

	copy(r.AmbientPerSpad[:], f.Ambient)
	copy(r.NbTargetDetected[:], f.NbTargets)
	copy(r.NbSpadsEnabled[:], f.NbSpads)
	copy(r.SignalPerSpad[:], f.Signal)
	copy(r.RangeSigmaMM[:], f.Sigma)
	copy(r.DistanceMM[:], f.Distance)
	copy(r.ReflectancePercent[:], f.Reflectance)
	copy(r.MotionIndicator.Motion[:], f.Motion)

	for i, s := range f.Status {
		if i >= len(r.TargetStatus) {
			break
		}
		r.TargetStatus[i] = vl53l5cx.TargetStatus(s)
	}

	return r
}

// Sink receives every frame produced by a ranging session
type Sink interface {
	Send(f *Frame) error
	Close() error
}
