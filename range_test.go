package vl53l5cx

import (
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"periph.io/x/conn/v3/physic"
)

// testFrame builds host order frames
type testFrame struct {
	b []byte
}

func newTestFrame(id uint16) *testFrame {
	b := make([]byte, frameDataStart)
	b[8], b[9] = byte(id>>8), byte(id)
	return &testFrame{b: b}
}

func (f *testFrame) add(bh BlockHeader, payload []byte) *testFrame {
	f.b = binary.LittleEndian.AppendUint32(f.b, uint32(bh))
	f.b = append(f.b, payload...)
	return f
}

// finish pads the frame to size-4 and appends the footer id
func (f *testFrame) finish(id uint16, size int) []byte {
	for len(f.b) < size-4 {
		f.b = append(f.b, 0)
	}
	return append(f.b, byte(id>>8), byte(id), 0, 0)
}

func int16s(vals ...int16) []byte {
	b := make([]byte, 2*len(vals))
	putInt16s(b, vals)
	return b
}

func TestOutputDescriptor(t *testing.T) {

	tests := []struct {
		name        string
		res         Resolution
		targets     int
		outputs     Outputs
		wantSize    uint32
		wantEnables uint32
	}{
		{"4x4 all outputs", Resolution4x4, 1, AllOutputs(), 532, 0xFFF},
		{"4x4 distance", Resolution4x4, 1, Outputs{DistanceMM: true}, 88, 0x107},
		{"8x8 two targets", Resolution8x8, 2, AllOutputs(), 2148, 0xFFF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {

			list, enables, size := outputDescriptor(tt.res, tt.targets, tt.outputs)

			if size != tt.wantSize {
				t.Errorf("size = %d, want %d", size, tt.wantSize)
			}

			if enables[0] != tt.wantEnables || enables[3] != 0xC0000000 {
				t.Errorf("enables = %08X", enables)
			}

			// distance is sized per target, ambient per zone
			if got := list[8].Size(); int(got) != int(tt.res)*tt.targets {
				t.Errorf("distance size = %d", got)
			}

			if tt.outputs.AmbientPerSpad && int(list[3].Size()) != int(tt.res) {
				t.Errorf("ambient size = %d", list[3].Size())
			}
		})
	}
}

func TestStartRanging(t *testing.T) {

	v, f := newTestSensor(t, WithOutputs(Outputs{DistanceMM: true}))

	if err := v.StartRanging(); err != nil {
		t.Fatalf("StartRanging: %v", err)
	}

	if v.dataReadSize != 88 || v.streamCount != streamCountReset {
		t.Errorf("session size %d, stream count %d", v.dataReadSize, v.streamCount)
	}

	cfg := f.blobHost(DCI_OUTPUT_CONFIG)
	if binary.LittleEndian.Uint32(cfg) != 88 || binary.LittleEndian.Uint32(cfg[4:]) != 13 {
		t.Errorf("output config % X", cfg)
	}

	if en := f.blobHost(DCI_OUTPUT_ENABLES); binary.LittleEndian.Uint32(en) != 0x107 {
		t.Errorf("output enables % X", en)
	}

	list := f.blobHost(DCI_OUTPUT_LIST)
	if got := BlockHeader(binary.LittleEndian.Uint32(list[8*4:])); got != DISTANCE_BH.WithSize(16) {
		t.Errorf("distance header 0x%08X", uint32(got))
	}

	xshut := f.writesTo(0x00, XSHUT_BYPASS)
	if len(xshut) == 0 || xshut[len(xshut)-1][0] != 0x05 {
		t.Errorf("interrupt mode not enabled")
	}

	if f.starts != 1 || f.page != 0x02 {
		t.Errorf("starts %d, page 0x%02X", f.starts, f.page)
	}
}

func TestStartRangingSizeMismatch(t *testing.T) {

	v, f := newTestSensor(t)
	f.reportSize = 100

	if err := v.StartRanging(); !errors.Is(err, ErrFailure) {
		t.Fatalf("got %v, want ErrFailure", err)
	}

	if _, err := v.GetRangingData(); !errors.Is(err, ErrFailure) {
		t.Errorf("frame read allowed after failed start: %v", err)
	}
}

func TestCheckDataReady(t *testing.T) {

	v, f := newTestSensor(t)
	v.streamCount = streamCountReset

	steps := []struct {
		name   string
		status [4]byte
		ready  bool
		fault  bool
	}{
		{"sentinel count", [4]byte{0xFF, 0x05, 0x05, 0x10}, false, false},
		{"new frame", [4]byte{0x03, 0x05, 0x05, 0x10}, true, false},
		{"same count", [4]byte{0x03, 0x05, 0x05, 0x10}, false, false},
		{"not streaming", [4]byte{0x04, 0x04, 0x05, 0x10}, false, false},
		{"missing status bit", [4]byte{0x04, 0x05, 0x01, 0x10}, false, false},
		{"fault on new frame", [4]byte{0x04, 0x05, 0x05, 0x90}, false, true},
		{"fault on stale frame", [4]byte{0x03, 0x05, 0x05, 0x80}, false, true},
		{"next frame", [4]byte{0x04, 0x05, 0x05, 0x10}, true, false},
	}

	for _, s := range steps {

		copy(f.pageMem(0x02)[0:], s.status[:])

		ready, err := v.CheckDataReady()

		if s.fault {
			if !errors.Is(err, ErrHardwareFault) {
				t.Errorf("%s: got %v, want ErrHardwareFault", s.name, err)
			}
			continue
		}

		if err != nil || ready != s.ready {
			t.Errorf("%s: ready %t, %v", s.name, ready, err)
		}
	}

	if v.streamCount != 0x04 {
		t.Errorf("stream count %d, want 4", v.streamCount)
	}
}

func TestParseFrameDistance(t *testing.T) {

	frame := newTestFrame(0x1234).
		add(NewBlockHeader(DISTANCE_IDX, 4, 9), int16s(400, 400, 400, 400)).
		finish(0x1234, 60)

	if len(frame) != 60 {
		t.Fatalf("frame is %d bytes", len(frame))
	}

	r, err := parseFrame(frame, 1, AllOutputs(), false)

	if err != nil {
		t.Fatalf("parseFrame: %v", err)
	}

	for i := 0; i < 4; i++ {
		if r.DistanceMM[i] != 100 {
			t.Errorf("zone %d = %d mm, want 100", i, r.DistanceMM[i])
		}
	}

	raw, err := parseFrame(frame, 1, AllOutputs(), true)

	if err != nil || raw.DistanceMM[0] != 400 {
		t.Errorf("raw distance %d, %v", raw.DistanceMM[0], err)
	}
}

func TestParseFrameCorrupted(t *testing.T) {

	frame := newTestFrame(0x1234).
		add(NewBlockHeader(DISTANCE_IDX, 4, 9), int16s(400, 400, 400, 400)).
		finish(0x1235, 60)

	r, err := parseFrame(frame, 1, AllOutputs(), false)

	if !errors.Is(err, ErrCorruptedFrame) {
		t.Errorf("got %v, want ErrCorruptedFrame", err)
	}

	if r != nil {
		t.Errorf("partial result returned")
	}
}

func TestParseFrameFields(t *testing.T) {

	meta := make([]byte, 12)
	meta[8] = 0xE7 // -25 degC

	ambient := make([]byte, 16)
	binary.LittleEndian.PutUint32(ambient[0:], 4096)
	binary.LittleEndian.PutUint32(ambient[4:], 2048*3)

	frame := newTestFrame(0x0042).
		add(METADATA_BH, meta).
		add(AMBIENT_RATE_BH.WithSize(4), ambient).
		add(NB_TARGET_DETECTED_BH.WithSize(4), []byte{1, 0, 2, 1}).
		add(DISTANCE_BH.WithSize(4), int16s(-8, 800, 1200, 40)).
		add(REFLECTANCE_BH.WithSize(4), []byte{90, 0, 30, 10}).
		add(TARGET_STATUS_BH.WithSize(4), []byte{5, 0, 9, 5}).
		finish(0x0042, 96)

	r, err := parseFrame(frame, 1, AllOutputs(), false)

	if err != nil {
		t.Fatalf("parseFrame: %v", err)
	}

	if r.SiliconTempDegC != -25 {
		t.Errorf("temperature %d", r.SiliconTempDegC)
	}

	if want := physic.ZeroCelsius - 25*physic.Kelvin; r.Temperature() != want {
		t.Errorf("Temperature() = %s, want %s", r.Temperature(), want)
	}

	if r.AmbientPerSpad[0] != 2 || r.AmbientPerSpad[1] != 3 {
		t.Errorf("ambient %v", r.AmbientPerSpad[:4])
	}

	// negative distances clamp to zero
	wantDist := []int16{0, 200, 300, 10}
	for i, w := range wantDist {
		if r.DistanceMM[i] != w {
			t.Errorf("distance %d = %d, want %d", i, r.DistanceMM[i], w)
		}
	}

	if r.ReflectancePercent[0] != 45 || r.ReflectancePercent[2] != 15 {
		t.Errorf("reflectance %v", r.ReflectancePercent[:4])
	}

	// zone 1 has no target
	wantStatus := []TargetStatus{StatusRangeValid, StatusNoTarget, StatusRangeValidLargePulse, StatusRangeValid}
	for i, w := range wantStatus {
		if r.TargetStatus[i] != w {
			t.Errorf("status %d = %s, want %s", i, r.TargetStatus[i], w)
		}
	}

	// zones past the frame report no target either
	if r.TargetStatus[10] != StatusNoTarget {
		t.Errorf("status 10 = %s", r.TargetStatus[10])
	}
}

func TestParseFrameDisabledOutputs(t *testing.T) {

	ambient := make([]byte, 16)
	binary.LittleEndian.PutUint32(ambient, 4096)

	frame := newTestFrame(0x0001).
		add(AMBIENT_RATE_BH.WithSize(4), ambient).
		add(TARGET_STATUS_BH.WithSize(4), []byte{5, 5, 5, 5}).
		finish(0x0001, 64)

	r, err := parseFrame(frame, 1, Outputs{TargetStatus: true}, false)

	if err != nil {
		t.Fatalf("parseFrame: %v", err)
	}

	if r.AmbientPerSpad[0] != 0 {
		t.Errorf("disabled ambient decoded: %d", r.AmbientPerSpad[0])
	}

	// no target flagging without the distance and target count outputs
	if r.TargetStatus[0] != StatusRangeValid {
		t.Errorf("status %s", r.TargetStatus[0])
	}
}

func TestParseFrameMultiTarget(t *testing.T) {

	frame := newTestFrame(0x0007).
		add(NB_TARGET_DETECTED_BH.WithSize(2), []byte{2, 0}).
		add(DISTANCE_BH.WithSize(4), int16s(400, 800, 1200, 1600)).
		add(TARGET_STATUS_BH.WithSize(4), []byte{5, 5, 5, 5}).
		finish(0x0007, 64)

	r, err := parseFrame(frame, 2, AllOutputs(), false)

	if err != nil {
		t.Fatalf("parseFrame: %v", err)
	}

	if r.DistanceMM[r.Index(0, 1)] != 200 {
		t.Errorf("zone 0 target 1 = %d", r.DistanceMM[r.Index(0, 1)])
	}

	if r.TargetStatus[r.Index(1, 0)] != StatusNoTarget || r.TargetStatus[r.Index(1, 1)] != StatusNoTarget {
		t.Errorf("zone 1 statuses %s %s", r.TargetStatus[2], r.TargetStatus[3])
	}
}

func TestParseFrameMotion(t *testing.T) {

	motion := make([]byte, motionIndicatorSize)
	binary.LittleEndian.PutUint32(motion[0:], 11)
	binary.LittleEndian.PutUint32(motion[4:], 22)
	motion[9] = 3
	binary.LittleEndian.PutUint32(motion[12:], 65535*4)

	frame := newTestFrame(0x0009).
		add(MOTION_DETECT_BH, motion).
		finish(0x0009, 16+4+motionIndicatorSize+4)

	r, err := parseFrame(frame, 1, AllOutputs(), false)

	if err != nil {
		t.Fatalf("parseFrame: %v", err)
	}

	m := r.MotionIndicator

	if m.GlobalIndicator1 != 11 || m.GlobalIndicator2 != 22 || m.NbOfDetectedAggregates != 3 || m.Motion[0] != 4 {
		t.Errorf("motion %+v", m)
	}
}

// startDistanceSession starts a 4x4 single target distance only session
func startDistanceSession(t *testing.T) (*VL53L5CX, *fakeSensor) {

	t.Helper()

	v, f := newTestSensor(t, WithOutputs(Outputs{DistanceMM: true}))

	if err := v.StartRanging(); err != nil {
		t.Fatalf("StartRanging: %v", err)
	}

	return v, f
}

// streamFrame places a host order frame in the sensor in firmware order
func streamFrame(f *fakeSensor, frame []byte) {
	wire := append([]byte(nil), frame...)
	swapBuffer(wire)
	copy(f.pageMem(0x02)[0:], wire)
}

func TestReadFrame(t *testing.T) {

	v, f := startDistanceSession(t)

	meta := make([]byte, 12)
	meta[8] = 31

	dist := make([]int16, 16)
	for i := range dist {
		dist[i] = int16(1000 + 4*i)
	}

	frame := newTestFrame(0x5A5A).
		add(METADATA_BH, meta).
		add(COMMONDATA_BH, make([]byte, 4)).
		add(DISTANCE_BH.WithSize(16), int16s(dist...)).
		finish(0x5A5A, 88)

	// firmware order status bytes: count 7, streaming, ready
	copy(frame[0:4], []byte{0x10, 0x05, 0x05, 0x07})
	streamFrame(f, frame)

	v.SetTimeout(50 * time.Millisecond)

	r, err := v.ReadFrame()

	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}

	if r.SiliconTempDegC != 31 {
		t.Errorf("temperature %d", r.SiliconTempDegC)
	}

	for i := 0; i < 16; i++ {
		if want := int16(250 + i); r.DistanceMM[i] != want {
			t.Errorf("zone %d = %d, want %d", i, r.DistanceMM[i], want)
		}
	}

	if v.streamCount != 0x07 {
		t.Errorf("stream count %d", v.streamCount)
	}

	// same frame again is stale
	v.SetTimeout(5 * time.Millisecond)

	if _, err := v.ReadFrame(); !errors.Is(err, ErrTimeout) {
		t.Errorf("got %v, want ErrTimeout", err)
	}

	if !v.TimeoutOccurred() || v.TimeoutOccurred() {
		t.Errorf("timeout flag not set once")
	}
}

func TestGetRangingDataCorrupted(t *testing.T) {

	v, f := startDistanceSession(t)

	frame := newTestFrame(0x1111).
		add(DISTANCE_BH.WithSize(16), make([]byte, 32)).
		finish(0x2222, 88)

	streamFrame(f, frame)

	if _, err := v.GetRangingData(); !errors.Is(err, ErrCorruptedFrame) {
		t.Errorf("got %v, want ErrCorruptedFrame", err)
	}
}

func TestStopRanging(t *testing.T) {

	tests := []struct {
		name       string
		autoStop   bool
		status0    byte
		status1    byte
		wantUndo   bool
		wantStop   bool
		wantStatus int
	}{
		{"auto stopped", true, 0x01, 0x00, true, false, 1},
		{"stopped cleanly", false, 0x81, 0x00, false, true, 2},
		{"stopped with error status", false, 0x81, 0x84, true, true, 2},
		{"stop timeout", false, 0x01, 0x00, true, true, stopPollRetries + 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {

			v, f := startDistanceSession(t)

			if tt.autoStop {
				binary.LittleEndian.PutUint32(f.pageMem(0x02)[AUTO_STOP_FLAG:], autoStopped)
			}

			f.pageMem(0x00)[GO2_STATUS_0] = tt.status0
			f.pageMem(0x00)[GO2_STATUS_1] = tt.status1
			f.reads = nil

			if err := v.StopRanging(); err != nil {
				t.Fatalf("StopRanging: %v", err)
			}

			stops := f.writesTo(0x00, MCU_STOP_CTRL)

			if got := len(stops) > 0 && stops[0][0] == 0x01; got != tt.wantStop {
				t.Errorf("MCU stop issued %t, want %t", got, tt.wantStop)
			}

			undo := false
			for _, w := range f.writesTo(0x00, XSHUT_BYPASS) {
				undo = undo || w[0] == 0x04
			}

			if undo != tt.wantUndo {
				t.Errorf("undo issued %t, want %t", undo, tt.wantUndo)
			}

			n := 0
			for _, r := range f.reads {
				if r.page == 0x00 && r.reg == GO2_STATUS_0 {
					n++
				}
			}

			if n != tt.wantStatus {
				t.Errorf("%d GO2 status reads, want %d", n, tt.wantStatus)
			}

			if f.page != 0x02 || v.dataReadSize != 0 {
				t.Errorf("page 0x%02X, session size %d", f.page, v.dataReadSize)
			}
		})
	}
}
