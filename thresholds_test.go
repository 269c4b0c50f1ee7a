package vl53l5cx

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestDetectionThresholds(t *testing.T) {

	v, f := newTestSensor(t)

	var th [NB_THRESHOLDS]DetectionThreshold

	th[0] = DetectionThreshold{
		LowThreshold:  200,
		HighThreshold: 600,
		Measurement:   MeasureDistanceMM,
		Type:          InWindow,
		ZoneNum:       0,
		Operation:     OperationNone,
	}
	th[1] = DetectionThreshold{
		LowThreshold:  0,
		HighThreshold: 10,
		Measurement:   MeasureSignalPerSpadKcps,
		Type:          GreaterThanMax,
		ZoneNum:       3 | LastThreshold,
		Operation:     OperationAnd,
	}

	if err := v.SetDetectionThresholds(th); err != nil {
		t.Fatalf("SetDetectionThresholds: %v", err)
	}

	if got := f.blobHost(DCI_DET_THRESH_VALID_STATUS); !bytes.Equal(got, bytes.Repeat([]byte{0x05}, 12)) {
		t.Errorf("valid status % X", got)
	}

	blob := f.blobHost(DCI_DET_THRESH_START)

	if len(blob) != NB_THRESHOLDS*12 {
		t.Fatalf("thresholds of %d bytes", len(blob))
	}

	// firmware fixed point
	if lo, hi := binary.LittleEndian.Uint32(blob[0:]), binary.LittleEndian.Uint32(blob[4:]); lo != 800 || hi != 2400 {
		t.Errorf("distance window %d-%d, want 800-2400", lo, hi)
	}

	if hi := binary.LittleEndian.Uint32(blob[16:]); hi != 10*2048 {
		t.Errorf("signal threshold %d", hi)
	}

	if !bytes.Equal(blob[20:24], []byte{2, 3, 0x83, 2}) {
		t.Errorf("threshold 1 fields % X", blob[20:24])
	}

	got, err := v.DetectionThresholds()

	if err != nil {
		t.Fatalf("DetectionThresholds: %v", err)
	}

	if got[0] != th[0] || got[1] != th[1] {
		t.Errorf("read back %+v %+v", got[0], got[1])
	}
}

func TestDetectionThresholdsEnable(t *testing.T) {

	v, f := newTestSensor(t)

	if err := v.SetDetectionThresholdsEnabled(true); err != nil {
		t.Fatalf("SetDetectionThresholdsEnabled: %v", err)
	}

	if got := f.blobHost(DCI_DET_THRESH_GLOBAL_CONFIG); !bytes.Equal(got[:4], []byte{0x01, 0x01, 0x01, 0x00}) {
		t.Errorf("global config % X", got)
	}

	if got := f.blobHost(DCI_DET_THRESH_CONFIG); len(got) != 20 || got[0x11] != 0x04 {
		t.Errorf("interrupt config % X", got)
	}

	if on, err := v.DetectionThresholdsEnabled(); err != nil || !on {
		t.Errorf("DetectionThresholdsEnabled() = %v, %v", on, err)
	}

	if err := v.SetDetectionThresholdsEnabled(false); err != nil {
		t.Fatalf("SetDetectionThresholdsEnabled: %v", err)
	}

	if got := f.blobHost(DCI_DET_THRESH_CONFIG); got[0x11] != 0x0C {
		t.Errorf("interrupt config byte 0x%02X, want 0x0C", got[0x11])
	}

	if on, _ := v.DetectionThresholdsEnabled(); on {
		t.Errorf("thresholds still enabled")
	}
}
