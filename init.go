package vl53l5cx

import (
	"encoding/binary"
	"fmt"
)

// regWrite is a single byte register write of a fixed sequence
type regWrite struct {
	reg uint16
	val uint8
}

var (
	// softwareRebootSeq restarts the sensor core while keeping the host
	// interface alive, it ends with the MCU held off
	softwareRebootSeq = []regWrite{
		{0x0101, 0x00},
		{0x0102, 0x00},
		{0x010A, 0x01},
		{0x4002, 0x01},
		{0x4002, 0x00},
		{0x010A, 0x03},
		{0x0103, 0x01},
		{0x000C, 0x00},
		{0x000F, 0x43},
	}

	// powerOnSeq restores the analogue power on status
	powerOnSeq = []regWrite{
		{PAGE_SELECT, 0x00},
		{0x0101, 0x00},
		{0x0102, 0x00},
		{0x010A, 0x01},
		{0x4002, 0x01},
		{0x4002, 0x00},
		{0x010A, 0x03},
		{0x0103, 0x01},
		{0x400F, 0x00},
		{0x021A, 0x43},
		{0x021A, 0x03},
		{0x021A, 0x01},
		{0x021A, 0x00},
		{0x0219, 0x00},
		{0x021B, 0x00},
	}

	// mcuResetSeq clears the MCU boot vector before releasing reset
	mcuResetSeq = []regWrite{
		{PAGE_SELECT, 0x00},
		{0x0114, 0x00},
		{0x0115, 0x00},
		{0x0116, 0x42},
		{0x0117, 0x00},
		{0x000B, 0x00},
	}
)

// firmwarePages are the register pages the firmware image is downloaded to,
// one 32 KB slice each
var firmwarePages = [3]uint8{0x09, 0x0A, 0x0B}

// writeSequence writes each register of seq in order
func (v *VL53L5CX) writeSequence(seq []regWrite) error {

	for _, w := range seq {
		if err := v.writeToRegister(w.reg, w.val); err != nil {
			return err
		}
	}

	return nil
}

// Init loads the firmware and default configuration. It must be called after
// power up and before any other sensor operation. Any failure leaves the
// sensor in an undefined state that needs a power cycle
func (v *VL53L5CX) Init() error {

	v.log.Print("Starting Init()")

	steps := []struct {
		name string
		fn   func() error
	}{
		{"software reboot", v.softwareReboot},
		{"enable firmware access", v.enableFirmwareAccess},
		{"power on", v.powerOn},
		{"download firmware", v.downloadFirmware},
		{"verify firmware", v.enableFirmwareAccess},
		{"reset MCU", v.resetMCU},
		{"load NVM calibration", v.loadNVMCalibration},
		{"load default xtalk", v.loadDefaultXtalk},
		{"send default configuration", v.sendDefaultConfiguration},
		{"apply defaults", v.applyDefaults},
	}

	for _, s := range steps {

		v.log.Printf("Init step: %s", s.name)

		if err := s.fn(); err != nil {
			return fmt.Errorf("Error on %s, %w", s.name, err)
		}
	}

	return nil
}

// softwareReboot resets the sensor core and waits for it to report it is up
func (v *VL53L5CX) softwareReboot() error {

	if err := v.writeSequence([]regWrite{
		{PAGE_SELECT, 0x00},
		{XSHUT_BYPASS, 0x04},
		{0x000F, 0x40},
		{0x000A, 0x03},
	}); err != nil {
		return err
	}

	if err := v.readFromRegister(PAGE_SELECT, 1); err != nil {
		return err
	}

	if err := v.writeToRegister(0x000C, 0x01); err != nil {
		return err
	}

	if err := v.writeSequence(softwareRebootSeq); err != nil {
		return err
	}

	v.delay(1)

	if err := v.writeSequence([]regWrite{
		{0x000F, 0x40},
		{0x000A, 0x01},
	}); err != nil {
		return err
	}

	v.delay(100)

	// wait for sensor booted, several ms are required to get sensor ready
	if err := v.selectPage(0x00); err != nil {
		return err
	}

	if err := v.pollForAnswer(1, 0, GO2_STATUS_0, 0xFF, 0x01); err != nil {
		return err
	}

	if err := v.writeToRegister(0x000E, 0x01); err != nil {
		return err
	}

	return v.selectPage(0x02)
}

// enableFirmwareAccess opens the firmware download window and then gives the
// host access to GO1. It also serves as the download check as the window only
// reopens once the image has been accepted
func (v *VL53L5CX) enableFirmwareAccess() error {

	if err := v.selectPage(0x02); err != nil {
		return err
	}

	if err := v.writeToRegister(0x0003, 0x0D); err != nil {
		return err
	}

	if err := v.selectPage(0x01); err != nil {
		return err
	}

	if err := v.pollForAnswer(1, 0, FW_ACCESS_STATUS, 0x10, 0x10); err != nil {
		return err
	}

	if err := v.selectPage(0x00); err != nil {
		return err
	}

	if err := v.readFromRegister(PAGE_SELECT, 1); err != nil {
		return err
	}

	return v.writeToRegister(0x000C, 0x01)
}

// powerOn restores the power on status and wakes the MCU
func (v *VL53L5CX) powerOn() error {

	if err := v.writeSequence(powerOnSeq); err != nil {
		return err
	}

	if err := v.selectPage(0x00); err != nil {
		return err
	}

	if err := v.readFromRegister(PAGE_SELECT, 1); err != nil {
		return err
	}

	return v.writeSequence([]regWrite{
		{0x000C, 0x00},
		{PAGE_SELECT, 0x01},
		{0x0020, 0x07},
		{0x0020, 0x06},
	})
}

// downloadFirmware writes the firmware image in three pages
func (v *VL53L5CX) downloadFirmware() error {

	fw := v.payloads.Firmware

	for i, page := range firmwarePages {

		start := i * firmwarePageSize
		end := min(start+firmwarePageSize, len(fw))

		// last page takes whatever remains of the image
		if i == len(firmwarePages)-1 {
			end = len(fw)
		}

		if err := v.selectPage(page); err != nil {
			return err
		}

		if err := v.writeMultiToRegister(0x0000, fw[start:end]); err != nil {
			return err
		}

		v.log.Printf("Firmware page 0x%02X: %d bytes", page, end-start)
	}

	return v.selectPage(0x01)
}

// resetMCU resets the MCU and waits for it to boot the downloaded firmware
func (v *VL53L5CX) resetMCU() error {

	if err := v.writeSequence(mcuResetSeq); err != nil {
		return err
	}

	if err := v.readFromRegister(PAGE_SELECT, 1); err != nil {
		return err
	}

	if err := v.writeSequence([]regWrite{
		{0x000C, 0x00},
		{0x000B, 0x01},
	}); err != nil {
		return err
	}

	if err := v.pollForMCUBoot(); err != nil {
		return err
	}

	return v.selectPage(0x02)
}

// loadNVMCalibration reads the factory offset calibration and pushes it
func (v *VL53L5CX) loadNVMCalibration() error {

	if err := v.writeMultiToRegister(NVM_CMD_START, nvmCommand[:]); err != nil {
		return err
	}

	if err := v.pollForAnswer(4, 0, UI_CMD_STATUS, 0xFF, 0x02); err != nil {
		return err
	}

	if err := v.readFromRegister(UI_CMD_START, NVM_DATA_SIZE); err != nil {
		return err
	}

	copy(v.offsetData[:], v.buf[:OFFSET_BUFFER_SIZE])

	// firmware boots at 4x4
	return v.sendOffsetData(Resolution4x4)
}

// loadDefaultXtalk installs the default crosstalk calibration
func (v *VL53L5CX) loadDefaultXtalk() error {
	copy(v.xtalkData[:], v.payloads.Xtalk)
	return v.sendXtalkData(Resolution4x4)
}

// sendDefaultConfiguration writes the default configuration so it ends on
// UI_CMD_END
func (v *VL53L5CX) sendDefaultConfiguration() error {

	if err := v.writeMultiToRegister(DEFAULT_CONFIG_START, v.payloads.Configuration); err != nil {
		return err
	}

	return v.pollForAnswer(4, 1, UI_CMD_STATUS, 0xFF, statusCommandDone)
}

// applyDefaults patches the pipe, target count, single range and glare filter
// settings for this driver instance
func (v *VL53L5CX) applyDefaults() error {

	targets := byte(v.targetsPerZone)

	copy(v.buf[:4], []byte{targets, 0x00, 0x01, 0x00})

	if err := v.dciWriteData(DCI_PIPE_CONTROL, 4); err != nil {
		return err
	}

	if targets != 1 {
		if err := v.dciReplaceData(DCI_FW_NB_TARGET, 16, []byte{targets}, 0x0C); err != nil {
			return err
		}
	}

	binary.LittleEndian.PutUint32(v.buf[:4], 0x01)

	if err := v.dciWriteData(DCI_SINGLE_RANGE, 4); err != nil {
		return err
	}

	// enable the glare filter, 0x26 then 0x25 as the firmware expects
	if err := v.dciReplaceData(DCI_GLARE_FILTER, 40, []byte{0x01}, 0x26); err != nil {
		return err
	}

	return v.dciReplaceData(DCI_GLARE_FILTER, 40, []byte{0x01}, 0x25)
}
