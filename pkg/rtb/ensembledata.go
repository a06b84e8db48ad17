// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rtb

import (
	"fmt"
	"strings"
	"time"
)

const (
	ensembleDataElements = 23
	serialNumberSize     = 32
	serialNumberOffset   = 13 * BytesInInt32
	firmwareOffset       = 21 * BytesInInt32
	subsystemOffset      = 22 * BytesInInt32
)

// EnsembleData holds the ensemble metadata: counts, timestamp, serial number
// and firmware version.
type EnsembleData struct {
	EnsembleNumber   int32
	NumBins          int32
	NumBeams         int32
	DesiredPingCount int32
	ActualPingCount  int32
	Status           int32
	Year             int32
	Month            int32
	Day              int32
	Hour             int32
	Minute           int32
	Second           int32
	HSec             int32 // hundredths of a second

	SerialNumber     string // up to 32 ASCII characters
	FirmwareMajor    uint8
	FirmwareMinor    uint8
	FirmwareRevision uint8
	SubsystemCode    byte // ASCII subsystem code, e.g. '3'
	SubsystemConfig  uint8

	// Extra holds trailing elements newer firmware may append
	Extra []int32
}

func (d *EnsembleData) ID() DatasetID { return EnsembleDataID }

func (d *EnsembleData) Header() DatasetHeader {
	return newDatasetHeader(EnsembleDataID, ensembleDataElements+len(d.Extra), 1)
}

func (d *EnsembleData) Encode() []byte {
	h := d.Header()
	dst := make([]byte, 0, h.HeaderSize()+int(h.NumElements)*BytesInInt32)
	dst = appendDatasetHeader(dst, h)

	for _, v := range []int32{
		d.EnsembleNumber, d.NumBins, d.NumBeams, d.DesiredPingCount, d.ActualPingCount,
		d.Status, d.Year, d.Month, d.Day, d.Hour, d.Minute, d.Second, d.HSec,
	} {
		dst = appendInt32(dst, v)
	}

	serial := make([]byte, serialNumberSize)
	copy(serial, d.SerialNumber)
	dst = append(dst, serial...)
	dst = append(dst, d.FirmwareRevision, d.FirmwareMinor, d.FirmwareMajor, d.SubsystemCode)
	dst = append(dst, 0, 0, 0, d.SubsystemConfig)

	for _, v := range d.Extra {
		dst = appendInt32(dst, v)
	}
	return dst
}

func decodeEnsembleData(h DatasetHeader, body []byte) (*EnsembleData, error) {
	n := int(h.NumElements) * int(h.ElementMultiplier)
	if n < ensembleDataElements {
		return nil, fmt.Errorf("%w: ensemble data has %d elements, need %d",
			ErrTruncatedDataset, n, ensembleDataElements)
	}
	if err := requireBytes(h, body, n, BytesInInt32); err != nil {
		return nil, err
	}

	d := &EnsembleData{
		EnsembleNumber:   getInt32(body, 0),
		NumBins:          getInt32(body, 4),
		NumBeams:         getInt32(body, 8),
		DesiredPingCount: getInt32(body, 12),
		ActualPingCount:  getInt32(body, 16),
		Status:           getInt32(body, 20),
		Year:             getInt32(body, 24),
		Month:            getInt32(body, 28),
		Day:              getInt32(body, 32),
		Hour:             getInt32(body, 36),
		Minute:           getInt32(body, 40),
		Second:           getInt32(body, 44),
		HSec:             getInt32(body, 48),
		SerialNumber:     strings.TrimRight(string(body[serialNumberOffset:serialNumberOffset+serialNumberSize]), "\x00"),
		FirmwareRevision: body[firmwareOffset],
		FirmwareMinor:    body[firmwareOffset+1],
		FirmwareMajor:    body[firmwareOffset+2],
		SubsystemCode:    body[firmwareOffset+3],
		SubsystemConfig:  body[subsystemOffset+3],
	}

	for i := ensembleDataElements; i < n; i++ {
		d.Extra = append(d.Extra, getInt32(body, i*BytesInInt32))
	}
	return d, nil
}

// Time returns the ensemble timestamp in UTC
func (d *EnsembleData) Time() time.Time {
	return time.Date(int(d.Year), time.Month(d.Month), int(d.Day),
		int(d.Hour), int(d.Minute), int(d.Second), int(d.HSec)*int(10*time.Millisecond), time.UTC)
}

// DateTimeString formats the timestamp as 2013/07/30 21:00:00.00
func (d *EnsembleData) DateTimeString() string {
	return fmt.Sprintf("%04d/%02d/%02d %02d:%02d:%02d.%02d",
		d.Year, d.Month, d.Day, d.Hour, d.Minute, d.Second, d.HSec)
}

// FirmwareString formats the firmware version and subsystem code
func (d *EnsembleData) FirmwareString() string {
	return fmt.Sprintf("%d.%d.%d - %c", d.FirmwareMajor, d.FirmwareMinor, d.FirmwareRevision, d.SubsystemCode)
}

// StatusString describes the status flags
func (d *EnsembleData) StatusString() string {
	return FormatStatus(d.Status)
}

// IsVerticalBeam reports whether the subsystem is a vertical beam
func (d *EnsembleData) IsVerticalBeam() bool {
	switch d.SubsystemCode {
	case '9', 'A', 'B', 'C', 'D', 'E', 'F', 'G':
		return true
	}
	return false
}

// Status flags shared by the ensemble and bottom track status words
const (
	StatusBtLongLag          = 0x0001
	StatusBt3BeamSolution    = 0x0002
	StatusBtHold             = 0x0004
	StatusBtSearching        = 0x0008
	StatusBtLongRange        = 0x0010
	StatusBtCoast            = 0x0020 // also over temperature
	StatusBtProof            = 0x0040
	StatusBtLowGain          = 0x0080
	StatusErrHeadingSensor   = 0x0100
	StatusErrPressureSensor  = 0x0200
	StatusErrPowerDown       = 0x0400
	StatusErrNonvolatileData = 0x0800
	StatusErrRTC             = 0x1000
	StatusErrTemperature     = 0x2000
	StatusErrReceiverData    = 0x4000
	StatusErrReceiverTimeout = 0x8000
	StatusErrLowVoltage      = 0xFFFF
)

var statusFlags = []struct {
	mask int32
	text string
}{
	{StatusBtLongLag, "Bottom Track Long Lag"},
	{StatusBt3BeamSolution, "Bottom Track 3 Beam Solution"},
	{StatusBtHold, "Bottom Track Search: HOLD"},
	{StatusBtSearching, "Bottom Track Search: SEARCHING"},
	{StatusBtLongRange, "Bottom Track Long Range [Narrowband Mode]"},
	{StatusBtCoast, "Bottom Track Coast"},
	{StatusBtProof, "Bottom Track Search: PROOF"},
	{StatusBtCoast, "Over Temperature"},
	{StatusBtLowGain, "Bottom Track Low Gain (Shallow Water Mode)"},
	{StatusErrHeadingSensor, "Heading Sensor Error"},
	{StatusErrPressureSensor, "Pressure Sensor Error"},
	{StatusErrPowerDown, "Error Powering Down"},
	{StatusErrNonvolatileData, "Error in NonVolatile Data"},
	{StatusErrRTC, "RTC Error"},
	{StatusErrTemperature, "Temperature Error"},
	{StatusErrReceiverData, "Receiver Data Error"},
	{StatusErrReceiverTimeout, "Receiver Timeout"},
}

// FormatStatus describes the bits set in a status word
func FormatStatus(status int32) string {
	if status == StatusErrLowVoltage {
		return "Low Voltage"
	}
	var parts []string
	for _, f := range statusFlags {
		if status&f.mask != 0 {
			parts = append(parts, f.text)
		}
	}
	if len(parts) == 0 {
		return "Good"
	}
	return strings.Join(parts, ", ")
}
