// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rtb

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

// ============================================================
// Test Helpers
// ============================================================

// floatGrid builds a [bin][beam] grid filled by fn
func floatGrid(bins, beams int, fn func(bin, beam int) float32) [][]float32 {
	g := make([][]float32, bins)
	for bin := range g {
		g[bin] = make([]float32, beams)
		for beam := range g[bin] {
			g[bin][beam] = fn(bin, beam)
		}
	}
	return g
}

// intGrid builds a [bin][beam] grid filled by fn
func intGrid(bins, beams int, fn func(bin, beam int) int32) [][]int32 {
	g := make([][]int32, bins)
	for bin := range g {
		g[bin] = make([]int32, beams)
		for beam := range g[bin] {
			g[bin][beam] = fn(bin, beam)
		}
	}
	return g
}

// beamValues returns beams values starting at base
func beamValues(beams int, base float32) []float32 {
	v := make([]float32, beams)
	for i := range v {
		v[i] = base + float32(i)
	}
	return v
}

// newTestEnsemble builds an ensemble carrying every dataset
func newTestEnsemble(number int32, bins, beams int) *Ensemble {
	ens := &Ensemble{Number: number}

	ens.EnsembleData = &EnsembleData{
		EnsembleNumber:   number,
		NumBins:          int32(bins),
		NumBeams:         int32(beams),
		DesiredPingCount: 4,
		ActualPingCount:  4,
		Year:             2024,
		Month:            3,
		Day:              14,
		Hour:             12,
		Minute:           30,
		Second:           15,
		HSec:             50,
		SerialNumber:     "01300000000000000000000000000001",
		FirmwareMajor:    0,
		FirmwareMinor:    2,
		FirmwareRevision: 124,
		SubsystemCode:    '3',
		SubsystemConfig:  1,
	}
	ens.AncillaryData = &AncillaryData{
		FirstBinRange:   1.0,
		BinSize:         0.5,
		FirstPingTime:   10.0,
		LastPingTime:    12.5,
		Heading:         90.0,
		Pitch:           1.5,
		Roll:            2.25,
		WaterTemp:       15.2,
		SystemTemp:      21.0,
		Salinity:        35.0,
		Pressure:        101325.0,
		TransducerDepth: 0.5,
		SpeedOfSound:    1500.0,
	}
	ens.SystemSetup = &SystemSetup{
		BtSamplesPerSecond: 1000,
		BtSystemFreqHz:     1200000,
		WpSamplesPerSecond: 1000,
		WpSystemFreqHz:     1200000,
		Voltage:            24.0,
	}

	ens.BeamVelocity = &BeamVelocity{Velocities: floatGrid(bins, beams, func(bin, beam int) float32 {
		return float32(bin)*0.1 + float32(beam)*0.01
	})}
	ens.InstrumentVelocity = &InstrumentVelocity{Velocities: floatGrid(bins, beams, func(bin, beam int) float32 {
		return -float32(bin) * 0.05
	})}
	ens.EarthVelocity = &EarthVelocity{Velocities: floatGrid(bins, beams, func(bin, beam int) float32 {
		if bin == bins-1 {
			return BadVelocity
		}
		return float32(beam) * 0.2
	})}
	ens.Amplitude = &Amplitude{Amplitude: floatGrid(bins, beams, func(bin, beam int) float32 {
		return 60.0 - float32(bin)
	})}
	ens.Correlation = &Correlation{Correlation: floatGrid(bins, beams, func(bin, beam int) float32 {
		return 0.9
	})}
	ens.GoodBeam = &GoodBeam{Pings: intGrid(bins, beams, func(bin, beam int) int32 { return 4 })}
	ens.GoodEarth = &GoodEarth{Pings: intGrid(bins, beams, func(bin, beam int) int32 { return int32(beam) })}

	ens.BottomTrack = &BottomTrack{
		Heading:            90.0,
		Status:             0,
		NumBeams:           float32(beams),
		ActualPingCount:    2,
		Range:              beamValues(beams, 20.0),
		SNR:                beamValues(beams, 30.0),
		Amplitude:          beamValues(beams, 70.0),
		Correlation:        beamValues(beams, 0.5),
		BeamVelocity:       beamValues(beams, 0.1),
		BeamGood:           beamValues(beams, 2.0),
		InstrumentVelocity: beamValues(beams, 0.2),
		InstrumentGood:     beamValues(beams, 2.0),
		EarthVelocity:      beamValues(beams, 0.3),
		EarthGood:          beamValues(beams, 2.0),
	}
	ens.RangeTracking = &RangeTracking{
		NumBeams: float32(beams),
		SNR:      beamValues(beams, 12.0),
		Range:    beamValues(beams, 19.5),
		Pings:    beamValues(beams, 3.0),
	}
	ens.NmeaData = NewNmeaData(
		"$GPGGA,123015.50,3256.0000,N,11714.0000,W,1,08,1.0,10.0,M,,M,,*47",
		"$GPVTG,90.0,T,,M,1.5,N,2.8,K,A*3C",
	)

	return ens
}

// buildDataset encodes a dataset header with explicit fields followed by body
func buildDataset(vt ValueType, elements, multiplier int32, name string, body []byte) []byte {
	h := DatasetHeader{
		ValueType:         vt,
		NumElements:       elements,
		ElementMultiplier: multiplier,
		NameLength:        DefaultNameLength,
		Name:              name,
	}
	return append(appendDatasetHeader(nil, h), body...)
}

// floatBody encodes values back to back
func floatBody(vals ...float32) []byte {
	return appendFloats(nil, vals)
}

// ============================================================
// Checksum Tests
// ============================================================

func TestCalculateChecksum_Empty(t *testing.T) {
	if crc := CalculateChecksum([]byte{}); crc != crcInitial {
		t.Errorf("checksum of empty data should be initial value, got 0x%04X", crc)
	}
}

func TestCalculateChecksum_KnownValues(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected uint16
	}{
		{
			name:     "ASCII '123456789'",
			data:     []byte("123456789"),
			expected: 0x31C3, // CRC-16/XMODEM check value
		},
		{
			name:     "single zero byte",
			data:     []byte{0x00},
			expected: 0x0000,
		},
		{
			name:     "single 'A'",
			data:     []byte("A"),
			expected: 0x58E5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if crc := CalculateChecksum(tt.data); crc != tt.expected {
				t.Errorf("checksum mismatch: expected 0x%04X, got 0x%04X", tt.expected, crc)
			}
		})
	}
}

// ============================================================
// Bad Velocity Tests
// ============================================================

func TestIsBadVelocity(t *testing.T) {
	tests := []struct {
		value    float32
		expected bool
	}{
		{88.888, true},
		{float32(88.888 * (1 + 5e-7)), true},
		{float32(88.888 * (1 - 5e-7)), true},
		{87.0, false},
		{89.0, false},
		{88.8, false},
		{0, false},
		{-88.888, false},
	}

	for _, tt := range tests {
		if got := IsBadVelocity(tt.value); got != tt.expected {
			t.Errorf("IsBadVelocity(%v) = %v, expected %v", tt.value, got, tt.expected)
		}
	}
}

// ============================================================
// Dataset Header Tests
// ============================================================

func TestDatasetHeader_Size(t *testing.T) {
	h := DatasetHeader{ValueType: ValueTypeFloat, NumElements: 30, ElementMultiplier: 4, NameLength: 8}
	size, err := h.Size()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if size != 30*4*4+DatasetHeaderSize {
		t.Errorf("expected size %d, got %d", 30*4*4+DatasetHeaderSize, size)
	}

	h.ValueType = ValueTypeByte
	size, _ = h.Size()
	if size != 30*4+DatasetHeaderSize {
		t.Errorf("byte dataset: expected size %d, got %d", 30*4+DatasetHeaderSize, size)
	}
}

func TestDatasetHeader_SizeOverflow(t *testing.T) {
	tests := []DatasetHeader{
		{ValueType: ValueTypeFloat, NumElements: math.MaxInt32, ElementMultiplier: math.MaxInt32, NameLength: 8},
		{ValueType: ValueTypeByte, NumElements: math.MaxInt32, ElementMultiplier: math.MaxInt32, NameLength: 8},
		{ValueType: ValueTypeInt, NumElements: math.MaxInt32, ElementMultiplier: 1, NameLength: 8},
		{ValueType: ValueTypeFloat, NumElements: -1, ElementMultiplier: 4, NameLength: 8},
		{ValueType: ValueTypeFloat, NumElements: 4, ElementMultiplier: -4, NameLength: 8},
	}
	for _, h := range tests {
		if _, err := h.Size(); !errors.Is(err, ErrMalformedHeader) {
			t.Errorf("%dx%d: expected ErrMalformedHeader, got %v", h.NumElements, h.ElementMultiplier, err)
		}
	}
}

func TestDecodeEnsemble_OversizedDataset(t *testing.T) {
	ds := buildDataset(ValueTypeFloat, math.MaxInt32, math.MaxInt32, "E000001", floatBody(1, 2, 3, 4))
	frame := EncodeFrame(5, ds)
	if err := VerifyFrame(frame); err != nil {
		t.Fatalf("frame should pass verification: %v", err)
	}
	if _, err := DecodeEnsemble(frame); !errors.Is(err, ErrMalformedHeader) {
		t.Errorf("expected ErrMalformedHeader, got %v", err)
	}
}

func TestReadDatasetHeader(t *testing.T) {
	buf := buildDataset(ValueTypeInt, 23, 1, "E000008", nil)
	h, err := ReadDatasetHeader(buf, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.ValueType != ValueTypeInt || h.NumElements != 23 || h.ElementMultiplier != 1 {
		t.Errorf("unexpected header: %+v", h)
	}
	if h.Name != "E000008" {
		t.Errorf("expected NUL trimmed name E000008, got %q", h.Name)
	}
	if h.HeaderSize() != DatasetHeaderSize {
		t.Errorf("expected header size %d, got %d", DatasetHeaderSize, h.HeaderSize())
	}
}

func TestReadDatasetHeader_Short(t *testing.T) {
	buf := buildDataset(ValueTypeInt, 23, 1, "E000008", nil)
	for _, n := range []int{0, 4, 19, 20, DatasetHeaderSize - 1} {
		if _, err := ReadDatasetHeader(buf[:n], 0); !errors.Is(err, ErrMalformedHeader) {
			t.Errorf("%d bytes: expected ErrMalformedHeader, got %v", n, err)
		}
	}
}

// ============================================================
// Registry Tests
// ============================================================

func TestLookupDataset(t *testing.T) {
	tests := []struct {
		name string
		id   DatasetID
	}{
		{"E000001", BeamVelocityID},
		{"E000002", InstrumentVelocityID},
		{"E000003", EarthVelocityID},
		{"E000004", AmplitudeID},
		{"E000005", CorrelationID},
		{"E000006", GoodBeamID},
		{"E000007", GoodEarthID},
		{"E000008", EnsembleDataID},
		{"E000009", AncillaryDataID},
		{"E000010", BottomTrackID},
		{"E000011", NmeaDataID},
		{"E000014", SystemSetupID},
		{"E000015", RangeTrackingID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := LookupDataset(tt.name)
			if !ok || id != tt.id {
				t.Errorf("LookupDataset(%q) = %v, %v; expected %v", tt.name, id, ok, tt.id)
			}
			if id.Name() != tt.name {
				t.Errorf("Name() = %q, expected %q", id.Name(), tt.name)
			}
		})
	}

	for _, name := range []string{"", "E000012", "E000013", "E000016", "E00001"} {
		if _, ok := LookupDataset(name); ok {
			t.Errorf("LookupDataset(%q) should not match", name)
		}
	}
}

func TestDatasetIDs_Complete(t *testing.T) {
	if len(DatasetIDs) != 13 {
		t.Fatalf("expected 13 known datasets, got %d", len(DatasetIDs))
	}
	seen := map[DatasetID]bool{}
	for _, id := range DatasetIDs {
		if seen[id] {
			t.Errorf("duplicate dataset %v", id)
		}
		seen[id] = true
	}
	if DatasetIDs[0] != EnsembleDataID {
		t.Errorf("ensemble data should encode first, got %v", DatasetIDs[0])
	}
}

// ============================================================
// Dataset Codec Tests
// ============================================================

func TestDecodeBeamVelocity_BeamMajor(t *testing.T) {
	buf := buildDataset(ValueTypeFloat, 2, 2, "E000001", floatBody(1.0, 2.0, 3.0, 4.0))

	ds, size, err := DecodeDataset(buf, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if size != len(buf) {
		t.Errorf("expected size %d, got %d", len(buf), size)
	}
	bv, ok := ds.(*BeamVelocity)
	if !ok {
		t.Fatalf("expected *BeamVelocity, got %T", ds)
	}

	expected := [][]float32{{1.0, 3.0}, {2.0, 4.0}}
	if !reflect.DeepEqual(bv.Velocities, expected) {
		t.Errorf("expected grid %v, got %v", expected, bv.Velocities)
	}

	if enc := bv.Encode(); !reflect.DeepEqual(enc, buf) {
		t.Errorf("re-encoded dataset differs from input")
	}
}

func TestDataset_RoundTrip(t *testing.T) {
	ens := newTestEnsemble(42, 5, 4)

	for _, ds := range ens.Datasets() {
		t.Run(ds.ID().String(), func(t *testing.T) {
			enc := ds.Encode()

			h, err := ReadDatasetHeader(enc, 0)
			if err != nil {
				t.Fatalf("unexpected header error: %v", err)
			}
			if h != ds.Header() {
				t.Errorf("encoded header %+v differs from Header() %+v", h, ds.Header())
			}
			if h.ValueType != ds.ID().ValueType() {
				t.Errorf("expected value type %v, got %v", ds.ID().ValueType(), h.ValueType)
			}

			dec, size, err := DecodeDataset(enc, 0)
			if err != nil {
				t.Fatalf("unexpected decode error: %v", err)
			}
			if size != len(enc) {
				t.Errorf("expected size %d, got %d", len(enc), size)
			}
			if !reflect.DeepEqual(dec, ds) {
				t.Errorf("round trip mismatch:\n got %+v\nwant %+v", dec, ds)
			}
		})
	}
}

func TestDataset_BadVelocitySurvives(t *testing.T) {
	ev := &EarthVelocity{Velocities: [][]float32{{BadVelocity, 0.5, BadVelocity, 0}}}
	dec, _, err := DecodeDataset(ev.Encode(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := dec.(*EarthVelocity).Velocities[0]
	if !IsBadVelocity(got[0]) || !IsBadVelocity(got[2]) {
		t.Errorf("bad velocity not preserved: %v", got)
	}
	if IsBadVelocity(got[1]) || IsBadVelocity(got[3]) {
		t.Errorf("good velocity classified bad: %v", got)
	}
}

func TestGrid_ShapeInvariant(t *testing.T) {
	for bins := 1; bins <= 255; bins += 17 {
		for beams := 1; beams <= 4; beams++ {
			amp := &Amplitude{Amplitude: floatGrid(bins, beams, func(bin, beam int) float32 {
				return float32(bin*beams + beam)
			})}
			dec, _, err := DecodeDataset(amp.Encode(), 0)
			if err != nil {
				t.Fatalf("%dx%d: unexpected error: %v", bins, beams, err)
			}
			h := dec.Header()
			got := dec.(*Amplitude).Amplitude
			if int(h.NumElements) != len(got) || int(h.ElementMultiplier) != len(got[0]) {
				t.Errorf("%dx%d: header %dx%d does not match grid %dx%d",
					bins, beams, h.NumElements, h.ElementMultiplier, len(got), len(got[0]))
			}
			if !reflect.DeepEqual(got, amp.Amplitude) {
				t.Errorf("%dx%d: grid mismatch", bins, beams)
			}
		}
	}
}

func TestDecodeDataset_Truncated(t *testing.T) {
	buf := buildDataset(ValueTypeFloat, 2, 2, "E000001", floatBody(1.0, 2.0, 3.0))
	if _, _, err := DecodeDataset(buf, 0); !errors.Is(err, ErrTruncatedDataset) {
		t.Errorf("expected ErrTruncatedDataset, got %v", err)
	}
}

func TestDecodeDataset_Unknown(t *testing.T) {
	buf := buildDataset(ValueTypeFloat, 3, 1, "E000099", floatBody(1, 2, 3))
	ds, size, err := DecodeDataset(buf, 0)
	if err != nil {
		t.Fatalf("unknown dataset should not be an error: %v", err)
	}
	if ds != nil {
		t.Errorf("expected nil dataset, got %T", ds)
	}
	if size != len(buf) {
		t.Errorf("expected skip size %d, got %d", len(buf), size)
	}
}

func TestDecodeDataset_ScalarTooShort(t *testing.T) {
	tests := []struct {
		name     string
		elements int32
	}{
		{"E000008", 22},
		{"E000009", 12},
		{"E000014", 11},
		{"E000010", 13},
		{"E000015", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, _ := LookupDataset(tt.name)
			body := make([]byte, int(tt.elements)*4)
			buf := buildDataset(id.ValueType(), tt.elements, 1, tt.name, body)
			if _, _, err := DecodeDataset(buf, 0); !errors.Is(err, ErrTruncatedDataset) {
				t.Errorf("expected ErrTruncatedDataset, got %v", err)
			}
		})
	}
}

// ============================================================
// Dataset Helper Tests
// ============================================================

func TestEnsembleData_Helpers(t *testing.T) {
	d := newTestEnsemble(1, 2, 4).EnsembleData

	if got := d.DateTimeString(); got != "2024/03/14 12:30:15.50" {
		t.Errorf("unexpected date time string %q", got)
	}
	if got := d.Time().Format("2006-01-02T15:04:05.00"); got != "2024-03-14T12:30:15.50" {
		t.Errorf("unexpected time %q", got)
	}
	if got := d.FirmwareString(); got != "0.2.124 - 3" {
		t.Errorf("unexpected firmware string %q", got)
	}
	if d.IsVerticalBeam() {
		t.Error("subsystem '3' is not a vertical beam")
	}
	d.SubsystemCode = 'A'
	if !d.IsVerticalBeam() {
		t.Error("subsystem 'A' is a vertical beam")
	}
}

func TestEnsembleData_ExtraElements(t *testing.T) {
	d := newTestEnsemble(7, 2, 4).EnsembleData
	d.Extra = []int32{11, 12}

	dec, _, err := DecodeDataset(d.Encode(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(dec, d) {
		t.Errorf("extra elements lost: got %+v", dec)
	}
}

func TestFormatStatus(t *testing.T) {
	tests := []struct {
		status   int32
		expected string
	}{
		{0, "Good"},
		{StatusErrLowVoltage, "Low Voltage"},
		{StatusErrRTC, "RTC Error"},
		{StatusBtLongLag | StatusErrReceiverTimeout, "Bottom Track Long Lag, Receiver Timeout"},
		{StatusBtCoast, "Bottom Track Coast, Over Temperature"},
	}
	for _, tt := range tests {
		if got := FormatStatus(tt.status); got != tt.expected {
			t.Errorf("FormatStatus(0x%04X) = %q, expected %q", tt.status, got, tt.expected)
		}
	}
}

func TestEarthVelocity_MagnitudeDirection(t *testing.T) {
	ev := &EarthVelocity{Velocities: [][]float32{
		{3, 4, 0, 0},
		{0, -1, 0, 0},
		{BadVelocity, 1, 0, 0},
	}}

	mags := ev.Magnitudes()
	if math.Abs(mags[0]-5.0) > 1e-6 {
		t.Errorf("expected magnitude 5, got %v", mags[0])
	}
	if mags[2] != BadVelocity {
		t.Errorf("expected bad magnitude, got %v", mags[2])
	}

	dirs := ev.Directions()
	if math.Abs(dirs[1]-180.0) > 1e-6 {
		t.Errorf("expected direction 180, got %v", dirs[1])
	}
	if dirs[2] != BadVelocity {
		t.Errorf("expected bad direction, got %v", dirs[2])
	}
	if d := Direction(-1, 0); math.Abs(d-270.0) > 1e-6 {
		t.Errorf("expected direction 270, got %v", d)
	}

	if !ev.IsGoodBin(2) {
		t.Error("a single bad beam should leave the bin good")
	}
	ev.Velocities[2][1] = BadVelocity
	if ev.IsGoodBin(2) {
		t.Error("two bad beams should mark the bin bad")
	}
}

func TestBinDepth(t *testing.T) {
	if d := BinDepth(1.0, 0.5, 0); d != 1.0 {
		t.Errorf("expected 1.0, got %v", d)
	}
	if d := BinDepth(1.0, 0.25, 3); d != 1.75 {
		t.Errorf("expected 1.75, got %v", d)
	}
}

func TestBottomTrack_Helpers(t *testing.T) {
	bt := newTestEnsemble(1, 2, 4).BottomTrack
	if r := bt.AverageRange(); math.Abs(r-21.5) > 1e-6 {
		t.Errorf("expected average range 21.5, got %v", r)
	}

	bt.Range = []float32{10, BadVelocity, 0, 20}
	if r := bt.AverageRange(); math.Abs(r-15.0) > 1e-6 {
		t.Errorf("bad and zero ranges should be excluded, got %v", r)
	}

	bt.EarthVelocity = []float32{BadVelocity, 0, 0, 0}
	if bt.VesselSpeed() != BadVelocity {
		t.Error("vessel speed should be bad when a component is bad")
	}
}

func TestBottomTrack_PulseCoherent(t *testing.T) {
	bt := newTestEnsemble(1, 2, 4).BottomTrack
	bt.SNRPulseCoherent = beamValues(4, 1)
	bt.AmpPulseCoherent = beamValues(4, 2)
	bt.VelPulseCoherent = beamValues(4, 3)
	bt.NoisePulseCoherent = beamValues(4, 4)
	bt.CorrPulseCoherent = beamValues(4, 5)

	dec, _, err := DecodeDataset(bt.Encode(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(dec, bt) {
		t.Errorf("pulse coherent round trip mismatch: %+v", dec)
	}
}

func TestSystemSetup_Extended(t *testing.T) {
	s := &SystemSetup{Voltage: 24, Extended: true, XmtVoltage: 36, WpBeamMux: 1, HasReserved: true, Reserved1: 2}
	dec, _, err := DecodeDataset(s.Encode(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(dec, s) {
		t.Errorf("extended round trip mismatch: %+v", dec)
	}
}

func TestAncillaryData_MagGravity(t *testing.T) {
	a := newTestEnsemble(1, 2, 4).AncillaryData
	a.HasMagGravity = true
	a.RawMagFieldStrength = 0.3
	a.VerticalGravityVector = -1
	dec, _, err := DecodeDataset(a.Encode(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(dec, a) {
		t.Errorf("mag/gravity round trip mismatch: %+v", dec)
	}
}

func TestRangeTracking_Extended(t *testing.T) {
	rt := newTestEnsemble(1, 2, 4).RangeTracking
	rt.Amplitude = beamValues(4, 60)
	rt.Correlation = beamValues(4, 0.5)
	rt.BeamVelocity = beamValues(4, 0.1)
	rt.InstrumentVelocity = beamValues(4, 0.2)
	rt.EarthVelocity = beamValues(4, 0.3)

	dec, _, err := DecodeDataset(rt.Encode(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(dec, rt) {
		t.Errorf("extended round trip mismatch: %+v", dec)
	}
	if r := rt.AverageRange(); math.Abs(r-21.0) > 1e-6 {
		t.Errorf("expected average range 21.0, got %v", r)
	}
}

func TestNmeaData_Sentences(t *testing.T) {
	n := NewNmeaData("  $GPGGA,1*00 ", "$GPHDT,90.0,T*00")
	if n.Raw != "$GPGGA,1*00\n$GPHDT,90.0,T*00\n" {
		t.Errorf("unexpected raw %q", n.Raw)
	}

	n.Raw += "\x00\x00"
	got := n.Sentences()
	if len(got) != 2 || got[0] != "$GPGGA,1*00" || got[1] != "$GPHDT,90.0,T*00" {
		t.Errorf("unexpected sentences %q", got)
	}
}

// ============================================================
// Frame Tests
// ============================================================

func TestEncodeFrame_Layout(t *testing.T) {
	payload := []byte("123456789")
	frame := EncodeFrame(1234, payload)

	if len(frame) != HeaderSize+len(payload)+ChecksumSize {
		t.Fatalf("unexpected frame length %d", len(frame))
	}
	for i := 0; i < DelimiterSize; i++ {
		if frame[i] != DelimiterByte {
			t.Fatalf("delimiter byte %d is 0x%02X", i, frame[i])
		}
	}

	h, err := ParseFrameHeader(frame)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.EnsembleNumber != 1234 || !h.EnsembleNumberValid() {
		t.Errorf("bad ensemble number fields: %+v", h)
	}
	if h.PayloadSize != int32(len(payload)) || !h.PayloadSizeValid() {
		t.Errorf("bad payload size fields: %+v", h)
	}

	crc := frame[len(frame)-ChecksumSize:]
	if crc[0] != 0xC3 || crc[1] != 0x31 || crc[2] != 0 || crc[3] != 0 {
		t.Errorf("expected checksum C3 31 00 00, got % X", crc)
	}
}

func TestVerifyFrame(t *testing.T) {
	frame := newTestEnsemble(5, 3, 4).Encode()

	if err := VerifyFrame(frame); err != nil {
		t.Fatalf("well formed frame should verify: %v", err)
	}
	if !IsValidFrame(frame) {
		t.Error("IsValidFrame should accept a well formed frame")
	}

	t.Run("incomplete", func(t *testing.T) {
		for _, n := range []int{0, 10, HeaderSize, HeaderSize + ChecksumSize, len(frame) - 1} {
			if err := VerifyFrame(frame[:n]); !errors.Is(err, ErrIncompleteFrame) {
				t.Errorf("%d bytes: expected ErrIncompleteFrame, got %v", n, err)
			}
		}
	})

	t.Run("trailing bytes ignored", func(t *testing.T) {
		if err := VerifyFrame(append(append([]byte{}, frame...), 1, 2, 3)); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("bad size complement", func(t *testing.T) {
		bad := append([]byte{}, frame...)
		bad[DelimiterSize+12] ^= 0x01
		if err := VerifyFrame(bad); !errors.Is(err, ErrPayloadSize) {
			t.Errorf("expected ErrPayloadSize, got %v", err)
		}
	})

	t.Run("bad ensemble number complement", func(t *testing.T) {
		bad := append([]byte{}, frame...)
		bad[DelimiterSize+4] ^= 0x01
		if err := VerifyFrame(bad); !errors.Is(err, ErrMalformedHeader) {
			t.Errorf("expected ErrMalformedHeader, got %v", err)
		}
	})

	t.Run("missing delimiter", func(t *testing.T) {
		bad := append([]byte{}, frame...)
		bad[3] = 0
		if err := VerifyFrame(bad); !errors.Is(err, ErrMalformedHeader) {
			t.Errorf("expected ErrMalformedHeader, got %v", err)
		}
	})

	t.Run("bad checksum", func(t *testing.T) {
		bad := append([]byte{}, frame...)
		bad[len(bad)-1] ^= 0xFF
		if err := VerifyFrame(bad); !errors.Is(err, ErrChecksumMismatch) {
			t.Errorf("expected ErrChecksumMismatch, got %v", err)
		}
	})
}

func TestVerifyFrame_SingleBitFlip(t *testing.T) {
	frame := newTestEnsemble(9, 2, 4).Encode()
	end := len(frame) - ChecksumSize

	for i := HeaderSize; i < end; i++ {
		for bit := 0; bit < 8; bit++ {
			bad := append([]byte{}, frame...)
			bad[i] ^= 1 << bit
			if IsValidFrame(bad) {
				t.Fatalf("flipping bit %d of byte %d should fail verification", bit, i)
			}
		}
	}
}

// ============================================================
// Frame Assembler Tests
// ============================================================

func TestDecodeEnsemble_EnsembleDataOnly(t *testing.T) {
	body := make([]byte, 23*4)
	copy(body, appendInt32(nil, 77))
	payload := buildDataset(ValueTypeInt, 23, 1, "E000008", body)
	frame := EncodeFrame(77, payload)

	if err := VerifyFrame(frame); err != nil {
		t.Fatalf("frame should verify: %v", err)
	}
	ens, err := DecodeEnsemble(frame)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !ens.Has(EnsembleDataID) {
		t.Fatal("ensemble data should be present")
	}
	if ens.EnsembleData.EnsembleNumber != 77 || ens.Number != 77 {
		t.Errorf("unexpected ensemble number %d / %d", ens.EnsembleData.EnsembleNumber, ens.Number)
	}
	for _, id := range DatasetIDs {
		if id != EnsembleDataID && ens.Has(id) {
			t.Errorf("%v should be absent", id)
		}
	}
	if len(ens.Datasets()) != 1 {
		t.Errorf("expected 1 dataset, got %d", len(ens.Datasets()))
	}
}

func TestDecodeEnsemble_RoundTrip(t *testing.T) {
	ens := newTestEnsemble(1001, 6, 4)
	dec, err := DecodeEnsemble(ens.Encode())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(dec, ens) {
		t.Errorf("ensemble round trip mismatch")
	}
}

func TestDecodeEnsemble_SkipsUnknown(t *testing.T) {
	ens := newTestEnsemble(3, 2, 4)
	unknown := buildDataset(ValueTypeFloat, 5, 1, "E000099", floatBody(1, 2, 3, 4, 5))

	var payload []byte
	payload = append(payload, ens.EnsembleData.Encode()...)
	payload = append(payload, unknown...)
	payload = append(payload, ens.EarthVelocity.Encode()...)

	dec, err := DecodeEnsemble(EncodeFrame(3, payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !dec.Has(EnsembleDataID) || !dec.Has(EarthVelocityID) {
		t.Error("datasets around the unknown one should be decoded")
	}
	if len(dec.Datasets()) != 2 {
		t.Errorf("expected 2 datasets, got %d", len(dec.Datasets()))
	}
}

func TestDecodeDatasets_Aborted(t *testing.T) {
	ens := newTestEnsemble(3, 2, 4)
	good := ens.EnsembleData.Encode()

	tests := []struct {
		name    string
		payload []byte
		err     error
	}{
		{
			name:    "truncated dataset",
			payload: append(append([]byte{}, good...), buildDataset(ValueTypeFloat, 4, 4, "E000001", floatBody(1, 2))...),
			err:     ErrTruncatedDataset,
		},
		{
			name:    "short trailing header",
			payload: append(append([]byte{}, good...), 10, 0, 0, 0, 1),
			err:     ErrMalformedHeader,
		},
		{
			name:    "overflowing size",
			payload: append(append([]byte{}, good...), buildDataset(ValueTypeFloat, math.MaxInt32, 4, "E000001", nil)...),
			err:     ErrMalformedHeader,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec, err := DecodeDatasets(tt.payload)
			if !errors.Is(err, tt.err) {
				t.Errorf("expected %v, got %v", tt.err, err)
			}
			if dec != nil {
				t.Error("aborted payload should not produce an ensemble")
			}
		})
	}
}

func TestDecodeDatasets_MaxDatasets(t *testing.T) {
	one := buildDataset(ValueTypeFloat, 1, 1, "E000099", floatBody(1))
	var payload []byte
	for i := 0; i < MaxDatasets; i++ {
		payload = append(payload, one...)
	}
	// Past the bound, never read
	payload = append(payload, newTestEnsemble(1, 1, 1).EnsembleData.Encode()...)

	dec, err := DecodeDatasets(payload)
	if err != nil {
		t.Fatalf("hitting the dataset bound is not an error: %v", err)
	}
	if dec.Has(EnsembleDataID) {
		t.Error("datasets past the bound should not be scanned")
	}
}

func TestAssembler_States(t *testing.T) {
	a := newAssembler(newTestEnsemble(1, 1, 1).EnsembleData.Encode(), nil)
	if a.state != StateStart {
		t.Fatalf("expected %v, got %v", StateStart, a.state)
	}
	a.step()
	if a.state != StateScanningDatasets {
		t.Fatalf("expected %v, got %v", StateScanningDatasets, a.state)
	}
	a.step()
	a.step()
	if a.state != StateComplete {
		t.Fatalf("expected %v, got %v", StateComplete, a.state)
	}

	b := newAssembler([]byte{1, 2, 3}, nil)
	if _, err := b.run(); err == nil || b.state != StateAborted {
		t.Errorf("expected aborted state, got %v (%v)", b.state, err)
	}
	if StateAborted.String() != "ABORTED" {
		t.Errorf("unexpected state name %q", StateAborted.String())
	}
}

// ============================================================
// Ensemble Tests
// ============================================================

func TestEnsemble_Clone(t *testing.T) {
	ens := newTestEnsemble(12, 3, 4)
	c := ens.Clone()
	if !reflect.DeepEqual(c, ens) {
		t.Fatal("clone should equal the original")
	}

	c.EarthVelocity.Velocities[0][0] = 42
	c.EnsembleData.SerialNumber = "changed"
	if ens.EarthVelocity.Velocities[0][0] == 42 || ens.EnsembleData.SerialNumber == "changed" {
		t.Error("clone shares memory with the original")
	}
}

func TestEnsemble_CloneKeepsInconsistentDatasets(t *testing.T) {
	ens := &Ensemble{
		Number:        3,
		EarthVelocity: &EarthVelocity{Velocities: [][]float32{{1, 2, 3, 4}, {5}}},
		NmeaData:      &NmeaData{Raw: "$GPHDT,90.0,T*0C\n"},
	}
	c := ens.Clone()
	if !reflect.DeepEqual(c, ens) {
		t.Errorf("clone dropped or changed a dataset: %+v", c)
	}
}

func TestEnsemble_DatasetTypedNil(t *testing.T) {
	ens := &Ensemble{}
	for _, id := range DatasetIDs {
		if ds := ens.Dataset(id); ds != nil {
			t.Errorf("%v: expected nil interface, got %T", id, ds)
		}
	}
	if len(ens.Datasets()) != 0 {
		t.Error("empty ensemble should list no datasets")
	}
}

func TestEnsemble_EncodeUsesEnsembleDataNumber(t *testing.T) {
	ens := newTestEnsemble(55, 1, 4)
	ens.Number = 1
	h, err := ParseFrameHeader(ens.Encode())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.EnsembleNumber != 55 {
		t.Errorf("expected frame number 55, got %d", h.EnsembleNumber)
	}
}
