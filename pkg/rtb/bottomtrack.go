// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rtb

const bottomTrackScalarElements = 14

// BottomTrack holds the bottom track ping results. Per-beam slices are indexed by beam.
type BottomTrack struct {
	FirstPingTime   float32
	LastPingTime    float32
	Heading         float32
	Pitch           float32
	Roll            float32
	WaterTemp       float32
	SystemTemp      float32
	Salinity        float32
	Pressure        float32
	TransducerDepth float32
	SpeedOfSound    float32
	Status          float32
	NumBeams        float32
	ActualPingCount float32

	Range              []float32
	SNR                []float32
	Amplitude          []float32
	Correlation        []float32
	BeamVelocity       []float32
	BeamGood           []float32
	InstrumentVelocity []float32
	InstrumentGood     []float32
	EarthVelocity      []float32
	EarthGood          []float32

	// Pulse coherent results, nil when the firmware does not send them
	SNRPulseCoherent   []float32
	AmpPulseCoherent   []float32
	VelPulseCoherent   []float32
	NoisePulseCoherent []float32
	CorrPulseCoherent  []float32

	Extra []float32
}

func (d *BottomTrack) scalars() []*float32 {
	return []*float32{
		&d.FirstPingTime, &d.LastPingTime, &d.Heading, &d.Pitch, &d.Roll,
		&d.WaterTemp, &d.SystemTemp, &d.Salinity, &d.Pressure, &d.TransducerDepth,
		&d.SpeedOfSound, &d.Status, &d.NumBeams, &d.ActualPingCount,
	}
}

func (d *BottomTrack) beamArrays() []*[]float32 {
	return []*[]float32{
		&d.Range, &d.SNR, &d.Amplitude, &d.Correlation, &d.BeamVelocity,
		&d.BeamGood, &d.InstrumentVelocity, &d.InstrumentGood, &d.EarthVelocity, &d.EarthGood,
	}
}

func (d *BottomTrack) pulseCoherentArrays() []*[]float32 {
	return []*[]float32{
		&d.SNRPulseCoherent, &d.AmpPulseCoherent, &d.VelPulseCoherent,
		&d.NoisePulseCoherent, &d.CorrPulseCoherent,
	}
}

func (d *BottomTrack) values() []float32 {
	vals := collectFloats(d.scalars())
	for _, a := range d.beamArrays() {
		vals = append(vals, *a...)
	}
	if d.SNRPulseCoherent != nil {
		for _, a := range d.pulseCoherentArrays() {
			vals = append(vals, *a...)
		}
	}
	return append(vals, d.Extra...)
}

func (d *BottomTrack) ID() DatasetID { return BottomTrackID }

func (d *BottomTrack) Header() DatasetHeader {
	return newDatasetHeader(BottomTrackID, len(d.values()), 1)
}

func (d *BottomTrack) Encode() []byte { return encodeScalars(BottomTrackID, d.values()) }

func decodeBottomTrack(h DatasetHeader, body []byte) (*BottomTrack, error) {
	vals, err := decodeScalars(h, body, bottomTrackScalarElements)
	if err != nil {
		return nil, err
	}

	d := &BottomTrack{}
	assignFloats(d.scalars(), vals)
	rest := vals[bottomTrackScalarElements:]

	beams := int(d.NumBeams)
	arrays := d.beamArrays()
	if beams < 0 || beams*len(arrays) > len(rest) {
		beams = 0
	}
	for _, a := range arrays {
		*a = takeFloats(&rest, beams)
	}

	pulse := d.pulseCoherentArrays()
	if beams > 0 && len(rest) >= beams*len(pulse) {
		for _, a := range pulse {
			*a = takeFloats(&rest, beams)
		}
	}

	d.Extra = trailing(rest, 0)
	return d, nil
}

// VesselSpeed returns the speed over ground from the earth velocities, or
// BadVelocity if fewer than three beams are good
func (d *BottomTrack) VesselSpeed() float64 {
	if int(d.NumBeams) >= 3 && len(d.EarthVelocity) >= 3 {
		return Magnitude(d.EarthVelocity[0], d.EarthVelocity[1], d.EarthVelocity[2])
	}
	return BadVelocity
}

// VesselDirection returns the course over ground in degrees, or BadVelocity
func (d *BottomTrack) VesselDirection() float64 {
	if int(d.NumBeams) >= 2 && len(d.EarthVelocity) >= 2 {
		return Direction(d.EarthVelocity[0], d.EarthVelocity[1])
	}
	return BadVelocity
}

// AverageRange returns the mean of the good beam ranges
func (d *BottomTrack) AverageRange() float64 {
	return AverageRange(d.Range)
}

// StatusString describes the bottom track status flags
func (d *BottomTrack) StatusString() string {
	return FormatStatus(int32(d.Status))
}

// AverageRange averages the ranges that are positive and not BadVelocity.
// It returns 0 when none qualify.
func AverageRange(ranges []float32) float64 {
	var sum float64
	count := 0
	for _, r := range ranges {
		if r > 0 && !IsBadVelocity(r) {
			sum += float64(r)
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
