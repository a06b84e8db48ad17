// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rtb

// RangeTracking holds the per-beam range to the surface or bottom
type RangeTracking struct {
	NumBeams float32
	SNR      []float32
	Range    []float32
	Pings    []float32

	// Present on newer firmware, nil otherwise
	Amplitude          []float32
	Correlation        []float32
	BeamVelocity       []float32
	InstrumentVelocity []float32
	EarthVelocity      []float32

	Extra []float32
}

func (d *RangeTracking) baseArrays() []*[]float32 {
	return []*[]float32{&d.SNR, &d.Range, &d.Pings}
}

func (d *RangeTracking) extendedArrays() []*[]float32 {
	return []*[]float32{&d.Amplitude, &d.Correlation, &d.BeamVelocity, &d.InstrumentVelocity, &d.EarthVelocity}
}

func (d *RangeTracking) values() []float32 {
	vals := []float32{d.NumBeams}
	for _, a := range d.baseArrays() {
		vals = append(vals, *a...)
	}
	if d.Amplitude != nil {
		for _, a := range d.extendedArrays() {
			vals = append(vals, *a...)
		}
	}
	return append(vals, d.Extra...)
}

func (d *RangeTracking) ID() DatasetID { return RangeTrackingID }

func (d *RangeTracking) Header() DatasetHeader {
	return newDatasetHeader(RangeTrackingID, len(d.values()), 1)
}

func (d *RangeTracking) Encode() []byte { return encodeScalars(RangeTrackingID, d.values()) }

func decodeRangeTracking(h DatasetHeader, body []byte) (*RangeTracking, error) {
	vals, err := decodeScalars(h, body, 1)
	if err != nil {
		return nil, err
	}

	d := &RangeTracking{NumBeams: vals[0]}
	rest := vals[1:]

	beams := int(d.NumBeams)
	base := d.baseArrays()
	if beams < 0 || beams*len(base) > len(rest) {
		beams = 0
	}
	for _, a := range base {
		*a = takeFloats(&rest, beams)
	}

	ext := d.extendedArrays()
	if beams > 0 && len(rest) >= beams*len(ext) {
		for _, a := range ext {
			*a = takeFloats(&rest, beams)
		}
	}

	d.Extra = trailing(rest, 0)
	return d, nil
}

// AverageRange returns the mean of the good beam ranges
func (d *RangeTracking) AverageRange() float64 {
	return AverageRange(d.Range)
}
