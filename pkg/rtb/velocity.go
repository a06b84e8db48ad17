// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rtb

import "math"

// BeamVelocity holds water profile velocities along each beam in m/s, indexed [bin][beam]
type BeamVelocity struct {
	Velocities [][]float32
}

func (d *BeamVelocity) ID() DatasetID { return BeamVelocityID }

func (d *BeamVelocity) Header() DatasetHeader { return gridHeader(BeamVelocityID, d.Velocities) }

func (d *BeamVelocity) Encode() []byte { return encodeGrid(d.Header(), d.Velocities) }

func decodeBeamVelocity(h DatasetHeader, body []byte) (*BeamVelocity, error) {
	g, err := decodeGrid[float32](h, body)
	if err != nil {
		return nil, err
	}
	return &BeamVelocity{Velocities: g}, nil
}

// InstrumentVelocity holds velocities in instrument coordinates (X, Y, Z, error), indexed [bin][beam]
type InstrumentVelocity struct {
	Velocities [][]float32
}

func (d *InstrumentVelocity) ID() DatasetID { return InstrumentVelocityID }

func (d *InstrumentVelocity) Header() DatasetHeader {
	return gridHeader(InstrumentVelocityID, d.Velocities)
}

func (d *InstrumentVelocity) Encode() []byte { return encodeGrid(d.Header(), d.Velocities) }

func decodeInstrumentVelocity(h DatasetHeader, body []byte) (*InstrumentVelocity, error) {
	g, err := decodeGrid[float32](h, body)
	if err != nil {
		return nil, err
	}
	return &InstrumentVelocity{Velocities: g}, nil
}

// EarthVelocity holds velocities in earth coordinates (east, north, vertical, error), indexed [bin][beam]
type EarthVelocity struct {
	Velocities [][]float32
}

func (d *EarthVelocity) ID() DatasetID { return EarthVelocityID }

func (d *EarthVelocity) Header() DatasetHeader { return gridHeader(EarthVelocityID, d.Velocities) }

func (d *EarthVelocity) Encode() []byte { return encodeGrid(d.Header(), d.Velocities) }

func decodeEarthVelocity(h DatasetHeader, body []byte) (*EarthVelocity, error) {
	g, err := decodeGrid[float32](h, body)
	if err != nil {
		return nil, err
	}
	return &EarthVelocity{Velocities: g}, nil
}

// Magnitudes returns the current speed for each bin, BadVelocity where a
// component is bad or fewer than three beams are present
func (d *EarthVelocity) Magnitudes() []float64 {
	out := make([]float64, len(d.Velocities))
	for bin, v := range d.Velocities {
		if len(v) < 3 {
			out[bin] = BadVelocity
			continue
		}
		out[bin] = Magnitude(v[0], v[1], v[2])
	}
	return out
}

// Directions returns the current direction for each bin in degrees (0..360),
// BadVelocity where east or north is bad
func (d *EarthVelocity) Directions() []float64 {
	out := make([]float64, len(d.Velocities))
	for bin, v := range d.Velocities {
		if len(v) < 2 {
			out[bin] = BadVelocity
			continue
		}
		out[bin] = Direction(v[0], v[1])
	}
	return out
}

// IsGoodBin reports whether no more than one beam of the bin is bad
func (d *EarthVelocity) IsGoodBin(bin int) bool {
	if bin < 0 || bin >= len(d.Velocities) {
		return false
	}
	bad := 0
	for _, v := range d.Velocities[bin] {
		if IsBadVelocity(v) {
			bad++
		}
	}
	return bad <= 1
}

// Magnitude returns the length of the velocity vector, or BadVelocity if any component is bad
func Magnitude(east, north, vertical float32) float64 {
	if IsBadVelocity(east) || IsBadVelocity(north) || IsBadVelocity(vertical) {
		return BadVelocity
	}
	e, n, v := float64(east), float64(north), float64(vertical)
	return math.Sqrt(e*e + n*n + v*v)
}

// Direction returns the heading of the velocity vector in degrees (0..360),
// or BadVelocity if a component is bad
func Direction(east, north float32) float64 {
	if IsBadVelocity(east) || IsBadVelocity(north) {
		return BadVelocity
	}
	dir := math.Atan2(float64(east), float64(north)) * 180.0 / math.Pi
	if dir < 0 {
		dir += 360.0
	}
	return dir
}

// BinDepth returns the depth of the center of bin (zero based) in meters
func BinDepth(blank, binSize float32, bin int) float64 {
	d := float64(blank) + float64(binSize)*float64(bin)
	return math.Round(d*100) / 100
}
