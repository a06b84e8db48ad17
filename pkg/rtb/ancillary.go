// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rtb

import "math"

const (
	ancillaryBaseElements     = 13
	ancillaryExtendedElements = 19
)

// AncillaryData holds the water profile ancillary sensor readings
type AncillaryData struct {
	FirstBinRange   float32 // m
	BinSize         float32 // m
	FirstPingTime   float32 // s
	LastPingTime    float32 // s
	Heading         float32 // degrees
	Pitch           float32 // degrees
	Roll            float32 // degrees
	WaterTemp       float32 // degrees C
	SystemTemp      float32 // degrees C
	Salinity        float32 // ppt
	Pressure        float32 // Pa
	TransducerDepth float32 // m
	SpeedOfSound    float32 // m/s

	// Present when HasMagGravity is set
	RawMagFieldStrength   float32
	RawMagFieldStrength2  float32
	RawMagFieldStrength3  float32
	PitchGravityVector    float32
	RollGravityVector     float32
	VerticalGravityVector float32
	HasMagGravity         bool

	Extra []float32
}

func (d *AncillaryData) fields() []*float32 {
	f := []*float32{
		&d.FirstBinRange, &d.BinSize, &d.FirstPingTime, &d.LastPingTime,
		&d.Heading, &d.Pitch, &d.Roll, &d.WaterTemp, &d.SystemTemp,
		&d.Salinity, &d.Pressure, &d.TransducerDepth, &d.SpeedOfSound,
	}
	if d.HasMagGravity {
		f = append(f,
			&d.RawMagFieldStrength, &d.RawMagFieldStrength2, &d.RawMagFieldStrength3,
			&d.PitchGravityVector, &d.RollGravityVector, &d.VerticalGravityVector)
	}
	return f
}

func (d *AncillaryData) values() []float32 {
	return append(collectFloats(d.fields()), d.Extra...)
}

func (d *AncillaryData) ID() DatasetID { return AncillaryDataID }

func (d *AncillaryData) Header() DatasetHeader {
	return newDatasetHeader(AncillaryDataID, len(d.values()), 1)
}

func (d *AncillaryData) Encode() []byte { return encodeScalars(AncillaryDataID, d.values()) }

func decodeAncillaryData(h DatasetHeader, body []byte) (*AncillaryData, error) {
	vals, err := decodeScalars(h, body, ancillaryBaseElements)
	if err != nil {
		return nil, err
	}

	d := &AncillaryData{HasMagGravity: len(vals) >= ancillaryExtendedElements}
	f := d.fields()
	assignFloats(f, vals)
	d.Extra = trailing(vals, len(f))
	return d, nil
}

// IsUpwardFacing reports whether the roll is within [minRoll, maxRoll]
// degrees of level, which an upward looking instrument reads
func (d *AncillaryData) IsUpwardFacing(minRoll, maxRoll float32) bool {
	roll := float32(math.Abs(float64(d.Roll)))
	return roll >= minRoll && roll <= maxRoll
}
