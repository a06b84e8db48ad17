// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rtb

// Amplitude holds echo intensity in dB, indexed [bin][beam]
type Amplitude struct {
	Amplitude [][]float32
}

func (d *Amplitude) ID() DatasetID { return AmplitudeID }

func (d *Amplitude) Header() DatasetHeader { return gridHeader(AmplitudeID, d.Amplitude) }

func (d *Amplitude) Encode() []byte { return encodeGrid(d.Header(), d.Amplitude) }

// IsGoodBin reports whether every beam of the bin reaches minAmp
func (d *Amplitude) IsGoodBin(bin int, minAmp float32) bool {
	if bin < 0 || bin >= len(d.Amplitude) {
		return false
	}
	for _, v := range d.Amplitude[bin] {
		if v < minAmp {
			return false
		}
	}
	return true
}

func decodeAmplitude(h DatasetHeader, body []byte) (*Amplitude, error) {
	g, err := decodeGrid[float32](h, body)
	if err != nil {
		return nil, err
	}
	return &Amplitude{Amplitude: g}, nil
}

// Correlation holds the normalized correlation (0..1), indexed [bin][beam]
type Correlation struct {
	Correlation [][]float32
}

func (d *Correlation) ID() DatasetID { return CorrelationID }

func (d *Correlation) Header() DatasetHeader { return gridHeader(CorrelationID, d.Correlation) }

func (d *Correlation) Encode() []byte { return encodeGrid(d.Header(), d.Correlation) }

// IsGoodBin reports whether every beam of the bin reaches minCorr
func (d *Correlation) IsGoodBin(bin int, minCorr float32) bool {
	if bin < 0 || bin >= len(d.Correlation) {
		return false
	}
	for _, v := range d.Correlation[bin] {
		if v < minCorr {
			return false
		}
	}
	return true
}

func decodeCorrelation(h DatasetHeader, body []byte) (*Correlation, error) {
	g, err := decodeGrid[float32](h, body)
	if err != nil {
		return nil, err
	}
	return &Correlation{Correlation: g}, nil
}

// GoodBeam holds the number of good pings per bin and beam
type GoodBeam struct {
	Pings [][]int32
}

func (d *GoodBeam) ID() DatasetID { return GoodBeamID }

func (d *GoodBeam) Header() DatasetHeader { return gridHeader(GoodBeamID, d.Pings) }

func (d *GoodBeam) Encode() []byte { return encodeGrid(d.Header(), d.Pings) }

func decodeGoodBeam(h DatasetHeader, body []byte) (*GoodBeam, error) {
	g, err := decodeGrid[int32](h, body)
	if err != nil {
		return nil, err
	}
	return &GoodBeam{Pings: g}, nil
}

// GoodEarth holds the number of good earth-transformed pings per bin and beam
type GoodEarth struct {
	Pings [][]int32
}

func (d *GoodEarth) ID() DatasetID { return GoodEarthID }

func (d *GoodEarth) Header() DatasetHeader { return gridHeader(GoodEarthID, d.Pings) }

func (d *GoodEarth) Encode() []byte { return encodeGrid(d.Header(), d.Pings) }

func decodeGoodEarth(h DatasetHeader, body []byte) (*GoodEarth, error) {
	g, err := decodeGrid[int32](h, body)
	if err != nil {
		return nil, err
	}
	return &GoodEarth{Pings: g}, nil
}
