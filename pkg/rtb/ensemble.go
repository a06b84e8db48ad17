// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rtb

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Ensemble is one decoded measurement record.
//
// Each dataset field is nil when the frame did not carry that dataset.
type Ensemble struct {
	// Number is the ensemble number from the frame header
	Number int32 `json:"number" cbor:"number"`

	BeamVelocity       *BeamVelocity       `json:"beam_velocity,omitempty" cbor:"beam_velocity,omitempty"`
	InstrumentVelocity *InstrumentVelocity `json:"instrument_velocity,omitempty" cbor:"instrument_velocity,omitempty"`
	EarthVelocity      *EarthVelocity      `json:"earth_velocity,omitempty" cbor:"earth_velocity,omitempty"`
	Amplitude          *Amplitude          `json:"amplitude,omitempty" cbor:"amplitude,omitempty"`
	Correlation        *Correlation        `json:"correlation,omitempty" cbor:"correlation,omitempty"`
	GoodBeam           *GoodBeam           `json:"good_beam,omitempty" cbor:"good_beam,omitempty"`
	GoodEarth          *GoodEarth          `json:"good_earth,omitempty" cbor:"good_earth,omitempty"`
	EnsembleData       *EnsembleData       `json:"ensemble_data,omitempty" cbor:"ensemble_data,omitempty"`
	AncillaryData      *AncillaryData      `json:"ancillary_data,omitempty" cbor:"ancillary_data,omitempty"`
	BottomTrack        *BottomTrack        `json:"bottom_track,omitempty" cbor:"bottom_track,omitempty"`
	NmeaData           *NmeaData           `json:"nmea_data,omitempty" cbor:"nmea_data,omitempty"`
	SystemSetup        *SystemSetup        `json:"system_setup,omitempty" cbor:"system_setup,omitempty"`
	RangeTracking      *RangeTracking      `json:"range_tracking,omitempty" cbor:"range_tracking,omitempty"`
}

// Has reports whether the dataset is present
func (e *Ensemble) Has(id DatasetID) bool {
	return e.Dataset(id) != nil
}

// Dataset returns the dataset with the given ID, or nil
func (e *Ensemble) Dataset(id DatasetID) Dataset {
	// Typed nil pointers must not leak out as non-nil interfaces
	switch id {
	case BeamVelocityID:
		if e.BeamVelocity != nil {
			return e.BeamVelocity
		}
	case InstrumentVelocityID:
		if e.InstrumentVelocity != nil {
			return e.InstrumentVelocity
		}
	case EarthVelocityID:
		if e.EarthVelocity != nil {
			return e.EarthVelocity
		}
	case AmplitudeID:
		if e.Amplitude != nil {
			return e.Amplitude
		}
	case CorrelationID:
		if e.Correlation != nil {
			return e.Correlation
		}
	case GoodBeamID:
		if e.GoodBeam != nil {
			return e.GoodBeam
		}
	case GoodEarthID:
		if e.GoodEarth != nil {
			return e.GoodEarth
		}
	case EnsembleDataID:
		if e.EnsembleData != nil {
			return e.EnsembleData
		}
	case AncillaryDataID:
		if e.AncillaryData != nil {
			return e.AncillaryData
		}
	case BottomTrackID:
		if e.BottomTrack != nil {
			return e.BottomTrack
		}
	case NmeaDataID:
		if e.NmeaData != nil {
			return e.NmeaData
		}
	case SystemSetupID:
		if e.SystemSetup != nil {
			return e.SystemSetup
		}
	case RangeTrackingID:
		if e.RangeTracking != nil {
			return e.RangeTracking
		}
	}
	return nil
}

// Add stores ds in the ensemble, replacing any dataset of the same kind
func (e *Ensemble) Add(ds Dataset) {
	switch d := ds.(type) {
	case *BeamVelocity:
		e.BeamVelocity = d
	case *InstrumentVelocity:
		e.InstrumentVelocity = d
	case *EarthVelocity:
		e.EarthVelocity = d
	case *Amplitude:
		e.Amplitude = d
	case *Correlation:
		e.Correlation = d
	case *GoodBeam:
		e.GoodBeam = d
	case *GoodEarth:
		e.GoodEarth = d
	case *EnsembleData:
		e.EnsembleData = d
	case *AncillaryData:
		e.AncillaryData = d
	case *BottomTrack:
		e.BottomTrack = d
	case *NmeaData:
		e.NmeaData = d
	case *SystemSetup:
		e.SystemSetup = d
	case *RangeTracking:
		e.RangeTracking = d
	}
}

// Datasets returns the present datasets in encode order
func (e *Ensemble) Datasets() []Dataset {
	var out []Dataset
	for _, id := range DatasetIDs {
		if ds := e.Dataset(id); ds != nil {
			out = append(out, ds)
		}
	}
	return out
}

// Payload encodes the present datasets back to back
func (e *Ensemble) Payload() []byte {
	var payload []byte
	for _, ds := range e.Datasets() {
		payload = append(payload, ds.Encode()...)
	}
	return payload
}

// Encode returns the ensemble as a complete frame.
//
// The frame carries the EnsembleData ensemble number when present, else Number.
func (e *Ensemble) Encode() []byte {
	num := e.Number
	if e.EnsembleData != nil {
		num = e.EnsembleData.EnsembleNumber
	}
	return EncodeFrame(num, e.Payload())
}

// Clone returns a deep copy of the ensemble.
//
// The copy is structural, so datasets whose dimensions disagree with their
// contents are copied as they are.
func (e *Ensemble) Clone() *Ensemble {
	data, err := cloneMode.Marshal(e)
	if err == nil {
		c := &Ensemble{}
		if err = cbor.Unmarshal(data, c); err == nil {
			return c
		}
	}
	// Only reachable if a dataset gains a field CBOR cannot represent
	panic(fmt.Sprintf("rtb: cannot clone ensemble %d: %v", e.Number, err))
}
