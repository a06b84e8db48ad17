// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rtb

import "fmt"

// DatasetID identifies a known dataset variant
type DatasetID int

// Known datasets
const (
	BeamVelocityID DatasetID = iota + 1
	InstrumentVelocityID
	EarthVelocityID
	AmplitudeID
	CorrelationID
	GoodBeamID
	GoodEarthID
	EnsembleDataID
	AncillaryDataID
	BottomTrackID
	NmeaDataID
	SystemSetupID
	RangeTrackingID
)

// DatasetIDs lists every known dataset in ensemble encode order
var DatasetIDs = []DatasetID{
	EnsembleDataID,
	AncillaryDataID,
	AmplitudeID,
	CorrelationID,
	BeamVelocityID,
	InstrumentVelocityID,
	EarthVelocityID,
	GoodBeamID,
	GoodEarthID,
	BottomTrackID,
	RangeTrackingID,
	SystemSetupID,
	NmeaDataID,
}

// datasetNames maps a wire name to its ID. Built once at load.
var datasetNames = func() map[string]DatasetID {
	m := make(map[string]DatasetID, len(DatasetIDs))
	for _, id := range DatasetIDs {
		m[id.Name()] = id
	}
	return m
}()

// LookupDataset returns the ID for a dataset name, with NUL padding removed
func LookupDataset(name string) (DatasetID, bool) {
	id, ok := datasetNames[name]
	return id, ok
}

// Name returns the wire name of the dataset
func (id DatasetID) Name() string {
	switch id {
	case BeamVelocityID:
		return "E000001"
	case InstrumentVelocityID:
		return "E000002"
	case EarthVelocityID:
		return "E000003"
	case AmplitudeID:
		return "E000004"
	case CorrelationID:
		return "E000005"
	case GoodBeamID:
		return "E000006"
	case GoodEarthID:
		return "E000007"
	case EnsembleDataID:
		return "E000008"
	case AncillaryDataID:
		return "E000009"
	case BottomTrackID:
		return "E000010"
	case NmeaDataID:
		return "E000011"
	case SystemSetupID:
		return "E000014"
	case RangeTrackingID:
		return "E000015"
	}
	return ""
}

func (id DatasetID) String() string {
	switch id {
	case BeamVelocityID:
		return "Beam Velocity"
	case InstrumentVelocityID:
		return "Instrument Velocity"
	case EarthVelocityID:
		return "Earth Velocity"
	case AmplitudeID:
		return "Amplitude"
	case CorrelationID:
		return "Correlation"
	case GoodBeamID:
		return "Good Beam"
	case GoodEarthID:
		return "Good Earth"
	case EnsembleDataID:
		return "Ensemble Data"
	case AncillaryDataID:
		return "Ancillary Data"
	case BottomTrackID:
		return "Bottom Track"
	case NmeaDataID:
		return "NMEA Data"
	case SystemSetupID:
		return "System Setup"
	case RangeTrackingID:
		return "Range Tracking"
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(id))
}

// ValueType returns the element encoding the dataset is written with
func (id DatasetID) ValueType() ValueType {
	switch id {
	case GoodBeamID, GoodEarthID, EnsembleDataID:
		return ValueTypeInt
	case NmeaDataID:
		return ValueTypeByte
	}
	return ValueTypeFloat
}

// decode dispatches the dataset body to the variant decoder
func (id DatasetID) decode(h DatasetHeader, body []byte) (Dataset, error) {
	switch id {
	case BeamVelocityID:
		return decodeBeamVelocity(h, body)
	case InstrumentVelocityID:
		return decodeInstrumentVelocity(h, body)
	case EarthVelocityID:
		return decodeEarthVelocity(h, body)
	case AmplitudeID:
		return decodeAmplitude(h, body)
	case CorrelationID:
		return decodeCorrelation(h, body)
	case GoodBeamID:
		return decodeGoodBeam(h, body)
	case GoodEarthID:
		return decodeGoodEarth(h, body)
	case EnsembleDataID:
		return decodeEnsembleData(h, body)
	case AncillaryDataID:
		return decodeAncillaryData(h, body)
	case BottomTrackID:
		return decodeBottomTrack(h, body)
	case NmeaDataID:
		return decodeNmeaData(h, body)
	case SystemSetupID:
		return decodeSystemSetup(h, body)
	case RangeTrackingID:
		return decodeRangeTracking(h, body)
	}
	return nil, fmt.Errorf("no decoder for dataset %v", id)
}
