// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rtb

const (
	systemSetupBaseElements     = 12
	systemSetupExtendedElements = 23
	systemSetupReservedElements = 25
)

// SystemSetup holds the acoustic configuration of the bottom track and water profile pings
type SystemSetup struct {
	BtSamplesPerSecond float32
	BtSystemFreqHz     float32
	BtCPCE             float32
	BtNCE              float32
	BtRepeatN          float32
	WpSamplesPerSecond float32
	WpSystemFreqHz     float32
	WpCPCE             float32
	WpNCE              float32
	WpRepeatN          float32
	WpLagSamples       float32
	Voltage            float32 // input voltage

	// Present when Extended is set
	XmtVoltage           float32
	BtBroadband          float32
	BtLagLength          float32
	BtNarrowband         float32
	BtBeamMux            float32
	WpBroadband          float32
	WpLagLength          float32
	WpTransmitBandwidth  float32
	WpReceiveBandwidth   float32
	TransmitBoostNegVolt float32
	WpBeamMux            float32
	Extended             bool

	// Present when HasReserved is set, which requires Extended
	Reserved    float32
	Reserved1   float32
	HasReserved bool

	Extra []float32
}

func (d *SystemSetup) fields() []*float32 {
	f := []*float32{
		&d.BtSamplesPerSecond, &d.BtSystemFreqHz, &d.BtCPCE, &d.BtNCE, &d.BtRepeatN,
		&d.WpSamplesPerSecond, &d.WpSystemFreqHz, &d.WpCPCE, &d.WpNCE, &d.WpRepeatN,
		&d.WpLagSamples, &d.Voltage,
	}
	if d.Extended {
		f = append(f,
			&d.XmtVoltage, &d.BtBroadband, &d.BtLagLength, &d.BtNarrowband, &d.BtBeamMux,
			&d.WpBroadband, &d.WpLagLength, &d.WpTransmitBandwidth, &d.WpReceiveBandwidth,
			&d.TransmitBoostNegVolt, &d.WpBeamMux)
		if d.HasReserved {
			f = append(f, &d.Reserved, &d.Reserved1)
		}
	}
	return f
}

func (d *SystemSetup) values() []float32 {
	return append(collectFloats(d.fields()), d.Extra...)
}

func (d *SystemSetup) ID() DatasetID { return SystemSetupID }

func (d *SystemSetup) Header() DatasetHeader {
	return newDatasetHeader(SystemSetupID, len(d.values()), 1)
}

func (d *SystemSetup) Encode() []byte { return encodeScalars(SystemSetupID, d.values()) }

func decodeSystemSetup(h DatasetHeader, body []byte) (*SystemSetup, error) {
	vals, err := decodeScalars(h, body, systemSetupBaseElements)
	if err != nil {
		return nil, err
	}

	d := &SystemSetup{
		Extended:    len(vals) >= systemSetupExtendedElements,
		HasReserved: len(vals) >= systemSetupReservedElements,
	}
	f := d.fields()
	assignFloats(f, vals)
	d.Extra = trailing(vals, len(f))
	return d, nil
}
