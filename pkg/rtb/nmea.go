// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rtb

import "strings"

// NmeaData holds the navigation sentences received alongside the ensemble.
// Sentences are stored as sent, newline separated.
type NmeaData struct {
	Raw string
}

// NewNmeaData joins the sentences into a dataset
func NewNmeaData(sentences ...string) *NmeaData {
	d := &NmeaData{}
	for _, s := range sentences {
		d.Add(s)
	}
	return d
}

// Add appends a sentence
func (d *NmeaData) Add(sentence string) {
	d.Raw += strings.TrimSpace(sentence) + "\n"
}

// Sentences splits the raw text on whitespace
func (d *NmeaData) Sentences() []string {
	return strings.Fields(strings.ReplaceAll(d.Raw, "\x00", " "))
}

func (d *NmeaData) ID() DatasetID { return NmeaDataID }

func (d *NmeaData) Header() DatasetHeader {
	return newDatasetHeader(NmeaDataID, len(d.Raw), 1)
}

func (d *NmeaData) Encode() []byte {
	h := d.Header()
	dst := make([]byte, 0, h.HeaderSize()+len(d.Raw))
	dst = appendDatasetHeader(dst, h)
	return append(dst, d.Raw...)
}

func decodeNmeaData(h DatasetHeader, body []byte) (*NmeaData, error) {
	n := int(h.NumElements) * int(h.ElementMultiplier)
	if err := requireBytes(h, body, n, 1); err != nil {
		return nil, err
	}
	return &NmeaData{Raw: string(body[:n])}, nil
}
