// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rtb

import (
	"fmt"
	"log/slog"
)

// AssemblyState is the progress of assembling one frame
type AssemblyState int

const (
	StateStart AssemblyState = iota
	StateScanningDatasets
	StateComplete
	StateAborted
)

func (s AssemblyState) String() string {
	switch s {
	case StateStart:
		return "START"
	case StateScanningDatasets:
		return "SCANNING_DATASETS"
	case StateComplete:
		return "COMPLETE"
	case StateAborted:
		return "ABORTED"
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(s))
}

// assembler walks the datasets of one payload
type assembler struct {
	state   AssemblyState
	payload []byte
	offset  int
	scanned int
	ens     *Ensemble
	err     error
	logger  *slog.Logger
}

func newAssembler(payload []byte, logger *slog.Logger) *assembler {
	if logger == nil {
		logger = discardLogger
	}
	return &assembler{payload: payload, ens: &Ensemble{}, logger: logger}
}

// step advances the state machine by one transition
func (a *assembler) step() {
	switch a.state {
	case StateStart:
		a.state = StateScanningDatasets

	case StateScanningDatasets:
		if a.offset >= len(a.payload) || a.scanned >= MaxDatasets {
			a.state = StateComplete
			return
		}

		ds, size, err := DecodeDataset(a.payload, a.offset)
		if err != nil {
			a.err = fmt.Errorf("dataset %d at offset %d: %w", a.scanned, a.offset, err)
			a.ens = nil
			a.state = StateAborted
			return
		}
		if ds == nil {
			h, _ := ReadDatasetHeader(a.payload, a.offset)
			a.logger.Debug("skipping unknown dataset", "name", h.Name, "size", size)
		} else {
			a.ens.Add(ds)
		}
		a.offset += size
		a.scanned++
	}
}

// run steps until the assembler reaches a final state
func (a *assembler) run() (*Ensemble, error) {
	for a.state != StateComplete && a.state != StateAborted {
		a.step()
	}
	return a.ens, a.err
}

// DecodeDatasets assembles an ensemble from a payload of concatenated datasets.
//
// Unknown datasets are skipped. At most MaxDatasets datasets are scanned.
// Any dataset that cannot be read aborts the whole payload.
func DecodeDatasets(payload []byte) (*Ensemble, error) {
	return newAssembler(payload, nil).run()
}

// DecodeEnsemble assembles an ensemble from a complete frame.
//
// The checksum is not checked; run VerifyFrame first on untrusted input.
func DecodeEnsemble(frame []byte) (*Ensemble, error) {
	return decodeEnsemble(frame, nil)
}

func decodeEnsemble(frame []byte, logger *slog.Logger) (*Ensemble, error) {
	h, err := ParseFrameHeader(frame)
	if err != nil {
		return nil, err
	}
	if !h.PayloadSizeValid() {
		return nil, fmt.Errorf("%w: size %d", ErrPayloadSize, h.PayloadSize)
	}
	if len(frame) < HeaderSize+int(h.PayloadSize) {
		return nil, ErrIncompleteFrame
	}

	ens, err := newAssembler(frame[HeaderSize:HeaderSize+int(h.PayloadSize)], logger).run()
	if err != nil {
		return nil, err
	}
	ens.Number = h.EnsembleNumber
	return ens, nil
}
