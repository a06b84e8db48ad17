// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rtb

import (
	"errors"
	"fmt"
	"time"
)

// Statistics tracks ensemble statistics and error rates
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalFrames        uint64
	ValidEnsembles     uint64
	ChecksumErrors     uint64
	PayloadSizeErrors  uint64
	DecodeErrors       uint64
	AnomalousEnsembles uint64
	MissingEnsembles   uint64
	TimeJumps          uint64
	StatusErrors       uint64
	VoltageErrors      uint64
	TiltErrors         uint64
	AmplitudeErrors    uint64
	CorrelationErrors  uint64
	ShapeMismatches    uint64
	BytesDiscarded     uint64
	BytesRejected      uint64

	// Rates (calculated)
	EnsembleRate float64 // ensembles/sec
	ErrorRate    float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// Update updates statistics based on one frame and its errors.
// ens is ignored when decodeErr is set.
func (s *Statistics) Update(ens *Ensemble, decodeErr error, validationErrors []ValidationError) {
	s.TotalFrames++
	s.LastUpdateTime = time.Now()

	if decodeErr != nil {
		switch {
		case errors.Is(decodeErr, ErrChecksumMismatch):
			s.ChecksumErrors++
		case errors.Is(decodeErr, ErrPayloadSize):
			s.PayloadSizeErrors++
		default:
			s.DecodeErrors++
		}
		return
	}

	anomalous := false
	for _, v := range validationErrors {
		switch v.Type {
		case AnomalyMissingEnsemble:
			// Gaps say nothing about this ensemble itself
			if n, ok := v.Details["missing"].(int64); ok && n > 0 {
				s.MissingEnsembles += uint64(n)
			}
			continue
		case AnomalyTimeJump:
			s.TimeJumps++
			continue
		case AnomalyStatus:
			s.StatusErrors++
		case AnomalyVoltage:
			s.VoltageErrors++
		case AnomalyTilt:
			s.TiltErrors++
		case AnomalyAmplitude:
			s.AmplitudeErrors++
		case AnomalyCorrelation:
			s.CorrelationErrors++
		case AnomalyShapeMismatch:
			s.ShapeMismatches++
		}
		anomalous = true
	}

	if anomalous {
		s.AnomalousEnsembles++
	} else {
		s.ValidEnsembles++
	}
}

// CalculateRates calculates ensemble and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.EnsembleRate = float64(s.ValidEnsembles+s.AnomalousEnsembles) / elapsed
		s.ErrorRate = float64(s.ErrorCount()) / elapsed
	}
}

// ErrorCount returns the number of frames that failed or were anomalous
func (s *Statistics) ErrorCount() uint64 {
	return s.ChecksumErrors + s.PayloadSizeErrors + s.DecodeErrors + s.AnomalousEnsembles
}

func percent(n, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) * 100.0 / float64(total)
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()
	total := s.TotalFrames
	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Frames:    %8d\n", total)
	result += fmt.Sprintf("Valid Ensembles: %8d (%.1f%%)\n", s.ValidEnsembles, percent(s.ValidEnsembles, total))

	if s.ChecksumErrors > 0 {
		result += fmt.Sprintf("Checksum Errors: %8d (%.1f%%)\n", s.ChecksumErrors, percent(s.ChecksumErrors, total))
	}
	if s.PayloadSizeErrors > 0 {
		result += fmt.Sprintf("Size Errors:     %8d (%.1f%%)\n", s.PayloadSizeErrors, percent(s.PayloadSizeErrors, total))
	}
	if s.DecodeErrors > 0 {
		result += fmt.Sprintf("Decode Errors:   %8d (%.1f%%)\n", s.DecodeErrors, percent(s.DecodeErrors, total))
	}
	if s.AnomalousEnsembles > 0 {
		result += fmt.Sprintf("Anomalous:       %8d (%.1f%%)\n", s.AnomalousEnsembles, percent(s.AnomalousEnsembles, total))
		for _, c := range []struct {
			label string
			n     uint64
		}{
			{"Status:          ", s.StatusErrors},
			{"Voltage:         ", s.VoltageErrors},
			{"Tilt (>30 deg):  ", s.TiltErrors},
			{"0 dB Amplitude:  ", s.AmplitudeErrors},
			{"100% Correlation:", s.CorrelationErrors},
			{"Shape Mismatch:  ", s.ShapeMismatches},
		} {
			if c.n > 0 {
				result += fmt.Sprintf("  %s %5d\n", c.label, c.n)
			}
		}
	}
	if s.MissingEnsembles > 0 {
		result += fmt.Sprintf("Missing:         %8d\n", s.MissingEnsembles)
	}
	if s.TimeJumps > 0 {
		result += fmt.Sprintf("Time Jumps:      %8d\n", s.TimeJumps)
	}
	if s.BytesDiscarded > 0 {
		result += fmt.Sprintf("Bytes Discarded: %8d\n", s.BytesDiscarded)
	}
	if s.BytesRejected > 0 {
		result += fmt.Sprintf("Bytes Rejected:  %8d\n", s.BytesRejected)
	}

	result += fmt.Sprintf("Ensemble Rate:   %8.1f ens/sec\n", s.EnsembleRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = *NewStatistics()
}
