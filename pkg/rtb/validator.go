// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rtb

import (
	"fmt"
	"time"
)

// AnomalyType represents different types of ensemble anomalies
type AnomalyType int

const (
	AnomalyStatus AnomalyType = iota
	AnomalyVoltage
	AnomalyTilt
	AnomalyAmplitude
	AnomalyCorrelation
	AnomalyShapeMismatch
	AnomalyMissingEnsemble
	AnomalyTimeJump
)

func (a AnomalyType) String() string {
	switch a {
	case AnomalyStatus:
		return "status"
	case AnomalyVoltage:
		return "voltage"
	case AnomalyTilt:
		return "tilt"
	case AnomalyAmplitude:
		return "amplitude"
	case AnomalyCorrelation:
		return "correlation"
	case AnomalyShapeMismatch:
		return "shape"
	case AnomalyMissingEnsemble:
		return "missing"
	case AnomalyTimeJump:
		return "time_jump"
	}
	return fmt.Sprintf("anomaly(%d)", int(a))
}

// Thresholds used by ValidateEnsemble
const (
	MinVoltage = 12.0 // volts
	MaxVoltage = 38.0 // volts
	MaxTilt    = 30.0 // degrees

	// A beam is flagged when more than this fraction of its bins are
	// at or below LowAmplitude, or at or above FullCorrelation
	BadBinFraction  = 0.8
	LowAmplitude    = 7.0 // dB
	FullCorrelation = 1.0

	upwardMaxRoll = 20.0
)

// ValidationError represents an ensemble validation failure
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// ValidateEnsemble checks a decoded ensemble for instrument anomalies.
// Returns a slice of validation errors (empty if the ensemble looks healthy)
func ValidateEnsemble(ens *Ensemble) []ValidationError {
	errors := []ValidationError{}
	if ens == nil {
		return errors
	}

	if ens.EnsembleData != nil {
		errors = append(errors, validateStatus(ens.EnsembleData)...)
		errors = append(errors, validateShape(ens)...)
	}
	if ens.SystemSetup != nil {
		errors = append(errors, validateVoltage(ens.SystemSetup)...)
	}
	if ens.AncillaryData != nil {
		errors = append(errors, validateTilt(ens.AncillaryData)...)
	}
	if ens.Amplitude != nil {
		errors = append(errors, validateBeams(AnomalyAmplitude, "0 dB", ens.Amplitude.Amplitude,
			func(v float32) bool { return v <= LowAmplitude })...)
	}
	if ens.Correlation != nil {
		errors = append(errors, validateBeams(AnomalyCorrelation, "100%", ens.Correlation.Correlation,
			func(v float32) bool { return v >= FullCorrelation })...)
	}

	return errors
}

func validateStatus(d *EnsembleData) []ValidationError {
	if d.Status == 0 {
		return nil
	}
	return []ValidationError{{
		Type:    AnomalyStatus,
		Message: fmt.Sprintf("Status 0x%04X: %s", d.Status, FormatStatus(d.Status)),
		Details: map[string]interface{}{"status": d.Status},
	}}
}

func validateVoltage(d *SystemSetup) []ValidationError {
	if d.Voltage >= MinVoltage && d.Voltage <= MaxVoltage {
		return nil
	}
	return []ValidationError{{
		Type:    AnomalyVoltage,
		Message: fmt.Sprintf("Voltage %.2f V out of range (%.0f-%.0f)", d.Voltage, MinVoltage, MaxVoltage),
		Details: map[string]interface{}{"voltage": d.Voltage, "min": MinVoltage, "max": MaxVoltage},
	}}
}

// validateTilt flags pitch or roll beyond MaxTilt. A downward looking
// instrument reads roll near +/-180 degrees, so roll is measured from there.
func validateTilt(d *AncillaryData) []ValidationError {
	errors := []ValidationError{}

	var rollBad bool
	if d.IsUpwardFacing(0, upwardMaxRoll) {
		rollBad = d.Roll > MaxTilt || d.Roll < -MaxTilt
	} else {
		rollBad = d.Roll < 180-MaxTilt && d.Roll > -180+MaxTilt
	}
	if rollBad {
		errors = append(errors, ValidationError{
			Type:    AnomalyTilt,
			Message: fmt.Sprintf("Roll %.2f exceeds %.0f degrees", d.Roll, MaxTilt),
			Details: map[string]interface{}{"roll": d.Roll, "max": MaxTilt},
		})
	}

	if d.Pitch > MaxTilt || d.Pitch < -MaxTilt {
		errors = append(errors, ValidationError{
			Type:    AnomalyTilt,
			Message: fmt.Sprintf("Pitch %.2f exceeds %.0f degrees", d.Pitch, MaxTilt),
			Details: map[string]interface{}{"pitch": d.Pitch, "max": MaxTilt},
		})
	}

	return errors
}

// validateBeams flags each beam where most bins satisfy bad
func validateBeams(kind AnomalyType, label string, grid [][]float32, bad func(float32) bool) []ValidationError {
	bins, beams := gridShape(grid)
	if bins == 0 {
		return nil
	}
	limit := int(float64(bins) * BadBinFraction)

	errors := []ValidationError{}
	for beam := 0; beam < beams; beam++ {
		count := 0
		for bin := 0; bin < bins; bin++ {
			if beam < len(grid[bin]) && bad(grid[bin][beam]) {
				count++
			}
		}
		if count > limit {
			errors = append(errors, ValidationError{
				Type:    kind,
				Message: fmt.Sprintf("Beam %d: %d of %d bins at %s", beam, count, bins, label),
				Details: map[string]interface{}{"beam": beam, "count": count, "bins": bins},
			})
		}
	}
	return errors
}

// validateShape compares the grid dimensions against EnsembleData
func validateShape(ens *Ensemble) []ValidationError {
	errors := []ValidationError{}
	wantBins, wantBeams := int(ens.EnsembleData.NumBins), int(ens.EnsembleData.NumBeams)

	for _, id := range []DatasetID{BeamVelocityID, InstrumentVelocityID, EarthVelocityID, AmplitudeID, CorrelationID, GoodBeamID, GoodEarthID} {
		ds := ens.Dataset(id)
		if ds == nil {
			continue
		}
		h := ds.Header()
		bins, beams := int(h.NumElements), int(h.ElementMultiplier)
		if bins != wantBins || beams != wantBeams {
			errors = append(errors, ValidationError{
				Type: AnomalyShapeMismatch,
				Message: fmt.Sprintf("%s is %dx%d, ensemble declares %dx%d",
					id, bins, beams, wantBins, wantBeams),
				Details: map[string]interface{}{
					"dataset": id.Name(), "bins": bins, "beams": beams,
					"expected_bins": wantBins, "expected_beams": wantBeams,
				},
			})
		}
	}
	return errors
}

// SequenceChecker detects gaps between consecutive ensembles
type SequenceChecker struct {
	prevNumber int32
	prevTime   time.Time
	prevDelta  time.Duration
	haveNumber bool
	haveDelta  bool
}

// Check compares ens against the previous ensemble and records it.
//
// A missing ensemble is reported when the number does not follow the
// previous one. A time jump is reported when the interval between ensembles
// changes. Vertical beam ensembles interleave with the profile pings, so
// they are left out of the interval check.
func (c *SequenceChecker) Check(ens *Ensemble) []ValidationError {
	errors := []ValidationError{}
	if ens == nil || ens.EnsembleData == nil {
		return errors
	}
	d := ens.EnsembleData

	if c.haveNumber && c.prevNumber != 0 && d.EnsembleNumber != c.prevNumber+1 {
		missing := int64(d.EnsembleNumber) - int64(c.prevNumber) - 1
		errors = append(errors, ValidationError{
			Type:    AnomalyMissingEnsemble,
			Message: fmt.Sprintf("Ensemble %d follows %d", d.EnsembleNumber, c.prevNumber),
			Details: map[string]interface{}{
				"previous": c.prevNumber, "current": d.EnsembleNumber, "missing": missing,
			},
		})
	}
	c.prevNumber = d.EnsembleNumber
	c.haveNumber = true

	if d.IsVerticalBeam() {
		return errors
	}

	t := d.Time()
	if !c.prevTime.IsZero() {
		delta := t.Sub(c.prevTime)
		if c.haveDelta && delta != c.prevDelta {
			errors = append(errors, ValidationError{
				Type:    AnomalyTimeJump,
				Message: fmt.Sprintf("Ensemble interval changed from %s to %s", c.prevDelta, delta),
				Details: map[string]interface{}{"previous": c.prevDelta, "current": delta},
			})
		}
		c.prevDelta = delta
		c.haveDelta = true
	}
	c.prevTime = t

	return errors
}

// Reset forgets the previous ensemble
func (c *SequenceChecker) Reset() {
	*c = SequenceChecker{}
}
