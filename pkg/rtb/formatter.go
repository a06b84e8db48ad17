// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rtb

import (
	"fmt"
	"strings"
)

// FormatEnsemble formats an ensemble into a human-readable string
func FormatEnsemble(ens *Ensemble) string {
	if ens == nil {
		return "<nil ensemble>\n"
	}

	var names []string
	for _, ds := range ens.Datasets() {
		names = append(names, ds.ID().String())
	}
	result := fmt.Sprintf("Ensemble %d [%s]\n", ens.Number, strings.Join(names, ", "))

	if d := ens.EnsembleData; d != nil {
		result += fmt.Sprintf("  Time: %s  Serial: %s  Firmware: %s\n",
			d.DateTimeString(), d.SerialNumber, d.FirmwareString())
		result += fmt.Sprintf("  Bins: %d  Beams: %d  Pings: %d/%d  Status: %s\n",
			d.NumBins, d.NumBeams, d.ActualPingCount, d.DesiredPingCount, d.StatusString())
	}

	if a := ens.AncillaryData; a != nil {
		result += fmt.Sprintf("  Heading: %.2f  Pitch: %.2f  Roll: %.2f  Water: %.2f C  Depth: %.2f m\n",
			a.Heading, a.Pitch, a.Roll, a.WaterTemp, a.TransducerDepth)
	}

	if s := ens.SystemSetup; s != nil {
		result += fmt.Sprintf("  Voltage: %.2f V\n", s.Voltage)
	}

	if bt := ens.BottomTrack; bt != nil {
		result += fmt.Sprintf("  Bottom: range %.2f m  speed %s  direction %s  status %s\n",
			bt.AverageRange(), formatValue(bt.VesselSpeed(), "m/s"),
			formatValue(bt.VesselDirection(), "deg"), bt.StatusString())
	}

	if rt := ens.RangeTracking; rt != nil {
		result += fmt.Sprintf("  Range Tracking: %.2f m\n", rt.AverageRange())
	}

	if ev := ens.EarthVelocity; ev != nil && len(ev.Velocities) > 0 {
		result += "  Earth Velocity:\n"
		mags, dirs := ev.Magnitudes(), ev.Directions()
		blank, size := float32(0), float32(0)
		if a := ens.AncillaryData; a != nil {
			blank, size = a.FirstBinRange, a.BinSize
		}
		for bin := range ev.Velocities {
			result += fmt.Sprintf("    %3d %7.2f m  %s  %s\n", bin, BinDepth(blank, size, bin),
				formatValue(mags[bin], "m/s"), formatValue(dirs[bin], "deg"))
		}
	}

	if n := ens.NmeaData; n != nil {
		for _, s := range n.Sentences() {
			result += fmt.Sprintf("  NMEA: %s\n", s)
		}
	}

	return result
}

// formatValue prints "-" for bad values
func formatValue(v float64, unit string) string {
	if IsBadVelocity(float32(v)) {
		return "      -"
	}
	return fmt.Sprintf("%7.2f %s", v, unit)
}
