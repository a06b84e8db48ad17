// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Adcpstat - RTB ADCP Ensemble Stream Analyzer
//
// A CLI tool for decoding, validating and exporting RTB binary ensemble
// streams from acoustic Doppler current profilers.

package main

import (
	"os"

	"github.com/Thermoquad/adcpstat/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
