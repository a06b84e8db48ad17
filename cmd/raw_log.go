// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/Thermoquad/adcpstat/pkg/rtb"
	"github.com/spf13/cobra"
)

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display decoded ensembles in human-readable format",
	Long: `Continuously decode and display RTB ensembles as they arrive.

Each ensemble is printed with its number, timestamp, instrument details and
the datasets it carries. Frames that fail their checksum or cannot be decoded
are reported and skipped.

Supports serial, WebSocket, UDP and capture file sources.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
}

func runRawLog(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("Adcpstat - Raw Ensemble Log\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	codec, err := newCodec(rtb.WithErrorHandler(func(err error) {
		fmt.Printf("[ERROR] %v\n", err)
	}))
	if err != nil {
		return err
	}
	codec.Subscribe(func(ens *rtb.Ensemble) {
		fmt.Print(rtb.FormatEnsemble(ens))
		fmt.Println()
	})

	err = pump(cmd.Context(), conn, codec)
	drain(cmd.Context(), codec)
	return err
}
