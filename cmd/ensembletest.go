// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Thermoquad/adcpstat/pkg/rtb"
	"github.com/spf13/cobra"
)

var (
	ensembleTestTimeout int
)

var ensembleTestCmd = &cobra.Command{
	Use:   "ensemble_test",
	Short: "Test connection by waiting for a valid RTB ensemble",
	Long: `Wait for a valid RTB ensemble on the connection until timeout.

This command connects to a source and waits for any complete ensemble that
passes its checksum and decodes. Noise and damaged frames are skipped.

Exit codes:
  0 - Ensemble received before timeout
  1 - Timeout reached without receiving a valid ensemble
  2 - Connection error

Useful for testing connectivity to an instrument or a network bridge.`,
	RunE: runEnsembleTest,
}

func init() {
	rootCmd.AddCommand(ensembleTestCmd)
	ensembleTestCmd.Flags().IntVar(&ensembleTestTimeout, "timeout", 10, "Timeout in seconds to wait for an ensemble")
}

func runEnsembleTest(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Adcpstat - Ensemble Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n", ensembleTestTimeout)
	fmt.Printf("Waiting for valid RTB ensemble...\n\n")

	codec, err := newCodec()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Setup error: %v\n", err)
		os.Exit(2)
	}
	defer codec.Close()

	ensChan := make(chan *rtb.Ensemble, 1)
	codec.Subscribe(func(ens *rtb.Ensemble) {
		select {
		case ensChan <- ens:
		default:
		}
	})

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- pump(ctx, conn, codec)
	}()

	select {
	case ens := <-ensChan:
		if n := codec.Discarded(); n > 0 {
			fmt.Printf("(skipped %d invalid bytes before sync)\n", n)
		}
		fmt.Printf("SUCCESS: Received valid ensemble\n")
		fmt.Printf("  Number: %d\n", ens.Number)
		fmt.Printf("  Datasets: %d\n", len(ens.Datasets()))
		if ens.EnsembleData != nil {
			fmt.Printf("  Time: %s\n", ens.EnsembleData.DateTimeString())
			fmt.Printf("  Serial: %s\n", ens.EnsembleData.SerialNumber)
			fmt.Printf("  Bins: %d  Beams: %d\n", ens.EnsembleData.NumBins, ens.EnsembleData.NumBeams)
		}
		os.Exit(0)

	case err := <-errChan:
		if err != nil {
			fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
			os.Exit(2)
		}
		// The source ended; decode whatever is still queued
		codec.Flush()
		select {
		case ens := <-ensChan:
			fmt.Printf("SUCCESS: Received valid ensemble %d\n", ens.Number)
			os.Exit(0)
		default:
		}
		fmt.Fprintf(os.Stderr, "FAILED: Source ended without a valid ensemble\n")
		os.Exit(1)

	case <-time.After(time.Duration(ensembleTestTimeout) * time.Second):
		fmt.Fprintf(os.Stderr, "TIMEOUT: No valid ensemble received within %d seconds\n", ensembleTestTimeout)
		os.Exit(1)
	}

	return nil
}
