// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/Thermoquad/adcpstat/pkg/rtb"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var (
	showAll       bool
	statsInterval int
	useTUI        bool
)

var errorDetectionCmd = &cobra.Command{
	Use:   "error_detection",
	Short: "Detect and analyze damaged frames and anomalous ensembles",
	Long: `Track frame errors, decode failures and anomalous ensembles with statistics.

This command validates each ensemble and detects:
  - Checksum failures, invalid payload sizes and undecodable datasets
  - Instrument status errors
  - Supply voltage outside 12-38 V and pitch or roll beyond 30 degrees
  - Beams with low amplitude or full correlation in most bins
  - Grid datasets whose shape disagrees with the ensemble
  - Missing ensemble numbers and changes in the ping interval
  - Statistics and trends (ensemble rate, error rate, success rate)

By default, only errors are displayed. Use --show-all to display valid ensembles too.

Ensembles are validated in real-time, with errors highlighted immediately and
periodic statistics summaries displayed at configurable intervals.`,
	RunE: runErrorDetection,
}

func init() {
	rootCmd.AddCommand(errorDetectionCmd)
	errorDetectionCmd.Flags().BoolVar(&showAll, "show-all", false, "Show all ensembles (not just errors)")
	errorDetectionCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
	errorDetectionCmd.Flags().BoolVar(&useTUI, "tui", true, "Use terminal UI (false for text mode)")
}

// frameEvent is the outcome of one frame: a decoded ensemble with its
// anomalies, or the error that rejected it
type frameEvent struct {
	ens              *rtb.Ensemble
	err              error
	validationErrors []rtb.ValidationError
}

// newAnalyzer creates a codec that validates every ensemble and hands each
// frame's outcome to send. send runs on the decode goroutine.
func newAnalyzer(send func(frameEvent)) (*rtb.Codec, error) {
	var seq rtb.SequenceChecker

	codec, err := newCodec(rtb.WithErrorHandler(func(err error) {
		send(frameEvent{err: err})
	}))
	if err != nil {
		return nil, err
	}

	codec.Subscribe(func(ens *rtb.Ensemble) {
		errs := rtb.ValidateEnsemble(ens)
		errs = append(errs, seq.Check(ens)...)
		send(frameEvent{ens: ens, validationErrors: errs})
	})
	return codec, nil
}

func runErrorDetection(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	if useTUI {
		return runTUIMode(cmd.Context(), conn, connInfo)
	}
	return runTextMode(cmd.Context(), conn, connInfo)
}

// printDecodeError prints a rejected frame in highlighted format
func printDecodeError(err error) {
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Printf("[%s] \033[1;31mFRAME ERROR:\033[0m %v\n", timestamp, err)
	fmt.Printf("  >>> FRAME REJECTED <<<\n\n")
}

// printValidationErrors prints the anomalies found in an ensemble
func printValidationErrors(ens *rtb.Ensemble, errors []rtb.ValidationError) {
	timestamp := time.Now().Format("15:04:05.000")

	fmt.Printf("[%s] \033[1;33mVALIDATION ERROR:\033[0m Ensemble %d\n", timestamp, ens.Number)
	fmt.Printf("  CRC: \033[1;32mOK\033[0m\n")

	for i, err := range errors {
		switch err.Type {
		case rtb.AnomalyStatus, rtb.AnomalyShapeMismatch:
			fmt.Printf("  Issue %d: \033[1;31m%s\033[0m\n", i+1, err.Message)

		case rtb.AnomalyMissingEnsemble:
			fmt.Printf("  Issue %d: \033[1;31m%s\033[0m\n", i+1, err.Message)
			if missing, ok := err.Details["missing"].(int64); ok {
				fmt.Printf("    %d ensemble(s) missing\n", missing)
			}

		case rtb.AnomalyVoltage:
			fmt.Printf("  Issue %d: \033[1;33m%s\033[0m\n", i+1, err.Message)

		case rtb.AnomalyAmplitude, rtb.AnomalyCorrelation:
			fmt.Printf("  Issue %d: \033[1;33m%s\033[0m\n", i+1, err.Message)
			if count, ok := err.Details["count"].(int); ok {
				if bins, ok := err.Details["bins"].(int); ok {
					fmt.Printf("    bad bins=%d of %d (limit %d)\n", count, bins, int(float64(bins)*rtb.BadBinFraction))
				}
			}

		default:
			fmt.Printf("  Issue %d: \033[1;33m%s\033[0m\n", i+1, err.Message)
		}
	}

	// Print ensemble header for context
	if d := ens.EnsembleData; d != nil {
		fmt.Printf("  Time: %s, Bins: %d, Beams: %d, Status: 0x%04X\n",
			d.DateTimeString(), d.NumBins, d.NumBeams, d.Status)
	}

	fmt.Printf("  >>> ENSEMBLE FLAGGED <<<\n\n")
}

// runTUIMode runs error detection in TUI mode
func runTUIMode(ctx context.Context, conn Connection, connInfo string) error {
	m := initialModel(connInfo, statsInterval, showAll)
	p := tea.NewProgram(m, tea.WithContext(ctx))

	codec, err := newAnalyzer(func(ev frameEvent) {
		p.Send(frameMsg(ev))
	})
	if err != nil {
		return err
	}

	go func() {
		if err := pump(ctx, conn, codec); err != nil {
			p.Send(sourceMsg{err: err})
			return
		}
		p.Send(sourceMsg{})
	}()

	_, err = p.Run()
	// Unblock the reader before draining the codec
	conn.Close()
	codec.Close()
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// runTextMode runs error detection in text mode
func runTextMode(ctx context.Context, conn Connection, connInfo string) error {
	fmt.Printf("Adcpstat - Error Detection Mode\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Statistics interval: %d seconds\n", statsInterval)
	if showAll {
		fmt.Printf("Mode: All ensembles\n")
	} else {
		fmt.Printf("Mode: Errors only\n")
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	stats := rtb.NewStatistics()
	events := make(chan frameEvent, 64)

	codec, err := newAnalyzer(func(ev frameEvent) {
		events <- ev
	})
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		err := pump(ctx, conn, codec)
		// Every event is sent before the channel closes
		drain(ctx, codec)
		close(events)
		done <- err
	}()

	synchronized := false

	statsTicker := time.NewTicker(time.Duration(statsInterval) * time.Second)
	defer statsTicker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				stats.BytesDiscarded = codec.Discarded()
				stats.BytesRejected = codec.RejectedBytes()
				stats.CalculateRates()
				fmt.Println()
				fmt.Print(stats.String())
				return <-done
			}

			if ev.err != nil {
				stats.Update(nil, ev.err, nil)
				printDecodeError(ev.err)
				continue
			}

			if !synchronized {
				synchronized = true
				if n := codec.Discarded(); n > 0 {
					fmt.Printf("[SYNC] Synchronized after skipping %d invalid bytes\n\n", n)
				} else {
					fmt.Printf("[SYNC] Synchronized\n\n")
				}
			}

			stats.Update(ev.ens, nil, ev.validationErrors)
			if len(ev.validationErrors) > 0 {
				printValidationErrors(ev.ens, ev.validationErrors)
			} else if showAll {
				fmt.Print(rtb.FormatEnsemble(ev.ens))
				fmt.Println()
			}

		case <-statsTicker.C:
			stats.BytesDiscarded = codec.Discarded()
			stats.BytesRejected = codec.RejectedBytes()
			stats.CalculateRates()
			fmt.Println()
			fmt.Print(stats.String())
			fmt.Println()
		}
	}
}
