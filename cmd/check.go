// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/Thermoquad/adcpstat/pkg/rtb"
	"github.com/spf13/cobra"
)

var (
	checkCBOR   bool
	checkStrict bool
)

var checkCmd = &cobra.Command{
	Use:   "check [capture file]",
	Short: "Scan a capture file and summarize its ensembles",
	Long: `Decode and validate every ensemble in a capture file, then print a summary.

The file is an RTB capture by default, or a CBOR sequence written by
"export --format cbor" when --cbor is given. The file may also be named
with --file.

With --strict the command fails when any frame was rejected or any
ensemble was flagged.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().BoolVar(&checkCBOR, "cbor", false, "Read a CBOR sequence instead of RTB")
	checkCmd.Flags().BoolVar(&checkStrict, "strict", false, "Fail if any error or anomaly was found")
}

// checkReport summarizes one capture
type checkReport struct {
	stats       *rtb.Statistics
	first, last *rtb.EnsembleData
	serials     map[string]int
	seq         rtb.SequenceChecker
}

func newCheckReport() *checkReport {
	return &checkReport{
		stats:   rtb.NewStatistics(),
		serials: make(map[string]int),
	}
}

func (r *checkReport) addEnsemble(ens *rtb.Ensemble) {
	errs := rtb.ValidateEnsemble(ens)
	errs = append(errs, r.seq.Check(ens)...)
	r.stats.Update(ens, nil, errs)

	if d := ens.EnsembleData; d != nil {
		if r.first == nil {
			r.first = d
		}
		r.last = d
		r.serials[d.SerialNumber]++
	}
}

func (r *checkReport) addError(err error) {
	r.stats.Update(nil, err, nil)
}

func (r *checkReport) String() string {
	var b strings.Builder
	if r.first != nil {
		b.WriteString(fmt.Sprintf("First Ensemble:   %d (%s)\n", r.first.EnsembleNumber, r.first.DateTimeString()))
		b.WriteString(fmt.Sprintf("Last Ensemble:    %d (%s)\n", r.last.EnsembleNumber, r.last.DateTimeString()))
		b.WriteString(fmt.Sprintf("Time Span:        %s\n", formatDuration(r.last.Time().Sub(r.first.Time()))))

		serials := make([]string, 0, len(r.serials))
		for s := range r.serials {
			serials = append(serials, s)
		}
		sort.Strings(serials)
		for _, s := range serials {
			b.WriteString(fmt.Sprintf("Serial Number:    %s (%d ensembles)\n", s, r.serials[s]))
		}
	} else {
		b.WriteString("No ensembles found\n")
	}
	b.WriteString(r.stats.String())
	return b.String()
}

// checkRTB decodes an RTB stream to the end
func checkRTB(ctx context.Context, conn Connection) (*checkReport, error) {
	report := newCheckReport()
	codec, err := newCodec(rtb.WithErrorHandler(report.addError))
	if err != nil {
		return nil, err
	}
	codec.Subscribe(report.addEnsemble)

	err = pump(ctx, conn, codec)
	drain(ctx, codec)
	report.stats.BytesDiscarded = codec.Discarded()
	report.stats.BytesRejected = codec.RejectedBytes()
	return report, err
}

// checkCBORSequence reads an exported CBOR sequence to the end
func checkCBORSequence(r io.Reader) (*checkReport, error) {
	report := newCheckReport()
	err := rtb.ReadCBORSequence(r, func(ens *rtb.Ensemble) error {
		report.addEnsemble(ens)
		return nil
	})
	return report, err
}

func runCheck(cmd *cobra.Command, args []string) error {
	path := filePath
	if len(args) == 1 {
		path = args[0]
	}
	if path == "" {
		return errors.New("a capture file is required (argument or --file)")
	}

	conn, err := OpenFileConnection(path)
	if err != nil {
		return err
	}
	defer conn.Close()

	var report *checkReport
	if checkCBOR {
		report, err = checkCBORSequence(conn)
	} else {
		report, err = checkRTB(cmd.Context(), conn)
	}
	if err != nil {
		return err
	}

	report.stats.CalculateRates()
	fmt.Printf("Adcpstat - Capture Check\n")
	fmt.Printf("File: %s\n\n", path)
	fmt.Print(report.String())

	if checkStrict && (report.stats.ErrorCount() > 0 || report.stats.MissingEnsembles > 0) {
		fmt.Fprintf(os.Stderr, "FAILED: %d errors, %d missing ensembles\n",
			report.stats.ErrorCount(), report.stats.MissingEnsembles)
		os.Exit(1)
	}
	return nil
}
