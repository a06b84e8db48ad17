// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/Thermoquad/adcpstat/pkg/rtb"
	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Decode ensembles and write them as JSON lines or CBOR",
	Long: `Decode every ensemble from the source and write it to a file or stdout.

Formats:
  json - one JSON object per line
  cbor - a CBOR sequence, one deterministic item per ensemble

Frames that fail their checksum or cannot be decoded are logged and skipped.
A CBOR export can be summarized again with "check --cbor".`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "Output format (json or cbor)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "-", "Output file (- for stdout)")
}

func runExport(cmd *cobra.Command, args []string) error {
	var newExporter func(io.Writer) *rtb.Exporter
	switch exportFormat {
	case "json":
		newExporter = rtb.NewJSONExporter
	case "cbor":
		newExporter = rtb.NewCBORExporter
	default:
		return fmt.Errorf("unsupported format %q (use json or cbor)", exportFormat)
	}

	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	var out io.Writer = os.Stdout
	if exportOutput != "-" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer f.Close()
		out = f
	}
	w := bufio.NewWriter(out)
	exp := newExporter(w)

	log.Printf("Exporting %s as %s", connInfo, exportFormat)

	var exported, rejected int
	var exportErr error
	codec, err := newCodec(rtb.WithErrorHandler(func(err error) {
		rejected++
		log.Printf("Skipping frame: %v", err)
	}))
	if err != nil {
		return err
	}
	codec.Subscribe(func(ens *rtb.Ensemble) {
		if exportErr != nil {
			return
		}
		if err := exp.Export(ens); err != nil {
			exportErr = fmt.Errorf("ensemble %d: %w", ens.Number, err)
			return
		}
		exported++
	})

	err = pump(cmd.Context(), conn, codec)
	drain(cmd.Context(), codec)
	if err != nil {
		return err
	}
	if exportErr != nil {
		return exportErr
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	log.Printf("Exported %d ensembles, skipped %d frames", exported, rejected)
	return nil
}
