// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// UDP and capture file sources
	udpAddr  string
	filePath string

	// Ambient flags
	configFile  string
	logLevel    string
	metricsAddr string
)

var rootCmd = &cobra.Command{
	Use:   "adcpstat",
	Short: "RTB ADCP Ensemble Stream Analyzer",
	Long: `Adcpstat - A CLI tool for decoding and analyzing RTB binary ensemble streams
from acoustic Doppler current profilers.

Provides commands for raw ensemble logging, error detection, export and capture
file checks to help diagnose communication issues and instrument anomalies.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 115200]
  WebSocket: --url ws://host/path [--username user]
  UDP:       --udp :55056
  File:      --file capture.ens

Flags that are not given on the command line fall back to the YAML file named
by --config.

For WebSocket authentication, the password is read from the ADCPSTAT_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		stopMetricsServer()
	},
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().StringVar(&udpAddr, "udp", "", "Listen for UDP datagrams on this address")
	rootCmd.PersistentFlags().StringVarP(&filePath, "file", "f", "", "Read a recorded capture file")

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML file with default flag values")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Decoder log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
}

// setup applies the config file, configures logging and starts the metrics server
func setup(cmd *cobra.Command, args []string) error {
	if configFile != "" {
		cfg, err := LoadConfig(configFile)
		if err != nil {
			return err
		}
		cfg.Apply(cmd.Flags())
	}

	level, err := parseLogLevel(logLevel)
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if metricsAddr != "" {
		return startMetricsServer(metricsAddr)
	}
	return nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log level %q (use debug, info, warn or error)", s)
}

// Execute runs the root command until it finishes or the process is interrupted
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}
