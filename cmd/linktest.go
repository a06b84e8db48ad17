// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	linkTestDuration int
	linkTestRecord   string
	linkTestHex      bool
)

var linkTestCmd = &cobra.Command{
	Use:   "link_test",
	Short: "Test raw connection stability without decoding",
	Long: `Connect to a source and log the raw bytes received, without decoding them.

Useful for debugging connection stability issues, and with --record for
capturing a stream to a file that can be replayed later with --file.

Exit codes:
  0 - Test completed normally
  1 - Test failed
  2 - Connection error`,
	RunE: runLinkTest,
}

func init() {
	rootCmd.AddCommand(linkTestCmd)
	linkTestCmd.Flags().IntVar(&linkTestDuration, "duration", 30, "Test duration in seconds")
	linkTestCmd.Flags().StringVar(&linkTestRecord, "record", "", "Append received bytes to this capture file")
	linkTestCmd.Flags().BoolVar(&linkTestHex, "hex", false, "Print received bytes as hex")
}

func runLinkTest(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	var record io.Writer = io.Discard
	if linkTestRecord != "" {
		f, err := os.OpenFile(linkTestRecord, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Record error: %v\n", err)
			os.Exit(2)
		}
		defer f.Close()
		record = f
	}

	fmt.Printf("Connection Stability Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Duration: %d seconds\n", linkTestDuration)
	if linkTestRecord != "" {
		fmt.Printf("Recording: %s\n", linkTestRecord)
	}
	fmt.Println()

	// Start a goroutine to read from the connection
	readChan := make(chan []byte, 100)
	errChan := make(chan error, 1)

	go func() {
		defer close(readChan)
		buf := make([]byte, readBufferSize)
		for {
			n, err := conn.Read(buf)
			if n > 0 {
				data := make([]byte, n)
				copy(data, buf[:n])
				readChan <- data
			}
			if err != nil {
				errChan <- err
				return
			}
		}
	}()

	start := time.Now()
	endTime := start.Add(time.Duration(linkTestDuration) * time.Second)
	bytesReceived := 0
	chunksReceived := 0

	results := func(result string) {
		fmt.Printf("\n--- Test Results ---\n")
		fmt.Printf("Duration: %s\n", formatDuration(time.Since(start)))
		fmt.Printf("Chunks received: %d\n", chunksReceived)
		fmt.Printf("Bytes received: %d\n", bytesReceived)
		fmt.Printf("Result: %s\n", result)
	}

	fmt.Printf("Listening for data...\n\n")

	heartbeat := time.NewTicker(time.Second)
	defer heartbeat.Stop()

	for time.Now().Before(endTime) {
		select {
		case data, ok := <-readChan:
			if !ok {
				err := <-errChan
				if isEndOfStream(err) {
					fmt.Printf("\n[%s] Source ended\n", time.Now().Format("15:04:05.000"))
					results("PASSED (source ended)")
					return nil
				}
				fmt.Printf("\n[%s] Connection error: %v\n",
					time.Now().Format("15:04:05.000"), err)
				results("FAILED (connection error)")
				os.Exit(1)
			}
			bytesReceived += len(data)
			chunksReceived++
			if _, err := record.Write(data); err != nil {
				fmt.Fprintf(os.Stderr, "Record error: %v\n", err)
				os.Exit(1)
			}
			if linkTestHex {
				fmt.Printf("[%s] Received %d bytes: %x\n",
					time.Now().Format("15:04:05.000"), len(data), data)
			}

		case <-cmd.Context().Done():
			results("INTERRUPTED")
			return nil

		case <-heartbeat.C:
			// Just a heartbeat to show the test is running
			remaining := time.Until(endTime).Seconds()
			fmt.Printf("[%s] Still connected... %d bytes (%.0fs remaining)\n",
				time.Now().Format("15:04:05.000"), bytesReceived, remaining)
		}
	}

	results("PASSED (connection stable)")
	return nil
}
