// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/Thermoquad/adcpstat/pkg/rtb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

const readBufferSize = 64 * 1024

var (
	// metricsRegisterer is nil unless --metrics-addr is set. A nil
	// registerer disables codec metrics.
	metricsRegisterer prometheus.Registerer
	metricsServer     *http.Server
)

// newCodec creates a codec wired to the default logger and, when enabled,
// the metrics registry
func newCodec(opts ...rtb.Option) (*rtb.Codec, error) {
	metrics, err := rtb.NewMetrics(metricsRegisterer, "adcpstat")
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	opts = append([]rtb.Option{
		rtb.WithLogger(slog.Default()),
		rtb.WithMetrics(metrics),
	}, opts...)
	return rtb.NewCodec(opts...), nil
}

// pump reads conn into codec until the source ends, a read fails or ctx is
// cancelled. The connection is closed on return.
func pump(ctx context.Context, conn Connection, codec *rtb.Codec) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		buf := make([]byte, readBufferSize)
		for {
			n, err := conn.Read(buf)
			if n > 0 {
				if addErr := addChunk(ctx, codec, buf[:n]); addErr != nil {
					return addErr
				}
			}
			if err != nil {
				if ctx.Err() != nil || isEndOfStream(err) {
					return nil
				}
				return fmt.Errorf("read error: %w", err)
			}
		}
	})

	// Closing the connection unblocks the reader on cancellation
	g.Go(func() error {
		<-ctx.Done()
		conn.Close()
		return nil
	})

	return g.Wait()
}

// drain decodes what the source already delivered, unless ctx was
// cancelled, and stops the codec
func drain(ctx context.Context, codec *rtb.Codec) {
	if ctx.Err() == nil {
		_ = codec.Flush()
	}
	codec.Close()
}

// addChunk hands p to the codec, waiting while its buffer is full
func addChunk(ctx context.Context, codec *rtb.Codec, p []byte) error {
	for {
		err := codec.Add(p)
		if !errors.Is(err, rtb.ErrBufferFull) {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Millisecond):
		}
	}
}

// startMetricsServer serves Prometheus metrics and a health endpoint on addr
func startMetricsServer(addr string) error {
	reg := prometheus.NewRegistry()
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return fmt.Errorf("failed to register go collector: %w", err)
	}
	metricsRegisterer = reg

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	metricsServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Metrics server error: %v", err)
		}
	}()
	return nil
}

func stopMetricsServer() {
	if metricsServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(ctx)
	metricsServer = nil
}
