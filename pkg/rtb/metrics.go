// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rtb

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for a Codec.
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	bytesReceived   prometheus.Counter
	ensembles       prometheus.Counter
	checksumErrors  prometheus.Counter
	sizeErrors      prometheus.Counter
	decodeErrors    prometheus.Counter
	bytesDiscarded  prometheus.Counter
	bytesRejected   prometheus.Counter
	bufferFull      prometheus.Counter
	pendingBytes    prometheus.Gauge
	decodeLatency   prometheus.Histogram
	subscriberPanic prometheus.Counter
}

// NewMetrics creates and registers codec metrics under namespace
func NewMetrics(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	if reg == nil {
		return nil, nil // Metrics disabled
	}

	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rtb",
			Name:      name,
			Help:      help,
		})
	}

	m := &Metrics{
		bytesReceived:   counter("bytes_received_total", "Total number of stream bytes added to the codec"),
		ensembles:       counter("ensembles_total", "Total number of ensembles decoded"),
		checksumErrors:  counter("checksum_errors_total", "Total number of frames with a bad checksum"),
		sizeErrors:      counter("payload_size_errors_total", "Total number of frames with an invalid payload size"),
		decodeErrors:    counter("decode_errors_total", "Total number of frames whose datasets could not be decoded"),
		bytesDiscarded:  counter("bytes_discarded_total", "Total number of noise bytes skipped between frames"),
		bytesRejected:   counter("bytes_rejected_total", "Total number of bytes dropped with rejected frames"),
		bufferFull:      counter("buffer_full_total", "Total number of chunks refused because the buffer was full"),
		subscriberPanic: counter("subscriber_panics_total", "Total number of recovered subscriber panics"),

		pendingBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "rtb",
			Name:      "pending_bytes",
			Help:      "Bytes buffered awaiting a complete frame",
		}),

		decodeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rtb",
			Name:      "decode_duration_seconds",
			Help:      "Ensemble decode duration in seconds",
			Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		}),
	}

	for _, c := range []prometheus.Collector{
		m.bytesReceived, m.ensembles, m.checksumErrors, m.sizeErrors, m.decodeErrors,
		m.bytesDiscarded, m.bytesRejected, m.bufferFull, m.subscriberPanic, m.pendingBytes, m.decodeLatency,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) recordBytes(n int) {
	if m == nil {
		return
	}
	m.bytesReceived.Add(float64(n))
}

func (m *Metrics) recordEnsemble(d time.Duration) {
	if m == nil {
		return
	}
	m.ensembles.Inc()
	m.decodeLatency.Observe(d.Seconds())
}

func (m *Metrics) recordChecksumError() {
	if m == nil {
		return
	}
	m.checksumErrors.Inc()
}

func (m *Metrics) recordSizeError() {
	if m == nil {
		return
	}
	m.sizeErrors.Inc()
}

func (m *Metrics) recordDecodeError() {
	if m == nil {
		return
	}
	m.decodeErrors.Inc()
}

func (m *Metrics) recordDiscarded(n uint64) {
	if m == nil || n == 0 {
		return
	}
	m.bytesDiscarded.Add(float64(n))
}

func (m *Metrics) recordRejected(n uint64) {
	if m == nil || n == 0 {
		return
	}
	m.bytesRejected.Add(float64(n))
}

func (m *Metrics) recordBufferFull() {
	if m == nil {
		return
	}
	m.bufferFull.Inc()
}

func (m *Metrics) recordPanic() {
	if m == nil {
		return
	}
	m.subscriberPanic.Inc()
}

func (m *Metrics) setPending(n int) {
	if m == nil {
		return
	}
	m.pendingBytes.Set(float64(n))
}
