// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rtb

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// DefaultMaxBuffered is the default limit on bytes queued and not yet framed
const DefaultMaxBuffered = 16 * MaxPayloadSize

// Option configures a Codec
type Option func(*Codec)

// WithLogger sets the logger for rejected frames and skipped datasets
func WithLogger(logger *slog.Logger) Option {
	return func(c *Codec) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithErrorHandler sets a function called from the decode goroutine for
// every rejected frame. It must not block.
func WithErrorHandler(fn func(error)) Option {
	return func(c *Codec) { c.onError = fn }
}

// WithMetrics records codec activity in m. A nil m records nothing.
func WithMetrics(m *Metrics) Option {
	return func(c *Codec) { c.metrics = m }
}

// WithMaxBuffered bounds the bytes queued and not yet framed.
// Add refuses chunks that would exceed it. Zero or less disables the limit.
func WithMaxBuffered(n int) Option {
	return func(c *Codec) { c.maxBuffered = n }
}

type subscriber struct {
	id uint64
	fn func(*Ensemble)
}

// Codec decodes ensembles from a byte stream on its own goroutine and
// publishes them to subscribers in stream order.
//
// Add may be called from any goroutine. Subscribers are called from the
// decode goroutine, one after the other, and should return quickly.
type Codec struct {
	mu           sync.Mutex
	pending      [][]byte
	pendingBytes int
	closed       bool

	notify    chan struct{}
	flush     chan chan error
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once

	subMu  sync.RWMutex
	subs   []subscriber
	nextID uint64

	frames   *Synchronizer // owned by the decode goroutine
	buffered atomic.Int64  // synchronizer bytes, for BufferSize
	skipped  atomic.Uint64 // noise bytes discarded between frames
	dropped  atomic.Uint64 // bytes of rejected candidates

	logger      *slog.Logger
	onError     func(error)
	metrics     *Metrics
	maxBuffered int
}

// NewCodec creates a codec and starts its decode goroutine.
// Call Close to stop it.
func NewCodec(opts ...Option) *Codec {
	c := &Codec{
		notify:      make(chan struct{}, 1),
		flush:       make(chan chan error),
		done:        make(chan struct{}),
		frames:      NewSynchronizer(),
		logger:      discardLogger,
		maxBuffered: DefaultMaxBuffered,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.wg.Add(1)
	go c.run()
	return c
}

// Add queues a copy of p for decoding and returns without waiting.
func (c *Codec) Add(p []byte) error {
	if len(p) == 0 {
		return nil
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrCodecClosed
	}
	if c.maxBuffered > 0 && c.pendingBytes+int(c.buffered.Load())+len(p) > c.maxBuffered {
		c.mu.Unlock()
		c.metrics.recordBufferFull()
		return ErrBufferFull
	}
	chunk := make([]byte, len(p))
	copy(chunk, p)
	c.pending = append(c.pending, chunk)
	c.pendingBytes += len(chunk)
	c.mu.Unlock()

	c.metrics.recordBytes(len(p))

	select {
	case c.notify <- struct{}{}:
	default:
	}
	return nil
}

// Write implements io.Writer on top of Add
func (c *Codec) Write(p []byte) (int, error) {
	if err := c.Add(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Subscribe registers fn to receive every decoded ensemble.
// Each subscriber gets its own copy. The returned function removes it.
func (c *Codec) Subscribe(fn func(*Ensemble)) (unsubscribe func()) {
	c.subMu.Lock()
	c.nextID++
	id := c.nextID
	c.subs = append(c.subs, subscriber{id: id, fn: fn})
	c.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.subMu.Lock()
			defer c.subMu.Unlock()
			for i, s := range c.subs {
				if s.id == id {
					c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// BufferSize returns the number of bytes queued or awaiting a complete frame
func (c *Codec) BufferSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingBytes + int(c.buffered.Load())
}

// Discarded returns the number of noise bytes skipped between frames so far
func (c *Codec) Discarded() uint64 {
	return c.skipped.Load()
}

// RejectedBytes returns the number of bytes dropped with rejected frames so far
func (c *Codec) RejectedBytes() uint64 {
	return c.dropped.Load()
}

// Flush blocks until every byte added before the call has been framed and
// each complete frame published. It returns ErrCodecClosed if the codec is
// closed first.
func (c *Codec) Flush() error {
	reply := make(chan error, 1)
	select {
	case c.flush <- reply:
	case <-c.done:
		return ErrCodecClosed
	}
	return <-reply
}

// Close stops the decode goroutine and waits for it. Bytes still queued are
// dropped; call Flush first to decode them. A subscriber call in progress
// finishes, and nothing is published after it. Close is safe to call more
// than once.
func (c *Codec) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.done)
	})
	c.wg.Wait()
	return nil
}

func (c *Codec) run() {
	defer c.wg.Done()

	for {
		select {
		case <-c.done:
			return
		case <-c.notify:
			c.process()
		case reply := <-c.flush:
			if c.process() {
				reply <- nil
			} else {
				reply <- ErrCodecClosed
			}
		}
	}
}

// stopping reports whether Close has been called
func (c *Codec) stopping() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// process moves queued chunks into the synchronizer and decodes every
// complete frame. It returns false if Close interrupted it.
func (c *Codec) process() bool {
	if c.stopping() {
		return false
	}

	c.mu.Lock()
	chunks := c.pending
	c.pending = nil
	c.buffered.Add(int64(c.pendingBytes))
	c.pendingBytes = 0
	c.mu.Unlock()

	for _, chunk := range chunks {
		c.frames.Write(chunk)
	}
	c.buffered.Store(int64(c.frames.Buffered()))
	defer func() {
		c.buffered.Store(int64(c.frames.Buffered()))
		c.metrics.setPending(c.frames.Buffered())
	}()

	if c.frames.Buffered() < HeaderSize+ChecksumSize {
		return true
	}

	for {
		if c.stopping() {
			return false
		}

		before, beforeRejected := c.frames.Discarded(), c.frames.RejectedBytes()
		frame, err := c.frames.Next()
		if n := c.frames.Discarded() - before; n > 0 {
			c.skipped.Add(n)
			c.metrics.recordDiscarded(n)
		}
		if n := c.frames.RejectedBytes() - beforeRejected; n > 0 {
			c.dropped.Add(n)
			c.metrics.recordRejected(n)
		}

		if err != nil {
			c.reject(err)
			continue
		}
		if frame == nil {
			return true
		}

		start := time.Now()
		ens, err := c.decode(frame)
		if err != nil {
			c.reject(err)
			continue
		}
		c.metrics.recordEnsemble(time.Since(start))

		c.publish(ens)
	}
}

// decode turns a panic in the dataset decoders into a rejected frame
func (c *Codec) decode(frame []byte) (ens *Ensemble, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("decoder panicked", "panic", r)
			ens, err = nil, fmt.Errorf("%w: decoder panic: %v", ErrMalformedHeader, r)
		}
	}()
	return decodeEnsemble(frame, c.logger)
}

func (c *Codec) reject(err error) {
	switch {
	case errors.Is(err, ErrChecksumMismatch):
		c.metrics.recordChecksumError()
	case errors.Is(err, ErrPayloadSize):
		c.metrics.recordSizeError()
	default:
		c.metrics.recordDecodeError()
	}

	c.logger.Warn("rejected frame", "error", err)
	if c.onError != nil {
		c.onError(err)
	}
}

// publish hands ens to every subscriber, cloning for all but the last
func (c *Codec) publish(ens *Ensemble) {
	c.subMu.RLock()
	subs := make([]subscriber, len(c.subs))
	copy(subs, c.subs)
	c.subMu.RUnlock()

	for i, s := range subs {
		c.deliver(s, ens, i < len(subs)-1)
	}
}

func (c *Codec) deliver(s subscriber, ens *Ensemble, clone bool) {
	defer func() {
		if r := recover(); r != nil {
			c.metrics.recordPanic()
			c.logger.Error("subscriber panicked", "subscriber", s.id, "panic", r)
		}
	}()
	if clone {
		ens = ens.Clone()
	}
	s.fn(ens)
}
