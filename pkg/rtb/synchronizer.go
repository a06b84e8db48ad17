// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rtb

import (
	"bytes"
	"errors"
)

// Synchronizer finds verified frames in an unbounded byte stream.
//
// Bytes ahead of a delimiter are noise and are discarded. A delimiter can also
// occur inside payload data; such a candidate fails the size or checksum
// check and the scan resumes one byte past its start. A candidate that is
// still arriving is kept until its declared length is buffered.
//
// A Synchronizer is not safe for concurrent use.
type Synchronizer struct {
	buf   []byte
	start int // first retained byte; buf is compacted on Write
	scan  int // delimiter search resumes here, relative to start
	span  int // retained bytes still belonging to a rejected candidate

	discarded     uint64
	rejected      uint64
	rejectedBytes uint64
}

// NewSynchronizer creates an empty synchronizer
func NewSynchronizer() *Synchronizer {
	return &Synchronizer{}
}

// Write appends stream bytes. It never fails.
func (s *Synchronizer) Write(p []byte) (int, error) {
	if s.start > 0 {
		n := copy(s.buf, s.buf[s.start:])
		s.buf = s.buf[:n]
		s.start = 0
	}
	s.buf = append(s.buf, p...)
	return len(p), nil
}

// Next returns the next verified frame.
//
// It returns (nil, nil) when more bytes are needed. A non-nil error reports a
// rejected candidate; the synchronizer has already moved past it and Next can
// be called again.
func (s *Synchronizer) Next() ([]byte, error) {
	live := s.buf[s.start:]
	i := bytes.Index(live[s.scan:], delimiter)
	if i < 0 {
		// The tail may hold the start of a delimiter
		if keep := DelimiterSize - 1; len(live) > keep {
			s.discard(len(live) - keep)
		}
		s.scan = 0
		return nil, nil
	}

	s.discard(s.scan + i)
	s.scan = 0
	live = s.buf[s.start:]

	if len(live) < HeaderSize {
		return nil, nil
	}

	h, err := ParseFrameHeader(live)
	if err != nil {
		return nil, s.reject(err, HeaderSize)
	}
	if !h.PayloadSizeValid() {
		return nil, s.reject(ErrPayloadSize, HeaderSize)
	}
	// Rules out candidates shifted by a stray delimiter byte
	if !h.EnsembleNumberValid() {
		return nil, s.reject(ErrMalformedHeader, HeaderSize)
	}
	if len(live) < h.FrameLength() {
		return nil, nil
	}

	frame := live[:h.FrameLength()]
	if err := VerifyFrame(frame); err != nil {
		return nil, s.reject(err, len(frame))
	}

	out := bytes.Clone(frame)
	s.span = 0
	s.consume(len(frame))
	return out, nil
}

// Feed writes p and returns every frame that became complete.
// Rejected candidates are counted, see Rejected.
func (s *Synchronizer) Feed(p []byte) [][]byte {
	s.Write(p)

	var frames [][]byte
	for {
		frame, err := s.Next()
		if err != nil {
			continue
		}
		if frame == nil {
			return frames
		}
		frames = append(frames, frame)
	}
}

// Buffered returns the number of bytes retained
func (s *Synchronizer) Buffered() int {
	return len(s.buf) - s.start
}

// Discarded returns the number of noise bytes dropped between frames so far.
// Bytes of rejected candidates are counted by RejectedBytes instead.
func (s *Synchronizer) Discarded() uint64 {
	return s.discarded
}

// Rejected returns the number of candidates that failed validation
func (s *Synchronizer) Rejected() uint64 {
	return s.rejected
}

// RejectedBytes returns the number of bytes dropped with rejected candidates:
// the whole frame after a checksum failure, the header otherwise
func (s *Synchronizer) RejectedBytes() uint64 {
	return s.rejectedBytes
}

// Reset drops all buffered bytes
func (s *Synchronizer) Reset() {
	s.buf = s.buf[:0]
	s.start = 0
	s.scan = 0
	s.span = 0
}

// reject skips the delimiter at the start of the buffer. The next span bytes
// are accounted to the rejected candidate as they are dropped.
func (s *Synchronizer) reject(err error, span int) error {
	s.rejected++
	s.scan = 1
	s.span = span
	if errors.Is(err, ErrIncompleteFrame) {
		// Cannot happen for a buffered header; treat as malformed
		return ErrMalformedHeader
	}
	return err
}

func (s *Synchronizer) discard(n int) {
	if n <= 0 {
		return
	}
	r := min(n, s.span)
	s.span -= r
	s.rejectedBytes += uint64(r)
	s.discarded += uint64(n - r)
	s.consume(n)
}

func (s *Synchronizer) consume(n int) {
	s.start += n
	if s.start == len(s.buf) {
		s.buf = s.buf[:0]
		s.start = 0
	}
}
