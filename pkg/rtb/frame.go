// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rtb

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// FrameHeader is the fixed header following the delimiter.
//
// Each value is stored twice, the second copy bitwise complemented.
type FrameHeader struct {
	EnsembleNumber           int32
	EnsembleNumberComplement int32
	PayloadSize              int32
	PayloadSizeComplement    int32
}

// ParseFrameHeader reads the header of a frame starting with the delimiter
func ParseFrameHeader(frame []byte) (FrameHeader, error) {
	if len(frame) < HeaderSize {
		return FrameHeader{}, ErrIncompleteFrame
	}
	if !bytes.Equal(frame[:DelimiterSize], delimiter) {
		return FrameHeader{}, fmt.Errorf("%w: missing frame delimiter", ErrMalformedHeader)
	}
	return FrameHeader{
		EnsembleNumber:           getInt32(frame, DelimiterSize),
		EnsembleNumberComplement: getInt32(frame, DelimiterSize+4),
		PayloadSize:              getInt32(frame, DelimiterSize+8),
		PayloadSizeComplement:    getInt32(frame, DelimiterSize+12),
	}, nil
}

// EnsembleNumberValid reports whether the ensemble number matches its complement
func (h FrameHeader) EnsembleNumberValid() bool {
	return h.EnsembleNumber == ^h.EnsembleNumberComplement
}

// PayloadSizeValid reports whether the payload size matches its complement and is in range
func (h FrameHeader) PayloadSizeValid() bool {
	return h.PayloadSize == ^h.PayloadSizeComplement &&
		h.PayloadSize >= 0 && h.PayloadSize <= MaxPayloadSize
}

// FrameLength returns the total frame length in bytes
func (h FrameHeader) FrameLength() int {
	return HeaderSize + int(h.PayloadSize) + ChecksumSize
}

// EncodeFrame wraps a payload in a delimiter, header and checksum
func EncodeFrame(ensembleNumber int32, payload []byte) []byte {
	size := int32(len(payload))
	frame := make([]byte, 0, HeaderSize+len(payload)+ChecksumSize)
	frame = append(frame, delimiter...)
	frame = appendInt32(frame, ensembleNumber)
	frame = appendInt32(frame, ^ensembleNumber)
	frame = appendInt32(frame, size)
	frame = appendInt32(frame, ^size)
	frame = append(frame, payload...)
	return binary.LittleEndian.AppendUint32(frame, uint32(CalculateChecksum(payload)))
}

// VerifyFrame checks that frame holds a complete frame whose checksum matches.
//
// ErrIncompleteFrame means more bytes are needed and the frame should be
// retried, as opposed to ErrChecksumMismatch, ErrPayloadSize or
// ErrMalformedHeader which mean the frame is bad. Both header values must
// match their complements. Bytes past the end of the frame are ignored.
func VerifyFrame(frame []byte) error {
	if len(frame) < HeaderSize+ChecksumSize {
		return ErrIncompleteFrame
	}
	h, err := ParseFrameHeader(frame)
	if err != nil {
		return err
	}
	if !h.PayloadSizeValid() {
		return fmt.Errorf("%w: size %d, complement %d", ErrPayloadSize, h.PayloadSize, h.PayloadSizeComplement)
	}
	if !h.EnsembleNumberValid() {
		return fmt.Errorf("%w: ensemble number %d, complement %d",
			ErrMalformedHeader, h.EnsembleNumber, h.EnsembleNumberComplement)
	}
	if len(frame) < h.FrameLength() {
		return ErrIncompleteFrame
	}

	end := HeaderSize + int(h.PayloadSize)
	stored := binary.LittleEndian.Uint32(frame[end:])
	calc := uint32(CalculateChecksum(frame[HeaderSize:end]))
	if stored != calc {
		return fmt.Errorf("%w: stored 0x%04X, calculated 0x%04X", ErrChecksumMismatch, stored, calc)
	}
	return nil
}

// IsValidFrame reports whether VerifyFrame accepts the frame
func IsValidFrame(frame []byte) bool {
	return VerifyFrame(frame) == nil
}
