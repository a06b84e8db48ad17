// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rtb

import "errors"

var (
	// ErrIncompleteFrame means the buffer does not yet hold the whole frame.
	// Callers retry once more bytes arrive.
	ErrIncompleteFrame = errors.New("incomplete frame")

	// ErrChecksumMismatch means the payload CRC does not match the stored checksum.
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrPayloadSize means the declared payload size is negative, too large
	// or disagrees with its complement.
	ErrPayloadSize = errors.New("invalid payload size")

	// ErrMalformedHeader means a frame or dataset header could not be read.
	ErrMalformedHeader = errors.New("malformed header")

	// ErrTruncatedDataset means a dataset declares more bytes than remain.
	ErrTruncatedDataset = errors.New("truncated dataset")

	// ErrCodecClosed is returned by Codec.Add after Close.
	ErrCodecClosed = errors.New("codec closed")

	// ErrBufferFull is returned by Codec.Add when the pending byte limit is reached.
	ErrBufferFull = errors.New("codec buffer full")
)
