// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package rtb implements the Rowe Technologies binary (RTB) ensemble protocol
// emitted by multi-beam acoustic Doppler current profilers.
//
// A frame is a 16-byte 0x80 delimiter, a 16-byte header holding the ensemble
// number and payload size (each followed by its bitwise complement), a payload
// of concatenated datasets and a 4-byte CRC-16/XMODEM checksum of the payload.
// This package provides frame synchronization, checksum verification, typed
// dataset decoding/encoding and a concurrent ingestion pipeline.
package rtb

// Frame layout
const (
	DelimiterByte = 0x80
	DelimiterSize = 16
	HeaderSize    = 32 // delimiter + ensemble number, ~number, payload size, ~size
	ChecksumSize  = 4

	// MaxPayloadSize bounds the declared payload size a frame header may
	// carry before the synchronizer treats it as a false delimiter.
	MaxPayloadSize = 1 << 20
)

// Dataset layout
const (
	BytesInInt32 = 4
	BytesInFloat = 4

	// DefaultNameLength is the name length used by every known dataset.
	DefaultNameLength = 8

	// MaxNameLength bounds the name length field of a dataset header.
	MaxNameLength = 64

	// datasetHeaderFields is the number of int32 fields ahead of the name.
	datasetHeaderFields = 5

	// DatasetHeaderSize is the size of a dataset header with the default name length.
	DatasetHeaderSize = DefaultNameLength + datasetHeaderFields*BytesInInt32

	// MaxDatasets bounds the number of datasets scanned in one frame.
	MaxDatasets = 20
)

// BadVelocity marks an invalid or missing velocity sample.
const BadVelocity = 88.888

// badVelocityTolerance is the relative tolerance used to recognise BadVelocity.
const badVelocityTolerance = 1e-6

// ValueType is the element encoding declared in a dataset header.
type ValueType int32

// Value types
const (
	ValueTypeFloat ValueType = 10
	ValueTypeInt   ValueType = 20
	ValueTypeByte  ValueType = 50
)

// Width returns the number of bytes a single element occupies.
func (v ValueType) Width() int {
	if v == ValueTypeByte {
		return 1
	}
	return 4
}

func (v ValueType) String() string {
	switch v {
	case ValueTypeFloat:
		return "float"
	case ValueTypeInt:
		return "int"
	case ValueTypeByte:
		return "byte"
	}
	return "unknown"
}

// delimiter is the frame start marker.
var delimiter = func() []byte {
	d := make([]byte, DelimiterSize)
	for i := range d {
		d[i] = DelimiterByte
	}
	return d
}()
