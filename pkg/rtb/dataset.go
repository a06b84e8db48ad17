// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rtb

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// Dataset is one typed sub-record of an ensemble payload.
//
// The set of implementations is closed: one per DatasetID.
type Dataset interface {
	// ID identifies the dataset variant
	ID() DatasetID
	// Header returns the header Encode will write, derived from the in-memory dimensions
	Header() DatasetHeader
	// Encode returns the dataset in wire format, header included
	Encode() []byte
}

// DatasetHeader is the prologue shared by every dataset.
type DatasetHeader struct {
	ValueType         ValueType
	NumElements       int32
	ElementMultiplier int32
	Image             int32 // reserved, always 0
	NameLength        int32
	Name              string // NUL padding removed
}

// newDatasetHeader builds the header for a known dataset.
func newDatasetHeader(id DatasetID, elements, multiplier int) DatasetHeader {
	return DatasetHeader{
		ValueType:         id.ValueType(),
		NumElements:       int32(elements),
		ElementMultiplier: int32(multiplier),
		NameLength:        DefaultNameLength,
		Name:              id.Name(),
	}
}

// HeaderSize returns the number of bytes the header occupies
func (h DatasetHeader) HeaderSize() int {
	return int(h.NameLength) + datasetHeaderFields*BytesInInt32
}

// DataSize returns the number of value bytes that follow the header
func (h DatasetHeader) DataSize() (int, error) {
	if h.NumElements < 0 || h.ElementMultiplier < 0 {
		return 0, fmt.Errorf("%w: dataset %q has negative dimensions %dx%d",
			ErrMalformedHeader, h.Name, h.NumElements, h.ElementMultiplier)
	}
	// Bound each factor so the product cannot overflow
	width := int64(h.ValueType.Width())
	elements, multiplier := int64(h.NumElements), int64(h.ElementMultiplier)
	if multiplier > 0 && elements > MaxPayloadSize/(multiplier*width) {
		return 0, fmt.Errorf("%w: dataset %q dimensions %dx%d exceed the payload limit",
			ErrMalformedHeader, h.Name, h.NumElements, h.ElementMultiplier)
	}
	n := elements * multiplier * width
	if n > MaxPayloadSize {
		return 0, fmt.Errorf("%w: dataset %q size %d overflows", ErrMalformedHeader, h.Name, n)
	}
	return int(n), nil
}

// Size returns the total dataset size in bytes, header included
func (h DatasetHeader) Size() (int, error) {
	n, err := h.DataSize()
	if err != nil {
		return 0, err
	}
	return n + h.HeaderSize(), nil
}

// ReadDatasetHeader reads the dataset header starting at offset
func ReadDatasetHeader(buf []byte, offset int) (DatasetHeader, error) {
	fixed := datasetHeaderFields * BytesInInt32
	if offset < 0 || len(buf)-offset < fixed {
		return DatasetHeader{}, fmt.Errorf("%w: need %d bytes for dataset header at offset %d, have %d",
			ErrMalformedHeader, fixed, offset, len(buf)-offset)
	}

	h := DatasetHeader{
		ValueType:         ValueType(getInt32(buf, offset)),
		NumElements:       getInt32(buf, offset+BytesInInt32),
		ElementMultiplier: getInt32(buf, offset+2*BytesInInt32),
		Image:             getInt32(buf, offset+3*BytesInInt32),
		NameLength:        getInt32(buf, offset+4*BytesInInt32),
	}

	if h.NameLength < 0 || h.NameLength > MaxNameLength {
		return DatasetHeader{}, fmt.Errorf("%w: name length %d out of range", ErrMalformedHeader, h.NameLength)
	}
	if len(buf)-offset < h.HeaderSize() {
		return DatasetHeader{}, fmt.Errorf("%w: dataset name truncated at offset %d", ErrMalformedHeader, offset)
	}

	name := buf[offset+fixed : offset+h.HeaderSize()]
	h.Name = strings.TrimRight(string(name), "\x00")
	return h, nil
}

// appendDatasetHeader appends the wire form of h to dst
func appendDatasetHeader(dst []byte, h DatasetHeader) []byte {
	dst = appendInt32(dst, int32(h.ValueType))
	dst = appendInt32(dst, h.NumElements)
	dst = appendInt32(dst, h.ElementMultiplier)
	dst = appendInt32(dst, h.Image)
	dst = appendInt32(dst, h.NameLength)

	name := make([]byte, h.NameLength)
	copy(name, h.Name)
	return append(dst, name...)
}

// DecodeDataset decodes the dataset starting at offset.
//
// It returns the decoded dataset and the number of bytes it spans. A dataset
// with an unknown name is not an error: the returned Dataset is nil and the
// size lets the caller skip it.
func DecodeDataset(buf []byte, offset int) (Dataset, int, error) {
	h, err := ReadDatasetHeader(buf, offset)
	if err != nil {
		return nil, 0, err
	}

	size, err := h.Size()
	if err != nil {
		return nil, 0, err
	}
	if size > len(buf)-offset {
		return nil, 0, fmt.Errorf("%w: %q declares %d bytes, %d remain",
			ErrTruncatedDataset, h.Name, size, len(buf)-offset)
	}

	id, ok := LookupDataset(h.Name)
	if !ok {
		return nil, size, nil
	}

	ds, err := id.decode(h, buf[offset+h.HeaderSize():offset+size])
	if err != nil {
		return nil, 0, err
	}
	return ds, size, nil
}

// requireBytes checks that body holds at least n values of the given width
func requireBytes(h DatasetHeader, body []byte, n, width int) error {
	if len(body) < n*width {
		return fmt.Errorf("%w: %q needs %d bytes, have %d", ErrTruncatedDataset, h.Name, n*width, len(body))
	}
	return nil
}

// IsBadVelocity reports whether v is the bad-velocity sentinel
func IsBadVelocity(v float32) bool {
	return isClose(float64(v), BadVelocity, badVelocityTolerance)
}

// isClose compares two floats with a relative tolerance
func isClose(a, b, relTol float64) bool {
	if a == b {
		return true
	}
	return math.Abs(a-b) <= relTol*math.Max(math.Abs(a), math.Abs(b))
}

// Little-endian primitives

func getInt32(b []byte, off int) int32 {
	return int32(binary.LittleEndian.Uint32(b[off:]))
}

func getFloat(b []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[off:]))
}

func appendInt32(dst []byte, v int32) []byte {
	return binary.LittleEndian.AppendUint32(dst, uint32(v))
}

func appendFloat(dst []byte, v float32) []byte {
	return binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
}

// getFloats reads n consecutive floats
func getFloats(b []byte, off, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = getFloat(b, off+i*BytesInFloat)
	}
	return out
}

func appendFloats(dst []byte, vals []float32) []byte {
	for _, v := range vals {
		dst = appendFloat(dst, v)
	}
	return dst
}
