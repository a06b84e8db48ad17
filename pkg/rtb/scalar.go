// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rtb

import "fmt"

// decodeScalars reads every float of a flat dataset, requiring at least min values
func decodeScalars(h DatasetHeader, body []byte, min int) ([]float32, error) {
	n := int(h.NumElements) * int(h.ElementMultiplier)
	if n < min {
		return nil, fmt.Errorf("%w: %q has %d elements, need %d", ErrTruncatedDataset, h.Name, n, min)
	}
	if err := requireBytes(h, body, n, BytesInFloat); err != nil {
		return nil, err
	}
	return getFloats(body, 0, n), nil
}

// assignFloats copies vals into the fields in order
func assignFloats(fields []*float32, vals []float32) {
	for i, f := range fields {
		*f = vals[i]
	}
}

// collectFloats returns the field values in order
func collectFloats(fields []*float32) []float32 {
	out := make([]float32, len(fields))
	for i, f := range fields {
		out[i] = *f
	}
	return out
}

// trailing returns a copy of vals past n, or nil
func trailing(vals []float32, n int) []float32 {
	if len(vals) <= n {
		return nil
	}
	return append([]float32(nil), vals[n:]...)
}

// takeFloats returns the next n values and advances vals
func takeFloats(vals *[]float32, n int) []float32 {
	if n > len(*vals) {
		n = len(*vals)
	}
	out := append([]float32(nil), (*vals)[:n]...)
	*vals = (*vals)[n:]
	return out
}

// encodeScalars encodes a flat float dataset
func encodeScalars(id DatasetID, vals []float32) []byte {
	h := newDatasetHeader(id, len(vals), 1)
	dst := make([]byte, 0, h.HeaderSize()+len(vals)*BytesInFloat)
	dst = appendDatasetHeader(dst, h)
	return appendFloats(dst, vals)
}
