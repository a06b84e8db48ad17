// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rtb

import (
	"encoding/binary"
	"math"
)

// cell is the element type of a bin-by-beam grid
type cell interface {
	float32 | int32
}

// decodeGrid decodes a [bin][beam] grid.
//
// On the wire the grid is beam-major: every bin of beam 0, then every bin of
// beam 1 and so on. NumElements is the bin count, ElementMultiplier the beam count.
func decodeGrid[T cell](h DatasetHeader, body []byte) ([][]T, error) {
	bins, beams := int(h.NumElements), int(h.ElementMultiplier)
	if err := requireBytes(h, body, bins*beams, 4); err != nil {
		return nil, err
	}

	grid := make([][]T, bins)
	for bin := range grid {
		grid[bin] = make([]T, beams)
	}

	off := 0
	for beam := 0; beam < beams; beam++ {
		for bin := 0; bin < bins; bin++ {
			grid[bin][beam] = getCell[T](body, off)
			off += 4
		}
	}
	return grid, nil
}

// appendGrid appends grid values in beam-major order. Short rows are zero filled.
func appendGrid[T cell](dst []byte, grid [][]T) []byte {
	bins, beams := gridShape(grid)
	var zero T
	for beam := 0; beam < beams; beam++ {
		for bin := 0; bin < bins; bin++ {
			v := zero
			if beam < len(grid[bin]) {
				v = grid[bin][beam]
			}
			dst = appendCell(dst, v)
		}
	}
	return dst
}

// gridShape returns the bin and beam counts of a grid
func gridShape[T cell](grid [][]T) (bins, beams int) {
	bins = len(grid)
	if bins > 0 {
		beams = len(grid[0])
	}
	return bins, beams
}

// gridHeader builds the header describing grid
func gridHeader[T cell](id DatasetID, grid [][]T) DatasetHeader {
	bins, beams := gridShape(grid)
	return newDatasetHeader(id, bins, beams)
}

// encodeGrid encodes a grid dataset, header included
func encodeGrid[T cell](h DatasetHeader, grid [][]T) []byte {
	bins, beams := gridShape(grid)
	dst := make([]byte, 0, h.HeaderSize()+bins*beams*4)
	dst = appendDatasetHeader(dst, h)
	return appendGrid(dst, grid)
}

func getCell[T cell](b []byte, off int) T {
	u := binary.LittleEndian.Uint32(b[off:])
	var zero T
	if _, ok := any(zero).(float32); ok {
		return T(math.Float32frombits(u))
	}
	return T(int32(u))
}

func appendCell[T cell](dst []byte, v T) []byte {
	switch x := any(v).(type) {
	case float32:
		return appendFloat(dst, x)
	case int32:
		return appendInt32(dst, x)
	}
	return dst
}
