// Copyright 2025 The POIBench Authors
// SPDX-License-Identifier: Apache-2.0

package spatial

import (
	"errors"
	"fmt"
)

// ErrInvalidGrid is returned when the requested grid dimensions are not positive.
var ErrInvalidGrid = errors.New("invalid grid dimensions")

// GridCell is one tile of a partitioned bounding box.
type GridCell struct {
	Index  int         `json:"index"` // 1-based, row-major: row*cols + col + 1
	Row    int         `json:"row"`   // 0 is the northernmost band
	Col    int         `json:"col"`   // 0 is the westernmost column
	Bounds BoundingBox `json:"bounds"`
	Center Point       `json:"center"`
}

// CellIndex returns the 1-based row-major index for a row/col pair.
func CellIndex(row, col, cols int) int {
	return row*cols + col + 1
}

// Partition splits box into rows x cols cells. Row 0 is the northernmost band and
// columns advance west to east. The outer edges of the last row and column are
// pinned to the box so the cells tile it exactly.
func Partition(box BoundingBox, rows, cols int) ([]GridCell, error) {
	if rows < 1 || cols < 1 {
		return nil, fmt.Errorf("%w: rows (%d) and columns (%d) must be at least 1", ErrInvalidGrid, rows, cols)
	}

	if err := box.Validate(); err != nil {
		return nil, err
	}

	latStep := (box.North - box.South) / float64(rows)
	lngStep := (box.East - box.West) / float64(cols)

	cells := make([]GridCell, 0, rows*cols)

	for row := range rows {
		north := box.North - float64(row)*latStep
		south := box.North - float64(row+1)*latStep

		if row == rows-1 {
			south = box.South
		}

		for col := range cols {
			west := box.West + float64(col)*lngStep
			east := box.West + float64(col+1)*lngStep

			if col == cols-1 {
				east = box.East
			}

			bounds := BoundingBox{North: north, South: south, East: east, West: west}
			cells = append(cells, GridCell{
				Index:  CellIndex(row, col, cols),
				Row:    row,
				Col:    col,
				Bounds: bounds,
				Center: bounds.Center(),
			})
		}
	}

	return cells, nil
}
