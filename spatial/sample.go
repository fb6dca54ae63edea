// Copyright 2025 The POIBench Authors
// SPDX-License-Identifier: Apache-2.0

package spatial

import (
	"math/rand/v2"
	"time"

	"github.com/uber/h3-go/v4"
)

// MaxSamplesPerCell bounds the number of sample points drawn in a single cell.
const MaxSamplesPerCell = 20

// SampleH3Resolution is the H3 resolution used to tag sample points (~0.1 km² cells).
const SampleH3Resolution = 9

// SamplePoint is a random query location inside a grid cell.
type SamplePoint struct {
	CellIndex int   `json:"cell_index"`
	Point     Point `json:"point"`
	H3Cell    int64 `json:"h3_cell,omitempty"`
}

// ClampSamples forces k into [0, MaxSamplesPerCell].
func ClampSamples(k int) int {
	return min(max(k, 0), MaxSamplesPerCell)
}

// Sampler draws uniformly distributed points inside grid cells. A Sampler is not
// safe for concurrent use.
type Sampler struct {
	rnd *rand.Rand
}

// NewSampler creates a sampler over src. A nil src gets a time seeded source;
// tests should pass a seeded one.
func NewSampler(src *rand.Rand) *Sampler {
	if src == nil {
		seed := uint64(time.Now().UnixNano())
		src = rand.New(rand.NewPCG(seed, seed>>1|1))
	}

	return &Sampler{rnd: src}
}

// Sample returns k points inside cell. k is clamped to [0, MaxSamplesPerCell].
func (s *Sampler) Sample(cell GridCell, k int) []SamplePoint {
	k = ClampSamples(k)
	b := cell.Bounds
	points := make([]SamplePoint, 0, k)

	for range k {
		p := Point{
			Lat: b.South + s.rnd.Float64()*(b.North-b.South),
			Lng: b.West + s.rnd.Float64()*(b.East-b.West),
		}
		points = append(points, SamplePoint{
			CellIndex: cell.Index,
			Point:     p,
			H3Cell:    h3Index(p),
		})
	}

	return points
}

// SampleGrid samples k points per cell, in cell index order.
func (s *Sampler) SampleGrid(cells []GridCell, k int) []SamplePoint {
	points := make([]SamplePoint, 0, len(cells)*ClampSamples(k))
	for _, cell := range cells {
		points = append(points, s.Sample(cell, k)...)
	}

	return points
}

// h3Index returns the H3 cell containing p, or 0 when it cannot be computed.
func h3Index(p Point) int64 {
	cell, err := h3.LatLngToCell(h3.NewLatLng(p.Lat, p.Lng), SampleH3Resolution)
	if err != nil {
		return 0
	}

	return int64(cell)
}
