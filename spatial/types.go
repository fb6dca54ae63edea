// Copyright 2025 The POIBench Authors
// SPDX-License-Identifier: Apache-2.0

// Package spatial holds the geographic primitives of a benchmarking run: points,
// bounding boxes, the grid partition of a region and the random sample points
// drawn inside each grid cell.
package spatial

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

const earthRadius = 6371e3 // meters

// ErrInvalidBoundingBox is returned when a bounding box cannot be partitioned.
var ErrInvalidBoundingBox = errors.New("invalid bounding box")

// Point represents a geographical point with latitude and longitude.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// String returns a string representation of the Point.
func (p Point) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", p.Lat, p.Lng)
}

// Orb returns the point in orb's lon/lat ordering.
func (p Point) Orb() orb.Point {
	return orb.Point{p.Lng, p.Lat}
}

// HaversineDistance calculates the distance between two points on Earth in meters.
func (p Point) HaversineDistance(other Point) float64 {
	lat1 := p.Lat * math.Pi / 180
	lat2 := other.Lat * math.Pi / 180
	dLat := (other.Lat - p.Lat) * math.Pi / 180
	dLng := (other.Lng - p.Lng) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}

// DistanceKm is HaversineDistance expressed in kilometers.
func (p Point) DistanceKm(other Point) float64 {
	return p.HaversineDistance(other) / 1000
}

// BoundingBox is a rectangular region in decimal degrees. Boxes crossing the
// antimeridian are not supported.
type BoundingBox struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// Validate checks that the box is finite, within the globe and not degenerate.
func (b BoundingBox) Validate() error {
	for _, v := range []float64{b.North, b.South, b.East, b.West} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non finite coordinate in %v", ErrInvalidBoundingBox, b)
		}
	}

	if b.North > 90 || b.South < -90 {
		return fmt.Errorf("%w: latitude must be between -90 and 90 (north %f, south %f)", ErrInvalidBoundingBox, b.North, b.South)
	}

	if b.East > 180 || b.West < -180 {
		return fmt.Errorf("%w: longitude must be between -180 and 180 (east %f, west %f)", ErrInvalidBoundingBox, b.East, b.West)
	}

	if b.North <= b.South {
		return fmt.Errorf("%w: north (%f) must be greater than south (%f)", ErrInvalidBoundingBox, b.North, b.South)
	}

	if b.East <= b.West {
		return fmt.Errorf("%w: east (%f) must be greater than west (%f)", ErrInvalidBoundingBox, b.East, b.West)
	}

	return nil
}

// Contains reports whether p lies inside the box, edges included.
func (b BoundingBox) Contains(p Point) bool {
	return p.Lat >= b.South && p.Lat <= b.North && p.Lng >= b.West && p.Lng <= b.East
}

// Center returns the arithmetic midpoint of the four corners.
func (b BoundingBox) Center() Point {
	return Point{
		Lat: (b.North + b.South) / 2,
		Lng: (b.East + b.West) / 2,
	}
}

// Bound converts the box to an orb.Bound.
func (b BoundingBox) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.West, b.South},
		Max: orb.Point{b.East, b.North},
	}
}

// FromBound builds a BoundingBox out of an orb.Bound.
func FromBound(bound orb.Bound) BoundingBox {
	return BoundingBox{
		North: bound.Max.Lat(),
		South: bound.Min.Lat(),
		East:  bound.Max.Lon(),
		West:  bound.Min.Lon(),
	}
}
