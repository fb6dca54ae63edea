// Copyright 2025 The POIBench Authors
// SPDX-License-Identifier: Apache-2.0

// Package bench runs a benchmark over a region, scores every place of one provider
// against the other, and stores the resulting reports.
package bench

import (
	"errors"
	"fmt"
	"time"

	"github.com/jcodagnone/poibench/places"
	"github.com/jcodagnone/poibench/reconcile"
	"github.com/jcodagnone/poibench/spatial"
)

// ErrInvalidConfig is returned when a run cannot start. No query is issued.
var ErrInvalidConfig = errors.New("invalid run configuration")

// Defaults of a run.
const (
	DefaultRows           = 3
	DefaultCols           = 3
	DefaultSamplesPerCell = 2
	DefaultRadiusMeters   = 500
	DefaultLimit          = 20
	DefaultConcurrency    = 8
	DefaultQueryTimeout   = 10 * time.Second
)

// RunConfig describes one benchmarking run.
type RunConfig struct {
	PlaceName      string               `json:"place_name"`
	Box            spatial.BoundingBox  `json:"box"`
	Rows           int                  `json:"rows"`
	Cols           int                  `json:"cols"`
	SamplesPerCell int                  `json:"samples_per_cell"`
	RadiusMeters   int                  `json:"radius_meters"`
	Limit          int                  `json:"limit"`
	Category       places.PlaceType     `json:"category"`
	Thresholds     reconcile.Thresholds `json:"thresholds"`
	// Concurrency is the number of points and of provider requests in flight.
	Concurrency   int           `json:"concurrency"`
	QueryTimeout  time.Duration `json:"query_timeout"`
	Bidirectional bool          `json:"bidirectional"`
	// Seed makes sampling reproducible; 0 picks a random seed.
	Seed uint64 `json:"seed,omitempty"`
}

// DefaultRunConfig returns a configuration with every knob but the region set.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Rows:           DefaultRows,
		Cols:           DefaultCols,
		SamplesPerCell: DefaultSamplesPerCell,
		RadiusMeters:   DefaultRadiusMeters,
		Limit:          DefaultLimit,
		Thresholds:     reconcile.DefaultThresholds(),
		Concurrency:    DefaultConcurrency,
		QueryTimeout:   DefaultQueryTimeout,
	}
}

// Validate checks c and returns it with SamplesPerCell clamped to
// [0, spatial.MaxSamplesPerCell].
func (c RunConfig) Validate() (RunConfig, error) {
	if err := c.Box.Validate(); err != nil {
		return c, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if c.Rows < 1 || c.Cols < 1 {
		return c, fmt.Errorf("%w: %w: %dx%d", ErrInvalidConfig, spatial.ErrInvalidGrid, c.Rows, c.Cols)
	}

	if c.RadiusMeters <= 0 {
		return c, fmt.Errorf("%w: radius must be positive, got %d", ErrInvalidConfig, c.RadiusMeters)
	}

	if c.Limit < 1 {
		return c, fmt.Errorf("%w: limit must be at least 1, got %d", ErrInvalidConfig, c.Limit)
	}

	if c.Concurrency < 1 {
		return c, fmt.Errorf("%w: concurrency must be at least 1, got %d", ErrInvalidConfig, c.Concurrency)
	}

	if c.QueryTimeout <= 0 {
		return c, fmt.Errorf("%w: query timeout must be positive, got %v", ErrInvalidConfig, c.QueryTimeout)
	}

	if err := c.Thresholds.Validate(); err != nil {
		return c, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	c.SamplesPerCell = spatial.ClampSamples(c.SamplesPerCell)

	return c, nil
}
