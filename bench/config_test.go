// Copyright 2025 The POIBench Authors
// SPDX-License-Identifier: Apache-2.0

package bench

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcodagnone/poibench/spatial"
)

func TestRunConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RunConfig)
		cause  error
	}{
		{"inverted box", func(c *RunConfig) { c.Box.North, c.Box.South = c.Box.South, c.Box.North }, spatial.ErrInvalidBoundingBox},
		{"zero rows", func(c *RunConfig) { c.Rows = 0 }, spatial.ErrInvalidGrid},
		{"negative cols", func(c *RunConfig) { c.Cols = -1 }, spatial.ErrInvalidGrid},
		{"zero radius", func(c *RunConfig) { c.RadiusMeters = 0 }, nil},
		{"zero limit", func(c *RunConfig) { c.Limit = 0 }, nil},
		{"zero concurrency", func(c *RunConfig) { c.Concurrency = 0 }, nil},
		{"zero timeout", func(c *RunConfig) { c.QueryTimeout = 0 }, nil},
		{"zero distance threshold", func(c *RunConfig) { c.Thresholds.DistanceFallbackMeters = 0 }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)

			_, err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig), "error %v should wrap ErrInvalidConfig", err)

			if tt.cause != nil {
				assert.True(t, errors.Is(err, tt.cause), "error %v should wrap %v", err, tt.cause)
			}
		})
	}
}

func TestRunConfigValidateClampsSamples(t *testing.T) {
	cfg := testConfig()

	cfg.SamplesPerCell = 100
	got, err := cfg.Validate()
	require.NoError(t, err)
	assert.Equal(t, spatial.MaxSamplesPerCell, got.SamplesPerCell)

	cfg.SamplesPerCell = -3
	got, err = cfg.Validate()
	require.NoError(t, err)
	assert.Equal(t, 0, got.SamplesPerCell)
}
