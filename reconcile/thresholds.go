// Copyright 2025 The POIBench Authors
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidThresholds is returned by Thresholds.Validate.
var ErrInvalidThresholds = errors.New("invalid thresholds")

// ToleranceStep allows Allowed missing name tokens for names of up to MaxTokens tokens.
type ToleranceStep struct {
	MaxTokens int `json:"max_tokens" mapstructure:"max_tokens"`
	Allowed   int `json:"allowed"    mapstructure:"allowed"`
}

// Thresholds are the knobs of the matching tiers. The defaults have drifted across
// historical runs, so they are configuration rather than constants.
type Thresholds struct {
	// NameTolerance must be sorted by MaxTokens.
	NameTolerance []ToleranceStep `json:"name_tolerance"`
	// NameToleranceDivisor gives floor(n/divisor) allowed misses past the last step.
	NameToleranceDivisor int `json:"name_tolerance_divisor"`
	// StreetSimilarity is the minimum normalized edit similarity of a street token.
	StreetSimilarity float64 `json:"street_similarity"`
	// DistanceFallbackMeters is the haversine radius of the distance tier.
	DistanceFallbackMeters float64 `json:"distance_fallback_meters"`
}

// DefaultThresholds returns the values used by the benchmark unless configured otherwise.
func DefaultThresholds() Thresholds {
	return Thresholds{
		NameTolerance: []ToleranceStep{
			{MaxTokens: 2, Allowed: 0},
			{MaxTokens: 4, Allowed: 1},
			{MaxTokens: 8, Allowed: 2},
		},
		NameToleranceDivisor:   3,
		StreetSimilarity:       0.80,
		DistanceFallbackMeters: 100,
	}
}

// AllowedMismatches returns how many of n reference name tokens may be missing
// from a candidate name.
func (t Thresholds) AllowedMismatches(n int) int {
	for _, step := range t.NameTolerance {
		if n <= step.MaxTokens {
			return step.Allowed
		}
	}

	if t.NameToleranceDivisor <= 0 {
		return 0
	}

	return n / t.NameToleranceDivisor
}

// Validate checks the thresholds are usable.
func (t Thresholds) Validate() error {
	for i, step := range t.NameTolerance {
		if step.Allowed < 0 || step.MaxTokens < 1 {
			return fmt.Errorf("%w: name tolerance step %+v", ErrInvalidThresholds, step)
		}

		if i > 0 && step.MaxTokens <= t.NameTolerance[i-1].MaxTokens {
			return fmt.Errorf("%w: name tolerance steps must be sorted by max tokens", ErrInvalidThresholds)
		}
	}

	if t.NameToleranceDivisor < 1 {
		return fmt.Errorf("%w: name tolerance divisor %d", ErrInvalidThresholds, t.NameToleranceDivisor)
	}

	if math.IsNaN(t.StreetSimilarity) || t.StreetSimilarity < 0 || t.StreetSimilarity > 1 {
		return fmt.Errorf("%w: street similarity %v not in [0,1]", ErrInvalidThresholds, t.StreetSimilarity)
	}

	if !(t.DistanceFallbackMeters > 0) || math.IsInf(t.DistanceFallbackMeters, 0) {
		return fmt.Errorf("%w: distance fallback %v m", ErrInvalidThresholds, t.DistanceFallbackMeters)
	}

	return nil
}
