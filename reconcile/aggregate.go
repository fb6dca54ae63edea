// Copyright 2025 The POIBench Authors
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"maps"
	"sync"
)

// RunAggregate counts the outcomes of a run. Each Needed/NotNeeded pair sums to
// Matches + NonMatches. FailedQueries counts provider failures, which are not
// non-matches, and FailuresByKind breaks them down by error kind.
type RunAggregate struct {
	Matches                   int `json:"matches"`
	NonMatches                int `json:"non_matches"`
	NeededNameSimilarity      int `json:"needed_name_similarity"`
	NotNeededNameSimilarity   int `json:"not_needed_name_similarity"`
	NeededStreetSimilarity    int `json:"needed_street_similarity"`
	NotNeededStreetSimilarity int `json:"not_needed_street_similarity"`
	NeededDistanceFallback    int `json:"needed_distance_fallback"`
	NotNeededDistanceFallback int `json:"not_needed_distance_fallback"`
	FailedQueries             int `json:"failed_queries"`

	FailuresByKind map[string]int `json:"failures_by_kind,omitempty"`
}

// Total is the number of reconciled references.
func (a RunAggregate) Total() int {
	return a.Matches + a.NonMatches
}

// MatchRate is Matches / Total, 0 for an empty run.
func (a RunAggregate) MatchRate() float64 {
	if a.Total() == 0 {
		return 0
	}

	return float64(a.Matches) / float64(a.Total())
}

// Add accumulates r into a.
func (a *RunAggregate) Add(r MatchResult) {
	if r.IsMatch {
		a.Matches++
	} else {
		a.NonMatches++
	}

	if r.NeededNameSimilarity {
		a.NeededNameSimilarity++
	} else {
		a.NotNeededNameSimilarity++
	}

	if r.NeededStreetSimilarity {
		a.NeededStreetSimilarity++
	} else {
		a.NotNeededStreetSimilarity++
	}

	if r.NeededDistanceFallback {
		a.NeededDistanceFallback++
	} else {
		a.NotNeededDistanceFallback++
	}
}

// Aggregator is a RunAggregate safe for concurrent use by the run workers.
type Aggregator struct {
	mu  sync.Mutex
	agg RunAggregate
}

// NewAggregator returns an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Accumulate adds one result.
func (a *Aggregator) Accumulate(r MatchResult) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.agg.Add(r)
}

// RecordFailure counts a provider query that failed with an error of the given kind.
func (a *Aggregator) RecordFailure(kind string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.agg.FailedQueries++

	if a.agg.FailuresByKind == nil {
		a.agg.FailuresByKind = map[string]int{}
	}

	a.agg.FailuresByKind[kind]++
}

// Snapshot returns a copy of the counters. It waits for in-flight updates, so the
// copy is a consistent point in time.
func (a *Aggregator) Snapshot() RunAggregate {
	a.mu.Lock()
	defer a.mu.Unlock()

	ret := a.agg
	ret.FailuresByKind = maps.Clone(a.agg.FailuresByKind)

	return ret
}
