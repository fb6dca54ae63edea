// Copyright 2025 The POIBench Authors
// SPDX-License-Identifier: Apache-2.0

// Package reconcile decides whether a place returned by one provider is corroborated
// by the places another provider returned, and how much relaxation that took.
package reconcile

import (
	"strings"

	"github.com/jcodagnone/poibench/places"
	"github.com/jcodagnone/poibench/spatial"
	"github.com/jcodagnone/poibench/utils/textutils"
)

// MatchResult is the outcome of reconciling one reference record. The Needed*
// flags describe the evaluation of Matched and are meaningful even when IsMatch
// is false.
type MatchResult struct {
	Reference              places.PlaceRecord  `json:"reference"`
	Matched                *places.PlaceRecord `json:"matched,omitempty"`
	IsMatch                bool                `json:"is_match"`
	NeededNameSimilarity   bool                `json:"needed_name_similarity"`
	NeededStreetSimilarity bool                `json:"needed_street_similarity"`
	NeededDistanceFallback bool                `json:"needed_distance_fallback"`
	DistanceKm             float64             `json:"distance_km"`
}

// Engine scores candidates. It holds no state besides its thresholds and is safe
// for concurrent use.
type Engine struct {
	thresholds Thresholds
}

// NewEngine returns an Engine using t.
func NewEngine(t Thresholds) *Engine {
	return &Engine{thresholds: t}
}

// Thresholds returns the engine configuration.
func (e *Engine) Thresholds() Thresholds {
	return e.thresholds
}

// evaluation is the per candidate state of the tiers.
type evaluation struct {
	covered        int
	nameMatches    bool
	neededName     bool
	streetMatches  bool
	neededStreet   bool
	addressMatches bool
	neededDistance bool
	matched        bool
}

// reference holds the normalized strings of the reference record, computed once.
type reference struct {
	tokens       []string
	address      string
	addressToken []string
	point        spatial.Point
}

// Reconcile checks candidates in order and returns on the first match. When none
// matches the result describes the candidate covering most reference name tokens,
// or carries no candidate when none covers any. Distances, both for the fallback
// tier and for DistanceKm, are measured from samplePoint, the coordinate the
// candidates were queried around, not from the reference record itself.
func (e *Engine) Reconcile(ref places.PlaceRecord, candidates []places.PlaceRecord, samplePoint spatial.Point) MatchResult {
	result := MatchResult{Reference: ref}

	if len(candidates) == 0 {
		return result
	}

	r := reference{
		tokens:       textutils.Tokens(ref.Name),
		address:      textutils.Normalize(ref.FormattedAddress),
		addressToken: textutils.Tokens(ref.FormattedAddress),
		point:        samplePoint,
	}

	best, bestIdx := evaluation{}, -1

	for i := range candidates {
		ev := e.evaluate(r, candidates[i])
		if ev.matched {
			return e.result(ref, candidates[i], ev, samplePoint)
		}

		if ev.covered > 0 && (bestIdx < 0 || ev.covered > best.covered) {
			best, bestIdx = ev, i
		}
	}

	if bestIdx < 0 {
		return result
	}

	return e.result(ref, candidates[bestIdx], best, samplePoint)
}

func (e *Engine) result(ref, candidate places.PlaceRecord, ev evaluation, samplePoint spatial.Point) MatchResult {
	return MatchResult{
		Reference:              ref,
		Matched:                &candidate,
		IsMatch:                ev.matched,
		NeededNameSimilarity:   ev.neededName,
		NeededStreetSimilarity: ev.neededStreet,
		NeededDistanceFallback: ev.neededDistance,
		DistanceKm:             samplePoint.DistanceKm(candidate.Point()),
	}
}

func (e *Engine) evaluate(r reference, candidate places.PlaceRecord) evaluation {
	var ev evaluation

	// name
	n := len(r.tokens)
	if n == 0 {
		return ev
	}

	name := " " + textutils.Normalize(candidate.Name) + " "
	for _, token := range r.tokens {
		if strings.Contains(name, " "+token+" ") {
			ev.covered++
		}
	}

	ev.neededName = ev.covered != n
	ev.nameMatches = n-ev.covered <= e.thresholds.AllowedMismatches(n)

	if !ev.nameMatches {
		return ev
	}

	// street
	candidate = candidate.WithStreet()

	street := textutils.Normalize(candidate.Street)
	if street != "" && r.address != "" {
		if strings.Contains(r.address, street) {
			ev.streetMatches = true
		} else {
			for _, token := range r.addressToken {
				if textutils.Similarity(token, street) >= e.thresholds.StreetSimilarity {
					ev.streetMatches = true
					ev.neededStreet = true

					break
				}
			}
		}
	}

	// address
	number := textutils.Normalize(candidate.HouseNumber)
	ev.addressMatches = ev.streetMatches && number != "" && strings.Contains(r.address, number)

	// distance
	if !ev.addressMatches {
		ev.neededDistance = r.point.HaversineDistance(candidate.Point()) <= e.thresholds.DistanceFallbackMeters
	}

	ev.matched = ev.nameMatches && (ev.addressMatches || ev.neededDistance)

	return ev
}
