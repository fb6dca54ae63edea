// Copyright 2025 The POIBench Authors
// SPDX-License-Identifier: Apache-2.0

package bench

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jcodagnone/poibench/places"
	"github.com/jcodagnone/poibench/reconcile"
	"github.com/jcodagnone/poibench/spatial"
)

// Directions of a reconciliation: the reference provider first.
const (
	DirectionAToB = "A->B"
	DirectionBToA = "B->A"
)

// Report is the outcome of a run, and the unit stored by a ReportRepository.
type Report struct {
	ID         string                            `json:"id"`
	PlaceName  string                            `json:"place_name"`
	CreatedAt  time.Time                         `json:"created_at"`
	ProviderA  string                            `json:"provider_a"`
	ProviderB  string                            `json:"provider_b"`
	Config     RunConfig                         `json:"config"`
	Cells      []spatial.GridCell                `json:"cells"`
	Points     []PointResult                     `json:"points"`
	Aggregates map[string]reconcile.RunAggregate `json:"aggregates"`
	Cache      map[string]places.CacheStats      `json:"cache,omitempty"`
	// Partial is set when the run was cancelled before every point completed.
	Partial bool `json:"partial,omitempty"`
}

// PointResult holds what happened at one sample point.
type PointResult struct {
	CellIndex       int                  `json:"cell_index"`
	Point           spatial.Point        `json:"point"`
	H3Cell          int64                `json:"h3_cell"`
	Error           string               `json:"error,omitempty"`
	References      []ReferenceResult    `json:"references"`
	ProviderAPlaces []places.PlaceRecord `json:"provider_a_places"`
	ProviderBPlaces []places.PlaceRecord `json:"provider_b_places"`
}

// ReferenceResult is the reconciliation of one reference record.
type ReferenceResult struct {
	Direction string                `json:"direction"`
	Match     reconcile.MatchResult `json:"match"`
}

// Forward returns the A->B aggregate.
func (r *Report) Forward() reconcile.RunAggregate {
	return r.Aggregates[DirectionAToB]
}

// Summary returns the listing view of the report.
func (r *Report) Summary() ReportSummary {
	forward := r.Forward()

	return ReportSummary{
		ID:            r.ID,
		PlaceName:     r.PlaceName,
		CreatedAt:     r.CreatedAt,
		Grid:          fmt.Sprintf("%dx%d", r.Config.Rows, r.Config.Cols),
		Category:      r.Config.Category.Label,
		Points:        len(r.Points),
		Matches:       forward.Matches,
		NonMatches:    forward.NonMatches,
		FailedQueries: forward.FailedQueries,
		MatchRate:     forward.MatchRate(),
		Partial:       r.Partial,
	}
}

// ReportSummary is a report without its points.
type ReportSummary struct {
	ID            string    `json:"id"`
	PlaceName     string    `json:"place_name"`
	CreatedAt     time.Time `json:"created_at"`
	Grid          string    `json:"grid"`
	Category      string    `json:"category"`
	Points        int       `json:"points"`
	Matches       int       `json:"matches"`
	NonMatches    int       `json:"non_matches"`
	FailedQueries int       `json:"failed_queries"`
	MatchRate     float64   `json:"match_rate"`
	Partial       bool      `json:"partial"`
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encoding report %s: %w", r.ID, err)
	}

	return nil
}

// SaveJSONFile writes the report to path.
func (r *Report) SaveJSONFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}

	if err := r.WriteJSON(f); err != nil {
		_ = f.Close()

		return err
	}

	return f.Close()
}

// ReadReport decodes a report written by WriteJSON.
func ReadReport(rd io.Reader) (*Report, error) {
	var report Report
	if err := json.NewDecoder(rd).Decode(&report); err != nil {
		return nil, fmt.Errorf("decoding report: %w", err)
	}

	return &report, nil
}
