// Copyright 2025 The POIBench Authors
// SPDX-License-Identifier: Apache-2.0

package bench

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrReportNotFound is returned when no report matches the request.
var ErrReportNotFound = errors.New("report not found")

// CellStat aggregates the forward references of one grid cell.
type CellStat struct {
	CellIndex      int     `json:"cell_index"`
	Points         int     `json:"points"`
	H3Cells        int     `json:"h3_cells"`
	References     int     `json:"references"`
	Matches        int     `json:"matches"`
	NeededName     int     `json:"needed_name_similarity"`
	NeededStreet   int     `json:"needed_street_similarity"`
	NeededDistance int     `json:"needed_distance_fallback"`
	MatchRate      float64 `json:"match_rate"`
}

// ReportRepository persists run reports.
type ReportRepository interface {
	// CreateSchema creates the runs and results tables
	CreateSchema() error

	// SaveReport stores the report and one results row per reconciled reference
	SaveReport(report *Report) error

	// ListReports returns report summaries, newest first
	ListReports() ([]ReportSummary, error)

	// GetReport returns a report by id
	GetReport(id string) (*Report, error)

	// LatestForPlace returns the newest report for a place name, ignoring case
	LatestForPlace(placeName string) (*Report, error)

	// CellStats returns per cell statistics of the A->B direction
	CellStats(id string) ([]CellStat, error)

	// DB returns the underlying database connection
	DB() *sql.DB
}

type sqlReportRepository struct {
	db *sql.DB
}

// NewReportRepository creates a repository over a DuckDB connection.
func NewReportRepository(db *sql.DB) ReportRepository {
	return &sqlReportRepository{db: db}
}

func (r *sqlReportRepository) DB() *sql.DB {
	return r.db
}

func (r *sqlReportRepository) CreateSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id VARCHAR PRIMARY KEY,
			place_name VARCHAR NOT NULL,
			created_at TIMESTAMP NOT NULL,
			provider_a VARCHAR NOT NULL,
			provider_b VARCHAR NOT NULL,
			grid VARCHAR NOT NULL,
			category VARCHAR NOT NULL,
			points INTEGER NOT NULL,
			matches INTEGER NOT NULL,
			non_matches INTEGER NOT NULL,
			failed_queries INTEGER NOT NULL,
			partial BOOLEAN NOT NULL DEFAULT FALSE,
			report VARCHAR NOT NULL
		);

		CREATE TABLE IF NOT EXISTS results (
			run_id VARCHAR NOT NULL,
			direction VARCHAR NOT NULL,
			point_idx INTEGER NOT NULL,
			cell_index INTEGER NOT NULL,
			lat DOUBLE NOT NULL,
			lng DOUBLE NOT NULL,
			h3_cell BIGINT,
			reference_name VARCHAR NOT NULL,
			matched_name VARCHAR,
			is_match BOOLEAN NOT NULL,
			needed_name_similarity BOOLEAN NOT NULL,
			needed_street_similarity BOOLEAN NOT NULL,
			needed_distance_fallback BOOLEAN NOT NULL,
			distance_km DOUBLE
		);
	`)

	return err
}

func (r *sqlReportRepository) SaveReport(report *Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encoding report %s: %w", report.ID, err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	summary := report.Summary()

	_, err = tx.Exec(`
		INSERT INTO runs(id, place_name, created_at, provider_a, provider_b, grid, category,
			points, matches, non_matches, failed_queries, partial, report)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		report.ID,
		report.PlaceName,
		report.CreatedAt,
		report.ProviderA,
		report.ProviderB,
		summary.Grid,
		summary.Category,
		summary.Points,
		summary.Matches,
		summary.NonMatches,
		summary.FailedQueries,
		report.Partial,
		string(payload),
	)
	if err != nil {
		return rollback(tx, fmt.Errorf("inserting run %s: %w", report.ID, err))
	}

	stmt, err := tx.Prepare(`
		INSERT INTO results(run_id, direction, point_idx, cell_index, lat, lng, h3_cell,
			reference_name, matched_name, is_match, needed_name_similarity,
			needed_street_similarity, needed_distance_fallback, distance_km)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return rollback(tx, err)
	}
	defer stmt.Close()

	for i, point := range report.Points {
		for _, ref := range point.References {
			var matchedName *string
			if ref.Match.Matched != nil {
				matchedName = &ref.Match.Matched.Name
			}

			_, err = stmt.Exec(
				report.ID,
				ref.Direction,
				i,
				point.CellIndex,
				point.Point.Lat,
				point.Point.Lng,
				point.H3Cell,
				ref.Match.Reference.Name,
				matchedName,
				ref.Match.IsMatch,
				ref.Match.NeededNameSimilarity,
				ref.Match.NeededStreetSimilarity,
				ref.Match.NeededDistanceFallback,
				ref.Match.DistanceKm,
			)
			if err != nil {
				return rollback(tx, fmt.Errorf("inserting result of run %s: %w", report.ID, err))
			}
		}
	}

	return tx.Commit()
}

// rollback aborts tx, prioritizing the rollback error when there is one.
func rollback(tx *sql.Tx, err error) error {
	if rErr := tx.Rollback(); rErr != nil {
		return rErr
	}

	return err
}

func (r *sqlReportRepository) ListReports() ([]ReportSummary, error) {
	rows, err := r.db.Query(`
		SELECT id, place_name, created_at, grid, category, points, matches, non_matches,
			failed_queries, partial
		FROM runs
		ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []ReportSummary

	for rows.Next() {
		var s ReportSummary
		if err := rows.Scan(
			&s.ID,
			&s.PlaceName,
			&s.CreatedAt,
			&s.Grid,
			&s.Category,
			&s.Points,
			&s.Matches,
			&s.NonMatches,
			&s.FailedQueries,
			&s.Partial,
		); err != nil {
			return nil, err
		}

		if total := s.Matches + s.NonMatches; total > 0 {
			s.MatchRate = float64(s.Matches) / float64(total)
		}

		summaries = append(summaries, s)
	}

	return summaries, rows.Err()
}

func (r *sqlReportRepository) GetReport(id string) (*Report, error) {
	return r.scanReport(r.db.QueryRow(`SELECT report FROM runs WHERE id = ?`, id), id)
}

func (r *sqlReportRepository) LatestForPlace(placeName string) (*Report, error) {
	row := r.db.QueryRow(`
		SELECT report
		FROM runs
		WHERE lower(place_name) = lower(?)
		ORDER BY created_at DESC
		LIMIT 1
	`, placeName)

	return r.scanReport(row, placeName)
}

func (r *sqlReportRepository) scanReport(row *sql.Row, key string) (*Report, error) {
	var payload string
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrReportNotFound, key)
		}

		return nil, err
	}

	var report Report
	if err := json.Unmarshal([]byte(payload), &report); err != nil {
		return nil, fmt.Errorf("decoding report %s: %w", key, err)
	}

	return &report, nil
}

func (r *sqlReportRepository) CellStats(id string) ([]CellStat, error) {
	var exists bool
	if err := r.db.QueryRow(`SELECT count(*) > 0 FROM runs WHERE id = ?`, id).Scan(&exists); err != nil {
		return nil, err
	}

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrReportNotFound, id)
	}

	rows, err := r.db.Query(`
		SELECT
			cell_index,
			count(DISTINCT point_idx),
			count(DISTINCT h3_cell),
			count(*),
			count_if(is_match),
			count_if(needed_name_similarity),
			count_if(needed_street_similarity),
			count_if(needed_distance_fallback)
		FROM results
		WHERE run_id = ? AND direction = ?
		GROUP BY cell_index
		ORDER BY cell_index
	`, id, DirectionAToB)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := []CellStat{}

	for rows.Next() {
		var s CellStat
		if err := rows.Scan(
			&s.CellIndex,
			&s.Points,
			&s.H3Cells,
			&s.References,
			&s.Matches,
			&s.NeededName,
			&s.NeededStreet,
			&s.NeededDistance,
		); err != nil {
			return nil, err
		}

		if s.References > 0 {
			s.MatchRate = float64(s.Matches) / float64(s.References)
		}

		stats = append(stats, s)
	}

	return stats, rows.Err()
}
