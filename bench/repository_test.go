// Copyright 2025 The POIBench Authors
// SPDX-License-Identifier: Apache-2.0

package bench

import (
	"bytes"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) (*sql.DB, ReportRepository) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	repo := NewReportRepository(db)
	if err := repo.CreateSchema(); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return db, repo
}

func TestCreateSchema(t *testing.T) {
	db, _ := setupTestDB(t)
	defer db.Close()

	for _, table := range []string{"runs", "results"} {
		var tableName string

		err := db.QueryRow("SELECT table_name FROM information_schema.tables WHERE table_name = ?", table).Scan(&tableName)
		if err != nil {
			t.Fatalf("Table %s not created: %v", table, err)
		}
	}
}

func TestSaveAndGetReport(t *testing.T) {
	db, repo := setupTestDB(t)
	defer db.Close()

	want := sampleReport("r1", "Lower Manhattan", time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, repo.SaveReport(want))

	got, err := repo.GetReport("r1")
	require.NoError(t, err)

	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("GetReport() mismatch (-want +got):\n%s", diff)
	}

	var results int
	require.NoError(t, db.QueryRow("SELECT count(*) FROM results WHERE run_id = 'r1'").Scan(&results))
	assert.Equal(t, 4, results)

	_, err = repo.GetReport("missing")
	assert.True(t, errors.Is(err, ErrReportNotFound))

	assert.Error(t, repo.SaveReport(want), "ids are unique")
}

func TestListReportsAndLatestForPlace(t *testing.T) {
	db, repo := setupTestDB(t)
	defer db.Close()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.SaveReport(sampleReport("old", "Montevideo", base)))
	require.NoError(t, repo.SaveReport(sampleReport("mid", "Lower Manhattan", base.Add(time.Hour))))
	require.NoError(t, repo.SaveReport(sampleReport("new", "Montevideo", base.Add(2*time.Hour))))

	summaries, err := repo.ListReports()
	require.NoError(t, err)
	require.Len(t, summaries, 3)

	assert.Equal(t, []string{"new", "mid", "old"}, []string{summaries[0].ID, summaries[1].ID, summaries[2].ID})
	assert.Equal(t, "2x2", summaries[0].Grid)
	assert.Equal(t, "Restaurant", summaries[0].Category)
	assert.Equal(t, 3, summaries[0].Points)
	assert.Equal(t, 2, summaries[0].Matches)
	assert.Equal(t, 1, summaries[0].NonMatches)
	assert.InDelta(t, 2.0/3.0, summaries[0].MatchRate, 1e-9)
	assert.True(t, summaries[0].CreatedAt.Equal(base.Add(2*time.Hour)))

	latest, err := repo.LatestForPlace("montevideo")
	require.NoError(t, err)
	assert.Equal(t, "new", latest.ID)

	_, err = repo.LatestForPlace("Atlantis")
	assert.True(t, errors.Is(err, ErrReportNotFound))
}

func TestCellStats(t *testing.T) {
	db, repo := setupTestDB(t)
	defer db.Close()

	require.NoError(t, repo.SaveReport(sampleReport("r1", "Lower Manhattan", time.Now().UTC())))

	stats, err := repo.CellStats("r1")
	require.NoError(t, err)

	want := []CellStat{
		{CellIndex: 1, Points: 1, H3Cells: 1, References: 2, Matches: 1, MatchRate: 0.5},
		{CellIndex: 4, Points: 1, H3Cells: 1, References: 1, Matches: 1, MatchRate: 1},
	}

	if diff := cmp.Diff(want, stats); diff != "" {
		t.Errorf("CellStats() mismatch (-want +got):\n%s", diff)
	}

	_, err = repo.CellStats("missing")
	assert.True(t, errors.Is(err, ErrReportNotFound))
}

func TestReportJSONRoundTrip(t *testing.T) {
	want := sampleReport("r1", "Lower Manhattan", time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	var buf bytes.Buffer
	require.NoError(t, want.WriteJSON(&buf))
	assert.Contains(t, buf.String(), `"direction": "A->B"`)

	got, err := ReadReport(&buf)
	require.NoError(t, err)

	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("ReadReport() mismatch (-want +got):\n%s", diff)
	}
}
