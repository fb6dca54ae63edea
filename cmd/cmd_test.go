// Copyright 2025 The POIBench Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcodagnone/poibench/bench"
	"github.com/jcodagnone/poibench/places"
	"github.com/jcodagnone/poibench/reconcile"
	"github.com/jcodagnone/poibench/spatial"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	l, err := newLogger(&buf, "warn", "json")
	require.NoError(t, err)

	l.Info().Msg("hidden")
	l.Warn().Str("k", "v").Msg("shown")

	var event map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &event))
	assert.Equal(t, "warn", event["level"])
	assert.Equal(t, "v", event["k"])
	assert.Equal(t, "shown", event["message"])

	l, err = newLogger(&buf, "", "")
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, l.GetLevel())

	_, err = newLogger(&buf, "loud", "json")
	assert.Error(t, err)

	_, err = newLogger(&buf, "info", "xml")
	assert.Error(t, err)
}

func TestRunConfigFromViperDefaults(t *testing.T) {
	v := viper.New()
	v.Set("place", "Montevideo")

	cfg, err := runConfigFromViper(v, places.DefaultCategoryTable())
	require.NoError(t, err)

	want := bench.DefaultRunConfig()
	want.PlaceName = "Montevideo"

	assert.Equal(t, want, cfg)
	assert.Equal(t, spatial.BoundingBox{}, cfg.Box, "box is resolved from the place later")
}

func TestRunConfigFromViperOverrides(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(`
place: Lower Manhattan
north: 40.75
south: 40.70
east: -73.97
west: -74.02
rows: 4
cols: 5
samples: 3
radius: 250
category: gas station
timeout: 3s
seed: 42
bidirectional: true
street-similarity: 0.9
distance: 50
name-tolerance:
  - max_tokens: 3
    allowed: 0
  - max_tokens: 6
    allowed: 1
`)))

	cfg, err := runConfigFromViper(v, places.DefaultCategoryTable())
	require.NoError(t, err)

	assert.Equal(t, spatial.BoundingBox{North: 40.75, South: 40.70, East: -73.97, West: -74.02}, cfg.Box)
	assert.Equal(t, 4, cfg.Rows)
	assert.Equal(t, 5, cfg.Cols)
	assert.Equal(t, 3, cfg.SamplesPerCell)
	assert.Equal(t, 250, cfg.RadiusMeters)
	assert.Equal(t, "Gas station", cfg.Category.Label)
	assert.Equal(t, 3*time.Second, cfg.QueryTimeout)
	assert.Equal(t, uint64(42), cfg.Seed)
	assert.True(t, cfg.Bidirectional)
	assert.InDelta(t, 0.9, cfg.Thresholds.StreetSimilarity, 1e-9)
	assert.InDelta(t, 50, cfg.Thresholds.DistanceFallbackMeters, 1e-9)
	assert.Equal(t, []reconcile.ToleranceStep{{MaxTokens: 3, Allowed: 0}, {MaxTokens: 6, Allowed: 1}}, cfg.Thresholds.NameTolerance)

	_, err = cfg.Validate()
	assert.NoError(t, err)
}

func TestRunConfigFromViperErrors(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]any
	}{
		{"no region", map[string]any{}},
		{"partial box", map[string]any{"north": 1.0, "south": 0.0}},
		{"unknown category", map[string]any{"place": "x", "category": "Volcano"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			for k, val := range tt.values {
				v.Set(k, val)
			}

			_, err := runConfigFromViper(v, places.DefaultCategoryTable())
			assert.True(t, errors.Is(err, bench.ErrInvalidConfig), "got %v", err)
		})
	}
}

func TestNormalizeLines(t *testing.T) {
	var out bytes.Buffer

	require.NoError(t, normalizeLines(strings.NewReader("Café  Zoë\n"), &out))
	assert.Equal(t, "Café  Zoë\tcafe zoe\t[\"cafe\",\"zoe\"]\n", out.String())
}

func TestReconcileLines(t *testing.T) {
	ref := places.PlaceRecord{Name: "Joe's Pizza", FormattedAddress: "7 Carmine St, New York"}
	at := spatial.Point{Lat: 40.7306, Lng: -74.0022}
	input := `{"provider":"here","name":"Joe's Pizza","street":"Carmine St","house_number":"7","lat":40.7305,"lng":-74.0021}` + "\n\n"

	var out bytes.Buffer
	require.NoError(t, reconcileLines(strings.NewReader(input), &out, ref, at, reconcile.NewEngine(reconcile.DefaultThresholds())))

	var result reconcile.MatchResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.True(t, result.IsMatch)
	require.NotNil(t, result.Matched)
	assert.Equal(t, "here", result.Matched.Provider)

	err := reconcileLines(strings.NewReader("not json\n"), &out, ref, at, reconcile.NewEngine(reconcile.DefaultThresholds()))
	assert.Error(t, err)
}

func TestReconcileLinesMeasuresFromTheSamplePoint(t *testing.T) {
	ref := places.PlaceRecord{Name: "Joe's Pizza"}
	input := `{"provider":"here","name":"Joe's Pizza","lat":40.7305,"lng":-74.0021}`
	engine := reconcile.NewEngine(reconcile.DefaultThresholds())

	var out bytes.Buffer
	require.NoError(t, reconcileLines(strings.NewReader(input), &out, ref, spatial.Point{Lat: 40.7306, Lng: -74.0022}, engine))

	var near reconcile.MatchResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &near))
	assert.True(t, near.IsMatch)
	assert.True(t, near.NeededDistanceFallback)

	out.Reset()
	require.NoError(t, reconcileLines(strings.NewReader(input), &out, ref, spatial.Point{Lat: 40.7128, Lng: -74.0060}, engine))

	var far reconcile.MatchResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &far))
	assert.False(t, far.IsMatch)
	assert.False(t, far.NeededDistanceFallback)
}

func TestWriteSummaries(t *testing.T) {
	var out bytes.Buffer

	err := writeSummaries(&out, []bench.ReportSummary{{
		ID:         "r1",
		PlaceName:  "Montevideo",
		CreatedAt:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Grid:       "3x3",
		Category:   "Restaurant",
		Points:     18,
		Matches:    3,
		NonMatches: 1,
		MatchRate:  0.75,
		Partial:    true,
	}})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "r1*"))
	assert.Contains(t, lines[1], "2025-06-01 12:00:00")
	assert.Contains(t, lines[1], "75.0%")
}
