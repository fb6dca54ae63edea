// Copyright 2025 The POIBench Authors
// SPDX-License-Identifier: Apache-2.0

package bench

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jcodagnone/poibench/places"
	"github.com/jcodagnone/poibench/reconcile"
	"github.com/jcodagnone/poibench/spatial"
)

// testBox is a ~1 km box in lower Manhattan.
var testBox = spatial.BoundingBox{North: 40.7180, South: 40.7080, East: -73.9990, West: -74.0110}

var (
	joesA = places.PlaceRecord{
		Provider: "a", ID: "a1", Name: "Joe's Pizza", FormattedAddress: "7 Carmine St, New York",
		Lat: 40.73055, Lng: -74.00213,
	}
	starbucksA = places.PlaceRecord{
		Provider: "a", ID: "a2", Name: "Starbucks", FormattedAddress: "150 Varick St, New York",
		Lat: 40.72610, Lng: -74.00570,
	}
	joesB = places.PlaceRecord{
		Provider: "b", ID: "b1", Name: "Joe's Pizza", FormattedAddress: "7 Carmine St, New York",
		Street: "Carmine St", HouseNumber: "7",
		Lat: 40.73060, Lng: -74.00210,
	}
)

// fakeProvider returns the same records wherever it is queried. With atQuery set
// the records are moved onto the queried point.
type fakeProvider struct {
	name    string
	records []places.PlaceRecord
	atQuery bool
	err     error
	delay   time.Duration
	// onQuery runs at the start of every query.
	onQuery func()

	queries atomic.Int32
	gauge   gauge
	// shared, when set, also counts the requests of other providers.
	shared *gauge

	mu         sync.Mutex
	categories []string
}

// gauge tracks the highest number of concurrent callers.
type gauge struct {
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (g *gauge) enter() func() {
	n := g.inFlight.Add(1)

	for {
		seen := g.maxSeen.Load()
		if n <= seen || g.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	return func() { g.inFlight.Add(-1) }
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Query(ctx context.Context, q places.Query) ([]places.PlaceRecord, error) {
	f.queries.Add(1)

	defer f.gauge.enter()()

	if f.shared != nil {
		defer f.shared.enter()()
	}

	f.mu.Lock()
	f.categories = append(f.categories, q.Category)
	f.mu.Unlock()

	if f.onQuery != nil {
		f.onQuery()
	}

	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}

	if f.err != nil {
		return nil, f.err
	}

	if !f.atQuery {
		return f.records, nil
	}

	ret := slices.Clone(f.records)
	for i := range ret {
		ret[i].Lat, ret[i].Lng = q.Point.Lat, q.Point.Lng
	}

	return ret, nil
}

// fakeCorroborator is a fakeProvider that also answers lookups.
type fakeCorroborator struct {
	*fakeProvider

	lookups atomic.Int32
	found   []places.PlaceRecord
}

func (f *fakeCorroborator) Lookup(_ context.Context, _, _ string, _ spatial.Point) ([]places.PlaceRecord, error) {
	f.lookups.Add(1)

	return f.found, nil
}

func testConfig() RunConfig {
	cfg := DefaultRunConfig()
	cfg.PlaceName = "Lower Manhattan"
	cfg.Box = testBox
	cfg.Rows, cfg.Cols = 2, 2
	cfg.SamplesPerCell = 1
	cfg.Concurrency = 2
	cfg.QueryTimeout = time.Second
	cfg.Seed = 42
	cfg.Category = places.PlaceType{Label: "Restaurant", ProviderA: "restaurant", ProviderB: "100-1000-0000"}

	return cfg
}

// sampleReport builds a stored-looking report without running anything.
func sampleReport(id, place string, createdAt time.Time) *Report {
	cfg := testConfig()
	cells, _ := spatial.Partition(cfg.Box, cfg.Rows, cfg.Cols)

	matched := joesB
	engine := reconcile.NewEngine(cfg.Thresholds)

	joes := engine.Reconcile(joesA, []places.PlaceRecord{joesB}, cells[0].Center)
	starbucks := engine.Reconcile(starbucksA, []places.PlaceRecord{joesB}, cells[0].Center)

	agg := reconcile.RunAggregate{}
	agg.Add(joes)
	agg.Add(starbucks)
	agg.Add(joes)

	return &Report{
		ID:        id,
		PlaceName: place,
		CreatedAt: createdAt,
		ProviderA: "a",
		ProviderB: "b",
		Config:    cfg,
		Cells:     cells,
		Points: []PointResult{
			{
				CellIndex: 1,
				Point:     cells[0].Center,
				H3Cell:    617733122422996991,
				References: []ReferenceResult{
					{Direction: DirectionAToB, Match: joes},
					{Direction: DirectionAToB, Match: starbucks},
				},
				ProviderAPlaces: []places.PlaceRecord{joesA, starbucksA},
				ProviderBPlaces: []places.PlaceRecord{matched},
			},
			{
				CellIndex: 4,
				Point:     cells[3].Center,
				H3Cell:    617733122423259135,
				References: []ReferenceResult{
					{Direction: DirectionAToB, Match: joes},
					{Direction: DirectionBToA, Match: joes},
				},
				ProviderAPlaces: []places.PlaceRecord{joesA},
				ProviderBPlaces: []places.PlaceRecord{joesB},
			},
			{
				CellIndex: 2,
				Point:     cells[1].Center,
				Error:     "b nearby search: boom",
			},
		},
		Aggregates: map[string]reconcile.RunAggregate{DirectionAToB: agg},
		Cache:      map[string]places.CacheStats{"b": {Lookups: 3, Hits: 2, Misses: 1, Entries: 1}},
	}
}
