// Copyright 2025 The POIBench Authors
// SPDX-License-Identifier: Apache-2.0

package bench

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"

	"github.com/jcodagnone/poibench/places"
	"github.com/jcodagnone/poibench/reconcile"
	"github.com/jcodagnone/poibench/spatial"
)

// progressLogEvery is how often, in points, progress is logged without a terminal.
const progressLogEvery = 25

// Runner executes benchmark runs of provider A against provider B. When a provider
// also implements places.Corroborator, references from the other provider are
// looked up by name and address instead of compared with its nearby results.
type Runner struct {
	providerA places.Provider
	providerB places.Provider
	logger    zerolog.Logger

	// Progress enables the progress bar. It defaults to whether stderr is a terminal.
	Progress bool
	now      func() time.Time
}

// NewRunner creates a runner.
func NewRunner(providerA, providerB places.Provider, logger zerolog.Logger) *Runner {
	return &Runner{
		providerA: providerA,
		providerB: providerB,
		logger:    logger,
		Progress:  isatty.IsTerminal(os.Stderr.Fd()),
		now:       time.Now,
	}
}

// direction is one side of the comparison: references of one provider checked
// against candidates of the other.
type direction struct {
	name       string
	aggregator *reconcile.Aggregator
	lookup     *places.LookupCache // nil when the candidate provider cannot corroborate
}

// run holds the state shared by the workers of one Run.
type run struct {
	cfg      RunConfig
	engine   *reconcile.Engine
	forward  direction
	backward *direction
	logger   zerolog.Logger

	// requests bounds the provider requests in flight across all points.
	requests chan struct{}
}

// acquire takes a request slot, or fails when ctx is done first.
func (s *run) acquire(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case s.requests <- struct{}{}:
		return nil
	}
}

func (s *run) release() {
	<-s.requests
}

// Run partitions the region, samples points and reconciles every place found. It
// returns ErrInvalidConfig before issuing any query when cfg is unusable. Provider
// failures never abort the run; they are logged and counted. When ctx is cancelled
// no further point is dispatched and the partial report is returned with ctx.Err().
// cfg.Concurrency bounds both the points being worked on and the provider requests,
// nearby queries and lookups alike, in flight at once.
func (r *Runner) Run(ctx context.Context, cfg RunConfig) (*Report, error) {
	if requested := cfg.SamplesPerCell; requested != spatial.ClampSamples(requested) {
		r.logger.Warn().
			Int("requested", requested).
			Int("used", spatial.ClampSamples(requested)).
			Msg("samples per cell out of range, clamping")
	}

	cfg, err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	cells, err := spatial.Partition(cfg.Box, cfg.Rows, cfg.Cols)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	var src *rand.Rand
	if cfg.Seed != 0 {
		src = rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))
	}

	points := spatial.NewSampler(src).SampleGrid(cells, cfg.SamplesPerCell)

	report := &Report{
		ID:        uuid.NewString(),
		PlaceName: cfg.PlaceName,
		CreatedAt: r.now().UTC(),
		ProviderA: r.providerA.Name(),
		ProviderB: r.providerB.Name(),
		Config:    cfg,
		Cells:     cells,
	}

	state := &run{
		cfg:    cfg,
		engine: reconcile.NewEngine(cfg.Thresholds),
		forward: direction{
			name:       DirectionAToB,
			aggregator: reconcile.NewAggregator(),
			lookup:     lookupCache(r.providerB),
		},
		logger:   r.logger.With().Str("run", report.ID).Logger(),
		requests: make(chan struct{}, cfg.Concurrency),
	}

	if cfg.Bidirectional {
		state.backward = &direction{
			name:       DirectionBToA,
			aggregator: reconcile.NewAggregator(),
			lookup:     lookupCache(r.providerA),
		}
	}

	state.logger.Info().
		Str("place", cfg.PlaceName).
		Int("cells", len(cells)).
		Int("points", len(points)).
		Int("concurrency", cfg.Concurrency).
		Msg("Starting run")

	var bar *progressbar.ProgressBar
	if r.Progress {
		bar = progressbar.NewOptions(len(points),
			progressbar.OptionSetDescription("Benchmarking "+cfg.PlaceName),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		completed int
	)

	results := make([]*PointResult, len(points))
	semaphore := make(chan struct{}, cfg.Concurrency)

dispatch:
	for i, point := range points {
		select {
		case <-ctx.Done():
			break dispatch
		case semaphore <- struct{}{}:
		}

		// select picks at random when a slot frees up after cancellation
		if ctx.Err() != nil {
			<-semaphore

			break
		}

		wg.Add(1)

		go func() {
			defer wg.Done()
			defer func() { <-semaphore }()

			result := r.runPoint(ctx, state, point)
			results[i] = &result

			mu.Lock()
			completed++
			n := completed
			mu.Unlock()

			if bar != nil {
				_ = bar.Add(1)
			} else if n%progressLogEvery == 0 {
				state.logger.Info().Int("done", n).Int("total", len(points)).Msg("Progress")
			}
		}()
	}

	wg.Wait()

	for _, result := range results {
		if result != nil {
			report.Points = append(report.Points, *result)
		}
	}

	report.Aggregates = map[string]reconcile.RunAggregate{DirectionAToB: state.forward.aggregator.Snapshot()}
	report.Cache = map[string]places.CacheStats{}

	if state.forward.lookup != nil {
		report.Cache[r.providerB.Name()] = state.forward.lookup.Stats()
	}

	if state.backward != nil {
		report.Aggregates[DirectionBToA] = state.backward.aggregator.Snapshot()

		if state.backward.lookup != nil {
			report.Cache[r.providerA.Name()] = state.backward.lookup.Stats()
		}
	}

	forward := report.Forward()
	state.logger.Info().
		Int("points", len(report.Points)).
		Int("matches", forward.Matches).
		Int("non_matches", forward.NonMatches).
		Int("failed_queries", forward.FailedQueries).
		Interface("failures_by_kind", forward.FailuresByKind).
		Float64("match_rate", forward.MatchRate()).
		Msg("Run complete")

	if err := ctx.Err(); err != nil {
		report.Partial = true

		return report, err
	}

	return report, nil
}

func lookupCache(p places.Provider) *places.LookupCache {
	if c, ok := p.(places.Corroborator); ok {
		return places.NewLookupCache(c)
	}

	return nil
}

// runPoint queries both providers at a point and reconciles what they returned.
func (r *Runner) runPoint(ctx context.Context, state *run, point spatial.SamplePoint) PointResult {
	result := PointResult{
		CellIndex: point.CellIndex,
		Point:     point.Point,
		H3Cell:    point.H3Cell,
	}

	var (
		wg         sync.WaitGroup
		errA, errB error
	)

	wg.Add(2)

	go func() {
		defer wg.Done()

		result.ProviderAPlaces, errA = r.query(ctx, state, r.providerA, state.cfg.Category.ProviderA, point.Point)
	}()

	go func() {
		defer wg.Done()

		result.ProviderBPlaces, errB = r.query(ctx, state, r.providerB, state.cfg.Category.ProviderB, point.Point)
	}()

	wg.Wait()

	if ctx.Err() != nil {
		result.Error = ctx.Err().Error()

		return result
	}

	// nearby failures are counted once, in the forward direction
	for _, err := range []error{errA, errB} {
		if err != nil {
			kind := places.Kind(err).String()

			state.forward.aggregator.RecordFailure(kind)
			state.logger.Warn().
				Err(err).
				Str("kind", kind).
				Int("cell", point.CellIndex).
				Stringer("point", point.Point).
				Msg("Provider query failed")
		}
	}

	if err := errors.Join(errA, errB); err != nil {
		result.Error = err.Error()
	}

	result.References = r.reconcileAll(ctx, state, state.forward, point, result.ProviderAPlaces, result.ProviderBPlaces)

	if state.backward != nil {
		result.References = append(result.References,
			r.reconcileAll(ctx, state, *state.backward, point, result.ProviderBPlaces, result.ProviderAPlaces)...)
	}

	return result
}

func (r *Runner) query(ctx context.Context, state *run, p places.Provider, category string, at spatial.Point) ([]places.PlaceRecord, error) {
	if err := state.acquire(ctx); err != nil {
		return nil, err
	}
	defer state.release()

	// the timeout starts once the request holds a slot
	ctx, cancel := context.WithTimeout(ctx, state.cfg.QueryTimeout)
	defer cancel()

	records, err := p.Query(ctx, places.Query{
		Point:        at,
		RadiusMeters: state.cfg.RadiusMeters,
		Category:     category,
		Limit:        state.cfg.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("%s nearby search: %w", p.Name(), err)
	}

	return records, nil
}

// reconcileAll scores every reference against the candidates of the other provider.
func (r *Runner) reconcileAll(
	ctx context.Context,
	state *run,
	dir direction,
	point spatial.SamplePoint,
	references, nearby []places.PlaceRecord,
) []ReferenceResult {
	ret := make([]ReferenceResult, 0, len(references))

	for _, ref := range references {
		candidates := nearby

		if dir.lookup != nil && ref.FormattedAddress != "" {
			if err := state.acquire(ctx); err != nil {
				return ret
			}

			lookupCtx, cancel := context.WithTimeout(ctx, state.cfg.QueryTimeout)

			var err error

			candidates, err = dir.lookup.Lookup(lookupCtx, ref.Name, ref.FormattedAddress, point.Point)

			cancel()
			state.release()

			if err != nil {
				if ctx.Err() != nil {
					return ret
				}

				kind := places.Kind(err).String()

				dir.aggregator.RecordFailure(kind)
				state.logger.Warn().
					Err(err).
					Str("kind", kind).
					Str("direction", dir.name).
					Str("reference", ref.Name).
					Msg("Lookup failed")

				candidates = nil
			}
		}

		// distances are measured from the sample point, not the reference record
		match := state.engine.Reconcile(ref, candidates, point.Point)
		dir.aggregator.Accumulate(match)

		ret = append(ret, ReferenceResult{Direction: dir.name, Match: match})
	}

	return ret
}
