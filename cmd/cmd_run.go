// Copyright 2025 The POIBench Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jcodagnone/poibench/bench"
	"github.com/jcodagnone/poibench/places"
	"github.com/jcodagnone/poibench/reconcile"
	"github.com/jcodagnone/poibench/spatial"
	"github.com/jcodagnone/poibench/utils/httputils"
)

const (
	googleKeyName = "google-maps-api-key"
	hereKeyName   = "here-api-key"

	defaultRatePerSecond = 10
)

var boxKeys = []string{"north", "south", "east", "west"}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Benchmark Google Places against HERE Search over a region",
	Long: `Partitions the region into a rows x cols grid, samples random points in every
cell and reconciles what both providers return around each point.

The region is either given as --north/--south/--east/--west or resolved from
--place through the Google geocoder. Every flag can also be set in poibench.yaml
or as a POIBENCH_* environment variable (POIBENCH_STREET_SIMILARITY=0.9).

$ poibench run --place "Lower Manhattan" --rows 4 --cols 4 --category Restaurant
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		v := viper.GetViper()

		categories, err := loadCategories(v)
		if err != nil {
			return err
		}

		cfg, err := runConfigFromViper(v, categories)
		if err != nil {
			return err
		}

		googleKey, hereKey := v.GetString(googleKeyName), v.GetString(hereKeyName)
		if googleKey == "" {
			return errors.New("GOOGLE_MAPS_API_KEY is not set")
		}

		if hereKey == "" {
			return errors.New("HERE_API_KEY is not set")
		}

		ctx := cmd.Context()

		if !hasBox(v) {
			geocoder := places.NewGoogleGeocoder(googleKey, newProviderClient(v, cfg.QueryTimeout))

			box, address, err := geocoder.Viewport(ctx, cfg.PlaceName)
			if err != nil {
				return fmt.Errorf("resolving %q: %w", cfg.PlaceName, err)
			}

			logger.Info().Str("place", cfg.PlaceName).Str("address", address).Stringer("center", box.Center()).Msg("Resolved region")
			cfg.Box = box
		}

		runner := bench.NewRunner(
			places.NewGooglePlaces(googleKey, newProviderClient(v, cfg.QueryTimeout)),
			places.NewHereSearch(hereKey, newProviderClient(v, cfg.QueryTimeout)),
			logger,
		)

		report, runErr := runner.Run(ctx, cfg)
		if report == nil {
			return runErr
		}

		if err := storeReport(v, report); err != nil {
			return err
		}

		printSummary(cmd, report)

		if errors.Is(runErr, context.Canceled) {
			logger.Warn().Str("id", report.ID).Msg("Run interrupted, partial report stored")
		}

		return runErr
	},
}

// runConfigFromViper reads a RunConfig from flags, environment and config file. The
// bounding box is left zero unless all four edges are set.
func runConfigFromViper(v *viper.Viper, categories *places.CategoryTable) (bench.RunConfig, error) {
	cfg := bench.DefaultRunConfig()

	cfg.PlaceName = v.GetString("place")
	cfg.Bidirectional = v.GetBool("bidirectional")
	cfg.Seed = v.GetUint64("seed")

	setInt(v, "rows", &cfg.Rows)
	setInt(v, "cols", &cfg.Cols)
	setInt(v, "samples", &cfg.SamplesPerCell)
	setInt(v, "radius", &cfg.RadiusMeters)
	setInt(v, "limit", &cfg.Limit)
	setInt(v, "concurrency", &cfg.Concurrency)
	setInt(v, "name-divisor", &cfg.Thresholds.NameToleranceDivisor)
	setFloat(v, "distance", &cfg.Thresholds.DistanceFallbackMeters)
	setFloat(v, "street-similarity", &cfg.Thresholds.StreetSimilarity)

	if v.IsSet("timeout") {
		cfg.QueryTimeout = v.GetDuration("timeout")
	}

	category, err := categories.Resolve(v.GetString("category"))
	if err != nil {
		return cfg, fmt.Errorf("%w: %w", bench.ErrInvalidConfig, err)
	}

	cfg.Category = category

	if v.IsSet("name-tolerance") {
		var steps []reconcile.ToleranceStep
		if err := v.UnmarshalKey("name-tolerance", &steps); err != nil {
			return cfg, fmt.Errorf("%w: name-tolerance: %w", bench.ErrInvalidConfig, err)
		}

		cfg.Thresholds.NameTolerance = steps
	}

	switch set := countSet(v, boxKeys); {
	case set == len(boxKeys):
		cfg.Box = spatial.BoundingBox{
			North: v.GetFloat64("north"),
			South: v.GetFloat64("south"),
			East:  v.GetFloat64("east"),
			West:  v.GetFloat64("west"),
		}
	case set > 0:
		return cfg, fmt.Errorf("%w: north, south, east and west must be given together", bench.ErrInvalidConfig)
	case cfg.PlaceName == "":
		return cfg, fmt.Errorf("%w: either a bounding box or a place name is required", bench.ErrInvalidConfig)
	}

	return cfg, nil
}

// setInt and setFloat leave the default in place unless key was given explicitly.
func setInt(v *viper.Viper, key string, dst *int) {
	if v.IsSet(key) {
		*dst = v.GetInt(key)
	}
}

func setFloat(v *viper.Viper, key string, dst *float64) {
	if v.IsSet(key) {
		*dst = v.GetFloat64(key)
	}
}

func hasBox(v *viper.Viper) bool {
	return countSet(v, boxKeys) == len(boxKeys)
}

func countSet(v *viper.Viper, keys []string) int {
	n := 0

	for _, k := range keys {
		if v.IsSet(k) {
			n++
		}
	}

	return n
}

// newProviderClient gives every adapter its own client so rate limits are per provider.
func newProviderClient(v *viper.Viper, timeout time.Duration) *http.Client {
	options := httputils.ClientOptions{
		UserAgent:     "poibench/" + Version,
		Timeout:       timeout,
		RatePerSecond: v.GetFloat64("rate"),
		Burst:         1,
	}

	if v.GetBool("trace-http") {
		trace := logger.With().Str("component", "http").Logger()
		options.Trace = &trace
	}

	return httputils.NewClient(options)
}

func storeReport(v *viper.Viper, report *bench.Report) error {
	if !v.GetBool("no-db") {
		db, repo, err := openRepository(v.GetString("db-path"), true)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := repo.SaveReport(report); err != nil {
			return fmt.Errorf("saving report: %w", err)
		}

		logger.Info().Str("id", report.ID).Str("db", v.GetString("db-path")).Msg("Report stored")
	}

	if out := v.GetString("out"); out != "" {
		if err := report.SaveJSONFile(out); err != nil {
			return err
		}

		logger.Info().Str("id", report.ID).Str("path", out).Msg("Report written")
	}

	return nil
}

func printSummary(cmd *cobra.Command, report *bench.Report) {
	w := cmd.OutOrStdout()
	s := report.Summary()

	fmt.Fprintf(w, "Run %s (%s, %s grid, %s)\n", s.ID, s.PlaceName, s.Grid, s.Category)

	for _, name := range []string{bench.DirectionAToB, bench.DirectionBToA} {
		agg, ok := report.Aggregates[name]
		if !ok {
			continue
		}

		fmt.Fprintf(w, "  %s  matches %d / %d (%.1f%%)  failed queries %d\n",
			name, agg.Matches, agg.Total(), 100*agg.MatchRate(), agg.FailedQueries)
		fmt.Fprintf(w, "        needed name similarity %d, street similarity %d, distance fallback %d\n",
			agg.NeededNameSimilarity, agg.NeededStreetSimilarity, agg.NeededDistanceFallback)

		for _, kind := range slices.Sorted(maps.Keys(agg.FailuresByKind)) {
			fmt.Fprintf(w, "        failed %s: %d\n", kind, agg.FailuresByKind[kind])
		}
	}

	for provider, stats := range report.Cache {
		fmt.Fprintf(w, "  lookups via %s: %d (%d cached)\n", provider, stats.Lookups, stats.Hits)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)

	flags := runCmd.Flags()
	flags.String("place", "", "place name; resolved to a bounding box when no box is given")
	flags.Float64("north", 0, "north edge (latitude)")
	flags.Float64("south", 0, "south edge (latitude)")
	flags.Float64("east", 0, "east edge (longitude)")
	flags.Float64("west", 0, "west edge (longitude)")
	flags.Int("rows", bench.DefaultRows, "grid rows")
	flags.Int("cols", bench.DefaultCols, "grid columns")
	flags.Int("samples", bench.DefaultSamplesPerCell, fmt.Sprintf("sample points per cell (at most %d)", spatial.MaxSamplesPerCell))
	flags.Int("radius", bench.DefaultRadiusMeters, "search radius in meters")
	flags.Int("limit", bench.DefaultLimit, "maximum places per provider query")
	flags.String("category", "Restaurant", "place type label, see 'poibench categories'")
	flags.Float64("distance", reconcile.DefaultThresholds().DistanceFallbackMeters, "distance fallback threshold in meters")
	flags.Float64("street-similarity", reconcile.DefaultThresholds().StreetSimilarity, "minimum street token similarity")
	flags.Int("name-divisor", reconcile.DefaultThresholds().NameToleranceDivisor, "name tolerance divisor for long names")
	flags.Int("concurrency", bench.DefaultConcurrency, "sample points processed in parallel")
	flags.Duration("timeout", bench.DefaultQueryTimeout, "per provider query timeout")
	flags.Bool("bidirectional", false, "also reconcile HERE records against Google")
	flags.Uint64("seed", 0, "sampling seed, 0 picks a random one")
	flags.Float64("rate", defaultRatePerSecond, "requests per second per provider")
	flags.Bool("trace-http", false, "log every provider request and response")
	flags.String("out", "", "also write the report as JSON to this file")
	flags.Bool("no-db", false, "do not store the report in the database")
}
