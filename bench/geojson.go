// Copyright 2025 The POIBench Authors
// SPDX-License-Identifier: Apache-2.0

package bench

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/uber/h3-go/v4"
)

// Feature kinds of ReportGeoJSON.
const (
	FeatureCell      = "cell"
	FeatureSample    = "sample"
	FeatureReference = "reference"
)

// ReportGeoJSON renders a report as a FeatureCollection: one polygon per grid cell,
// one point per sample point and one point per reconciled reference.
func ReportGeoJSON(report *Report) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for _, cell := range report.Cells {
		f := geojson.NewFeature(cell.Bounds.Bound().ToPolygon())
		f.Properties["kind"] = FeatureCell
		f.Properties["cell_index"] = cell.Index
		f.Properties["row"] = cell.Row
		f.Properties["col"] = cell.Col
		fc.Append(f)
	}

	for _, point := range report.Points {
		var matches, nonMatches int

		for _, ref := range point.References {
			if ref.Direction != DirectionAToB {
				continue
			}

			if ref.Match.IsMatch {
				matches++
			} else {
				nonMatches++
			}
		}

		f := geojson.NewFeature(point.Point.Orb())
		f.Properties["kind"] = FeatureSample
		f.Properties["cell_index"] = point.CellIndex
		f.Properties["matches"] = matches
		f.Properties["non_matches"] = nonMatches

		if point.H3Cell != 0 {
			f.Properties["h3"] = h3.Cell(point.H3Cell).String()
		}

		if point.Error != "" {
			f.Properties["error"] = point.Error
		}

		fc.Append(f)

		for _, ref := range point.References {
			m := ref.Match

			f := geojson.NewFeature(orb.Point{m.Reference.Lng, m.Reference.Lat})
			f.Properties["kind"] = FeatureReference
			f.Properties["cell_index"] = point.CellIndex
			f.Properties["direction"] = ref.Direction
			f.Properties["name"] = m.Reference.Name
			f.Properties["provider"] = m.Reference.Provider
			f.Properties["is_match"] = m.IsMatch
			f.Properties["needed_name_similarity"] = m.NeededNameSimilarity
			f.Properties["needed_street_similarity"] = m.NeededStreetSimilarity
			f.Properties["needed_distance_fallback"] = m.NeededDistanceFallback

			if m.Matched != nil {
				f.Properties["matched_name"] = m.Matched.Name
				f.Properties["distance_km"] = m.DistanceKm
			}

			fc.Append(f)
		}
	}

	return fc
}
