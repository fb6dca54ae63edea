// Copyright 2025 The POIBench Authors
// SPDX-License-Identifier: Apache-2.0

// Package places defines what the benchmark needs from a places provider and
// ships adapters for the Google Places and HERE Search APIs.
package places

import (
	"context"
	"fmt"

	"github.com/jcodagnone/poibench/spatial"
)

// Provider tags.
const (
	ProviderGoogle = "google"
	ProviderHere   = "here"
)

// PlaceRecord is an immutable snapshot of a place as returned by a provider.
type PlaceRecord struct {
	Provider         string  `json:"provider"`
	ID               string  `json:"id,omitempty"`
	Name             string  `json:"name"`
	FormattedAddress string  `json:"formatted_address,omitempty"`
	Street           string  `json:"street,omitempty"`
	HouseNumber      string  `json:"house_number,omitempty"`
	Category         string  `json:"category,omitempty"`
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
}

// Point returns the record coordinates.
func (r PlaceRecord) Point() spatial.Point {
	return spatial.Point{Lat: r.Lat, Lng: r.Lng}
}

// String returns a short human readable form of the record.
func (r PlaceRecord) String() string {
	return fmt.Sprintf("%s: %s [%s] %v", r.Provider, r.Name, r.FormattedAddress, r.Point())
}

// Query is a nearby search around a point. Category must already be expressed in
// the provider's own vocabulary (see CategoryTable).
type Query struct {
	Point        spatial.Point
	RadiusMeters int
	Category     string
	Limit        int
}

// Provider returns the places a provider knows around a point.
type Provider interface {
	// Name returns the provider tag stamped on its records.
	Name() string

	// Query runs a nearby search. Implementations return at most q.Limit records.
	Query(ctx context.Context, q Query) ([]PlaceRecord, error)
}

// Corroborator looks up a specific place (by name and address) near a point. It is
// how a record of one provider gets confirmed independently by the other one.
type Corroborator interface {
	Lookup(ctx context.Context, name, address string, near spatial.Point) ([]PlaceRecord, error)
}
