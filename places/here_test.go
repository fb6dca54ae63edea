// Copyright 2025 The POIBench Authors
// SPDX-License-Identifier: Apache-2.0

package places

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcodagnone/poibench/spatial"
)

const hereItems = `{"items":[
  {"id":"here:pds:place:1","title":"Central Park Zoo",
   "address":{"label":"Central Park Zoo, 64th St, New York, NY 10065, United States","street":"E 64th St","houseNumber":"964"},
   "position":{"lat":40.76781,"lng":-73.97185},
   "categories":[{"id":"350-3500-0233"},{"id":"550-5510-0202","primary":true}]},
  {"id":"here:pds:place:2","title":"No Position"},
  {"id":"here:pds:place:3","title":"Sarabeth's",
   "address":{"label":"Sarabeth's, 40 Central Park S, New York, NY 10019"},
   "position":{"lat":40.7653,"lng":-73.9763},
   "categories":[{"id":"100-1000-0000"}]}
]}`

func newHereTestServer(t *testing.T, handler http.HandlerFunc) *HereSearch {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	h := NewHereSearch("here-key", server.Client())
	h.BrowseBaseURL = server.URL
	h.DiscoverBaseURL = server.URL

	return h
}

func TestHereSearchQuery(t *testing.T) {
	h := newHereTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		assert.Equal(t, "/browse", r.URL.Path)
		assert.Equal(t, "here-key", q.Get("apiKey"))
		assert.Equal(t, "40.7680000,-73.9720000", q.Get("at"))
		assert.Equal(t, "circle:40.7680000,-73.9720000;r=250", q.Get("in"))
		assert.Equal(t, "100", q.Get("limit"))
		assert.Equal(t, "550-5510-0202", q.Get("categories"))

		_, _ = w.Write([]byte(hereItems))
	})

	got, err := h.Query(context.Background(), Query{
		Point:        spatial.Point{Lat: 40.768, Lng: -73.972},
		RadiusMeters: 250,
		Category:     "550-5510-0202",
		Limit:        500,
	})
	require.NoError(t, err)

	want := []PlaceRecord{
		{
			Provider:         ProviderHere,
			ID:               "here:pds:place:1",
			Name:             "Central Park Zoo",
			FormattedAddress: "Central Park Zoo, 64th St, New York, NY 10065, United States",
			Street:           "E 64th St",
			HouseNumber:      "964",
			Category:         "550-5510-0202",
			Lat:              40.76781,
			Lng:              -73.97185,
		},
		{
			Provider:         ProviderHere,
			ID:               "here:pds:place:3",
			Name:             "Sarabeth's",
			FormattedAddress: "Sarabeth's, 40 Central Park S, New York, NY 10019",
			Street:           "Central Park S",
			HouseNumber:      "40",
			Category:         "100-1000-0000",
			Lat:              40.7653,
			Lng:              -73.9763,
		},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Query() mismatch (-want +got):\n%s", diff)
	}
}

func TestHereSearchLookup(t *testing.T) {
	h := newHereTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/discover", r.URL.Path)
		assert.Equal(t, "Central Park Zoo, East 64th Street", r.URL.Query().Get("q"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(hereItems))
	})

	got, err := h.Lookup(context.Background(), "Central Park Zoo", "East 64th Street", spatial.Point{Lat: 40.768, Lng: -73.972})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestHereSearchHTTPErrors(t *testing.T) {
	h := newHereTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"status":429,"title":"Too Many Requests"}`))
	})

	_, err := h.Query(context.Background(), Query{RadiusMeters: 100, Limit: 10})
	require.Error(t, err)
	assert.True(t, IsRateLimitError(err))
}
