// Copyright 2025 The POIBench Authors
// SPDX-License-Identifier: Apache-2.0

package places

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/jcodagnone/poibench/spatial"
)

// HERE Search endpoints.
const (
	HereBrowseBaseURL   = "https://browse.search.hereapi.com/v1"
	HereDiscoverBaseURL = "https://discover.search.hereapi.com/v1"
)

// hereMaxLimit is the largest page HERE Search serves.
const hereMaxLimit = 100

// HereSearch queries the HERE Geocoding & Search API. Browse backs Query, Discover
// backs Lookup.
type HereSearch struct {
	apiKey     string
	httpClient *http.Client

	BrowseBaseURL   string
	DiscoverBaseURL string
	// LookupLimit is the number of Discover results considered per lookup.
	LookupLimit int
}

// NewHereSearch creates a HERE Search provider.
func NewHereSearch(apiKey string, httpClient *http.Client) *HereSearch {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &HereSearch{
		apiKey:          apiKey,
		httpClient:      httpClient,
		BrowseBaseURL:   HereBrowseBaseURL,
		DiscoverBaseURL: HereDiscoverBaseURL,
		LookupLimit:     5,
	}
}

type hereItem struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Address struct {
		Label       string `json:"label"`
		Street      string `json:"street"`
		HouseNumber string `json:"houseNumber"`
	} `json:"address"`
	Position *struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"position"`
	Categories []struct {
		ID      string `json:"id"`
		Primary bool   `json:"primary"`
	} `json:"categories"`
}

type hereResponse struct {
	Items []hereItem `json:"items"`
}

// Name implements Provider.
func (h *HereSearch) Name() string {
	return ProviderHere
}

// Query implements Provider using Browse. HERE serves a single page, so Limit is
// capped to its maximum page size.
func (h *HereSearch) Query(ctx context.Context, q Query) ([]PlaceRecord, error) {
	limit := q.Limit
	if limit <= 0 || limit > hereMaxLimit {
		limit = hereMaxLimit
	}

	at := latLng(q.Point.Lat, q.Point.Lng)

	params := url.Values{}
	params.Set("at", at)
	params.Set("in", fmt.Sprintf("circle:%s;r=%d", at, q.RadiusMeters))
	params.Set("limit", strconv.Itoa(limit))
	params.Set("apiKey", h.apiKey)

	if q.Category != "" {
		params.Set("categories", q.Category)
	}

	var resp hereResponse
	if err := getJSON(ctx, h.httpClient, ProviderHere, h.BrowseBaseURL, "/browse", params, &resp); err != nil {
		return nil, err
	}

	return hereRecords(resp.Items), nil
}

// Lookup implements Corroborator using Discover with q = "name, address".
func (h *HereSearch) Lookup(ctx context.Context, name, address string, near spatial.Point) ([]PlaceRecord, error) {
	q := name
	if address != "" {
		q = name + ", " + address
	}

	params := url.Values{}
	params.Set("q", q)
	params.Set("at", latLng(near.Lat, near.Lng))
	params.Set("limit", strconv.Itoa(max(h.LookupLimit, 1)))
	params.Set("apiKey", h.apiKey)

	var resp hereResponse
	if err := getJSON(ctx, h.httpClient, ProviderHere, h.DiscoverBaseURL, "/discover", params, &resp); err != nil {
		return nil, err
	}

	return hereRecords(resp.Items), nil
}

// hereRecords converts items, skipping the ones without a position.
func hereRecords(items []hereItem) []PlaceRecord {
	ret := make([]PlaceRecord, 0, len(items))

	for _, item := range items {
		if item.Position == nil {
			continue
		}

		var category string

		for i, c := range item.Categories {
			if i == 0 || c.Primary {
				category = c.ID
			}

			if c.Primary {
				break
			}
		}

		record := PlaceRecord{
			Provider:         ProviderHere,
			ID:               item.ID,
			Name:             item.Title,
			FormattedAddress: item.Address.Label,
			Street:           item.Address.Street,
			HouseNumber:      item.Address.HouseNumber,
			Category:         category,
			Lat:              item.Position.Lat,
			Lng:              item.Position.Lng,
		}

		if record.Street == "" {
			// labels start with the title: "Sarabeth's, 40 Central Park S, New York"
			street, number := SplitStreetAddress(strings.TrimPrefix(item.Address.Label, item.Title+", "))
			record.Street = street

			if record.HouseNumber == "" {
				record.HouseNumber = number
			}
		}

		ret = append(ret, record)
	}

	return ret
}
