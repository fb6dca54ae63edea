// Copyright 2025 The POIBench Authors
// SPDX-License-Identifier: Apache-2.0

package places

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/paulmach/orb"

	"github.com/jcodagnone/poibench/spatial"
)

// GoogleMapsBaseURL is the root of the Google Maps web services.
const GoogleMapsBaseURL = "https://maps.googleapis.com/maps/api"

// googleMaxPages is the number of pages Nearby Search serves at most (3 x 20).
const googleMaxPages = 3

// GooglePlaces queries the Google Places web service. Nearby Search backs Query,
// Text Search backs Lookup.
type GooglePlaces struct {
	apiKey     string
	httpClient *http.Client

	// BaseURL defaults to GoogleMapsBaseURL.
	BaseURL string
	// PageDelay is how long to wait before using a next_page_token; Google rejects
	// tokens used right after they were issued.
	PageDelay time.Duration
	// MaxPages bounds Nearby Search pagination.
	MaxPages int
}

// NewGooglePlaces creates a Google Places provider.
func NewGooglePlaces(apiKey string, httpClient *http.Client) *GooglePlaces {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &GooglePlaces{
		apiKey:     apiKey,
		httpClient: httpClient,
		BaseURL:    GoogleMapsBaseURL,
		PageDelay:  2 * time.Second,
		MaxPages:   googleMaxPages,
	}
}

type googlePlace struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	Vicinity         string   `json:"vicinity"`
	FormattedAddress string   `json:"formatted_address"`
	Types            []string `json:"types"`
	Geometry         struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
}

type googlePlacesResponse struct {
	Results       []googlePlace `json:"results"`
	NextPageToken string        `json:"next_page_token"`
	Status        string        `json:"status"` // OK, ZERO_RESULTS, OVER_QUERY_LIMIT, etc.
	ErrorMessage  string        `json:"error_message"`
}

// Name implements Provider.
func (g *GooglePlaces) Name() string {
	return ProviderGoogle
}

// Query implements Provider using Nearby Search.
func (g *GooglePlaces) Query(ctx context.Context, q Query) ([]PlaceRecord, error) {
	fetch := func(ctx context.Context, token string) ([]PlaceRecord, string, error) {
		params := url.Values{}
		params.Set("key", g.apiKey)

		if token != "" {
			if err := sleepCtx(ctx, g.PageDelay); err != nil {
				return nil, "", err
			}

			params.Set("pagetoken", token)
		} else {
			params.Set("location", latLng(q.Point.Lat, q.Point.Lng))
			params.Set("radius", strconv.Itoa(q.RadiusMeters))

			if q.Category != "" {
				params.Set("type", q.Category)
			}
		}

		var resp googlePlacesResponse
		if err := g.get(ctx, "/place/nearbysearch/json", params, &resp); err != nil {
			return nil, "", err
		}

		return g.records(resp.Results, q.Category), resp.NextPageToken, nil
	}

	return collectPages(ctx, q.Limit, g.MaxPages, fetch)
}

// Lookup implements Corroborator using Text Search on the address, biased to near.
// The name is only used when there is no address.
func (g *GooglePlaces) Lookup(ctx context.Context, name, address string, near spatial.Point) ([]PlaceRecord, error) {
	query := address
	if query == "" {
		query = name
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("location", latLng(near.Lat, near.Lng))
	params.Set("key", g.apiKey)

	var resp googlePlacesResponse
	if err := g.get(ctx, "/place/textsearch/json", params, &resp); err != nil {
		return nil, err
	}

	return g.records(resp.Results, ""), nil
}

func (g *GooglePlaces) get(ctx context.Context, path string, params url.Values, resp *googlePlacesResponse) error {
	if err := getJSON(ctx, g.httpClient, ProviderGoogle, g.BaseURL, path, params, resp); err != nil {
		return err
	}

	return googleStatusError(resp.Status, resp.ErrorMessage)
}

func (g *GooglePlaces) records(results []googlePlace, category string) []PlaceRecord {
	ret := make([]PlaceRecord, 0, len(results))

	for _, r := range results {
		address := r.FormattedAddress
		if address == "" {
			address = r.Vicinity
		}

		cat := category
		if cat == "" && len(r.Types) > 0 {
			cat = r.Types[0]
		}

		ret = append(ret, PlaceRecord{
			Provider:         ProviderGoogle,
			ID:               r.PlaceID,
			Name:             r.Name,
			FormattedAddress: address,
			Category:         cat,
			Lat:              r.Geometry.Location.Lat,
			Lng:              r.Geometry.Location.Lng,
		}.WithStreet())
	}

	return ret
}

// googleStatusError maps the status field of a Google web service response.
// ZERO_RESULTS is not an error.
func googleStatusError(status, message string) error {
	var errType ErrorType

	switch status {
	case "OK", "ZERO_RESULTS":
		return nil
	case "OVER_QUERY_LIMIT":
		errType = ErrorTypeRateLimit
	case "REQUEST_DENIED":
		errType = ErrorTypeQuotaExceeded
	case "INVALID_REQUEST":
		errType = ErrorTypeInvalidRequest
	case "NOT_FOUND":
		errType = ErrorTypeNotFound
	default:
		errType = ErrorTypeUnknown
	}

	msg := "status " + status
	if message != "" {
		msg += ": " + message
	}

	return &ProviderError{Provider: ProviderGoogle, Type: errType, Message: msg}
}

// GoogleGeocoder resolves place names to bounding boxes with the Geocoding API.
type GoogleGeocoder struct {
	apiKey     string
	httpClient *http.Client

	// BaseURL defaults to GoogleMapsBaseURL.
	BaseURL string
}

// NewGoogleGeocoder creates a new Google Maps geocoder.
func NewGoogleGeocoder(apiKey string, httpClient *http.Client) *GoogleGeocoder {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &GoogleGeocoder{apiKey: apiKey, httpClient: httpClient, BaseURL: GoogleMapsBaseURL}
}

type googleLatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type googleGeocodeResponse struct {
	Results []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Viewport struct {
				Northeast googleLatLng `json:"northeast"`
				Southwest googleLatLng `json:"southwest"`
			} `json:"viewport"`
			Bounds *struct {
				Northeast googleLatLng `json:"northeast"`
				Southwest googleLatLng `json:"southwest"`
			} `json:"bounds"`
		} `json:"geometry"`
	} `json:"results"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

// Viewport returns the bounding box of the first geocoding result for place.
// Bounds are preferred over the viewport when Google returns both.
func (g *GoogleGeocoder) Viewport(ctx context.Context, place string) (spatial.BoundingBox, string, error) {
	params := url.Values{}
	params.Set("address", place)
	params.Set("key", g.apiKey)

	var resp googleGeocodeResponse
	if err := getJSON(ctx, g.httpClient, ProviderGoogle, g.BaseURL, "/geocode/json", params, &resp); err != nil {
		return spatial.BoundingBox{}, "", err
	}

	if err := googleStatusError(resp.Status, resp.ErrorMessage); err != nil {
		return spatial.BoundingBox{}, "", err
	}

	if len(resp.Results) == 0 {
		return spatial.BoundingBox{}, "", &ProviderError{
			Provider: ProviderGoogle,
			Type:     ErrorTypeNotFound,
			Message:  fmt.Sprintf("no results found for %q", place),
		}
	}

	result := resp.Results[0]

	ne, sw := result.Geometry.Viewport.Northeast, result.Geometry.Viewport.Southwest
	if result.Geometry.Bounds != nil {
		ne, sw = result.Geometry.Bounds.Northeast, result.Geometry.Bounds.Southwest
	}

	box := spatial.FromBound(orb.Bound{Min: orb.Point{sw.Lng, sw.Lat}, Max: orb.Point{ne.Lng, ne.Lat}})
	if err := box.Validate(); err != nil {
		return spatial.BoundingBox{}, "", &ProviderError{
			Provider: ProviderGoogle,
			Type:     ErrorTypeMalformedResponse,
			Message:  "unusable viewport",
			Err:      err,
		}
	}

	return box, result.FormattedAddress, nil
}
