// Copyright 2025 The POIBench Authors
// SPDX-License-Identifier: Apache-2.0

package places

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// getJSON issues a GET to base+path?params and decodes the JSON body into out.
// Every failure comes back as a *ProviderError.
func getJSON(ctx context.Context, client *http.Client, provider, base, path string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+path+"?"+params.Encode(), nil)
	if err != nil {
		return &ProviderError{Provider: provider, Type: ErrorTypeInvalidRequest, Message: "building request", Err: err}
	}

	resp, err := client.Do(req)
	if err != nil {
		return classifyTransportError(provider, err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)

		return ClassifyHTTPError(provider, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ProviderError{Provider: provider, Type: ErrorTypeMalformedResponse, Message: "decoding response", Err: err}
	}

	return nil
}

func latLng(lat, lng float64) string {
	return fmt.Sprintf("%.7f,%.7f", lat, lng)
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
