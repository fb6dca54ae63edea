// Copyright 2025 The POIBench Authors
// SPDX-License-Identifier: Apache-2.0

package places

import (
	"context"
)

// pageFetcher returns one page of results and the token of the next one. An empty
// token means there are no more pages.
type pageFetcher func(ctx context.Context, token string) ([]PlaceRecord, string, error)

// collectPages walks pages until it has limit records, runs out of pages, or has
// fetched maxPages. Results are trimmed to limit. A non-positive limit or maxPages
// means no bound on that dimension.
func collectPages(ctx context.Context, limit, maxPages int, fetch pageFetcher) ([]PlaceRecord, error) {
	var (
		results []PlaceRecord
		token   string
	)

	for page := 0; maxPages <= 0 || page < maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		records, next, err := fetch(ctx, token)
		if err != nil {
			return results, err
		}

		results = append(results, records...)

		if limit > 0 && len(results) >= limit {
			return results[:limit], nil
		}

		if next == "" {
			break
		}

		token = next
	}

	return results, nil
}
