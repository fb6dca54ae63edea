// Copyright 2025 The POIBench Authors
// SPDX-License-Identifier: Apache-2.0

package places

import (
	"regexp"
	"strings"
)

// houseNumber matches "12", "12a", "12-14", "12/3".
var houseNumber = regexp.MustCompile(`^\d+[[:alpha:]]?(?:[-/]\d+[[:alpha:]]?)?$`)

// SplitStreetAddress extracts street and house number from the first component of a
// one line address. Both "830 5th Ave, New York" and "Hauptstraße 12, Berlin" are
// understood. Components it cannot find are returned empty.
func SplitStreetAddress(address string) (street, number string) {
	first, _, _ := strings.Cut(address, ",")

	fields := strings.Fields(first)
	switch {
	case len(fields) == 0:
		return "", ""
	case len(fields) > 1 && houseNumber.MatchString(fields[0]):
		return strings.Join(fields[1:], " "), fields[0]
	case len(fields) > 1 && houseNumber.MatchString(fields[len(fields)-1]):
		return strings.Join(fields[:len(fields)-1], " "), fields[len(fields)-1]
	default:
		return strings.Join(fields, " "), ""
	}
}

// WithStreet returns r with Street and HouseNumber filled from FormattedAddress
// when the provider did not return them as separate fields.
func (r PlaceRecord) WithStreet() PlaceRecord {
	if r.Street != "" && r.HouseNumber != "" {
		return r
	}

	street, number := SplitStreetAddress(r.FormattedAddress)
	if r.Street == "" {
		r.Street = street
	}

	if r.HouseNumber == "" {
		r.HouseNumber = number
	}

	return r
}
