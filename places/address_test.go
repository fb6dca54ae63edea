// Copyright 2025 The POIBench Authors
// SPDX-License-Identifier: Apache-2.0

package places

import "testing"

func TestSplitStreetAddress(t *testing.T) {
	tests := []struct {
		address, street, number string
	}{
		{"830 5th Ave, New York", "5th Ave", "830"},
		{"Hauptstraße 12, 10115 Berlin", "Hauptstraße", "12"},
		{"12a Main Street", "Main Street", "12a"},
		{"Calle Mayor 10-12, Madrid", "Calle Mayor", "10-12"},
		{"East 64th Street, New York", "East 64th Street", ""},
		{"Broadway", "Broadway", ""},
		{"", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			street, number := SplitStreetAddress(tt.address)
			if street != tt.street || number != tt.number {
				t.Errorf("SplitStreetAddress(%q) = (%q, %q), want (%q, %q)",
					tt.address, street, number, tt.street, tt.number)
			}
		})
	}
}

func TestWithStreetKeepsProviderFields(t *testing.T) {
	r := PlaceRecord{FormattedAddress: "1 Other Rd", Street: "Main St"}.WithStreet()

	if r.Street != "Main St" {
		t.Errorf("Street = %q, want the provider value", r.Street)
	}

	if r.HouseNumber != "1" {
		t.Errorf("HouseNumber = %q, want 1", r.HouseNumber)
	}
}
