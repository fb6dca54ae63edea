// Copyright 2025 The POIBench Authors
// SPDX-License-Identifier: Apache-2.0

package places

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/goccy/go-yaml"

	"github.com/jcodagnone/poibench/utils/textutils"
)

//go:embed categories.yaml
var defaultCategories []byte

// ErrUnknownCategory is returned when a label is not in the category table.
var ErrUnknownCategory = errors.New("unknown category")

// PlaceType maps a human label to the category code each provider understands.
type PlaceType struct {
	Label     string `json:"label"  yaml:"label"`
	ProviderA string `json:"google" yaml:"google"`
	ProviderB string `json:"here"   yaml:"here"`
}

// CategoryTable resolves place type labels. Lookups ignore case and accents.
type CategoryTable struct {
	types []PlaceType
	index map[string]int
}

// DefaultCategoryTable returns the embedded table.
func DefaultCategoryTable() *CategoryTable {
	table, err := ParseCategoryTable(defaultCategories)
	if err != nil {
		panic(fmt.Sprintf("embedded category table: %v", err))
	}

	return table
}

// LoadCategoryTable reads a YAML table from path.
func LoadCategoryTable(path string) (*CategoryTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading category table: %w", err)
	}

	table, err := ParseCategoryTable(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return table, nil
}

// ParseCategoryTable parses a YAML sequence of PlaceType.
func ParseCategoryTable(data []byte) (*CategoryTable, error) {
	var types []PlaceType
	if err := yaml.Unmarshal(data, &types); err != nil {
		return nil, fmt.Errorf("parsing category table: %w", err)
	}

	table := &CategoryTable{index: make(map[string]int, len(types))}

	for _, t := range types {
		key := textutils.Normalize(t.Label)
		if key == "" {
			return nil, fmt.Errorf("category without label: %+v", t)
		}

		if _, dup := table.index[key]; dup {
			return nil, fmt.Errorf("duplicate category %q", t.Label)
		}

		table.index[key] = len(table.types)
		table.types = append(table.types, t)
	}

	return table, nil
}

// Resolve returns the PlaceType for label. An empty label resolves to the zero
// PlaceType, meaning no category filter.
func (c *CategoryTable) Resolve(label string) (PlaceType, error) {
	key := textutils.Normalize(label)
	if key == "" {
		return PlaceType{}, nil
	}

	i, ok := c.index[key]
	if !ok {
		return PlaceType{}, fmt.Errorf("%w: %q", ErrUnknownCategory, label)
	}

	return c.types[i], nil
}

// All returns a copy of the table sorted by label.
func (c *CategoryTable) All() []PlaceType {
	ret := make([]PlaceType, len(c.types))
	copy(ret, c.types)

	sort.Slice(ret, func(i, j int) bool {
		return ret[i].Label < ret[j].Label
	})

	return ret
}
