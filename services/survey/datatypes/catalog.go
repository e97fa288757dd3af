// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes provides the data model shared by the car survey service.
//
// This file holds the static catalogs. They are package-private slices and are
// only handed out as copies, so no caller can mutate them at runtime.
package datatypes

import "slices"

// =============================================================================
// Catalog Values
// =============================================================================

// Brand names offered by the brands selector.
const (
	BrandChevy  = "Chevy"
	BrandFord   = "Ford"
	BrandHonda  = "Honda"
	BrandBuick  = "Buick"
	BrandToyota = "Toyota"
	BrandTesla  = "Tesla"
	BrandKia    = "Kia"
)

// Color names offered by the colors selector.
const (
	ColorBlue   = "Blue"
	ColorSilver = "Silver"
	ColorBlack  = "Black"
	ColorWhite  = "White"
	ColorRed    = "Red"
	ColorGreen  = "Green"
	ColorYellow = "Yellow"
	ColorPink   = "Pink"
)

var (
	brandCatalog = []string{
		BrandChevy, BrandFord, BrandHonda, BrandBuick, BrandToyota, BrandTesla, BrandKia,
	}

	colorCatalog = []string{
		ColorBlue, ColorSilver, ColorBlack, ColorWhite, ColorRed, ColorGreen, ColorYellow, ColorPink,
	}

	transmissionCatalog = []Transmission{TransmissionManual, TransmissionAutomatic}
)

// Brands returns the brand catalog in display order.
func Brands() []string { return slices.Clone(brandCatalog) }

// Colors returns the full color catalog in display order.
func Colors() []string { return slices.Clone(colorCatalog) }

// Transmissions returns the transmission catalog in display order.
func Transmissions() []Transmission { return slices.Clone(transmissionCatalog) }

// IsBrand reports whether name is in the brand catalog.
func IsBrand(name string) bool { return slices.Contains(brandCatalog, name) }

// IsColor reports whether name is in the color catalog.
func IsColor(name string) bool { return slices.Contains(colorCatalog, name) }

// Catalogs is the wire form of all three catalogs, served by GET /v1/catalogs.
type Catalogs struct {
	Brands        []string       `json:"brands" yaml:"brands"`
	Colors        []string       `json:"colors" yaml:"colors"`
	Transmissions []Transmission `json:"transmissions" yaml:"transmissions"`
}

// AllCatalogs returns fresh copies of every catalog.
func AllCatalogs() Catalogs {
	return Catalogs{
		Brands:        Brands(),
		Colors:        Colors(),
		Transmissions: Transmissions(),
	}
}

// canonicalSet de-duplicates values and orders them by their position in
// catalog. Values missing from the catalog sort last, in first-seen order.
func canonicalSet(values, catalog []string) []string {
	if len(values) == 0 {
		return []string{}
	}
	seen := make(map[string]struct{}, len(values))
	known := make([]string, 0, len(values))
	var unknown []string
	for _, v := range values {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		if slices.Contains(catalog, v) {
			known = append(known, v)
		} else {
			unknown = append(unknown, v)
		}
	}
	slices.SortStableFunc(known, func(a, b string) int {
		return slices.Index(catalog, a) - slices.Index(catalog, b)
	})
	return append(known, unknown...)
}
