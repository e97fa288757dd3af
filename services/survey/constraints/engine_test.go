// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package constraints

import (
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/CarSurvey/services/survey/datatypes"
)

// =============================================================================
// Test Helpers
// =============================================================================

// subsets returns every subset of values, each in catalog order.
func subsets(values []string) [][]string {
	out := make([][]string, 0, 1<<len(values))
	for mask := 0; mask < 1<<len(values); mask++ {
		set := []string{}
		for i, v := range values {
			if mask&(1<<i) != 0 {
				set = append(set, v)
			}
		}
		out = append(out, set)
	}
	return out
}

// forEachSurvey calls fn for every combination of brand subset, color subset
// and transmission value.
func forEachSurvey(t *testing.T, fn func(datatypes.SurveyData)) {
	t.Helper()
	transmissions := []datatypes.Transmission{
		datatypes.TransmissionNone,
		datatypes.TransmissionManual,
		datatypes.TransmissionAutomatic,
	}
	for _, brands := range subsets(datatypes.Brands()) {
		for _, colors := range subsets(datatypes.Colors()) {
			for _, tr := range transmissions {
				fn(datatypes.SurveyData{Brands: brands, Colors: colors, Transmission: tr})
			}
		}
	}
}

// =============================================================================
// Property Tests
// =============================================================================

func TestReconcile_RestrictingBrandsStripColors(t *testing.T) {
	forEachSurvey(t, func(in datatypes.SurveyData) {
		if !in.HasBrand(datatypes.BrandToyota) && !in.HasBrand(datatypes.BrandTesla) {
			return
		}
		out := Reconcile(in)
		for _, c := range []string{datatypes.ColorPink, datatypes.ColorGreen, datatypes.ColorYellow} {
			if out.HasColor(c) {
				t.Fatalf("Reconcile(%+v) kept restricted color %s", in, c)
			}
		}
	})
}

func TestReconcile_TeslaSuppressesTransmission(t *testing.T) {
	forEachSurvey(t, func(in datatypes.SurveyData) {
		if !in.HasBrand(datatypes.BrandTesla) {
			return
		}
		out := Evaluate(in)
		if out.Data.Transmission.IsSet() || out.View.TransmissionVisible {
			t.Fatalf("Evaluate(%+v) = transmission %q visible %v, want absent and hidden",
				in, out.Data.Transmission, out.View.TransmissionVisible)
		}
	})
}

func TestReconcile_GreenOrYellowForcesAutomatic(t *testing.T) {
	forEachSurvey(t, func(in datatypes.SurveyData) {
		if in.HasBrand(datatypes.BrandTesla) {
			return
		}
		out := Evaluate(in)
		if !out.Data.HasColor(datatypes.ColorGreen) && !out.Data.HasColor(datatypes.ColorYellow) {
			return
		}
		if out.Data.Transmission != datatypes.TransmissionAutomatic || out.View.TransmissionVisible {
			t.Fatalf("Evaluate(%+v) = transmission %q visible %v, want Automatic and hidden",
				in, out.Data.Transmission, out.View.TransmissionVisible)
		}
	})
}

func TestReconcile_Idempotent(t *testing.T) {
	forEachSurvey(t, func(in datatypes.SurveyData) {
		once := Evaluate(in)
		twice := Evaluate(once.Data)
		if diff := cmp.Diff(once.Data, twice.Data); diff != "" {
			t.Fatalf("Reconcile not idempotent for %+v (-once +twice):\n%s", in, diff)
		}
		if twice.Changed() {
			t.Fatalf("second pass over %+v made corrections: %v", in, twice.Corrections)
		}
	})
}

func TestReconcile_DoesNotMutateInput(t *testing.T) {
	in := datatypes.SurveyData{
		Brands:       []string{datatypes.BrandTesla},
		Colors:       []string{datatypes.ColorPink, datatypes.ColorBlue},
		Transmission: datatypes.TransmissionManual,
	}
	snapshot := in.Clone()

	_ = Reconcile(in)

	if diff := cmp.Diff(snapshot, in); diff != "" {
		t.Errorf("input mutated (-want +got):\n%s", diff)
	}
}

// =============================================================================
// Scenario Tests
// =============================================================================

func TestEvaluate_Scenarios(t *testing.T) {
	fullPalette := datatypes.Colors()
	restricted := []string{
		datatypes.ColorBlue, datatypes.ColorSilver, datatypes.ColorBlack,
		datatypes.ColorWhite, datatypes.ColorRed,
	}

	tests := []struct {
		name        string
		in          datatypes.SurveyData
		wantData    datatypes.SurveyData
		wantAllowed []string
		wantMode    datatypes.TransmissionMode
		wantRules   []Rule
	}{
		{
			name:        "empty form",
			in:          datatypes.NewSurveyData(),
			wantData:    datatypes.NewSurveyData(),
			wantAllowed: fullPalette,
			wantMode:    datatypes.TransmissionVisible,
		},
		{
			name: "tesla blue",
			in: datatypes.SurveyData{
				Brands: []string{"Tesla"}, Colors: []string{"Blue"},
			},
			wantData: datatypes.SurveyData{
				Brands: []string{"Tesla"}, Colors: []string{"Blue"},
			},
			wantAllowed: restricted,
			wantMode:    datatypes.TransmissionSuppressed,
		},
		{
			name: "ford green forces automatic",
			in: datatypes.SurveyData{
				Brands: []string{"Ford"}, Colors: []string{"Green"},
			},
			wantData: datatypes.SurveyData{
				Brands: []string{"Ford"}, Colors: []string{"Green"}, Transmission: "Automatic",
			},
			wantAllowed: fullPalette,
			wantMode:    datatypes.TransmissionForced,
			wantRules:   []Rule{RuleTransmissionForcing},
		},
		{
			name: "ford blue manual stays visible",
			in: datatypes.SurveyData{
				Brands: []string{"Ford"}, Colors: []string{"Blue"}, Transmission: "Manual",
			},
			wantData: datatypes.SurveyData{
				Brands: []string{"Ford"}, Colors: []string{"Blue"}, Transmission: "Manual",
			},
			wantAllowed: fullPalette,
			wantMode:    datatypes.TransmissionVisible,
		},
		{
			name: "toyota strips green before forcing is considered",
			in: datatypes.SurveyData{
				Brands: []string{"Toyota"}, Colors: []string{"Green", "Red"}, Transmission: "Manual",
			},
			wantData: datatypes.SurveyData{
				Brands: []string{"Toyota"}, Colors: []string{"Red"}, Transmission: "Manual",
			},
			wantAllowed: restricted,
			wantMode:    datatypes.TransmissionVisible,
			wantRules:   []Rule{RuleColorRestriction},
		},
		{
			name: "tesla wins over yellow",
			in: datatypes.SurveyData{
				Brands: []string{"Kia", "Tesla"}, Colors: []string{"Yellow"}, Transmission: "Manual",
			},
			wantData: datatypes.SurveyData{
				Brands: []string{"Tesla", "Kia"}, Colors: []string{},
			},
			wantAllowed: restricted,
			wantMode:    datatypes.TransmissionSuppressed,
			wantRules:   []Rule{RuleColorRestriction, RuleTransmissionSuppression},
		},
		{
			name: "sets are canonicalised",
			in: datatypes.SurveyData{
				Brands: []string{"Kia", "Chevy", "Kia"}, Colors: []string{"Red", "Blue"},
			},
			wantData: datatypes.SurveyData{
				Brands: []string{"Chevy", "Kia"}, Colors: []string{"Blue", "Red"},
			},
			wantAllowed: fullPalette,
			wantMode:    datatypes.TransmissionVisible,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Evaluate(tt.in)

			if diff := cmp.Diff(tt.wantData, out.Data); diff != "" {
				t.Errorf("data mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, tt.wantAllowed, out.View.AllowedColors)
			assert.Equal(t, tt.wantMode, out.View.TransmissionMode)
			assert.Equal(t, tt.wantMode == datatypes.TransmissionVisible, out.View.TransmissionVisible)

			var rules []Rule
			for _, c := range out.Corrections {
				rules = append(rules, c.Rule)
			}
			assert.Equal(t, tt.wantRules, rules)
		})
	}
}

// The forced or cleared value is what shows once the condition lifts; the
// user's earlier choice is not brought back.
func TestReconcile_StaleTransmissionAfterConditionLifts(t *testing.T) {
	t.Run("forcing leaves automatic behind", func(t *testing.T) {
		state := Reconcile(datatypes.SurveyData{
			Brands: []string{"Ford"}, Colors: []string{"Blue"}, Transmission: "Manual",
		})
		require.Equal(t, datatypes.TransmissionManual, state.Transmission)

		state.Colors = append(state.Colors, "Green")
		state = Reconcile(state)
		require.Equal(t, datatypes.TransmissionAutomatic, state.Transmission)

		state.Colors = slices.DeleteFunc(state.Colors, func(c string) bool { return c == "Green" })
		out := Evaluate(state)
		assert.True(t, out.View.TransmissionVisible)
		assert.Equal(t, datatypes.TransmissionAutomatic, out.Data.Transmission)
	})

	t.Run("suppression leaves it absent", func(t *testing.T) {
		state := Reconcile(datatypes.SurveyData{
			Brands: []string{"Ford", "Tesla"}, Colors: []string{"Blue"}, Transmission: "Manual",
		})
		require.False(t, state.Transmission.IsSet())

		state.Brands = []string{"Ford"}
		out := Evaluate(state)
		assert.True(t, out.View.TransmissionVisible)
		assert.False(t, out.Data.Transmission.IsSet())
	})
}

func TestCorrection_String(t *testing.T) {
	out := Evaluate(datatypes.SurveyData{
		Brands: []string{"Tesla"}, Colors: []string{"Pink", "Blue"}, Transmission: "Manual",
	})
	require.Len(t, out.Corrections, 2)
	assert.Equal(t, "color_restriction: removed Pink", out.Corrections[0].String())
	assert.Equal(t, "transmission_suppression: transmission Manual -> none", out.Corrections[1].String())
}

func TestAllowsColor(t *testing.T) {
	assert.True(t, AllowsColor([]string{"Ford"}, "Pink"))
	assert.False(t, AllowsColor([]string{"Ford", "Toyota"}, "Pink"))
	assert.True(t, AllowsColor([]string{"Tesla"}, "Blue"))
	assert.False(t, AllowsColor(nil, "Purple"))
}
