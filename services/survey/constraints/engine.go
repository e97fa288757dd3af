// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package constraints implements the cross-field rules of the car survey.
//
// # Description
//
// Three fields restrict each other:
//
//  1. Toyota or Tesla in brands removes Pink, Green and Yellow from colors.
//  2. The color selector only offers the colors left by rule 1.
//  3. Tesla in brands clears and hides transmission.
//  4. Otherwise Green or Yellow in colors forces Automatic and hides transmission.
//  5. Otherwise transmission is shown and keeps its stored value.
//
// Rules run in that order and later rules see the effect of earlier ones,
// which makes Reconcile idempotent.
//
// # Stale Transmission
//
// When rule 3 or 4 stops applying, the stored transmission is not restored
// to the user's earlier choice. Whatever value the rule left behind (absent
// or Automatic) becomes visible again.
//
// # Thread Safety
//
// Every function is pure and safe for concurrent use.
package constraints

import (
	"fmt"
	"slices"
	"strings"

	"github.com/AleutianAI/CarSurvey/services/survey/datatypes"
)

// =============================================================================
// Rule Inputs
// =============================================================================

var (
	// restrictingBrands limit the color palette.
	restrictingBrands = []string{datatypes.BrandToyota, datatypes.BrandTesla}

	// restrictedColors are withheld while a restricting brand is selected.
	restrictedColors = []string{datatypes.ColorPink, datatypes.ColorGreen, datatypes.ColorYellow}

	// forcingColors force an automatic transmission.
	forcingColors = []string{datatypes.ColorGreen, datatypes.ColorYellow}
)

// =============================================================================
// Corrections
// =============================================================================

// Rule names a reconciliation rule that can change stored answers.
type Rule string

const (
	RuleColorRestriction        Rule = "color_restriction"
	RuleTransmissionSuppression Rule = "transmission_suppression"
	RuleTransmissionForcing     Rule = "transmission_forcing"
)

// Correction records one change Reconcile made to the input.
//
// # Fields
//
//   - Rule: The rule that fired.
//   - Field: The field it rewrote.
//   - Removed: Colors stripped by RuleColorRestriction.
//   - From, To: Transmission before and after, for the transmission rules.
type Correction struct {
	Rule    Rule
	Field   datatypes.Field
	Removed []string
	From    datatypes.Transmission
	To      datatypes.Transmission
}

// String renders the correction for logs and API responses.
func (c Correction) String() string {
	if c.Field == datatypes.FieldColors {
		return fmt.Sprintf("%s: removed %s", c.Rule, strings.Join(c.Removed, ", "))
	}
	from, to := string(c.From), string(c.To)
	if from == "" {
		from = "none"
	}
	if to == "" {
		to = "none"
	}
	return fmt.Sprintf("%s: transmission %s -> %s", c.Rule, from, to)
}

// Outcome is the full result of one reconciliation pass.
type Outcome struct {
	Data        datatypes.SurveyData
	View        datatypes.DerivedView
	Corrections []Correction
}

// Changed reports whether reconciliation rewrote any answer.
func (o Outcome) Changed() bool { return len(o.Corrections) > 0 }

// =============================================================================
// Engine
// =============================================================================

// Evaluate reconciles data and derives the view in one pass.
//
// # Description
//
// Normalizes the sets, applies rules 1-5 in order and records every change
// as a Correction. The input is never modified.
//
// # Inputs
//
//   - data: Raw answers, possibly inconsistent.
//
// # Outputs
//
//   - Outcome: Consistent answers, the derived view and the corrections made.
//
// # Examples
//
//	out := constraints.Evaluate(datatypes.SurveyData{
//	    Brands: []string{"Ford"},
//	    Colors: []string{"Green"},
//	})
//	// out.Data.Transmission == "Automatic"
//	// out.View.TransmissionVisible == false
func Evaluate(data datatypes.SurveyData) Outcome {
	out := data.Normalize()
	var corrections []Correction

	// Rules 1 and 2.
	restricted := restrictsColors(out.Brands)
	if restricted {
		kept := make([]string, 0, len(out.Colors))
		var removed []string
		for _, c := range out.Colors {
			if slices.Contains(restrictedColors, c) {
				removed = append(removed, c)
				continue
			}
			kept = append(kept, c)
		}
		if len(removed) > 0 {
			out.Colors = kept
			corrections = append(corrections, Correction{
				Rule:    RuleColorRestriction,
				Field:   datatypes.FieldColors,
				Removed: removed,
			})
		}
	}

	// Rules 3, 4 and 5.
	mode := transmissionMode(out)
	var target datatypes.Transmission
	var rule Rule
	switch mode {
	case datatypes.TransmissionSuppressed:
		target, rule = datatypes.TransmissionNone, RuleTransmissionSuppression
	case datatypes.TransmissionForced:
		target, rule = datatypes.TransmissionAutomatic, RuleTransmissionForcing
	}
	if mode != datatypes.TransmissionVisible && out.Transmission != target {
		corrections = append(corrections, Correction{
			Rule:  rule,
			Field: datatypes.FieldTransmission,
			From:  out.Transmission,
			To:    target,
		})
		out.Transmission = target
	}

	return Outcome{
		Data: out,
		View: datatypes.DerivedView{
			AllowedColors:       allowedColors(restricted),
			TransmissionVisible: mode == datatypes.TransmissionVisible,
			TransmissionMode:    mode,
		},
		Corrections: corrections,
	}
}

// Reconcile returns the mutually consistent form of data.
//
// Reconcile is pure, deterministic and idempotent:
// Reconcile(Reconcile(x)) equals Reconcile(x).
func Reconcile(data datatypes.SurveyData) datatypes.SurveyData {
	return Evaluate(data).Data
}

// Derive computes the view state for data as it would look after
// reconciliation.
func Derive(data datatypes.SurveyData) datatypes.DerivedView {
	return Evaluate(data).View
}

// AllowedColors returns the colors the selector may offer for brands.
func AllowedColors(brands []string) []string {
	return allowedColors(restrictsColors(brands))
}

// AllowsColor reports whether color may be offered while brands is selected.
func AllowsColor(brands []string, color string) bool {
	return slices.Contains(AllowedColors(brands), color)
}

// =============================================================================
// Helpers
// =============================================================================

func restrictsColors(brands []string) bool {
	return slices.ContainsFunc(brands, func(b string) bool {
		return slices.Contains(restrictingBrands, b)
	})
}

func allowedColors(restricted bool) []string {
	all := datatypes.Colors()
	if !restricted {
		return all
	}
	return slices.DeleteFunc(all, func(c string) bool {
		return slices.Contains(restrictedColors, c)
	})
}

// transmissionMode evaluates rules 3-5 against colors already filtered by
// rule 1.
func transmissionMode(data datatypes.SurveyData) datatypes.TransmissionMode {
	if data.HasBrand(datatypes.BrandTesla) {
		return datatypes.TransmissionSuppressed
	}
	if slices.ContainsFunc(data.Colors, func(c string) bool {
		return slices.Contains(forcingColors, c)
	}) {
		return datatypes.TransmissionForced
	}
	return datatypes.TransmissionVisible
}
