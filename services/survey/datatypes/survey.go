// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"fmt"
	"slices"
	"time"
)

// =============================================================================
// Transmission
// =============================================================================

// Transmission is the optional transmission answer. The zero value means the
// field is absent.
type Transmission string

const (
	// TransmissionNone is the absent transmission.
	TransmissionNone Transmission = ""

	// TransmissionManual selects a manual gearbox.
	TransmissionManual Transmission = "Manual"

	// TransmissionAutomatic selects an automatic gearbox.
	TransmissionAutomatic Transmission = "Automatic"
)

// IsSet reports whether a transmission has been chosen.
func (t Transmission) IsSet() bool { return t != TransmissionNone }

// IsKnown reports whether t is absent or one of the catalog values.
func (t Transmission) IsKnown() bool {
	return t == TransmissionNone || slices.Contains(transmissionCatalog, t)
}

// String returns the string form of the transmission.
func (t Transmission) String() string { return string(t) }

// ParseTransmission converts free text into a Transmission.
//
// # Inputs
//
//   - s: "Manual", "Automatic", or "" for absent.
//
// # Outputs
//
//   - Transmission: The parsed value.
//   - error: Non-nil if s is not in the catalog.
func ParseTransmission(s string) (Transmission, error) {
	t := Transmission(s)
	if !t.IsKnown() {
		return TransmissionNone, fmt.Errorf("unknown transmission %q", s)
	}
	return t, nil
}

// =============================================================================
// Field
// =============================================================================

// Field names a survey input. The string form is the JSON key used in
// validation error maps.
type Field string

const (
	FieldBrands       Field = "brands"
	FieldColors       Field = "colors"
	FieldTransmission Field = "transmission"
)

// =============================================================================
// SurveyData
// =============================================================================

// SurveyData holds the current answers of one survey form.
//
// # Description
//
// Brands and Colors are sets. Normalize puts them in canonical form
// (de-duplicated, catalog order) so two values holding the same answers
// compare equal with Equal.
//
// # Validation
//
// The struct tags are the declarative schema evaluated by the validation
// package:
//   - Brands: at least one entry
//   - Colors: at least one entry
//   - Transmission: absent, or Manual/Automatic
//
// # Invariants (after reconciliation)
//
//   - Colors holds no color excluded by the selected brands
//   - Transmission is absent whenever Brands contains Tesla
type SurveyData struct {
	Brands       []string     `json:"brands" yaml:"brands" validate:"required,min=1"`
	Colors       []string     `json:"colors" yaml:"colors" validate:"required,min=1"`
	Transmission Transmission `json:"transmission,omitempty" yaml:"transmission,omitempty" validate:"omitempty,oneof=Manual Automatic"`
}

// NewSurveyData returns the initial, empty answers.
func NewSurveyData() SurveyData {
	return SurveyData{Brands: []string{}, Colors: []string{}}
}

// Clone returns a deep copy that shares no backing arrays with d.
func (d SurveyData) Clone() SurveyData {
	out := SurveyData{
		Brands:       slices.Clone(d.Brands),
		Colors:       slices.Clone(d.Colors),
		Transmission: d.Transmission,
	}
	if out.Brands == nil {
		out.Brands = []string{}
	}
	if out.Colors == nil {
		out.Colors = []string{}
	}
	return out
}

// Normalize returns a copy with both sets in canonical form.
func (d SurveyData) Normalize() SurveyData {
	return SurveyData{
		Brands:       canonicalSet(d.Brands, brandCatalog),
		Colors:       canonicalSet(d.Colors, colorCatalog),
		Transmission: d.Transmission,
	}
}

// Equal reports whether d and other hold the same answers, ignoring order
// and duplicates inside the sets.
func (d SurveyData) Equal(other SurveyData) bool {
	a, b := d.Normalize(), other.Normalize()
	return slices.Equal(a.Brands, b.Brands) &&
		slices.Equal(a.Colors, b.Colors) &&
		a.Transmission == b.Transmission
}

// HasBrand reports whether brand is selected.
func (d SurveyData) HasBrand(brand string) bool { return slices.Contains(d.Brands, brand) }

// HasColor reports whether color is selected.
func (d SurveyData) HasColor(color string) bool { return slices.Contains(d.Colors, color) }

// IsEmpty reports whether no answer has been given at all.
func (d SurveyData) IsEmpty() bool {
	return len(d.Brands) == 0 && len(d.Colors) == 0 && !d.Transmission.IsSet()
}

// CheckCatalog verifies that every value is drawn from its catalog.
//
// # Description
//
// Input widgets only ever emit catalog values; callers that accept raw input
// (HTTP bodies, files) use CheckCatalog to hold the same line.
//
// # Outputs
//
//   - error: Describes the first offending value, or nil.
func (d SurveyData) CheckCatalog() error {
	for _, b := range d.Brands {
		if !IsBrand(b) {
			return fmt.Errorf("unknown brand %q", b)
		}
	}
	for _, c := range d.Colors {
		if !IsColor(c) {
			return fmt.Errorf("unknown color %q", c)
		}
	}
	if !d.Transmission.IsKnown() {
		return fmt.Errorf("unknown transmission %q", d.Transmission)
	}
	return nil
}

// =============================================================================
// Derived View State
// =============================================================================

// TransmissionMode explains whether the transmission control is shown.
type TransmissionMode string

const (
	// TransmissionVisible means the user can choose freely.
	TransmissionVisible TransmissionMode = "visible"

	// TransmissionSuppressed means Tesla is selected and the field is cleared.
	TransmissionSuppressed TransmissionMode = "suppressed"

	// TransmissionForced means Green or Yellow forced Automatic.
	TransmissionForced TransmissionMode = "forced"
)

// DerivedView is recomputed from SurveyData on every change. It is never
// stored on its own.
type DerivedView struct {
	AllowedColors       []string         `json:"allowed_colors"`
	TransmissionVisible bool             `json:"transmission_visible"`
	TransmissionMode    TransmissionMode `json:"transmission_mode"`
}

// =============================================================================
// Submission
// =============================================================================

// SubmissionStatus is the state of a submission controller.
type SubmissionStatus string

const (
	StatusIdle       SubmissionStatus = "idle"
	StatusSubmitting SubmissionStatus = "submitting"
)

// SubmissionResult is the snapshot stored after a successful submit.
type SubmissionResult struct {
	ID          string     `json:"id"`
	Data        SurveyData `json:"data"`
	SubmittedAt time.Time  `json:"submitted_at"`
}

// Clone returns a deep copy of r.
func (r SubmissionResult) Clone() SubmissionResult {
	r.Data = r.Data.Clone()
	return r
}
