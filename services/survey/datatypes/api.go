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
	"github.com/go-playground/validator/v10"
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// apiValidate validates request bodies. Survey answers themselves are
// validated by the validation package, which owns the field messages.
var apiValidate = validator.New()

// =============================================================================
// Request Types
// =============================================================================

// ToggleRequest toggles one option inside a multi-select field.
//
// # Fields
//
//   - Value: Required. A brand or color name from the catalog.
//
// # Examples
//
//	POST /v1/surveys/:id/brands/toggle
//	{"value": "Tesla"}
type ToggleRequest struct {
	Value string `json:"value" validate:"required,max=64"`
}

// Validate validates the ToggleRequest fields.
func (r *ToggleRequest) Validate() error {
	return apiValidate.Struct(r)
}

// TransmissionRequest sets or clears the transmission answer.
//
// # Fields
//
//   - Value: "Manual", "Automatic", or "" to clear.
type TransmissionRequest struct {
	Value Transmission `json:"value" validate:"omitempty,oneof=Manual Automatic"`
}

// Validate validates the TransmissionRequest fields.
func (r *TransmissionRequest) Validate() error {
	return apiValidate.Struct(r)
}

// =============================================================================
// Response Types
// =============================================================================

// ValidationResult is the wire form of a validation pass.
type ValidationResult struct {
	Valid  bool             `json:"valid"`
	Errors map[Field]string `json:"errors"`
}

// FormState is everything a renderer needs to draw one survey form.
//
// # Fields
//
//   - Values: Reconciled answers.
//   - View: Allowed colors and transmission visibility.
//   - Validation: Result of the latest validation pass.
//   - Status: idle or submitting.
//   - CanSubmit: True when valid and idle; drives the submit control.
//   - Result: Last successful submission, nil if none.
type FormState struct {
	Values     SurveyData        `json:"values"`
	View       DerivedView       `json:"view"`
	Validation ValidationResult  `json:"validation"`
	Status     SubmissionStatus  `json:"status"`
	CanSubmit  bool              `json:"can_submit"`
	Result     *SubmissionResult `json:"result,omitempty"`
}

// SessionResponse is returned when a form session is created or read.
type SessionResponse struct {
	ID    string    `json:"id"`
	State FormState `json:"state"`
}

// EvaluateResponse is the stateless reconcile + validate answer for
// POST /v1/evaluate.
type EvaluateResponse struct {
	Values      SurveyData       `json:"values"`
	View        DerivedView      `json:"view"`
	Validation  ValidationResult `json:"validation"`
	Corrections []string         `json:"corrections,omitempty"`
}

// ErrorResponse is the body of every non-2xx API response.
//
// # Fields
//
//   - Error: Human-readable message.
//   - Code: Stable machine-readable code, e.g. "FORM_INVALID".
//   - Errors: Per-field messages when the form failed validation.
type ErrorResponse struct {
	Error  string           `json:"error"`
	Code   string           `json:"code"`
	Errors map[Field]string `json:"errors,omitempty"`
}
