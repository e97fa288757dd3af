// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation checks survey answers against the declarative schema.
//
// # Description
//
// The schema lives as go-playground/validator tags on datatypes.SurveyData.
// This package evaluates those tags and turns each failing field into the
// single inline message the form shows next to it. A failure is data, never
// an error: Validate always returns a Result.
//
// # Thread Safety
//
// Validate is safe for concurrent use; the underlying validator caches
// struct metadata internally.
package validation

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/AleutianAI/CarSurvey/services/survey/datatypes"
)

// =============================================================================
// Messages
// =============================================================================

const (
	MsgBrandsRequired      = "Select at least one brand"
	MsgColorsRequired      = "Select at least one color"
	MsgTransmissionInvalid = "Transmission must be Manual or Automatic"
)

// fieldMessages maps each schema field to its inline message. Every rule on
// a field shares one message.
var fieldMessages = map[datatypes.Field]string{
	datatypes.FieldBrands:       MsgBrandsRequired,
	datatypes.FieldColors:       MsgColorsRequired,
	datatypes.FieldTransmission: MsgTransmissionInvalid,
}

// =============================================================================
// Shared Validator Instance
// =============================================================================

// surveyValidate reports fields by their JSON name so the error map keys
// match what API clients send.
var surveyValidate *validator.Validate

func init() {
	surveyValidate = validator.New(validator.WithRequiredStructEnabled())
	surveyValidate.RegisterTagNameFunc(jsonFieldName)
}

// jsonFieldName returns the JSON key of a struct field.
func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}

// =============================================================================
// Result
// =============================================================================

// Result is the outcome of one validation pass.
//
// # Fields
//
//   - Valid: Conjunction of every field's validity.
//   - Errors: Failing fields and their messages. Empty (never nil) when valid.
type Result struct {
	Valid  bool
	Errors map[datatypes.Field]string
}

// Message returns the message for field, or "" when the field is valid.
func (r Result) Message(field datatypes.Field) string { return r.Errors[field] }

// ToWire converts the result to its API form.
func (r Result) ToWire() datatypes.ValidationResult {
	errs := make(map[datatypes.Field]string, len(r.Errors))
	for k, v := range r.Errors {
		errs[k] = v
	}
	return datatypes.ValidationResult{Valid: r.Valid, Errors: errs}
}

// =============================================================================
// Validate
// =============================================================================

// Validate checks data against the survey schema.
//
// # Description
//
// Rules:
//   - brands invalid iff empty ("Select at least one brand")
//   - colors invalid iff empty ("Select at least one color")
//   - transmission, if present, must be Manual or Automatic
//
// # Inputs
//
//   - data: Answers to check. Normally already reconciled.
//
// # Outputs
//
//   - Result: Valid flag and per-field messages.
//
// # Examples
//
//	res := validation.Validate(datatypes.NewSurveyData())
//	// res.Valid == false
//	// res.Errors["brands"] == "Select at least one brand"
func Validate(data datatypes.SurveyData) Result {
	res := Result{Valid: true, Errors: map[datatypes.Field]string{}}

	err := surveyValidate.Struct(data)
	if err == nil {
		return res
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		// Only reachable with a programming error in the schema tags.
		slog.Error("survey schema evaluation failed", "error", err)
		res.Valid = false
		return res
	}

	res.Valid = false
	for _, fe := range fieldErrs {
		field := datatypes.Field(fe.Field())
		if _, seen := res.Errors[field]; seen {
			continue
		}
		msg, ok := fieldMessages[field]
		if !ok {
			msg = fe.Error()
		}
		res.Errors[field] = msg
	}
	return res
}
