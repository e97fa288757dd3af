// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package form

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/AleutianAI/CarSurvey/services/survey/validation"
)

// Sentinel errors for form sessions.
var (
	// ErrUnknownOption indicates a value that is not in its catalog.
	ErrUnknownOption = errors.New("unknown option")

	// ErrOptionNotOffered indicates a color the selector does not currently offer.
	ErrOptionNotOffered = errors.New("option not offered")

	// ErrFieldHidden indicates an edit to the transmission while it is hidden.
	ErrFieldHidden = errors.New("field is hidden")

	// ErrInvalid indicates a submit attempt on an invalid form.
	ErrInvalid = errors.New("form is invalid")

	// ErrSubmitInFlight indicates a submission is already pending.
	ErrSubmitInFlight = errors.New("submission already in flight")

	// ErrSuperseded indicates a reset discarded the pending submission.
	ErrSuperseded = errors.New("submission superseded by reset")

	// ErrSessionNotFound indicates no session exists for the given ID.
	ErrSessionNotFound = errors.New("session not found")

	// ErrTooManySessions indicates the registry is at capacity.
	ErrTooManySessions = errors.New("too many sessions")
)

// InvalidError is returned by Submit when validation fails. It matches
// ErrInvalid with errors.Is and carries the failing fields.
type InvalidError struct {
	Validation validation.Result
}

func (e *InvalidError) Error() string {
	fields := make([]string, 0, len(e.Validation.Errors))
	for f := range e.Validation.Errors {
		fields = append(fields, string(f))
	}
	sort.Strings(fields)
	return fmt.Sprintf("%s: %s", ErrInvalid, strings.Join(fields, ", "))
}

func (e *InvalidError) Unwrap() error { return ErrInvalid }
