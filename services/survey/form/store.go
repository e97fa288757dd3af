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
	"github.com/AleutianAI/CarSurvey/services/survey/constraints"
	"github.com/AleutianAI/CarSurvey/services/survey/datatypes"
)

// Store is the authoritative holder of one form's answers.
//
// # Description
//
// Every write goes through the constraint engine, so the stored values are
// always mutually consistent and the derived view always matches them.
//
// # Thread Safety
//
// Not safe for concurrent use. Controller serializes access.
type Store struct {
	values datatypes.SurveyData
	view   datatypes.DerivedView
}

// NewStore returns a store holding the initial, empty answers.
func NewStore() *Store {
	s := &Store{}
	s.Reset()
	return s
}

// Values returns a copy of the stored answers.
func (s *Store) Values() datatypes.SurveyData { return s.values.Clone() }

// View returns the view state derived from the stored answers.
func (s *Store) View() datatypes.DerivedView {
	v := s.view
	v.AllowedColors = append([]string(nil), s.view.AllowedColors...)
	return v
}

// Apply reconciles raw and stores the result.
//
// # Outputs
//
//   - constraints.Outcome: What was stored plus the corrections made to raw.
func (s *Store) Apply(raw datatypes.SurveyData) constraints.Outcome {
	out := constraints.Evaluate(raw)
	s.values = out.Data.Clone()
	s.view = out.View
	return out
}

// Reset restores the initial, empty answers.
func (s *Store) Reset() {
	s.Apply(datatypes.NewSurveyData())
}
