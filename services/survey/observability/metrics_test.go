// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// newTestMetrics registers metrics with an isolated registry so tests do not
// collide with the global one.
func newTestMetrics(t *testing.T) *SurveyMetrics {
	t.Helper()
	return NewSurveyMetrics(prometheus.NewRegistry())
}

func TestRecordMutation(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordMutation("brands", "toggle")
	m.RecordMutation("brands", "toggle")
	m.RecordMutation("colors", "replace")

	if got := testutil.ToFloat64(m.MutationsTotal.WithLabelValues("brands", "toggle")); got != 2 {
		t.Errorf("brands/toggle = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.MutationsTotal.WithLabelValues("colors", "replace")); got != 1 {
		t.Errorf("colors/replace = %v, want 1", got)
	}
}

func TestRecordSubmission(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordSubmission(OutcomeSuccess, 200*time.Millisecond)
	m.RecordSubmission(OutcomeInvalid, 0)

	if got := testutil.ToFloat64(m.SubmissionsTotal.WithLabelValues(OutcomeSuccess)); got != 1 {
		t.Errorf("success = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.SubmissionsTotal.WithLabelValues(OutcomeInvalid)); got != 1 {
		t.Errorf("invalid = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.SubmissionDurationSeconds); got != 1 {
		t.Errorf("histogram series = %d, want 1", got)
	}
}

func TestSubmissionsInFlight(t *testing.T) {
	m := newTestMetrics(t)

	m.SubmissionStarted()
	m.SubmissionStarted()
	m.SubmissionFinished()

	if got := testutil.ToFloat64(m.SubmissionsInFlight); got != 1 {
		t.Errorf("in flight = %v, want 1", got)
	}
}

func TestCorrectionsResetsAndSessions(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordCorrection("transmission_forcing")
	m.RecordValidationFailure("brands")
	m.RecordReset()
	m.SetActiveSessions(3)

	if got := testutil.ToFloat64(m.CorrectionsTotal.WithLabelValues("transmission_forcing")); got != 1 {
		t.Errorf("corrections = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ValidationFailuresTotal.WithLabelValues("brands")); got != 1 {
		t.Errorf("validation failures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ResetsTotal); got != 1 {
		t.Errorf("resets = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ActiveSessions); got != 3 {
		t.Errorf("active sessions = %v, want 3", got)
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *SurveyMetrics

	// None of these may panic.
	m.RecordMutation("brands", "toggle")
	m.RecordCorrection("color_restriction")
	m.RecordValidationFailure("colors")
	m.RecordSubmission(OutcomeSuccess, time.Second)
	m.SubmissionStarted()
	m.SubmissionFinished()
	m.RecordReset()
	m.SetActiveSessions(1)
}
