// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the survey service.
//
// # Description
//
// Metrics cover the life of a survey form:
//   - Field mutations (by field and operation)
//   - Corrections made by the constraint engine (by rule)
//   - Validation failures (by field)
//   - Submissions (by outcome), their latency and how many are in flight
//   - Resets and live form sessions
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
// Every recording method is also safe to call on a nil *SurveyMetrics, which
// is how components run with metrics disabled.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "carsurvey"

// Subsystem for form metrics
const formSubsystem = "form"

// Submission outcomes used as the "outcome" label.
const (
	OutcomeSuccess    = "success"
	OutcomeInvalid    = "invalid"
	OutcomeInFlight   = "in_flight"
	OutcomeSuperseded = "superseded"
	OutcomeCanceled   = "canceled"
	OutcomeFailed     = "failed"
)

// SurveyMetrics holds all Prometheus metrics for survey forms.
//
// # Fields
//
//   - MutationsTotal: Field mutations. Labels: field, op
//   - CorrectionsTotal: Reconciliation corrections. Labels: rule
//   - ValidationFailuresTotal: Failing fields after a mutation. Labels: field
//   - SubmissionsTotal: Submit attempts. Labels: outcome
//   - SubmissionDurationSeconds: Time spent in the simulated save
//   - SubmissionsInFlight: Saves currently pending
//   - ResetsTotal: Reset operations
//   - ActiveSessions: Live form sessions in the registry
type SurveyMetrics struct {
	MutationsTotal            *prometheus.CounterVec
	CorrectionsTotal          *prometheus.CounterVec
	ValidationFailuresTotal   *prometheus.CounterVec
	SubmissionsTotal          *prometheus.CounterVec
	SubmissionDurationSeconds prometheus.Histogram
	SubmissionsInFlight       prometheus.Gauge
	ResetsTotal               prometheus.Counter
	ActiveSessions            prometheus.Gauge
}

// DefaultMetrics is the process-wide instance registered by InitMetrics.
var DefaultMetrics *SurveyMetrics

// InitMetrics registers the default metrics with the default Prometheus
// registry.
//
// # Limitations
//
//   - Panics if called twice (duplicate registration).
func InitMetrics() *SurveyMetrics {
	DefaultMetrics = NewSurveyMetrics(prometheus.DefaultRegisterer)
	return DefaultMetrics
}

// NewSurveyMetrics creates and registers metrics with reg.
//
// # Inputs
//
//   - reg: Registry to register with. Tests pass a fresh prometheus.NewRegistry().
//
// # Outputs
//
//   - *SurveyMetrics: The registered metrics.
func NewSurveyMetrics(reg prometheus.Registerer) *SurveyMetrics {
	factory := promauto.With(reg)

	return &SurveyMetrics{
		MutationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: formSubsystem,
				Name:      "mutations_total",
				Help:      "Total field mutations by field and operation",
			},
			[]string{"field", "op"},
		),

		CorrectionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: formSubsystem,
				Name:      "corrections_total",
				Help:      "Total values rewritten by reconciliation, by rule",
			},
			[]string{"rule"},
		),

		ValidationFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: formSubsystem,
				Name:      "validation_failures_total",
				Help:      "Total invalid fields observed after a mutation",
			},
			[]string{"field"},
		),

		SubmissionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: formSubsystem,
				Name:      "submissions_total",
				Help:      "Total submit attempts by outcome",
			},
			[]string{"outcome"},
		),

		SubmissionDurationSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: formSubsystem,
				Name:      "submission_duration_seconds",
				Help:      "Time spent in the simulated save",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
		),

		SubmissionsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: formSubsystem,
				Name:      "submissions_in_flight",
				Help:      "Number of saves currently pending",
			},
		),

		ResetsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: formSubsystem,
				Name:      "resets_total",
				Help:      "Total form resets",
			},
		),

		ActiveSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: formSubsystem,
				Name:      "active_sessions",
				Help:      "Number of live form sessions",
			},
		),
	}
}

// =============================================================================
// Recording Helpers
// =============================================================================

// RecordMutation counts one field mutation.
func (m *SurveyMetrics) RecordMutation(field, op string) {
	if m == nil {
		return
	}
	m.MutationsTotal.WithLabelValues(field, op).Inc()
}

// RecordCorrection counts one reconciliation correction.
func (m *SurveyMetrics) RecordCorrection(rule string) {
	if m == nil {
		return
	}
	m.CorrectionsTotal.WithLabelValues(rule).Inc()
}

// RecordValidationFailure counts one invalid field.
func (m *SurveyMetrics) RecordValidationFailure(field string) {
	if m == nil {
		return
	}
	m.ValidationFailuresTotal.WithLabelValues(field).Inc()
}

// RecordSubmission counts a submit attempt. A zero duration is not observed,
// so rejected attempts stay out of the latency histogram.
func (m *SurveyMetrics) RecordSubmission(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.SubmissionsTotal.WithLabelValues(outcome).Inc()
	if duration > 0 {
		m.SubmissionDurationSeconds.Observe(duration.Seconds())
	}
}

// SubmissionStarted marks a save as pending.
func (m *SurveyMetrics) SubmissionStarted() {
	if m == nil {
		return
	}
	m.SubmissionsInFlight.Inc()
}

// SubmissionFinished marks a pending save as done.
func (m *SurveyMetrics) SubmissionFinished() {
	if m == nil {
		return
	}
	m.SubmissionsInFlight.Dec()
}

// RecordReset counts one reset.
func (m *SurveyMetrics) RecordReset() {
	if m == nil {
		return
	}
	m.ResetsTotal.Inc()
}

// SetActiveSessions publishes the registry size.
func (m *SurveyMetrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.ActiveSessions.Set(float64(n))
}
