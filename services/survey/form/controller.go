// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package form holds survey form state and drives its submission.
//
// # Description
//
// A Controller owns one Store and runs the form lifecycle:
//
//	mutation -> reconcile -> validate -> render
//	submit   -> validate -> Submitting -> save -> result -> Idle
//	reset    -> initial values, no result, Idle
//
// A Registry maps session IDs to controllers for the HTTP API.
//
// # Thread Safety
//
// Controller and Registry are safe for concurrent use. A Controller holds
// its mutex for every state change; the save delay runs outside it.
package form

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/CarSurvey/services/survey/constraints"
	"github.com/AleutianAI/CarSurvey/services/survey/datatypes"
	"github.com/AleutianAI/CarSurvey/services/survey/observability"
	"github.com/AleutianAI/CarSurvey/services/survey/telemetry"
	"github.com/AleutianAI/CarSurvey/services/survey/validation"
)

const tracerName = "carsurvey.form"

// Mutation operations used as the "op" metric label.
const (
	opToggle  = "toggle"
	opSet     = "set"
	opReplace = "replace"
)

// =============================================================================
// Options
// =============================================================================

// Options configures a Controller. Every field is optional.
//
// # Fields
//
//   - ID: Session ID. Generated when empty.
//   - Saver: Performs the save. Defaults to DelaySaver{DefaultSaveLatency}.
//   - Metrics: Prometheus metrics. Nil disables metrics.
//   - Logger: Structured logger. Defaults to slog.Default().
//   - Now: Clock. Defaults to time.Now.
type Options struct {
	ID      string
	Saver   Saver
	Metrics *observability.SurveyMetrics
	Logger  *slog.Logger
	Now     func() time.Time
}

// =============================================================================
// Controller
// =============================================================================

// Controller is one survey form: its answers, validity and submission state.
//
// # Description
//
// Each mutation reconciles and validates before it returns, so every State
// a caller sees is consistent. Submit takes a snapshot under the lock and
// then waits for the Saver without it; a submission token detects a Reset
// that happened during the wait.
//
// # Thread Safety
//
// All methods are safe for concurrent use.
type Controller struct {
	id      string
	saver   Saver
	metrics *observability.SurveyMetrics
	logger  *slog.Logger
	now     func() time.Time

	mu         sync.Mutex
	store      *Store
	validation validation.Result
	status     datatypes.SubmissionStatus
	token      uint64
	cancelSave context.CancelFunc
	result     *datatypes.SubmissionResult
	lastActive time.Time
}

// NewController returns a controller in its initial state.
//
// # Examples
//
//	c := form.NewController(form.Options{Saver: form.DelaySaver{Latency: time.Second}})
//	c.ToggleBrand("Tesla")
//	c.ToggleColor("Blue")
//	result, err := c.Submit(ctx)
func NewController(opts Options) *Controller {
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	if opts.Saver == nil {
		opts.Saver = DelaySaver{Latency: DefaultSaveLatency}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	c := &Controller{
		id:      opts.ID,
		saver:   opts.Saver,
		metrics: opts.Metrics,
		logger:  opts.Logger.With("session_id", opts.ID),
		now:     opts.Now,
		store:   NewStore(),
		status:  datatypes.StatusIdle,
	}
	c.validation = validation.Validate(c.store.Values())
	c.lastActive = c.now()
	return c
}

// ID returns the session ID.
func (c *Controller) ID() string { return c.id }

// State returns everything needed to render the form.
func (c *Controller) State() datatypes.FormState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// LastActive returns when the controller was last used.
func (c *Controller) LastActive() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActive
}

// Touch marks the controller as used now.
func (c *Controller) Touch() {
	c.mu.Lock()
	c.lastActive = c.now()
	c.mu.Unlock()
}

// Status returns the submission status.
func (c *Controller) Status() datatypes.SubmissionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Result returns the last successful submission.
//
// # Outputs
//
//   - datatypes.SubmissionResult: The stored snapshot.
//   - bool: False when nothing has been submitted since the last reset.
func (c *Controller) Result() (datatypes.SubmissionResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result == nil {
		return datatypes.SubmissionResult{}, false
	}
	return c.result.Clone(), true
}

// =============================================================================
// Mutations
// =============================================================================

// ToggleBrand adds brand to the selection, or removes it if present.
//
// # Outputs
//
//   - datatypes.FormState: State after reconciliation and validation.
//   - error: ErrUnknownOption if brand is not in the catalog.
func (c *Controller) ToggleBrand(brand string) (datatypes.FormState, error) {
	if !datatypes.IsBrand(brand) {
		return c.State(), fmt.Errorf("toggle brand %q: %w", brand, ErrUnknownOption)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	values := c.store.Values()
	values.Brands = toggle(values.Brands, brand)
	c.applyLocked(values, opToggle, datatypes.FieldBrands)
	return c.stateLocked(), nil
}

// ToggleColor adds color to the selection, or removes it if present.
//
// # Outputs
//
//   - datatypes.FormState: State after reconciliation and validation.
//   - error: ErrUnknownOption if color is not in the catalog,
//     ErrOptionNotOffered if the selected brands withhold it.
func (c *Controller) ToggleColor(color string) (datatypes.FormState, error) {
	if !datatypes.IsColor(color) {
		return c.State(), fmt.Errorf("toggle color %q: %w", color, ErrUnknownOption)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	values := c.store.Values()
	if !values.HasColor(color) && !constraints.AllowsColor(values.Brands, color) {
		return c.stateLocked(), fmt.Errorf("toggle color %q: %w", color, ErrOptionNotOffered)
	}
	values.Colors = toggle(values.Colors, color)
	c.applyLocked(values, opToggle, datatypes.FieldColors)
	return c.stateLocked(), nil
}

// SetTransmission sets the transmission. TransmissionNone clears it.
//
// # Outputs
//
//   - datatypes.FormState: State after reconciliation and validation.
//   - error: ErrUnknownOption for a value outside the catalog, ErrFieldHidden
//     while Tesla or a forcing color hides the control.
func (c *Controller) SetTransmission(t datatypes.Transmission) (datatypes.FormState, error) {
	if !t.IsKnown() {
		return c.State(), fmt.Errorf("set transmission %q: %w", t, ErrUnknownOption)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if view := c.store.View(); !view.TransmissionVisible {
		return c.stateLocked(), fmt.Errorf("set transmission (%s): %w", view.TransmissionMode, ErrFieldHidden)
	}
	values := c.store.Values()
	values.Transmission = t
	c.applyLocked(values, opSet, datatypes.FieldTransmission)
	return c.stateLocked(), nil
}

// Replace overwrites all answers at once.
//
// # Description
//
// Every value must come from its catalog. Unlike ToggleColor, restricted
// colors are not rejected; reconciliation strips them.
//
// # Outputs
//
//   - datatypes.FormState: State after reconciliation and validation.
//   - error: ErrUnknownOption if any value is outside its catalog.
func (c *Controller) Replace(data datatypes.SurveyData) (datatypes.FormState, error) {
	if err := data.CheckCatalog(); err != nil {
		return c.State(), fmt.Errorf("replace: %v: %w", err, ErrUnknownOption)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.applyLocked(data, opReplace,
		datatypes.FieldBrands, datatypes.FieldColors, datatypes.FieldTransmission)
	return c.stateLocked(), nil
}

// Reset restores the initial values, drops the stored result and returns to
// Idle. A pending submission is canceled and will finish with ErrSuperseded.
func (c *Controller) Reset() datatypes.FormState {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status == datatypes.StatusSubmitting {
		c.logger.Info("reset supersedes pending submission")
	}
	c.token++
	if c.cancelSave != nil {
		c.cancelSave()
		c.cancelSave = nil
	}
	c.store.Reset()
	c.validation = validation.Validate(c.store.Values())
	c.result = nil
	c.status = datatypes.StatusIdle
	c.lastActive = c.now()
	c.metrics.RecordReset()

	return c.stateLocked()
}

// =============================================================================
// Submission
// =============================================================================

// Submit validates the answers and saves a snapshot of them.
//
// # Description
//
// Steps:
//  1. Validate. An invalid form returns *InvalidError and changes nothing.
//  2. Refuse with ErrSubmitInFlight if a save is already pending.
//  3. Enter Submitting, snapshot the values, bump the submission token.
//  4. Wait for the Saver without holding the lock.
//  5. If the token moved (Reset ran), return ErrSuperseded and store nothing.
//     Otherwise store the snapshot as the result and return to Idle.
//
// Mutations during step 4 are allowed and do not affect the snapshot.
//
// # Inputs
//
//   - ctx: Cancels the save. On cancellation the context error is returned
//     and nothing is stored.
//
// # Outputs
//
//   - datatypes.SubmissionResult: The stored snapshot on success.
//   - error: *InvalidError, ErrSubmitInFlight, ErrSuperseded, a context
//     error, or a wrapped Saver error.
func (c *Controller) Submit(ctx context.Context) (datatypes.SubmissionResult, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "Controller.Submit",
		trace.WithAttributes(attribute.String("session_id", c.id)),
	)
	defer span.End()

	c.mu.Lock()
	c.lastActive = c.now()

	values := c.store.Values()
	res := validation.Validate(values)
	c.validation = res
	if !res.Valid {
		c.mu.Unlock()
		c.metrics.RecordSubmission(observability.OutcomeInvalid, 0)
		err := &InvalidError{Validation: res}
		telemetry.RecordError(span, err)
		return datatypes.SubmissionResult{}, err
	}

	if c.status == datatypes.StatusSubmitting {
		c.mu.Unlock()
		c.metrics.RecordSubmission(observability.OutcomeInFlight, 0)
		telemetry.RecordError(span, ErrSubmitInFlight)
		return datatypes.SubmissionResult{}, ErrSubmitInFlight
	}

	c.token++
	token := c.token
	saveCtx, cancel := context.WithCancel(ctx)
	c.cancelSave = cancel
	c.status = datatypes.StatusSubmitting
	snapshot := datatypes.SubmissionResult{
		ID:          uuid.NewString(),
		Data:        values,
		SubmittedAt: c.now(),
	}
	c.mu.Unlock()

	span.SetAttributes(attribute.String("submission_id", snapshot.ID))
	logger := telemetry.LoggerWithTrace(ctx, c.logger).With("submission_id", snapshot.ID)
	logger.Info("submission started")

	start := time.Now()
	c.metrics.SubmissionStarted()
	saveErr := c.saver.Save(saveCtx, snapshot.Clone())
	c.metrics.SubmissionFinished()
	cancel()
	elapsed := time.Since(start)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != token {
		c.metrics.RecordSubmission(observability.OutcomeSuperseded, elapsed)
		logger.Info("submission superseded")
		telemetry.RecordError(span, ErrSuperseded)
		return datatypes.SubmissionResult{}, ErrSuperseded
	}

	c.status = datatypes.StatusIdle
	c.cancelSave = nil
	c.lastActive = c.now()

	if saveErr != nil {
		outcome := observability.OutcomeFailed
		if errors.Is(saveErr, context.Canceled) || errors.Is(saveErr, context.DeadlineExceeded) {
			outcome = observability.OutcomeCanceled
		}
		c.metrics.RecordSubmission(outcome, elapsed)
		logger.Warn("submission did not complete", "error", saveErr)
		telemetry.RecordError(span, saveErr)
		return datatypes.SubmissionResult{}, fmt.Errorf("save submission: %w", saveErr)
	}

	c.result = &snapshot
	c.metrics.RecordSubmission(observability.OutcomeSuccess, elapsed)
	logger.Info("submission stored", "duration_ms", elapsed.Milliseconds())
	return snapshot.Clone(), nil
}

// =============================================================================
// Internal
// =============================================================================

// applyLocked reconciles raw into the store and revalidates.
// Caller must hold c.mu.
func (c *Controller) applyLocked(raw datatypes.SurveyData, op string, fields ...datatypes.Field) {
	out := c.store.Apply(raw)
	c.validation = validation.Validate(out.Data)
	c.lastActive = c.now()

	for _, f := range fields {
		c.metrics.RecordMutation(string(f), op)
	}
	for _, corr := range out.Corrections {
		c.metrics.RecordCorrection(string(corr.Rule))
		c.logger.Debug("reconciled",
			"rule", string(corr.Rule),
			"field", string(corr.Field),
			"correction", corr.String(),
		)
	}
	for f := range c.validation.Errors {
		c.metrics.RecordValidationFailure(string(f))
	}
}

// stateLocked builds the render state. Caller must hold c.mu.
func (c *Controller) stateLocked() datatypes.FormState {
	state := datatypes.FormState{
		Values:     c.store.Values(),
		View:       c.store.View(),
		Validation: c.validation.ToWire(),
		Status:     c.status,
		CanSubmit:  c.validation.Valid && c.status == datatypes.StatusIdle,
	}
	if c.result != nil {
		r := c.result.Clone()
		state.Result = &r
	}
	return state
}

// toggle returns set with value added, or removed if it was present.
func toggle(set []string, value string) []string {
	if i := slices.Index(set, value); i >= 0 {
		return slices.Delete(slices.Clone(set), i, i+1)
	}
	return append(slices.Clone(set), value)
}
