// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers implements the HTTP endpoints of the survey service.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/CarSurvey/services/survey/constraints"
	"github.com/AleutianAI/CarSurvey/services/survey/datatypes"
	"github.com/AleutianAI/CarSurvey/services/survey/form"
	"github.com/AleutianAI/CarSurvey/services/survey/telemetry"
	"github.com/AleutianAI/CarSurvey/services/survey/validation"
)

// Error codes returned in datatypes.ErrorResponse.Code.
const (
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeSessionNotFound  = "SESSION_NOT_FOUND"
	CodeTooManySessions  = "TOO_MANY_SESSIONS"
	CodeUnknownOption    = "UNKNOWN_OPTION"
	CodeOptionNotOffered = "OPTION_NOT_OFFERED"
	CodeFieldHidden      = "FIELD_HIDDEN"
	CodeFormInvalid      = "FORM_INVALID"
	CodeSubmitInFlight   = "SUBMIT_IN_FLIGHT"
	CodeSuperseded       = "SUBMISSION_SUPERSEDED"
	CodeNoResult         = "NO_RESULT"
	CodeCanceled         = "CANCELED"
	CodeInternal         = "INTERNAL"
)

// statusClientClosedRequest is reported when the caller went away mid-submit.
const statusClientClosedRequest = 499

// Handlers serves form sessions held in a Registry.
type Handlers struct {
	registry *form.Registry
	logger   *slog.Logger
}

// NewHandlers creates handlers backed by registry.
func NewHandlers(registry *form.Registry, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{registry: registry, logger: logger}
}

// HealthCheck handles GET /health.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HandleCatalogs handles GET /v1/catalogs.
func HandleCatalogs(c *gin.Context) {
	c.JSON(http.StatusOK, datatypes.AllCatalogs())
}

// HandleEvaluate handles POST /v1/evaluate.
//
// Description:
//
//	Reconciles, derives and validates posted answers without creating a
//	session. Useful for clients that keep their own form state.
//
// Request Body:
//
//	datatypes.SurveyData
//
// Response:
//
//	200 OK: datatypes.EvaluateResponse
//	400 Bad Request: Malformed body
//	422 Unprocessable Entity: Value outside its catalog
func (h *Handlers) HandleEvaluate(c *gin.Context) {
	logger := h.requestLogger(c, "HandleEvaluate")

	var data datatypes.SurveyData
	if err := c.ShouldBindJSON(&data); err != nil {
		logger.Warn("Invalid request body", "error", err)
		badRequest(c)
		return
	}
	if err := data.CheckCatalog(); err != nil {
		logger.Warn("Rejected evaluation", "error", err)
		c.JSON(http.StatusUnprocessableEntity, datatypes.ErrorResponse{
			Error: err.Error(),
			Code:  CodeUnknownOption,
		})
		return
	}

	out := constraints.Evaluate(data)
	corrections := make([]string, 0, len(out.Corrections))
	for _, corr := range out.Corrections {
		corrections = append(corrections, corr.String())
	}

	c.JSON(http.StatusOK, datatypes.EvaluateResponse{
		Values:      out.Data,
		View:        out.View,
		Validation:  validation.Validate(out.Data).ToWire(),
		Corrections: corrections,
	})
}

// HandleCreateSurvey handles POST /v1/surveys.
//
// Response:
//
//	201 Created: datatypes.SessionResponse
//	503 Service Unavailable: Session limit reached
func (h *Handlers) HandleCreateSurvey(c *gin.Context) {
	logger := h.requestLogger(c, "HandleCreateSurvey")

	ctrl, err := h.registry.Create()
	if err != nil {
		h.writeError(c, logger, err)
		return
	}
	c.JSON(http.StatusCreated, datatypes.SessionResponse{ID: ctrl.ID(), State: ctrl.State()})
}

// HandleGetSurvey handles GET /v1/surveys/:id.
func (h *Handlers) HandleGetSurvey(c *gin.Context) {
	logger := h.requestLogger(c, "HandleGetSurvey")

	ctrl, ok := h.session(c, logger)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, datatypes.SessionResponse{ID: ctrl.ID(), State: ctrl.State()})
}

// HandleReplaceSurvey handles PUT /v1/surveys/:id.
//
// Request Body:
//
//	datatypes.SurveyData
//
// Response:
//
//	200 OK: datatypes.SessionResponse with reconciled values
//	400 Bad Request: Malformed body
//	404 Not Found: Unknown session
//	422 Unprocessable Entity: Value outside its catalog
func (h *Handlers) HandleReplaceSurvey(c *gin.Context) {
	logger := h.requestLogger(c, "HandleReplaceSurvey")

	ctrl, ok := h.session(c, logger)
	if !ok {
		return
	}
	var data datatypes.SurveyData
	if err := c.ShouldBindJSON(&data); err != nil {
		logger.Warn("Invalid request body", "error", err)
		badRequest(c)
		return
	}

	state, err := ctrl.Replace(data)
	if err != nil {
		h.writeError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, datatypes.SessionResponse{ID: ctrl.ID(), State: state})
}

// HandleDeleteSurvey handles DELETE /v1/surveys/:id.
func (h *Handlers) HandleDeleteSurvey(c *gin.Context) {
	logger := h.requestLogger(c, "HandleDeleteSurvey")

	if err := h.registry.Delete(c.Param("id")); err != nil {
		h.writeError(c, logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleToggleBrand handles POST /v1/surveys/:id/brands/toggle.
func (h *Handlers) HandleToggleBrand(c *gin.Context) {
	h.handleToggle(c, "HandleToggleBrand", (*form.Controller).ToggleBrand)
}

// HandleToggleColor handles POST /v1/surveys/:id/colors/toggle.
func (h *Handlers) HandleToggleColor(c *gin.Context) {
	h.handleToggle(c, "HandleToggleColor", (*form.Controller).ToggleColor)
}

func (h *Handlers) handleToggle(
	c *gin.Context,
	name string,
	toggle func(*form.Controller, string) (datatypes.FormState, error),
) {
	logger := h.requestLogger(c, name)

	ctrl, ok := h.session(c, logger)
	if !ok {
		return
	}
	var req datatypes.ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		badRequest(c)
		return
	}
	if err := req.Validate(); err != nil {
		logger.Warn("Invalid toggle request", "error", err)
		badRequest(c)
		return
	}

	state, err := toggle(ctrl, req.Value)
	if err != nil {
		h.writeError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, datatypes.SessionResponse{ID: ctrl.ID(), State: state})
}

// HandleSetTransmission handles PUT /v1/surveys/:id/transmission.
//
// Request Body:
//
//	datatypes.TransmissionRequest; an empty value clears the answer.
//
// Response:
//
//	200 OK: datatypes.SessionResponse
//	400 Bad Request: Malformed body
//	404 Not Found: Unknown session
//	422 Unprocessable Entity: Unknown value, or the control is hidden
func (h *Handlers) HandleSetTransmission(c *gin.Context) {
	logger := h.requestLogger(c, "HandleSetTransmission")

	ctrl, ok := h.session(c, logger)
	if !ok {
		return
	}
	var req datatypes.TransmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		badRequest(c)
		return
	}
	if err := req.Validate(); err != nil {
		h.writeError(c, logger, form.ErrUnknownOption)
		return
	}

	state, err := ctrl.SetTransmission(req.Value)
	if err != nil {
		h.writeError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, datatypes.SessionResponse{ID: ctrl.ID(), State: state})
}

// HandleSubmit handles POST /v1/surveys/:id/submit.
//
// Description:
//
//	Blocks for the simulated save latency. A reset issued on the same
//	session while this request waits makes it fail with 409.
//
// Response:
//
//	200 OK: datatypes.SubmissionResult
//	404 Not Found: Unknown session
//	409 Conflict: A submission is already in flight, or a reset superseded it
//	422 Unprocessable Entity: Form invalid, with per-field errors
func (h *Handlers) HandleSubmit(c *gin.Context) {
	logger := h.requestLogger(c, "HandleSubmit")

	ctrl, ok := h.session(c, logger)
	if !ok {
		return
	}

	result, err := ctrl.Submit(c.Request.Context())
	if err != nil {
		h.writeError(c, logger, err)
		return
	}
	logger.Info("Survey submitted", "session_id", ctrl.ID(), "submission_id", result.ID)
	c.JSON(http.StatusOK, result)
}

// HandleReset handles POST /v1/surveys/:id/reset.
func (h *Handlers) HandleReset(c *gin.Context) {
	logger := h.requestLogger(c, "HandleReset")

	ctrl, ok := h.session(c, logger)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, datatypes.SessionResponse{ID: ctrl.ID(), State: ctrl.Reset()})
}

// HandleGetResult handles GET /v1/surveys/:id/result.
func (h *Handlers) HandleGetResult(c *gin.Context) {
	logger := h.requestLogger(c, "HandleGetResult")

	ctrl, ok := h.session(c, logger)
	if !ok {
		return
	}
	result, found := ctrl.Result()
	if !found {
		c.JSON(http.StatusNotFound, datatypes.ErrorResponse{
			Error: "no submission since the last reset",
			Code:  CodeNoResult,
		})
		return
	}
	c.JSON(http.StatusOK, result)
}

// =============================================================================
// Helpers
// =============================================================================

// session looks up the :id session, writing a 404 when it is missing.
func (h *Handlers) session(c *gin.Context, logger *slog.Logger) (*form.Controller, bool) {
	ctrl, err := h.registry.Get(c.Param("id"))
	if err != nil {
		h.writeError(c, logger, err)
		return nil, false
	}
	return ctrl, true
}

// writeError maps controller and registry errors to HTTP responses.
func (h *Handlers) writeError(c *gin.Context, logger *slog.Logger, err error) {
	status := http.StatusInternalServerError
	resp := datatypes.ErrorResponse{Error: err.Error(), Code: CodeInternal}

	var invalid *form.InvalidError
	switch {
	case errors.As(err, &invalid):
		status = http.StatusUnprocessableEntity
		resp.Code = CodeFormInvalid
		resp.Errors = invalid.Validation.ToWire().Errors
	case errors.Is(err, form.ErrSessionNotFound):
		status = http.StatusNotFound
		resp.Code = CodeSessionNotFound
	case errors.Is(err, form.ErrTooManySessions):
		status = http.StatusServiceUnavailable
		resp.Code = CodeTooManySessions
	case errors.Is(err, form.ErrUnknownOption):
		status = http.StatusUnprocessableEntity
		resp.Code = CodeUnknownOption
	case errors.Is(err, form.ErrOptionNotOffered):
		status = http.StatusUnprocessableEntity
		resp.Code = CodeOptionNotOffered
	case errors.Is(err, form.ErrFieldHidden):
		status = http.StatusUnprocessableEntity
		resp.Code = CodeFieldHidden
	case errors.Is(err, form.ErrSubmitInFlight):
		status = http.StatusConflict
		resp.Code = CodeSubmitInFlight
	case errors.Is(err, form.ErrSuperseded):
		status = http.StatusConflict
		resp.Code = CodeSuperseded
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = statusClientClosedRequest
		resp.Code = CodeCanceled
	}

	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", "error", err)
	} else {
		logger.Warn("Request rejected", "error", err, "status", status)
	}
	c.JSON(status, resp)
}

func badRequest(c *gin.Context) {
	c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{
		Error: "Invalid request body",
		Code:  CodeInvalidRequest,
	})
}

// requestLogger returns a logger tagged with the request and trace IDs.
func (h *Handlers) requestLogger(c *gin.Context, handler string) *slog.Logger {
	logger := h.logger.With("request_id", getOrCreateRequestID(c), "handler", handler)
	return telemetry.LoggerWithTrace(c.Request.Context(), logger)
}

// getOrCreateRequestID gets or creates a request ID.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}
