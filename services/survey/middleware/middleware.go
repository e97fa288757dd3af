// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package middleware provides HTTP middleware for the survey service.
//
// # Request Flow
//
//	Request
//	   │
//	   ▼
//	RequestID ──► assigns or propagates X-Request-ID
//	   │
//	   ▼
//	RateLimit ──► 429 when the token bucket is empty
//	   │
//	   ▼
//	RequestLogger ──► one structured line per request
//	   │
//	   ▼
//	Handler
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/CarSurvey/services/survey/datatypes"
)

// =============================================================================
// Context Keys
// =============================================================================

// HeaderRequestID carries the request ID in both directions.
const HeaderRequestID = "X-Request-ID"

// requestIDKey is the gin context key for the request ID.
const requestIDKey = "carsurvey_request_id"

// CodeRateLimited is the error code returned with 429 responses.
const CodeRateLimited = "RATE_LIMITED"

// =============================================================================
// Request ID
// =============================================================================

// RequestID assigns every request an ID.
//
// # Description
//
// An incoming X-Request-ID header is kept; otherwise a UUID is generated.
// The ID is written to the response header, stored in the gin context and
// copied onto the request header so handlers see the same value.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
			c.Request.Header.Set(HeaderRequestID, id)
		}
		c.Set(requestIDKey, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// GetRequestID returns the ID assigned by RequestID, or "".
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// =============================================================================
// Rate Limit
// =============================================================================

// RateLimit rejects requests beyond a process-wide token bucket.
//
// # Inputs
//
//   - rps: Sustained requests per second. Zero or negative disables limiting.
//   - burst: Bucket size. Values below 1 are treated as 1.
//
// # Outputs
//
//   - gin.HandlerFunc: Responds 429 with a Retry-After header when limited.
//
// # Thread Safety
//
// rate.Limiter is safe for concurrent use.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	if rps <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, datatypes.ErrorResponse{
				Error: "rate limit exceeded",
				Code:  CodeRateLimited,
			})
			return
		}
		c.Next()
	}
}

// =============================================================================
// Request Logger
// =============================================================================

// RequestLogger logs one line per request after the handler completes.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "http request",
			"request_id", GetRequestID(c),
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
