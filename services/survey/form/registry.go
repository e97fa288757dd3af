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
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/AleutianAI/CarSurvey/services/survey/datatypes"
	"github.com/AleutianAI/CarSurvey/services/survey/observability"
)

// Registry defaults.
const (
	DefaultMaxSessions   = 10000
	DefaultIdleTTL       = 30 * time.Minute
	DefaultSweepInterval = time.Minute
)

// RegistryConfig configures a Registry.
//
// # Fields
//
//   - MaxSessions: Cap on live sessions. Zero means DefaultMaxSessions.
//   - IdleTTL: Sessions unused for longer are evicted by Sweep. Zero means
//     DefaultIdleTTL.
//   - Saver: Saver given to every new controller.
//   - Metrics: Shared metrics. Nil disables metrics.
//   - Logger: Structured logger. Defaults to slog.Default().
//   - Now: Clock for new controllers. Defaults to time.Now.
type RegistryConfig struct {
	MaxSessions int
	IdleTTL     time.Duration
	Saver       Saver
	Metrics     *observability.SurveyMetrics
	Logger      *slog.Logger
	Now         func() time.Time
}

// Registry maps session IDs to form controllers.
//
// # Description
//
// Each session is one independent form. Sessions live until they are
// deleted or sit idle past IdleTTL and get swept.
//
// # Thread Safety
//
// All methods are safe for concurrent use. The registry lock is always taken
// before a controller lock, never after.
type Registry struct {
	cfg RegistryConfig

	mu       sync.RWMutex
	sessions map[string]*Controller
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultIdleTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Registry{
		cfg:      cfg,
		sessions: make(map[string]*Controller),
	}
}

// Create starts a new session.
//
// # Outputs
//
//   - *Controller: The new session's controller.
//   - error: ErrTooManySessions when the registry is full.
func (r *Registry) Create() (*Controller, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.sessions) >= r.cfg.MaxSessions {
		return nil, fmt.Errorf("create session (limit %d): %w", r.cfg.MaxSessions, ErrTooManySessions)
	}

	c := NewController(Options{
		Saver:   r.cfg.Saver,
		Metrics: r.cfg.Metrics,
		Logger:  r.cfg.Logger,
		Now:     r.cfg.Now,
	})
	r.sessions[c.ID()] = c
	r.cfg.Metrics.SetActiveSessions(len(r.sessions))
	r.cfg.Logger.Info("session created", "session_id", c.ID())
	return c, nil
}

// Get returns the controller for id and marks it active.
func (r *Registry) Get(id string) (*Controller, error) {
	r.mu.RLock()
	c, ok := r.sessions[id]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("session %q: %w", id, ErrSessionNotFound)
	}
	c.Touch()
	return c, nil
}

// Delete removes the session and cancels any pending submission.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	c, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	n := len(r.sessions)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("session %q: %w", id, ErrSessionNotFound)
	}
	c.Reset()
	r.cfg.Metrics.SetActiveSessions(n)
	r.cfg.Logger.Info("session deleted", "session_id", id)
	return nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep evicts sessions idle for longer than IdleTTL as of now.
//
// # Description
//
// Sessions with a pending submission are kept regardless of age.
//
// # Outputs
//
//   - int: Number of sessions evicted.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	var evicted []*Controller
	for id, c := range r.sessions {
		if c.Status() == datatypes.StatusSubmitting {
			continue
		}
		if now.Sub(c.LastActive()) > r.cfg.IdleTTL {
			delete(r.sessions, id)
			evicted = append(evicted, c)
		}
	}
	n := len(r.sessions)
	r.mu.Unlock()

	for _, c := range evicted {
		c.Reset()
	}
	if len(evicted) > 0 {
		r.cfg.Metrics.SetActiveSessions(n)
		r.cfg.Logger.Info("idle sessions evicted", "count", len(evicted), "remaining", n)
	}
	return len(evicted)
}

// RunSweeper calls Sweep every interval until ctx is done.
//
// # Outputs
//
//   - error: Always ctx.Err() once the context ends.
func (r *Registry) RunSweeper(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.Sweep(r.cfg.Now())
		}
	}
}
