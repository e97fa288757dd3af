// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package logging builds the slog loggers used by the carsurvey binaries.
//
// # Description
//
// A logger writes to one console stream (text or JSON) and optionally to a
// dated JSON file under LogDir. Every record carries a "service" attribute
// when Service is set.
//
// # Examples
//
//	logger, closeFn, err := logging.New(logging.Config{Level: "debug", Service: "carsurvey"})
//	if err != nil {
//	    return err
//	}
//	defer closeFn()
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrUnknownLevel is returned for a level name ParseLevel does not know.
var ErrUnknownLevel = errors.New("unknown log level")

// Format names.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config configures New.
//
// # Fields
//
//   - Level: debug, info, warn or error. Default: info
//   - Format: text or json for the console stream. Default: text
//   - Service: Added to every record as "service" when non-empty.
//   - LogDir: Enables an extra JSON file "{Service}_{YYYY-MM-DD}.log". "~" expands to home.
//   - Quiet: Disables the console stream.
//   - Output: Console destination. Default: os.Stderr
type Config struct {
	Level   string    `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format  string    `yaml:"format" validate:"omitempty,oneof=text json"`
	Service string    `yaml:"service"`
	LogDir  string    `yaml:"log_dir"`
	Quiet   bool      `yaml:"quiet"`
	Output  io.Writer `yaml:"-"`
}

// ParseLevel maps a level name to its slog level. Empty means info.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrUnknownLevel, name)
	}
}

// New creates a logger from cfg.
//
// # Outputs
//
//   - *slog.Logger: The configured logger.
//   - func() error: Syncs and closes the log file. Always non-nil.
//   - error: Non-nil for an unknown level or format, or if the log file
//     cannot be opened.
func New(cfg Config) (*slog.Logger, func() error, error) {
	noop := func() error { return nil }

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, noop, err
	}
	opts := &slog.HandlerOptions{Level: level}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	var handlers []slog.Handler
	if !cfg.Quiet {
		switch strings.ToLower(cfg.Format) {
		case "", FormatText:
			handlers = append(handlers, slog.NewTextHandler(out, opts))
		case FormatJSON:
			handlers = append(handlers, slog.NewJSONHandler(out, opts))
		default:
			return nil, noop, fmt.Errorf("unknown log format %q", cfg.Format)
		}
	}

	closeFn := noop
	if cfg.LogDir != "" {
		file, err := openLogFile(cfg.LogDir, cfg.Service, time.Now())
		if err != nil {
			return nil, noop, err
		}
		handlers = append(handlers, slog.NewJSONHandler(file, opts))
		closeFn = func() error {
			if err := file.Sync(); err != nil {
				_ = file.Close()
				return fmt.Errorf("sync log file: %w", err)
			}
			return file.Close()
		}
	}

	var handler slog.Handler
	switch len(handlers) {
	case 0:
		handler = slog.NewTextHandler(io.Discard, opts)
	case 1:
		handler = handlers[0]
	default:
		handler = &multiHandler{handlers: handlers}
	}

	if cfg.Service != "" {
		handler = handler.WithAttrs([]slog.Attr{slog.String("service", cfg.Service)})
	}
	return slog.New(handler), closeFn, nil
}

func openLogFile(dir, service string, now time.Time) (*os.File, error) {
	dir = expandPath(dir)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	if service == "" {
		service = "carsurvey"
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.log", service, now.Format("2006-01-02")))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return file, nil
}

// =============================================================================
// Multi Handler
// =============================================================================

// multiHandler fans records out to several handlers.
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			if err := handler.Handle(ctx, r.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}

// expandPath replaces a leading "~" with the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
