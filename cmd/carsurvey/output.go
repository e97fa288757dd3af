// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Exit codes for CLI commands.
const (
	CLIExitSuccess  = 0 // Operation completed successfully
	CLIExitFindings = 1 // Operation completed, input is invalid
	CLIExitError    = 2 // Operation failed
)

// ExitError carries a process exit code out of a cobra RunE.
//
// # Description
//
// A nil Err means the command already reported its outcome and only the
// exit code matters (for example `check` on an invalid survey).
type ExitError struct {
	Code int
	Err  error
}

// Error returns the wrapped message, or the bare exit code.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit %d", e.Code)
}

// Unwrap returns the underlying error.
func (e *ExitError) Unwrap() error { return e.Err }

// exitCode maps a RunE error to a process exit code.
func exitCode(err error) int {
	if err == nil {
		return CLIExitSuccess
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return CLIExitError
}

// CommandResult wraps command output with metadata.
type CommandResult struct {
	APIVersion string    `json:"api_version"`
	Command    string    `json:"command"`
	Timestamp  time.Time `json:"timestamp"`
	DurationMs int64     `json:"duration_ms"`
	Success    bool      `json:"success"`
	Data       any       `json:"data,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// writeJSON encodes data to w, indented unless compact.
func writeJSON(w io.Writer, data any, compact bool) error {
	encoder := json.NewEncoder(w)
	if !compact {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// writeResult wraps data in a CommandResult and writes it as JSON.
//
// # Inputs
//
//   - w: Destination.
//   - cmd: Command name for metadata.
//   - start: Start time for duration calculation.
//   - data: The payload. Must be JSON-serializable.
//   - success: False when the command found problems with its input.
func writeResult(w io.Writer, cmd string, start time.Time, data any, success bool) error {
	return writeJSON(w, CommandResult{
		APIVersion: "1.0",
		Command:    cmd,
		Timestamp:  time.Now().UTC(),
		DurationMs: time.Since(start).Milliseconds(),
		Success:    success,
		Data:       data,
	}, false)
}

// writeErrorResult reports a failed command as JSON.
func writeErrorResult(w io.Writer, cmd string, err error) error {
	return writeJSON(w, CommandResult{
		APIVersion: "1.0",
		Command:    cmd,
		Timestamp:  time.Now().UTC(),
		Success:    false,
		Error:      err.Error(),
	}, false)
}

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)
