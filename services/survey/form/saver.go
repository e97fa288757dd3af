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
	"time"

	"github.com/AleutianAI/CarSurvey/services/survey/datatypes"
)

// DefaultSaveLatency is the simulated save delay.
const DefaultSaveLatency = time.Second

// Saver persists a submission snapshot.
//
// # Description
//
// Save blocks until the snapshot is stored or ctx is done. The controller
// cancels ctx when a reset supersedes the submission.
type Saver interface {
	Save(ctx context.Context, result datatypes.SubmissionResult) error
}

// SaverFunc adapts a function to the Saver interface.
type SaverFunc func(ctx context.Context, result datatypes.SubmissionResult) error

// Save calls f.
func (f SaverFunc) Save(ctx context.Context, result datatypes.SubmissionResult) error {
	return f(ctx, result)
}

// DelaySaver simulates a remote save with a fixed latency. Nothing is
// persisted and the save never fails on its own.
type DelaySaver struct {
	Latency time.Duration
}

// Save waits for Latency or until ctx is done, whichever comes first.
func (s DelaySaver) Save(ctx context.Context, _ datatypes.SubmissionResult) error {
	if s.Latency <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(s.Latency)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
