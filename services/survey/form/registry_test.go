// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package form

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/CarSurvey/services/survey/datatypes"
	"github.com/AleutianAI/CarSurvey/services/survey/observability"
)

// fakeClock is a settable clock safe for concurrent reads.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func TestRegistry_CreateGetDelete(t *testing.T) {
	r := NewRegistry(RegistryConfig{Saver: DelaySaver{}})

	c, err := r.Create()
	require.NoError(t, err)
	assert.Equal(t, 1, r.Len())

	got, err := r.Get(c.ID())
	require.NoError(t, err)
	assert.Same(t, c, got)

	require.NoError(t, r.Delete(c.ID()))
	assert.Equal(t, 0, r.Len())

	_, err = r.Get(c.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, r.Delete(c.ID()), ErrSessionNotFound)
}

func TestRegistry_SessionsAreIndependent(t *testing.T) {
	r := NewRegistry(RegistryConfig{Saver: DelaySaver{}})
	a, err := r.Create()
	require.NoError(t, err)
	b, err := r.Create()
	require.NoError(t, err)

	_, err = a.ToggleBrand(datatypes.BrandTesla)
	require.NoError(t, err)

	assert.NotEqual(t, a.ID(), b.ID())
	assert.Empty(t, b.State().Values.Brands)
}

func TestRegistry_MaxSessions(t *testing.T) {
	r := NewRegistry(RegistryConfig{MaxSessions: 2})

	_, err := r.Create()
	require.NoError(t, err)
	_, err = r.Create()
	require.NoError(t, err)

	_, err = r.Create()
	assert.ErrorIs(t, err, ErrTooManySessions)
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_SweepEvictsIdleSessions(t *testing.T) {
	clock := newFakeClock()
	m := observability.NewSurveyMetrics(prometheus.NewRegistry())
	r := NewRegistry(RegistryConfig{IdleTTL: time.Minute, Now: clock.Now, Metrics: m})

	idle, err := r.Create()
	require.NoError(t, err)
	clock.Advance(45 * time.Second)
	fresh, err := r.Create()
	require.NoError(t, err)
	clock.Advance(30 * time.Second)

	evicted := r.Sweep(clock.Now())

	assert.Equal(t, 1, evicted)
	_, err = r.Get(idle.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = r.Get(fresh.ID())
	assert.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveSessions))
}

func TestRegistry_GetKeepsSessionAlive(t *testing.T) {
	clock := newFakeClock()
	r := NewRegistry(RegistryConfig{IdleTTL: time.Minute, Now: clock.Now})

	c, err := r.Create()
	require.NoError(t, err)
	clock.Advance(50 * time.Second)
	_, err = r.Get(c.ID())
	require.NoError(t, err)
	clock.Advance(50 * time.Second)

	assert.Zero(t, r.Sweep(clock.Now()))
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_SweepSkipsPendingSubmission(t *testing.T) {
	clock := newFakeClock()
	saver := newGateSaver()
	r := NewRegistry(RegistryConfig{IdleTTL: time.Minute, Now: clock.Now, Saver: saver})

	c, err := r.Create()
	require.NoError(t, err)
	_, _ = c.ToggleBrand(datatypes.BrandFord)
	_, _ = c.ToggleColor(datatypes.ColorBlue)
	done := submitAsync(c, context.Background())
	saver.waitStarted(t)

	clock.Advance(time.Hour)
	assert.Zero(t, r.Sweep(clock.Now()))

	close(saver.release)
	require.NoError(t, (<-done).err)
}

func TestRegistry_DeleteCancelsPendingSubmission(t *testing.T) {
	saver := newGateSaver()
	r := NewRegistry(RegistryConfig{Saver: saver})

	c, err := r.Create()
	require.NoError(t, err)
	_, _ = c.ToggleBrand(datatypes.BrandFord)
	_, _ = c.ToggleColor(datatypes.ColorBlue)
	done := submitAsync(c, context.Background())
	saver.waitStarted(t)

	require.NoError(t, r.Delete(c.ID()))
	assert.ErrorIs(t, (<-done).err, ErrSuperseded)
}

func TestRegistry_RunSweeperStopsOnCancel(t *testing.T) {
	r := NewRegistry(RegistryConfig{})
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() { errc <- r.RunSweeper(ctx, time.Millisecond) }()
	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry(RegistryConfig{Saver: DelaySaver{}})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := r.Create()
			if err != nil {
				t.Error(err)
				return
			}
			_, _ = c.ToggleBrand(datatypes.BrandKia)
			_, _ = c.ToggleColor(datatypes.ColorRed)
			if _, err := c.Submit(context.Background()); err != nil {
				t.Error(err)
			}
			_ = r.Delete(c.ID())
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, r.Len())
}
