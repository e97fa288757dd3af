// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/CarSurvey/services/survey/datatypes"
	"github.com/AleutianAI/CarSurvey/services/survey/form"
	"github.com/AleutianAI/CarSurvey/services/survey/validation"
)

// =============================================================================
// Helpers
// =============================================================================

func newTestModel(t *testing.T) Model {
	t.Helper()
	ctrl := form.NewController(form.Options{
		Saver: form.SaverFunc(func(context.Context, datatypes.SubmissionResult) error { return nil }),
		Now:   func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) },
	})
	return NewModel(context.Background(), ctrl)
}

func key(k tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: k} }

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

// collect runs cmd and flattens batches into their messages.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func findSubmitDone(t *testing.T, cmd tea.Cmd) SubmitDoneMsg {
	t.Helper()
	for _, msg := range collect(cmd) {
		if done, ok := msg.(SubmitDoneMsg); ok {
			return done
		}
	}
	t.Fatal("no SubmitDoneMsg produced")
	return SubmitDoneMsg{}
}

// =============================================================================
// Widget Tests
// =============================================================================

func TestOptionList_HighlightWraps(t *testing.T) {
	l := NewOptionList(datatypes.FieldBrands, "Brands")
	l.SetOptions([]string{"A", "B", "C"}, nil)

	l, _ = l.Update(key(tea.KeyUp))
	assert.Equal(t, 2, l.Cursor())

	l, _ = l.Update(key(tea.KeyDown))
	assert.Equal(t, 0, l.Cursor())

	l, _ = l.Update(runes("j"))
	assert.Equal(t, 1, l.Cursor())
}

func TestOptionList_ToggleEmitsMessage(t *testing.T) {
	l := NewOptionList(datatypes.FieldColors, "Colors")
	l.SetOptions([]string{"Blue", "Red"}, nil)
	l, _ = l.Update(key(tea.KeyDown))

	_, cmd := l.Update(key(tea.KeySpace))
	require.NotNil(t, cmd)
	assert.Equal(t, ToggleMsg{Field: datatypes.FieldColors, Value: "Red"}, cmd())
}

func TestOptionList_SetOptionsKeepsHighlight(t *testing.T) {
	l := NewOptionList(datatypes.FieldColors, "Colors")
	l.SetOptions([]string{"Blue", "Silver", "Green", "Yellow"}, nil)
	l.Next()
	l.Next()
	l.Next()

	l.SetOptions([]string{"Blue", "Silver", "Yellow"}, nil)
	v, ok := l.Highlighted()
	require.True(t, ok)
	assert.Equal(t, "Yellow", v)

	l.SetOptions([]string{"Blue"}, nil)
	assert.Equal(t, 0, l.Cursor())
}

func TestOptionList_DisabledIgnoresKeys(t *testing.T) {
	l := NewOptionList(datatypes.FieldBrands, "Brands")
	l.SetOptions([]string{"A", "B"}, nil)
	l.Disabled = true

	l, cmd := l.Update(key(tea.KeyEnter))
	assert.Nil(t, cmd)
	l, _ = l.Update(key(tea.KeyDown))
	assert.Equal(t, 0, l.Cursor())
}

func TestRadioGroup_SelectAndClear(t *testing.T) {
	r := NewRadioGroup(datatypes.FieldTransmission, "Transmission", []string{"Manual", "Automatic"})

	r, _ = r.Update(key(tea.KeyUp))
	assert.Equal(t, 1, r.Cursor())

	_, cmd := r.Update(key(tea.KeyEnter))
	require.NotNil(t, cmd)
	assert.Equal(t, SelectMsg{Field: datatypes.FieldTransmission, Value: "Automatic"}, cmd())

	_, cmd = r.Update(key(tea.KeyBackspace))
	require.NotNil(t, cmd)
	assert.Equal(t, SelectMsg{Field: datatypes.FieldTransmission, Value: ""}, cmd())
}

func TestButton_Disabled(t *testing.T) {
	b := Button{Label: "Submit", Action: actionSubmit, Disabled: true}
	_, cmd := b.Update(key(tea.KeyEnter))
	assert.Nil(t, cmd)

	b.Disabled = false
	_, cmd = b.Update(key(tea.KeyEnter))
	require.NotNil(t, cmd)
	assert.Equal(t, PressMsg{Action: actionSubmit}, cmd())
}

// =============================================================================
// Model Tests
// =============================================================================

func TestModel_InitialState(t *testing.T) {
	m := newTestModel(t)

	assert.Nil(t, m.Init())
	assert.False(t, m.State().CanSubmit)
	assert.Equal(t, datatypes.Brands(), m.brands.Options)
	assert.Equal(t, datatypes.Colors(), m.colors.Options)
	assert.True(t, m.submit.Disabled)

	view := m.View()
	assert.Contains(t, view, "Car Survey")
	assert.Contains(t, view, "Transmission")
	assert.NotContains(t, view, validation.MsgBrandsRequired, "untouched fields show no errors")
}

func TestModel_RestrictingBrandNarrowsColors(t *testing.T) {
	m := newTestModel(t)

	m, _ = update(t, m, ToggleMsg{Field: datatypes.FieldBrands, Value: datatypes.BrandToyota})
	assert.NotContains(t, m.colors.Options, datatypes.ColorGreen)
	assert.NotContains(t, m.colors.Options, datatypes.ColorPink)
	assert.NotContains(t, m.colors.Options, datatypes.ColorYellow)

	m, _ = update(t, m, ToggleMsg{Field: datatypes.FieldColors, Value: datatypes.ColorGreen})
	assert.NotEmpty(t, m.notice)
	assert.Empty(t, m.State().Values.Colors)
}

func TestModel_FocusSkipsHiddenTransmission(t *testing.T) {
	m := newTestModel(t)
	m, _ = update(t, m, ToggleMsg{Field: datatypes.FieldBrands, Value: datatypes.BrandTesla})
	require.False(t, m.State().View.TransmissionVisible)

	m, _ = update(t, m, key(tea.KeyTab))
	assert.Equal(t, focusColors, m.focus)
	m, _ = update(t, m, key(tea.KeyTab))
	assert.Equal(t, focusSubmit, m.focus)
	m, _ = update(t, m, key(tea.KeyShiftTab))
	assert.Equal(t, focusColors, m.focus)

	assert.NotContains(t, m.View(), "Manual")
}

func TestModel_FocusWraps(t *testing.T) {
	m := newTestModel(t)

	m, _ = update(t, m, key(tea.KeyShiftTab))
	assert.Equal(t, focusReset, m.focus)
	m, _ = update(t, m, key(tea.KeyTab))
	assert.Equal(t, focusBrands, m.focus)
}

func TestModel_KeyboardToggleRoundTrip(t *testing.T) {
	m := newTestModel(t)

	// Highlight starts on the first brand.
	m, cmd := update(t, m, key(tea.KeySpace))
	msgs := collect(cmd)
	require.Len(t, msgs, 1)
	m, _ = update(t, m, msgs[0])

	assert.Equal(t, []string{datatypes.Brands()[0]}, m.State().Values.Brands)
}

func TestModel_SubmitFlow(t *testing.T) {
	m := newTestModel(t)
	m, _ = update(t, m, ToggleMsg{Field: datatypes.FieldBrands, Value: datatypes.BrandFord})
	m, _ = update(t, m, ToggleMsg{Field: datatypes.FieldColors, Value: datatypes.ColorGreen})

	require.True(t, m.State().CanSubmit)
	assert.Equal(t, datatypes.TransmissionAutomatic, m.State().Values.Transmission)

	m, cmd := update(t, m, PressMsg{Action: actionSubmit})
	require.NotNil(t, cmd)
	assert.True(t, m.Submitting())
	assert.True(t, m.submit.Disabled)
	assert.Contains(t, m.View(), "Submitting...")

	done := findSubmitDone(t, cmd)
	require.NoError(t, done.Err)

	m, _ = update(t, m, done)
	assert.False(t, m.Submitting())
	require.NotNil(t, m.State().Result)

	view := m.View()
	assert.Contains(t, view, SuccessHeading)
	assert.Contains(t, view, "Brands: Ford")
	assert.Contains(t, view, "Colors: Green")
	assert.Contains(t, view, "Transmission: Automatic")
}

func TestModel_SubmitInvalidRevealsErrors(t *testing.T) {
	m := newTestModel(t)

	m, cmd := update(t, m, key(tea.KeyCtrlS))
	assert.Nil(t, cmd)
	assert.False(t, m.Submitting())

	view := m.View()
	assert.Contains(t, view, validation.MsgBrandsRequired)
	assert.Contains(t, view, validation.MsgColorsRequired)
}

func TestModel_ResetDropsStaleSubmit(t *testing.T) {
	m := newTestModel(t)
	m, _ = update(t, m, ToggleMsg{Field: datatypes.FieldBrands, Value: datatypes.BrandKia})
	m, _ = update(t, m, ToggleMsg{Field: datatypes.FieldColors, Value: datatypes.ColorRed})

	m, cmd := update(t, m, PressMsg{Action: actionSubmit})
	require.NotNil(t, cmd)
	staleSeq := m.submitSeq

	m, _ = update(t, m, key(tea.KeyCtrlR))
	assert.False(t, m.Submitting())
	assert.True(t, m.State().Values.IsEmpty())

	m, _ = update(t, m, SubmitDoneMsg{Seq: staleSeq, Result: datatypes.SubmissionResult{ID: "old"}})
	assert.Nil(t, m.State().Result)
	assert.NotContains(t, m.View(), SuccessHeading)
}

func TestModel_SupersededSubmitIsSilent(t *testing.T) {
	m := newTestModel(t)
	m.submitting = true
	m.submitSeq = 7

	m, _ = update(t, m, SubmitDoneMsg{Seq: 7, Err: form.ErrSuperseded})
	assert.False(t, m.Submitting())
	assert.Empty(t, m.notice)
}

func TestModel_HelpToggle(t *testing.T) {
	m := newTestModel(t)
	m, _ = update(t, m, runes("?"))
	assert.Contains(t, m.View(), "clear transmission")
	m, _ = update(t, m, runes("?"))
	assert.NotContains(t, m.View(), "clear transmission")
}

func TestModel_Quit(t *testing.T) {
	for _, k := range []tea.KeyMsg{runes("q"), key(tea.KeyCtrlC), key(tea.KeyEsc)} {
		t.Run(k.String(), func(t *testing.T) {
			m := newTestModel(t)
			m, cmd := update(t, m, k)
			require.NotNil(t, cmd)
			assert.Equal(t, tea.Quit(), cmd())
			assert.Empty(t, m.View())
		})
	}
}

// =============================================================================
// Summary Tests
// =============================================================================

func TestSummaryLines(t *testing.T) {
	lines := SummaryLines(datatypes.SurveyData{
		Brands: []string{"Tesla", "Kia"},
		Colors: []string{"Blue"},
	})
	assert.Equal(t, []string{"Brands: Tesla, Kia", "Colors: Blue"}, lines)

	lines = SummaryLines(datatypes.SurveyData{
		Brands:       []string{"Ford"},
		Colors:       []string{"Red", "White"},
		Transmission: datatypes.TransmissionManual,
	})
	assert.Equal(t, "Transmission: Manual", lines[2])
}

func TestRenderResult(t *testing.T) {
	out := RenderResult(datatypes.SubmissionResult{
		Data: datatypes.SurveyData{Brands: []string{"Honda"}, Colors: []string{"Black"}},
	})
	assert.Contains(t, out, SuccessHeading)
	assert.Contains(t, out, "Brands: Honda")
	assert.NotContains(t, out, "Transmission")
}
