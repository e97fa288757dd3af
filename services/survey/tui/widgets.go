// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tui

import (
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/AleutianAI/CarSurvey/services/survey/datatypes"
)

// =============================================================================
// Messages
// =============================================================================

// ToggleMsg asks the form to toggle Value inside a multi-select field.
type ToggleMsg struct {
	Field datatypes.Field
	Value string
}

// SelectMsg asks the form to set the single-select field to Value.
type SelectMsg struct {
	Field datatypes.Field
	Value string
}

// PressMsg reports that a button was activated.
type PressMsg struct {
	Action string
}

func emit(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}

// =============================================================================
// OptionList
// =============================================================================

// OptionList is a multi-select list with a keyboard highlight.
//
// # Description
//
// The list is given its options and current selection on every render and
// reports toggles as ToggleMsg. It never changes the selection itself.
// The highlight wraps at both ends.
type OptionList struct {
	Field    datatypes.Field
	Title    string
	Options  []string
	Selected []string
	Disabled bool

	cursor int
}

// NewOptionList creates an empty list for field.
func NewOptionList(field datatypes.Field, title string) OptionList {
	return OptionList{Field: field, Title: title}
}

// Cursor returns the highlighted index.
func (l OptionList) Cursor() int { return l.cursor }

// Highlighted returns the highlighted option.
func (l OptionList) Highlighted() (string, bool) {
	if len(l.Options) == 0 {
		return "", false
	}
	return l.Options[l.cursor], true
}

// SetOptions replaces the offered options and the selection. The highlight
// stays on the same option when it is still offered.
func (l *OptionList) SetOptions(options, selected []string) {
	current, had := l.Highlighted()
	l.Options = slices.Clone(options)
	l.Selected = slices.Clone(selected)

	if had {
		if i := slices.Index(l.Options, current); i >= 0 {
			l.cursor = i
			return
		}
	}
	if l.cursor >= len(l.Options) {
		l.cursor = max(len(l.Options)-1, 0)
	}
}

// Next moves the highlight down, wrapping to the top.
func (l *OptionList) Next() {
	if n := len(l.Options); n > 0 {
		l.cursor = (l.cursor + 1) % n
	}
}

// Prev moves the highlight up, wrapping to the bottom.
func (l *OptionList) Prev() {
	if n := len(l.Options); n > 0 {
		l.cursor = (l.cursor - 1 + n) % n
	}
}

// Update handles navigation and toggle keys.
func (l OptionList) Update(msg tea.KeyMsg) (OptionList, tea.Cmd) {
	if l.Disabled {
		return l, nil
	}
	switch msg.String() {
	case "down", "j":
		l.Next()
	case "up", "k":
		l.Prev()
	case "enter", " ":
		if v, ok := l.Highlighted(); ok {
			return l, emit(ToggleMsg{Field: l.Field, Value: v})
		}
	}
	return l, nil
}

// View renders the list. focused marks the highlight.
func (l OptionList) View(focused bool) string {
	var b strings.Builder
	b.WriteString(labelStyle.Render(l.Title))
	b.WriteString("\n")
	for i, opt := range l.Options {
		b.WriteString(renderItem(opt, slices.Contains(l.Selected, opt), focused && i == l.cursor, "[x]", "[ ]", l.Disabled))
		b.WriteString("\n")
	}
	return b.String()
}

// =============================================================================
// RadioGroup
// =============================================================================

// RadioGroup is a single-select list. Like OptionList it only reports
// choices as SelectMsg.
type RadioGroup struct {
	Field    datatypes.Field
	Title    string
	Options  []string
	Value    string
	Disabled bool

	cursor int
}

// NewRadioGroup creates a radio group over options.
func NewRadioGroup(field datatypes.Field, title string, options []string) RadioGroup {
	return RadioGroup{Field: field, Title: title, Options: slices.Clone(options)}
}

// Cursor returns the highlighted index.
func (r RadioGroup) Cursor() int { return r.cursor }

// Update handles navigation and selection keys.
func (r RadioGroup) Update(msg tea.KeyMsg) (RadioGroup, tea.Cmd) {
	n := len(r.Options)
	if r.Disabled || n == 0 {
		return r, nil
	}
	switch msg.String() {
	case "down", "j", "right", "l":
		r.cursor = (r.cursor + 1) % n
	case "up", "k", "left", "h":
		r.cursor = (r.cursor - 1 + n) % n
	case "enter", " ":
		return r, emit(SelectMsg{Field: r.Field, Value: r.Options[r.cursor]})
	case "backspace", "delete":
		return r, emit(SelectMsg{Field: r.Field, Value: ""})
	}
	return r, nil
}

// View renders the group. focused marks the highlight.
func (r RadioGroup) View(focused bool) string {
	var b strings.Builder
	b.WriteString(labelStyle.Render(r.Title))
	b.WriteString("\n")
	for i, opt := range r.Options {
		b.WriteString(renderItem(opt, opt == r.Value, focused && i == r.cursor, "(•)", "( )", r.Disabled))
		b.WriteString("\n")
	}
	return b.String()
}

// =============================================================================
// Button
// =============================================================================

// Button emits a PressMsg on enter or space unless disabled.
type Button struct {
	Label    string
	Action   string
	Disabled bool
}

// Update handles activation keys.
func (b Button) Update(msg tea.KeyMsg) (Button, tea.Cmd) {
	if b.Disabled {
		return b, nil
	}
	switch msg.String() {
	case "enter", " ":
		return b, emit(PressMsg{Action: b.Action})
	}
	return b, nil
}

// View renders the button.
func (b Button) View(focused bool) string {
	switch {
	case b.Disabled:
		return disabledButtonStyle.Render(b.Label)
	case focused:
		return focusedButtonStyle.Render(b.Label)
	default:
		return buttonStyle.Render(b.Label)
	}
}

// =============================================================================
// Rendering Helpers
// =============================================================================

func renderItem(label string, selected, highlighted bool, on, off string, disabled bool) string {
	mark := off
	if selected {
		mark = on
	}
	cursor := "  "
	if highlighted {
		cursor = "> "
	}
	line := cursor + mark + " " + label

	switch {
	case disabled:
		return disabledStyle.Render(line)
	case highlighted:
		return highlightStyle.Render(line)
	case selected:
		return selectedStyle.Render(line)
	default:
		return line
	}
}
