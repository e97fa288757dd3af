// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tui provides the interactive terminal survey form.
//
// # Description
//
// The form is a bubbletea model over one form.Controller. Widgets render the
// controller's state and report user intent as messages; only the model
// calls the controller. The submit runs as a tea.Cmd so the UI keeps
// drawing the spinner during the simulated save.
//
// # Thread Safety
//
// TUI components are designed for single-threaded use within the bubbletea
// event loop. Do not access TUI state from multiple goroutines.
package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/AleutianAI/CarSurvey/services/survey/datatypes"
	"github.com/AleutianAI/CarSurvey/services/survey/form"
)

// =============================================================================
// Focus
// =============================================================================

// focusArea identifies the focused control.
type focusArea int

const (
	focusBrands focusArea = iota
	focusColors
	focusTransmission
	focusSubmit
	focusReset
	focusCount
)

// Button actions.
const (
	actionSubmit = "submit"
	actionReset  = "reset"
)

// =============================================================================
// Messages
// =============================================================================

// SubmitDoneMsg carries the outcome of a submit command.
type SubmitDoneMsg struct {
	Seq    int
	Result datatypes.SubmissionResult
	Err    error
}

func submitCmd(ctx context.Context, ctrl *form.Controller, seq int) tea.Cmd {
	return func() tea.Msg {
		result, err := ctrl.Submit(ctx)
		return SubmitDoneMsg{Seq: seq, Result: result, Err: err}
	}
}

// =============================================================================
// Model
// =============================================================================

// Model is the bubbletea model for the survey form.
type Model struct {
	ctx  context.Context
	ctrl *form.Controller

	state datatypes.FormState
	focus focusArea

	brands       OptionList
	colors       OptionList
	transmission RadioGroup
	submit       Button
	reset        Button
	spinner      spinner.Model

	// touched fields show their validation message.
	touched    map[datatypes.Field]bool
	submitting bool
	submitSeq  int
	notice     string
	showHelp   bool
	quitting   bool
}

// NewModel creates the form model over ctrl.
//
// # Inputs
//
//   - ctx: Bounds every submit. Cancel it to abandon a pending save.
//   - ctrl: The form to drive.
//
// # Outputs
//
//   - Model: Ready-to-use model for tea.NewProgram.
func NewModel(ctx context.Context, ctrl *form.Controller) Model {
	if ctx == nil {
		ctx = context.Background()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	transmissions := make([]string, 0, 2)
	for _, t := range datatypes.Transmissions() {
		transmissions = append(transmissions, t.String())
	}

	m := Model{
		ctx:          ctx,
		ctrl:         ctrl,
		brands:       NewOptionList(datatypes.FieldBrands, "Brands"),
		colors:       NewOptionList(datatypes.FieldColors, "Colors"),
		transmission: NewRadioGroup(datatypes.FieldTransmission, "Transmission", transmissions),
		submit:       Button{Label: "Submit", Action: actionSubmit},
		reset:        Button{Label: "Reset", Action: actionReset},
		spinner:      sp,
		touched:      map[datatypes.Field]bool{},
	}
	m.refresh()
	return m
}

// Run starts an interactive program for ctrl and blocks until the user quits.
func Run(ctx context.Context, ctrl *form.Controller, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)
	_, err := tea.NewProgram(NewModel(ctx, ctrl), opts...).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// State returns the form state the model last rendered.
func (m Model) State() datatypes.FormState { return m.state }

// Submitting reports whether a submit command is pending.
func (m Model) Submitting() bool { return m.submitting }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case ToggleMsg:
		m.touched[msg.Field] = true
		var err error
		switch msg.Field {
		case datatypes.FieldBrands:
			_, err = m.ctrl.ToggleBrand(msg.Value)
		case datatypes.FieldColors:
			_, err = m.ctrl.ToggleColor(msg.Value)
		}
		m.setNotice(err)
		m.refresh()

	case SelectMsg:
		m.touched[msg.Field] = true
		_, err := m.ctrl.SetTransmission(datatypes.Transmission(msg.Value))
		m.setNotice(err)
		m.refresh()

	case PressMsg:
		switch msg.Action {
		case actionSubmit:
			return m.startSubmit()
		case actionReset:
			m.doReset()
		}

	case SubmitDoneMsg:
		if msg.Seq != m.submitSeq {
			return m, nil
		}
		m.submitting = false
		switch {
		case msg.Err == nil:
			m.notice = ""
		case errors.Is(msg.Err, form.ErrSuperseded):
			m.notice = ""
		case errors.Is(msg.Err, form.ErrInvalid):
			m.notice = "Please fix the highlighted fields."
		default:
			m.notice = msg.Err.Error()
		}
		m.refresh()

	case spinner.TickMsg:
		if m.submitting {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Car Survey"))
	b.WriteString("\n\n")

	b.WriteString(m.brands.View(m.focus == focusBrands))
	b.WriteString(m.fieldError(datatypes.FieldBrands))
	b.WriteString("\n")

	b.WriteString(m.colors.View(m.focus == focusColors))
	b.WriteString(m.fieldError(datatypes.FieldColors))
	b.WriteString("\n")

	if m.state.View.TransmissionVisible {
		b.WriteString(m.transmission.View(m.focus == focusTransmission))
		b.WriteString(m.fieldError(datatypes.FieldTransmission))
		b.WriteString("\n")
	}

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		m.submit.View(m.focus == focusSubmit), " ", m.reset.View(m.focus == focusReset)))
	b.WriteString("\n")

	if m.submitting {
		b.WriteString(m.spinner.View() + " Submitting...\n")
	}
	if m.notice != "" {
		b.WriteString(errorStyle.Render(m.notice))
		b.WriteString("\n")
	}
	if m.state.Result != nil {
		b.WriteString("\n")
		b.WriteString(RenderResult(*m.state.Result))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.showHelp {
		b.WriteString(m.renderHelp())
	} else {
		b.WriteString(helpDescStyle.Render("tab: next  shift+tab: prev  space/enter: select  ?: help  q: quit"))
	}
	b.WriteString("\n")
	return b.String()
}

// =============================================================================
// Key Handling
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q", "esc":
		m.quitting = true
		return m, tea.Quit
	case "?":
		m.showHelp = !m.showHelp
		return m, nil
	case "tab":
		m.moveFocus(1)
		return m, nil
	case "shift+tab":
		m.moveFocus(-1)
		return m, nil
	case "ctrl+s":
		return m.startSubmit()
	case "ctrl+r":
		m.doReset()
		return m, nil
	}

	var cmd tea.Cmd
	switch m.focus {
	case focusBrands:
		m.brands, cmd = m.brands.Update(msg)
	case focusColors:
		m.colors, cmd = m.colors.Update(msg)
	case focusTransmission:
		m.transmission, cmd = m.transmission.Update(msg)
	case focusSubmit:
		m.submit, cmd = m.submit.Update(msg)
	case focusReset:
		m.reset, cmd = m.reset.Update(msg)
	}
	return m, cmd
}

// moveFocus cycles focus by step, skipping the hidden transmission control.
func (m *Model) moveFocus(step int) {
	for i := 0; i < int(focusCount); i++ {
		m.focus = (m.focus + focusArea(step) + focusCount) % focusCount
		if m.focus != focusTransmission || m.state.View.TransmissionVisible {
			return
		}
	}
}

// =============================================================================
// Actions
// =============================================================================

func (m Model) startSubmit() (tea.Model, tea.Cmd) {
	if !m.state.CanSubmit || m.submitting {
		m.touched[datatypes.FieldBrands] = true
		m.touched[datatypes.FieldColors] = true
		return m, nil
	}
	m.submitting = true
	m.submitSeq++
	m.notice = ""
	m.submit.Disabled = true
	return m, tea.Batch(submitCmd(m.ctx, m.ctrl, m.submitSeq), m.spinner.Tick)
}

func (m *Model) doReset() {
	m.ctrl.Reset()
	m.submitting = false
	m.submitSeq++
	m.notice = ""
	m.touched = map[datatypes.Field]bool{}
	m.refresh()
}

func (m *Model) setNotice(err error) {
	if err == nil {
		m.notice = ""
		return
	}
	m.notice = err.Error()
}

// refresh pulls the controller state into the widgets.
func (m *Model) refresh() {
	m.state = m.ctrl.State()

	m.brands.SetOptions(datatypes.Brands(), m.state.Values.Brands)
	m.colors.SetOptions(m.state.View.AllowedColors, m.state.Values.Colors)
	m.transmission.Value = m.state.Values.Transmission.String()
	m.transmission.Disabled = !m.state.View.TransmissionVisible

	m.brands.Disabled = m.submitting
	m.colors.Disabled = m.submitting
	m.submit.Disabled = !m.state.CanSubmit || m.submitting

	if m.focus == focusTransmission && !m.state.View.TransmissionVisible {
		m.moveFocus(1)
	}
}

func (m Model) fieldError(field datatypes.Field) string {
	msg := m.state.Validation.Errors[field]
	if msg == "" || !m.touched[field] {
		return ""
	}
	return errorStyle.Render(msg) + "\n"
}

func (m Model) renderHelp() string {
	rows := [][2]string{
		{"tab / shift+tab", "move between controls"},
		{"up / down", "move the highlight (wraps)"},
		{"space / enter", "toggle option, choose transmission, press button"},
		{"backspace", "clear transmission"},
		{"ctrl+s", "submit"},
		{"ctrl+r", "reset"},
		{"q / esc", "quit"},
	}
	var b strings.Builder
	for _, r := range rows {
		b.WriteString(helpKeyStyle.Render(r[0]))
		b.WriteString("  ")
		b.WriteString(helpDescStyle.Render(r[1]))
		b.WriteString("\n")
	}
	return b.String()
}

// =============================================================================
// Styles
// =============================================================================

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	disabledStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	spinnerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	buttonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250")).
			Background(lipgloss.Color("238")).
			Padding(0, 2)

	focusedButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("255")).
				Background(lipgloss.Color("25")).
				Bold(true).
				Padding(0, 2)

	disabledButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("241")).
				Background(lipgloss.Color("235")).
				Padding(0, 2)

	successStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))
)
