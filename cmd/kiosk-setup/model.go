package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/yeremiapane/ordengo-kiosk/services"
)

type screen int

const (
	screenInput screen = iota
	screenValidating
	screenDone
)

const pairTimeout = 20 * time.Second

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F97316"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#EAB308"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#22C55E")).Bold(true)
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(1, 2)
)

type currentMsg struct {
	snap *services.AppSnapshot
	err  error
}

type pairedMsg struct {
	snap *services.AppSnapshot
	err  error
}

// setupModel is the pairing screen.
type setupModel struct {
	pairer  Pairer
	via     string
	screen  screen
	input   textinput.Model
	spinner spinner.Model

	current *services.AppSnapshot
	result  *services.AppSnapshot
	err     error
}

func newSetupModel(p Pairer, via string) setupModel {
	ti := textinput.New()
	ti.Placeholder = "table token"
	ti.CharLimit = 128
	ti.Width = 40
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return setupModel{pairer: p, via: via, input: ti, spinner: sp}
}

func (m setupModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.loadCurrent())
}

func (m setupModel) loadCurrent() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), pairTimeout)
		defer cancel()
		snap, err := m.pairer.Current(ctx)
		return currentMsg{snap: snap, err: err}
	}
}

func (m setupModel) pair(token string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), pairTimeout)
		defer cancel()
		snap, err := m.pairer.Pair(ctx, token)
		return pairedMsg{snap: snap, err: err}
	}
}

func (m setupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			switch m.screen {
			case screenInput:
				token := strings.TrimSpace(m.input.Value())
				if token == "" {
					return m, nil
				}
				m.screen = screenValidating
				m.err = nil
				return m, tea.Batch(m.spinner.Tick, m.pair(token))
			case screenDone:
				return m, tea.Quit
			}
		}

	case currentMsg:
		if msg.err == nil {
			m.current = msg.snap
		}
		return m, nil

	case pairedMsg:
		if msg.err != nil {
			m.screen = screenInput
			m.err = msg.err
			m.input.SetValue("")
			return m, nil
		}
		m.screen = screenDone
		m.result = msg.snap
		return m, nil

	case spinner.TickMsg:
		if m.screen != screenValidating {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.screen == screenInput {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m setupModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("OrdenGo kiosk setup"))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("via " + m.via))
	b.WriteString("\n\n")

	switch m.screen {
	case screenInput:
		if m.current != nil && m.current.Paired {
			b.WriteString(warnStyle.Render(fmt.Sprintf("This device is already linked to %s. A new token replaces it.", describe(m.current))))
			b.WriteString("\n\n")
		}
		b.WriteString("Table token:\n")
		b.WriteString(m.input.View())
		b.WriteString("\n")
		if m.err != nil {
			b.WriteString("\n")
			b.WriteString(errorStyle.Render(m.err.Error()))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter: link table • esc: quit"))
	case screenValidating:
		b.WriteString(m.spinner.View())
		b.WriteString(" Checking token...")
	case screenDone:
		b.WriteString(successStyle.Render("Table linked"))
		b.WriteString("\n")
		b.WriteString(describe(m.result))
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter: quit"))
	}
	return boxStyle.Render(b.String())
}

// describe names the bound table the way staff refer to it.
func describe(s *services.AppSnapshot) string {
	if s == nil || s.Table == nil {
		return "an unknown table"
	}
	name := s.Table.RestaurantName
	if name == "" {
		name = "restaurant " + s.RestaurantID.String()
	}
	number := s.Table.Number.String()
	if number == "" {
		number = s.Table.ID.String()
	}
	return fmt.Sprintf("table %s of %s", number, name)
}
