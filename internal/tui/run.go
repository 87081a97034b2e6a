// internal/tui/run.go
// Package tui renders a pipeline run in the terminal.
package tui

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	bar "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mwiater/adjudicator/internal/progress"
	"github.com/mwiater/adjudicator/internal/util"
)

// ErrAborted is returned by Run when the user quits before the run finishes.
var ErrAborted = errors.New("aborted by user")

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	stageStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	snippetLabel = lipgloss.NewStyle().Faint(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	helpStyle    = lipgloss.NewStyle().Faint(true)
)

// frameMsg carries one stream frame into the program.
type frameMsg progress.Frame

// tickMsg refreshes the elapsed timer.
type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Model is the progress view for one run.
type Model struct {
	spinner spinner.Model
	bar     bar.Model

	started time.Time
	frame   progress.Frame
	header  progress.Frame
	width   int

	done    bool
	aborted bool
}

// NewModel returns a Model waiting for its first frame.
func NewModel() *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return &Model{
		spinner: s,
		bar:     bar.New(bar.WithDefaultGradient(), bar.WithWidth(48)),
		started: time.Now(),
		frame:   progress.Frame{Stage: progress.StageAnalyzing, Message: "Starting..."},
	}
}

// Init satisfies the tea.Model interface.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

// Update applies frames and key presses.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if !m.done {
				m.aborted = true
			}
			return m, tea.Quit
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = max(20, min(msg.Width-8, 80))
		return m, nil

	case frameMsg:
		fr := progress.Frame(msg)
		if fr.Heartbeat {
			return m, nil
		}
		m.frame = fr
		if fr.Title != "" {
			m.header = fr
		}
		if fr.Stage == progress.StageComplete || fr.Stage == progress.StageError {
			m.done = true
			return m, tea.Quit
		}
		return m, nil

	case tickMsg:
		if m.done {
			return m, nil
		}
		return m, tickCmd()
	}

	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return m, cmd
}

// View renders the run.
func (m *Model) View() string {
	var parts []string

	if m.header.Title != "" {
		parts = append(parts, titleStyle.Render(m.header.Title))
		parts = append(parts, fmt.Sprintf("%s vs %s", m.header.Participant1, m.header.Participant2))
	}

	status := fmt.Sprintf("%s %s %s", m.spinner.View(), stageStyle.Render(m.frame.Stage), m.frame.Message)
	switch m.frame.Stage {
	case progress.StageError:
		status = errorStyle.Render("Error: " + m.frame.Message)
	case progress.StageComplete:
		status = doneStyle.Render(m.frame.Message)
	}
	if m.frame.Attempt > 0 {
		status += fmt.Sprintf(" (attempt %d)", m.frame.Attempt)
	}
	parts = append(parts, status)
	parts = append(parts, m.bar.ViewAs(float64(m.frame.Percent)/100)+fmt.Sprintf("  %.0fs", time.Since(m.started).Seconds()))

	if len(m.frame.Snippets) > 0 {
		width := m.width - 4
		if width <= 0 {
			width = 76
		}
		keys := make([]string, 0, len(m.frame.Snippets))
		for k := range m.frame.Snippets {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			parts = append(parts, snippetLabel.Render(k+":")+"\n"+util.WrapToWidth(m.frame.Snippets[k], width))
		}
	}

	if !m.done {
		parts = append(parts, helpStyle.Render("q quit"))
	}
	return lipgloss.NewStyle().Margin(1, 2).Render(strings.Join(parts, "\n\n"))
}

// Final returns the last frame the model received.
func (m *Model) Final() progress.Frame { return m.frame }

// programWriter forwards frames into a running program.
type programWriter struct {
	p *tea.Program
}

func (w programWriter) WriteFrame(fr progress.Frame) error {
	w.p.Send(frameMsg(fr))
	return nil
}

// Run shows the progress view while consume streams frames into it, and
// returns the terminal frame. consume receives a context that is canceled
// when the user quits early.
func Run(ctx context.Context, consume func(context.Context, progress.FrameWriter) error, opts ...tea.ProgramOption) (progress.Frame, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := NewModel()
	p := tea.NewProgram(m, opts...)

	errCh := make(chan error, 1)
	go func() {
		err := consume(ctx, programWriter{p: p})
		if err != nil {
			p.Send(frameMsg(progress.ErrorFrame(err.Error())))
		}
		errCh <- err
	}()

	if _, err := p.Run(); err != nil {
		return progress.Frame{}, err
	}
	if m.aborted {
		cancel()
		return m.Final(), ErrAborted
	}
	if err := <-errCh; err != nil {
		return m.Final(), err
	}
	return m.Final(), nil
}
