package tui

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"

	"github.com/mwiater/adjudicator/internal/progress"
)

func TestModelTracksFrames(t *testing.T) {
	m := NewModel()

	_, cmd := m.Update(frameMsg(progress.Frame{
		Stage:        progress.StageTitleExtracted,
		Message:      "Identified debate: Taxes",
		Percent:      25,
		Title:        "Taxes",
		Participant1: "Alice",
		Participant2: "Bob",
	}))
	if cmd != nil {
		t.Fatalf("expected no command for an intermediate frame")
	}
	if m.done {
		t.Fatalf("model should not be done after an intermediate frame")
	}

	m.Update(frameMsg(progress.Frame{
		Stage:    progress.StageEvaluationProgress,
		Message:  "Arguments evaluated",
		Percent:  60,
		Snippets: map[string]string{"evaluation": "Cost: P1 stronger..."},
	}))

	view := m.View()
	for _, want := range []string{"Taxes", "Alice vs Bob", "Arguments evaluated", "Cost: P1 stronger..."} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}

	_, cmd = m.Update(frameMsg(progress.CompleteFrame(7, "/result/7/", "P1", "j")))
	if cmd == nil {
		t.Fatalf("expected quit command on the terminal frame")
	}
	if !m.done || m.aborted {
		t.Fatalf("expected done and not aborted, got done=%v aborted=%v", m.done, m.aborted)
	}
	if m.Final().DebateID != 7 {
		t.Errorf("final frame debate id = %d, want 7", m.Final().DebateID)
	}
}

func TestModelIgnoresHeartbeats(t *testing.T) {
	m := NewModel()
	m.Update(frameMsg(progress.Frame{Stage: progress.StageAnalysis, Message: "a", Percent: 10}))
	m.Update(frameMsg(progress.Heartbeat()))
	if m.frame.Stage != progress.StageAnalysis {
		t.Errorf("heartbeat replaced the frame: %+v", m.frame)
	}
}

func TestModelQuitMarksAborted(t *testing.T) {
	m := NewModel()
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("expected a quit command")
	}
	if !m.aborted {
		t.Error("expected aborted after ctrl+c mid-run")
	}
}

func TestRunReturnsTerminalFrame(t *testing.T) {
	consume := func(_ context.Context, w progress.FrameWriter) error {
		_ = w.WriteFrame(progress.Frame{Stage: progress.StageAnalysis, Percent: 10, Message: "Identifying participants and arguments..."})
		return w.WriteFrame(progress.ErrorFrame("quota"))
	}

	final, err := Run(context.Background(), consume,
		tea.WithInput(nil), tea.WithOutput(io.Discard), tea.WithoutRenderer())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if final.Stage != progress.StageError || final.Message != "quota" {
		t.Errorf("final frame = %+v", final)
	}
}

func TestPlainWriter(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	w := NewPlainWriter(&buf)
	frames := []progress.Frame{
		progress.Heartbeat(),
		{Stage: progress.StageAnalysis, Percent: 10, Message: "Identifying participants and arguments..."},
		{Stage: progress.StageRetrying, Percent: 10, Message: "Retrying analyze (attempt 2 of 4)..."},
		{Stage: progress.StageEvaluationProgress, Percent: 60, Message: "Arguments evaluated", Snippets: map[string]string{"evaluation": "e..."}},
		{Stage: progress.StageJudgmentProgress, Percent: 80, Message: "Judgment complete", Snippets: map[string]string{"evaluation": "e..."}},
		progress.CompleteFrame(1, "/result/1/", "P1", "j"),
	}
	for _, fr := range frames {
		if err := w.WriteFrame(fr); err != nil {
			t.Fatalf("WriteFrame: %v", err)
		}
	}

	out := buf.String()
	if strings.Contains(out, "heartbeat") {
		t.Errorf("heartbeat printed:\n%s", out)
	}
	if got := strings.Count(out, "evaluation: e..."); got != 1 {
		t.Errorf("snippet printed %d times, want 1:\n%s", got, out)
	}
	for _, want := range []string{"[ 10%] analysis Identifying", "Retrying analyze", "[100%] Analysis complete!"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
