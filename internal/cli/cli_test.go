package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwiater/adjudicator/internal/appconfig"
	"github.com/mwiater/adjudicator/internal/prompts"
	"github.com/mwiater/adjudicator/internal/providers"
	"github.com/mwiater/adjudicator/internal/store"
)

const (
	testAnalysis = `<debate_title>Car-free city centres</debate_title>
<p1>Alice</p1>
<p2>Bob</p2>
<s1>P1 argues bans cut pollution.</s1>
<s2>P2 argues bans hurt commuters.</s2>
<complexity>medium</complexity>`

	testEvaluation = `<argument_map>
  <topic>Should cities ban cars downtown?</topic>
  <p1_argument>Bans cut pollution.</p1_argument>
  <p2_argument>Bans hurt commuters.</p2_argument>
</argument_map>
<direct_interactions></direct_interactions>
<decisive_factors>Evidence</decisive_factors>
<uncertainties>None</uncertainties>`

	testJudgment = `<winner>P2</winner>
<reasoning>Commuter data held up.</reasoning>
<strength>6</strength>
<strengthening_advice>P1 should address transit capacity.</strengthening_advice>`
)

// scriptedProvider answers by prompt name.
type scriptedProvider struct {
	replies map[string]string
}

func (p scriptedProvider) Complete(_ context.Context, req providers.CompletionRequest) (providers.CompletionResponse, error) {
	return providers.CompletionResponse{Text: p.replies[req.PromptName], Provider: req.Provider, Model: "scripted"}, nil
}

func (p scriptedProvider) Close() error { return nil }

// setup writes a config for a temporary database and routes output to a buffer.
func setup(t *testing.T) (configPath string, out *bytes.Buffer, dir string) {
	t.Helper()
	color.NoColor = true

	dir = t.TempDir()
	configPath = filepath.Join(dir, "config.json")
	cfg := `{
  "provider": "gemini",
  "gemini": {"apiKey": "test-key"},
  "dbPath": "` + filepath.ToSlash(filepath.Join(dir, "test.db")) + `",
  "logFile": "` + filepath.ToSlash(filepath.Join(dir, "test.log")) + `",
  "retryDelayMs": 0,
  "stageDelayMs": 0
}`
	require.NoError(t, os.WriteFile(configPath, []byte(cfg), 0o644))

	out = &bytes.Buffer{}
	origOut, origProvider := stdout, newChatProvider
	stdout = out
	newChatProvider = func(context.Context, *appconfig.Config) (providers.ChatProvider, error) {
		return scriptedProvider{replies: map[string]string{
			prompts.Analyze:          testAnalysis,
			prompts.Evaluate:         testEvaluation,
			prompts.Judge:            testJudgment,
			prompts.FormatEvaluation: "## Evaluation\nBoth sides were clear.",
			prompts.FormatJudgment:   "## Judgment\nBob wins on evidence.",
		}}, nil
	}
	t.Cleanup(func() {
		stdout, newChatProvider = origOut, origProvider
		rootCmd.SetArgs(nil)
	})
	return configPath, out, dir
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func TestAnalyzePlainSavesDebate(t *testing.T) {
	cfgPath, out, dir := setup(t)

	transcript := filepath.Join(dir, "debate.txt")
	require.NoError(t, os.WriteFile(transcript, []byte("<p>Alice: ban cars.</p><p>Bob: commuters suffer.</p>"), 0o644))

	require.NoError(t, execute(t, "-c", cfgPath, "analyze", "--plain", transcript))

	text := out.String()
	assert.Contains(t, text, "Identified debate: Car-free city centres")
	assert.Contains(t, text, "Analysis complete!")
	assert.Contains(t, text, "Winner:  Bob")
	assert.Contains(t, text, "show debate 1")

	st, err := store.Open(context.Background(), filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	defer st.Close()
	d, err := st.GetDebate(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "P2", d.Winner)
	assert.Equal(t, "Alice: ban cars.\nBob: commuters suffer.", d.OriginalText)

	interactions, err := st.DebateInteractions(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Len(t, interactions, 5)
}

func TestAnalyzeRejectsEmptyTranscript(t *testing.T) {
	cfgPath, _, dir := setup(t)
	empty := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte("   \n"), 0o644))

	err := execute(t, "-c", cfgPath, "analyze", "--plain", empty)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transcript is empty")
}

func TestReadTranscriptFromStdin(t *testing.T) {
	orig := stdin
	stdin = strings.NewReader("  Alice: yes.\nBob: no.  ")
	t.Cleanup(func() { stdin = orig })

	got, err := readTranscript("-")
	require.NoError(t, err)
	assert.Equal(t, "Alice: yes.\nBob: no.", got)
}

func TestDebatesListAndShow(t *testing.T) {
	cfgPath, out, dir := setup(t)

	st, err := store.Open(context.Background(), filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	id, err := st.CreateDebate(context.Background(), store.Debate{
		RunID:               "run-1",
		OriginalText:        "text",
		Title:               "Car-free city centres",
		Participant1:        "Alice",
		Participant2:        "Bob",
		Winner:              "P1",
		Evaluation:          testEvaluation,
		Judgment:            testJudgment,
		FormattedEvaluation: "Both sides were clear.",
		FormattedJudgment:   "Alice wins.",
	})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	require.NoError(t, execute(t, "-c", cfgPath, "debates", "list"))
	assert.Contains(t, out.String(), "Car-free city centres")
	assert.Contains(t, out.String(), "Alice")

	out.Reset()
	require.NoError(t, execute(t, "-c", cfgPath, "show", "debate", "1"))
	shown := out.String()
	assert.Contains(t, shown, "Alice vs Bob")
	assert.Contains(t, shown, "Topic")
	assert.Contains(t, shown, "Bans cut")
	assert.Contains(t, shown, "Both sides were clear.")
	assert.Equal(t, int64(1), id)

	err = execute(t, "-c", cfgPath, "show", "debate", "42")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRenderDebateFallsBackToRawText(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	err := renderDebate(&buf, store.Debate{
		ID: 3, Title: "T", Participant1: "A", Participant2: "B", Winner: "P1",
		Evaluation: "no tags here", Judgment: "<winner>P1</winner>",
	}, 80)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "could not be parsed")
	assert.Contains(t, buf.String(), "no tags here")
}

func TestExportAndCreditsReset(t *testing.T) {
	cfgPath, out, dir := setup(t)

	origNow := now
	now = func() time.Time { return time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC) }
	t.Cleanup(func() { now = origNow })

	exportTo := filepath.Join(dir, "exports")
	require.NoError(t, execute(t, "-c", cfgPath, "export", "--dir", exportTo))
	assert.FileExists(t, filepath.Join(exportTo, "debates_20250304_050607.json"))
	assert.FileExists(t, filepath.Join(exportTo, "llm_interactions_20250304_050607.json"))

	st, err := store.Open(context.Background(), filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	_, err = st.AddCreditUsage(context.Background(), "10.0.0.1", 3)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out.Reset()
	require.NoError(t, execute(t, "-c", cfgPath, "credits", "reset"))
	assert.Contains(t, out.String(), "Reset credit usage for 1 addresses (sqlite backend)")
}

func TestShowConfigMasksKeys(t *testing.T) {
	cfgPath, out, _ := setup(t)
	require.NoError(t, execute(t, "-c", cfgPath, "show", "config"))
	assert.Contains(t, out.String(), "Provider:        gemini")
	assert.NotContains(t, out.String(), "test-key")
}
