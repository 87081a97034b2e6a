// internal/cli/analyze.go
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mwiater/adjudicator/internal/logging"
	"github.com/mwiater/adjudicator/internal/pipeline"
	"github.com/mwiater/adjudicator/internal/progress"
	"github.com/mwiater/adjudicator/internal/sanitize"
	"github.com/mwiater/adjudicator/internal/server"
	"github.com/mwiater/adjudicator/internal/tui"
)

var (
	analyzePlain  bool
	analyzeNoSave bool

	stdin io.Reader = os.Stdin
)

// analyzeCmd runs one debate through the pipeline from the terminal.
var analyzeCmd = &cobra.Command{
	Use:   "analyze <file|->",
	Short: "Analyze a debate transcript",
	Long: `Run a debate transcript through analysis, evaluation, judgment and formatting,
showing progress as it goes. Use "-" to read the transcript from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runAnalyze(ctx, args[0])
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzePlain, "plain", false, "print progress as plain lines instead of the interactive view")
	analyzeCmd.Flags().BoolVar(&analyzeNoSave, "no-save", false, "do not store the finished debate")
	rootCmd.AddCommand(analyzeCmd)
}

func readTranscript(path string) (string, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read transcript: %w", err)
	}
	text := sanitize.PlainText(string(raw))
	if text == "" {
		return "", errors.New("transcript is empty")
	}
	return text, nil
}

func runAnalyze(ctx context.Context, path string) error {
	text, err := readTranscript(path)
	if err != nil {
		return err
	}

	cfg := getConfig()
	a, err := newApp(ctx, cfg, appNeeds{pipeline: true})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.close(); cerr != nil {
			logging.LogError("close: %v", cerr)
		}
	}()

	runID := uuid.NewString()
	logging.LogEvent("analyzing %d chars from %s as run %s", len(text), path, runID)

	bridge := progress.Start(func(emit progress.Emitter) (pipeline.RunContext, error) {
		return a.runner.Run(context.Background(), pipeline.RunContext{
			Text:     text,
			RunID:    runID,
			Provider: cfg.ProviderName(),
			Progress: emit,
		})
	})

	var (
		finished pipeline.RunContext
		debateID int64
	)
	finish := func(rc pipeline.RunContext, runErr error) progress.Frame {
		if runErr != nil {
			logging.LogError("run %s failed: %v", runID, runErr)
			return progress.ErrorFrame(pipeline.UserMessage(runErr))
		}
		finished = rc
		if analyzeNoSave {
			return progress.CompleteFrame(0, "", rc.Winner, rc.Judgment)
		}
		id, err := a.store.CreateDebate(ctx, server.DebateRecord(rc, 0))
		if err != nil {
			logging.LogError("run %s: save debate: %v", runID, err)
			return progress.ErrorFrame(fmt.Sprintf("The analysis finished but could not be saved: %v", err))
		}
		debateID = id
		return progress.CompleteFrame(id, fmt.Sprintf("/result/%d/", id), rc.Winner, rc.Judgment)
	}

	var final progress.Frame
	if analyzePlain {
		pw := tui.NewPlainWriter(stdout)
		err = bridge.Consume(ctx, progress.FrameWriterFunc(func(fr progress.Frame) error {
			final = fr
			return pw.WriteFrame(fr)
		}), finish)
	} else {
		final, err = tui.Run(ctx, func(ctx context.Context, w progress.FrameWriter) error {
			return bridge.Consume(ctx, w, finish)
		}, tea.WithContext(ctx))
	}
	if err != nil {
		return err
	}
	if final.Stage == progress.StageError {
		return errors.New(final.Message)
	}

	fmt.Fprintln(stdout)
	labelText.Fprint(stdout, "Debate:  ")
	fmt.Fprintf(stdout, "%s\n", finished.Title)
	labelText.Fprint(stdout, "Winner:  ")
	successLine.Fprintf(stdout, "%s\n", finished.WinnerName())
	if debateID != 0 {
		labelText.Fprint(stdout, "Saved:   ")
		fmt.Fprintf(stdout, "debate %d (adjudicator show debate %d)\n", debateID, debateID)
	}
	return nil
}
