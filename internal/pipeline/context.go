// internal/pipeline/context.go
// Package pipeline runs a debate through its fixed sequence of stages:
// analysis, evaluation, judgment and formatting.
package pipeline

import (
	"fmt"

	"github.com/mwiater/adjudicator/internal/progress"
)

// RunContext accumulates the outputs of a run. Stages receive a copy and
// report their outputs as a Delta; only the executor writes to it.
type RunContext struct {
	// Inputs.
	Text     string
	RunID    string
	Provider string
	Progress progress.Emitter

	// Analysis outputs.
	Analysis           string
	AnonymizedAnalysis string
	Title              string
	Participant1       string
	Participant2       string
	Summary1           string
	Summary2           string
	Complexity         string

	// Evaluation outputs.
	Evaluation string

	// Judgment outputs.
	Judgment string
	Winner   string

	// Formatting outputs. These are the only fields a later stage may rewrite.
	FormattedEvaluation string
	FormattedJudgment   string
}

func (rc RunContext) emit(e progress.Event) {
	if rc.Progress != nil {
		rc.Progress.Emit(e)
	}
}

// Delta is the complete output of one stage. Empty fields are not written.
type Delta struct {
	Analysis           string
	AnonymizedAnalysis string
	Title              string
	Participant1       string
	Participant2       string
	Summary1           string
	Summary2           string
	Complexity         string

	Evaluation string

	Judgment string
	Winner   string

	FormattedEvaluation string
	FormattedJudgment   string
}

// OverwriteError reports a stage trying to replace a field an earlier stage wrote.
type OverwriteError struct {
	Field string
}

func (e *OverwriteError) Error() string {
	return fmt.Sprintf("field %s was already written by an earlier stage", e.Field)
}

// Apply merges d into rc. Write-once fields may be set again only to the
// same value; the formatting fields may be replaced freely.
func (rc RunContext) Apply(d Delta) (RunContext, error) {
	writeOnce := []struct {
		name string
		dst  *string
		src  string
	}{
		{"analysis", &rc.Analysis, d.Analysis},
		{"anonymized_analysis", &rc.AnonymizedAnalysis, d.AnonymizedAnalysis},
		{"title", &rc.Title, d.Title},
		{"participant_1", &rc.Participant1, d.Participant1},
		{"participant_2", &rc.Participant2, d.Participant2},
		{"summary_1", &rc.Summary1, d.Summary1},
		{"summary_2", &rc.Summary2, d.Summary2},
		{"complexity", &rc.Complexity, d.Complexity},
		{"evaluation", &rc.Evaluation, d.Evaluation},
		{"judgment", &rc.Judgment, d.Judgment},
		{"winner", &rc.Winner, d.Winner},
	}
	for _, f := range writeOnce {
		if f.src == "" {
			continue
		}
		if *f.dst != "" && *f.dst != f.src {
			return rc, &OverwriteError{Field: f.name}
		}
		*f.dst = f.src
	}
	if d.FormattedEvaluation != "" {
		rc.FormattedEvaluation = d.FormattedEvaluation
	}
	if d.FormattedJudgment != "" {
		rc.FormattedJudgment = d.FormattedJudgment
	}
	return rc, nil
}

// WinnerName maps an anonymized winner (P1 or P2) back to the participant's
// name. Any other verdict, such as a draw, is returned as written.
func (rc RunContext) WinnerName() string {
	switch rc.Winner {
	case "P1":
		return rc.Participant1
	case "P2":
		return rc.Participant2
	default:
		return rc.Winner
	}
}
