// internal/pipeline/stages.go
package pipeline

import (
	"context"
	"fmt"

	"github.com/mwiater/adjudicator/internal/llmcall"
	"github.com/mwiater/adjudicator/internal/logging"
	"github.com/mwiater/adjudicator/internal/progress"
	"github.com/mwiater/adjudicator/internal/prompts"
	"github.com/mwiater/adjudicator/internal/tags"
	"github.com/mwiater/adjudicator/internal/util"
)

// Caller makes one retried, validated provider call.
type Caller interface {
	CallWithRetry(ctx context.Context, call llmcall.Call) (string, error)
}

// Deps are the collaborators every stage shares.
type Deps struct {
	Caller     Caller
	Prompts    *prompts.Library
	MaxRetries int
}

// Stage is one step of a run. It reads rc and returns its outputs; it never
// writes rc itself.
type Stage interface {
	Name() string
	Run(ctx context.Context, rc RunContext) (Delta, error)
}

// Fields each stage requires in its provider response.
var (
	AnalysisFields   = []string{"debate_title", "p1", "p2", "s1", "s2", "complexity"}
	EvaluationFields = []string{"argument_map", "direct_interactions", "decisive_factors", "uncertainties"}
	JudgmentFields   = []string{"winner", "reasoning", "strength", "strengthening_advice"}
)

// JudgmentSnippet is shown in place of the judgment so the winner is only revealed on the result page.
const JudgmentSnippet = "The final judgment has been determined. You will see the results on the next page."

// Stages returns the fixed stage sequence of a run.
func Stages(deps Deps) []Stage {
	return []Stage{
		&InitialAnalysisStage{deps: deps},
		&EvaluationStage{deps: deps},
		&JudgmentStage{deps: deps},
		&FormattingStage{deps: deps},
	}
}

func (d Deps) call(ctx context.Context, rc RunContext, name, role string, vars map[string]string, expected []string) (string, error) {
	prompt, err := d.Prompts.Render(name, vars)
	if err != nil {
		return "", err
	}
	return d.Caller.CallWithRetry(ctx, llmcall.Call{
		Prompt:     prompt,
		PromptName: name,
		Role:       role,
		Provider:   rc.Provider,
		Expected:   expected,
		MaxRetries: d.MaxRetries,
		RunID:      rc.RunID,
		Progress:   rc.Progress,
	})
}

// InitialAnalysisStage identifies the parties and anonymizes the analysis.
type InitialAnalysisStage struct{ deps Deps }

func (s *InitialAnalysisStage) Name() string { return "InitialAnalysisStage" }

func (s *InitialAnalysisStage) Run(ctx context.Context, rc RunContext) (Delta, error) {
	rc.emit(progress.Event{
		Stage:   progress.StageAnalysis,
		Percent: 10,
		Message: "Identifying participants and arguments...",
	})

	analysis, err := s.deps.call(ctx, rc, prompts.Analyze, prompts.RoleSummarizer, map[string]string{
		"text":         rc.Text,
		"text_party_1": "{first party name}",
		"text_party_2": "{second party name}",
	}, AnalysisFields)
	if err != nil {
		return Delta{}, err
	}

	var d Delta
	for _, f := range []struct {
		tag string
		dst *string
	}{
		{"p1", &d.Participant1},
		{"p2", &d.Participant2},
		{"s1", &d.Summary1},
		{"s2", &d.Summary2},
		{"debate_title", &d.Title},
	} {
		v, err := tags.Extract(f.tag, analysis, true)
		if err != nil {
			return Delta{}, err
		}
		*f.dst = v
	}
	d.Complexity, _ = tags.Extract("complexity", analysis, false)

	rc.emit(progress.Event{
		Stage:        progress.StageTitleExtracted,
		Percent:      25,
		Message:      "Identified debate: " + d.Title,
		Title:        d.Title,
		Participant1: d.Participant1,
		Participant2: d.Participant2,
		Summary1:     util.Snip(d.Summary1, 100),
		Summary2:     util.Snip(d.Summary2, 100),
	})
	rc.emit(progress.Event{
		Stage:       progress.StageParticipants,
		Percent:     30,
		Message:     fmt.Sprintf("Identified participants: %s vs %s", d.Participant1, d.Participant2),
		ContentType: "participants",
		ContentSnippet: fmt.Sprintf("%s: %s\n\n%s: %s",
			d.Participant1, util.Snip(d.Summary1, 100),
			d.Participant2, util.Snip(d.Summary2, 100)),
	})

	d.Analysis = analysis
	d.AnonymizedAnalysis = Anonymize(analysis)
	return d, nil
}

// Anonymize replaces the tagged participant names in an analysis with P1 and P2.
// Text with no remaining name regions is returned unchanged.
func Anonymize(analysis string) string {
	return tags.Replace("p2", tags.Replace("p1", analysis, "P1"), "P2")
}

// EvaluationStage weighs the anonymized arguments against each other.
type EvaluationStage struct{ deps Deps }

func (s *EvaluationStage) Name() string { return "EvaluationStage" }

func (s *EvaluationStage) Run(ctx context.Context, rc RunContext) (Delta, error) {
	rc.emit(progress.Event{
		Stage:   progress.StageEvaluation,
		Percent: 40,
		Message: "Evaluating arguments...",
	})

	evaluation, err := s.deps.call(ctx, rc, prompts.Evaluate, prompts.RoleSystem, map[string]string{
		"structured_arguments": rc.AnonymizedAnalysis,
	}, EvaluationFields)
	if err != nil {
		return Delta{}, err
	}

	if snippet, ok := evaluationSnippet(evaluation); ok {
		rc.emit(progress.Event{
			Stage:          progress.StageEvaluationProgress,
			Percent:        60,
			Message:        "Arguments evaluated",
			ContentType:    "evaluation",
			ContentSnippet: snippet,
		})
	}
	return Delta{Evaluation: evaluation}, nil
}

// evaluationSnippet renders the first table row, falling back to the raw
// argument map. ok is false when neither is available.
func evaluationSnippet(evaluation string) (string, bool) {
	if rows := BuildTable(evaluation, ""); len(rows) > 0 {
		r := rows[0]
		return fmt.Sprintf("Topic: %s\n\nP1's Argument: %s\n\nP2's Argument: %s\n\nOutcome: %s",
			r.Topic, util.Snip(r.Position1, 100), util.Snip(r.Position2, 100), r.Outcome), true
	}
	raw, ok := tags.Lookup("argument_map", evaluation)
	if !ok {
		logging.LogError("evaluation snippet: no argument map in evaluation")
		return "", false
	}
	return util.Snip(raw, 200), true
}

// JudgmentStage decides the winner.
type JudgmentStage struct{ deps Deps }

func (s *JudgmentStage) Name() string { return "JudgmentStage" }

func (s *JudgmentStage) Run(ctx context.Context, rc RunContext) (Delta, error) {
	rc.emit(progress.Event{
		Stage:   progress.StageJudgment,
		Percent: 70,
		Message: "Determining final judgment...",
	})

	judgment, err := s.deps.call(ctx, rc, prompts.Judge, prompts.RoleSystem, map[string]string{
		"evaluations": rc.Evaluation,
	}, JudgmentFields)
	if err != nil {
		return Delta{}, err
	}

	winner, err := tags.Extract("winner", judgment, true)
	if err != nil {
		return Delta{}, err
	}

	rc.emit(progress.Event{
		Stage:          progress.StageJudgmentProgress,
		Percent:        80,
		Message:        "Judgment complete",
		ContentType:    "judgment",
		ContentSnippet: JudgmentSnippet,
	})
	return Delta{Judgment: judgment, Winner: winner}, nil
}

// FormattingStage rewrites the evaluation and judgment for reading.
type FormattingStage struct{ deps Deps }

func (s *FormattingStage) Name() string { return "FormattingStage" }

func (s *FormattingStage) Run(ctx context.Context, rc RunContext) (Delta, error) {
	rc.emit(progress.Event{
		Stage:   progress.StageFormatting,
		Percent: 85,
		Message: "Formatting results...",
	})

	evaluation, err := s.deps.call(ctx, rc, prompts.FormatEvaluation, prompts.RoleCopywriter,
		map[string]string{"text": rc.Evaluation}, nil)
	if err != nil {
		return Delta{}, err
	}
	judgment, err := s.deps.call(ctx, rc, prompts.FormatJudgment, prompts.RoleCopywriter,
		map[string]string{"text": rc.Judgment}, nil)
	if err != nil {
		return Delta{}, err
	}

	rc.emit(progress.Event{
		Stage:   progress.StageProcessingComplete,
		Percent: 100,
		Message: "Analysis complete!",
	})
	return Delta{FormattedEvaluation: evaluation, FormattedJudgment: judgment}, nil
}
