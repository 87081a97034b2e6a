// internal/store/export.go
package store

import (
	"context"
	"path/filepath"
	"strconv"
	"time"

	"github.com/mwiater/adjudicator/internal/util"
)

type exportedDebate struct {
	ID                 int64   `json:"id"`
	CreatedAt          string  `json:"created_at"`
	OriginalText       string  `json:"original_text"`
	Participant1       string  `json:"belligerent_1"`
	Participant2       string  `json:"belligerent_2"`
	Summary1           string  `json:"summary_1"`
	Summary2           string  `json:"summary_2"`
	Winner             string  `json:"winner"`
	CreditCost         string  `json:"credit_cost"`
	Analysis           string  `json:"analysis"`
	Evaluation         string  `json:"evaluation"`
	Judgment           string  `json:"judgment"`
	EvaluationApproval *string `json:"evaluation_approval"`
	JudgmentApproval   *string `json:"judgment_approval"`
}

type exportedInteraction struct {
	DebateID     *int64  `json:"debate_id"`
	Timestamp    string  `json:"timestamp"`
	PromptName   string  `json:"prompt_name"`
	PromptText   string  `json:"prompt_text"`
	Response     string  `json:"response"`
	ModelUsed    string  `json:"model_used"`
	Success      bool    `json:"success"`
	ErrorMessage *string `json:"error_message"`
}

// ExportResult names the files written by Export.
type ExportResult struct {
	DebatesPath      string
	InteractionsPath string
	Debates          int
	Interactions     int
}

// Export writes every debate and every audited call to
// debates_<stamp>.json and llm_interactions_<stamp>.json in dir.
func (s *Store) Export(ctx context.Context, dir string, at time.Time) (ExportResult, error) {
	stamp := at.Format("20060102_150405")
	res := ExportResult{
		DebatesPath:      filepath.Join(dir, "debates_"+stamp+".json"),
		InteractionsPath: filepath.Join(dir, "llm_interactions_"+stamp+".json"),
	}

	debates, err := s.AllDebates(ctx)
	if err != nil {
		return res, err
	}
	outDebates := make([]exportedDebate, 0, len(debates))
	for _, d := range debates {
		outDebates = append(outDebates, exportedDebate{
			ID:                 d.ID,
			CreatedAt:          d.CreatedAt.Format(time.RFC3339Nano),
			OriginalText:       d.OriginalText,
			Participant1:       d.Participant1,
			Participant2:       d.Participant2,
			Summary1:           d.Summary1,
			Summary2:           d.Summary2,
			Winner:             d.Winner,
			CreditCost:         strconv.FormatFloat(d.CreditCost, 'f', 2, 64),
			Analysis:           d.Analysis,
			Evaluation:         d.Evaluation,
			Judgment:           d.Judgment,
			EvaluationApproval: optional(d.EvaluationApproval),
			JudgmentApproval:   optional(d.JudgmentApproval),
		})
	}
	if err := util.WriteJSONFile(res.DebatesPath, outDebates); err != nil {
		return res, err
	}
	res.Debates = len(outDebates)

	interactions, err := s.Interactions(ctx)
	if err != nil {
		return res, err
	}
	outInteractions := make([]exportedInteraction, 0, len(interactions))
	for _, in := range interactions {
		outInteractions = append(outInteractions, exportedInteraction{
			DebateID:     in.DebateID,
			Timestamp:    in.Timestamp.Format(time.RFC3339Nano),
			PromptName:   in.PromptName,
			PromptText:   in.PromptText,
			Response:     in.Response,
			ModelUsed:    in.ModelUsed,
			Success:      in.Success,
			ErrorMessage: in.ErrorMessage,
		})
	}
	if err := util.WriteJSONFile(res.InteractionsPath, outInteractions); err != nil {
		return res, err
	}
	res.Interactions = len(outInteractions)
	return res, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
