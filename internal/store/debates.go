// internal/store/debates.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Debate is a finished run.
type Debate struct {
	ID           int64     `json:"id"`
	RunID        string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	OriginalText string    `json:"original_text"`
	Title        string    `json:"title"`
	Participant1 string    `json:"belligerent_1"`
	Participant2 string    `json:"belligerent_2"`
	Summary1     string    `json:"summary_1"`
	Summary2     string    `json:"summary_2"`
	Winner       string    `json:"winner"`
	CreditCost   float64   `json:"credit_cost"`

	Analysis            string `json:"analysis"`
	Evaluation          string `json:"evaluation"`
	Judgment            string `json:"judgment"`
	FormattedEvaluation string `json:"evaluation_formatted"`
	FormattedJudgment   string `json:"judgment_formatted"`

	EvaluationApproval     string `json:"evaluation_approval,omitempty"`
	JudgmentApproval       string `json:"judgment_approval,omitempty"`
	EvaluationApprovals    int    `json:"evaluation_approvals"`
	EvaluationDisapprovals int    `json:"evaluation_disapprovals"`
	JudgmentApprovals      int    `json:"judgment_approvals"`
	JudgmentDisapprovals   int    `json:"judgment_disapprovals"`
}

// EvaluationScore is approvals minus disapprovals of the evaluation.
func (d Debate) EvaluationScore() int { return d.EvaluationApprovals - d.EvaluationDisapprovals }

// JudgmentScore is approvals minus disapprovals of the judgment.
func (d Debate) JudgmentScore() int { return d.JudgmentApprovals - d.JudgmentDisapprovals }

const debateColumns = `id, run_id, created_at, original_text, title, belligerent_1, belligerent_2,
	summary_1, summary_2, winner, credit_cost, analysis, evaluation, judgment,
	evaluation_formatted, judgment_formatted, evaluation_approval, judgment_approval,
	evaluation_approvals, evaluation_disapprovals, judgment_approvals, judgment_disapprovals`

// CreateDebate inserts d and attaches the audit records of its run to it.
// The new id is returned.
func (s *Store) CreateDebate(ctx context.Context, d Debate) (int64, error) {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = s.now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
INSERT INTO debates (run_id, created_at, original_text, title, belligerent_1, belligerent_2,
	summary_1, summary_2, winner, credit_cost, analysis, evaluation, judgment,
	evaluation_formatted, judgment_formatted)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullString(d.RunID), formatTime(d.CreatedAt), d.OriginalText, nullString(d.Title),
		d.Participant1, d.Participant2, d.Summary1, d.Summary2, d.Winner, d.CreditCost,
		d.Analysis, d.Evaluation, d.Judgment, d.FormattedEvaluation, d.FormattedJudgment)
	if err != nil {
		return 0, fmt.Errorf("insert debate: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if d.RunID != "" {
		if _, err := tx.ExecContext(ctx,
			`UPDATE llm_interactions SET debate_id = ? WHERE run_id = ? AND debate_id IS NULL`,
			id, d.RunID); err != nil {
			return 0, fmt.Errorf("link interactions: %w", err)
		}
	}
	return id, tx.Commit()
}

// GetDebate returns the debate with id, or ErrNotFound.
func (s *Store) GetDebate(ctx context.Context, id int64) (Debate, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+debateColumns+` FROM debates WHERE id = ?`, id)
	d, err := scanDebate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Debate{}, fmt.Errorf("debate %d: %w", id, ErrNotFound)
	}
	return d, err
}

// RecentDebates returns up to limit debates, newest first.
func (s *Store) RecentDebates(ctx context.Context, limit int) ([]Debate, error) {
	return s.queryDebates(ctx, `SELECT `+debateColumns+` FROM debates ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
}

// AllDebates returns every debate, oldest first.
func (s *Store) AllDebates(ctx context.Context) ([]Debate, error) {
	return s.queryDebates(ctx, `SELECT `+debateColumns+` FROM debates ORDER BY id`)
}

func (s *Store) queryDebates(ctx context.Context, query string, args ...any) ([]Debate, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Debate
	for rows.Next() {
		d, err := scanDebate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDebate(sc scanner) (Debate, error) {
	var (
		d                                    Debate
		runID, title                         sql.NullString
		createdAt                            string
		analysis, evaluation, judgment       sql.NullString
		fmtEvaluation, fmtJudgment           sql.NullString
		evaluationApproval, judgmentApproval sql.NullString
	)
	err := sc.Scan(&d.ID, &runID, &createdAt, &d.OriginalText, &title, &d.Participant1, &d.Participant2,
		&d.Summary1, &d.Summary2, &d.Winner, &d.CreditCost, &analysis, &evaluation, &judgment,
		&fmtEvaluation, &fmtJudgment, &evaluationApproval, &judgmentApproval,
		&d.EvaluationApprovals, &d.EvaluationDisapprovals, &d.JudgmentApprovals, &d.JudgmentDisapprovals)
	if err != nil {
		return Debate{}, err
	}
	d.RunID = runID.String
	d.CreatedAt = parseTime(createdAt)
	d.Title = title.String
	d.Analysis = analysis.String
	d.Evaluation = evaluation.String
	d.Judgment = judgment.String
	d.FormattedEvaluation = fmtEvaluation.String
	d.FormattedJudgment = fmtJudgment.String
	d.EvaluationApproval = evaluationApproval.String
	d.JudgmentApproval = judgmentApproval.String
	return d, nil
}
