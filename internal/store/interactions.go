// internal/store/interactions.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mwiater/adjudicator/internal/llmcall"
)

// Interaction is one audited provider call.
type Interaction struct {
	ID           string    `json:"-"`
	RunID        string    `json:"-"`
	DebateID     *int64    `json:"debate_id"`
	Timestamp    time.Time `json:"timestamp"`
	PromptName   string    `json:"prompt_name"`
	PromptText   string    `json:"prompt_text"`
	Role         string    `json:"-"`
	Response     string    `json:"response"`
	Provider     string    `json:"-"`
	ModelUsed    string    `json:"model_used"`
	Success      bool      `json:"success"`
	ErrorMessage *string   `json:"error_message"`
	Attempts     int       `json:"-"`
}

// RecordAttempt stores a as an interaction. Interactions are attached to
// their debate when the debate is created under the same run id.
func (s *Store) RecordAttempt(ctx context.Context, a llmcall.Attempt) error {
	ts := a.CreatedAt
	if ts.IsZero() {
		ts = s.now()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO llm_interactions (id, run_id, timestamp, prompt_name, prompt_text, role, response,
	provider, model_used, success, error_message, attempts)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, nullString(a.RunID), formatTime(ts), a.PromptName, a.Prompt, nullString(a.Role), a.Response,
		nullString(a.Provider), nullString(a.Model), a.Success, nullString(a.ErrorMessage), a.Attempts)
	if err != nil {
		return fmt.Errorf("insert interaction %s: %w", a.PromptName, err)
	}
	return nil
}

// Interactions returns every audited call in time order.
func (s *Store) Interactions(ctx context.Context) ([]Interaction, error) {
	return s.queryInteractions(ctx, `SELECT `+interactionColumns+` FROM llm_interactions ORDER BY timestamp, id`)
}

// DebateInteractions returns the audited calls of one debate in time order.
func (s *Store) DebateInteractions(ctx context.Context, debateID int64) ([]Interaction, error) {
	return s.queryInteractions(ctx,
		`SELECT `+interactionColumns+` FROM llm_interactions WHERE debate_id = ? ORDER BY timestamp, id`, debateID)
}

// RunInteractions returns the audited calls of one run, attached or not.
func (s *Store) RunInteractions(ctx context.Context, runID string) ([]Interaction, error) {
	return s.queryInteractions(ctx,
		`SELECT `+interactionColumns+` FROM llm_interactions WHERE run_id = ? ORDER BY timestamp, id`, runID)
}

const interactionColumns = `id, run_id, debate_id, timestamp, prompt_name, prompt_text, role, response,
	provider, model_used, success, error_message, attempts`

func (s *Store) queryInteractions(ctx context.Context, query string, args ...any) ([]Interaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Interaction
	for rows.Next() {
		var (
			in                                     Interaction
			runID, role, provider, model, errorMsg sql.NullString
			debateID                               sql.NullInt64
			ts                                     string
		)
		if err := rows.Scan(&in.ID, &runID, &debateID, &ts, &in.PromptName, &in.PromptText, &role,
			&in.Response, &provider, &model, &in.Success, &errorMsg, &in.Attempts); err != nil {
			return nil, err
		}
		in.RunID = runID.String
		if debateID.Valid {
			id := debateID.Int64
			in.DebateID = &id
		}
		in.Timestamp = parseTime(ts)
		in.Role = role.String
		in.Provider = provider.String
		in.ModelUsed = model.String
		if errorMsg.Valid {
			msg := errorMsg.String
			in.ErrorMessage = &msg
		}
		out = append(out, in)
	}
	return out, rows.Err()
}
