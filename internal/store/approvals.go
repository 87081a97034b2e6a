// internal/store/approvals.go
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Approval fields and values.
const (
	FieldEvaluation = "evaluation"
	FieldJudgment   = "judgment"

	Approved    = "approved"
	Disapproved = "disapproved"
)

// ErrAlreadyVoted is returned when an address rates the same field of a debate twice.
var ErrAlreadyVoted = errors.New("already voted")

// ErrInvalidApproval is returned for an unknown field or value.
var ErrInvalidApproval = errors.New("invalid approval")

// RecordApproval stores one reader's rating of a debate's evaluation or
// judgment, updates the counters, and returns the updated debate.
func (s *Store) RecordApproval(ctx context.Context, debateID int64, ip, field, value string) (Debate, error) {
	if field != FieldEvaluation && field != FieldJudgment {
		return Debate{}, fmt.Errorf("%w: field %q", ErrInvalidApproval, field)
	}
	counter := field + "_approvals"
	switch value {
	case Approved:
	case Disapproved:
		counter = field + "_disapprovals"
	default:
		return Debate{}, fmt.Errorf("%w: value %q", ErrInvalidApproval, value)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Debate{}, err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM debates WHERE id = ?`, debateID).Scan(&exists); err != nil {
		return Debate{}, err
	}
	if exists == 0 {
		return Debate{}, fmt.Errorf("debate %d: %w", debateID, ErrNotFound)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO approval_records (debate_id, ip_address, field, value, created_at) VALUES (?, ?, ?, ?, ?)`,
		debateID, ip, field, value, formatTime(s.now()))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return Debate{}, ErrAlreadyVoted
		}
		return Debate{}, fmt.Errorf("insert approval: %w", err)
	}

	// field and counter come from the fixed sets above.
	_, err = tx.ExecContext(ctx,
		fmt.Sprintf(`UPDATE debates SET %s = %s + 1, %s_approval = ? WHERE id = ?`, counter, counter, field),
		value, debateID)
	if err != nil {
		return Debate{}, fmt.Errorf("update approval counters: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Debate{}, err
	}
	return s.GetDebate(ctx, debateID)
}
