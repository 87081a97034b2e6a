// internal/store/credits.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CreditUsage returns the credits used by ip, zero when it has none recorded.
func (s *Store) CreditUsage(ctx context.Context, ip string) (float64, error) {
	var used float64
	err := s.db.QueryRowContext(ctx, `SELECT credits_used FROM ip_credit_usage WHERE ip_address = ?`, ip).Scan(&used)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return used, err
}

// AddCreditUsage adds amount to the usage of ip and returns the new total.
func (s *Store) AddCreditUsage(ctx context.Context, ip string, amount float64) (float64, error) {
	var used float64
	err := s.db.QueryRowContext(ctx, `
INSERT INTO ip_credit_usage (ip_address, credits_used, last_updated) VALUES (?, ?, ?)
ON CONFLICT(ip_address) DO UPDATE SET
	credits_used = credits_used + excluded.credits_used,
	last_updated = excluded.last_updated
RETURNING credits_used`, ip, amount, formatTime(s.now())).Scan(&used)
	if err != nil {
		return 0, fmt.Errorf("add credit usage for %s: %w", ip, err)
	}
	return used, nil
}

// ResetCreditUsage sets every recorded usage back to zero and returns the number of rows touched.
func (s *Store) ResetCreditUsage(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE ip_credit_usage SET credits_used = 0, last_updated = ?`, formatTime(s.now()))
	if err != nil {
		return 0, fmt.Errorf("reset credit usage: %w", err)
	}
	return res.RowsAffected()
}
