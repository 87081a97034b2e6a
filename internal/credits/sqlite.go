// internal/credits/sqlite.go
package credits

import (
	"context"

	"github.com/mwiater/adjudicator/internal/store"
)

// SQLiteLedger keeps usage in the ip_credit_usage table.
type SQLiteLedger struct {
	store *store.Store
	limit float64
}

// NewSQLite returns a Ledger over s with the given limit.
func NewSQLite(s *store.Store, limit float64) *SQLiteLedger {
	return &SQLiteLedger{store: s, limit: limit}
}

func (l *SQLiteLedger) CanUse(ctx context.Context, ip string, amount float64) (bool, error) {
	used, err := l.store.CreditUsage(ctx, ip)
	if err != nil {
		return false, err
	}
	return used+amount <= l.limit, nil
}

func (l *SQLiteLedger) AddUsage(ctx context.Context, ip string, amount float64) (float64, error) {
	return l.store.AddCreditUsage(ctx, ip, amount)
}

func (l *SQLiteLedger) Reset(ctx context.Context) (int64, error) {
	return l.store.ResetCreditUsage(ctx)
}
