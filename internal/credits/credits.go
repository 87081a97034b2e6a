// internal/credits/credits.go
// Package credits enforces the per-address credit limit on analysis runs.
package credits

import (
	"context"
	"errors"
	"fmt"
)

// Default limit and per-run cost.
const (
	DefaultLimit = 15.0
	DefaultCost  = 1.0
)

// ErrLimitReached is returned by Charge when a run would exceed the limit.
var ErrLimitReached = errors.New("credit limit reached")

// Ledger tracks credits used per client address.
type Ledger interface {
	// CanUse reports whether ip may spend amount more without exceeding the limit.
	CanUse(ctx context.Context, ip string, amount float64) (bool, error)
	// AddUsage records amount against ip and returns the new total.
	AddUsage(ctx context.Context, ip string, amount float64) (float64, error)
	// Reset sets every address back to zero and returns how many were reset.
	Reset(ctx context.Context) (int64, error)
}

// LimitMessage is the refusal shown to a client that has used up its credits.
func LimitMessage(limit float64) string {
	return fmt.Sprintf("You have reached your credit limit of %g. Please try again later.", limit)
}

// Charge checks and records one run's cost for ip. The check and the record
// are separate calls, so concurrent requests from one address may overshoot
// the limit by at most one run each.
func Charge(ctx context.Context, l Ledger, ip string, cost float64) (float64, error) {
	ok, err := l.CanUse(ctx, ip, cost)
	if err != nil {
		return 0, fmt.Errorf("check credits for %s: %w", ip, err)
	}
	if !ok {
		return 0, ErrLimitReached
	}
	return l.AddUsage(ctx, ip, cost)
}
