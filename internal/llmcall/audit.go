// internal/llmcall/audit.go
package llmcall

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/mwiater/adjudicator/internal/logging"
)

// Attempt is the audit record for one call, written once per terminal
// outcome of the retry loop. It is never modified after it is recorded.
type Attempt struct {
	ID           string
	RunID        string
	PromptName   string
	Prompt       string
	Role         string
	SystemPrompt string
	Response     string
	Provider     string
	Model        string
	Success      bool
	ErrorMessage string
	Attempts     int
	CreatedAt    time.Time
}

// AuditLog persists attempts.
type AuditLog interface {
	RecordAttempt(ctx context.Context, a Attempt) error
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

func newAttemptID(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// record writes a to log; failures are logged and otherwise ignored.
func record(ctx context.Context, log AuditLog, a Attempt) {
	if log == nil {
		return
	}
	if err := log.RecordAttempt(context.WithoutCancel(ctx), a); err != nil {
		logging.LogError("audit: record %s attempt for %s: %v", a.PromptName, a.RunID, err)
	}
}

// MemoryAuditLog keeps attempts in memory.
type MemoryAuditLog struct {
	mu       sync.Mutex
	attempts []Attempt
}

// RecordAttempt appends a.
func (m *MemoryAuditLog) RecordAttempt(_ context.Context, a Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts = append(m.attempts, a)
	return nil
}

// Attempts returns a copy of the recorded attempts.
func (m *MemoryAuditLog) Attempts() []Attempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Attempt(nil), m.attempts...)
}
