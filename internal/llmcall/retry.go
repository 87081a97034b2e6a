// internal/llmcall/retry.go
package llmcall

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/mwiater/adjudicator/internal/logging"
	"github.com/mwiater/adjudicator/internal/progress"
	"github.com/mwiater/adjudicator/internal/providers"
	"github.com/mwiater/adjudicator/internal/tags"
)

// Reminder is prepended to the prompt on every attempt after the first.
const Reminder = "IMPORTANT: You must include all required XML tags in your response, properly opened and closed."

// DefaultMaxRetries is used by callers that do not configure a bound.
const DefaultMaxRetries = 3

// ExhaustedRetriesError is returned when every attempt failed in transport.
type ExhaustedRetriesError struct {
	PromptName string
	Attempts   int
	Last       error
}

func (e *ExhaustedRetriesError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.PromptName, e.Attempts, e.Last)
}

func (e *ExhaustedRetriesError) Unwrap() error { return e.Last }

// ValidationSoftFailure describes a response accepted despite missing
// expected fields. It is logged, never returned.
type ValidationSoftFailure struct {
	PromptName string
	Attempts   int
	Missing    []string
}

func (e *ValidationSoftFailure) Error() string {
	return fmt.Sprintf("%s: proceeding after %d attempts with missing fields %s",
		e.PromptName, e.Attempts, strings.Join(e.Missing, ", "))
}

// Call is one logical request to the retry service.
type Call struct {
	Prompt     string
	PromptName string
	Role       string
	Provider   string
	// Expected lists tagged fields the response must contain. Empty disables validation.
	Expected   []string
	MaxRetries int
	// RunID correlates audit records with the run, and later the debate, they belong to.
	RunID    string
	Progress progress.Emitter
}

// Service retries Invoker calls within a fixed attempt bound.
type Service struct {
	invoker    Invoker
	audit      AuditLog
	newBackOff func() backoff.BackOff
}

// Option configures a Service.
type Option func(*Service)

// WithBackOff sets the delay policy between attempts. backoff.Stop from the
// policy is treated as a zero wait; the attempt bound always comes from Call.MaxRetries.
func WithBackOff(factory func() backoff.BackOff) Option {
	return func(s *Service) {
		if factory != nil {
			s.newBackOff = factory
		}
	}
}

// WithDelay sets a constant delay between attempts.
func WithDelay(d time.Duration) Option {
	return WithBackOff(func() backoff.BackOff {
		if d <= 0 {
			return &backoff.ZeroBackOff{}
		}
		return backoff.NewConstantBackOff(d)
	})
}

// NewService returns a Service that calls invoker and records to audit.
func NewService(invoker Invoker, audit AuditLog, opts ...Option) *Service {
	s := &Service{
		invoker:    invoker,
		audit:      audit,
		newBackOff: func() backoff.BackOff { return backoff.NewConstantBackOff(time.Second) },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CallWithRetry makes up to MaxRetries+1 attempts. Transport failures are
// retried and, once attempts run out, fail the call with
// *ExhaustedRetriesError. Responses missing expected fields are retried too,
// but once attempts run out the last response is returned anyway; callers
// enforce the fields they truly need through tags.Extract.
func (s *Service) CallWithRetry(ctx context.Context, call Call) (string, error) {
	emit := call.Progress
	if emit == nil {
		emit = progress.Discard
	}
	maxAttempts := call.MaxRetries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	policy := s.newBackOff()
	policy.Reset()

	var (
		inv     Invocation
		lastErr error
	)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		prompt := call.Prompt
		if attempt == 1 {
			emit.Emit(progress.Event{
				Stage:   progress.StageProcessing,
				Message: fmt.Sprintf("Processing %s...", call.PromptName),
			})
		} else {
			prompt = Reminder + "\n\n" + call.Prompt
			emit.Emit(progress.Event{
				Stage:   progress.StageRetrying,
				Message: fmt.Sprintf("Retrying %s (attempt %d of %d)...", call.PromptName, attempt, maxAttempts),
				Attempt: attempt,
			})
		}

		var err error
		inv, err = s.invoker.Invoke(ctx, prompt, call.PromptName, call.Role, call.Provider)
		if err != nil {
			lastErr = err
			var te *providers.TransportError
			if !errors.As(err, &te) || ctx.Err() != nil {
				// Not retryable: configuration problems and cancellation end the loop.
				return "", s.fail(ctx, call, inv, attempt, err)
			}
			logging.LogEvent("%s attempt %d/%d failed: %v", call.PromptName, attempt, maxAttempts, err)
			if attempt < maxAttempts {
				if err := wait(ctx, policy); err != nil {
					return "", s.fail(ctx, call, inv, attempt, err)
				}
				continue
			}
			return "", s.fail(ctx, call, inv, attempt, &ExhaustedRetriesError{
				PromptName: call.PromptName,
				Attempts:   attempt,
				Last:       lastErr,
			})
		}

		if len(call.Expected) > 0 {
			outcome := tags.Validate(inv.Response, call.Expected)
			if !outcome.Valid {
				if attempt < maxAttempts {
					logging.LogEvent("%s attempt %d/%d missing fields: %s",
						call.PromptName, attempt, maxAttempts, strings.Join(outcome.Missing, ", "))
					if err := wait(ctx, policy); err != nil {
						return "", s.fail(ctx, call, inv, attempt, err)
					}
					continue
				}
				soft := &ValidationSoftFailure{PromptName: call.PromptName, Attempts: attempt, Missing: outcome.Missing}
				logging.LogError("%v", soft)
			}
		}

		record(ctx, s.audit, s.attempt(call, inv, attempt, true, ""))
		emit.Emit(progress.Event{
			Stage:   progress.StageCompleted,
			Message: fmt.Sprintf("Completed %s", call.PromptName),
		})
		return inv.Response, nil
	}

	// Unreachable: the final iteration always returns.
	return "", s.fail(ctx, call, inv, maxAttempts, lastErr)
}

func (s *Service) fail(ctx context.Context, call Call, inv Invocation, attempts int, err error) error {
	record(ctx, s.audit, s.attempt(call, inv, attempts, false, errorMessage(err)))
	return err
}

func (s *Service) attempt(call Call, inv Invocation, attempts int, success bool, errMsg string) Attempt {
	now := time.Now().UTC()
	provider := inv.Provider
	if provider == "" {
		provider = call.Provider
	}
	prompt := inv.Prompt
	if prompt == "" {
		prompt = call.Prompt
	}
	return Attempt{
		ID:           newAttemptID(now),
		RunID:        call.RunID,
		PromptName:   call.PromptName,
		Prompt:       prompt,
		Role:         call.Role,
		SystemPrompt: inv.SystemPrompt,
		Response:     inv.Response,
		Provider:     provider,
		Model:        inv.Model,
		Success:      success,
		ErrorMessage: errMsg,
		Attempts:     attempts,
		CreatedAt:    now,
	}
}

func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func wait(ctx context.Context, policy backoff.BackOff) error {
	d := policy.NextBackOff()
	if d == backoff.Stop || d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
