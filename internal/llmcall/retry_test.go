package llmcall

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwiater/adjudicator/internal/progress"
	"github.com/mwiater/adjudicator/internal/providers"
)

type scriptedReply struct {
	text string
	err  error
}

type scriptedInvoker struct {
	replies []scriptedReply
	prompts []string
}

func (s *scriptedInvoker) Invoke(_ context.Context, prompt, _, role, provider string) (Invocation, error) {
	s.prompts = append(s.prompts, prompt)
	i := len(s.prompts) - 1
	if i >= len(s.replies) {
		i = len(s.replies) - 1
	}
	r := s.replies[i]
	inv := Invocation{Prompt: prompt, Role: role, Provider: provider, Model: "test-model"}
	if r.err != nil {
		return inv, r.err
	}
	inv.Response = r.text
	return inv, nil
}

func newTestService(inv Invoker, audit AuditLog) *Service {
	return NewService(inv, audit, WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }))
}

func transportErr() error {
	return &providers.TransportError{Provider: "openrouter", Status: 502, Body: "bad gateway"}
}

func TestCallWithRetrySucceedsFirstAttempt(t *testing.T) {
	inv := &scriptedInvoker{replies: []scriptedReply{{text: "<winner>P1</winner>"}}}
	audit := &MemoryAuditLog{}
	rec := &progress.Recorder{}

	got, err := newTestService(inv, audit).CallWithRetry(context.Background(), Call{
		Prompt: "judge this", PromptName: "judge", Role: "system", Provider: "gemini",
		Expected: []string{"winner"}, MaxRetries: 3, RunID: "run-1", Progress: rec,
	})
	require.NoError(t, err)
	assert.Equal(t, "<winner>P1</winner>", got)
	assert.Equal(t, []string{"judge this"}, inv.prompts)
	assert.Equal(t, []string{progress.StageProcessing, progress.StageCompleted}, rec.Stages())

	attempts := audit.Attempts()
	require.Len(t, attempts, 1)
	assert.True(t, attempts[0].Success)
	assert.Equal(t, "run-1", attempts[0].RunID)
	assert.Equal(t, 1, attempts[0].Attempts)
	assert.NotEmpty(t, attempts[0].ID)
}

func TestCallWithRetryValidationSoftFail(t *testing.T) {
	inv := &scriptedInvoker{replies: []scriptedReply{{text: "<reasoning>no winner</reasoning>"}}}
	audit := &MemoryAuditLog{}
	rec := &progress.Recorder{}

	got, err := newTestService(inv, audit).CallWithRetry(context.Background(), Call{
		Prompt: "judge this", PromptName: "judge", Expected: []string{"winner"},
		MaxRetries: 2, Progress: rec,
	})
	require.NoError(t, err)
	assert.Equal(t, "<reasoning>no winner</reasoning>", got)
	require.Len(t, inv.prompts, 3)
	assert.Equal(t, "judge this", inv.prompts[0])
	for _, p := range inv.prompts[1:] {
		assert.True(t, strings.HasPrefix(p, Reminder+"\n\njudge this"), "prompt %q", p)
	}

	assert.Equal(t, []string{
		progress.StageProcessing,
		progress.StageRetrying,
		progress.StageRetrying,
		progress.StageCompleted,
	}, rec.Stages())
	assert.Equal(t, 2, rec.Events[1].Attempt)
	assert.Equal(t, 3, rec.Events[2].Attempt)

	attempts := audit.Attempts()
	require.Len(t, attempts, 1)
	assert.True(t, attempts[0].Success)
	assert.Equal(t, 3, attempts[0].Attempts)
}

func TestCallWithRetryTransportExhaustion(t *testing.T) {
	inv := &scriptedInvoker{replies: []scriptedReply{{err: transportErr()}}}
	audit := &MemoryAuditLog{}

	_, err := newTestService(inv, audit).CallWithRetry(context.Background(), Call{
		Prompt: "p", PromptName: "analyze", MaxRetries: 3, RunID: "run-2",
	})
	var exhausted *ExhaustedRetriesError
	require.True(t, errors.As(err, &exhausted), "got %v", err)
	assert.Equal(t, 4, exhausted.Attempts)
	assert.Len(t, inv.prompts, 4)

	var te *providers.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 502, te.Status)

	attempts := audit.Attempts()
	require.Len(t, attempts, 1)
	assert.False(t, attempts[0].Success)
	assert.Contains(t, attempts[0].ErrorMessage, "status code 502")
	assert.Equal(t, "run-2", attempts[0].RunID)
}

func TestCallWithRetryRecoversAfterTransportFailure(t *testing.T) {
	inv := &scriptedInvoker{replies: []scriptedReply{
		{err: transportErr()},
		{text: "<s1>x</s1>"},
	}}
	audit := &MemoryAuditLog{}

	got, err := newTestService(inv, audit).CallWithRetry(context.Background(), Call{
		Prompt: "p", PromptName: "analyze", Expected: []string{"s1"}, MaxRetries: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, "<s1>x</s1>", got)
	require.Len(t, audit.Attempts(), 1)
	assert.True(t, audit.Attempts()[0].Success)
	assert.Equal(t, 2, audit.Attempts()[0].Attempts)
}

func TestCallWithRetryNonTransportErrorIsNotRetried(t *testing.T) {
	boom := errors.New("no such role")
	inv := &scriptedInvoker{replies: []scriptedReply{{err: boom}}}
	audit := &MemoryAuditLog{}

	_, err := newTestService(inv, audit).CallWithRetry(context.Background(), Call{
		Prompt: "p", PromptName: "evaluate", MaxRetries: 3,
	})
	require.ErrorIs(t, err, boom)
	assert.Len(t, inv.prompts, 1)
	require.Len(t, audit.Attempts(), 1)
	assert.False(t, audit.Attempts()[0].Success)
}

func TestCallWithRetryZeroRetriesMakesOneAttempt(t *testing.T) {
	inv := &scriptedInvoker{replies: []scriptedReply{{text: "plain"}}}

	got, err := newTestService(inv, nil).CallWithRetry(context.Background(), Call{
		Prompt: "p", PromptName: "format_judgment", Expected: []string{"winner"},
	})
	require.NoError(t, err)
	assert.Equal(t, "plain", got)
	assert.Len(t, inv.prompts, 1)
}

func TestCallWithRetryStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	inv := &scriptedInvoker{replies: []scriptedReply{{err: &providers.TransportError{Provider: "gemini", Cause: context.Canceled}}}}

	svc := NewService(inv, nil, WithDelay(0))
	_, err := svc.CallWithRetry(ctx, Call{Prompt: "p", PromptName: "judge", MaxRetries: 5})
	require.Error(t, err)
	assert.Len(t, inv.prompts, 1)
}
