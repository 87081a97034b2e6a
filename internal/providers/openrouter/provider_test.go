// internal/providers/openrouter/provider_test.go
package openrouter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mwiater/adjudicator/internal/appconfig"
	"github.com/mwiater/adjudicator/internal/providers"
)

func newTestProvider(t *testing.T, url string) *Provider {
	t.Helper()
	cfg := &appconfig.Config{
		TimeoutSeconds: 5,
		OpenRouter: appconfig.OpenRouterConfig{
			BaseURL: url,
			APIKey:  "sk-test",
		},
	}
	return New(cfg)
}

func TestCompleteSendsSystemAndUserMessages(t *testing.T) {
	t.Parallel()

	var captured chatRequest
	var headers http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Errorf("unmarshal body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"deepseek/deepseek-chat","choices":[{"message":{"role":"assistant","content":"<winner>P1</winner>"}}]}`))
	}))
	defer server.Close()

	provider := newTestProvider(t, server.URL)
	resp, err := provider.Complete(context.Background(), providers.CompletionRequest{
		SystemPrompt: "be fair",
		Prompt:       "judge this",
		PromptName:   "judge",
	})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if resp.Text != "<winner>P1</winner>" {
		t.Fatalf("unexpected text: %q", resp.Text)
	}
	if resp.Model != "deepseek/deepseek-chat" || resp.Provider != Name {
		t.Fatalf("unexpected response identity: %+v", resp)
	}
	if captured.Model != "deepseek/deepseek-chat" {
		t.Fatalf("expected default model, got %q", captured.Model)
	}
	if len(captured.Messages) != 2 || captured.Messages[0].Role != "system" || captured.Messages[1].Content != "judge this" {
		t.Fatalf("unexpected messages: %+v", captured.Messages)
	}
	if got := headers.Get("Authorization"); got != "Bearer sk-test" {
		t.Fatalf("unexpected Authorization header: %q", got)
	}
	if got := headers.Get("HTTP-Referer"); got != "https://adjudicator.ai" {
		t.Fatalf("unexpected HTTP-Referer header: %q", got)
	}
}

func TestCompleteNonOKIsTransportError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"slow down"}`))
	}))
	defer server.Close()

	provider := newTestProvider(t, server.URL)
	_, err := provider.Complete(context.Background(), providers.CompletionRequest{Prompt: "x"})

	var te *providers.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if te.Status != http.StatusTooManyRequests || !te.RateLimited() {
		t.Fatalf("expected 429 transport error, got %+v", te)
	}
	if te.Body != `{"error":"slow down"}` {
		t.Fatalf("unexpected body: %q", te.Body)
	}
}

func TestCompleteEmptyChoices(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	provider := newTestProvider(t, server.URL)
	if _, err := provider.Complete(context.Background(), providers.CompletionRequest{Prompt: "x"}); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestCompleteConnectionFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	provider := newTestProvider(t, url)
	_, err := provider.Complete(context.Background(), providers.CompletionRequest{Prompt: "x"})
	var te *providers.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if te.Status != 0 || te.Cause == nil {
		t.Fatalf("expected cause without status, got %+v", te)
	}
}
