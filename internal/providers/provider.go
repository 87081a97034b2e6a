// internal/providers/provider.go

// Package providers defines the interface for the generative-text backends the
// adjudicator calls. Each provider accepts a system prompt and a single user
// prompt and returns the model's text reply.
package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// CompletionRequest encapsulates all the information needed to run one completion.
type CompletionRequest struct {
	// Provider is the routing key, e.g. "openrouter" or "gemini".
	Provider     string
	Model        string
	SystemPrompt string
	Prompt       string
	// PromptName labels the call in logs, e.g. "analyze".
	PromptName string
}

// CompletionResponse is the reply to a CompletionRequest.
type CompletionResponse struct {
	Text     string
	Provider string
	Model    string
}

// ChatProvider is the interface that all model providers must implement.
type ChatProvider interface {
	// Complete sends one prompt and returns the full response text.
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
	// Close cleans up any resources used by the provider.
	Close() error
}

// TransportError is a failure reaching the provider or a non-success reply
// from it. Status is the HTTP status code when one is known, otherwise zero.
type TransportError struct {
	Provider string
	Status   int
	Body     string
	Cause    error
}

func (e *TransportError) Error() string {
	switch {
	case e.Status != 0 && e.Body != "":
		return fmt.Sprintf("%s: API returned status code %d: %s", e.Provider, e.Status, e.Body)
	case e.Status != 0:
		return fmt.Sprintf("%s: API returned status code %d", e.Provider, e.Status)
	case e.Cause != nil:
		return fmt.Sprintf("%s: %v", e.Provider, e.Cause)
	default:
		return fmt.Sprintf("%s: transport failure", e.Provider)
	}
}

func (e *TransportError) Unwrap() error { return e.Cause }

// RateLimited reports whether the provider rejected the call for quota reasons.
func (e *TransportError) RateLimited() bool {
	return e.Status == http.StatusTooManyRequests
}

// AsTransportError converts err to a *TransportError, wrapping foreign
// errors so callers see a single failure type.
func AsTransportError(provider string, err error) *TransportError {
	if err == nil {
		return nil
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te
	}
	return &TransportError{Provider: provider, Cause: err}
}
