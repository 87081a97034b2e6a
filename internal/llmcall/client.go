// internal/llmcall/client.go
// Package llmcall invokes the configured provider for a pipeline prompt,
// retrying on transport failures and on responses that lack their expected
// tagged fields, and records one audit entry per call.
package llmcall

import (
	"context"
	"fmt"

	"github.com/mwiater/adjudicator/internal/prompts"
	"github.com/mwiater/adjudicator/internal/providers"
)

// Invocation is everything a caller needs to audit one provider call.
type Invocation struct {
	SystemPrompt string
	Prompt       string
	Role         string
	Response     string
	Provider     string
	Model        string
}

// Invoker performs a single provider call.
type Invoker interface {
	Invoke(ctx context.Context, prompt, promptName, role, provider string) (Invocation, error)
}

// Client builds the system prompt for a role and sends one completion.
type Client struct {
	provider providers.ChatProvider
	prompts  *prompts.Library
}

// NewClient returns a Client that sends through provider.
func NewClient(provider providers.ChatProvider, lib *prompts.Library) *Client {
	return &Client{provider: provider, prompts: lib}
}

// Invoke sends prompt under the persona for role to the named provider.
// Provider failures are returned as *providers.TransportError; the returned
// Invocation is populated as far as the call got, so failures can be audited too.
func (c *Client) Invoke(ctx context.Context, prompt, promptName, role, provider string) (Invocation, error) {
	inv := Invocation{Prompt: prompt, Role: role, Provider: provider}

	system, err := c.prompts.SystemPrompt(role)
	if err != nil {
		return inv, fmt.Errorf("build system prompt for role %q: %w", role, err)
	}
	inv.SystemPrompt = system

	resp, err := c.provider.Complete(ctx, providers.CompletionRequest{
		Provider:     provider,
		SystemPrompt: system,
		Prompt:       prompt,
		PromptName:   promptName,
	})
	if resp.Provider != "" {
		inv.Provider = resp.Provider
	}
	inv.Model = resp.Model
	if err != nil {
		return inv, providers.AsTransportError(provider, err)
	}
	inv.Response = resp.Text
	return inv, nil
}
