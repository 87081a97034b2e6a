// internal/providers/multiplex/provider.go
// Package multiplex routes provider calls based on the requested provider id.
package multiplex

import (
	"context"
	"fmt"
	"strings"

	"github.com/mwiater/adjudicator/internal/providers"
)

// Provider delegates calls to an underlying provider based on CompletionRequest.Provider.
type Provider struct {
	providers map[string]providers.ChatProvider
	fallback  string
}

// New constructs a Provider from a map of provider id to implementation.
// Requests that leave Provider empty are sent to defaultID.
func New(providerMap map[string]providers.ChatProvider, defaultID string) *Provider {
	normalized := make(map[string]providers.ChatProvider, len(providerMap))
	for key, provider := range providerMap {
		normalized[normalizeID(key)] = provider
	}
	return &Provider{providers: normalized, fallback: normalizeID(defaultID)}
}

// Complete forwards the request to the provider registered for req.Provider.
// An unknown id is an error; there is no fallback between providers.
func (p *Provider) Complete(ctx context.Context, req providers.CompletionRequest) (providers.CompletionResponse, error) {
	provider, err := p.providerFor(req.Provider)
	if err != nil {
		return providers.CompletionResponse{}, err
	}
	return provider.Complete(ctx, req)
}

// Close cleans up any resources used by the provider.
func (p *Provider) Close() error {
	var firstErr error
	seen := map[providers.ChatProvider]struct{}{}
	for _, provider := range p.providers {
		if _, ok := seen[provider]; ok {
			continue
		}
		seen[provider] = struct{}{}
		if err := provider.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (p *Provider) providerFor(id string) (providers.ChatProvider, error) {
	key := normalizeID(id)
	if key == "" {
		key = p.fallback
	}
	if provider, ok := p.providers[key]; ok {
		return provider, nil
	}
	return nil, fmt.Errorf("no provider registered for %q", id)
}

func normalizeID(id string) string {
	normalized := strings.ToLower(strings.TrimSpace(id))
	switch normalized {
	case "open-router", "openrouter.ai":
		return "openrouter"
	case "google", "google-gemini":
		return "gemini"
	default:
		return normalized
	}
}
