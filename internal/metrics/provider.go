// internal/metrics/provider.go
package metrics

import (
	"context"
	"time"

	"github.com/mwiater/adjudicator/internal/logging"
	"github.com/mwiater/adjudicator/internal/providers"
)

// Provider is a decorator that wraps a ChatProvider to record metrics.
type Provider struct {
	wrapped    providers.ChatProvider
	aggregator *Aggregator
	now        func() time.Time
}

// NewProvider creates a new metrics-enabled provider that wraps an existing ChatProvider.
func NewProvider(wrapped providers.ChatProvider, aggregator *Aggregator) *Provider {
	logging.LogDebug("[METRICS] Wrapping provider with metrics provider")
	return &Provider{wrapped: wrapped, aggregator: aggregator, now: time.Now}
}

// Complete times the wrapped call and records the outcome.
func (p *Provider) Complete(ctx context.Context, req providers.CompletionRequest) (providers.CompletionResponse, error) {
	start := p.now()
	resp, err := p.wrapped.Complete(ctx, req)
	if p.aggregator != nil {
		provider, model := resp.Provider, resp.Model
		if provider == "" {
			provider = req.Provider
		}
		if model == "" {
			model = req.Model
		}
		p.aggregator.Record(Sample{
			Provider:      provider,
			Model:         model,
			PromptName:    req.PromptName,
			Latency:       p.now().Sub(start),
			PromptChars:   len(req.Prompt),
			ResponseChars: len(resp.Text),
			Err:           err,
		})
	}
	return resp, err
}

// Close passes the call through to the wrapped provider.
func (p *Provider) Close() error {
	return p.wrapped.Close()
}
