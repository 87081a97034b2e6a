// internal/providerfactory/factory.go
package providerfactory

import (
	"context"
	"fmt"

	"github.com/mwiater/adjudicator/internal/appconfig"
	"github.com/mwiater/adjudicator/internal/logging"
	"github.com/mwiater/adjudicator/internal/metrics"
	"github.com/mwiater/adjudicator/internal/providers"
	"github.com/mwiater/adjudicator/internal/providers/gemini"
	"github.com/mwiater/adjudicator/internal/providers/multiplex"
	"github.com/mwiater/adjudicator/internal/providers/openrouter"
)

// NewChatProvider builds every provider the configuration can support behind
// a router keyed by provider id, and wraps it with metrics collection if
// enabled. The configured provider must be available; the other is added
// only when its API key is set.
func NewChatProvider(ctx context.Context, cfg *appconfig.Config) (providers.ChatProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config provided to provider factory")
	}

	selected := cfg.ProviderName()
	available, err := buildProviders(ctx, cfg, selected)
	if err != nil {
		return nil, err
	}

	var provider providers.ChatProvider = multiplex.New(available, selected)
	logging.LogEvent("provider ready: %s (%d configured)", selected, len(available))

	if cfg.Metrics {
		provider = metrics.NewProvider(provider, metrics.GetInstance())
	}
	return provider, nil
}

func buildProviders(ctx context.Context, cfg *appconfig.Config, selected string) (map[string]providers.ChatProvider, error) {
	out := map[string]providers.ChatProvider{}

	if selected == appconfig.ProviderOpenRouter || cfg.OpenRouterSettings().APIKey != "" {
		out[appconfig.ProviderOpenRouter] = openrouter.New(cfg)
	}

	if selected == appconfig.ProviderGemini || cfg.GeminiSettings().APIKey != "" {
		gp, err := gemini.New(ctx, cfg)
		if err != nil {
			if selected == appconfig.ProviderGemini {
				return nil, fmt.Errorf("gemini provider unavailable: %w", err)
			}
			logging.LogEvent("gemini provider unavailable: %v", err)
		} else {
			out[appconfig.ProviderGemini] = gp
		}
	}

	if _, ok := out[selected]; !ok {
		return nil, fmt.Errorf("provider %q is not configured", selected)
	}
	return out, nil
}
