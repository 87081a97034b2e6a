package appconfig

import (
	"fmt"
	"io"
)

// ShowConfig prints the current configuration summary. API keys are masked.
func ShowConfig(out io.Writer, file string, cfg Config) {
	if file == "" {
		fmt.Fprintln(out, "No config file loaded (using defaults).")
	} else {
		fmt.Fprintf(out, "Config file: %s\n\n", file)
	}

	or := cfg.OpenRouterSettings()
	gm := cfg.GeminiSettings()
	cr := cfg.CreditSettings()

	fmt.Fprintln(out, "Current configuration:")
	fmt.Fprintf(out, "  Provider:        %s\n", cfg.ProviderName())
	fmt.Fprintf(out, "  OpenRouter:      %s (model %s, key %s)\n", or.BaseURL, or.Model, maskKey(or.APIKey))
	fmt.Fprintf(out, "  Gemini:          model %s, key %s\n", gm.Model, maskKey(gm.APIKey))
	fmt.Fprintf(out, "  Timeout:         %s\n", cfg.RequestTimeout())
	fmt.Fprintf(out, "  Max Retries:     %d\n", cfg.RetryCount())
	fmt.Fprintf(out, "  Retry Delay:     %s\n", cfg.RetryDelay())
	fmt.Fprintf(out, "  Stage Delay:     %s\n", cfg.StageDelay())
	fmt.Fprintf(out, "  Listen:          %s\n", cfg.ListenAddr())
	fmt.Fprintf(out, "  Database:        %s\n", cfg.DatabasePath())
	fmt.Fprintf(out, "  Log File:        %s\n", cfg.LogFilePath())
	fmt.Fprintf(out, "  Prompts Dir:     %s\n", displayOrNone(cfg.PromptsDir))
	fmt.Fprintf(out, "  Credits:         limit %.2f, cost %.2f, backend %s\n", cr.Limit, cr.Cost, cr.Backend)
	if cr.Backend == "redis" {
		fmt.Fprintf(out, "  Redis:           %s\n", cr.RedisAddr)
	}
	fmt.Fprintf(out, "  Debug:           %v\n", cfg.Debug)
	fmt.Fprintf(out, "  Metrics:         %v\n", cfg.Metrics)
}

func maskKey(key string) string {
	switch {
	case key == "":
		return "(unset)"
	case len(key) <= 8:
		return "****"
	default:
		return key[:4] + "****" + key[len(key)-4:]
	}
}

func displayOrNone(v string) string {
	if v == "" {
		return "(embedded)"
	}
	return v
}
