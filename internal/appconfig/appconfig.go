// internal/appconfig/appconfig.go
// Package appconfig manages loading and interpreting application configuration.
package appconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	// DefaultConfigPath is the default path to the application's configuration file.
	DefaultConfigPath = "config/config.json"
	// legacyConfigPath is the path used when the config directory does not exist.
	legacyConfigPath = "config.json"

	// ProviderOpenRouter selects the OpenRouter chat-completions endpoint.
	ProviderOpenRouter = "openrouter"
	// ProviderGemini selects the Google Gemini API.
	ProviderGemini = "gemini"

	defaultProvider        = ProviderGemini
	defaultRequestTimeout  = 600 * time.Second
	defaultMaxRetries      = 3
	defaultRetryDelay      = time.Second
	defaultStageDelay      = time.Second
	defaultListenAddr      = ":8000"
	defaultDBPath          = "data/adjudicator.db"
	defaultLogFile         = "adjudicator.log"
	defaultOpenRouterURL   = "https://openrouter.ai/api/v1/chat/completions"
	defaultOpenRouterModel = "deepseek/deepseek-chat"
	defaultOpenRouterSite  = "https://adjudicator.ai"
	defaultOpenRouterName  = "Adjudicator"
	defaultGeminiModel     = "gemini-2.0-flash-exp"
	defaultCreditLimit     = 15.0
	defaultCreditCost      = 1.0
	defaultCreditBackend   = "sqlite"
	openRouterKeyEnv       = "OPENROUTER_API_KEY"
	geminiKeyEnv           = "GOOGLE_API_KEY"
)

// Config represents the top-level application configuration.
type Config struct {
	Provider       string           `json:"provider" mapstructure:"provider"`
	OpenRouter     OpenRouterConfig `json:"openrouter" mapstructure:"openrouter"`
	Gemini         GeminiConfig     `json:"gemini" mapstructure:"gemini"`
	TimeoutSeconds int              `json:"timeout,omitempty" mapstructure:"timeout"`
	MaxRetries     *int             `json:"maxRetries,omitempty" mapstructure:"maxRetries"`
	RetryDelayMs   *int             `json:"retryDelayMs,omitempty" mapstructure:"retryDelayMs"`
	StageDelayMs   *int             `json:"stageDelayMs,omitempty" mapstructure:"stageDelayMs"`
	Listen         string           `json:"listen,omitempty" mapstructure:"listen"`
	DBPath         string           `json:"dbPath,omitempty" mapstructure:"dbPath"`
	LogFile        string           `json:"logFile,omitempty" mapstructure:"logFile"`
	Debug          bool             `json:"debug" mapstructure:"debug"`
	PromptsDir     string           `json:"promptsDir,omitempty" mapstructure:"promptsDir"`
	Credits        CreditsConfig    `json:"credits" mapstructure:"credits"`
	Metrics        bool             `json:"metrics" mapstructure:"metrics"`
	ConfigPath     string           `json:"-" mapstructure:"-"`
}

// OpenRouterConfig holds the settings for the OpenRouter provider.
type OpenRouterConfig struct {
	BaseURL  string `json:"baseURL,omitempty" mapstructure:"baseURL"`
	APIKey   string `json:"apiKey,omitempty" mapstructure:"apiKey"`
	Model    string `json:"model,omitempty" mapstructure:"model"`
	SiteURL  string `json:"siteURL,omitempty" mapstructure:"siteURL"`
	SiteName string `json:"siteName,omitempty" mapstructure:"siteName"`
}

// GeminiConfig holds the settings for the Gemini provider.
type GeminiConfig struct {
	APIKey string `json:"apiKey,omitempty" mapstructure:"apiKey"`
	Model  string `json:"model,omitempty" mapstructure:"model"`
}

// CreditsConfig controls the per-IP usage ledger.
type CreditsConfig struct {
	Limit     float64 `json:"limit,omitempty" mapstructure:"limit"`
	Cost      float64 `json:"cost,omitempty" mapstructure:"cost"`
	Backend   string  `json:"backend,omitempty" mapstructure:"backend"`
	RedisAddr string  `json:"redisAddr,omitempty" mapstructure:"redisAddr"`
}

// ProviderName returns the normalized provider id, defaulting to gemini.
func (c Config) ProviderName() string {
	p := strings.ToLower(strings.TrimSpace(c.Provider))
	if p == "" {
		return defaultProvider
	}
	return p
}

// RequestTimeout returns the timeout duration for provider requests, falling back to the default if not specified.
func (c Config) RequestTimeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return defaultRequestTimeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RetryCount returns how many retries follow the first attempt of a call.
func (c Config) RetryCount() int {
	if c.MaxRetries == nil {
		return defaultMaxRetries
	}
	if *c.MaxRetries < 0 {
		return 0
	}
	return *c.MaxRetries
}

// RetryDelay returns the wait between attempts of a call.
func (c Config) RetryDelay() time.Duration {
	return millisOrDefault(c.RetryDelayMs, defaultRetryDelay)
}

// StageDelay returns the pause between pipeline stages.
func (c Config) StageDelay() time.Duration {
	return millisOrDefault(c.StageDelayMs, defaultStageDelay)
}

func millisOrDefault(v *int, def time.Duration) time.Duration {
	if v == nil {
		return def
	}
	if *v <= 0 {
		return 0
	}
	return time.Duration(*v) * time.Millisecond
}

// ListenAddr returns the HTTP listen address.
func (c Config) ListenAddr() string {
	return orDefault(c.Listen, defaultListenAddr)
}

// DatabasePath returns the SQLite database location.
func (c Config) DatabasePath() string {
	return orDefault(c.DBPath, defaultDBPath)
}

// LogFilePath returns the path to the application log file, applying a default if not set.
func (c Config) LogFilePath() string {
	return orDefault(c.LogFile, defaultLogFile)
}

// OpenRouterSettings returns the OpenRouter settings with defaults and the
// OPENROUTER_API_KEY environment fallback applied.
func (c Config) OpenRouterSettings() OpenRouterConfig {
	or := c.OpenRouter
	or.BaseURL = orDefault(or.BaseURL, defaultOpenRouterURL)
	or.Model = orDefault(or.Model, defaultOpenRouterModel)
	or.SiteURL = orDefault(or.SiteURL, defaultOpenRouterSite)
	or.SiteName = orDefault(or.SiteName, defaultOpenRouterName)
	or.APIKey = orDefault(or.APIKey, os.Getenv(openRouterKeyEnv))
	return or
}

// GeminiSettings returns the Gemini settings with defaults and the
// GOOGLE_API_KEY environment fallback applied.
func (c Config) GeminiSettings() GeminiConfig {
	g := c.Gemini
	g.Model = orDefault(g.Model, defaultGeminiModel)
	g.APIKey = orDefault(g.APIKey, os.Getenv(geminiKeyEnv))
	return g
}

// CreditSettings returns the credit ledger settings with defaults applied.
func (c Config) CreditSettings() CreditsConfig {
	cr := c.Credits
	if cr.Limit <= 0 {
		cr.Limit = defaultCreditLimit
	}
	if cr.Cost <= 0 {
		cr.Cost = defaultCreditCost
	}
	cr.Backend = strings.ToLower(orDefault(cr.Backend, defaultCreditBackend))
	return cr
}

// Validate checks values that cannot be defaulted.
func (c Config) Validate() error {
	switch c.ProviderName() {
	case ProviderOpenRouter, ProviderGemini:
	default:
		return fmt.Errorf("unsupported provider %q (want %q or %q)", c.Provider, ProviderOpenRouter, ProviderGemini)
	}
	switch b := c.CreditSettings().Backend; b {
	case "sqlite":
	case "redis":
		if strings.TrimSpace(c.Credits.RedisAddr) == "" {
			return errors.New("credits.redisAddr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unsupported credits backend %q", b)
	}
	return nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
}

// Load reads the application configuration from the specified path, with fallback to a legacy path.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}

	config, err := loadFromPath(path)
	if err == nil {
		if err := config.Validate(); err != nil {
			return Config{}, err
		}
		config.ConfigPath = path
		return config, nil
	}

	if errors.Is(err, os.ErrNotExist) {
		if path == DefaultConfigPath {
			config, legacyErr := loadFromPath(legacyConfigPath)
			if legacyErr == nil {
				config.ConfigPath = legacyConfigPath
				return config, config.Validate()
			}
			if errors.Is(legacyErr, os.ErrNotExist) {
				return Config{}, fmt.Errorf("no configuration file found (searched %q and %q)", DefaultConfigPath, legacyConfigPath)
			}
			return Config{}, fmt.Errorf("could not read config file %q: %w", legacyConfigPath, legacyErr)
		}
		return Config{}, fmt.Errorf("no configuration file found at %q", path)
	}

	return Config{}, fmt.Errorf("could not read config file %q: %w", path, err)
}

// loadFromPath is a helper function that loads the configuration from a specific file path.
func loadFromPath(path string) (Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	var config Config
	if err := json.NewDecoder(file).Decode(&config); err != nil {
		return Config{}, err
	}
	if config.TimeoutSeconds <= 0 {
		config.TimeoutSeconds = int(defaultRequestTimeout.Seconds())
	}

	return config, nil
}
