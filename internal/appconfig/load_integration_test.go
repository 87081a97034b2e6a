// internal/appconfig/load_integration_test.go
package appconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	tempDir := t.TempDir()
	oldCwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(tempDir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(oldCwd) })
	return tempDir
}

func TestLoadDefaultPath(t *testing.T) {
	tempDir := chdirTemp(t)
	configDir := filepath.Join(tempDir, "config")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("mkdir config: %v", err)
	}

	payload := `{
  "provider": "gemini",
  "gemini": { "model": "gemini-1.5-pro" },
  "stageDelayMs": 0,
  "credits": { "limit": 3 }
}`
	if err := os.WriteFile(filepath.Join(configDir, "config.json"), []byte(payload), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.GeminiSettings().Model != "gemini-1.5-pro" {
		t.Fatalf("expected configured model, got %q", cfg.GeminiSettings().Model)
	}
	if cfg.StageDelay() != 0 {
		t.Fatalf("expected zero stage delay, got %v", cfg.StageDelay())
	}
	if cfg.CreditSettings().Limit != 3 {
		t.Fatalf("expected credit limit 3, got %v", cfg.CreditSettings().Limit)
	}
}

func TestLoadLegacyFallback(t *testing.T) {
	tempDir := chdirTemp(t)
	if err := os.WriteFile(filepath.Join(tempDir, "config.json"), []byte(`{"provider": "openrouter"}`), 0o644); err != nil {
		t.Fatalf("write legacy config: %v", err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.ProviderName() != ProviderOpenRouter {
		t.Fatalf("expected openrouter, got %q", cfg.ProviderName())
	}
}

func TestLoadMissingFileError(t *testing.T) {
	chdirTemp(t)
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for missing config")
	}
}
