package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TELEGRAM_BOT_TOKEN", "test-token")
	t.Setenv("OPENROUTER_API_KEY", "test-key")
	t.Setenv("CONFIG_FILE", "")
}

func TestLoad_Defaults(t *testing.T) {
	setupEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if cfg.TelegramAPIBase != "https://api.telegram.org/bottest-token" {
		t.Errorf("unexpected api base: %s", cfg.TelegramAPIBase)
	}
	if cfg.WindowSize != 20 {
		t.Errorf("expected default window 20, got %d", cfg.WindowSize)
	}
	if cfg.OpenRouterModel != "openrouter/auto" {
		t.Errorf("unexpected default model: %s", cfg.OpenRouterModel)
	}
	if cfg.SummaryLanguage != "русский" {
		t.Errorf("unexpected default summary language: %s", cfg.SummaryLanguage)
	}
	if cfg.EnableRetry {
		t.Error("retry must be disabled by default")
	}
}

func TestLoad_RequiresTelegramToken(t *testing.T) {
	setupEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	_, err := Load()
	if err == nil {
		t.Fatal("expected missing token error")
	}
	if !strings.Contains(err.Error(), "TELEGRAM_BOT_TOKEN") {
		t.Fatalf("unexpected err: %v", err)
	}
}

func TestLoad_RequiresAPIKey(t *testing.T) {
	setupEnv(t)
	t.Setenv("OPENROUTER_API_KEY", "")
	_, err := Load()
	if err == nil {
		t.Fatal("expected missing api key error")
	}
	if !strings.Contains(err.Error(), "OPENROUTER_API_KEY") {
		t.Fatalf("unexpected err: %v", err)
	}
}

func TestLoad_RejectsNonPositiveWindow(t *testing.T) {
	setupEnv(t)
	t.Setenv("WINDOW_SIZE", "-3")
	_, err := Load()
	if err == nil {
		t.Fatal("expected invalid window error")
	}
	if !strings.Contains(err.Error(), "WINDOW_SIZE") {
		t.Fatalf("unexpected err: %v", err)
	}
}

func TestLoad_YAMLOverridesPromptSettings(t *testing.T) {
	setupEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "system_prompt: Ты консультант банка.\nwindow_size: 10\nsummary_language: английский\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if cfg.SystemPrompt != "Ты консультант банка." {
		t.Errorf("unexpected prompt: %s", cfg.SystemPrompt)
	}
	if cfg.WindowSize != 10 {
		t.Errorf("expected window 10, got %d", cfg.WindowSize)
	}
	if cfg.SummaryLanguage != "английский" {
		t.Errorf("unexpected language: %s", cfg.SummaryLanguage)
	}
}

func TestLoad_MissingYAMLFileFails(t *testing.T) {
	setupEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
