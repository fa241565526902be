package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultSystemPrompt is used when neither the environment nor the YAML
// file provides one.
const DefaultSystemPrompt = "Ты — дружелюбный ассистент. Отвечай кратко и по делу, на русском языке."

// Config holds the bot configuration. Loaded once at startup, immutable
// thereafter.
type Config struct {
	TelegramAPIBase string
	PollTimeout     int
	SleepSeconds    int
	Concurrency     int

	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	OpenRouterModel   string
	EnableRetry       bool
	LLMTimeoutSeconds int

	SystemPrompt    string
	WindowSize      int
	SummaryLanguage string

	DBPath   string
	LogLevel string
}

// fileConfig is the optional YAML overlay for the prompt-related settings.
type fileConfig struct {
	SystemPrompt    string `yaml:"system_prompt"`
	WindowSize      int    `yaml:"window_size"`
	SummaryLanguage string `yaml:"summary_language"`
}

// Load reads configuration from a .env file (when present), the
// environment, and an optional YAML file named by CONFIG_FILE.
func Load() (Config, error) {
	_ = godotenv.Load()

	telegramToken := os.Getenv("TELEGRAM_BOT_TOKEN")
	if telegramToken == "" {
		return Config{}, fmt.Errorf("TELEGRAM_BOT_TOKEN is required in environment")
	}
	apiKey := os.Getenv("OPENROUTER_API_KEY")
	if apiKey == "" {
		return Config{}, fmt.Errorf("OPENROUTER_API_KEY is required in environment")
	}

	cfg := Config{
		TelegramAPIBase: fmt.Sprintf("https://api.telegram.org/bot%s", telegramToken),
		PollTimeout:     envIntOrDefault("TG_TIMEOUT", 30),
		SleepSeconds:    envIntOrDefault("TG_SLEEP_SECONDS", 1),
		Concurrency:     envIntOrDefault("BOT_CONCURRENCY", 4),

		OpenRouterAPIKey:  apiKey,
		OpenRouterBaseURL: envOrDefault("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		OpenRouterModel:   envOrDefault("OPENROUTER_MODEL", "openrouter/auto"),
		EnableRetry:       envBoolOrDefault("ENABLE_RETRY", false),
		LLMTimeoutSeconds: envIntOrDefault("LLM_TIMEOUT_SECONDS", 30),

		SystemPrompt:    envOrDefault("SYSTEM_PROMPT", DefaultSystemPrompt),
		WindowSize:      envIntOrDefault("WINDOW_SIZE", 20),
		SummaryLanguage: envOrDefault("SUMMARY_LANGUAGE", "русский"),

		DBPath:   envOrDefault("DB_PATH", "data/svodka.db"),
		LogLevel: envOrDefault("LOG_LEVEL", "info"),
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}

	if cfg.WindowSize <= 0 {
		return Config{}, fmt.Errorf("WINDOW_SIZE must be a positive integer, got %d", cfg.WindowSize)
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if fc.SystemPrompt != "" {
		c.SystemPrompt = fc.SystemPrompt
	}
	if fc.WindowSize != 0 {
		c.WindowSize = fc.WindowSize
	}
	if fc.SummaryLanguage != "" {
		c.SummaryLanguage = fc.SummaryLanguage
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOrDefault(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBoolOrDefault(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v == "1" || strings.EqualFold(v, "true")
}
