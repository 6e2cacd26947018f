package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/lamvh/trendwatch/internal/models"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig     `toml:"server"`
	Draft     DraftConfig      `toml:"draft"`
	Webhook   WebhookConfig    `toml:"webhook"`
	Gather    GatherConfig     `toml:"gather"`
	Providers []ProviderConfig `toml:"providers"`
	Sources   []models.Source  `toml:"sources"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `toml:"port"`
}

// DraftConfig holds draft generator settings.
type DraftConfig struct {
	// DebugDir is where raw inputs and provider responses are written for
	// offline inspection. Empty disables debug artifacts.
	DebugDir string `toml:"debug_dir"`
}

// WebhookConfig holds notification settings.
type WebhookConfig struct {
	URL string `toml:"url"`
}

// GatherConfig holds story gathering and filtering settings.
type GatherConfig struct {
	IntervalMinutes   int      `toml:"interval_minutes"`
	MaxAgeDays        int      `toml:"max_age_days"`
	MinHeadlineLength int      `toml:"min_headline_length"`
	Keywords          []string `toml:"keywords"`
}

// ProviderConfig describes one inference backend, tried in the order listed.
type ProviderConfig struct {
	Name      string `toml:"name"`
	BaseURL   string `toml:"base_url"`
	AuthToken string `toml:"auth_token"`
	Shape     string `toml:"shape"`
}

// defaultKeywords is the topic relevance filter applied to gathered
// headlines when the config does not set its own list.
var defaultKeywords = []string{
	"ai", "artificial intelligence", "machine learning", "llm",
	"large language model", "deep learning", "neural network",
	"generative ai", "gpt", "chatgpt", "claude", "gemini", "llama",
	"mistral", "transformer", "diffusion", "openai", "anthropic",
	"deepmind", "hugging face", "fine-tuning", "multimodal",
	"foundation model", "rag", "embeddings",
}

const defaultConfigContent = `[server]
port = 8080

[draft]
debug_dir = ""                    # set to a directory to keep raw model responses

[webhook]
url = ""                          # or set WEBHOOK_URL env var

[gather]
interval_minutes = 60
max_age_days = 2
min_headline_length = 20

[[providers]]
name = "modal"
base_url = ""                     # or set MODAL_BASE_URL env var
auth_token = ""                   # or set MODAL_AUTH_TOKEN env var
shape = "deepseek"

[[providers]]
name = "together"
base_url = "https://api.together.xyz"
auth_token = ""                   # or set TOGETHER_AUTH_TOKEN env var
shape = "together"

[[sources]]
name = "TechCrunch AI"
identifier = "https://techcrunch.com/category/artificial-intelligence/feed/"
type = "rss"

[[sources]]
name = "VentureBeat AI"
identifier = "https://venturebeat.com/category/ai/feed/"
type = "rss"

[[sources]]
name = "Hugging Face Blog"
identifier = "https://huggingface.co/blog"
type = "website"
`

// Load reads and parses the TOML config from the given path. If the file
// does not exist, it creates a default config file at that path. Environment
// variables override values from the file with highest priority.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := createDefault(path); err != nil {
			return nil, fmt.Errorf("creating default config: %w", err)
		}
		slog.Info("created default config file", "path", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Validate explicitly-set values before applying defaults, so that
	// explicitly writing "port = 0" is an error rather than silently
	// being replaced with the default.
	if err := validateExplicit(&cfg, md); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// createDefault writes the default config content to the given path,
// creating any parent directories as needed.
func createDefault(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigContent), 0o644); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}

// validateExplicit checks values that were explicitly set in the TOML file.
// This catches cases like "port = 0" which would otherwise be silently
// replaced by the default value.
func validateExplicit(cfg *Config, md toml.MetaData) error {
	if md.IsDefined("server", "port") {
		if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
			return fmt.Errorf("invalid server.port %d: must be between 1 and 65535", cfg.Server.Port)
		}
	}
	if md.IsDefined("gather", "interval_minutes") {
		if cfg.Gather.IntervalMinutes < 1 {
			return fmt.Errorf("invalid gather.interval_minutes %d: must be >= 1", cfg.Gather.IntervalMinutes)
		}
	}
	if md.IsDefined("gather", "max_age_days") {
		if cfg.Gather.MaxAgeDays < 1 {
			return fmt.Errorf("invalid gather.max_age_days %d: must be >= 1", cfg.Gather.MaxAgeDays)
		}
	}
	return nil
}

// applyDefaults sets default values for any zero-valued fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Gather.IntervalMinutes == 0 {
		cfg.Gather.IntervalMinutes = 60
	}
	if cfg.Gather.MaxAgeDays == 0 {
		cfg.Gather.MaxAgeDays = 2
	}
	if cfg.Gather.MinHeadlineLength == 0 {
		cfg.Gather.MinHeadlineLength = 20
	}
	if len(cfg.Gather.Keywords) == 0 {
		cfg.Gather.Keywords = defaultKeywords
	}
}

// applyEnvOverrides applies environment variable overrides. For each
// provider, <NAME>_BASE_URL and <NAME>_AUTH_TOKEN (provider name uppercased,
// dashes replaced by underscores) override the file values. WEBHOOK_URL
// overrides webhook.url. Environment variables take highest priority.
func applyEnvOverrides(cfg *Config) {
	for i := range cfg.Providers {
		prefix := envPrefix(cfg.Providers[i].Name)
		if v := os.Getenv(prefix + "_BASE_URL"); v != "" {
			cfg.Providers[i].BaseURL = v
		}
		if v := os.Getenv(prefix + "_AUTH_TOKEN"); v != "" {
			cfg.Providers[i].AuthToken = v
		}
	}

	if v := os.Getenv("WEBHOOK_URL"); v != "" {
		cfg.Webhook.URL = v
	}
}

// envPrefix converts a provider name like "modal-eu" to "MODAL_EU".
func envPrefix(name string) string {
	return strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

// validate checks that configuration values are within acceptable ranges.
func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d: must be between 1 and 65535", cfg.Server.Port)
	}

	for _, p := range cfg.Providers {
		switch p.Shape {
		case "deepseek", "together":
			// valid
		default:
			return fmt.Errorf("invalid shape %q for provider %q: must be \"deepseek\" or \"together\"", p.Shape, p.Name)
		}
	}

	for _, s := range cfg.Sources {
		if s.Identifier == "" {
			return fmt.Errorf("source %q has no identifier", s.Name)
		}
	}

	eligible := 0
	for _, p := range cfg.Providers {
		if p.BaseURL != "" && p.AuthToken != "" {
			eligible++
		}
	}
	if eligible == 0 {
		slog.Warn("no fully configured inference provider: drafts will report a generation failure")
	}

	if cfg.Webhook.URL == "" {
		slog.Warn("webhook.url is empty: drafts will be generated but not delivered")
	}

	return nil
}
