// Package config loads flashcards settings from the data directory, a .env
// file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds the application settings.
type Config struct {
	DataDir string `mapstructure:"-" yaml:"-"`

	DeckDir string `mapstructure:"deck_dir" yaml:"deck_dir,omitempty"`

	APIKey      string  `mapstructure:"api_key" yaml:"api_key,omitempty"`
	BaseURL     string  `mapstructure:"base_url" yaml:"base_url"`
	Model       string  `mapstructure:"model" yaml:"model"`
	Temperature float32 `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens" yaml:"max_tokens"`

	EvalTimeout      time.Duration `mapstructure:"eval_timeout" yaml:"eval_timeout"`
	MaxCrashRestarts int           `mapstructure:"max_crash_restarts" yaml:"max_crash_restarts"`

	Shuffle bool `mapstructure:"shuffle" yaml:"shuffle"`
	Debug   bool `mapstructure:"debug" yaml:"debug"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		BaseURL:          "https://openrouter.ai/api/v1",
		Model:            "openai/gpt-oss-120b",
		EvalTimeout:      30 * time.Second,
		MaxCrashRestarts: 3,
	}
}

// GetDataDir returns the directory holding the database, logs, decks and
// config file. FLASHCARDS_DIR overrides the default.
func GetDataDir() string {
	if dir := os.Getenv("FLASHCARDS_DIR"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "interactive-flashcards")
}

// Path returns the config file inside dataDir.
func Path(dataDir string) string {
	return filepath.Join(dataDir, "config.yaml")
}

// Load reads settings for dataDir. Values come from, in rising priority:
// defaults, dataDir/config.yaml, a .env file in the working directory and
// FLASHCARDS_* environment variables. OPENROUTER_API_KEY also sets the API key.
func Load(dataDir string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	def := Default()
	v.SetDefault("deck_dir", "")
	v.SetDefault("api_key", "")
	v.SetDefault("base_url", def.BaseURL)
	v.SetDefault("model", def.Model)
	v.SetDefault("temperature", def.Temperature)
	v.SetDefault("max_tokens", def.MaxTokens)
	v.SetDefault("eval_timeout", def.EvalTimeout)
	v.SetDefault("max_crash_restarts", def.MaxCrashRestarts)
	v.SetDefault("shuffle", false)
	v.SetDefault("debug", false)

	v.SetEnvPrefix("FLASHCARDS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("api_key", "FLASHCARDS_API_KEY", "OPENROUTER_API_KEY"); err != nil {
		return nil, err
	}

	v.SetConfigFile(Path(dataDir))
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.DataDir = dataDir
	if cfg.DeckDir == "" {
		cfg.DeckDir = filepath.Join(dataDir, "decks")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the application cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.EvalTimeout <= 0:
		return fmt.Errorf("eval_timeout must be positive, got %s", c.EvalTimeout)
	case c.MaxCrashRestarts < 0:
		return fmt.Errorf("max_crash_restarts must not be negative, got %d", c.MaxCrashRestarts)
	case c.MaxTokens < 0:
		return fmt.Errorf("max_tokens must not be negative, got %d", c.MaxTokens)
	case c.Temperature < 0 || c.Temperature > 2:
		return fmt.Errorf("temperature must be within [0, 2], got %v", c.Temperature)
	}
	return nil
}

// AIEnabled reports whether answers can be sent for evaluation.
func (c *Config) AIEnabled() bool {
	return c.APIKey != ""
}

// DBPath returns the SQLite database location.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "if.db")
}

// LogDir returns the directory log files are written to.
func (c *Config) LogDir() string {
	return filepath.Join(c.DataDir, "logs")
}

var templateComments = map[string]string{
	"base_url":           "OpenAI-compatible endpoint answers are sent to.\nThe API key is read from OPENROUTER_API_KEY.",
	"model":              "Model used to grade answers.",
	"temperature":        "Sampling temperature. 0 leaves it to the provider.",
	"max_tokens":         "Reply length limit. 0 leaves it to the provider.",
	"eval_timeout":       "How long one evaluation may take (Go duration, e.g. \"30s\").",
	"max_crash_restarts": "Consecutive evaluation worker crashes absorbed before giving up.",
	"shuffle":            "Shuffle cards when a quiz starts.",
	"debug":              "Write debug-level logs.",
}

// Template returns the default config rendered as commented YAML.
func Template() (string, error) {
	var doc yaml.Node
	if err := doc.Encode(Default()); err != nil {
		return "", fmt.Errorf("encode template: %w", err)
	}
	for i := 0; i+1 < len(doc.Content); i += 2 {
		key := doc.Content[i]
		if c, ok := templateComments[key.Value]; ok {
			key.HeadComment = c
		}
	}

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return "# flashcards configuration\n\n" + string(out), nil
}

// EnsureTemplate writes the template to dataDir/config.yaml unless a
// config file already exists, and returns its path.
func EnsureTemplate(dataDir string) (string, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}

	path := Path(dataDir)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	tmpl, err := Template()
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(tmpl), 0o644); err != nil {
		return "", fmt.Errorf("write template: %w", err)
	}
	return path, nil
}
