// Package config loads donna's settings: built-in defaults, then an optional
// YAML file, then .env files, then environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// Root is the task store directory.
	Root        string        `yaml:"root" mapstructure:"root"`
	Addr        string        `yaml:"addr" mapstructure:"addr"`
	DefaultUser string        `yaml:"default_user" mapstructure:"default_user"`
	LogLevel    string        `yaml:"log_level" mapstructure:"log_level"`
	OpenAI      OpenAIConfig  `yaml:"openai" mapstructure:"openai"`
	Speech      SpeechConfig  `yaml:"speech" mapstructure:"speech"`
	History     HistoryConfig `yaml:"history" mapstructure:"history"`
	Users       []UserConfig  `yaml:"users" mapstructure:"users"`
}

// OpenAIConfig configures the chat completion backend. An empty APIKey
// leaves the assistant on its canned replies.
type OpenAIConfig struct {
	APIKey     string        `yaml:"api_key" mapstructure:"api_key"`
	Model      string        `yaml:"model" mapstructure:"model"`
	BaseURL    string        `yaml:"base_url" mapstructure:"base_url"`
	MaxRetries int           `yaml:"max_retries" mapstructure:"max_retries"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// SpeechConfig points at the external speech services. Empty URLs disable them.
type SpeechConfig struct {
	STTURL string `yaml:"stt_url" mapstructure:"stt_url"`
	TTSURL string `yaml:"tts_url" mapstructure:"tts_url"`
}

type HistoryConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Path defaults to history.db inside Root.
	Path string `yaml:"path" mapstructure:"path"`
}

type UserConfig struct {
	ID        string `yaml:"id" mapstructure:"id"`
	Name      string `yaml:"name" mapstructure:"name"`
	AvatarURL string `yaml:"avatar_url" mapstructure:"avatar_url"`
	Status    string `yaml:"status" mapstructure:"status"`
}

func Default() *Config {
	return &Config{
		Root:        "~/.donna",
		Addr:        ":8000",
		DefaultUser: "user_001",
		LogLevel:    "info",
		OpenAI: OpenAIConfig{
			Model:      "gpt-3.5-turbo",
			BaseURL:    "https://api.openai.com/v1",
			MaxRetries: 3,
			Timeout:    30 * time.Second,
		},
		History: HistoryConfig{Enabled: true},
	}
}

// Options selects explicit files; empty fields fall back to the search paths.
// Root, when set, overrides the store directory from files and env.
type Options struct {
	ConfigFile string
	EnvFile    string
	Root       string
}

func Load(opts Options) (*Config, error) {
	cfg := Default()

	if opts.ConfigFile != "" {
		if err := loadFile(opts.ConfigFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", opts.ConfigFile, err)
		}
	} else {
		for _, loc := range ConfigLocations() {
			if err := loadFile(loc, cfg); err == nil {
				break
			} else if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load config file %s: %w", loc, err)
			}
		}
	}

	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", opts.EnvFile, err)
		}
	} else {
		for _, loc := range EnvLocations() {
			if _, err := os.Stat(loc); err == nil {
				_ = godotenv.Load(loc)
				break
			}
		}
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if strings.TrimSpace(opts.Root) != "" {
		cfg.Root = opts.Root
	}
	cfg.finalize()
	return cfg, nil
}

// ConfigLocations lists YAML files in search order; the first one found wins.
func ConfigLocations() []string {
	locations := []string{"donna.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		locations = append(locations, filepath.Join(home, ".config", "donna", "config.yaml"))
	}
	return locations
}

func EnvLocations() []string {
	locations := []string{".env"}
	if home, err := os.UserHomeDir(); err == nil {
		locations = append(locations, filepath.Join(home, ".config", "donna", ".env"))
	}
	return locations
}

func loadFile(path string, cfg *Config) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return err
	}
	return v.Unmarshal(cfg)
}

type lookupFunc func(string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	strs := []struct {
		key string
		dst *string
	}{
		{"DONNA_ROOT", &cfg.Root},
		{"DONNA_ADDR", &cfg.Addr},
		{"DONNA_DEFAULT_USER", &cfg.DefaultUser},
		{"DONNA_LOG_LEVEL", &cfg.LogLevel},
		{"OPENAI_API_KEY", &cfg.OpenAI.APIKey},
		{"OPENAI_MODEL", &cfg.OpenAI.Model},
		{"OPENAI_BASE_URL", &cfg.OpenAI.BaseURL},
		{"SPEECH_TO_TEXT_SERVICE_URL", &cfg.Speech.STTURL},
		{"TEXT_TO_SPEECH_SERVICE_URL", &cfg.Speech.TTSURL},
		{"DONNA_HISTORY_DB", &cfg.History.Path},
	}
	for _, s := range strs {
		if v, ok := lookup(s.key); ok && strings.TrimSpace(v) != "" {
			*s.dst = strings.TrimSpace(v)
		}
	}
	if v, ok := lookup("DONNA_HISTORY"); ok && strings.TrimSpace(v) != "" {
		enabled, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("DONNA_HISTORY: %w", err)
		}
		cfg.History.Enabled = enabled
	}
	return nil
}

func (c *Config) finalize() {
	c.Root = expandHome(c.Root)
	if c.History.Path == "" {
		c.History.Path = filepath.Join(c.Root, "history.db")
	}
	c.History.Path = expandHome(c.History.Path)
	if c.OpenAI.MaxRetries < 0 {
		c.OpenAI.MaxRetries = 0
	}
	if c.OpenAI.Timeout <= 0 {
		c.OpenAI.Timeout = Default().OpenAI.Timeout
	}
	c.OpenAI.BaseURL = strings.TrimRight(c.OpenAI.BaseURL, "/")
	if len(c.Users) == 0 && c.DefaultUser != "" {
		c.Users = []UserConfig{{ID: c.DefaultUser, Name: "Your Name", Status: "online"}}
	}
}

// SlogLevel maps LogLevel onto slog; unknown values mean info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// User looks up a configured user by id.
func (c *Config) User(id string) (UserConfig, bool) {
	for _, u := range c.Users {
		if u.ID == id {
			return u, true
		}
	}
	return UserConfig{}, false
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
