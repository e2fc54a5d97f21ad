// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// Config holds client configuration.
type Config struct {
	APIBaseURL    string
	DBPath        string
	SpeechURL     string // optional ws:// or wss:// transcript feed
	LogLevel      slog.Level
	TranscriptLog TranscriptLogConfig
}

// TranscriptLogConfig controls NDJSON chat transcript logging.
type TranscriptLogConfig struct {
	Path      string // empty disables logging
	QueueSize int
}

// MockConfig holds configuration of the local stand-in service.
type MockConfig struct {
	Port        string
	FixturePath string // optional JSON prediction fixture
	SpeechLines []string
}

// Load reads client configuration from environment variables and validates it.
func Load() (*Config, error) {
	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// FromEnv reads client configuration from environment variables without
// validating it, so callers can apply overrides first.
func FromEnv() *Config {
	return &Config{
		APIBaseURL: strings.TrimRight(getEnv("SOIL_API_URL", "http://localhost:5000"), "/"),
		DBPath:     getEnv("SOIL_DB_PATH", "./data/credentials.db"),
		SpeechURL:  getEnv("SOIL_SPEECH_URL", ""),
		LogLevel:   ParseLevel(getEnv("SOIL_LOG_LEVEL", "info")),
		TranscriptLog: TranscriptLogConfig{
			Path:      getEnv("SOIL_TRANSCRIPT_LOG", ""),
			QueueSize: getEnvInt("SOIL_TRANSCRIPT_LOG_QUEUE_SIZE", 256),
		},
	}
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("SOIL_API_URL cannot be empty")
	}
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("SOIL_API_URL must be an http(s) URL, got %q", c.APIBaseURL)
	}
	if c.DBPath == "" {
		return fmt.Errorf("SOIL_DB_PATH cannot be empty")
	}
	if c.SpeechURL != "" {
		u, err := url.Parse(c.SpeechURL)
		if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
			return fmt.Errorf("SOIL_SPEECH_URL must be a ws(s) URL, got %q", c.SpeechURL)
		}
	}
	if c.TranscriptLog.QueueSize <= 0 {
		return fmt.Errorf("SOIL_TRANSCRIPT_LOG_QUEUE_SIZE must be > 0")
	}
	return nil
}

// LoadMock reads mock service configuration from environment variables.
func LoadMock() (*MockConfig, error) {
	cfg := &MockConfig{
		Port:        getEnv("PORT", "5000"),
		FixturePath: getEnv("SOIL_MOCK_FIXTURE", ""),
		SpeechLines: splitNonEmpty(getEnv("SOIL_MOCK_SPEECH", ""), "|"),
	}
	if cfg.Port == "" {
		return nil, fmt.Errorf("invalid configuration: PORT cannot be empty")
	}
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return nil, fmt.Errorf("invalid configuration: PORT must be numeric, got %q", cfg.Port)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

func splitNonEmpty(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
