package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// KeyPrefix is the documented prefix of a valid provider API key.
const KeyPrefix = "sk-"

// Config holds analyzer configuration.
type Config struct {
	Endpoint     string // chat-completion endpoint
	RelayURL     string // optional relay; when set, requests go through it
	APIKey       string
	Model        string
	Temperature  float64
	MaxTokens    int
	RequestDelay time.Duration // fixed pause between batch steps
	Timeout      time.Duration // transport timeout per request
	CacheSize    int           // LRU entries for cached search results
	HistoryLimit int           // retained operation history entries
	MetricsAddr  string
	Verbose      bool
}

// DefaultConfig returns the defaults observed against the default provider.
func DefaultConfig() *Config {
	return &Config{
		Endpoint:     "https://api.openai.com/v1/chat/completions",
		Model:        "gpt-4o",
		Temperature:  0.1,
		MaxTokens:    3000,
		RequestDelay: 2 * time.Second,
		Timeout:      60 * time.Second,
		CacheSize:    256,
		HistoryLimit: 1000,
	}
}

// Validate ensures all configuration values are coherent. The API key is
// deliberately not required here: the relay server never holds one and the
// gateway reports a missing key as a configuration error at call time.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}
	if err := validateURL("endpoint", c.Endpoint); err != nil {
		return err
	}
	if c.RelayURL != "" {
		if err := validateURL("relay URL", c.RelayURL); err != nil {
			return err
		}
	}
	if c.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive")
	}
	if c.RequestDelay < 0 {
		return fmt.Errorf("request delay cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cache size cannot be negative")
	}
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("history limit must be positive")
	}
	return nil
}

// ValidateAPIKey rejects missing or malformed keys before any request is
// attempted.
func ValidateAPIKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("API key is not configured")
	}
	if !strings.HasPrefix(key, KeyPrefix) {
		return fmt.Errorf("API key must start with %q", KeyPrefix)
	}
	return nil
}

func validateURL(label, raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", label, err)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host", label)
	}
	return nil
}

// EnvString reads a string environment override.
func EnvString(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// EnvInt reads an integer environment override.
func EnvInt(key string) (int, bool, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return 0, false, nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return 0, false, fmt.Errorf("%s must be a number: %w", key, err)
	}
	return parsed, true, nil
}

// EnvDuration reads a duration environment override (e.g. "2s", "500ms").
func EnvDuration(key string) (time.Duration, bool, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return 0, false, nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return 0, false, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return parsed, true, nil
}
