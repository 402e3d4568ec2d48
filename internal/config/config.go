// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/engli-ai/engli/internal/store"
)

// Config holds all server configuration. LLM provider settings live in
// the llm package and are discovered separately.
type Config struct {
	Port            string
	DBPath          string
	PromptOverrides string // Optional YAML file with persona prompt overrides.
	SessionTTL      time.Duration
	SweepInterval   time.Duration
	AllowedOrigins  []string

	DeepgramAPIKey  string // Empty disables speech synthesis.
	DeepgramBaseURL string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	dbPath := getEnv("ENGLI_DB", "")
	if dbPath == "" {
		var err error
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("resolving database path: %w", err)
		}
	}

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		DBPath:          dbPath,
		PromptOverrides: getEnv("ENGLI_PROMPTS", ""),
		SessionTTL:      getEnvDuration("ENGLI_SESSION_TTL", 60*time.Minute),
		SweepInterval:   getEnvDuration("ENGLI_SWEEP_INTERVAL", 5*time.Minute),
		AllowedOrigins:  splitList(getEnv("ENGLI_ALLOWED_ORIGINS", "*")),
		DeepgramAPIKey:  getEnv("DEEPGRAM_API_KEY", ""),
		DeepgramBaseURL: getEnv("ENGLI_DEEPGRAM_BASE_URL", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("ENGLI_DB cannot be empty")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("ENGLI_SESSION_TTL must be positive")
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("ENGLI_SWEEP_INTERVAL must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	trimmed := strings.TrimSpace(value)
	if d, err := time.ParseDuration(trimmed); err == nil {
		return d
	}
	// Bare numbers are minutes.
	if n, err := strconv.Atoi(trimmed); err == nil {
		return time.Duration(n) * time.Minute
	}
	return fallback
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
