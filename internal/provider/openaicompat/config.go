// Package openaicompat implements internal/provider.Provider against any
// OpenAI-compatible chat completions endpoint, generalizing the teacher
// corpus's internal/llm/openai package (Client, Config, NewConfigFromEnv):
// the same env-var-driven configuration idiom, the same retry-wrapped
// CreateChatCompletion call, and the same tool-call/structured-output
// extraction from the response, adapted to the provider.Request/Response
// shape instead of llm.Message.
package openaicompat

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds OpenAI-compatible provider configuration, loaded from
// environment variables the same way the teacher's NewConfigFromEnv does.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature *float32
	MaxTokens   int
	HTTPTimeout time.Duration
}

// ConfigFromEnv reads VIBE_LLM_API_KEY, VIBE_LLM_BASE_URL, VIBE_LLM_MODEL,
// VIBE_LLM_TEMPERATURE, VIBE_LLM_MAX_TOKENS, VIBE_LLM_HTTP_TIMEOUT.
func ConfigFromEnv() (*Config, error) {
	cfg := &Config{
		APIKey:      getEnv("VIBE_LLM_API_KEY", ""),
		BaseURL:     getEnv("VIBE_LLM_BASE_URL", "https://api.openai.com/v1"),
		Model:       getEnv("VIBE_LLM_MODEL", "gpt-4o-mini"),
		Temperature: getEnvFloat32Ptr("VIBE_LLM_TEMPERATURE"),
		MaxTokens:   getEnvInt("VIBE_LLM_MAX_TOKENS", 0),
		HTTPTimeout: time.Duration(getEnvInt("VIBE_LLM_HTTP_TIMEOUT", 120)) * time.Second,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration is usable before a client is built.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("VIBE_LLM_API_KEY is required")
	}
	if c.Model == "" {
		return fmt.Errorf("VIBE_LLM_MODEL cannot be empty")
	}
	if c.Temperature != nil && (*c.Temperature < 0 || *c.Temperature > 2) {
		return fmt.Errorf("VIBE_LLM_TEMPERATURE must be between 0.0 and 2.0, got %v", *c.Temperature)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat32Ptr(key string) *float32 {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(v, 32)
	if err != nil {
		return nil
	}
	f := float32(parsed)
	return &f
}
