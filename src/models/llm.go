// Package models adapts hosted and local language models to a single
// prompt-in, text-out interface with deterministic-leaning sampling.
package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrMissingCredential is returned when a hosted provider has no API key.
var ErrMissingCredential = errors.New("missing LLM credential")

// LLM generates a completion for a single prompt.
type LLM interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GenerateFunc adapts a function to LLM.
type GenerateFunc func(ctx context.Context, prompt string) (string, error)

func (f GenerateFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Config selects a provider and its sampling parameters.
type Config struct {
	Provider        string
	Model           string
	APIKey          string
	BaseURL         string
	Temperature     float32
	TopP            float32
	TopK            int32
	MaxOutputTokens int32
	StopSequences   []string
	// JSONMode asks the provider to emit a single JSON object.
	JSONMode bool
}

// DefaultConfig returns near-deterministic sampling capped at 1000 output tokens.
func DefaultConfig() Config {
	return Config{
		Provider:        "gemini",
		Model:           "auto",
		Temperature:     0.1,
		TopP:            0.8,
		TopK:            40,
		MaxOutputTokens: 1000,
		JSONMode:        true,
	}
}

// NewLLMProvider returns the adapter for cfg.Provider.
func NewLLMProvider(ctx context.Context, cfg Config) (LLM, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "gemini", "google":
		return NewGeminiLLM(ctx, cfg)
	case "openai":
		return NewOpenAILLM(cfg)
	case "anthropic", "claude":
		return NewAnthropicLLM(cfg)
	case "ollama":
		return NewOllamaLLM(cfg)
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}

func requireKey(cfg Config, provider string) error {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return fmt.Errorf("%w for %s", ErrMissingCredential, provider)
	}
	return nil
}

func modelOr(model, fallback string) string {
	if m := strings.TrimSpace(model); m != "" && m != "auto" {
		return m
	}
	return fallback
}
