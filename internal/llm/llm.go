// Package llm abstracts the completion provider used for source analysis and
// final synthesis.
package llm

import (
	"context"
	"errors"

	"github.com/askagent/askagent/config"
	openai_provider "github.com/askagent/askagent/internal/llm/openai"
)

// Provider is the interface all completion implementations satisfy.
type Provider interface {
	// Complete issues one chat completion for a system/user prompt pair.
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// NewProvider creates a completion client from configuration. The API key in
// cfg must already be resolved (request value, session value, or default).
func NewProvider(cfg config.LLMConfig) (Provider, error) {
	switch cfg.Type {
	case "", "openai":
		if cfg.APIKey == "" {
			return nil, errors.New("llm api key not set")
		}
		return openai_provider.NewClient(openai_provider.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Timeout:     cfg.Timeout,
		}), nil
	default:
		return nil, errors.New("unsupported LLM provider: " + cfg.Type)
	}
}
