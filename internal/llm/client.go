/*-------------------------------------------------------------------------
 *
 * pgEdge Natural Language Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package llm

import (
	"context"
	"fmt"
	"time"
)

// DefaultHTTPTimeout bounds every completion request
const DefaultHTTPTimeout = 30 * time.Second

// Client is a chat completion backend
type Client interface {
	// Complete sends one system+user exchange and returns the raw text of
	// the model's reply.
	Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float64, maxTokens int) (string, error)

	// IsConfigured returns whether the client has everything it needs to
	// make requests
	IsConfigured() bool

	// ProviderName returns the provider identifier ("anthropic" or "ollama")
	ProviderName() string
}

// Config holds the settings needed to construct a completion client
type Config struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

// NewClient creates a completion client for the configured provider
func NewClient(cfg Config) (Client, error) {
	switch cfg.Provider {
	case "anthropic":
		return NewAnthropicClient(cfg.APIKey, cfg.BaseURL, cfg.Model)
	case "ollama":
		return NewOllamaClient(cfg.BaseURL, cfg.Model)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
