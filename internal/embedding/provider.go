/*-------------------------------------------------------------------------
 *
 * pgEdge Natural Language Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package embedding

import (
	"context"
	"fmt"
)

// Provider defines the interface for embedding generation
type Provider interface {
	// EmbedBatch generates one embedding vector per input text, preserving
	// order. Implementations send the whole batch in a single API call.
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)

	// Dimensions returns the number of dimensions in the embedding vector
	Dimensions() int

	// ModelName returns the name of the model being used
	ModelName() string

	// ProviderName returns the name of the provider (e.g., "openai", "ollama")
	ProviderName() string
}

// Config holds configuration for embedding providers
type Config struct {
	Provider string // "openai" or "ollama"
	Model    string // Model name (provider-specific)

	// OpenAI-specific
	OpenAIAPIKey string

	// Ollama-specific
	OllamaURL string
}

// NewProvider creates a new embedding provider based on configuration
func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key is required when provider is 'openai'")
		}
		return NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.Model)

	case "ollama":
		if cfg.OllamaURL == "" {
			cfg.OllamaURL = "http://localhost:11434" // Default
		}
		if cfg.Model == "" {
			cfg.Model = "nomic-embed-text" // Default model
		}
		return NewOllamaProvider(cfg.OllamaURL, cfg.Model)

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s (supported: openai, ollama)", cfg.Provider)
	}
}
