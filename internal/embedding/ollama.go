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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"pgedge-nlq-agent/internal/logging"
)

const (
	// OllamaHTTPTimeout is the HTTP client timeout for Ollama API requests.
	// Ollama might need time to load models, so this is longer than other providers
	OllamaHTTPTimeout = 60 * time.Second
)

// OllamaProvider implements embedding generation using Ollama
type OllamaProvider struct {
	baseURL string
	model   string
	client  *http.Client
}

// ollamaEmbeddingRequest represents a request to Ollama's embeddings API
type ollamaEmbeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// ollamaEmbeddingResponse represents a response from Ollama's embeddings API.
// Ollama returns an array of embeddings, one per input text.
type ollamaEmbeddingResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

// Model dimensions for Ollama embedding models
var ollamaModelDimensions = map[string]int{
	"nomic-embed-text":  768,
	"mxbai-embed-large": 1024,
	"all-minilm":        384,
	"all-minilm:latest": 384,
	"all-minilm:l6-v2":  384,
}

// Mutex to protect concurrent access to ollamaModelDimensions
var ollamaModelDimensionsMu sync.RWMutex

// NewOllamaProvider creates a new Ollama embedding provider
func NewOllamaProvider(baseURL, model string) (*OllamaProvider, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	if model == "" {
		model = "nomic-embed-text"
	}

	// For unknown models, dimensions are discovered on first use. This
	// allows using newly released Ollama models.

	logging.Debug("Initialized embedding provider", "provider", "ollama", "model", model, "base_url", baseURL)

	return &OllamaProvider{
		baseURL: baseURL,
		model:   model,
		client: &http.Client{
			Timeout: OllamaHTTPTimeout,
		},
	}, nil
}

// EmbedBatch generates embedding vectors for the given texts in one request
func (p *OllamaProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("texts cannot be empty")
	}

	reqBody := ollamaEmbeddingRequest{
		Model: p.model,
		Input: texts,
	}

	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := p.baseURL + "/api/embed"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Ollama at %s: %w", p.baseURL, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Warn("Failed to close HTTP response body", "error", err.Error())
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var embResp ollamaEmbeddingResponse
	if err := json.Unmarshal(body, &embResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if len(embResp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(embResp.Embeddings))
	}

	// Cache dimensions discovered from the first successful call
	if len(embResp.Embeddings) > 0 {
		ollamaModelDimensionsMu.Lock()
		if _, ok := ollamaModelDimensions[p.model]; !ok {
			ollamaModelDimensions[p.model] = len(embResp.Embeddings[0])
		}
		ollamaModelDimensionsMu.Unlock()
	}

	logging.Debug("Generated embeddings",
		"provider", "ollama",
		"model", p.model,
		"batch_size", len(texts),
		"duration_ms", time.Since(start).Milliseconds())

	return embResp.Embeddings, nil
}

// Dimensions returns the number of dimensions in the embedding vector.
// Returns 0 for models whose dimensions have not been discovered yet.
func (p *OllamaProvider) Dimensions() int {
	ollamaModelDimensionsMu.RLock()
	defer ollamaModelDimensionsMu.RUnlock()
	return ollamaModelDimensions[p.model]
}

// ModelName returns the name of the model being used
func (p *OllamaProvider) ModelName() string {
	return p.model
}

// ProviderName returns the name of the provider
func (p *OllamaProvider) ProviderName() string {
	return "ollama"
}
