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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "anthropic with key",
			cfg:     Config{Provider: "anthropic", APIKey: "sk-ant-test", Model: "claude-sonnet-4-5"},
			wantErr: false,
		},
		{
			name:    "anthropic without key",
			cfg:     Config{Provider: "anthropic", Model: "claude-sonnet-4-5"},
			wantErr: true,
		},
		{
			name:    "ollama with model",
			cfg:     Config{Provider: "ollama", Model: "llama3.2"},
			wantErr: false,
		},
		{
			name:    "ollama without model",
			cfg:     Config{Provider: "ollama"},
			wantErr: true,
		},
		{
			name:    "unknown provider",
			cfg:     Config{Provider: "cohere", Model: "x"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewClient() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && !client.IsConfigured() {
				t.Error("expected client to be configured")
			}
		})
	}
}

func TestAnthropicComplete(t *testing.T) {
	var gotReq claudeRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("missing x-api-key header")
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Errorf("missing anthropic-version header")
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		resp := claudeResponse{
			Content: []claudeContentBlock{{Type: "text", Text: "SELECT 1"}},
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Fatalf("failed to encode response: %v", err)
		}
	}))
	defer server.Close()

	client, err := NewAnthropicClient("test-key", server.URL, "claude-sonnet-4-5")
	if err != nil {
		t.Fatalf("NewAnthropicClient failed: %v", err)
	}

	got, err := client.Complete(context.Background(), "You write SQL.", "count users", 0.2, 500)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if got != "SELECT 1" {
		t.Errorf("Complete() = %q, want %q", got, "SELECT 1")
	}
	if gotReq.System != "You write SQL." {
		t.Errorf("system prompt = %q", gotReq.System)
	}
	if gotReq.Temperature != 0.2 {
		t.Errorf("temperature = %v, want 0.2", gotReq.Temperature)
	}
	if gotReq.MaxTokens != 500 {
		t.Errorf("max tokens = %d, want 500", gotReq.MaxTokens)
	}
	if len(gotReq.Messages) != 1 || gotReq.Messages[0].Content != "count users" {
		t.Errorf("unexpected messages: %+v", gotReq.Messages)
	}
}

func TestAnthropicCompleteAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := NewAnthropicClient("test-key", server.URL, "claude-sonnet-4-5")
	if err != nil {
		t.Fatalf("NewAnthropicClient failed: %v", err)
	}

	if _, err := client.Complete(context.Background(), "", "q", 0, 0); err == nil {
		t.Error("expected error on API failure")
	}
}

func TestOllamaComplete(t *testing.T) {
	var gotReq ollamaRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		resp := ollamaResponse{
			Choices: []ollamaChoice{{Message: ollamaMessage{Role: "assistant", Content: "SELECT 2"}}},
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Fatalf("failed to encode response: %v", err)
		}
	}))
	defer server.Close()

	client, err := NewOllamaClient(server.URL, "llama3.2")
	if err != nil {
		t.Fatalf("NewOllamaClient failed: %v", err)
	}

	got, err := client.Complete(context.Background(), "system here", "user here", 0.1, 100)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if got != "SELECT 2" {
		t.Errorf("Complete() = %q, want %q", got, "SELECT 2")
	}
	if len(gotReq.Messages) != 2 {
		t.Fatalf("expected system+user messages, got %d", len(gotReq.Messages))
	}
	if gotReq.Messages[0].Role != "system" || gotReq.Messages[1].Role != "user" {
		t.Errorf("unexpected roles: %+v", gotReq.Messages)
	}
}

func TestCleanSQL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain SQL",
			input:    "SELECT * FROM users",
			expected: "SELECT * FROM users",
		},
		{
			name:     "markdown fenced",
			input:    "```sql\nSELECT id FROM orders\n```",
			expected: "SELECT id FROM orders",
		},
		{
			name:     "sql label prefix",
			input:    "SQL: SELECT name FROM products",
			expected: "SELECT name FROM products",
		},
		{
			name:     "leading explanation",
			input:    "Here is the query you asked for:\nSELECT count(*) FROM orders",
			expected: "SELECT count(*) FROM orders",
		},
		{
			name:     "trailing explanation",
			input:    "SELECT status FROM orders\nThis query lists order statuses.",
			expected: "SELECT status FROM orders",
		},
		{
			name:     "line comments stripped",
			input:    "-- grab everything\nSELECT * FROM orders -- all rows",
			expected: "SELECT * FROM orders",
		},
		{
			name:     "block comment stripped",
			input:    "SELECT /* inline */ id FROM orders",
			expected: "SELECT id FROM orders",
		},
		{
			name:     "stops at semicolon",
			input:    "SELECT 1; SELECT 2",
			expected: "SELECT 1",
		},
		{
			name:     "multiline with CTE",
			input:    "WITH top AS (\n  SELECT id FROM orders\n)\nSELECT * FROM top",
			expected: "WITH top AS ( SELECT id FROM orders ) SELECT * FROM top",
		},
		{
			name:     "backtick identifiers preserved",
			input:    "SELECT * FROM `bigquery-public-data.imdb.title_basics`",
			expected: "SELECT * FROM `bigquery-public-data.imdb.title_basics`",
		},
		{
			name:     "no SQL at all",
			input:    "I cannot answer that question.",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanSQL(tt.input); got != tt.expected {
				t.Errorf("CleanSQL(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
