/*-------------------------------------------------------------------------
 *
 * pgEdge Natural Language Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the complete agent configuration
type Config struct {
	// Data source configuration
	DataSource DataSourceConfig `yaml:"data_source"`

	// Embedding configuration
	Embedding EmbeddingConfig `yaml:"embedding"`

	// LLM configuration
	LLM LLMConfig `yaml:"llm"`

	// Refinement loop configuration
	Loop LoopConfig `yaml:"loop"`

	// Feedback sink configuration
	Feedback FeedbackConfig `yaml:"feedback"`

	// Correction rules file path (optional, hot-reloaded when set)
	RulesFile string `yaml:"rules_file"`
}

// DataSourceConfig selects the dialect and where its schema comes from
type DataSourceConfig struct {
	Dialect    string `yaml:"dialect"`     // "sqlite" or "warehouse"
	Schema     string `yaml:"schema"`      // "retail" or "movie" (sqlite only)
	SQLitePath string `yaml:"sqlite_path"` // Database file (optional; built-in schema without it)
	SchemaPath string `yaml:"schema_path"` // JSON schema document (optional)
}

// EmbeddingConfig holds embedding provider settings
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`     // "openai" or "ollama"
	Model      string `yaml:"model"`        // Provider-specific model name
	APIKey     string `yaml:"api_key"`      // Direct key (discouraged, use api_key_file or env var)
	APIKeyFile string `yaml:"api_key_file"` // Path to file containing the API key
	OllamaURL  string `yaml:"ollama_url"`   // URL for Ollama service (default: http://localhost:11434)
	BatchSize  int    `yaml:"batch_size"`   // Texts per embedding request (default: 10)
}

// LLMConfig holds completion provider settings
type LLMConfig struct {
	Provider    string  `yaml:"provider"`     // "anthropic" or "ollama"
	Model       string  `yaml:"model"`        // Provider-specific model name
	APIKey      string  `yaml:"api_key"`      // Direct key (discouraged, use api_key_file or env var)
	APIKeyFile  string  `yaml:"api_key_file"` // Path to file containing the API key
	BaseURL     string  `yaml:"base_url"`     // Override the provider endpoint
	Temperature float64 `yaml:"temperature"`  // Sampling temperature (default: 0.2)
	MaxTokens   int     `yaml:"max_tokens"`   // Maximum tokens per response (default: 500)
}

// LoopConfig tunes the refinement loop
type LoopConfig struct {
	MaxIterations       int `yaml:"max_iterations"`       // default: 2
	ConfidenceThreshold int `yaml:"confidence_threshold"` // default: 80
	TopK                int `yaml:"top_k"`                // Schema chunks per prompt (default: 5)
}

// FeedbackConfig selects where interaction records go
type FeedbackConfig struct {
	Enabled     bool   `yaml:"enabled"`
	DataDir     string `yaml:"data_dir"`     // SQLite store directory (default: ./data)
	PostgresDSN string `yaml:"postgres_dsn"` // When set, records go to PostgreSQL instead
}

// CLIFlags represents command line flag values and whether they were
// explicitly set
type CLIFlags struct {
	ConfigFileSet bool
	ConfigFile    string

	Dialect    string
	DialectSet bool

	Schema    string
	SchemaSet bool

	SQLitePath    string
	SQLitePathSet bool

	LLMProvider    string
	LLMProviderSet bool

	LLMModel    string
	LLMModelSet bool

	EmbeddingProvider    string
	EmbeddingProviderSet bool

	EmbeddingModel    string
	EmbeddingModelSet bool
}

// LoadConfig loads configuration with proper priority:
// 1. Command line flags (highest priority)
// 2. Environment variables
// 3. Configuration file
// 4. Hard-coded defaults (lowest priority)
func LoadConfig(configPath string, cliFlags CLIFlags) (*Config, error) {
	cfg := defaultConfig()

	if configPath != "" {
		fileCfg, err := loadConfigFile(configPath)
		if err != nil {
			// An explicitly requested file must load; the default path
			// may simply not exist
			if cliFlags.ConfigFileSet {
				return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
			}
		} else {
			mergeConfig(cfg, fileCfg)
		}
	}

	applyEnvironmentVariables(cfg)
	applyCLIFlags(cfg, cliFlags)

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// defaultConfig returns configuration with hard-coded defaults
func defaultConfig() *Config {
	return &Config{
		DataSource: DataSourceConfig{
			Dialect: "sqlite",
			Schema:  "retail",
		},
		Embedding: EmbeddingConfig{
			Provider:  "openai",
			Model:     "text-embedding-3-small",
			OllamaURL: "http://localhost:11434",
			BatchSize: 10,
		},
		LLM: LLMConfig{
			Provider:    "anthropic",
			Model:       "claude-sonnet-4-20250514",
			Temperature: 0.2,
			MaxTokens:   500,
		},
		Loop: LoopConfig{
			MaxIterations:       2,
			ConfidenceThreshold: 80,
			TopK:                5,
		},
		Feedback: FeedbackConfig{
			Enabled: false,
			DataDir: "./data",
		},
	}
}

func loadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &cfg, nil
}

// mergeConfig overlays non-zero file values onto the defaults
func mergeConfig(dst, src *Config) {
	setString(&dst.DataSource.Dialect, src.DataSource.Dialect)
	setString(&dst.DataSource.Schema, src.DataSource.Schema)
	setString(&dst.DataSource.SQLitePath, src.DataSource.SQLitePath)
	setString(&dst.DataSource.SchemaPath, src.DataSource.SchemaPath)

	setString(&dst.Embedding.Provider, src.Embedding.Provider)
	setString(&dst.Embedding.Model, src.Embedding.Model)
	setString(&dst.Embedding.APIKey, src.Embedding.APIKey)
	setString(&dst.Embedding.APIKeyFile, src.Embedding.APIKeyFile)
	setString(&dst.Embedding.OllamaURL, src.Embedding.OllamaURL)
	setInt(&dst.Embedding.BatchSize, src.Embedding.BatchSize)

	setString(&dst.LLM.Provider, src.LLM.Provider)
	setString(&dst.LLM.Model, src.LLM.Model)
	setString(&dst.LLM.APIKey, src.LLM.APIKey)
	setString(&dst.LLM.APIKeyFile, src.LLM.APIKeyFile)
	setString(&dst.LLM.BaseURL, src.LLM.BaseURL)
	if src.LLM.Temperature != 0 {
		dst.LLM.Temperature = src.LLM.Temperature
	}
	setInt(&dst.LLM.MaxTokens, src.LLM.MaxTokens)

	setInt(&dst.Loop.MaxIterations, src.Loop.MaxIterations)
	setInt(&dst.Loop.ConfidenceThreshold, src.Loop.ConfidenceThreshold)
	setInt(&dst.Loop.TopK, src.Loop.TopK)

	if src.Feedback.Enabled {
		dst.Feedback.Enabled = true
	}
	setString(&dst.Feedback.DataDir, src.Feedback.DataDir)
	setString(&dst.Feedback.PostgresDSN, src.Feedback.PostgresDSN)

	setString(&dst.RulesFile, src.RulesFile)
}

func setString(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

func setInt(dst *int, src int) {
	if src != 0 {
		*dst = src
	}
}

// applyEnvironmentVariables overrides config values from the environment
func applyEnvironmentVariables(cfg *Config) {
	envString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	envString(&cfg.DataSource.Dialect, "NLQ_AGENT_DIALECT")
	envString(&cfg.DataSource.Schema, "NLQ_AGENT_SCHEMA")
	envString(&cfg.DataSource.SQLitePath, "NLQ_AGENT_SQLITE_PATH")
	envString(&cfg.DataSource.SchemaPath, "NLQ_AGENT_SCHEMA_PATH")

	envString(&cfg.Embedding.Provider, "NLQ_AGENT_EMBEDDING_PROVIDER")
	envString(&cfg.Embedding.Model, "NLQ_AGENT_EMBEDDING_MODEL")
	envString(&cfg.Embedding.OllamaURL, "NLQ_AGENT_OLLAMA_URL")
	if v := os.Getenv("NLQ_AGENT_EMBEDDING_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Embedding.BatchSize = n
		}
	}

	envString(&cfg.LLM.Provider, "NLQ_AGENT_LLM_PROVIDER")
	envString(&cfg.LLM.Model, "NLQ_AGENT_LLM_MODEL")
	envString(&cfg.LLM.BaseURL, "NLQ_AGENT_LLM_BASE_URL")

	envString(&cfg.Feedback.PostgresDSN, "NLQ_AGENT_FEEDBACK_DSN")
	envString(&cfg.RulesFile, "NLQ_AGENT_RULES_FILE")
}

// applyCLIFlags overrides config values with explicitly set flags
func applyCLIFlags(cfg *Config, flags CLIFlags) {
	if flags.DialectSet {
		cfg.DataSource.Dialect = flags.Dialect
	}
	if flags.SchemaSet {
		cfg.DataSource.Schema = flags.Schema
	}
	if flags.SQLitePathSet {
		cfg.DataSource.SQLitePath = flags.SQLitePath
	}
	if flags.LLMProviderSet {
		cfg.LLM.Provider = flags.LLMProvider
	}
	if flags.LLMModelSet {
		cfg.LLM.Model = flags.LLMModel
	}
	if flags.EmbeddingProviderSet {
		cfg.Embedding.Provider = flags.EmbeddingProvider
	}
	if flags.EmbeddingModelSet {
		cfg.Embedding.Model = flags.EmbeddingModel
	}
}

// validateConfig checks the final merged configuration
func validateConfig(cfg *Config) error {
	switch cfg.DataSource.Dialect {
	case "sqlite", "warehouse":
	default:
		return fmt.Errorf("unknown dialect %q (expected sqlite or warehouse)", cfg.DataSource.Dialect)
	}
	if cfg.DataSource.Dialect == "sqlite" {
		switch cfg.DataSource.Schema {
		case "retail", "movie":
		default:
			return fmt.Errorf("unknown schema %q (expected retail or movie)", cfg.DataSource.Schema)
		}
	}

	switch cfg.Embedding.Provider {
	case "openai", "ollama":
	default:
		return fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}
	if cfg.Embedding.BatchSize <= 0 {
		return fmt.Errorf("embedding batch size must be positive, got %d", cfg.Embedding.BatchSize)
	}

	switch cfg.LLM.Provider {
	case "anthropic", "ollama":
	default:
		return fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 1 {
		return fmt.Errorf("temperature must be in [0,1], got %v", cfg.LLM.Temperature)
	}
	if cfg.LLM.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", cfg.LLM.MaxTokens)
	}

	if cfg.Loop.MaxIterations < 1 {
		return fmt.Errorf("max iterations must be at least 1, got %d", cfg.Loop.MaxIterations)
	}
	if cfg.Loop.ConfidenceThreshold < 0 || cfg.Loop.ConfidenceThreshold > 100 {
		return fmt.Errorf("confidence threshold must be in [0,100], got %d", cfg.Loop.ConfidenceThreshold)
	}
	if cfg.Loop.TopK < 1 {
		return fmt.Errorf("top_k must be at least 1, got %d", cfg.Loop.TopK)
	}
	return nil
}

// ResolveEmbeddingAPIKey returns the embedding API key by priority:
// direct value, key file, then the provider's conventional env var
func (c *Config) ResolveEmbeddingAPIKey() (string, error) {
	return resolveKey(c.Embedding.APIKey, c.Embedding.APIKeyFile, "OPENAI_API_KEY")
}

// ResolveLLMAPIKey returns the completion API key by priority: direct
// value, key file, then the provider's conventional env var
func (c *Config) ResolveLLMAPIKey() (string, error) {
	return resolveKey(c.LLM.APIKey, c.LLM.APIKeyFile, "ANTHROPIC_API_KEY")
}

func resolveKey(direct, file, envVar string) (string, error) {
	if direct != "" {
		return direct, nil
	}
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read API key file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	return os.Getenv(envVar), nil
}
