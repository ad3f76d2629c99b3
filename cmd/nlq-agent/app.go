/*-------------------------------------------------------------------------
 *
 * pgEdge Natural Language Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"pgedge-nlq-agent/internal/config"
	"pgedge-nlq-agent/internal/connector"
	"pgedge-nlq-agent/internal/dialect"
	"pgedge-nlq-agent/internal/embedding"
	"pgedge-nlq-agent/internal/feedback"
	"pgedge-nlq-agent/internal/generator"
	"pgedge-nlq-agent/internal/llm"
	"pgedge-nlq-agent/internal/logging"
	"pgedge-nlq-agent/internal/pipeline"
	"pgedge-nlq-agent/internal/retrieval"
	"pgedge-nlq-agent/internal/schema"
	"pgedge-nlq-agent/internal/validator"
)

// app holds the wired services shared across questions. The validator and
// refinement loop are rebuilt per question so a hot-reloaded rules file
// takes effect on the next question, not the next process.
type app struct {
	cfg      *config.Config
	dialect  dialect.Dialect
	catalog  *schema.Catalog
	gen      *generator.Generator
	executor connector.Executor
	sink     feedback.Sink
	watcher  *dialect.FileWatcher
}

// ruleSetter is implemented by dialects whose correction rules can be
// replaced from a file at runtime
type ruleSetter interface {
	Rules() *dialect.RuleSet
}

// buildApp wires every service from configuration. All construction is
// explicit: nothing here reaches for package globals.
func buildApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, err := config.LoadConfig(configFile, cliFlags(cmd))
	if err != nil {
		return nil, err
	}

	d, err := dialect.New(cfg.DataSource.Dialect, cfg.DataSource.Schema,
		cfg.DataSource.SQLitePath, cfg.DataSource.SchemaPath)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, dialect: d}

	if cfg.RulesFile != "" {
		rs, ok := d.(ruleSetter)
		if !ok {
			return nil, fmt.Errorf("dialect %s does not support a rules file", d.Name())
		}
		if err := rs.Rules().LoadFromFile(cfg.RulesFile); err != nil {
			return nil, err
		}
		watcher, err := rs.Rules().Watch(cfg.RulesFile)
		if err != nil {
			logging.Warn("Correction rules will not hot-reload", "error", err)
		} else {
			a.watcher = watcher
		}
	}

	a.catalog, err = d.LoadCatalog()
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}

	embedKey, err := cfg.ResolveEmbeddingAPIKey()
	if err != nil {
		return nil, err
	}
	provider, err := embedding.NewProvider(embedding.Config{
		Provider:     cfg.Embedding.Provider,
		Model:        cfg.Embedding.Model,
		OpenAIAPIKey: embedKey,
		OllamaURL:    cfg.Embedding.OllamaURL,
	})
	if err != nil {
		return nil, err
	}

	retriever := retrieval.NewRetriever(a.catalog, provider, cfg.Embedding.BatchSize, d.ConfusedColumnNotes())
	if err := retriever.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize retriever: %w", err)
	}

	llmKey, err := cfg.ResolveLLMAPIKey()
	if err != nil {
		return nil, err
	}
	client, err := llm.NewClient(llm.Config{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		APIKey:   llmKey,
		BaseURL:  cfg.LLM.BaseURL,
	})
	if err != nil {
		return nil, err
	}

	a.gen = generator.New(retriever, client, d, generator.Options{
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		TopK:        cfg.Loop.TopK,
	})

	// Only a local SQLite database gives us an executor; the warehouse
	// dialect validates and qualifies but needs an external job runner
	// to actually run anything
	if cfg.DataSource.Dialect == "sqlite" && cfg.DataSource.SQLitePath != "" {
		a.executor = connector.NewSQLiteExecutor(cfg.DataSource.SQLitePath, 0)
	}

	if cfg.Feedback.Enabled && !noFeedbackFlag {
		a.sink, err = openSink(ctx, cfg)
		if err != nil {
			// The agent still answers questions when the sink is down
			logging.Warn("Feedback store unavailable", "error", err)
			a.sink = nil
		}
	}

	return a, nil
}

func openSink(ctx context.Context, cfg *config.Config) (feedback.Sink, error) {
	if cfg.Feedback.PostgresDSN != "" {
		return feedback.NewPostgresStore(ctx, cfg.Feedback.PostgresDSN)
	}
	return feedback.NewStore(cfg.Feedback.DataDir)
}

// ask runs one question through the refinement loop. The validator and
// loop are constructed here so they see the current correction rules.
func (a *app) ask(ctx context.Context, question string) *pipeline.Outcome {
	rules := a.dialect.Corrections()
	val := validator.New(a.catalog, a.dialect, rules)
	loop := pipeline.New(a.gen, val, a.executor, rules, pipeline.Options{
		MaxIterations:       a.cfg.Loop.MaxIterations,
		ConfidenceThreshold: a.cfg.Loop.ConfidenceThreshold,
	})
	return loop.Run(ctx, question)
}

// record persists the outcome when a sink is configured, returning the
// entry id for later feedback. Failures are logged, never surfaced.
func (a *app) record(ctx context.Context, outcome *pipeline.Outcome) string {
	if a.sink == nil {
		return ""
	}
	id, err := a.sink.Record(ctx, feedback.FromOutcome(outcome))
	if err != nil {
		logging.Warn("Failed to record interaction", "error", err)
		return ""
	}
	return id
}

func (a *app) close() {
	if a.watcher != nil {
		a.watcher.Stop()
	}
	if a.sink != nil {
		if err := a.sink.Close(); err != nil {
			logging.Warn("Failed to close feedback store", "error", err)
		}
	}
}
