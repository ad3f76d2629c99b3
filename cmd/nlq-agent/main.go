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
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"pgedge-nlq-agent/internal/config"
)

var (
	configFile        string
	dialectFlag       string
	schemaFlag        string
	sqlitePathFlag    string
	llmProviderFlag   string
	llmModelFlag      string
	embedProviderFlag string
	embedModelFlag    string
	noFeedbackFlag    bool
)

var rootCmd = &cobra.Command{
	Use:   "nlq-agent",
	Short: "pgEdge Natural Language Agent - Ask questions, get SQL and answers",
	Long: `nlq-agent turns natural language questions into validated SQL queries.

It retrieves the relevant parts of the database schema with vector
embeddings, asks an LLM to generate a query, validates the query against
the schema with a confidence score, refines low-confidence queries with
targeted feedback, and (when a database is configured) executes the
final query and shows the results.`,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configFile, "config", "c", "nlq-agent.yaml", "Path to configuration file")
	pf.StringVar(&dialectFlag, "dialect", "", "Data source dialect (sqlite or warehouse)")
	pf.StringVar(&schemaFlag, "schema", "", "Built-in schema for sqlite (retail or movie)")
	pf.StringVar(&sqlitePathFlag, "db", "", "Path to SQLite database file")
	pf.StringVar(&llmProviderFlag, "llm-provider", "", "Completion provider (anthropic or ollama)")
	pf.StringVar(&llmModelFlag, "llm-model", "", "Completion model name")
	pf.StringVar(&embedProviderFlag, "embedding-provider", "", "Embedding provider (openai or ollama)")
	pf.StringVar(&embedModelFlag, "embedding-model", "", "Embedding model name")
	pf.BoolVar(&noFeedbackFlag, "no-feedback", false, "Disable the feedback store for this run")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(chatCmd)
}

// cliFlags converts cobra flag state into the config overlay
func cliFlags(cmd *cobra.Command) config.CLIFlags {
	changed := func(name string) bool { return cmd.Flags().Changed(name) }
	return config.CLIFlags{
		ConfigFile:    configFile,
		ConfigFileSet: changed("config"),

		Dialect:    dialectFlag,
		DialectSet: changed("dialect"),

		Schema:    schemaFlag,
		SchemaSet: changed("schema"),

		SQLitePath:    sqlitePathFlag,
		SQLitePathSet: changed("db"),

		LLMProvider:    llmProviderFlag,
		LLMProviderSet: changed("llm-provider"),

		LLMModel:    llmModelFlag,
		LLMModelSet: changed("llm-model"),

		EmbeddingProvider:    embedProviderFlag,
		EmbeddingProviderSet: changed("embedding-provider"),

		EmbeddingModel:    embedModelFlag,
		EmbeddingModelSet: changed("embedding-model"),
	}
}

func main() {
	// A .env file is optional; ignore the error when none exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
