/*-------------------------------------------------------------------------
 *
 * pgEdge Natural Language Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package pipeline_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"pgedge-nlq-agent/internal/connector"
	"pgedge-nlq-agent/internal/dialect"
	"pgedge-nlq-agent/internal/feedback"
	"pgedge-nlq-agent/internal/generator"
	"pgedge-nlq-agent/internal/pipeline"
	"pgedge-nlq-agent/internal/retrieval"
	"pgedge-nlq-agent/internal/schema"
	"pgedge-nlq-agent/internal/validator"
)

// stubRetriever serves fixed chunks without any embedding calls
type stubRetriever struct {
	chunks []retrieval.Chunk
}

func (s *stubRetriever) Retrieve(ctx context.Context, question string, topK int) ([]retrieval.Chunk, error) {
	return s.chunks, nil
}

func (s *stubRetriever) BuildContext(chunks []retrieval.Chunk) string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return strings.Join(texts, "\n")
}

// scriptedLLM replays canned completions, clamping to the last one
type scriptedLLM struct {
	responses []string
	prompts   []string
}

func (s *scriptedLLM) Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float64, maxTokens int) (string, error) {
	s.prompts = append(s.prompts, userPrompt)
	i := len(s.prompts) - 1
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	return s.responses[i], nil
}

func (s *scriptedLLM) IsConfigured() bool   { return true }
func (s *scriptedLLM) ProviderName() string { return "scripted" }

func customersDatabase(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "retail.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE customers (
		customer_id INTEGER PRIMARY KEY,
		first_name TEXT,
		last_name TEXT,
		customer_segment TEXT
	)`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO customers (first_name, last_name, customer_segment) VALUES
		('Ada', 'Lovelace', 'VIP'),
		('Alan', 'Turing', 'Regular'),
		('Grace', 'Hopper', 'VIP')`)
	require.NoError(t, err)

	return path
}

func retailLoop(t *testing.T, client *scriptedLLM, executor connector.Executor) *pipeline.Loop {
	t.Helper()

	d := dialect.NewSQLiteDialect("retail", "")
	retr := &stubRetriever{chunks: []retrieval.Chunk{
		{Granularity: retrieval.GranularityTable, Table: "customers",
			Text: "Table customers: customer_id, first_name, last_name, customer_segment"},
	}}
	gen := generator.New(retr, client, d, generator.Options{})
	val := validator.New(schema.RetailCatalog(), d, d.Corrections())
	return pipeline.New(gen, val, executor, d.Corrections(), pipeline.Options{})
}

// Drives a question through generation, validation, refinement, and
// execution against a real SQLite database, with only the model scripted.
func TestEndToEndRefinementAndExecution(t *testing.T) {
	client := &scriptedLLM{responses: []string{
		"SELECT customer_name FROM customers",
		"SELECT first_name, last_name FROM customers",
	}}
	executor := connector.NewSQLiteExecutor(customersDatabase(t), 0)
	loop := retailLoop(t, client, executor)

	outcome := loop.Run(context.Background(), "Show the first and last names of all customers")

	require.Empty(t, outcome.Err)
	assert.Equal(t, "SELECT first_name, last_name FROM customers", outcome.SQLQuery)
	assert.True(t, outcome.Validated)
	assert.Equal(t, 100, outcome.Confidence)
	assert.Equal(t, 2, outcome.Iterations)

	// The second prompt must carry the first attempt's validation feedback
	require.Len(t, client.prompts, 2)
	assert.Contains(t, client.prompts[1], "Missing or incorrect columns")
	assert.Contains(t, client.prompts[1], "customer_name")

	require.Len(t, outcome.ValidationHistory, 2)
	assert.False(t, outcome.ValidationHistory[0].Valid)
	assert.True(t, outcome.ValidationHistory[1].Valid)

	assert.True(t, outcome.Executed)
	require.NotNil(t, outcome.Results)
	assert.Equal(t, []string{"first_name", "last_name"}, outcome.Results.Columns)
	assert.Len(t, outcome.Results.Records, 3)
	assert.Equal(t, "Ada", outcome.Results.Records[0]["first_name"])
}

// Correction rules fix the known segment/customer_segment confusion before
// validation ever sees it, so one iteration suffices.
func TestEndToEndCorrectionRulesApply(t *testing.T) {
	client := &scriptedLLM{responses: []string{
		"SELECT first_name, segment FROM customers",
	}}
	executor := connector.NewSQLiteExecutor(customersDatabase(t), 0)
	loop := retailLoop(t, client, executor)

	outcome := loop.Run(context.Background(), "Show each customer and their segment")

	require.Empty(t, outcome.Err)
	assert.Equal(t, 1, outcome.Iterations)
	assert.Contains(t, outcome.SQLQuery, "customer_segment")
	assert.True(t, outcome.Executed)
	require.NotNil(t, outcome.Results)
	assert.Len(t, outcome.Results.Records, 3)
}

// The customer_state mistake is corrected before validation, so the first
// attempt scores clean and the loop never refines
func TestEndToEndStateColumnCorrection(t *testing.T) {
	client := &scriptedLLM{responses: []string{
		"SELECT COUNT(*) AS cnt FROM customers WHERE customer_state = 'TX'",
	}}
	loop := retailLoop(t, client, nil)

	outcome := loop.Run(context.Background(), "How many customers are in Texas?")

	require.Empty(t, outcome.Err)
	assert.Equal(t, 1, outcome.Iterations)
	assert.True(t, outcome.Validated)
	assert.GreaterOrEqual(t, outcome.Confidence, 80)
	assert.Contains(t, outcome.SQLQuery, "state = 'TX'")
	assert.NotContains(t, outcome.SQLQuery, "customer_state")
}

// An outcome recorded to the feedback store can be rated exactly once
func TestEndToEndFeedbackRecording(t *testing.T) {
	client := &scriptedLLM{responses: []string{
		"SELECT first_name, last_name FROM customers",
	}}
	executor := connector.NewSQLiteExecutor(customersDatabase(t), 0)
	loop := retailLoop(t, client, executor)

	outcome := loop.Run(context.Background(), "Show the first and last names of all customers")
	require.Empty(t, outcome.Err)

	store, err := feedback.NewStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	id, err := store.Record(ctx, feedback.FromOutcome(outcome))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	updated, err := store.UpdateFeedback(ctx, id, "positive")
	require.NoError(t, err)
	assert.True(t, updated)

	updated, err = store.UpdateFeedback(ctx, id, "negative")
	require.NoError(t, err)
	assert.False(t, updated)
}
