/*-------------------------------------------------------------------------
 *
 * pgEdge Natural Language Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package generator

import (
	"context"
	"fmt"
	"strings"

	"pgedge-nlq-agent/internal/dialect"
	"pgedge-nlq-agent/internal/llm"
	"pgedge-nlq-agent/internal/logging"
	"pgedge-nlq-agent/internal/retrieval"
)

// ErrorPrefix tags generator output that is a rejection, not SQL
const ErrorPrefix = "ERROR: "

// nonsenseRejection is returned verbatim for inputs that fail the
// nonsense check, before any model call
const nonsenseRejection = ErrorPrefix + "Your question appears to be nonsensical or too short. Please ask a clear, specific question about the database."

const systemPrompt = "You are an expert SQL query generator with deep knowledge of database schema design. Always use the exact column names as provided in the schema. Pay special attention to table relationships and join conditions."

// SchemaContextProvider supplies ranked schema chunks and renders them
// into prompt context
type SchemaContextProvider interface {
	Retrieve(ctx context.Context, question string, topK int) ([]retrieval.Chunk, error)
	BuildContext(chunks []retrieval.Chunk) string
}

// Context carries one generation request through the refinement loop
type Context struct {
	Question  string
	Feedback  string
	Iteration int
}

// Options tune the generator. Zero values select the defaults.
type Options struct {
	Temperature float64 // default 0.2
	MaxTokens   int     // default 500
	TopK        int     // default 5
}

// Generator turns a natural-language question into a SQL query via one
// model call per invocation
type Generator struct {
	retriever  SchemaContextProvider
	client     llm.Client
	dialect    dialect.Dialect
	classifier *Classifier
	opts       Options
}

// New creates a generator wired to a retriever, a completion client, and
// the active dialect
func New(retriever SchemaContextProvider, client llm.Client, d dialect.Dialect, opts Options) *Generator {
	if opts.Temperature == 0 {
		opts.Temperature = 0.2
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = 500
	}
	if opts.TopK == 0 {
		opts.TopK = 5
	}
	return &Generator{
		retriever:  retriever,
		client:     client,
		dialect:    d,
		classifier: NewClassifier(d.DomainTerms(), d.EntityKeywords()),
		opts:       opts,
	}
}

// Classifier exposes the question classifier for callers that need to
// inspect question shape directly
func (g *Generator) Classifier() *Classifier {
	return g.classifier
}

// Generate produces a SQL query for the question, or an ErrorPrefix-tagged
// rejection string for input not worth sending to the model. Feedback from
// a prior validation round is folded into the prompt verbatim.
func (g *Generator) Generate(ctx context.Context, gc Context) (string, error) {
	if g.classifier.IsNonsensical(gc.Question) {
		return nonsenseRejection, nil
	}

	isVague := g.classifier.IsVague(gc.Question)
	isComplex := g.classifier.IsComplex(gc.Question)

	chunks, err := g.retriever.Retrieve(ctx, gc.Question, g.opts.TopK)
	if err != nil {
		return "", fmt.Errorf("failed to retrieve schema context: %w", err)
	}
	schemaContext := g.retriever.BuildContext(chunks)

	prompt := g.buildPrompt(gc, schemaContext, isVague, isComplex)
	logging.Debug("Built generation prompt",
		"iteration", gc.Iteration, "vague", isVague, "complex", isComplex,
		"prompt_chars", len(prompt))

	raw, err := g.client.Complete(ctx, systemPrompt, prompt, g.opts.Temperature, g.opts.MaxTokens)
	if err != nil {
		return "", fmt.Errorf("failed to generate SQL: %w", err)
	}

	sqlQuery := llm.CleanSQL(raw)
	logging.Debug("Generated SQL", "iteration", gc.Iteration, "sql", sqlQuery)

	return sqlQuery, nil
}

// buildPrompt assembles the user prompt: schema context, dialect rules,
// shape-driven instruction blocks, prior feedback, then the question
func (g *Generator) buildPrompt(gc Context, schemaContext string, isVague, isComplex bool) string {
	var b strings.Builder

	fmt.Fprintf(&b, `Given the following database schema and a natural language query, generate a valid SQL query.

**Schema**:
%s

**Instructions**:
- Use only the tables and columns from the schema above.
- Handle joins, aggregations, and conditions as needed.
- Return ONLY the SQL query, no explanations.
- Always use the exact column names as provided in the schema.
- Pay special attention to table relationships and join conditions.
- Avoid common column reference errors by double-checking column names.
- Ensure all columns referenced in SELECT, WHERE, GROUP BY, and JOIN clauses exist in the schema.
`, schemaContext)

	b.WriteString("\n")
	b.WriteString(g.dialect.PromptRules())
	b.WriteString("\n")

	if isComplex {
		b.WriteString(`
**Handling Complex Questions**:
- This question touches several tables and conditions.
- Decompose the query into named CTEs (WITH clauses), one per logical step.
- Give each CTE a descriptive name and join them in the final SELECT.
- Remember to separate CTE definitions with commas.
`)
	}

	if isVague {
		b.WriteString(`
**Handling Vague Questions**:
- This appears to be a vague or exploratory question.
- For vague questions, it's acceptable to generate a simple exploratory query.
- If the question is very general, you can return 'SELECT * FROM [most_relevant_table] LIMIT 10'.
- Do not apologize for the query being general if the question itself is general.
`)
	}

	if gc.Feedback != "" && gc.Iteration > 0 {
		fmt.Fprintf(&b, `
**Previous Attempt Issues (Iteration %d)**:
%s

**How to Fix Common Column Reference Errors**:
- If you see "Missing or incorrect columns", double-check the column names in the schema.
- If you see "Column 'X' not found", make sure you're using the correct table prefix.

Please fix these issues in your SQL query.
`, gc.Iteration, gc.Feedback)
	}

	fmt.Fprintf(&b, `
**Query**: %s

Generate only the SQL query without any explanation.
SQL Query:`, gc.Question)

	return b.String()
}
