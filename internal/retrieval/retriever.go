/*-------------------------------------------------------------------------
 *
 * pgEdge Natural Language Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"pgedge-nlq-agent/internal/embedding"
	"pgedge-nlq-agent/internal/logging"
	"pgedge-nlq-agent/internal/schema"
)

const (
	// DefaultBatchSize is how many chunk texts are embedded per provider call
	DefaultBatchSize = 10

	// DefaultTopK is the number of chunks retrieved when the caller passes 0
	DefaultTopK = 5

	// fallbackDimensions is used for placeholder vectors when the provider
	// has not reported its dimensionality yet
	fallbackDimensions = 768
)

// Retriever ranks schema chunks against a natural-language question using
// embedding similarity. The chunk corpus is built at most once; after that
// the retriever is safe for concurrent reads.
type Retriever struct {
	catalog   *schema.Catalog
	provider  embedding.Provider
	batchSize int
	notes     []string

	initOnce sync.Once
	initErr  error
	chunks   []Chunk
}

// NewRetriever creates a retriever over a catalog. notes are static
// guidance lines appended to every schema context (commonly confused
// column names for the active schema).
func NewRetriever(catalog *schema.Catalog, provider embedding.Provider, batchSize int, notes []string) *Retriever {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Retriever{
		catalog:   catalog,
		provider:  provider,
		batchSize: batchSize,
		notes:     notes,
	}
}

// Initialize builds the chunk corpus and embeds it. Safe to call more than
// once; only the first call does any work.
func (r *Retriever) Initialize(ctx context.Context) error {
	r.initOnce.Do(func() {
		r.initErr = r.initialize(ctx)
	})
	return r.initErr
}

func (r *Retriever) initialize(ctx context.Context) error {
	if r.catalog == nil {
		return fmt.Errorf("failed to initialize retriever: no schema catalog")
	}

	logging.Info("Initializing schema retriever", "source", r.catalog.SourceTag())

	r.chunks = r.buildChunks()
	if err := r.embedChunks(ctx); err != nil {
		return err
	}

	logging.Info("Schema retriever initialized", "chunks", len(r.chunks))
	return nil
}

// ChunkCount returns the size of the built corpus, 0 before initialization
func (r *Retriever) ChunkCount() int {
	return len(r.chunks)
}

// buildChunks creates the corpus at three granularities plus one
// whole-database summary chunk.
func (r *Retriever) buildChunks() []Chunk {
	var chunks []Chunk
	add := func(c Chunk) {
		c.ID = len(chunks)
		chunks = append(chunks, c)
	}

	tables := r.catalog.Tables()

	// Table-level chunks: name plus every column with its description. The
	// exact-name phrasing steers the model away from inventing columns.
	for _, tableName := range tables {
		table, _ := r.catalog.Table(tableName)

		var b strings.Builder
		fmt.Fprintf(&b, "Table: %s\n", table.Name)
		if table.Description != "" {
			fmt.Fprintf(&b, "Description: %s\n", table.Description)
		}
		b.WriteString("Columns:")
		for _, col := range table.Columns {
			fmt.Fprintf(&b, "\n- %s (%s) - %s The exact column name is '%s'",
				col.Name, col.Type, col.Description, col.Name)
		}
		if samples := r.catalog.Samples(table.Name); len(samples) > 0 {
			if data, err := json.Marshal(samples); err == nil {
				fmt.Fprintf(&b, "\nSample data: %s", string(data))
			}
		}

		add(Chunk{Granularity: GranularityTable, Table: table.Name, Text: b.String()})
	}

	// Column-level chunks for more precise retrieval
	for _, tableName := range tables {
		table, _ := r.catalog.Table(tableName)
		for _, col := range table.Columns {
			var b strings.Builder
			fmt.Fprintf(&b, "Column: %s in table %s\nType: %s\n", col.Name, table.Name, col.Type)
			fmt.Fprintf(&b, "Description: %s\n", col.Description)
			fmt.Fprintf(&b, "IMPORTANT: The exact column name is '%s'. When referencing this column in SQL, use %s.%s or alias.%s.\n",
				col.Name, table.Name, col.Name, col.Name)
			if values := sampleValues(r.catalog.Samples(table.Name), col.Name); len(values) > 0 {
				fmt.Fprintf(&b, "Sample values: %s\n", strings.Join(values, ", "))
			}
			fmt.Fprintf(&b, "Example SQL usage:\n- SELECT %s FROM %s\n- SELECT t.%s FROM %s t\n",
				col.Name, table.Name, col.Name, table.Name)

			add(Chunk{Granularity: GranularityColumn, Table: table.Name, Column: col.Name, Text: b.String()})
		}
	}

	// Relationship chunk, only when the catalog declares or inferred edges
	if edges := r.catalog.AllRelationships(); len(edges) > 0 {
		lines := make([]string, 0, len(edges))
		for _, e := range edges {
			lines = append(lines, fmt.Sprintf("%s.%s references %s.%s",
				e.SourceTable, e.SourceColumn, e.TargetTable, e.TargetColumn))
		}
		add(Chunk{
			Granularity: GranularityRelationship,
			Text:        "Table Relationships:\n" + strings.Join(lines, "\n"),
		})
	}

	// Whole-database summary chunk
	add(Chunk{
		Granularity: GranularityDatabase,
		Text:        fmt.Sprintf("Database contains tables: %s", strings.Join(tables, ", ")),
	})

	return chunks
}

// sampleValues extracts up to two non-empty values of a column from sample rows
func sampleValues(rows []schema.SampleRow, column string) []string {
	var values []string
	for _, row := range rows {
		if len(values) >= 2 {
			break
		}
		if v, ok := row[column]; ok && v != nil {
			values = append(values, fmt.Sprintf("%v", v))
		}
	}
	return values
}

// embedChunks generates embeddings for the corpus in batches. A failed
// batch degrades to zero vectors so one provider hiccup cannot take the
// whole corpus down.
func (r *Retriever) embedChunks(ctx context.Context) error {
	for start := 0; start < len(r.chunks); start += r.batchSize {
		end := start + r.batchSize
		if end > len(r.chunks) {
			end = len(r.chunks)
		}

		texts := make([]string, 0, end-start)
		for _, c := range r.chunks[start:end] {
			texts = append(texts, c.Text)
		}

		vectors, err := r.provider.EmbedBatch(ctx, texts)
		if err != nil {
			logging.Warn("Embedding batch failed, using zero vectors",
				"start", start, "count", len(texts), "error", err.Error())
			for i := start; i < end; i++ {
				r.chunks[i].Embedding = r.zeroVector()
			}
			continue
		}
		for i, vec := range vectors {
			r.chunks[start+i].Embedding = vec
		}
	}
	return nil
}

func (r *Retriever) zeroVector() []float64 {
	dims := r.provider.Dimensions()
	if dims <= 0 {
		dims = fallbackDimensions
	}
	return make([]float64, dims)
}

// Retrieve returns the topK chunks most similar to the question. Ties keep
// corpus insertion order, so results are deterministic for a given corpus.
func (r *Retriever) Retrieve(ctx context.Context, question string, topK int) ([]Chunk, error) {
	if err := r.Initialize(ctx); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	queryVec := r.embedQuery(ctx, question)

	type scored struct {
		chunk Chunk
		score float64
	}
	ranked := make([]scored, len(r.chunks))
	for i, c := range r.chunks {
		ranked[i] = scored{chunk: c, score: cosineSimilarity(queryVec, c.Embedding)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	if topK > len(ranked) {
		topK = len(ranked)
	}
	out := make([]Chunk, topK)
	for i := 0; i < topK; i++ {
		out[i] = ranked[i].chunk
	}

	logging.Debug("Retrieved schema chunks", "question", question, "count", len(out))
	return out, nil
}

// embedQuery embeds the question, falling back to a zero vector on provider
// failure. Retrieval quality degrades but the pipeline keeps moving.
func (r *Retriever) embedQuery(ctx context.Context, question string) []float64 {
	vectors, err := r.provider.EmbedBatch(ctx, []string{question})
	if err != nil || len(vectors) == 0 {
		if err != nil {
			logging.Warn("Failed to embed question, using zero vector", "error", err.Error())
		}
		return r.zeroVector()
	}
	return vectors[0]
}

// cosineSimilarity returns the cosine of the angle between two vectors,
// 0 when either has zero magnitude or the lengths differ.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
