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
	"fmt"
	"strings"
	"testing"

	"pgedge-nlq-agent/internal/schema"
)

// stubProvider embeds texts deterministically: axis 0 for order-related
// text, axis 1 for customer-related text, axis 2 otherwise.
type stubProvider struct {
	calls int
	fail  bool
}

func (p *stubProvider) EmbedBatch(_ context.Context, texts []string) ([][]float64, error) {
	p.calls++
	if p.fail {
		return nil, fmt.Errorf("provider unavailable")
	}
	out := make([][]float64, len(texts))
	for i, text := range texts {
		lower := strings.ToLower(text)
		switch {
		case strings.Contains(lower, "order"):
			out[i] = []float64{1, 0, 0}
		case strings.Contains(lower, "customer"):
			out[i] = []float64{0, 1, 0}
		default:
			out[i] = []float64{0, 0, 1}
		}
	}
	return out, nil
}

func (p *stubProvider) Dimensions() int      { return 3 }
func (p *stubProvider) ModelName() string    { return "stub" }
func (p *stubProvider) ProviderName() string { return "stub" }

func testCatalog() *schema.Catalog {
	tables := []schema.TableSchema{
		{
			Name: "customers",
			Columns: []schema.ColumnSchema{
				{Name: "customer_id", Type: "INTEGER", Description: "Unique customer identifier."},
				{Name: "state", Type: "TEXT", Description: "State of residence."},
			},
		},
		{
			Name: "orders",
			Columns: []schema.ColumnSchema{
				{Name: "order_id", Type: "INTEGER", Description: "Unique order identifier."},
				{Name: "customer_id", Type: "INTEGER", Description: "Customer who placed the order."},
				{Name: "status", Type: "TEXT", Description: "Current order status."},
			},
		},
	}
	edges := []schema.RelationshipEdge{
		{SourceTable: "orders", SourceColumn: "customer_id", TargetTable: "customers", TargetColumn: "customer_id"},
	}
	return schema.NewCatalog(tables, edges, "test")
}

func TestInitializeIdempotent(t *testing.T) {
	provider := &stubProvider{}
	r := NewRetriever(testCatalog(), provider, 2, nil)

	if err := r.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	count := r.ChunkCount()
	callsAfterFirst := provider.calls

	if err := r.Initialize(context.Background()); err != nil {
		t.Fatalf("second Initialize failed: %v", err)
	}
	if r.ChunkCount() != count {
		t.Errorf("expected chunk count %d after re-init, got %d", count, r.ChunkCount())
	}
	if provider.calls != callsAfterFirst {
		t.Errorf("expected no further provider calls, got %d extra", provider.calls-callsAfterFirst)
	}
}

func TestCorpusShape(t *testing.T) {
	r := NewRetriever(testCatalog(), &stubProvider{}, 0, nil)
	if err := r.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	// 2 table chunks + 5 column chunks + 1 relationship chunk + 1 database chunk
	want := 9
	if r.ChunkCount() != want {
		t.Errorf("expected %d chunks, got %d", want, r.ChunkCount())
	}

	counts := map[Granularity]int{}
	for _, c := range r.chunks {
		counts[c.Granularity]++
		if len(c.Embedding) == 0 {
			t.Errorf("chunk %d has no embedding", c.ID)
		}
	}
	if counts[GranularityTable] != 2 {
		t.Errorf("expected 2 table chunks, got %d", counts[GranularityTable])
	}
	if counts[GranularityColumn] != 5 {
		t.Errorf("expected 5 column chunks, got %d", counts[GranularityColumn])
	}
	if counts[GranularityRelationship] != 1 {
		t.Errorf("expected 1 relationship chunk, got %d", counts[GranularityRelationship])
	}
	if counts[GranularityDatabase] != 1 {
		t.Errorf("expected 1 database chunk, got %d", counts[GranularityDatabase])
	}
}

func TestRetrieveRanksBySimilarity(t *testing.T) {
	r := NewRetriever(testCatalog(), &stubProvider{}, 0, nil)

	chunks, err := r.Retrieve(context.Background(), "show me recent orders", 3)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if !strings.Contains(strings.ToLower(c.Text), "order") {
			t.Errorf("chunk %d should be order-related, got: %.60s", i, c.Text)
		}
	}
}

func TestRetrieveTopKBounds(t *testing.T) {
	r := NewRetriever(testCatalog(), &stubProvider{}, 0, nil)

	chunks, err := r.Retrieve(context.Background(), "orders", 100)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(chunks) != r.ChunkCount() {
		t.Errorf("expected all %d chunks for oversized topK, got %d", r.ChunkCount(), len(chunks))
	}
}

func TestEmbedFailureDegradesToZeroVectors(t *testing.T) {
	provider := &stubProvider{fail: true}
	r := NewRetriever(testCatalog(), provider, 2, nil)

	if err := r.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize should tolerate embedding failures, got: %v", err)
	}
	for _, c := range r.chunks {
		if len(c.Embedding) != provider.Dimensions() {
			t.Fatalf("expected zero vector of %d dims, got %d", provider.Dimensions(), len(c.Embedding))
		}
		for _, v := range c.Embedding {
			if v != 0 {
				t.Fatalf("expected zero vector, got %v", c.Embedding)
			}
		}
	}

	// Retrieval still works: zero similarity everywhere, stable corpus order
	chunks, err := r.Retrieve(context.Background(), "anything", 2)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].ID != 0 || chunks[1].ID != 1 {
		t.Errorf("expected corpus order on uniform scores, got IDs %d, %d", chunks[0].ID, chunks[1].ID)
	}
}

func TestBuildContext(t *testing.T) {
	notes := []string{"The orders table has a 'status' column (NOT 'order_status') for order status values."}
	r := NewRetriever(testCatalog(), &stubProvider{}, 0, notes)
	if err := r.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	// Only an orders chunk retrieved; customers must be pulled in via the edge
	ctx := r.BuildContext([]Chunk{{Granularity: GranularityTable, Table: "orders"}})

	for _, want := range []string{
		"Table: orders",
		"Table: customers",
		"status (TEXT): Current order status.",
		"orders.customer_id references customers.customer_id",
		"Special Notes:",
		"NOT 'order_status'",
	} {
		if !strings.Contains(ctx, want) {
			t.Errorf("context missing %q\ncontext:\n%s", want, ctx)
		}
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 1},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0},
		{"opposite", []float64{1, 0}, []float64{-1, 0}, -1},
		{"zero vector", []float64{0, 0}, []float64{1, 1}, 0},
		{"length mismatch", []float64{1}, []float64{1, 0}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cosineSimilarity(tt.a, tt.b)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("cosineSimilarity(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
