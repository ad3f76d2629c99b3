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
	"strings"
	"testing"

	"pgedge-nlq-agent/internal/dialect"
	"pgedge-nlq-agent/internal/retrieval"
)

type mockRetriever struct {
	calls int
}

func (m *mockRetriever) Retrieve(_ context.Context, _ string, _ int) ([]retrieval.Chunk, error) {
	m.calls++
	return []retrieval.Chunk{{Granularity: retrieval.GranularityTable, Table: "orders"}}, nil
}

func (m *mockRetriever) BuildContext(_ []retrieval.Chunk) string {
	return "Table: orders\nColumns:\n  - order_id (INTEGER)\n  - status (TEXT)\n"
}

type mockLLM struct {
	calls    int
	response string
	lastUser string
}

func (m *mockLLM) Complete(_ context.Context, _, userPrompt string, _ float64, _ int) (string, error) {
	m.calls++
	m.lastUser = userPrompt
	return m.response, nil
}

func (m *mockLLM) IsConfigured() bool   { return true }
func (m *mockLLM) ProviderName() string { return "mock" }

func retailDialect() dialect.Dialect {
	return dialect.NewSQLiteDialect("retail", "")
}

func TestGenerateRejectsNonsenseWithoutModelCall(t *testing.T) {
	client := &mockLLM{response: "SELECT 1"}
	retriever := &mockRetriever{}
	g := New(retriever, client, retailDialect(), Options{})

	for _, question := range []string{"asdasdasd", "zzz", "x", "qwrtpsdfg"} {
		got, err := g.Generate(context.Background(), Context{Question: question})
		if err != nil {
			t.Fatalf("Generate(%q) failed: %v", question, err)
		}
		if !strings.HasPrefix(got, ErrorPrefix) {
			t.Errorf("Generate(%q) = %q, want %s rejection", question, got, ErrorPrefix)
		}
	}
	if client.calls != 0 {
		t.Errorf("model was called %d times for nonsense input", client.calls)
	}
	if retriever.calls != 0 {
		t.Errorf("retriever was called %d times for nonsense input", retriever.calls)
	}
}

func TestGenerateCleansModelOutput(t *testing.T) {
	client := &mockLLM{response: "```sql\nSELECT status FROM orders\n```"}
	g := New(&mockRetriever{}, client, retailDialect(), Options{})

	got, err := g.Generate(context.Background(), Context{Question: "show me all order statuses"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if got != "SELECT status FROM orders" {
		t.Errorf("Generate() = %q", got)
	}
	if client.calls != 1 {
		t.Errorf("expected exactly one model call, got %d", client.calls)
	}
}

func TestGenerateFoldsFeedbackIntoPrompt(t *testing.T) {
	client := &mockLLM{response: "SELECT status FROM orders"}
	g := New(&mockRetriever{}, client, retailDialect(), Options{})

	feedback := "Column order_status not found; use status instead"
	_, err := g.Generate(context.Background(), Context{
		Question:  "show me all order statuses",
		Feedback:  feedback,
		Iteration: 1,
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !strings.Contains(client.lastUser, feedback) {
		t.Error("prompt should contain prior feedback verbatim")
	}
	if !strings.Contains(client.lastUser, "Previous Attempt Issues (Iteration 1)") {
		t.Error("prompt should label the feedback block with the iteration")
	}
}

func TestGeneratePromptContainsDialectRules(t *testing.T) {
	client := &mockLLM{response: "SELECT 1"}
	g := New(&mockRetriever{}, client, retailDialect(), Options{})

	if _, err := g.Generate(context.Background(), Context{Question: "show me all order statuses"}); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !strings.Contains(client.lastUser, "'status' column (not order_status)") {
		t.Error("prompt should contain the dialect rules block")
	}
}

func TestIsNonsensical(t *testing.T) {
	c := NewClassifier(retailDialect().DomainTerms(), retailDialect().EntityKeywords())

	tests := []struct {
		question string
		want     bool
	}{
		{"asdasdasd", true},
		{"zzzzz", true},
		{"x", true},
		{"hj", true},
		{"qwrtpsdfgk", true},
		{"show me all orders", false},
		{"top 5 products by revenue", false},
		{"how many customers are in each state", false},
		{"list orders", false},
		{"what is the total sales for each category", false},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			if got := c.IsNonsensical(tt.question); got != tt.want {
				t.Errorf("IsNonsensical(%q) = %v, want %v (score %d)",
					tt.question, got, tt.want, c.NonsenseScore(tt.question))
			}
		})
	}
}

func TestIsVague(t *testing.T) {
	c := NewClassifier(retailDialect().DomainTerms(), retailDialect().EntityKeywords())

	tests := []struct {
		question string
		want     bool
	}{
		{"list orders", true},
		{"show me all the data", true},
		{"tell me everything about customers", true},
		{"show me the top 10 customers by total spending", false},
		{"how many orders were shipped to Boston", false},
		{"which products are out of stock", false},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			if got := c.IsVague(tt.question); got != tt.want {
				t.Errorf("IsVague(%q) = %v, want %v", tt.question, got, tt.want)
			}
		})
	}
}

func TestIsComplex(t *testing.T) {
	c := NewClassifier(retailDialect().DomainTerms(), retailDialect().EntityKeywords())

	tests := []struct {
		question string
		want     bool
	}{
		{"show me all orders", false},
		{"which products are out of stock", false},
		{
			"for customers in California, count the orders per product category and show the top 5 categories by total revenue",
			true,
		},
		{
			"which customers placed orders with more than 3 items and what products did they buy",
			true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			if got := c.IsComplex(tt.question); got != tt.want {
				t.Errorf("IsComplex(%q) = %v, want %v", tt.question, got, tt.want)
			}
		})
	}
}

func TestFixCommonColumnMistakes(t *testing.T) {
	rules := dialect.DefaultRetailRules()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "order_status corrected",
			input:    "SELECT order_status FROM orders",
			expected: "SELECT status FROM orders",
		},
		{
			name:     "aliased order_status corrected",
			input:    "SELECT o.order_status FROM orders o",
			expected: "SELECT o.status FROM orders o",
		},
		{
			name:     "segment corrected",
			input:    "SELECT segment FROM customers",
			expected: "SELECT customer_segment FROM customers",
		},
		{
			name:     "customer_state corrected",
			input:    "SELECT customer_state FROM customers",
			expected: "SELECT state FROM customers",
		},
		{
			name:     "correct customer_segment untouched",
			input:    "SELECT customer_segment FROM customers",
			expected: "SELECT customer_segment FROM customers",
		},
		{
			name:     "correct status untouched alongside wrong column",
			input:    "SELECT status, order_status FROM orders",
			expected: "SELECT status, status FROM orders",
		},
		{
			name:     "clean query untouched",
			input:    "SELECT state, customer_segment FROM customers WHERE state = 'NY'",
			expected: "SELECT state, customer_segment FROM customers WHERE state = 'NY'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FixCommonColumnMistakes(tt.input, rules); got != tt.expected {
				t.Errorf("FixCommonColumnMistakes(%q)\n got:  %q\n want: %q", tt.input, got, tt.expected)
			}
		})
	}
}
