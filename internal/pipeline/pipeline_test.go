/*-------------------------------------------------------------------------
 *
 * pgEdge Natural Language Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"pgedge-nlq-agent/internal/connector"
	"pgedge-nlq-agent/internal/generator"
	"pgedge-nlq-agent/internal/validator"
)

// scriptedGenerator returns one canned response per iteration
type scriptedGenerator struct {
	responses []string
	err       error
	contexts  []generator.Context
}

func (g *scriptedGenerator) Generate(_ context.Context, gc generator.Context) (string, error) {
	g.contexts = append(g.contexts, gc)
	if g.err != nil {
		return "", g.err
	}
	idx := len(g.contexts) - 1
	if idx >= len(g.responses) {
		idx = len(g.responses) - 1
	}
	return g.responses[idx], nil
}

// scriptedValidator returns one canned result per call
type scriptedValidator struct {
	results []validator.Result
	calls   int
}

func (v *scriptedValidator) Validate(_ context.Context, _, _ string) validator.Result {
	idx := v.calls
	if idx >= len(v.results) {
		idx = len(v.results) - 1
	}
	v.calls++
	return v.results[idx]
}

func (v *scriptedValidator) SuggestFixes(result validator.Result, _ string) string {
	return "fix hint: " + result.Feedback
}

type stubExecutor struct {
	lastSQL string
	rows    *connector.Rows
	err     error
}

func (e *stubExecutor) Execute(_ context.Context, sqlQuery string) (*connector.Rows, error) {
	e.lastSQL = sqlQuery
	return e.rows, e.err
}

func validResult(confidence int) validator.Result {
	return validator.Result{
		Valid:      true,
		Confidence: confidence,
		Feedback:   "Query looks good",
		Details:    validator.ErrorDetails{ErrorMessages: []string{}},
	}
}

func invalidResult(confidence int, feedback string) validator.Result {
	return validator.Result{
		Valid:      false,
		Confidence: confidence,
		Feedback:   feedback,
		Details:    validator.ErrorDetails{ErrorMessages: []string{feedback}},
	}
}

func TestRunAcceptsFirstValidAttempt(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{"SELECT status FROM orders"}}
	val := &scriptedValidator{results: []validator.Result{validResult(100)}}
	exec := &stubExecutor{rows: &connector.Rows{
		Columns: []string{"status"},
		Records: []map[string]interface{}{{"status": "Shipped"}},
	}}

	outcome := New(gen, val, exec, nil, Options{}).Run(context.Background(), "show order statuses")
	if outcome.Iterations != 1 {
		t.Errorf("iterations = %d, want 1", outcome.Iterations)
	}
	if !outcome.Validated || outcome.Confidence != 100 {
		t.Errorf("validated=%v confidence=%d", outcome.Validated, outcome.Confidence)
	}
	if !outcome.Executed || outcome.ResultCount() != 1 {
		t.Errorf("executed=%v rows=%d", outcome.Executed, outcome.ResultCount())
	}
	if exec.lastSQL != "SELECT status FROM orders" {
		t.Errorf("executed SQL = %q", exec.lastSQL)
	}
}

func TestRunRefinesWithFeedback(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		"SELECT order_status FROM orders",
		"SELECT status FROM orders",
	}}
	val := &scriptedValidator{results: []validator.Result{
		invalidResult(60, "Missing or incorrect columns: order_status"),
		validResult(100),
	}}

	outcome := New(gen, val, nil, nil, Options{}).Run(context.Background(), "show order statuses")
	if outcome.Iterations != 2 {
		t.Fatalf("iterations = %d, want 2", outcome.Iterations)
	}
	if len(gen.contexts) != 2 {
		t.Fatalf("generator called %d times", len(gen.contexts))
	}
	if gen.contexts[0].Feedback != "" {
		t.Errorf("first iteration should carry no feedback, got %q", gen.contexts[0].Feedback)
	}
	if !strings.Contains(gen.contexts[1].Feedback, "fix hint") {
		t.Errorf("second iteration feedback = %q", gen.contexts[1].Feedback)
	}
	if outcome.SQLQuery != "SELECT status FROM orders" || outcome.Confidence != 100 {
		t.Errorf("outcome = %q confidence %d", outcome.SQLQuery, outcome.Confidence)
	}
	if len(outcome.ValidationHistory) != 2 {
		t.Errorf("history length = %d", len(outcome.ValidationHistory))
	}
}

func TestRunKeepsBestAttempt(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		"SELECT status FROM orders",
		"SELECT wrong FROM orders",
	}}
	val := &scriptedValidator{results: []validator.Result{
		validResult(75),
		invalidResult(60, "Missing or incorrect columns: wrong"),
	}}

	outcome := New(gen, val, nil, nil, Options{}).Run(context.Background(), "show order statuses")
	if outcome.SQLQuery != "SELECT status FROM orders" {
		t.Errorf("best attempt not kept: %q", outcome.SQLQuery)
	}
	if outcome.Confidence != 75 || !outcome.Validated {
		t.Errorf("confidence=%d validated=%v", outcome.Confidence, outcome.Validated)
	}
}

func TestRunStopsOnRejection(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{generator.ErrorPrefix + "Your question appears to be nonsensical"}}
	val := &scriptedValidator{results: []validator.Result{validResult(100)}}

	outcome := New(gen, val, nil, nil, Options{}).Run(context.Background(), "asdasdasd")
	if outcome.Err == "" || !strings.Contains(outcome.Err, "nonsensical") {
		t.Errorf("err = %q", outcome.Err)
	}
	if val.calls != 0 {
		t.Errorf("validator called %d times for rejected input", val.calls)
	}
	if outcome.SQLQuery != "" {
		t.Errorf("sql = %q", outcome.SQLQuery)
	}
}

func TestRunStopsOnNonSQLResponse(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{"I cannot answer that question."}}
	val := &scriptedValidator{results: []validator.Result{validResult(100)}}

	outcome := New(gen, val, nil, nil, Options{}).Run(context.Background(), "show order statuses")
	if len(gen.contexts) != 1 {
		t.Errorf("generator called %d times after a non-SQL reply", len(gen.contexts))
	}
	if val.calls != 0 {
		t.Errorf("validator called for non-SQL response")
	}
	if !strings.Contains(outcome.Err, "I cannot answer that question.") {
		t.Errorf("raw response not surfaced, err = %q", outcome.Err)
	}
	if outcome.SQLQuery != "" {
		t.Errorf("sql = %q", outcome.SQLQuery)
	}
}

func TestRunGenerationError(t *testing.T) {
	gen := &scriptedGenerator{err: errors.New("model unavailable")}
	val := &scriptedValidator{results: []validator.Result{validResult(100)}}

	outcome := New(gen, val, nil, nil, Options{}).Run(context.Background(), "show order statuses")
	if outcome.Err != "model unavailable" {
		t.Errorf("err = %q", outcome.Err)
	}
	if len(gen.contexts) != 1 {
		t.Errorf("generation retried after hard error: %d calls", len(gen.contexts))
	}
}

func TestRunRecordsExecutionError(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{"SELECT status FROM orders"}}
	val := &scriptedValidator{results: []validator.Result{validResult(100)}}
	exec := &stubExecutor{err: errors.New("disk I/O error")}

	outcome := New(gen, val, exec, nil, Options{}).Run(context.Background(), "show order statuses")
	if outcome.Executed {
		t.Error("marked executed despite error")
	}
	if !strings.Contains(outcome.ExecutionError, "disk I/O error") {
		t.Errorf("execution error = %q", outcome.ExecutionError)
	}
	if !outcome.Validated {
		t.Error("validation outcome should survive execution failure")
	}
}

func TestRunExecutesBestAttemptAfterGiveUp(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{"SELECT wrong FROM orders"}}
	val := &scriptedValidator{results: []validator.Result{
		invalidResult(60, "Missing or incorrect columns: wrong"),
	}}
	exec := &stubExecutor{rows: &connector.Rows{
		Columns: []string{"wrong"},
		Records: []map[string]interface{}{{"wrong": "x"}},
	}}

	outcome := New(gen, val, exec, nil, Options{MaxIterations: 1}).Run(context.Background(), "q")
	if exec.lastSQL != "SELECT wrong FROM orders" {
		t.Errorf("best attempt not executed, got %q", exec.lastSQL)
	}
	if !outcome.Executed || outcome.ResultCount() != 1 {
		t.Errorf("executed=%v rows=%d", outcome.Executed, outcome.ResultCount())
	}
	if outcome.Validated || outcome.Confidence != 60 {
		t.Errorf("validated=%v confidence=%d", outcome.Validated, outcome.Confidence)
	}
}

func TestRunSurfacesEngineErrorAfterGiveUp(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{"SELECT wrong FROM orders"}}
	val := &scriptedValidator{results: []validator.Result{
		invalidResult(60, "Missing or incorrect columns: wrong"),
	}}
	exec := &stubExecutor{err: errors.New("no such column: wrong")}

	outcome := New(gen, val, exec, nil, Options{MaxIterations: 1}).Run(context.Background(), "q")
	if outcome.Executed {
		t.Error("marked executed despite engine error")
	}
	if !strings.Contains(outcome.ExecutionError, "no such column") {
		t.Errorf("execution error = %q", outcome.ExecutionError)
	}
	if outcome.SQLQuery != "SELECT wrong FROM orders" || outcome.Confidence != 60 {
		t.Errorf("sql=%q confidence=%d", outcome.SQLQuery, outcome.Confidence)
	}
}
