/*-------------------------------------------------------------------------
 *
 * pgEdge Natural Language Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package connector

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"pgedge-nlq-agent/internal/dialect"
)

func TestEnsureLimit(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want string
	}{
		{
			name: "appends when absent",
			sql:  "SELECT * FROM orders",
			want: "SELECT * FROM orders LIMIT 1000",
		},
		{
			name: "drops trailing semicolon",
			sql:  "SELECT * FROM orders;",
			want: "SELECT * FROM orders LIMIT 1000",
		},
		{
			name: "keeps existing limit",
			sql:  "SELECT * FROM orders LIMIT 5",
			want: "SELECT * FROM orders LIMIT 5",
		},
		{
			name: "keeps lowercase limit",
			sql:  "select * from orders limit 10",
			want: "select * from orders limit 10",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ensureLimit(tt.sql, 1000); got != tt.want {
				t.Errorf("ensureLimit(%q) = %q, want %q", tt.sql, got, tt.want)
			}
		})
	}
}

func testDatabase(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	stmts := []string{
		"CREATE TABLE orders (order_id INTEGER PRIMARY KEY, status TEXT, shipping_cost REAL)",
		"INSERT INTO orders VALUES (1, 'Shipped', 5.99)",
		"INSERT INTO orders VALUES (2, 'Pending', 3.50)",
		"INSERT INTO orders VALUES (3, 'Delivered', 7.25)",
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
	return path
}

func TestSQLiteExecute(t *testing.T) {
	e := NewSQLiteExecutor(testDatabase(t), 0)
	rows, err := e.Execute(context.Background(), "SELECT order_id, status FROM orders ORDER BY order_id")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(rows.Columns) != 2 || rows.Columns[0] != "order_id" || rows.Columns[1] != "status" {
		t.Errorf("columns = %v", rows.Columns)
	}
	if len(rows.Records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(rows.Records))
	}
	if rows.Records[0]["status"] != "Shipped" {
		t.Errorf("first record = %v", rows.Records[0])
	}
}

func TestSQLiteExecuteInjectsLimit(t *testing.T) {
	e := NewSQLiteExecutor(testDatabase(t), 2)
	rows, err := e.Execute(context.Background(), "SELECT order_id FROM orders ORDER BY order_id")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(rows.Records) != 2 {
		t.Errorf("expected limit injection to cap at 2 records, got %d", len(rows.Records))
	}
}

func TestSQLiteExecuteQueryError(t *testing.T) {
	e := NewSQLiteExecutor(testDatabase(t), 0)
	if _, err := e.Execute(context.Background(), "SELECT nope FROM orders"); err == nil {
		t.Fatal("expected error for unknown column")
	}
}

type capturingRunner struct {
	lastQuery string
	rows      *Rows
	err       error
}

func (r *capturingRunner) RunQuery(_ context.Context, sqlQuery string) (*Rows, error) {
	r.lastQuery = sqlQuery
	return r.rows, r.err
}

func (r *capturingRunner) DryRun(_ context.Context, _ string) error { return r.err }

func TestWarehouseExecuteQualifiesAndLimits(t *testing.T) {
	runner := &capturingRunner{rows: &Rows{Columns: []string{"primary_title"}}}
	d := dialect.NewWarehouseDialect("", nil)
	e := NewWarehouseExecutor(runner, d, 0)

	_, err := e.Execute(context.Background(), "SELECT primary_title FROM title_basics;")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(runner.lastQuery, "`bigquery-public-data.imdb.title_basics`") {
		t.Errorf("table not qualified: %q", runner.lastQuery)
	}
	if !strings.HasSuffix(runner.lastQuery, "LIMIT 1000") {
		t.Errorf("limit not injected: %q", runner.lastQuery)
	}
	if strings.Contains(runner.lastQuery, ";") {
		t.Errorf("semicolon survived: %q", runner.lastQuery)
	}
}

func TestWarehouseExecutorWiresDryRunner(t *testing.T) {
	runner := &capturingRunner{rows: &Rows{}}
	d := dialect.NewWarehouseDialect("", nil)
	NewWarehouseExecutor(runner, d, 0)

	// The dialect's dry-run check should now reach the runner instead of
	// reporting no engine
	if err := d.DryRunCheck(context.Background(), "SELECT 1"); err != nil {
		t.Errorf("DryRunCheck: %v", err)
	}
}
