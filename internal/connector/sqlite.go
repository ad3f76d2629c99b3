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
	"fmt"

	_ "modernc.org/sqlite"

	"pgedge-nlq-agent/internal/logging"
)

// SQLiteExecutor runs queries against a local SQLite database. The
// database is opened per request so a long-lived agent never holds the
// file locked between questions.
type SQLiteExecutor struct {
	path  string
	limit int
}

// NewSQLiteExecutor creates an executor for the database file at path. A
// limit of 0 uses DefaultRowLimit.
func NewSQLiteExecutor(path string, limit int) *SQLiteExecutor {
	if limit <= 0 {
		limit = DefaultRowLimit
	}
	return &SQLiteExecutor{path: path, limit: limit}
}

// Execute runs the query and scans every row into a column-keyed map
func (e *SQLiteExecutor) Execute(ctx context.Context, sqlQuery string) (*Rows, error) {
	db, err := sql.Open("sqlite", e.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Warn("Failed to close database", "error", err)
		}
	}()

	limited := ensureLimit(sqlQuery, e.limit)
	rows, err := db.QueryContext(ctx, limited)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logging.Warn("Failed to close rows", "error", err)
		}
	}()

	return scanRows(rows)
}

// scanRows converts a sql.Rows cursor into the uniform result shape,
// decoding byte slices to strings so results serialize cleanly
func scanRows(rows *sql.Rows) (*Rows, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read column names: %w", err)
	}

	result := &Rows{Columns: columns, Records: []map[string]interface{}{}}
	values := make([]interface{}, len(columns))
	pointers := make([]interface{}, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		record := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				record[col] = string(b)
			} else {
				record[col] = values[i]
			}
		}
		result.Records = append(result.Records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return result, nil
}
