/*-------------------------------------------------------------------------
 *
 * pgEdge Natural Language Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package connector executes validated SQL against a data source and
// returns results in a uniform shape. Every executor caps result size by
// injecting a LIMIT clause when the query has none.
package connector

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// DefaultRowLimit caps result sets when a query carries no LIMIT of its
// own
const DefaultRowLimit = 1000

// Rows is the uniform result shape returned by every executor
type Rows struct {
	Columns []string                 `json:"columns"`
	Records []map[string]interface{} `json:"records"`
}

// Executor runs one query against a data source
type Executor interface {
	Execute(ctx context.Context, sqlQuery string) (*Rows, error)
}

var limitRe = regexp.MustCompile(`(?i)\bLIMIT\s+\d+`)

// ensureLimit appends a LIMIT clause unless the query already has one.
// A trailing semicolon is dropped so the clause lands inside the
// statement.
func ensureLimit(sqlQuery string, limit int) string {
	trimmed := strings.TrimSpace(sqlQuery)
	trimmed = strings.TrimSuffix(trimmed, ";")
	if limitRe.MatchString(trimmed) {
		return trimmed
	}
	return fmt.Sprintf("%s LIMIT %d", trimmed, limit)
}
