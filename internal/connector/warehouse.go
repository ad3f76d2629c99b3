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
	"fmt"

	"pgedge-nlq-agent/internal/dialect"
	"pgedge-nlq-agent/internal/logging"
)

// JobRunner is the warehouse client seam. Implementations submit a query
// job and return its rows, or run a dry-run job that parses and plans
// without reading data.
type JobRunner interface {
	RunQuery(ctx context.Context, sqlQuery string) (*Rows, error)
	DryRun(ctx context.Context, sqlQuery string) error
}

// WarehouseExecutor runs queries against the analytics warehouse. Table
// references are fully qualified before submission since generated SQL
// often carries bare or stale names.
type WarehouseExecutor struct {
	runner  JobRunner
	dialect *dialect.WarehouseDialect
	limit   int
}

// NewWarehouseExecutor wires a job runner to the warehouse dialect. The
// dialect's dry-run syntax check is routed through the same runner. A
// limit of 0 uses DefaultRowLimit.
func NewWarehouseExecutor(runner JobRunner, d *dialect.WarehouseDialect, limit int) *WarehouseExecutor {
	if limit <= 0 {
		limit = DefaultRowLimit
	}
	d.SetDryRunner(runner)
	return &WarehouseExecutor{runner: runner, dialect: d, limit: limit}
}

// Execute qualifies table references, caps the result size, and submits
// the query
func (e *WarehouseExecutor) Execute(ctx context.Context, sqlQuery string) (*Rows, error) {
	qualified := e.dialect.QualifyIdentifiers(sqlQuery)
	if qualified != sqlQuery {
		logging.Info("Qualified table references", "query", qualified)
	}
	limited := ensureLimit(qualified, e.limit)

	rows, err := e.runner.RunQuery(ctx, limited)
	if err != nil {
		return nil, fmt.Errorf("failed to execute warehouse query: %w", err)
	}
	return rows, nil
}
