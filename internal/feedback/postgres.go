/*-------------------------------------------------------------------------
 *
 * pgEdge Natural Language Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists feedback entries in a shared PostgreSQL
// database, for deployments where several agents report to one place
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to connStr and ensures the feedback table
// exists
func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &PostgresStore{pool: pool}
	if err := store.initSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
    CREATE TABLE IF NOT EXISTS query_feedback (
        id UUID PRIMARY KEY,
        timestamp TIMESTAMPTZ NOT NULL,
        natural_language_query TEXT NOT NULL,
        generated_sql TEXT NOT NULL,
        validated BOOLEAN NOT NULL,
        executed BOOLEAN NOT NULL,
        generation_time DOUBLE PRECISION NOT NULL,
        validation_time DOUBLE PRECISION NOT NULL,
        execution_time DOUBLE PRECISION NOT NULL,
        total_time DOUBLE PRECISION NOT NULL,
        result_count INTEGER NOT NULL,
        result_summary JSONB NOT NULL,
        confidence_score INTEGER NOT NULL,
        user_feedback TEXT,
        validation_errors JSONB NOT NULL,
        execution_errors JSONB NOT NULL,
        interaction_logs JSONB NOT NULL
    )`)
	return err
}

// Record inserts one entry and returns its generated id
func (s *PostgresStore) Record(ctx context.Context, entry Entry) (string, error) {
	id := uuid.New().String()

	summary, err := json.Marshal(orEmptyRows(entry.ResultSummary))
	if err != nil {
		return "", fmt.Errorf("failed to marshal result summary: %w", err)
	}
	validationErrs, err := json.Marshal(orEmpty(entry.ValidationErrors))
	if err != nil {
		return "", fmt.Errorf("failed to marshal validation errors: %w", err)
	}
	executionErrs, err := json.Marshal(orEmpty(entry.ExecutionErrors))
	if err != nil {
		return "", fmt.Errorf("failed to marshal execution errors: %w", err)
	}
	logs, err := json.Marshal(orEmpty(entry.InteractionLogs))
	if err != nil {
		return "", fmt.Errorf("failed to marshal interaction logs: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
        INSERT INTO query_feedback (
            id, timestamp, natural_language_query, generated_sql,
            validated, executed,
            generation_time, validation_time, execution_time, total_time,
            result_count, result_summary, confidence_score,
            user_feedback, validation_errors, execution_errors, interaction_logs
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NULL, $14, $15, $16)`,
		id, time.Now().UTC(), entry.NaturalLanguageQuery, entry.GeneratedSQL,
		entry.Validated, entry.Executed,
		entry.GenerationTime.Seconds(), entry.ValidationTime.Seconds(),
		entry.ExecutionTime.Seconds(), entry.TotalTime.Seconds(),
		entry.ResultCount, summary, entry.ConfidenceScore,
		validationErrs, executionErrs, logs)
	if err != nil {
		return "", fmt.Errorf("failed to record feedback entry: %w", err)
	}
	return id, nil
}

// UpdateFeedback attaches the user's verdict to an entry, write-once
func (s *PostgresStore) UpdateFeedback(ctx context.Context, id, verdict string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
        UPDATE query_feedback SET user_feedback = $1
        WHERE id = $2 AND user_feedback IS NULL`, verdict, id)
	if err != nil {
		return false, fmt.Errorf("failed to update feedback: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Close releases the connection pool
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
