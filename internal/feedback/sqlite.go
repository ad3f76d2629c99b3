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
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Store persists feedback entries in a local SQLite database
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the feedback database under dataDir
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "feedback.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrent access
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS query_feedback (
        id TEXT PRIMARY KEY,
        timestamp DATETIME NOT NULL,
        natural_language_query TEXT NOT NULL,
        generated_sql TEXT NOT NULL,
        validated INTEGER NOT NULL,
        executed INTEGER NOT NULL,
        generation_time REAL NOT NULL,
        validation_time REAL NOT NULL,
        execution_time REAL NOT NULL,
        total_time REAL NOT NULL,
        result_count INTEGER NOT NULL,
        result_summary TEXT NOT NULL,
        confidence_score INTEGER NOT NULL,
        user_feedback TEXT,
        validation_errors TEXT NOT NULL,
        execution_errors TEXT NOT NULL,
        interaction_logs TEXT NOT NULL
    );

    CREATE INDEX IF NOT EXISTS idx_query_feedback_timestamp
        ON query_feedback(timestamp DESC);
    `
	_, err := s.db.Exec(schema)
	return err
}

// Record inserts one entry and returns its generated id
func (s *Store) Record(ctx context.Context, entry Entry) (string, error) {
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

	_, err = s.db.ExecContext(ctx, `
        INSERT INTO query_feedback (
            id, timestamp, natural_language_query, generated_sql,
            validated, executed,
            generation_time, validation_time, execution_time, total_time,
            result_count, result_summary, confidence_score,
            user_feedback, validation_errors, execution_errors, interaction_logs
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, ?, ?, ?)`,
		id, time.Now().UTC(), entry.NaturalLanguageQuery, entry.GeneratedSQL,
		entry.Validated, entry.Executed,
		entry.GenerationTime.Seconds(), entry.ValidationTime.Seconds(),
		entry.ExecutionTime.Seconds(), entry.TotalTime.Seconds(),
		entry.ResultCount, string(summary), entry.ConfidenceScore,
		string(validationErrs), string(executionErrs), string(logs))
	if err != nil {
		return "", fmt.Errorf("failed to record feedback entry: %w", err)
	}
	return id, nil
}

// UpdateFeedback attaches the user's verdict to an entry. The verdict is
// write-once: entries that already carry one are left untouched and the
// call reports false.
func (s *Store) UpdateFeedback(ctx context.Context, id, verdict string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
        UPDATE query_feedback SET user_feedback = ?
        WHERE id = ? AND user_feedback IS NULL`, verdict, id)
	if err != nil {
		return false, fmt.Errorf("failed to update feedback: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read update result: %w", err)
	}
	return affected == 1, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func orEmptyRows(rows []map[string]interface{}) []map[string]interface{} {
	if rows == nil {
		return []map[string]interface{}{}
	}
	return rows
}
