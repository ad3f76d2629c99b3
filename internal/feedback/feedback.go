/*-------------------------------------------------------------------------
 *
 * pgEdge Natural Language Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package feedback persists the outcome of every question so query
// quality can be reviewed later. Each interaction becomes one row; the
// user's verdict can be attached afterwards, exactly once.
package feedback

import (
	"context"
	"time"

	"pgedge-nlq-agent/internal/pipeline"
)

// summaryRowLimit caps how many result rows are stored as the summary
const summaryRowLimit = 5

// Entry is one recorded interaction
type Entry struct {
	NaturalLanguageQuery string
	GeneratedSQL         string
	Validated            bool
	Executed             bool
	GenerationTime       time.Duration
	ValidationTime       time.Duration
	ExecutionTime        time.Duration
	TotalTime            time.Duration
	ResultCount          int
	ResultSummary        []map[string]interface{}
	ConfidenceScore      int
	ValidationErrors     []string
	ExecutionErrors      []string
	InteractionLogs      []string
}

// Sink records interactions and accepts one user verdict per entry.
// UpdateFeedback returns false when the entry does not exist or already
// carries a verdict.
type Sink interface {
	Record(ctx context.Context, entry Entry) (string, error)
	UpdateFeedback(ctx context.Context, id, verdict string) (bool, error)
	Close() error
}

// FromOutcome converts a pipeline outcome into a feedback entry, keeping
// only the first few result rows as a summary
func FromOutcome(o *pipeline.Outcome) Entry {
	entry := Entry{
		NaturalLanguageQuery: o.Question,
		GeneratedSQL:         o.SQLQuery,
		Validated:            o.Validated,
		Executed:             o.Executed,
		GenerationTime:       o.GenerationTime,
		ValidationTime:       o.ValidationTime,
		ExecutionTime:        o.ExecutionTime,
		TotalTime:            o.TotalTime,
		ResultCount:          o.ResultCount(),
		ConfidenceScore:      o.Confidence,
		ValidationErrors:     o.ValidationErrors,
		InteractionLogs:      o.InteractionLogs,
	}
	if o.ExecutionError != "" {
		entry.ExecutionErrors = []string{o.ExecutionError}
	}
	if o.Results != nil {
		limit := len(o.Results.Records)
		if limit > summaryRowLimit {
			limit = summaryRowLimit
		}
		entry.ResultSummary = o.Results.Records[:limit]
	}
	return entry
}
