/*-------------------------------------------------------------------------
 *
 * pgEdge Natural Language Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package pipeline drives a question through generation, validation, and
// execution. Generation and validation run in a bounded refinement loop:
// a low-confidence query is sent back to the generator with targeted
// feedback, and the best attempt across iterations wins.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pgedge-nlq-agent/internal/connector"
	"pgedge-nlq-agent/internal/dialect"
	"pgedge-nlq-agent/internal/generator"
	"pgedge-nlq-agent/internal/logging"
	"pgedge-nlq-agent/internal/validator"
)

const (
	// DefaultMaxIterations bounds the refinement loop
	DefaultMaxIterations = 2

	// DefaultConfidenceThreshold is the score at which a valid query is
	// accepted without further refinement
	DefaultConfidenceThreshold = 80
)

// QueryGenerator produces one SQL attempt per call
type QueryGenerator interface {
	Generate(ctx context.Context, gc generator.Context) (string, error)
}

// QueryValidator scores attempts and turns findings into feedback
type QueryValidator interface {
	Validate(ctx context.Context, sqlQuery, question string) validator.Result
	SuggestFixes(result validator.Result, sqlQuery string) string
}

// ValidationRecord is one iteration's outcome, kept for the audit trail
type ValidationRecord struct {
	Iteration  int    `json:"iteration"`
	SQL        string `json:"sql"`
	Confidence int    `json:"confidence"`
	Valid      bool   `json:"valid"`
	Feedback   string `json:"feedback"`
}

// Outcome is the full result of answering one question
type Outcome struct {
	Question          string             `json:"question"`
	SQLQuery          string             `json:"sql_query"`
	Confidence        int                `json:"confidence"`
	Validated         bool               `json:"validated"`
	Executed          bool               `json:"executed"`
	Results           *connector.Rows    `json:"results,omitempty"`
	Iterations        int                `json:"iterations"`
	ValidationHistory []ValidationRecord `json:"validation_history"`
	InteractionLogs   []string           `json:"interaction_logs"`
	ValidationErrors  []string           `json:"validation_errors"`
	ExecutionError    string             `json:"execution_error,omitempty"`
	Err               string             `json:"error,omitempty"`

	GenerationTime time.Duration `json:"generation_time"`
	ValidationTime time.Duration `json:"validation_time"`
	ExecutionTime  time.Duration `json:"execution_time"`
	TotalTime      time.Duration `json:"total_time"`
}

// Options tune the loop. Zero values select the defaults.
type Options struct {
	MaxIterations       int
	ConfidenceThreshold int
}

// Loop is the refinement pipeline for one dialect
type Loop struct {
	generator QueryGenerator
	validator QueryValidator
	executor  connector.Executor
	rules     *dialect.CorrectionRules
	opts      Options
}

// New builds a loop. executor may be nil to validate without running
// anything; rules may be nil when no mechanical corrections apply.
func New(g QueryGenerator, v QueryValidator, executor connector.Executor, rules *dialect.CorrectionRules, opts Options) *Loop {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	if opts.ConfidenceThreshold <= 0 {
		opts.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	return &Loop{generator: g, validator: v, executor: executor, rules: rules, opts: opts}
}

// Run answers one question end to end
func (l *Loop) Run(ctx context.Context, question string) *Outcome {
	start := time.Now()
	outcome := &Outcome{
		Question:          question,
		ValidationHistory: []ValidationRecord{},
		InteractionLogs:   []string{},
		ValidationErrors:  []string{},
	}
	defer func() { outcome.TotalTime = time.Since(start) }()

	feedback := ""
	bestSQL := ""
	var bestResult validator.Result
	haveBest := false

	for i := 1; i <= l.opts.MaxIterations; i++ {
		outcome.Iterations = i

		genStart := time.Now()
		sqlText, err := l.generator.Generate(ctx, generator.Context{
			Question:  question,
			Feedback:  feedback,
			Iteration: i,
		})
		outcome.GenerationTime += time.Since(genStart)
		if err != nil {
			outcome.Err = err.Error()
			outcome.log("iteration %d: generation failed: %v", i, err)
			break
		}

		if strings.HasPrefix(sqlText, generator.ErrorPrefix) {
			outcome.Err = strings.TrimPrefix(sqlText, generator.ErrorPrefix)
			outcome.log("iteration %d: question rejected before generation", i)
			return outcome
		}

		// A reply that is not SQL at all ends the loop; the raw text goes
		// back to the caller for inspection
		if !validator.IsSQL(sqlText) {
			outcome.Err = "the model did not return a SQL query: " + sqlText
			outcome.log("iteration %d: response was not SQL", i)
			return outcome
		}

		sqlText = generator.FixCommonColumnMistakes(sqlText, l.rules)
		outcome.log("iteration %d: generated query", i)

		valStart := time.Now()
		result := l.validator.Validate(ctx, sqlText, question)
		outcome.ValidationTime += time.Since(valStart)
		outcome.log("iteration %d: validation confidence %d", i, result.Confidence)

		outcome.ValidationHistory = append(outcome.ValidationHistory, ValidationRecord{
			Iteration:  i,
			SQL:        sqlText,
			Confidence: result.Confidence,
			Valid:      result.Valid,
			Feedback:   result.Feedback,
		})

		if !haveBest || result.Confidence > bestResult.Confidence {
			haveBest = true
			bestSQL = sqlText
			bestResult = result
		}

		if result.Valid && result.Confidence >= l.opts.ConfidenceThreshold {
			break
		}
		feedback = l.validator.SuggestFixes(result, sqlText)
	}

	if !haveBest {
		if outcome.Err == "" {
			outcome.Err = "no SQL query was produced"
		}
		return outcome
	}

	outcome.SQLQuery = bestSQL
	outcome.Confidence = bestResult.Confidence
	outcome.Validated = bestResult.Valid
	outcome.ValidationErrors = bestResult.Details.ErrorMessages

	// The best attempt runs even when issues remain after the last
	// iteration; the engine has the final word and its error is surfaced
	// with the query
	if l.executor != nil {
		l.execute(ctx, outcome)
	}
	return outcome
}

func (l *Loop) execute(ctx context.Context, outcome *Outcome) {
	execStart := time.Now()
	rows, err := l.executor.Execute(ctx, outcome.SQLQuery)
	outcome.ExecutionTime = time.Since(execStart)
	if err != nil {
		outcome.ExecutionError = err.Error()
		outcome.log("execution failed: %v", err)
		logging.Warn("Query execution failed", "error", err)
		return
	}
	outcome.Executed = true
	outcome.Results = rows
	outcome.log("execution returned %d rows", len(rows.Records))
}

func (o *Outcome) log(format string, args ...interface{}) {
	o.InteractionLogs = append(o.InteractionLogs, fmt.Sprintf(format, args...))
}

// ResultCount returns the number of rows retrieved, or 0 when nothing ran
func (o *Outcome) ResultCount() int {
	if o.Results == nil {
		return 0
	}
	return len(o.Results.Records)
}
