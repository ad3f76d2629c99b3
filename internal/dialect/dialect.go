/*-------------------------------------------------------------------------
 *
 * pgEdge Natural Language Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package dialect

import (
	"context"
	"errors"
	"fmt"

	"pgedge-nlq-agent/internal/schema"
)

// ErrNoEngine is returned by DryRunCheck when the dialect has no live
// engine to test against. Callers fall back to heuristic syntax checks.
var ErrNoEngine = errors.New("no query engine available")

// Dialect captures everything that varies with the target SQL engine:
// which schema it serves, how identifiers are qualified, how column names
// are spelled, and which known mistakes can be corrected mechanically.
type Dialect interface {
	// Name returns the dialect identifier ("sqlite" or "warehouse")
	Name() string

	// LoadCatalog builds the schema catalog for this dialect's data source
	LoadCatalog() (*schema.Catalog, error)

	// QualifyIdentifiers rewrites table references into the fully qualified
	// form the engine requires. A no-op for engines without qualification.
	QualifyIdentifiers(sql string) string

	// DryRunCheck asks the engine to parse (not run) the query. Returns nil
	// when the syntax is fine, ErrNoEngine when no engine is reachable, and
	// a descriptive error otherwise.
	DryRunCheck(ctx context.Context, sql string) error

	// ColumnNaming returns the column naming convention, "snake_case" or
	// "camelCase"
	ColumnNaming() string

	// PromptRules returns the dialect-specific instruction block appended
	// to generation prompts
	PromptRules() string

	// ConfusedColumnNotes returns static reminders about column names the
	// model habitually gets wrong
	ConfusedColumnNotes() []string

	// DomainTerms returns words that signal a question is about this
	// dialect's data
	DomainTerms() []string

	// EntityKeywords maps question keywords to the tables they refer to
	EntityKeywords() map[string]string

	// Corrections returns the active mechanical correction rules
	Corrections() *CorrectionRules
}

// New constructs the dialect named in configuration. schemaName selects
// the sqlite schema (retail or movie); sqlitePath and schemaPath point at
// optional on-disk sources.
func New(name, schemaName, sqlitePath, schemaPath string) (Dialect, error) {
	switch name {
	case "sqlite", "":
		return NewSQLiteDialect(schemaName, sqlitePath), nil
	case "warehouse":
		return NewWarehouseDialect(schemaPath, nil), nil
	default:
		return nil, fmt.Errorf("unsupported dialect: %s", name)
	}
}
