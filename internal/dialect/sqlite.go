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
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"pgedge-nlq-agent/internal/schema"
)

// SQLiteDialect targets an embedded SQLite database holding either the
// retail or the movie schema. With a database path set it uses the live
// engine for syntax checks; without one it reports ErrNoEngine.
type SQLiteDialect struct {
	schemaName string // "retail" or "movie"
	dbPath     string
	rules      *RuleSet
}

// NewSQLiteDialect creates a sqlite dialect for the named schema. dbPath
// may be empty when no database file is available.
func NewSQLiteDialect(schemaName, dbPath string) *SQLiteDialect {
	if schemaName == "" {
		schemaName = "retail"
	}
	defaults := DefaultRetailRules()
	if schemaName == "movie" {
		defaults = &CorrectionRules{TableAliases: DefaultWarehouseRules().TableAliases}
	}
	return &SQLiteDialect{
		schemaName: schemaName,
		dbPath:     dbPath,
		rules:      NewRuleSet(defaults),
	}
}

// Name returns "sqlite"
func (d *SQLiteDialect) Name() string {
	return "sqlite"
}

// SchemaName returns the active schema, "retail" or "movie"
func (d *SQLiteDialect) SchemaName() string {
	return d.schemaName
}

// LoadCatalog introspects the database file when one is configured, and
// falls back to the built-in curated schema otherwise.
func (d *SQLiteDialect) LoadCatalog() (*schema.Catalog, error) {
	if d.dbPath != "" {
		return schema.LoadSQLite(d.dbPath)
	}
	switch d.schemaName {
	case "movie":
		return schema.MovieCatalog(), nil
	default:
		return schema.RetailCatalog(), nil
	}
}

// QualifyIdentifiers is a no-op for SQLite apart from dropping a trailing
// semicolon, which the driver rejects in prepared statements
func (d *SQLiteDialect) QualifyIdentifiers(sqlText string) string {
	return strings.TrimSuffix(strings.TrimSpace(sqlText), ";")
}

// DryRunCheck runs EXPLAIN against the engine to surface parse errors
// without executing. Engine errors about unknown identifiers are rewritten
// into messages the refinement prompt can act on.
func (d *SQLiteDialect) DryRunCheck(ctx context.Context, sqlText string) error {
	if d.dbPath == "" {
		return ErrNoEngine
	}

	db, err := sql.Open("sqlite", d.dbPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoEngine, err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, "EXPLAIN "+d.QualifyIdentifiers(sqlText))
	if err != nil {
		return friendlySQLiteError(err)
	}
	defer rows.Close()
	for rows.Next() {
	}
	return rows.Err()
}

// friendlySQLiteError translates engine errors into guidance
func friendlySQLiteError(err error) error {
	msg := err.Error()
	if idx := strings.Index(msg, "no such table: "); idx != -1 {
		name := strings.Fields(msg[idx+len("no such table: "):])[0]
		return fmt.Errorf("Table '%s' not found. Please check the table name.", name)
	}
	if idx := strings.Index(msg, "no such column: "); idx != -1 {
		name := strings.Fields(msg[idx+len("no such column: "):])[0]
		return fmt.Errorf("Column '%s' not found. Please check the column name.", name)
	}
	return err
}

// ColumnNaming reports the naming convention of the active schema. The
// movie SQLite schema keeps IMDB's camelCase column names.
func (d *SQLiteDialect) ColumnNaming() string {
	if d.schemaName == "movie" {
		return "camelCase"
	}
	return "snake_case"
}

// PromptRules returns the instruction block for the active schema
func (d *SQLiteDialect) PromptRules() string {
	if d.schemaName == "movie" {
		return `- The 'title_basics' table contains core information about movies and TV shows.
- The 'name_basics' table contains information about people (actors, directors, etc.).
- The 'title_ratings' table contains ratings information linked to titles via 'tconst'.
- The 'title_crew' table links directors and writers to titles via 'tconst'.
- The 'title_principals' table links cast and crew to titles via 'tconst' and to people via 'nconst'.
- The 'title_episode' table contains TV episode information linked to series via 'parentTconst'.
- The 'title_akas' table contains alternative titles linked to the main title via 'titleId'.
- When joining tables, remember that 'tconst' is the primary key for titles and 'nconst' is the primary key for people.
- The query must be valid SQLite syntax.`
	}
	return `- The 'orders' table has 'status' column (not order_status) for order status values.
- The 'customers' table has 'customer_segment' column (not segment).
- The 'customers' table has 'state' column (not customer_state).
- The query must be valid SQLite syntax.`
}

// ConfusedColumnNotes returns reminders about habitual column mistakes
func (d *SQLiteDialect) ConfusedColumnNotes() []string {
	if d.schemaName == "movie" {
		return []string{
			"The title_basics table uses 'primaryTitle' for movie/show titles (NOT 'title' or 'name').",
			"The name_basics table uses 'primaryName' for person names (NOT 'name').",
			"'tconst' is the unique ID for titles and 'nconst' is the unique ID for people.",
		}
	}
	return []string{
		"The orders table has a 'status' column (NOT 'order_status') for order status values.",
		"The customers table has a 'customer_segment' column (NOT just 'segment').",
		"The customers table has a 'state' column (NOT 'customer_state').",
	}
}

// DomainTerms returns words that signal a question targets this schema
func (d *SQLiteDialect) DomainTerms() []string {
	if d.schemaName == "movie" {
		return []string{"movie", "film", "actor", "director", "rating", "title",
			"episode", "series", "tv", "cast", "genre", "data", "table", "query",
			"select", "database", "sql"}
	}
	return []string{"order", "customer", "product", "sales", "category", "data",
		"table", "query", "select", "database", "sql"}
}

// EntityKeywords maps question words to the tables they refer to
func (d *SQLiteDialect) EntityKeywords() map[string]string {
	if d.schemaName == "movie" {
		return map[string]string{
			"movie":    "title_basics",
			"film":     "title_basics",
			"title":    "title_basics",
			"actor":    "name_basics",
			"actress":  "name_basics",
			"director": "name_basics",
			"person":   "name_basics",
			"rating":   "title_ratings",
			"episode":  "title_episode",
			"series":   "title_episode",
			"cast":     "title_principals",
			"crew":     "title_crew",
		}
	}
	return map[string]string{
		"order":    "orders",
		"purchase": "orders",
		"customer": "customers",
		"buyer":    "customers",
		"product":  "products",
		"item":     "order_items",
		"category": "categories",
	}
}

// Corrections returns the active correction rules
func (d *SQLiteDialect) Corrections() *CorrectionRules {
	return d.rules.Get()
}

// Rules exposes the rule set for overriding from a file and hot reload
func (d *SQLiteDialect) Rules() *RuleSet {
	return d.rules
}
