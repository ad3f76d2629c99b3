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
	"fmt"
	"regexp"
	"strings"

	"pgedge-nlq-agent/internal/schema"
)

const (
	// WarehouseProject is the public project hosting the IMDB dataset
	WarehouseProject = "bigquery-public-data"

	// WarehouseDataset is the IMDB dataset name
	WarehouseDataset = "imdb"

	// staleProject is a retired project ID models still emit from old
	// training data; references to it are rewritten to WarehouseProject
	staleProject = "phonic-bivouac-272213"
)

// DryRunner submits a query for parse-only validation without running it
type DryRunner interface {
	DryRun(ctx context.Context, sql string) error
}

// WarehouseDialect targets a BigQuery-style cloud warehouse serving the
// public IMDB dataset with snake_case column names.
type WarehouseDialect struct {
	schemaPath string
	runner     DryRunner
	rules      *RuleSet
	tables     []string
}

// NewWarehouseDialect creates a warehouse dialect. schemaPath optionally
// points at a JSON schema document; runner optionally provides dry-run
// syntax checking and may be nil.
func NewWarehouseDialect(schemaPath string, runner DryRunner) *WarehouseDialect {
	return &WarehouseDialect{
		schemaPath: schemaPath,
		runner:     runner,
		rules:      NewRuleSet(DefaultWarehouseRules()),
		tables: []string{
			"title_basics", "name_basics", "title_ratings", "title_crew",
			"title_principals", "title_episode", "title_akas",
		},
	}
}

// SetDryRunner attaches a dry-run backend after construction
func (d *WarehouseDialect) SetDryRunner(runner DryRunner) {
	d.runner = runner
}

// Name returns "warehouse"
func (d *WarehouseDialect) Name() string {
	return "warehouse"
}

// LoadCatalog loads the schema document when configured, and otherwise
// derives the warehouse catalog from the built-in movie schema with its
// column names converted to the warehouse's snake_case convention.
func (d *WarehouseDialect) LoadCatalog() (*schema.Catalog, error) {
	var catalog *schema.Catalog
	if d.schemaPath != "" {
		loaded, err := schema.LoadDocument(d.schemaPath)
		if err != nil {
			return nil, err
		}
		catalog = loaded
	} else {
		catalog = snakeCaseCatalog(schema.MovieCatalog())
	}
	d.tables = catalog.Tables()
	return catalog, nil
}

// snakeCaseCatalog rebuilds a catalog with every column name converted to
// snake_case, matching the warehouse copy of the IMDB dataset
func snakeCaseCatalog(src *schema.Catalog) *schema.Catalog {
	var tables []schema.TableSchema
	for _, name := range src.Tables() {
		table, _ := src.Table(name)
		converted := schema.TableSchema{Name: table.Name, Description: table.Description}
		for _, col := range table.Columns {
			col.Name = camelToSnake(col.Name)
			converted.Columns = append(converted.Columns, col)
		}
		tables = append(tables, converted)
	}
	var edges []schema.RelationshipEdge
	for _, e := range src.AllRelationships() {
		e.SourceColumn = camelToSnake(e.SourceColumn)
		e.TargetColumn = camelToSnake(e.TargetColumn)
		edges = append(edges, e)
	}
	return schema.NewCatalog(tables, edges, "warehouse:"+WarehouseDataset)
}

// camelToSnake converts camelCase identifiers to snake_case, leaving
// already lowercase names untouched
func camelToSnake(name string) string {
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// QualifyIdentifiers rewrites bare and misqualified table references into
// the backticked fully qualified form the warehouse requires, and drops
// trailing semicolons.
func (d *WarehouseDialect) QualifyIdentifiers(sqlText string) string {
	sqlText = strings.TrimSpace(sqlText)

	// Already qualified with the right project: just trim the semicolon
	if strings.Contains(sqlText, WarehouseProject+"."+WarehouseDataset) {
		return strings.TrimSuffix(sqlText, ";")
	}

	for _, table := range d.tables {
		qualified := fmt.Sprintf("`%s.%s.%s`", WarehouseProject, WarehouseDataset, table)

		// Wrong project ID, with and without backticks
		sqlText = strings.ReplaceAll(sqlText,
			fmt.Sprintf("`%s.%s.%s`", staleProject, WarehouseDataset, table), qualified)
		sqlText = strings.ReplaceAll(sqlText,
			fmt.Sprintf("%s.%s.%s", staleProject, WarehouseDataset, table), qualified)

		// Qualified with the dataset only
		datasetOnly := regexp.MustCompile(`(^|[^.\w])` + WarehouseDataset + `\.` + table + `\b`)
		sqlText = datasetOnly.ReplaceAllString(sqlText, "${1}"+qualified)

		// Bare table name
		bare := regexp.MustCompile(`(^|[^.\w])` + table + `($|[^.\w])`)
		sqlText = bare.ReplaceAllString(sqlText, "${1}"+qualified+"${2}")
	}

	return strings.TrimSuffix(sqlText, ";")
}

// DryRunCheck submits the query for parse-only validation, translating
// warehouse errors into guidance the refinement prompt can act on
func (d *WarehouseDialect) DryRunCheck(ctx context.Context, sqlText string) error {
	if d.runner == nil {
		return ErrNoEngine
	}

	err := d.runner.DryRun(ctx, d.QualifyIdentifiers(sqlText))
	if err == nil {
		return nil
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "must be qualified with a dataset"):
		return fmt.Errorf("Table must be qualified with the dataset name '%s'. Use '%s.<table>' instead.",
			WarehouseDataset, WarehouseDataset)
	case strings.Contains(msg, "Table not found"), strings.Contains(msg, "Not found"):
		return fmt.Errorf("Table not found. Please check the table name and make sure it's qualified with '%s'.",
			WarehouseDataset)
	case strings.Contains(msg, "Unrecognized name"), strings.Contains(msg, "Column not found"):
		return fmt.Errorf("Column not found. Please check the column name.")
	default:
		return err
	}
}

// ColumnNaming returns "snake_case"
func (d *WarehouseDialect) ColumnNaming() string {
	return "snake_case"
}

// PromptRules returns the warehouse instruction block
func (d *WarehouseDialect) PromptRules() string {
	return `- This is a cloud warehouse database, so you MUST fully qualify table names with the project and dataset name 'bigquery-public-data.imdb'.
- For example, use '` + "`bigquery-public-data.imdb.title_basics`" + `' instead of just 'title_basics'.
- ALWAYS use backticks around the fully qualified table names: ` + "`bigquery-public-data.imdb.table_name`" + `
- IMPORTANT: Column names in the warehouse IMDB dataset use underscores, not camelCase. For example:
  * Use 'primary_name' (NOT 'primaryName')
  * Use 'title_type' (NOT 'titleType')
  * Use 'birth_year' (NOT 'birthYear')
  * Use 'primary_title' (NOT 'primaryTitle')
  * Use 'original_title' (NOT 'originalTitle')
  * Use 'is_adult' (NOT 'isAdult')
  * Use 'start_year' (NOT 'startYear')
  * Use 'end_year' (NOT 'endYear')
  * Use 'runtime_minutes' (NOT 'runtimeMinutes')

**IMDB Table Relationships**:
- The 'title_basics' table contains core information about movies and TV shows.
  * Use 'primary_title' for movie/show titles (NOT 'title' or 'name')
  * Use 'tconst' as the unique ID for movies/shows (NOT 'id' or 'movie_id')
- The 'name_basics' table contains information about people (actors, directors, etc.).
  * Use 'primary_name' for person names (NOT 'name')
  * Use 'nconst' as the unique ID for people (NOT 'id' or 'person_id')
- The 'title_ratings' table contains ratings information linked to titles via 'tconst'.
- The 'title_crew' table links directors and writers to titles via 'tconst'.
- The 'title_principals' table links cast and crew to titles via 'tconst' and to people via 'nconst'.
  * The 'category' column indicates the role (actor, actress, director, etc.)
- The 'title_episode' table contains TV episode information linked to series via 'parent_tconst'.
- The 'title_akas' table contains alternative titles linked to the main title via 'title_id'.

**Common Join Patterns**:
- To join movies with their ratings:
  ` + "`bigquery-public-data.imdb.title_basics` tb JOIN `bigquery-public-data.imdb.title_ratings` tr ON tb.tconst = tr.tconst" + `
- To join movies with their cast:
  ` + "`bigquery-public-data.imdb.title_basics` tb JOIN `bigquery-public-data.imdb.title_principals` tp ON tb.tconst = tp.tconst" + `
- To join cast with person details:
  ` + "`bigquery-public-data.imdb.title_principals` tp JOIN `bigquery-public-data.imdb.name_basics` nb ON tp.nconst = nb.nconst" + `
- To join movies with their directors:
  ` + "`bigquery-public-data.imdb.title_basics` tb JOIN `bigquery-public-data.imdb.title_crew` tc ON tb.tconst = tc.tconst" + `

- DO NOT include semicolons at the end of your SQL queries.`
}

// ConfusedColumnNotes returns reminders about habitual column mistakes
func (d *WarehouseDialect) ConfusedColumnNotes() []string {
	return []string{
		"For movie titles, use 'primary_title' in 'title_basics' table (NOT 'title' or 'name').",
		"For person names, use 'primary_name' in 'name_basics' table (NOT 'name').",
		"For movie IDs, use 'tconst' (NOT 'id' or 'movie_id').",
		"For person IDs, use 'nconst' (NOT 'id' or 'person_id').",
		"Column names use snake_case (primary_title), never camelCase (primaryTitle).",
	}
}

// DomainTerms returns words that signal a question targets this schema
func (d *WarehouseDialect) DomainTerms() []string {
	return []string{"movie", "film", "actor", "director", "rating", "title",
		"episode", "series", "tv", "cast", "genre", "data", "table", "query",
		"select", "database", "sql"}
}

// EntityKeywords maps question words to the tables they refer to
func (d *WarehouseDialect) EntityKeywords() map[string]string {
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

// Corrections returns the active correction rules
func (d *WarehouseDialect) Corrections() *CorrectionRules {
	return d.rules.Get()
}

// Rules exposes the rule set for overriding from a file and hot reload
func (d *WarehouseDialect) Rules() *RuleSet {
	return d.rules
}
