/*-------------------------------------------------------------------------
 *
 * pgEdge Natural Language Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package validator checks generated SQL against the active schema
// catalog before anything reaches an execution engine. It extracts CTEs,
// verifies that every referenced table and column exists, runs a syntax
// check through the dialect (or regex heuristics when no engine is
// available), and condenses the findings into a confidence score.
package validator

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"pgedge-nlq-agent/internal/dialect"
	"pgedge-nlq-agent/internal/schema"
)

// Confidence scoring weights. A query starts at full confidence and each
// class of finding subtracts a capped amount.
const (
	ConfidenceMax    = 100
	syntaxPenalty    = 40
	columnPenaltyPer = 10
	columnPenaltyCap = 30
	tablePenaltyPer  = 15
	tablePenaltyCap  = 30
	dialectPenalty   = 20
	cleanFeedback    = "Query looks good"
)

// ErrorDetails breaks validation findings out by class so callers can
// build targeted feedback
type ErrorDetails struct {
	MissingColumns []string `json:"missing_columns"`
	MissingTables  []string `json:"missing_tables"`
	SyntaxErrors   []string `json:"syntax_errors"`
	DialectIssues  []string `json:"dialect_issues"`
	ErrorMessages  []string `json:"error_messages"`
}

// Result is the outcome of validating one query
type Result struct {
	Valid      bool         `json:"valid"`
	Confidence int          `json:"confidence"`
	Feedback   string       `json:"feedback"`
	Details    ErrorDetails `json:"error_details"`
}

// Validator checks queries against one dialect's catalog
type Validator struct {
	catalog *schema.Catalog
	dialect dialect.Dialect
	rules   *dialect.CorrectionRules
}

// New returns a validator bound to the given catalog and dialect. rules
// may be nil when no correction rules apply.
func New(catalog *schema.Catalog, d dialect.Dialect, rules *dialect.CorrectionRules) *Validator {
	return &Validator{catalog: catalog, dialect: d, rules: rules}
}

var sqlKeywordRe = regexp.MustCompile(`(?i)\b(SELECT|INSERT|UPDATE|DELETE|WITH|CREATE|DROP|ALTER)\b`)

// IsSQL reports whether text looks like a SQL query rather than prose or
// a refusal from the model
func IsSQL(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	if !sqlKeywordRe.MatchString(trimmed) {
		return false
	}
	upper := strings.ToUpper(trimmed)
	return strings.Contains(upper, "SELECT") && strings.Contains(upper, "FROM")
}

// Validate checks sqlQuery and reports findings plus a confidence score.
// The question is carried for context in feedback but does not change the
// checks. A syntax failure short-circuits the column check since table
// and column extraction is unreliable on malformed SQL.
func (v *Validator) Validate(ctx context.Context, sqlQuery, question string) Result {
	details := ErrorDetails{
		MissingColumns: []string{},
		MissingTables:  []string{},
		SyntaxErrors:   []string{},
		DialectIssues:  []string{},
		ErrorMessages:  []string{},
	}

	trimmed := strings.TrimSpace(sqlQuery)
	if trimmed == "" {
		details.SyntaxErrors = append(details.SyntaxErrors, "The query is empty")
		details.ErrorMessages = append(details.ErrorMessages, "Empty query")
		return Result{
			Valid:      false,
			Confidence: 0,
			Feedback:   "Empty query",
			Details:    details,
		}
	}

	syntaxOK := v.checkSyntax(ctx, trimmed, &details)

	fatal := !syntaxOK
	if syntaxOK {
		fatal = v.checkColumns(trimmed, &details) || fatal
		v.checkDialectIssues(trimmed, &details)
	}

	confidence := ConfidenceMax
	if !syntaxOK {
		confidence -= syntaxPenalty
	}
	if n := len(details.MissingColumns); n > 0 {
		confidence -= min(columnPenaltyCap, columnPenaltyPer*n)
	}
	if n := len(details.MissingTables); n > 0 {
		confidence -= min(tablePenaltyCap, tablePenaltyPer*n)
	}
	if len(details.DialectIssues) > 0 {
		confidence -= dialectPenalty
	}
	if confidence < 0 {
		confidence = 0
	}

	return Result{
		Valid:      !fatal,
		Confidence: confidence,
		Feedback:   buildFeedback(details),
		Details:    details,
	}
}

func buildFeedback(details ErrorDetails) string {
	var parts []string
	if len(details.MissingTables) > 0 {
		parts = append(parts, "Missing or incorrect tables: "+strings.Join(details.MissingTables, ", "))
	}
	if len(details.MissingColumns) > 0 {
		parts = append(parts, "Missing or incorrect columns: "+strings.Join(details.MissingColumns, ", "))
	}
	if len(details.SyntaxErrors) > 0 {
		parts = append(parts, "Syntax issues: "+strings.Join(details.SyntaxErrors, "; "))
	}
	if len(details.DialectIssues) > 0 {
		parts = append(parts, "Dialect issues: "+strings.Join(details.DialectIssues, "; "))
	}
	if len(parts) == 0 {
		return cleanFeedback
	}
	return strings.Join(parts, ". ")
}

// checkSyntax runs the dialect's dry-run check, falling back to regex
// heuristics when no engine is wired. Returns true when the query passes.
func (v *Validator) checkSyntax(ctx context.Context, sqlQuery string, details *ErrorDetails) bool {
	if v.dialect != nil {
		err := v.dialect.DryRunCheck(ctx, sqlQuery)
		if err == nil {
			return true
		}
		if !errors.Is(err, dialect.ErrNoEngine) {
			details.SyntaxErrors = append(details.SyntaxErrors, err.Error())
			details.ErrorMessages = append(details.ErrorMessages, err.Error())
			return false
		}
	}
	return v.heuristicSyntaxCheck(sqlQuery, details)
}

var syntaxErrorPatterns = []struct {
	re      *regexp.Regexp
	message string
}{
	{regexp.MustCompile(`(?i)SELECT\s+,`), "SELECT clause starts with a comma"},
	{regexp.MustCompile(`(?i)FROM\s+,`), "FROM clause starts with a comma"},
	{regexp.MustCompile(`(?i)GROUP\s+BY\s+,`), "GROUP BY clause starts with a comma"},
	{regexp.MustCompile(`(?i)ORDER\s+BY\s+,`), "ORDER BY clause starts with a comma"},
	{regexp.MustCompile(`(?i),\s+FROM\b`), "trailing comma before FROM"},
	{regexp.MustCompile(`(?i)WHERE\s+(AND|OR)\b`), "WHERE clause starts with AND/OR"},
}

func (v *Validator) heuristicSyntaxCheck(sqlQuery string, details *ErrorDetails) bool {
	upper := strings.ToUpper(sqlQuery)
	ok := true

	report := func(msg string) {
		details.SyntaxErrors = append(details.SyntaxErrors, msg)
		details.ErrorMessages = append(details.ErrorMessages, msg)
		ok = false
	}

	selectCount := strings.Count(upper, "SELECT")
	fromCount := strings.Count(upper, "FROM")
	if selectCount == 0 {
		report("query has no SELECT clause")
	}
	if fromCount == 0 {
		report("query has no FROM clause")
	}
	if fromCount > selectCount {
		report("more FROM clauses than SELECT clauses")
	}
	if strings.Count(sqlQuery, "(") != strings.Count(sqlQuery, ")") {
		report("unbalanced parentheses")
	}
	for _, p := range syntaxErrorPatterns {
		if p.re.MatchString(sqlQuery) {
			report(p.message)
		}
	}
	return ok
}

// tableRef is one FROM/JOIN reference with its optional alias
type tableRef struct {
	name  string
	alias string
}

var tableRefRe = regexp.MustCompile(`(?i)\b(FROM|JOIN)\s+(` + "`[^`]+`" + `|[A-Za-z_][A-Za-z0-9_.]*)(?:\s+(?:AS\s+)?([A-Za-z_][A-Za-z0-9_]*))?`)

// aliasKeywords are words that can follow a table reference and must not
// be mistaken for aliases
var aliasKeywords = map[string]bool{
	"on": true, "using": true, "where": true, "group": true, "order": true,
	"limit": true, "having": true, "join": true, "inner": true, "left": true,
	"right": true, "full": true, "outer": true, "cross": true, "union": true,
	"as": true, "set": true, "and": true, "or": true, "select": true,
	"offset": true, "when": true,
}

// extractTableRefs finds every FROM/JOIN table reference. Multi-part
// names (project.dataset.table, with or without backticks) reduce to the
// final segment.
func extractTableRefs(sqlQuery string) []tableRef {
	var refs []tableRef
	for _, m := range tableRefRe.FindAllStringSubmatch(sqlQuery, -1) {
		raw := strings.Trim(m[2], "`")
		if raw == "" || strings.HasPrefix(raw, "(") {
			continue
		}
		name := raw
		if idx := strings.LastIndex(name, "."); idx != -1 {
			name = name[idx+1:]
		}
		alias := m[3]
		if aliasKeywords[strings.ToLower(alias)] {
			alias = ""
		}
		refs = append(refs, tableRef{name: name, alias: alias})
	}
	return refs
}

var columnRefRe = regexp.MustCompile(
	`(?i)(?:\b(?:SELECT|WHERE|HAVING|ON|AND|OR|BY)\s+|,\s*)` +
		`(?:(` + "`[^`]+`" + `|[A-Za-z_][A-Za-z0-9_]*)\.)?` +
		`(` + "`[^`]+`" + `|[A-Za-z_][A-Za-z0-9_]*)`)

var aliasDefRe = regexp.MustCompile(`(?i)\bAS\s+([A-Za-z_][A-Za-z0-9_]*)`)

// referenceStopWords are keywords and function names the column regex can
// capture that are never column references
var referenceStopWords = map[string]bool{
	"select": true, "from": true, "where": true, "join": true, "inner": true,
	"left": true, "right": true, "full": true, "outer": true, "cross": true,
	"on": true, "and": true, "or": true, "not": true, "null": true,
	"like": true, "in": true, "between": true, "exists": true, "case": true,
	"when": true, "then": true, "else": true, "end": true, "as": true,
	"asc": true, "desc": true, "by": true, "limit": true, "distinct": true,
	"count": true, "sum": true, "avg": true, "min": true, "max": true,
	"group": true, "order": true, "having": true, "with": true, "union": true,
	"is": true, "all": true, "interval": true, "cast": true, "extract": true,
	"current_date": true, "current_timestamp": true,
}

// columnRef is one qualified or bare column reference
type columnRef struct {
	qualifier string
	column    string
}

func extractColumnRefs(sqlQuery string) []columnRef {
	seen := map[columnRef]bool{}
	var refs []columnRef
	for _, m := range columnRefRe.FindAllStringSubmatch(sqlQuery, -1) {
		qualifier := strings.Trim(m[1], "`")
		column := strings.Trim(m[2], "`")
		if referenceStopWords[strings.ToLower(column)] {
			continue
		}
		ref := columnRef{qualifier: qualifier, column: column}
		if seen[ref] {
			continue
		}
		seen[ref] = true
		refs = append(refs, ref)
	}
	return refs
}

// checkColumns verifies every table and column reference against the
// catalog, with extracted CTEs acting as pseudo-tables that shadow real
// ones. Returns true when a fatal finding was recorded: an unknown table,
// or an unknown column on a real table. Unknown columns scoped to a CTE
// stay warnings since CTE column inference is approximate.
func (v *Validator) checkColumns(sqlQuery string, details *ErrorDetails) bool {
	ctes := ExtractCTEs(sqlQuery)
	cteColumns := map[string]map[string]bool{}
	cteWildcard := map[string]bool{}
	for _, cte := range ctes {
		cols := map[string]bool{}
		for _, c := range cte.Columns {
			if c == WildcardColumn {
				cteWildcard[strings.ToLower(cte.Name)] = true
				continue
			}
			cols[strings.ToLower(c)] = true
		}
		cteColumns[strings.ToLower(cte.Name)] = cols
	}

	outputAliases := map[string]bool{}
	for _, m := range aliasDefRe.FindAllStringSubmatch(sqlQuery, -1) {
		outputAliases[strings.ToLower(m[1])] = true
	}

	refs := extractTableRefs(sqlQuery)
	aliasToTable := map[string]string{}
	var realTables []string
	seenTable := map[string]bool{}
	fatal := false

	for _, ref := range refs {
		lower := strings.ToLower(ref.name)
		if _, isCTE := cteColumns[lower]; isCTE {
			if ref.alias != "" {
				aliasToTable[strings.ToLower(ref.alias)] = lower
			}
			aliasToTable[lower] = lower
			continue
		}
		if !v.catalog.HasTable(ref.name) {
			if !seenTable[lower] {
				seenTable[lower] = true
				details.MissingTables = append(details.MissingTables, ref.name)
				details.ErrorMessages = append(details.ErrorMessages,
					fmt.Sprintf("Table %s not found in schema", ref.name))
				fatal = true
			}
			continue
		}
		canonical, _ := v.catalog.CanonicalTable(ref.name)
		if !seenTable[lower] {
			seenTable[lower] = true
			realTables = append(realTables, canonical)
		}
		if ref.alias != "" {
			aliasToTable[strings.ToLower(ref.alias)] = canonical
		}
		aliasToTable[lower] = canonical
	}

	for _, ref := range extractColumnRefs(sqlQuery) {
		if ref.qualifier != "" {
			target, known := aliasToTable[strings.ToLower(ref.qualifier)]
			if !known {
				// Qualifier is neither a known table nor an alias;
				// already reported as a missing table if it was a
				// FROM/JOIN reference
				continue
			}
			if cols, isCTE := cteColumns[target]; isCTE {
				if cteWildcard[target] || cols[strings.ToLower(ref.column)] {
					continue
				}
				details.MissingColumns = append(details.MissingColumns,
					fmt.Sprintf("%s (in CTE %s)", ref.column, target))
				details.ErrorMessages = append(details.ErrorMessages,
					fmt.Sprintf("Column %s not found in CTE %s", ref.column, target))
				continue
			}
			if v.catalog.HasColumn(target, ref.column) {
				continue
			}
			if v.reportCamelCase(ref.column, target, details) {
				continue
			}
			details.MissingColumns = append(details.MissingColumns, ref.column)
			details.ErrorMessages = append(details.ErrorMessages,
				fmt.Sprintf("Column %s not found in table %s", ref.column, target))
			fatal = true
			continue
		}

		// Bare column: skip table names swept up by the comma form of
		// the reference pattern, and aliases defined in the query itself
		lower := strings.ToLower(ref.column)
		if _, isRef := aliasToTable[lower]; isRef || v.catalog.HasTable(ref.column) || outputAliases[lower] {
			continue
		}
		// Search referenced real tables first, then CTEs, then the
		// whole schema
		if v.bareColumnKnown(ref.column, realTables, cteColumns, cteWildcard) {
			continue
		}
		if len(realTables) > 0 && v.reportCamelCase(ref.column, realTables[0], details) {
			continue
		}
		// With CTEs in play the reference may target an output column
		// the inference missed, so the miss stays a warning
		if len(cteColumns) > 0 {
			details.MissingColumns = append(details.MissingColumns,
				fmt.Sprintf("%s (in CTE scope)", ref.column))
			details.ErrorMessages = append(details.ErrorMessages,
				fmt.Sprintf("Column %s not found in any CTE of this query", ref.column))
			continue
		}
		if len(realTables) > 0 {
			details.MissingColumns = append(details.MissingColumns, ref.column)
			details.ErrorMessages = append(details.ErrorMessages,
				fmt.Sprintf("Column %s not found in table %s", ref.column, realTables[0]))
			fatal = true
		}
	}

	return fatal
}

func (v *Validator) bareColumnKnown(column string, realTables []string, cteColumns map[string]map[string]bool, cteWildcard map[string]bool) bool {
	for _, table := range realTables {
		if v.catalog.HasColumn(table, column) {
			return true
		}
	}
	lower := strings.ToLower(column)
	for name, cols := range cteColumns {
		if cteWildcard[name] || cols[lower] {
			return true
		}
	}
	if len(realTables) == 0 && len(v.catalog.FindColumnAnywhere(column)) > 0 {
		return true
	}
	return false
}

// reportCamelCase records a rename suggestion when the column is a known
// camelCase form of a real snake_case column. Treated as a warning rather
// than a hard miss since the intended column is unambiguous.
func (v *Validator) reportCamelCase(column, table string, details *ErrorDetails) bool {
	if v.rules == nil {
		return false
	}
	snake, ok := v.rules.CamelCase[column]
	if !ok || !v.catalog.HasColumn(table, snake) {
		return false
	}
	details.MissingColumns = append(details.MissingColumns,
		fmt.Sprintf("%s (should be %s)", column, snake))
	details.ErrorMessages = append(details.ErrorMessages,
		fmt.Sprintf("Column %s should be %s", column, snake))
	return true
}

var (
	missingCTECommaRe = regexp.MustCompile(`\)\s*[A-Za-z_][A-Za-z0-9_]*\s+(?i:AS)\s*\(`)
	backtickPathRe    = regexp.MustCompile(`(?i)\b(FROM|JOIN)\s+` + dialect.WarehouseProject + `\.` + dialect.WarehouseDataset + `\.[A-Za-z0-9_]+`)
)

// checkDialectIssues records style findings specific to the warehouse
// dialect. These never invalidate a query on their own but cost
// confidence.
func (v *Validator) checkDialectIssues(sqlQuery string, details *ErrorDetails) {
	if v.dialect == nil || v.dialect.Name() != "warehouse" {
		return
	}

	ctes := map[string]bool{}
	for _, cte := range ExtractCTEs(sqlQuery) {
		ctes[strings.ToLower(cte.Name)] = true
	}

	// Bare catalog tables after FROM/JOIN need full qualification
	for _, ref := range extractTableRefs(sqlQuery) {
		if ctes[strings.ToLower(ref.name)] {
			continue
		}
		if v.catalog.HasTable(ref.name) && !strings.Contains(sqlQuery, dialect.WarehouseProject+"."+dialect.WarehouseDataset+"."+ref.name) {
			details.DialectIssues = append(details.DialectIssues,
				fmt.Sprintf("table %s should be qualified as `%s.%s.%s`",
					ref.name, dialect.WarehouseProject, dialect.WarehouseDataset, ref.name))
		}
	}

	if backtickPathRe.MatchString(sqlQuery) {
		details.DialectIssues = append(details.DialectIssues,
			"fully qualified table names should be enclosed in backticks")
	}

	if v.rules != nil {
		var camel []string
		for wrong := range v.rules.CamelCase {
			if regexp.MustCompile(`\b` + regexp.QuoteMeta(wrong) + `\b`).MatchString(sqlQuery) {
				camel = append(camel, wrong)
			}
		}
		sort.Strings(camel)
		for _, wrong := range camel {
			details.DialectIssues = append(details.DialectIssues,
				fmt.Sprintf("column %s uses camelCase; this schema uses snake_case (%s)", wrong, v.rules.CamelCase[wrong]))
		}
	}

	if strings.HasSuffix(strings.TrimSpace(sqlQuery), ";") {
		details.DialectIssues = append(details.DialectIssues,
			"trailing semicolon is not accepted by the warehouse engine")
	}

	upper := strings.ToUpper(sqlQuery)
	if strings.Contains(upper, "WITH") && missingCTECommaRe.MatchString(normalizeSQL(sqlQuery)) {
		details.DialectIssues = append(details.DialectIssues,
			"missing comma between CTE definitions")
	}

	v.checkJoinConditions(sqlQuery, details)
}

// checkJoinConditions walks the token stream after each JOIN looking for
// an ON or USING clause
func (v *Validator) checkJoinConditions(sqlQuery string, details *ErrorDetails) {
	fields := strings.Fields(normalizeSQL(sqlQuery))
	for i, f := range fields {
		if !strings.EqualFold(f, "JOIN") || i+1 >= len(fields) {
			continue
		}
		if i > 0 && strings.EqualFold(fields[i-1], "CROSS") {
			continue
		}
		table := fields[i+1]
		// table, optional AS, optional alias, then ON/USING
		j := i + 2
		if j < len(fields) && strings.EqualFold(fields[j], "AS") {
			j++
		}
		if j < len(fields) && !aliasKeywords[strings.ToLower(fields[j])] {
			j++
		}
		if j >= len(fields) || !(strings.EqualFold(fields[j], "ON") || strings.EqualFold(fields[j], "USING")) {
			details.DialectIssues = append(details.DialectIssues,
				fmt.Sprintf("JOIN %s has no ON or USING condition", strings.Trim(table, "`")))
		}
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
