/*-------------------------------------------------------------------------
 *
 * pgEdge Natural Language Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package validator

import (
	"regexp"
	"strings"
)

// WildcardColumn marks a CTE whose output columns cannot be enumerated
// because it selects *. Per-column checks are suppressed for such CTEs.
const WildcardColumn = "*"

// CTE is one common table expression extracted from a query
type CTE struct {
	Name       string
	Definition string
	Columns    []string
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	withStartRe  = regexp.MustCompile(`(?i)^\s*WITH\b`)
	cteHeaderRe  = regexp.MustCompile(`(?i)^\s*,?\s*([A-Za-z_][A-Za-z0-9_]*)\s+AS\s*\(`)
	asAliasRe    = regexp.MustCompile(`(?i)\bAS\s+(` + "`[^`]+`" + `|[A-Za-z_][A-Za-z0-9_]*)`)
	trailingIDRe = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*)$`)
	aggregateRe  = regexp.MustCompile(`(?i)\b(COUNT|SUM|AVG|MIN|MAX)\s*\(\s*(?:DISTINCT\s+)?([^()]+)\)`)
)

// normalizeSQL collapses runs of whitespace so the extraction regexes can
// work on a single line
func normalizeSQL(sql string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(sql, " "))
}

// ExtractCTEs parses the leading WITH clause of a query into named CTEs,
// in definition order. Nested parentheses and backtick-quoted identifiers
// inside a definition are handled; queries without a leading WITH return
// nil.
func ExtractCTEs(sql string) []CTE {
	normalized := normalizeSQL(sql)
	if !withStartRe.MatchString(normalized) {
		return nil
	}

	rest := normalized[len("WITH"):]
	var ctes []CTE

	for {
		header := cteHeaderRe.FindStringSubmatchIndex(rest)
		if header == nil {
			break
		}
		name := rest[header[2]:header[3]]
		bodyStart := header[1] // just past the opening paren

		body, end, ok := matchParens(rest, bodyStart)
		if !ok {
			break
		}

		ctes = append(ctes, CTE{
			Name:       name,
			Definition: strings.TrimSpace(body),
			Columns:    extractCTEColumns(body),
		})

		rest = rest[end:]

		// A comma continues the CTE list; anything else ends it
		trimmed := strings.TrimLeft(rest, " ")
		if !strings.HasPrefix(trimmed, ",") {
			break
		}
	}

	return ctes
}

// matchParens returns the text between position start (just past an open
// paren) and its matching close paren, skipping quoted regions. The second
// return value is the index just past the closing paren.
func matchParens(s string, start int) (string, int, bool) {
	depth := 1
	var quote byte
	for i := start; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"', '`':
			quote = c
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return s[start:i], i + 1, true
			}
		}
	}
	return "", 0, false
}

// splitTopLevel splits s on commas that sit outside parentheses and
// quoted regions
func splitTopLevel(s string) []string {
	var parts []string
	var current strings.Builder
	depth := 0
	var quote byte

	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			current.WriteByte(c)
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"', '`':
			quote = c
			current.WriteByte(c)
		case '(':
			depth++
			current.WriteByte(c)
		case ')':
			depth--
			current.WriteByte(c)
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(current.String()))
				current.Reset()
			} else {
				current.WriteByte(c)
			}
		default:
			current.WriteByte(c)
		}
	}
	if trimmed := strings.TrimSpace(current.String()); trimmed != "" {
		parts = append(parts, trimmed)
	}
	return parts
}

// extractCTEColumns infers the output column names of a CTE from its
// SELECT clause. Explicit AS aliases win, then trailing bare identifiers,
// then synthesized func_column names for aggregates. SELECT * yields the
// wildcard marker.
func extractCTEColumns(definition string) []string {
	normalized := normalizeSQL(definition)

	upper := strings.ToUpper(normalized)
	selectPos := strings.Index(upper, "SELECT")
	if selectPos == -1 {
		return nil
	}
	clause := normalized[selectPos+len("SELECT"):]

	// Stop at the first FROM outside parentheses
	if fromPos := topLevelIndex(clause, "FROM"); fromPos != -1 {
		clause = clause[:fromPos]
	}
	clause = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(clause), "DISTINCT "))

	if clause == "*" {
		return []string{WildcardColumn}
	}

	var columns []string
	for _, expr := range splitTopLevel(clause) {
		columns = append(columns, inferColumnName(expr))
	}
	return columns
}

// topLevelIndex finds keyword as a standalone word outside parentheses
// and quotes, case-insensitively
func topLevelIndex(s, keyword string) int {
	depth := 0
	var quote byte
	upper := strings.ToUpper(s)
	kw := strings.ToUpper(keyword)

	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"', '`':
			quote = c
		case '(':
			depth++
		case ')':
			depth--
		default:
			if depth == 0 && strings.HasPrefix(upper[i:], kw) {
				beforeOK := i == 0 || !isWordChar(s[i-1])
				afterOK := i+len(kw) == len(s) || !isWordChar(s[i+len(kw)])
				if beforeOK && afterOK {
					return i
				}
			}
		}
	}
	return -1
}

func isWordChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// inferColumnName derives the output name of one SELECT expression
func inferColumnName(expr string) string {
	expr = strings.TrimSpace(expr)

	// Explicit AS alias
	if m := asAliasRe.FindStringSubmatch(expr); m != nil {
		alias := strings.Trim(m[1], "`")
		if idx := strings.LastIndex(alias, "."); idx != -1 {
			alias = alias[idx+1:]
		}
		return alias
	}

	// Trailing bare identifier: either the column itself or an implicit
	// alias ("price * quantity total")
	if m := trailingIDRe.FindStringSubmatch(expr); m != nil {
		return m[1]
	}

	// Aggregates without an alias get a synthesized name
	if m := aggregateRe.FindStringSubmatch(expr); m != nil {
		col := strings.Trim(strings.TrimSpace(m[2]), "`\" ")
		if col == "*" {
			return strings.ToLower(m[1])
		}
		if idx := strings.LastIndex(col, "."); idx != -1 {
			col = col[idx+1:]
		}
		return strings.ToLower(m[1]) + "_" + col
	}

	return expr
}
