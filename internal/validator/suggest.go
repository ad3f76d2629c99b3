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
	"fmt"
	"regexp"
	"strings"
)

var columnNotFoundRe = regexp.MustCompile(`^Column (\S+) not found in table (\S+)$`)

// SuggestFixes turns a validation result into actionable feedback for the
// next generation attempt: per-finding hints, general naming guidance,
// and, when the correction rules identify the intended column, a concrete
// corrected query.
func (v *Validator) SuggestFixes(result Result, sqlQuery string) string {
	if result.Feedback == cleanFeedback {
		return cleanFeedback
	}

	var fixes []string

	for _, col := range result.Details.MissingColumns {
		base := col
		if idx := strings.Index(base, " ("); idx != -1 {
			base = base[:idx]
		}
		switch {
		case strings.Contains(col, "should be"):
			fixes = append(fixes, fmt.Sprintf("Rename %s", col))
		case strings.EqualFold(base, "title"):
			fixes = append(fixes, "Use 'primary_title' instead of 'title'")
		case strings.EqualFold(base, "name"):
			fixes = append(fixes, "Use 'primary_name' instead of 'name'")
		case v.rules != nil && v.rules.CamelCase[base] != "":
			fixes = append(fixes, fmt.Sprintf("Use '%s' instead of '%s'", v.rules.CamelCase[base], base))
		default:
			fixes = append(fixes, fmt.Sprintf("Check that column '%s' exists in the referenced tables", base))
		}
	}

	for _, table := range result.Details.MissingTables {
		if v.rules != nil {
			if actual, ok := v.rules.TableAliases[strings.ToLower(table)]; ok {
				fixes = append(fixes, fmt.Sprintf("Use table '%s' instead of '%s'", actual, table))
				continue
			}
		}
		fixes = append(fixes, fmt.Sprintf("Check that table '%s' exists; available tables: %s",
			table, strings.Join(v.catalog.Tables(), ", ")))
	}

	for _, syntaxErr := range result.Details.SyntaxErrors {
		fixes = append(fixes, "Fix syntax: "+syntaxErr)
	}

	fixes = append(fixes, result.Details.DialectIssues...)

	out := result.Feedback
	if len(fixes) > 0 {
		out += "\n\nSuggested fixes:\n- " + strings.Join(fixes, "\n- ")
	}

	if corrected := v.correctQuery(result, sqlQuery); corrected != "" && corrected != sqlQuery {
		out += "\n\nCorrected query:\n" + corrected
	}
	return out
}

// correctQuery rewrites the query using the correction rules when every
// reported column error has a known fix. Returns "" when no confident
// rewrite exists.
func (v *Validator) correctQuery(result Result, sqlQuery string) string {
	if v.rules == nil || len(v.rules.ColumnFixes) == 0 {
		return ""
	}

	corrected := sqlQuery
	applied := false
	for _, msg := range result.Details.ErrorMessages {
		m := columnNotFoundRe.FindStringSubmatch(msg)
		if m == nil {
			continue
		}
		wrong, table := m[1], m[2]
		correct, ok := v.rules.ColumnFixes[table][wrong]
		if !ok {
			continue
		}

		qualified := regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)\.` + regexp.QuoteMeta(wrong) + `\b`)
		if qualified.MatchString(corrected) {
			replacement := "${1}." + correct
			if strings.Contains(correct, ".") {
				// Cross-table fix replaces the whole qualified reference
				replacement = correct
			}
			corrected = qualified.ReplaceAllString(corrected, replacement)
			applied = true
			continue
		}
		bare := regexp.MustCompile(`\b` + regexp.QuoteMeta(wrong) + `\b`)
		if bare.MatchString(corrected) {
			corrected = bare.ReplaceAllString(corrected, correct)
			applied = true
		}
	}

	if !applied {
		return ""
	}
	return corrected
}
