/*-------------------------------------------------------------------------
 *
 * pgEdge Natural Language Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package generator

import (
	"fmt"
	"regexp"

	"pgedge-nlq-agent/internal/dialect"
	"pgedge-nlq-agent/internal/logging"
)

// FixCommonColumnMistakes applies the dialect's substitution rules to a
// generated query. Correct occurrences of protected column names are
// swapped out for placeholders first so a substitution can never damage a
// reference that was already right.
func FixCommonColumnMistakes(sqlQuery string, rules *dialect.CorrectionRules) string {
	if rules == nil || len(rules.Substitutions) == 0 {
		return sqlQuery
	}

	original := sqlQuery

	placeholders := make(map[string]string)
	for i, col := range rules.Protected {
		pattern, err := regexp.Compile(`\b` + regexp.QuoteMeta(col) + `\b`)
		if err != nil {
			continue
		}
		placeholder := fmt.Sprintf("__PROTECTED_COL_%d__", i)
		if pattern.MatchString(sqlQuery) {
			sqlQuery = pattern.ReplaceAllString(sqlQuery, placeholder)
			placeholders[placeholder] = col
		}
	}

	for _, sub := range rules.Substitutions {
		pattern, err := regexp.Compile(sub.Pattern)
		if err != nil {
			logging.Warn("Skipping invalid substitution pattern", "pattern", sub.Pattern, "error", err.Error())
			continue
		}
		sqlQuery = pattern.ReplaceAllString(sqlQuery, sub.Replacement)
	}

	for placeholder, col := range placeholders {
		pattern := regexp.MustCompile(regexp.QuoteMeta(placeholder))
		sqlQuery = pattern.ReplaceAllString(sqlQuery, col)
	}

	if sqlQuery != original {
		logging.Info("Corrected common column mistakes",
			"original", original, "corrected", sqlQuery)
	}

	return sqlQuery
}
