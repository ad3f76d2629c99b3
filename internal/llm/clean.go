/*-------------------------------------------------------------------------
 *
 * pgEdge Natural Language Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package llm

import "strings"

// CleanSQL removes markdown formatting, comments, label prefixes, and
// explanatory text from a model reply, leaving the first SQL statement.
// Backticks inside the statement are preserved since warehouse dialects
// use them as identifier quotes.
func CleanSQL(input string) string {
	input = strings.TrimSpace(input)

	// Remove ```sql or ``` at the beginning
	if after, found := strings.CutPrefix(input, "```sql"); found {
		input = after
	} else if after, found := strings.CutPrefix(input, "```"); found {
		input = after
	}

	// Remove ``` at the end
	input = strings.TrimSuffix(input, "```")
	input = strings.TrimSpace(input)

	// Remove a leading "SQL:" label some models insist on
	if after, found := strings.CutPrefix(input, "SQL:"); found {
		input = strings.TrimSpace(after)
	} else if after, found := strings.CutPrefix(input, "sql:"); found {
		input = strings.TrimSpace(after)
	}

	// Remove multi-line comments /* ... */ before splitting lines
	for {
		start := strings.Index(input, "/*")
		if start == -1 {
			break
		}
		end := strings.Index(input[start:], "*/")
		if end == -1 {
			break
		}
		end += start + 2
		input = input[:start] + " " + input[end:]
	}

	lines := strings.Split(input, "\n")
	var sqlLines []string
	foundSQL := false
	hitSemicolon := false

	for _, line := range lines {
		line = strings.TrimSpace(line)

		if line == "" {
			continue
		}

		// Skip single-line comments
		if strings.HasPrefix(line, "--") {
			continue
		}

		// Remove inline comments
		if idx := strings.Index(line, "--"); idx > 0 {
			line = strings.TrimSpace(line[:idx])
		}

		// Keep only the part before the first semicolon
		if strings.Contains(line, ";") {
			parts := strings.SplitN(line, ";", 2)
			line = strings.TrimSpace(parts[0])
			hitSemicolon = true
		}

		upperLine := strings.ToUpper(line)
		isSQLStart := strings.HasPrefix(upperLine, "SELECT") ||
			strings.HasPrefix(upperLine, "INSERT") ||
			strings.HasPrefix(upperLine, "UPDATE") ||
			strings.HasPrefix(upperLine, "DELETE") ||
			strings.HasPrefix(upperLine, "WITH") ||
			strings.HasPrefix(upperLine, "CREATE") ||
			strings.HasPrefix(upperLine, "ALTER") ||
			strings.HasPrefix(upperLine, "DROP") ||
			strings.HasPrefix(upperLine, "EXPLAIN") ||
			strings.HasPrefix(upperLine, "ANALYZE")

		if isSQLStart {
			foundSQL = true
		}

		if foundSQL && line != "" {
			// If the line looks like explanatory prose after the SQL
			// started, stop collecting
			if !isSQLStart && (strings.HasPrefix(upperLine, "THIS ") ||
				strings.HasPrefix(upperLine, "THE ") ||
				strings.HasPrefix(upperLine, "WILL ") ||
				strings.HasPrefix(upperLine, "RETURNS ") ||
				strings.HasPrefix(upperLine, "NOTE:") ||
				strings.HasPrefix(upperLine, "EXPLANATION:")) {
				break
			}

			sqlLines = append(sqlLines, line)
		}

		// Stop at the end of the first statement
		if hitSemicolon {
			break
		}
	}

	result := strings.Join(sqlLines, " ")
	result = strings.TrimSpace(result)
	result = strings.TrimSuffix(result, "```")

	// Normalize whitespace
	result = strings.Join(strings.Fields(result), " ")

	return result
}
