/*-------------------------------------------------------------------------
 *
 * pgEdge Natural Language Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package retrieval

import (
	"fmt"
	"strings"
)

// BuildContext renders retrieved chunks into the schema context block of a
// generation prompt. Tables referenced by the chunks are expanded to their
// full column listings, related tables are pulled in through relationship
// edges, and the retriever's static notes are appended.
func (r *Retriever) BuildContext(chunks []Chunk) string {
	referenced := make(map[string]bool)
	for _, c := range chunks {
		if c.Table != "" {
			if canonical, ok := r.catalog.CanonicalTable(c.Table); ok {
				referenced[canonical] = true
			}
		}
	}

	// Pull in tables one relationship hop away so join targets are visible
	for table := range referenced {
		for _, edge := range r.catalog.Relationships(table) {
			if canonical, ok := r.catalog.CanonicalTable(edge.TargetTable); ok {
				referenced[canonical] = true
			}
		}
	}

	var b strings.Builder
	b.WriteString("Database Schema:\n")

	// Iterate in catalog order so the context is stable run to run
	ordered := make([]string, 0, len(referenced))
	for _, name := range r.catalog.Tables() {
		if referenced[name] {
			ordered = append(ordered, name)
		}
	}

	for _, name := range ordered {
		table, _ := r.catalog.Table(name)
		fmt.Fprintf(&b, "Table: %s\n", table.Name)
		b.WriteString("Columns:\n")
		for _, col := range table.Columns {
			if col.Description != "" {
				fmt.Fprintf(&b, "  - %s (%s): %s\n", col.Name, col.Type, col.Description)
			} else {
				fmt.Fprintf(&b, "  - %s (%s)\n", col.Name, col.Type)
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("Table Relationships:\n")
	for _, name := range ordered {
		for _, edge := range r.catalog.Relationships(name) {
			fmt.Fprintf(&b, "  - %s.%s references %s.%s\n",
				name, edge.SourceColumn, edge.TargetTable, edge.TargetColumn)
		}
	}

	if len(r.notes) > 0 {
		b.WriteString("\nSpecial Notes:\n")
		for _, note := range r.notes {
			fmt.Fprintf(&b, "  - %s\n", note)
		}
	}

	return b.String()
}
