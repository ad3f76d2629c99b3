/*-------------------------------------------------------------------------
 *
 * pgEdge Natural Language Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package schema

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"pgedge-nlq-agent/internal/logging"
)

// maxSampleRows is how many example rows are captured per table for
// retrieval context.
const maxSampleRows = 2

// LoadSQLite introspects a SQLite database file and builds a catalog from
// its live schema: table list from sqlite_master, columns from PRAGMA
// table_info, relationships from PRAGMA foreign_key_list. A failure to open
// or read the database is fatal.
func LoadSQLite(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	defer db.Close()

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		if !strings.HasPrefix(name, "sqlite_") {
			names = append(names, name)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("database %s contains no tables", path)
	}

	var tables []TableSchema
	var edges []RelationshipEdge
	for _, name := range names {
		t, err := loadTableInfo(db, name)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)

		tableEdges, err := loadForeignKeys(db, name)
		if err != nil {
			return nil, err
		}
		edges = append(edges, tableEdges...)
	}

	if len(edges) == 0 {
		edges = InferRelationships(tables)
	}

	catalog := NewCatalog(tables, edges, path)
	for _, name := range names {
		samples, err := loadSamples(db, name)
		if err != nil {
			// Sample rows only enrich retrieval context; keep going
			logging.Warn("Failed to read sample rows", "table", name, "error", err.Error())
			continue
		}
		catalog.SetSamples(name, samples)
	}
	return catalog, nil
}

func loadTableInfo(db *sql.DB, table string) (TableSchema, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%q)", table))
	if err != nil {
		return TableSchema{}, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	defer rows.Close()

	t := TableSchema{Name: table}
	for rows.Next() {
		var (
			cid        int
			name       string
			ctype      string
			notnull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &defaultVal, &pk); err != nil {
			return TableSchema{}, fmt.Errorf("failed to scan column of %s: %w", table, err)
		}
		t.Columns = append(t.Columns, ColumnSchema{
			Name:       name,
			Type:       ctype,
			PrimaryKey: pk == 1,
		})
	}
	if err := rows.Err(); err != nil {
		return TableSchema{}, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	return t, nil
}

func loadForeignKeys(db *sql.DB, table string) ([]RelationshipEdge, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA foreign_key_list(%q)", table))
	if err != nil {
		return nil, fmt.Errorf("failed to read foreign keys of %s: %w", table, err)
	}
	defer rows.Close()

	var edges []RelationshipEdge
	for rows.Next() {
		var (
			id, seq            int
			target, from, to   string
			onUpdate, onDelete string
			match              string
		)
		if err := rows.Scan(&id, &seq, &target, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return nil, fmt.Errorf("failed to scan foreign key of %s: %w", table, err)
		}
		edges = append(edges, RelationshipEdge{
			SourceTable:  table,
			SourceColumn: from,
			TargetTable:  target,
			TargetColumn: to,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read foreign keys of %s: %w", table, err)
	}
	return edges, nil
}

func loadSamples(db *sql.DB, table string) ([]SampleRow, error) {
	rows, err := db.Query(fmt.Sprintf("SELECT * FROM %q LIMIT %d", table, maxSampleRows))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var samples []SampleRow
	for rows.Next() {
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(SampleRow, len(cols))
		for i, col := range cols {
			row[col] = values[i]
		}
		samples = append(samples, row)
	}
	return samples, rows.Err()
}
