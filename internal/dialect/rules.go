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
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"pgedge-nlq-agent/internal/logging"
)

// Substitution is one regex rewrite applied to generated SQL
type Substitution struct {
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
}

// CorrectionRules are the mechanical fixes a dialect knows how to apply to
// generated SQL: column spelling conversions, per-table column corrections,
// table name aliases, and raw regex substitutions. They can be overridden
// from a yaml file and hot-reloaded while the agent runs.
type CorrectionRules struct {
	// CamelCase maps camelCase column spellings to their snake_case forms
	CamelCase map[string]string `yaml:"camel_case"`

	// ColumnFixes maps table name -> wrong column -> correct reference
	ColumnFixes map[string]map[string]string `yaml:"column_fixes"`

	// TableAliases maps colloquial table names to real ones
	TableAliases map[string]string `yaml:"table_aliases"`

	// Substitutions are regex rewrites for known column aliasing mistakes
	Substitutions []Substitution `yaml:"substitutions"`

	// Protected lists column names that substitutions must never touch
	Protected []string `yaml:"protected"`
}

// RuleSet holds the active correction rules behind a read-write lock so a
// file watcher can swap them while queries are being validated.
type RuleSet struct {
	mu    sync.RWMutex
	rules *CorrectionRules
}

// NewRuleSet creates a rule set starting from the given defaults
func NewRuleSet(defaults *CorrectionRules) *RuleSet {
	if defaults == nil {
		defaults = &CorrectionRules{}
	}
	return &RuleSet{rules: defaults}
}

// Get returns the current rules. The returned value must be treated as
// read-only.
func (rs *RuleSet) Get() *CorrectionRules {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return rs.rules
}

// LoadFromFile replaces the rules with the contents of a yaml file. The
// old rules are kept when the file cannot be read or parsed.
func (rs *RuleSet) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read correction rules: %w", err)
	}

	var rules CorrectionRules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return fmt.Errorf("failed to parse correction rules: %w", err)
	}

	rs.mu.Lock()
	rs.rules = &rules
	rs.mu.Unlock()

	logging.Info("Loaded correction rules", "path", path,
		"substitutions", len(rules.Substitutions), "column_fixes", len(rules.ColumnFixes))
	return nil
}

// Watch starts a file watcher that reloads the rules whenever the file
// changes. The caller stops the returned watcher on shutdown.
func (rs *RuleSet) Watch(path string) (*FileWatcher, error) {
	watcher, err := NewFileWatcher(path, func() error {
		return rs.LoadFromFile(path)
	})
	if err != nil {
		return nil, err
	}
	watcher.Start()
	return watcher, nil
}

// DefaultRetailRules returns the built-in corrections for the retail
// schema: the column aliasing mistakes models make most often.
func DefaultRetailRules() *CorrectionRules {
	return &CorrectionRules{
		Substitutions: []Substitution{
			{Pattern: `\bo\.order_status\b`, Replacement: "o.status"},
			{Pattern: `\border_status\b`, Replacement: "status"},
			{Pattern: `\bsegment\b`, Replacement: "customer_segment"},
			{Pattern: `\bcustomer_state\b`, Replacement: "state"},
		},
		Protected: []string{"customer_segment", "status", "state"},
	}
}

// DefaultWarehouseRules returns the built-in corrections for the IMDB
// warehouse schema.
func DefaultWarehouseRules() *CorrectionRules {
	return &CorrectionRules{
		CamelCase: map[string]string{
			"primaryName":       "primary_name",
			"titleType":         "title_type",
			"birthYear":         "birth_year",
			"deathYear":         "death_year",
			"primaryTitle":      "primary_title",
			"originalTitle":     "original_title",
			"isAdult":           "is_adult",
			"startYear":         "start_year",
			"endYear":           "end_year",
			"runtimeMinutes":    "runtime_minutes",
			"primaryProfession": "primary_profession",
			"knownForTitles":    "known_for_titles",
			"averageRating":     "average_rating",
			"numVotes":          "num_votes",
		},
		ColumnFixes: map[string]map[string]string{
			"title_basics": {
				"name":           "primary_title",
				"title":          "primary_title",
				"primaryTitle":   "primary_title",
				"originalTitle":  "original_title",
				"startYear":      "start_year",
				"endYear":        "end_year",
				"runtimeMinutes": "runtime_minutes",
			},
			"name_basics": {
				"title":       "primary_name",
				"name":        "primary_name",
				"primaryName": "primary_name",
				"birthYear":   "birth_year",
				"deathYear":   "death_year",
			},
			"title_principals": {
				"title":         "title_basics.primary_title",
				"primary_title": "title_basics.primary_title",
				"name":          "name_basics.primary_name",
				"primary_name":  "name_basics.primary_name",
				"titleId":       "tconst",
				"personId":      "nconst",
			},
			"title_crew": {
				"name":         "name_basics.primary_name",
				"primary_name": "name_basics.primary_name",
			},
		},
		TableAliases: map[string]string{
			"movies":  "title_basics",
			"films":   "title_basics",
			"titles":  "title_basics",
			"actors":  "name_basics",
			"people":  "name_basics",
			"persons": "name_basics",
			"names":   "name_basics",
			"ratings": "title_ratings",
		},
	}
}
