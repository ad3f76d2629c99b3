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

// Granularity identifies the level of schema detail a chunk describes
type Granularity string

const (
	GranularityDatabase     Granularity = "database"
	GranularityTable        Granularity = "table"
	GranularityColumn       Granularity = "column"
	GranularityRelationship Granularity = "relationship"
)

// Chunk is one embeddable unit of schema text. Chunks are built once during
// retriever initialization and are read-only afterwards.
type Chunk struct {
	ID          int
	Granularity Granularity
	Table       string
	Column      string
	Text        string
	Embedding   []float64
}
