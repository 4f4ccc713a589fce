// Package knowledge mirrors concept memory into optional external sinks
// (Neo4j, a vector-similarity index) for inspection. Neither sink
// participates in the inference cycle: both are write-after-the-fact
// diagnostics a host process may wire up, never a dependency the core reads
// back from.
package knowledge

import (
	"context"
	"fmt"
)

// InitializeSchema creates the constraints and indexes the concept graph
// mirror relies on: one uniqueness constraint on a concept's key, an index
// on concept priority, and an index on implication confidence for "most
// confident incoming links" queries against the mirrored graph.
func InitializeSchema(ctx context.Context, client *Neo4jClient, database string) error {
	queries := []string{
		"CREATE CONSTRAINT concept_key_unique IF NOT EXISTS FOR (c:Concept) REQUIRE c.key IS UNIQUE",
		"CREATE INDEX concept_priority_idx IF NOT EXISTS FOR (c:Concept) ON (c.priority)",
		"CREATE INDEX implies_confidence_idx IF NOT EXISTS FOR ()-[r:IMPLIES]-() ON (r.confidence)",
	}

	for _, query := range queries {
		if err := client.writeCypher(ctx, database, query, nil); err != nil {
			return fmt.Errorf("knowledge: schema query %q: %w", query, err)
		}
	}
	return nil
}

// DropSchema removes the constraints and indexes InitializeSchema creates,
// for test cleanup against a scratch database.
func DropSchema(ctx context.Context, client *Neo4jClient, database string) error {
	queries := []string{
		"DROP CONSTRAINT concept_key_unique IF EXISTS",
		"DROP INDEX concept_priority_idx IF EXISTS",
		"DROP INDEX implies_confidence_idx IF EXISTS",
	}
	for _, query := range queries {
		_ = client.writeCypher(ctx, database, query, nil)
	}
	return nil
}

// ClearAllData removes every mirrored concept and implication, for test
// cleanup against a scratch database.
func ClearAllData(ctx context.Context, client *Neo4jClient, database string) error {
	return client.writeCypher(ctx, database, "MATCH (n:Concept) DETACH DELETE n", nil)
}
