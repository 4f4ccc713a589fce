package knowledge

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/config"

	"ona/internal/concept"
	"ona/internal/implication"
	"ona/internal/term"
)

// Neo4jClient owns the driver connection a ConceptSink mirrors concept
// memory through. Its only transaction surface is the unexported
// writeCypher: a client holds no generic read/query API, since nothing in this package
// ever needs one — every Cypher statement the mirror issues is an upsert
// tied to a concept or implication.
type Neo4jClient struct {
	driver  neo4j.DriverWithContext
	uri     string
	timeout time.Duration
}

// Neo4jConfig holds Neo4j connection configuration.
type Neo4jConfig struct {
	URI      string
	Username string
	Password string
	Database string
	Timeout  time.Duration
}

// DefaultConfig returns default Neo4j configuration from environment
// variables, read by cmd/onaserver's NEO4J_ENABLED-gated bootstrap.
func DefaultConfig() Neo4jConfig {
	cfg := Neo4jConfig{
		URI:      getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Username: getEnv("NEO4J_USERNAME", "neo4j"),
		Password: getEnv("NEO4J_PASSWORD", "password"),
		Database: getEnv("NEO4J_DATABASE", "neo4j"),
		Timeout:  5 * time.Second,
	}

	if timeoutStr := os.Getenv("NEO4J_TIMEOUT_MS"); timeoutStr != "" {
		if ms, err := strconv.Atoi(timeoutStr); err == nil && ms > 0 {
			cfg.Timeout = time.Duration(ms) * time.Millisecond
		}
	}

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// NewNeo4jClient creates a new Neo4j client with connection pooling and
// verifies connectivity before returning.
func NewNeo4jClient(cfg Neo4jConfig) (*Neo4jClient, error) {
	driver, err := neo4j.NewDriverWithContext(
		cfg.URI,
		neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
		func(config *config.Config) {
			config.MaxConnectionPoolSize = 50
			config.ConnectionAcquisitionTimeout = cfg.Timeout
			config.SocketConnectTimeout = cfg.Timeout
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Neo4j driver: %w", err)
	}

	client := &Neo4jClient{
		driver:  driver,
		uri:     cfg.URI,
		timeout: cfg.Timeout,
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to verify Neo4j connectivity: %w", err)
	}

	return client, nil
}

// Close closes the Neo4j driver and releases resources.
func (c *Neo4jClient) Close(ctx context.Context) error {
	if c.driver != nil {
		return c.driver.Close(ctx)
	}
	return nil
}

// VerifyConnectivity checks if the client can connect to Neo4j.
func (c *Neo4jClient) VerifyConnectivity(ctx context.Context) error {
	return c.driver.VerifyConnectivity(ctx)
}

// writeCypher runs query as a single write transaction against database and
// discards its result, the shape every upsert and schema statement in this
// package needs: open a session, run one statement, consume, close. Folding
// it here keeps the ConceptSink/schema call sites free of session and
// transaction-work boilerplate.
func (c *Neo4jClient) writeCypher(ctx context.Context, database, query string, params map[string]interface{}) error {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: database,
		AccessMode:   neo4j.AccessModeWrite,
	})
	defer func() { _ = session.Close(ctx) }()

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	return err
}

// ConceptSink mirrors concept memory into Neo4j: one `:Concept` node per
// concept key, one `:IMPLIES` relationship per stored procedural or
// declarative implication. Writes are idempotent MERGE upserts so SyncMemory
// can be called repeatedly (e.g. once per diagnostic interval) without
// accumulating duplicate nodes or relationships.
type ConceptSink struct {
	client   *Neo4jClient
	database string
}

// NewConceptSink creates a sink writing through client against database.
func NewConceptSink(client *Neo4jClient, database string) *ConceptSink {
	return &ConceptSink{client: client, database: database}
}

// UpsertConcept merges a single concept node, updating its priority and
// usefulness if the node already exists.
func (s *ConceptSink) UpsertConcept(ctx context.Context, key string, priority, usefulness float64) error {
	query := `
		MERGE (c:Concept {key: $key})
		SET c.priority = $priority, c.usefulness = $usefulness
	`
	params := map[string]interface{}{
		"key":        key,
		"priority":   priority,
		"usefulness": usefulness,
	}
	return s.client.writeCypher(ctx, s.database, query, params)
}

// UpsertImplication merges an IMPLIES relationship from the precondition
// concept to the postcondition concept, creating both endpoint nodes if
// they are not already mirrored.
func (s *ConceptSink) UpsertImplication(ctx context.Context, fromKey, toKey, termText string, frequency, confidence, offset float64) error {
	query := `
		MERGE (from:Concept {key: $from_key})
		MERGE (to:Concept {key: $to_key})
		MERGE (from)-[r:IMPLIES {term: $term}]->(to)
		SET r.frequency = $frequency, r.confidence = $confidence, r.offset = $offset
	`
	params := map[string]interface{}{
		"from_key":   fromKey,
		"to_key":     toKey,
		"term":       termText,
		"frequency":  frequency,
		"confidence": confidence,
		"offset":     offset,
	}
	return s.client.writeCypher(ctx, s.database, query, params)
}

// SyncMemory mirrors every concept and implication currently in mem. It
// stops at the first write error; a partially mirrored graph is an
// acceptable diagnostic state (the next SyncMemory call repairs it) since
// nothing in the inference cycle reads the mirror back.
func (s *ConceptSink) SyncMemory(ctx context.Context, mem *concept.Memory) error {
	for _, key := range mem.AllKeys() {
		c, ok := mem.GetByKeyString(key)
		if !ok {
			continue
		}
		if err := s.UpsertConcept(ctx, key, c.Priority, c.Usefulness); err != nil {
			return err
		}

		var syncErr error
		c.IterateImplications(func(imp implication.Implication) bool {
			fromKey := term.Format(term.ConceptKey(imp.Precondition()))
			syncErr = s.UpsertImplication(ctx, fromKey, key, term.Format(imp.Term), imp.Truth.Frequency, imp.Truth.Confidence, imp.Offset)
			return syncErr == nil
		})
		if syncErr != nil {
			return syncErr
		}
	}
	return nil
}
