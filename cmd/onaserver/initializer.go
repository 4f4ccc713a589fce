package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"strings"

	"ona/internal/config"
	"ona/internal/knowledge"
	"ona/internal/mcpserver"
	"ona/internal/nar"
	"ona/internal/snapshot"
)

// ServerComponents bundles every initialized subsystem, for Cleanup and for
// testability (initializer_test.go inspects each field directly rather
// than reaching into main).
type ServerComponents struct {
	State *nar.State

	// SnapshotStore is nil unless ONA_SNAPSHOT_PATH is set.
	SnapshotStore *snapshot.Store

	// Neo4jClient and ConceptSink are nil unless NEO4J_ENABLED is set.
	Neo4jClient *knowledge.Neo4jClient
	ConceptSink *knowledge.ConceptSink

	// SimilarityIndex is always present: it is local and dependency-free,
	// persisted to disk only if ONA_VECTOR_INDEX_PATH is set.
	SimilarityIndex *knowledge.SimilarityIndex

	Server *mcpserver.Server
}

// InitializeServer builds a ServerComponents from environment/configuration,
// loading a prior checkpoint and wiring optional diagnostic sinks.
func InitializeServer() (*ServerComponents, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	state := nar.Init(cfg)

	components := &ServerComponents{State: state}

	if err := initializeSnapshot(components); err != nil {
		return nil, err
	}

	if err := initializeKnowledgeGraph(components); err != nil {
		return nil, err
	}

	idx, err := knowledge.NewSimilarityIndex(knowledge.SimilarityIndexConfig{
		PersistPath: os.Getenv("ONA_VECTOR_INDEX_PATH"),
	})
	if err != nil {
		return nil, err
	}
	components.SimilarityIndex = idx

	var opts []mcpserver.Option
	if components.ConceptSink != nil {
		opts = append(opts, mcpserver.WithConceptSink(components.ConceptSink))
	}
	opts = append(opts, mcpserver.WithSimilarityIndex(idx))
	components.Server = mcpserver.NewServer(state, opts...)

	return components, nil
}

// loadConfig builds the reasoner's static configuration: a YAML file named
// by ONA_CONFIG_FILE layered under Default, then environment overrides on
// top, matching config.FromFile's own precedence. No file means plain
// environment overrides over Default.
func loadConfig() (*config.Config, error) {
	if path := os.Getenv("ONA_CONFIG_FILE"); path != "" {
		return config.FromFile(path)
	}
	return config.FromEnv()
}

// initializeSnapshot opens and loads a prior checkpoint when
// ONA_SNAPSHOT_PATH is set. A missing or empty file is not an error: Open
// creates the schema fresh and Load simply finds no rows.
func initializeSnapshot(components *ServerComponents) error {
	path := os.Getenv("ONA_SNAPSHOT_PATH")
	if path == "" {
		return nil
	}

	busyTimeoutMs := 5000
	if v := os.Getenv("ONA_SNAPSHOT_BUSY_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			busyTimeoutMs = n
		}
	}

	store, err := snapshot.Open(path, busyTimeoutMs)
	if err != nil {
		return err
	}
	if err := store.Load(components.State.Concepts); err != nil {
		store.Close()
		return err
	}
	components.SnapshotStore = store
	log.Printf("Loaded checkpoint from %s", path)
	return nil
}

// initializeKnowledgeGraph connects to Neo4j and installs the mirror schema
// when NEO4J_ENABLED is set. Connection or schema failures are logged and
// absorbed: the knowledge graph is a diagnostic sink, never a dependency
// the core reads back from, so its absence must never prevent the server
// from starting.
func initializeKnowledgeGraph(components *ServerComponents) error {
	if !strings.EqualFold(os.Getenv("NEO4J_ENABLED"), "true") {
		return nil
	}

	cfg := knowledge.DefaultConfig()
	client, err := knowledge.NewNeo4jClient(cfg)
	if err != nil {
		log.Printf("Warning: Neo4j unavailable, mirroring disabled: %v", err)
		return nil
	}

	ctx := context.Background()
	if err := knowledge.InitializeSchema(ctx, client, cfg.Database); err != nil {
		log.Printf("Warning: Neo4j schema init failed, mirroring disabled: %v", err)
		client.Close(ctx)
		return nil
	}

	components.Neo4jClient = client
	components.ConceptSink = knowledge.NewConceptSink(client, cfg.Database)
	log.Println("Neo4j concept mirroring enabled")
	return nil
}

// Cleanup saves a final checkpoint and closes every open resource. Errors
// from the checkpoint save are reported but do not prevent the remaining
// resources from closing.
func (c *ServerComponents) Cleanup() error {
	var firstErr error

	if c.SnapshotStore != nil {
		if err := c.SnapshotStore.Save(c.State.Concepts); err != nil {
			log.Printf("Warning: final checkpoint save failed: %v", err)
			if firstErr == nil {
				firstErr = err
			}
		}
		if err := c.SnapshotStore.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if c.Neo4jClient != nil {
		if err := c.Neo4jClient.Close(context.Background()); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
