package knowledge

import (
	"context"
	"os"
	"testing"
	"time"

	"ona/internal/concept"
	"ona/internal/event"
	"ona/internal/implication"
	"ona/internal/operation"
	"ona/internal/term"
	"ona/internal/truth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		expected Neo4jConfig
	}{
		{
			name: "default values",
			env:  map[string]string{},
			expected: Neo4jConfig{
				URI:      "bolt://localhost:7687",
				Username: "neo4j",
				Password: "password",
				Database: "neo4j",
				Timeout:  5 * time.Second,
			},
		},
		{
			name: "custom values from env",
			env: map[string]string{
				"NEO4J_URI":        "bolt://remote:7687",
				"NEO4J_USERNAME":   "admin",
				"NEO4J_PASSWORD":   "secret",
				"NEO4J_DATABASE":   "graph",
				"NEO4J_TIMEOUT_MS": "10000",
			},
			expected: Neo4jConfig{
				URI:      "bolt://remote:7687",
				Username: "admin",
				Password: "secret",
				Database: "graph",
				Timeout:  10 * time.Second,
			},
		},
		{
			name: "invalid timeout falls back to default",
			env: map[string]string{
				"NEO4J_TIMEOUT_MS": "invalid",
			},
			expected: Neo4jConfig{
				URI:      "bolt://localhost:7687",
				Username: "neo4j",
				Password: "password",
				Database: "neo4j",
				Timeout:  5 * time.Second,
			},
		},
	}

	neo4jVars := []string{"NEO4J_URI", "NEO4J_USERNAME", "NEO4J_PASSWORD", "NEO4J_DATABASE", "NEO4J_TIMEOUT_MS"}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := make(map[string]string)
			for _, k := range neo4jVars {
				original[k] = os.Getenv(k)
				os.Unsetenv(k)
			}
			defer func() {
				for k, v := range original {
					if v != "" {
						os.Setenv(k, v)
					} else {
						os.Unsetenv(k)
					}
				}
			}()

			for k, v := range tt.env {
				os.Setenv(k, v)
			}

			assert.Equal(t, tt.expected, DefaultConfig())
		})
	}
}

func TestNewNeo4jClient_ConnectionFailure(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping network-dependent test in short mode")
	}
	cfg := Neo4jConfig{
		URI:      "bolt://nonexistent:7687",
		Username: "neo4j",
		Password: "password",
		Database: "neo4j",
		Timeout:  200 * time.Millisecond,
	}
	_, err := NewNeo4jClient(cfg)
	assert.Error(t, err)
}

func TestConceptSink_SyncMemory(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cfg := DefaultConfig()
	client, err := NewNeo4jClient(cfg)
	if err != nil {
		t.Skipf("Neo4j not available: %v", err)
	}
	defer client.Close(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, InitializeSchema(ctx, client, cfg.Database))
	require.NoError(t, ClearAllData(ctx, client, cfg.Database))

	mem := concept.New(operation.New(), 64)
	mem.AddEvent(event.Event{
		Term:           term.MakeAtomic("a"),
		Kind:           event.Belief,
		Truth:          truth.Value{Frequency: 1.0, Confidence: 0.9},
		OccurrenceTime: event.Eternal,
	}, 0, 1.0)
	impTerm := term.MakeCompound(term.TemporalImplication, term.MakeAtomic("a"), term.MakeAtomic("b"))
	mem.AddImplication(implication.New(impTerm, truth.Value{Frequency: 0.8, Confidence: 0.7}, event.NewStamp(1), 3, 0), 1.0)

	sink := NewConceptSink(client, cfg.Database)
	require.NoError(t, sink.SyncMemory(ctx, mem))

	// Syncing twice must stay idempotent: no duplicate nodes/relationships.
	require.NoError(t, sink.SyncMemory(ctx, mem))
}
