// Package main provides the entry point for the ONA MCP server.
//
// This server is designed to be spawned as a child process by an MCP host
// and communicates via stdio using the Model Context Protocol. It should
// not be run manually by users.
//
// The server wraps a single nar.State and exposes its programmatic API
// (add-belief, add-goal, register-operation, cycle, ask, stats,
// set-config) as MCP tools, plus a similar-concepts tool over the
// bag-of-atoms similarity index. It performs no reasoning itself; every
// tool call only reaches into internal/nar or internal/knowledge.
//
// Environment variables:
//   - DEBUG: set to "true" to enable debug logging
//   - ONA_CONFIG_FILE: path to a YAML configuration file (internal/config.FromFile)
//   - ONA_SNAPSHOT_PATH: path to a SQLite checkpoint file; loaded at startup
//     and saved on a clean shutdown
//   - NEO4J_ENABLED: set to "true" to enable mirroring the concept graph
//     into Neo4j (connection settings come from NEO4J_URI and friends)
//   - ONA_VECTOR_INDEX_PATH: persists the bag-of-atoms similarity index to
//     disk; unset keeps it in memory only
package main

import (
	"context"
	"log"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func main() {
	if os.Getenv("DEBUG") == "true" {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
		log.Println("Starting ONA server in debug mode...")
	}

	components, err := InitializeServer()
	if err != nil {
		log.Fatalf("Failed to initialize server: %v", err)
	}
	defer func() {
		if err := components.Cleanup(); err != nil {
			log.Printf("Warning: cleanup failed: %v", err)
		}
	}()
	log.Println("Initialized reasoner state")

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "ona-server",
		Version: "1.0.0",
	}, nil)
	components.Server.RegisterTools(mcpServer)
	log.Println("Registered tools: add-belief, add-goal, register-operation, cycle, ask, stats, set-config, similar-concepts")

	transport := &mcp.StdioTransport{}
	logStartupBanner()

	ctx := context.Background()
	if err := mcpServer.Run(ctx, transport); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// logStartupBanner prints a colorized "ready" line when stderr is a
// terminal, and a plain one otherwise; the color is cosmetic only, never
// read back by the MCP host.
func logStartupBanner() {
	const (
		green = "\033[32m"
		reset = "\033[0m"
	)
	if isatty.IsTerminal(os.Stderr.Fd()) {
		log.Printf("%sStarting MCP server over stdio%s", green, reset)
	} else {
		log.Println("Starting MCP server over stdio")
	}
}
