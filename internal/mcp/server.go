// Package mcp exposes the tracker to MCP clients over stdio so
// assistants can create issues and manage relationships directly.
package mcp

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	mcp "github.com/metoro-io/mcp-golang"
	"github.com/metoro-io/mcp-golang/transport/stdio"

	"trellis/internal/operations"
	"trellis/internal/vault"
)

// RunMCPServer runs the MCP server over the operations layer
func RunMCPServer(vaultDir string) error {
	// Log to stderr so it doesn't interfere with the stdio protocol
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          "trellis-mcp",
		ReportTimestamp: true,
	})

	// Check if we're in MCP mode (stdio connected)
	stat, _ := os.Stdin.Stat()
	if (stat.Mode() & os.ModeCharDevice) != 0 {
		return fmt.Errorf("MCP server mode requires stdin/stdout to be connected (not a terminal)")
	}

	if vaultDir == "" {
		vaultDir = os.Getenv("TRELLIS_VAULT")
	}
	if vaultDir == "" {
		vaultDir = "./vault"
	}
	logger.Info("starting MCP server", "vault", vaultDir)

	if err := os.MkdirAll(vaultDir, 0o755); err != nil {
		return fmt.Errorf("failed to create vault directory: %w", err)
	}

	store := vault.NewStore(vaultDir, logger)
	ops := operations.New(store, logger)

	server := mcp.NewServer(stdio.NewStdioServerTransport())
	if err := RegisterTools(server, ops); err != nil {
		return fmt.Errorf("failed to register tools: %w", err)
	}

	logger.Info("MCP server ready, serving requests")
	if err := server.Serve(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	// Block forever - the server runs in background goroutines
	select {}
}
