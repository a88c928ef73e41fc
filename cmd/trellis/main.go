package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"trellis/internal/cli"
	"trellis/internal/mcp"
	"trellis/internal/operations"
	"trellis/internal/server"
	"trellis/internal/vault"
)

func main() {
	// Pick up TRELLIS_* settings from a local .env if present
	_ = godotenv.Load()

	var (
		help        bool
		vaultDir    string
		serverPort  int
		serverToken string
		noServer    bool
		debug       bool
		mcpMode     bool
	)

	flag.BoolVar(&help, "help", false, "Show help message")
	flag.BoolVar(&help, "h", false, "Show help message (shorthand)")
	flag.StringVar(&vaultDir, "vault", envOr("TRELLIS_VAULT", "./vault"), "Vault directory holding the issue markdown files (can also use TRELLIS_VAULT env var)")
	flag.IntVar(&serverPort, "port", 8321, "Port for the local HTTP API server")
	flag.StringVar(&serverToken, "token", os.Getenv("TRELLIS_TOKEN"), "Optional auth token for the HTTP API (can also use TRELLIS_TOKEN env var)")
	flag.BoolVar(&noServer, "no-server", false, "Disable the HTTP API server")
	flag.BoolVar(&debug, "debug", false, "Enable debug output for troubleshooting")
	flag.BoolVar(&mcpMode, "mcp", false, "Run as MCP server for AI assistants (requires stdio connection)")
	flag.Parse()

	if help {
		fmt.Println("trellis - Markdown vault issue tracker")
		fmt.Println()
		fmt.Println("Usage:")
		fmt.Printf("  %s [flags]\n", os.Args[0])
		fmt.Println()
		fmt.Println("Flags:")
		flag.PrintDefaults()
		fmt.Println()
		fmt.Println("Environment Variables:")
		fmt.Println("  TRELLIS_VAULT   Vault directory")
		fmt.Println("  TRELLIS_TOKEN   Optional auth token for the HTTP API")
		fmt.Println()
		fmt.Println("MCP Server Mode:")
		fmt.Println("  Run with -mcp flag to start as an MCP server for AI assistants.")
		fmt.Println("  This mode requires stdin/stdout to be connected (not a terminal).")
		fmt.Println("  Example: trellis -mcp < /dev/null")
		os.Exit(0)
	}

	if mcpMode {
		if err := mcp.RunMCPServer(vaultDir); err != nil {
			log.Fatal("MCP server error", "err", err)
		}
		return
	}

	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           level,
	})

	if err := os.MkdirAll(vaultDir, 0o755); err != nil {
		logger.Fatal("failed to create vault directory", "dir", vaultDir, "err", err)
	}

	store := vault.NewStore(vaultDir, logger)
	ops := operations.New(store, logger)

	if !noServer {
		apiServer := server.NewServer(serverPort, serverToken, ops, logger)
		go func() {
			if err := apiServer.Start(); err != nil && err != http.ErrServerClosed {
				logger.Error("API server error", "err", err)
			}
		}()

		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := apiServer.Stop(shutdownCtx); err != nil {
				logger.Error("error stopping server", "err", err)
			}
		}()
	} else {
		logger.Info("HTTP API server disabled")
	}

	if err := cli.NewCLI(ops).Run(); err != nil {
		logger.Fatal("CLI error", "err", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
