/*
main.go - Application entry point

PURPOSE:
  Command-line entry for the stock and ledger service. The root command
  owns configuration and the document backend; subcommands serve the
  HTTP API, print reports, or load demo datasets.

COMMANDS:
  serve                 Run the HTTP API (graceful shutdown on SIGINT/SIGTERM)
  stock                 Print the stock report, or one batch with --product/--batch
  balance               Print the balance report, or one person with --person
  scenario list         List demo datasets
  scenario load <id>    Reset the backend and load a demo dataset

CONFIGURATION:
  Environment (or a .env file), overridden by flags:
    PORT              --port         HTTP port (default 8080)
    DB_PATH           --db           SQLite file; empty keeps data in memory
    LOG_LEVEL         --log-level    debug|info|warn|error (default info)
    LOG_FORMAT        --log-format   json|text (default json)
    CORS_ORIGINS                     Comma separated (default *)
    AUDIT_ENABLED                    Run the stock auditor (default false)
    AUDIT_INTERVAL                   Auditor period (default 5m)
    SHUTDOWN_TIMEOUT                 Drain time on shutdown (default 10s)

EXAMPLES:
  # Run with a file database
  ./server serve --db ./data/ledger.db

  # Run in memory with a demo dataset
  DB_PATH= ./server serve

  # One batch with its movement ledger
  ./server stock --product prod-1 --batch B1

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Configuration keys and defaults
*/
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/warp/stock-ledger/config"
	"github.com/warp/stock-ledger/store"
	"github.com/warp/stock-ledger/store/memory"
	"github.com/warp/stock-ledger/store/sqlite"
)

var v = config.New()

var rootCmd = &cobra.Command{
	Use:           "server",
	Short:         "Stock and receivable/payable ledger service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "SQLite database path (empty string for in-memory)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level")
	rootCmd.PersistentFlags().String("log-format", "", "Log format (json or text)")

	_ = v.BindPFlag(config.KeyDBPath, rootCmd.PersistentFlags().Lookup("db"))
	_ = v.BindPFlag(config.KeyLogLevel, rootCmd.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag(config.KeyLogFormat, rootCmd.PersistentFlags().Lookup("log-format"))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// =============================================================================
// SHARED SETUP
// =============================================================================

// app is what every subcommand needs: configuration, a logger and an open
// backend. close releases the backend.
type app struct {
	cfg   *config.Config
	log   *logrus.Logger
	docs  store.Backend
	close func() error
}

func setup() (*app, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	logger, err := config.NewLogger(cfg, os.Stderr)
	if err != nil {
		return nil, err
	}

	docs, closeFn, err := openBackend(cfg.DBPath)
	if err != nil {
		config.LogError(logger, "main", "openBackend", map[string]string{"db_path": cfg.DBPath}, err)
		return nil, err
	}
	return &app{cfg: cfg, log: logger, docs: docs, close: closeFn}, nil
}

func openBackend(path string) (store.Backend, func() error, error) {
	if path == "" {
		return memory.New(), func() error { return nil }, nil
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sqlite.New(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return db, db.Close, nil
}
