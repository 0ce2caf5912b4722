/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the reconciliation engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env and parse command-line flags
  2. Initialize SQLite store
  3. Load the payer directory workbook into a snapshot
  4. Wire ledger, driver, feed source, and ingest scheduler
  5. Configure HTTP router
  6. Start server with graceful shutdown

CONFIGURATION (flags override environment):
  PORT             / -port      HTTP server port (default: 8080)
  DB_PATH          / -db        SQLite database path (default: reconcile.db)
                                Use ":memory:" for in-memory database
  DIRECTORY_XLSX   / -dir       Payer directory workbook (default: payers.xlsx)
  FEED_DIR         / -feed      Notification drop directory ("" disables ingest)
  INGEST_INTERVAL  / -interval  Ingest tick (default: 5m)
  LOG_LEVEL        / -log       logrus level (default: info)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the ingest scheduler and wait for the in-flight cycle
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database and a feed directory
  ./server -db="./data/reconcile.db" -feed="./inbox"

  # Run with in-memory database
  ./server -db=":memory:"

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/ledgerline/reconcile-engine/api"
	"github.com/ledgerline/reconcile-engine/directory"
	"github.com/ledgerline/reconcile-engine/feed"
	"github.com/ledgerline/reconcile-engine/recon"
	"github.com/ledgerline/reconcile-engine/store/sqlite"
)

func main() {
	// .env is optional; real env vars win over file values.
	_ = godotenv.Load()

	// Flags, defaulted from the environment
	port := flag.Int("port", envInt("PORT", 8080), "HTTP server port")
	dbPath := flag.String("db", envStr("DB_PATH", "reconcile.db"), "SQLite database path")
	dirPath := flag.String("dir", envStr("DIRECTORY_XLSX", "payers.xlsx"), "payer directory workbook")
	feedDir := flag.String("feed", envStr("FEED_DIR", ""), "notification drop directory")
	interval := flag.Duration("interval", envDuration("INGEST_INTERVAL", 5*time.Minute), "ingest tick interval")
	logLevel := flag.String("log", envStr("LOG_LEVEL", "info"), "log level")
	flag.Parse()

	log := logrus.New()
	if lvl, err := logrus.ParseLevel(*logLevel); err == nil {
		log.SetLevel(lvl)
	}

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	defer store.Close()

	// Load the payer directory; when the workbook is unreadable, fall
	// back to the last snapshot persisted in the store.
	handle := recon.NewDirectoryHandle(nil)
	payers, skipped, err := directory.LoadXLSX(*dirPath)
	if err != nil {
		log.WithError(err).WithField("path", *dirPath).Warn("directory workbook not loaded; recovering persisted directory")
		payers, err = store.ListPayers(context.Background())
		if err != nil {
			log.WithError(err).Fatal("failed to recover persisted payers")
		}
		if err := handle.Swap(payers); err != nil {
			log.WithError(err).Fatal("failed to build directory snapshot")
		}
		log.WithField("payers", len(payers)).Info("payer directory recovered from store")
	} else {
		for _, s := range skipped {
			log.WithField("path", *dirPath).Warn(s.Error())
		}
		if err := handle.Swap(payers); err != nil {
			log.WithError(err).Fatal("failed to build directory snapshot")
		}
		for _, p := range payers {
			if err := store.SavePayer(context.Background(), p); err != nil {
				log.WithError(err).Fatal("failed to persist payer")
			}
		}
		log.WithField("payers", len(payers)).Info("payer directory loaded")
	}

	// Wire the reconciliation core
	ledger := recon.NewLedger(store, handle)
	driver := recon.NewDriver(handle, ledger, log)

	// Initialize handler
	handler := api.NewHandler(handle, ledger, driver, store, log)
	handler.Payers = store
	handler.XLSXPath = *dirPath

	// Feed + scheduler, only when a feed directory is configured
	var scheduler *api.IngestScheduler
	if *feedDir != "" {
		scheduler = api.NewIngestScheduler(driver, feed.NewDirSource(*feedDir), log)
		scheduler.Interval = *interval
		scheduler.Start()
		defer scheduler.Stop()
		handler.Scheduler = scheduler
	}

	// Create router
	router := api.NewRouter(handler)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.WithField("addr", server.Addr).Info("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("server forced to shutdown")
	}

	log.Info("server stopped")
}

// =============================================================================
// ENVIRONMENT HELPERS
// =============================================================================

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
