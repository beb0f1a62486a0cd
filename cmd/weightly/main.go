// Package main initializes and starts the weightly server, setting up
// configuration, logging, the local SQLite store, the optional remote
// table client, the sync coordinator, and the HTTP API.
package main

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/obelyaeva/weightly/internal/airtable"
	"github.com/obelyaeva/weightly/internal/backup"
	"github.com/obelyaeva/weightly/internal/config"
	"github.com/obelyaeva/weightly/internal/db"
	"github.com/obelyaeva/weightly/internal/logger"
	"github.com/obelyaeva/weightly/internal/server/handler/http"
	"github.com/obelyaeva/weightly/internal/store"
	"github.com/obelyaeva/weightly/internal/syncer"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	// Initialize the local SQLite store.
	sqliteDB, err := db.InitSQLite(options.DatabasePath)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}
	defer func() { _ = sqliteDB.Close() }()

	kv := store.NewSQLiteKV(sqliteDB)
	entries := store.NewEntryStore(kv, zapLogger)
	settings := store.NewSettingsStore(kv, zapLogger)

	// Create the remote table client when credentials are configured.
	// Without them the app runs local-only.
	var remote *airtable.Client
	if options.HasRemote() {
		remote = airtable.New(airtable.Config{
			BaseURL:       options.AirtableBaseURL,
			BaseID:        options.AirtableBaseID,
			Token:         options.AirtableToken,
			EntriesTable:  options.EntriesTable,
			SettingsTable: options.SettingsTable,
		}, zapLogger)
		zapLogger.Info("remote sync enabled", zap.String("base", options.AirtableBaseID))
	} else {
		zapLogger.Info("remote sync disabled, running local-only")
	}

	// The coordinator owns all reads and writes; the handlers talk to
	// it, never to the stores directly.
	var remoteClient syncer.RemoteClient
	if remote != nil {
		remoteClient = remote
	}
	coord := syncer.New(entries, settings, remoteClient, zapLogger, syncer.Options{
		Debounce: time.Duration(options.DebounceMs) * time.Millisecond,
		Interval: time.Duration(options.SyncIntervalSec) * time.Second,
	})
	defer coord.Close()

	guard := backup.NewGuard(entries, settings, zapLogger)

	// Create HTTP handlers for the API endpoints.
	entriesHandler := &http.EntriesHandler{EntryService: coord}
	settingsHandler := &http.SettingsHandler{SettingsService: coord}
	syncHandler := &http.SyncHandler{SyncService: coord}
	if remote != nil {
		syncHandler.RemoteAdmin = remote
	}
	backupHandler := &http.BackupHandler{BackupService: guard}

	// Build the router with middleware and routes.
	router := http.NewRouter(entriesHandler, settingsHandler, syncHandler, backupHandler, zapLogger)

	server := &nethttp.Server{
		Addr:    options.Address,
		Handler: router,
	}

	// Shut down cleanly on SIGINT/SIGTERM so the coordinator's timers
	// are disposed and in-flight requests finish.
	idle := make(chan struct{})
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			zapLogger.Error("server shutdown failed", zap.Error(err))
		}
		close(idle)
	}()

	zapLogger.Info("starting HTTP server", zap.String("addr", options.Address))
	if err := server.ListenAndServe(); err != nil && err != nethttp.ErrServerClosed {
		zapLogger.Fatal("failed to start HTTP server", zap.Error(err))
	}
	<-idle
}
