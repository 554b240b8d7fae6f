// Package main is the entry point for the DevTrack API server.
//
// The main package stays minimal: it loads the configuration, sets up the
// logger, makes sure the database directory exists and hands everything to
// internal/server. All actual logic lives in the imported packages.
package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/devtrack/devtrack-server/internal/config"
	"github.com/devtrack/devtrack-server/internal/server"
)

func main() {
	// === 1. READ CONFIGURATION ===
	// The YAML file is optional. Environment variables (PORT, JWT_SECRET,
	// GITHUB_CLIENT_ID, ...) override it either way.
	configPath := flag.String("config", os.Getenv("DEVTRACK_CONFIG"), "path to an optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// No logger yet; the default one writes to stderr.
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	// Human-readable text locally, JSON in production for log shippers.
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	// === 3. DATABASE DIRECTORY ===
	// os.MkdirAll is `mkdir -p`. An in-memory database needs no directory.
	if cfg.Database.Path != ":memory:" {
		dbDir := filepath.Dir(cfg.Database.Path)
		if err := os.MkdirAll(dbDir, 0o755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dbDir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	if cfg.Auth.TokenEncryptionKey == "" {
		logger.Warn("TOKEN_ENCRYPTION_KEY not set; GitHub tokens are sealed with a key derived from JWT_SECRET")
	}

	// === 4. CREATE AND START THE SERVER ===
	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Log.Level)}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
