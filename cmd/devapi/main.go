// Command devapi runs a local stand-in for the AIC HUB API.
//
// It serves the same REST surface the client expects, backed by SQLite, so
// the aichub CLI can be developed and tested without the hosted service.
//
// Configuration comes from the environment:
//
//	PORT                  listen port (8080)
//	DB_PATH               SQLite file (data/aichub.db), ":memory:" for throwaway runs
//	JWT_SECRET            session signing secret; random per run when unset
//	WEB_BASE_URL          where browser OAuth callbacks are redirected
//	GITHUB_CLIENT_ID      } GitHub OAuth app; both required to enable
//	GITHUB_CLIENT_SECRET  } /api/auth/login/github
//	GITHUB_CALLBACK_URL   defaults to http://localhost:$PORT/api/auth/github/callback
//	LOG_LEVEL             debug, info, warn or error
//	SHUTDOWN_TIMEOUT      graceful shutdown budget (10s)
package main

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sakif/aic-hub/internal/auth"
	"github.com/sakif/aic-hub/internal/config"
	"github.com/sakif/aic-hub/internal/server"
)

func main() {
	cfg, err := config.LoadServer()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Validate already checked the level.
	level, _ := config.ParseLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	if cfg.JWTSecret == "" {
		cfg.JWTSecret = randomSecret()
		logger.Warn("JWT_SECRET not set, using a random secret; sessions end when the server restarts")
	}

	if cfg.DBPath != ":memory:" {
		dbDir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dbDir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	var opts []server.Option
	if cfg.GitHubEnabled() {
		opts = append(opts, server.WithGitHub(
			auth.NewGitHubProvider(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.GitHubCallbackURL),
		))
	} else {
		logger.Warn("GITHUB_CLIENT_ID/GITHUB_CLIENT_SECRET not set, GitHub login answers 501")
	}

	srv, err := server.New(server.Config{
		Port:            cfg.Port,
		DBPath:          cfg.DBPath,
		JWTSecret:       cfg.JWTSecret,
		SecureCookies:   strings.HasPrefix(cfg.WebBaseURL, "https://"),
		WebBaseURL:      cfg.WebBaseURL,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger, opts...)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT or SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
