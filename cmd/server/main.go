// Package main is the entry point for the wishlist server.
//
// main stays minimal: read configuration, create the logger, hand off to
// internal/server. All actual logic lives in the internal packages.
package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/sakif/wishlist/internal/server"
)

func main() {
	// .env is optional; real environment variables win over it either way.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("loading .env file", slog.String("error", err.Error()))
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(),
	}))

	port := 8080
	if portStr := os.Getenv("PORT"); portStr != "" {
		var err error
		port, err = strconv.Atoi(portStr)
		if err != nil {
			logger.Error("invalid PORT value", slog.String("value", portStr))
			os.Exit(1)
		}
	}

	templateDir := envOr("TEMPLATE_DIR", "web/templates")
	dbPath := envOr("DB_PATH", "data/wishlist.db")
	uploadDir := envOr("UPLOAD_DIR", "data/uploads")

	// The data directory holds both the database and the uploads by
	// default; create whatever is missing.
	for _, dir := range []string{filepath.Dir(dbPath), uploadDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Error("failed to create directory",
				slog.String("dir", dir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	// ACCESS_CODE gates the whole app; JWT_SECRET signs the session cookie.
	// Both are required — there is no unauthenticated mode.
	accessCode := os.Getenv("ACCESS_CODE")
	if accessCode == "" {
		logger.Error("ACCESS_CODE is not set")
		os.Exit(1)
	}
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Error("JWT_SECRET is not set (try: openssl rand -hex 32)")
		os.Exit(1)
	}

	cfg := server.Config{
		Port:        port,
		TemplateDir: templateDir,
		DBPath:      dbPath,
		UploadDir:   uploadDir,
		AccessCode:  accessCode,
		JWTSecret:   jwtSecret,
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until the server is shut down (Ctrl+C or SIGTERM).
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func logLevel() slog.Level {
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
