// Package server sets up the HTTP server, router, and all route definitions.
//
// This is the composition root: the database, image store, service,
// session, and handlers are all created and wired here, so main.go stays
// minimal and the rest of the codebase never constructs its own
// dependencies.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/wishlist/internal/auth"
	"github.com/sakif/wishlist/internal/handler"
	"github.com/sakif/wishlist/internal/middleware"
	sqliteRepo "github.com/sakif/wishlist/internal/repository/sqlite"
	"github.com/sakif/wishlist/internal/service"
	"github.com/sakif/wishlist/internal/session"
	"github.com/sakif/wishlist/internal/storage"
)

// uploadsPrefix is the public URL path images are served under.
const uploadsPrefix = "/uploads"

// Config holds server configuration, loaded from the environment in main.
type Config struct {
	Port        int
	TemplateDir string
	DBPath      string // path to the SQLite database file
	UploadDir   string // directory for stored wish images
	AccessCode  string // plain access code or its bcrypt hash
	JWTSecret   string // HMAC secret for session tokens
}

// Server owns the router and the database connection. The connection is
// closed during graceful shutdown so the WAL is flushed and the file lock
// released.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New creates a Server with the full dependency chain assembled:
// sqlite.DB → WishService (with the disk image store) → Session → handlers.
// Each layer only receives what it needs; handlers never touch the
// database and the service never touches HTTP.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET    /                       → wishlist page (HTML, session required)
//	GET    /login                  → access code form (HTML)
//	GET    /uploads/*              → stored wish images
//	POST   /api/login              → access code → session cookie
//	POST   /api/logout             → clear session cookie
//	GET    /api/list               → list wishes (ordered sort params + search)
//	POST   /api/search             → debounced search input
//	POST   /api/wishes             → create (JSON or multipart with image)
//	PUT    /api/wishes/{id}        → partial update
//	DELETE /api/wishes/{id}        → soft delete
//	POST   /api/wishes/{id}/image  → attach image
//
// Middleware order: RequestID → RealIP → Recoverer → Logger, then the auth
// gates per route group.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	// === AUTH ===
	gate, err := auth.NewAccessGate(s.config.AccessCode)
	if err != nil {
		return fmt.Errorf("configuring access gate: %w", err)
	}
	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("configuring token service: %w", err)
	}

	// === DOMAIN WIRING ===
	images, err := storage.NewDiskStore(s.config.UploadDir, uploadsPrefix)
	if err != nil {
		return fmt.Errorf("creating image store: %w", err)
	}
	wishes := service.NewWishService(s.db, images, s.logger)
	sess := session.New(wishes)

	authHandler := handler.NewAuthHandler(gate, tokens, s.logger)
	wishHandler := handler.NewWishHandler(sess, wishes, s.logger)
	pageHandler, err := handler.NewPageHandler(s.config.TemplateDir, sess, s.logger)
	if err != nil {
		return fmt.Errorf("creating page handler: %w", err)
	}

	// === STATIC IMAGES ===
	fileServer := http.FileServer(http.Dir(s.config.UploadDir))
	s.router.Handle(uploadsPrefix+"/*", http.StripPrefix(uploadsPrefix+"/", fileServer))

	// === PAGES ===
	s.router.Get("/login", pageHandler.HandleLoginPage)
	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequirePage(tokens))
		r.Get("/", pageHandler.HandleIndex)
	})

	// === API ===
	s.router.Route("/api", func(r chi.Router) {
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Get("/list", wishHandler.HandleList)
			r.Post("/search", wishHandler.HandleSearch)
			r.Post("/wishes", wishHandler.HandleCreate)
			r.Put("/wishes/{id}", wishHandler.HandleUpdate)
			r.Delete("/wishes/{id}", wishHandler.HandleDelete)
			r.Post("/wishes/{id}/image", wishHandler.HandleAttachImage)
		})
	})

	return nil
}

// Start starts the HTTP server and blocks until shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new connections
// 2. Wait up to 30s for in-flight requests
// 3. Close the database connection
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
