// Package server is the composition root of the front server: it opens the
// local storage, builds the profile registry and wires every page to its
// route and guard.
//
// Middleware order:
//
//	RequestID → RealIP → Recoverer → Profile → Logger → (guard) → handler
//
// Profile runs before Logger so request logs carry the profile ID.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/autodocwriter/autodoc/internal/activity"
	"github.com/autodocwriter/autodoc/internal/api"
	"github.com/autodocwriter/autodoc/internal/auth"
	"github.com/autodocwriter/autodoc/internal/handler"
	"github.com/autodocwriter/autodoc/internal/middleware"
	"github.com/autodocwriter/autodoc/internal/session"
	"github.com/autodocwriter/autodoc/internal/storage/sqlite"
)

// shutdownTimeout is how long in-flight requests get after a stop request.
const shutdownTimeout = 30 * time.Second

// Config holds server configuration.
type Config struct {
	Port          int
	APIURL        string
	DBPath        string
	CookieSecret  string
	SecureCookies bool
	PollInterval  time.Duration
}

// Server owns the router, the storage and the sessions of every browser.
type Server struct {
	router   *chi.Mux
	config   Config
	logger   *slog.Logger
	db       *sqlite.DB
	registry *session.Registry

	// tasks bounds the background polls started by pages
	tasks context.Context
	stop  context.CancelFunc
}

// New opens the database and wires the routes. Close releases both.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = activity.DefaultInterval
	}
	if cfg.APIURL == "" {
		cfg.APIURL = api.DefaultBaseURL
	}

	tokens, err := auth.NewProfileTokens(cfg.CookieSecret)
	if err != nil {
		return nil, fmt.Errorf("server: profile cookie: %w", err)
	}

	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("server: creating database directory: %w", err)
		}
	}
	db, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("server: opening database: %w", err)
	}

	client := api.New(cfg.APIURL, api.WithLogger(logger))
	tasks, stop := context.WithCancel(context.Background())

	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		db:       db,
		registry: session.NewRegistry(db, client, logger),
		tasks:    tasks,
		stop:     stop,
	}
	s.setupRoutes(tokens)
	return s, nil
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures the middleware and the page routes.
//
//	GET    /                          AuthRedirect  welcome
//	GET    /help                      -             FAQ
//	GET    /auth/login                -             redirect to the backend
//	GET    /auth/callback             -             OAuth callback
//	POST   /auth/logout               -             logout
//	GET    /api/me                    -             session state
//	GET    /dashboard                 Protected
//	GET    /repositories              Protected
//	POST   /repositories/{name}/toggle
//	POST   /repositories/{id}/pin
//	GET    /commits
//	POST   /commits/generate
//	GET    /documentation
//	POST   /documentation/regenerate
//	GET    /export, /export/{format}
//	GET    /settings, PUT /settings, DELETE /settings/cache
//	GET    /activity
//	POST   /playground/preview
//	GET    /vault, POST /vault, DELETE /vault/{id}
func (s *Server) setupRoutes(tokens *auth.ProfileTokens) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Profile(tokens, s.registry, middleware.CookieOptions{Secure: s.config.SecureCookies}, s.logger))
	s.router.Use(middleware.Logger(s.logger))

	pages := handler.NewPageHandler(s.logger)
	authH := handler.NewAuthHandler(s.logger)
	repos := handler.NewRepositoryHandler(s.logger)
	commits := handler.NewCommitHandler(s.logger)
	docs := handler.NewDocumentationHandler(s.logger)
	settings := handler.NewSettingsHandler(s.logger)
	feed := handler.NewActivityHandler(s.tasks, s.config.PollInterval, s.logger)
	playground := handler.NewPlaygroundHandler(s.logger)
	vault := handler.NewVaultHandler(s.logger)

	s.router.Get("/help", pages.HandleHelp)
	s.router.Get("/api/me", authH.HandleMe)
	s.router.Route("/auth", func(r chi.Router) {
		r.Get("/login", authH.HandleLogin)
		r.Get("/callback", authH.HandleCallback)
		r.Post("/logout", authH.HandleLogout)
	})

	s.router.Group(func(r chi.Router) {
		r.Use(middleware.AuthRedirect)
		r.Get("/", pages.HandleWelcome)
	})

	s.router.Group(func(r chi.Router) {
		r.Use(middleware.ProtectedRoute)

		r.Get("/dashboard", pages.HandleDashboard)

		r.Get("/repositories", repos.HandleList)
		r.Post("/repositories/{name}/toggle", repos.HandleToggle)
		r.Post("/repositories/{id}/pin", repos.HandlePin)

		r.Get("/commits", commits.HandleList)
		r.Post("/commits/generate", commits.HandleGenerate)

		r.Get("/documentation", docs.HandleDocumentation)
		r.Post("/documentation/regenerate", docs.HandleRegenerate)
		r.Get("/export", docs.HandleExportOptions)
		r.Get("/export/{format}", docs.HandleExport)

		r.Get("/settings", settings.HandleGet)
		r.Put("/settings", settings.HandleUpdate)
		r.Delete("/settings/cache", settings.HandleClearCache)

		r.Get("/activity", feed.HandleActivity)
		r.Post("/playground/preview", playground.HandlePreview)

		r.Get("/vault", vault.HandleList)
		r.Post("/vault", vault.HandleSave)
		r.Delete("/vault/{id}", vault.HandleDelete)
	})
}

// Start serves until ctx is cancelled, then shuts down gracefully: new
// connections are refused, in-flight requests get shutdownTimeout to finish,
// and the sessions and the database are closed.
func (s *Server) Start(ctx context.Context) error {
	defer s.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // generation can be slow
		IdleTimeout:  60 * time.Second,
	}

	// GRACEFUL SHUTDOWN:
	// ListenAndServe blocks, so it runs in a goroutine and reports through
	// serverErrors (buffered, so the goroutine can always exit). The select
	// below waits for whichever comes first:
	//
	//	listener fails (port in use)  → return the error
	//	ctx cancelled (SIGINT/SIGTERM) → Shutdown: stop accepting, drain, return
	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("api", s.config.APIURL),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		// ErrServerClosed is the normal result of a Shutdown elsewhere
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case <-ctx.Done():
		s.logger.Info("shutdown requested")

		// ctx is already cancelled; the drain needs a fresh deadline.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

// Close stops the background polls, closes every session and the database.
// It is safe to call more than once.
func (s *Server) Close() {
	// polls first: they call the backend through sessions and write to the
	// database.
	s.stop()
	s.registry.Close()
	if err := s.db.Close(); err != nil {
		s.logger.Warn("closing database", slog.String("error", err.Error()))
	}
}
