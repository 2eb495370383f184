// Package server wires the dev API together: database, services, handlers,
// middleware and routes.
//
// DEPENDENCY FLOW:
//
//	sqlite.DB → services → handlers → chi routes
//
// Everything is assembled in New, so tests can build a complete server on an
// in-memory database and drive it through Handler().
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/aic-hub/internal/auth"
	"github.com/sakif/aic-hub/internal/handler"
	"github.com/sakif/aic-hub/internal/metrics"
	"github.com/sakif/aic-hub/internal/middleware"
	sqliteRepo "github.com/sakif/aic-hub/internal/repository/sqlite"
	"github.com/sakif/aic-hub/internal/service"
)

// Config holds server configuration.
type Config struct {
	Port            int
	DBPath          string
	JWTSecret       string
	SecureCookies   bool
	WebBaseURL      string
	ShutdownTimeout time.Duration
}

// Option customizes a Server.
type Option func(*Server)

// WithGitHub enables the GitHub OAuth routes. Without it they answer 501.
func WithGitHub(gh handler.GitHubOAuth) Option {
	return func(s *Server) { s.github = gh }
}

// WithPasswordService replaces the bcrypt settings, e.g. a low cost in tests.
func WithPasswordService(p *auth.PasswordService) Option {
	return func(s *Server) { s.passwords = p }
}

// Server owns the database connection and the router.
type Server struct {
	router    *chi.Mux
	config    Config
	logger    *slog.Logger
	db        *sqliteRepo.DB
	metrics   *metrics.Metrics
	poolStats *metrics.PoolStatsCollector
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	github    handler.GitHubOAuth
}

// New opens the database and builds the router.
func New(cfg Config, logger *slog.Logger, opts ...Option) (*Server, error) {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.SecureCookies)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router:    chi.NewRouter(),
		config:    cfg,
		logger:    logger,
		db:        db,
		metrics:   metrics.New(),
		tokens:    tokens,
		passwords: auth.NewPasswordService(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.poolStats = metrics.NewPoolStatsCollector(s.metrics, db)

	s.setupRoutes()
	return s, nil
}

// setupRoutes configures middleware and every route.
//
//	POST   /api/auth/signup | login | logout
//	GET    /api/auth/login/github, /api/auth/github/callback
//	GET    /api/users/me, PATCH /api/users/me, GET /api/users/{username}
//	       /api/articles[/drafts|/{key}[/publish|/unpublish]]
//	       /api/spaces[/{key}[/join|/leave|/members[/{userID}]]]
//	GET    /api/feed[/trending|/discover], POST /api/feed/interactions
//	GET    /api/tags, /healthz, /metrics
//
// Public reads go through OptionalAuth so caller-relative fields
// (isAuthor, isMember) are filled in for signed-in users.
func (s *Server) setupRoutes() {
	// Middleware runs in the order it's added.
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Metrics(s.metrics))
	s.router.Use(chimiddleware.Recoverer)

	// The db implements every repository interface.
	authService := service.NewAuthService(s.db, s.passwords, s.logger)
	userService := service.NewUserService(s.db, s.logger)
	articleService := service.NewArticleService(s.db, s.db, s.db, s.logger)
	spaceService := service.NewSpaceService(s.db, s.db, s.logger)
	feedService := service.NewFeedService(s.db, s.db, s.db, s.db, s.logger)

	authHandler := handler.NewAuthHandler(authService, userService, s.tokens, s.github, s.config.WebBaseURL, s.logger).
		WithRecorder(s.metrics)
	userHandler := handler.NewUserHandler(userService, s.logger)
	articleHandler := handler.NewArticleHandler(articleService, s.logger)
	spaceHandler := handler.NewSpaceHandler(spaceService, s.logger)
	feedHandler := handler.NewFeedHandler(feedService, s.logger).WithRecorder(s.metrics)
	healthHandler := handler.NewHealthHandler(s.db, s.logger)

	requireAuth := auth.RequireAuth(s.tokens)
	optionalAuth := auth.OptionalAuth(s.tokens)

	s.router.Get("/healthz", healthHandler.HandleHealth)
	s.router.Handle("/metrics", s.metrics.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", authHandler.HandleSignup)
			r.Post("/login", authHandler.HandleLogin)
			r.Post("/logout", authHandler.HandleLogout)
			r.Get("/login/github", authHandler.HandleGitHubLogin)
			r.Get("/github/callback", authHandler.HandleGitHubCallback)
		})

		r.Route("/users", func(r chi.Router) {
			r.With(requireAuth).Get("/me", userHandler.HandleMe)
			r.With(requireAuth).Patch("/me", userHandler.HandleUpdateMe)
			r.Get("/{username}", userHandler.HandlePublic)
		})

		r.Route("/articles", func(r chi.Router) {
			r.With(optionalAuth).Get("/", articleHandler.HandleList)
			r.With(requireAuth).Post("/", articleHandler.HandleCreate)
			r.With(requireAuth).Get("/drafts", articleHandler.HandleDrafts)
			r.Route("/{key}", func(r chi.Router) {
				r.With(optionalAuth).Get("/", articleHandler.HandleGet)
				r.Group(func(r chi.Router) {
					r.Use(requireAuth)
					r.Patch("/", articleHandler.HandleUpdate)
					r.Delete("/", articleHandler.HandleDelete)
					r.Post("/publish", articleHandler.HandlePublish)
					r.Post("/unpublish", articleHandler.HandleUnpublish)
				})
			})
		})

		r.Route("/spaces", func(r chi.Router) {
			r.With(optionalAuth).Get("/", spaceHandler.HandleList)
			r.With(requireAuth).Post("/", spaceHandler.HandleCreate)
			r.Route("/{key}", func(r chi.Router) {
				r.With(optionalAuth).Get("/", spaceHandler.HandleGet)
				r.With(optionalAuth).Get("/members", spaceHandler.HandleMembers)
				r.With(optionalAuth).Get("/members/{userID}", spaceHandler.HandleMember)
				r.With(optionalAuth).Get("/articles", spaceHandler.HandleArticles)
				r.Group(func(r chi.Router) {
					r.Use(requireAuth)
					r.Post("/join", spaceHandler.HandleJoin)
					r.Post("/leave", spaceHandler.HandleLeave)
					r.Patch("/members/{userID}", spaceHandler.HandleUpdateRole)
					r.Post("/articles", spaceHandler.HandleShareArticle)
					r.Patch("/articles/{articleID}", spaceHandler.HandlePinArticle)
					r.Delete("/articles/{articleID}", spaceHandler.HandleRemoveArticle)
				})
			})
		})

		r.Route("/feed", func(r chi.Router) {
			r.Use(optionalAuth)
			r.Get("/", feedHandler.HandleFeed)
			r.Get("/trending", feedHandler.HandleTrending)
			r.Get("/discover", feedHandler.HandleDiscover)
			r.Post("/interactions", feedHandler.HandleInteraction)
		})

		r.Get("/tags", feedHandler.HandleTags)
	})
}

// Handler returns the fully wired router. Tests serve it with httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database.
func (s *Server) Close() error {
	s.poolStats.Stop()
	return s.db.Close()
}

// Start serves HTTP until SIGINT or SIGTERM, then drains in-flight requests
// for up to ShutdownTimeout and closes the database.
func (s *Server) Start() error {
	defer s.Close()

	s.poolStats.Start(15 * time.Second)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
			slog.Bool("github", s.github != nil),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
