// Package server wires the application together: it builds the dependency
// chain (store → services → handlers), defines every route, and runs the
// HTTP server with graceful shutdown.
//
// This is the composition root — the only place where concrete types meet.
// Services receive repository interfaces, handlers receive services, and
// nothing below this package knows about chi or HTTP timeouts.
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

	"github.com/nahid/snipvault/internal/auth"
	"github.com/nahid/snipvault/internal/cache"
	"github.com/nahid/snipvault/internal/config"
	"github.com/nahid/snipvault/internal/handler"
	"github.com/nahid/snipvault/internal/middleware"
	sqliteRepo "github.com/nahid/snipvault/internal/repository/sqlite"
	"github.com/nahid/snipvault/internal/service"
)

// Server owns the router and the process-lifetime resources (database,
// cache). Both are closed during graceful shutdown.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	cache  *cache.Client
}

// New assembles the full dependency chain and registers all routes.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	var cacheClient *cache.Client
	if cfg.RedisAddr != "" {
		cacheClient = cache.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		logger.Info("directory cache enabled", slog.String("redis", cfg.RedisAddr))
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
		cache:  cacheClient,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	var github *auth.GitHubProvider
	if s.config.GitHubEnabled() {
		github = auth.NewGitHubProvider(
			s.config.GitHubClientID,
			s.config.GitHubClientSecret,
			s.config.GitHubCallbackURL,
		)
		s.logger.Info("github oauth enabled")
	}

	snippetStore := sqliteRepo.NewSnippetStore(s.db)
	userStore := sqliteRepo.NewUserStore(s.db)

	authService := service.NewAuthService(userStore, passwords, tokens, s.logger)
	snippetService := service.NewSnippetService(snippetStore, s.cache, s.logger)
	userService := service.NewUserService(userStore, snippetStore, s.logger)

	authHandler := handler.NewAuthHandler(authService, github)
	snippetHandler := handler.NewSnippetHandler(snippetService)
	userHandler := handler.NewUserHandler(userService, snippetService)

	requireAuth := auth.RequireAuth(tokens)
	optionalAuth := auth.OptionalAuth(tokens)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.With(requireAuth).Get("/me", authHandler.Me)

			r.Get("/github", authHandler.GitHubLogin)
			r.Get("/github/callback", authHandler.GitHubCallback)
		})

		r.Route("/snippets", func(r chi.Router) {
			// Static segments must be registered alongside /{id}; chi
			// matches the literal path first, so /languages/list never
			// collides with an ID lookup.
			r.Get("/", snippetHandler.List)
			r.Get("/languages/list", snippetHandler.Languages)
			r.Get("/tags/list", snippetHandler.Tags)
			r.With(optionalAuth).Get("/{id}", snippetHandler.Get)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", snippetHandler.Create)
				r.Get("/my", snippetHandler.ListMine)
				r.Put("/{id}", snippetHandler.Update)
				r.Delete("/{id}", snippetHandler.Delete)
				r.Post("/{id}/fork", snippetHandler.Fork)
				r.Post("/{id}/like", snippetHandler.Like)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/profile/{username}", userHandler.Profile)
			r.Get("/search", userHandler.Search)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/stats/{userId}", userHandler.Stats)
				r.Get("/liked-snippets", userHandler.LikedSnippets)
				r.Put("/profile", userHandler.UpdateProfile)
			})
		})
	})

	return nil
}

// Handler exposes the router, mainly so tests can drive the full stack
// through httptest without opening a socket.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, drain in-flight requests (30s
// budget), close the cache and finally the database.
func (s *Server) Start() error {
	defer s.db.Close()
	if s.cache != nil {
		defer s.cache.Close()
	}

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
