// Package server is the composition root: it builds every dependency from
// the config, mounts the routes and runs the HTTP server until a shutdown
// signal arrives.
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
	"github.com/go-chi/cors"

	"github.com/devtrack/devtrack-server/internal/auth"
	"github.com/devtrack/devtrack-server/internal/config"
	"github.com/devtrack/devtrack-server/internal/handler"
	"github.com/devtrack/devtrack-server/internal/insight"
	"github.com/devtrack/devtrack-server/internal/llm"
	"github.com/devtrack/devtrack-server/internal/metrics"
	"github.com/devtrack/devtrack-server/internal/middleware"
	"github.com/devtrack/devtrack-server/internal/provider"
	sqliteRepo "github.com/devtrack/devtrack-server/internal/repository/sqlite"
	"github.com/devtrack/devtrack-server/internal/service"
)

// Server owns the router and the database connection. The database is
// closed when Start returns, or by Close for servers that never start.
type Server struct {
	router  *chi.Mux
	config  *config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	metrics *metrics.Metrics
}

// New wires the whole dependency graph:
//
//	TokenSealer → sqlite.DB (UserRepository)
//	TokenService, PasswordService → AuthService → AuthHandler
//	provider.Factory → GitHubService → GitHubHandler
//	llm.OpenAIClient (optional) → insight.Synthesizer → InsightService → AIHandler
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	sealKey := cfg.Auth.TokenEncryptionKey
	if sealKey == "" {
		sealKey = cfg.Auth.JWTSecret
	}
	sealer, err := auth.NewTokenSealer(sealKey)
	if err != nil {
		return nil, fmt.Errorf("creating token sealer: %w", err)
	}

	db, err := sqliteRepo.New(cfg.Database.Path, sealer, logger)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		db:      db,
		metrics: metrics.New(),
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes mounts middleware and routes.
//
// Middleware order: request ID, real IP, logging, metrics, panic recovery,
// CORS. Recoverer sits inside the logger so a panic is still logged as a
// 500.
func (s *Server) setupRoutes() error {
	cfg := s.config

	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService(cfg.Auth.BcryptCost)

	oauth, err := auth.NewGitHubProvider(auth.GitHubOAuthConfig{
		ClientID:     cfg.GitHub.ClientID,
		ClientSecret: cfg.GitHub.ClientSecret,
		CallbackURL:  cfg.GitHub.CallbackURL,
		APIBaseURL:   cfg.GitHub.APIBaseURL,
	})
	if err != nil {
		return fmt.Errorf("creating GitHub OAuth provider: %w", err)
	}
	if !oauth.Configured() {
		s.logger.Warn("GITHUB_CLIENT_ID/GITHUB_CLIENT_SECRET not set; GitHub login is disabled")
	}

	factory, err := provider.NewFactory(provider.Options{
		APIBaseURL: cfg.GitHub.APIBaseURL,
		Timeout:    cfg.GitHub.Timeout,
		PageSize:   cfg.GitHub.PageSize,
		TopRepos:   cfg.GitHub.TopRepos,
	}, s.logger, s.metrics)
	if err != nil {
		return fmt.Errorf("creating provider factory: %w", err)
	}

	// A nil *OpenAIClient must not end up inside the interface.
	var client llm.Client
	oc, err := llm.NewOpenAIClient(llm.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	}, s.logger)
	if err != nil {
		return fmt.Errorf("creating LLM client: %w", err)
	}
	if oc != nil {
		client = oc
	} else {
		s.logger.Info("no LLM API key configured; insights run in mock mode")
	}
	synth := insight.New(client, insight.Options{
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	}, s.logger, s.metrics)

	authService := service.NewAuthService(s.db, tokens, passwords, service.AuthOptions{
		Production:    cfg.IsProduction(),
		DevSessionTTL: cfg.Auth.DevSessionTTL,
	}, s.logger)
	githubService := service.NewGitHubService(s.db, factory, s.logger)
	insightService := service.NewInsightService(githubService, synth, s.logger)

	authHandler := handler.NewAuthHandler(oauth, authService,
		handler.CookieOptions{Secure: cfg.IsProduction()}, cfg.Server.ClientURL, s.logger)
	githubHandler := handler.NewGitHubHandler(githubService, s.logger)
	aiHandler := handler.NewAIHandler(insightService, s.logger)

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Metrics(s.metrics))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.Server.ClientURL},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Warning"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", s.metrics.Handler())

	requireAuth := auth.RequireAuth(tokens)

	s.router.Route("/api/auth", func(r chi.Router) {
		r.Get("/github", authHandler.HandleGitHubLogin)
		r.With(auth.OptionalAuth(tokens)).Get("/github/callback", authHandler.HandleGitHubCallback)
		r.Post("/signup", authHandler.HandleSignup)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)
		r.Post("/dev-login", authHandler.HandleDevLogin)
		r.With(requireAuth).Get("/me", authHandler.HandleMe)
	})

	s.router.Route("/api/github", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/connection-status", githubHandler.HandleConnectionStatus)
		r.Get("/dashboard", githubHandler.HandleDashboard)
		r.Get("/activity", githubHandler.HandleActivity)
		r.Get("/repositories", githubHandler.HandleRepositories)
		r.Delete("/connection", githubHandler.HandleDisconnect)
	})

	s.router.Route("/api/ai", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/insights", aiHandler.HandleInsights)
		r.Post("/chat", aiHandler.HandleChat)
	})

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if err := s.db.Ping(ctx); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"unavailable"}`))
		return
	}
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// Handler exposes the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database. Start calls it on the way out.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start serves until SIGINT/SIGTERM, then drains in-flight requests for up
// to the configured shutdown timeout and closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Insight requests wait on GitHub and the LLM in sequence.
		WriteTimeout: s.config.GitHub.Timeout + s.config.LLM.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Server.Port),
			slog.String("env", s.config.Server.Env),
			slog.String("client_url", s.config.Server.ClientURL),
			slog.String("database", s.config.Database.Path),
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

		ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
