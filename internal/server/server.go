// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the "wiring" layer: it connects the database, services,
// handlers and middleware, and owns graceful shutdown.
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → sqlite.DB (migrated, globals seeded)
//	sqlite.DB     → repositories + Transactor → services → handlers → routes
//
// This is the "composition root" pattern: every dependency is wired here,
// rather than scattered across the codebase.
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

	"github.com/sakif/expense-ledger/internal/auth"
	"github.com/sakif/expense-ledger/internal/config"
	"github.com/sakif/expense-ledger/internal/handler"
	"github.com/sakif/expense-ledger/internal/middleware"
	"github.com/sakif/expense-ledger/internal/model"
	sqliteRepo "github.com/sakif/expense-ledger/internal/repository/sqlite"
	"github.com/sakif/expense-ledger/internal/service"
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection. Start closes it on shutdown so
// pending WAL writes are flushed and the file lock is released.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	tokens *auth.TokenService
}

// New opens the database, seeds the global categories and builds the router.
//
// IMPORT ALIAS:
// repository/sqlite is imported as sqliteRepo so it is not confused with the
// modernc sqlite driver.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Key:        cfg.JWTKey,
		Issuer:     cfg.JWTIssuer,
		Audience:   cfg.JWTAudience,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("configuring tokens: %w", err)
	}

	db, err := sqliteRepo.New(cfg.DBPath,
		sqliteRepo.WithLogger(logger),
		sqliteRepo.WithRetryPolicy(cfg.Retry),
	)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
		tokens: tokens,
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
//	POST   /api/auth/login              → Login
//	POST   /api/auth/refresh            → Rotate refresh token
//	POST   /api/auth/logout             → Revoke refresh token
//	POST   /api/users                   → Register
//	GET    /api/users/me                → Own profile              (auth)
//	PUT    /api/users/me                → Update own profile       (auth)
//	GET    /api/users/{id}              → Profile, admin or self   (auth)
//	GET    /api/categories/paging       → Page of categories       (auth)
//	GET    /api/categories              → All visible categories   (auth)
//	POST   /api/categories              → Create category          (auth)
//	PUT    /api/categories/active/{id}  → Toggle active flag       (auth)
//	GET    /api/categories/{id}         → One category             (auth)
//	PUT    /api/categories/{id}         → Rename category          (auth)
//	DELETE /api/categories/{id}         → Delete category          (auth)
//	GET    /api/expenses                → Page of expenses         (auth)
//	POST   /api/expenses                → Create expense           (auth)
//	GET    /api/expenses/{id}           → One expense              (auth)
//	PUT    /api/expenses/{id}           → Update expense           (auth)
//	DELETE /api/expenses/{id}           → Delete expense           (auth)
//	GET    /api/reports/monthly         → Monthly report           (auth)
//	GET    /healthz                     → Database ping
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID: assigns unique ID to each request (for tracing)
// 2. RealIP: extracts real client IP from proxy headers
// 3. Logger: logs each request with its request id and timing
// 4. Recoverer: catches panics and returns 500 instead of crashing
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	// === Services ===
	repos := s.db.Repositories()
	passwords := auth.NewPasswordService(s.config.PasswordIterations)

	authService := service.NewAuthService(repos, s.db, s.tokens, passwords, s.logger)
	userService := service.NewUserService(repos.Users, passwords, s.logger)
	categoryService := service.NewCategoryService(repos.Categories, s.db, s.logger)
	expenseService := service.NewExpenseService(repos, s.logger)
	reportService := service.NewReportService(repos.Expenses, s.logger)

	seedCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := categoryService.SeedGlobals(seedCtx, model.DefaultGlobalCategories...); err != nil {
		return fmt.Errorf("seeding global categories: %w", err)
	}

	// === Handlers ===
	authHandler := handler.NewAuthHandler(authService, s.logger)
	userHandler := handler.NewUserHandler(userService, s.logger)
	categoryHandler := handler.NewCategoryHandler(categoryService, s.logger)
	expenseHandler := handler.NewExpenseHandler(expenseService, s.logger)
	reportHandler := handler.NewReportHandler(reportService, s.logger)

	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/auth/login", authHandler.HandleLogin)
		r.Post("/auth/refresh", authHandler.HandleRefresh)
		r.Post("/auth/logout", authHandler.HandleLogout)
		r.Post("/users", userHandler.HandleRegister)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(s.tokens))

			r.Get("/users/me", userHandler.HandleMe)
			r.Put("/users/me", userHandler.HandleUpdateMe)
			r.Get("/users/{id}", userHandler.HandleGet)

			r.Get("/categories/paging", categoryHandler.HandlePage)
			r.Get("/categories", categoryHandler.HandleList)
			r.Post("/categories", categoryHandler.HandleCreate)
			r.Put("/categories/active/{id}", categoryHandler.HandleToggleActive)
			r.Get("/categories/{id}", categoryHandler.HandleGet)
			r.Put("/categories/{id}", categoryHandler.HandleUpdate)
			r.Delete("/categories/{id}", categoryHandler.HandleDelete)

			r.Get("/expenses", expenseHandler.HandlePage)
			r.Post("/expenses", expenseHandler.HandleCreate)
			r.Get("/expenses/{id}", expenseHandler.HandleGet)
			r.Put("/expenses/{id}", expenseHandler.HandleUpdate)
			r.Delete("/expenses/{id}", expenseHandler.HandleDelete)

			r.Get("/reports/monthly", reportHandler.HandleMonthly)
		})
	})

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

// Handler returns the fully wired router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database. Start calls it on shutdown.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the database connection (flushes WAL, releases file lock)
func (s *Server) Start() error {
	defer s.Close()

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
		if !errors.Is(err, http.ErrServerClosed) {
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
