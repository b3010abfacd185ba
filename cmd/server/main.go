// Yellow Bank Super Agent - Loan Servicing Chat Server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/yellowbank/superagent/internal/bankdata"
	"github.com/yellowbank/superagent/internal/chat"
	"github.com/yellowbank/superagent/internal/chatws"
	"github.com/yellowbank/superagent/internal/config"
	"github.com/yellowbank/superagent/internal/gemini"
	"github.com/yellowbank/superagent/internal/httpapi"
	"github.com/yellowbank/superagent/internal/identity"
	"github.com/yellowbank/superagent/internal/middleware"
	"github.com/yellowbank/superagent/internal/store"
	"github.com/yellowbank/superagent/web"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	backend, err := gemini.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		slog.Error("Failed to initialize Gemini client", "error", err)
		os.Exit(1)
	}
	slog.Info("Gemini client initialized", "model", cfg.GeminiModel)

	transcript, err := chat.NewTranscriptLogger(chat.TranscriptLogConfig{
		Enabled:   cfg.TranscriptLog.Enabled,
		Dir:       cfg.TranscriptLog.Dir,
		QueueSize: cfg.TranscriptLog.QueueSize,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize transcript logger", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := transcript.Close(); closeErr != nil {
			slog.Error("Failed to close transcript logger", "error", closeErr)
		}
	}()

	// Initialize services.
	catalog := bankdata.NewStaticCatalog(time.Now().UnixNano())
	svc, err := chat.NewService(backend, catalog,
		chat.WithVerifyDelay(cfg.VerifyDelay),
		chat.WithTranscriptLogger(transcript),
	)
	if err != nil {
		slog.Error("Failed to initialize chat service", "error", err)
		os.Exit(1)
	}
	registry := chat.NewRegistry(svc.SeedWelcome)
	limiter := chat.NewRateLimiter(cfg.RateLimit.Limit, cfg.RateLimit.Window)
	connManager := chatws.NewConnManager()

	// Initialize handlers.
	apiHandler := httpapi.NewHandler(svc, registry, repo, limiter, connManager)
	wsHandler := chatws.NewHandler(svc, registry, repo, connManager, limiter, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(identity.Middleware(repo, cfg.IsDevelopment()))

	// All routes use identity middleware (no auth needed).
	apiHandler.RegisterRoutes(r)

	// WebSocket endpoint.
	r.Get("/ws/chat", wsHandler.ServeHTTP)

	// Serve embedded frontend (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	// WebSocket connections stay open indefinitely, so no write timeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
