package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/minhhieu-178/AI-Tutor-App/internal/config"
	"github.com/minhhieu-178/AI-Tutor-App/internal/database"
	"github.com/minhhieu-178/AI-Tutor-App/internal/handler"
	authhandler "github.com/minhhieu-178/AI-Tutor-App/internal/handler/auth"
	chathandler "github.com/minhhieu-178/AI-Tutor-App/internal/handler/chat"
	feedhandler "github.com/minhhieu-178/AI-Tutor-App/internal/handler/feed"
	streamhandler "github.com/minhhieu-178/AI-Tutor-App/internal/handler/stream"
	"github.com/minhhieu-178/AI-Tutor-App/internal/logger"
	"github.com/minhhieu-178/AI-Tutor-App/internal/metrics"
	"github.com/minhhieu-178/AI-Tutor-App/internal/repository"
	aiservice "github.com/minhhieu-178/AI-Tutor-App/internal/service/ai"
	authservice "github.com/minhhieu-178/AI-Tutor-App/internal/service/auth"
	chatservice "github.com/minhhieu-178/AI-Tutor-App/internal/service/chat"
	tutorservice "github.com/minhhieu-178/AI-Tutor-App/internal/service/tutor"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		slog.Warn("failed to load .env file, continuing with system environment", slog.String("error", err.Error()))
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.SetupDefault(cfg.Log.File)

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if cfg.Database.URL == "" {
			slog.Error("migrate requires DATABASE_URL")
			os.Exit(1)
		}
		if err := database.RunMigrations(cfg.Database.URL); err != nil {
			slog.Error("migration failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		slog.Info("database migrations completed")
		return
	}

	if err := run(ctx, cfg); err != nil {
		slog.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	var (
		users    repository.UserRepository
		sessions repository.SessionRepository
		messages repository.MessageRepository
		health   handler.HealthChecker
	)

	if cfg.Database.URL != "" {
		db, err := database.Open(cfg.Database.URL)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.PingContext(ctx); err != nil {
			return err
		}
		slog.Info("database connection established")

		users = repository.NewPostgresUserRepo(db)
		sessions = repository.NewPostgresSessionRepo(db)
		messages = repository.NewPostgresMessageRepo(db)
		health = db
	} else {
		slog.Info("DATABASE_URL not set, using in-memory store")
		store := repository.NewMemoryStore()
		users = store.Users()
		sessions = store.Sessions()
		messages = store.Messages()
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	authSvc := authservice.NewService(users, sessions, authservice.Config{
		SessionTTL:           cfg.Auth.SessionTTL,
		SignInAttemptsPerMin: cfg.Auth.SignInAttemptsPerMin,
		SignInBurst:          cfg.Auth.SignInBurst,
	})
	defer authSvc.Close()

	chatSvc := chatservice.NewService(messages)

	var completer tutorservice.Completer
	if cfg.AI.Enabled() {
		aiSvc, err := aiservice.NewService(ctx, cfg.AI)
		if err != nil {
			slog.Warn("failed to initialize AI service, continuing without AI", slog.String("error", err.Error()))
		} else {
			completer = aiSvc
			slog.Info("AI service initialized")
		}
	} else {
		slog.Info("ark credentials not configured, AI replies disabled")
	}

	tutorSvc := tutorservice.NewService(chatSvc, completer, collector)

	deps := &handler.RouterDeps{
		SessionFinder:     sessions,
		CORSAllowedOrigin: cfg.Server.CORSAllowedOrigin,
		AuthHandler:       authhandler.New(authSvc, collector, cfg.Server.CookieSecure),
		ChatHandler:       chathandler.New(chatSvc, tutorSvc),
		StreamHandler:     streamhandler.New(chatSvc, tutorSvc, collector),
		FeedHandler:       feedhandler.NewWebSocketHandler(chatSvc, tutorSvc),
		MetricsGatherer:   registry,
		HealthChecker:     health,
	}

	return startServer(ctx, cfg.Server.Addr, handler.NewRouter(deps))
}

func startServer(ctx context.Context, addr string, router http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	slog.Info("AI tutor backend listening", slog.String("addr", addr))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// sql.DB satisfies handler.HealthChecker through PingContext.
var _ handler.HealthChecker = (*sql.DB)(nil)
