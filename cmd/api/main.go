// Copyright (c) 2026 Xit. All rights reserved.

// Command api is the entry point for the Xit HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent).
//  6. Wire domain services, the chat gateway, and the notification worker.
//  7. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
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

	"github.com/hibiken/asynq"
	goredis "github.com/redis/go-redis/v9"

	"github.com/moa-mel/xit-backend/internal/api"
	"github.com/moa-mel/xit-backend/internal/auth"
	"github.com/moa-mel/xit-backend/internal/chat"
	"github.com/moa-mel/xit-backend/internal/livestream"
	"github.com/moa-mel/xit-backend/internal/notification"
	"github.com/moa-mel/xit-backend/internal/platform/config"
	"github.com/moa-mel/xit-backend/internal/platform/constants"
	"github.com/moa-mel/xit-backend/internal/platform/migration"
	pgstore "github.com/moa-mel/xit-backend/internal/platform/postgres"
	redisstore "github.com/moa-mel/xit-backend/internal/platform/redis"
	"github.com/moa-mel/xit-backend/internal/platform/sec"
	"github.com/moa-mel/xit-backend/internal/podcast"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", constants.AppName))
	slog.SetDefault(log)

	log.Info("[Xit] service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", constants.AppName))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Token Signer ───────────────────────────────────────────────────
	signer, err := sec.NewTokenSigner(cfg.AccessTokenSecret, cfg.RefreshTokenSecret, constants.AuthIssuer)
	must(log, err, "initialize token signer")

	// ── 7. Health handlers (wired with real dependency checkers) ──────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func() error {
			return pgstore.Ping(context.Background(), pool)
		},
		CheckSessionStore: func() error {
			return redisstore.Ping(context.Background(), rdb)
		},
	}, log)

	// ── 8. Auth Wiring ────────────────────────────────────────────────────
	userRepository := auth.NewUserRepository(pool)
	tokenService := auth.NewTokenService(signer, auth.NewRefreshTokenStore(rdb), auth.NewBlacklistStore(rdb))
	authService := auth.NewService(
		userRepository,
		auth.NewSignupOTPStore(rdb),
		auth.NewResetOTPStore(rdb),
		auth.NewResetGrantStore(rdb),
		tokenService,
		&auth.LogMailer{Logger: log},
	)
	authHandler := auth.NewHandler(authService)

	// ── 9. Notification Pipeline ──────────────────────────────────────────
	// asynq rides the same Redis instance as the session stores.
	parsedRedis, err := goredis.ParseURL(cfg.RedisURL)
	must(log, err, "parse redis url")
	asynqRedis := asynq.RedisClientOpt{
		Addr:     parsedRedis.Addr,
		Password: parsedRedis.Password,
		DB:       parsedRedis.DB,
	}

	asynqClient := asynq.NewClient(asynqRedis)
	defer func() {
		if cerr := asynqClient.Close(); cerr != nil {
			log.Error("asynq client close error", slog.Any("error", cerr))
		}
	}()

	notificationStore := notification.NewStore(pool)
	notificationService := notification.NewService(
		notificationStore,
		notificationStore,
		notificationStore,
		notification.NewRedisPushSink(rdb),
		log,
	)
	notificationHandler := notification.NewHandler(notificationService)
	enqueuer := notification.NewEnqueuer(asynqClient)

	worker := asynq.NewServer(asynqRedis, asynq.Config{
		Concurrency: cfg.WorkerConcurrency,
		Queues:      map[string]int{notification.QueueName: 1},
	})
	must(log, worker.Start(notification.NewServeMux(notificationService, log)), "start notification worker")
	defer worker.Shutdown()

	// ── 10. Media Wiring ──────────────────────────────────────────────────
	livestreamRepository := livestream.NewRepository(pool)
	livestreamService := livestream.NewService(livestreamRepository, enqueuer, log)
	livestreamHandler := livestream.NewHandler(livestreamService)

	podcastService := podcast.NewService(podcast.NewRepository(pool), enqueuer, log)
	podcastHandler := podcast.NewHandler(podcastService)

	// ── 11. Chat Wiring ───────────────────────────────────────────────────
	// The gateway and the router reference each other, so the router is
	// attached after both exist.
	chatGuard := livestream.NewChatGuard(livestreamRepository)
	gateway := chat.NewGateway(tokenService, userRepository, chatGuard, log)
	chatRouter := chat.NewRouter(chat.NewRegistry(), chat.NewMessageStore(pool), gateway, log)
	gateway.AttachRouter(chatRouter)
	chatHandler := chat.NewHandler(chatRouter)

	// ── 12. HTTP Server ───────────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:     liveness,
		Readiness:    readiness,
		Auth:         authHandler,
		Chat:         chatHandler,
		ChatGateway:  gateway,
		Notification: notificationHandler,
		Livestream:   livestreamHandler,
		Podcast:      podcastHandler,
	}

	serverCtx, serverCancel := context.WithCancel(context.Background())
	defer serverCancel()

	server := api.NewServer(serverCtx, cfg, log, tokenService, handlers)

	// ── 13. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
