// Command server starts the interview evaluator HTTP server.
package main

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

	"github.com/redis/go-redis/v9"

	"github.com/hiresim/interview-evaluator/internal/adapter/ai/groq"
	httpserver "github.com/hiresim/interview-evaluator/internal/adapter/httpserver"
	"github.com/hiresim/interview-evaluator/internal/adapter/identity"
	"github.com/hiresim/interview-evaluator/internal/adapter/lock/redislock"
	"github.com/hiresim/interview-evaluator/internal/adapter/observability"
	"github.com/hiresim/interview-evaluator/internal/adapter/repo/postgres"
	"github.com/hiresim/interview-evaluator/internal/adapter/transcriber/deepgram"
	"github.com/hiresim/interview-evaluator/internal/app"
	"github.com/hiresim/interview-evaluator/internal/config"
	"github.com/hiresim/interview-evaluator/internal/questions"
	"github.com/hiresim/interview-evaluator/internal/usecase"
)

// redisAdapter narrows *redis.Client to the readiness interface.
type redisAdapter struct{ *redis.Client }

func (r redisAdapter) Ping(ctx context.Context) app.RedisPingResult { return r.Client.Ping(ctx) }

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		slog.Error("db connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	msgRepo := postgres.NewMessageRepo(pool)
	fbRepo := postgres.NewFeedbackRepo(pool)

	if cfg.DataRetentionDays > 0 {
		cleanupSvc := postgres.NewCleanupService(pool, cfg.DataRetentionDays)
		go cleanupSvc.RunPeriodic(ctx, cfg.CleanupInterval)
		slog.Info("cleanup service started", slog.Int("retention_days", cfg.DataRetentionDays), slog.Duration("interval", cfg.CleanupInterval))
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	defer func() { _ = rdb.Close() }()
	locker := redislock.New(rdb, cfg.ConversationLockTTL)

	aiClient := groq.New(cfg)
	transcriber := deepgram.New(cfg)
	idp := identity.New(cfg)

	bank, err := questions.Load()
	if err != nil {
		slog.Error("question bank load failed", slog.Any("error", err))
		os.Exit(1)
	}

	interviewSvc := usecase.NewInterviewService(msgRepo, fbRepo, bank)
	evalSvc := usecase.NewEvaluationService(msgRepo, fbRepo, aiClient, locker, cfg)

	dbCheck, redisCheck := app.BuildReadinessChecks(pool, redisAdapter{rdb})

	srv := httpserver.NewServer(cfg, interviewSvc, evalSvc, transcriber, bank, dbCheck, redisCheck)
	handler := app.BuildRouter(cfg, srv, idp)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}
