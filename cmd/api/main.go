package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wrenware/tracker/internal/app/migrate"
	httpx "github.com/wrenware/tracker/internal/http"
	"github.com/wrenware/tracker/internal/repository/postgres"
	"github.com/wrenware/tracker/internal/service/auth"
	"github.com/wrenware/tracker/internal/service/catalog"
	"github.com/wrenware/tracker/internal/service/mutate"
	"github.com/wrenware/tracker/internal/session"
	"github.com/wrenware/tracker/internal/ws"
	"github.com/wrenware/tracker/pkg/config"
	"github.com/wrenware/tracker/pkg/logger"
)

func main() {
	cfg := config.LoadAPIConfig()
	log := logger.New("api", slog.LevelInfo)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	runner, err := migrate.New(pool, cfg.DatabaseURL, cfg.MigrationsDir, log)
	if err != nil {
		log.Error("failed to configure migrations", "error", err)
		os.Exit(1)
	}
	defer runner.Close()
	if err := runner.Ping(ctx); err != nil {
		log.Error("database ping failed", "error", err)
		os.Exit(1)
	}
	if err := runner.Ensure(ctx); err != nil {
		log.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	repo := postgres.New(pool)
	presenceHub := ws.NewHub()

	sessions := session.Store(nil)
	limiter := httpx.NewMemoryRateLimiter()
	if addr := strings.TrimSpace(cfg.RedisAddr); addr != "" {
		redisSessions, err := session.NewRedisStore(addr, cfg.RedisPassword, cfg.RedisDB, cfg.SessionTTL, log)
		if err != nil {
			log.Warn("redis session store unavailable, using in-memory sessions", "error", err)
		} else {
			sessions = redisSessions
		}
		redisLimiter, err := httpx.NewRedisRateLimiter(addr, cfg.RedisPassword, cfg.RedisDB, log)
		if err != nil {
			log.Warn("redis rate limiter unavailable", "error", err)
		} else {
			limiter.Close()
			limiter = redisLimiter
		}
	}
	if sessions == nil {
		sessions = session.NewMemoryStore(cfg.SessionTTL)
	}
	defer sessions.Close()

	authSvc := auth.New(repo, sessions, presenceHub, log)
	catalogSvc := catalog.New(repo, repo, repo, repo, repo, repo, repo, log)
	mutator := mutate.NewEngine(repo, repo, repo, repo, repo, log)

	router := httpx.NewRouter(log, cfg, authSvc, catalogSvc, mutator, presenceHub, limiter, pool.Ping)
	defer router.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("api server starting", "addr", cfg.Addr)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("api server stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}
