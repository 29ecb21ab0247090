package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/report"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/service/cache"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/service/handler"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/ratelimit"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting mining service",
		"port", cfg.Server.Port,
		"default_strategy", cfg.Mining.DefaultStrategy,
		"max_k", cfg.Mining.MaxK,
		"max_concurrent_runs", cfg.Mining.MaxConcurrentRuns,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	opts := []handler.Option{
		handler.WithMetrics(m),
		handler.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
		handler.WithBulkhead(resilience.NewBulkhead("mining", cfg.Mining.MaxConcurrentRuns, cfg.Mining.RunQueueWait)),
	}
	checker := health.NewChecker()

	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, result caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			opts = append(opts, handler.WithCache(cache.New(redisClient, cfg.Redis, m)))
			checker.Register("redis", health.PingCheck(redisClient.Ping))
			slog.Info("result cache enabled",
				"addr", cfg.Redis.Addr,
				"ttl", cfg.Redis.CacheTTL,
			)
		}
	}

	if cfg.Postgres.Enabled {
		db, err := postgres.New(cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, run history disabled", "error", err)
		} else {
			defer db.Close()
			store := report.NewStore(db)
			if err := store.Migrate(ctx); err != nil {
				slog.Error("schema migration failed", "error", err)
				os.Exit(1)
			}
			opts = append(opts, handler.WithRuns(store))
			checker.Register("postgres", health.PingCheck(db.Ping))
		}
	}
	checker.Register("datasets", health.DirCheck(cfg.Datasets.ProbabilityDir))

	h := handler.New(cfg.Mining, opts...)

	mux := http.NewServeMux()
	h.Routes(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	if cfg.Server.MineRateLimit > 0 {
		limiter := ratelimit.New(cfg.Server.MineRateLimit, time.Minute)
		defer limiter.Close()
		chain = middleware.RateLimit(limiter)(chain)
	}
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout + 5*time.Second,
	}

	var shutdownMetrics func(context.Context) error
	if cfg.Metrics.Enabled {
		shutdownMetrics = metrics.StartServer(cfg.Metrics.Port, "mineserver")
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
		if shutdownMetrics != nil {
			if err := shutdownMetrics(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown error", "error", err)
			}
		}
	}()

	slog.Info("mining service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("mining service stopped")
}
