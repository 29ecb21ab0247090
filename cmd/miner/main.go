package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/bench"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/report"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	strategies := flag.String("strategies", "", "comma-separated strategies (default: from config)")
	kValues := flag.String("k", "", "comma-separated K values (default: from config)")
	originDir := flag.String("origin", "", "directory of origin datasets (default: from config)")
	outputDir := flag.String("out", "", "report directory (default: from config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	if *strategies != "" {
		cfg.Datasets.Strategies = splitList(*strategies)
	}
	if *originDir != "" {
		cfg.Datasets.OriginDir = *originDir
	}
	if *outputDir != "" {
		cfg.Datasets.OutputDir = *outputDir
	}
	var opts []bench.Option
	if *kValues != "" {
		ks, err := parseInts(*kValues)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -k: %v\n", err)
			os.Exit(2)
		}
		opts = append(opts, bench.WithKValues(ks...))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		opts = append(opts, bench.WithMetrics(metrics.New()))
		shutdown := metrics.StartServer(cfg.Metrics.Port, "miner")
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdown(shutdownCtx)
		}()
	}

	if cfg.Postgres.Enabled {
		var db *postgres.Client
		err := resilience.Retry(ctx, "postgres connect", resilience.RetryConfig{MaxAttempts: 5, InitialDelay: time.Second}, func() error {
			var err error
			db, err = postgres.New(cfg.Postgres)
			return err
		})
		if err != nil {
			slog.Error("postgres unavailable", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		store := report.NewStore(db)
		if err := store.Migrate(ctx); err != nil {
			slog.Error("schema migration failed", "error", err)
			os.Exit(1)
		}
		opts = append(opts, bench.WithStore(store))
		slog.Info("run history enabled", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
	}

	runner, err := bench.NewRunner(cfg.Datasets, cfg.Mining, opts...)
	if err != nil {
		slog.Error("invalid benchmark settings", "error", err)
		os.Exit(2)
	}

	start := time.Now()
	summary, err := runner.Run(ctx)
	if err != nil {
		slog.Error("benchmark failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("datasets: %d  runs: %d  skipped: %d  timed out: %d  (%s)\n",
		summary.Datasets, summary.Runs, summary.Skipped, summary.TimedOut, time.Since(start).Round(time.Millisecond))
	fmt.Printf("reports written to %s\n", cfg.Datasets.OutputDir)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseInts(s string) ([]int, error) {
	var out []int
	for _, part := range splitList(s) {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer", part)
		}
		out = append(out, n)
	}
	return out, nil
}
