package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/jobs"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/report"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/postgres"
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
	slog.Info("starting mining worker",
		"jobs_topic", cfg.Kafka.Topics.MiningJobs,
		"results_topic", cfg.Kafka.Topics.MiningResults,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdown := metrics.StartServer(cfg.Metrics.Port, "worker")
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown error", "error", err)
			}
		}()
	}

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.MiningResults)
	defer producer.Close()

	opts := []jobs.Option{jobs.WithMetrics(m)}
	if cfg.Postgres.Enabled {
		var db *postgres.Client
		err := resilience.Retry(ctx, "postgres connect", resilience.RetryConfig{
			MaxAttempts:  10,
			InitialDelay: time.Second,
			MaxDelay:     15 * time.Second,
		}, func() error {
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
		opts = append(opts, jobs.WithStore(store))
	}

	// Jobs wait for a slot rather than fail; the consumer stalls while
	// abandoned searches drain.
	opts = append(opts, jobs.WithBulkhead(resilience.NewBulkhead("mining", cfg.Mining.MaxConcurrentRuns, 0)))
	processor := jobs.NewProcessor(cfg.Mining, cfg.Datasets.ProbabilityDir, producer, opts...)
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.MiningJobs, processor.HandleMessage())

	slog.Info("mining worker ready, consuming from kafka",
		"topic", cfg.Kafka.Topics.MiningJobs,
		"group", cfg.Kafka.ConsumerGroup,
		"data_dir", cfg.Datasets.ProbabilityDir,
	)
	if err := consumer.Start(ctx); err != nil {
		slog.Error("consumer error", "error", err)
	}

	slog.Info("mining worker stopped")
}
