// Package bench runs every configured strategy over every dataset in a
// directory and records timing, memory and results. It is the batch
// counterpart of the HTTP service.
package bench

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/dataset"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/mining"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/mining/itemset"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/report"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/tracing"
)

// CSVName is the benchmark table written into the output directory.
const CSVName = "benchmark.csv"

// RunSaver persists finished runs.
type RunSaver interface {
	SaveRun(ctx context.Context, run report.Run) (int64, error)
}

// Summary counts what a benchmark pass did.
type Summary struct {
	Datasets int
	Runs     int
	Skipped  int
	TimedOut int
	Reports  []string
}

// Runner executes a benchmark pass.
type Runner struct {
	datasets   config.DatasetsConfig
	mining     config.MiningConfig
	strategies []mining.Strategy
	kValues    []int
	store      RunSaver
	slots      *resilience.Bulkhead
	metrics    *metrics.Metrics
	logger     *slog.Logger

	mu      sync.Mutex
	summary Summary
}

// Option customises a Runner.
type Option func(*Runner)

// WithStore saves every run in s.
func WithStore(s RunSaver) Option {
	return func(r *Runner) { r.store = s }
}

// WithMetrics records every run in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithKValues overrides the configured K values.
func WithKValues(ks ...int) Option {
	return func(r *Runner) { r.kValues = ks }
}

// NewRunner validates the configured strategies and K values.
func NewRunner(ds config.DatasetsConfig, mc config.MiningConfig, opts ...Option) (*Runner, error) {
	r := &Runner{
		datasets: ds,
		mining:   mc,
		kValues:  ds.KValues,
		slots:    resilience.NewBulkhead("bench", mc.MaxConcurrentRuns, 0),
		logger:   logger.WithComponent("bench-runner"),
	}
	for _, opt := range opts {
		opt(r)
	}
	names := ds.Strategies
	if len(names) == 0 {
		for _, s := range mining.Strategies() {
			names = append(names, string(s))
		}
	}
	for _, name := range names {
		s, err := mining.ParseStrategy(name)
		if err != nil {
			return nil, err
		}
		r.strategies = append(r.strategies, s)
	}
	if len(r.kValues) == 0 {
		r.kValues = []int{mc.DefaultK}
	}
	for _, k := range r.kValues {
		if k <= 0 || (mc.MaxK > 0 && k > mc.MaxK) {
			return nil, apperrors.Invalidf("k=%d outside [1, %d]", k, mc.MaxK)
		}
	}
	return r, nil
}

// Run processes every origin dataset, at most Concurrency at a time. A
// dataset with no transactions is skipped; a run that exceeds RunTimeout is
// abandoned and the next one starts once fewer than MaxConcurrentRuns
// searches are still running.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	origins, err := dataset.Discover(r.datasets.OriginDir)
	if err != nil {
		return Summary{}, err
	}
	if len(origins) == 0 {
		return Summary{}, fmt.Errorf("%w: no *.txt datasets in %s", apperrors.ErrNoData, r.datasets.OriginDir)
	}
	if err := os.MkdirAll(r.datasets.OutputDir, 0o755); err != nil {
		return Summary{}, fmt.Errorf("creating output dir: %w", err)
	}

	csvPath := filepath.Join(r.datasets.OutputDir, CSVName)
	_, statErr := os.Stat(csvPath)
	csvFile, err := os.OpenFile(csvPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return Summary{}, fmt.Errorf("opening %s: %w", csvPath, err)
	}
	defer csvFile.Close()
	csvWriter := report.NewCSVWriter(csvFile, statErr == nil)

	r.logger.Info("benchmark started",
		"datasets", len(origins),
		"strategies", r.strategies,
		"k_values", r.kValues,
		"concurrency", r.datasets.Concurrency,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.datasets.Concurrency, 1))
	for i, origin := range origins {
		seed := r.datasets.Seed + int64(i)
		g.Go(func() error {
			return r.runDataset(gctx, origin, seed, csvWriter)
		})
	}
	err = g.Wait()

	r.mu.Lock()
	summary := r.summary
	r.mu.Unlock()
	summary.Datasets = len(origins)

	r.logger.Info("benchmark finished",
		"runs", summary.Runs,
		"skipped", summary.Skipped,
		"timed_out", summary.TimedOut,
	)
	return summary, err
}

func (r *Runner) runDataset(ctx context.Context, originPath string, seed int64, csvWriter *report.CSVWriter) error {
	name := dataset.Name(originPath)
	log := r.logger.With("dataset", name)

	ctx, root := tracing.StartSpan(ctx, "dataset", tracing.NewTraceID())
	root.SetAttr("dataset", name)
	defer func() {
		root.End()
		root.Log(log)
	}()

	_, genSpan := tracing.StartChildSpan(ctx, "generate")
	probPath := dataset.ProbabilityPath(r.datasets.ProbabilityDir, name)
	items, err := dataset.GenerateFile(originPath, probPath, rand.New(rand.NewSource(seed)))
	genSpan.End()
	if err != nil {
		return fmt.Errorf("dataset %s: %w", name, err)
	}

	_, loadSpan := tracing.StartChildSpan(ctx, "load")
	db, err := dataset.LoadFile(probPath, items)
	loadSpan.End()
	if err != nil {
		return fmt.Errorf("dataset %s: %w", name, err)
	}
	info := dataset.Stats(db)
	log.Info("dataset loaded",
		"transactions", info.Transactions,
		"items", info.Items,
		"density", info.Density,
	)

	for _, k := range r.kValues {
		for _, strategy := range r.strategies {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := r.runOne(ctx, name, db, strategy, k, csvWriter); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Runner) runOne(ctx context.Context, name string, db []itemset.Transaction, strategy mining.Strategy, k int, csvWriter *report.CSVWriter) error {
	log := r.logger.With("dataset", name, "strategy", string(strategy), "k", k)

	_, span := tracing.StartChildSpan(ctx, "mine:"+string(strategy))
	var res *mining.Result
	err := r.slots.Run(ctx, r.mining.RunTimeout, "mining "+string(strategy), func(context.Context) error {
		out, err := mining.Run(strategy, db, mining.Options{K: k, DensityThreshold: r.mining.DensityThreshold})
		res = out
		return err
	})
	span.End()

	switch {
	case errors.Is(err, apperrors.ErrNoData):
		log.Warn("dataset has no transactions, skipping")
		r.metrics.ObserveRun(metrics.RunObservation{Strategy: string(strategy), Status: "no_data"})
		r.count(func(s *Summary) { s.Skipped++ })
		return nil
	case errors.Is(err, apperrors.ErrTimeout):
		log.Warn("mining run timed out", "limit", r.mining.RunTimeout)
		r.metrics.ObserveRun(metrics.RunObservation{Strategy: string(strategy), Status: "timeout"})
		r.count(func(s *Summary) { s.TimedOut++ })
		return nil
	case err != nil:
		r.metrics.ObserveRun(metrics.RunObservation{Strategy: string(strategy), Status: "error"})
		return fmt.Errorf("dataset %s strategy %s: %w", name, strategy, err)
	}

	r.metrics.ObserveRun(metrics.RunObservation{
		Strategy:     string(strategy),
		Status:       "ok",
		Duration:     res.Elapsed,
		Itemsets:     len(res.Itemsets),
		Threshold:    res.Threshold,
		Evaluated:    res.Stats.Evaluated,
		BoundPruned:  res.Stats.BoundPruned,
		SubsetPruned: res.Stats.SubsetPruned,
		ESPruned:     res.Stats.ESPruned,
	})

	run := report.FromResult(name, res)
	path, err := report.WriteTextFile(r.datasets.OutputDir, run)
	if err != nil {
		return err
	}
	if err := csvWriter.Write(run); err != nil {
		return err
	}
	if r.store != nil {
		if _, err := r.store.SaveRun(ctx, run); err != nil {
			log.Error("failed to save run", "error", err)
		}
	}

	log.Info("run complete",
		"itemsets", len(run.Itemsets),
		"threshold", run.Threshold,
		"elapsed_ms", run.ElapsedMS,
		"memory_mb", run.MemoryMB,
		"report", path,
	)
	r.count(func(s *Summary) {
		s.Runs++
		s.Reports = append(s.Reports, path)
	})
	return nil
}

func (r *Runner) count(fn func(*Summary)) {
	r.mu.Lock()
	fn(&r.summary)
	r.mu.Unlock()
}
