// Package jobs runs mining requests that arrive asynchronously on Kafka and
// publishes their outcome. A job carries its transactions inline or names a
// probability matrix below the worker's data directory.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/dataset"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/mining"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/mining/itemset"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/report"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/service"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/service/validator"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/resilience"
)

// Job outcomes, used as the result status and the metrics label.
const (
	StatusOK       = "ok"
	StatusInvalid  = "invalid"
	StatusFailed   = "failed"
	StatusNoData   = "no_data"
	StatusTimeout  = "timeout"
	StatusRejected = "rejected"
)

// MiningJob is the Kafka payload of a mining request. Exactly one of Path and
// Transactions must be set.
type MiningJob struct {
	ID               string               `json:"id"`
	Dataset          string               `json:"dataset,omitempty"`
	Path             string               `json:"path,omitempty"`
	Items            []string             `json:"items,omitempty"`
	Transactions     []map[string]float64 `json:"transactions,omitempty"`
	K                int                  `json:"k"`
	Strategy         string               `json:"strategy"`
	DensityThreshold float64              `json:"density_threshold"`
	SubmittedAt      time.Time            `json:"submitted_at"`
}

// MiningResultEvent is published once per job.
type MiningResultEvent struct {
	JobID        string            `json:"job_id"`
	Status       string            `json:"status"`
	Error        string            `json:"error,omitempty"`
	Dataset      string            `json:"dataset,omitempty"`
	Strategy     string            `json:"strategy,omitempty"`
	K            int               `json:"k"`
	Itemsets     []itemset.Itemset `json:"itemsets,omitempty"`
	Threshold    float64           `json:"threshold"`
	Density      float64           `json:"density"`
	Role         string            `json:"role,omitempty"`
	Transactions int               `json:"transactions"`
	Items        int               `json:"items"`
	ElapsedMS    float64           `json:"elapsed_ms"`
	MemoryMB     float64           `json:"memory_mb"`
	RunID        int64             `json:"run_id,omitempty"`
	CompletedAt  time.Time         `json:"completed_at"`
}

// Publisher delivers result events.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// RunSaver persists finished runs.
type RunSaver interface {
	SaveRun(ctx context.Context, run report.Run) (int64, error)
}

// Processor executes jobs.
type Processor struct {
	cfg       config.MiningConfig
	dataDir   string
	publisher Publisher
	store     RunSaver
	metrics   *metrics.Metrics
	retry     resilience.RetryConfig
	slots     *resilience.Bulkhead
	logger    *slog.Logger
}

// Option customises a Processor.
type Option func(*Processor)

// WithBulkhead takes a slot of b for every search.
func WithBulkhead(b *resilience.Bulkhead) Option {
	return func(p *Processor) { p.slots = b }
}

// WithStore saves every successful run in s.
func WithStore(s RunSaver) Option {
	return func(p *Processor) { p.store = s }
}

// WithMetrics counts processed jobs in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Processor) { p.metrics = m }
}

// WithRetry overrides the retry policy for publishing and saving.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(p *Processor) { p.retry = cfg }
}

// NewProcessor creates a Processor. Job paths are resolved below dataDir.
func NewProcessor(cfg config.MiningConfig, dataDir string, publisher Publisher, opts ...Option) *Processor {
	p := &Processor{
		cfg:       cfg,
		dataDir:   dataDir,
		publisher: publisher,
		retry: resilience.RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     5 * time.Second,
		},
		logger: logger.WithComponent("job-processor"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// HandleMessage adapts the processor to the Kafka consumer. Undecodable
// messages are reported as invalid input so the consumer commits past them.
func (p *Processor) HandleMessage() kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		job, err := kafka.DecodeJSON[MiningJob](value)
		if err != nil {
			p.count(StatusInvalid)
			p.logger.Error("failed to decode mining job", "key", string(key), "error", err)
			return err
		}
		if job.ID == "" {
			job.ID = string(key)
		}
		_, err = p.Process(ctx, job)
		return err
	}
}

// Process runs job and publishes its result event. The returned error is
// non-nil only when the event could not be published.
func (p *Processor) Process(ctx context.Context, job MiningJob) (*MiningResultEvent, error) {
	ctx = logger.WithJobID(ctx, job.ID)
	log := logger.FromContext(ctx).With("component", "job-processor")

	p.applyDefaults(&job)
	event := &MiningResultEvent{
		JobID:    job.ID,
		Dataset:  job.Dataset,
		Strategy: strings.ToLower(strings.TrimSpace(job.Strategy)),
		K:        job.K,
	}

	res, err := p.run(ctx, &job)
	event.Dataset = job.Dataset
	switch {
	case errors.Is(err, apperrors.ErrNoData):
		event.Status = StatusNoData
	case errors.Is(err, apperrors.ErrTimeout):
		event.Status = StatusTimeout
	case errors.Is(err, apperrors.ErrOverloaded):
		event.Status = StatusRejected
	case errors.Is(err, apperrors.ErrInvalidInput), errors.Is(err, apperrors.ErrUnknownStrategy):
		event.Status = StatusInvalid
	case err != nil:
		event.Status = StatusFailed
	default:
		event.Status = StatusOK
	}
	if err != nil {
		event.Error = err.Error()
		log.Warn("mining job did not complete", "status", event.Status, "error", err)
	} else {
		p.fill(ctx, event, res)
		log.Info("mining job complete",
			"dataset", event.Dataset,
			"strategy", event.Strategy,
			"k", event.K,
			"itemsets", len(event.Itemsets),
			"threshold", event.Threshold,
			"run_id", event.RunID,
		)
	}
	event.CompletedAt = time.Now().UTC()
	p.count(event.Status)

	err = resilience.Retry(ctx, "publish result "+job.ID, p.retry, func() error {
		return p.publisher.Publish(ctx, kafka.Event{Key: job.ID, Value: event})
	})
	if err != nil {
		return event, fmt.Errorf("publishing result of job %s: %w", job.ID, err)
	}
	return event, nil
}

func (p *Processor) applyDefaults(job *MiningJob) {
	if job.K == 0 {
		job.K = p.cfg.DefaultK
	}
	if strings.TrimSpace(job.Strategy) == "" {
		job.Strategy = p.cfg.DefaultStrategy
	}
	if job.DensityThreshold == 0 {
		job.DensityThreshold = p.cfg.DensityThreshold
	}
}

func (p *Processor) run(ctx context.Context, job *MiningJob) (*mining.Result, error) {
	strategy, err := mining.ParseStrategy(job.Strategy)
	if err != nil {
		return nil, err
	}
	if job.K < 1 || (p.cfg.MaxK > 0 && job.K > p.cfg.MaxK) {
		return nil, apperrors.Invalidf("k=%d outside [1, %d]", job.K, p.cfg.MaxK)
	}
	db, err := p.load(job)
	if err != nil {
		return nil, err
	}

	var res *mining.Result
	err = p.slots.Run(ctx, p.cfg.RunTimeout, "mining job "+job.ID, func(context.Context) error {
		out, err := mining.Run(strategy, db, mining.Options{K: job.K, DensityThreshold: job.DensityThreshold})
		res = out
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (p *Processor) load(job *MiningJob) ([]itemset.Transaction, error) {
	switch {
	case job.Path != "" && len(job.Transactions) > 0:
		return nil, apperrors.Invalidf("job sets both path and transactions")
	case job.Path != "":
		if job.Dataset == "" {
			job.Dataset = dataset.Name(job.Path)
		}
		path := filepath.Join(p.dataDir, filepath.Clean("/"+job.Path))
		return dataset.LoadFile(path, job.Items)
	case len(job.Transactions) > 0:
		if job.Dataset == "" {
			job.Dataset = "inline"
		}
		req := service.MineRequest{
			Transactions:     job.Transactions,
			K:                job.K,
			Strategy:         job.Strategy,
			DensityThreshold: job.DensityThreshold,
		}
		if err := validator.ValidateMineRequest(&req, validator.Limits{
			MaxK:            p.cfg.MaxK,
			MaxTransactions: p.cfg.MaxTransactions,
		}); err != nil {
			return nil, err
		}
		return req.Database(), nil
	default:
		return nil, apperrors.Invalidf("job has neither path nor transactions")
	}
}

func (p *Processor) fill(ctx context.Context, event *MiningResultEvent, res *mining.Result) {
	run := report.FromResult(event.Dataset, res)
	event.Strategy = run.Strategy
	event.Itemsets = run.Itemsets
	event.Threshold = run.Threshold
	event.Density = run.Density
	event.Role = run.Role
	event.Transactions = run.Transactions
	event.Items = run.Items
	event.ElapsedMS = run.ElapsedMS
	event.MemoryMB = run.MemoryMB

	p.metrics.ObserveRun(metrics.RunObservation{
		Strategy:     run.Strategy,
		Status:       StatusOK,
		Duration:     res.Elapsed,
		Itemsets:     len(res.Itemsets),
		Threshold:    res.Threshold,
		Evaluated:    res.Stats.Evaluated,
		BoundPruned:  res.Stats.BoundPruned,
		SubsetPruned: res.Stats.SubsetPruned,
		ESPruned:     res.Stats.ESPruned,
	})

	if p.store == nil {
		return
	}
	err := resilience.Retry(ctx, "save run "+event.JobID, p.retry, func() error {
		id, err := p.store.SaveRun(ctx, run)
		if err == nil {
			event.RunID = id
		}
		return err
	})
	if err != nil {
		logger.FromContext(ctx).Error("failed to save run", "error", err)
	}
}

func (p *Processor) count(status string) {
	if p.metrics == nil {
		return
	}
	p.metrics.JobsProcessedTotal.WithLabelValues(status).Inc()
}
