package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/report"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/resilience"
)

type fakePublisher struct {
	mu       sync.Mutex
	events   []kafka.Event
	failures int
}

func (f *fakePublisher) Publish(_ context.Context, event kafka.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("broker unavailable")
	}
	f.events = append(f.events, event)
	return nil
}

type fakeStore struct {
	runs []report.Run
}

func (f *fakeStore) SaveRun(_ context.Context, run report.Run) (int64, error) {
	f.runs = append(f.runs, run)
	return int64(len(f.runs)), nil
}

var miningCfg = config.MiningConfig{
	DefaultK:         10,
	MaxK:             100,
	DensityThreshold: 5,
	RunTimeout:       10 * time.Second,
	DefaultStrategy:  "hybrid",
	MaxTransactions:  1000,
}

var fastRetry = resilience.RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}

func inlineJob() MiningJob {
	return MiningJob{
		ID: "job-1",
		Transactions: []map[string]float64{
			{"a": 0.5, "b": 0.8},
			{"a": 0.9},
			{"b": 0.6, "c": 0.3},
		},
		K:        2,
		Strategy: "uapriori",
	}
}

func TestProcessInlineJob(t *testing.T) {
	pub := &fakePublisher{}
	store := &fakeStore{}
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	p := NewProcessor(miningCfg, t.TempDir(), pub, WithStore(store), WithMetrics(m), WithRetry(fastRetry))

	event, err := p.Process(context.Background(), inlineJob())
	if err != nil {
		t.Fatal(err)
	}
	if event.Status != StatusOK || event.Dataset != "inline" || event.Strategy != "uapriori" {
		t.Fatalf("event = %+v", event)
	}
	if len(event.Itemsets) != 2 || event.Threshold < 1.4-1e-9 {
		t.Errorf("itemsets=%v threshold=%v", event.Itemsets, event.Threshold)
	}
	if event.RunID != 1 || len(store.runs) != 1 {
		t.Errorf("run id %d, stored %d", event.RunID, len(store.runs))
	}
	if len(pub.events) != 1 || pub.events[0].Key != "job-1" {
		t.Fatalf("published %+v", pub.events)
	}

	var processed dto.Metric
	if err := m.JobsProcessedTotal.WithLabelValues(StatusOK).Write(&processed); err != nil {
		t.Fatal(err)
	}
	if processed.GetCounter().GetValue() != 1 {
		t.Errorf("jobs processed = %v", processed.GetCounter().GetValue())
	}
}

func TestProcessPathJob(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "retail_probability.txt"), []byte("0.5 0.8 0\n0.9 0 0\n0 0.6 0.3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	pub := &fakePublisher{}
	p := NewProcessor(miningCfg, dir, pub, WithRetry(fastRetry))

	event, err := p.Process(context.Background(), MiningJob{
		ID:    "job-2",
		Path:  "retail_probability.txt",
		Items: []string{"a", "b", "c"},
		K:     3,
	})
	if err != nil {
		t.Fatal(err)
	}
	if event.Status != StatusOK || event.Strategy != "hybrid" || event.Role != "uhmine" {
		t.Fatalf("event = %+v", event)
	}
	if len(event.Itemsets) != 3 || event.Itemsets[2].Len() != 2 {
		t.Errorf("itemsets = %v", event.Itemsets)
	}
	if event.Dataset != "retail_probability" {
		t.Errorf("dataset = %q", event.Dataset)
	}
}

func TestProcessFailures(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name   string
		job    MiningJob
		status string
	}{
		{"unknown strategy", MiningJob{ID: "x", Transactions: inlineJob().Transactions, Strategy: "eclat"}, StatusInvalid},
		{"k above max", MiningJob{ID: "x", Transactions: inlineJob().Transactions, K: 1000}, StatusInvalid},
		{"no source", MiningJob{ID: "x"}, StatusInvalid},
		{"both sources", MiningJob{ID: "x", Path: "a.txt", Transactions: inlineJob().Transactions}, StatusInvalid},
		{"bad probability", MiningJob{ID: "x", Transactions: []map[string]float64{{"a": 2}}}, StatusInvalid},
		{"missing file", MiningJob{ID: "x", Path: "missing.txt"}, StatusFailed},
		{"escaping path", MiningJob{ID: "x", Path: "../../etc/passwd"}, StatusFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &fakePublisher{}
			p := NewProcessor(miningCfg, dir, pub, WithRetry(fastRetry))
			event, err := p.Process(context.Background(), tt.job)
			if err != nil {
				t.Fatal(err)
			}
			if event.Status != tt.status || event.Error == "" {
				t.Errorf("status=%q error=%q", event.Status, event.Error)
			}
			if len(pub.events) != 1 {
				t.Errorf("published %d events", len(pub.events))
			}
		})
	}
}

func TestProcessEmptyDataset(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "empty.txt"), []byte("\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	p := NewProcessor(miningCfg, dir, &fakePublisher{}, WithRetry(fastRetry))
	event, err := p.Process(context.Background(), MiningJob{ID: "e", Path: "empty.txt"})
	if err != nil {
		t.Fatal(err)
	}
	if event.Status != StatusNoData {
		t.Errorf("status = %q", event.Status)
	}
}

func TestProcessRejectedWhenSlotsBusy(t *testing.T) {
	slots := resilience.NewBulkhead("mining", 1, 10*time.Millisecond)
	started := make(chan struct{})
	release := make(chan struct{})
	go slots.Run(context.Background(), 0, "busy", func(context.Context) error {
		close(started)
		<-release
		return nil
	})
	<-started
	defer close(release)

	pub := &fakePublisher{}
	p := NewProcessor(miningCfg, t.TempDir(), pub, WithBulkhead(slots), WithRetry(fastRetry))
	event, err := p.Process(context.Background(), inlineJob())
	if err != nil {
		t.Fatal(err)
	}
	if event.Status != StatusRejected || event.Error == "" {
		t.Errorf("event = %+v", event)
	}
	if len(pub.events) != 1 {
		t.Errorf("published %d events", len(pub.events))
	}
	if slots.Rejected() != 1 {
		t.Errorf("Rejected() = %d", slots.Rejected())
	}
}

func TestProcessRetriesPublish(t *testing.T) {
	pub := &fakePublisher{failures: 2}
	p := NewProcessor(miningCfg, t.TempDir(), pub, WithRetry(fastRetry))
	if _, err := p.Process(context.Background(), inlineJob()); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}

	pub = &fakePublisher{failures: 5}
	p = NewProcessor(miningCfg, t.TempDir(), pub, WithRetry(fastRetry))
	if _, err := p.Process(context.Background(), inlineJob()); err == nil {
		t.Error("expected publish failure")
	}
}

func TestHandleMessage(t *testing.T) {
	pub := &fakePublisher{}
	handle := NewProcessor(miningCfg, t.TempDir(), pub, WithRetry(fastRetry)).HandleMessage()

	job := inlineJob()
	job.ID = ""
	value, err := json.Marshal(job)
	if err != nil {
		t.Fatal(err)
	}
	if err := handle(context.Background(), []byte("from-key"), value); err != nil {
		t.Fatal(err)
	}
	if len(pub.events) != 1 || pub.events[0].Key != "from-key" {
		t.Errorf("events = %+v", pub.events)
	}

	err = handle(context.Background(), []byte("bad"), []byte("{not json"))
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
