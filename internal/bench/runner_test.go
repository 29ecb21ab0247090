package bench

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/report"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/errors"
)

type memoryStore struct {
	mu   sync.Mutex
	runs []report.Run
}

func (m *memoryStore) SaveRun(_ context.Context, run report.Run) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return int64(len(m.runs)), nil
}

func setup(t *testing.T, files map[string]string) config.DatasetsConfig {
	t.Helper()
	root := t.TempDir()
	origin := filepath.Join(root, "origin")
	if err := os.MkdirAll(origin, 0o755); err != nil {
		t.Fatal(err)
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(origin, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return config.DatasetsConfig{
		OriginDir:      origin,
		ProbabilityDir: filepath.Join(root, "probability"),
		OutputDir:      filepath.Join(root, "output"),
		Concurrency:    2,
		Strategies:     []string{"uapriori", "hybrid"},
		KValues:        []int{2, 5},
		Seed:           1,
	}
}

func miningConfig() config.MiningConfig {
	return config.MiningConfig{
		DefaultK:         10,
		MaxK:             100,
		DensityThreshold: 2,
		RunTimeout:       10 * time.Second,
	}
}

func TestRunnerWritesReports(t *testing.T) {
	ds := setup(t, map[string]string{
		"small.txt":  "a b c\na b\nb c d\na d\n",
		"second.txt": "x y\ny z\nx y z\n",
	})
	store := &memoryStore{}
	r, err := NewRunner(ds, miningConfig(), WithStore(store))
	if err != nil {
		t.Fatal(err)
	}
	summary, err := r.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	const wantRuns = 2 * 2 * 2
	if summary.Datasets != 2 || summary.Runs != wantRuns {
		t.Fatalf("summary = %+v", summary)
	}
	if len(store.runs) != wantRuns {
		t.Errorf("stored %d runs", len(store.runs))
	}
	for _, name := range []string{"uapriori_k2_small.txt", "hybrid_k5_second.txt"} {
		if _, err := os.Stat(filepath.Join(ds.OutputDir, name)); err != nil {
			t.Errorf("missing report %s: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(ds.ProbabilityDir, "small_probability.txt")); err != nil {
		t.Errorf("probability file not generated: %v", err)
	}

	f, err := os.Open(filepath.Join(ds.OutputDir, CSVName))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != wantRuns+1 {
		t.Errorf("benchmark.csv has %d records, want %d", len(records), wantRuns+1)
	}
}

func TestRunnerSkipsEmptyDataset(t *testing.T) {
	ds := setup(t, map[string]string{"empty.txt": "\n\n"})
	r, err := NewRunner(ds, miningConfig())
	if err != nil {
		t.Fatal(err)
	}
	summary, err := r.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if summary.Runs != 0 || summary.Skipped != 4 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestRunnerNoDatasets(t *testing.T) {
	ds := setup(t, nil)
	r, err := NewRunner(ds, miningConfig())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Run(context.Background()); !errors.Is(err, apperrors.ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
}

func TestNewRunnerValidation(t *testing.T) {
	ds := setup(t, nil)
	ds.Strategies = []string{"eclat"}
	if _, err := NewRunner(ds, miningConfig()); !errors.Is(err, apperrors.ErrUnknownStrategy) {
		t.Errorf("expected ErrUnknownStrategy, got %v", err)
	}

	ds.Strategies = nil
	if _, err := NewRunner(ds, miningConfig(), WithKValues(0)); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	r, err := NewRunner(ds, miningConfig())
	if err != nil {
		t.Fatal(err)
	}
	if len(r.strategies) != 5 {
		t.Errorf("default strategies = %v", r.strategies)
	}
}
