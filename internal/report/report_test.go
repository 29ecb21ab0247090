package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/mining"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/mining/itemset"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/postgres"
)

func sampleRun() Run {
	return Run{
		Dataset:      "retail",
		Strategy:     "hybrid",
		K:            2,
		Transactions: 3,
		Items:        3,
		Itemsets: []itemset.Itemset{
			itemset.New([]string{"a"}, 1.4),
			itemset.New([]string{"b", "a"}, 0.4),
		},
		Threshold: 0.4,
		Density:   5.0 / 3.0,
		Role:      "uhmine",
		ElapsedMS: 12.7,
		MemoryMB:  0.5,
	}
}

func TestFileName(t *testing.T) {
	if got := FileName(sampleRun()); got != "hybrid_k2_retail.txt" {
		t.Errorf("FileName() = %q", got)
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteText(&buf, sampleRun()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"Itemset [a] | ExpSup=1.4000",
		"Itemset [a, b] | ExpSup=0.4000",
		"Top K = 2",
		"Transactions count from dataset : 3",
		"Selected role : uhmine",
		"Total time ~ 12 ms",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestWriteTextFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	path, err := WriteTextFile(dir, sampleRun())
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte("ExpSup=1.4000")) {
		t.Errorf("unexpected file content: %s", data)
	}
}

func TestCSVWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewCSVWriter(&buf, false)
	run := sampleRun()
	run.Dataset = `weird,"name"`
	if err := w.Write(run); err != nil {
		t.Fatal(err)
	}
	if err := w.Write(sampleRun()); err != nil {
		t.Fatal(err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records", len(records))
	}
	if records[0][0] != "dataset" || len(records[0]) != len(CSVHeader) {
		t.Errorf("header = %v", records[0])
	}
	if records[1][0] != `weird,"name"` {
		t.Errorf("quoted field round trip = %q", records[1][0])
	}
	if records[2][7] != "2" {
		t.Errorf("itemset count = %q", records[2][7])
	}
}

func TestCSVWriterAppendSkipsHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := NewCSVWriter(&buf, true).Write(sampleRun()); err != nil {
		t.Fatal(err)
	}
	if strings.HasPrefix(buf.String(), "dataset,") {
		t.Error("header written when appending")
	}
}

func TestFromResult(t *testing.T) {
	res := &mining.Result{
		Strategy:       mining.UApriori,
		K:              5,
		Transactions:   10,
		Items:          4,
		Threshold:      0.7,
		Elapsed:        1500 * time.Microsecond,
		AllocatedBytes: 2 << 20,
	}
	run := FromResult("mushroom", res)
	if run.Strategy != "uapriori" || run.Dataset != "mushroom" {
		t.Errorf("run = %+v", run)
	}
	if run.ElapsedMS != 1.5 || run.MemoryMB != 2 {
		t.Errorf("ElapsedMS=%v MemoryMB=%v", run.ElapsedMS, run.MemoryMB)
	}
}

// TestStoreRoundTrip needs a reachable PostgreSQL; it is skipped otherwise.
func TestStoreRoundTrip(t *testing.T) {
	cfg := config.PostgresConfig{
		Host:            envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:            5432,
		Database:        envOrDefault("TEST_POSTGRES_DB", "topkmining_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "topkmining"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	}
	db, err := postgres.New(cfg)
	if err != nil {
		t.Skipf("skipping: postgres unavailable: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	store := NewStore(db)
	if err := store.Migrate(ctx); err != nil {
		t.Fatal(err)
	}
	run := sampleRun()
	run.Dataset = "roundtrip-" + time.Now().Format("150405.000000")
	run.CreatedAt = time.Now().UTC()
	id, err := store.SaveRun(ctx, run)
	if err != nil {
		t.Fatal(err)
	}
	got, err := store.LatestRun(ctx, run.Dataset, run.Strategy)
	if err != nil || got == nil {
		t.Fatalf("LatestRun() = %v, %v", got, err)
	}
	if got.ID != id || len(got.Itemsets) != 2 || got.Itemsets[1].Key() != itemset.Key([]string{"a", "b"}) {
		t.Errorf("round trip mismatch: %+v", got)
	}
	missing, err := store.LatestRun(ctx, "no-such-dataset", "hybrid")
	if err != nil || missing != nil {
		t.Errorf("LatestRun(missing) = %v, %v", missing, err)
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
