package dataset

import (
	"bytes"
	"errors"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/errors"
)

func TestReadOrigin(t *testing.T) {
	in := "bread milk\n\n  milk eggs bread \nbeer\n"
	txs, universe, err := ReadOrigin(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 3 {
		t.Fatalf("got %d transactions", len(txs))
	}
	want := []string{"bread", "milk", "eggs", "beer"}
	if !reflect.DeepEqual(universe, want) {
		t.Errorf("universe = %v, want %v", universe, want)
	}
}

func TestGenerateMatrixShape(t *testing.T) {
	origin := [][]string{{"a", "b"}, {"c"}, {"b", "c", "a"}}
	var buf bytes.Buffer
	universe, err := Generate(origin, &buf, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(universe, []string{"a", "b", "c"}) {
		t.Fatalf("universe = %v", universe)
	}

	rows := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(rows) != 3 {
		t.Fatalf("got %d rows", len(rows))
	}
	for r, row := range rows {
		cols := strings.Fields(row)
		if len(cols) != 3 {
			t.Fatalf("row %d has %d columns", r, len(cols))
		}
		for c, col := range cols {
			p, err := strconv.ParseFloat(col, 64)
			if err != nil {
				t.Fatal(err)
			}
			present := false
			for _, item := range origin[r] {
				if item == universe[c] {
					present = true
				}
			}
			if present && (p < 0.01 || p > 1) {
				t.Errorf("row %d col %d: present item probability %v", r, c, p)
			}
			if !present && p != 0 {
				t.Errorf("row %d col %d: absent item probability %v", r, c, p)
			}
		}
	}
}

func TestDrawProbabilityRange(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 10000; i++ {
		p := drawProbability(rng)
		if p < 0.01 || p > 1 {
			t.Fatalf("probability %v out of range", p)
		}
		if math.Abs(p*100-math.Round(p*100)) > 1e-9 {
			t.Fatalf("probability %v not rounded to two decimals", p)
		}
	}
}

func TestReadMatrix(t *testing.T) {
	in := "0.5 0.8 0\n0.9 0 0\n\n0 0.6 0.3\n"
	db, err := ReadMatrix(strings.NewReader(in), []string{"a", "b", "c"})
	if err != nil {
		t.Fatal(err)
	}
	if len(db) != 3 {
		t.Fatalf("got %d transactions", len(db))
	}
	if db[1].Has("b") || db[1].Prob("a") != 0.9 {
		t.Errorf("transaction 1 = %v", db[1])
	}
	if db[2].Prob("c") != 0.3 {
		t.Errorf("transaction 2 = %v", db[2])
	}
}

func TestReadMatrixDefaultColumnNames(t *testing.T) {
	db, err := ReadMatrix(strings.NewReader("0 0.4\n"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if db[0].Prob("2") != 0.4 || len(db[0]) != 1 {
		t.Errorf("got %v", db[0])
	}
}

func TestReadMatrixRejects(t *testing.T) {
	tests := []struct {
		name, in string
		items    []string
		wantLine string
	}{
		{"above one", "0.5\n1.2\n", []string{"a"}, "line 2"},
		{"negative", "-0.1\n", []string{"a"}, "line 1"},
		{"not a number", "0.5 x\n", []string{"a", "b"}, "line 1"},
		{"too many columns", "0.1 0.2\n", []string{"a"}, "line 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadMatrix(strings.NewReader(tt.in), tt.items)
			if !errors.Is(err, apperrors.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantLine) {
				t.Errorf("error %q does not mention %s", err, tt.wantLine)
			}
		})
	}
}

func TestGenerateAndLoadFile(t *testing.T) {
	dir := t.TempDir()
	originPath := filepath.Join(dir, "origin", "retail.txt")
	if err := os.MkdirAll(filepath.Dir(originPath), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(originPath, []byte("a b\nb c\na\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	probPath := ProbabilityPath(filepath.Join(dir, "prob"), Name(originPath))
	if filepath.Base(probPath) != "retail_probability.txt" {
		t.Errorf("ProbabilityPath() = %s", probPath)
	}
	items, err := GenerateFile(originPath, probPath, rand.New(rand.NewSource(9)))
	if err != nil {
		t.Fatal(err)
	}
	db, err := LoadFile(probPath, items)
	if err != nil {
		t.Fatal(err)
	}
	s := Stats(db)
	if s.Transactions != 3 || s.Items != 3 || math.Abs(s.Density-5.0/3.0) > 1e-9 {
		t.Errorf("Stats() = %+v", s)
	}

	found, err := Discover(filepath.Dir(originPath))
	if err != nil || len(found) != 1 {
		t.Errorf("Discover() = %v, %v", found, err)
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.txt"), nil)
	if !errors.Is(err, apperrors.ErrDatasetNotFound) {
		t.Errorf("expected ErrDatasetNotFound, got %v", err)
	}
}

func TestStatsEmpty(t *testing.T) {
	if s := Stats(nil); s.Density != 0 || s.Transactions != 0 {
		t.Errorf("Stats(nil) = %+v", s)
	}
}
