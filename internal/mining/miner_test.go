package mining

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/mining/itemset"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/mining/support"
	apperrors "github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/errors"
)

func sampleDB() []itemset.Transaction {
	return []itemset.Transaction{
		{"a": 0.5, "b": 0.8},
		{"a": 0.9},
		{"b": 0.6, "c": 0.3},
	}
}

func randomDB(seed int64, size, universe int, presence float64) []itemset.Transaction {
	rng := rand.New(rand.NewSource(seed))
	db := make([]itemset.Transaction, size)
	for i := range db {
		tx := itemset.Transaction{}
		for j := 0; j < universe; j++ {
			if rng.Float64() < presence {
				tx[string(rune('a'+j))] = 0.01 + rng.Float64()*0.99
			}
		}
		db[i] = tx
	}
	return db
}

// roundProbabilities keeps two decimals, as the dataset generator writes.
func roundProbabilities(db []itemset.Transaction) {
	for _, tx := range db {
		for item, p := range tx {
			tx[item] = math.Max(math.Round(p*100)/100, 0.01)
		}
	}
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    Strategy
		wantErr bool
	}{
		{"uapriori", UApriori, false},
		{"UFPGrowth", UFPGrowth, false},
		{" uhmine ", UHMine, false},
		{"hybrid", Hybrid, false},
		{"exhaustive", Exhaustive, false},
		{"eclat", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseStrategy(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseStrategy(%q) error = %v", tt.in, err)
			continue
		}
		if tt.wantErr && !errors.Is(err, apperrors.ErrUnknownStrategy) {
			t.Errorf("ParseStrategy(%q) error %v is not ErrUnknownStrategy", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseStrategy(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStrategiesIsACopy(t *testing.T) {
	list := Strategies()
	list[0] = "mutated"
	if Strategies()[0] != UApriori {
		t.Error("Strategies() exposes its backing array")
	}
}

func TestRunTopTwoScenario(t *testing.T) {
	for _, s := range Strategies() {
		t.Run(string(s), func(t *testing.T) {
			res, err := Run(s, sampleDB(), Options{K: 2, DensityThreshold: 5})
			if err != nil {
				t.Fatal(err)
			}
			if len(res.Itemsets) != 2 {
				t.Fatalf("got %v", res.Itemsets)
			}
			if res.Itemsets[0].Key() != itemset.Key([]string{"a"}) || res.Itemsets[1].Key() != itemset.Key([]string{"b"}) {
				t.Errorf("got %v, want [a] then [b]", res.Itemsets)
			}
			if math.Abs(res.Threshold-1.4) > 1e-9 {
				t.Errorf("Threshold = %v, want 1.4", res.Threshold)
			}
			if res.Transactions != 3 || res.Items != 3 {
				t.Errorf("Transactions=%d Items=%d", res.Transactions, res.Items)
			}
		})
	}
}

func TestRunEmptyDatabase(t *testing.T) {
	for _, s := range Strategies() {
		res, err := Run(s, nil, Options{K: 5})
		if !errors.Is(err, apperrors.ErrNoData) {
			t.Fatalf("%s: expected ErrNoData, got %v", s, err)
		}
		if res == nil || len(res.Itemsets) != 0 {
			t.Errorf("%s: expected empty result, got %+v", s, res)
		}
		if math.IsNaN(res.Density) || math.IsInf(res.Density, 0) {
			t.Errorf("%s: density %v", s, res.Density)
		}
	}
}

func TestRunUnknownStrategy(t *testing.T) {
	_, err := Run("eclat", sampleDB(), Options{K: 1})
	if !errors.Is(err, apperrors.ErrUnknownStrategy) {
		t.Errorf("expected ErrUnknownStrategy, got %v", err)
	}
}

func TestRunLargeK(t *testing.T) {
	for _, s := range Strategies() {
		res, err := Run(s, sampleDB(), Options{K: 1000})
		if err != nil {
			t.Fatal(err)
		}
		if len(res.Itemsets) != 5 || res.Threshold != 0 {
			t.Errorf("%s: got %d itemsets, threshold %v", s, len(res.Itemsets), res.Threshold)
		}
	}
}

func TestRunNonPositiveK(t *testing.T) {
	res, err := Run(Hybrid, sampleDB(), Options{K: 0})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Itemsets) != 0 {
		t.Errorf("got %v", res.Itemsets)
	}
}

func TestRunRecordsRole(t *testing.T) {
	res, err := Run(Hybrid, sampleDB(), Options{K: 3, DensityThreshold: 1})
	if err != nil {
		t.Fatal(err)
	}
	if res.Role != string(UFPGrowth) {
		t.Errorf("Role = %q, want %q", res.Role, UFPGrowth)
	}
	res, _ = Run(UApriori, sampleDB(), Options{K: 3})
	if res.Role != "" {
		t.Errorf("Role = %q for level-wise run", res.Role)
	}
}

// sameTopK fails unless got holds the same itemsets as want, rank by rank.
// Members whose ES ties a neighbour within tolerance may swap places, and
// members tied at the threshold may be replaced by another itemset of equal
// ES; every reported ES must match a recomputation over db.
func sameTopK(t *testing.T, s Strategy, db []itemset.Transaction, got, want *Result) {
	t.Helper()
	const eps = 1e-9
	if len(got.Itemsets) != len(want.Itemsets) {
		t.Fatalf("%s: %d itemsets, reference %d", s, len(got.Itemsets), len(want.Itemsets))
	}
	if math.Abs(got.Threshold-want.Threshold) > eps {
		t.Errorf("%s: threshold %v, reference %v", s, got.Threshold, want.Threshold)
	}
	tied := func(i int) bool {
		es := want.Itemsets[i].ES
		if want.Threshold > 0 && math.Abs(es-want.Threshold) <= eps {
			return true
		}
		return (i > 0 && math.Abs(want.Itemsets[i-1].ES-es) <= eps) ||
			(i+1 < len(want.Itemsets) && math.Abs(want.Itemsets[i+1].ES-es) <= eps)
	}
	keys := make(map[string]bool, len(got.Itemsets))
	for i, is := range got.Itemsets {
		ref := want.Itemsets[i]
		if math.Abs(is.ES-ref.ES) > eps {
			t.Errorf("%s: rank %d ES %v, reference %v", s, i, is.ES, ref.ES)
		}
		if is.Key() != ref.Key() && !tied(i) {
			t.Errorf("%s: rank %d is %v, reference %v", s, i, is, ref)
		}
		if exact := support.Exact(is.Items, db); math.Abs(exact-is.ES) > eps {
			t.Errorf("%s: %v reports ES %v, recomputed %v", s, is.Items, is.ES, exact)
		}
		if keys[is.Key()] {
			t.Errorf("%s: %v returned twice", s, is.Items)
		}
		keys[is.Key()] = true
	}
	for _, ref := range want.Itemsets {
		if ref.ES > want.Threshold+eps && !keys[ref.Key()] {
			t.Errorf("%s: missing %v", s, ref)
		}
	}
}

// All strategies must find the same Top-K itemsets.
func TestStrategyAgreement(t *testing.T) {
	cases := []struct {
		name     string
		seed     int64
		size     int
		universe int
		presence float64
		k        int
		rounded  bool
	}{
		{"sparse", 1, 60, 10, 0.2, 10, false},
		{"dense", 2, 40, 8, 0.8, 15, false},
		{"medium", 3, 80, 9, 0.45, 25, false},
		{"two decimals", 4, 30, 7, 0.5, 20, true},
		{"two decimals dense", 6, 12, 6, 0.7, 40, true},
		{"k above itemset count", 7, 6, 4, 0.5, 100, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db := randomDB(tc.seed, tc.size, tc.universe, tc.presence)
			if tc.rounded {
				roundProbabilities(db)
			}
			ref, err := Run(Exhaustive, db, Options{K: tc.k})
			if err != nil {
				t.Fatal(err)
			}
			for _, s := range []Strategy{UApriori, UFPGrowth, UHMine, Hybrid} {
				res, err := Run(s, db, Options{K: tc.k, DensityThreshold: 3})
				if err != nil {
					t.Fatal(err)
				}
				sameTopK(t, s, db, res, ref)
			}
		})
	}
}

// Identifiers may contain any byte, including separators used by other
// encodings; {"a\x1fb"} and {a, b} are distinct itemsets.
func TestIdentifiersWithControlBytes(t *testing.T) {
	db := []itemset.Transaction{
		{"a": 0.9, "b": 0.9, "a\x1fb": 0.5},
		{"a": 0.9, "b": 0.9},
	}
	ref, err := Run(Exhaustive, db, Options{K: 100})
	if err != nil {
		t.Fatal(err)
	}
	if len(ref.Itemsets) != 7 {
		t.Fatalf("exhaustive found %d itemsets, want 7: %v", len(ref.Itemsets), ref.Itemsets)
	}
	for _, s := range Strategies() {
		res, err := Run(s, db, Options{K: 100, DensityThreshold: 3})
		if err != nil {
			t.Fatal(err)
		}
		sameTopK(t, s, db, res, ref)
		found := map[string]bool{}
		for _, is := range res.Itemsets {
			found[is.Key()] = true
		}
		if !found[itemset.Key([]string{"a", "b"})] || !found[itemset.Key([]string{"a\x1fb"})] {
			t.Errorf("%s: got %v", s, res.Itemsets)
		}
	}
}

func TestResultsSortedDescending(t *testing.T) {
	db := randomDB(9, 50, 8, 0.5)
	for _, s := range Strategies() {
		res, err := Run(s, db, Options{K: 20})
		if err != nil {
			t.Fatal(err)
		}
		for i := 1; i < len(res.Itemsets); i++ {
			if res.Itemsets[i].ES > res.Itemsets[i-1].ES {
				t.Fatalf("%s: not descending at %d", s, i)
			}
		}
	}
}

func BenchmarkRun(b *testing.B) {
	db := randomDB(5, 500, 14, 0.4)
	for _, s := range Strategies() {
		b.Run(string(s), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := Run(s, db, Options{K: 50}); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
