package apriori

import (
	"math"
	"reflect"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/mining/itemset"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/mining/stats"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/mining/topk"
)

func sampleDB() []itemset.Transaction {
	return []itemset.Transaction{
		{"a": 0.5, "b": 0.8},
		{"a": 0.9},
		{"b": 0.6, "c": 0.3},
	}
}

func TestJoin(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
		want []string
		ok   bool
	}{
		{"singles", []string{"b"}, []string{"a"}, []string{"a", "b"}, true},
		{"shared prefix", []string{"a", "c"}, []string{"a", "b"}, []string{"a", "b", "c"}, true},
		{"prefix differs", []string{"a", "b"}, []string{"c", "d"}, nil, false},
		{"identical", []string{"a", "b"}, []string{"a", "b"}, nil, false},
		{"length mismatch", []string{"a"}, []string{"a", "b"}, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := join(tt.a, tt.b)
			if ok != tt.ok || !reflect.DeepEqual(got, tt.want) {
				t.Errorf("join(%v, %v) = %v, %v; want %v, %v", tt.a, tt.b, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestJoinDoesNotAlias(t *testing.T) {
	a := make([]string, 2, 8)
	a[0], a[1] = "a", "c"
	b := []string{"a", "b"}
	got, _ := join(a, b)
	got[0] = "z"
	if a[0] != "a" {
		t.Error("join result aliases its input")
	}
}

func TestSubsetsFrequent(t *testing.T) {
	frequent := map[string]struct{}{
		itemset.Key([]string{"a", "b"}): {},
		itemset.Key([]string{"a", "c"}): {},
	}
	if subsetsFrequent([]string{"a", "b", "c"}, frequent) {
		t.Error("missing {b,c} must fail the subset check")
	}
	frequent[itemset.Key([]string{"b", "c"})] = struct{}{}
	if !subsetsFrequent([]string{"a", "b", "c"}, frequent) {
		t.Error("all subsets present, check should pass")
	}
}

func TestTopTwoScenario(t *testing.T) {
	set := topk.New(2, nil)
	New(sampleDB(), set, nil).Mine()

	got := set.Sorted()
	if len(got) != 2 {
		t.Fatalf("got %d itemsets, want 2", len(got))
	}
	if got[0].Items[0] != "a" || got[1].Items[0] != "b" {
		t.Errorf("got %v, want [a] then [b]", got)
	}
}

func TestLargeK(t *testing.T) {
	set := topk.New(20, nil)
	st := &stats.Stats{}
	New(sampleDB(), set, st).Mine()

	got := set.Sorted()
	if len(got) != 5 {
		t.Fatalf("got %v, want 5 itemsets with positive support", got)
	}
	if math.Abs(got[2].ES-0.4) > 1e-9 || !reflect.DeepEqual(got[2].Items, []string{"a", "b"}) {
		t.Errorf("third itemset = %v, want [a b] 0.4", got[2])
	}
	if set.Threshold() != 0 {
		t.Errorf("Threshold() = %v, want 0", set.Threshold())
	}
	if st.MaxDepth != 2 {
		t.Errorf("MaxDepth = %d, want 2", st.MaxDepth)
	}
}

func TestZeroSupportCandidatesDropped(t *testing.T) {
	db := []itemset.Transaction{{"a": 1}, {"b": 1}}
	set := topk.New(10, nil)
	New(db, set, nil).Mine()
	for _, is := range set.Sorted() {
		if is.Len() > 1 {
			t.Errorf("itemset %v never co-occurs but was admitted", is)
		}
	}
}
