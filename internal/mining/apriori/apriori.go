// Package apriori implements level-wise candidate generation (U-Apriori) with
// a dynamically rising Top-K threshold.
package apriori

import (
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/mining/itemset"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/mining/stats"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/mining/support"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/mining/topk"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/logger"
)

// Miner generates size-n candidates only from size-(n-1) survivors.
type Miner struct {
	db     []itemset.Transaction
	set    *topk.Set
	stats  *stats.Stats
	logger *slog.Logger
}

// New creates a level-wise miner over db writing into set. st may be nil.
func New(db []itemset.Transaction, set *topk.Set, st *stats.Stats) *Miner {
	return &Miner{
		db:     db,
		set:    set,
		stats:  st,
		logger: logger.WithComponent("apriori"),
	}
}

// Mine runs until a level produces no surviving candidate.
func (m *Miner) Mine() {
	if len(m.db) == 0 || m.set.K() <= 0 {
		return
	}

	singles := support.Singles(m.db)
	frequent := make(map[string]struct{})

	var level []itemset.Itemset
	for _, item := range support.Rank(singles) {
		es := support.Exact([]string{item}, m.db)
		m.stats.Evaluate()
		if es <= 0 || es < m.set.Threshold() {
			m.stats.PruneES()
			continue
		}
		is := itemset.Itemset{Items: []string{item}, ES: es}
		m.stats.Admit(m.set.Push(is))
		level = append(level, is)
		frequent[is.Key()] = struct{}{}
	}

	size := 1
	for len(level) > 0 {
		m.stats.Depth(size)
		m.logger.Debug("level complete", "size", size, "survivors", len(level), "threshold", m.set.Threshold())
		level = m.nextLevel(level, singles, frequent)
		size++
	}
}

func (m *Miner) nextLevel(level []itemset.Itemset, singles map[string]float64, frequent map[string]struct{}) []itemset.Itemset {
	var next []itemset.Itemset
	for i := 0; i < len(level); i++ {
		for j := i + 1; j < len(level); j++ {
			cand, ok := join(level[i].Items, level[j].Items)
			if !ok {
				continue
			}
			if !subsetsFrequent(cand, frequent) {
				m.stats.PruneSubset()
				continue
			}

			bound := 0.0
			for _, item := range cand {
				bound += singles[item]
			}
			if bound < m.set.Threshold() {
				m.stats.PruneBound()
				continue
			}

			es := support.Exact(cand, m.db)
			m.stats.Evaluate()
			if es <= 0 || es < m.set.Threshold() {
				m.stats.PruneES()
				continue
			}

			is := itemset.Itemset{Items: cand, ES: es}
			m.stats.Admit(m.set.Push(is))
			next = append(next, is)
			frequent[is.Key()] = struct{}{}
		}
	}
	return next
}

// join combines two sorted sequences of equal length that share all but the
// last element. The result is sorted and freshly allocated.
func join(a, b []string) ([]string, bool) {
	n := len(a)
	if n == 0 || len(b) != n {
		return nil, false
	}
	for i := 0; i < n-1; i++ {
		if a[i] != b[i] {
			return nil, false
		}
	}
	x, y := a[n-1], b[n-1]
	if x == y {
		return nil, false
	}
	if x > y {
		x, y = y, x
	}
	out := make([]string, 0, n+1)
	out = append(out, a[:n-1]...)
	return append(out, x, y), true
}

// subsetsFrequent reports whether every size-(n-1) subset of cand survived
// the previous level.
func subsetsFrequent(cand []string, frequent map[string]struct{}) bool {
	sub := make([]string, 0, len(cand)-1)
	for skip := range cand {
		sub = sub[:0]
		for i, item := range cand {
			if i != skip {
				sub = append(sub, item)
			}
		}
		if _, ok := frequent[itemset.Key(sub)]; !ok {
			return false
		}
	}
	return true
}
