// Package exhaustive implements the reference depth-first enumeration used to
// validate the other strategies. Each recursion frame owns a vector of
// per-transaction joint probabilities for its prefix, so a child's support is
// one pass over that vector.
package exhaustive

import (
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/mining/itemset"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/mining/stats"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/mining/support"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/mining/topk"
)

type Miner struct {
	db    []itemset.Transaction
	set   *topk.Set
	stats *stats.Stats
	items []string
	path  []string
}

func New(db []itemset.Transaction, set *topk.Set, st *stats.Stats) *Miner {
	return &Miner{db: db, set: set, stats: st}
}

// Mine enumerates every extension whose support stays at or above the
// current threshold.
func (m *Miner) Mine() {
	if len(m.db) == 0 || m.set.K() <= 0 {
		return
	}
	m.items = support.Rank(support.Singles(m.db))
	m.path = m.path[:0]

	root := make([]float64, len(m.db))
	for i := range root {
		root[i] = 1
	}
	m.explore(0, root)
}

func (m *Miner) explore(start int, cum []float64) {
	for i := start; i < len(m.items); i++ {
		item := m.items[i]

		next := make([]float64, len(m.db))
		es := 0.0
		for t, tx := range m.db {
			if cum[t] == 0 {
				continue
			}
			if p, ok := tx[item]; ok {
				next[t] = cum[t] * p
				es += next[t]
			}
		}
		m.stats.Evaluate()
		if es <= 0 || es < m.set.Threshold() {
			m.stats.PruneES()
			continue
		}

		m.path = append(m.path, item)
		m.stats.Depth(len(m.path))
		m.stats.Admit(m.set.Push(itemset.New(m.path, es)))
		m.explore(i+1, next)
		m.path = m.path[:len(m.path)-1]
	}
}
