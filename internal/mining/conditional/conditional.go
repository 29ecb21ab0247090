// Package conditional implements the depth-first prefix-projection searcher.
// Each branch recurses into a conditional transaction set: the transactions
// that contain the branch item, with that item stripped and empty leftovers
// dropped.
//
// Two roles exist, dense ("ufpgrowth") and sparse ("uhmine"). They run the
// same algorithm; the role only labels which workload the searcher was
// selected for.
package conditional

import (
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/mining/itemset"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/mining/stats"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/mining/support"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/mining/topk"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/logger"
)

// Role names a density-specialised instance of the searcher.
type Role string

const (
	Dense  Role = "ufpgrowth"
	Sparse Role = "uhmine"
)

// ParseRole maps a role name to a Role.
func ParseRole(name string) (Role, error) {
	switch Role(name) {
	case Dense, Sparse:
		return Role(name), nil
	default:
		return "", fmt.Errorf("unknown conditional role %q", name)
	}
}

// projection is one transaction of a conditional set. weight is the product
// of the probabilities of the prefix items stripped on the way down, so
// weight*items[x] is the joint probability of prefix∪{x} in the source
// transaction.
type projection struct {
	items  itemset.Transaction
	weight float64
}

// Searcher explores the itemset lattice depth-first and pushes every
// admissible extension into a shared Top-K set.
type Searcher struct {
	role   Role
	db     []itemset.Transaction
	set    *topk.Set
	stats  *stats.Stats
	logger *slog.Logger
}

// New creates a searcher for role over db writing into set. st may be nil.
func New(role Role, db []itemset.Transaction, set *topk.Set, st *stats.Stats) *Searcher {
	return &Searcher{
		role:   role,
		db:     db,
		set:    set,
		stats:  st,
		logger: logger.WithComponent("conditional-searcher").With("role", string(role)),
	}
}

// Role returns the role the searcher was created for.
func (s *Searcher) Role() Role {
	return s.role
}

// Mine runs the search to completion.
func (s *Searcher) Mine() {
	if len(s.db) == 0 || s.set.K() <= 0 {
		return
	}
	root := make([]projection, len(s.db))
	for i, t := range s.db {
		root[i] = projection{items: t, weight: 1}
	}
	bounds := support.Singles(s.db)
	items := support.Rank(bounds)

	s.explore(itemset.Itemset{}, root, items, bounds)

	s.logger.Debug("conditional search finished",
		"items", len(items),
		"k", s.set.K(),
		"kept", s.set.Len(),
		"threshold", s.set.Threshold(),
	)
}

// explore extends prefix with every item in remaining, in order. bounds holds
// the single-item support of each remaining item within local.
func (s *Searcher) explore(prefix itemset.Itemset, local []projection, remaining []string, bounds map[string]float64) {
	depth := prefix.Len() + 1
	for i, item := range remaining {
		// Siblings are checked independently; a failing bound skips only
		// this branch.
		if bounds[item] < s.set.Threshold() {
			s.stats.PruneBound()
			continue
		}

		es := extensionSupport(item, local)
		s.stats.Evaluate()
		if es <= 0 || es < s.set.Threshold() {
			s.stats.PruneES()
			continue
		}

		next := itemset.Itemset{Items: prefix.With(item), ES: es}
		s.stats.Admit(s.set.Push(next))
		s.stats.Depth(depth)

		cond := project(local, item)
		if len(cond) == 0 {
			continue
		}
		s.stats.Project()

		condBounds := singles(cond)
		children := make([]string, 0, len(remaining)-i-1)
		for _, candidate := range remaining[i+1:] {
			if _, ok := condBounds[candidate]; ok {
				children = append(children, candidate)
			}
		}
		if len(children) == 0 {
			continue
		}
		support.SortBySupport(children, condBounds)
		s.explore(next, cond, children, condBounds)
	}
}

// extensionSupport returns the exact expected support of prefix∪{item},
// where local is the conditional set of prefix.
func extensionSupport(item string, local []projection) float64 {
	es := 0.0
	for _, p := range local {
		if v, ok := p.items[item]; ok {
			es += p.weight * v
		}
	}
	return es
}

// project builds the conditional set of item over local. The result is
// freshly allocated and never aliases local.
func project(local []projection, item string) []projection {
	var out []projection
	for _, p := range local {
		v, ok := p.items[item]
		if !ok || len(p.items) == 1 {
			continue
		}
		rest := make(itemset.Transaction, len(p.items)-1)
		for other, prob := range p.items {
			if other != item {
				rest[other] = prob
			}
		}
		out = append(out, projection{items: rest, weight: p.weight * v})
	}
	return out
}

// singles is support.Singles over a conditional set. It deliberately ignores
// weights: the unweighted sum is the upper bound the pruning rule uses.
func singles(local []projection) map[string]float64 {
	es := make(map[string]float64)
	for _, p := range local {
		for item, prob := range p.items {
			es[item] += prob
		}
	}
	return es
}
