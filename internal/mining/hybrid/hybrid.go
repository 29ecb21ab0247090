// Package hybrid measures database density and delegates the search to the
// conditional searcher role suited to it.
package hybrid

import (
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/mining/conditional"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/mining/itemset"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/mining/stats"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/mining/support"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/mining/topk"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/logger"
)

// DefaultDensityThreshold is the average transaction length at and above
// which the dense role is selected.
const DefaultDensityThreshold = 5.0

// Result is the outcome of a hybrid run.
type Result struct {
	Itemsets  []itemset.Itemset
	Density   float64
	Role      conditional.Role
	Threshold float64
}

// Selector picks a conditional role from the density of the database.
type Selector struct {
	densityThreshold float64
	logger           *slog.Logger
}

// NewSelector creates a selector. A non-positive threshold falls back to
// DefaultDensityThreshold.
func NewSelector(densityThreshold float64) *Selector {
	if densityThreshold <= 0 {
		densityThreshold = DefaultDensityThreshold
	}
	return &Selector{
		densityThreshold: densityThreshold,
		logger:           logger.WithComponent("hybrid-selector"),
	}
}

// RoleFor returns the role for a given density.
func (s *Selector) RoleFor(density float64) conditional.Role {
	if density >= s.densityThreshold {
		return conditional.Dense
	}
	return conditional.Sparse
}

// Mine delegates the search to the selected role. Both the role and any
// follow-up phase write into set, so its ledger deduplicates across phases.
// An empty database returns ErrNoData before set is touched.
func (s *Selector) Mine(db []itemset.Transaction, set *topk.Set, st *stats.Stats) (Result, error) {
	density, err := support.Density(db)
	if err != nil {
		return Result{}, fmt.Errorf("hybrid selection: %w", err)
	}

	role := s.RoleFor(density)
	s.logger.Info("strategy selected",
		"density", density,
		"density_threshold", s.densityThreshold,
		"role", string(role),
		"transactions", len(db),
	)

	conditional.New(role, db, set, st).Mine()

	return Result{
		Itemsets:  set.Sorted(),
		Density:   density,
		Role:      role,
		Threshold: set.Threshold(),
	}, nil
}
