// Package mining is the entry point for Top-K expected-support searches. It
// names the available strategies and runs one of them over a materialized
// uncertain database.
package mining

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/mining/apriori"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/mining/conditional"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/mining/exhaustive"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/mining/hybrid"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/mining/itemset"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/mining/stats"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/mining/support"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/mining/topk"
	apperrors "github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/logger"
)

// Strategy names a search algorithm.
type Strategy string

const (
	UApriori   Strategy = "uapriori"
	UFPGrowth  Strategy = Strategy(conditional.Dense)
	UHMine     Strategy = Strategy(conditional.Sparse)
	Hybrid     Strategy = "hybrid"
	Exhaustive Strategy = "exhaustive"
)

var strategies = []Strategy{UApriori, UFPGrowth, UHMine, Hybrid, Exhaustive}

// Strategies returns every supported strategy in a stable order.
func Strategies() []Strategy {
	out := make([]Strategy, len(strategies))
	copy(out, strategies)
	return out
}

// ParseStrategy resolves a case-insensitive strategy name.
func ParseStrategy(name string) (Strategy, error) {
	candidate := Strategy(strings.ToLower(strings.TrimSpace(name)))
	for _, s := range strategies {
		if s == candidate {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", apperrors.ErrUnknownStrategy, name)
}

// Options parameterises a run.
type Options struct {
	K                int
	DensityThreshold float64
}

// Result is the outcome of one search.
type Result struct {
	Strategy       Strategy          `json:"strategy" msgpack:"s"`
	K              int               `json:"k" msgpack:"k"`
	Itemsets       []itemset.Itemset `json:"itemsets" msgpack:"is"`
	Threshold      float64           `json:"threshold" msgpack:"t"`
	Density        float64           `json:"density" msgpack:"d"`
	Role           string            `json:"role,omitempty" msgpack:"r,omitempty"`
	Transactions   int               `json:"transactions" msgpack:"n"`
	Items          int               `json:"items" msgpack:"u"`
	Stats          stats.Stats       `json:"stats" msgpack:"st"`
	Elapsed        time.Duration     `json:"elapsed_ns" msgpack:"el"`
	AllocatedBytes uint64            `json:"allocated_bytes" msgpack:"ab"`
}

// Run executes strategy over db. An unknown strategy fails with
// ErrUnknownStrategy; an empty database returns an empty Result together with
// ErrNoData. K <= 0 is not an error and yields no itemsets.
func Run(strategy Strategy, db []itemset.Transaction, opts Options) (*Result, error) {
	if _, err := ParseStrategy(string(strategy)); err != nil {
		return nil, err
	}
	result := &Result{
		Strategy:     strategy,
		K:            opts.K,
		Itemsets:     []itemset.Itemset{},
		Transactions: len(db),
	}
	density, err := support.Density(db)
	if err != nil {
		return result, fmt.Errorf("running %s: %w", strategy, err)
	}
	result.Density = density
	result.Items = len(itemset.Universe(db))

	log := logger.WithComponent("miner").With("strategy", string(strategy))

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	start := time.Now()

	set := topk.New(opts.K, topk.NewLedger())
	st := &result.Stats

	switch strategy {
	case UApriori:
		apriori.New(db, set, st).Mine()
	case UFPGrowth:
		conditional.New(conditional.Dense, db, set, st).Mine()
		result.Role = string(conditional.Dense)
	case UHMine:
		conditional.New(conditional.Sparse, db, set, st).Mine()
		result.Role = string(conditional.Sparse)
	case Hybrid:
		hr, err := hybrid.NewSelector(opts.DensityThreshold).Mine(db, set, st)
		if err != nil {
			return result, fmt.Errorf("running %s: %w", strategy, err)
		}
		result.Role = string(hr.Role)
	case Exhaustive:
		exhaustive.New(db, set, st).Mine()
	}

	result.Elapsed = time.Since(start)
	runtime.ReadMemStats(&after)
	result.AllocatedBytes = after.TotalAlloc - before.TotalAlloc

	result.Itemsets = set.Sorted()
	result.Threshold = set.Threshold()

	log.Info("mining completed",
		"k", opts.K,
		"transactions", result.Transactions,
		"items", result.Items,
		"found", len(result.Itemsets),
		"threshold", result.Threshold,
		"evaluated", result.Stats.Evaluated,
		"pruned", result.Stats.Pruned(),
		"elapsed", result.Elapsed,
	)
	return result, nil
}
