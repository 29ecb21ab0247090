// Package support evaluates expected support over uncertain transactions.
// All functions are pure and never modify their inputs.
package support

import (
	"fmt"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/mining/itemset"
	apperrors "github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/errors"
)

// Exact returns the expected support of items over db: the sum over every
// transaction of the product of its item probabilities. A transaction that
// lacks any of the items contributes exactly 0.
func Exact(items []string, db []itemset.Transaction) float64 {
	es := 0.0
	for _, t := range db {
		p := 1.0
		for _, item := range items {
			v, ok := t[item]
			if !ok {
				p = 0
				break
			}
			p *= v
		}
		es += p
	}
	return es
}

// Single returns the sum of item's probability across db. It is the exact
// support of the 1-itemset and an upper bound for every extension of a prefix
// ending in item drawn from the same transactions.
func Single(item string, db []itemset.Transaction) float64 {
	sum := 0.0
	for _, t := range db {
		if v, ok := t[item]; ok {
			sum += v
		}
	}
	return sum
}

// Singles computes the single-item support of every item present in db.
func Singles(db []itemset.Transaction) map[string]float64 {
	es := make(map[string]float64)
	for _, t := range db {
		for item, p := range t {
			es[item] += p
		}
	}
	return es
}

// Rank orders the keys of es by support descending, ties by identifier.
func Rank(es map[string]float64) []string {
	items := make([]string, 0, len(es))
	for item := range es {
		items = append(items, item)
	}
	SortBySupport(items, es)
	return items
}

// SortBySupport sorts items in place by es descending, ties by identifier.
func SortBySupport(items []string, es map[string]float64) {
	sort.Slice(items, func(i, j int) bool {
		a, b := es[items[i]], es[items[j]]
		if a != b {
			return a > b
		}
		return items[i] < items[j]
	})
}

// Density returns the average number of present items per transaction.
// An empty database yields ErrNoData.
func Density(db []itemset.Transaction) (float64, error) {
	if len(db) == 0 {
		return 0, fmt.Errorf("computing density: %w", apperrors.ErrNoData)
	}
	total := 0
	for _, t := range db {
		total += len(t)
	}
	return float64(total) / float64(len(db)), nil
}
