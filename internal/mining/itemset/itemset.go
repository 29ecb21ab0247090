// Package itemset defines the data entities of the uncertain database: a
// Transaction mapping item identifiers to occurrence probabilities, and an
// Itemset pairing a canonical set of identifiers with its expected support.
package itemset

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
)

// Transaction maps item identifiers to their occurrence probability in (0, 1].
// Items missing from the map have probability 0.
type Transaction map[string]float64

// Prob returns the probability of item, or 0 when the item is absent.
func (t Transaction) Prob(item string) float64 {
	return t[item]
}

// Has reports whether item is present in the transaction.
func (t Transaction) Has(item string) bool {
	_, ok := t[item]
	return ok
}

// Items returns the identifiers of the transaction in ascending order.
func (t Transaction) Items() []string {
	items := make([]string, 0, len(t))
	for item := range t {
		items = append(items, item)
	}
	sort.Strings(items)
	return items
}

// Itemset is a set of item identifiers together with its expected support.
// Items is sorted ascending and free of duplicates; treat it as read-only.
type Itemset struct {
	Items []string `json:"items" msgpack:"i"`
	ES    float64  `json:"expected_support" msgpack:"e"`
}

// New builds an Itemset from identifiers in any order.
func New(items []string, es float64) Itemset {
	return Itemset{Items: Canonical(items), ES: es}
}

// Canonical returns a sorted, de-duplicated copy of items.
func Canonical(items []string) []string {
	out := make([]string, len(items))
	copy(out, items)
	sort.Strings(out)
	n := 0
	for i, item := range out {
		if i > 0 && item == out[n-1] {
			continue
		}
		out[n] = item
		n++
	}
	return out[:n]
}

// Key returns the canonical key of the itemset.
func (s Itemset) Key() string {
	return Key(s.Items)
}

// Key forms the canonical key of an already sorted identifier slice. Each
// identifier is length-prefixed, so identifiers may contain any byte.
func Key(sorted []string) string {
	var b strings.Builder
	for _, item := range sorted {
		b.WriteString(strconv.Itoa(len(item)))
		b.WriteByte(':')
		b.WriteString(item)
	}
	return b.String()
}

// Len returns the number of items.
func (s Itemset) Len() int {
	return len(s.Items)
}

// Contains reports whether item is a member of the itemset.
func (s Itemset) Contains(item string) bool {
	i := sort.SearchStrings(s.Items, item)
	return i < len(s.Items) && s.Items[i] == item
}

// With returns the identifiers of s extended by item, sorted.
func (s Itemset) With(item string) []string {
	out := make([]string, 0, len(s.Items)+1)
	i := sort.SearchStrings(s.Items, item)
	out = append(out, s.Items[:i]...)
	if i < len(s.Items) && s.Items[i] == item {
		return append(out, s.Items[i:]...)
	}
	out = append(out, item)
	return append(out, s.Items[i:]...)
}

func (s Itemset) String() string {
	return fmt.Sprintf("Itemset [%s] | ExpSup=%.4f", strings.Join(s.Items, ", "), s.ES)
}

// Less orders itemsets by ES descending, then by their sorted identifiers
// compared element by element.
func Less(a, b Itemset) bool {
	if a.ES != b.ES {
		return a.ES > b.ES
	}
	return slices.Compare(a.Items, b.Items) < 0
}

// Universe returns every distinct identifier present in db, ascending.
func Universe(db []Transaction) []string {
	seen := make(map[string]struct{})
	for _, t := range db {
		for item := range t {
			seen[item] = struct{}{}
		}
	}
	items := make([]string, 0, len(seen))
	for item := range seen {
		items = append(items, item)
	}
	sort.Strings(items)
	return items
}
