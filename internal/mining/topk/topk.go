// Package topk implements the bounded best-K container shared by every search
// strategy. The set is a min-heap on expected support, so the weakest member
// and the pruning threshold are available in O(1) and inserts or evictions
// cost O(log K).
package topk

import (
	"container/heap"
	"slices"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/internal/mining/itemset"
)

// Ledger records the canonical keys already offered to a Set. One ledger may
// back several sets or several sequential phases writing into the same set.
type Ledger struct {
	keys map[string]struct{}
}

// NewLedger returns an empty dedup ledger.
func NewLedger() *Ledger {
	return &Ledger{keys: make(map[string]struct{})}
}

// Seen reports whether key has been recorded.
func (l *Ledger) Seen(key string) bool {
	_, ok := l.keys[key]
	return ok
}

// Mark records key and reports whether it was new.
func (l *Ledger) Mark(key string) bool {
	if _, ok := l.keys[key]; ok {
		return false
	}
	l.keys[key] = struct{}{}
	return true
}

// Len returns the number of recorded keys.
func (l *Ledger) Len() int {
	return len(l.keys)
}

// minHeap keeps the weakest itemset at index 0, the reverse of
// itemset.Less.
type minHeap []itemset.Itemset

func (h minHeap) Len() int           { return len(h) }
func (h minHeap) Less(i, j int) bool { return itemset.Less(h[j], h[i]) }
func (h minHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x any)        { *h = append(*h, x.(itemset.Itemset)) }
func (h *minHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// Set holds at most K itemsets with the highest expected support seen so far.
// It is not safe for concurrent use.
type Set struct {
	k         int
	h         minHeap
	ledger    *Ledger
	threshold float64
}

// New creates an empty Set of capacity k backed by ledger. A nil ledger gives
// the set a private one. k <= 0 yields a set that never admits anything.
func New(k int, ledger *Ledger) *Set {
	if ledger == nil {
		ledger = NewLedger()
	}
	capacity := k
	if capacity < 0 {
		capacity = 0
	}
	return &Set{
		k:      k,
		h:      make(minHeap, 0, capacity),
		ledger: ledger,
	}
}

// Push offers a candidate. A key already in the ledger is ignored. While the
// set is not full the candidate is inserted; afterwards it replaces the
// weakest member only if its ES is strictly greater. Push reports whether
// the candidate was admitted.
func (s *Set) Push(is itemset.Itemset) bool {
	if !s.ledger.Mark(is.Key()) {
		return false
	}
	if s.k <= 0 {
		return false
	}

	admitted := false
	if len(s.h) < s.k {
		heap.Push(&s.h, is)
		admitted = true
	} else if is.ES > s.h[0].ES {
		s.h[0] = is
		heap.Fix(&s.h, 0)
		admitted = true
	}

	if admitted && len(s.h) == s.k {
		s.threshold = s.h[0].ES
	}
	return admitted
}

// Threshold returns the current pruning bound: 0 while fewer than K members
// are held, otherwise the ES of the K-th best member. It never decreases.
func (s *Set) Threshold() float64 {
	return s.threshold
}

// Weakest returns the member with the lowest ES, if any.
func (s *Set) Weakest() (itemset.Itemset, bool) {
	if len(s.h) == 0 {
		return itemset.Itemset{}, false
	}
	return s.h[0], true
}

// Len returns the number of members.
func (s *Set) Len() int {
	return len(s.h)
}

// K returns the capacity the set was created with.
func (s *Set) K() int {
	return s.k
}

// Full reports whether the set holds K members.
func (s *Set) Full() bool {
	return s.k > 0 && len(s.h) == s.k
}

// Ledger returns the dedup ledger backing the set.
func (s *Set) Ledger() *Ledger {
	return s.ledger
}

// Sorted returns a copy of all members ordered by ES descending, ties broken
// by identifiers ascending. The set itself is left intact.
func (s *Set) Sorted() []itemset.Itemset {
	out := slices.Clone([]itemset.Itemset(s.h))
	sort.Slice(out, func(i, j int) bool {
		return itemset.Less(out[i], out[j])
	})
	return out
}
