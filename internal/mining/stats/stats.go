// Package stats collects per-run search counters. Every method is safe to call
// on a nil *Stats so strategies can record unconditionally.
package stats

// Stats counts the work a single search performed.
type Stats struct {
	Evaluated    int64 `json:"evaluated" msgpack:"ev"`
	BoundPruned  int64 `json:"bound_pruned" msgpack:"bp"`
	SubsetPruned int64 `json:"subset_pruned" msgpack:"sp"`
	ESPruned     int64 `json:"es_pruned" msgpack:"ep"`
	Admitted     int64 `json:"admitted" msgpack:"ad"`
	Projections  int64 `json:"projections" msgpack:"pj"`
	MaxDepth     int   `json:"max_depth" msgpack:"md"`
}

func (s *Stats) Evaluate() {
	if s != nil {
		s.Evaluated++
	}
}

func (s *Stats) PruneBound() {
	if s != nil {
		s.BoundPruned++
	}
}

func (s *Stats) PruneSubset() {
	if s != nil {
		s.SubsetPruned++
	}
}

func (s *Stats) PruneES() {
	if s != nil {
		s.ESPruned++
	}
}

// Admit counts a candidate if the Top-K set accepted it.
func (s *Stats) Admit(admitted bool) {
	if s != nil && admitted {
		s.Admitted++
	}
}

func (s *Stats) Project() {
	if s != nil {
		s.Projections++
	}
}

// Depth records the deepest level (itemset size) reached.
func (s *Stats) Depth(depth int) {
	if s != nil && depth > s.MaxDepth {
		s.MaxDepth = depth
	}
}

// Pruned returns the total number of discarded candidates and branches.
func (s *Stats) Pruned() int64 {
	if s == nil {
		return 0
	}
	return s.BoundPruned + s.SubsetPruned + s.ESPruned
}
