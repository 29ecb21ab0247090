package stats

import "testing"

func TestNilStatsIsNoop(t *testing.T) {
	var s *Stats
	s.Evaluate()
	s.PruneBound()
	s.PruneSubset()
	s.PruneES()
	s.Admit(true)
	s.Project()
	s.Depth(4)
	if s.Pruned() != 0 {
		t.Error("nil Stats reported pruned candidates")
	}
}

func TestCounters(t *testing.T) {
	s := &Stats{}
	s.Evaluate()
	s.Evaluate()
	s.PruneBound()
	s.PruneSubset()
	s.PruneES()
	s.Admit(true)
	s.Admit(false)
	s.Depth(3)
	s.Depth(2)
	if s.Evaluated != 2 || s.Admitted != 1 || s.MaxDepth != 3 || s.Pruned() != 3 {
		t.Errorf("stats = %+v", *s)
	}
}
