package passmanager

// Statistics holds optional pass-manager counters. Nil by default;
// attach one to Manager via EnableStatistics before running to start
// collecting.
type Statistics struct {
	Iterations int // scalar fixed-point rounds actually executed

	// PerPass accumulates, for every pass that ran at least once, how
	// many times it ran and its net effect on each function it touched:
	// instructions removed and blocks removed. Keyed by the pass's
	// Name(). Runs across every function and every RunModule call
	// share one Manager's Stats, so these are cumulative totals.
	PerPass map[string]*PassStats
}

// PassStats is one pass's running totals.
type PassStats struct {
	Runs                int // total invocations
	Changed             int // invocations that reported a change
	InstructionsRemoved int // net instruction-count decrease across all runs
	BlocksRemoved       int // net block-count decrease across all runs
}

// EnableStatistics attaches a fresh Statistics to m, overwriting any
// previous counters.
func (m *Manager) EnableStatistics() *Statistics {
	m.Stats = &Statistics{PerPass: make(map[string]*PassStats)}
	return m.Stats
}
