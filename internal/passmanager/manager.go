package passmanager

import (
	"github.com/sereinwalker/sysy-ir/internal/analysis"
	"github.com/sereinwalker/sysy-ir/internal/ir"
	"github.com/sereinwalker/sysy-ir/internal/transform"
)

// Manager runs the configured pass schedule over a module.
type Manager struct {
	Config Config
	Stats  *Statistics
}

// NewManager builds a Manager with the given config; Stats starts nil
// and stays nil (no statistics are collected) until EnableStatistics
// attaches one.
func NewManager(cfg Config) *Manager {
	return &Manager{Config: cfg}
}

// scalarPasses returns the enabled fixed-point-loop passes, in the
// order they run each round: InstCombine and SCCP clean up and fold
// before CSE and ADCE remove what they exposed, with SimplifyCFG
// tidying the resulting control flow last.
func (m *Manager) scalarPasses() []transform.Pass {
	var passes []transform.Pass
	if m.Config.EnableInstCombine {
		passes = append(passes, transform.InstCombine{})
	}
	if m.Config.EnableSCCP {
		passes = append(passes, transform.SCCP{})
	}
	if m.Config.EnableCSE {
		passes = append(passes, transform.CSE{})
	}
	if m.Config.EnableADCE {
		passes = append(passes, transform.ADCE{})
	}
	if m.Config.EnableSimplifyCFG {
		passes = append(passes, transform.SimplifyCFG{})
	}
	return passes
}

func (m *Manager) cleanupPasses() []transform.Pass {
	var passes []transform.Pass
	if m.Config.EnableInstCombine {
		passes = append(passes, transform.InstCombine{})
	}
	if m.Config.EnableADCE {
		passes = append(passes, transform.ADCE{})
	}
	if m.Config.EnableSimplifyCFG {
		passes = append(passes, transform.SimplifyCFG{})
	}
	return passes
}

// RunFunction runs the per-function schedule on f: SROA then Mem2Reg to
// raise memory into registers, the scalar fixed-point loop to
// fold/clean up, and finally the loop passes (LICM, induction-variable
// simplification, unrolling) when f actually has loops, followed by one
// cleanup sweep after all of them. Returns whether anything changed.
func (m *Manager) RunFunction(f *ir.Function) bool {
	anyChanged := false

	rebuild := func() {
		analysis.BuildCFG(f)
		analysis.ComputeDominators(f)
	}
	rebuild()

	if m.Config.EnableSROA {
		if m.runPass(transform.SROA{}, f) {
			anyChanged = true
			rebuild()
		}
	}
	if m.Config.EnableMem2Reg {
		if m.runPass(transform.Mem2Reg{}, f) {
			anyChanged = true
			rebuild()
		}
	}

	passes := m.scalarPasses()
	maxIter := m.Config.MaxIterations
	if maxIter <= 0 {
		maxIter = 10
	}
	for iter := 0; iter < maxIter; iter++ {
		changedThisRound := false
		for _, p := range passes {
			if m.runPass(p, f) {
				changedThisRound = true
				rebuild()
			}
		}
		m.recordIteration()
		if !changedThisRound {
			break
		}
		anyChanged = true
	}

	if m.Config.EnableLICM || m.Config.EnableIndVarSimplify || m.Config.EnableLoopUnroll {
		lf := analysis.FindLoops(f)
		if lf != nil && len(lf.Outermost) > 0 {
			if m.Config.EnableLICM {
				if m.runPass(transform.LICM{}, f) {
					anyChanged = true
					rebuild()
				}
			}
			if m.Config.EnableIndVarSimplify {
				if m.runPass(transform.IndVarSimplify{}, f) {
					anyChanged = true
					rebuild()
				}
			}
			if m.Config.EnableLoopUnroll {
				if m.runPass(transform.LoopUnroll{}, f) {
					anyChanged = true
					rebuild()
				}
			}
			for _, p := range m.cleanupPasses() {
				if m.runPass(p, f) {
					anyChanged = true
					rebuild()
				}
			}
		}
	}

	return anyChanged
}

// RunModule runs the full schedule over every function in m, then the
// module-level interprocedural passes: inlining (which, when it changed
// anything, re-runs the per-function schedule on every defined
// function, since inlined bodies expose fresh local optimization
// opportunities) and tail-call
// elimination.
func (m *Manager) RunModule(mod *ir.Module) bool {
	anyChanged := false
	for _, f := range mod.Functions() {
		if f.IsDeclaration {
			continue
		}
		if m.RunFunction(f) {
			anyChanged = true
		}
	}

	if m.Config.EnableInliner {
		inliner := transform.Inliner{Threshold: m.Config.InlinerThreshold}
		if inliner.RunModule(mod) {
			anyChanged = true
			for _, f := range mod.Functions() {
				if !f.IsDeclaration {
					m.RunFunction(f)
				}
			}
		}
	}

	if m.Config.EnableTailCallElim {
		for _, f := range mod.Functions() {
			if f.IsDeclaration {
				continue
			}
			if m.runPass(transform.TailCallElim{}, f) {
				anyChanged = true
				m.RunFunction(f)
			}
		}
	}

	return anyChanged
}

// runPass runs p over f, and — when the caller has attached Stats via
// EnableStatistics — records the run under p.Name() along with its net
// effect on instruction and block counts. A no-op when Stats is nil, so
// the counting overhead is paid only by callers who asked for it.
func (m *Manager) runPass(p transform.Pass, f *ir.Function) bool {
	if m.Stats == nil {
		return p.Run(f)
	}
	instBefore, blocksBefore := numInstructions(f), f.NumBlocks()
	changed := p.Run(f)
	ps := m.Stats.PerPass[p.Name()]
	if ps == nil {
		ps = &PassStats{}
		m.Stats.PerPass[p.Name()] = ps
	}
	ps.Runs++
	if changed {
		ps.Changed++
	}
	if d := instBefore - numInstructions(f); d > 0 {
		ps.InstructionsRemoved += d
	}
	if d := blocksBefore - f.NumBlocks(); d > 0 {
		ps.BlocksRemoved += d
	}
	return changed
}

func numInstructions(f *ir.Function) int {
	n := 0
	for _, b := range f.Blocks() {
		n += b.Len()
	}
	return n
}

func (m *Manager) recordIteration() {
	if m.Stats != nil {
		m.Stats.Iterations++
	}
}
