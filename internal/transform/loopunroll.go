package transform

import (
	"github.com/sereinwalker/sysy-ir/internal/analysis"
	"github.com/sereinwalker/sysy-ir/internal/ir"
)

// maxTripCount bounds full unrolling to loops whose iteration count is
// known small; beyond this, unrolling would bloat the function without
// a proportionate payoff; the exact cutoff is implementation-defined.
const maxTripCount = 64

// LoopUnroll fully unrolls single-block counted loops with a constant,
// exact-multiple trip count: the header's sole basic IV is compared
// against a constant bound by a strictly-less-than icmp, and the step
// evenly divides the distance to the bound. Scope is restricted to
// single-block loop bodies (header == latch, one block total) to avoid
// the general multi-block SSA-cloning problem, where a cloned phi in a
// not-yet-visited predecessor would need to reference values that don't
// exist yet under a naive single pass. Grounded on
// original_source/src/ir/transforms/loop_unroll.c's exact-trip-count
// full-unroll path; the partial/runtime-trip-count path it also
// implements is out of scope here.
type LoopUnroll struct{}

func (LoopUnroll) Name() string { return "loopunroll" }

func (p LoopUnroll) Run(f *ir.Function) bool {
	if f.Entry == nil {
		return false
	}
	analysis.BuildCFG(f)
	analysis.ComputeDominators(f)
	lf := analysis.FindLoops(f)
	if lf == nil {
		return false
	}

	b := ir.NewBuilder(f.Module)
	b.UseFunction(f)

	changed := false
	for _, l := range flattenLoops(lf) {
		if unrollLoop(f, b, l) {
			changed = true
		}
	}
	if changed {
		f.InvalidateAnalyses()
	}
	return changed
}

func unrollLoop(f *ir.Function, b *ir.Builder, l *ir.Loop) bool {
	if len(l.Blocks) != 1 || l.Header != l.Latch {
		return false
	}
	header := l.Header

	iv, ok := findBasicIV(f, b, l)
	if !ok {
		return false
	}

	term := header.Terminator()
	if term == nil || term.Opcode != ir.OpCondBr {
		return false
	}
	cond := term.CondBrCondition()
	cmp := cond.Def
	if cmp == nil || cmp.Opcode != ir.OpICmp || cmp.ICmpCond != ir.ICmpSLT {
		return false
	}

	next := iv.StepDef.Result
	var bound *ir.Value
	switch {
	case cmp.LHS() == next:
		bound = cmp.RHS()
	case cmp.RHS() == next:
		bound = cmp.LHS()
	default:
		return false
	}
	if bound.Kind != ir.ValueConstant || iv.Init.Kind != ir.ValueConstant || iv.Step.Kind != ir.ValueConstant {
		return false
	}
	if iv.Step.IntVal <= 0 {
		return false
	}

	diff := bound.IntVal - iv.Init.IntVal
	if diff <= 0 || diff%iv.Step.IntVal != 0 {
		return false
	}
	tripCount := diff / iv.Step.IntVal
	if tripCount <= 0 || tripCount > maxTripCount {
		return false
	}

	exit := term.CondBrTrue()
	if exit == header {
		exit = term.CondBrFalse()
	}

	// Safety: nothing defined in the header may be used outside it —
	// otherwise the exit block (or some dominated block) would need
	// phi edges rehomed to the final clone's values, which this
	// single-block-only unroller doesn't attempt.
	for _, inst := range header.Instructions() {
		if inst.Result == nil {
			continue
		}
		for _, use := range inst.Result.Uses() {
			if use.User.Block != header {
				return false
			}
		}
	}

	preheader := iv.Preheader
	// The preheader's branch to the header is dropped for good: the
	// unrolled copies end in a branch straight to exit instead.
	reopenBlock(b, preheader)

	ivType := iv.Phi.Result.Type
	remap := map[*ir.Value]*ir.Value{}
	for i := int64(0); i < tripCount; i++ {
		remap[iv.Phi.Result] = ir.ConstInt(ivType, iv.Init.IntVal+i*iv.Step.IntVal)
		for _, inst := range header.Instructions() {
			if inst == iv.StepDef || inst == cmp || inst.IsTerminator() || inst.Opcode == ir.OpPhi {
				continue
			}
			nv := cloneInstruction(b, inst, remap)
			if inst.Result != nil && nv != nil {
				remap[inst.Result] = nv
			}
		}
	}
	b.EmitBr(exit)

	for _, in := range exit.Phis() {
		fixUnrolledExitPhi(in, header, preheader)
	}

	// Break the phi/step cycle so the sweep below can empty the header.
	ir.ReplaceAllUsesWith(iv.Phi.Result, ir.Undef(ivType))

	for progress := true; progress; {
		progress = false
		for _, inst := range header.Instructions() {
			if inst.Result == nil || !inst.Result.HasUses() {
				ir.EraseInstruction(inst)
				progress = true
			}
		}
	}
	f.RemoveBlock(header)
	return true
}

// fixUnrolledExitPhi retargets a phi incoming edge from the now-removed
// header to the preheader, which is the unrolled loop's sole
// predecessor of the exit block post-transform. The incoming value
// itself (necessarily header-invariant, by the safety check in
// unrollLoop that rejected any header value escaping to a use outside
// the block — incoming operands to this phi are defined outside the
// loop) is left untouched.
func fixUnrolledExitPhi(phi *ir.Instruction, header, preheader *ir.BasicBlock) {
	for _, in := range phi.Incoming() {
		if in.Block == header {
			ir.ChangeOperandBlock(blockOperandFor(phi, header), preheader)
			return
		}
	}
}

// blockOperandFor finds the block-kind operand of phi paired with the
// incoming edge from block.
func blockOperandFor(phi *ir.Instruction, block *ir.BasicBlock) *ir.Operand {
	ops := phi.Operands()
	for i := 1; i < len(ops); i += 2 {
		if ops[i].Block == block {
			return ops[i]
		}
	}
	return nil
}
