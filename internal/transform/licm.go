package transform

import (
	"github.com/sereinwalker/sysy-ir/internal/analysis"
	"github.com/sereinwalker/sysy-ir/internal/ir"
)

// LICM hoists loop-invariant, side-effect-free instructions into the
// loop's preheader so they execute once instead of on every iteration.
// Only pure instructions are candidates — sdiv/srem are
// excluded from Opcode.IsPure precisely so LICM never speculatively
// hoists a trap that would not otherwise have executed. Grounded on
// original_source/src/ir/transforms/licm.c's invariant-marking + hoist
// loop, processed innermost loop first.
type LICM struct{}

func (LICM) Name() string { return "licm" }

func (p LICM) Run(f *ir.Function) bool {
	if f.Entry == nil {
		return false
	}
	analysis.BuildCFG(f)
	analysis.ComputeDominators(f)
	lf := analysis.FindLoops(f)
	if lf == nil {
		return false
	}

	loops := flattenLoops(lf)
	b := ir.NewBuilder(f.Module)
	b.UseFunction(f)

	changed := false
	for _, l := range loops {
		if hoistLoop(f, b, l) {
			changed = true
		}
	}
	if changed {
		f.InvalidateAnalyses()
	}
	return changed
}

// flattenLoops returns every loop in lf ordered deepest-first, so an
// inner loop's invariant code is already settled in its own preheader
// before the outer loop is considered.
func flattenLoops(lf *ir.LoopForest) []*ir.Loop {
	var all []*ir.Loop
	var visit func(l *ir.Loop)
	visit = func(l *ir.Loop) {
		for _, c := range l.Children {
			visit(c)
		}
		all = append(all, l)
	}
	for _, l := range lf.Outermost {
		visit(l)
	}
	return all
}

func hoistLoop(f *ir.Function, b *ir.Builder, l *ir.Loop) bool {
	invariant := markInvariant(l)
	if len(invariant) == 0 {
		return false
	}

	preheader := analysis.EnsurePreheader(f, b, l)
	term := preheader.Terminator()

	hoisted := make(map[*ir.Instruction]bool, len(invariant))
	changed := false
	progress := true
	for progress {
		progress = false
		for _, blk := range l.Blocks {
			for _, inst := range blk.Instructions() {
				if !invariant[inst] || hoisted[inst] {
					continue
				}
				if !operandsReady(inst, l, hoisted) {
					continue
				}
				ir.MoveInstructionBefore(inst, term)
				hoisted[inst] = true
				changed, progress = true, true
			}
		}
	}
	return changed
}

func markInvariant(l *ir.Loop) map[*ir.Instruction]bool {
	invariant := make(map[*ir.Instruction]bool)
	progress := true
	for progress {
		progress = false
		for _, blk := range l.Blocks {
			for _, inst := range blk.Instructions() {
				if invariant[inst] || inst.Opcode == ir.OpPhi || !inst.Opcode.IsPure() {
					continue
				}
				if operandsInvariant(inst, l, invariant) {
					invariant[inst] = true
					progress = true
				}
			}
		}
	}
	return invariant
}

func operandsInvariant(inst *ir.Instruction, l *ir.Loop, invariant map[*ir.Instruction]bool) bool {
	for _, o := range inst.Operands() {
		if o.Kind != ir.ValueRef {
			continue
		}
		v := o.Value
		if v.Kind == ir.ValueConstant || v.Kind == ir.ValueUndef || v.Kind == ir.ValueArgument || v.Kind == ir.ValueGlobalRef {
			continue
		}
		def := v.Def
		if def != nil && l.Contains(def.Block) && !invariant[def] {
			return false
		}
	}
	return true
}

func operandsReady(inst *ir.Instruction, l *ir.Loop, hoisted map[*ir.Instruction]bool) bool {
	for _, o := range inst.Operands() {
		if o.Kind != ir.ValueRef {
			continue
		}
		v := o.Value
		def := v.Def
		if def != nil && l.Contains(def.Block) && !hoisted[def] {
			return false
		}
	}
	return true
}
