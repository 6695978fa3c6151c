package transform

import "github.com/sereinwalker/sysy-ir/internal/ir"

// ADCE is mark-sweep aggressive dead code elimination: every
// side-effecting instruction and every terminator is a live root, live
// operands are marked transitively, and whatever never gets marked is
// swept away. Loads are treated as side-effecting since there is no
// alias analysis to prove otherwise, so this pass never needs to
// reason about memory aliasing to stay sound.
//
// Grounded on original_source/src/ir/transforms/adce.c's mark phase
// followed by a worklist sweep.
type ADCE struct{}

func (ADCE) Name() string { return "adce" }

func (p ADCE) Run(f *ir.Function) bool {
	resetLiveness(f)
	markLiveRoots(f)

	// Only unmarked instructions use an unmarked result, so redirect
	// those uses to undef first; a dead cycle (an unused loop-carried phi
	// and its increment) would otherwise keep itself in use.
	for _, blk := range f.Blocks() {
		for _, inst := range blk.Instructions() {
			if !inst.IsLive && inst.Result != nil {
				ir.ReplaceAllUsesWith(inst.Result, ir.Undef(inst.Result.Type))
			}
		}
	}

	changed := false
	progress := true
	for progress {
		progress = false
		for _, blk := range f.Blocks() {
			for _, inst := range blk.Instructions() {
				if inst.IsLive {
					continue
				}
				if inst.Result != nil && inst.Result.HasUses() {
					continue
				}
				ir.EraseInstruction(inst)
				changed = true
				progress = true
			}
		}
	}
	return changed
}

func resetLiveness(f *ir.Function) {
	for _, blk := range f.Blocks() {
		for _, inst := range blk.Instructions() {
			inst.IsLive = false
		}
	}
}

func markLiveRoots(f *ir.Function) {
	var worklist []*ir.Instruction
	for _, blk := range f.Blocks() {
		for _, inst := range blk.Instructions() {
			if inst.Opcode.HasSideEffects() {
				inst.IsLive = true
				worklist = append(worklist, inst)
			}
		}
	}
	for len(worklist) > 0 {
		inst := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		for _, o := range inst.Operands() {
			if o.Kind != ir.ValueRef || o.Value.Def == nil {
				continue
			}
			def := o.Value.Def
			if !def.IsLive {
				def.IsLive = true
				worklist = append(worklist, def)
			}
		}
	}
}
