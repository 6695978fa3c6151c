package transform

import (
	"github.com/sereinwalker/sysy-ir/internal/analysis"
	"github.com/sereinwalker/sysy-ir/internal/ir"
)

// SimplifyCFG folds constant-condition branches, deletes blocks no
// longer reachable from entry, merges a block into its sole
// predecessor when that predecessor has no other successor, and
// threads jumps through empty pass-through blocks, mirroring
// simplify_cfg.c's four-pass shape; the four sub-passes repeat until a
// round changes nothing. It is the natural consumer of
// SCCP's folded conditions and
// ADCE's left-behind empty blocks.
type SimplifyCFG struct{}

func (SimplifyCFG) Name() string { return "simplifycfg" }

func (p SimplifyCFG) Run(f *ir.Function) bool {
	if f.Entry == nil {
		return false
	}
	changed := false

	for round := true; round; {
		round = false
		if foldConstantCondBr(f) {
			round = true
		}

		analysis.BuildCFG(f)
		if removeUnreachableBlocks(f) {
			round = true
		}

		analysis.BuildCFG(f)
		if threadJumps(f) {
			round = true
		}

		analysis.BuildCFG(f)
		if mergeStraightLineBlocks(f) {
			round = true
		}
		changed = changed || round
	}

	if changed {
		f.InvalidateAnalyses()
	}
	return changed
}

// foldConstantCondBr rewrites every cond_br whose condition is already a
// literal constant (typically left behind by SCCP) into a plain br, and
// drops the now-stale incoming edge from the arm that is no longer
// taken.
func foldConstantCondBr(f *ir.Function) bool {
	b := ir.NewBuilder(f.Module)
	b.UseFunction(f)
	changed := false
	for _, blk := range f.Blocks() {
		term := blk.Terminator()
		if term == nil || term.Opcode != ir.OpCondBr {
			continue
		}
		cond := term.CondBrCondition()
		if cond.Kind != ir.ValueConstant {
			continue
		}
		trueT, falseT := term.CondBrTrue(), term.CondBrFalse()
		target, other := falseT, trueT
		if cond.IntVal != 0 {
			target, other = trueT, falseT
		}
		ir.EraseInstruction(term)
		b.SetInsertPoint(blk)
		b.EmitBr(target)
		if other != target {
			removePhiIncoming(b, other, blk)
		}
		changed = true
	}
	return changed
}

// removeUnreachableBlocks deletes every block analysis.Reachable does
// not reach from entry, fixing up phis in still-reachable successors
// first.
func removeUnreachableBlocks(f *ir.Function) bool {
	reachable := analysis.Reachable(f)
	var dead []*ir.BasicBlock
	for _, blk := range f.Blocks() {
		if !reachable[blk] {
			dead = append(dead, blk)
		}
	}
	if len(dead) == 0 {
		return false
	}

	b := ir.NewBuilder(f.Module)
	b.UseFunction(f)
	isDead := make(map[*ir.BasicBlock]bool, len(dead))
	for _, blk := range dead {
		isDead[blk] = true
	}
	for _, blk := range dead {
		for _, succ := range blk.Succs {
			if !isDead[succ] {
				removePhiIncoming(b, succ, blk)
			}
		}
	}

	progress := true
	for progress {
		progress = false
		for _, blk := range dead {
			for _, inst := range blk.Instructions() {
				if inst.Result != nil && inst.Result.HasUses() {
					continue
				}
				ir.EraseInstruction(inst)
				progress = true
			}
		}
	}
	for _, blk := range dead {
		f.RemoveBlock(blk)
	}
	return true
}

// mergeStraightLineBlocks folds a block with exactly one successor that
// has exactly one predecessor into that predecessor, the "block
// concatenation" half of SimplifyCFG.
func mergeStraightLineBlocks(f *ir.Function) bool {
	changed := false
	progress := true
	for progress {
		progress = false
		for _, blk := range f.Blocks() {
			term := blk.Terminator()
			if term == nil || term.Opcode != ir.OpBr {
				continue
			}
			target := term.BrTarget()
			if target == blk || target == f.Entry || len(target.Preds) != 1 {
				continue
			}
			mergeBlockInto(blk, target)
			f.RemoveBlock(target)
			changed, progress = true, true
			break // block list changed; restart the scan
		}
	}
	return changed
}

func mergeBlockInto(blk, target *ir.BasicBlock) {
	ir.EraseInstruction(blk.Terminator())
	// Phis in target's successors now see blk as the predecessor.
	for _, succ := range target.Terminator().Successors() {
		for _, phi := range succ.Phis() {
			for _, o := range phi.Operands() {
				if o.Kind == ir.BlockRef && o.Block == target {
					ir.ChangeOperandBlock(o, blk)
				}
			}
		}
	}
	for _, phi := range target.Phis() {
		in := phi.Incoming()
		ir.ReplaceAllUsesWith(phi.Result, in[0].Value)
		ir.EraseInstruction(phi)
	}
	for _, inst := range target.Instructions() {
		ir.MoveInstructionToEnd(inst, blk)
	}
}

// threadJumps redirects a branch past a chain of empty, phi-free
// pass-through blocks straight to their ultimate target. When that
// target has phis, each gains an incoming entry for the redirected
// predecessor (see patchThreadedPhis); a branch is left alone when one of
// those phis already has an entry for that predecessor.
func threadJumps(f *ir.Function) bool {
	changed := false
	for _, blk := range f.Blocks() {
		term := blk.Terminator()
		if term == nil {
			continue
		}
		switch term.Opcode {
		case ir.OpBr:
			if final, lastHop := resolveThroughEmptyBlocks(term.BrTarget(), blk); final != term.BrTarget() {
				ir.ChangeOperandBlock(term.Operands()[0], final)
				patchThreadedPhis(final, lastHop, blk)
				changed = true
			}
		case ir.OpCondBr:
			ops := term.Operands()
			if final, lastHop := resolveThroughEmptyBlocks(term.CondBrTrue(), blk); final != term.CondBrTrue() {
				ir.ChangeOperandBlock(ops[1], final)
				patchThreadedPhis(final, lastHop, blk)
				changed = true
			}
			if final, lastHop := resolveThroughEmptyBlocks(term.CondBrFalse(), blk); final != term.CondBrFalse() {
				ir.ChangeOperandBlock(ops[2], final)
				patchThreadedPhis(final, lastHop, blk)
				changed = true
			}
		}
	}
	return changed
}

// resolveThroughEmptyBlocks follows target through a chain of empty,
// phi-free blocks each ending in a plain `br`, stopping at the first
// block that isn't one of those (or at from, to avoid threading into a
// cycle). final is the block the branch should be redirected to; lastHop
// is the last block in the walked chain (final's real predecessor before
// threading), needed to patch final's phis when it has any. lastHop is
// nil when no hop was taken, or when a phi in final already holds an
// entry for from (nothing to thread).
func resolveThroughEmptyBlocks(target, from *ir.BasicBlock) (final, lastHop *ir.BasicBlock) {
	visited := map[*ir.BasicBlock]bool{}
	cur := target
	var prev *ir.BasicBlock
	for !visited[cur] && cur != from {
		visited[cur] = true
		if cur.Len() != 1 || len(cur.Phis()) != 0 {
			break
		}
		t := cur.Terminator()
		if t == nil || t.Opcode != ir.OpBr {
			break
		}
		prev = cur
		cur = t.BrTarget()
	}
	if prev == nil || cur == from {
		return target, nil
	}
	for _, phi := range cur.Phis() {
		if _, ok := phi.IncomingFor(from); ok {
			return target, nil
		}
	}
	return cur, prev
}

// patchThreadedPhis adds an incoming entry to every phi in final for
// pred, reusing the value final's phis already recorded for lastHop,
// the now-bypassed block that used to sit directly before final in the
// threaded chain.
func patchThreadedPhis(final, lastHop, pred *ir.BasicBlock) {
	if lastHop == nil {
		return
	}
	for _, phi := range final.Phis() {
		val, ok := phi.IncomingFor(lastHop)
		if !ok {
			continue
		}
		ir.AddIncoming(phi, val, pred)
	}
}

// removePhiIncoming drops target's incoming entry for pred, rebuilding
// the phi (Go's use-def primitives only support append, so dropping one
// pair means constructing the remaining set and replacing the phi
// wholesale, the same technique analysis.EnsurePreheader uses).
func removePhiIncoming(b *ir.Builder, target *ir.BasicBlock, pred *ir.BasicBlock) {
	for _, phi := range target.Phis() {
		var kept []ir.PhiIncoming
		removed := false
		for _, in := range phi.Incoming() {
			if in.Block == pred {
				removed = true
				continue
			}
			kept = append(kept, in)
		}
		if !removed {
			continue
		}
		newPhi := b.InsertPhiAtBlockStart(target, phi.Result.Type, phi.Result.Name)
		for _, in := range kept {
			ir.AddIncoming(newPhi, in.Value, in.Block)
		}
		ir.ReplaceAllUsesWith(phi.Result, newPhi.Result)
		ir.EraseInstruction(phi)
	}
}
