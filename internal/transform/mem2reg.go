package transform

import (
	"github.com/sereinwalker/sysy-ir/internal/analysis"
	"github.com/sereinwalker/sysy-ir/internal/ir"
)

// Mem2Reg promotes scalar, non-escaping stack allocas to SSA registers
// by inserting phi nodes at each alloca's dominance frontier and
// renaming loads/stores via a dominator-tree walk. Grounded
// on original_source/src/ir/transforms/mem2reg.c's three-phase shape:
// find promotable allocas, place phis, rename.
type Mem2Reg struct{}

func (Mem2Reg) Name() string { return "mem2reg" }

func (p Mem2Reg) Run(f *ir.Function) bool {
	if f.Entry == nil {
		return false
	}
	analysis.BuildCFG(f)
	analysis.ComputeDominators(f)

	allocas := promotableAllocas(f)
	if len(allocas) == 0 {
		return false
	}

	placePhis(f, allocas)
	renameBlock(f.Entry, allocas, map[*ir.Instruction][]*ir.Value{}, map[*ir.BasicBlock]bool{})
	removeDeadAllocas(allocas)

	f.InvalidateAnalyses()
	return true
}

// promotableAllocas returns every alloca in f's entry block whose only
// uses are whole-value loads and stores — no GEP, no escaping use as a
// call argument or return value: only allocas with no address-taken
// uses are promoted.
func promotableAllocas(f *ir.Function) []*ir.Instruction {
	var out []*ir.Instruction
	for _, inst := range f.Entry.Instructions() {
		if inst.Opcode != ir.OpAlloca {
			continue
		}
		if isPromotable(inst) {
			out = append(out, inst)
		}
	}
	return out
}

func isPromotable(alloca *ir.Instruction) bool {
	if alloca.AllocaType.Tag == ir.TagArray {
		return false
	}
	for _, u := range alloca.Result.Uses() {
		switch u.User.Opcode {
		case ir.OpLoad:
			if u.User.Pointer() != alloca.Result {
				return false
			}
		case ir.OpStore:
			if u.User.Pointer() != alloca.Result {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// placePhis inserts an (initially empty) phi for each alloca at every
// block in the iterated dominance frontier of its store set, the
// standard minimal-SSA phi-placement worklist algorithm.
func placePhis(f *ir.Function, allocas []*ir.Instruction) map[*ir.Instruction]map[*ir.BasicBlock]*ir.Instruction {
	phisFor := make(map[*ir.Instruction]map[*ir.BasicBlock]*ir.Instruction, len(allocas))
	b := ir.NewBuilder(f.Module)
	b.UseFunction(f)

	for _, alloca := range allocas {
		defBlocks := storeBlocks(alloca)
		hasPhi := make(map[*ir.BasicBlock]bool)
		worklist := append([]*ir.BasicBlock{}, defBlocks...)
		placed := make(map[*ir.BasicBlock]*ir.Instruction)

		for len(worklist) > 0 {
			blk := worklist[len(worklist)-1]
			worklist = worklist[:len(worklist)-1]
			for _, df := range blk.DomFrontier {
				if hasPhi[df] {
					continue
				}
				hasPhi[df] = true
				phi := b.InsertPhiAtBlockStart(df, alloca.AllocaType, alloca.Result.Name+".phi")
				phi.PhiForAlloca = alloca
				placed[df] = phi
				worklist = append(worklist, df)
			}
		}
		phisFor[alloca] = placed
	}
	return phisFor
}

func storeBlocks(alloca *ir.Instruction) []*ir.BasicBlock {
	seen := make(map[*ir.BasicBlock]bool)
	var out []*ir.BasicBlock
	for _, u := range alloca.Result.Uses() {
		if u.User.Opcode == ir.OpStore && !seen[u.User.Block] {
			seen[u.User.Block] = true
			out = append(out, u.User.Block)
		}
	}
	return out
}

// renameBlock is the dominator-tree DFS rename pass: current carries,
// per alloca, a stack of the value currently live for
// it along the path from the entry to this block.
func renameBlock(blk *ir.BasicBlock, allocas []*ir.Instruction, current map[*ir.Instruction][]*ir.Value, visited map[*ir.BasicBlock]bool) {
	if visited[blk] {
		return
	}
	visited[blk] = true

	pushed := make(map[*ir.Instruction]int, len(allocas))
	for _, a := range allocas {
		pushed[a] = 0
	}

	// Phis inserted for these allocas become the new top-of-stack value
	// for this block.
	for _, inst := range blk.Phis() {
		if a := inst.PhiForAlloca; a != nil {
			current[a] = append(current[a], inst.Result)
			pushed[a]++
		}
	}

	for _, inst := range blk.Instructions() {
		switch inst.Opcode {
		case ir.OpLoad:
			alloca := loadStoreAlloca(inst, allocas)
			if alloca == nil {
				continue
			}
			cur := topOf(current, alloca)
			ir.ReplaceAllUsesWith(inst.Result, cur)
			ir.EraseInstruction(inst)
		case ir.OpStore:
			alloca := loadStoreAlloca(inst, allocas)
			if alloca == nil {
				continue
			}
			val := inst.StoredValue()
			current[alloca] = append(current[alloca], val)
			pushed[alloca]++
			ir.EraseInstruction(inst)
		}
	}

	for _, succ := range blk.Succs {
		for _, inst := range succ.Phis() {
			a := inst.PhiForAlloca
			if a == nil {
				continue
			}
			ir.AddIncoming(inst, topOf(current, a), blk)
		}
	}

	for _, child := range blk.DomChildren {
		renameBlock(child, allocas, current, visited)
	}

	for a, n := range pushed {
		stack := current[a]
		current[a] = stack[:len(stack)-n]
	}
}

func loadStoreAlloca(inst *ir.Instruction, allocas []*ir.Instruction) *ir.Instruction {
	ptr := inst.Pointer()
	for _, a := range allocas {
		if a.Result == ptr {
			return a
		}
	}
	return nil
}

func topOf(current map[*ir.Instruction][]*ir.Value, alloca *ir.Instruction) *ir.Value {
	stack := current[alloca]
	if len(stack) == 0 {
		return ir.Undef(alloca.AllocaType)
	}
	return stack[len(stack)-1]
}

// removeDeadAllocas erases every promoted alloca; renameBlock already
// erased all of its loads/stores so it has no remaining uses.
func removeDeadAllocas(allocas []*ir.Instruction) {
	for _, a := range allocas {
		if !a.Result.HasUses() {
			ir.EraseInstruction(a)
		}
	}
}
