package ir

// BasicBlock is a maximal straight-line sequence of instructions ending
// in exactly one terminator. Predecessors/Successors are
// derived and cached by internal/analysis, not maintained incrementally
// by the builder; CFG-mutating transforms must invalidate them via
// Function.InvalidateAnalyses.
type BasicBlock struct {
	Label string
	ID    int // per-function monotonic id, debugging/printing only

	Func *Function

	head, tail *Instruction
	count      int

	// sibling links within Func's block list (layout order, not CFG
	// order).
	prev, next *BasicBlock

	// Cached CFG edges, populated by analysis.BuildCFG and invalidated
	// whenever the function's instructions change control flow.
	Preds []*BasicBlock
	Succs []*BasicBlock

	// Cached dominator-tree data, populated by analysis.ComputeDominators.
	IDom          *BasicBlock
	DomChildren   []*BasicBlock
	DomFrontier   []*BasicBlock
	domTin, domTout int

	// Cached loop-forest data, populated by analysis.FindLoops.
	LoopDepth int
}

// SetDomTimes records the DFS discovery/finish times analysis.
// ComputeDominators stamps over the dominator tree, enabling O(1)
// Dominates queries.
func (b *BasicBlock) SetDomTimes(tin, tout int) { b.domTin, b.domTout = tin, tout }

// DomTin returns the cached dominator-tree discovery time.
func (b *BasicBlock) DomTin() int { return b.domTin }

// DomTout returns the cached dominator-tree finish time.
func (b *BasicBlock) DomTout() int { return b.domTout }

// Instructions returns the block's instruction list in order. O(n).
func (b *BasicBlock) Instructions() []*Instruction {
	out := make([]*Instruction, 0, b.count)
	for i := b.head; i != nil; i = i.next {
		out = append(out, i)
	}
	return out
}

// Len returns the number of instructions currently in the block.
func (b *BasicBlock) Len() int { return b.count }

// First returns the block's first instruction, or nil if empty.
func (b *BasicBlock) First() *Instruction { return b.head }

// Terminator returns the block's terminating instruction, or nil if the
// block has not yet been terminated (a transient state only valid while
// the builder is still constructing it).
func (b *BasicBlock) Terminator() *Instruction {
	if b.tail != nil && b.tail.IsTerminator() {
		return b.tail
	}
	return nil
}

// IsTerminated reports whether the block already ends in a terminator.
func (b *BasicBlock) IsTerminated() bool { return b.Terminator() != nil }

// Phis returns the block's leading phi instructions, in order, stopping
// at the first non-phi: phis must appear first in a block.
func (b *BasicBlock) Phis() []*Instruction {
	var out []*Instruction
	for i := b.head; i != nil && i.Opcode == OpPhi; i = i.next {
		out = append(out, i)
	}
	return out
}

// insertBefore splices inst immediately before mark in the block's
// instruction list. mark == nil appends at the end.
func (b *BasicBlock) insertBefore(mark, inst *Instruction) {
	inst.Block = b
	if mark == nil {
		inst.prev = b.tail
		inst.next = nil
		if b.tail != nil {
			b.tail.next = inst
		} else {
			b.head = inst
		}
		b.tail = inst
	} else {
		inst.next = mark
		inst.prev = mark.prev
		if mark.prev != nil {
			mark.prev.next = inst
		} else {
			b.head = inst
		}
		mark.prev = inst
	}
	b.count++
}

// insertAfterPhis appends inst after the block's last leading phi, used
// by Mem2Reg when it inserts new phis at block entry.
func (b *BasicBlock) insertAfterPhis(inst *Instruction) {
	var mark *Instruction
	for i := b.head; i != nil && i.Opcode == OpPhi; i = i.next {
		mark = i.next
	}
	if mark == nil && b.head != nil && b.head.Opcode != OpPhi {
		mark = b.head
	}
	b.insertBefore(mark, inst)
}

// insertAfterAllocas appends inst after the block's leading run of
// alloca instructions (themselves after any leading phis), the
// top-of-entry position every alloca occupies: allocas always precede
// every other non-phi instruction in program order.
func (b *BasicBlock) insertAfterAllocas(inst *Instruction) {
	i := b.head
	for i != nil && i.Opcode == OpPhi {
		i = i.next
	}
	var mark *Instruction
	for i != nil && i.Opcode == OpAlloca {
		mark = i.next
		i = i.next
	}
	if mark == nil {
		mark = i
	}
	b.insertBefore(mark, inst)
}

// MoveInstructionToEnd detaches inst from its current block (if any) and
// appends it to the end of dest, preserving every operand and use-def
// edge untouched. Used by SimplifyCFG when merging a single-predecessor
// block into its sole predecessor.
func MoveInstructionToEnd(inst *Instruction, dest *BasicBlock) {
	if inst.Block != nil {
		inst.Block.remove(inst)
	}
	dest.insertBefore(nil, inst)
}

// MoveInstructionBefore detaches inst from its current block (if any)
// and splices it immediately before mark, in mark's block. Used by LICM
// to hoist an invariant instruction into a preheader ahead of its
// terminator.
func MoveInstructionBefore(inst, mark *Instruction) {
	if inst.Block != nil {
		inst.Block.remove(inst)
	}
	mark.Block.insertBefore(mark, inst)
}

// remove unlinks inst from the block's instruction list without
// touching its operands; callers must detach operands first via
// EraseInstruction.
func (b *BasicBlock) remove(inst *Instruction) {
	if inst.prev != nil {
		inst.prev.next = inst.next
	} else {
		b.head = inst.next
	}
	if inst.next != nil {
		inst.next.prev = inst.prev
	} else {
		b.tail = inst.prev
	}
	inst.prev, inst.next = nil, nil
	b.count--
}
