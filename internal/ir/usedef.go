package ir

// This file implements the use-def mutation primitives every transform
// must go through rather than touching operand
// lists directly: addValueOperand/addBlockOperand, ChangeOperandValue,
// ChangeOperandBlock, ReplaceAllUsesWith and EraseInstruction (which
// also unlinks the erased instruction's operands). Keeping them all in
// one file makes the invariant
// they jointly maintain — "a Value's use list exactly mirrors every
// operand currently referencing it" — auditable in one place.

// addValueOperand appends a new ValueRef operand referencing val to
// inst's operand list and links it into val's use list. The single path
// by which a value operand comes into existence.
func addValueOperand(inst *Instruction, val *Value) *Operand {
	o := &Operand{Kind: ValueRef, Value: val, User: inst}
	linkOperandIntoInstruction(inst, o)
	if val.Kind == ValueRegister || val.Kind == ValueGlobalRef || val.Kind == ValueArgument {
		linkUse(val, o)
	}
	return o
}

// addBlockOperand appends a new BlockRef operand referencing blk to
// inst's operand list. Block operands never appear in a value's use
// list; CFG edges are tracked separately by internal/analysis.
func addBlockOperand(inst *Instruction, blk *BasicBlock) *Operand {
	o := &Operand{Kind: BlockRef, Block: blk, User: inst}
	linkOperandIntoInstruction(inst, o)
	return o
}

func linkOperandIntoInstruction(inst *Instruction, o *Operand) {
	o.prev = inst.opTail
	if inst.opTail != nil {
		inst.opTail.next = o
	} else {
		inst.opHead = o
	}
	inst.opTail = o
	inst.numOperands++
}

func linkUse(val *Value, o *Operand) {
	o.nextUse = val.useHead
	val.useHead = o
}

func unlinkUse(val *Value, o *Operand) {
	if val.useHead == o {
		val.useHead = o.nextUse
		o.nextUse = nil
		return
	}
	for cur := val.useHead; cur != nil; cur = cur.nextUse {
		if cur.nextUse == o {
			cur.nextUse = o.nextUse
			o.nextUse = nil
			return
		}
	}
}

// ChangeOperandValue repoints a single value-reference operand at a new
// value, unlinking it from the old value's use list and linking it into
// the new one's. Used by passes that rewrite one operand in
// place (InstCombine, SROA) without discarding the whole instruction.
func ChangeOperandValue(o *Operand, newVal *Value) {
	requireInvariant(o.Kind == ValueRef, "ir: ChangeOperandValue on a block operand")
	old := o.Value
	if old == newVal {
		return
	}
	if old != nil && (old.Kind == ValueRegister || old.Kind == ValueGlobalRef || old.Kind == ValueArgument) {
		unlinkUse(old, o)
	}
	o.Value = newVal
	if newVal.Kind == ValueRegister || newVal.Kind == ValueGlobalRef || newVal.Kind == ValueArgument {
		linkUse(newVal, o)
	}
}

// ChangeOperandBlock repoints a block-reference operand, used by
// SimplifyCFG when it retargets a branch.
func ChangeOperandBlock(o *Operand, newBlock *BasicBlock) {
	requireInvariant(o.Kind == BlockRef, "ir: ChangeOperandBlock on a value operand")
	o.Block = newBlock
}

// ReplaceAllUsesWith repoints every current use of old at newVal and
// leaves old with an empty use list. This is the single primitive nearly
// every transform builds on: CSE, InstCombine, Mem2Reg, SCCP, inlining
// of return values all reduce to one RAUW call.
//
// newVal must not itself reference old through any instruction being
// replaced in the same step, or it would construct a cycle; callers are
// responsible for that ordering.
func ReplaceAllUsesWith(old, newVal *Value) {
	if old == newVal {
		return
	}
	for u := old.useHead; u != nil; {
		next := u.nextUse
		u.nextUse = nil
		u.Value = newVal
		if newVal.Kind == ValueRegister || newVal.Kind == ValueGlobalRef || newVal.Kind == ValueArgument {
			linkUse(newVal, u)
		}
		u = next
	}
	old.useHead = nil
}

// EraseInstruction removes inst from its block and detaches every
// operand it holds from the values/blocks they reference, leaving no
// dangling use-list entries. The caller must first have
// established that inst.Result (if any) has no remaining uses —
// EraseInstruction panics otherwise, since silently erasing a live
// definition would corrupt the use-def graph invisibly.
func EraseInstruction(inst *Instruction) {
	inst.checkNotErased()
	if inst.Result != nil {
		requireInvariant(!inst.Result.HasUses(),
			"ir: EraseInstruction on %s (id=%d) with %d remaining uses",
			inst.Opcode, inst.ID, inst.Result.NumUses())
	}
	for o := inst.opHead; o != nil; {
		next := o.next
		if o.Kind == ValueRef && o.Value != nil {
			unlinkUse(o.Value, o)
		}
		o.prev, o.next = nil, nil
		o = next
	}
	inst.opHead, inst.opTail, inst.numOperands = nil, nil, 0
	if inst.Block != nil {
		inst.Block.remove(inst)
	}
	inst.erased = true
}
