package ir

// Instruction is the tagged-union node for every kind of computation and
// terminator in the IR: a single struct carries every opcode's fields
// rather than one Go type per opcode, so
// passes dispatch on Opcode with a type switch-free table instead of an
// interface hierarchy.
type Instruction struct {
	Opcode Opcode
	ID     int // per-function monotonic id, debugging/printing only

	// Result is the SSA register this instruction defines, or nil for
	// void instructions (store, br, cond_br, ret, call-to-void).
	Result *Value

	// operand list: doubly linked, ordered. Use Operands() to iterate.
	opHead, opTail *Operand
	numOperands    int

	Block *BasicBlock

	// sibling links within Block's instruction list.
	prev, next *Instruction

	// Opcode-specific payload.
	ICmpCond ICmpCond // OpICmp
	FCmpCond FCmpCond // OpFCmp

	AllocaType *Type // OpAlloca: T in `alloca T`
	Align      int   // OpAlloca: inferred from AllocaType

	Inbounds bool // OpGEP

	Callee     *Function // OpCall: statically known callee, nil if indirect/external-by-name
	CalleeName string    // OpCall: callee name (always set, even for known callees)

	DestType *Type // conversion ops: declared destination type (== Result.Type)

	// PhiForAlloca back-links a Mem2Reg-inserted phi to the alloca
	// instruction it replaces. Nil for all other
	// phis and all non-phi instructions.
	PhiForAlloca *Instruction

	// Marker fields used by worklist-driven passes.
	IsLive     bool // ADCE mark phase
	InWorklist bool // generic worklist membership, avoids duplicate enqueue

	erased bool // poisoned after EraseInstruction; any further use is a bug
}

// Operands returns the instruction's operand list in order. O(operands);
// safe to call during mutation of a different instruction's operands,
// but callers mutating this instruction's own operand list while
// iterating must capture next before removing.
func (i *Instruction) Operands() []*Operand {
	var out []*Operand
	for o := i.opHead; o != nil; o = o.next {
		out = append(out, o)
	}
	return out
}

// NumOperands returns the number of operands currently attached to i.
func (i *Instruction) NumOperands() int { return i.numOperands }

// IsTerminator reports whether i ends its parent block.
func (i *Instruction) IsTerminator() bool { return i.Opcode.IsTerminator() }

func (i *Instruction) checkNotErased() {
	if i.erased {
		panic(Bugf("ir: use of erased instruction %s (id=%d)", i.Opcode, i.ID))
	}
}

// ValueOperandAt returns the Value referenced by the n-th operand,
// panicking (as a programming error) if that operand is a BlockRef or
// out of range. Used by opcode-specific accessors below.
func (i *Instruction) ValueOperandAt(n int) *Value {
	i.checkNotErased()
	ops := i.Operands()
	requireInvariant(n >= 0 && n < len(ops), "ir: operand index %d out of range (%d operands)", n, len(ops))
	requireInvariant(ops[n].Kind == ValueRef, "ir: operand %d of %s is not a value reference", n, i.Opcode)
	return ops[n].Value
}

// Binary-op accessors (add/sub/.../icmp/fcmp: operand 0 = LHS, 1 = RHS).
func (i *Instruction) LHS() *Value { return i.ValueOperandAt(0) }
func (i *Instruction) RHS() *Value { return i.ValueOperandAt(1) }

// Load/Store/GEP base pointer.
func (i *Instruction) Pointer() *Value { return i.ValueOperandAt(0) }

// StoredValue returns the value operand of a store (operand 1; operand 0
// is the pointer).
func (i *Instruction) StoredValue() *Value { return i.ValueOperandAt(1) }

// GEPIndices returns every index operand after the base pointer.
func (i *Instruction) GEPIndices() []*Value {
	ops := i.Operands()
	out := make([]*Value, 0, len(ops)-1)
	for _, o := range ops[1:] {
		out = append(out, o.Value)
	}
	return out
}

// CallArgs returns the argument values of a call instruction.
func (i *Instruction) CallArgs() []*Value {
	ops := i.Operands()
	out := make([]*Value, 0, len(ops))
	for _, o := range ops {
		out = append(out, o.Value)
	}
	return out
}

// ConvertedOperand returns the single source value of a conversion op.
func (i *Instruction) ConvertedOperand() *Value { return i.ValueOperandAt(0) }

// RetValue returns the returned value of a ret instruction, or nil for
// `ret void`.
func (i *Instruction) RetValue() *Value {
	if i.numOperands == 0 {
		return nil
	}
	return i.ValueOperandAt(0)
}

// PhiIncoming is one (value, predecessor) pair of a phi instruction.
type PhiIncoming struct {
	Value *Value
	Block *BasicBlock
}

// Incoming returns every (value, predecessor-block) pair of a phi
// instruction, in operand order. Phi operands alternate value, block.
func (i *Instruction) Incoming() []PhiIncoming {
	ops := i.Operands()
	requireInvariant(len(ops)%2 == 0, "ir: phi %d has an odd operand count", i.ID)
	out := make([]PhiIncoming, 0, len(ops)/2)
	for n := 0; n < len(ops); n += 2 {
		out = append(out, PhiIncoming{Value: ops[n].Value, Block: ops[n+1].Block})
	}
	return out
}

// IncomingFor returns the value a phi associates with predecessor pred,
// and whether such an incoming entry exists.
func (i *Instruction) IncomingFor(pred *BasicBlock) (*Value, bool) {
	for _, in := range i.Incoming() {
		if in.Block == pred {
			return in.Value, true
		}
	}
	return nil, false
}

// CondBrCondition / CondBrTrue / CondBrFalse access cond_br operands:
// operand 0 is the i1 condition (ValueRef), operand 1 is the true target
// and operand 2 the false target (both BlockRef).
func (i *Instruction) CondBrCondition() *Value { return i.ValueOperandAt(0) }

func (i *Instruction) blockOperandAt(n int) *BasicBlock {
	ops := i.Operands()
	requireInvariant(n >= 0 && n < len(ops), "ir: block operand index %d out of range", n)
	requireInvariant(ops[n].Kind == BlockRef, "ir: operand %d of %s is not a block reference", n, i.Opcode)
	return ops[n].Block
}

func (i *Instruction) CondBrTrue() *BasicBlock  { return i.blockOperandAt(1) }
func (i *Instruction) CondBrFalse() *BasicBlock { return i.blockOperandAt(2) }

// BrTarget returns the single target of an unconditional br.
func (i *Instruction) BrTarget() *BasicBlock { return i.blockOperandAt(0) }

// Successors returns the CFG successors a terminator drives (0 for ret,
// 1 for br, 2 for cond_br).
func (i *Instruction) Successors() []*BasicBlock {
	switch i.Opcode {
	case OpRet:
		return nil
	case OpBr:
		return []*BasicBlock{i.BrTarget()}
	case OpCondBr:
		return []*BasicBlock{i.CondBrTrue(), i.CondBrFalse()}
	default:
		panic(Bugf("ir: Successors called on non-terminator %s", i.Opcode))
	}
}
