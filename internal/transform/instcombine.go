package transform

import "github.com/sereinwalker/sysy-ir/internal/ir"

// InstCombine is a one-sweep peephole simplifier: constant folding for
// every arithmetic/comparison/conversion op, algebraic identities
// (x+0, x*1, x*0, x-x, (x-y)+y, x*-1, fmul x,0.0,
// fmul x,2.0, fdiv x,x), strength reduction (x*2^k into a shift),
// canonicalization (x-C into x+(-C), constant operands of commutative
// ops moved to the RHS, const-icmp-reg swapped), and phi simplification
// when every incoming value (ignoring self-references) agrees.
// Grounded on original_source/src/ir/transforms/inst_combine.c's
// pattern table.
type InstCombine struct{}

func (InstCombine) Name() string { return "instcombine" }

func (p InstCombine) Run(f *ir.Function) bool {
	changed := false
	for _, blk := range f.Blocks() {
		for _, inst := range blk.Instructions() {
			if simplifyOne(inst) {
				changed = true
			}
		}
	}
	return changed
}

// simplifyOne attempts one rewrite of inst, reporting whether it made a
// change. Instructions fully replaced are erased after their uses are
// redirected; in-place canonicalizations (operand swaps) do not erase.
func simplifyOne(inst *ir.Instruction) bool {
	swapped := canonicalizeCommutative(inst)

	switch inst.Opcode {
	case ir.OpAdd:
		if v, ok := foldBinaryIfConst(inst); ok {
			return replaceWith(inst, v)
		}
		if inst.RHS().IsConstZero() {
			return replaceWith(inst, inst.LHS())
		}
		if v, ok := simplifySubThenAdd(inst); ok {
			return replaceWith(inst, v)
		}
	case ir.OpSub:
		if v, ok := foldBinaryIfConst(inst); ok {
			return replaceWith(inst, v)
		}
		if inst.RHS().IsConstZero() {
			return replaceWith(inst, inst.LHS())
		}
		if inst.LHS() == inst.RHS() {
			return replaceWith(inst, zeroLike(inst))
		}
		if inst.RHS().Kind == ir.ValueConstant {
			v := buildReplacement(inst, func(b *ir.Builder) *ir.Value {
				return b.EmitAdd(inst.LHS(), negConst(inst.RHS()))
			})
			return replaceWith(inst, v)
		}
	case ir.OpMul:
		if v, ok := foldBinaryIfConst(inst); ok {
			return replaceWith(inst, v)
		}
		if inst.RHS().IsConstOne() {
			return replaceWith(inst, inst.LHS())
		}
		if inst.RHS().IsConstZero() {
			return replaceWith(inst, inst.RHS())
		}
		if isConstNegOne(inst.RHS()) {
			v := buildReplacement(inst, func(b *ir.Builder) *ir.Value {
				return b.EmitSub(zeroLike(inst), inst.LHS())
			})
			return replaceWith(inst, v)
		}
		if shift, ok := log2IfPowerOfTwo(inst.RHS()); ok {
			v := buildReplacement(inst, func(b *ir.Builder) *ir.Value {
				return b.EmitShl(inst.LHS(), ir.ConstInt(inst.RHS().Type, int64(shift)))
			})
			return replaceWith(inst, v)
		}
	case ir.OpSDiv:
		if v, ok := foldBinaryIfConst(inst); ok {
			return replaceWith(inst, v)
		}
		if inst.RHS().IsConstOne() {
			return replaceWith(inst, inst.LHS())
		}
	case ir.OpSRem, ir.OpShl, ir.OpLShr, ir.OpAShr:
		if v, ok := foldBinaryIfConst(inst); ok {
			return replaceWith(inst, v)
		}
	case ir.OpOr:
		if v, ok := foldBinaryIfConst(inst); ok {
			return replaceWith(inst, v)
		}
		if inst.LHS() == inst.RHS() {
			return replaceWith(inst, inst.LHS())
		}
	case ir.OpAnd:
		if v, ok := foldBinaryIfConst(inst); ok {
			return replaceWith(inst, v)
		}
		if inst.LHS() == inst.RHS() {
			return replaceWith(inst, inst.LHS())
		}
	case ir.OpXor:
		if v, ok := foldBinaryIfConst(inst); ok {
			return replaceWith(inst, v)
		}
		if inst.LHS() == inst.RHS() {
			return replaceWith(inst, zeroLike(inst))
		}
	case ir.OpFAdd, ir.OpFSub:
		if v, ok := foldBinaryIfConst(inst); ok {
			return replaceWith(inst, v)
		}
		if inst.Opcode == ir.OpFAdd && inst.RHS().IsConstZero() {
			return replaceWith(inst, inst.LHS())
		}
	case ir.OpFMul:
		if v, ok := foldBinaryIfConst(inst); ok {
			return replaceWith(inst, v)
		}
		if inst.RHS().IsConstZero() {
			return replaceWith(inst, inst.RHS())
		}
		if inst.RHS().IsConstOne() {
			return replaceWith(inst, inst.LHS())
		}
		if isConstFloatEqual(inst.RHS(), 2) {
			v := buildReplacement(inst, func(b *ir.Builder) *ir.Value {
				return b.EmitFAdd(inst.LHS(), inst.LHS())
			})
			return replaceWith(inst, v)
		}
	case ir.OpFDiv:
		if v, ok := foldBinaryIfConst(inst); ok {
			return replaceWith(inst, v)
		}
		if inst.RHS().IsConstOne() {
			return replaceWith(inst, inst.LHS())
		}
		if inst.LHS() == inst.RHS() {
			return replaceWith(inst, oneLike(inst))
		}
	case ir.OpICmp:
		if v, ok := foldICmpIfConst(inst); ok {
			return replaceWith(inst, v)
		}
		if swapICmpIfNeeded(inst) {
			return true
		}
	case ir.OpFCmp:
		if v, ok := foldFCmpIfConst(inst); ok {
			return replaceWith(inst, v)
		}
	case ir.OpSIToFP, ir.OpFPToSI, ir.OpZExt, ir.OpSExt, ir.OpFPExt, ir.OpFPTrunc, ir.OpTrunc:
		if v, ok := foldConvertIfConst(inst); ok {
			return replaceWith(inst, v)
		}
	case ir.OpPhi:
		if v, ok := simplifyPhi(inst); ok {
			return replaceWith(inst, v)
		}
	}
	return swapped
}

// foldBinaryIfConst folds inst's two operands through foldBinary when
// both are constants.
func foldBinaryIfConst(inst *ir.Instruction) (*ir.Value, bool) {
	lhs, rhs := inst.LHS(), inst.RHS()
	if lhs.Kind != ir.ValueConstant || rhs.Kind != ir.ValueConstant {
		return nil, false
	}
	return foldBinary(inst.Opcode, lhs, rhs)
}

// foldICmpIfConst folds an icmp whose operands are both constants.
func foldICmpIfConst(inst *ir.Instruction) (*ir.Value, bool) {
	lhs, rhs := inst.LHS(), inst.RHS()
	if lhs.Kind != ir.ValueConstant || rhs.Kind != ir.ValueConstant {
		return nil, false
	}
	return ir.ConstBool(foldICmp(inst.ICmpCond, lhs.IntVal, rhs.IntVal)), true
}

// foldFCmpIfConst folds an fcmp whose operands are both constants.
func foldFCmpIfConst(inst *ir.Instruction) (*ir.Value, bool) {
	lhs, rhs := inst.LHS(), inst.RHS()
	if lhs.Kind != ir.ValueConstant || rhs.Kind != ir.ValueConstant {
		return nil, false
	}
	return ir.ConstBool(foldFCmp(inst.FCmpCond, lhs.FloatVal, rhs.FloatVal)), true
}

// foldConvertIfConst folds a conversion whose source is a constant.
func foldConvertIfConst(inst *ir.Instruction) (*ir.Value, bool) {
	src := inst.ConvertedOperand()
	if src.Kind != ir.ValueConstant {
		return nil, false
	}
	return foldConvert(inst.Opcode, src, inst.DestType), true
}

// simplifySubThenAdd recognizes `(x - y) + y` (in either operand order,
// since canonicalization only ever moves constants to the RHS) and
// returns x.
func simplifySubThenAdd(inst *ir.Instruction) (*ir.Value, bool) {
	if v, ok := subAddMatch(inst.LHS(), inst.RHS()); ok {
		return v, true
	}
	return subAddMatch(inst.RHS(), inst.LHS())
}

func subAddMatch(maybeSub, other *ir.Value) (*ir.Value, bool) {
	if maybeSub.Kind != ir.ValueRegister || maybeSub.Def == nil || maybeSub.Def.Opcode != ir.OpSub {
		return nil, false
	}
	if maybeSub.Def.RHS() == other {
		return maybeSub.Def.LHS(), true
	}
	return nil, false
}

// simplifyPhi reports the single distinct value a phi's incoming edges
// agree on, ignoring any incoming edge that refers back to the phi
// itself (a loop-carried self-reference), or false if no such value
// exists.
func simplifyPhi(inst *ir.Instruction) (*ir.Value, bool) {
	var unique *ir.Value
	for _, in := range inst.Incoming() {
		if in.Value == inst.Result {
			continue
		}
		if unique == nil {
			unique = in.Value
		} else if unique != in.Value {
			return nil, false
		}
	}
	if unique == nil {
		return nil, false
	}
	return unique, true
}

// canonicalizeCommutative moves a constant operand to the RHS of
// commutative ops, the canonical form CSE and the rest of InstCombine's
// own patterns assume, reporting whether it swapped.
func canonicalizeCommutative(inst *ir.Instruction) bool {
	if !inst.Opcode.IsCommutative() {
		return false
	}
	lhs, rhs := inst.LHS(), inst.RHS()
	if lhs.Kind == ir.ValueConstant && rhs.Kind != ir.ValueConstant {
		ops := inst.Operands()
		lv, rv := ops[0].Value, ops[1].Value
		ir.ChangeOperandValue(ops[0], rv)
		ir.ChangeOperandValue(ops[1], lv)
		return true
	}
	return false
}

// swapICmpIfNeeded canonicalizes `const icmp reg` into `reg icmp(swapped) const`.
func swapICmpIfNeeded(inst *ir.Instruction) bool {
	lhs, rhs := inst.LHS(), inst.RHS()
	if lhs.Kind != ir.ValueConstant || rhs.Kind == ir.ValueConstant {
		return false
	}
	ops := inst.Operands()
	lv, rv := ops[0].Value, ops[1].Value
	ir.ChangeOperandValue(ops[0], rv)
	ir.ChangeOperandValue(ops[1], lv)
	inst.ICmpCond = inst.ICmpCond.Swapped()
	return true
}

func zeroLike(inst *ir.Instruction) *ir.Value {
	t := inst.Result.Type
	if t.Basic.IsFloat() {
		return ir.ConstFloat(t, 0)
	}
	return ir.ConstInt(t, 0)
}

func oneLike(inst *ir.Instruction) *ir.Value {
	return ir.ConstFloat(inst.Result.Type, 1)
}

func negConst(v *ir.Value) *ir.Value {
	if v.Type.Basic.IsFloat() {
		return ir.ConstFloat(v.Type, -v.FloatVal)
	}
	return ir.ConstInt(v.Type, -v.IntVal)
}

func isConstNegOne(v *ir.Value) bool {
	return v.Kind == ir.ValueConstant && !v.Type.Basic.IsFloat() && v.IntVal == -1
}

func isConstFloatEqual(v *ir.Value, want float64) bool {
	return v.Kind == ir.ValueConstant && v.Type.Basic.IsFloat() && v.FloatVal == want
}

// log2IfPowerOfTwo reports k such that v == 2^k, for v a positive
// integer constant that is an exact power of two greater than one
// (v == 1 is handled by the x*1 identity above).
func log2IfPowerOfTwo(v *ir.Value) (int, bool) {
	if v.Kind != ir.ValueConstant || v.Type.Basic.IsFloat() {
		return 0, false
	}
	n := v.IntVal
	if n <= 1 || n&(n-1) != 0 {
		return 0, false
	}
	shift := 0
	for n > 1 {
		n >>= 1
		shift++
	}
	return shift, true
}

// buildReplacement emits a new instruction via emit and splices it into
// place immediately before inst. The real block can't be used directly
// as a Builder insertion point (it is already terminated, and Builder
// only ever appends), so the new instruction is built at the end of a
// throwaway scratch block, moved into position, and the scratch block
// is discarded — all through the public Builder/MoveInstructionBefore/
// RemoveBlock API.
func buildReplacement(inst *ir.Instruction, emit func(b *ir.Builder) *ir.Value) *ir.Value {
	f := inst.Block.Func
	b := ir.NewBuilder(f.Module)
	b.UseFunction(f)
	scratch := b.CreateBlock("instcombine.scratch")
	b.SetInsertPoint(scratch)
	v := emit(b)
	ir.MoveInstructionBefore(v.Def, inst)
	f.RemoveBlock(scratch)
	return v
}

// replaceWith redirects every use of inst's result to val and erases
// inst, the common tail of every identity rewrite above.
func replaceWith(inst *ir.Instruction, val *ir.Value) bool {
	ir.ReplaceAllUsesWith(inst.Result, val)
	ir.EraseInstruction(inst)
	return true
}
