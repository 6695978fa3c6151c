package transform

import "github.com/sereinwalker/sysy-ir/internal/ir"

// foldBinary evaluates a binary opcode over two constants, returning
// ok=false when the result is not foldable (integer division/remainder
// by zero, which is undefined behavior and must not be folded away).
func foldBinary(op ir.Opcode, lhs, rhs *ir.Value) (*ir.Value, bool) {
	t := lhs.Type
	if t.Basic.IsFloat() {
		a, b := lhs.FloatVal, rhs.FloatVal
		switch op {
		case ir.OpFAdd:
			return ir.ConstFloat(t, a+b), true
		case ir.OpFSub:
			return ir.ConstFloat(t, a-b), true
		case ir.OpFMul:
			return ir.ConstFloat(t, a*b), true
		case ir.OpFDiv:
			if b == 0 {
				return nil, false
			}
			return ir.ConstFloat(t, a/b), true
		}
		return nil, false
	}

	a, b := lhs.IntVal, rhs.IntVal
	switch op {
	case ir.OpAdd:
		return ir.ConstInt(t, a+b), true
	case ir.OpSub:
		return ir.ConstInt(t, a-b), true
	case ir.OpMul:
		return ir.ConstInt(t, a*b), true
	case ir.OpSDiv:
		if b == 0 {
			return nil, false
		}
		return ir.ConstInt(t, a/b), true
	case ir.OpSRem:
		if b == 0 {
			return nil, false
		}
		return ir.ConstInt(t, a%b), true
	case ir.OpShl:
		return ir.ConstInt(t, a<<uint(b)), true
	case ir.OpLShr:
		return ir.ConstInt(t, int64(uint64(a)>>uint(b))), true
	case ir.OpAShr:
		return ir.ConstInt(t, a>>uint(b)), true
	case ir.OpAnd:
		return ir.ConstInt(t, a&b), true
	case ir.OpOr:
		return ir.ConstInt(t, a|b), true
	case ir.OpXor:
		return ir.ConstInt(t, a^b), true
	}
	return nil, false
}

func foldICmp(cond ir.ICmpCond, a, b int64) bool {
	switch cond {
	case ir.ICmpEQ:
		return a == b
	case ir.ICmpNE:
		return a != b
	case ir.ICmpSLT:
		return a < b
	case ir.ICmpSGT:
		return a > b
	case ir.ICmpSLE:
		return a <= b
	case ir.ICmpSGE:
		return a >= b
	}
	return false
}

func foldFCmp(cond ir.FCmpCond, a, b float64) bool {
	switch cond {
	case ir.FCmpOEQ:
		return a == b
	case ir.FCmpONE:
		return a != b
	case ir.FCmpOLT:
		return a < b
	case ir.FCmpOGT:
		return a > b
	case ir.FCmpOLE:
		return a <= b
	case ir.FCmpOGE:
		return a >= b
	}
	return false
}

// foldConvert evaluates a conversion opcode over a constant source.
func foldConvert(op ir.Opcode, src *ir.Value, dest *ir.Type) *ir.Value {
	switch op {
	case ir.OpSIToFP:
		return ir.ConstFloat(dest, float64(src.IntVal))
	case ir.OpFPToSI:
		return ir.ConstInt(dest, int64(src.FloatVal))
	case ir.OpFPExt, ir.OpFPTrunc:
		return ir.ConstFloat(dest, src.FloatVal)
	default: // ZExt, SExt, Trunc
		return ir.ConstInt(dest, src.IntVal)
	}
}
