package transform

import "github.com/sereinwalker/sysy-ir/internal/ir"

// cloneInstruction re-emits inst through b at the builder's current
// insertion point, remapping every value operand through remap (values
// absent from remap — constants, globals, arguments, anything defined
// outside the region being cloned — pass through unchanged). Used by
// LoopUnroll (cloning a loop body per iteration) and the Inliner
// (cloning every block of a callee's body into a call site); phis and terminators are handled
// by each caller directly since their remapping needs differ (a phi
// has no single "new value", a terminator's targets are never remapped
// at all here).
func cloneInstruction(b *ir.Builder, inst *ir.Instruction, remap map[*ir.Value]*ir.Value) *ir.Value {
	mv := func(v *ir.Value) *ir.Value {
		if nv, ok := remap[v]; ok {
			return nv
		}
		return v
	}

	switch inst.Opcode {
	case ir.OpAdd:
		return b.EmitAdd(mv(inst.LHS()), mv(inst.RHS()))
	case ir.OpSub:
		return b.EmitSub(mv(inst.LHS()), mv(inst.RHS()))
	case ir.OpMul:
		return b.EmitMul(mv(inst.LHS()), mv(inst.RHS()))
	case ir.OpSDiv:
		return b.EmitSDiv(mv(inst.LHS()), mv(inst.RHS()))
	case ir.OpSRem:
		return b.EmitSRem(mv(inst.LHS()), mv(inst.RHS()))
	case ir.OpFAdd:
		return b.EmitFAdd(mv(inst.LHS()), mv(inst.RHS()))
	case ir.OpFSub:
		return b.EmitFSub(mv(inst.LHS()), mv(inst.RHS()))
	case ir.OpFMul:
		return b.EmitFMul(mv(inst.LHS()), mv(inst.RHS()))
	case ir.OpFDiv:
		return b.EmitFDiv(mv(inst.LHS()), mv(inst.RHS()))
	case ir.OpShl:
		return b.EmitShl(mv(inst.LHS()), mv(inst.RHS()))
	case ir.OpLShr:
		return b.EmitLShr(mv(inst.LHS()), mv(inst.RHS()))
	case ir.OpAShr:
		return b.EmitAShr(mv(inst.LHS()), mv(inst.RHS()))
	case ir.OpAnd:
		return b.EmitAnd(mv(inst.LHS()), mv(inst.RHS()))
	case ir.OpOr:
		return b.EmitOr(mv(inst.LHS()), mv(inst.RHS()))
	case ir.OpXor:
		return b.EmitXor(mv(inst.LHS()), mv(inst.RHS()))
	case ir.OpAlloca:
		return b.EmitAlloca(inst.AllocaType, inst.Result.Name)
	case ir.OpLoad:
		return b.EmitLoad(mv(inst.Pointer()))
	case ir.OpStore:
		b.EmitStore(mv(inst.Pointer()), mv(inst.StoredValue()))
		return nil
	case ir.OpGEP:
		idxs := inst.GEPIndices()
		remapped := make([]*ir.Value, len(idxs))
		for i, idx := range idxs {
			remapped[i] = mv(idx)
		}
		return b.EmitGEP(mv(inst.Pointer()), remapped, inst.Result.Type.Elem, inst.Inbounds)
	case ir.OpICmp:
		return b.EmitICmp(inst.ICmpCond, mv(inst.LHS()), mv(inst.RHS()))
	case ir.OpFCmp:
		return b.EmitFCmp(inst.FCmpCond, mv(inst.LHS()), mv(inst.RHS()))
	case ir.OpCall:
		args := inst.CallArgs()
		remapped := make([]*ir.Value, len(args))
		for i, a := range args {
			remapped[i] = mv(a)
		}
		var resultType *ir.Type
		if inst.Result != nil {
			resultType = inst.Result.Type
		}
		return b.EmitCall(inst.Callee, inst.CalleeName, remapped, resultType)
	case ir.OpSIToFP:
		return b.EmitSIToFP(mv(inst.ConvertedOperand()), inst.DestType)
	case ir.OpFPToSI:
		return b.EmitFPToSI(mv(inst.ConvertedOperand()), inst.DestType)
	case ir.OpZExt:
		return b.EmitZExt(mv(inst.ConvertedOperand()), inst.DestType)
	case ir.OpSExt:
		return b.EmitSExt(mv(inst.ConvertedOperand()), inst.DestType)
	case ir.OpFPExt:
		return b.EmitFPExt(mv(inst.ConvertedOperand()), inst.DestType)
	case ir.OpFPTrunc:
		return b.EmitFPTrunc(mv(inst.ConvertedOperand()), inst.DestType)
	case ir.OpTrunc:
		return b.EmitTrunc(mv(inst.ConvertedOperand()), inst.DestType)
	default:
		return nil
	}
}
