package ir

// Builder is a stateful cursor over a Module: it tracks the current
// function and insertion block and exposes one factory method per
// opcode, mirroring LLVM's IRBuilder pattern. Emit* methods append to
// the end of the current block, except EmitAlloca, which places its
// instruction at the top of the function's entry block. Value-producing
// factories return the instruction's Result value; EmitStore, EmitPhi
// and the terminator factories return the *Instruction itself.
type Builder struct {
	module  *Module
	fn      *Function
	block   *BasicBlock
	nameSeq int
}

// NewBuilder creates a builder over module m, with no current function
// or block.
func NewBuilder(m *Module) *Builder { return &Builder{module: m} }

// Module returns the module the builder is populating.
func (b *Builder) Module() *Module { return b.module }

// Function returns the function currently being built, or nil.
func (b *Builder) Function() *Function { return b.fn }

// Block returns the current insertion block, or nil.
func (b *Builder) Block() *BasicBlock { return b.block }

// intern copies s into the module's arena, using the arena for
// interning names rather than per-node allocation.
func (b *Builder) intern(s string) string { return b.module.Arena().DupString(s) }

func (b *Builder) freshName(prefix string) string {
	b.nameSeq++
	return b.intern(prefixf(prefix, b.nameSeq))
}

func prefixf(prefix string, n int) string {
	const digits = "0123456789"
	if n == 0 {
		return prefix + "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = digits[n%10]
		n /= 10
	}
	return prefix + string(buf[i:])
}

// CreateFunction declares a function with a body and makes it current.
// paramNames may be shorter than paramTypes or contain empty strings;
// missing names are synthesized.
func (b *Builder) CreateFunction(name string, retType *Type, paramTypes []*Type, paramNames []string, variadic bool) *Function {
	f := &Function{Name: b.intern(name), ReturnType: retType, Variadic: variadic}
	f.Params = make([]*Value, len(paramTypes))
	for i, pt := range paramTypes {
		pname := ""
		if i < len(paramNames) {
			pname = paramNames[i]
		}
		if pname == "" {
			pname = prefixf("arg", i)
		}
		f.Params[i] = &Value{Type: pt, Kind: ValueArgument, Name: b.intern(pname), ArgIndex: i, ArgOf: f}
	}
	b.module.addFunction(f)
	b.fn = f
	b.block = nil
	return f
}

// DeclareFunction registers an external function with no body (e.g. a
// SysY runtime builtin like getint/putint).
func (b *Builder) DeclareFunction(name string, retType *Type, paramTypes []*Type, variadic bool) *Function {
	f := &Function{Name: b.intern(name), ReturnType: retType, Variadic: variadic, IsDeclaration: true}
	f.Params = make([]*Value, len(paramTypes))
	for i, pt := range paramTypes {
		f.Params[i] = &Value{Type: pt, Kind: ValueArgument, Name: prefixf("arg", i), ArgIndex: i, ArgOf: f}
	}
	b.module.addFunction(f)
	return f
}

// UseFunction binds the builder to an already-existing function, for
// transforms (LICM's preheader insertion, Mem2Reg's phi insertion) that
// need to emit into a function they did not create.
func (b *Builder) UseFunction(f *Function) {
	b.fn = f
	b.block = nil
}

// CreateBlock appends a new block to the current function's layout
// order. It does not move the insertion point; call SetInsertPoint to
// start emitting into it.
func (b *Builder) CreateBlock(label string) *BasicBlock {
	requireInvariant(b.fn != nil, "ir: CreateBlock with no current function")
	return b.fn.appendBlock(b.intern(label))
}

// SetInsertPoint moves the cursor to the end of blk.
func (b *Builder) SetInsertPoint(blk *BasicBlock) {
	requireInvariant(blk.Func == b.fn, "ir: SetInsertPoint block belongs to a different function")
	b.block = blk
}

func (b *Builder) emit(opcode Opcode, resultType *Type) *Instruction {
	requireInvariant(b.block != nil, "ir: emit with no current insertion block")
	requireInvariant(!b.block.IsTerminated(), "ir: emit into already-terminated block %s", b.block.Label)
	inst := &Instruction{Opcode: opcode, ID: b.fn.nextInstID}
	b.fn.nextInstID++
	if resultType != nil {
		inst.Result = &Value{Type: resultType, Kind: ValueRegister, Name: b.freshName("%t"), Def: inst}
	}
	b.block.insertBefore(nil, inst)
	return inst
}

func (b *Builder) binOp(op Opcode, lhs, rhs *Value, resultType *Type) *Value {
	inst := b.emit(op, resultType)
	addValueOperand(inst, lhs)
	addValueOperand(inst, rhs)
	return inst.Result
}

func (b *Builder) EmitAdd(lhs, rhs *Value) *Value  { return b.binOp(OpAdd, lhs, rhs, lhs.Type) }
func (b *Builder) EmitSub(lhs, rhs *Value) *Value  { return b.binOp(OpSub, lhs, rhs, lhs.Type) }
func (b *Builder) EmitMul(lhs, rhs *Value) *Value  { return b.binOp(OpMul, lhs, rhs, lhs.Type) }
func (b *Builder) EmitSDiv(lhs, rhs *Value) *Value { return b.binOp(OpSDiv, lhs, rhs, lhs.Type) }
func (b *Builder) EmitSRem(lhs, rhs *Value) *Value { return b.binOp(OpSRem, lhs, rhs, lhs.Type) }

func (b *Builder) EmitFAdd(lhs, rhs *Value) *Value { return b.binOp(OpFAdd, lhs, rhs, lhs.Type) }
func (b *Builder) EmitFSub(lhs, rhs *Value) *Value { return b.binOp(OpFSub, lhs, rhs, lhs.Type) }
func (b *Builder) EmitFMul(lhs, rhs *Value) *Value { return b.binOp(OpFMul, lhs, rhs, lhs.Type) }
func (b *Builder) EmitFDiv(lhs, rhs *Value) *Value { return b.binOp(OpFDiv, lhs, rhs, lhs.Type) }

func (b *Builder) EmitShl(lhs, rhs *Value) *Value  { return b.binOp(OpShl, lhs, rhs, lhs.Type) }
func (b *Builder) EmitLShr(lhs, rhs *Value) *Value { return b.binOp(OpLShr, lhs, rhs, lhs.Type) }
func (b *Builder) EmitAShr(lhs, rhs *Value) *Value { return b.binOp(OpAShr, lhs, rhs, lhs.Type) }
func (b *Builder) EmitAnd(lhs, rhs *Value) *Value  { return b.binOp(OpAnd, lhs, rhs, lhs.Type) }
func (b *Builder) EmitOr(lhs, rhs *Value) *Value   { return b.binOp(OpOr, lhs, rhs, lhs.Type) }
func (b *Builder) EmitXor(lhs, rhs *Value) *Value  { return b.binOp(OpXor, lhs, rhs, lhs.Type) }

// EmitAlloca reserves stack storage of type t and returns a pointer to
// it. Every alloca is placed at the top of the function's entry block,
// after any allocas already there and ahead of the current insertion
// cursor — allocas never interleave with the rest of the body, the
// layout Mem2Reg/SROA rely on. The instruction itself is the canonical
// handle those two passes operate on.
func (b *Builder) EmitAlloca(t *Type, name string) *Value {
	requireInvariant(b.fn != nil, "ir: EmitAlloca with no current function")
	entry := b.fn.Entry
	requireInvariant(entry != nil, "ir: EmitAlloca before the entry block exists")
	inst := &Instruction{Opcode: OpAlloca, ID: b.fn.nextInstID}
	b.fn.nextInstID++
	inst.Result = &Value{Type: PointerType(t), Kind: ValueRegister, Name: b.freshName("%t"), Def: inst}
	inst.AllocaType = t
	inst.Align = t.Align()
	if name != "" {
		inst.Result.Name = b.intern(name)
	}
	entry.insertAfterAllocas(inst)
	return inst.Result
}

// EmitLoad reads through ptr, whose type must be Pointer(elem).
func (b *Builder) EmitLoad(ptr *Value) *Value {
	requireInvariant(ptr.Type.Tag == TagPointer, "ir: EmitLoad on non-pointer type %s", ptr.Type)
	inst := b.emit(OpLoad, ptr.Type.Elem)
	addValueOperand(inst, ptr)
	return inst.Result
}

// EmitStore writes val through ptr. Void instruction.
func (b *Builder) EmitStore(ptr, val *Value) *Instruction {
	requireInvariant(ptr.Type.Tag == TagPointer, "ir: EmitStore on non-pointer type %s", ptr.Type)
	inst := b.emit(OpStore, nil)
	addValueOperand(inst, ptr)
	addValueOperand(inst, val)
	return inst
}

// EmitGEP computes a pointer to one element/field of the aggregate
// referenced by ptr, descending one index per entry in indices: the
// index list mirrors source-level subscripting, one index per array
// dimension consumed.
func (b *Builder) EmitGEP(ptr *Value, indices []*Value, resultElem *Type, inbounds bool) *Value {
	requireInvariant(ptr.Type.Tag == TagPointer, "ir: EmitGEP on non-pointer type %s", ptr.Type)
	inst := b.emit(OpGEP, PointerType(resultElem))
	inst.Inbounds = inbounds
	addValueOperand(inst, ptr)
	for _, idx := range indices {
		addValueOperand(inst, idx)
	}
	return inst.Result
}

// EmitICmp compares two integer operands and produces an i1.
func (b *Builder) EmitICmp(cond ICmpCond, lhs, rhs *Value) *Value {
	inst := b.emit(OpICmp, I1Type)
	inst.ICmpCond = cond
	addValueOperand(inst, lhs)
	addValueOperand(inst, rhs)
	return inst.Result
}

// EmitFCmp compares two floating-point operands and produces an i1.
func (b *Builder) EmitFCmp(cond FCmpCond, lhs, rhs *Value) *Value {
	inst := b.emit(OpFCmp, I1Type)
	inst.FCmpCond = cond
	addValueOperand(inst, lhs)
	addValueOperand(inst, rhs)
	return inst.Result
}

// EmitPhi creates a phi with no incoming edges; use AddIncoming to
// populate it. Phis must be created before any non-phi instruction in
// the block; callers building phis after the fact (Mem2Reg)
// should use InsertPhiAtBlockStart instead.
func (b *Builder) EmitPhi(t *Type) *Instruction {
	return b.emit(OpPhi, t)
}

// InsertPhiAtBlockStart creates a phi and splices it after the block's
// existing leading phis, for use by Mem2Reg when inserting phis into
// blocks that already contain other instructions.
func (b *Builder) InsertPhiAtBlockStart(blk *BasicBlock, t *Type, name string) *Instruction {
	inst := &Instruction{Opcode: OpPhi, ID: blk.Func.nextInstID}
	blk.Func.nextInstID++
	inst.Result = &Value{Type: t, Kind: ValueRegister, Name: b.intern(name), Def: inst}
	blk.insertAfterPhis(inst)
	return inst
}

// AddIncoming appends one (value, predecessor) pair to a phi.
func AddIncoming(phi *Instruction, val *Value, pred *BasicBlock) {
	requireInvariant(phi.Opcode == OpPhi, "ir: AddIncoming on non-phi %s", phi.Opcode)
	addValueOperand(phi, val)
	addBlockOperand(phi, pred)
}

// EmitCall emits a direct call to callee with args, or an indirect/named
// external call when callee is nil (CalleeName still records the source
// name for printing and for the inliner's call-site lookup).
func (b *Builder) EmitCall(callee *Function, calleeName string, args []*Value, resultType *Type) *Value {
	inst := b.emit(OpCall, resultType)
	inst.Callee = callee
	inst.CalleeName = calleeName
	for _, a := range args {
		addValueOperand(inst, a)
	}
	return inst.Result
}

func (b *Builder) convert(op Opcode, src *Value, dest *Type) *Value {
	inst := b.emit(op, dest)
	inst.DestType = dest
	addValueOperand(inst, src)
	return inst.Result
}

func (b *Builder) EmitSIToFP(src *Value, dest *Type) *Value  { return b.convert(OpSIToFP, src, dest) }
func (b *Builder) EmitFPToSI(src *Value, dest *Type) *Value  { return b.convert(OpFPToSI, src, dest) }
func (b *Builder) EmitZExt(src *Value, dest *Type) *Value    { return b.convert(OpZExt, src, dest) }
func (b *Builder) EmitSExt(src *Value, dest *Type) *Value    { return b.convert(OpSExt, src, dest) }
func (b *Builder) EmitFPExt(src *Value, dest *Type) *Value   { return b.convert(OpFPExt, src, dest) }
func (b *Builder) EmitFPTrunc(src *Value, dest *Type) *Value { return b.convert(OpFPTrunc, src, dest) }
func (b *Builder) EmitTrunc(src *Value, dest *Type) *Value   { return b.convert(OpTrunc, src, dest) }

// EmitRet terminates the current block returning val (nil for `ret
// void`).
func (b *Builder) EmitRet(val *Value) *Instruction {
	inst := b.emit(OpRet, nil)
	if val != nil {
		addValueOperand(inst, val)
	}
	return inst
}

// EmitBr terminates the current block with an unconditional branch.
func (b *Builder) EmitBr(target *BasicBlock) *Instruction {
	inst := b.emit(OpBr, nil)
	addBlockOperand(inst, target)
	return inst
}

// EmitCondBr terminates the current block with a conditional branch.
func (b *Builder) EmitCondBr(cond *Value, whenTrue, whenFalse *BasicBlock) *Instruction {
	inst := b.emit(OpCondBr, nil)
	addValueOperand(inst, cond)
	addBlockOperand(inst, whenTrue)
	addBlockOperand(inst, whenFalse)
	return inst
}

// EmitShortCircuitAnd lowers SysY's `&&` the way the reference frontend
// does (original_source ir_generator.c: gen_logical_and): evaluate lhs,
// branch to a second block that evaluates rhs only when lhs is true, and
// merge with a phi seeded false on the short-circuit path. genRHS is
// invoked with the builder positioned at the start of the new rhs block
// and must leave the builder's current block terminated-free, returning
// the i1 value to merge.
func (b *Builder) EmitShortCircuitAnd(lhs *Value, genRHS func(b *Builder) *Value) *Value {
	rhsBlock := b.CreateBlock("land.rhs")
	mergeBlock := b.CreateBlock("land.end")

	falseVal := ConstBool(false)
	entryBlock := b.block
	b.EmitCondBr(lhs, rhsBlock, mergeBlock)

	b.SetInsertPoint(rhsBlock)
	rhsVal := genRHS(b)
	rhsEndBlock := b.block
	b.EmitBr(mergeBlock)

	b.SetInsertPoint(mergeBlock)
	phi := b.EmitPhi(I1Type)
	AddIncoming(phi, falseVal, entryBlock)
	AddIncoming(phi, rhsVal, rhsEndBlock)
	return phi.Result
}

// EmitShortCircuitOr lowers SysY's `||` analogously: rhs is evaluated
// only when lhs is false, and the short-circuit path merges true.
func (b *Builder) EmitShortCircuitOr(lhs *Value, genRHS func(b *Builder) *Value) *Value {
	rhsBlock := b.CreateBlock("lor.rhs")
	mergeBlock := b.CreateBlock("lor.end")

	trueVal := ConstBool(true)
	entryBlock := b.block
	b.EmitCondBr(lhs, mergeBlock, rhsBlock)

	b.SetInsertPoint(rhsBlock)
	rhsVal := genRHS(b)
	rhsEndBlock := b.block
	b.EmitBr(mergeBlock)

	b.SetInsertPoint(mergeBlock)
	phi := b.EmitPhi(I1Type)
	AddIncoming(phi, trueVal, entryBlock)
	AddIncoming(phi, rhsVal, rhsEndBlock)
	return phi.Result
}
