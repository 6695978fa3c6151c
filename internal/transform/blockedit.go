package transform

import "github.com/sereinwalker/sysy-ir/internal/ir"

// reopenBlock removes blk's terminator, points b's cursor at blk, and
// returns a closure that re-appends an equivalent terminator once the
// caller has emitted whatever instructions it needed ahead of it. ir.Builder only emits at
// the end of an untermined block, so inserting new non-terminator
// instructions into an already-terminated block (IndVarSimplify's latch
// increment, LoopUnroll's cloned body) goes through this helper instead
// of a direct "insert before" primitive.
func reopenBlock(b *ir.Builder, blk *ir.BasicBlock) func() {
	term := blk.Terminator()
	b.SetInsertPoint(blk)
	switch term.Opcode {
	case ir.OpBr:
		target := term.BrTarget()
		ir.EraseInstruction(term)
		return func() {
			b.SetInsertPoint(blk)
			b.EmitBr(target)
		}
	case ir.OpCondBr:
		cond, t1, t2 := term.CondBrCondition(), term.CondBrTrue(), term.CondBrFalse()
		ir.EraseInstruction(term)
		return func() {
			b.SetInsertPoint(blk)
			b.EmitCondBr(cond, t1, t2)
		}
	default: // ret
		val := term.RetValue()
		ir.EraseInstruction(term)
		return func() {
			b.SetInsertPoint(blk)
			b.EmitRet(val)
		}
	}
}
