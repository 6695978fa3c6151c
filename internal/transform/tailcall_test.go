package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sereinwalker/sysy-ir/internal/ir"
)

// buildTailRecursiveFixture builds an accumulator-
// style factorial, `fact_acc(n, acc)`, whose recursive call site is in
// tail position (the call's result is immediately returned).
func buildTailRecursiveFixture(m *ir.Module) *ir.Function {
	b := ir.NewBuilder(m)
	f := b.CreateFunction("fact_acc", ir.I32Type,
		[]*ir.Type{ir.I32Type, ir.I32Type}, []string{"n", "acc"}, false)
	n, acc := f.Params[0], f.Params[1]

	entry := b.CreateBlock("entry")
	base := b.CreateBlock("base")
	rec := b.CreateBlock("rec")

	b.SetInsertPoint(entry)
	cond := b.EmitICmp(ir.ICmpSLE, n, ir.ConstInt(ir.I32Type, 1))
	b.EmitCondBr(cond, base, rec)

	b.SetInsertPoint(base)
	b.EmitRet(acc)

	b.SetInsertPoint(rec)
	n1 := b.EmitSub(n, ir.ConstInt(ir.I32Type, 1))
	acc1 := b.EmitMul(acc, n)
	r := b.EmitCall(f, "fact_acc", []*ir.Value{n1, acc1}, ir.I32Type)
	b.EmitRet(r)

	return f
}

func TestTailCallElimFactorialAccumulator(t *testing.T) {
	m := ir.NewModule("test")
	defer m.Close()
	f := buildTailRecursiveFixture(m)

	changed := TailCallElim{}.Run(f)
	require.True(t, changed, "the accumulator-style recursive call is in tail position")

	// The original entry becomes a trivial jump into the new loop header,
	// preserving the "entry has zero predecessors" invariant.
	entryInsts := f.Entry.Instructions()
	require.Len(t, entryInsts, 1)
	assert.Equal(t, ir.OpBr, entryInsts[0].Opcode)

	var loopEntry *ir.BasicBlock
	for _, blk := range f.Blocks() {
		if blk.Label == "tailrecur.loop" {
			loopEntry = blk
		}
	}
	require.NotNil(t, loopEntry, "expected a new tailrecur.loop block")

	phis := loopEntry.Phis()
	require.Len(t, phis, 2, "one phi per parameter")

	// No more self-recursive call instructions should remain anywhere.
	for _, blk := range f.Blocks() {
		for _, inst := range blk.Instructions() {
			if inst.Opcode == ir.OpCall {
				assert.NotEqual(t, f, inst.Callee, "the tail call should have been eliminated")
			}
		}
	}

	// The "rec" block should now end in a branch back to the loop header.
	var recBlock *ir.BasicBlock
	for _, blk := range f.Blocks() {
		if blk.Label == "rec" {
			recBlock = blk
		}
	}
	require.NotNil(t, recBlock)
	term := recBlock.Terminator()
	require.Equal(t, ir.OpBr, term.Opcode)
	assert.Equal(t, loopEntry, term.BrTarget())
}
