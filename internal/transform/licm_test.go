package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sereinwalker/sysy-ir/internal/ir"
)

// TestLICMHoistsInvariantComputation builds a
// single-block counted loop whose body computes `a * b` (invariant —
// neither operand changes across iterations) alongside the induction
// variable update. LICM should move the multiply out of the header into
// the preheader (here the entry block, whose unconditional branch is the
// header's only entry edge), leaving only the IV update and the
// comparison in the loop body.
func TestLICMHoistsInvariantComputation(t *testing.T) {
	m := ir.NewModule("test")
	defer m.Close()
	b := ir.NewBuilder(m)
	f := b.CreateFunction("loop_invariant", ir.I32Type,
		[]*ir.Type{ir.I32Type, ir.I32Type, ir.I32Type},
		[]string{"a", "bb", "n"}, false)
	a, bb, n := f.Params[0], f.Params[1], f.Params[2]

	entry := b.CreateBlock("entry")
	header := b.CreateBlock("header")
	exit := b.CreateBlock("exit")

	b.SetInsertPoint(entry)
	b.EmitBr(header)

	b.SetInsertPoint(header)
	iPhi := b.EmitPhi(ir.I32Type)
	ir.AddIncoming(iPhi, ir.ConstInt(ir.I32Type, 0), entry)

	invariant := b.EmitMul(a, bb)
	iNext := b.EmitAdd(iPhi.Result, ir.ConstInt(ir.I32Type, 1))
	ir.AddIncoming(iPhi, iNext, header)
	cond := b.EmitICmp(ir.ICmpSLT, iNext, n)
	b.EmitCondBr(cond, header, exit)

	b.SetInsertPoint(exit)
	b.EmitRet(invariant)

	changed := LICM{}.Run(f)
	require.True(t, changed, "LICM should hoist the invariant multiply")

	// The header should no longer contain the multiply.
	for _, inst := range header.Instructions() {
		assert.NotEqual(t, ir.OpMul, inst.Opcode, "mul should have been hoisted out of the header")
	}

	var preheader *ir.BasicBlock
	for _, blk := range f.Blocks() {
		for _, inst := range blk.Instructions() {
			if inst.Opcode == ir.OpMul {
				preheader = blk
			}
		}
	}
	require.NotNil(t, preheader, "the hoisted mul must live somewhere")
	assert.NotEqual(t, header, preheader)
}
