package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sereinwalker/sysy-ir/internal/ir"
)

// buildInlineFixture builds a small callee with two
// returns on disjoint paths, called once from another function. Inlining
// it must produce a two-entry PHI merging both return values at the
// call's continuation block.
func buildInlineFixture(m *ir.Module) (caller, callee *ir.Function) {
	b := ir.NewBuilder(m)

	callee = b.CreateFunction("max2", ir.I32Type, []*ir.Type{ir.I32Type, ir.I32Type}, []string{"a", "b"}, false)
	a, bb := callee.Params[0], callee.Params[1]
	entry := b.CreateBlock("entry")
	tBlk := b.CreateBlock("t")
	fBlk := b.CreateBlock("f")

	b.SetInsertPoint(entry)
	cond := b.EmitICmp(ir.ICmpSGT, a, bb)
	b.EmitCondBr(cond, tBlk, fBlk)

	b.SetInsertPoint(tBlk)
	b.EmitRet(a)

	b.SetInsertPoint(fBlk)
	b.EmitRet(bb)

	caller = b.CreateFunction("caller", ir.I32Type, []*ir.Type{ir.I32Type, ir.I32Type}, []string{"x", "y"}, false)
	callerEntry := b.CreateBlock("entry")
	b.SetInsertPoint(callerEntry)
	r := b.EmitCall(callee, "max2", []*ir.Value{caller.Params[0], caller.Params[1]}, ir.I32Type)
	b.EmitRet(r)

	return caller, callee
}

func TestInlinerMergesReturnValues(t *testing.T) {
	m := ir.NewModule("test")
	defer m.Close()
	caller, callee := buildInlineFixture(m)
	_ = callee

	changed := Inliner{}.RunModule(m)
	require.True(t, changed)

	var mergePhi *ir.Instruction
	for _, blk := range caller.Blocks() {
		for _, phi := range blk.Phis() {
			mergePhi = phi
		}
	}
	require.NotNil(t, mergePhi, "expected a merge phi for the two callee return values")
	assert.Len(t, mergePhi.Incoming(), 2)

	for _, blk := range caller.Blocks() {
		for _, inst := range blk.Instructions() {
			if inst.Opcode == ir.OpCall {
				t.Fatalf("the call to max2 should have been inlined away, found %v in %s", inst.Opcode, blk.Label)
			}
		}
	}

	// The caller's final ret should read the merge phi's result directly
	// rather than a pending call result.
	var foundRetOfPhi bool
	for _, blk := range caller.Blocks() {
		term := blk.Terminator()
		if term != nil && term.Opcode == ir.OpRet && term.RetValue() == mergePhi.Result {
			foundRetOfPhi = true
		}
	}
	assert.True(t, foundRetOfPhi, "the caller should return the merged value")
}
