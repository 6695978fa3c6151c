package transform

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sereinwalker/sysy-ir/internal/ir"
)

// opcodeShape is a flat, acyclic summary of a block's instruction
// opcodes — enough to diff two block shapes with go-cmp without
// recursing into the IR's cyclic use-def pointer graph.
func opcodeShape(blk *ir.BasicBlock) []ir.Opcode {
	insts := blk.Instructions()
	shape := make([]ir.Opcode, len(insts))
	for i, inst := range insts {
		shape[i] = inst.Opcode
	}
	return shape
}

// TestCSEEliminatesRedundantAdd builds two
// dominating, identically-keyed `add a, b` computations in the same
// block. CSE should keep the first and rewrite every use of the second
// to the first's result.
func TestCSEEliminatesRedundantAdd(t *testing.T) {
	m := ir.NewModule("test")
	defer m.Close()
	b := ir.NewBuilder(m)
	f := b.CreateFunction("redundant_add", ir.I32Type, []*ir.Type{ir.I32Type, ir.I32Type}, []string{"a", "b"}, false)
	entry := b.CreateBlock("entry")
	b.SetInsertPoint(entry)

	a, bb := f.Params[0], f.Params[1]
	first := b.EmitAdd(a, bb)
	second := b.EmitAdd(a, bb)
	sum := b.EmitAdd(first, second)
	b.EmitRet(sum)

	changed := CSE{}.Run(f)
	require.True(t, changed)

	insts := entry.Instructions()
	// first add, sum add, ret — the redundant second add is gone.
	require.Len(t, insts, 3)
	want := []ir.Opcode{ir.OpAdd, ir.OpAdd, ir.OpRet}
	if diff := cmp.Diff(want, opcodeShape(entry)); diff != "" {
		t.Errorf("unexpected block shape after CSE (-want +got):\n%s", diff)
	}
	assert.Equal(t, first, insts[1].LHS())
	assert.Equal(t, first, insts[1].RHS())
}

// TestCSERespectsDominanceScope ensures CSE does not merge computations
// across sibling branches that don't dominate each other.
func TestCSERespectsDominanceScope(t *testing.T) {
	m := ir.NewModule("test")
	defer m.Close()
	b := ir.NewBuilder(m)
	f := b.CreateFunction("siblings", ir.I32Type, []*ir.Type{ir.I32Type, ir.I32Type, ir.I1Type}, []string{"a", "b", "cond"}, false)
	entry := b.CreateBlock("entry")
	thenBB := b.CreateBlock("then")
	elseBB := b.CreateBlock("else")

	b.SetInsertPoint(entry)
	b.EmitCondBr(f.Params[2], thenBB, elseBB)

	b.SetInsertPoint(thenBB)
	t1 := b.EmitAdd(f.Params[0], f.Params[1])
	b.EmitRet(t1)

	b.SetInsertPoint(elseBB)
	t2 := b.EmitAdd(f.Params[0], f.Params[1])
	b.EmitRet(t2)

	changed := CSE{}.Run(f)
	assert.False(t, changed, "sibling blocks must not share a CSE scope")
}
