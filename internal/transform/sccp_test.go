package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sereinwalker/sysy-ir/internal/ir"
)

// TestSCCPFoldsConstantCondition builds a function where `icmp eq 3,
// 3` is always true, so SCCP should fold the comparison to a constant
// and rewrite the cond_br's condition operand to that literal, leaving
// SimplifyCFG free to delete the now-unreachable else arm (L2).
func TestSCCPFoldsConstantCondition(t *testing.T) {
	m := ir.NewModule("test")
	defer m.Close()
	b := ir.NewBuilder(m)
	f := b.CreateFunction("const_branch", ir.I32Type, nil, nil, false)

	entry := b.CreateBlock("entry")
	l1 := b.CreateBlock("l1")
	l2 := b.CreateBlock("l2")

	b.SetInsertPoint(entry)
	three := ir.ConstInt(ir.I32Type, 3)
	cond := b.EmitICmp(ir.ICmpEQ, three, three)
	b.EmitCondBr(cond, l1, l2)

	b.SetInsertPoint(l1)
	b.EmitRet(ir.ConstInt(ir.I32Type, 1))

	b.SetInsertPoint(l2)
	b.EmitRet(ir.ConstInt(ir.I32Type, 2))

	changed := SCCP{}.Run(f)
	require.True(t, changed, "SCCP should fold the always-true comparison")

	term := entry.Terminator()
	require.Equal(t, ir.OpCondBr, term.Opcode)
	foldedCond := term.CondBrCondition()
	require.Equal(t, ir.ValueConstant, foldedCond.Kind)
	assert.Equal(t, int64(1), foldedCond.IntVal)

	// SimplifyCFG should then turn this into a plain branch to l1, delete
	// l2 entirely, and merge l1 (whose only predecessor is now entry)
	// into entry, leaving entry ending in l1's `ret 1`.
	changed = SimplifyCFG{}.Run(f)
	require.True(t, changed)

	term = entry.Terminator()
	require.Equal(t, ir.OpRet, term.Opcode)
	assert.Equal(t, int64(1), term.RetValue().IntVal)

	for _, blk := range f.Blocks() {
		assert.NotEqual(t, "l2", blk.Label, "the unreachable else arm should have been removed")
	}
}
