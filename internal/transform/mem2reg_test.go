package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sereinwalker/sysy-ir/internal/ir"
)

// buildStraightLineFixture builds a function that
// allocates a local, stores 42 into it, loads it back, and returns the
// load — Mem2Reg alone (no control flow, so no phi needed) should
// rename the load to the stored constant directly and delete the
// alloca/store/load.
func buildStraightLineFixture(m *ir.Module) *ir.Function {
	b := ir.NewBuilder(m)
	f := b.CreateFunction("straight_line", ir.I32Type, nil, nil, false)
	entry := b.CreateBlock("entry")
	b.SetInsertPoint(entry)

	p := b.EmitAlloca(ir.I32Type, "p")
	b.EmitStore(p, ir.ConstInt(ir.I32Type, 42))
	x := b.EmitLoad(p)
	b.EmitRet(x)

	return f
}

func TestMem2RegStraightLine(t *testing.T) {
	m := ir.NewModule("test")
	defer m.Close()
	f := buildStraightLineFixture(m)

	changed := Mem2Reg{}.Run(f)
	require.True(t, changed, "Mem2Reg should promote the alloca")

	insts := f.Entry.Instructions()
	require.Len(t, insts, 1, "alloca/store/load should all be gone, leaving only ret")
	ret := insts[0]
	assert.Equal(t, ir.OpRet, ret.Opcode)
	retVal := ret.RetValue()
	require.NotNil(t, retVal)
	assert.Equal(t, ir.ValueConstant, retVal.Kind)
	assert.Equal(t, int64(42), retVal.IntVal)
}

func TestMem2RegIgnoresEscapingAlloca(t *testing.T) {
	m := ir.NewModule("test")
	defer m.Close()
	b := ir.NewBuilder(m)
	f := b.CreateFunction("escapes", ir.I32Type, nil, nil, false)
	entry := b.CreateBlock("entry")
	b.SetInsertPoint(entry)

	arr := b.EmitAlloca(ir.ArrayType(ir.I32Type, []ir.Dim{{Static: 4}}), "arr")
	idx := ir.ConstInt(ir.I32Type, 0)
	gep := b.EmitGEP(arr, []*ir.Value{idx}, ir.I32Type, true)
	x := b.EmitLoad(gep)
	b.EmitRet(x)

	changed := Mem2Reg{}.Run(f)
	assert.False(t, changed, "an alloca with a GEP use is not whole-value promotable")
}

func TestMem2RegMergesAtJoinPoint(t *testing.T) {
	m := ir.NewModule("test")
	defer m.Close()
	b := ir.NewBuilder(m)
	f := b.CreateFunction("branchy", ir.I32Type, []*ir.Type{ir.I1Type}, []string{"cond"}, false)
	entry := b.CreateBlock("entry")
	thenBB := b.CreateBlock("then")
	elseBB := b.CreateBlock("else")
	exit := b.CreateBlock("exit")

	b.SetInsertPoint(entry)
	p := b.EmitAlloca(ir.I32Type, "p")
	b.EmitCondBr(f.Params[0], thenBB, elseBB)

	b.SetInsertPoint(thenBB)
	b.EmitStore(p, ir.ConstInt(ir.I32Type, 1))
	b.EmitBr(exit)

	b.SetInsertPoint(elseBB)
	b.EmitStore(p, ir.ConstInt(ir.I32Type, 2))
	b.EmitBr(exit)

	b.SetInsertPoint(exit)
	x := b.EmitLoad(p)
	b.EmitRet(x)

	changed := Mem2Reg{}.Run(f)
	require.True(t, changed)

	phis := exit.Phis()
	require.Len(t, phis, 1, "the join point should gain exactly one phi for p")
	incoming := phis[0].Incoming()
	assert.Len(t, incoming, 2)
}
