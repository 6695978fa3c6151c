package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sereinwalker/sysy-ir/internal/ir"
)

func TestInstCombineFoldsAlgebraicIdentities(t *testing.T) {
	m := ir.NewModule("test")
	defer m.Close()
	b := ir.NewBuilder(m)
	f := b.CreateFunction("identities", ir.I32Type, []*ir.Type{ir.I32Type}, []string{"x"}, false)
	x := f.Params[0]
	entry := b.CreateBlock("entry")
	b.SetInsertPoint(entry)

	addZero := b.EmitAdd(x, ir.ConstInt(ir.I32Type, 0))
	mulOne := b.EmitMul(addZero, ir.ConstInt(ir.I32Type, 1))
	b.EmitRet(mulOne)

	changed := InstCombine{}.Run(f)
	require.True(t, changed)

	ret := entry.Terminator()
	require.Equal(t, ir.OpRet, ret.Opcode)
	assert.Equal(t, x, ret.RetValue(), "x+0 then *1 should both fold away to x")
}

func TestADCEDeletesDeadPureComputation(t *testing.T) {
	m := ir.NewModule("test")
	defer m.Close()
	b := ir.NewBuilder(m)
	f := b.CreateFunction("dead_code", ir.I32Type, []*ir.Type{ir.I32Type, ir.I32Type}, []string{"a", "b"}, false)
	a, bb := f.Params[0], f.Params[1]
	entry := b.CreateBlock("entry")
	b.SetInsertPoint(entry)

	dead := b.EmitAdd(a, bb)
	_ = dead
	b.EmitRet(a)

	changed := ADCE{}.Run(f)
	require.True(t, changed)

	insts := entry.Instructions()
	require.Len(t, insts, 1, "the unused add should be swept away, leaving only ret")
	assert.Equal(t, ir.OpRet, insts[0].Opcode)
}

func TestADCEKeepsSideEffectingStore(t *testing.T) {
	m := ir.NewModule("test")
	defer m.Close()
	b := ir.NewBuilder(m)
	ptrType := ir.PointerType(ir.I32Type)
	f := b.CreateFunction("keep_store", ir.VoidType, []*ir.Type{ptrType}, []string{"p"}, false)
	entry := b.CreateBlock("entry")
	b.SetInsertPoint(entry)
	b.EmitStore(f.Params[0], ir.ConstInt(ir.I32Type, 5))
	b.EmitRet(nil)

	changed := ADCE{}.Run(f)
	assert.False(t, changed, "a store is a live root and must survive")
	assert.Len(t, entry.Instructions(), 2)
}
