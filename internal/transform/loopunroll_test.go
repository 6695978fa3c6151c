package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sereinwalker/sysy-ir/internal/ir"
)

// buildCountedStoreLoop builds a single-block counted loop that stores
// a constant through arr[i] for i in [0, 3), with nothing loop-carried
// escaping the header — the shape LoopUnroll's safety check requires.
func buildCountedStoreLoop(m *ir.Module) *ir.Function {
	b := ir.NewBuilder(m)
	ptrType := ir.PointerType(ir.I32Type)
	f := b.CreateFunction("zero_three", ir.VoidType, []*ir.Type{ptrType}, []string{"arr"}, false)
	arr := f.Params[0]

	entry := b.CreateBlock("entry")
	header := b.CreateBlock("header")
	exit := b.CreateBlock("exit")

	b.SetInsertPoint(entry)
	b.EmitBr(header)

	b.SetInsertPoint(header)
	iPhi := b.EmitPhi(ir.I32Type)
	ir.AddIncoming(iPhi, ir.ConstInt(ir.I32Type, 0), entry)

	elemPtr := b.EmitGEP(arr, []*ir.Value{iPhi.Result}, ir.I32Type, true)
	b.EmitStore(elemPtr, ir.ConstInt(ir.I32Type, 0))
	iNext := b.EmitAdd(iPhi.Result, ir.ConstInt(ir.I32Type, 1))
	ir.AddIncoming(iPhi, iNext, header)
	cond := b.EmitICmp(ir.ICmpSLT, iNext, ir.ConstInt(ir.I32Type, 3))
	b.EmitCondBr(cond, header, exit)

	b.SetInsertPoint(exit)
	b.EmitRet(nil)

	return f
}

func TestLoopUnrollFullyUnrollsExactTripCount(t *testing.T) {
	m := ir.NewModule("test")
	defer m.Close()
	f := buildCountedStoreLoop(m)

	changed := LoopUnroll{}.Run(f)
	require.True(t, changed, "a 3-iteration loop with step 1 is within maxTripCount")

	for _, blk := range f.Blocks() {
		assert.NotEqual(t, "header", blk.Label, "the loop header should have been deleted after unrolling")
	}

	storeCount := 0
	for _, blk := range f.Blocks() {
		for _, inst := range blk.Instructions() {
			if inst.Opcode == ir.OpStore {
				storeCount++
			}
		}
	}
	assert.Equal(t, 3, storeCount, "the store should appear once per unrolled iteration")
}

func TestLoopUnrollSkipsLoopsOutsideTripBound(t *testing.T) {
	m := ir.NewModule("test")
	defer m.Close()
	b := ir.NewBuilder(m)
	ptrType := ir.PointerType(ir.I32Type)
	f := b.CreateFunction("huge_loop", ir.VoidType, []*ir.Type{ptrType}, []string{"arr"}, false)
	arr := f.Params[0]

	entry := b.CreateBlock("entry")
	header := b.CreateBlock("header")
	exit := b.CreateBlock("exit")

	b.SetInsertPoint(entry)
	b.EmitBr(header)

	b.SetInsertPoint(header)
	iPhi := b.EmitPhi(ir.I32Type)
	ir.AddIncoming(iPhi, ir.ConstInt(ir.I32Type, 0), entry)
	elemPtr := b.EmitGEP(arr, []*ir.Value{iPhi.Result}, ir.I32Type, true)
	b.EmitStore(elemPtr, ir.ConstInt(ir.I32Type, 0))
	iNext := b.EmitAdd(iPhi.Result, ir.ConstInt(ir.I32Type, 1))
	ir.AddIncoming(iPhi, iNext, header)
	cond := b.EmitICmp(ir.ICmpSLT, iNext, ir.ConstInt(ir.I32Type, 1000))
	b.EmitCondBr(cond, header, exit)

	b.SetInsertPoint(exit)
	b.EmitRet(nil)

	changed := LoopUnroll{}.Run(f)
	assert.False(t, changed, "a 1000-iteration loop exceeds maxTripCount and must be left alone")
}
