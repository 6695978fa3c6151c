package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sereinwalker/sysy-ir/internal/ir"
)

// TestSROASplitsConstantIndexedArray builds a 2-element i32 array
// alloca accessed only through constant-index GEPs (store into [1],
// load from [0]) — the shape SROA promotes into two scalar allocas.
func TestSROASplitsConstantIndexedArray(t *testing.T) {
	m := ir.NewModule("test")
	defer m.Close()
	b := ir.NewBuilder(m)
	arrType := ir.ArrayType(ir.I32Type, []ir.Dim{{Static: 2}})
	f := b.CreateFunction("split_me", ir.I32Type, nil, nil, false)

	entry := b.CreateBlock("entry")
	b.SetInsertPoint(entry)
	arr := b.EmitAlloca(arrType, "arr")

	elem1 := b.EmitGEP(arr, []*ir.Value{ir.ConstInt(ir.I32Type, 1)}, ir.I32Type, true)
	b.EmitStore(elem1, ir.ConstInt(ir.I32Type, 7))
	elem0 := b.EmitGEP(arr, []*ir.Value{ir.ConstInt(ir.I32Type, 0)}, ir.I32Type, true)
	loaded := b.EmitLoad(elem0)
	b.EmitRet(loaded)

	changed := SROA{}.Run(f)
	require.True(t, changed, "an array with only constant-index GEP accesses should split")

	allocaCount := 0
	gepCount := 0
	for _, inst := range entry.Instructions() {
		switch inst.Opcode {
		case ir.OpAlloca:
			allocaCount++
			assert.NotEqual(t, ir.TagArray, inst.AllocaType.Tag, "split allocas must be scalar, not array")
		case ir.OpGEP:
			gepCount++
		}
	}
	assert.Equal(t, 2, allocaCount, "a 2-element array should split into 2 scalar allocas")
	assert.Equal(t, 0, gepCount, "every GEP into the array should have been rewritten away")
}

// TestSROALeavesDynamicIndexAlone ensures an array reached through a
// non-constant GEP index is left untouched, since its flattened offset
// cannot be resolved at compile time.
func TestSROALeavesDynamicIndexAlone(t *testing.T) {
	m := ir.NewModule("test")
	defer m.Close()
	b := ir.NewBuilder(m)
	arrType := ir.ArrayType(ir.I32Type, []ir.Dim{{Static: 4}})
	f := b.CreateFunction("dynamic_index", ir.I32Type, []*ir.Type{ir.I32Type}, []string{"i"}, false)

	entry := b.CreateBlock("entry")
	b.SetInsertPoint(entry)
	arr := b.EmitAlloca(arrType, "arr")
	elem := b.EmitGEP(arr, []*ir.Value{f.Params[0]}, ir.I32Type, true)
	loaded := b.EmitLoad(elem)
	b.EmitRet(loaded)

	changed := SROA{}.Run(f)
	assert.False(t, changed, "a dynamic index disqualifies the array from splitting")
}
