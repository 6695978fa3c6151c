package transform

import "github.com/sereinwalker/sysy-ir/internal/ir"

// SROA splits an array alloca into one scalar alloca per element when
// every use reaches it through a GEP with a fully constant index path,
// turning what would otherwise be an opaque memory object into
// individually promotable scalars for a later Mem2Reg run. Grounded on
// original_source/src/ir/transforms/sroa.c's "all accesses
// statically indexable" precondition.
type SROA struct{}

func (SROA) Name() string { return "sroa" }

func (p SROA) Run(f *ir.Function) bool {
	if f.Entry == nil {
		return false
	}
	changed := false
	for _, alloca := range f.Entry.Instructions() {
		if alloca.Opcode != ir.OpAlloca || alloca.AllocaType.Tag != ir.TagArray {
			continue
		}
		if splitAlloca(f, alloca) {
			changed = true
		}
	}
	return changed
}

// splitAlloca replaces alloca with one new alloca per flattened element
// if every GEP reaching it has constant indices; returns false (leaving
// alloca untouched) at the first disqualifying use.
func splitAlloca(f *ir.Function, alloca *ir.Instruction) bool {
	flatCount := flattenedCount(alloca.AllocaType)
	if flatCount <= 0 || flatCount > 4096 {
		return false // unbounded or absurdly large; not worth splitting
	}

	geps := make([]*ir.Instruction, 0)
	for _, u := range alloca.Result.Uses() {
		if u.User.Opcode != ir.OpGEP {
			return false
		}
		if constantFlatIndex(u.User, alloca.AllocaType) < 0 {
			return false
		}
		geps = append(geps, u.User)
	}

	elemType := flattenedElemType(alloca.AllocaType)
	scalars := make([]*ir.Value, flatCount)
	b := ir.NewBuilder(f.Module)
	b.UseFunction(f)
	b.SetInsertPoint(f.Entry)
	for i := range scalars {
		scalars[i] = b.EmitAlloca(elemType, alloca.Result.Name+".sroa")
	}

	for _, gep := range geps {
		idx := constantFlatIndex(gep, alloca.AllocaType)
		ir.ReplaceAllUsesWith(gep.Result, scalars[idx])
		ir.EraseInstruction(gep)
	}
	ir.EraseInstruction(alloca)
	return true
}

func flattenedCount(t *ir.Type) int {
	n := 1
	for t.Tag == ir.TagArray {
		for _, d := range t.Dims {
			if d.Dynamic {
				return -1
			}
			n *= d.Static
		}
		t = t.Elem
	}
	return n
}

func flattenedElemType(t *ir.Type) *ir.Type {
	for t.Tag == ir.TagArray {
		t = t.Elem
	}
	return t
}

// constantFlatIndex returns the row-major flattened index a GEP accesses
// into baseType if every one of its indices is a known integer constant,
// or -1 if any index is dynamic.
func constantFlatIndex(gep *ir.Instruction, baseType *ir.Type) int {
	dims := collectDims(baseType)
	indices := gep.GEPIndices()
	if len(indices) != len(dims) {
		return -1
	}
	flat := 0
	for i, idx := range indices {
		if idx.Kind != ir.ValueConstant {
			return -1
		}
		stride := 1
		for _, d := range dims[i+1:] {
			stride *= d
		}
		flat += int(idx.IntVal) * stride
	}
	return flat
}

func collectDims(t *ir.Type) []int {
	var dims []int
	for t.Tag == ir.TagArray {
		for _, d := range t.Dims {
			dims = append(dims, d.Static)
		}
		t = t.Elem
	}
	return dims
}
