package ir

import "testing"

func TestReplaceAllUsesWithRewritesEveryOperand(t *testing.T) {
	m := NewModule("test")
	defer m.Close()
	b := NewBuilder(m)
	f := b.CreateFunction("f", BasicType(I32), []*Type{BasicType(I32), BasicType(I32)}, []string{"a", "b"}, false)
	entry := b.CreateBlock("entry")
	b.SetInsertPoint(entry)

	a, bb := f.Params[0], f.Params[1]
	first := b.EmitAdd(a, bb)
	second := b.EmitAdd(a, bb)
	sum := b.EmitAdd(first, second)
	b.EmitRet(sum)

	if !second.HasUses() {
		t.Fatal("second add should be used by sum before the rewrite")
	}

	ReplaceAllUsesWith(second, first)

	if second.HasUses() {
		t.Error("second should have no uses left after ReplaceAllUsesWith")
	}
	if first.NumUses() != 2 {
		t.Errorf("first should now have 2 uses (both sum operands), got %d", first.NumUses())
	}
}

func TestEraseInstructionPanicsOnLiveResult(t *testing.T) {
	m := NewModule("test")
	defer m.Close()
	b := NewBuilder(m)
	f := b.CreateFunction("f", BasicType(I32), []*Type{BasicType(I32), BasicType(I32)}, []string{"a", "b"}, false)
	entry := b.CreateBlock("entry")
	b.SetInsertPoint(entry)

	a, bb := f.Params[0], f.Params[1]
	sum := b.EmitAdd(a, bb)
	b.EmitRet(sum)

	defer func() {
		if r := recover(); r == nil {
			t.Error("EraseInstruction should panic when the instruction's result still has uses")
		}
	}()
	EraseInstruction(entry.Instructions()[0])
}

func TestEraseInstructionDetachesOperandsCleanly(t *testing.T) {
	m := NewModule("test")
	defer m.Close()
	b := NewBuilder(m)
	f := b.CreateFunction("f", BasicType(I32), []*Type{BasicType(I32), BasicType(I32)}, []string{"a", "b"}, false)
	entry := b.CreateBlock("entry")
	b.SetInsertPoint(entry)

	a, bb := f.Params[0], f.Params[1]
	dead := b.EmitAdd(a, bb)
	b.EmitRet(a)

	deadInst := entry.Instructions()[0]
	EraseInstruction(deadInst)

	if a.HasUses() == false {
		t.Error("a is still used by ret and should report HasUses")
	}
	if bb.HasUses() {
		t.Error("b should have no remaining uses once the dead add is erased")
	}
	if len(entry.Instructions()) != 1 {
		t.Errorf("expected only the ret instruction to remain, got %d", len(entry.Instructions()))
	}
	_ = dead
}
