package ir

import "testing"

func TestTypeEqualIgnoresConstAtTopLevel(t *testing.T) {
	plain := BasicType(I32)
	asConst := plain.ConstOf()

	if !plain.Equal(asConst) {
		t.Error("const i32 should compare equal to plain i32")
	}
}

func TestTypeEqualComparesArrayDims(t *testing.T) {
	a := ArrayType(BasicType(I32), []Dim{{Static: 3}})
	b := ArrayType(BasicType(I32), []Dim{{Static: 3}})
	c := ArrayType(BasicType(I32), []Dim{{Static: 4}})

	if !a.Equal(b) {
		t.Error("two [3]i32 types should be equal")
	}
	if a.Equal(c) {
		t.Error("[3]i32 and [4]i32 should not be equal")
	}
}

func TestParameterAssignableFromArrayDecay(t *testing.T) {
	want := PointerType(BasicType(I32))
	got := PointerType(ArrayType(BasicType(I32), []Dim{{Static: 5}}))

	if !want.ParameterAssignableFrom(got) {
		t.Error("a pointer-to-i32 parameter should accept a decayed [5]i32 argument")
	}
}

func TestParameterAssignableFromRejectsMismatchedElem(t *testing.T) {
	want := PointerType(BasicType(I32))
	got := PointerType(ArrayType(BasicType(F32), []Dim{{Static: 5}}))

	if want.ParameterAssignableFrom(got) {
		t.Error("a pointer-to-i32 parameter should reject a [5]f32 argument")
	}
}

func TestFunctionTypeEqualChecksParamsAndVariadic(t *testing.T) {
	a := FunctionType(BasicType(I32), []*Type{BasicType(I32), BasicType(I32)}, false)
	b := FunctionType(BasicType(I32), []*Type{BasicType(I32), BasicType(I32)}, false)
	c := FunctionType(BasicType(I32), []*Type{BasicType(I32)}, false)

	if !a.Equal(b) {
		t.Error("identical function signatures should be equal")
	}
	if a.Equal(c) {
		t.Error("function types with different arity should not be equal")
	}
}
