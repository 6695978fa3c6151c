package ir

import (
	"fmt"
	"strings"
)

// BasicKind enumerates the scalar kinds carried by a Basic type.
type BasicKind int

const (
	I1 BasicKind = iota
	I8
	I32
	I64
	F32
	F64
)

func (k BasicKind) String() string {
	switch k {
	case I1:
		return "i1"
	case I8:
		return "i8"
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	default:
		return "?"
	}
}

func (k BasicKind) IsFloat() bool { return k == F32 || k == F64 }
func (k BasicKind) IsInt() bool   { return !k.IsFloat() }

// TypeTag discriminates the Type tagged union.
type TypeTag int

const (
	TagVoid TypeTag = iota
	TagBasic
	TagPointer
	TagArray
	TagFunction
)

// Dim describes one array dimension: either a known positive static
// extent or a dynamic (unknown-at-this-level) extent, as used for
// function parameters declared with an empty first dimension.
type Dim struct {
	Dynamic    bool
	Static     int // valid iff !Dynamic; must be > 0
	SourceExpr string
}

// Type is a structural, immutable tagged union over SysY's type system:
// void, the six basic kinds, pointers, arrays, and function types.
// Equality is structural (Equal), not pointer identity — two separately
// constructed Type values describing the same shape compare equal.
type Type struct {
	Tag TypeTag

	// TagBasic
	Basic   BasicKind
	IsConst bool

	// TagPointer / TagArray share Elem
	Elem *Type

	// TagArray
	Dims []Dim

	// TagFunction
	Ret      *Type
	Params   []*Type
	Variadic bool
}

var (
	VoidType = &Type{Tag: TagVoid}
	I1Type   = &Type{Tag: TagBasic, Basic: I1}
	I8Type   = &Type{Tag: TagBasic, Basic: I8}
	I32Type  = &Type{Tag: TagBasic, Basic: I32}
	I64Type  = &Type{Tag: TagBasic, Basic: I64}
	F32Type  = &Type{Tag: TagBasic, Basic: F32}
	F64Type  = &Type{Tag: TagBasic, Basic: F64}
)

// BasicType returns the (non-const) basic type for kind k.
func BasicType(kind BasicKind) *Type {
	switch kind {
	case I1:
		return I1Type
	case I8:
		return I8Type
	case I32:
		return I32Type
	case I64:
		return I64Type
	case F32:
		return F32Type
	case F64:
		return F64Type
	default:
		panic(Bugf("ir: unknown basic kind %d", kind))
	}
}

// ConstOf returns a const-qualified copy of a basic type. IsConst is only
// meaningful for source-level const declarations and is ignored
// by structural equality at the top level.
func (t *Type) ConstOf() *Type {
	if t.Tag != TagBasic {
		return t
	}
	c := *t
	c.IsConst = true
	return &c
}

func PointerType(elem *Type) *Type { return &Type{Tag: TagPointer, Elem: elem} }

func ArrayType(elem *Type, dims []Dim) *Type {
	return &Type{Tag: TagArray, Elem: elem, Dims: dims}
}

func FunctionType(ret *Type, params []*Type, variadic bool) *Type {
	return &Type{Tag: TagFunction, Ret: ret, Params: params, Variadic: variadic}
}

// stripConst returns t with IsConst cleared at the top level (and, for
// arrays, at the element level too — array element types compare
// ignoring top-level const).
func stripConst(t *Type) *Type {
	if t == nil {
		return nil
	}
	switch t.Tag {
	case TagBasic:
		if !t.IsConst {
			return t
		}
		c := *t
		c.IsConst = false
		return &c
	case TagArray:
		elem := stripConst(t.Elem)
		if elem == t.Elem {
			return t
		}
		c := *t
		c.Elem = elem
		return &c
	default:
		return t
	}
}

// Equal implements structural equality: same tag, same payload
// component-wise, with IsConst ignored at the top level (and for array
// element types).
func (t *Type) Equal(other *Type) bool {
	a, b := stripConst(t), stripConst(other)
	if a == b {
		return true
	}
	if a == nil || b == nil || a.Tag != b.Tag {
		return false
	}
	switch a.Tag {
	case TagVoid:
		return true
	case TagBasic:
		return a.Basic == b.Basic
	case TagPointer:
		return a.Elem.Equal(b.Elem)
	case TagArray:
		if !a.Elem.Equal(b.Elem) || len(a.Dims) != len(b.Dims) {
			return false
		}
		for i := range a.Dims {
			da, db := a.Dims[i], b.Dims[i]
			if da.Dynamic != db.Dynamic {
				return false
			}
			if !da.Dynamic && da.Static != db.Static {
				return false
			}
		}
		return true
	case TagFunction:
		if !a.Ret.Equal(b.Ret) || a.Variadic != b.Variadic || len(a.Params) != len(b.Params) {
			return false
		}
		for i := range a.Params {
			if !a.Params[i].Equal(b.Params[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// baseElem walks through every array dimension to the ultimate element
// type, used by the SysY array-decay parameter rule.
func baseElem(t *Type) *Type {
	for t.Tag == TagArray {
		t = t.Elem
	}
	return t
}

// ParameterAssignableFrom implements SysY's array-parameter convention:
// a 1-D array parameter accepts an argument array of any dimensionality
// whose base element type matches. want is the declared parameter
// type, got is the caller's argument type.
func (want *Type) ParameterAssignableFrom(got *Type) bool {
	if want.Equal(got) {
		return true
	}
	if want.Tag == TagArray && got.Tag == TagArray {
		return baseElem(want).Equal(baseElem(got))
	}
	if want.Tag == TagPointer && got.Tag == TagPointer {
		return baseElem(want.Elem).Equal(baseElem(got.Elem))
	}
	return false
}

// AssignableFrom reports whether a value of type got may be assigned
// into storage of type want, ignoring top-level const.
func (want *Type) AssignableFrom(got *Type) bool {
	return want.Equal(got)
}

// sizeInBytes supports Align, which gives alloca alignment.
func (t *Type) sizeInBytes() int {
	switch t.Tag {
	case TagBasic:
		switch t.Basic {
		case I1, I8:
			return 1
		case I32, F32:
			return 4
		case I64, F64:
			return 8
		}
	case TagPointer:
		return 8
	case TagArray:
		n := 1
		for _, d := range t.Dims {
			if d.Dynamic {
				continue // only meaningful for fully-static arrays
			}
			n *= d.Static
		}
		return n * t.Elem.sizeInBytes()
	}
	return 0
}

// Align returns the natural alignment alloca infers for T.
func (t *Type) Align() int {
	if t.Tag == TagArray {
		return t.Elem.Align()
	}
	if s := t.sizeInBytes(); s > 0 {
		return s
	}
	return 1
}

func (t *Type) String() string {
	if t == nil {
		return "<nil type>"
	}
	switch t.Tag {
	case TagVoid:
		return "void"
	case TagBasic:
		if t.IsConst {
			return "const " + t.Basic.String()
		}
		return t.Basic.String()
	case TagPointer:
		return t.Elem.String() + "*"
	case TagArray:
		var b strings.Builder
		b.WriteString(t.Elem.String())
		for _, d := range t.Dims {
			if d.Dynamic {
				b.WriteString("[]")
			} else {
				fmt.Fprintf(&b, "[%d]", d.Static)
			}
		}
		return b.String()
	case TagFunction:
		var b strings.Builder
		b.WriteString(t.Ret.String())
		b.WriteString(" (")
		for i, p := range t.Params {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(p.String())
		}
		if t.Variadic {
			if len(t.Params) > 0 {
				b.WriteString(", ")
			}
			b.WriteString("...")
		}
		b.WriteString(")")
		return b.String()
	default:
		return "<invalid type>"
	}
}
