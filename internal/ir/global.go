package ir

// GlobalVariable is a module-scope SysY variable: a global or a static
// local hoisted to module scope by the frontend, with an optional
// constant initializer.
type GlobalVariable struct {
	Name        string
	Type        *Type // element type, not PointerType(Type); references use ValueGlobalRef
	IsConst     bool
	Initializer []*Value // flattened constant initializer, row-major; nil means zero-initialized

	valueRef *Value // lazily created singleton, see AsValue
}

// AsValue returns the single ValueGlobalRef Value naming g, the form
// every operand referencing a global takes: global references are a
// Value kind, not a separate operand kind. It is a singleton per
// global so every reference shares one use list, matching the treatment
// of every other register-like Value.
func (g *GlobalVariable) AsValue() *Value {
	if g.valueRef == nil {
		g.valueRef = &Value{Type: PointerType(g.Type), Kind: ValueGlobalRef, Name: g.Name, Global: g}
	}
	return g.valueRef
}
