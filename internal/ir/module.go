package ir

import "github.com/sereinwalker/sysy-ir/internal/arena"

// Module is the root IR container for one compiled translation unit:
// every global variable and function, plus the arena that owns their
// interned strings. Modules are single-owner: Close reclaims
// the arena in one shot, after which the module must not be used.
type Module struct {
	SourceName string

	arena *arena.Arena

	globals   []*GlobalVariable
	functions []*Function

	globalsByName   map[string]*GlobalVariable
	functionsByName map[string]*Function
}

// NewModule creates an empty module that owns a fresh arena.
func NewModule(sourceName string) *Module {
	return &Module{
		SourceName:      sourceName,
		arena:           arena.New(0),
		globalsByName:   make(map[string]*GlobalVariable),
		functionsByName: make(map[string]*Function),
	}
}

// Arena returns the module's string/scratch arena, used by the builder
// to intern names and by transforms that need short-lived scratch
// buffers.
func (m *Module) Arena() *arena.Arena { return m.arena }

// Close releases the module's arena. A module must not be used after
// Close; this is the single teardown operation.
func (m *Module) Close() { m.arena.Reset() }

// Globals returns every global variable in declaration order.
func (m *Module) Globals() []*GlobalVariable { return m.globals }

// Functions returns every function (declarations and definitions) in
// declaration order.
func (m *Module) Functions() []*Function { return m.functions }

// FindFunction looks up a function by name.
func (m *Module) FindFunction(name string) (*Function, bool) {
	f, ok := m.functionsByName[name]
	return f, ok
}

// FindGlobal looks up a global variable by name.
func (m *Module) FindGlobal(name string) (*GlobalVariable, bool) {
	g, ok := m.globalsByName[name]
	return g, ok
}

// addFunction registers f under its name. Panics (as a Bug) on
// duplicate names; the frontend that built this module is responsible
// for name uniqueness.
func (m *Module) addFunction(f *Function) {
	requireInvariant(f.Name != "", "ir: function with empty name")
	_, exists := m.functionsByName[f.Name]
	requireInvariant(!exists, "ir: duplicate function name %q", f.Name)
	f.Module = m
	m.functions = append(m.functions, f)
	m.functionsByName[f.Name] = f
}

// addGlobal registers g under its name.
func (m *Module) addGlobal(g *GlobalVariable) {
	requireInvariant(g.Name != "", "ir: global with empty name")
	_, exists := m.globalsByName[g.Name]
	requireInvariant(!exists, "ir: duplicate global name %q", g.Name)
	m.globals = append(m.globals, g)
	m.globalsByName[g.Name] = g
}
