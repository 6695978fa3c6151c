package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sereinwalker/sysy-ir/internal/ir"
)

func buildWellFormedFunction(m *ir.Module) *ir.Function {
	b := ir.NewBuilder(m)
	f := b.CreateFunction("ok", ir.I32Type, []*ir.Type{ir.I1Type}, []string{"cond"}, false)
	entry := b.CreateBlock("entry")
	thenBB := b.CreateBlock("then")
	elseBB := b.CreateBlock("else")
	exit := b.CreateBlock("exit")

	b.SetInsertPoint(entry)
	b.EmitCondBr(f.Params[0], thenBB, elseBB)

	b.SetInsertPoint(thenBB)
	b.EmitBr(exit)

	b.SetInsertPoint(elseBB)
	b.EmitBr(exit)

	b.SetInsertPoint(exit)
	phi := b.EmitPhi(ir.I32Type)
	ir.AddIncoming(phi, ir.ConstInt(ir.I32Type, 1), thenBB)
	ir.AddIncoming(phi, ir.ConstInt(ir.I32Type, 2), elseBB)
	b.EmitRet(phi.Result)

	return f
}

func TestVerifyAcceptsWellFormedFunction(t *testing.T) {
	m := ir.NewModule("test")
	defer m.Close()
	f := buildWellFormedFunction(m)

	errs := Function(f)
	assert.Empty(t, errs, FormatReport(errs))
}

func TestVerifyCatchesMissingPhiIncoming(t *testing.T) {
	m := ir.NewModule("test")
	defer m.Close()
	b := ir.NewBuilder(m)
	f := b.CreateFunction("bad_phi", ir.I32Type, []*ir.Type{ir.I1Type}, []string{"cond"}, false)
	entry := b.CreateBlock("entry")
	thenBB := b.CreateBlock("then")
	elseBB := b.CreateBlock("else")
	exit := b.CreateBlock("exit")

	b.SetInsertPoint(entry)
	b.EmitCondBr(f.Params[0], thenBB, elseBB)

	b.SetInsertPoint(thenBB)
	b.EmitBr(exit)

	b.SetInsertPoint(elseBB)
	b.EmitBr(exit)

	b.SetInsertPoint(exit)
	phi := b.EmitPhi(ir.I32Type)
	// Deliberately wire only one of exit's two predecessors, leaving the
	// phi's incoming set smaller than exit.Preds.
	ir.AddIncoming(phi, ir.ConstInt(ir.I32Type, 1), thenBB)
	b.EmitRet(phi.Result)

	errs := Function(f)
	require.NotEmpty(t, errs)
	found := false
	for _, e := range errs {
		found = found || containsSubstring(e.Error(), "incoming")
	}
	assert.True(t, found, "expected a phi well-formedness violation, got: %s", FormatReport(errs))
}

func TestVerifyAcceptsSingleBlockFunction(t *testing.T) {
	m := ir.NewModule("test")
	defer m.Close()
	b := ir.NewBuilder(m)
	f := b.CreateFunction("unreachable_succ", ir.I32Type, nil, nil, false)
	entry := b.CreateBlock("entry")
	b.SetInsertPoint(entry)
	b.EmitRet(ir.ConstInt(ir.I32Type, 0))

	errs := Function(f)
	assert.Empty(t, errs, "a single well-formed block must verify cleanly: %s", FormatReport(errs))
}

func TestModuleSkipsDeclarations(t *testing.T) {
	m := ir.NewModule("test")
	defer m.Close()
	b := ir.NewBuilder(m)
	b.DeclareFunction("getint", ir.I32Type, nil, false)
	buildWellFormedFunction(m)

	errs := Module(m)
	assert.Empty(t, errs, FormatReport(errs))
}

func containsSubstring(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
