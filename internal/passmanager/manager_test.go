package passmanager

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sereinwalker/sysy-ir/internal/ir"
)

func buildFixtureModule() *ir.Module {
	m := ir.NewModule("test")
	b := ir.NewBuilder(m)
	f := b.CreateFunction("fixture", ir.I32Type, nil, nil, false)
	entry := b.CreateBlock("entry")
	b.SetInsertPoint(entry)
	p := b.EmitAlloca(ir.I32Type, "p")
	b.EmitStore(p, ir.ConstInt(ir.I32Type, 42))
	x := b.EmitLoad(p)
	b.EmitRet(x)
	return m
}

func TestDefaultConfigDisablesLoopUnrollOnly(t *testing.T) {
	cfg := DefaultConfig()
	assert.False(t, cfg.EnableLoopUnroll, "loop unroll defaults off")
	assert.True(t, cfg.EnableMem2Reg)
	assert.True(t, cfg.EnableSROA)
	assert.True(t, cfg.EnableInliner)
	assert.True(t, cfg.EnableTailCallElim)
	assert.Greater(t, cfg.MaxIterations, 0)
}

func TestRunModuleOptimizesStraightLineFixture(t *testing.T) {
	m := buildFixtureModule()
	defer m.Close()
	f, ok := m.FindFunction("fixture")
	require.True(t, ok)

	before := countFunctionInstructions(f)

	mgr := NewManager(DefaultConfig())
	stats := mgr.EnableStatistics()
	changed := mgr.RunModule(m)
	require.True(t, changed)

	after := countFunctionInstructions(f)
	assert.Less(t, after, before, "Mem2Reg+InstCombine+ADCE should shrink the fixture to a bare ret")
	assert.Equal(t, 1, f.NumBlocks())
	assert.GreaterOrEqual(t, stats.Iterations, 1)
	m2r, ok := stats.PerPass["mem2reg"]
	require.True(t, ok, "mem2reg should have run at least once")
	assert.Greater(t, m2r.Runs, 0)
	assert.Greater(t, m2r.InstructionsRemoved, 0)

	insts := f.Entry.Instructions()
	require.Len(t, insts, 1)
	assert.Equal(t, ir.OpRet, insts[0].Opcode)
}

func TestRunBatchOptimizesIndependentModules(t *testing.T) {
	mods := []*ir.Module{buildFixtureModule(), buildFixtureModule()}
	defer func() {
		for _, m := range mods {
			m.Close()
		}
	}()

	results, err := RunBatch(mods, DefaultConfig())
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.True(t, r)
	}
}

func TestLoadConfigOverridesDefaultsFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opt.yaml")
	contents := "enable_loop_unroll: true\nmax_iterations: 3\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, cfg.EnableLoopUnroll)
	assert.Equal(t, 3, cfg.MaxIterations)
	assert.True(t, cfg.EnableMem2Reg, "unset fields should keep their DefaultConfig value")
}

func TestLoadConfigRejectsNonPositiveMaxIterations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opt.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_iterations: 0\n"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func countFunctionInstructions(f *ir.Function) int {
	n := 0
	for _, b := range f.Blocks() {
		n += b.Len()
	}
	return n
}
