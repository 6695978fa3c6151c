package transform

import (
	"github.com/sereinwalker/sysy-ir/internal/analysis"
	"github.com/sereinwalker/sysy-ir/internal/ir"
)

// IndVarSimplify strength-reduces multiply-derived induction variables:
// given a basic IV `i` stepping by a constant each iteration, a loop-body
// computation `i * k` for constant k is replaced by its own IV stepping
// by `k * step`, trading a per-iteration multiply for a per-iteration
// add. Scope is deliberately limited to multiply-derived
// IVs — GEP-offset induction variables are left to a future extension,
// since SysY's only aggregate addressing construct is already lowered
// through plain GEP-with-index chains InstCombine and CSE handle on
// their own.
//
// Grounded on original_source/src/ir/transforms/ind_var_simplify.c's
// basic-IV recognition followed by a derived-IV rewrite.
type IndVarSimplify struct{}

func (IndVarSimplify) Name() string { return "indvarsimplify" }

type basicIV struct {
	Phi       *ir.Instruction
	Init      *ir.Value
	Step      *ir.Value // integer constant
	StepDef   *ir.Instruction // the `add phi, step` producing the next value
	Preheader *ir.BasicBlock
	Latch     *ir.BasicBlock
}

func (p IndVarSimplify) Run(f *ir.Function) bool {
	if f.Entry == nil {
		return false
	}
	analysis.BuildCFG(f)
	analysis.ComputeDominators(f)
	lf := analysis.FindLoops(f)
	if lf == nil {
		return false
	}

	b := ir.NewBuilder(f.Module)
	b.UseFunction(f)

	changed := false
	for _, l := range flattenLoops(lf) {
		iv, ok := findBasicIV(f, b, l)
		if !ok {
			continue
		}
		if strengthReduceDerived(f, b, l, iv) {
			changed = true
		}
	}
	if changed {
		f.InvalidateAnalyses()
	}
	return changed
}

// findBasicIV looks for a header phi with exactly two incoming edges —
// one from outside the loop (the initial value) and one from inside
// (an add of the phi itself and a constant step).
func findBasicIV(f *ir.Function, b *ir.Builder, l *ir.Loop) (basicIV, bool) {
	for _, phi := range l.Header.Phis() {
		incoming := phi.Incoming()
		if len(incoming) != 2 {
			continue
		}
		var initVal *ir.Value
		var stepDef *ir.Instruction
		var latch *ir.BasicBlock
		for _, in := range incoming {
			if l.Contains(in.Block) {
				if in.Value.Def == nil || in.Value.Def.Opcode != ir.OpAdd {
					continue
				}
				stepDef = in.Value.Def
				latch = in.Block
			} else {
				initVal = in.Value
			}
		}
		if stepDef == nil || initVal == nil {
			continue
		}
		step := stepOperand(stepDef, phi.Result)
		if step == nil || step.Kind != ir.ValueConstant {
			continue
		}
		preheader := analysis.EnsurePreheader(f, b, l)
		return basicIV{Phi: phi, Init: initVal, Step: step, StepDef: stepDef, Preheader: preheader, Latch: latch}, true
	}
	return basicIV{}, false
}

// stepOperand returns the constant operand of an add instruction known
// to have self as one of its two operands, or nil if self is not an
// operand at all.
func stepOperand(add *ir.Instruction, self *ir.Value) *ir.Value {
	if add.LHS() == self {
		return add.RHS()
	}
	if add.RHS() == self {
		return add.LHS()
	}
	return nil
}

// strengthReduceDerived rewrites every `iv.Phi * constant` in the loop
// body into its own stepped phi.
func strengthReduceDerived(f *ir.Function, b *ir.Builder, l *ir.Loop, iv basicIV) bool {
	changed := false
	for _, blk := range l.Blocks {
		for _, inst := range blk.Instructions() {
			if inst.Opcode != ir.OpMul {
				continue
			}
			factor := mulFactorOf(inst, iv.Phi.Result)
			if factor == nil || factor.Kind != ir.ValueConstant || factor.Type.Basic.IsFloat() {
				continue
			}
			newPhi := buildDerivedIV(b, l, iv, factor)
			ir.ReplaceAllUsesWith(inst.Result, newPhi.Result)
			ir.EraseInstruction(inst)
			changed = true
		}
	}
	return changed
}

func mulFactorOf(mul *ir.Instruction, iv *ir.Value) *ir.Value {
	if mul.LHS() == iv {
		return mul.RHS()
	}
	if mul.RHS() == iv {
		return mul.LHS()
	}
	return nil
}

// buildDerivedIV materializes `iv.Phi * factor` as its own phi: init =
// iv.Init * factor (folded since both are constants when Init is
// constant, otherwise emitted in the preheader), step = iv.Step *
// factor.
func buildDerivedIV(b *ir.Builder, l *ir.Loop, iv basicIV, factor *ir.Value) *ir.Instruction {
	t := iv.Phi.Result.Type

	var initVal *ir.Value
	if iv.Init.Kind == ir.ValueConstant {
		initVal = ir.ConstInt(t, iv.Init.IntVal*factor.IntVal)
	} else {
		restore := reopenBlock(b, iv.Preheader)
		initVal = b.EmitMul(iv.Init, factor)
		restore()
	}

	stepVal := ir.ConstInt(t, iv.Step.IntVal*factor.IntVal)

	newPhi := b.InsertPhiAtBlockStart(l.Header, t, iv.Phi.Result.Name+".str")
	restore := reopenBlock(b, iv.Latch)
	incVal := b.EmitAdd(newPhi.Result, stepVal)
	restore()

	for _, in := range iv.Phi.Incoming() {
		if in.Block == iv.Latch {
			ir.AddIncoming(newPhi, incVal, iv.Latch)
		} else {
			ir.AddIncoming(newPhi, initVal, in.Block)
		}
	}
	return newPhi
}
