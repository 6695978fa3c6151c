// Package transform implements the optimizer's individual passes:
// Mem2Reg, SROA, InstCombine, SCCP, CSE, ADCE, SimplifyCFG, LICM,
// IndVarSimplify, LoopUnroll, Inliner, and TailCallElim.
// Every per-function pass implements Pass (the Inliner implements
// ModulePass instead), and each reports whether it changed the
// function/module, an OptimizationPass.Apply(...) bool contract rather
// than threading a separate "changed" out-param.
package transform

import "github.com/sereinwalker/sysy-ir/internal/ir"

// Pass runs one optimization over a single function and reports whether
// it modified it. A false return is never an error — it means the pass
// found nothing to do.
type Pass interface {
	Name() string
	Run(f *ir.Function) bool
}

// ModulePass runs over an entire module rather than one function at a
// time, for transforms that need cross-function information (the
// Inliner).
type ModulePass interface {
	Name() string
	RunModule(m *ir.Module) bool
}
