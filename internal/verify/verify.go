// Package verify implements a verify(module) diagnostic entry
// point: a set of structural invariant checks over an already-built
// ir.Module, run on demand for diagnostics rather than on every
// mutation, since it is not a performance path.
package verify

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/sereinwalker/sysy-ir/internal/analysis"
	"github.com/sereinwalker/sysy-ir/internal/ir"
)

// Module runs every universal structural check
// against every function in m and returns one error per violation
// found. A nil/empty result means the module is well-formed.
func Module(m *ir.Module) []error {
	var errs []error
	for _, f := range m.Functions() {
		if f.IsDeclaration {
			continue
		}
		errs = append(errs, Function(f)...)
	}
	return errs
}

// Function runs every structural check against a single function.
func Function(f *ir.Function) []error {
	var errs []error
	errs = append(errs, checkUseDefConsistency(f)...)
	errs = append(errs, checkCFGConsistency(f)...)
	errs = append(errs, checkPhiWellFormedness(f)...)
	errs = append(errs, checkDominatorConsistency(f)...)
	return errs
}

// checkUseDefConsistency verifies that for every register v and every
// operand o in the function, o references v iff o is in v's use list,
// with no duplicates.
func checkUseDefConsistency(f *ir.Function) []error {
	var errs []error
	seen := map[*ir.Operand]bool{}
	for _, blk := range f.Blocks() {
		for _, inst := range blk.Instructions() {
			for _, o := range inst.Operands() {
				if o.Kind != ir.ValueRef || o.Value == nil {
					continue
				}
				v := o.Value
				if v.Kind != ir.ValueRegister && v.Kind != ir.ValueGlobalRef && v.Kind != ir.ValueArgument {
					continue
				}
				found := false
				for _, u := range v.Uses() {
					if u == o {
						if seen[u] {
							errs = append(errs, errors.Errorf(
								"verify: %s: operand of %s (id=%d) appears twice in its value's use list",
								f.Name, inst.Opcode, inst.ID))
						}
						seen[u] = true
						found = true
					}
				}
				if !found {
					errs = append(errs, errors.Errorf(
						"verify: %s: operand of %s (id=%d) referencing %s is missing from its value's use list",
						f.Name, inst.Opcode, inst.ID, v.Name))
				}
			}
		}
	}
	return errs
}

// checkCFGConsistency verifies b ∈ succ(a) ⇔ a ∈ pred(b), and that
// every non-empty reachable block ends with exactly one terminator.
// Rebuilds the CFG with analysis.BuildCFG before checking.
func checkCFGConsistency(f *ir.Function) []error {
	var errs []error
	analysis.BuildCFG(f)
	reach := analysis.Reachable(f)
	for _, blk := range f.Blocks() {
		if !reach[blk] {
			continue
		}
		if blk.Len() == 0 || !blk.IsTerminated() {
			errs = append(errs, errors.Errorf(
				"verify: %s: reachable block %s is not terminated", f.Name, blk.Label))
			continue
		}
		for _, s := range blk.Succs {
			if !containsBlockPtr(s.Preds, blk) {
				errs = append(errs, errors.Errorf(
					"verify: %s: %s lists %s as a successor, but %s does not list it as a predecessor",
					f.Name, blk.Label, s.Label, s.Label))
			}
		}
		for _, p := range blk.Preds {
			if !containsBlockPtr(p.Succs, blk) {
				errs = append(errs, errors.Errorf(
					"verify: %s: %s lists %s as a predecessor, but %s does not list it as a successor",
					f.Name, blk.Label, p.Label, p.Label))
			}
		}
	}
	return errs
}

// checkPhiWellFormedness verifies that for every phi in block b, the
// multiset of predecessor blocks among its operands equals pred(b).
func checkPhiWellFormedness(f *ir.Function) []error {
	var errs []error
	for _, blk := range f.Blocks() {
		for _, phi := range blk.Phis() {
			incoming := phi.Incoming()
			if len(incoming) != len(blk.Preds) {
				errs = append(errs, errors.Errorf(
					"verify: %s: phi %%t%d in %s has %d incoming edges, block has %d predecessors",
					f.Name, phi.ID, blk.Label, len(incoming), len(blk.Preds)))
				continue
			}
			for _, pred := range blk.Preds {
				if _, ok := phi.IncomingFor(pred); !ok {
					errs = append(errs, errors.Errorf(
						"verify: %s: phi %%t%d in %s has no incoming value for predecessor %s",
						f.Name, phi.ID, blk.Label, pred.Label))
				}
			}
		}
	}
	return errs
}

// checkDominatorConsistency verifies that after compute_dominators,
// every block other than entry is strictly dominated by its idom, and
// that the dominator tree is rooted at entry. Recomputes dominators with
// analysis.ComputeDominators before checking.
func checkDominatorConsistency(f *ir.Function) []error {
	var errs []error
	if f.Entry == nil {
		return errs
	}
	analysis.ComputeDominators(f)
	for _, blk := range f.Blocks() {
		if blk == f.Entry {
			if blk.IDom != nil {
				errs = append(errs, errors.Errorf(
					"verify: %s: entry block %s has a non-nil idom", f.Name, blk.Label))
			}
			continue
		}
		if !analysis.Reachable(f)[blk] {
			continue
		}
		if blk.IDom == nil {
			errs = append(errs, errors.Errorf(
				"verify: %s: reachable non-entry block %s has no idom", f.Name, blk.Label))
			continue
		}
		if !analysis.StrictlyDominates(blk.IDom, blk) {
			errs = append(errs, errors.Errorf(
				"verify: %s: idom %s of %s does not strictly dominate it",
				f.Name, blk.IDom.Label, blk.Label))
		}
	}
	return errs
}

func containsBlockPtr(list []*ir.BasicBlock, b *ir.BasicBlock) bool {
	for _, x := range list {
		if x == b {
			return true
		}
	}
	return false
}

// FormatReport renders a slice of findings as a human-readable multi-
// line string, one finding per line, suitable for PrintReport or for a
// test failure message.
func FormatReport(errs []error) string {
	if len(errs) == 0 {
		return "verify: module is well-formed"
	}
	s := fmt.Sprintf("verify: %d violation(s) found:\n", len(errs))
	for _, e := range errs {
		s += "  - " + e.Error() + "\n"
	}
	return s
}
