package transform

import (
	"fmt"
	"strings"

	"github.com/sereinwalker/sysy-ir/internal/analysis"
	"github.com/sereinwalker/sysy-ir/internal/ir"
)

// CSE eliminates redundant computations by value-numbering pure
// instructions as it walks the dominator tree, scoping each entry to the
// subtree it dominates via an explicit undo stack rather than a single
// flat table: a redundant computation is only removable when the
// earlier one dominates the later one. Grounded on
// original_source/src/ir/transforms/cse.c's scoped-table walk.
type CSE struct{}

func (CSE) Name() string { return "cse" }

func (p CSE) Run(f *ir.Function) bool {
	if f.Entry == nil {
		return false
	}
	analysis.BuildCFG(f)
	analysis.ComputeDominators(f)

	table := make(map[string]*ir.Value)
	changed := cseWalk(f.Entry, table)
	if changed {
		f.InvalidateAnalyses()
	}
	return changed
}

func cseWalk(blk *ir.BasicBlock, table map[string]*ir.Value) bool {
	changed := false
	var inserted []string

	for _, inst := range blk.Instructions() {
		if !inst.Opcode.IsPure() {
			continue
		}
		key := valueKey(inst)
		if key == "" {
			continue
		}
		if existing, ok := table[key]; ok {
			ir.ReplaceAllUsesWith(inst.Result, existing)
			ir.EraseInstruction(inst)
			changed = true
			continue
		}
		table[key] = inst.Result
		inserted = append(inserted, key)
	}

	for _, child := range blk.DomChildren {
		if cseWalk(child, table) {
			changed = true
		}
	}

	for _, key := range inserted {
		delete(table, key)
	}
	return changed
}

// valueKey builds a string uniquely identifying inst's computation:
// opcode, result type, payload (comparison condition), and operand identities, with
// operands sorted for commutative ops so `a+b` and `b+a` hash the same.
// Phi results are never keyed — their value depends on
// control flow, not just their operand set.
func valueKey(inst *ir.Instruction) string {
	if inst.Opcode == ir.OpPhi || inst.Opcode == ir.OpCall || inst.Opcode == ir.OpAlloca {
		return ""
	}
	ops := inst.Operands()
	ids := make([]string, len(ops))
	for i, o := range ops {
		ids[i] = operandIdentity(o)
	}
	if inst.Opcode.IsCommutative() && len(ids) == 2 && ids[0] > ids[1] {
		ids[0], ids[1] = ids[1], ids[0]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s|", inst.Opcode)
	fmt.Fprintf(&b, "%s|", inst.Result.Type)
	if inst.Opcode == ir.OpICmp {
		fmt.Fprintf(&b, "%s|", inst.ICmpCond)
	}
	if inst.Opcode == ir.OpFCmp {
		fmt.Fprintf(&b, "%s|", inst.FCmpCond)
	}
	if inst.Opcode == ir.OpGEP {
		fmt.Fprintf(&b, "%v|", inst.Inbounds)
	}
	b.WriteString(strings.Join(ids, ","))
	return b.String()
}

func operandIdentity(o *ir.Operand) string {
	if o.Kind == ir.BlockRef {
		return fmt.Sprintf("b%p", o.Block)
	}
	v := o.Value
	if v.Kind == ir.ValueConstant {
		if v.Type.Basic.IsFloat() {
			return fmt.Sprintf("cf%g:%s", v.FloatVal, v.Type)
		}
		return fmt.Sprintf("ci%d:%s", v.IntVal, v.Type)
	}
	return fmt.Sprintf("v%p", v)
}
