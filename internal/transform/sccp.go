package transform

import "github.com/sereinwalker/sysy-ir/internal/ir"

// latticeKind is SCCP's 3-point lattice: every value starts at Undef
// (top, "not yet known"), moves to Constant at most once, and can only
// fall to Overdefined (bottom) after that — never back up.
type latticeKind int

const (
	lUndef latticeKind = iota
	lConstant
	lOverdefined
)

type lattice struct {
	kind latticeKind
	val  *ir.Value // meaningful iff kind == lConstant
}

var undefLattice = lattice{kind: lUndef}
var overLattice = lattice{kind: lOverdefined}

type cfgEdge struct{ from, to *ir.BasicBlock }

// SCCP is sparse conditional constant propagation: it tracks which
// blocks are reachable and which SSA values are compile-time constants
// simultaneously, so a value fed only by unreachable code is never
// polluted into "overdefined" by it. Grounded on
// original_source/src/ir/transforms/sccp.c's dual worklist.
type SCCP struct{}

func (SCCP) Name() string { return "sccp" }

func (p SCCP) Run(f *ir.Function) bool {
	if f.Entry == nil {
		return false
	}
	s := &sccpState{
		values:      make(map[*ir.Value]lattice),
		execBlocks:  make(map[*ir.BasicBlock]bool),
		execEdges:   make(map[cfgEdge]bool),
	}
	s.seedArguments(f)
	s.markExecutable(f.Entry)
	s.visitBlock(f.Entry)
	s.solve()
	changed := s.rewrite(f)
	if changed {
		f.InvalidateAnalyses()
	}
	return changed
}

type sccpState struct {
	values     map[*ir.Value]lattice
	execBlocks map[*ir.BasicBlock]bool
	execEdges  map[cfgEdge]bool
	cfgWL      []cfgEdge
	ssaWL      []*ir.Value
}

// seedArguments marks every parameter Overdefined: this is an
// intraprocedural pass with no caller-side constant knowledge.
func (s *sccpState) seedArguments(f *ir.Function) {
	for _, arg := range f.Params {
		s.values[arg] = overLattice
	}
}

func (s *sccpState) get(v *ir.Value) lattice {
	switch v.Kind {
	case ir.ValueConstant:
		return lattice{kind: lConstant, val: v}
	case ir.ValueUndef:
		return undefLattice
	}
	if l, ok := s.values[v]; ok {
		return l
	}
	return undefLattice
}

func (s *sccpState) set(v *ir.Value, l lattice) {
	old, ok := s.values[v]
	if ok && old.kind == l.kind && sameConst(old, l) {
		return
	}
	s.values[v] = l
	s.ssaWL = append(s.ssaWL, v)
}

func sameConst(a, b lattice) bool {
	if a.kind != lConstant || b.kind != lConstant {
		return true
	}
	if a.val.Type.Basic.IsFloat() {
		return a.val.FloatVal == b.val.FloatVal
	}
	return a.val.IntVal == b.val.IntVal
}

func (s *sccpState) markExecutable(b *ir.BasicBlock) bool {
	if s.execBlocks[b] {
		return false
	}
	s.execBlocks[b] = true
	return true
}

func meet(a, b lattice) lattice {
	if a.kind == lUndef {
		return b
	}
	if b.kind == lUndef {
		return a
	}
	if a.kind == lOverdefined || b.kind == lOverdefined {
		return overLattice
	}
	if sameConst(a, b) {
		return a
	}
	return overLattice
}

func (s *sccpState) solve() {
	for len(s.cfgWL) > 0 || len(s.ssaWL) > 0 {
		for len(s.cfgWL) > 0 {
			e := s.cfgWL[len(s.cfgWL)-1]
			s.cfgWL = s.cfgWL[:len(s.cfgWL)-1]
			if s.execEdges[e] {
				continue
			}
			s.execEdges[e] = true
			if s.markExecutable(e.to) {
				s.visitBlock(e.to)
			} else {
				for _, phi := range e.to.Phis() {
					s.visitInstruction(phi)
				}
			}
		}
		for len(s.ssaWL) > 0 {
			v := s.ssaWL[len(s.ssaWL)-1]
			s.ssaWL = s.ssaWL[:len(s.ssaWL)-1]
			for _, u := range v.Uses() {
				if s.execBlocks[u.User.Block] {
					s.visitInstruction(u.User)
				}
			}
		}
	}
}

func (s *sccpState) visitBlock(b *ir.BasicBlock) {
	for _, inst := range b.Instructions() {
		s.visitInstruction(inst)
	}
}

func (s *sccpState) visitInstruction(inst *ir.Instruction) {
	switch inst.Opcode {
	case ir.OpPhi:
		s.visitPhi(inst)
	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpSDiv, ir.OpSRem,
		ir.OpFAdd, ir.OpFSub, ir.OpFMul, ir.OpFDiv,
		ir.OpShl, ir.OpLShr, ir.OpAShr, ir.OpAnd, ir.OpOr, ir.OpXor:
		s.visitBinary(inst)
	case ir.OpICmp:
		s.visitICmp(inst)
	case ir.OpFCmp:
		s.visitFCmp(inst)
	case ir.OpSIToFP, ir.OpFPToSI, ir.OpZExt, ir.OpSExt, ir.OpFPExt, ir.OpFPTrunc, ir.OpTrunc:
		s.visitConvert(inst)
	case ir.OpBr:
		s.cfgWL = append(s.cfgWL, cfgEdge{inst.Block, inst.BrTarget()})
	case ir.OpCondBr:
		s.visitCondBr(inst)
	case ir.OpRet:
		// no result, no successors
	default:
		// alloca/load/store/gep/call: conservatively overdefined.
		if inst.Result != nil {
			s.set(inst.Result, overLattice)
		}
	}
}

func (s *sccpState) visitPhi(inst *ir.Instruction) {
	result := undefLattice
	for _, in := range inst.Incoming() {
		if !s.execEdges[cfgEdge{in.Block, inst.Block}] {
			continue
		}
		result = meet(result, s.get(in.Value))
	}
	s.set(inst.Result, result)
}

func (s *sccpState) visitBinary(inst *ir.Instruction) {
	lhs, rhs := s.get(inst.LHS()), s.get(inst.RHS())
	if lhs.kind == lOverdefined || rhs.kind == lOverdefined {
		s.set(inst.Result, overLattice)
		return
	}
	if lhs.kind == lUndef || rhs.kind == lUndef {
		s.set(inst.Result, undefLattice)
		return
	}
	folded, ok := foldBinary(inst.Opcode, lhs.val, rhs.val)
	if !ok {
		s.set(inst.Result, overLattice)
		return
	}
	s.set(inst.Result, lattice{kind: lConstant, val: folded})
}

func (s *sccpState) visitICmp(inst *ir.Instruction) {
	lhs, rhs := s.get(inst.LHS()), s.get(inst.RHS())
	if lhs.kind == lOverdefined || rhs.kind == lOverdefined {
		s.set(inst.Result, overLattice)
		return
	}
	if lhs.kind == lUndef || rhs.kind == lUndef {
		s.set(inst.Result, undefLattice)
		return
	}
	s.set(inst.Result, lattice{kind: lConstant, val: ir.ConstBool(foldICmp(inst.ICmpCond, lhs.val.IntVal, rhs.val.IntVal))})
}

func (s *sccpState) visitFCmp(inst *ir.Instruction) {
	lhs, rhs := s.get(inst.LHS()), s.get(inst.RHS())
	if lhs.kind == lOverdefined || rhs.kind == lOverdefined {
		s.set(inst.Result, overLattice)
		return
	}
	if lhs.kind == lUndef || rhs.kind == lUndef {
		s.set(inst.Result, undefLattice)
		return
	}
	s.set(inst.Result, lattice{kind: lConstant, val: ir.ConstBool(foldFCmp(inst.FCmpCond, lhs.val.FloatVal, rhs.val.FloatVal))})
}

func (s *sccpState) visitConvert(inst *ir.Instruction) {
	src := s.get(inst.ConvertedOperand())
	switch src.kind {
	case lOverdefined:
		s.set(inst.Result, overLattice)
	case lUndef:
		s.set(inst.Result, undefLattice)
	default:
		s.set(inst.Result, lattice{kind: lConstant, val: foldConvert(inst.Opcode, src.val, inst.DestType)})
	}
}

func (s *sccpState) visitCondBr(inst *ir.Instruction) {
	cond := s.get(inst.CondBrCondition())
	switch cond.kind {
	case lConstant:
		if cond.val.IntVal != 0 {
			s.cfgWL = append(s.cfgWL, cfgEdge{inst.Block, inst.CondBrTrue()})
		} else {
			s.cfgWL = append(s.cfgWL, cfgEdge{inst.Block, inst.CondBrFalse()})
		}
	case lOverdefined:
		s.cfgWL = append(s.cfgWL, cfgEdge{inst.Block, inst.CondBrTrue()})
		s.cfgWL = append(s.cfgWL, cfgEdge{inst.Block, inst.CondBrFalse()})
	case lUndef:
		// condition not yet known; both edges stay unexplored until it
		// resolves, the key difference from naive dataflow propagation.
	}
}

// rewrite materializes every value SCCP proved constant back into the
// IR: registers with a known-constant lattice value are replaced by
// that constant and erased; cond_br conditions known constant have
// their condition operand folded to a literal so SimplifyCFG can later
// delete the now-unreachable arm — SCCP feeds SimplifyCFG.
func (s *sccpState) rewrite(f *ir.Function) bool {
	changed := false
	for _, blk := range f.Blocks() {
		if !s.execBlocks[blk] {
			continue
		}
		for _, inst := range blk.Instructions() {
			if inst.Opcode == ir.OpCondBr {
				l := s.get(inst.CondBrCondition())
				if l.kind == lConstant {
					ops := inst.Operands()
					if ops[0].Value != l.val {
						ir.ChangeOperandValue(ops[0], l.val)
						changed = true
					}
				}
				continue
			}
			if inst.Result == nil || !inst.Result.IsRegister() {
				continue
			}
			l, ok := s.values[inst.Result]
			if !ok || l.kind != lConstant {
				continue
			}
			if inst.Opcode.HasSideEffects() {
				continue
			}
			ir.ReplaceAllUsesWith(inst.Result, l.val)
			ir.EraseInstruction(inst)
			changed = true
		}
	}
	return changed
}
