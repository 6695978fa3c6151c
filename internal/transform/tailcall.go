package transform

import "github.com/sereinwalker/sysy-ir/internal/ir"

// TailCallElim turns direct self-recursive tail calls into a branch back
// to a new "tailrecur.loop" block that takes over the original entry
// block's body, each parameter threaded through a phi there; the entry
// block itself is left holding only a branch to that block. The
// function becomes an iterative loop instead of
// recursing. Grounded on
// original_source/src/ir/transforms/tail_call_elim.c.
type TailCallElim struct{}

func (TailCallElim) Name() string { return "tailcallelim" }

func (p TailCallElim) Run(f *ir.Function) bool {
	if f.Entry == nil {
		return false
	}

	sites := findTailCallSites(f)
	if len(sites) == 0 {
		return false
	}

	b := ir.NewBuilder(f.Module)
	b.UseFunction(f)

	origEntry := f.Entry
	loopEntry := b.CreateBlock("tailrecur.loop")

	// One phi per parameter at the start of the new loop header, seeded
	// with the external entry's parameter value.
	paramPhis := make([]*ir.Instruction, len(f.Params))
	for i, param := range f.Params {
		phi := b.InsertPhiAtBlockStart(loopEntry, param.Type, param.Name+".tc")
		ir.AddIncoming(phi, param, origEntry)
		paramPhis[i] = phi
	}

	// Every use of a parameter, other than the incoming edges just
	// installed, is rewritten to read the phi instead.
	for i, param := range f.Params {
		phi := paramPhis[i]
		for _, use := range param.Uses() {
			if use.User == phi {
				continue
			}
			ir.ChangeOperandValue(use, phi.Result)
		}
	}

	// The original entry's whole body (including its terminator, which
	// may itself be one of the recognized tail-call sites in a
	// single-block function) moves into the loop header; the external
	// entry becomes a trivial fall-through, keeping entry's "zero
	// predecessors" invariant intact while loopEntry takes the back
	// edge(s).
	for _, inst := range origEntry.Instructions() {
		ir.MoveInstructionToEnd(inst, loopEntry)
	}
	b.SetInsertPoint(origEntry)
	b.EmitBr(loopEntry)

	for _, site := range sites {
		call := site
		retInst := call.Block.Terminator()
		args := call.CallArgs()
		for i, phi := range paramPhis {
			ir.AddIncoming(phi, args[i], call.Block)
		}
		ir.EraseInstruction(retInst)
		ir.EraseInstruction(call)
		b.SetInsertPoint(call.Block)
		b.EmitBr(loopEntry)
	}

	f.InvalidateAnalyses()
	return true
}

// findTailCallSites finds every call instruction immediately followed
// by a ret that either returns void (for a void call) or returns
// exactly the call's own result, where the callee is f itself.
func findTailCallSites(f *ir.Function) []*ir.Instruction {
	var sites []*ir.Instruction
	for _, blk := range f.Blocks() {
		term := blk.Terminator()
		if term == nil || term.Opcode != ir.OpRet {
			continue
		}
		prev := prevNonTerm(blk, term)
		if prev == nil || prev.Opcode != ir.OpCall || prev.Callee != f {
			continue
		}
		retVal := term.RetValue()
		if prev.Result == nil {
			if retVal != nil {
				continue
			}
		} else if retVal != prev.Result {
			continue
		}
		sites = append(sites, prev)
	}
	return sites
}

// prevNonTerm returns the instruction immediately preceding inst in its
// block (inst is always the terminator here, so this is simply the
// block's penultimate instruction).
func prevNonTerm(blk *ir.BasicBlock, inst *ir.Instruction) *ir.Instruction {
	insts := blk.Instructions()
	for i, in := range insts {
		if in == inst {
			if i == 0 {
				return nil
			}
			return insts[i-1]
		}
	}
	return nil
}
