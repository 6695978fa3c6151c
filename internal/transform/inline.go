package transform

import "github.com/sereinwalker/sysy-ir/internal/ir"

// inlinerThreshold is the default maximum callee instruction count
// eligible for inlining; a cost model weighting control flow and calls
// would improve on this but is out of scope for now.
const inlinerThreshold = 80

// libraryFunctions are the SysY runtime entry points, always external
// declarations and never inlining candidates.
var libraryFunctions = map[string]bool{
	"getint": true, "getch": true, "getfloat": true,
	"getarray": true, "getfarray": true,
	"putint": true, "putch": true, "putfloat": true,
	"putarray": true, "putfarray": true, "putf": true,
	"starttime": true, "stoptime": true,
}

// Inliner inlines direct calls to statically-known, small callees that
// are neither the caller itself nor contain a direct call to themselves.
// Module-scope: it walks every function
// looking for call sites, and iterates to a fixed point since inlining
// one call site can expose more within the same caller. Grounded on
// original_source/src/ir/transforms/inline.c's split-clone-stitch
// sequence.
type Inliner struct {
	// Threshold overrides inlinerThreshold when positive; zero means
	// use the default.
	Threshold int
}

func (Inliner) Name() string { return "inliner" }

func (p Inliner) threshold() int {
	if p.Threshold > 0 {
		return p.Threshold
	}
	return inlinerThreshold
}

func (p Inliner) RunModule(m *ir.Module) bool {
	changed := false
	for _, f := range m.Functions() {
		for inlineOneCallSite(m, f, p.threshold()) {
			changed = true
		}
	}
	return changed
}

// inlineOneCallSite finds and inlines a single eligible call site in f,
// returning whether it found one. Callers loop this to a fixed point
// since the caller's block list is restructured on every inline.
func inlineOneCallSite(m *ir.Module, f *ir.Function, threshold int) bool {
	for _, blk := range f.Blocks() {
		for _, inst := range blk.Instructions() {
			if inst.Opcode != ir.OpCall || inst.Callee == nil {
				continue
			}
			callee := inst.Callee
			if callee == f || callee.IsDeclaration || libraryFunctions[callee.Name] {
				continue
			}
			selfRecursive := false
			for _, cb := range callee.Blocks() {
				for _, ci := range cb.Instructions() {
					if ci.Opcode == ir.OpCall && ci.Callee == callee {
						selfRecursive = true
					}
				}
			}
			if selfRecursive {
				continue
			}
			if countInstructions(callee) >= threshold {
				continue
			}
			inlineCall(m, f, inst)
			return true
		}
	}
	return false
}

func countInstructions(f *ir.Function) int {
	n := 0
	for _, b := range f.Blocks() {
		n += b.Len()
	}
	return n
}

// inlineCall performs the four-step split-clone-stitch transformation
// for a single call instruction.
func inlineCall(m *ir.Module, caller *ir.Function, call *ir.Instruction) {
	callee := call.Callee
	callBlock := call.Block

	b := ir.NewBuilder(m)
	b.UseFunction(caller)

	// Step 1: split callBlock after call into before|after.
	after := splitBlockAfter(b, caller, callBlock, call)

	// Step 2: clone every block and instruction of callee into caller.
	blockMap := map[*ir.BasicBlock]*ir.BasicBlock{}
	for _, cb := range callee.Blocks() {
		blockMap[cb] = b.CreateBlock(cb.Label + ".inl")
	}

	valueMap := map[*ir.Value]*ir.Value{}
	args := call.CallArgs()
	for i, param := range callee.Params {
		valueMap[param] = args[i]
	}

	var retPhiIncoming []ir.PhiIncoming
	for _, cb := range callee.Blocks() {
		nb := blockMap[cb]
		b.SetInsertPoint(nb)
		for _, inst := range cb.Instructions() {
			switch inst.Opcode {
			case ir.OpPhi:
				np := b.EmitPhi(inst.Result.Type)
				valueMap[inst.Result] = np.Result
				for _, in := range inst.Incoming() {
					ir.AddIncoming(np, mapValue(valueMap, in.Value), blockMap[in.Block])
				}
			case ir.OpRet:
				var retVal *ir.Value
				if v := inst.RetValue(); v != nil {
					retVal = mapValue(valueMap, v)
				}
				b.EmitBr(after)
				if retVal != nil {
					retPhiIncoming = append(retPhiIncoming, ir.PhiIncoming{Value: retVal, Block: nb})
				}
			case ir.OpBr:
				b.EmitBr(blockMap[inst.BrTarget()])
			case ir.OpCondBr:
				b.EmitCondBr(mapValue(valueMap, inst.CondBrCondition()), blockMap[inst.CondBrTrue()], blockMap[inst.CondBrFalse()])
			default:
				nv := cloneInstruction(b, inst, valueMap)
				if inst.Result != nil && nv != nil {
					valueMap[inst.Result] = nv
				}
			}
		}
	}

	// Step 3: callBlock has no terminator yet (splitBlockAfter moved the
	// original one into after); give it one branching to the cloned entry.
	b.SetInsertPoint(callBlock)
	b.EmitBr(blockMap[callee.Entry])

	// Step 4: merge return values, RAUW the call, erase it.
	if call.Result != nil {
		var resultVal *ir.Value
		if len(retPhiIncoming) == 1 {
			resultVal = retPhiIncoming[0].Value
		} else if len(retPhiIncoming) > 1 {
			phi := b.InsertPhiAtBlockStart(after, call.Result.Type, call.Result.Name+".inl")
			for _, in := range retPhiIncoming {
				ir.AddIncoming(phi, in.Value, in.Block)
			}
			resultVal = phi.Result
		}
		if resultVal != nil {
			ir.ReplaceAllUsesWith(call.Result, resultVal)
		}
	}
	ir.EraseInstruction(call)

	caller.InvalidateAnalyses()
	SimplifyCFG{}.Run(caller)
}

func mapValue(valueMap map[*ir.Value]*ir.Value, v *ir.Value) *ir.Value {
	if nv, ok := valueMap[v]; ok {
		return nv
	}
	return v
}

// splitBlockAfter splits blk immediately after call: every instruction
// following call (including blk's terminator) moves into a fresh
// successor block, which is returned. call itself, and everything
// before it, stays in blk.
func splitBlockAfter(b *ir.Builder, f *ir.Function, blk *ir.BasicBlock, call *ir.Instruction) *ir.BasicBlock {
	after := b.CreateBlock(blk.Label + ".cont")

	var toMove []*ir.Instruction
	started := false
	for _, inst := range blk.Instructions() {
		if started {
			toMove = append(toMove, inst)
		}
		if inst == call {
			started = true
		}
	}
	for _, inst := range toMove {
		ir.MoveInstructionToEnd(inst, after)
	}
	return after
}
