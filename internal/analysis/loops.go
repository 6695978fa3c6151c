package analysis

import "github.com/sereinwalker/sysy-ir/internal/ir"

// FindLoops discovers every natural loop in f by looking for back edges
// (an edge b -> h where h dominates b) over the dominator tree that
// ComputeDominators must already have populated, then nests loops whose
// header is contained in another loop's body. Results are
// cached on f via SetLoops.
func FindLoops(f *ir.Function) *ir.LoopForest {
	rpo := EnsureRPO(f)
	byHeader := make(map[*ir.BasicBlock]*ir.Loop)
	var headers []*ir.BasicBlock

	for _, b := range rpo {
		for _, s := range b.Succs {
			if Dominates(s, b) {
				loop, exists := byHeader[s]
				if !exists {
					loop = &ir.Loop{Header: s, Latch: b}
					byHeader[s] = loop
					headers = append(headers, s)
				}
				loop.Blocks = mergeBody(loop.Blocks, collectBody(s, b))
			}
		}
	}

	nestLoops(headers, byHeader)

	innermost := make(map[*ir.BasicBlock]*ir.Loop)
	for _, h := range headers {
		l := byHeader[h]
		for _, b := range l.Blocks {
			cur, ok := innermost[b]
			if !ok || len(l.Blocks) < len(cur.Blocks) {
				innermost[b] = l
			}
		}
	}
	for b, l := range innermost {
		b.LoopDepth = l.Depth
	}

	var outermost []*ir.Loop
	for _, h := range headers {
		l := byHeader[h]
		if l.Parent == nil {
			outermost = append(outermost, l)
		}
	}

	lf := &ir.LoopForest{Outermost: outermost, ByHeader: byHeader, Innermost: innermost}
	f.SetLoops(lf)
	return lf
}

// collectBody walks predecessors backward from the latch up to (and
// including) the header, the standard natural-loop body construction.
func collectBody(header, latch *ir.BasicBlock) []*ir.BasicBlock {
	body := []*ir.BasicBlock{header}
	if latch == header {
		return body
	}
	seen := map[*ir.BasicBlock]bool{header: true, latch: true}
	body = append(body, latch)
	worklist := []*ir.BasicBlock{latch}
	for len(worklist) > 0 {
		b := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		for _, p := range b.Preds {
			if !seen[p] {
				seen[p] = true
				body = append(body, p)
				worklist = append(worklist, p)
			}
		}
	}
	return body
}

func mergeBody(existing, add []*ir.BasicBlock) []*ir.BasicBlock {
	for _, b := range add {
		existing = appendIfAbsent(existing, b)
	}
	return existing
}

// nestLoops assigns Parent/Children/Depth by containment: a loop L1 is
// nested in L2 when L2's body is a strict superset of L1's body
// containing L1's header.
func nestLoops(headers []*ir.BasicBlock, byHeader map[*ir.BasicBlock]*ir.Loop) {
	for _, h1 := range headers {
		l1 := byHeader[h1]
		var best *ir.Loop
		for _, h2 := range headers {
			if h1 == h2 {
				continue
			}
			l2 := byHeader[h2]
			if len(l2.Blocks) > len(l1.Blocks) && l2.Contains(h1) {
				if best == nil || len(l2.Blocks) < len(best.Blocks) {
					best = l2
				}
			}
		}
		l1.Parent = best
	}
	for _, h := range headers {
		l := byHeader[h]
		if l.Parent != nil {
			l.Parent.Children = append(l.Parent.Children, l)
		}
	}
	var setDepth func(l *ir.Loop, depth int)
	setDepth = func(l *ir.Loop, depth int) {
		l.Depth = depth
		for _, c := range l.Children {
			setDepth(c, depth+1)
		}
	}
	for _, h := range headers {
		l := byHeader[h]
		if l.Parent == nil {
			setDepth(l, 1)
		}
	}
}

// EnsurePreheader returns l's preheader block, creating one unless the
// header has exactly one predecessor outside the loop and that block ends
// in an unconditional br, since LICM requires a single entry edge to
// hoist into. f must
// be the function owning l; analyses must be recomputed by the caller
// after this mutates control flow.
func EnsurePreheader(f *ir.Function, b *ir.Builder, l *ir.Loop) *ir.BasicBlock {
	if l.Preheader != nil {
		return l.Preheader
	}

	var outside []*ir.BasicBlock
	for _, p := range l.Header.Preds {
		if !l.Contains(p) {
			outside = append(outside, p)
		}
	}
	if len(outside) == 1 && outside[0].Terminator().Opcode == ir.OpBr {
		l.Preheader = outside[0]
		return l.Preheader
	}

	preheader := f.AppendLoopPreheader(l.Header)
	b.SetInsertPoint(preheader)
	b.EmitBr(l.Header)

	for _, p := range outside {
		retargetTerminator(p.Terminator(), l.Header, preheader)
	}
	rehomePhiIncoming(b, l.Header, outside, preheader)

	f.InvalidateAnalyses()
	l.Preheader = preheader
	return preheader
}

func containsBlock(list []*ir.BasicBlock, b *ir.BasicBlock) bool {
	for _, x := range list {
		if x == b {
			return true
		}
	}
	return false
}

func retargetTerminator(term *ir.Instruction, from, to *ir.BasicBlock) {
	switch term.Opcode {
	case ir.OpBr:
		if term.BrTarget() == from {
			ir.ChangeOperandBlock(term.Operands()[0], to)
		}
	case ir.OpCondBr:
		if term.CondBrTrue() == from {
			ir.ChangeOperandBlock(term.Operands()[1], to)
		}
		if term.CondBrFalse() == from {
			ir.ChangeOperandBlock(term.Operands()[2], to)
		}
	}
}

// rehomePhiIncoming collapses every incoming edge from a now-redirected
// outside predecessor onto the new preheader. When those edges carried
// more than one distinct value, a merging phi is inserted in the
// preheader itself so the header phi still sees exactly one value per
// predecessor.
func rehomePhiIncoming(b *ir.Builder, header *ir.BasicBlock, outside []*ir.BasicBlock, preheader *ir.BasicBlock) {
	for _, phi := range header.Phis() {
		var keptIncoming []ir.PhiIncoming
		var fromOutside []ir.PhiIncoming
		for _, in := range phi.Incoming() {
			if containsBlock(outside, in.Block) {
				fromOutside = append(fromOutside, in)
			} else {
				keptIncoming = append(keptIncoming, in)
			}
		}
		if len(fromOutside) == 0 {
			continue
		}

		merged := fromOutside[0].Value
		if distinctValues(fromOutside) {
			b.SetInsertPoint(preheader)
			mergePhi := b.InsertPhiAtBlockStart(preheader, phi.Result.Type, "preheader.merge")
			for _, in := range fromOutside {
				ir.AddIncoming(mergePhi, in.Value, in.Block)
			}
			merged = mergePhi.Result
		}
		keptIncoming = append(keptIncoming, ir.PhiIncoming{Value: merged, Block: preheader})

		newPhi := b.InsertPhiAtBlockStart(header, phi.Result.Type, phi.Result.Name)
		for _, in := range keptIncoming {
			ir.AddIncoming(newPhi, in.Value, in.Block)
		}
		ir.ReplaceAllUsesWith(phi.Result, newPhi.Result)
		ir.EraseInstruction(phi)
	}
}

func distinctValues(incoming []ir.PhiIncoming) bool {
	for _, in := range incoming[1:] {
		if in.Value != incoming[0].Value {
			return true
		}
	}
	return false
}
