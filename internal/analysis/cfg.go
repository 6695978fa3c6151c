// Package analysis computes the derived structural facts that sit on
// top of the arena-owned IR: control-flow edges, dominance, and natural
// loops. Every result here is cached on the
// ir.Function/ir.BasicBlock it describes and must be recomputed via
// ir.Function.InvalidateAnalyses whenever a transform changes control
// flow.
package analysis

import "github.com/sereinwalker/sysy-ir/internal/ir"

// BuildCFG derives Preds/Succs for every block in f from its
// terminators and caches a reverse-postorder traversal from Entry.
// Unreachable blocks (no path from Entry) are omitted from
// the RPO but still retain whatever Preds/Succs their own terminators
// and callers' terminators establish.
func BuildCFG(f *ir.Function) []*ir.BasicBlock {
	blocks := f.Blocks()
	succs := make(map[*ir.BasicBlock][]*ir.BasicBlock, len(blocks))
	preds := make(map[*ir.BasicBlock][]*ir.BasicBlock, len(blocks))

	for _, b := range blocks {
		term := b.Terminator()
		if term == nil {
			continue
		}
		for _, s := range term.Successors() {
			succs[b] = append(succs[b], s)
			preds[s] = append(preds[s], b)
		}
	}
	for _, b := range blocks {
		b.Succs = succs[b]
		b.Preds = preds[b]
	}

	rpo := reversePostorder(f.Entry)
	f.SetRPO(rpo)
	return rpo
}

// reversePostorder walks the CFG reachable from entry and returns blocks
// in reverse-postorder, the traversal order every fixed-point dataflow
// pass here iterates in for fast convergence.
func reversePostorder(entry *ir.BasicBlock) []*ir.BasicBlock {
	if entry == nil {
		return nil
	}
	visited := make(map[*ir.BasicBlock]bool)
	var post []*ir.BasicBlock

	var visit func(b *ir.BasicBlock)
	visit = func(b *ir.BasicBlock) {
		if visited[b] {
			return
		}
		visited[b] = true
		for _, s := range b.Succs {
			visit(s)
		}
		post = append(post, b)
	}
	visit(entry)

	rpo := make([]*ir.BasicBlock, len(post))
	for i, b := range post {
		rpo[len(post)-1-i] = b
	}
	return rpo
}

// Reachable returns the set of blocks reachable from f.Entry, used by
// SimplifyCFG to identify and delete unreachable blocks.
func Reachable(f *ir.Function) map[*ir.BasicBlock]bool {
	set := make(map[*ir.BasicBlock]bool)
	for _, b := range EnsureRPO(f) {
		set[b] = true
	}
	return set
}

// EnsureRPO returns f's cached RPO, computing it first if necessary.
func EnsureRPO(f *ir.Function) []*ir.BasicBlock {
	if rpo := f.RPO(); rpo != nil {
		return rpo
	}
	return BuildCFG(f)
}
