package analysis

import "github.com/sereinwalker/sysy-ir/internal/ir"

// ComputeDominators populates IDom, DomChildren, and DomFrontier on
// every block reachable from f.Entry, using the standard iterative
// dataflow algorithm over reverse postorder followed by a
// DFS over the resulting dominator tree to stamp tin/tout discovery
// times for O(1) Dominates queries.
func ComputeDominators(f *ir.Function) {
	rpo := EnsureRPO(f)
	if len(rpo) == 0 {
		return
	}
	entry := rpo[0]

	rpoIndex := make(map[*ir.BasicBlock]int, len(rpo))
	for i, b := range rpo {
		rpoIndex[b] = i
	}

	idom := make(map[*ir.BasicBlock]*ir.BasicBlock, len(rpo))
	idom[entry] = entry

	changed := true
	for changed {
		changed = false
		for _, b := range rpo[1:] {
			var newIdom *ir.BasicBlock
			for _, p := range b.Preds {
				if idom[p] == nil {
					continue
				}
				if newIdom == nil {
					newIdom = p
					continue
				}
				newIdom = intersect(newIdom, p, idom, rpoIndex)
			}
			if newIdom != nil && idom[b] != newIdom {
				idom[b] = newIdom
				changed = true
			}
		}
	}

	for _, b := range rpo {
		if b == entry {
			b.IDom = nil
		} else {
			b.IDom = idom[b]
		}
		b.DomChildren = nil
		b.DomFrontier = nil
	}
	for _, b := range rpo {
		if b.IDom != nil {
			b.IDom.DomChildren = append(b.IDom.DomChildren, b)
		}
	}

	computeDominanceFrontiers(rpo, idom)
	stampTinTout(entry)
}

// intersect walks up the dominator tree from b1 and b2 until they meet,
// the "Cooper, Harvey, Kennedy" intersection step.
func intersect(b1, b2 *ir.BasicBlock, idom map[*ir.BasicBlock]*ir.BasicBlock, rpoIndex map[*ir.BasicBlock]int) *ir.BasicBlock {
	for b1 != b2 {
		for rpoIndex[b1] > rpoIndex[b2] {
			b1 = idom[b1]
		}
		for rpoIndex[b2] > rpoIndex[b1] {
			b2 = idom[b2]
		}
	}
	return b1
}

// computeDominanceFrontiers derives DF(b) for every block: the set of
// blocks where b's dominance "runs out", the exact set Mem2Reg needs to
// know where to insert phis.
func computeDominanceFrontiers(rpo []*ir.BasicBlock, idom map[*ir.BasicBlock]*ir.BasicBlock) {
	for _, b := range rpo {
		if len(b.Preds) < 2 {
			continue
		}
		for _, p := range b.Preds {
			runner := p
			for runner != idom[b] && runner != nil {
				runner.DomFrontier = appendIfAbsent(runner.DomFrontier, b)
				runner = idom[runner]
			}
		}
	}
}

func appendIfAbsent(list []*ir.BasicBlock, b *ir.BasicBlock) []*ir.BasicBlock {
	for _, x := range list {
		if x == b {
			return list
		}
	}
	return append(list, b)
}

// stampTinTout assigns DFS discovery/finish times over the dominator
// tree so Dominates can answer in O(1) without walking the tree per call.
func stampTinTout(entry *ir.BasicBlock) {
	clock := 0
	var visit func(b *ir.BasicBlock)
	visit = func(b *ir.BasicBlock) {
		clock++
		b.SetDomTimes(clock, 0)
		for _, c := range b.DomChildren {
			visit(c)
		}
		clock++
		b.SetDomTimes(b.DomTin(), clock)
	}
	visit(entry)
}

// Dominates reports whether a dominates b (reflexively: a dominates
// itself), answered in O(1) via the precomputed tin/tout interval.
func Dominates(a, b *ir.BasicBlock) bool {
	return a.DomTin() <= b.DomTin() && b.DomTout() <= a.DomTout()
}

// StrictlyDominates reports whether a dominates b and a != b.
func StrictlyDominates(a, b *ir.BasicBlock) bool {
	return a != b && Dominates(a, b)
}
