package ir

// Function is a single SysY function definition: a name, a signature,
// and a set of basic blocks reachable from Entry. Declarations
// (extern/builtin functions with no body, e.g. getint/putint) have a nil
// Entry and an empty block list.
type Function struct {
	Name       string
	ReturnType *Type
	Params     []*Value // ValueArgument values, index-aligned with signature
	Variadic   bool

	Module *Module

	Entry *BasicBlock

	head, tail *BasicBlock
	blockCount int
	nextBlockID int
	nextInstID  int

	// IsDeclaration is true for functions with no body (external
	// builtins the compiler's runtime supplies).
	IsDeclaration bool

	// Cached analysis results, lazily computed and invalidated together
	// by InvalidateAnalyses: recomputed on demand, cached until
	// invalidated.
	cachedRPO   []*BasicBlock
	cachedLoops *LoopForest
}

// Signature returns the function's declared Type (used for call-site
// type checking and for values that name this function, e.g. a callee
// operand's Value.Type).
func (f *Function) Signature() *Type {
	params := make([]*Type, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.Type
	}
	return FunctionType(f.ReturnType, params, f.Variadic)
}

// Blocks returns the function's basic blocks in layout order (the order
// they were created, not RPO/dominance order). O(n).
func (f *Function) Blocks() []*BasicBlock {
	out := make([]*BasicBlock, 0, f.blockCount)
	for b := f.head; b != nil; b = b.next {
		out = append(out, b)
	}
	return out
}

// NumBlocks returns the number of blocks currently in the function.
func (f *Function) NumBlocks() int { return f.blockCount }

// appendBlock adds a new block to the end of the layout list and returns
// it; callers are responsible for setting Entry on the first block.
func (f *Function) appendBlock(label string) *BasicBlock {
	if label == "" {
		label = "bb"
	}
	b := &BasicBlock{Label: label, ID: f.nextBlockID, Func: f}
	f.nextBlockID++
	b.prev = f.tail
	if f.tail != nil {
		f.tail.next = b
	} else {
		f.head = b
	}
	f.tail = b
	f.blockCount++
	if f.Entry == nil {
		f.Entry = b
	}
	return b
}

// removeBlock unlinks an empty, unreferenced block from the layout list.
// Callers must have already removed every instruction in b and confirmed
// no remaining terminator references it.
func (f *Function) removeBlock(b *BasicBlock) {
	requireInvariant(b.count == 0, "ir: removeBlock on non-empty block %s", b.Label)
	if b.prev != nil {
		b.prev.next = b.next
	} else {
		f.head = b.next
	}
	if b.next != nil {
		b.next.prev = b.prev
	} else {
		f.tail = b.prev
	}
	if f.Entry == b {
		f.Entry = f.head
	}
	b.prev, b.next = nil, nil
	f.blockCount--
	f.InvalidateAnalyses()
}

// RemoveBlock unlinks an empty, unreferenced block from f, for use by
// transforms (SimplifyCFG) that have already erased every instruction
// in b and confirmed nothing still branches to it.
func (f *Function) RemoveBlock(b *BasicBlock) { f.removeBlock(b) }

// InvalidateAnalyses drops every cached CFG/dominator/loop result so the
// next analysis request recomputes from scratch. Every transform that
// changes control flow (adds/removes a block, changes a terminator's
// targets) must call this.
func (f *Function) InvalidateAnalyses() {
	f.cachedRPO = nil
	f.cachedLoops = nil
	for b := f.head; b != nil; b = b.next {
		b.Preds = nil
		b.Succs = nil
		b.IDom = nil
		b.DomChildren = nil
		b.DomFrontier = nil
		b.LoopDepth = 0
	}
}

// AppendLoopPreheader creates a new, empty block for analysis.
// EnsurePreheader to use as a loop preheader. Layout position does not
// affect semantics, only printing order, so the block is simply appended
// to the function's block list.
func (f *Function) AppendLoopPreheader(header *BasicBlock) *BasicBlock {
	return f.appendBlock(header.Label + ".preheader")
}

// RPO returns the function's cached reverse-postorder block list, or nil
// if analysis.BuildCFG has not filled it since the last invalidation.
func (f *Function) RPO() []*BasicBlock { return f.cachedRPO }

// SetRPO is called by internal/analysis to populate the cache; not for
// use by transform passes directly.
func (f *Function) SetRPO(order []*BasicBlock) { f.cachedRPO = order }

// Loops returns the function's cached loop forest, or nil if not yet
// computed.
func (f *Function) Loops() *LoopForest { return f.cachedLoops }

// SetLoops is called by internal/analysis to populate the cache.
func (f *Function) SetLoops(lf *LoopForest) { f.cachedLoops = lf }
