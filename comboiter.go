package shadercompile

// ComboIterator lazily enumerates a shader entry's alive combo indices in
// descending order (§4.C), pruning with the entry's Evaluator. Descent is
// driven by the axis tree in ComboSpace.descentOrder: as soon as a prefix
// of assigned axes proves definitely_skip, the whole pruned subtree is
// skipped by jumping the candidate index down by that subtree's size,
// rather than visiting it combo by combo.
//
// ComboIterator itself holds no mutable cursor — GetNext takes the current
// handle and returns the next one — so it is safe for concurrent use across
// disjoint handles, per §4.C's thread-safety note.
type ComboIterator struct {
	entry   *ShaderEntry
	ordered []Axis
	weights []int64
}

// NewComboIterator builds an iterator over entry's combo space.
func NewComboIterator(entry *ShaderEntry) *ComboIterator {
	return &ComboIterator{
		entry:   entry,
		ordered: entry.Space.descentOrder(),
		weights: entry.Space.descentWeights(),
	}
}

// GetCombo returns a handle for an exact command number, without any
// aliveness check. command must lie in [entry.CommandStart, entry.CommandEnd).
func (it *ComboIterator) GetCombo(command int64) (ComboHandle, bool) {
	if command < it.entry.CommandStart || command >= it.entry.CommandEnd {
		return ComboHandle{}, false
	}
	return ComboHandle{entry: it.entry, command: command}, true
}

// First returns the highest-indexed alive combo in the entry, or ok=false
// if every combo is pruned.
func (it *ComboIterator) First() (ComboHandle, bool) {
	return it.nextBefore(it.entry.CommandEnd)
}

// GetNext returns the next alive combo strictly less than current's command
// number, or ok=false if none remain (descent has reached CommandStart).
func (it *ComboIterator) GetNext(current ComboHandle) (ComboHandle, bool) {
	return it.nextBefore(current.command)
}

// nextBefore returns the highest alive command number strictly less than
// beforeCommand, within this entry's range.
func (it *ComboIterator) nextBefore(beforeCommand int64) (ComboHandle, bool) {
	candidate := beforeCommand - 1

	for candidate >= it.entry.CommandStart {
		local := candidate - it.entry.CommandStart
		values, decErr := it.entry.Space.Decode(local)
		if decErr != nil {
			// Unreachable for a well-formed entry: local is always in range
			// because candidate was bounds-checked above.
			return ComboHandle{}, false
		}

		subtreeSize, skipped := it.firstSkippedSubtreeSize(values)
		if !skipped {
			return ComboHandle{entry: it.entry, command: candidate}, true
		}

		subtreeStartLocal := local - (local % subtreeSize)
		candidate = it.entry.CommandStart + subtreeStartLocal - 1
	}

	return ComboHandle{}, false
}

// firstSkippedSubtreeSize walks axes in descent order, building up a
// partial assignment, and returns the weight of the first axis at which the
// Evaluator proves definitely_skip. skipped is false if no prefix proves
// skip (i.e. the full combo is alive).
func (it *ComboIterator) firstSkippedSubtreeSize(values map[string]int64) (size int64, skipped bool) {
	partial := make(Assignment, len(it.ordered))
	for i, ax := range it.ordered {
		partial[ax.Name] = values[ax.Name]
		if it.entry.Eval.DefinitelySkip(partial) {
			return it.weights[i], true
		}
	}
	return 0, false
}
