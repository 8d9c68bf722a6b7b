package shadercompile

import "fmt"

// ShaderEntry describes one shader to compile: its axis layout, skip
// expression, entry point, and target, plus the global combo-index range
// this entry occupies (§3). ShaderEntry is built once from the
// configuration (via the Parser collaborator) and is immutable thereafter.
type ShaderEntry struct {
	Name         string
	SourcePath   string
	EntryPoint   string
	Target       string
	SourceCRC32  uint32
	CentroidMask uint32

	Space *ComboSpace
	Eval  *Evaluator

	// CommandStart/CommandEnd is this entry's half-open slice of the
	// global combo-index space. Assigned by AssignCommandRanges so that
	// entries are laid out back-to-back: entry[i].CommandEnd ==
	// entry[i+1].CommandStart.
	CommandStart int64
	CommandEnd   int64
}

// NewShaderEntry builds an immutable ShaderEntry. skipExpr may be empty,
// meaning no combo is ever skipped. target is normalized for the one
// documented shader-model quirk (see normalizeTargetQuirk) before storage.
func NewShaderEntry(name, sourcePath, entryPoint, target string, axes []Axis, skipExpr string, sourceCRC32 uint32) (*ShaderEntry, error) {
	space, err := NewComboSpace(axes)
	if err != nil {
		return nil, fmt.Errorf("shader entry %q: %w", name, err)
	}
	eval, err := NewEvaluator(skipExpr)
	if err != nil {
		return nil, fmt.Errorf("shader entry %q: %w", name, err)
	}
	return &ShaderEntry{
		Name:        name,
		SourcePath:  sourcePath,
		EntryPoint:  entryPoint,
		Target:      normalizeTargetQuirk(target, entryPoint),
		SourceCRC32: sourceCRC32,
		Space:       space,
		Eval:        eval,
	}, nil
}

// normalizeTargetQuirk folds shader model "20b" to "20" for vertex shaders
// only. This reproduces a legacy target-string quirk documented as an open
// question in the design: vs_20b and vs_20 are treated identically, but the
// same folding does not apply to pixel shader targets. It is intentionally
// not generalized to other version strings.
func normalizeTargetQuirk(target, entryPoint string) string {
	const vertexPrefix = "vs_"
	if len(target) >= len(vertexPrefix) && target[:len(vertexPrefix)] == vertexPrefix {
		if target == "vs_20b" {
			return "vs_20"
		}
	}
	_ = entryPoint // kept for signature symmetry with the Parser collaborator
	return target
}

// NumCombos returns the total number of combo indices in this entry's
// range (CommandEnd - CommandStart), equivalently Space.NumCombos().
func (e *ShaderEntry) NumCombos() int64 {
	return e.CommandEnd - e.CommandStart
}

// globalToLocal translates a global command number into this entry's local
// combo index.
func (e *ShaderEntry) globalToLocal(command int64) int64 {
	return command - e.CommandStart
}

// AssignCommandRanges lays entries out back-to-back in one global combo
// index space, in the given slice order, and returns the total command
// count. This enforces the contiguity invariant:
// entry[i].CommandEnd == entry[i+1].CommandStart.
func AssignCommandRanges(entries []*ShaderEntry) int64 {
	var cursor int64
	for _, e := range entries {
		e.CommandStart = cursor
		cursor += e.Space.NumCombos()
		e.CommandEnd = cursor
	}
	return cursor
}
