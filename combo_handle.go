package shadercompile

// ComboHandle is an opaque reference into the enumeration state for one
// (entry, combo-index) pair (§3). It owns no data beyond that pair, so
// Clone is a plain value copy — multiple handles may point at the same
// combo without aliasing any mutable state. Release exists for parity with
// the design's explicit create/free pairing; Go's garbage collector makes
// it a no-op.
type ComboHandle struct {
	entry   *ShaderEntry
	command int64
}

// Entry returns the shader entry this handle belongs to.
func (h ComboHandle) Entry() *ShaderEntry { return h.entry }

// CommandNumber returns this handle's global combo index.
func (h ComboHandle) CommandNumber() int64 { return h.command }

// Clone returns an independent copy of the handle. Because ComboHandle
// holds no pointers into shared mutable state, Clone is just a value copy;
// it exists so call sites can express "the dispatcher hands out a clone to
// each worker" explicitly, matching §9's move-and-replace model.
func (h ComboHandle) Clone() ComboHandle { return h }

// Release marks the handle as no longer in use. ComboHandle holds no
// resources that need explicit release; the method exists so the
// create/free pairing described in §3 has a concrete counterpart.
func (h ComboHandle) Release() {}
