package shadercompile

import "errors"

// Sentinel errors, one per error kind in the design's error taxonomy.
// Wrap with fmt.Errorf("...: %w", err) at the call site so callers can
// classify failures with errors.Is/errors.As.
var (
	// ErrConfigInvalid reports a ConfigurationError: bad CLI input, a
	// missing shader root, or a malformed axis declaration. The process
	// should exit immediately on this error.
	ErrConfigInvalid = errors.New("shadercompile: invalid configuration")

	// ErrCompileFailed reports a CompileFailure: a Response.Succeeded ==
	// false from the Compiler collaborator. Non-fatal unless FastFail is
	// configured.
	ErrCompileFailed = errors.New("shadercompile: compile failed")

	// ErrIO reports an IOError during archive emission: directory
	// creation, permission relaxation, or file write failure.
	ErrIO = errors.New("shadercompile: archive I/O failed")

	// ErrInvariantBroken reports an InternalInvariantBroken condition —
	// a core bug, such as a static combo lookup that should succeed but
	// doesn't. Code that returns this error has already corrupted no
	// state; callers should treat it as fatal.
	ErrInvariantBroken = errors.New("shadercompile: internal invariant broken")

	// ErrUnknownShader is returned by operations addressing a shader name
	// that was never registered in the Run.
	ErrUnknownShader = errors.New("shadercompile: unknown shader")

	// ErrAlreadyRunning is returned by Compile if called twice on the same
	// Run.
	ErrAlreadyRunning = errors.New("shadercompile: run already started")
)

// debugAssertions gates panics on invariants that must never fire in a
// correct build. Left false in normal operation; flip during development
// to turn InternalInvariantBroken conditions into immediate stack traces.
const debugAssertions = false

// assertInvariant panics with msg if debugAssertions is enabled and cond is
// false. It is a no-op otherwise, so callers must still return
// ErrInvariantBroken through the normal error path.
func assertInvariant(cond bool, msg string) {
	if debugAssertions && !cond {
		panic("shadercompile: invariant violated: " + msg)
	}
}
