// Package shadercompile implements the core of a batch shader-compilation
// engine: given a set of shader entries, each describing a combinatorial
// parameter space of static and dynamic axes plus a skip expression, it
// enumerates every alive combo, dispatches the (externally supplied) compile
// step across a worker pool, deduplicates identical static-combo outputs,
// and serializes the results into a per-shader VCS archive.
//
// # Overview
//
// The engine is a pipeline of five components:
//
//   - the expression evaluator (expr_lexer.go, expr_ast.go, expr_eval.go)
//     answers whether a partial axis assignment definitely skips a combo;
//   - the combo space (combospace.go) translates between a combo index and
//     its axis assignments for one shader entry;
//   - the combo iterator (comboiter.go) lazily walks alive combo indices in
//     descending order, pruning with the evaluator;
//   - the dispatcher (dispatcher.go) hands combo handles to worker
//     goroutines, invokes the Compiler collaborator, and triggers in-order
//     packaging;
//   - the archive builder (accumulator.go, archive.go, plus the
//     internal/blockpack and internal/dedup packages) accumulates compiled
//     bytes, block-compresses them, deduplicates byte-identical static
//     combos, and writes the VCS file.
//
// # Collaborators
//
// Two collaborators are named contracts only — the production
// implementations live outside this package: Compiler invokes the actual
// HLSL toolchain, and Parser turns shader source into a ShaderConfig. This
// package ships a fixture Parser and a [compiler/naga] adapter for testing
// and demonstration; neither is the production path.
//
// # Concurrency
//
// A Run is built once from a Config and is not safe to reuse across
// concurrent calls to Compile. Within one Run, entries are processed
// sequentially by the caller, but the workers compiling one entry's combos
// run concurrently. See locker (lock.go) for how the single-threaded (Threads == 1)
// path avoids locking overhead without branching the dispatch loop.
package shadercompile

// Archive format version written into every VCS file's header.
const ShaderVCSVersionNumber uint32 = 4
