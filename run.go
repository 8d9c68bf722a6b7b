package shadercompile

import (
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/shadercompile/vcs/internal/parallel"
)

// Run owns all per-invocation state for one Compile call: the configured
// entries, the in-progress accumulators, and the shared stop flag. This
// replaces the process-wide globals the design describes (§9: "Global
// tables ... re-model as a single owned context passed down explicitly"),
// mirroring the teacher's avoidance of package-level mutable state outside
// the one documented logger atomic (logger.go).
type Run struct {
	cfg      Config
	compiler Compiler
	entries  []*ShaderEntry

	accumulatorMu locker
	accumulators  map[string]*ShaderAccumulator

	started atomic.Bool
	stop    atomic.Bool
}

// NewRun builds a Run from a validated Config, a Compiler collaborator, and
// the already-parsed shader entries (produced by a Parser collaborator and
// AssignCommandRanges upstream; see internal/fixture for a test/demo
// implementation).
func NewRun(cfg Config, compiler Compiler, entries []*ShaderEntry) *Run {
	accumulators := make(map[string]*ShaderAccumulator, len(entries))
	for _, e := range entries {
		accumulators[e.Name] = newShaderAccumulator(e.Name)
	}
	return &Run{
		cfg:           cfg,
		compiler:      compiler,
		entries:       entries,
		accumulatorMu: newDispatchLock(cfg.effectiveThreads()),
		accumulators:  accumulators,
	}
}

func (run *Run) accumulatorFor(name string) *ShaderAccumulator {
	acc, ok := run.accumulators[name]
	if !ok {
		// Every entry's accumulator is pre-created in NewRun; reaching
		// here means an entry was dispatched that NewRun never saw.
		assertInvariant(false, "accumulatorFor: unregistered shader "+name)
		acc = newShaderAccumulator(name)
		run.accumulators[name] = acc
	}
	return acc
}

// buildCommand translates a combo handle into the BuildCommand the
// Compiler collaborator expects, decoding the handle's axis assignment
// into macro defines in declaration order (§6).
func (run *Run) buildCommand(entry *ShaderEntry, h ComboHandle) (BuildCommand, error) {
	local := h.CommandNumber() - entry.CommandStart
	values, err := entry.Space.Decode(local)
	if err != nil {
		return BuildCommand{}, fmt.Errorf("%w: decoding command %d: %v", ErrInvariantBroken, h.CommandNumber(), err)
	}
	macros := make([]Macro, 0, len(entry.Space.Axes()))
	for _, ax := range entry.Space.Axes() {
		macros = append(macros, Macro{Name: ax.Name, Value: fmt.Sprintf("%d", values[ax.Name])})
	}
	return BuildCommand{
		SourcePath: entry.SourcePath,
		EntryPoint: entry.EntryPoint,
		Target:     entry.Target,
		Macros:     macros,
		Flags:      run.cfg.CompileFlags,
	}, nil
}

// Compile runs every configured entry to completion, writing one VCS
// archive per shader, and returns the process exit code described in §6:
// 0 on full success, the count of shaders that had at least one compile
// error otherwise. Compile must not be called more than once on a Run.
func (run *Run) Compile() (int, error) {
	if !run.started.CompareAndSwap(false, true) {
		return 0, ErrAlreadyRunning
	}

	logger := Logger()
	workers := run.cfg.effectiveThreads()

	for _, entry := range run.entries {
		if run.stop.Load() {
			break
		}
		logger.Info("compiling shader", "shader", entry.Name, "combos", entry.NumCombos())

		d := newEntryDispatcher(run, entry, newDispatchLock(workers))
		pool := parallel.NewPool(workers)
		pool.Run(func(worker int) {
			d.runWorker(worker, run.compiler, &run.stop, run.cfg.FastFail)
		})

		acc := run.accumulatorFor(entry.Name)
		stopped := run.stop.Load()
		if acc.HadError || stopped {
			if stopped && !acc.HadError {
				logger.Warn("compile stopped before shader finished, archive not written", "shader", entry.Name)
			} else {
				logger.Warn("shader had compile errors, archive not written", "shader", entry.Name)
			}
			if err := RemoveVCSFile(run.cfg.ShaderRoot, entry.Name); err != nil {
				logger.Error("removing stale archive failed", "shader", entry.Name, "error", err)
			}
			continue
		}

		meta := ArchiveMeta{
			TotalCombos:   int32(entry.NumCombos()),
			DynamicCombos: int32(entry.Space.NumDynamicCombos()),
			CentroidMask:  entry.CentroidMask,
			SourceCRC32:   entry.SourceCRC32,
		}
		if err := acc.WriteVCSFile(run.cfg.ShaderRoot, meta); err != nil {
			logger.Error("writing archive failed", "shader", entry.Name, "error", err)
			acc.HadError = true
		} else {
			logger.Info("shader archive written", "shader", entry.Name)
		}
	}

	return run.exitCode(), nil
}

// exitCode counts shaders with at least one compile error (§6, §8 invariant 8).
func (run *Run) exitCode() int {
	names := make([]string, 0, len(run.accumulators))
	for name := range run.accumulators {
		names = append(names, name)
	}
	sort.Strings(names)

	failures := 0
	for _, name := range names {
		if run.accumulators[name].HadError {
			failures++
		}
	}
	return failures
}

// Stop requests a clean shutdown: workers finish their current combo then
// exit (§4.D cancellation). Safe to call concurrently and more than once.
func (run *Run) Stop() {
	run.stop.Store(true)
}

// Accumulator exposes a shader's accumulator for inspection after Compile
// returns (warnings, errors, had-error flag).
func (run *Run) Accumulator(name string) (*ShaderAccumulator, error) {
	acc, ok := run.accumulators[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownShader, name)
	}
	return acc, nil
}
