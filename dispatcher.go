package shadercompile

import (
	"fmt"
	"sync/atomic"

	"github.com/shadercompile/vcs/internal/blockpack"
)

// entryDispatcher holds one shader entry's dispatch state (§4.D): the
// shared cursor, the set of commands currently owned by workers, and the
// packaging watermark. All fields are guarded by lock; for Threads == 1
// that lock is a noopLock and there is exactly one worker, so the guarding
// is free (§9: mutex that vanishes in single-threaded mode).
type entryDispatcher struct {
	run   *Run
	entry *ShaderEntry
	iter  *ComboIterator
	lock  locker

	// cur/curOK are the shared "current handle" (§9: move-and-replace):
	// the dispatcher holds the single authoritative next handle to hand
	// out; each worker receives a clone.
	cur   ComboHandle
	curOK bool

	// inFlight maps worker id to the command number it last acquired.
	// An entry is overwritten on the worker's next acquire, not deleted,
	// so that the watermark computation below still sees the worker's
	// just-finished command until it either grabs new work or exits
	// (exitWorker deletes it). The highest value across all workers bounds
	// how far the packaging watermark may advance (see
	// advanceWatermarkLocked).
	inFlight map[int]int64

	// lastFinished is the packaging watermark: every command with a global
	// command number > lastFinished has finished, and every static combo
	// lying entirely above it has been sealed. It starts at
	// entry.CommandEnd (nothing sealed yet) and decreases toward
	// entry.CommandStart as work completes (§5: "non-decreasing in
	// descending-index space").
	lastFinished int64
}

func newEntryDispatcher(run *Run, entry *ShaderEntry, lock locker) *entryDispatcher {
	d := &entryDispatcher{
		run:          run,
		entry:        entry,
		iter:         NewComboIterator(entry),
		lock:         lock,
		inFlight:     make(map[int]int64),
		lastFinished: entry.CommandEnd,
	}
	d.cur, d.curOK = d.iter.First()
	return d
}

// acquire hands worker the current combo handle and advances the shared
// cursor, or reports ok=false once the entry is exhausted (§4.D step 1).
func (d *entryDispatcher) acquire(worker int) (ComboHandle, bool) {
	d.lock.Lock()
	defer d.lock.Unlock()

	if !d.curOK {
		return ComboHandle{}, false
	}
	h := d.cur.Clone()
	d.inFlight[worker] = h.CommandNumber()
	d.cur, d.curOK = d.iter.GetNext(h)
	return h, true
}

// tryPackage re-evaluates the packaging watermark after a worker finishes a
// compile (§4.D step 6). The worker's own in_flight entry is left in place
// (still pointing at the command it just finished) until its next acquire,
// so this call alone never advances the watermark past that worker's own
// position — only a later acquire, or exitWorker, can do that.
func (d *entryDispatcher) tryPackage() {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.advanceWatermarkLocked()
}

// exitWorker retires worker's slot for good: called once the worker has no
// more combos to acquire (iterator exhausted, or stop requested). Removing
// the slot lets the watermark advance past it if it was the last one
// blocking progress.
func (d *entryDispatcher) exitWorker(worker int) {
	d.lock.Lock()
	defer d.lock.Unlock()
	delete(d.inFlight, worker)
	d.advanceWatermarkLocked()
}

// advanceWatermarkLocked must be called with lock held. Every value in
// in_flight is either a worker's currently-executing command or a command
// it has already finished but not yet superseded by its next acquire (§9:
// entries are only ever overwritten, never deleted mid-loop). A dispensed
// command number that is no longer in in_flight has necessarily already been
// superseded by its worker's next acquire (or retired by exitWorker), which
// only happens after that worker finishes it — so every dispensed command strictly greater than
// max(in_flight) is guaranteed finished, and max(in_flight) itself is the
// new watermark. This is why the reduction is a max, not a min: descending
// iteration means the highest still-held command is the slowest worker's
// position, and it alone bounds what the whole group has finished.
func (d *entryDispatcher) advanceWatermarkLocked() {
	frontier := d.entry.CommandStart - 1
	for _, cmd := range d.inFlight {
		if cmd > frontier {
			frontier = cmd
		}
	}
	if frontier >= d.lastFinished {
		return
	}
	prevFrontier := d.lastFinished
	d.lastFinished = frontier
	d.run.sealRange(d.entry, frontier, prevFrontier)
}

// sealRange seals every static combo of entry whose full dynamic range lies
// entirely above newFrontier and at or below prevFrontier — the static
// combos that have newly become fully finished since the watermark last
// advanced (§4.D step 6, §4.E.1).
func (run *Run) sealRange(entry *ShaderEntry, newFrontier, prevFrontier int64) {
	acc := run.accumulatorFor(entry.Name)
	numDynamic := entry.Space.NumDynamicCombos()

	localNew := newFrontier - entry.CommandStart
	localPrev := prevFrontier - entry.CommandStart

	firstStatic := floorDiv(localNew, numDynamic) + 1
	lastStatic := floorDiv(localPrev, numDynamic)

	run.accumulatorMu.Lock()
	defer run.accumulatorMu.Unlock()
	for id := firstStatic; id <= lastStatic; id++ {
		if sc, ok := acc.statics[id]; ok && !sc.sealed() {
			sc.seal(packBlocks)
		}
	}
}

// floorDiv is integer division rounding toward negative infinity, unlike
// Go's built-in "/" which truncates toward zero. sealRange's bounds can go
// negative (entry.CommandStart-1 below the first command), where the
// distinction matters.
func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// packBlocks adapts a StaticCombo's accumulated blocks into
// internal/blockpack's record type and packs them (§4.E.1).
func packBlocks(blocks []ByteCodeBlock) []byte {
	records := make([]blockpack.Record, len(blocks))
	for i, b := range blocks {
		records[i] = blockpack.Record{DynamicComboID: b.DynamicComboID, Payload: b.Payload}
	}
	return blockpack.Pack(records)
}

// runWorker is one worker goroutine's body for entry's dispatcher (§4.D
// worker loop). It runs identically whether Threads == 1 (noopLock) or
// Threads > 1 (mutexLock) — no branch duplicates this loop.
func (d *entryDispatcher) runWorker(worker int, compiler Compiler, stop *atomic.Bool, fastFail bool) {
	acc := d.run.accumulatorFor(d.entry.Name)
	logger := Logger()

	for {
		if stop.Load() {
			break
		}
		h, ok := d.acquire(worker)
		if !ok {
			break
		}

		cmd, err := d.run.buildCommand(d.entry, h)
		var resp Response
		if err == nil {
			logger.Debug("dispatching combo", "shader", d.entry.Name, "command", h.CommandNumber())
			resp, err = compiler.ExecuteCommand(cmd)
		}

		commandText, ferr := d.entry.Space.FormatCommand(d.entry.Name, h.CommandNumber()-d.entry.CommandStart)
		if ferr != nil {
			commandText = d.entry.Name
		}

		d.run.accumulatorMu.Lock()
		if err != nil || !resp.Succeeded {
			acc.HadError = true
			compileErr := err
			if compileErr == nil {
				compileErr = ErrCompileFailed
			} else {
				compileErr = fmt.Errorf("%w: %v", ErrCompileFailed, compileErr)
			}
			logger.Error("compile failed", "shader", d.entry.Name, "command", commandText, "error", compileErr)
			if fastFail {
				logger.Warn("fast-fail triggered, stopping all workers", "shader", d.entry.Name)
				stop.Store(true)
			}
		} else {
			staticID := d.entry.Space.StaticID(h.CommandNumber() - d.entry.CommandStart)
			dynamicID := d.entry.Space.DynamicID(h.CommandNumber() - d.entry.CommandStart)
			acc.staticCombo(staticID).add(ByteCodeBlock{DynamicComboID: dynamicID, Payload: resp.ResultBytes})
		}
		if resp.Listing != "" {
			acc.recordListing(resp.Listing, commandText)
		}
		d.run.accumulatorMu.Unlock()

		d.tryPackage()
	}
	d.exitWorker(worker)
}
