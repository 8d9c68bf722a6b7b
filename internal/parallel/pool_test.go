package parallel

import (
	"runtime"
	"sync/atomic"
	"testing"
)

func TestNewPoolSizesToGOMAXPROCS(t *testing.T) {
	for _, n := range []int{0, -5} {
		p := NewPool(n)
		if p.Workers() != runtime.GOMAXPROCS(0) {
			t.Errorf("NewPool(%d).Workers() = %d, want %d", n, p.Workers(), runtime.GOMAXPROCS(0))
		}
	}
}

func TestPoolRunInvokesEveryWorker(t *testing.T) {
	p := NewPool(4)

	var seen atomic.Int64
	p.Run(func(id int) {
		seen.Add(1)
		p.Stop()
	})

	if got := seen.Load(); got != 4 {
		t.Errorf("expected all 4 workers invoked, got %d", got)
	}
}

func TestPoolStopIsIdempotent(t *testing.T) {
	p := NewPool(2)
	p.Stop()
	p.Stop() // must not panic on double-close

	if !p.Stopped() {
		t.Error("Stopped() = false after Stop()")
	}
}

func TestPoolWorkersExitOnStop(t *testing.T) {
	p := NewPool(8)

	p.Run(func(id int) {
		for !p.Stopped() {
			// Simulate pulling combos until told to stop.
			p.Stop()
		}
	})
	// Run returning at all (no deadlock) is the assertion.
}
