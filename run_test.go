package shadercompile

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// mockCompiler records every command it receives and can be configured to
// fail on specific commands or to produce a shared listing string across
// several commands (to exercise warning-message deduplication).
type mockCompiler struct {
	mu       sync.Mutex
	failOn   map[string]bool
	listings map[string]string
	calls    int
}

func newMockCompiler() *mockCompiler {
	return &mockCompiler{failOn: map[string]bool{}, listings: map[string]string{}}
}

func (c *mockCompiler) ExecuteCommand(cmd BuildCommand) (Response, error) {
	key := cmd.SourcePath + "|" + macroKey(cmd.Macros)
	c.mu.Lock()
	c.calls++
	fail := c.failOn[key]
	listing := c.listings[key]
	c.mu.Unlock()

	if fail {
		return Response{Succeeded: false, Listing: listing}, nil
	}
	return Response{Succeeded: true, ResultBytes: []byte(key), Listing: listing}, nil
}

func macroKey(macros []Macro) string {
	s := ""
	for _, m := range macros {
		s += m.Name + "=" + m.Value + ";"
	}
	return s
}

// slowMockCompiler blocks every ExecuteCommand call on release until it is
// closed, closing started the first time a call arrives so a test can
// synchronize on "a combo is now in flight" before acting.
type slowMockCompiler struct {
	inner   *mockCompiler
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newSlowMockCompiler() *slowMockCompiler {
	return &slowMockCompiler{inner: newMockCompiler(), started: make(chan struct{}), release: make(chan struct{})}
}

func (c *slowMockCompiler) ExecuteCommand(cmd BuildCommand) (Response, error) {
	c.once.Do(func() { close(c.started) })
	<-c.release
	return c.inner.ExecuteCommand(cmd)
}

func oneEntry(t *testing.T, name string, axisHi int64) *ShaderEntry {
	t.Helper()
	e, err := NewShaderEntry(name, name+".fxc", "main", "ps_3_0",
		[]Axis{{Name: "A", Lo: 0, Hi: axisHi, Kind: AxisDynamic}}, "", 0)
	if err != nil {
		t.Fatalf("NewShaderEntry: %v", err)
	}
	return e
}

func TestRunCompileSucceedsAndWritesArchive(t *testing.T) {
	root := t.TempDir()
	entry := oneEntry(t, "basic", 3)
	AssignCommandRanges([]*ShaderEntry{entry})

	compiler := newMockCompiler()
	cfg := NewConfig(root, nil, WithThreads(2))
	run := NewRun(cfg, compiler, []*ShaderEntry{entry})

	code, err := run.Compile()
	if err != nil {
		t.Fatalf("Compile error = %v", err)
	}
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if compiler.calls != 4 {
		t.Errorf("compiler called %d times, want 4 (4 combos)", compiler.calls)
	}

	path := vcsOutputPath(root, "basic")
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected archive at %s: %v", path, err)
	}
}

func TestRunCompileFastFailStopsEarlyAndSkipsArchive(t *testing.T) {
	root := t.TempDir()
	entry := oneEntry(t, "failing", 9) // 10 combos, single worker for determinism
	AssignCommandRanges([]*ShaderEntry{entry})

	compiler := newMockCompiler()
	compiler.failOn["failing.fxc|A=3;"] = true

	cfg := NewConfig(root, nil, WithThreads(1), WithFastFail())
	run := NewRun(cfg, compiler, []*ShaderEntry{entry})

	code, err := run.Compile()
	if err != nil {
		t.Fatalf("Compile error = %v", err)
	}
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if compiler.calls >= 10 {
		t.Errorf("compiler called %d times, want fewer than all 10 combos (fast-fail)", compiler.calls)
	}

	path := vcsOutputPath(root, "failing")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected no archive for failing shader, stat err = %v", err)
	}
}

func TestRunCompileFastFailDoesNotStopAlreadyWrittenEarlierShaders(t *testing.T) {
	root := t.TempDir()
	good := oneEntry(t, "good", 1)
	bad := oneEntry(t, "bad", 1)
	AssignCommandRanges([]*ShaderEntry{good, bad})

	compiler := newMockCompiler()
	compiler.failOn["bad.fxc|A=0;"] = true

	cfg := NewConfig(root, nil, WithThreads(1), WithFastFail())
	run := NewRun(cfg, compiler, []*ShaderEntry{good, bad})

	if _, err := run.Compile(); err != nil {
		t.Fatalf("Compile error = %v", err)
	}

	if _, err := os.Stat(vcsOutputPath(root, "good")); err != nil {
		t.Errorf("expected archive for earlier, fully-succeeded shader: %v", err)
	}
	if _, err := os.Stat(vcsOutputPath(root, "bad")); !os.IsNotExist(err) {
		t.Errorf("expected no archive for failed shader")
	}
}

func TestRunCompileAggregatesRepeatedWarningsAcrossCombos(t *testing.T) {
	root := t.TempDir()
	entry := oneEntry(t, "warns", 2) // 3 combos, all produce the identical listing
	AssignCommandRanges([]*ShaderEntry{entry})

	compiler := newMockCompiler()
	const sharedListing = "foo.fxc(10,3): warning X1234: unused"
	for _, v := range []int64{0, 1, 2} {
		compiler.listings[fmt.Sprintf("warns.fxc|A=%d;", v)] = sharedListing
	}

	cfg := NewConfig(root, nil, WithThreads(1))
	run := NewRun(cfg, compiler, []*ShaderEntry{entry})

	if _, err := run.Compile(); err != nil {
		t.Fatalf("Compile error = %v", err)
	}

	acc, err := run.Accumulator("warns")
	if err != nil {
		t.Fatalf("Accumulator error = %v", err)
	}
	warnings := acc.Warnings()
	if len(warnings) != 1 {
		t.Fatalf("got %d distinct warnings, want 1", len(warnings))
	}
	if warnings[0].RepeatCount != 3 {
		t.Errorf("repeat count = %d, want 3", warnings[0].RepeatCount)
	}
	if warnings[0].FirstCommandText == "" {
		t.Error("expected FirstCommandText to be recorded")
	}
}

func TestRunCompileTwiceReturnsErrAlreadyRunning(t *testing.T) {
	root := t.TempDir()
	entry := oneEntry(t, "once", 0)
	AssignCommandRanges([]*ShaderEntry{entry})

	run := NewRun(NewConfig(root, nil, WithThreads(1)), newMockCompiler(), []*ShaderEntry{entry})
	if _, err := run.Compile(); err != nil {
		t.Fatalf("first Compile error = %v", err)
	}
	if _, err := run.Compile(); err == nil {
		t.Fatal("expected ErrAlreadyRunning on second Compile call")
	}
}

func TestRunAccumulatorUnknownShaderIsError(t *testing.T) {
	run := NewRun(NewConfig(t.TempDir(), nil), newMockCompiler(), nil)
	if _, err := run.Accumulator("nope"); err == nil {
		t.Fatal("expected ErrUnknownShader for an unregistered name")
	}
}

func TestRunCompileRoundTripsThroughArchive(t *testing.T) {
	root := t.TempDir()
	entry := oneEntry(t, "roundtrip", 1) // 2 combos -> 1 static combo with 2 dynamic combos (the only axis is dynamic)
	AssignCommandRanges([]*ShaderEntry{entry})

	compiler := newMockCompiler()
	run := NewRun(NewConfig(root, nil, WithThreads(2)), compiler, []*ShaderEntry{entry})
	if _, err := run.Compile(); err != nil {
		t.Fatalf("Compile error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(root, "shaders", "fxc", "roundtrip.vcs"))
	if err != nil {
		t.Fatalf("reading archive: %v", err)
	}
	decoded, err := DecodeArchive(data)
	if err != nil {
		t.Fatalf("DecodeArchive: %v", err)
	}
	if len(decoded.StaticCombos) != 1 {
		t.Fatalf("got %d static combos, want 1", len(decoded.StaticCombos))
	}
	records := decoded.StaticCombos[0]
	if len(records) != 2 {
		t.Fatalf("got %d dynamic records, want 2", len(records))
	}
}

func TestRunStopSuppressesInFlightArchiveWrite(t *testing.T) {
	root := t.TempDir()
	inFlight := oneEntry(t, "inflight", 3) // 4 combos, two workers
	later := oneEntry(t, "later", 1)       // never reached: Stop fires first
	AssignCommandRanges([]*ShaderEntry{inFlight, later})

	compiler := newSlowMockCompiler()
	cfg := NewConfig(root, nil, WithThreads(2))
	run := NewRun(cfg, compiler, []*ShaderEntry{inFlight, later})

	go func() {
		<-compiler.started
		run.Stop()
		close(compiler.release)
	}()

	code, err := run.Compile()
	if err != nil {
		t.Fatalf("Compile error = %v", err)
	}
	if code != 0 {
		t.Errorf("exit code = %d, want 0 (a Stop mid-run is not a compile failure)", code)
	}

	if _, err := os.Stat(vcsOutputPath(root, "inflight")); !os.IsNotExist(err) {
		t.Errorf("expected no archive for the shader that was in flight when Stop fired, stat err = %v", err)
	}
	if _, err := os.Stat(vcsOutputPath(root, "later")); !os.IsNotExist(err) {
		t.Errorf("expected no archive for a shader never reached after Stop, stat err = %v", err)
	}
}
