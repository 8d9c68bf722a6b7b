// Command shadercompile is a thin CLI wrapper around the shadercompile
// package: it wires a fixture Parser and the compiler/naga adapter into a
// Run and reports the resulting exit code (§6).
package main

import (
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"

	shadercompile "github.com/shadercompile/vcs"
	"github.com/shadercompile/vcs/compiler/naga"
	"github.com/shadercompile/vcs/internal/fixture"
)

func main() {
	var (
		root           = flag.String("root", ".", "shader root directory")
		threads        = flag.Int("threads", 0, "worker count (0 = GOMAXPROCS)")
		forceRecompile = flag.Bool("force", false, "recompile even if existing artifacts look current")
		fastFail       = flag.Bool("fastfail", false, "stop all workers on the first compile failure")
		verbose        = flag.Int("verbose", 0, "diagnostic verbosity level")
		defaultTarget  = flag.String("target", "ps_3_0", "fallback shader model target")
	)
	flag.Parse()

	if *verbose > 0 {
		shadercompile.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	files := flag.Args()
	if len(files) == 0 {
		log.Fatal("usage: shadercompile [flags] <shader.wgsl>...")
	}

	jobs := make([]shadercompile.ShaderJob, len(files))
	for i, f := range files {
		jobs[i] = shadercompile.ShaderJob{SourcePath: f, Target: *defaultTarget, EntryPoint: "main"}
	}

	opts := []shadercompile.Option{shadercompile.WithThreads(*threads), shadercompile.WithVerboseLevel(*verbose)}
	if *forceRecompile {
		opts = append(opts, shadercompile.WithForceRecompile())
	}
	if *fastFail {
		opts = append(opts, shadercompile.WithFastFail())
	}
	cfg := shadercompile.NewConfig(*root, jobs, opts...)

	parser := fixture.New(*defaultTarget)
	entries, err := shadercompile.BuildEntries(cfg, parser)
	if err != nil {
		log.Fatalf("building shader entries: %v", err)
	}

	run := shadercompile.NewRun(cfg, naga.New(), entries)

	// A Ctrl-C mid-run flips the stop flag instead of killing the process
	// outright, so the current combo finishes and no partial archive is
	// written for the shader that was in flight (§4.D cancellation).
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		if _, ok := <-sigCh; ok {
			run.Stop()
		}
	}()

	code, err := run.Compile()
	signal.Stop(sigCh)
	if err != nil {
		log.Fatalf("compile: %v", err)
	}
	os.Exit(code)
}
