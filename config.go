package shadercompile

import "runtime"

// ShaderJob names one shader to compile and the source path the configured
// Parser should read it from. The axis/skip declarations themselves are
// produced by Parser.ParseFile, not carried here.
type ShaderJob struct {
	// Name is the shader's canonical name, normally produced by
	// Parser.ConstructName; callers that already know the name (as in
	// tests) may set it directly.
	Name string

	// SourcePath is the shader source file handed to Parser.ParseFile and
	// to Compiler.ExecuteCommand.
	SourcePath string

	// Target is the shader model / profile string (e.g. "vs_5_1",
	// "ps_6_0") passed to the Parser and Compiler.
	Target string

	// EntryPoint is the shader's entry-point function name.
	EntryPoint string
}

// Config is the core's external configuration input. The CLI surface that
// builds a Config from flags is out of scope for this package (see
// cmd/shadercompile); Config is what that thin wrapper produces.
type Config struct {
	// ShaderRoot is the root directory shaders are read from and VCS
	// archives are written under (<ShaderRoot>/shaders/fxc/<name>.vcs).
	ShaderRoot string

	// Shaders lists the shader jobs to compile in this run.
	Shaders []ShaderJob

	// Threads is the worker pool size. 0 or negative selects
	// runtime.GOMAXPROCS(0). 1 takes the no-op-lock single-threaded path.
	Threads int

	// ForceRecompile skips Parser.CheckCrc and recompiles every combo even
	// if existing artifacts appear current.
	ForceRecompile bool

	// FastFail stops all workers as soon as any compile fails.
	FastFail bool

	// OptimizationLevel is stored for callers; this package does not read
	// it, and it is not part of the BuildCommand sent to the Compiler.
	OptimizationLevel int

	// CompileFlags are extra flags passed through to the Compiler
	// collaborator verbatim.
	CompileFlags []string

	// VerboseLevel is the requested diagnostic verbosity. The dispatcher
	// does not read it; what gets logged depends only on the logger
	// installed with SetLogger.
	VerboseLevel int

	// CSGOHeaderFlag is stored for callers; this package does not read it
	// and does not call Parser.WriteInclude.
	CSGOHeaderFlag bool
}

// Option configures a Config during construction, mirroring the rest of the
// domain stack's functional-options style.
type Option func(*Config)

// NewConfig builds a Config for shaderRoot and shaders, applying opts in
// order. Threads defaults to runtime.GOMAXPROCS(0) unless overridden by
// WithThreads.
func NewConfig(shaderRoot string, shaders []ShaderJob, opts ...Option) Config {
	cfg := Config{
		ShaderRoot: shaderRoot,
		Shaders:    shaders,
		Threads:    runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithThreads overrides the worker pool size. n <= 0 means GOMAXPROCS.
func WithThreads(n int) Option {
	return func(c *Config) { c.Threads = n }
}

// WithForceRecompile disables the CRC short-circuit, compiling every combo
// regardless of existing artifacts.
func WithForceRecompile() Option {
	return func(c *Config) { c.ForceRecompile = true }
}

// WithFastFail stops the whole run on the first compile failure.
func WithFastFail() Option {
	return func(c *Config) { c.FastFail = true }
}

// WithOptimizationLevel sets Config.OptimizationLevel.
func WithOptimizationLevel(level int) Option {
	return func(c *Config) { c.OptimizationLevel = level }
}

// WithCompileFlags sets extra flags passed through to the Compiler.
func WithCompileFlags(flags ...string) Option {
	return func(c *Config) { c.CompileFlags = flags }
}

// WithVerboseLevel sets the diagnostic verbosity level.
func WithVerboseLevel(level int) Option {
	return func(c *Config) { c.VerboseLevel = level }
}

// WithCSGOHeaderFlag sets Config.CSGOHeaderFlag.
func WithCSGOHeaderFlag(v bool) Option {
	return func(c *Config) { c.CSGOHeaderFlag = v }
}

// effectiveThreads resolves Threads to a concrete worker count.
func (c Config) effectiveThreads() int {
	if c.Threads <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return c.Threads
}
