package shadercompile

import "fmt"

// BuildEntries turns cfg's ShaderJobs into ShaderEntry values via parser,
// skipping any job whose existing artifacts are already current (§6:
// CheckCrc "true when existing artifacts match and compilation may be
// skipped"), unless cfg.ForceRecompile is set. Entries are returned with
// command ranges already assigned (AssignCommandRanges), ready for NewRun.
func BuildEntries(cfg Config, parser Parser) ([]*ShaderEntry, error) {
	entries := make([]*ShaderEntry, 0, len(cfg.Shaders))
	for _, job := range cfg.Shaders {
		name := job.Name
		if name == "" {
			name = parser.ConstructName(job.SourcePath, job.Target, "")
		}

		var crc uint32
		if !cfg.ForceRecompile && parser.CheckCrc(job.SourcePath, cfg.ShaderRoot, name, &crc) {
			continue
		}

		shaderCfg, ok := parser.ParseFile(job.SourcePath, cfg.ShaderRoot, job.Target, "")
		if !ok {
			return nil, fmt.Errorf("%w: parsing %s", ErrConfigInvalid, job.SourcePath)
		}

		entry, err := NewShaderEntry(name, job.SourcePath, job.EntryPoint, job.Target, shaderCfg.Axes, shaderCfg.SkipExpr, crc)
		if err != nil {
			return nil, fmt.Errorf("%w: building entry for %s", err, job.SourcePath)
		}
		entry.CentroidMask = shaderCfg.CentroidMask
		entries = append(entries, entry)
	}
	AssignCommandRanges(entries)
	return entries, nil
}
