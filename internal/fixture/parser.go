// Package fixture provides a Go-literal-backed Parser for tests and the
// demo CLI (§6 "Added for completeness"). It is not a shader-source
// grammar: axis declarations are registered directly as Go values rather
// than parsed from a real source file format, mirroring the teacher's
// pattern of building test fixtures as literal struct values rather than
// loading them from disk.
package fixture

import (
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"sort"
	"strings"

	shadercompile "github.com/shadercompile/vcs"
)

// Entry is one registered shader's fixed ShaderConfig plus the CRC32 fixture
// code treats as "the source's current checksum" for CheckCrc purposes.
type Entry struct {
	Config shadercompile.ShaderConfig
	CRC32  uint32
}

// Parser implements shadercompile.Parser over a fixed table of Entry values
// keyed by source path, registered with Register before use.
type Parser struct {
	entries      map[string]Entry
	defaultTarget string
}

// New returns an empty Parser. defaultTarget is returned by GetTarget for
// any path with no better answer (e.g. "ps_3_0").
func New(defaultTarget string) *Parser {
	return &Parser{entries: make(map[string]Entry), defaultTarget: defaultTarget}
}

// Register associates path with cfg and the CRC32 fixture considers current
// for that path. Subsequent ParseFile/CheckCrc calls for path use this
// entry.
func (p *Parser) Register(path string, cfg shadercompile.ShaderConfig, crc uint32) {
	p.entries[path] = Entry{Config: cfg, CRC32: crc}
}

// ConstructName derives "<base>_<target>_<version>" from file's base name
// with its extension stripped, matching the canonical-name shape described
// in §6 without claiming to reproduce the original naming algorithm
// exactly.
func (p *Parser) ConstructName(file, target, version string) string {
	base := filepath.Base(file)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return fmt.Sprintf("%s_%s_%s", base, target, version)
}

// CheckCrc reports whether path's registered fixture CRC32 matches the
// freshly computed one, writing the computed value into out regardless
// (§6: CheckCrc always reports the fresh CRC even when it mismatches).
func (p *Parser) CheckCrc(path, root, name string, out *uint32) bool {
	fresh := computeCRC(filepath.Join(root, path))
	*out = fresh
	entry, ok := p.entries[path]
	if !ok {
		return false
	}
	return entry.CRC32 == fresh
}

// computeCRC hashes the file at path, returning 0 if it cannot be read —
// fixture sources are not guaranteed to exist on disk (tests register
// configs without ever creating the backing file).
func computeCRC(path string) uint32 {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	return crc32.ChecksumIEEE(data)
}

// ParseFile returns path's registered ShaderConfig. If nothing was
// registered for path, it falls back to a single-combo default (one
// dynamic axis of width 1, no skip expression) so the demo CLI can run
// against arbitrary files without a real axis grammar; tests that need
// specific axis layouts should call Register first.
func (p *Parser) ParseFile(path, root, target, version string) (shadercompile.ShaderConfig, bool) {
	entry, ok := p.entries[path]
	if !ok {
		return defaultShaderConfig(), true
	}
	return entry.Config, true
}

// defaultShaderConfig is the trivial one-combo fallback ParseFile returns
// for unregistered paths.
func defaultShaderConfig() shadercompile.ShaderConfig {
	return shadercompile.ShaderConfig{
		Axes: []shadercompile.Axis{{Name: "DEFAULT", Lo: 0, Hi: 0, Kind: shadercompile.AxisDynamic}},
	}
}

// WriteInclude writes a plain-text listing of the axis layout to
// <directory of path>/fxc/<name>.inc, standing in for the real companion-header
// format — fixture shaders have no preprocessor to consume it.
func (p *Parser) WriteInclude(path, name, target string, staticAxes, dynamicAxes []shadercompile.Axis, skip string, csgoFlag bool) error {
	dir := filepath.Join(filepath.Dir(path), "fxc")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("fixture: creating include directory: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "// generated fixture include for %s (%s)\n", name, target)
	writeAxisList(&b, "static", staticAxes)
	writeAxisList(&b, "dynamic", dynamicAxes)
	if skip != "" {
		fmt.Fprintf(&b, "// skip: %s\n", skip)
	}
	if csgoFlag {
		b.WriteString("// csgo header flag set\n")
	}

	out := filepath.Join(dir, name+".inc")
	if err := os.WriteFile(out, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("fixture: writing %s: %w", out, err)
	}
	return nil
}

func writeAxisList(b *strings.Builder, label string, axes []shadercompile.Axis) {
	names := make([]string, len(axes))
	for i, ax := range axes {
		names[i] = fmt.Sprintf("%s[%d..%d]", ax.Name, ax.Lo, ax.Hi)
	}
	sort.Strings(names)
	fmt.Fprintf(b, "// %s axes: %s\n", label, strings.Join(names, ", "))
}

// GetTarget returns the fixture's configured fallback target, ignoring
// file.
func (p *Parser) GetTarget(file string) string {
	return p.defaultTarget
}
