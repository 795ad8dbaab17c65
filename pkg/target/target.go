// Package target synthesizes render-ready build-target contexts from a
// manifest's target declarations and its resolved dependencies.
//
// One [Context] is produced per emitted build target. Dependency label
// lists preserve manifest declaration order with order-preserving
// deduplication; stability here is a correctness requirement, since the
// rendered descriptor is byte-compared against checked-in files.
package target

import (
	"fmt"
	"strings"

	"github.com/cratebuild/cratebuild/pkg/manifest"
	"github.com/cratebuild/cratebuild/pkg/resolve"
)

// Alias maps a resolved label to the rename the consuming crate uses.
type Alias struct {
	Label  string
	Rename string
}

// Context is the render-ready structure for one build target.
type Context struct {
	Kind manifest.TargetKind
	// Name is the build-graph target name.
	Name string
	// CrateName is the identifier used inside source to name the
	// compiled unit; distinct from the target name.
	CrateName string
	// Srcs is the rendered source reference expression.
	Srcs    string
	Edition string
	// Deps are ordinary dependency labels, declaration-ordered and
	// deduplicated.
	Deps []string
	// ProcMacroDeps are macro dependency labels, routed separately.
	ProcMacroDeps []string
	// Aliases holds entries only for dependencies whose rename differs
	// from their canonical resolved name.
	Aliases []Alias
}

// RuleName returns the descriptor rule identifier for the target kind.
func (c *Context) RuleName() string {
	switch c.Kind {
	case manifest.KindLibrary:
		return "rust_library"
	case manifest.KindBinary:
		return "rust_binary"
	case manifest.KindTest:
		return "rust_test"
	case manifest.KindBench:
		return "rust_bench"
	}
	return "rust_library"
}

// Synthesize builds one Context per declared target. Development
// dependencies are available only to test and bench targets, never to the
// library or ordinary binary targets.
func Synthesize(m *manifest.Manifest, normal, dev []resolve.Resolved) []Context {
	var out []Context

	if !m.NoLib {
		lib := Context{
			Kind:    manifest.KindLibrary,
			Name:    m.Name,
			Edition: m.Edition,
			Srcs:    `glob(["src/**/*.rs"])`,
		}
		if m.Lib != nil {
			if m.Lib.Name != "" {
				lib.Name = m.Lib.Name
			}
			if m.Lib.Path != "" {
				lib.Srcs = srcList(m.Lib.Path)
			}
		}
		lib.CrateName = crateName(lib.Name)
		fillDeps(&lib, normal)
		out = append(out, lib)
	}

	for _, decl := range m.Bins {
		c := declContext(m, decl, "src/bin/%s.rs")
		fillDeps(&c, normal)
		out = append(out, c)
	}
	for _, decl := range m.Tests {
		c := declContext(m, decl, "tests/%s.rs")
		fillDeps(&c, normal, dev)
		out = append(out, c)
	}
	for _, decl := range m.Benches {
		c := declContext(m, decl, "benches/%s.rs")
		fillDeps(&c, normal, dev)
		out = append(out, c)
	}

	return out
}

// declContext builds the common fields of an explicit target declaration.
func declContext(m *manifest.Manifest, decl manifest.TargetDecl, pathFormat string) Context {
	path := decl.Path
	if path == "" {
		path = fmt.Sprintf(pathFormat, decl.Name)
	}
	return Context{
		Kind:      decl.Kind,
		Name:      decl.Name,
		CrateName: crateName(decl.Name),
		Srcs:      srcList(path),
		Edition:   m.Edition,
	}
}

// fillDeps routes each resolved dependency into the ordinary or macro
// label list and collects alias entries. A dependency that is both macro
// and aliased lands in exactly one label list (macro) but still
// contributes its alias.
func fillDeps(c *Context, lists ...[]resolve.Resolved) {
	seenDep := make(map[string]bool)
	seenMacro := make(map[string]bool)
	seenAlias := make(map[string]bool)

	for _, list := range lists {
		for _, r := range list {
			if r.Macro {
				if !seenMacro[r.Label] {
					c.ProcMacroDeps = append(c.ProcMacroDeps, r.Label)
					seenMacro[r.Label] = true
				}
			} else if !seenDep[r.Label] {
				c.Deps = append(c.Deps, r.Label)
				seenDep[r.Label] = true
			}
			if r.Alias() && !seenAlias[r.Label] {
				c.Aliases = append(c.Aliases, Alias{Label: r.Label, Rename: r.Name})
				seenAlias[r.Label] = true
			}
		}
	}
}

// crateName derives the in-source crate identifier from a target name.
func crateName(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

// srcList renders an explicit source file as a one-element source list.
func srcList(path string) string {
	return fmt.Sprintf("[%q]", path)
}
