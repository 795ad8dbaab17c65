// Package resolve converts classified dependencies into build-graph
// labels.
//
// # Overview
//
// Path dependencies resolve by pure path arithmetic: the dependency's
// declared filesystem path, expressed relative to the repository root,
// becomes a repository-relative label. External and VCS dependencies
// resolve by name lookup against the pre-supplied [Mapping]; the resolver
// never inspects version numbers, which keeps all version-selection
// concerns on the external configuration side of the seam.
//
// # Failure Modes
//
// Both failure modes are fatal to generation: a path escaping the
// repository root (or naming no known package) has no legal label, and a
// mapping miss must abort rather than emit a dangling reference.
package resolve

import (
	"path/filepath"
	"strings"

	"github.com/cratebuild/cratebuild/pkg/classify"
	"github.com/cratebuild/cratebuild/pkg/errors"
)

// Resolved is a classified dependency with its build-graph label.
type Resolved struct {
	classify.Classified
	// Label unambiguously identifies the dependency's build target,
	// either "<external-prefix>:<name>" or "//<relative-path>:<target>".
	Label string
}

// Alias reports whether the dependency must contribute an alias entry:
// its declared rename differs from the name under which it resolved.
// Redundant aliases are elided for output stability.
func (r Resolved) Alias() bool {
	return r.Renamed()
}

// Resolver resolves classified dependencies against one repository and
// one external mapping. The mapping is injected at construction and
// treated as immutable.
type Resolver struct {
	// RepoRoot is the repository root directory. Path labels are
	// expressed relative to it.
	RepoRoot string
	// Mapping is the external name→label mapping.
	Mapping *Mapping
	// CheckPackage reports whether dir contains a known package. Nil
	// disables the existence check, leaving pure label arithmetic.
	CheckPackage func(dir string) bool
}

// Resolve resolves one dependency declared by the manifest in manifestDir.
func (r *Resolver) Resolve(manifestDir string, c classify.Classified) (Resolved, error) {
	switch c.Kind {
	case classify.KindPath:
		return r.resolvePath(manifestDir, c)
	default:
		return r.resolveExternal(c)
	}
}

// ResolveAll resolves a classified list in order.
func (r *Resolver) ResolveAll(manifestDir string, cs []classify.Classified) ([]Resolved, error) {
	if len(cs) == 0 {
		return nil, nil
	}
	out := make([]Resolved, 0, len(cs))
	for _, c := range cs {
		res, err := r.Resolve(manifestDir, c)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

func (r *Resolver) resolvePath(manifestDir string, c classify.Classified) (Resolved, error) {
	depDir := filepath.Join(manifestDir, c.Path)

	pkg, err := PackagePath(r.RepoRoot, depDir)
	if err != nil {
		return Resolved{}, errors.Wrap(errors.ErrCodeUnresolvedPath, err,
			"dependency %s (path %s)", c.Name, c.Path)
	}

	if r.CheckPackage != nil && !r.CheckPackage(depDir) {
		return Resolved{}, errors.New(errors.ErrCodeUnresolvedPath,
			"dependency %s: no package at %s", c.Name, depDir)
	}

	// The label's target name defaults to the conventional library
	// target, which is named after the package.
	return Resolved{Classified: c, Label: "//" + pkg + ":" + c.Package}, nil
}

func (r *Resolver) resolveExternal(c classify.Classified) (Resolved, error) {
	label, ok := r.Mapping.Lookup(c.Package)
	if !ok {
		return Resolved{}, errors.New(errors.ErrCodeUnknownExternal,
			"dependency %s: no external mapping for %q", c.Name, c.Package)
	}
	return Resolved{Classified: c, Label: label}, nil
}

// PackagePath computes the build-graph package path of dir relative to
// the repository root. It is pure path arithmetic: no filesystem access,
// so the result depends only on the two paths, never on the working
// directory.
//
// It fails when dir escapes root, since no legal label can represent a
// location outside the repository.
func PackagePath(root, dir string) (string, error) {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(dir))
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", errors.New(errors.ErrCodeUnresolvedPath, "path %s escapes repository root %s", dir, root)
	}
	if rel == "." {
		return "", nil
	}
	return rel, nil
}
