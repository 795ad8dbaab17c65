// Package classify partitions declared dependencies by resolution kind
// and routes macro dependencies to their own target list.
//
// Classification is purely declarative: the classifier only sees what the
// depending manifest states (or what the side-channel mapping states via
// the macro predicate), never the dependency's own build targets.
package classify

import (
	"github.com/cratebuild/cratebuild/pkg/errors"
	"github.com/cratebuild/cratebuild/pkg/manifest"
)

// Kind is the resolution kind of a dependency after classification.
// Every dependency has exactly one kind.
type Kind string

// Resolution kinds.
const (
	// KindExternal resolves by name against the external registry mapping.
	KindExternal Kind = "external"
	// KindPath resolves to an in-repository label derived from the
	// dependency's filesystem path.
	KindPath Kind = "path"
	// KindVCS is hosted in version control. The target build graph has no
	// native concept of ad-hoc source URLs, so VCS dependencies resolve
	// like external ones, by declared or renamed name.
	KindVCS Kind = "vcs"
)

// MacroPredicate reports whether the named crate (registry name) is a
// macro crate. The policy signal is supplied alongside the external
// mapping so it can be corrected without touching the pipeline.
type MacroPredicate func(name string) bool

// Policy controls the precedence rule for a dependency that declares both
// a path and a registry version requirement.
//
// PathWins follows the repository working model of "internal crates
// first" and treats the path as a local override. This precedence is
// build-tool convention rather than a documented guarantee; RegistryWins
// exists so the policy can be flipped without code changes.
type Policy int

const (
	// PathWins treats a path declaration as authoritative when a version
	// requirement is also present. This is the default.
	PathWins Policy = iota
	// RegistryWins resolves by name even when a path is present.
	RegistryWins
)

// Options configures classification.
type Options struct {
	// Macro identifies macro crates by registry name. May be nil.
	Macro MacroPredicate
	// Policy is the path-vs-registry precedence rule.
	Policy Policy
}

// Classified is one dependency with its resolution kind and macro tag.
type Classified struct {
	manifest.Dependency
	Role  manifest.Role
	Kind  Kind
	Macro bool
}

// Lists holds the classified dependency lists of one manifest, still
// grouped by declared role and in declaration order.
type Lists struct {
	Normal []Classified
	Dev    []Classified
	Build  []Classified
}

// Manifest classifies every dependency of m. A dependency declared under
// more than one role is classified independently per role.
func Manifest(m *manifest.Manifest, opts Options) (*Lists, error) {
	out := &Lists{}
	var err error
	if out.Normal, err = classifyRole(m, m.Deps, manifest.RoleNormal, opts); err != nil {
		return nil, err
	}
	if out.Dev, err = classifyRole(m, m.DevDeps, manifest.RoleDev, opts); err != nil {
		return nil, err
	}
	if out.Build, err = classifyRole(m, m.BuildDeps, manifest.RoleBuild, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func classifyRole(m *manifest.Manifest, deps []manifest.Dependency, role manifest.Role, opts Options) ([]Classified, error) {
	if len(deps) == 0 {
		return nil, nil
	}
	out := make([]Classified, 0, len(deps))
	for _, dep := range deps {
		c, err := One(dep, role, opts)
		if err != nil {
			return nil, errors.Wrap(errors.GetCode(err), err, "%s", m.Path)
		}
		out = append(out, c)
	}
	return out, nil
}

// One classifies a single dependency.
//
// A dependency that declares both a path and a git locator has no defined
// precedence and is rejected. A dependency with both a path and a version
// requirement is a local-override-with-fallback; the configured Policy
// decides which source is authoritative.
func One(dep manifest.Dependency, role manifest.Role, opts Options) (Classified, error) {
	c := Classified{Dependency: dep, Role: role}

	switch {
	case dep.Path != "" && dep.Git != "":
		return Classified{}, errors.New(errors.ErrCodeAmbiguousSource,
			"dependency %s declares both a path and a git source", dep.Name)
	case dep.Path != "" && (dep.Req == "" || opts.Policy == PathWins):
		c.Kind = KindPath
	case dep.Git != "":
		c.Kind = KindVCS
	default:
		c.Kind = KindExternal
	}

	c.Macro = dep.ProcMacro
	if !c.Macro && opts.Macro != nil {
		c.Macro = opts.Macro(dep.Package)
	}

	return c, nil
}
