package manifest

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/Masterminds/semver/v3"

	"github.com/cratebuild/cratebuild/pkg/errors"
)

// TargetKind identifies the kind of build target a manifest declares.
type TargetKind string

// Target kinds declared by a manifest.
const (
	KindLibrary TargetKind = "library"
	KindBinary  TargetKind = "binary"
	KindTest    TargetKind = "test"
	KindBench   TargetKind = "bench"
)

// Role identifies the declared role of a dependency list.
type Role string

// Dependency roles.
const (
	RoleNormal Role = "normal"
	RoleDev    Role = "dev"
	RoleBuild  Role = "build"
)

// TargetDecl is one declared build target.
type TargetDecl struct {
	Kind TargetKind
	Name string
	// Path is the explicit source entry point, empty for the
	// conventional location.
	Path string
}

// Dependency is one declared dependency, normalized from either the bare
// version-string form or the structured table form.
type Dependency struct {
	// Name is the name the consuming crate uses to refer to the
	// dependency (the table key). Differs from Package for renames.
	Name string
	// Package is the registry name of the dependency. Equals Name
	// unless the entry declares an explicit rename via `package`.
	Package string
	// Req is the declared semantic-version requirement, if any. It is
	// never used for resolution, only for validation and diagnostics.
	Req string
	// Path is the local filesystem path for in-repository dependencies,
	// relative to the manifest's directory.
	Path string
	// Git is the version-control source locator, if any.
	Git string
	// Features lists requested optional features.
	Features []string
	// Optional marks the dependency as feature-gated.
	Optional bool
	// ProcMacro marks the dependency as consumed only for compile-time
	// macro expansion.
	ProcMacro bool
}

// Renamed reports whether the dependency is referred to under a name that
// differs from its registry name.
func (d Dependency) Renamed() bool {
	return d.Name != d.Package
}

// Manifest is the structured model of one dependency manifest.
type Manifest struct {
	// Path is the manifest file location on disk.
	Path string

	Name    string
	Version string
	Edition string

	// Lib customizes the implicit library target. Nil means the default
	// library target named after the package.
	Lib *TargetDecl
	// NoLib suppresses the implicit library target (autolib = false).
	NoLib bool

	Bins    []TargetDecl
	Tests   []TargetDecl
	Benches []TargetDecl

	// Dependency lists in manifest declaration order.
	Deps      []Dependency
	DevDeps   []Dependency
	BuildDeps []Dependency
}

// Dir returns the directory containing the manifest.
func (m *Manifest) Dir() string {
	return filepath.Dir(m.Path)
}

// DefaultEdition is assumed when the manifest declares no edition.
const DefaultEdition = "2015"

// rawManifest mirrors the TOML document shape. Dependency entries decode
// into primitives so the string-vs-table variant can be resolved per entry.
type rawManifest struct {
	Package   *rawPackage               `toml:"package"`
	Lib       *rawTarget                `toml:"lib"`
	Bins      []rawTarget               `toml:"bin"`
	Tests     []rawTarget               `toml:"test"`
	Benches   []rawTarget               `toml:"bench"`
	Deps      map[string]toml.Primitive `toml:"dependencies"`
	DevDeps   map[string]toml.Primitive `toml:"dev-dependencies"`
	BuildDeps map[string]toml.Primitive `toml:"build-dependencies"`
}

type rawPackage struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
	Edition string `toml:"edition"`
	Autolib *bool  `toml:"autolib"`
}

type rawTarget struct {
	Name string `toml:"name"`
	Path string `toml:"path"`
}

// rawDep is the structured table form of a dependency entry.
type rawDep struct {
	Version   string   `toml:"version"`
	Path      string   `toml:"path"`
	Git       string   `toml:"git"`
	Features  []string `toml:"features"`
	Optional  bool     `toml:"optional"`
	Package   string   `toml:"package"`
	ProcMacro bool     `toml:"proc-macro"`
	Workspace bool     `toml:"workspace"`
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read manifest %s", path)
	}
	return Parse(data, path)
}

// Parse parses manifest text into a Manifest. The path is recorded for
// error context and label resolution; the file itself is not accessed.
func Parse(data []byte, path string) (*Manifest, error) {
	var raw rawManifest
	md, err := toml.Decode(string(data), &raw)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeManifestParse, err, "parse %s", path)
	}

	if raw.Package == nil {
		return nil, errors.New(errors.ErrCodeManifestSchema, "%s: missing [package] section", path)
	}
	if err := errors.ValidateCrateName(raw.Package.Name); err != nil {
		return nil, errors.Wrap(errors.ErrCodeManifestSchema, err, "%s: invalid package name", path)
	}

	m := &Manifest{
		Path:    path,
		Name:    raw.Package.Name,
		Version: raw.Package.Version,
		Edition: raw.Package.Edition,
	}
	if m.Edition == "" {
		m.Edition = DefaultEdition
	}
	if raw.Package.Autolib != nil && !*raw.Package.Autolib {
		m.NoLib = true
	}

	if raw.Lib != nil {
		m.Lib = &TargetDecl{Kind: KindLibrary, Name: raw.Lib.Name, Path: raw.Lib.Path}
		if m.Lib.Name == "" {
			m.Lib.Name = m.Name
		}
	}

	if m.Bins, err = namedTargets(raw.Bins, KindBinary, path); err != nil {
		return nil, err
	}
	if m.Tests, err = namedTargets(raw.Tests, KindTest, path); err != nil {
		return nil, err
	}
	if m.Benches, err = namedTargets(raw.Benches, KindBench, path); err != nil {
		return nil, err
	}

	if m.Deps, err = decodeDeps(md, raw.Deps, "dependencies", path); err != nil {
		return nil, err
	}
	if m.DevDeps, err = decodeDeps(md, raw.DevDeps, "dev-dependencies", path); err != nil {
		return nil, err
	}
	if m.BuildDeps, err = decodeDeps(md, raw.BuildDeps, "build-dependencies", path); err != nil {
		return nil, err
	}

	return m, nil
}

// namedTargets validates explicit target declarations. Binary, test and
// bench targets must be named; only the library target is implicit.
func namedTargets(raws []rawTarget, kind TargetKind, path string) ([]TargetDecl, error) {
	if len(raws) == 0 {
		return nil, nil
	}
	out := make([]TargetDecl, 0, len(raws))
	for _, r := range raws {
		if r.Name == "" {
			return nil, errors.New(errors.ErrCodeManifestSchema, "%s: unnamed %s target", path, kind)
		}
		out = append(out, TargetDecl{Kind: kind, Name: r.Name, Path: r.Path})
	}
	return out, nil
}

// decodeDeps normalizes one dependency section, preserving the manifest's
// declaration order via the decoder's key ordering.
func decodeDeps(md toml.MetaData, prims map[string]toml.Primitive, section, path string) ([]Dependency, error) {
	if len(prims) == 0 {
		return nil, nil
	}

	out := make([]Dependency, 0, len(prims))
	for _, name := range orderedDepNames(md, section) {
		prim, ok := prims[name]
		if !ok {
			continue
		}
		dep, err := decodeDep(md, name, prim, section, path)
		if err != nil {
			return nil, err
		}
		out = append(out, dep)
	}
	return out, nil
}

// orderedDepNames extracts the dependency names of one section in document
// order from the decoder metadata.
func orderedDepNames(md toml.MetaData, section string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, key := range md.Keys() {
		if len(key) >= 2 && key[0] == section && !seen[key[1]] {
			names = append(names, key[1])
			seen[key[1]] = true
		}
	}
	return names
}

// decodeDep resolves the string-vs-table variant of one dependency entry.
func decodeDep(md toml.MetaData, name string, prim toml.Primitive, section, path string) (Dependency, error) {
	if err := errors.ValidateCrateName(name); err != nil {
		return Dependency{}, errors.Wrap(errors.ErrCodeManifestSchema, err, "%s: [%s]", path, section)
	}

	// Bare version-string form: `serde = "1.0"`.
	var req string
	if err := md.PrimitiveDecode(prim, &req); err == nil {
		if err := validateReq(req, name, section, path); err != nil {
			return Dependency{}, err
		}
		return Dependency{Name: name, Package: name, Req: req}, nil
	}

	// Structured table form.
	var raw rawDep
	if err := md.PrimitiveDecode(prim, &raw); err != nil {
		return Dependency{}, errors.Wrap(errors.ErrCodeManifestSchema, err,
			"%s: [%s] %s must be a version string or a dependency table", path, section, name)
	}

	if raw.Workspace {
		// Workspace inheritance would need the workspace root manifest to
		// resolve; dropping the entry silently is worse than failing.
		return Dependency{}, errors.New(errors.ErrCodeManifestSchema,
			"%s: [%s] %s: workspace-inherited dependencies are not supported", path, section, name)
	}

	dep := Dependency{
		Name:      name,
		Package:   raw.Package,
		Req:       raw.Version,
		Path:      raw.Path,
		Git:       raw.Git,
		Features:  raw.Features,
		Optional:  raw.Optional,
		ProcMacro: raw.ProcMacro,
	}
	if dep.Package == "" {
		dep.Package = name
	} else if err := errors.ValidateCrateName(dep.Package); err != nil {
		return Dependency{}, errors.Wrap(errors.ErrCodeManifestSchema, err, "%s: [%s] %s", path, section, name)
	}

	if dep.Req == "" && dep.Path == "" && dep.Git == "" {
		return Dependency{}, errors.New(errors.ErrCodeManifestSchema,
			"%s: [%s] %s declares no version, path, or git source", path, section, name)
	}
	if dep.Req != "" {
		if err := validateReq(dep.Req, name, section, path); err != nil {
			return Dependency{}, err
		}
	}

	return dep, nil
}

// validateReq checks that a declared version requirement is well formed.
// Requirements are never used to select versions (the external mapping
// owns version selection); an unparseable requirement still indicates a
// broken manifest.
func validateReq(req, name, section, path string) error {
	if _, err := semver.NewConstraint(req); err != nil {
		return errors.Wrap(errors.ErrCodeManifestSchema, err,
			"%s: [%s] %s: invalid version requirement %q", path, section, name, req)
	}
	return nil
}
