package classify

import (
	"testing"

	"github.com/cratebuild/cratebuild/pkg/errors"
	"github.com/cratebuild/cratebuild/pkg/manifest"
)

func TestOne_Kinds(t *testing.T) {
	tests := []struct {
		name string
		dep  manifest.Dependency
		want Kind
	}{
		{
			name: "version only is external",
			dep:  manifest.Dependency{Name: "serde", Package: "serde", Req: "1.0"},
			want: KindExternal,
		},
		{
			name: "path only is path",
			dep:  manifest.Dependency{Name: "core_utils", Package: "core_utils", Path: "../core_utils"},
			want: KindPath,
		},
		{
			name: "git only is vcs",
			dep:  manifest.Dependency{Name: "exp", Package: "exp", Git: "https://example.com/exp.git"},
			want: KindVCS,
		},
		{
			name: "git with version is vcs",
			dep:  manifest.Dependency{Name: "exp", Package: "exp", Req: "0.2", Git: "https://example.com/exp.git"},
			want: KindVCS,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := One(tt.dep, manifest.RoleNormal, Options{})
			if err != nil {
				t.Fatalf("One failed: %v", err)
			}
			if c.Kind != tt.want {
				t.Errorf("Kind = %v, want %v", c.Kind, tt.want)
			}
		})
	}
}

// TestOne_PathWithVersionPrecedence documents a deliberate assumption: a
// dependency with both a path and a version requirement is treated as a
// local override with registry fallback, and the path wins by default.
// The precedence is inferred from build-tool convention, not from a
// documented guarantee, which is why it is a configurable Policy.
func TestOne_PathWithVersionPrecedence(t *testing.T) {
	dep := manifest.Dependency{Name: "core_utils", Package: "core_utils", Req: "0.3", Path: "../core_utils"}

	c, err := One(dep, manifest.RoleNormal, Options{Policy: PathWins})
	if err != nil {
		t.Fatalf("One failed: %v", err)
	}
	if c.Kind != KindPath {
		t.Errorf("PathWins Kind = %v, want %v", c.Kind, KindPath)
	}

	c, err = One(dep, manifest.RoleNormal, Options{Policy: RegistryWins})
	if err != nil {
		t.Fatalf("One failed: %v", err)
	}
	if c.Kind != KindExternal {
		t.Errorf("RegistryWins Kind = %v, want %v", c.Kind, KindExternal)
	}
}

func TestOne_AmbiguousSource(t *testing.T) {
	dep := manifest.Dependency{
		Name:    "exp",
		Package: "exp",
		Path:    "../exp",
		Git:     "https://example.com/exp.git",
	}

	_, err := One(dep, manifest.RoleNormal, Options{})
	if err == nil {
		t.Fatal("One succeeded, want ambiguous source error")
	}
	if !errors.Is(err, errors.ErrCodeAmbiguousSource) {
		t.Errorf("error code = %v, want %v", errors.GetCode(err), errors.ErrCodeAmbiguousSource)
	}
}

func TestOne_MacroDetection(t *testing.T) {
	fromMapping := func(name string) bool { return name == "serde_derive" }

	tests := []struct {
		name string
		dep  manifest.Dependency
		pred MacroPredicate
		want bool
	}{
		{
			name: "explicit manifest flag",
			dep:  manifest.Dependency{Name: "my_macros", Package: "my_macros", Req: "1", ProcMacro: true},
			want: true,
		},
		{
			name: "side channel predicate",
			dep:  manifest.Dependency{Name: "serde_derive", Package: "serde_derive", Req: "1"},
			pred: fromMapping,
			want: true,
		},
		{
			name: "predicate keyed by registry name for renames",
			dep:  manifest.Dependency{Name: "derive", Package: "serde_derive", Req: "1"},
			pred: fromMapping,
			want: true,
		},
		{
			name: "plain dependency",
			dep:  manifest.Dependency{Name: "serde", Package: "serde", Req: "1"},
			pred: fromMapping,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := One(tt.dep, manifest.RoleNormal, Options{Macro: tt.pred})
			if err != nil {
				t.Fatalf("One failed: %v", err)
			}
			if c.Macro != tt.want {
				t.Errorf("Macro = %v, want %v", c.Macro, tt.want)
			}
		})
	}
}

func TestManifest_RolesClassifiedIndependently(t *testing.T) {
	m := &manifest.Manifest{
		Path: "crates/widgets/Cargo.toml",
		Name: "widgets",
		Deps: []manifest.Dependency{
			{Name: "helper", Package: "helper", Path: "../helper"},
		},
		DevDeps: []manifest.Dependency{
			{Name: "helper", Package: "helper", Req: "2.0"},
		},
	}

	lists, err := Manifest(m, Options{})
	if err != nil {
		t.Fatalf("Manifest failed: %v", err)
	}

	if len(lists.Normal) != 1 || lists.Normal[0].Kind != KindPath {
		t.Errorf("Normal = %+v, want one path-kind entry", lists.Normal)
	}
	if len(lists.Dev) != 1 || lists.Dev[0].Kind != KindExternal {
		t.Errorf("Dev = %+v, want one external-kind entry", lists.Dev)
	}
}

func TestManifest_ErrorCarriesManifestPath(t *testing.T) {
	m := &manifest.Manifest{
		Path: "crates/widgets/Cargo.toml",
		Name: "widgets",
		Deps: []manifest.Dependency{
			{Name: "exp", Package: "exp", Path: "../exp", Git: "https://example.com/exp.git"},
		},
	}

	_, err := Manifest(m, Options{})
	if err == nil {
		t.Fatal("Manifest succeeded, want error")
	}
	if !errors.Is(err, errors.ErrCodeAmbiguousSource) {
		t.Errorf("error code = %v, want %v", errors.GetCode(err), errors.ErrCodeAmbiguousSource)
	}
}
