package manifest

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/cratebuild/cratebuild/pkg/errors"
)

func TestParse(t *testing.T) {
	content := `[package]
name = "widgets"
version = "0.3.1"
edition = "2021"

[dependencies]
serde = "1.0"
core_utils = { path = "../core_utils" }
tokio = { version = "1.0", features = ["rt", "macros"], optional = true }
json = { package = "serde_json", version = "1" }

[dev-dependencies]
assert_matches = "1.5"

[build-dependencies]
cc = "1.0"
`

	m, err := Parse([]byte(content), "crates/widgets/Cargo.toml")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if m.Name != "widgets" {
		t.Errorf("Name = %q, want %q", m.Name, "widgets")
	}
	if m.Version != "0.3.1" {
		t.Errorf("Version = %q, want %q", m.Version, "0.3.1")
	}
	if m.Edition != "2021" {
		t.Errorf("Edition = %q, want %q", m.Edition, "2021")
	}
	if m.Dir() != "crates/widgets" {
		t.Errorf("Dir() = %q, want %q", m.Dir(), "crates/widgets")
	}

	wantDeps := []Dependency{
		{Name: "serde", Package: "serde", Req: "1.0"},
		{Name: "core_utils", Package: "core_utils", Path: "../core_utils"},
		{Name: "tokio", Package: "tokio", Req: "1.0", Features: []string{"rt", "macros"}, Optional: true},
		{Name: "json", Package: "serde_json", Req: "1"},
	}
	if diff := cmp.Diff(wantDeps, m.Deps); diff != "" {
		t.Errorf("Deps mismatch (-want +got):\n%s", diff)
	}

	if len(m.DevDeps) != 1 || m.DevDeps[0].Name != "assert_matches" {
		t.Errorf("DevDeps = %v, want one assert_matches entry", m.DevDeps)
	}
	if len(m.BuildDeps) != 1 || m.BuildDeps[0].Name != "cc" {
		t.Errorf("BuildDeps = %v, want one cc entry", m.BuildDeps)
	}
}

func TestParse_DeclarationOrderPreserved(t *testing.T) {
	content := `[package]
name = "ordered"

[dependencies]
zzz = "1"
aaa = "1"
mmm = { version = "2" }
`

	m, err := Parse([]byte(content), "Cargo.toml")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	want := []string{"zzz", "aaa", "mmm"}
	if len(m.Deps) != len(want) {
		t.Fatalf("got %d deps, want %d", len(m.Deps), len(want))
	}
	for i, name := range want {
		if m.Deps[i].Name != name {
			t.Errorf("Deps[%d].Name = %q, want %q", i, m.Deps[i].Name, name)
		}
	}
}

func TestParse_Targets(t *testing.T) {
	content := `[package]
name = "multi"
edition = "2018"

[lib]
name = "multi_core"
path = "src/custom_lib.rs"

[[bin]]
name = "multi-cli"

[[test]]
name = "integration"

[[bench]]
name = "throughput"
path = "benches/tp.rs"
`

	m, err := Parse([]byte(content), "Cargo.toml")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if m.Lib == nil || m.Lib.Name != "multi_core" || m.Lib.Path != "src/custom_lib.rs" {
		t.Errorf("Lib = %+v, want custom name and path", m.Lib)
	}
	if len(m.Bins) != 1 || m.Bins[0].Name != "multi-cli" {
		t.Errorf("Bins = %+v", m.Bins)
	}
	if len(m.Tests) != 1 || m.Tests[0].Name != "integration" {
		t.Errorf("Tests = %+v", m.Tests)
	}
	if len(m.Benches) != 1 || m.Benches[0].Path != "benches/tp.rs" {
		t.Errorf("Benches = %+v", m.Benches)
	}
}

func TestParse_DefaultsAndAutolib(t *testing.T) {
	m, err := Parse([]byte("[package]\nname = \"bare\"\n"), "Cargo.toml")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if m.Edition != DefaultEdition {
		t.Errorf("Edition = %q, want default %q", m.Edition, DefaultEdition)
	}
	if m.NoLib {
		t.Error("NoLib = true, want implicit library")
	}

	m, err = Parse([]byte("[package]\nname = \"bare\"\nautolib = false\n"), "Cargo.toml")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !m.NoLib {
		t.Error("NoLib = false, want suppressed library")
	}
}

func TestParse_IgnoresUnknownFields(t *testing.T) {
	content := `[package]
name = "future"
rust-version = "1.85"
some-future-field = { nested = true }

[dependencies]
serde = { version = "1.0", default-features = false }

[profile.release]
lto = true
`

	m, err := Parse([]byte(content), "Cargo.toml")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(m.Deps) != 1 || m.Deps[0].Name != "serde" {
		t.Errorf("Deps = %v, want single serde entry", m.Deps)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    errors.Code
	}{
		{
			name:    "malformed toml",
			content: "[package\nname = ",
			code:    errors.ErrCodeManifestParse,
		},
		{
			name:    "missing package section",
			content: "[dependencies]\nserde = \"1\"\n",
			code:    errors.ErrCodeManifestSchema,
		},
		{
			name:    "missing package name",
			content: "[package]\nversion = \"0.1.0\"\n",
			code:    errors.ErrCodeManifestSchema,
		},
		{
			name:    "dependency entry wrong shape",
			content: "[package]\nname = \"x\"\n\n[dependencies]\nserde = 1\n",
			code:    errors.ErrCodeManifestSchema,
		},
		{
			name:    "workspace inherited dependency",
			content: "[package]\nname = \"x\"\n\n[dependencies]\nserde = { workspace = true }\n",
			code:    errors.ErrCodeManifestSchema,
		},
		{
			name:    "sourceless dependency table",
			content: "[package]\nname = \"x\"\n\n[dependencies]\nserde = { optional = true }\n",
			code:    errors.ErrCodeManifestSchema,
		},
		{
			name:    "invalid version requirement",
			content: "[package]\nname = \"x\"\n\n[dependencies]\nserde = \"not-a-version\"\n",
			code:    errors.ErrCodeManifestSchema,
		},
		{
			name:    "unnamed binary target",
			content: "[package]\nname = \"x\"\n\n[[bin]]\npath = \"src/main.rs\"\n",
			code:    errors.ErrCodeManifestSchema,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content), "Cargo.toml")
			if err == nil {
				t.Fatal("Parse succeeded, want error")
			}
			if !errors.Is(err, tt.code) {
				t.Errorf("error code = %v, want %v (err: %v)", errors.GetCode(err), tt.code, err)
			}
		})
	}
}

func TestDependency_Renamed(t *testing.T) {
	plain := Dependency{Name: "serde", Package: "serde"}
	if plain.Renamed() {
		t.Error("Renamed() = true for non-renamed dependency")
	}
	renamed := Dependency{Name: "json", Package: "serde_json"}
	if !renamed.Renamed() {
		t.Error("Renamed() = false for renamed dependency")
	}
}
