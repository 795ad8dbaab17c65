package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
)

func TestSetVersion(t *testing.T) {
	SetVersion("1.0.0", "abc123", "2024-01-01")

	if version != "1.0.0" {
		t.Errorf("version = %q, want %q", version, "1.0.0")
	}
	if commit != "abc123" {
		t.Errorf("commit = %q, want %q", commit, "abc123")
	}
	if date != "2024-01-01" {
		t.Errorf("date = %q, want %q", date, "2024-01-01")
	}
}

func quietContext() context.Context {
	return withLogger(context.Background(), newLogger(io.Discard, log.FatalLevel))
}

func TestLoadMapping_ExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "crates.toml")
	content := "[external]\nserde = \"@crates//:serde\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := loadMapping(quietContext(), &rootOpts{mapping: path})
	if err != nil {
		t.Fatalf("loadMapping failed: %v", err)
	}
	if _, ok := m.Lookup("serde"); !ok {
		t.Error("mapping missing serde entry")
	}
}

func TestLoadMapping_ExplicitFileMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.toml")
	if _, err := loadMapping(quietContext(), &rootOpts{mapping: path}); err == nil {
		t.Error("expected error for explicitly flagged missing mapping file")
	}
}

func TestLoadMapping_DefaultMissingIsEmpty(t *testing.T) {
	m, err := loadMapping(quietContext(), &rootOpts{repoRoot: t.TempDir()})
	if err != nil {
		t.Fatalf("loadMapping failed: %v", err)
	}
	if _, ok := m.Lookup("anything"); ok {
		t.Error("expected empty mapping when no file exists at the default path")
	}
}

func TestLoadMapping_DefaultLocation(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "third_party"), 0o755); err != nil {
		t.Fatal(err)
	}
	content := "[external]\nbase64 = \"@crates//:base64\"\n"
	if err := os.WriteFile(filepath.Join(root, "third_party", "crates.toml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := loadMapping(quietContext(), &rootOpts{repoRoot: root})
	if err != nil {
		t.Fatalf("loadMapping failed: %v", err)
	}
	if _, ok := m.Lookup("base64"); !ok {
		t.Error("mapping at default location not loaded")
	}
}
