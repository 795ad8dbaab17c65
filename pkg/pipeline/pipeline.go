// Package pipeline provides the core translation pipeline for cratebuild.
//
// This package implements the complete read → classify → resolve →
// synthesize → render → write pipeline so CLI and CI entry points share
// one behavior.
//
// # Architecture
//
// The pipeline is a strict linear sequence of stages, each depending only
// on the one before it:
//
//  1. Read: parse the manifest into the structured model
//  2. Classify: partition dependencies by role, kind, and macro tag
//  3. Resolve: convert every dependency to a build-graph label
//  4. Synthesize: assemble one render context per declared target
//  5. Render: produce the descriptor text through the fixed template
//  6. Write/Check: atomically replace the destination, or diff against it
//
// All entities are created fresh per invocation and transformed
// immutably stage to stage; nothing is shared across invocations, so
// multiple manifests can be translated concurrently with one Runner per
// goroutine or a shared Runner (the Runner itself holds only immutable
// state).
//
// # Usage
//
//	mapping, _ := resolve.LoadMapping("third_party/crates.toml")
//	runner := pipeline.NewRunner(mapping, logger)
//	res, err := runner.Execute(ctx, pipeline.Options{
//	    ManifestPath: "crates/widgets/Cargo.toml",
//	    Mode:         pipeline.ModeWrite,
//	})
package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/cratebuild/cratebuild/pkg/classify"
	"github.com/cratebuild/cratebuild/pkg/errors"
	"github.com/cratebuild/cratebuild/pkg/manifest"
	"github.com/cratebuild/cratebuild/pkg/output"
	"github.com/cratebuild/cratebuild/pkg/render"
	"github.com/cratebuild/cratebuild/pkg/resolve"
	"github.com/cratebuild/cratebuild/pkg/target"
)

// Mode selects the output behavior of a pipeline run.
type Mode string

// Pipeline modes.
const (
	// ModeWrite renders fully in memory, then atomically replaces the
	// destination file.
	ModeWrite Mode = "write"
	// ModeCheck renders in memory and byte-compares against the existing
	// destination without modifying it.
	ModeCheck Mode = "check"
)

// DefaultDescriptorName is the destination filename next to a manifest.
const DefaultDescriptorName = "BUILD.bazel"

// Options contains all configuration for one translation.
type Options struct {
	// ManifestPath is the manifest to translate.
	ManifestPath string
	// RepoRoot is the repository root for path-label resolution. Empty
	// means discover it by ascending from the manifest directory.
	RepoRoot string
	// OutputPath is the destination descriptor. Empty means
	// DefaultDescriptorName in the manifest's directory.
	OutputPath string
	// Mode selects write or check behavior.
	Mode Mode
	// Policy is the path-vs-registry precedence rule.
	Policy classify.Policy

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.ManifestPath == "" {
		return errors.New(errors.ErrCodeInvalidInput, "manifest path is required")
	}
	if o.Mode == "" {
		o.Mode = ModeWrite
	}
	if o.Mode != ModeWrite && o.Mode != ModeCheck {
		return errors.New(errors.ErrCodeInvalidInput, "invalid mode: %q", o.Mode)
	}
	if o.RepoRoot == "" {
		o.RepoRoot = FindRepoRoot(filepath.Dir(o.ManifestPath))
	}
	if o.OutputPath == "" {
		o.OutputPath = filepath.Join(filepath.Dir(o.ManifestPath), DefaultDescriptorName)
	}
	o.validated = true
	return nil
}

// Result contains the outputs of one translation.
type Result struct {
	// ManifestPath is the translated manifest.
	ManifestPath string
	// OutputPath is the destination descriptor file.
	OutputPath string
	// Descriptor is the rendered descriptor text.
	Descriptor []byte
	// Drifted reports a check-mode mismatch.
	Drifted bool
	// Diff is the line diff of a check-mode mismatch.
	Diff string
	// Stats contains timing and size information.
	Stats Stats
}

// Stats contains pipeline execution statistics.
type Stats struct {
	TargetCount int
	DepCount    int
	ParseTime   time.Duration
	RenderTime  time.Duration
}

// Runner executes translations against one immutable external mapping.
type Runner struct {
	Mapping *resolve.Mapping
	Logger  *log.Logger
}

// NewRunner creates a pipeline runner. A nil logger falls back to the
// default logger.
func NewRunner(mapping *resolve.Mapping, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Mapping: mapping, Logger: logger}
}

// Execute runs the full pipeline for one manifest.
//
// Any stage failure aborts the whole invocation before the destination
// file is touched. In check mode a drift is reported on the Result, not
// as an error, so a caller iterating many manifests can enumerate every
// stale file in one run.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(opts.ManifestPath)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read manifest %s", opts.ManifestPath)
	}

	res, err := r.translate(data, opts, packageChecker())
	if err != nil {
		return nil, err
	}

	switch opts.Mode {
	case ModeCheck:
		diff, drifted, err := output.Check(opts.OutputPath, res.Descriptor)
		if err != nil {
			return nil, err
		}
		res.Drifted = drifted
		res.Diff = diff
		if drifted {
			r.Logger.Debug("descriptor drifted", "manifest", opts.ManifestPath, "output", opts.OutputPath)
		}
	default:
		if err := output.Write(opts.OutputPath, res.Descriptor); err != nil {
			return nil, err
		}
		r.Logger.Debug("descriptor written", "output", opts.OutputPath, "bytes", len(res.Descriptor))
	}

	return res, nil
}

// Translate is the pure core contract: manifest text and the injected
// mapping in, descriptor text out. No filesystem access; the path
// existence check is disabled, leaving pure label arithmetic.
func (r *Runner) Translate(data []byte, manifestPath string, opts Options) ([]byte, error) {
	opts.ManifestPath = manifestPath
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	res, err := r.translate(data, opts, nil)
	if err != nil {
		return nil, err
	}
	return res.Descriptor, nil
}

func (r *Runner) translate(data []byte, opts Options, checkPkg func(string) bool) (*Result, error) {
	start := time.Now()

	m, err := manifest.Parse(data, opts.ManifestPath)
	if err != nil {
		return nil, err
	}
	parseTime := time.Since(start)

	lists, err := classify.Manifest(m, classify.Options{
		Macro:  r.Mapping.MacroPredicate(),
		Policy: opts.Policy,
	})
	if err != nil {
		return nil, err
	}

	resolver := &resolve.Resolver{
		RepoRoot:     opts.RepoRoot,
		Mapping:      r.Mapping,
		CheckPackage: checkPkg,
	}

	dir := filepath.Dir(opts.ManifestPath)
	normal, err := resolver.ResolveAll(dir, lists.Normal)
	if err != nil {
		return nil, wrapManifest(err, opts.ManifestPath)
	}
	dev, err := resolver.ResolveAll(dir, lists.Dev)
	if err != nil {
		return nil, wrapManifest(err, opts.ManifestPath)
	}
	// Build-role dependencies have no slot in the descriptor, but they
	// are still resolved so a broken declaration fails generation
	// instead of being silently dropped.
	if _, err := resolver.ResolveAll(dir, lists.Build); err != nil {
		return nil, wrapManifest(err, opts.ManifestPath)
	}

	ctxs := target.Synthesize(m, normal, dev)

	renderStart := time.Now()
	descriptor, err := render.File(ctxs)
	if err != nil {
		return nil, err
	}

	r.Logger.Debug("translated manifest",
		"manifest", opts.ManifestPath,
		"targets", len(ctxs),
		"deps", len(normal)+len(dev))

	return &Result{
		ManifestPath: opts.ManifestPath,
		OutputPath:   opts.OutputPath,
		Descriptor:   descriptor,
		Stats: Stats{
			TargetCount: len(ctxs),
			DepCount:    len(normal) + len(dev),
			ParseTime:   parseTime,
			RenderTime:  time.Since(renderStart),
		},
	}, nil
}

// wrapManifest attaches the manifest path to resolution errors so the
// user can locate the fix.
func wrapManifest(err error, path string) error {
	return errors.Wrap(errors.GetCode(err), err, "%s", path)
}

// packageChecker reports whether a directory contains a package manifest.
func packageChecker() func(dir string) bool {
	return func(dir string) bool {
		info, err := os.Stat(filepath.Join(dir, "Cargo.toml"))
		return err == nil && !info.IsDir()
	}
}

// FindRepoRoot ascends from dir looking for a repository marker (.git or
// a third_party/crates.toml mapping). It falls back to dir itself when no
// marker is found, which keeps single-crate repositories working without
// configuration.
func FindRepoRoot(dir string) string {
	cur := filepath.Clean(dir)
	for {
		if isRepoRoot(cur) {
			return cur
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return filepath.Clean(dir)
		}
		cur = parent
	}
}

func isRepoRoot(dir string) bool {
	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		return true
	}
	if _, err := os.Stat(filepath.Join(dir, "third_party", "crates.toml")); err == nil {
		return true
	}
	return false
}
