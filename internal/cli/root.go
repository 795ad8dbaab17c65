package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/cratebuild/cratebuild/pkg/pipeline"
	"github.com/cratebuild/cratebuild/pkg/resolve"
)

var (
	version string // semantic version (e.g., "v1.2.3")
	commit  string // git commit SHA
	date    string // build timestamp
)

// SetVersion sets the version information displayed by --version.
// This is typically called by the main package during initialization with
// values injected via ldflags at build time.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// rootOpts holds the persistent flags shared by all subcommands.
type rootOpts struct {
	mapping  string // dependency mapping file, empty means auto-discover
	repoRoot string // repository root, empty means discover per manifest
}

// DefaultMappingPath is the conventional mapping file location relative to
// the repository root.
var DefaultMappingPath = filepath.Join("third_party", "crates.toml")

// Execute runs the cratebuild CLI and returns an error if any command
// fails. This is the main entry point for the CLI application.
//
// The function sets up the root command with all subcommands (generate,
// check, graph, completion), configures logging based on the --verbose
// flag, and executes the command tree.
//
// Logging:
//   - Default: info level (logs to stderr)
//   - With --verbose (-v): debug level
//
// The logger is attached to the context and accessible to all commands via
// loggerFromContext.
func Execute(ctx context.Context) error {
	var verbose bool
	opts := &rootOpts{}

	root := &cobra.Command{
		Use:           "cratebuild",
		Short:         "cratebuild translates Cargo manifests into build descriptors",
		Long:          `cratebuild deterministically translates Cargo.toml manifests into build descriptor files (BUILD.bazel), keeping generated build definitions in lockstep with the manifests that describe each crate.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			cmd.SetContext(withLogger(cmd.Context(), newLogger(os.Stderr, level)))
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("cratebuild %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVarP(&opts.mapping, "mapping", "m", "", "external dependency mapping file (default <repo-root>/third_party/crates.toml)")
	root.PersistentFlags().StringVar(&opts.repoRoot, "repo-root", "", "repository root for path dependency labels (default: discovered from each manifest)")

	root.AddCommand(newGenerateCmd(opts))
	root.AddCommand(newCheckCmd(opts))
	root.AddCommand(newGraphCmd(opts))
	root.AddCommand(newCompletionCmd())

	return root.ExecuteContext(ctx)
}

// loadMapping loads the external dependency mapping for a command run.
//
// An explicitly flagged file must exist. Without the flag, the mapping is
// looked up at the conventional location under the repository root; a
// missing conventional file yields an empty mapping with a warning, so
// crates with only path dependencies work without configuration.
func loadMapping(ctx context.Context, opts *rootOpts) (*resolve.Mapping, error) {
	if opts.mapping != "" {
		return resolve.LoadMapping(opts.mapping)
	}

	root := opts.repoRoot
	if root == "" {
		root = pipeline.FindRepoRoot(".")
	}
	path := filepath.Join(root, DefaultMappingPath)
	if _, err := os.Stat(path); err != nil {
		loggerFromContext(ctx).Warnf("No dependency mapping at %s; external dependencies cannot be resolved", path)
		return &resolve.Mapping{}, nil
	}
	return resolve.LoadMapping(path)
}

// newRunner builds a pipeline runner wired with the loaded mapping and the
// context logger.
func newRunner(ctx context.Context, opts *rootOpts) (*pipeline.Runner, error) {
	mapping, err := loadMapping(ctx, opts)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(mapping, loggerFromContext(ctx)), nil
}
