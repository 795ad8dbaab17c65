package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cratebuild/cratebuild/pkg/classify"
	"github.com/cratebuild/cratebuild/pkg/errors"
	"github.com/cratebuild/cratebuild/pkg/pipeline"
)

// generateOpts holds the command-line flags for the generate command.
type generateOpts struct {
	output       string // explicit output path, single manifest only
	registryWins bool   // prefer registry when a dependency declares path and version
}

// policy converts the precedence flag into the classifier policy.
func (o *generateOpts) policy() classify.Policy {
	if o.registryWins {
		return classify.RegistryWins
	}
	return classify.PathWins
}

// newGenerateCmd creates the generate command, which translates one or
// more Cargo manifests into build descriptor files next to each manifest.
func newGenerateCmd(root *rootOpts) *cobra.Command {
	opts := generateOpts{}

	cmd := &cobra.Command{
		Use:     "generate <Cargo.toml>...",
		Aliases: []string{"gen"},
		Short:   "Generate build descriptors from Cargo manifests",
		Long: `Generate build descriptor files from Cargo manifests.

Each manifest is translated independently and its descriptor written
atomically next to it (or to --output for a single manifest). Generation
is deterministic: the same manifest and mapping always produce the same
bytes, so descriptors can be committed and verified with 'check'.

Examples:
  cratebuild generate crates/widgets/Cargo.toml
  cratebuild generate crates/*/Cargo.toml
  cratebuild generate -o /tmp/BUILD.preview crates/widgets/Cargo.toml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runGenerate(c.Context(), root, &opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (requires exactly one manifest)")
	cmd.Flags().BoolVar(&opts.registryWins, "registry-wins", false, "resolve dependencies declaring both path and version from the registry")

	return cmd
}

// runGenerate translates every manifest and writes its descriptor. The
// first failing manifest aborts the run; earlier writes stay in place
// since each descriptor is complete on its own.
func runGenerate(ctx context.Context, root *rootOpts, opts *generateOpts, manifests []string) error {
	if opts.output != "" && len(manifests) != 1 {
		return errors.New(errors.ErrCodeInvalidInput, "--output requires exactly one manifest, got %d", len(manifests))
	}

	logger := loggerFromContext(ctx)
	runner, err := newRunner(ctx, root)
	if err != nil {
		return err
	}

	prog := newProgress(logger)
	for _, m := range manifests {
		res, err := runner.Execute(ctx, pipeline.Options{
			ManifestPath: m,
			RepoRoot:     root.repoRoot,
			OutputPath:   opts.output,
			Mode:         pipeline.ModeWrite,
			Policy:       opts.policy(),
		})
		if err != nil {
			printError("%s: %s", m, errors.UserMessage(err))
			return err
		}
		logger.Debugf("%s: %d targets, %d dependencies", m, res.Stats.TargetCount, res.Stats.DepCount)
		printFile(res.OutputPath)
	}
	prog.done(fmt.Sprintf("Generated %d descriptor(s)", len(manifests)))
	printSuccess("Descriptors up to date")

	return nil
}
