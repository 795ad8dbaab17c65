package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cratebuild/cratebuild/pkg/errors"
	"github.com/cratebuild/cratebuild/pkg/pipeline"
)

// checkOpts holds the command-line flags for the check command.
type checkOpts struct {
	noDiff bool // suppress the line diff for drifted descriptors
}

// newCheckCmd creates the check command, the CI entry point that verifies
// descriptors without writing anything.
func newCheckCmd(root *rootOpts) *cobra.Command {
	opts := checkOpts{}

	cmd := &cobra.Command{
		Use:   "check <Cargo.toml>...",
		Short: "Verify build descriptors are up to date (CI mode)",
		Long: `Verify that build descriptor files match what generation would produce.

Every manifest is checked even after a mismatch is found, so one run
reports all stale descriptors. Nothing is written: the command exits
non-zero when any descriptor is missing or out of date.

Examples:
  cratebuild check crates/*/Cargo.toml
  cratebuild check --no-diff crates/widgets/Cargo.toml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runCheck(c.Context(), root, &opts, args)
		},
	}

	cmd.Flags().BoolVar(&opts.noDiff, "no-diff", false, "suppress the line diff for stale descriptors")

	return cmd
}

// runCheck diffs every manifest's rendered descriptor against the file on
// disk. Translation failures abort immediately; drift is collected across
// all manifests and reported once at the end.
func runCheck(ctx context.Context, root *rootOpts, opts *checkOpts, manifests []string) error {
	logger := loggerFromContext(ctx)
	runner, err := newRunner(ctx, root)
	if err != nil {
		return err
	}

	var drifted []string
	for _, m := range manifests {
		res, err := runner.Execute(ctx, pipeline.Options{
			ManifestPath: m,
			RepoRoot:     root.repoRoot,
			Mode:         pipeline.ModeCheck,
		})
		if err != nil {
			printError("%s: %s", m, errors.UserMessage(err))
			return err
		}
		if !res.Drifted {
			logger.Debugf("%s: up to date", res.OutputPath)
			continue
		}
		drifted = append(drifted, res.OutputPath)
		printWarning("%s is out of date", res.OutputPath)
		if !opts.noDiff {
			fmt.Println(res.Diff)
		}
	}

	if len(drifted) > 0 {
		printError("%d of %d descriptor(s) out of date", len(drifted), len(manifests))
		printDetail("run 'cratebuild generate' to regenerate")
		return errors.New(errors.ErrCodeDriftDetected, "%d of %d descriptors out of date", len(drifted), len(manifests))
	}

	printSuccess("All %d descriptor(s) up to date", len(manifests))
	return nil
}
