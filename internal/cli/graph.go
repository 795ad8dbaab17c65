package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cratebuild/cratebuild/pkg/classify"
	"github.com/cratebuild/cratebuild/pkg/depgraph"
	"github.com/cratebuild/cratebuild/pkg/errors"
	"github.com/cratebuild/cratebuild/pkg/manifest"
	"github.com/cratebuild/cratebuild/pkg/pipeline"
	"github.com/cratebuild/cratebuild/pkg/resolve"
)

// graphOpts holds the command-line flags for the graph command.
type graphOpts struct {
	output string // output file, stdout if empty
	format string // dot or svg
}

// newGraphCmd creates the graph command, a debugging aid that renders a
// crate's resolved dependencies with their final build-graph labels.
func newGraphCmd(root *rootOpts) *cobra.Command {
	opts := graphOpts{format: "dot"}

	cmd := &cobra.Command{
		Use:   "graph <Cargo.toml>",
		Short: "Render a crate's resolved dependency graph",
		Long: `Render a crate's resolved dependencies as a Graphviz diagram.

Every dependency is shown with the build-graph label it resolves to,
styled by role: normal solid, dev dashed, build dotted. Proc-macro
dependencies are shaded. This is the quickest way to see how the
translation classified and resolved a manifest.

Examples:
  cratebuild graph crates/widgets/Cargo.toml
  cratebuild graph -f svg -o deps.svg crates/widgets/Cargo.toml`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runGraph(c.Context(), root, &opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: dot, svg")

	return cmd
}

// runGraph resolves the manifest's dependencies and writes the diagram.
func runGraph(ctx context.Context, root *rootOpts, opts *graphOpts, manifestPath string) error {
	if opts.format != "dot" && opts.format != "svg" {
		return errors.New(errors.ErrCodeInvalidInput, "invalid format: %q (available: dot, svg)", opts.format)
	}

	mapping, err := loadMapping(ctx, root)
	if err != nil {
		return err
	}

	g, err := resolveGraph(manifestPath, root.repoRoot, mapping)
	if err != nil {
		printError("%s: %s", manifestPath, errors.UserMessage(err))
		return err
	}

	out := []byte(g.ToDOT())
	if opts.format == "svg" {
		out, err = depgraph.RenderSVG(ctx, string(out))
		if err != nil {
			return err
		}
	}

	if opts.output == "" {
		fmt.Print(string(out))
		return nil
	}
	if err := os.WriteFile(opts.output, out, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", opts.output)
	}
	printFile(opts.output)
	return nil
}

// resolveGraph runs the parse, classify, and resolve stages for one
// manifest and assembles the role-partitioned graph. Path dependencies
// are resolved by label arithmetic only; a missing target package shows
// up when the descriptor is generated, not here.
func resolveGraph(manifestPath, repoRoot string, mapping *resolve.Mapping) (*depgraph.Graph, error) {
	m, err := manifest.Load(manifestPath)
	if err != nil {
		return nil, err
	}

	lists, err := classify.Manifest(m, classify.Options{Macro: mapping.MacroPredicate()})
	if err != nil {
		return nil, err
	}

	if repoRoot == "" {
		repoRoot = pipeline.FindRepoRoot(filepath.Dir(manifestPath))
	}
	resolver := &resolve.Resolver{RepoRoot: repoRoot, Mapping: mapping}

	dir := m.Dir()
	normal, err := resolver.ResolveAll(dir, lists.Normal)
	if err != nil {
		return nil, err
	}
	dev, err := resolver.ResolveAll(dir, lists.Dev)
	if err != nil {
		return nil, err
	}
	build, err := resolver.ResolveAll(dir, lists.Build)
	if err != nil {
		return nil, err
	}

	return depgraph.FromLists(m, normal, dev, build), nil
}
