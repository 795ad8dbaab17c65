// Package depgraph renders a crate's resolved dependencies as a Graphviz
// diagram. It backs the graph subcommand, which is a debugging aid for
// inspecting what the translation saw: every resolved dependency appears
// with its final build-graph label, partitioned by role.
package depgraph

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"

	"github.com/cratebuild/cratebuild/pkg/errors"
	"github.com/cratebuild/cratebuild/pkg/manifest"
	"github.com/cratebuild/cratebuild/pkg/resolve"
)

// Graph is one crate and its resolved dependency edges.
type Graph struct {
	// Crate is the root package name.
	Crate string
	// Normal, Dev, and Build hold the resolved dependencies per role.
	Normal []resolve.Resolved
	Dev    []resolve.Resolved
	Build  []resolve.Resolved
}

// FromLists assembles a Graph from a parsed manifest and its resolved
// dependency lists.
func FromLists(m *manifest.Manifest, normal, dev, build []resolve.Resolved) *Graph {
	return &Graph{Crate: m.Name, Normal: normal, Dev: dev, Build: build}
}

// ToDOT converts the graph to Graphviz DOT format. Edges are styled per
// role: normal solid, dev dashed, build dotted. Proc-macro dependencies
// get a grey fill so macro routing is visible at a glance.
func (g *Graph) ToDOT() string {
	var buf bytes.Buffer
	buf.WriteString("digraph deps {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=12];\n")
	buf.WriteString("\n")

	fmt.Fprintf(&buf, "  %q [fillcolor=lightblue];\n", g.Crate)
	for _, set := range []struct {
		deps  []resolve.Resolved
		style string
	}{
		{g.Normal, "solid"},
		{g.Dev, "dashed"},
		{g.Build, "dotted"},
	} {
		for _, d := range set.deps {
			attrs := fmt.Sprintf("label=%q", d.Label)
			if d.Macro {
				attrs += ", fillcolor=lightgrey"
			}
			fmt.Fprintf(&buf, "  %q [%s];\n", d.Package, attrs)
			fmt.Fprintf(&buf, "  %q -> %q [style=%s];\n", g.Crate, d.Package, set.style)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "init graphviz")
	}
	defer gv.Close()

	parsed, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "parse DOT")
	}
	defer parsed.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, parsed, graphviz.SVG, &buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "render SVG")
	}
	return buf.Bytes(), nil
}
