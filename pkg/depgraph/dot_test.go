package depgraph

import (
	"strings"
	"testing"

	"github.com/cratebuild/cratebuild/pkg/classify"
	"github.com/cratebuild/cratebuild/pkg/manifest"
	"github.com/cratebuild/cratebuild/pkg/resolve"
)

func resolved(pkg, label string, macro bool) resolve.Resolved {
	return resolve.Resolved{
		Classified: classify.Classified{
			Dependency: manifest.Dependency{Name: pkg, Package: pkg},
			Macro:      macro,
		},
		Label: label,
	}
}

func TestToDOT(t *testing.T) {
	g := FromLists(
		&manifest.Manifest{Name: "widgets"},
		[]resolve.Resolved{
			resolved("serde", "@crates//:serde", false),
			resolved("serde_derive", "@crates//:serde_derive", true),
		},
		[]resolve.Resolved{resolved("assert_matches", "@crates//:assert_matches", false)},
		nil,
	)

	dot := g.ToDOT()

	for _, want := range []string{
		`"widgets" [fillcolor=lightblue];`,
		`"serde" [label="@crates//:serde"];`,
		`"widgets" -> "serde" [style=solid];`,
		`"serde_derive" [label="@crates//:serde_derive", fillcolor=lightgrey];`,
		`"widgets" -> "assert_matches" [style=dashed];`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT output missing %q:\n%s", want, dot)
		}
	}

	if !strings.HasPrefix(dot, "digraph deps {") || !strings.HasSuffix(dot, "}\n") {
		t.Errorf("DOT output not well-formed:\n%s", dot)
	}
}

func TestToDOT_Deterministic(t *testing.T) {
	g := FromLists(
		&manifest.Manifest{Name: "widgets"},
		[]resolve.Resolved{
			resolved("serde", "@crates//:serde", false),
			resolved("base64", "@crates//:base64", false),
		},
		nil, nil,
	)

	if g.ToDOT() != g.ToDOT() {
		t.Error("two DOT renders of the same graph differ")
	}

	// Declaration order is preserved, not sorted.
	dot := g.ToDOT()
	if strings.Index(dot, "serde") > strings.Index(dot, "base64") {
		t.Errorf("dependency order not preserved:\n%s", dot)
	}
}
