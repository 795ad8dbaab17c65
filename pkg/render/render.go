// Package render turns target contexts into the build descriptor's
// concrete textual form.
//
// Rendering is a pure function with a fixed template: identical input
// always produces identical bytes, including whitespace. The drift-check
// workflow byte-compares generated descriptors against checked-in files,
// so any nondeterminism here would surface as phantom drift.
package render

import (
	"bytes"
	"text/template"

	"github.com/cratebuild/cratebuild/pkg/errors"
	"github.com/cratebuild/cratebuild/pkg/target"
)

// Header is the first line of every generated descriptor.
const Header = "# Generated by cratebuild. DO NOT EDIT.\n"

// targetTmpl is the fixed per-target template. The macro-dependency
// section and the alias section render only when non-empty.
const targetTmpl = `{{.RuleName}}(
    name = "{{.Name}}",
    crate_name = "{{.CrateName}}",
    srcs = {{.Srcs}},
    edition = "{{.Edition}}",
{{- if .Deps}}
    deps = [
{{- range .Deps}}
        "{{.}}",
{{- end}}
    ],
{{- else}}
    deps = [],
{{- end}}
{{- if .ProcMacroDeps}}
    proc_macro_deps = [
{{- range .ProcMacroDeps}}
        "{{.}}",
{{- end}}
    ],
{{- end}}
{{- if .Aliases}}
    aliases = {
{{- range .Aliases}}
        "{{.Label}}": "{{.Rename}}",
{{- end}}
    },
{{- end}}
)
`

var tmpl = template.Must(template.New("target").Parse(targetTmpl))

// Target renders one target context.
func Target(c *target.Context) ([]byte, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, c); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "render target %s", c.Name)
	}
	return buf.Bytes(), nil
}

// File renders a complete descriptor file: the generated-file header
// followed by one block per target, separated by blank lines.
func File(ctxs []target.Context) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(Header)

	for i := range ctxs {
		buf.WriteByte('\n')
		block, err := Target(&ctxs[i])
		if err != nil {
			return nil, err
		}
		buf.Write(block)
	}

	return buf.Bytes(), nil
}
