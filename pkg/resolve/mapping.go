package resolve

import (
	"os"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/cratebuild/cratebuild/pkg/classify"
	"github.com/cratebuild/cratebuild/pkg/errors"
)

// Mapping is the external name→label mapping supplied by the registry
// configuration. It is loaded once at startup and never mutated; every
// external dependency name the translator may encounter must have an
// entry, since a lookup miss is fatal rather than guessable.
type Mapping struct {
	// External maps a registry crate name to its resolved build-graph
	// label (e.g. "serde" → "@crates//:serde").
	External map[string]string `toml:"external"`
	// Macros marks macro crates by registry name. This is the
	// side-channel macro signal merged with per-dependency manifest
	// flags.
	Macros map[string]bool `toml:"macros"`
}

// LoadMapping reads and parses the mapping file at path.
func LoadMapping(path string) (*Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidMapping, err, "read mapping %s", path)
	}
	return ParseMapping(data, path)
}

// ParseMapping parses mapping text and validates every entry.
func ParseMapping(data []byte, path string) (*Mapping, error) {
	var m Mapping
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidMapping, err, "parse mapping %s", path)
	}

	for name, label := range m.External {
		if err := errors.ValidateCrateName(name); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidMapping, err, "%s: [external]", path)
		}
		if err := errors.ValidateLabel(label); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidMapping, err, "%s: [external] %s", path, name)
		}
	}
	for name := range m.Macros {
		if err := errors.ValidateCrateName(name); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidMapping, err, "%s: [macros]", path)
		}
	}

	return &m, nil
}

// Lookup returns the external label for a registry crate name.
func (m *Mapping) Lookup(name string) (string, bool) {
	label, ok := m.External[name]
	return label, ok
}

// Names returns all mapped crate names in sorted order.
func (m *Mapping) Names() []string {
	names := make([]string, 0, len(m.External))
	for name := range m.External {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MacroPredicate returns the side-channel macro predicate backed by the
// [macros] section.
func (m *Mapping) MacroPredicate() classify.MacroPredicate {
	return func(name string) bool {
		return m.Macros[name]
	}
}
