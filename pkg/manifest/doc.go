// Package manifest reads Cargo-style dependency manifests into a
// structured in-memory model.
//
// # Overview
//
// Parsing is a pure step: one manifest document in, one [Manifest] out.
// Dependency entries legally take two shapes (a bare version string or a
// structured table); both are normalized into one [Dependency] record at
// parse time so later pipeline stages never inspect raw TOML.
//
// # Forward Compatibility
//
// Unknown manifest fields are ignored so that future manifest additions do
// not break generation. Fields that are relevant to dependency resolution
// but cannot be interpreted (for example workspace-inherited dependencies)
// fail loudly with a schema error, since silently dropping a dependency
// would produce an incorrect build graph.
//
// # Usage
//
//	m, err := manifest.Load("crates/widgets/Cargo.toml")
//	if err != nil {
//	    return err
//	}
//	for _, dep := range m.Deps {
//	    fmt.Println(dep.Name, dep.Req)
//	}
package manifest
