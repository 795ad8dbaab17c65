package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// crateNameRegex matches valid crates.io package names.
var crateNameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)

// ValidateCrateName validates a crate name as it may appear in a manifest
// dependency table or package section.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters or null bytes
//   - No path separators
//   - Maximum length of 64 characters (the registry limit)
func ValidateCrateName(name string) error {
	if name == "" {
		return New(ErrCodeManifestSchema, "crate name cannot be empty")
	}

	if len(name) > 64 {
		return New(ErrCodeManifestSchema, "crate name too long (max 64 characters): %q", name)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeManifestSchema, "crate name contains control characters: %q", name)
		}
	}

	if strings.ContainsAny(name, "/\\") {
		return New(ErrCodeManifestSchema, "crate name cannot contain path separators: %q", name)
	}

	if !crateNameRegex.MatchString(name) {
		return New(ErrCodeManifestSchema, "invalid crate name: %q", name)
	}

	return nil
}

// ValidateLabel validates a build-graph label string supplied by the
// external mapping. Accepted forms are external labels ("@repo//:target",
// "@repo//pkg:target") and repository-relative labels ("//pkg/path:target").
func ValidateLabel(label string) error {
	if label == "" {
		return New(ErrCodeInvalidMapping, "label cannot be empty")
	}

	rest, ok := strings.CutPrefix(label, "@")
	if ok {
		i := strings.Index(rest, "//")
		if i <= 0 {
			return New(ErrCodeInvalidMapping, "external label missing repository name: %q", label)
		}
		rest = rest[i:]
	}

	if !strings.HasPrefix(rest, "//") {
		return New(ErrCodeInvalidMapping, "label must be absolute (start with // or @repo//): %q", label)
	}

	if strings.Contains(rest, "..") {
		return New(ErrCodeInvalidMapping, "label cannot contain path traversal sequences: %q", label)
	}

	for _, r := range label {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidMapping, "label contains invalid characters: %q", label)
		}
	}

	return nil
}
