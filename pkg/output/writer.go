// Package output writes rendered descriptors to disk and implements the
// check mode the CI drift detection depends on.
//
// Writes are all-or-nothing: content is rendered fully in memory before
// this package is involved, written to a temporary file in the
// destination directory, and atomically renamed into place. A failed
// invocation never leaves a partially written descriptor.
package output

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/go-cmp/cmp"

	"github.com/cratebuild/cratebuild/pkg/errors"
)

// Write atomically replaces the file at path with data.
func Write(path string, data []byte) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "create temp file in %s", dir)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(errors.ErrCodeInternal, err, "close %s", tmpName)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(errors.ErrCodeInternal, err, "chmod %s", tmpName)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(errors.ErrCodeInternal, err, "rename %s to %s", tmpName, path)
	}
	return nil
}

// Check compares data byte-for-byte against the existing file at path
// without modifying anything. It returns drifted=true with a line diff
// when the contents differ; a missing destination file counts as drift.
func Check(path string, data []byte) (diff string, drifted bool, err error) {
	existing, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "destination file does not exist", true, nil
	}
	if err != nil {
		return "", false, errors.Wrap(errors.ErrCodeInvalidInput, err, "read %s", path)
	}

	if bytes.Equal(existing, data) {
		return "", false, nil
	}

	d := cmp.Diff(splitLines(existing), splitLines(data))
	return d, true, nil
}

// splitLines splits file content for line-oriented diff reporting.
func splitLines(data []byte) []string {
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}
