// Package security guards the paths the CLI reads maps from and writes
// reports to.
package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned when a path resolves outside every allowed
// directory.
var ErrOutsideRoot = errors.New("path escapes allowed directory")

// canonical resolves symlinks on path, or on its deepest existing parent
// when path itself does not exist yet.
func canonical(path string) (string, error) {
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", path, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	for dir := filepath.Dir(abs); ; dir = filepath.Dir(dir) {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			rest, _ := filepath.Rel(dir, abs)
			return filepath.Join(resolved, rest), nil
		}
		if dir == filepath.Dir(dir) {
			return abs, nil
		}
	}
}

// WithinDirectory checks that path, after cleaning and symlink resolution,
// stays inside root.
func WithinDirectory(path, root string) error {
	p, err := canonical(path)
	if err != nil {
		return err
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve %q: %w", root, err)
	}
	r, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return fmt.Errorf("resolve %q: %w", root, err)
	}

	rel, err := filepath.Rel(r, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("%w: %s not under %s", ErrOutsideRoot, path, root)
	}
	return nil
}

// WithinAny accepts path if it lies under at least one of roots.
func WithinAny(path string, roots []string) error {
	if len(roots) == 0 {
		return fmt.Errorf("no allowed directories specified")
	}
	for _, root := range roots {
		if WithinDirectory(path, root) == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: %s must be under one of %v", ErrOutsideRoot, path, roots)
}

// DefaultRoots are the working directory and the system temp directory.
func DefaultRoots() ([]string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return []string{cwd, os.TempDir()}, nil
}

// ValidateMapPath checks a map file path given on the command line.
func ValidateMapPath(path string) error {
	roots, err := DefaultRoots()
	if err != nil {
		return err
	}
	return WithinAny(path, roots)
}

// ReportPath joins a sanitised file name for a run artefact onto dir and
// checks the result stays within dir.
func ReportPath(dir, runID, suffix string) (string, error) {
	name := SanitizeFilename(runID) + suffix
	path := filepath.Join(dir, name)
	if err := WithinDirectory(path, dir); err != nil {
		return "", err
	}
	return path, nil
}

const maxFilenameLen = 128

// SanitizeFilename keeps ASCII letters, digits, dot, underscore and dash,
// collapses every other run of characters into one underscore and trims the
// result to maxFilenameLen.
func SanitizeFilename(s string) string {
	var b strings.Builder
	underscore := false
	for _, r := range s {
		if b.Len() >= maxFilenameLen {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
			underscore = false
		case !underscore:
			b.WriteByte('_')
			underscore = true
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}
