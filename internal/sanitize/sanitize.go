// Package sanitize provides path and identifier validation for untrusted
// action targets.
package sanitize

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	// ErrPathTraversal indicates a path contains or resolves to a
	// directory traversal outside the permitted root.
	ErrPathTraversal = errors.New("path contains directory traversal")

	// ErrEmptyPath indicates an empty path was provided.
	ErrEmptyPath = errors.New("path cannot be empty")

	// ErrInvalidName indicates a project name is unsafe for filesystem use.
	ErrInvalidName = errors.New("invalid name: must be alphanumeric with dots/hyphens/underscores")
)

// namePattern validates project names used as directory names.
var namePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// ContainsTraversal reports whether a raw target carries traversal
// sequences, before any cleaning. Used by the risk classifier, which must
// stay side-effect free.
func ContainsTraversal(path string) bool {
	if strings.Contains(path, "..") {
		return true
	}
	return strings.Contains(filepath.Clean(path), "..")
}

// ResolveWithin resolves a target path against a workspace root and
// verifies it stays inside that root. Absolute targets are accepted only
// when already under the root. Returns the cleaned absolute path.
func ResolveWithin(path, root string) (string, error) {
	if path == "" {
		return "", ErrEmptyPath
	}
	if strings.Contains(path, "..") {
		return "", fmt.Errorf("%w: contains '..'", ErrPathTraversal)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving workspace root: %w", err)
	}

	abs := filepath.Clean(path)
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(absRoot, abs)
	}

	// Re-check after cleaning; handles shapes like "foo/../..".
	rel, err := filepath.Rel(absRoot, abs)
	if err != nil {
		return "", fmt.Errorf("%w: path outside workspace root", ErrPathTraversal)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: path escapes workspace root", ErrPathTraversal)
	}

	return abs, nil
}

// ValidateProjectName checks that a project name is safe to use as a
// directory name under the workspace root.
func ValidateProjectName(name string) error {
	if name == "" {
		return ErrInvalidName
	}
	if len(name) > 255 {
		return fmt.Errorf("%w: name too long (max 255)", ErrInvalidName)
	}
	if name == "." || name == ".." {
		return fmt.Errorf("%w: reserved name", ErrInvalidName)
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: contains path separators", ErrInvalidName)
	}
	if !namePattern.MatchString(name) {
		return ErrInvalidName
	}
	return nil
}
