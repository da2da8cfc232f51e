// Package sanitize validates user-supplied names and paths before they touch
// the filesystem.
package sanitize

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Validation errors for security checks.
var (
	// ErrPathTraversal indicates a path contains directory traversal sequences.
	ErrPathTraversal = errors.New("path contains directory traversal")

	// ErrAbsolutePath indicates an absolute path was provided where relative was expected.
	ErrAbsolutePath = errors.New("absolute path not allowed")

	// ErrEmptyPath indicates an empty path was provided.
	ErrEmptyPath = errors.New("path cannot be empty")

	// ErrInvalidFeatureName indicates a feature name cannot be used as a directory name.
	ErrInvalidFeatureName = errors.New("invalid feature name")
)

// MaxFeatureNameLength bounds feature directory names.
const MaxFeatureNameLength = 128

// featureNamePattern allows letters, digits, dots, dashes and underscores,
// starting with a letter or digit.
var featureNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidatePath checks a path for security issues:
//   - No directory traversal (..)
//   - Resolves to absolute path and validates it stays within expected root
//   - Returns the cleaned, absolute path or an error
//
// Relative paths are resolved against allowedRoot, not the process working
// directory. If allowedRoot is empty, only traversal checks are performed.
func ValidatePath(path, allowedRoot string) (string, error) {
	if path == "" {
		return "", ErrEmptyPath
	}

	// Check for obvious traversal patterns before any processing
	if hasParentSegment(path) {
		return "", fmt.Errorf("%w: contains '..'", ErrPathTraversal)
	}

	cleanPath := filepath.Clean(path)

	absRoot := ""
	if allowedRoot != "" {
		var err error
		absRoot, err = filepath.Abs(allowedRoot)
		if err != nil {
			return "", fmt.Errorf("failed to resolve allowed root: %w", err)
		}
	}

	absPath := cleanPath
	if !filepath.IsAbs(cleanPath) {
		if absRoot != "" {
			absPath = filepath.Join(absRoot, cleanPath)
		} else {
			var err error
			absPath, err = filepath.Abs(cleanPath)
			if err != nil {
				return "", fmt.Errorf("failed to resolve path: %w", err)
			}
		}
	}

	if absRoot != "" {
		rel, err := filepath.Rel(absRoot, absPath)
		if err != nil {
			return "", fmt.Errorf("%w: path outside allowed root", ErrPathTraversal)
		}

		// If relative path starts with "..", it's outside the root
		if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return "", fmt.Errorf("%w: path escapes allowed root", ErrPathTraversal)
		}
	}

	return absPath, nil
}

// ValidateRelativePath is ValidatePath for paths that must be written
// relative to root, such as entries of a scaffolding block.
func ValidateRelativePath(path, root string) (string, error) {
	if filepath.IsAbs(path) || strings.HasPrefix(path, "/") || strings.HasPrefix(path, `\`) {
		return "", fmt.Errorf("%w: %s", ErrAbsolutePath, path)
	}
	return ValidatePath(path, root)
}

// hasParentSegment reports whether any element of path is "..". Names that
// merely contain two dots, such as "v1..2.txt", are allowed.
func hasParentSegment(path string) bool {
	for _, seg := range strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." {
			return true
		}
	}
	return false
}

// ValidateFeatureName checks that name can be used as a single directory
// name under the specs and archive directories.
func ValidateFeatureName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidFeatureName)
	}

	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: contains path characters", ErrInvalidFeatureName)
	}

	if len(name) > MaxFeatureNameLength {
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidFeatureName, MaxFeatureNameLength)
	}

	if !featureNamePattern.MatchString(name) {
		return fmt.Errorf("%w: must start with a letter or digit and contain only letters, digits, '.', '-' or '_'", ErrInvalidFeatureName)
	}

	return nil
}
