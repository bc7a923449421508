// Package security confines file access for stored scan data to the
// configured results directory.
package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrPathEscape indicates the resolved path would leave the results directory.
	ErrPathEscape = errors.New("path escapes base directory")
	// ErrInvalidName rejects identifiers that cannot be used as a file name.
	ErrInvalidName = errors.New("invalid file name")
)

const maxNameLength = 128

// ResolveWithin joins elems under base and returns the absolute result. It
// fails when the cleaned path would land outside base.
func ResolveWithin(base string, elems ...string) (string, error) {
	if base == "" {
		return "", errors.New("base directory is required")
	}

	root, err := filepath.Abs(base)
	if err != nil {
		return "", fmt.Errorf("resolve base path: %w", err)
	}

	target, err := filepath.Abs(filepath.Join(append([]string{root}, elems...)...))
	if err != nil {
		return "", fmt.Errorf("resolve target path: %w", err)
	}

	rel, err := filepath.Rel(root, target)
	if err != nil {
		return "", fmt.Errorf("relativize path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", ErrPathEscape, target)
	}
	return target, nil
}

// ValidateName accepts batch and request identifiers used as file names:
// letters, digits, '-', '_' and '.', not starting with a dot.
func ValidateName(name string) error {
	if name == "" || len(name) > maxNameLength || name[0] == '.' {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.':
		default:
			return fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
	}
	return nil
}
