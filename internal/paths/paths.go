package paths

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrTraversal is returned when a path resolves outside its base directory
var ErrTraversal = errors.New("path traversal attempt detected")

// Normalize converts a path to forward slashes (archive entry form)
func Normalize(p string) string {
	return filepath.ToSlash(filepath.Clean(p))
}

// Denormalize converts a forward-slash path to platform-specific separators
func Denormalize(p string) string {
	return filepath.FromSlash(p)
}

// CleanLower returns a cleaned, lowercase path for case-insensitive comparison
func CleanLower(p string) string {
	return strings.ToLower(filepath.Clean(p))
}

// FirstSegment returns the first element of a slash-separated relative path
func FirstSegment(rel string) string {
	rel = strings.TrimPrefix(Normalize(rel), "./")
	if idx := strings.Index(rel, "/"); idx >= 0 {
		return rel[:idx]
	}
	return rel
}

// FindActual finds the actual case of a file on case-insensitive filesystems.
// The original path is returned when nothing matches.
func FindActual(targetPath string) (string, error) {
	if _, err := os.Stat(targetPath); err == nil {
		return targetPath, nil
	}

	dir := filepath.Dir(targetPath)
	filename := filepath.Base(targetPath)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return targetPath, nil
	}

	for _, entry := range entries {
		if strings.EqualFold(entry.Name(), filename) {
			return filepath.Join(dir, entry.Name()), nil
		}
	}

	return targetPath, nil
}

// Join resolves an archive entry name below baseDir and rejects names that
// would escape it ("../", absolute names, drive letters).
func Join(baseDir, entryName string) (string, error) {
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base path: %w", err)
	}

	target := filepath.Join(absBase, Denormalize(entryName))
	if err := Within(absBase, target); err != nil {
		return "", fmt.Errorf("%w: %s", ErrTraversal, entryName)
	}
	return target, nil
}

// Within reports an error when targetPath is not basePath or below it
func Within(basePath, targetPath string) error {
	absBase, err := filepath.Abs(basePath)
	if err != nil {
		return fmt.Errorf("failed to resolve base path: %w", err)
	}
	absTarget, err := filepath.Abs(targetPath)
	if err != nil {
		return fmt.Errorf("failed to resolve target path: %w", err)
	}

	rel, err := filepath.Rel(absBase, absTarget)
	if err != nil {
		return ErrTraversal
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return ErrTraversal
	}
	return nil
}
