// Package validation checks the file paths the renderer reads from and writes to.
// It rejects path traversal and verifies file system access before any work is done.
package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DescriptorExtensions are the accepted plugin descriptor file extensions.
var DescriptorExtensions = []string{".hcl", ".json"}

// ValidateOutputPath validates an image output path.
// Returns error if path is invalid, contains path traversal attempts, or is not writable
func ValidateOutputPath(outputPath string) error {
	if outputPath == "" {
		return fmt.Errorf("output path cannot be empty")
	}

	// Clean the path to resolve any . or .. components
	cleanPath := filepath.Clean(outputPath)

	if hasParentRef(cleanPath) {
		return fmt.Errorf("path traversal detected in output path: %s", outputPath)
	}

	absPath, err := filepath.Abs(cleanPath)
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	dir := filepath.Dir(absPath)

	dirInfo, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("output directory does not exist: %s", dir)
		}
		return fmt.Errorf("failed to access output directory: %w", err)
	}
	if !dirInfo.IsDir() {
		return fmt.Errorf("output path parent is not a directory: %s", dir)
	}

	// Probe writability with a temp file
	f, err := os.CreateTemp(dir, ".chartrender-write-*")
	if err != nil {
		return fmt.Errorf("output directory is not writable: %s: %w", dir, err)
	}
	name := f.Name()
	f.Close()
	os.Remove(name)

	return nil
}

// ValidateInputPath validates an input path (chart spec or descriptor).
// Returns error if path doesn't exist or is not accessible
func ValidateInputPath(inputPath string, mustBeDir bool) error {
	if inputPath == "" {
		return fmt.Errorf("input path cannot be empty")
	}

	cleanPath := filepath.Clean(inputPath)

	// Relative paths may not climb out of the working directory
	if hasParentRef(cleanPath) && !filepath.IsAbs(inputPath) {
		return fmt.Errorf("potentially unsafe path detected: %s", inputPath)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("input path does not exist: %s", cleanPath)
		}
		return fmt.Errorf("failed to access input path: %w", err)
	}

	if mustBeDir && !info.IsDir() {
		return fmt.Errorf("input path must be a directory: %s", cleanPath)
	}
	if !mustBeDir && info.IsDir() {
		return fmt.Errorf("input path must be a file: %s", cleanPath)
	}

	return nil
}

// ResolveDescriptorPath resolves a plugin descriptor reference against
// baseDir and validates it. Relative references must stay inside baseDir.
func ResolveDescriptorPath(baseDir, ref string) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("descriptor path cannot be empty")
	}

	ext := strings.ToLower(filepath.Ext(ref))
	supported := false
	for _, e := range DescriptorExtensions {
		if ext == e {
			supported = true
			break
		}
	}
	if !supported {
		return "", fmt.Errorf("unsupported descriptor file %q: expected one of %s",
			ref, strings.Join(DescriptorExtensions, ", "))
	}

	return ResolveBasePath(baseDir, ref)
}

// ResolveBasePath resolves a file reference against baseDir and validates
// it. Relative references may not climb out of baseDir, and when baseDir is
// set absolute references must lie inside it.
func ResolveBasePath(baseDir, ref string) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	path := filepath.Clean(ref)
	switch {
	case !filepath.IsAbs(path):
		if hasParentRef(path) {
			return "", fmt.Errorf("path traversal detected in path: %s", ref)
		}
		if baseDir != "" {
			path = filepath.Join(baseDir, path)
		}
	case baseDir != "":
		base, err := filepath.Abs(baseDir)
		if err != nil {
			return "", fmt.Errorf("failed to resolve base directory: %w", err)
		}
		rel, err := filepath.Rel(base, path)
		if err != nil || hasParentRef(rel) {
			return "", fmt.Errorf("path %s is outside base directory %s", ref, baseDir)
		}
	}

	if err := ValidateInputPath(path, false); err != nil {
		return "", err
	}
	return path, nil
}

func hasParentRef(cleanPath string) bool {
	for _, part := range strings.Split(filepath.ToSlash(cleanPath), "/") {
		if part == ".." {
			return true
		}
	}
	return false
}
