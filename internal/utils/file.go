package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

var textExtensions = []string{".txt", ".md", ".markdown", ".text", ".json"}

// ValidateInputFile checks that path names a readable regular file.
func ValidateInputFile(path string) error {
	if path == "" {
		return fmt.Errorf("file path cannot be empty")
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file does not exist: %s", path)
		}
		return fmt.Errorf("cannot access file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("file is not readable: %w", err)
	}
	return f.Close()
}

// ValidateOutputFile checks the output path and creates missing parent
// directories.
func ValidateOutputFile(path string) error {
	if path == "" {
		return fmt.Errorf("output path cannot be empty")
	}

	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("cannot create output directory: %w", err)
		}
	}

	return nil
}

// IsTextFile reports whether the file extension suggests plain text.
func IsTextFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return slices.Contains(textExtensions, ext)
}
