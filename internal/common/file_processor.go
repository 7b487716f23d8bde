package common

import (
	"fmt"
	"os"
	"path/filepath"

	"pmtailor/internal/errors"
	"pmtailor/internal/utils"
)

// FileProcessor handles file reads and writes with structured errors.
type FileProcessor struct {
	logger *errors.Logger
}

func NewFileProcessor(logger *errors.Logger) *FileProcessor {
	return &FileProcessor{logger: logger}
}

// ReadFile reads a file into a string.
func (fp *FileProcessor) ReadFile(path string) (string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", errors.NewIOError(errors.ErrCodeFileNotFound,
			fmt.Sprintf("file does not exist: %s", path), err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("failed to read file: %s", path), err)
	}

	return string(content), nil
}

// WriteFile writes content to path, creating parent directories as needed.
func (fp *FileProcessor) WriteFile(path, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return errors.NewIOError("DIRECTORY_CREATE_FAILED",
			fmt.Sprintf("failed to create directory: %s", dir), err)
	}

	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED",
			fmt.Sprintf("failed to write file: %s", path), err)
	}

	return nil
}

// ValidateAndReadFiles validates each input path and reads its content,
// preserving order.
func (fp *FileProcessor) ValidateAndReadFiles(paths ...string) ([]string, error) {
	contents := make([]string, 0, len(paths))

	for _, path := range paths {
		if err := utils.ValidateInputFile(path); err != nil {
			return nil, errors.NewValidationError("INVALID_INPUT_FILE",
				fmt.Sprintf("invalid input file: %s", path), err)
		}

		if !utils.IsTextFile(path) && fp.logger != nil {
			fp.logger.Warn("Input file does not have a recognized text extension", "path", path)
		}

		content, err := fp.ReadFile(path)
		if err != nil {
			return nil, err
		}
		contents = append(contents, content)
	}

	return contents, nil
}

// ValidateOutputFile checks that the output path is writable.
func (fp *FileProcessor) ValidateOutputFile(path string) error {
	if err := utils.ValidateOutputFile(path); err != nil {
		return errors.NewValidationError("INVALID_OUTPUT_FILE",
			fmt.Sprintf("invalid output file: %s", path), err)
	}
	return nil
}
