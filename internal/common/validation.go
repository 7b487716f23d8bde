package common

import (
	"fmt"
	"slices"
)

// ValidateOutputFormat checks format against the configured list. An empty
// list places no restriction.
func ValidateOutputFormat(format string, supportedFormats []string) error {
	if len(supportedFormats) == 0 || slices.Contains(supportedFormats, format) {
		return nil
	}
	return fmt.Errorf("unsupported output format '%s'. Supported formats: %v", format, supportedFormats)
}

// GetSupportedFormats returns the configured format list for shell completion.
func GetSupportedFormats(supportedFormats []string) []string {
	return supportedFormats
}
