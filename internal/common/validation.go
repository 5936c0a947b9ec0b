package common

import (
	"fmt"
	"slices"
	"strings"
)

// Stored-resume formats the backend's renderer accepts.
var resumeFormats = []string{"pdf", "word", "latex", "html"}

// ValidateOutputFormat checks a CLI output format against the configured
// supported formats. An empty supported list disables the check.
func ValidateOutputFormat(format string, supportedFormats []string) error {
	if len(supportedFormats) == 0 {
		return nil
	}
	if slices.Contains(supportedFormats, format) {
		return nil
	}
	return fmt.Errorf("unsupported output format '%s'. Supported formats: %v",
		format, supportedFormats)
}

// ValidateResumeFormat checks a stored-resume render format against the
// backend's whitelist and returns the lowercase name the backend expects.
func ValidateResumeFormat(format string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(format))
	if !slices.Contains(resumeFormats, normalized) {
		return "", fmt.Errorf("unsupported resume format '%s'. Supported formats: %v",
			format, resumeFormats)
	}
	return normalized, nil
}

// GetSupportedFormats returns the list of supported formats
func GetSupportedFormats(supportedFormats []string) []string {
	return supportedFormats
}
