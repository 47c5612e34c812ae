package common

import (
	"fmt"
	"slices"
)

// ValidateOutputFormat validates format against configured supported formats
func ValidateOutputFormat(format string, supportedFormats []string) error {
	if len(supportedFormats) == 0 {
		return nil // No restrictions configured
	}

	if slices.Contains(supportedFormats, format) {
		return nil
	}

	return fmt.Errorf("unsupported output format '%s'. Supported formats: %v",
		format, supportedFormats)
}

// ResolveOutputFormat picks the flag value, falling back to the configured
// default, and validates the result
func ResolveOutputFormat(flagValue, defaultFormat string, supportedFormats []string) (string, error) {
	format := flagValue
	if format == "" {
		format = defaultFormat
	}
	if format == "" {
		format = "text"
	}
	if err := ValidateOutputFormat(format, supportedFormats); err != nil {
		return "", err
	}
	return format, nil
}
