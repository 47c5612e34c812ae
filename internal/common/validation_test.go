package common

import (
	"testing"
)

func TestValidateOutputFormat(t *testing.T) {
	tests := []struct {
		name             string
		format           string
		supportedFormats []string
		expectError      bool
		expectedError    string
	}{
		{
			name:             "valid format - json",
			format:           "json",
			supportedFormats: []string{"json", "text", "markdown"},
			expectError:      false,
		},
		{
			name:             "valid format - text",
			format:           "text",
			supportedFormats: []string{"json", "text", "markdown"},
			expectError:      false,
		},
		{
			name:             "valid format - markdown",
			format:           "markdown",
			supportedFormats: []string{"json", "text", "markdown"},
			expectError:      false,
		},
		{
			name:             "invalid format - xml",
			format:           "xml",
			supportedFormats: []string{"json", "text", "markdown"},
			expectError:      true,
			expectedError:    "unsupported output format 'xml'. Supported formats: [json text markdown]",
		},
		{
			name:             "valid format - yaml",
			format:           "yaml",
			supportedFormats: []string{"json", "yaml", "text", "markdown"},
			expectError:      false,
		},
		{
			name:             "invalid format - csv",
			format:           "csv",
			supportedFormats: []string{"json", "text", "markdown"},
			expectError:      true,
			expectedError:    "unsupported output format 'csv'. Supported formats: [json text markdown]",
		},
		{
			name:             "case sensitive - JSON uppercase",
			format:           "JSON",
			supportedFormats: []string{"json", "text", "markdown"},
			expectError:      true,
			expectedError:    "unsupported output format 'JSON'. Supported formats: [json text markdown]",
		},
		{
			name:             "empty format string",
			format:           "",
			supportedFormats: []string{"json", "text", "markdown"},
			expectError:      true,
			expectedError:    "unsupported output format ''. Supported formats: [json text markdown]",
		},
		{
			name:             "empty supported formats - should allow all",
			format:           "xml",
			supportedFormats: []string{},
			expectError:      false,
		},
		{
			name:             "single supported format - valid",
			format:           "json",
			supportedFormats: []string{"json"},
			expectError:      false,
		},
		{
			name:             "single supported format - invalid",
			format:           "text",
			supportedFormats: []string{"json"},
			expectError:      true,
			expectedError:    "unsupported output format 'text'. Supported formats: [json]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Run validation
			err := ValidateOutputFormat(tt.format, tt.supportedFormats)

			// Check results
			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
					return
				}
				if tt.expectedError != "" && err.Error() != tt.expectedError {
					t.Errorf("Expected error '%s', got '%s'", tt.expectedError, err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("Expected no error but got: %v", err)
				}
			}
		})
	}
}

func TestResolveOutputFormat(t *testing.T) {
	supported := []string{"json", "yaml", "text", "markdown"}
	tests := []struct {
		name          string
		flag          string
		defaultFormat string
		expected      string
		expectError   bool
	}{
		{name: "flag wins", flag: "yaml", defaultFormat: "json", expected: "yaml"},
		{name: "configured default", defaultFormat: "markdown", expected: "markdown"},
		{name: "text when nothing set", expected: "text"},
		{name: "unsupported flag", flag: "xml", defaultFormat: "json", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveOutputFormat(tt.flag, tt.defaultFormat, supported)
			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error but got: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected format %q, got %q", tt.expected, got)
			}
		})
	}
}

// Benchmark tests to ensure validation is fast
func BenchmarkValidateOutputFormat(b *testing.B) {
	supportedFormats := []string{"json", "text", "markdown"}

	b.Run("valid format", func(b *testing.B) {
		for b.Loop() {
			_ = ValidateOutputFormat("json", supportedFormats)
		}
	})

	b.Run("invalid format", func(b *testing.B) {
		for b.Loop() {
			_ = ValidateOutputFormat("xml", supportedFormats)
		}
	})
}
