package formatters

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"careerkit/internal/store"
	"careerkit/internal/types"

	"gopkg.in/yaml.v3"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("yaml", "any", &YAMLFormatter{})

	registry.RegisterFormatter("text", "FileListing", &ListingTextFormatter{})
	registry.RegisterFormatter("markdown", "FileListing", &ListingMarkdownFormatter{})
	registry.RegisterFormatter("text", "SaveTaskStatus", &TaskTextFormatter{})
	registry.RegisterFormatter("markdown", "SaveTaskStatus", &TaskTextFormatter{markdown: true})
	registry.RegisterFormatter("text", "SelectionList", &SelectionsFormatter{})
	registry.RegisterFormatter("markdown", "SelectionList", &SelectionsFormatter{markdown: true})

	registry.RegisterFormatter("text", "Resume", &ResumeFormatter{})
	registry.RegisterFormatter("markdown", "Resume", &ResumeFormatter{markdown: true})
	registry.RegisterFormatter("text", "Portfolio", &PortfolioFormatter{})
	registry.RegisterFormatter("markdown", "Portfolio", &PortfolioFormatter{markdown: true})
	registry.RegisterFormatter("text", "JobDescription", &JobFormatter{})
	registry.RegisterFormatter("markdown", "JobDescription", &JobFormatter{markdown: true})
	registry.RegisterFormatter("text", "DocumentList", &ListFormatter{})
	registry.RegisterFormatter("markdown", "DocumentList", &ListFormatter{markdown: true})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats, sorted
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	slices.Sort(formats)
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case types.FileListing, *types.FileListing:
		return "FileListing"
	case types.SaveTaskStatus, *types.SaveTaskStatus:
		return "SaveTaskStatus"
	case []store.Selection:
		return "SelectionList"
	case types.Resume, *types.Resume:
		return "Resume"
	case types.Portfolio, *types.Portfolio:
		return "Portfolio"
	case types.JobDescription, *types.JobDescription:
		return "JobDescription"
	case []types.Resume, []types.Portfolio, []types.JobDescription:
		return "DocumentList"
	default:
		return "any"
	}
}

// deref accepts a value or a pointer to it
func deref[T any](data any) (T, error) {
	switch v := data.(type) {
	case T:
		return v, nil
	case *T:
		if v != nil {
			return *v, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("expected %T, got %T", zero, data)
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// YAMLFormatter renders any data type as YAML. Values go through their JSON
// encoding first so the json field names and omit rules apply.
type YAMLFormatter struct{}

func (yf *YAMLFormatter) Format(data any) (string, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return "", err
	}

	// JSON is YAML; decoding into a node keeps the key order
	var node yaml.Node
	if err := yaml.Unmarshal(jsonData, &node); err != nil {
		return "", fmt.Errorf("failed to convert to yaml: %w", err)
	}
	resetStyle(&node)

	var out strings.Builder
	enc := yaml.NewEncoder(&out)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return strings.TrimRight(out.String(), "\n"), nil
}

func (yf *YAMLFormatter) SupportedType() string {
	return "any"
}

// resetStyle drops the flow and quoting styles inherited from JSON
func resetStyle(n *yaml.Node) {
	n.Style = 0
	if n.Kind == yaml.ScalarNode && strings.Contains(n.Value, "\n") {
		n.Style = yaml.LiteralStyle
	}
	for _, c := range n.Content {
		resetStyle(c)
	}
}

// GlobalRegistry is the shared formatter registry used by the CLI
var GlobalRegistry = NewFormatterRegistry()
