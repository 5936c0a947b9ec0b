package formatters

import (
	"encoding/json"
	"fmt"
	"strings"

	"databank/internal/databank"
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

	// Register default formatters
	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", "AnalysisReport", &AnalysisTextFormatter{})
	registry.RegisterFormatter("markdown", "AnalysisReport", &AnalysisMarkdownFormatter{})
	registry.RegisterFormatter("text", "CoverageReport", &CoverageTextFormatter{})
	registry.RegisterFormatter("markdown", "CoverageReport", &CoverageMarkdownFormatter{})
	registry.RegisterFormatter("text", "EnhancementReport", &EnhancementTextFormatter{})
	registry.RegisterFormatter("markdown", "EnhancementReport", &EnhancementMarkdownFormatter{})
	registry.RegisterFormatter("text", "GenerationResult", &GenerationTextFormatter{})
	registry.RegisterFormatter("markdown", "GenerationResult", &GenerationMarkdownFormatter{})

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

	// Try specific formatter first
	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		// Fall back to generic formatter
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case databank.AnalysisReport:
		return "AnalysisReport"
	case databank.CoverageReport:
		return "CoverageReport"
	case databank.EnhancementReport:
		return "EnhancementReport"
	case databank.GenerationResult:
		return "GenerationResult"
	default:
		return "any"
	}
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

// AnalysisTextFormatter handles text formatting for job analysis results
type AnalysisTextFormatter struct{}

func (atf *AnalysisTextFormatter) Format(data any) (string, error) {
	result, ok := data.(databank.AnalysisReport)
	if !ok {
		return "", fmt.Errorf("expected AnalysisReport, got %T", data)
	}

	var output strings.Builder

	output.WriteString("=== JOB ANALYSIS ===\n\n")
	if result.Analysis.JobTitle != "" {
		output.WriteString(fmt.Sprintf("Position: %s\n", result.Analysis.JobTitle))
	}
	if result.Analysis.CompanyName != "" {
		output.WriteString(fmt.Sprintf("Company: %s\n", result.Analysis.CompanyName))
	}
	if result.Analysis.Experience != "" {
		output.WriteString(fmt.Sprintf("Experience Level: %s\n", result.Analysis.Experience))
	}
	output.WriteString("\n")

	if len(result.Analysis.RequiredSkills) > 0 {
		output.WriteString("Required Skills:\n")
		for _, skill := range result.Analysis.RequiredSkills {
			output.WriteString(fmt.Sprintf("- %s\n", skill))
		}
		output.WriteString("\n")
	}
	if len(result.Analysis.PreferredSkills) > 0 {
		output.WriteString("Preferred Skills:\n")
		for _, skill := range result.Analysis.PreferredSkills {
			output.WriteString(fmt.Sprintf("- %s\n", skill))
		}
		output.WriteString("\n")
	}
	if result.Analysis.Summary != "" {
		output.WriteString("Summary:\n")
		output.WriteString(result.Analysis.Summary)
		output.WriteString("\n\n")
	}

	output.WriteString("=== DATABANK MATCH ===\n")
	output.WriteString(fmt.Sprintf("Overall Match: %s%%\n\n", result.Match.OverallMatch))

	if len(result.Match.MatchingSkills) > 0 {
		output.WriteString("Matching Skills:\n")
		for _, skill := range result.Match.MatchingSkills {
			output.WriteString(fmt.Sprintf("- %s\n", skill.Name))
		}
		output.WriteString("\n")
	}
	if len(result.Match.MissingRequiredSkills) > 0 {
		output.WriteString("Missing Required Skills:\n")
		for _, skill := range result.Match.MissingRequiredSkills {
			output.WriteString(fmt.Sprintf("- %s\n", skill))
		}
		output.WriteString("\n")
	}
	if len(result.Match.MissingPreferredSkills) > 0 {
		output.WriteString("Missing Preferred Skills:\n")
		for _, skill := range result.Match.MissingPreferredSkills {
			output.WriteString(fmt.Sprintf("- %s\n", skill))
		}
	}

	return output.String(), nil
}

func (atf *AnalysisTextFormatter) SupportedType() string {
	return "AnalysisReport"
}

// AnalysisMarkdownFormatter handles markdown formatting for job analysis results
type AnalysisMarkdownFormatter struct{}

func (amf *AnalysisMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(databank.AnalysisReport)
	if !ok {
		return "", fmt.Errorf("expected AnalysisReport, got %T", data)
	}

	var output strings.Builder

	output.WriteString("# Job Analysis\n\n")
	if result.Analysis.JobTitle != "" {
		output.WriteString(fmt.Sprintf("**Position:** %s\n\n", result.Analysis.JobTitle))
	}
	if result.Analysis.CompanyName != "" {
		output.WriteString(fmt.Sprintf("**Company:** %s\n\n", result.Analysis.CompanyName))
	}
	if result.Analysis.Experience != "" {
		output.WriteString(fmt.Sprintf("**Experience Level:** %s\n\n", result.Analysis.Experience))
	}

	if len(result.Analysis.RequiredSkills) > 0 {
		output.WriteString("## Required Skills\n")
		for _, skill := range result.Analysis.RequiredSkills {
			output.WriteString(fmt.Sprintf("- %s\n", skill))
		}
		output.WriteString("\n")
	}
	if len(result.Analysis.PreferredSkills) > 0 {
		output.WriteString("## Preferred Skills\n")
		for _, skill := range result.Analysis.PreferredSkills {
			output.WriteString(fmt.Sprintf("- %s\n", skill))
		}
		output.WriteString("\n")
	}
	if result.Analysis.Summary != "" {
		output.WriteString("## Summary\n\n")
		output.WriteString(result.Analysis.Summary)
		output.WriteString("\n\n")
	}

	output.WriteString("## Databank Match\n\n")
	output.WriteString(fmt.Sprintf("**Overall Match:** %s%%\n\n", result.Match.OverallMatch))

	if len(result.Match.MatchingSkills) > 0 {
		output.WriteString("### Matching Skills\n")
		for _, skill := range result.Match.MatchingSkills {
			output.WriteString(fmt.Sprintf("- %s\n", skill.Name))
		}
		output.WriteString("\n")
	}
	if len(result.Match.MissingRequiredSkills) > 0 {
		output.WriteString("### Missing Required Skills\n")
		for _, skill := range result.Match.MissingRequiredSkills {
			output.WriteString(fmt.Sprintf("- %s\n", skill))
		}
		output.WriteString("\n")
	}
	if len(result.Match.MissingPreferredSkills) > 0 {
		output.WriteString("### Missing Preferred Skills\n")
		for _, skill := range result.Match.MissingPreferredSkills {
			output.WriteString(fmt.Sprintf("- %s\n", skill))
		}
	}

	return output.String(), nil
}

func (amf *AnalysisMarkdownFormatter) SupportedType() string {
	return "AnalysisReport"
}

// CoverageTextFormatter handles text formatting for coverage reports
type CoverageTextFormatter struct{}

func (ctf *CoverageTextFormatter) Format(data any) (string, error) {
	result, ok := data.(databank.CoverageReport)
	if !ok {
		return "", fmt.Errorf("expected CoverageReport, got %T", data)
	}

	var output strings.Builder

	output.WriteString("=== DATABANK COVERAGE ===\n\n")
	if result.SufficientCoverage {
		output.WriteString("Coverage: SUFFICIENT\n")
	} else {
		output.WriteString("Coverage: INSUFFICIENT\n")
	}
	output.WriteString(fmt.Sprintf("Score: %s\n\n", result.CoverageScore))

	if result.Summary != "" {
		output.WriteString("Summary:\n")
		output.WriteString(result.Summary)
		output.WriteString("\n\n")
	}

	if len(result.Gaps) > 0 {
		output.WriteString("=== GAPS ===\n\n")
		for i, gap := range result.Gaps {
			output.WriteString(fmt.Sprintf("%d. %s [%s]\n", i+1, gap.Area, gap.Severity))
			output.WriteString("   ")
			output.WriteString(gap.Description)
			output.WriteString("\n")
			if gap.Recommendation != "" {
				output.WriteString("   Recommendation: ")
				output.WriteString(gap.Recommendation)
				output.WriteString("\n")
			}
			output.WriteString("\n")
		}
	} else {
		output.WriteString("No gaps found.\n")
	}

	return output.String(), nil
}

func (ctf *CoverageTextFormatter) SupportedType() string {
	return "CoverageReport"
}

// CoverageMarkdownFormatter handles markdown formatting for coverage reports
type CoverageMarkdownFormatter struct{}

func (cmf *CoverageMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(databank.CoverageReport)
	if !ok {
		return "", fmt.Errorf("expected CoverageReport, got %T", data)
	}

	var output strings.Builder

	output.WriteString("# Databank Coverage\n\n")
	if result.SufficientCoverage {
		output.WriteString("**Coverage:** sufficient\n\n")
	} else {
		output.WriteString("**Coverage:** insufficient\n\n")
	}
	output.WriteString(fmt.Sprintf("**Score:** %s\n\n", result.CoverageScore))

	if result.Summary != "" {
		output.WriteString("## Summary\n\n")
		output.WriteString(result.Summary)
		output.WriteString("\n\n")
	}

	if len(result.Gaps) > 0 {
		output.WriteString("## Gaps\n\n")
		for i, gap := range result.Gaps {
			output.WriteString(fmt.Sprintf("### %d. %s (%s)\n\n", i+1, gap.Area, gap.Severity))
			output.WriteString(gap.Description)
			output.WriteString("\n\n")
			if gap.Recommendation != "" {
				output.WriteString("**Recommendation:** ")
				output.WriteString(gap.Recommendation)
				output.WriteString("\n\n")
			}
		}
	} else {
		output.WriteString("## No Gaps Found\n\nThe databank can support generation for this job.\n")
	}

	return output.String(), nil
}

func (cmf *CoverageMarkdownFormatter) SupportedType() string {
	return "CoverageReport"
}

// EnhancementTextFormatter handles text formatting for enhancement suggestions
type EnhancementTextFormatter struct{}

func (etf *EnhancementTextFormatter) Format(data any) (string, error) {
	result, ok := data.(databank.EnhancementReport)
	if !ok {
		return "", fmt.Errorf("expected EnhancementReport, got %T", data)
	}

	var output strings.Builder

	output.WriteString("=== DATABANK ENHANCEMENT SUGGESTIONS ===\n\n")
	if result.Summary != "" {
		output.WriteString(result.Summary)
		output.WriteString("\n\n")
	}

	if len(result.Suggestions) > 0 {
		for i, suggestion := range result.Suggestions {
			output.WriteString(fmt.Sprintf("%d. [%s] %s\n", i+1, suggestion.Section, suggestion.Suggestion))
			if suggestion.Reason != "" {
				output.WriteString("   Reason: ")
				output.WriteString(suggestion.Reason)
				output.WriteString("\n")
			}
			output.WriteString("\n")
		}
	} else {
		output.WriteString("No suggestions.\n")
	}

	return output.String(), nil
}

func (etf *EnhancementTextFormatter) SupportedType() string {
	return "EnhancementReport"
}

// EnhancementMarkdownFormatter handles markdown formatting for enhancement suggestions
type EnhancementMarkdownFormatter struct{}

func (emf *EnhancementMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(databank.EnhancementReport)
	if !ok {
		return "", fmt.Errorf("expected EnhancementReport, got %T", data)
	}

	var output strings.Builder

	output.WriteString("# Databank Enhancement Suggestions\n\n")
	if result.Summary != "" {
		output.WriteString(result.Summary)
		output.WriteString("\n\n")
	}

	if len(result.Suggestions) > 0 {
		for i, suggestion := range result.Suggestions {
			output.WriteString(fmt.Sprintf("### %d. %s\n\n", i+1, suggestion.Section))
			output.WriteString(suggestion.Suggestion)
			output.WriteString("\n\n")
			if suggestion.Reason != "" {
				output.WriteString("**Reason:** ")
				output.WriteString(suggestion.Reason)
				output.WriteString("\n\n")
			}
		}
	} else {
		output.WriteString("## No Suggestions\n\nThe databank already covers this job well.\n")
	}

	return output.String(), nil
}

func (emf *EnhancementMarkdownFormatter) SupportedType() string {
	return "EnhancementReport"
}

// GenerationTextFormatter handles text formatting for generation results
type GenerationTextFormatter struct{}

func (gtf *GenerationTextFormatter) Format(data any) (string, error) {
	result, ok := data.(databank.GenerationResult)
	if !ok {
		return "", fmt.Errorf("expected GenerationResult, got %T", data)
	}

	var output strings.Builder

	output.WriteString("=== GENERATED RESUME ===\n\n")
	output.WriteString(fmt.Sprintf("Title: %s\n", result.Resume.Title))
	output.WriteString(fmt.Sprintf("Resume ID: %d\n", result.Resume.ID))
	output.WriteString(fmt.Sprintf("ATS Score: %s\n\n", result.ATSScore))

	if result.ATSFeedback != "" {
		output.WriteString("ATS Feedback:\n")
		output.WriteString(result.ATSFeedback)
		output.WriteString("\n\n")
	}

	if len(result.Warnings) > 0 {
		output.WriteString("Warnings:\n")
		for _, warning := range result.Warnings {
			output.WriteString(fmt.Sprintf("- %s\n", warning))
		}
	}

	return output.String(), nil
}

func (gtf *GenerationTextFormatter) SupportedType() string {
	return "GenerationResult"
}

// GenerationMarkdownFormatter handles markdown formatting for generation results
type GenerationMarkdownFormatter struct{}

func (gmf *GenerationMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(databank.GenerationResult)
	if !ok {
		return "", fmt.Errorf("expected GenerationResult, got %T", data)
	}

	var output strings.Builder

	output.WriteString("# Generated Resume\n\n")
	output.WriteString(fmt.Sprintf("**Title:** %s\n\n", result.Resume.Title))
	output.WriteString(fmt.Sprintf("**Resume ID:** %d\n\n", result.Resume.ID))
	output.WriteString(fmt.Sprintf("**ATS Score:** %s\n\n", result.ATSScore))

	if result.ATSFeedback != "" {
		output.WriteString("## ATS Feedback\n\n")
		output.WriteString(result.ATSFeedback)
		output.WriteString("\n\n")
	}

	if len(result.Warnings) > 0 {
		output.WriteString("## Warnings\n\n")
		for _, warning := range result.Warnings {
			output.WriteString(fmt.Sprintf("- %s\n", warning))
		}
	}

	return output.String(), nil
}

func (gmf *GenerationMarkdownFormatter) SupportedType() string {
	return "GenerationResult"
}

// Global formatter registry
var GlobalRegistry = NewFormatterRegistry()
