package formatters

import (
	"encoding/json"
	"fmt"
	"strings"

	"pmtailor/internal/types"
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
	registry.RegisterFormatter("text", "TailoredResume", &ResumeTextFormatter{})
	registry.RegisterFormatter("markdown", "TailoredResume", &ResumeMarkdownFormatter{})
	registry.RegisterFormatter("text", "AnalyzeJobOutput", &AnalyzeJobTextFormatter{})
	registry.RegisterFormatter("markdown", "AnalyzeJobOutput", &AnalyzeJobMarkdownFormatter{})
	registry.RegisterFormatter("text", "KeywordSet", &KeywordSetTextFormatter{})
	registry.RegisterFormatter("markdown", "KeywordSet", &KeywordSetMarkdownFormatter{})

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
	case types.TailoredResume:
		return "TailoredResume"
	case types.AnalyzeJobOutput:
		return "AnalyzeJobOutput"
	case types.KeywordSet:
		return "KeywordSet"
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

// ResumeTextFormatter handles text formatting for tailored resumes
type ResumeTextFormatter struct{}

func (rtf *ResumeTextFormatter) Format(data any) (string, error) {
	result, ok := data.(types.TailoredResume)
	if !ok {
		return "", fmt.Errorf("expected TailoredResume, got %T", data)
	}

	var output strings.Builder

	output.WriteString("=== TAILORED RESUME ===\n\n")
	output.WriteString(result.Name)
	output.WriteString("\n")
	output.WriteString(fmt.Sprintf("Email: %s | Phone: %s\n", result.Email, result.Phone))
	if result.LinkedIn != "" || result.Location != "" {
		output.WriteString(fmt.Sprintf("LinkedIn: %s | Location: %s\n", result.LinkedIn, result.Location))
	}
	output.WriteString("\n")

	output.WriteString("=== SUMMARY ===\n")
	output.WriteString(result.Summary)
	output.WriteString("\n\n")

	output.WriteString("=== EXPERIENCE ===\n\n")
	for _, exp := range result.Experiences {
		output.WriteString(fmt.Sprintf("%s | %s\n", exp.Title, exp.Company))
		output.WriteString(fmt.Sprintf("%s | Relevance Score: %.1f\n", exp.Duration, exp.RelevanceScore))
		for _, achievement := range exp.Achievements {
			output.WriteString(fmt.Sprintf("- %s\n", achievement))
		}
		output.WriteString("\n")
	}

	output.WriteString("=== SKILLS ===\n")
	output.WriteString(strings.Join(result.Skills, ", "))
	output.WriteString("\n\n")

	if len(result.Education) > 0 {
		output.WriteString("=== EDUCATION ===\n")
		for _, edu := range result.Education {
			output.WriteString(fmt.Sprintf("%s | %s | %s\n", edu.Degree, edu.Institution, edu.Year))
		}
		output.WriteString("\n")
	}

	if len(result.OptimizationNotes) > 0 {
		output.WriteString("=== OPTIMIZATION NOTES ===\n")
		for _, note := range result.OptimizationNotes {
			output.WriteString(fmt.Sprintf("- %s\n", note))
		}
	}

	return output.String(), nil
}

func (rtf *ResumeTextFormatter) SupportedType() string {
	return "TailoredResume"
}

// ResumeMarkdownFormatter handles markdown formatting for tailored resumes
type ResumeMarkdownFormatter struct{}

func (rmf *ResumeMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(types.TailoredResume)
	if !ok {
		return "", fmt.Errorf("expected TailoredResume, got %T", data)
	}

	var output strings.Builder

	output.WriteString(fmt.Sprintf("# %s\n", result.Name))
	output.WriteString(fmt.Sprintf("**Email:** %s | **Phone:** %s\n", result.Email, result.Phone))
	if result.LinkedIn != "" || result.Location != "" {
		output.WriteString(fmt.Sprintf("**LinkedIn:** %s | **Location:** %s\n", result.LinkedIn, result.Location))
	}
	output.WriteString("\n")

	output.WriteString("## Professional Summary\n")
	output.WriteString(result.Summary)
	output.WriteString("\n\n")

	output.WriteString("## Professional Experience\n")
	for _, exp := range result.Experiences {
		output.WriteString(fmt.Sprintf("### %s | %s\n", exp.Title, exp.Company))
		output.WriteString(fmt.Sprintf("*%s* | Relevance Score: %.1f\n", exp.Duration, exp.RelevanceScore))
		for _, achievement := range exp.Achievements {
			output.WriteString(fmt.Sprintf("- %s\n", achievement))
		}
		output.WriteString("\n")
	}

	output.WriteString("## Core Skills\n")
	output.WriteString(strings.Join(result.Skills, " • "))
	output.WriteString("\n\n")

	if len(result.Education) > 0 {
		output.WriteString("## Education\n")
		for _, edu := range result.Education {
			output.WriteString(fmt.Sprintf("**%s** | %s | %s\n", edu.Degree, edu.Institution, edu.Year))
			for _, detail := range edu.Details {
				output.WriteString(fmt.Sprintf("- %s\n", detail))
			}
		}
		output.WriteString("\n")
	}

	if len(result.Certifications) > 0 {
		output.WriteString("## Certifications\n")
		for _, cert := range result.Certifications {
			output.WriteString(fmt.Sprintf("- %s\n", cert))
		}
		output.WriteString("\n")
	}

	if len(result.OptimizationNotes) > 0 {
		output.WriteString("## Resume Optimization Notes\n")
		for _, note := range result.OptimizationNotes {
			output.WriteString(fmt.Sprintf("- %s\n", note))
		}
	}

	return output.String(), nil
}

func (rmf *ResumeMarkdownFormatter) SupportedType() string {
	return "TailoredResume"
}

// AnalyzeJobTextFormatter handles text formatting for job analysis results
type AnalyzeJobTextFormatter struct{}

func (ajf *AnalyzeJobTextFormatter) Format(data any) (string, error) {
	result, ok := data.(types.AnalyzeJobOutput)
	if !ok {
		return "", fmt.Errorf("expected AnalyzeJobOutput, got %T", data)
	}

	var output strings.Builder

	output.WriteString("=== JOB DESCRIPTION ANALYSIS ===\n\n")
	output.WriteString(result.Summary)
	output.WriteString("\n\n")

	output.WriteString(fmt.Sprintf("Total Keyword Matches: %d\n\n", result.TotalMatches))

	for _, group := range result.Keywords {
		output.WriteString(fmt.Sprintf("=== %s ===\n", strings.ToUpper(strings.ReplaceAll(string(group.Category), "_", " "))))
		for _, term := range group.Terms {
			output.WriteString(fmt.Sprintf("- %s\n", term))
		}
		output.WriteString("\n")
	}

	writeInsightsText(&output, result.Insights)

	return output.String(), nil
}

func writeInsightsText(output *strings.Builder, insights types.JobInsights) {
	output.WriteString("=== JOB INSIGHTS ===\n")
	if insights.Company != "" {
		output.WriteString(fmt.Sprintf("Company: %s\n", insights.Company))
	}
	if insights.Industry != "" {
		output.WriteString(fmt.Sprintf("Industry: %s\n", insights.Industry))
	}
	if insights.YearsOfExperience > 0 {
		output.WriteString(fmt.Sprintf("Years of Experience: %d\n", insights.YearsOfExperience))
	}
	if len(insights.Requirements) > 0 {
		output.WriteString("Requirements:\n")
		for _, req := range insights.Requirements {
			output.WriteString(fmt.Sprintf("- %s\n", req))
		}
	}
}

func (ajf *AnalyzeJobTextFormatter) SupportedType() string {
	return "AnalyzeJobOutput"
}

// AnalyzeJobMarkdownFormatter handles markdown formatting for job analysis results
type AnalyzeJobMarkdownFormatter struct{}

func (ajmf *AnalyzeJobMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(types.AnalyzeJobOutput)
	if !ok {
		return "", fmt.Errorf("expected AnalyzeJobOutput, got %T", data)
	}

	var output strings.Builder

	output.WriteString("# Job Description Analysis\n\n")
	output.WriteString(result.Summary)
	output.WriteString("\n\n")

	output.WriteString(fmt.Sprintf("**Total Keyword Matches:** %d\n\n", result.TotalMatches))

	for _, group := range result.Keywords {
		output.WriteString(fmt.Sprintf("## %s\n", titleCase(string(group.Category))))
		for _, term := range group.Terms {
			output.WriteString(fmt.Sprintf("- %s\n", term))
		}
		output.WriteString("\n")
	}

	output.WriteString("## Job Insights\n\n")
	if result.Insights.Company != "" {
		output.WriteString(fmt.Sprintf("**Company:** %s\n\n", result.Insights.Company))
	}
	if result.Insights.Industry != "" {
		output.WriteString(fmt.Sprintf("**Industry:** %s\n\n", result.Insights.Industry))
	}
	if result.Insights.YearsOfExperience > 0 {
		output.WriteString(fmt.Sprintf("**Years of Experience:** %d\n\n", result.Insights.YearsOfExperience))
	}
	if len(result.Insights.Requirements) > 0 {
		output.WriteString("### Requirements\n")
		for _, req := range result.Insights.Requirements {
			output.WriteString(fmt.Sprintf("- %s\n", req))
		}
	}

	return output.String(), nil
}

func (ajmf *AnalyzeJobMarkdownFormatter) SupportedType() string {
	return "AnalyzeJobOutput"
}

// KeywordSetTextFormatter handles text formatting for keyword vocabularies
type KeywordSetTextFormatter struct{}

func (ktf *KeywordSetTextFormatter) Format(data any) (string, error) {
	vocab, ok := data.(types.KeywordSet)
	if !ok {
		return "", fmt.Errorf("expected KeywordSet, got %T", data)
	}

	var output strings.Builder
	output.WriteString("=== KEYWORD VOCABULARY ===\n\n")

	var current types.Category
	for _, entry := range vocab {
		if entry.Category != current {
			if current != "" {
				output.WriteString("\n")
			}
			current = entry.Category
			output.WriteString(fmt.Sprintf("=== %s ===\n", strings.ToUpper(strings.ReplaceAll(string(current), "_", " "))))
		}
		output.WriteString(fmt.Sprintf("- %s (weight %.1f)\n", entry.Term, entry.Weight))
	}

	return output.String(), nil
}

func (ktf *KeywordSetTextFormatter) SupportedType() string {
	return "KeywordSet"
}

// KeywordSetMarkdownFormatter handles markdown formatting for keyword vocabularies
type KeywordSetMarkdownFormatter struct{}

func (kmf *KeywordSetMarkdownFormatter) Format(data any) (string, error) {
	vocab, ok := data.(types.KeywordSet)
	if !ok {
		return "", fmt.Errorf("expected KeywordSet, got %T", data)
	}

	var output strings.Builder
	output.WriteString("# Keyword Vocabulary\n\n")

	var current types.Category
	for _, entry := range vocab {
		if entry.Category != current {
			if current != "" {
				output.WriteString("\n")
			}
			current = entry.Category
			output.WriteString(fmt.Sprintf("## %s\n", titleCase(string(current))))
		}
		output.WriteString(fmt.Sprintf("- %s\n", entry.Term))
	}

	return output.String(), nil
}

func (kmf *KeywordSetMarkdownFormatter) SupportedType() string {
	return "KeywordSet"
}

// titleCase renders a category name like "core_skills" as "Core Skills".
func titleCase(name string) string {
	words := strings.Split(strings.ReplaceAll(name, "_", " "), " ")
	for i, word := range words {
		if word != "" {
			words[i] = strings.ToUpper(word[:1]) + word[1:]
		}
	}
	return strings.Join(words, " ")
}

// Global formatter registry
var GlobalRegistry = NewFormatterRegistry()
