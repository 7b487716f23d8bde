package engine

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"pmtailor/internal/types"
)

// Analyze extracts the subset of vocabulary present in jobText. Matching is
// case-insensitive substring containment on the normalized text, so
// multi-word phrases like "product strategy" match without tokenization.
// An empty jobText yields an empty set, never an error.
func Analyze(jobText string, vocabulary types.KeywordSet) types.KeywordSet {
	text := strings.ToLower(jobText)
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var matched types.KeywordSet
	for _, entry := range vocabulary {
		if strings.Contains(text, entry.Term) {
			matched = append(matched, entry)
		}
	}
	return matched
}

// Requirement section headers and the bullet separators inside them.
var (
	requirementPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?is)requirements?:?\s*(.*?)(?:\n\s*[A-Z][^:\n]*:|\n\s*$|\z)`),
		regexp.MustCompile(`(?is)qualifications?:?\s*(.*?)(?:\n\s*[A-Z][^:\n]*:|\n\s*$|\z)`),
		regexp.MustCompile(`(?is)what you.{0,20}need:?\s*(.*?)(?:\n\s*[A-Z][^:\n]*:|\n\s*$|\z)`),
		regexp.MustCompile(`(?is)you should have:?\s*(.*?)(?:\n\s*[A-Z][^:\n]*:|\n\s*$|\z)`),
	}
	bulletSplitter = regexp.MustCompile(`(?m)[•\-\*]\s*|^\s*\d+\.?\s*`)

	yearsPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(\d+)\+?\s*years?\s*of\s*experience`),
		regexp.MustCompile(`(\d+)\+?\s*years?\s*experience`),
		regexp.MustCompile(`(\d+)\+?\s*yrs?\s*experience`),
		regexp.MustCompile(`experience.*?(\d+)\+?\s*years?`),
	}

	// A capitalized multi-word run directly before a hiring phrase,
	// e.g. "Acme Analytics is hiring a Senior Product Manager".
	companyPattern = regexp.MustCompile(`([A-Z][\w&.]*(?:\s+[A-Z][\w&.]*)+)\s+(?:is hiring|is looking for|is seeking|seeks)`)
)

const maxRequirements = 10

// Inspect extracts best-effort structural facts from a job description:
// a company-name guess, requirement lines, a years-of-experience figure,
// and the first built-in industry term found. Every field degrades to its
// zero value when the text yields nothing; Inspect never fails.
func Inspect(jobText string) types.JobInsights {
	return types.JobInsights{
		Company:           guessCompany(jobText),
		Industry:          detectIndustry(jobText),
		YearsOfExperience: extractYears(jobText),
		Requirements:      extractRequirements(jobText),
	}
}

// extractRequirements pulls bullet items out of requirement-like sections,
// capped at maxRequirements.
func extractRequirements(jobText string) []string {
	var requirements []string
	for _, pattern := range requirementPatterns {
		for _, match := range pattern.FindAllStringSubmatch(jobText, -1) {
			section := strings.TrimSpace(match[1])
			for _, item := range bulletSplitter.Split(section, -1) {
				if item = strings.TrimSpace(item); item != "" {
					requirements = append(requirements, item)
				}
			}
		}
	}
	if len(requirements) > maxRequirements {
		requirements = requirements[:maxRequirements]
	}
	return requirements
}

// guessCompany returns the first capitalized multi-word run preceding a
// hiring phrase, or "" when none is found.
func guessCompany(jobText string) string {
	if match := companyPattern.FindStringSubmatch(jobText); match != nil {
		return strings.TrimSpace(match[1])
	}
	return ""
}

// detectIndustry returns the first built-in industry term present in the
// text, or "".
func detectIndustry(jobText string) string {
	text := strings.ToLower(jobText)
	for _, industry := range builtinVocabulary[types.CategoryIndustry] {
		if strings.Contains(text, industry) {
			return industry
		}
	}
	return ""
}

// extractYears finds a years-of-experience figure, or 0.
func extractYears(jobText string) int {
	text := strings.ToLower(jobText)
	for _, pattern := range yearsPatterns {
		if match := pattern.FindStringSubmatch(text); match != nil {
			if years, err := strconv.Atoi(match[1]); err == nil {
				return years
			}
		}
	}
	return 0
}

// AnalyzeJob runs keyword extraction and structural inspection over a job
// description and assembles the full analysis report.
func (e *Engine) AnalyzeJob(jobText string) types.AnalyzeJobOutput {
	keywords := Analyze(jobText, e.vocab)
	insights := Inspect(jobText)

	var groups []types.KeywordGroup
	var order []types.Category
	grouped := make(map[types.Category][]string)
	for _, entry := range keywords {
		if _, ok := grouped[entry.Category]; !ok {
			order = append(order, entry.Category)
		}
		grouped[entry.Category] = append(grouped[entry.Category], entry.Term)
	}
	for _, category := range order {
		groups = append(groups, types.KeywordGroup{Category: category, Terms: grouped[category]})
	}

	return types.AnalyzeJobOutput{
		Keywords:     groups,
		TotalMatches: len(keywords),
		Insights:     insights,
		Summary:      analysisSummary(groups, len(keywords), len(insights.Requirements)),
	}
}

// analysisSummary builds the one-line digest of an analysis run.
func analysisSummary(groups []types.KeywordGroup, total, requirements int) string {
	sorted := make([]types.KeywordGroup, len(groups))
	copy(sorted, groups)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Terms) > len(sorted[j].Terms)
	})
	if len(sorted) > 3 {
		sorted = sorted[:3]
	}

	names := make([]string, len(sorted))
	for i, group := range sorted {
		names[i] = strings.ReplaceAll(string(group.Category), "_", " ")
	}

	summary := fmt.Sprintf("Found %d relevant PM keywords.", total)
	if len(names) > 0 {
		summary += fmt.Sprintf(" Top focus areas: %s.", strings.Join(names, ", "))
	}
	summary += fmt.Sprintf(" Identified %d key requirements.", requirements)
	return summary
}
