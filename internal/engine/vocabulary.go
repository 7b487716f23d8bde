package engine

import (
	"sort"
	"strings"

	"pmtailor/internal/config"
	"pmtailor/internal/types"
)

// builtinVocabulary holds the built-in PM term tables, keyed by category.
// Term order within a category is meaningful: it defines vocabulary order
// for matched-keyword reporting and skill promotion.
var builtinVocabulary = map[types.Category][]string{
	types.CategoryCoreSkill: {
		"product management", "product strategy", "roadmap", "user stories",
		"agile", "scrum", "kanban", "sprint planning", "backlog management",
		"stakeholder management", "cross-functional", "data analysis",
		"market research", "competitive analysis", "user research", "ux/ui",
		"metrics", "kpis", "analytics", "a/b testing", "experimentation",
	},
	types.CategoryTechnicalSkill: {
		"sql", "python", "jira", "confluence", "figma", "sketch",
		"google analytics", "mixpanel", "amplitude", "tableau",
		"api", "sdk", "aws", "azure", "gcp", "docker", "kubernetes",
	},
	types.CategorySoftSkill: {
		"leadership", "communication", "collaboration", "problem solving",
		"critical thinking", "decision making", "negotiation", "presentation",
		"mentoring", "coaching", "influence",
	},
	types.CategoryIndustry: {
		"saas", "fintech", "healthcare", "e-commerce", "mobile",
		"enterprise", "b2b", "b2c", "marketplace", "platform",
	},
}

// BuildVocabulary constructs the effective keyword vocabulary from the
// built-in category tables and any custom categories in cfg. Built-in
// categories come first in canonical order, then custom categories in
// sorted name order. On a term collision the built-in entry wins and
// the custom term is dropped.
func BuildVocabulary(cfg config.EngineConfig) types.KeywordSet {
	var vocab types.KeywordSet
	seen := make(map[string]bool)

	for _, category := range types.BuiltinCategories {
		weight := categoryWeight(cfg, string(category))
		for _, term := range builtinVocabulary[category] {
			term = normalizeTerm(term)
			if term == "" || seen[term] {
				continue
			}
			seen[term] = true
			vocab = append(vocab, types.KeywordEntry{Term: term, Category: category, Weight: weight})
		}
	}

	for _, name := range sortedCategoryNames(cfg.CustomKeywords) {
		category := customCategory(name)
		weight := categoryWeight(cfg, name)
		for _, term := range cfg.CustomKeywords[name] {
			term = normalizeTerm(term)
			if term == "" || seen[term] {
				continue
			}
			seen[term] = true
			vocab = append(vocab, types.KeywordEntry{Term: term, Category: category, Weight: weight})
		}
	}

	return vocab
}

// customCategory maps a user-supplied category name onto a Category tag.
// Names matching a built-in category extend that category directly.
func customCategory(name string) types.Category {
	if c := types.Category(name); c.IsBuiltin() {
		return c
	}
	return types.Category("custom:" + name)
}

// categoryWeight resolves the weight for a category name, defaulting to 1.0.
func categoryWeight(cfg config.EngineConfig, name string) float64 {
	if w, ok := cfg.CategoryWeights[name]; ok && w >= 0 {
		return w
	}
	return 1.0
}

// normalizeTerm lowercases and trims a vocabulary term.
func normalizeTerm(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}

func sortedCategoryNames(custom map[string][]string) []string {
	names := make([]string, 0, len(custom))
	for name := range custom {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
