package engine

import (
	"strings"

	"pmtailor/internal/types"
)

// Weights holds the scorer's bonus constants.
type Weights struct {
	// TitleBonus is added once when the experience title contains a
	// recognized PM-role term.
	TitleBonus float64
	// ExactSkillBonus is added for every exact skill-to-keyword match,
	// on top of that keyword's occurrence contribution.
	ExactSkillBonus float64
}

// DefaultWeights are the standard scoring bonuses.
var DefaultWeights = Weights{TitleBonus: 2.0, ExactSkillBonus: 1.0}

// roleTitleTerms is the fixed list of PM-role terms that earn the title
// bonus. Deliberately separate from the general vocabulary.
var roleTitleTerms = []string{"product manager", "product owner", "program manager"}

// Score computes the relevance of one experience against an extracted
// keyword set using the default weights.
func Score(exp types.Experience, keywords types.KeywordSet) types.ScoredExperience {
	return ScoreWith(exp, keywords, DefaultWeights)
}

// ScoreWith computes the relevance of one experience against an extracted
// keyword set. The base score sums, per keyword, the number of substring
// occurrences across title, achievements, and skills multiplied by the
// keyword's weight. The title bonus is applied at most once. The exact
// skill bonus rewards exact skill matches a second time on top of their
// occurrence contribution.
func ScoreWith(exp types.Experience, keywords types.KeywordSet, weights Weights) types.ScoredExperience {
	text := experienceText(exp)

	var score float64
	var matched []string
	for _, entry := range keywords {
		occurrences := strings.Count(text, entry.Term)
		if occurrences == 0 {
			continue
		}
		score += float64(occurrences) * entry.Weight
		matched = appendUnique(matched, entry.Term)
	}

	if titleMatchesRole(exp.Title) {
		score += weights.TitleBonus
	}
	score += weights.ExactSkillBonus * float64(countExactSkillMatches(exp.Skills, keywords))

	return types.ScoredExperience{
		Experience:      exp,
		RelevanceScore:  score,
		MatchedKeywords: matched,
	}
}

// experienceText flattens an experience into one lowercase string for
// occurrence counting.
func experienceText(exp types.Experience) string {
	parts := make([]string, 0, 2+len(exp.Achievements)+len(exp.Skills))
	parts = append(parts, exp.Title)
	parts = append(parts, exp.Achievements...)
	parts = append(parts, exp.Skills...)
	return strings.ToLower(strings.Join(parts, " "))
}

// titleMatchesRole reports whether a title contains a PM-role term.
func titleMatchesRole(title string) bool {
	title = strings.ToLower(title)
	for _, term := range roleTitleTerms {
		if strings.Contains(title, term) {
			return true
		}
	}
	return false
}

// countExactSkillMatches counts experience skills that equal a keyword
// term after case normalization.
func countExactSkillMatches(skills []string, keywords types.KeywordSet) int {
	count := 0
	for _, skill := range skills {
		if keywords.Contains(normalizeTerm(skill)) {
			count++
		}
	}
	return count
}

func appendUnique(terms []string, term string) []string {
	for _, existing := range terms {
		if existing == term {
			return terms
		}
	}
	return append(terms, term)
}
