package engine

import (
	"testing"

	"pmtailor/internal/config"
	"pmtailor/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreBasicOccurrences(t *testing.T) {
	keywords := types.KeywordSet{
		{Term: "agile", Category: types.CategoryCoreSkill, Weight: 1.0},
		{Term: "sql", Category: types.CategoryTechnicalSkill, Weight: 1.0},
	}

	exp := types.Experience{
		Title:        "Software Engineer",
		Achievements: []string{"Drove agile adoption", "Ran agile ceremonies"},
	}

	scored := Score(exp, keywords)
	assert.Equal(t, 2.0, scored.RelevanceScore)
	assert.Equal(t, []string{"agile"}, scored.MatchedKeywords)
}

func TestScoreIsExactlyFive(t *testing.T) {
	// Title bonus (2.0) + one "agile" occurrence (1.0) + "sql" occurrence
	// in skills (1.0) + exact skill bonus for "sql" (1.0) = 5.0.
	keywords := types.KeywordSet{
		{Term: "agile", Category: types.CategoryCoreSkill, Weight: 1.0},
		{Term: "sql", Category: types.CategoryTechnicalSkill, Weight: 1.0},
	}

	exp := types.Experience{
		Title:        "Senior Product Manager",
		Achievements: []string{"Led agile delivery of the payments roadmap area"},
		Skills:       []string{"SQL"},
	}

	scored := Score(exp, keywords)
	assert.Equal(t, 5.0, scored.RelevanceScore)
	assert.ElementsMatch(t, []string{"agile", "sql"}, scored.MatchedKeywords)
}

func TestScoreTitleBonus(t *testing.T) {
	tests := []struct {
		name  string
		title string
		bonus float64
	}{
		{"product manager", "Product Manager", 2.0},
		{"senior product manager", "Senior Product Manager, Growth", 2.0},
		{"product owner", "Product Owner", 2.0},
		{"program manager", "Technical Program Manager", 2.0},
		{"unrelated title", "Software Engineer", 0.0},
		{"product without manager", "Product Designer", 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp := types.Experience{Title: tt.title}
			scored := Score(exp, nil)
			assert.Equal(t, tt.bonus, scored.RelevanceScore)
		})
	}
}

func TestScoreTitleBonusAppliedOnce(t *testing.T) {
	// A title matching two role terms still earns the bonus once.
	exp := types.Experience{Title: "Product Manager / Product Owner"}
	scored := Score(exp, nil)
	assert.Equal(t, 2.0, scored.RelevanceScore)
}

func TestScoreExactSkillDoubleCounts(t *testing.T) {
	keywords := types.KeywordSet{
		{Term: "jira", Category: types.CategoryTechnicalSkill, Weight: 1.0},
	}

	// "jira" as a skill counts once as a text occurrence and once again
	// through the exact skill bonus.
	exp := types.Experience{
		Title:  "Engineer",
		Skills: []string{"Jira"},
	}

	scored := Score(exp, keywords)
	assert.Equal(t, 2.0, scored.RelevanceScore)
}

func TestScoreWeightedKeywords(t *testing.T) {
	keywords := types.KeywordSet{
		{Term: "fintech", Category: types.CategoryIndustry, Weight: 2.5},
	}

	exp := types.Experience{
		Title:        "Engineer",
		Achievements: []string{"Built fintech integrations", "Scaled fintech APIs"},
	}

	scored := Score(exp, keywords)
	assert.Equal(t, 5.0, scored.RelevanceScore)
}

func TestScoreZeroWeightKeywordStillMatches(t *testing.T) {
	keywords := types.KeywordSet{
		{Term: "saas", Category: types.CategoryIndustry, Weight: 0},
	}

	exp := types.Experience{
		Title:        "Engineer",
		Achievements: []string{"Grew saas revenue"},
	}

	scored := Score(exp, keywords)
	assert.Equal(t, 0.0, scored.RelevanceScore)
	assert.Equal(t, []string{"saas"}, scored.MatchedKeywords)
}

func TestScoreEmptyKeywords(t *testing.T) {
	exp := types.Experience{
		Title:        "Engineer",
		Achievements: []string{"Shipped things"},
	}

	scored := Score(exp, nil)
	assert.Equal(t, 0.0, scored.RelevanceScore)
	assert.Empty(t, scored.MatchedKeywords)
}

func TestScoreWithCustomWeights(t *testing.T) {
	keywords := types.KeywordSet{
		{Term: "sql", Category: types.CategoryTechnicalSkill, Weight: 1.0},
	}
	exp := types.Experience{
		Title:  "Product Manager",
		Skills: []string{"sql"},
	}

	scored := ScoreWith(exp, keywords, Weights{TitleBonus: 10, ExactSkillBonus: 5})
	// 1 occurrence + 10 title + 5 exact skill
	assert.Equal(t, 16.0, scored.RelevanceScore)
}

func TestScoreNeverDecreasesWithMoreOccurrences(t *testing.T) {
	vocab := BuildVocabulary(config.EngineConfig{})
	require.NotEmpty(t, vocab)

	exp := types.Experience{
		Title:        "Product Manager",
		Achievements: []string{"Owned the roadmap for the analytics platform"},
		Skills:       []string{"SQL"},
	}
	base := Score(exp, vocab).RelevanceScore

	// Appending one more occurrence of an already matched keyword can only
	// grow the score, never shrink it.
	for _, term := range []string{"roadmap", "analytics", "sql"} {
		more := exp
		more.Achievements = append(append([]string(nil), exp.Achievements...), "Also worked on "+term)
		assert.GreaterOrEqual(t, Score(more, vocab).RelevanceScore, base, "extra %q occurrence", term)
	}
}

func BenchmarkScore(b *testing.B) {
	vocab := BuildVocabulary(config.EngineConfig{})
	exp := types.Experience{
		Title: "Senior Product Manager",
		Achievements: []string{
			"Led cross-functional team of 12 through agile delivery",
			"Grew activation 40% via a/b testing and analytics",
			"Owned the roadmap and backlog management for the b2b platform",
		},
		Skills: []string{"SQL", "Jira", "Figma", "Stakeholder Management"},
	}

	require.NotEmpty(b, vocab)
	for b.Loop() {
		Score(exp, vocab)
	}
}
