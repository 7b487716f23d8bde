package engine

import (
	"fmt"
	"sort"
	"strings"

	"pmtailor/internal/config"
	"pmtailor/internal/errors"
	"pmtailor/internal/types"
)

// Engine tailors candidate profiles against job descriptions. It holds
// the effective vocabulary and scoring weights, built once from config.
// Engines carry no per-run state: Tailor is reentrant and safe to call
// concurrently with different inputs.
type Engine struct {
	cfg     config.EngineConfig
	vocab   types.KeywordSet
	weights Weights
	logger  *errors.Logger
}

// New builds an Engine from configuration. The logger may be nil.
func New(cfg config.EngineConfig, logger *errors.Logger) *Engine {
	return &Engine{
		cfg:   cfg,
		vocab: BuildVocabulary(cfg),
		weights: Weights{
			TitleBonus:      cfg.TitleBonus,
			ExactSkillBonus: cfg.ExactSkillBonus,
		},
		logger: logger,
	}
}

// Vocabulary returns the engine's effective keyword vocabulary.
func (e *Engine) Vocabulary() types.KeywordSet {
	return e.vocab
}

// Tailor produces a tailored resume for one job description. It validates
// inputs before any scoring work begins: an empty profile together with
// empty job text is INVALID_INPUT, a profile without a name is
// INVALID_PROFILE. An empty vocabulary is logged as a warning and scoring
// proceeds with zero scores.
func (e *Engine) Tailor(profile types.Profile, jobText string) (types.TailoredResume, error) {
	if err := e.validate(profile, jobText); err != nil {
		return types.TailoredResume{}, err
	}

	keywords := Analyze(jobText, e.vocab)
	insights := Inspect(jobText)

	experiences, reordered := e.selectExperiences(profile.Experiences, keywords)
	skills, promoted := e.prioritizeSkills(profile.Skills, keywords)
	summary := e.optimizeSummary(profile.Summary, keywords)
	notes := e.optimizationNotes(keywords, reordered, promoted)

	if e.logger != nil {
		e.logger.Debug("tailoring completed",
			"keywords_matched", len(keywords),
			"experiences_selected", len(experiences),
			"notes", len(notes))
	}

	return types.TailoredResume{
		Name:              profile.Name,
		Email:             profile.Email,
		Phone:             profile.Phone,
		LinkedIn:          profile.LinkedIn,
		Location:          profile.Location,
		Summary:           summary,
		Experiences:       experiences,
		Skills:            skills,
		Education:         profile.Education,
		Certifications:    profile.Certifications,
		MatchedKeywords:   keywords.Terms(),
		OptimizationNotes: notes,
		Insights:          insights,
	}, nil
}

// validate applies the fail-fast input checks.
func (e *Engine) validate(profile types.Profile, jobText string) error {
	if strings.TrimSpace(jobText) == "" && profileEmpty(profile) {
		return errors.NewValidationError(errors.ErrCodeInvalidInput,
			"job description and profile are both empty, nothing to tailor", nil)
	}
	if strings.TrimSpace(profile.Name) == "" {
		return errors.NewValidationError(errors.ErrCodeInvalidProfile,
			"profile is missing required field: name", nil)
	}
	if len(e.vocab) == 0 && e.logger != nil {
		e.logger.Warn("keyword vocabulary is empty, all experiences will score zero",
			"error_code", errors.ErrCodeEmptyVocabulary)
	}
	return nil
}

// profileEmpty reports whether a profile carries no usable content.
func profileEmpty(profile types.Profile) bool {
	return strings.TrimSpace(profile.Name) == "" &&
		strings.TrimSpace(profile.Summary) == "" &&
		len(profile.Experiences) == 0 &&
		len(profile.Skills) == 0
}

// selectExperiences scores, filters, sorts, and truncates the profile's
// experiences. The sort is stable so equally scored entries keep their
// profile order. The second return reports whether sorting actually
// changed the relative order of the surviving entries.
func (e *Engine) selectExperiences(experiences []types.Experience, keywords types.KeywordSet) ([]types.ScoredExperience, bool) {
	type indexed struct {
		types.ScoredExperience
		pos int
	}

	scored := make([]indexed, 0, len(experiences))
	for i, exp := range experiences {
		se := ScoreWith(exp, keywords, e.weights)
		if se.RelevanceScore >= e.cfg.MinRelevanceScore {
			scored = append(scored, indexed{se, i})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].RelevanceScore > scored[j].RelevanceScore
	})

	if len(scored) > e.cfg.MaxExperiences {
		scored = scored[:e.cfg.MaxExperiences]
	}

	// The reorder note covers the emitted slice only: an inversion among
	// entries that truncation removed is not a visible change.
	reordered := false
	result := make([]types.ScoredExperience, 0, len(scored))
	for i, entry := range scored {
		if i > 0 && entry.pos < scored[i-1].pos {
			reordered = true
		}
		result = append(result, entry.ScoredExperience)
	}
	return result, reordered
}

// prioritizeSkills promotes profile skills matching a keyword term to the
// front, in vocabulary order of first match; the rest keep their original
// relative order. The result is the same multiset of strings, reordered
// and truncated to the configured maximum. The second return reports
// whether any skill was actually promoted ahead of its original position.
func (e *Engine) prioritizeSkills(skills []string, keywords types.KeywordSet) ([]string, bool) {
	taken := make([]bool, len(skills))
	ordered := make([]string, 0, len(skills))

	for _, entry := range keywords {
		for i, skill := range skills {
			if !taken[i] && skillMatchesTerm(skill, entry.Term) {
				taken[i] = true
				ordered = append(ordered, skill)
			}
		}
	}
	for i, skill := range skills {
		if !taken[i] {
			ordered = append(ordered, skill)
		}
	}

	promoted := false
	for i := range ordered {
		if ordered[i] != skills[i] {
			promoted = true
			break
		}
	}

	if len(ordered) > e.cfg.MaxSkills {
		ordered = ordered[:e.cfg.MaxSkills]
	}
	return ordered, promoted
}

// skillMatchesTerm reports whether a profile skill matches a vocabulary
// term by case-insensitive substring containment in either direction.
func skillMatchesTerm(skill, term string) bool {
	skill = normalizeTerm(skill)
	return strings.Contains(skill, term) || strings.Contains(term, skill)
}

// optimizeSummary appends a single parenthetical clause naming up to
// MaxSummaryKeywords high-value matched terms that the summary does not
// already mention. The original summary text is preserved verbatim; an
// empty summary stays empty.
func (e *Engine) optimizeSummary(summary string, keywords types.KeywordSet) string {
	if strings.TrimSpace(summary) == "" || e.cfg.MaxSummaryKeywords <= 0 {
		return summary
	}

	lower := strings.ToLower(summary)
	var missing []string
	for _, entry := range keywords {
		if len(missing) >= e.cfg.MaxSummaryKeywords {
			break
		}
		if entry.Category != types.CategoryCoreSkill && entry.Category != types.CategoryTechnicalSkill {
			continue
		}
		if !strings.Contains(lower, entry.Term) {
			missing = append(missing, entry.Term)
		}
	}
	if len(missing) == 0 {
		return summary
	}
	return fmt.Sprintf("%s (Relevant focus areas: %s)", summary, strings.Join(missing, ", "))
}

// optimizationNotes reports the transformations that actually changed the
// output. A note is never emitted for a no-op.
func (e *Engine) optimizationNotes(keywords types.KeywordSet, reordered, promoted bool) []string {
	var notes []string
	if len(keywords) > 0 {
		notes = append(notes, fmt.Sprintf("Optimized for %d relevant PM keywords from job description", len(keywords)))
		if category := topCategory(keywords); category != "" {
			notes = append(notes, fmt.Sprintf("Emphasized %s based on job requirements",
				strings.ReplaceAll(string(category), "_", " ")))
		}
	}
	if reordered {
		notes = append(notes, "Reordered experiences by relevance score")
	}
	if promoted {
		notes = append(notes, "Prioritized skills matching job description")
	}
	return notes
}

// topCategory returns the category with the most matched terms. Ties go
// to the category appearing first in vocabulary order.
func topCategory(keywords types.KeywordSet) types.Category {
	counts := make(map[types.Category]int)
	var order []types.Category
	for _, entry := range keywords {
		if counts[entry.Category] == 0 {
			order = append(order, entry.Category)
		}
		counts[entry.Category]++
	}

	var top types.Category
	best := 0
	for _, category := range order {
		if counts[category] > best {
			top = category
			best = counts[category]
		}
	}
	return top
}
