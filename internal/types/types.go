package types

// Category identifies the vocabulary group a keyword belongs to.
type Category string

// Built-in vocabulary categories, in canonical order.
const (
	CategoryCoreSkill      Category = "core_skills"
	CategoryTechnicalSkill Category = "technical_skills"
	CategorySoftSkill      Category = "soft_skills"
	CategoryIndustry       Category = "industries"
)

// BuiltinCategories lists the built-in categories in canonical order.
var BuiltinCategories = []Category{
	CategoryCoreSkill,
	CategoryTechnicalSkill,
	CategorySoftSkill,
	CategoryIndustry,
}

// IsBuiltin reports whether c is one of the built-in categories.
func (c Category) IsBuiltin() bool {
	switch c {
	case CategoryCoreSkill, CategoryTechnicalSkill, CategorySoftSkill, CategoryIndustry:
		return true
	}
	return false
}

// KeywordEntry is a single vocabulary term with its category and weight.
type KeywordEntry struct {
	Term     string   `json:"term"`
	Category Category `json:"category"`
	Weight   float64  `json:"weight"`
}

// KeywordSet is an ordered collection of keyword entries. Order follows
// vocabulary order: categories in canonical (then sorted custom) order,
// terms in declaration order within each category.
type KeywordSet []KeywordEntry

// Terms returns the terms of the set in order.
func (ks KeywordSet) Terms() []string {
	terms := make([]string, len(ks))
	for i, e := range ks {
		terms[i] = e.Term
	}
	return terms
}

// ByCategory groups the set's terms per category, preserving order.
func (ks KeywordSet) ByCategory() map[Category][]string {
	grouped := make(map[Category][]string)
	for _, e := range ks {
		grouped[e.Category] = append(grouped[e.Category], e.Term)
	}
	return grouped
}

// Contains reports whether the set holds term in any category.
func (ks KeywordSet) Contains(term string) bool {
	for _, e := range ks {
		if e.Term == term {
			return true
		}
	}
	return false
}

// Experience is a single role in a candidate's history.
type Experience struct {
	Title        string   `json:"title"`
	Company      string   `json:"company"`
	Duration     string   `json:"duration,omitempty"`
	Achievements []string `json:"achievements,omitempty"`
	Skills       []string `json:"skills,omitempty"`
}

// Education is a single education entry.
type Education struct {
	Degree      string   `json:"degree"`
	Institution string   `json:"institution"`
	Year        string   `json:"year,omitempty"`
	Details     []string `json:"details,omitempty"`
}

// Profile is a candidate profile as loaded from JSON.
type Profile struct {
	Name           string       `json:"name"`
	Email          string       `json:"email"`
	Phone          string       `json:"phone"`
	LinkedIn       string       `json:"linkedin,omitempty"`
	Location       string       `json:"location,omitempty"`
	Summary        string       `json:"summary"`
	Experiences    []Experience `json:"experiences"`
	Education      []Education  `json:"education,omitempty"`
	Skills         []string     `json:"skills"`
	Certifications []string     `json:"certifications,omitempty"`
	Languages      []string     `json:"languages,omitempty"`
}

// ScoredExperience is an experience annotated with its relevance score
// and the vocabulary terms that contributed to it.
type ScoredExperience struct {
	Experience
	RelevanceScore  float64  `json:"relevanceScore"`
	MatchedKeywords []string `json:"matchedKeywords,omitempty"`
}

// JobInsights carries best-effort signals extracted from a job
// description. Every field may be zero when the text yields nothing.
type JobInsights struct {
	Company           string   `json:"company,omitempty"`
	Industry          string   `json:"industry,omitempty"`
	YearsOfExperience int      `json:"yearsOfExperience,omitempty"`
	Requirements      []string `json:"requirements,omitempty"`
}

// KeywordGroup is one vocabulary category and the terms matched in it.
type KeywordGroup struct {
	Category Category `json:"category"`
	Terms    []string `json:"terms"`
}

// AnalyzeJobOutput is the result of analyzing a job description.
type AnalyzeJobOutput struct {
	Keywords     []KeywordGroup `json:"keywords"`
	TotalMatches int            `json:"totalMatches"`
	Insights     JobInsights    `json:"insights"`
	Summary      string         `json:"summary"`
}

// TailoredResume is the result of tailoring a profile against a job
// description.
type TailoredResume struct {
	Name              string             `json:"name"`
	Email             string             `json:"email"`
	Phone             string             `json:"phone"`
	LinkedIn          string             `json:"linkedin,omitempty"`
	Location          string             `json:"location,omitempty"`
	Summary           string             `json:"summary"`
	Experiences       []ScoredExperience `json:"experiences"`
	Skills            []string           `json:"skills"`
	Education         []Education        `json:"education,omitempty"`
	Certifications    []string           `json:"certifications,omitempty"`
	MatchedKeywords   []string           `json:"matchedKeywords,omitempty"`
	OptimizationNotes []string           `json:"optimizationNotes,omitempty"`
	Insights          JobInsights        `json:"insights"`
}
