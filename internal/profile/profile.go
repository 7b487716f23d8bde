package profile

import (
	"encoding/json"
	"fmt"
	"strings"

	"pmtailor/internal/common"
	"pmtailor/internal/errors"
	"pmtailor/internal/types"
)

// Validation bounds for candidate profiles.
const (
	minExperiences      = 2
	minSkills           = 5
	maxSummaryWords     = 100
	maxAchievementWords = 25
)

// requiredFields are the profile fields that must be present for tailoring.
var requiredFields = []string{"name", "email", "phone", "summary", "experiences", "skills"}

// Load reads and parses a candidate profile from a JSON file.
func Load(path string, logger *errors.Logger) (types.Profile, error) {
	fp := common.NewFileProcessor(logger)
	content, err := fp.ReadFile(path)
	if err != nil {
		return types.Profile{}, err
	}
	return Parse([]byte(content))
}

// Parse decodes a candidate profile from JSON.
func Parse(data []byte) (types.Profile, error) {
	var p types.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return types.Profile{}, errors.NewValidationError(errors.ErrCodeInvalidFormat,
			"profile is not valid JSON", err)
	}
	return p, nil
}

// Validate checks that the profile carries every required field. A missing
// field yields INVALID_PROFILE naming the first absent field.
func Validate(p types.Profile) error {
	for _, field := range requiredFields {
		if fieldMissing(p, field) {
			return errors.NewValidationError(errors.ErrCodeInvalidProfile,
				fmt.Sprintf("profile is missing required field: %s", field), nil).
				WithContext("field", field)
		}
	}
	return nil
}

func fieldMissing(p types.Profile, field string) bool {
	switch field {
	case "name":
		return strings.TrimSpace(p.Name) == ""
	case "email":
		return strings.TrimSpace(p.Email) == ""
	case "phone":
		return strings.TrimSpace(p.Phone) == ""
	case "summary":
		return strings.TrimSpace(p.Summary) == ""
	case "experiences":
		return len(p.Experiences) == 0
	case "skills":
		return len(p.Skills) == 0
	}
	return false
}

// Lint returns advisory warnings about profile quality. Warnings never
// block tailoring.
func Lint(p types.Profile) []string {
	var warnings []string

	if len(p.Experiences) < minExperiences {
		warnings = append(warnings, fmt.Sprintf("profile has %d experiences, at least %d recommended",
			len(p.Experiences), minExperiences))
	}
	if len(p.Skills) < minSkills {
		warnings = append(warnings, fmt.Sprintf("profile has %d skills, at least %d recommended",
			len(p.Skills), minSkills))
	}
	if words := wordCount(p.Summary); words > maxSummaryWords {
		warnings = append(warnings, fmt.Sprintf("summary is %d words, at most %d recommended",
			words, maxSummaryWords))
	}
	for i, exp := range p.Experiences {
		for j, achievement := range exp.Achievements {
			if words := wordCount(achievement); words > maxAchievementWords {
				warnings = append(warnings, fmt.Sprintf(
					"experience %d, achievement %d is %d words, at most %d recommended",
					i+1, j+1, words, maxAchievementWords))
			}
		}
	}

	return warnings
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
