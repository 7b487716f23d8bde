package profile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pmtailor/internal/errors"
	"pmtailor/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validProfile() types.Profile {
	return types.Profile{
		Name:    "Jordan Reyes",
		Email:   "jordan@example.com",
		Phone:   "555-0100",
		Summary: "Product leader.",
		Experiences: []types.Experience{
			{Title: "Product Manager", Company: "Acme"},
			{Title: "Associate PM", Company: "Beta"},
		},
		Skills: []string{"SQL", "Jira", "Figma", "Roadmapping", "Analytics"},
	}
}

func TestParseValidJSON(t *testing.T) {
	data := []byte(`{
		"name": "Jordan Reyes",
		"email": "jordan@example.com",
		"phone": "555-0100",
		"summary": "Product leader.",
		"experiences": [{"title": "Product Manager", "company": "Acme"}],
		"skills": ["SQL"]
	}`)

	p, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "Jordan Reyes", p.Name)
	require.Len(t, p.Experiences, 1)
	assert.Equal(t, "Acme", p.Experiences[0].Company)
}

func TestParseInvalidJSON(t *testing.T) {
	_, err := Parse([]byte("{not json"))
	require.Error(t, err)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.ErrCodeInvalidFormat, appErr.Code)
}

func TestValidateRequiredFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*types.Profile)
		field  string
	}{
		{"missing name", func(p *types.Profile) { p.Name = "" }, "name"},
		{"whitespace name", func(p *types.Profile) { p.Name = "   " }, "name"},
		{"missing email", func(p *types.Profile) { p.Email = "" }, "email"},
		{"missing phone", func(p *types.Profile) { p.Phone = "" }, "phone"},
		{"missing summary", func(p *types.Profile) { p.Summary = "" }, "summary"},
		{"no experiences", func(p *types.Profile) { p.Experiences = nil }, "experiences"},
		{"no skills", func(p *types.Profile) { p.Skills = nil }, "skills"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validProfile()
			tt.mutate(&p)

			err := Validate(p)
			require.Error(t, err)

			var appErr *errors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, errors.ErrCodeInvalidProfile, appErr.Code)
			assert.Equal(t, tt.field, appErr.Context["field"])
		})
	}
}

func TestValidateReportsFirstMissingField(t *testing.T) {
	p := validProfile()
	p.Email = ""
	p.Phone = ""

	err := Validate(p)
	require.Error(t, err)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "email", appErr.Context["field"])
}

func TestValidateAcceptsCompleteProfile(t *testing.T) {
	assert.NoError(t, Validate(validProfile()))
}

func TestLintWarnings(t *testing.T) {
	t.Run("clean profile", func(t *testing.T) {
		assert.Empty(t, Lint(validProfile()))
	})

	t.Run("too few experiences and skills", func(t *testing.T) {
		p := validProfile()
		p.Experiences = p.Experiences[:1]
		p.Skills = p.Skills[:2]

		warnings := Lint(p)
		require.Len(t, warnings, 2)
		assert.Contains(t, warnings[0], "1 experiences")
		assert.Contains(t, warnings[1], "2 skills")
	})

	t.Run("long summary", func(t *testing.T) {
		p := validProfile()
		p.Summary = strings.Repeat("word ", 120)

		warnings := Lint(p)
		require.Len(t, warnings, 1)
		assert.Contains(t, warnings[0], "120 words")
	})

	t.Run("long achievement", func(t *testing.T) {
		p := validProfile()
		p.Experiences[0].Achievements = []string{strings.Repeat("word ", 30)}

		warnings := Lint(p)
		require.Len(t, warnings, 1)
		assert.Contains(t, warnings[0], "experience 1, achievement 1")
	})
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.json")
	data := `{"name": "Jordan", "email": "j@example.com", "phone": "1", "summary": "s", "experiences": [{"title": "PM"}], "skills": ["sql"]}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	p, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "Jordan", p.Name)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"), nil)
	require.Error(t, err)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.ErrCodeFileNotFound, appErr.Code)
}
