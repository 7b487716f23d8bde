package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// defaultConfig unmarshals a Config from the defaults alone.
func defaultConfig(t *testing.T) Config {
	t.Helper()
	v := viper.New()
	setDefaults(v)

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))
	return cfg
}

func TestDefaultEngineConfig(t *testing.T) {
	cfg := defaultConfig(t)

	assert.Equal(t, 0.5, cfg.Engine.MinRelevanceScore)
	assert.Equal(t, 5, cfg.Engine.MaxExperiences)
	assert.Equal(t, 15, cfg.Engine.MaxSkills)
	assert.Equal(t, 5, cfg.Engine.MaxSummaryKeywords)
	assert.Equal(t, 2.0, cfg.Engine.TitleBonus)
	assert.Equal(t, 1.0, cfg.Engine.ExactSkillBonus)
	assert.Empty(t, cfg.Engine.CustomKeywords)
}

func TestDefaultFetchConfig(t *testing.T) {
	cfg := defaultConfig(t)

	assert.Equal(t, 30*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, "pmtailor/1.0", cfg.Fetch.UserAgent)
	assert.Equal(t, int64(2*1024*1024), cfg.Fetch.MaxBodySize)
	assert.True(t, cfg.Fetch.CircuitBreaker.Enabled)
	assert.Equal(t, 0.6, cfg.Fetch.CircuitBreaker.FailureThreshold)
}

func TestDefaultConfigValidates(t *testing.T) {
	cfg := defaultConfig(t)

	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "json", cfg.App.DefaultFormat)
	assert.Equal(t, []string{"json", "text", "markdown"}, cfg.App.SupportedFormats)
	assert.Equal(t, "disabled", cfg.Server.TLS.Mode)
	assert.False(t, cfg.Server.RateLimit.Enabled)
}

func TestValidateEngine(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
		errorMsg    string
	}{
		{
			name:        "defaults are valid",
			mutate:      func(c *Config) {},
			expectError: false,
		},
		{
			name:        "negative min relevance score",
			mutate:      func(c *Config) { c.Engine.MinRelevanceScore = -0.1 },
			expectError: true,
			errorMsg:    "minRelevanceScore",
		},
		{
			name:        "zero max experiences",
			mutate:      func(c *Config) { c.Engine.MaxExperiences = 0 },
			expectError: true,
			errorMsg:    "maxExperiences",
		},
		{
			name:        "zero max skills",
			mutate:      func(c *Config) { c.Engine.MaxSkills = 0 },
			expectError: true,
			errorMsg:    "maxSkills",
		},
		{
			name:        "negative summary keywords",
			mutate:      func(c *Config) { c.Engine.MaxSummaryKeywords = -1 },
			expectError: true,
			errorMsg:    "maxSummaryKeywords",
		},
		{
			name:        "negative category weight",
			mutate:      func(c *Config) { c.Engine.CategoryWeights = map[string]float64{"core_pm_skills": -1} },
			expectError: true,
			errorMsg:    "categoryWeights",
		},
		{
			name:        "zero category weight allowed",
			mutate:      func(c *Config) { c.Engine.CategoryWeights = map[string]float64{"industries": 0} },
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig(t)
			tt.mutate(&cfg)

			err := cfg.validateEngine()

			if tt.expectError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateRejectsBadTopLevelValues(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		errorMsg string
	}{
		{
			name:     "non-positive fetch timeout",
			mutate:   func(c *Config) { c.Fetch.Timeout = 0 },
			errorMsg: "fetch timeout",
		},
		{
			name:     "missing server port",
			mutate:   func(c *Config) { c.Server.Port = "" },
			errorMsg: "server port",
		},
		{
			name:     "unsupported default format",
			mutate:   func(c *Config) { c.App.DefaultFormat = "xml" },
			errorMsg: "invalid default format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig(t)
			tt.mutate(&cfg)

			err := cfg.Validate()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}
