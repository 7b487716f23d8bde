package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"pmtailor/internal/config"
	pmtailorErrors "pmtailor/internal/errors"
	"pmtailor/internal/observability"
	"pmtailor/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T) (*Server, *observability.ObservabilityManager) {
	t.Helper()

	appCfg := &config.Config{
		Engine: config.EngineConfig{
			MinRelevanceScore:  0.5,
			MaxExperiences:     5,
			MaxSkills:          15,
			MaxSummaryKeywords: 5,
			TitleBonus:         2.0,
			ExactSkillBonus:    1.0,
		},
	}

	logger, err := pmtailorErrors.New("error")
	require.NoError(t, err)

	srv := NewServer(appCfg, ServerConfig{
		Host:           "127.0.0.1",
		Port:           "0",
		Version:        "test",
		MaxRequestSize: 1 << 20,
	}, logger)

	om, err := observability.NewObservabilityManager(observability.ObservabilityConfig{Enabled: false}, appCfg)
	require.NoError(t, err)

	return srv, om
}

func postJSON(t *testing.T, handler http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestTailorHandlerSuccess(t *testing.T) {
	srv, om := testServer(t)
	handler := srv.createTailorHandler(om)

	rec := postJSON(t, handler, TailorRequest{
		Profile: types.Profile{
			Name:    "Jordan Reyes",
			Email:   "jordan@example.com",
			Phone:   "555-0100",
			Summary: "Product leader.",
			Experiences: []types.Experience{
				{Title: "Product Manager", Achievements: []string{"Owned the roadmap and ran agile ceremonies"}},
			},
			Skills: []string{"SQL", "Jira"},
		},
		JobDescription: "Looking for a Product Manager to own the roadmap. Agile and SQL required.",
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var result types.TailoredResume
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "Jordan Reyes", result.Name)
	assert.NotEmpty(t, result.MatchedKeywords)
	require.Len(t, result.Experiences, 1)
	assert.Greater(t, result.Experiences[0].RelevanceScore, 2.0)
}

func TestTailorHandlerMissingFields(t *testing.T) {
	srv, om := testServer(t)
	handler := srv.createTailorHandler(om)

	t.Run("missing profile", func(t *testing.T) {
		rec := postJSON(t, handler, TailorRequest{JobDescription: "some job"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Missing profile", resp.Error)
	})

	t.Run("missing job description", func(t *testing.T) {
		rec := postJSON(t, handler, TailorRequest{
			Profile: types.Profile{Name: "Jordan"},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestTailorHandlerRejectsNonJSON(t *testing.T) {
	srv, om := testServer(t)
	handler := srv.createTailorHandler(om)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("plain")))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeHandlerSuccess(t *testing.T) {
	srv, om := testServer(t)
	handler := srv.createAnalyzeHandler(om)

	rec := postJSON(t, handler, AnalyzeRequest{
		JobDescription: "Acme Analytics is hiring a Product Manager. Requirements:\n- 5+ years of experience\n- SQL and agile",
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var result types.AnalyzeJobOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Positive(t, result.TotalMatches)
	assert.Equal(t, "Acme Analytics", result.Insights.Company)
}

func TestAnalyzeHandlerMissingJobDescription(t *testing.T) {
	srv, om := testServer(t)
	handler := srv.createAnalyzeHandler(om)

	rec := postJSON(t, handler, AnalyzeRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthHandler(t *testing.T) {
	srv, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.healthHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, "pmtailor", resp["service"])

	engineStatus, ok := resp["engine"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, engineStatus["healthy"])
	assert.Positive(t, engineStatus["vocabulary_size"])
}

func TestHealthHandlerMethodNotAllowed(t *testing.T) {
	srv, _ := testServer(t)

	req := httptest.NewRequest(http.MethodPost, "/health", nil)
	rec := httptest.NewRecorder()
	srv.healthHandler(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStatsHandler(t *testing.T) {
	srv, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	srv.statsHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "pmtailor", resp["service"])

	vocab, ok := resp["vocabulary"].(map[string]any)
	require.True(t, ok)
	assert.Positive(t, vocab["size"])
}

func TestAuthMiddleware(t *testing.T) {
	srv, _ := testServer(t)
	srv.APIKeys = map[string]bool{"valid-key-12345": true}

	protected := srv.authMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("missing key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/tailor", nil)
		rec := httptest.NewRecorder()
		protected(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/tailor", nil)
		req.Header.Set("X-API-Key", "wrong")
		rec := httptest.NewRecorder()
		protected(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/tailor", nil)
		req.Header.Set("X-API-Key", "valid-key-12345")
		rec := httptest.NewRecorder()
		protected(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("bearer token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/tailor", nil)
		req.Header.Set("Authorization", "Bearer valid-key-12345")
		rec := httptest.NewRecorder()
		protected(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
