package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// healthHandler reports overall service health. The response is degraded
// (503) when the engine vocabulary is empty or the certificate is in a
// bad state; an expiring-soon certificate is a warning, not degraded.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	engineStatus := s.checkEngineHealth()
	certStatus := s.checkCertificateHealth()

	healthy := engineStatus["healthy"] == true
	if certStatus != nil && certStatus["healthy"] == false {
		healthy = false
	}

	response := map[string]any{
		"status":  "healthy",
		"service": "pmtailor",
		"version": s.Version,
		"engine":  engineStatus,
	}
	if certStatus != nil {
		response["certificates"] = certStatus
	}

	w.Header().Set("Content-Type", "application/json")
	if !healthy {
		response["status"] = "degraded"
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Failed to encode health response: %v", err)
	}
}

func (s *Server) checkEngineHealth() map[string]any {
	if s.Engine == nil {
		return map[string]any{
			"healthy": false,
			"error":   "engine not initialized",
		}
	}

	vocab := s.Engine.Vocabulary()
	status := map[string]any{
		"healthy":             len(vocab) > 0,
		"vocabulary_size":     len(vocab),
		"min_relevance_score": s.AppConfig.Engine.MinRelevanceScore,
		"max_experiences":     s.AppConfig.Engine.MaxExperiences,
		"max_skills":          s.AppConfig.Engine.MaxSkills,
	}
	if len(vocab) == 0 {
		status["message"] = "keyword vocabulary is empty"
	}
	return status
}

// checkCertificateHealth reports certificate expiry and reload state when
// the auto-reloader is running, and nil otherwise.
func (s *Server) checkCertificateHealth() map[string]any {
	if s.certs == nil {
		return nil
	}

	timeToExpiry, err := s.certs.timeToExpiry()
	if err != nil {
		return map[string]any{
			"healthy": false,
			"error":   fmt.Sprintf("Failed to check certificate expiry: %v", err),
		}
	}

	status := map[string]any{
		"time_to_expiry_hours": int(timeToExpiry.Hours()),
		"time_to_expiry":       timeToExpiry.String(),
		"auto_reload":          s.certs.status(),
	}
	switch {
	case timeToExpiry <= 0:
		status["healthy"] = false
		status["status"] = "expired"
		status["message"] = "Certificate has expired"
	case timeToExpiry <= 24*time.Hour:
		status["healthy"] = false
		status["status"] = "critical"
		status["message"] = "Certificate expires within 24 hours"
	case timeToExpiry <= 7*24*time.Hour:
		status["healthy"] = true
		status["status"] = "warning"
		status["message"] = "Certificate expires within 7 days"
	default:
		status["healthy"] = true
		status["status"] = "ok"
		status["message"] = "Certificate is valid"
	}
	return status
}

// statsHandler exposes vocabulary size and rate-limit counters.
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"service": "pmtailor",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
		},
	}

	if s.Engine != nil {
		response["vocabulary"] = map[string]any{
			"size": len(s.Engine.Vocabulary()),
		}
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{"enabled": false}
	}
	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
			"by_api_key":       s.RateLimit.ByAPIKey,
		}
	}

	writeJSON(w, response)
}

// parseJSONRequest decodes the request body into v, translating the
// MaxBytesReader error into something a client can act on.
func parseJSONRequest(r *http.Request, v any) error {
	if r.Header.Get("Content-Type") != "application/json" {
		return fmt.Errorf("content-type must be application/json")
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return fmt.Errorf("request body too large (limit is %d bytes)", maxBytesErr.Limit)
		}
		return fmt.Errorf("failed to read request body: %w", err)
	}
	defer func() {
		if err := r.Body.Close(); err != nil {
			log.Printf("Failed to close request body: %v", err)
		}
	}()

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func writeErrorResponse(w http.ResponseWriter, error, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: error, Message: message}); err != nil {
		log.Printf("Failed to encode error response: %v", err)
	}
}
