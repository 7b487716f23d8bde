package server

import (
	"context"
	"encoding/json"
	goerrors "errors"
	"fmt"
	"net/http"
	"strings"

	pmtailorErrors "pmtailor/internal/errors"
	"pmtailor/internal/observability"
	"pmtailor/internal/types"

	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// rejectRequest records a request-level failure on the span and answers
// with a 400.
func rejectRequest(span oteltrace.Span, w http.ResponseWriter, err error, title, detail string) {
	span.RecordError(err)
	span.SetAttributes(attribute.String("error.type", "validation"))
	writeErrorResponse(w, title, detail, http.StatusBadRequest)
}

// createTailorHandler returns the POST /tailor handler: validate the
// request, run the engine inside the tracked operation, record business
// metrics, and emit the tailored resume.
func (s *Server) createTailorHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := om.Tracer("pmtailor.api").Start(r.Context(), "api.tailor")
		defer span.End()

		var req TailorRequest
		if err := parseJSONRequest(r, &req); err != nil {
			rejectRequest(span, w, err, "Invalid request body", err.Error())
			return
		}
		if strings.TrimSpace(req.Profile.Name) == "" {
			rejectRequest(span, w, fmt.Errorf("missing profile"),
				"Missing profile", "profile field is required")
			return
		}
		if strings.TrimSpace(req.JobDescription) == "" {
			rejectRequest(span, w, fmt.Errorf("missing job description"),
				"Missing job description", "jobDescription field is required")
			return
		}
		// The body already passed MaxBytesReader; this guards against a
		// small profile paired with an outsized job description.
		if len(req.JobDescription) > int(s.MaxRequestSize/2) {
			rejectRequest(span, w, fmt.Errorf("job description too large: %d chars", len(req.JobDescription)),
				"Job description too large",
				fmt.Sprintf("jobDescription exceeds recommended size limit of %d characters", s.MaxRequestSize/2))
			return
		}

		span.SetAttributes(
			attribute.Int("request.experience_count", len(req.Profile.Experiences)),
			attribute.Int("request.job_length", len(req.JobDescription)),
			attribute.String("operation", "tailor"),
		)

		metrics := om.GetMetrics()
		var result types.TailoredResume
		err := metrics.TrackEngineOperation(ctx, "tailor", func(ctx context.Context) *observability.EngineOperationResult {
			output, engineErr := s.Engine.Tailor(req.Profile, req.JobDescription)
			result = output
			return &observability.EngineOperationResult{
				Error:          engineErr,
				KeywordMatches: int64(len(output.MatchedKeywords)),
			}
		}, om)
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "engine_processing"))
			metrics.RecordBusinessMetric(ctx, "resume_tailored", false, om,
				attribute.String("error", err.Error()))
			writeEngineError(w, err)
			return
		}

		metrics.RecordBusinessMetric(ctx, "resume_tailored", true, om,
			attribute.Int("output.experience_count", len(result.Experiences)),
			attribute.Int("output.matched_keywords", len(result.MatchedKeywords)))
		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.Int("response.experience_count", len(result.Experiences)),
			attribute.Int("response.matched_keywords", len(result.MatchedKeywords)),
		)

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(result); err != nil {
			span.RecordError(err)
			http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		}
	}
}

// createAnalyzeHandler returns the POST /analyze handler.
func (s *Server) createAnalyzeHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := om.Tracer("pmtailor.api").Start(r.Context(), "api.analyze")
		defer span.End()

		var req AnalyzeRequest
		if err := parseJSONRequest(r, &req); err != nil {
			rejectRequest(span, w, err, "Invalid request body", err.Error())
			return
		}
		if strings.TrimSpace(req.JobDescription) == "" {
			rejectRequest(span, w, fmt.Errorf("missing job description"),
				"Missing job description", "jobDescription field is required")
			return
		}

		span.SetAttributes(
			attribute.Int("request.job_length", len(req.JobDescription)),
			attribute.String("operation", "analyze"),
		)

		metrics := om.GetMetrics()
		var result types.AnalyzeJobOutput
		err := metrics.TrackEngineOperation(ctx, "analyze", func(ctx context.Context) *observability.EngineOperationResult {
			result = s.Engine.AnalyzeJob(req.JobDescription)
			return &observability.EngineOperationResult{
				KeywordMatches: int64(result.TotalMatches),
			}
		}, om)
		if err != nil {
			span.RecordError(err)
			metrics.RecordBusinessMetric(ctx, "job_analyzed", false, om)
			writeEngineError(w, err)
			return
		}

		metrics.RecordBusinessMetric(ctx, "job_analyzed", true, om,
			attribute.Int("total_matches", result.TotalMatches),
			attribute.Int("requirements_count", len(result.Insights.Requirements)))
		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.Int("total_matches", result.TotalMatches),
			attribute.Int("requirements_count", len(result.Insights.Requirements)),
		)

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(result); err != nil {
			span.RecordError(err)
			http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		}
	}
}

// writeEngineError maps engine errors to HTTP status codes. Validation
// failures are the caller's fault and map to 400, everything else to 500.
func writeEngineError(w http.ResponseWriter, err error) {
	var appErr *pmtailorErrors.AppError
	if goerrors.As(err, &appErr) && appErr.Type == pmtailorErrors.ErrorTypeValidation {
		writeErrorResponse(w, "Invalid input", appErr.Message, http.StatusBadRequest)
		return
	}
	writeErrorResponse(w, "Failed to process request", err.Error(), http.StatusInternalServerError)
}

// createRateLimitMiddleware layers a rate-limit-hit metric on top of the
// plain limiter middleware by watching the response status.
func (s *Server) createRateLimitMiddleware(om *observability.ObservabilityManager) func(http.HandlerFunc) http.HandlerFunc {
	limit := s.rateLimitMiddleware()

	return func(next http.HandlerFunc) http.HandlerFunc {
		limited := limit(next)
		return func(w http.ResponseWriter, r *http.Request) {
			// The limiter writes its 429 itself, so the wrapper sits
			// outside it to observe the rejection.
			wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
			limited(wrapper, r)

			if wrapper.statusCode == http.StatusTooManyRequests {
				om.GetMetrics().RecordBusinessMetric(r.Context(), "rate_limit_hit", true, om,
					attribute.String("endpoint", r.URL.Path),
					attribute.String("method", r.Method))
			}
		}
	}
}

// responseWrapper captures the status code written downstream.
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
