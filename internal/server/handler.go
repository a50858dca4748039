package server

import (
	"encoding/json"
	"log"
	"net/http"

	appErrors "resumatch/internal/errors"
	"resumatch/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const apiTracerName = "resumatch.api"

// createScoreHandler scores one résumé against one job description
func (s *Server) createScoreHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := om.Tracer(apiTracerName).Start(r.Context(), "api.score")
		defer span.End()

		var req ScoreRequest
		if err := parseJSONRequest(r, &req); err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, appErrors.ErrCodeInvalidRequest, err.Error(), http.StatusBadRequest)
			return
		}

		span.SetAttributes(
			attribute.Int("request.resume_length", len(req.ResumeText)),
			attribute.Int("request.job_length", len(req.JobDescription)),
			attribute.Bool("request.skip_enrichment", req.SkipEnrichment),
		)

		result, err := s.Backend.Scorer.Score(ctx, req.input())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "scoring failed")
			s.writeAppError(w, err)
			return
		}

		span.SetAttributes(
			attribute.Float64("score.overall", result.OverallScore),
			attribute.String("score.match_level", string(result.MatchLevel)),
			attribute.Bool("score.enriched", result.AIAnalysis != nil),
		)
		writeJSON(w, http.StatusOK, result)
	}
}

// createFeaturesHandler returns the probability model input for a pair
func (s *Server) createFeaturesHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := om.Tracer(apiTracerName).Start(r.Context(), "api.features")
		defer span.End()

		var req ScoreRequest
		if err := parseJSONRequest(r, &req); err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, appErrors.ErrCodeInvalidRequest, err.Error(), http.StatusBadRequest)
			return
		}

		features, err := s.Backend.Scorer.Features(ctx, req.input())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "feature extraction failed")
			s.writeAppError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, features)
	}
}

// writeAppError maps an engine error onto a status code: validation is the
// caller's fault, unavailable is 503 and anything else is 500
func (s *Server) writeAppError(w http.ResponseWriter, err error) {
	appErr, ok := appErrors.AsAppError(err)
	if !ok {
		s.Logger.LogError(err, "Unexpected scoring error")
		writeErrorResponse(w, appErrors.ErrCodeInternal, "internal error", http.StatusInternalServerError)
		return
	}

	status := http.StatusInternalServerError
	switch appErr.Type {
	case appErrors.ErrorTypeValidation:
		status = http.StatusBadRequest
	case appErrors.ErrorTypeUnavailable:
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		s.Logger.LogError(err, "Scoring request failed")
	}

	writeErrorResponse(w, appErr.Code, appErr.Message, status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}
