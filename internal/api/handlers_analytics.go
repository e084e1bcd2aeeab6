package api

import (
	"net/http"

	"github.com/job-insights/internal/analytics"
	"github.com/job-insights/internal/types"
)

// DurationsResponse lists per-job duration estimates
type DurationsResponse struct {
	Durations []types.DurationRecord `json:"durations"`
	Total     int                    `json:"total"`
}

// WaitTimesResponse carries per-backend queue statistics and a stable display order
type WaitTimesResponse struct {
	WaitTimes map[string]types.WaitTimeStats `json:"waitTimes"`
	Order     []string                       `json:"order"`
}

// RecommendationsResponse is the ranked backend list for the weights used
type RecommendationsResponse struct {
	Weights         types.Weights        `json:"weights"`
	Recommendations []types.BackendScore `json:"recommendations"`
}

// AnomaliesResponse lists detected anomalies
type AnomaliesResponse struct {
	Anomalies []types.Anomaly `json:"anomalies"`
	Total     int             `json:"total"`
}

// handleSummary handles GET /api/summary
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.dashboard.Summary()
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// handleDurations handles GET /api/durations
func (s *Server) handleDurations(w http.ResponseWriter, r *http.Request) {
	durations, err := s.dashboard.Durations()
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, DurationsResponse{Durations: durations, Total: len(durations)})
}

// handleWaitTimes handles GET /api/wait-times
func (s *Server) handleWaitTimes(w http.ResponseWriter, r *http.Request) {
	waits, err := s.dashboard.WaitTimes()
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, WaitTimesResponse{WaitTimes: waits, Order: analytics.WaitTimeOrder(waits)})
}

// handleRecommendations handles GET /api/recommendations?success=&queue=&exec=
func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	weights, err := parseWeights(r.URL.Query(), s.dashboard.DefaultWeights())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	recs, err := s.dashboard.Recommendations(weights)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, RecommendationsResponse{Weights: weights, Recommendations: recs})
}

// handleAnomalies handles GET /api/anomalies
func (s *Server) handleAnomalies(w http.ResponseWriter, r *http.Request) {
	anomalies, err := s.dashboard.Anomalies()
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, AnomaliesResponse{Anomalies: anomalies, Total: len(anomalies)})
}

// handleReport handles GET /api/report - every analytic in one payload
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	weights, err := parseWeights(r.URL.Query(), s.dashboard.DefaultWeights())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	report, err := s.dashboard.Report(r.Context(), weights)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}
