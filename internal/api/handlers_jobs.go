package api

import (
	"errors"
	"fmt"
	"mime"
	"net/http"

	apperrors "github.com/job-insights/internal/errors"
	"github.com/job-insights/internal/ingest"
	"github.com/job-insights/internal/service"
)

// uploadSource labels snapshots installed through POST /api/jobs/upload
const uploadSource = "upload"

// ReloadResponse is returned after the snapshot is replaced
type ReloadResponse struct {
	Snapshot *service.Snapshot  `json:"snapshot"`
	Parse    *ingest.ParseStats `json:"parse,omitempty"`
}

// handleListJobs handles GET /api/jobs - Filtered, sorted and paginated job listing
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	query, err := parseJobQuery(r.URL.Query())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	page, err := s.dashboard.QueryJobs(query)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, page)
}

// handleReloadJobs handles POST /api/jobs/reload - Re-read the configured source
func (s *Server) handleReloadJobs(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.dashboard.Reload(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, ReloadResponse{Snapshot: snapshot})
}

// handleUploadJobs handles POST /api/jobs/upload - Replace the snapshot with a CSV body
func (s *Server) handleUploadJobs(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || !isCSVMediaType(mediaType) {
			respondError(w, http.StatusUnsupportedMediaType, ErrCodeUnsupportedMediaType,
				"Upload must be text/csv", map[string]interface{}{"contentType": ct})
			return
		}
	}

	body := http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	defer body.Close()

	jobs, stats, err := ingest.ParseCSV(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = apperrors.NewInvalidParameterError("body", fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
		}
		respondServiceError(w, r, err)
		return
	}

	snapshot := s.dashboard.Replace(r.Context(), jobs, uploadSource)
	respondJSON(w, http.StatusOK, ReloadResponse{Snapshot: snapshot, Parse: stats})
}

func isCSVMediaType(mediaType string) bool {
	switch mediaType {
	case "text/csv", "application/csv", "text/plain", "application/octet-stream":
		return true
	}
	return false
}
