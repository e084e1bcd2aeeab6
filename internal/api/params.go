package api

import (
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/job-insights/internal/analytics"
	apperrors "github.com/job-insights/internal/errors"
	"github.com/job-insights/internal/service"
	"github.com/job-insights/internal/types"
)

// parseJobQuery reads the /api/jobs filter, sort and pagination parameters.
// Range and sort checks are left to the service layer.
func parseJobQuery(values url.Values) (service.JobQuery, error) {
	query := service.JobQuery{
		Backend:     strings.TrimSpace(values.Get("backend")),
		BackendType: strings.TrimSpace(values.Get("backendType")),
		Search:      strings.TrimSpace(values.Get("q")),
		SortBy:      strings.TrimSpace(values.Get("sortBy")),
		SortOrder:   strings.TrimSpace(values.Get("sortOrder")),
	}

	for _, raw := range values["status"] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				query.Statuses = append(query.Statuses, types.JobStatus(strings.ToUpper(part)))
			}
		}
	}

	var err error
	if query.From, err = parseTimeParam(values, "from"); err != nil {
		return query, err
	}
	if query.To, err = parseTimeParam(values, "to"); err != nil {
		return query, err
	}
	if query.Limit, err = parseIntParam(values, "limit"); err != nil {
		return query, err
	}
	if query.Offset, err = parseIntParam(values, "offset"); err != nil {
		return query, err
	}

	return query, nil
}

func parseTimeParam(values url.Values, name string) (*time.Time, error) {
	raw := strings.TrimSpace(values.Get(name))
	if raw == "" {
		return nil, nil
	}
	t, ok := analytics.ParseTimestamp(raw)
	if !ok {
		return nil, apperrors.NewInvalidParameterError(name, "expected an ISO 8601 timestamp or date")
	}
	return &t, nil
}

func parseIntParam(values url.Values, name string) (int, error) {
	raw := strings.TrimSpace(values.Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewInvalidParameterError(name, "expected an integer")
	}
	return n, nil
}

// parseWeights overlays the success, queue and exec parameters on defaults.
// Each must be a finite, non-negative number.
func parseWeights(values url.Values, defaults types.Weights) (types.Weights, error) {
	weights := defaults
	fields := []struct {
		name   string
		target *float64
	}{
		{"success", &weights.Success},
		{"queue", &weights.Queue},
		{"exec", &weights.Exec},
	}

	for _, f := range fields {
		raw := strings.TrimSpace(values.Get(f.name))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return defaults, apperrors.NewInvalidParameterError(f.name, "expected a number")
		}
		if v < 0 {
			return defaults, apperrors.NewInvalidParameterError(f.name, "must not be negative")
		}
		*f.target = v
	}

	return weights, nil
}
