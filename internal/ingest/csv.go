// Package ingest reads job exports into normalized job records.
package ingest

import (
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"strings"

	apperrors "github.com/job-insights/internal/errors"
	"github.com/job-insights/internal/types"
)

// Canonical column names
const (
	ColJobID         = "job_id"
	ColBackend       = "backend"
	ColBackendType   = "backend_type"
	ColStatus        = "status"
	ColCreationTime  = "creation_time"
	ColEndTime       = "end_time"
	ColExecutionTime = "execution_time"
	ColShots         = "shots"
)

// Columns lists the canonical header in export order
var Columns = []string{
	ColJobID,
	ColBackend,
	ColBackendType,
	ColStatus,
	ColCreationTime,
	ColEndTime,
	ColExecutionTime,
	ColShots,
}

// headerAliases maps normalized export headers to canonical column names
var headerAliases = map[string]string{
	"job_id":             ColJobID,
	"jobid":              ColJobID,
	"id":                 ColJobID,
	"backend":            ColBackend,
	"backend_name":       ColBackend,
	"backend_type":       ColBackendType,
	"status":             ColStatus,
	"creation_time":      ColCreationTime,
	"created":            ColCreationTime,
	"created_at":         ColCreationTime,
	"end_time":           ColEndTime,
	"ended":              ColEndTime,
	"ended_at":           ColEndTime,
	"execution_time":     ColExecutionTime,
	"quantum_seconds_ms": ColExecutionTime,
	"shots":              ColShots,
}

// nullValues are cell contents treated as absent
var nullValues = map[string]bool{
	"":     true,
	"null": true,
	"none": true,
	"nan":  true,
	"n/a":  true,
}

// ParseStats describes what happened while reading an export
type ParseStats struct {
	Rows          int `json:"rows"`
	Kept          int `json:"kept"`
	SkippedRows   int `json:"skippedRows"`
	UnknownStatus int `json:"unknownStatus"`
	InvalidShots  int `json:"invalidShots"`
}

// normalizeHeader folds "Job ID" and "job-id" onto "job_id", dropping any byte order mark
func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.NewReplacer(" ", "_", "-", "_").Replace(h)
	return h
}

// ParseCSV reads a job export. Only a missing job id column is fatal;
// rows that cannot be read are skipped and counted.
func ParseCSV(r io.Reader) ([]types.JobRecord, *ParseStats, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, apperrors.NewParseError("empty export", nil)
	}
	if err != nil {
		return nil, nil, apperrors.NewParseError("unreadable header", err)
	}

	colIdx := make(map[string]int, len(Columns))
	for i, h := range header {
		if name, ok := headerAliases[normalizeHeader(h)]; ok {
			if _, seen := colIdx[name]; !seen {
				colIdx[name] = i
			}
		}
	}
	colIndexOf := func(name string) int {
		if idx, ok := colIdx[name]; ok {
			return idx
		}
		return -1
	}
	if colIndexOf(ColJobID) == -1 {
		return nil, nil, apperrors.NewParseError("missing job_id column", nil)
	}

	jobIDIdx := colIndexOf(ColJobID)
	backendIdx := colIndexOf(ColBackend)
	backendTypeIdx := colIndexOf(ColBackendType)
	statusIdx := colIndexOf(ColStatus)
	creationIdx := colIndexOf(ColCreationTime)
	endIdx := colIndexOf(ColEndTime)
	execIdx := colIndexOf(ColExecutionTime)
	shotsIdx := colIndexOf(ColShots)

	stats := &ParseStats{}
	jobs := make([]types.JobRecord, 0)

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				stats.Rows++
				stats.SkippedRows++
				continue
			}
			return nil, nil, apperrors.NewParseError("read failed", err)
		}
		stats.Rows++

		cell := func(idx int) *string {
			if idx < 0 || idx >= len(record) {
				return nil
			}
			v := strings.TrimSpace(record[idx])
			if nullValues[strings.ToLower(v)] {
				return nil
			}
			return &v
		}

		jobID := cell(jobIDIdx)
		if jobID == nil {
			stats.SkippedRows++
			continue
		}

		job := types.JobRecord{
			JobID:         *jobID,
			BackendType:   cell(backendTypeIdx),
			EndTime:       cell(endIdx),
			ExecutionTime: cell(execIdx),
		}
		if v := cell(backendIdx); v != nil {
			job.Backend = *v
		}
		if v := cell(creationIdx); v != nil {
			job.CreationTime = *v
		}

		var status string
		if v := cell(statusIdx); v != nil {
			status = strings.ToUpper(*v)
		}
		job.Status = types.JobStatus(status)
		if !job.Status.IsValid() {
			stats.UnknownStatus++
		}

		if v := cell(shotsIdx); v != nil {
			shots, err := strconv.Atoi(*v)
			if err != nil || shots < 0 {
				stats.InvalidShots++
			} else {
				job.Shots = shots
			}
		}

		jobs = append(jobs, job)
		stats.Kept++
	}

	return jobs, stats, nil
}
