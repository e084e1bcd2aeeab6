package service

import (
	"sort"
	"strings"
	"time"

	"github.com/job-insights/internal/analytics"
	apperrors "github.com/job-insights/internal/errors"
	"github.com/job-insights/internal/types"
)

const (
	DefaultJobLimit = 25
	MaxJobLimit     = 500
)

// Sortable job columns
const (
	SortJobID         = "job_id"
	SortBackend       = "backend"
	SortStatus        = "status"
	SortCreationTime  = "creation_time"
	SortEndTime       = "end_time"
	SortExecutionTime = "execution_time"
	SortShots         = "shots"
)

// JobQuery defines filter, sort and pagination parameters for job listings
type JobQuery struct {
	Backend     string            `json:"backend,omitempty"`
	BackendType string            `json:"backendType,omitempty"`
	Statuses    []types.JobStatus `json:"statuses,omitempty"`
	From        *time.Time        `json:"from,omitempty"` // inclusive, on creation time
	To          *time.Time        `json:"to,omitempty"`   // inclusive, on creation time
	Search      string            `json:"q,omitempty"`    // case-insensitive job id substring
	SortBy      string            `json:"sortBy,omitempty"`
	SortOrder   string            `json:"sortOrder,omitempty"` // asc, desc
	Limit       int               `json:"limit,omitempty"`     // Default: 25, Max: 500
	Offset      int               `json:"offset,omitempty"`
}

// JobPage is one page of matching jobs
type JobPage struct {
	Jobs       []types.JobRecord `json:"jobs"`
	Pagination PaginationInfo    `json:"pagination"`
}

// PaginationInfo contains pagination metadata
type PaginationInfo struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"hasMore"`
}

// QueryJobs filters, sorts and paginates the current snapshot
func (s *DashboardService) QueryJobs(query JobQuery) (*JobPage, error) {
	snapshot, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	return QueryJobs(snapshot.Jobs, query)
}

// QueryJobs filters, sorts and paginates jobs without modifying them
func QueryJobs(jobs []types.JobRecord, query JobQuery) (*JobPage, error) {
	if err := validateJobQuery(&query); err != nil {
		return nil, err
	}
	applyJobQueryDefaults(&query)

	matched := make([]types.JobRecord, 0)
	for i := range jobs {
		if matchesJobQuery(&jobs[i], &query) {
			matched = append(matched, jobs[i])
		}
	}

	sortJobs(matched, query.SortBy, query.SortOrder == "desc")

	total := len(matched)
	start := query.Offset
	if start > total {
		start = total
	}
	end := start + query.Limit
	if end > total {
		end = total
	}

	return &JobPage{
		Jobs: matched[start:end],
		Pagination: PaginationInfo{
			Total:   total,
			Limit:   query.Limit,
			Offset:  query.Offset,
			HasMore: end < total,
		},
	}, nil
}

func validateJobQuery(query *JobQuery) error {
	switch query.SortBy {
	case "", SortJobID, SortBackend, SortStatus, SortCreationTime, SortEndTime, SortExecutionTime, SortShots:
	default:
		return apperrors.NewInvalidParameterError("sortBy", "unknown column "+query.SortBy)
	}
	switch strings.ToLower(query.SortOrder) {
	case "", "asc", "desc":
	default:
		return apperrors.NewInvalidParameterError("sortOrder", "must be asc or desc")
	}
	if query.Limit < 0 {
		return apperrors.NewInvalidParameterError("limit", "must not be negative")
	}
	if query.Offset < 0 {
		return apperrors.NewInvalidParameterError("offset", "must not be negative")
	}
	if query.From != nil && query.To != nil && query.From.After(*query.To) {
		return apperrors.NewInvalidParameterError("from", "must not be after to")
	}
	for _, status := range query.Statuses {
		if !status.IsValid() {
			return apperrors.NewInvalidParameterError("status", "unknown status "+string(status))
		}
	}
	return nil
}

func applyJobQueryDefaults(query *JobQuery) {
	if query.SortBy == "" {
		query.SortBy = SortCreationTime
		if query.SortOrder == "" {
			query.SortOrder = "desc"
		}
	}
	query.SortOrder = strings.ToLower(query.SortOrder)
	if query.SortOrder == "" {
		query.SortOrder = "asc"
	}
	if query.Limit == 0 {
		query.Limit = DefaultJobLimit
	}
	if query.Limit > MaxJobLimit {
		query.Limit = MaxJobLimit
	}
	query.Search = strings.ToLower(strings.TrimSpace(query.Search))
}

func matchesJobQuery(job *types.JobRecord, query *JobQuery) bool {
	if query.Backend != "" && job.BackendName() != query.Backend {
		return false
	}
	if query.BackendType != "" && (job.BackendType == nil || *job.BackendType != query.BackendType) {
		return false
	}
	if len(query.Statuses) > 0 {
		found := false
		for _, status := range query.Statuses {
			if job.Status == status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if query.Search != "" && !strings.Contains(strings.ToLower(job.JobID), query.Search) {
		return false
	}
	if query.From != nil || query.To != nil {
		created, ok := analytics.ParseTimestamp(job.CreationTime)
		if !ok {
			return false
		}
		if query.From != nil && created.Before(*query.From) {
			return false
		}
		if query.To != nil && created.After(*query.To) {
			return false
		}
	}
	return true
}

// sortKey extracts a comparable value; ok is false when the job has none
type sortKey func(job *types.JobRecord) (value interface{}, ok bool)

var sortKeys = map[string]sortKey{
	SortJobID:   func(j *types.JobRecord) (interface{}, bool) { return j.JobID, true },
	SortBackend: func(j *types.JobRecord) (interface{}, bool) { return j.BackendName(), true },
	SortStatus:  func(j *types.JobRecord) (interface{}, bool) { return string(j.Status), j.Status != "" },
	SortShots:   func(j *types.JobRecord) (interface{}, bool) { return float64(j.Shots), true },
	SortCreationTime: func(j *types.JobRecord) (interface{}, bool) {
		t, ok := analytics.ParseTimestamp(j.CreationTime)
		return t, ok
	},
	SortEndTime: func(j *types.JobRecord) (interface{}, bool) {
		if j.EndTime == nil {
			return nil, false
		}
		t, ok := analytics.ParseTimestamp(*j.EndTime)
		return t, ok
	},
	SortExecutionTime: func(j *types.JobRecord) (interface{}, bool) {
		ms, ok := analytics.ParseMillis(j.ExecutionTime)
		return ms, ok
	},
}

func less(a, b interface{}) bool {
	switch av := a.(type) {
	case string:
		return av < b.(string)
	case float64:
		return av < b.(float64)
	case time.Time:
		return av.Before(b.(time.Time))
	}
	return false
}

// sortJobs orders jobs in place, stable, with missing values last in either direction
func sortJobs(jobs []types.JobRecord, column string, desc bool) {
	key := sortKeys[column]

	type keyed struct {
		job   types.JobRecord
		value interface{}
		ok    bool
	}
	items := make([]keyed, len(jobs))
	for i := range jobs {
		v, ok := key(&jobs[i])
		items[i] = keyed{job: jobs[i], value: v, ok: ok}
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.ok != b.ok {
			return a.ok
		}
		if !a.ok {
			return false
		}
		if desc {
			return less(b.value, a.value)
		}
		return less(a.value, b.value)
	})

	for i := range items {
		jobs[i] = items[i].job
	}
}
