package service

import (
	"sort"

	"github.com/job-insights/internal/analytics"
	"github.com/job-insights/internal/types"
)

// Summary holds headline statistics for a batch of jobs
type Summary struct {
	TotalJobs     int                     `json:"totalJobs"`
	StatusCounts  map[types.JobStatus]int `json:"statusCounts"`
	UnknownStatus int                     `json:"unknownStatus"`
	TotalShots    int64                   `json:"totalShots"`
	Backends      []string                `json:"backends"`
	BackendTypes  []string                `json:"backendTypes"`
	// SuccessRate is completed / (completed + failed), 0 when nothing has finished
	SuccessRate  float64        `json:"successRate"`
	Daily        []DailyCount   `json:"daily"`
	BackendUsage []BackendUsage `json:"backendUsage"`
}

// DailyCount counts jobs created on one UTC day
type DailyCount struct {
	Day          string                  `json:"day"` // YYYY-MM-DD
	Total        int                     `json:"total"`
	StatusCounts map[types.JobStatus]int `json:"statusCounts"`
}

// BackendUsage aggregates jobs and shots sent to one backend
type BackendUsage struct {
	Backend   string `json:"backend"`
	Jobs      int    `json:"jobs"`
	Shots     int64  `json:"shots"`
	Completed int    `json:"completed"`
	Failed    int    `json:"failed"`
}

func newStatusCounts() map[types.JobStatus]int {
	counts := make(map[types.JobStatus]int, len(types.AllStatuses))
	for _, status := range types.AllStatuses {
		counts[status] = 0
	}
	return counts
}

// Summarize computes a Summary. Jobs whose creation time cannot be parsed are
// counted everywhere except the daily series.
func Summarize(jobs []types.JobRecord) *Summary {
	summary := &Summary{
		TotalJobs:    len(jobs),
		StatusCounts: newStatusCounts(),
		Backends:     []string{},
		BackendTypes: []string{},
		Daily:        []DailyCount{},
		BackendUsage: []BackendUsage{},
	}

	backendTypes := make(map[string]bool)
	usage := analytics.GroupBy(jobs, func(j types.JobRecord) string { return j.BackendName() })
	daily := make(map[string]*DailyCount)

	for i := range jobs {
		job := &jobs[i]

		if job.Status.IsValid() {
			summary.StatusCounts[job.Status]++
		} else {
			summary.UnknownStatus++
		}
		summary.TotalShots += int64(job.Shots)

		if job.BackendType != nil && *job.BackendType != "" {
			backendTypes[*job.BackendType] = true
		}

		if created, ok := analytics.ParseTimestamp(job.CreationTime); ok {
			day := created.UTC().Format("2006-01-02")
			dc, exists := daily[day]
			if !exists {
				dc = &DailyCount{Day: day, StatusCounts: newStatusCounts()}
				daily[day] = dc
			}
			dc.Total++
			if job.Status.IsValid() {
				dc.StatusCounts[job.Status]++
			}
		}
	}

	finished := summary.StatusCounts[types.StatusCompleted] + summary.StatusCounts[types.StatusFailed]
	if finished > 0 {
		summary.SuccessRate = float64(summary.StatusCounts[types.StatusCompleted]) / float64(finished)
	}

	for _, backend := range usage.Keys() {
		u := BackendUsage{Backend: backend}
		for _, job := range usage.Get(backend) {
			u.Jobs++
			u.Shots += int64(job.Shots)
			switch job.Status {
			case types.StatusCompleted:
				u.Completed++
			case types.StatusFailed:
				u.Failed++
			}
		}
		summary.Backends = append(summary.Backends, backend)
		summary.BackendUsage = append(summary.BackendUsage, u)
	}
	sort.Strings(summary.Backends)
	sort.SliceStable(summary.BackendUsage, func(i, j int) bool {
		if summary.BackendUsage[i].Jobs != summary.BackendUsage[j].Jobs {
			return summary.BackendUsage[i].Jobs > summary.BackendUsage[j].Jobs
		}
		return summary.BackendUsage[i].Backend < summary.BackendUsage[j].Backend
	})

	for t := range backendTypes {
		summary.BackendTypes = append(summary.BackendTypes, t)
	}
	sort.Strings(summary.BackendTypes)

	for _, dc := range daily {
		summary.Daily = append(summary.Daily, *dc)
	}
	sort.Slice(summary.Daily, func(i, j int) bool { return summary.Daily[i].Day < summary.Daily[j].Day })

	return summary
}
