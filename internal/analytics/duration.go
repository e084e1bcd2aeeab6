package analytics

import (
	"math"

	"github.com/job-insights/internal/types"
)

// EstimateDurations derives queue and execution seconds for every job that has a
// parseable creation time. Jobs without one are dropped.
//
// Execution time prefers the exported millisecond figure and falls back to the
// submission-to-end interval; queue time is whatever part of the turnaround is not
// execution. Both are clamped at zero.
func EstimateDurations(jobs []types.JobRecord) []types.DurationRecord {
	out := make([]types.DurationRecord, 0, len(jobs))

	for i := range jobs {
		job := &jobs[i]
		if job.CreationTime == "" {
			continue
		}
		start, ok := ParseTimestamp(job.CreationTime)
		if !ok {
			continue
		}

		end, hasEnd := parseOptionalTimestamp(job.EndTime)
		execMs, hasExec := ParseMillis(job.ExecutionTime)

		var elapsedSec float64
		if hasEnd {
			elapsedSec = math.Max(0, float64(end.Sub(start).Milliseconds())/1000)
		}

		var execSec float64
		switch {
		case hasExec && !math.IsInf(execMs, 0):
			execSec = execMs / 1000
		case hasEnd:
			execSec = elapsedSec
		}

		turnaroundSec := execSec
		if hasEnd {
			turnaroundSec = elapsedSec
		}

		out = append(out, types.DurationRecord{
			JobID:       job.JobID,
			Backend:     job.BackendName(),
			BackendType: job.BackendType,
			Status:      job.Status,
			QueueSec:    math.Max(0, turnaroundSec-execSec),
			ExecSec:     execSec,
		})
	}

	return out
}

func durationBackend(d types.DurationRecord) string {
	if d.Backend == "" {
		return types.UnknownBackend
	}
	return d.Backend
}

func jobBackend(j types.JobRecord) string {
	return j.BackendName()
}
