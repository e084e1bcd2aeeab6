package analytics

import (
	"strconv"
	"time"

	"github.com/job-insights/internal/types"
)

var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// timedJob builds a job whose estimated queue and execution seconds are exactly
// queueSec and execSec.
func timedJob(id, backend string, status types.JobStatus, queueSec, execSec int) types.JobRecord {
	created := baseTime
	ended := created.Add(time.Duration(queueSec+execSec) * time.Second)
	execMs := strconv.Itoa(execSec * 1000)

	return types.JobRecord{
		JobID:         id,
		Backend:       backend,
		Status:        status,
		CreationTime:  created.Format(time.RFC3339),
		EndTime:       types.StringPtr(ended.Format(time.RFC3339)),
		ExecutionTime: &execMs,
		Shots:         1024,
	}
}

// untimedJob builds a job that the duration estimator drops
func untimedJob(id, backend string, status types.JobStatus) types.JobRecord {
	return types.JobRecord{
		JobID:   id,
		Backend: backend,
		Status:  status,
	}
}

func jobID(prefix string, i int) string {
	return prefix + "-" + strconv.Itoa(i)
}
