package analytics

import (
	"testing"

	"github.com/job-insights/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateDurations(t *testing.T) {
	tests := []struct {
		name      string
		job       types.JobRecord
		wantQueue float64
		wantExec  float64
	}{
		{
			name: "execution time from milliseconds",
			job: types.JobRecord{
				JobID:         "j1",
				CreationTime:  "2025-03-01T12:00:00Z",
				EndTime:       types.StringPtr("2025-03-01T12:01:00Z"),
				ExecutionTime: types.StringPtr("15000"),
			},
			wantQueue: 45,
			wantExec:  15,
		},
		{
			name: "execution falls back to end time",
			job: types.JobRecord{
				JobID:        "j2",
				CreationTime: "2025-03-01T12:00:00Z",
				EndTime:      types.StringPtr("2025-03-01T12:00:30Z"),
			},
			wantQueue: 0,
			wantExec:  30,
		},
		{
			name: "unparseable execution time falls back to end time",
			job: types.JobRecord{
				JobID:         "j3",
				CreationTime:  "2025-03-01T12:00:00Z",
				EndTime:       types.StringPtr("2025-03-01T12:00:30Z"),
				ExecutionTime: types.StringPtr("n/a"),
			},
			wantQueue: 0,
			wantExec:  30,
		},
		{
			name: "no end and no execution time",
			job: types.JobRecord{
				JobID:        "j4",
				Status:       types.StatusQueued,
				CreationTime: "2025-03-01T12:00:00Z",
			},
			wantQueue: 0,
			wantExec:  0,
		},
		{
			name: "execution time without end time",
			job: types.JobRecord{
				JobID:         "j5",
				CreationTime:  "2025-03-01T12:00:00Z",
				ExecutionTime: types.StringPtr("2500"),
			},
			wantQueue: 0,
			wantExec:  2.5,
		},
		{
			name: "end before creation is clamped",
			job: types.JobRecord{
				JobID:        "j6",
				CreationTime: "2025-03-01T12:00:00Z",
				EndTime:      types.StringPtr("2025-03-01T11:00:00Z"),
			},
			wantQueue: 0,
			wantExec:  0,
		},
		{
			name: "execution longer than turnaround",
			job: types.JobRecord{
				JobID:         "j7",
				CreationTime:  "2025-03-01T12:00:00Z",
				EndTime:       types.StringPtr("2025-03-01T12:00:10Z"),
				ExecutionTime: types.StringPtr("60000"),
			},
			wantQueue: 0,
			wantExec:  60,
		},
		{
			name: "malformed end time treated as absent",
			job: types.JobRecord{
				JobID:         "j8",
				CreationTime:  "2025-03-01T12:00:00Z",
				EndTime:       types.StringPtr("not-a-date"),
				ExecutionTime: types.StringPtr("4000"),
			},
			wantQueue: 0,
			wantExec:  4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateDurations([]types.JobRecord{tt.job})
			require.Len(t, got, 1)
			assert.Equal(t, tt.job.JobID, got[0].JobID)
			assert.InDelta(t, tt.wantQueue, got[0].QueueSec, 1e-9)
			assert.InDelta(t, tt.wantExec, got[0].ExecSec, 1e-9)
		})
	}
}

func TestEstimateDurations_DropsRecordsWithoutCreationTime(t *testing.T) {
	jobs := []types.JobRecord{
		{JobID: "empty", CreationTime: ""},
		{JobID: "garbage", CreationTime: "someday"},
		timedJob("ok", "ibm_kyoto", types.StatusCompleted, 5, 1),
	}

	got := EstimateDurations(jobs)

	require.Len(t, got, 1)
	assert.Equal(t, "ok", got[0].JobID)
}

func TestEstimateDurations_CopiesFieldsAndDefaultsBackend(t *testing.T) {
	job := timedJob("j1", "", types.StatusFailed, 3, 2)
	job.BackendType = types.StringPtr("hardware")

	got := EstimateDurations([]types.JobRecord{job})

	require.Len(t, got, 1)
	assert.Equal(t, types.UnknownBackend, got[0].Backend)
	assert.Equal(t, types.StatusFailed, got[0].Status)
	require.NotNil(t, got[0].BackendType)
	assert.Equal(t, "hardware", *got[0].BackendType)
}

func TestEstimateDurations_DoesNotMutateInput(t *testing.T) {
	jobs := []types.JobRecord{
		timedJob("j1", "", types.StatusCompleted, 3, 2),
		untimedJob("j2", "ibm_osaka", types.StatusQueued),
	}
	before := make([]types.JobRecord, len(jobs))
	copy(before, jobs)

	_ = EstimateDurations(jobs)

	assert.Equal(t, before, jobs)
	assert.Equal(t, "", jobs[0].Backend)
}

func TestEstimateDurations_EmptyInput(t *testing.T) {
	assert.Empty(t, EstimateDurations(nil))
}
