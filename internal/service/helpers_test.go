package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/job-insights/internal/types"
)

var testBase = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

// finishedJob is created at testBase+offset and spends queueSec waiting and execSec running
func finishedJob(id, backend string, status types.JobStatus, offset time.Duration, queueSec, execSec, shots int) types.JobRecord {
	created := testBase.Add(offset)
	end := created.Add(time.Duration(queueSec+execSec) * time.Second)
	return types.JobRecord{
		JobID:         id,
		Backend:       backend,
		BackendType:   types.StringPtr("Eagle r3"),
		Status:        status,
		CreationTime:  created.Format(time.RFC3339),
		EndTime:       types.StringPtr(end.Format(time.RFC3339)),
		ExecutionTime: types.StringPtr(strconv.Itoa(execSec * 1000)),
		Shots:         shots,
	}
}

func fixtureJobs() []types.JobRecord {
	return []types.JobRecord{
		finishedJob("job-a1", "ibm_kyoto", types.StatusCompleted, 0, 60, 5, 1000),
		finishedJob("job-a2", "ibm_kyoto", types.StatusFailed, time.Hour, 120, 2, 500),
		finishedJob("job-b1", "ibm_osaka", types.StatusCompleted, 24*time.Hour, 10, 8, 4000),
		{JobID: "job-b2", Backend: "ibm_osaka", BackendType: types.StringPtr("Heron r1"), Status: types.StatusQueued, CreationTime: testBase.Add(26 * time.Hour).Format(time.RFC3339), Shots: 100},
		{JobID: "job-c1", Status: types.StatusRunning, CreationTime: "garbage", Shots: 10},
		{JobID: "job-c2", Backend: "ibm_torino", Status: "CANCELLED", CreationTime: testBase.Add(48 * time.Hour).Format(time.RFC3339)},
	}
}

type stubSource struct {
	mu    sync.Mutex
	name  string
	jobs  []types.JobRecord
	err   error
	calls int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Load(ctx context.Context) ([]types.JobRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.jobs, nil
}

// memoryReports is an in-memory ReportStore that can be told to fail
type memoryReports struct {
	mu          sync.Mutex
	entries     map[string]*types.Report
	failGet     bool
	failSet     bool
	gets        int
	sets        int
	invalidated []string
}

func newMemoryReports() *memoryReports {
	return &memoryReports{entries: make(map[string]*types.Report)}
}

func memoryKey(snapshotID string, w types.Weights) string {
	return fmt.Sprintf("%s|%v|%v|%v", snapshotID, w.Success, w.Queue, w.Exec)
}

func (m *memoryReports) Get(ctx context.Context, snapshotID string, weights types.Weights) (*types.Report, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.failGet {
		return nil, false, errors.New("redis down")
	}
	r, ok := m.entries[memoryKey(snapshotID, weights)]
	return r, ok, nil
}

func (m *memoryReports) Set(ctx context.Context, report *types.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	if m.failSet {
		return errors.New("redis down")
	}
	m.entries[memoryKey(report.SnapshotID, report.Weights)] = report
	return nil
}

func (m *memoryReports) Invalidate(ctx context.Context, snapshotID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidated = append(m.invalidated, snapshotID)
	return nil
}
