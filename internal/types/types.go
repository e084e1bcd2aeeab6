// Package types provides common type definitions for the job insights system.
package types

import (
	"encoding/json"
	"math"
	"time"
)

// UnknownBackend is the backend name used when a job record carries none
const UnknownBackend = "Unknown"

// JobStatus represents the lifecycle state reported for a job
type JobStatus string

const (
	// StatusRunning represents a job currently executing on its backend
	StatusRunning JobStatus = "RUNNING"
	// StatusQueued represents a job waiting for a backend slot
	StatusQueued JobStatus = "QUEUED"
	// StatusCompleted represents a job that finished successfully
	StatusCompleted JobStatus = "COMPLETED"
	// StatusFailed represents a job that finished with an error
	StatusFailed JobStatus = "FAILED"
)

// AllStatuses lists every status in display order
var AllStatuses = []JobStatus{
	StatusRunning,
	StatusQueued,
	StatusCompleted,
	StatusFailed,
}

// IsValid reports whether s is one of the enumerated statuses
func (s JobStatus) IsValid() bool {
	switch s {
	case StatusRunning, StatusQueued, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

func (s JobStatus) String() string {
	return string(s)
}

// JobRecord represents a single normalized job row from a CSV export.
// Status and timestamps are not guaranteed to be mutually consistent.
type JobRecord struct {
	JobID         string    `json:"job_id"`
	Backend       string    `json:"backend"`
	BackendType   *string   `json:"backend_type"`
	Status        JobStatus `json:"status"`
	CreationTime  string    `json:"creation_time"`
	EndTime       *string   `json:"end_time"`
	ExecutionTime *string   `json:"execution_time"` // Milliseconds, as exported
	Shots         int       `json:"shots"`
}

// BackendName returns the backend, defaulting to UnknownBackend when empty
func (j *JobRecord) BackendName() string {
	if j.Backend == "" {
		return UnknownBackend
	}
	return j.Backend
}

// DurationRecord holds the queue and execution estimates derived for one job
type DurationRecord struct {
	JobID       string    `json:"job_id"`
	Backend     string    `json:"backend"`
	BackendType *string   `json:"backend_type"`
	Status      JobStatus `json:"status"`
	QueueSec    float64   `json:"queueSec"`
	ExecSec     float64   `json:"execSec"`
}

// WaitTimeStats summarizes queue time for a single backend
type WaitTimeStats struct {
	Mean  float64 `json:"mean"`
	P90   float64 `json:"p90"`
	Count int     `json:"count"`
}

// Weights controls how the recommender blends its normalized metrics
type Weights struct {
	Success float64 `json:"success" yaml:"success"`
	Queue   float64 `json:"queue" yaml:"queue"`
	Exec    float64 `json:"exec" yaml:"exec"`
}

// DefaultWeights returns the standard recommender weighting
func DefaultWeights() Weights {
	return Weights{Success: 0.5, Queue: 0.3, Exec: 0.2}
}

// Sum returns the total of all weight components
func (w Weights) Sum() float64 {
	return w.Success + w.Queue + w.Exec
}

// BackendScore is one ranked entry produced by the recommender.
// AvgQueue and AvgExec are +Inf for backends without duration data.
type BackendScore struct {
	Backend  string   `json:"backend"`
	Success  float64  `json:"success"`
	AvgQueue float64  `json:"avgQueue"`
	AvgExec  float64  `json:"avgExec"`
	Count    int      `json:"count"`
	Score    float64  `json:"score"`
	Reasons  []string `json:"reasons"`
}

// MarshalJSON encodes infinite averages as null since JSON has no Infinity
func (b BackendScore) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Backend  string   `json:"backend"`
		Success  float64  `json:"success"`
		AvgQueue *float64 `json:"avgQueue"`
		AvgExec  *float64 `json:"avgExec"`
		Count    int      `json:"count"`
		Score    float64  `json:"score"`
		Reasons  []string `json:"reasons"`
	}{
		Backend:  b.Backend,
		Success:  b.Success,
		AvgQueue: finiteOrNil(b.AvgQueue),
		AvgExec:  finiteOrNil(b.AvgExec),
		Count:    b.Count,
		Score:    b.Score,
		Reasons:  b.Reasons,
	})
}

// UnmarshalJSON restores null averages as +Inf
func (b *BackendScore) UnmarshalJSON(data []byte) error {
	var raw struct {
		Backend  string   `json:"backend"`
		Success  float64  `json:"success"`
		AvgQueue *float64 `json:"avgQueue"`
		AvgExec  *float64 `json:"avgExec"`
		Count    int      `json:"count"`
		Score    float64  `json:"score"`
		Reasons  []string `json:"reasons"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	b.Backend = raw.Backend
	b.Success = raw.Success
	b.AvgQueue = nilOrInf(raw.AvgQueue)
	b.AvgExec = nilOrInf(raw.AvgExec)
	b.Count = raw.Count
	b.Score = raw.Score
	b.Reasons = raw.Reasons
	return nil
}

func finiteOrNil(v float64) *float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}

func nilOrInf(v *float64) float64 {
	if v == nil {
		return math.Inf(1)
	}
	return *v
}

// AnomalyType classifies an anomaly
type AnomalyType string

const (
	// AnomalyStuck marks a job whose queue time is an outlier for its backend
	AnomalyStuck AnomalyType = "stuck"
	// AnomalyFailureCluster marks a backend with a burst of recent failures
	AnomalyFailureCluster AnomalyType = "failure_cluster"
)

// Anomaly is a human-readable flag attached to a job
type Anomaly struct {
	JobID   string      `json:"job_id"`
	Type    AnomalyType `json:"type"`
	Details string      `json:"details"`
}

// Report bundles every analytics result computed for one snapshot and weighting
type Report struct {
	SnapshotID      string                   `json:"snapshotId"`
	GeneratedAt     time.Time                `json:"generatedAt"`
	Weights         Weights                  `json:"weights"`
	Durations       []DurationRecord         `json:"durations"`
	WaitTimes       map[string]WaitTimeStats `json:"waitTimes"`
	Recommendations []BackendScore           `json:"recommendations"`
	Anomalies       []Anomaly                `json:"anomalies"`
}

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}

// StringPtr returns a pointer to s
func StringPtr(s string) *string {
	return &s
}
