package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/job-insights/internal/analytics"
	apperrors "github.com/job-insights/internal/errors"
	"github.com/job-insights/internal/ingest"
	"github.com/job-insights/internal/logging"
	"github.com/job-insights/internal/metrics"
	"github.com/job-insights/internal/types"
)

// ReportStore memoizes reports. storage.ReportCache and storage.MemoryReportCache implement it.
type ReportStore interface {
	Get(ctx context.Context, snapshotID string, weights types.Weights) (*types.Report, bool, error)
	Set(ctx context.Context, report *types.Report) error
	Invalidate(ctx context.Context, snapshotID string) error
}

// Snapshot is an immutable batch of job records and the data derived from it on load
type Snapshot struct {
	ID        string            `json:"id"`
	LoadedAt  time.Time         `json:"loadedAt"`
	Source    string            `json:"source"`
	Jobs      []types.JobRecord `json:"-"`
	Stats     *Summary          `json:"stats"`
	durations []types.DurationRecord
}

// Durations returns the duration estimates computed when the snapshot was loaded
func (s *Snapshot) Durations() []types.DurationRecord {
	return s.durations
}

// DashboardService owns the current job snapshot and computes analytics over it
type DashboardService struct {
	source  ingest.Source
	reports ReportStore
	weights types.Weights

	mu       sync.RWMutex
	snapshot *Snapshot
	reloadMu sync.Mutex

	// Concurrent requests for the same report share one computation
	inflight singleflight.Group
}

// NewDashboardService creates a dashboard service. reports may be nil to disable caching.
func NewDashboardService(source ingest.Source, reports ReportStore, weights types.Weights) *DashboardService {
	return &DashboardService{
		source:  source,
		reports: reports,
		weights: weights,
	}
}

// DefaultWeights returns the weights used when a caller supplies none
func (s *DashboardService) DefaultWeights() types.Weights {
	return s.weights
}

// SourceName returns the configured source name, or empty when there is none
func (s *DashboardService) SourceName() string {
	if s.source == nil {
		return ""
	}
	return s.source.Name()
}

// Reload reads the configured source and installs the result.
// On failure the previous snapshot stays in place.
func (s *DashboardService) Reload(ctx context.Context) (*Snapshot, error) {
	if s.source == nil {
		return nil, apperrors.NewInvalidParameterError("source", "no job source configured")
	}

	// Serialize reloads so a slow source is not read twice at once
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	name := s.source.Name()
	logger := logging.FromContext(ctx).WithField("source", name)

	start := time.Now()
	jobs, err := s.source.Load(ctx)
	metrics.RecordSnapshotLoad(name, len(jobs), err)
	if err != nil {
		logger.WithError(err).Error("Failed to load job snapshot")
		return nil, err
	}

	snapshot := s.install(ctx, jobs, name)
	logger.WithFields(map[string]interface{}{
		"snapshotId": snapshot.ID,
		"jobs":       len(jobs),
		"durations":  len(snapshot.durations),
		"elapsed":    time.Since(start).String(),
	}).Info("Job snapshot loaded")
	return snapshot, nil
}

// Replace installs jobs supplied directly, such as an uploaded export
func (s *DashboardService) Replace(ctx context.Context, jobs []types.JobRecord, source string) *Snapshot {
	metrics.RecordSnapshotLoad(source, len(jobs), nil)
	snapshot := s.install(ctx, jobs, source)
	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"snapshotId": snapshot.ID,
		"source":     source,
		"jobs":       len(jobs),
	}).Info("Job snapshot replaced")
	return snapshot
}

func (s *DashboardService) install(ctx context.Context, jobs []types.JobRecord, source string) *Snapshot {
	start := time.Now()
	durations := analytics.EstimateDurations(jobs)
	metrics.ObserveStage("durations", start)

	snapshot := &Snapshot{
		ID:        uuid.NewString(),
		LoadedAt:  time.Now().UTC(),
		Source:    source,
		Jobs:      jobs,
		Stats:     Summarize(jobs),
		durations: durations,
	}

	s.mu.Lock()
	previous := s.snapshot
	s.snapshot = snapshot
	s.mu.Unlock()

	if previous != nil && s.reports != nil {
		if err := s.reports.Invalidate(ctx, previous.ID); err != nil {
			logging.FromContext(ctx).WithError(err).Warn("Failed to invalidate cached reports")
		}
	}
	return snapshot
}

func (s *DashboardService) isCurrent(snapshot *Snapshot) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot == snapshot
}

// Snapshot returns the current snapshot
func (s *DashboardService) Snapshot() (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.snapshot == nil {
		return nil, apperrors.NewSnapshotNotLoadedError()
	}
	return s.snapshot, nil
}

// Summary returns headline statistics for the current snapshot
func (s *DashboardService) Summary() (*Summary, error) {
	snapshot, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	return snapshot.Stats, nil
}

// Durations returns per-job queue and execution estimates
func (s *DashboardService) Durations() ([]types.DurationRecord, error) {
	snapshot, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	return snapshot.durations, nil
}

// WaitTimes returns queue-time statistics per backend
func (s *DashboardService) WaitTimes() (map[string]types.WaitTimeStats, error) {
	snapshot, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	start := time.Now()
	defer metrics.ObserveStage("wait_times", start)
	return analytics.WaitTimesFromDurations(snapshot.durations), nil
}

// Recommendations ranks backends using weights
func (s *DashboardService) Recommendations(weights types.Weights) ([]types.BackendScore, error) {
	snapshot, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	start := time.Now()
	defer metrics.ObserveStage("recommendations", start)
	return analytics.RecommendFromDurations(snapshot.Jobs, snapshot.durations, weights), nil
}

// Anomalies flags stuck jobs and failure clusters
func (s *DashboardService) Anomalies() ([]types.Anomaly, error) {
	snapshot, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	start := time.Now()
	defer metrics.ObserveStage("anomalies", start)
	anomalies := analytics.AnomaliesFromDurations(snapshot.Jobs, snapshot.durations)
	recordAnomalies(anomalies)
	return anomalies, nil
}

// Report computes every analytic for the current snapshot, consulting the
// report cache first. Cache failures are logged and never fail the request.
func (s *DashboardService) Report(ctx context.Context, weights types.Weights) (*types.Report, error) {
	snapshot, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	logger := logging.FromContext(ctx).WithField("snapshotId", snapshot.ID)

	if s.reports != nil {
		cached, ok, err := s.reports.Get(ctx, snapshot.ID, weights)
		if err != nil {
			logger.WithError(err).Warn("Report cache lookup failed")
		} else if ok {
			return cached, nil
		}
	}

	key := fmt.Sprintf("%s:%g,%g,%g", snapshot.ID, weights.Success, weights.Queue, weights.Exec)
	v, err, shared := s.inflight.Do(key, func() (interface{}, error) {
		return s.computeReport(ctx, snapshot, weights)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logger.Debug("Report computation shared with a concurrent request")
	}
	return v.(*types.Report), nil
}

func (s *DashboardService) computeReport(ctx context.Context, snapshot *Snapshot, weights types.Weights) (*types.Report, error) {
	logger := logging.FromContext(ctx).WithField("snapshotId", snapshot.ID)
	start := time.Now()
	report := &types.Report{
		SnapshotID: snapshot.ID,
		Weights:    weights,
		Durations:  snapshot.durations,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stageStart := time.Now()
		report.WaitTimes = analytics.WaitTimesFromDurations(snapshot.durations)
		metrics.ObserveStage("wait_times", stageStart)
		return gctx.Err()
	})
	g.Go(func() error {
		stageStart := time.Now()
		report.Recommendations = analytics.RecommendFromDurations(snapshot.Jobs, snapshot.durations, weights)
		metrics.ObserveStage("recommendations", stageStart)
		return gctx.Err()
	})
	g.Go(func() error {
		stageStart := time.Now()
		report.Anomalies = analytics.AnomaliesFromDurations(snapshot.Jobs, snapshot.durations)
		metrics.ObserveStage("anomalies", stageStart)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report.GeneratedAt = time.Now().UTC()
	metrics.ObserveStage("total", start)
	recordAnomalies(report.Anomalies)

	if s.reports != nil {
		if err := s.reports.Set(ctx, report); err != nil {
			logger.WithError(err).Warn("Failed to cache report")
		} else if !s.isCurrent(snapshot) {
			// The snapshot was replaced mid-compute and its invalidation may have run before this Set
			if err := s.reports.Invalidate(ctx, snapshot.ID); err != nil {
				logger.WithError(err).Warn("Failed to invalidate cached reports")
			}
		}
	}

	logger.WithFields(map[string]interface{}{
		"backends":  len(report.Recommendations),
		"anomalies": len(report.Anomalies),
		"elapsed":   time.Since(start).String(),
	}).Debug("Report computed")
	return report, nil
}

func recordAnomalies(anomalies []types.Anomaly) {
	counts := map[types.AnomalyType]int{
		types.AnomalyStuck:          0,
		types.AnomalyFailureCluster: 0,
	}
	for _, a := range anomalies {
		counts[a.Type]++
	}
	for kind, n := range counts {
		metrics.AnomaliesDetected.WithLabelValues(string(kind)).Set(float64(n))
	}
}
