package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/job-insights/internal/analytics"
	apperrors "github.com/job-insights/internal/errors"
	"github.com/job-insights/internal/storage"
	"github.com/job-insights/internal/types"
)

func TestDashboardService_NotLoaded(t *testing.T) {
	svc := NewDashboardService(&stubSource{name: "stub"}, nil, types.DefaultWeights())

	_, err := svc.Snapshot()
	require.Error(t, err)
	assert.Equal(t, "SNAPSHOT_NOT_LOADED", apperrors.Categorize(err).Code)

	_, err = svc.Report(context.Background(), types.DefaultWeights())
	assert.Error(t, err)
	_, err = svc.QueryJobs(JobQuery{})
	assert.Error(t, err)
	_, err = svc.Summary()
	assert.Error(t, err)
}

func TestDashboardService_Reload(t *testing.T) {
	src := &stubSource{name: "stub", jobs: fixtureJobs()}
	svc := NewDashboardService(src, nil, types.DefaultWeights())

	snapshot, err := svc.Reload(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, snapshot.ID)
	assert.Equal(t, "stub", snapshot.Source)
	assert.Len(t, snapshot.Jobs, 6)
	assert.Equal(t, 6, snapshot.Stats.TotalJobs)
	// "garbage" creation time is dropped
	assert.Len(t, snapshot.Durations(), 5)

	current, err := svc.Snapshot()
	require.NoError(t, err)
	assert.Same(t, snapshot, current)
}

func TestDashboardService_ReloadFailureKeepsPreviousSnapshot(t *testing.T) {
	src := &stubSource{name: "stub", jobs: fixtureJobs()}
	svc := NewDashboardService(src, nil, types.DefaultWeights())

	first, err := svc.Reload(context.Background())
	require.NoError(t, err)

	src.err = errors.New("source offline")
	_, err = svc.Reload(context.Background())
	require.Error(t, err)

	current, err := svc.Snapshot()
	require.NoError(t, err)
	assert.Same(t, first, current)
}

func TestDashboardService_ReloadWithoutSource(t *testing.T) {
	svc := NewDashboardService(nil, nil, types.DefaultWeights())

	_, err := svc.Reload(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsUserError(err))
	assert.Equal(t, "", svc.SourceName())
}

func TestDashboardService_ReplaceInvalidatesPreviousReports(t *testing.T) {
	reports := newMemoryReports()
	svc := NewDashboardService(nil, reports, types.DefaultWeights())

	first := svc.Replace(context.Background(), fixtureJobs(), "upload")
	second := svc.Replace(context.Background(), fixtureJobs()[:2], "upload")

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, []string{first.ID}, reports.invalidated)

	summary, err := svc.Summary()
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalJobs)
}

func TestDashboardService_ReportMatchesAnalytics(t *testing.T) {
	jobs := fixtureJobs()
	svc := NewDashboardService(nil, nil, types.DefaultWeights())
	snapshot := svc.Replace(context.Background(), jobs, "test")

	weights := types.Weights{Success: 1, Queue: 0, Exec: 0}
	report, err := svc.Report(context.Background(), weights)
	require.NoError(t, err)

	assert.Equal(t, snapshot.ID, report.SnapshotID)
	assert.Equal(t, weights, report.Weights)
	assert.Equal(t, analytics.EstimateDurations(jobs), report.Durations)
	assert.Equal(t, analytics.EstimateWaitTimesByBackend(jobs), report.WaitTimes)
	assert.Equal(t, analytics.RecommendBackends(jobs, weights), report.Recommendations)
	assert.Equal(t, analytics.DetectAnomalies(jobs), report.Anomalies)
	assert.False(t, report.GeneratedAt.IsZero())
}

func TestDashboardService_IndividualEndpointsMatchReport(t *testing.T) {
	svc := NewDashboardService(nil, nil, types.DefaultWeights())
	svc.Replace(context.Background(), fixtureJobs(), "test")

	report, err := svc.Report(context.Background(), svc.DefaultWeights())
	require.NoError(t, err)

	durations, err := svc.Durations()
	require.NoError(t, err)
	assert.Equal(t, report.Durations, durations)

	waits, err := svc.WaitTimes()
	require.NoError(t, err)
	assert.Equal(t, report.WaitTimes, waits)

	recs, err := svc.Recommendations(svc.DefaultWeights())
	require.NoError(t, err)
	assert.Equal(t, report.Recommendations, recs)

	anomalies, err := svc.Anomalies()
	require.NoError(t, err)
	assert.Equal(t, report.Anomalies, anomalies)
}

func TestDashboardService_ReportCache(t *testing.T) {
	reports := newMemoryReports()
	svc := NewDashboardService(nil, reports, types.DefaultWeights())
	svc.Replace(context.Background(), fixtureJobs(), "test")

	first, err := svc.Report(context.Background(), types.DefaultWeights())
	require.NoError(t, err)
	second, err := svc.Report(context.Background(), types.DefaultWeights())
	require.NoError(t, err)

	assert.Same(t, first, second, "second call is served from the cache")
	assert.Equal(t, 2, reports.gets)
	assert.Equal(t, 1, reports.sets)
}

func TestDashboardService_ReportCacheFailuresFallBackToCompute(t *testing.T) {
	reports := newMemoryReports()
	reports.failGet = true
	reports.failSet = true
	svc := NewDashboardService(nil, reports, types.DefaultWeights())
	svc.Replace(context.Background(), fixtureJobs(), "test")

	report, err := svc.Report(context.Background(), types.DefaultWeights())
	require.NoError(t, err)
	assert.NotEmpty(t, report.Recommendations)
}

func TestDashboardService_ReportCancelledContext(t *testing.T) {
	svc := NewDashboardService(nil, nil, types.DefaultWeights())
	svc.Replace(context.Background(), fixtureJobs(), "test")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Report(ctx, types.DefaultWeights())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDashboardService_WithRedisReportCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	cache := storage.NewReportCache(storage.NewRedisCacheFromClient(client), time.Minute)

	svc := NewDashboardService(nil, cache, types.DefaultWeights())
	snapshot := svc.Replace(context.Background(), fixtureJobs(), "test")

	computed, err := svc.Report(context.Background(), types.DefaultWeights())
	require.NoError(t, err)
	assert.True(t, mr.Exists(storage.ReportKey(snapshot.ID, types.DefaultWeights())))

	cached, err := svc.Report(context.Background(), types.DefaultWeights())
	require.NoError(t, err)
	assert.NotSame(t, computed, cached)
	assert.Equal(t, computed.Recommendations, cached.Recommendations)
	assert.Equal(t, computed.Anomalies, cached.Anomalies)

	// The unnamed backend has no duration data; its +Inf averages survive the round trip
	found := false
	for _, rec := range cached.Recommendations {
		if rec.Backend == types.UnknownBackend {
			found = true
			assert.True(t, math.IsInf(rec.AvgQueue, 1))
		}
	}
	assert.True(t, found)

	svc.Replace(context.Background(), fixtureJobs(), "test")
	assert.False(t, mr.Exists(storage.ReportKey(snapshot.ID, types.DefaultWeights())))
}

func TestDashboardService_ConcurrentReadsDuringReload(t *testing.T) {
	src := &stubSource{name: "stub", jobs: fixtureJobs()}
	svc := NewDashboardService(src, newMemoryReports(), types.DefaultWeights())
	_, err := svc.Reload(context.Background())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := svc.Reload(context.Background())
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := svc.Report(context.Background(), types.DefaultWeights())
			assert.NoError(t, err)
			_, err = svc.QueryJobs(JobQuery{Limit: 3})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 9, src.calls)
}

// blockingReports misses every lookup and holds writes until released
type blockingReports struct {
	*memoryReports
	release chan struct{}
}

func (b *blockingReports) Get(ctx context.Context, snapshotID string, weights types.Weights) (*types.Report, bool, error) {
	b.mu.Lock()
	b.gets++
	b.mu.Unlock()
	return nil, false, nil
}

func (b *blockingReports) Set(ctx context.Context, report *types.Report) error {
	<-b.release
	return b.memoryReports.Set(ctx, report)
}

func (b *blockingReports) getCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gets
}

func TestDashboardService_ConcurrentReportsShareComputation(t *testing.T) {
	src := &stubSource{name: "stub", jobs: fixtureJobs()}
	reports := &blockingReports{memoryReports: newMemoryReports(), release: make(chan struct{})}
	svc := NewDashboardService(src, reports, types.DefaultWeights())
	_, err := svc.Reload(context.Background())
	require.NoError(t, err)

	const callers = 6
	results := make(chan *types.Report, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			report, err := svc.Report(context.Background(), types.DefaultWeights())
			assert.NoError(t, err)
			results <- report
		}()
	}

	// All callers have missed the cache; the first computation is parked in Set
	require.Eventually(t, func() bool { return reports.getCount() == callers }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(reports.release)
	wg.Wait()
	close(results)

	var first *types.Report
	for report := range results {
		if first == nil {
			first = report
		}
		assert.Same(t, first, report)
	}
	assert.Equal(t, 1, reports.sets)
}

// replacingReports swaps the service's snapshot right before the first write lands
type replacingReports struct {
	*storage.MemoryReportCache
	beforeSet func()
}

func (r *replacingReports) Set(ctx context.Context, report *types.Report) error {
	if r.beforeSet != nil {
		hook := r.beforeSet
		r.beforeSet = nil
		hook()
	}
	return r.MemoryReportCache.Set(ctx, report)
}

func TestDashboardService_ReportForReplacedSnapshotIsNotCached(t *testing.T) {
	src := &stubSource{name: "stub", jobs: fixtureJobs()}
	cache := &replacingReports{MemoryReportCache: storage.NewMemoryReportCache(time.Minute)}
	svc := NewDashboardService(src, cache, types.DefaultWeights())
	old, err := svc.Reload(context.Background())
	require.NoError(t, err)

	var replaced *Snapshot
	cache.beforeSet = func() {
		replaced = svc.Replace(context.Background(), fixtureJobs()[:2], "upload")
	}

	report, err := svc.Report(context.Background(), types.DefaultWeights())
	require.NoError(t, err)
	assert.Equal(t, old.ID, report.SnapshotID)
	require.NotNil(t, replaced)

	_, ok, err := cache.Get(context.Background(), old.ID, types.DefaultWeights())
	require.NoError(t, err)
	assert.False(t, ok, "report for a replaced snapshot must not stay cached")
}
