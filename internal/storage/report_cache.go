package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	apperrors "github.com/job-insights/internal/errors"
	"github.com/job-insights/internal/metrics"
	"github.com/job-insights/internal/types"
)

// ReportCache memoizes computed reports per snapshot and weighting
type ReportCache struct {
	redis *RedisCache
	ttl   time.Duration
}

// NewReportCache creates a report cache whose entries expire after ttl
func NewReportCache(redis *RedisCache, ttl time.Duration) *ReportCache {
	return &ReportCache{
		redis: redis,
		ttl:   ttl,
	}
}

// ReportKey builds the cache key for a snapshot and weighting.
// Format: report:<snapshot>:<success>,<queue>,<exec>
func ReportKey(snapshotID string, weights types.Weights) string {
	format := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	return fmt.Sprintf("report:%s:%s,%s,%s", snapshotID, format(weights.Success), format(weights.Queue), format(weights.Exec))
}

// Get returns the cached report. A miss is (nil, false, nil).
func (c *ReportCache) Get(ctx context.Context, snapshotID string, weights types.Weights) (*types.Report, bool, error) {
	data, err := c.redis.Get(ctx, ReportKey(snapshotID, weights))
	if errors.Is(err, ErrCacheMiss) {
		metrics.ReportCacheTotal.WithLabelValues("miss").Inc()
		return nil, false, nil
	}
	if err != nil {
		metrics.ReportCacheTotal.WithLabelValues("error").Inc()
		return nil, false, apperrors.NewCacheError("get", err)
	}

	var report types.Report
	if err := json.Unmarshal(data, &report); err != nil {
		metrics.ReportCacheTotal.WithLabelValues("error").Inc()
		return nil, false, apperrors.NewCacheError("decode", err)
	}

	metrics.ReportCacheTotal.WithLabelValues("hit").Inc()
	return &report, true, nil
}

// Set stores a report under its snapshot and weights
func (c *ReportCache) Set(ctx context.Context, report *types.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return apperrors.NewCacheError("encode", err)
	}
	if err := c.redis.Set(ctx, ReportKey(report.SnapshotID, report.Weights), data, c.ttl); err != nil {
		return apperrors.NewCacheError("set", err)
	}
	return nil
}

// Invalidate drops every cached report for a snapshot
func (c *ReportCache) Invalidate(ctx context.Context, snapshotID string) error {
	if _, err := c.redis.DeletePattern(ctx, "report:"+snapshotID+":*"); err != nil {
		return apperrors.NewCacheError("invalidate", err)
	}
	return nil
}
