package storage

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/job-insights/internal/metrics"
	"github.com/job-insights/internal/types"
)

// MemoryReportCache keeps reports in process memory. It is used when Redis
// is disabled and shares ReportKey with ReportCache.
type MemoryReportCache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]memoryEntry

	hits   atomic.Int64
	misses atomic.Int64
}

type memoryEntry struct {
	report    *types.Report
	expiresAt time.Time
}

// CacheStats reports hit and miss counts
type CacheStats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Entries int   `json:"entries"`
}

// NewMemoryReportCache creates an in-memory report cache. A ttl <= 0 keeps entries until invalidated.
func NewMemoryReportCache(ttl time.Duration) *MemoryReportCache {
	return &MemoryReportCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

// Get returns the cached report. A miss is (nil, false, nil).
func (c *MemoryReportCache) Get(ctx context.Context, snapshotID string, weights types.Weights) (*types.Report, bool, error) {
	key := ReportKey(snapshotID, weights)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || c.expired(entry) {
		c.misses.Add(1)
		metrics.ReportCacheTotal.WithLabelValues("miss").Inc()
		return nil, false, nil
	}

	c.hits.Add(1)
	metrics.ReportCacheTotal.WithLabelValues("hit").Inc()
	return entry.report, true, nil
}

// Set stores a report and drops expired entries
func (c *MemoryReportCache) Set(ctx context.Context, report *types.Report) error {
	entry := memoryEntry{report: report}
	if c.ttl > 0 {
		entry.expiresAt = c.now().Add(c.ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if c.expired(e) {
			delete(c.entries, key)
		}
	}
	c.entries[ReportKey(report.SnapshotID, report.Weights)] = entry
	return nil
}

// Invalidate drops every cached report for a snapshot
func (c *MemoryReportCache) Invalidate(ctx context.Context, snapshotID string) error {
	prefix := "report:" + snapshotID + ":"

	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	return nil
}

// Stats returns the hit and miss counters
func (c *MemoryReportCache) Stats() CacheStats {
	c.mu.RLock()
	n := len(c.entries)
	c.mu.RUnlock()
	return CacheStats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: n,
	}
}

func (c *MemoryReportCache) expired(e memoryEntry) bool {
	return !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt)
}
