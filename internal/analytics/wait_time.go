package analytics

import (
	"sort"

	"github.com/job-insights/internal/types"
)

// WaitTimePercentile is the nearest-rank percentile reported as P90
const WaitTimePercentile = 0.9

// EstimateWaitTimesByBackend groups estimated queue times by backend and reports the
// mean, nearest-rank 90th percentile and sample size of each group.
// Backends without any duration record are absent from the result.
func EstimateWaitTimesByBackend(jobs []types.JobRecord) map[string]types.WaitTimeStats {
	return WaitTimesFromDurations(EstimateDurations(jobs))
}

// WaitTimesFromDurations aggregates already estimated durations
func WaitTimesFromDurations(durations []types.DurationRecord) map[string]types.WaitTimeStats {
	groups := GroupBy(durations, durationBackend)
	result := make(map[string]types.WaitTimeStats, groups.Len())

	for _, backend := range groups.Keys() {
		bucket := groups.Get(backend)
		if len(bucket) == 0 {
			continue
		}

		queue := make([]float64, len(bucket))
		for i, d := range bucket {
			queue[i] = d.QueueSec
		}
		sorted := sortedCopy(queue)

		result[backend] = types.WaitTimeStats{
			Mean:  mean(sorted),
			P90:   nearestRank(sorted, WaitTimePercentile),
			Count: len(sorted),
		}
	}

	return result
}

// WaitTimeOrder returns the backends of a wait-time mapping sorted by name
func WaitTimeOrder(stats map[string]types.WaitTimeStats) []string {
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
