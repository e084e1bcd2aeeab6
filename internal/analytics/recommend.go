package analytics

import (
	"fmt"
	"math"
	"sort"

	"github.com/job-insights/internal/types"
)

// RecommendBackendsDefault ranks backends with types.DefaultWeights
func RecommendBackendsDefault(jobs []types.JobRecord) []types.BackendScore {
	return RecommendBackends(jobs, types.DefaultWeights())
}

// RecommendBackends scores every backend present in jobs and returns them best first.
//
// Success rate, average queue time and average execution time are each normalized onto
// [0,1] across backends (lower times are better) and blended with weights. The weights are
// used as given; callers wanting a score bounded by [0,1] must pass weights summing to 1.
// Ties keep the order in which backends first appear in jobs.
func RecommendBackends(jobs []types.JobRecord, weights types.Weights) []types.BackendScore {
	return RecommendFromDurations(jobs, EstimateDurations(jobs), weights)
}

type backendMetrics struct {
	backend  string
	count    int
	success  float64
	avgQueue float64
	avgExec  float64
}

// RecommendFromDurations ranks backends reusing durations estimated from jobs
func RecommendFromDurations(jobs []types.JobRecord, durations []types.DurationRecord, weights types.Weights) []types.BackendScore {
	byJob := GroupBy(jobs, jobBackend)
	byDuration := GroupBy(durations, durationBackend)

	metrics := make([]backendMetrics, 0, byJob.Len())
	for _, backend := range byJob.Keys() {
		subset := byJob.Get(backend)

		n := len(subset)
		if n == 0 {
			n = 1
		}
		completed := 0
		for _, j := range subset {
			if j.Status == types.StatusCompleted {
				completed++
			}
		}

		m := backendMetrics{
			backend:  backend,
			count:    len(subset),
			success:  float64(completed) / float64(n),
			avgQueue: math.Inf(1),
			avgExec:  math.Inf(1),
		}

		if records := byDuration.Get(backend); len(records) > 0 {
			var queue, exec float64
			for _, d := range records {
				queue += d.QueueSec
				exec += d.ExecSec
			}
			m.avgQueue = queue / float64(len(records))
			m.avgExec = exec / float64(len(records))
		}

		metrics = append(metrics, m)
	}

	maxSuccess := 1.0
	for _, m := range metrics {
		maxSuccess = math.Max(maxSuccess, m.success)
	}
	queueLo, queueHi := finiteRange(metrics, func(m backendMetrics) float64 { return m.avgQueue })
	execLo, execHi := finiteRange(metrics, func(m backendMetrics) float64 { return m.avgExec })

	scores := make([]types.BackendScore, 0, len(metrics))
	for _, m := range metrics {
		successN := m.success / maxSuccess
		queueN := invertedNorm(m.avgQueue, queueLo, queueHi)
		execN := invertedNorm(m.avgExec, execLo, execHi)

		scores = append(scores, types.BackendScore{
			Backend:  m.backend,
			Success:  m.success,
			AvgQueue: m.avgQueue,
			AvgExec:  m.avgExec,
			Count:    m.count,
			Score:    weights.Success*successN + weights.Queue*queueN + weights.Exec*execN,
			Reasons: []string{
				fmt.Sprintf("Success %d%%", roundInt(m.success*100)),
				fmt.Sprintf("Avg queue %s", formatSeconds(m.avgQueue)),
				fmt.Sprintf("Avg exec %s", formatSeconds(m.avgExec)),
			},
		})
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})

	return scores
}

// finiteRange returns min and max over finite values, 0 and 1 when there are none
func finiteRange(metrics []backendMetrics, value func(backendMetrics) float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, m := range metrics {
		v := value(m)
		if math.IsInf(v, 0) || math.IsNaN(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if math.IsInf(lo, 1) {
		return 0, 1
	}
	return lo, hi
}

// invertedNorm maps v onto [0,1] with lo -> 1 and hi -> 0.
// Infinite values and degenerate ranges map to 0.
func invertedNorm(v, lo, hi float64) float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) || hi == lo {
		return 0
	}
	return 1 - (v-lo)/(hi-lo)
}

func roundInt(v float64) int {
	return int(math.Round(v))
}

func formatSeconds(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%ds", roundInt(v))
}
