package analytics

import (
	"fmt"

	"github.com/job-insights/internal/types"
)

const (
	// StuckMinSamples is the fewest duration records a backend needs for outlier checks
	StuckMinSamples = 8
	// StuckZThreshold is the z-score above which a queue time is flagged
	StuckZThreshold = 2.5
	// FailureWindow is how many of a backend's latest jobs are inspected for failures
	FailureWindow = 20
	// FailureMinWindow is the fewest jobs the failure window must contain
	FailureMinWindow = 10
	// FailureRateThreshold is the failure fraction that marks a cluster
	FailureRateThreshold = 0.5
)

// DetectAnomalies flags queue-time outliers ("stuck") per backend followed by backends
// whose latest jobs are mostly failures ("failure_cluster").
//
// "Latest" is positional: the last FailureWindow jobs of a backend in input order.
// Input that is not chronologically ordered yields a window that is not temporally recent.
func DetectAnomalies(jobs []types.JobRecord) []types.Anomaly {
	return AnomaliesFromDurations(jobs, EstimateDurations(jobs))
}

// AnomaliesFromDurations runs both anomaly passes reusing durations estimated from jobs
func AnomaliesFromDurations(jobs []types.JobRecord, durations []types.DurationRecord) []types.Anomaly {
	anomalies := detectStuck(durations)
	return append(anomalies, detectFailureClusters(jobs)...)
}

func detectStuck(durations []types.DurationRecord) []types.Anomaly {
	anomalies := make([]types.Anomaly, 0)

	groups := GroupBy(durations, durationBackend)
	for _, backend := range groups.Keys() {
		bucket := groups.Get(backend)
		if len(bucket) < StuckMinSamples {
			continue
		}

		queue := make([]float64, len(bucket))
		for i, d := range bucket {
			queue[i] = d.QueueSec
		}
		m := mean(queue)
		std := populationStdDev(queue, m)
		if std == 0 {
			std = 1
		}

		for _, d := range bucket {
			z := (d.QueueSec - m) / std
			if z > StuckZThreshold {
				anomalies = append(anomalies, types.Anomaly{
					JobID: d.JobID,
					Type:  types.AnomalyStuck,
					Details: fmt.Sprintf("Queue time on %s is %ds (z=%.2f)",
						backend, roundInt(d.QueueSec), z),
				})
			}
		}
	}

	return anomalies
}

func detectFailureClusters(jobs []types.JobRecord) []types.Anomaly {
	var anomalies []types.Anomaly

	groups := GroupBy(jobs, jobBackend)
	for _, backend := range groups.Keys() {
		bucket := groups.Get(backend)
		window := bucket
		if len(window) > FailureWindow {
			window = window[len(window)-FailureWindow:]
		}
		if len(window) < FailureMinWindow {
			continue
		}

		failed := 0
		for _, j := range window {
			if j.Status == types.StatusFailed {
				failed++
			}
		}
		rate := float64(failed) / float64(len(window))
		if rate >= FailureRateThreshold {
			anomalies = append(anomalies, types.Anomaly{
				JobID: window[len(window)-1].JobID,
				Type:  types.AnomalyFailureCluster,
				Details: fmt.Sprintf("%s failed %d%% of its last %d jobs",
					backend, roundInt(rate*100), len(window)),
			})
		}
	}

	return anomalies
}
