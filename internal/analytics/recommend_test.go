package analytics

import (
	"math"
	"testing"

	"github.com/job-insights/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecommendBackends_Ranking(t *testing.T) {
	jobs := []types.JobRecord{
		timedJob("b1", "ibm_osaka", types.StatusCompleted, 20, 2),
		timedJob("a1", "ibm_kyoto", types.StatusCompleted, 10, 1),
		timedJob("b2", "ibm_osaka", types.StatusFailed, 40, 2),
		timedJob("a2", "ibm_kyoto", types.StatusCompleted, 20, 1),
	}

	got := RecommendBackendsDefault(jobs)

	require.Len(t, got, 2)

	assert.Equal(t, "ibm_kyoto", got[0].Backend)
	assert.Equal(t, 1.0, got[0].Success)
	assert.InDelta(t, 15.0, got[0].AvgQueue, 1e-9)
	assert.InDelta(t, 1.0, got[0].AvgExec, 1e-9)
	assert.Equal(t, 2, got[0].Count)
	assert.InDelta(t, 1.0, got[0].Score, 1e-9)
	assert.Equal(t, []string{"Success 100%", "Avg queue 15s", "Avg exec 1s"}, got[0].Reasons)

	assert.Equal(t, "ibm_osaka", got[1].Backend)
	assert.Equal(t, 0.5, got[1].Success)
	assert.InDelta(t, 30.0, got[1].AvgQueue, 1e-9)
	assert.InDelta(t, 0.25, got[1].Score, 1e-9)
	assert.Equal(t, []string{"Success 50%", "Avg queue 30s", "Avg exec 2s"}, got[1].Reasons)
}

func TestRecommendBackends_EqualAveragesNormalizeToZero(t *testing.T) {
	jobs := []types.JobRecord{
		timedJob("a1", "ibm_kyoto", types.StatusCompleted, 10, 3),
		timedJob("b1", "ibm_osaka", types.StatusCompleted, 10, 3),
	}

	got := RecommendBackendsDefault(jobs)

	require.Len(t, got, 2)
	for _, score := range got {
		assert.False(t, math.IsNaN(score.Score))
		// queueN and execN are both 0, only success contributes
		assert.InDelta(t, 0.5, score.Score, 1e-9)
	}
	// Ties keep first-observed order
	assert.Equal(t, "ibm_kyoto", got[0].Backend)
	assert.Equal(t, "ibm_osaka", got[1].Backend)
}

func TestRecommendBackends_SingleBackend(t *testing.T) {
	jobs := []types.JobRecord{
		timedJob("a1", "ibm_kyoto", types.StatusCompleted, 10, 3),
		timedJob("a2", "ibm_kyoto", types.StatusFailed, 30, 3),
	}

	got := RecommendBackendsDefault(jobs)

	require.Len(t, got, 1)
	assert.InDelta(t, 0.25, got[0].Score, 1e-9)
}

func TestRecommendBackends_BackendWithoutDurations(t *testing.T) {
	jobs := []types.JobRecord{
		timedJob("a1", "ibm_kyoto", types.StatusCompleted, 10, 1),
		timedJob("a2", "ibm_kyoto", types.StatusCompleted, 30, 3),
		untimedJob("c1", "ibm_torino", types.StatusCompleted),
		untimedJob("c2", "", types.StatusFailed),
	}

	got := RecommendBackendsDefault(jobs)

	require.Len(t, got, 3)
	byBackend := make(map[string]types.BackendScore)
	for _, s := range got {
		byBackend[s.Backend] = s
	}

	torino := byBackend["ibm_torino"]
	assert.True(t, math.IsInf(torino.AvgQueue, 1))
	assert.True(t, math.IsInf(torino.AvgExec, 1))
	assert.InDelta(t, 0.5, torino.Score, 1e-9, "only success contributes")
	assert.Equal(t, []string{"Success 100%", "Avg queue n/a", "Avg exec n/a"}, torino.Reasons)

	unknown := byBackend[types.UnknownBackend]
	assert.Equal(t, 0.0, unknown.Score)
	assert.Equal(t, 1, unknown.Count)

	// Single finite backend: max == min so its time terms are 0 as well
	assert.InDelta(t, 0.5, byBackend["ibm_kyoto"].Score, 1e-9)
}

func TestRecommendBackends_WeightsAreNotRenormalized(t *testing.T) {
	jobs := []types.JobRecord{
		timedJob("a1", "ibm_kyoto", types.StatusCompleted, 10, 1),
		timedJob("b1", "ibm_osaka", types.StatusFailed, 20, 2),
	}

	got := RecommendBackends(jobs, types.Weights{Success: 1, Queue: 1, Exec: 1})

	require.Len(t, got, 2)
	assert.InDelta(t, 3.0, got[0].Score, 1e-9)
	assert.InDelta(t, 0.0, got[1].Score, 1e-9)
}

func TestRecommendBackends_Empty(t *testing.T) {
	assert.Empty(t, RecommendBackendsDefault(nil))
}
