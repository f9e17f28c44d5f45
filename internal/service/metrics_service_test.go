package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/internal/models"
)

// gathered returns the value of the first sample of name whose labels
// include the given pairs.
func gathered(t *testing.T, m *MetricsService, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
	metrics:
		for _, metric := range family.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if want, ok := labels[pair.GetName()]; ok && want != pair.GetValue() {
					continue metrics
				}
			}
			switch {
			case metric.GetCounter() != nil:
				return metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				return metric.GetGauge().GetValue()
			case metric.GetHistogram() != nil:
				return float64(metric.GetHistogram().GetSampleCount())
			}
		}
	}
	t.Fatalf("metric %s %v not found", name, labels)
	return 0
}

func TestMetricsServiceRecordsRuns(t *testing.T) {
	m := NewMetricsService()

	m.ObserveGeneration(true)
	m.ObserveGeneration(false)
	m.ObserveRun(models.RunStatusFinished, 37, 20*time.Millisecond)
	m.ObserveRun(models.RunStatusFailed, 0, 0)

	assert.Equal(t, float64(1), gathered(t, m, "optimizer_runs_total", map[string]string{"status": "FINISHED"}))
	assert.Equal(t, float64(1), gathered(t, m, "optimizer_runs_total", map[string]string{"status": "FAILED"}))
	assert.Equal(t, float64(37), gathered(t, m, "optimizer_best_fitness", nil))
	assert.Equal(t, float64(2), gathered(t, m, "optimizer_generations_total", nil))
	assert.Equal(t, float64(1), gathered(t, m, "optimizer_global_best_improvements_total", nil))
	assert.Equal(t, float64(1), gathered(t, m, "optimizer_run_duration_seconds", nil))

	snap := m.Snapshot()
	assert.Equal(t, uint64(1), snap.Runs)
	assert.Equal(t, uint64(1), snap.FailedRuns)
	assert.Equal(t, uint64(2), snap.Generations)
	assert.Equal(t, int64(37), snap.LastBestFitness)
	assert.InDelta(t, 20, snap.AvgRunMs, 0.001)
	assert.NotEmpty(t, snap.LastRunCompleted)
}

func TestMetricsServiceCacheRatio(t *testing.T) {
	m := NewMetricsService()
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)

	assert.InDelta(t, 2.0/3.0, gathered(t, m, "cache_hit_ratio", nil), 1e-9)
	assert.InDelta(t, 2.0/3.0, m.Snapshot().CacheHitRatio, 1e-9)
	assert.Equal(t, float64(2), gathered(t, m, "cache_hits_total", nil))
}

func TestNilMetricsServiceIsSafe(t *testing.T) {
	var m *MetricsService
	m.ObserveRun(models.RunStatusFinished, 1, time.Second)
	m.ObserveGeneration(true)
	m.ObserveHTTPRequest("GET", "/", 200, time.Millisecond)
	assert.Equal(t, MetricsSnapshot{}, m.Snapshot())
}
