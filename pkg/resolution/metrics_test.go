package resolution

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/fern/pkg/models"
)

func TestMetrics(t *testing.T) {
	t.Run("counts by decision type", func(t *testing.T) {
		metrics := NewMetrics()
		metrics.RecordDecision(models.DecisionMatch, 5, 10*time.Millisecond)
		metrics.RecordDecision(models.DecisionCreateNew, 0, 2*time.Millisecond)
		metrics.RecordDecision(models.DecisionManualReview, 3, 6*time.Millisecond)
		metrics.RecordFailure()

		snapshot := metrics.Snapshot()
		assert.Equal(t, int64(8), snapshot.Comparisons)
		assert.Equal(t, int64(1), snapshot.Matches)
		assert.Equal(t, int64(1), snapshot.Creates)
		assert.Equal(t, int64(1), snapshot.Reviews)
		assert.Equal(t, int64(1), snapshot.Failures)
		assert.InDelta(t, 6.0, snapshot.AverageProcessingTimeMs, 0.0001)
	})

	t.Run("empty accumulator snapshots zeroes", func(t *testing.T) {
		snapshot := NewMetrics().Snapshot()
		assert.Equal(t, models.MetricsSnapshot{}, snapshot)
	})

	t.Run("no lost updates under concurrency", func(t *testing.T) {
		metrics := NewMetrics()

		var wg sync.WaitGroup
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				metrics.RecordDecision(models.DecisionMatch, 1, time.Millisecond)
			}()
		}
		wg.Wait()

		snapshot := metrics.Snapshot()
		assert.Equal(t, int64(100), snapshot.Matches)
		assert.Equal(t, int64(100), snapshot.Comparisons)
	})

	t.Run("blocking efficiency", func(t *testing.T) {
		metrics := NewMetrics()
		metrics.SetBlockingEfficiency(0.97)
		assert.Equal(t, 0.97, metrics.Snapshot().BlockingEfficiency)
	})
}
