package resolution

import (
	"sync"
	"time"

	"github.com/Ramsey-B/fern/pkg/models"
)

// Metrics accumulates advisory counters across resolutions. It is the only
// shared mutable state in the resolution path, so every update goes through
// the mutex; decisions never read it.
type Metrics struct {
	mu sync.Mutex

	comparisons int64
	matches     int64
	creates     int64
	reviews     int64
	failures    int64

	resolutions        int64
	totalProcessing    time.Duration
	blockingEfficiency float64
}

// NewMetrics creates an empty accumulator.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordDecision counts one completed resolution.
func (m *Metrics) RecordDecision(decision models.DecisionType, comparisons int, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.comparisons += int64(comparisons)
	m.resolutions++
	m.totalProcessing += elapsed

	switch decision {
	case models.DecisionMatch:
		m.matches++
	case models.DecisionCreateNew:
		m.creates++
	case models.DecisionManualReview:
		m.reviews++
	}
}

// RecordFailure counts one failed resolution.
func (m *Metrics) RecordFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
}

// SetBlockingEfficiency stores the most recent blocking reduction ratio.
func (m *Metrics) SetBlockingEfficiency(ratio float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blockingEfficiency = ratio
}

// Snapshot returns a read-only copy, safe to call concurrently with
// resolution.
func (m *Metrics) Snapshot() models.MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := models.MetricsSnapshot{
		Comparisons:        m.comparisons,
		Matches:            m.matches,
		Creates:            m.creates,
		Reviews:            m.reviews,
		Failures:           m.failures,
		BlockingEfficiency: m.blockingEfficiency,
	}
	if m.resolutions > 0 {
		snapshot.AverageProcessingTimeMs = float64(m.totalProcessing.Milliseconds()) / float64(m.resolutions)
	}
	return snapshot
}
