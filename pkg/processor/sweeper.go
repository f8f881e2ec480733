package processor

import (
	"context"
	"sort"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/blocking"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Sweeper runs offline deduplication sweeps: block an entire population and
// report every candidate pair worth a detailed comparison.
type Sweeper struct {
	logger  ectologger.Logger
	blocker *blocking.Engine
}

// NewSweeper creates a new sweeper
func NewSweeper(logger ectologger.Logger, blocker *blocking.Engine) *Sweeper {
	return &Sweeper{
		logger:  logger,
		blocker: blocker,
	}
}

// SweepResult is the outcome of one deduplication sweep.
type SweepResult struct {
	Pairs   []models.CandidatePair `json:"pairs"`
	Metrics models.BlockingMetrics `json:"metrics"`
}

// Sweep blocks the given population and returns its candidate pairs. An
// empty strategy list uses every supported strategy.
func (s *Sweeper) Sweep(ctx context.Context, records []*models.Record, strategyNames []string) (*SweepResult, error) {
	ctx, span := tracing.StartSpan(ctx, "processor.Sweeper.Sweep")
	defer span.End()

	strategies := blocking.AllStrategies
	if len(strategyNames) > 0 {
		strategies = blocking.ParseStrategies(strategyNames, s.logger)
	}

	start := time.Now()
	index := s.blocker.Index(ctx, records, strategies)
	pairSet := s.blocker.CandidatePairs(ctx, index)

	pairs := make([]models.CandidatePair, 0, len(pairSet))
	for pair := range pairSet {
		pairs = append(pairs, pair)
	}
	sortPairs(pairs)

	metrics := s.blocker.Metrics(index, len(pairs), time.Since(start))

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"record_count":    metrics.RecordCount,
		"pair_count":      metrics.PairCount,
		"reduction_ratio": metrics.ReductionRatio,
	}).Info("Completed deduplication sweep")

	return &SweepResult{
		Pairs:   pairs,
		Metrics: metrics,
	}, nil
}

// sortPairs orders pairs lexicographically so sweep output is stable.
func sortPairs(pairs []models.CandidatePair) {
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].A != pairs[j].A {
			return pairs[i].A < pairs[j].A
		}
		return pairs[i].B < pairs[j].B
	})
}
