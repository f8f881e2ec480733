// Package blocking reduces the all-pairs comparison problem to a
// sub-quadratic candidate set by grouping records under cheap keys and only
// comparing records that share a block.
package blocking

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// EngineConfig contains configuration for the blocking engine
type EngineConfig struct {
	MaxBlockSize int // Records kept per block before overflow drops (default: 100)
}

// DefaultConfig returns default engine configuration
func DefaultConfig() EngineConfig {
	return EngineConfig{
		MaxBlockSize: 100,
	}
}

// Engine builds blocking indexes and derives candidate pairs from them.
type Engine struct {
	logger ectologger.Logger
	config EngineConfig
}

// NewEngine creates a new blocking engine
func NewEngine(logger ectologger.Logger, config EngineConfig) *Engine {
	return &Engine{
		logger: logger,
		config: config,
	}
}

// Index runs every requested strategy over the records and merges the
// results into one index under strategy-qualified keys. Records missing the
// field a strategy needs simply contribute no keys under that strategy.
func (e *Engine) Index(ctx context.Context, records []*models.Record, strategies []Strategy) *Index {
	ctx, span := tracing.StartSpan(ctx, "blocking.Engine.Index")
	defer span.End()

	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"record_count":   len(records),
		"strategy_count": len(strategies),
	})

	index := NewIndex(e.config.MaxBlockSize)
	for _, strategy := range strategies {
		for _, record := range records {
			for _, key := range strategy.Keys(record) {
				index.Insert(strategy, key, record)
			}
		}
	}

	log.WithFields(map[string]any{
		"block_count": index.BlockCount(),
		"overflowed":  index.Overflowed(),
	}).Debug("Built blocking index")

	return index
}

// Add inserts a single record into an existing index under the given
// strategies, for incremental updates as new identities are resolved.
func (e *Engine) Add(ctx context.Context, index *Index, record *models.Record, strategies []Strategy) {
	_, span := tracing.StartSpan(ctx, "blocking.Engine.Add")
	defer span.End()

	for _, strategy := range strategies {
		for _, key := range strategy.Keys(record) {
			index.Insert(strategy, key, record)
		}
	}
}

// CandidatePairs emits every within-block pair across the index,
// canonicalized and deduplicated. Blocks with fewer than two members
// contribute nothing.
func (e *Engine) CandidatePairs(ctx context.Context, index *Index) map[models.CandidatePair]bool {
	ctx, span := tracing.StartSpan(ctx, "blocking.Engine.CandidatePairs")
	defer span.End()

	pairs := map[models.CandidatePair]bool{}
	for _, block := range index.Blocks() {
		if len(block) < 2 {
			continue
		}
		for i := 0; i < len(block); i++ {
			for j := i + 1; j < len(block); j++ {
				pairs[models.NewCandidatePair(block[i], block[j])] = true
			}
		}
	}

	e.logger.WithContext(ctx).WithFields(map[string]any{
		"pair_count": len(pairs),
	}).Debug("Generated candidate pairs")

	return pairs
}

// CandidatesForRecord generates this record's keys under the given
// strategies and unions the matching blocks, excluding the record itself.
// Iteration follows strategy and key-generation order so the result is
// deterministic; limit > 0 caps the result once reached.
func (e *Engine) CandidatesForRecord(ctx context.Context, record *models.Record, index *Index, strategies []Strategy, limit int) []*models.Record {
	ctx, span := tracing.StartSpan(ctx, "blocking.Engine.CandidatesForRecord")
	defer span.End()

	if record == nil || index == nil {
		return nil
	}

	var candidates []*models.Record
	seen := map[string]bool{}

	for _, strategy := range strategies {
		for _, key := range strategy.Keys(record) {
			for _, id := range index.Block(strategy, key) {
				if id == record.ID || seen[id] {
					continue
				}
				candidate := index.Record(id)
				if candidate == nil {
					continue
				}
				seen[id] = true
				candidates = append(candidates, candidate)
				if limit > 0 && len(candidates) >= limit {
					return candidates
				}
			}
		}
	}

	e.logger.WithContext(ctx).WithFields(map[string]any{
		"record_id":       record.ID,
		"candidate_count": len(candidates),
	}).Debug("Found candidates for record")

	return candidates
}

// Metrics summarizes a blocking run. The reduction ratio is the fraction of
// brute-force comparisons avoided and should approach 1 as the population
// grows.
func (e *Engine) Metrics(index *Index, pairCount int, elapsed time.Duration) models.BlockingMetrics {
	metrics := models.BlockingMetrics{
		RecordCount: index.RecordCount(),
		BlockCount:  index.BlockCount(),
		PairCount:   pairCount,
		Overflowed:  index.Overflowed(),
		ElapsedMs:   elapsed.Milliseconds(),
	}

	if metrics.BlockCount > 0 {
		metrics.AverageBlockSize = float64(metrics.RecordCount) / float64(metrics.BlockCount)
	}
	if totalPairs := metrics.RecordCount * (metrics.RecordCount - 1) / 2; totalPairs > 0 {
		metrics.ReductionRatio = 1.0 - float64(pairCount)/float64(totalPairs)
	}

	return metrics
}
