// Package resolution decides whether an incoming observation matches a known
// identity, creates a new one, or needs human review. It orchestrates
// blocking, similarity evaluation, and linkage scoring into a three-way
// decision.
package resolution

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/blocking"
	"github.com/Ramsey-B/fern/pkg/linkage"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/similarity"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// DeciderConfig contains the decision thresholds and batch tuning.
type DeciderConfig struct {
	HighThreshold  float64             // Probability at or above which to match (default: 0.9)
	LowThreshold   float64             // Probability at or below which to create new (default: 0.3)
	MaxCandidates  int                 // Candidates considered per record (default: 50)
	BatchSize      int                 // Records per batch chunk (default: 100)
	MaxConcurrency int                 // Concurrent resolutions within a chunk (default: 8)
	Strategies     []blocking.Strategy // Blocking strategies for candidate lookup
}

// DefaultConfig returns default decider configuration
func DefaultConfig() DeciderConfig {
	return DeciderConfig{
		HighThreshold:  0.9,
		LowThreshold:   0.3,
		MaxCandidates:  50,
		BatchSize:      100,
		MaxConcurrency: 8,
		Strategies:     blocking.AllStrategies,
	}
}

// Decider runs the resolution pipeline. Configuration is immutable per
// instance; the metrics accumulator is the only shared mutable state.
type Decider struct {
	logger    ectologger.Logger
	blocker   *blocking.Engine
	evaluator similarity.Evaluator
	scorer    *linkage.Scorer
	config    DeciderConfig
	metrics   *Metrics

	mu    sync.RWMutex
	index *blocking.Index
}

// NewDecider creates a new Decider. Threshold misconfiguration is the one
// error that fails hard; everything downstream degrades instead.
func NewDecider(
	logger ectologger.Logger,
	blocker *blocking.Engine,
	evaluator similarity.Evaluator,
	scorer *linkage.Scorer,
	config DeciderConfig,
) (*Decider, error) {
	if config.LowThreshold <= 0 || config.HighThreshold >= 1 || config.LowThreshold >= config.HighThreshold {
		return nil, fmt.Errorf("thresholds must satisfy 0 < low < high < 1, got low=%f high=%f",
			config.LowThreshold, config.HighThreshold)
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 8
	}
	if len(config.Strategies) == 0 {
		config.Strategies = blocking.AllStrategies
	}

	return &Decider{
		logger:    logger,
		blocker:   blocker,
		evaluator: evaluator,
		scorer:    scorer,
		config:    config,
		metrics:   NewMetrics(),
	}, nil
}

// UseIndex installs the blocking index consulted when Resolve is called
// without an explicit candidate list.
func (d *Decider) UseIndex(index *blocking.Index) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.index = index
}

// Metrics returns the decider's accumulator.
func (d *Decider) Metrics() *Metrics {
	return d.metrics
}

// Resolve classifies one record. Passing nil candidates asks the blocking
// index for them; passing an explicit (possibly empty) list skips blocking.
// The returned decision is terminal; re-resolution is a fresh call.
func (d *Decider) Resolve(ctx context.Context, record *models.Record, candidates []*models.Record) (*models.ResolutionDecision, error) {
	ctx, span := tracing.StartSpan(ctx, "resolution.Decider.Resolve")
	defer span.End()

	if record == nil || record.ID == "" {
		return nil, fmt.Errorf("cannot resolve a record without an identifier")
	}

	start := time.Now()
	log := d.logger.WithContext(ctx).WithFields(map[string]any{
		"record_id": record.ID,
	})

	if candidates == nil {
		candidates = d.lookupCandidates(ctx, record)
	}

	results, comparisons := d.scoreCandidates(ctx, log, record, candidates)

	decision := d.decide(record, results)
	d.metrics.RecordDecision(decision.Type, comparisons, time.Since(start))

	log.WithFields(map[string]any{
		"decision":   string(decision.Type),
		"confidence": decision.Confidence,
		"candidates": len(candidates),
	}).Debug("Resolved record")

	return decision, nil
}

func (d *Decider) lookupCandidates(ctx context.Context, record *models.Record) []*models.Record {
	d.mu.RLock()
	index := d.index
	d.mu.RUnlock()

	if index == nil {
		return nil
	}
	return d.blocker.CandidatesForRecord(ctx, record, index, d.config.Strategies, d.config.MaxCandidates)
}

// scoreCandidates evaluates and scores every candidate. An evaluator failure
// excludes that pair and resolution continues; if every pair fails the
// caller falls through to create-new.
func (d *Decider) scoreCandidates(ctx context.Context, log ectologger.Logger, record *models.Record, candidates []*models.Record) ([]models.LinkageResult, int) {
	type scored struct {
		candidate *models.Record
		vector    models.SimilarityVector
	}

	comparisons := 0
	vectors := make([]scored, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate == nil || candidate.ID == record.ID {
			continue
		}

		vector, err := d.evaluator.Compare(record, candidate)
		if err != nil {
			log.WithError(err).WithFields(map[string]any{
				"candidate_id": candidate.ID,
			}).Warn("Similarity evaluation failed, excluding candidate")
			continue
		}

		comparisons++
		vectors = append(vectors, scored{candidate: candidate, vector: vector})
	}

	// descending by composite, candidate ID as tie-break for determinism
	sort.SliceStable(vectors, func(i, j int) bool {
		if vectors[i].vector.Overall != vectors[j].vector.Overall {
			return vectors[i].vector.Overall > vectors[j].vector.Overall
		}
		return vectors[i].candidate.ID < vectors[j].candidate.ID
	})

	results := make([]models.LinkageResult, 0, len(vectors))
	for _, s := range vectors {
		results = append(results, d.scorer.Score(s.candidate, s.vector))
	}
	return results, comparisons
}

func (d *Decider) decide(record *models.Record, results []models.LinkageResult) *models.ResolutionDecision {
	if len(results) == 0 {
		return &models.ResolutionDecision{
			RecordID:   record.ID,
			Type:       models.DecisionCreateNew,
			Confidence: 1.0,
		}
	}

	// highest match probability wins; composite order breaks ties
	best := 0
	for i := 1; i < len(results); i++ {
		if results[i].MatchProbability > results[best].MatchProbability {
			best = i
		}
	}
	bestResult := results[best]

	switch {
	case bestResult.MatchProbability >= d.config.HighThreshold:
		return &models.ResolutionDecision{
			RecordID:   record.ID,
			Type:       models.DecisionMatch,
			Entity:     bestResult.Candidate,
			Confidence: bestResult.MatchProbability,
			Best:       &bestResult,
		}
	case bestResult.MatchProbability <= d.config.LowThreshold:
		return &models.ResolutionDecision{
			RecordID:   record.ID,
			Type:       models.DecisionCreateNew,
			Confidence: 1.0 - bestResult.MatchProbability,
			Best:       &bestResult,
		}
	default:
		return &models.ResolutionDecision{
			RecordID:     record.ID,
			Type:         models.DecisionManualReview,
			Entity:       bestResult.Candidate,
			Confidence:   bestResult.MatchProbability,
			Best:         &bestResult,
			Alternatives: alternatives(results, best, 2),
		}
	}
}

// alternatives returns up to limit next-best results by match probability.
func alternatives(results []models.LinkageResult, best, limit int) []models.LinkageResult {
	rest := make([]models.LinkageResult, 0, len(results)-1)
	for i, result := range results {
		if i == best {
			continue
		}
		rest = append(rest, result)
	}

	sort.SliceStable(rest, func(i, j int) bool {
		return rest[i].MatchProbability > rest[j].MatchProbability
	})

	if len(rest) > limit {
		rest = rest[:limit]
	}
	return rest
}

// ResolveBatch processes records in fixed-size chunks with bounded
// parallelism inside each chunk. One record's failure becomes an error entry
// in its slot; the batch always returns one item per input record, in input
// order.
func (d *Decider) ResolveBatch(ctx context.Context, records []*models.Record) []models.BatchItem {
	ctx, span := tracing.StartSpan(ctx, "resolution.Decider.ResolveBatch")
	defer span.End()

	log := d.logger.WithContext(ctx).WithFields(map[string]any{
		"record_count": len(records),
		"batch_size":   d.config.BatchSize,
	})
	log.Info("Resolving batch")

	items := make([]models.BatchItem, len(records))

	for offset := 0; offset < len(records); offset += d.config.BatchSize {
		end := min(offset+d.config.BatchSize, len(records))

		var wg sync.WaitGroup
		sem := make(chan struct{}, d.config.MaxConcurrency)

		for i := offset; i < end; i++ {
			wg.Add(1)
			sem <- struct{}{}

			go func(i int) {
				defer wg.Done()
				defer func() { <-sem }()

				record := records[i]
				recordID := ""
				if record != nil {
					recordID = record.ID
				}

				decision, err := d.Resolve(ctx, record, nil)
				if err != nil {
					d.metrics.RecordFailure()
					items[i] = models.BatchItem{RecordID: recordID, Error: err.Error()}
					return
				}
				items[i] = models.BatchItem{RecordID: recordID, Decision: decision}
			}(i)
		}

		wg.Wait()
	}

	return items
}
