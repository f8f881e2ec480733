// Package processor wires the ingestion pipeline: incoming observations are
// resolved against the known population, the outcome is persisted, mirrored
// to the graph, and emitted as an event.
package processor

import (
	"context"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/internal/repositories/resolvedentity"
	"github.com/Ramsey-B/fern/internal/repositories/reviewqueue"
	"github.com/Ramsey-B/fern/pkg/blocking"
	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/graph"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/resolution"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Processor handles observation messages end to end.
type Processor struct {
	logger     ectologger.Logger
	decider    *resolution.Decider
	blocker    *blocking.Engine
	strategies []blocking.Strategy
	entityRepo *resolvedentity.Repository
	reviewRepo *reviewqueue.Repository
	identities *graph.IdentityService
	emitter    *events.Emitter

	// mu guards index: RebuildIndex swaps it from the HTTP reindex handler
	// while the consumer goroutine reads it in applyCreate
	mu    sync.RWMutex
	index *blocking.Index
}

// NewProcessor creates a new observation processor. The graph service and
// emitter are optional; a nil value disables that side effect.
func NewProcessor(
	logger ectologger.Logger,
	decider *resolution.Decider,
	blocker *blocking.Engine,
	strategies []blocking.Strategy,
	entityRepo *resolvedentity.Repository,
	reviewRepo *reviewqueue.Repository,
	identities *graph.IdentityService,
	emitter *events.Emitter,
) *Processor {
	return &Processor{
		logger:     logger,
		decider:    decider,
		blocker:    blocker,
		strategies: strategies,
		entityRepo: entityRepo,
		reviewRepo: reviewRepo,
		identities: identities,
		emitter:    emitter,
	}
}

// RebuildIndex loads the resolved population and rebuilds the blocking index
// the decider consults. Called at startup and whenever the population is
// changed outside this processor.
func (p *Processor) RebuildIndex(ctx context.Context) error {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.RebuildIndex")
	defer span.End()

	start := time.Now()
	entities, err := p.entityRepo.ListAll(ctx)
	if err != nil {
		return err
	}

	records := make([]*models.Record, 0, len(entities))
	for i := range entities {
		records = append(records, entities[i].Record())
	}

	index := p.blocker.Index(ctx, records, p.strategies)
	p.setIndex(index)
	p.decider.UseIndex(index)

	pairs := p.blocker.CandidatePairs(ctx, index)
	metrics := p.blocker.Metrics(index, len(pairs), time.Since(start))
	p.decider.Metrics().SetBlockingEfficiency(metrics.ReductionRatio)

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"record_count":    metrics.RecordCount,
		"block_count":     metrics.BlockCount,
		"reduction_ratio": metrics.ReductionRatio,
		"elapsed_ms":      metrics.ElapsedMs,
	}).Info("Rebuilt blocking index")

	return nil
}

// DeleteEntity soft-deletes an identity, removes its graph mirror, and
// rebuilds the index so the identity stops attracting candidates.
func (p *Processor) DeleteEntity(ctx context.Context, entityID string) error {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.DeleteEntity")
	defer span.End()

	log := p.logger.WithContext(ctx).WithFields(map[string]any{"entity_id": entityID})

	if err := p.entityRepo.Delete(ctx, entityID); err != nil {
		return err
	}

	if p.identities != nil {
		if count, err := p.identities.ObservationCount(ctx, entityID); err == nil {
			log = log.WithFields(map[string]any{"graph_observations": count})
		}
		if err := p.identities.DeleteIdentity(ctx, entityID); err != nil {
			log.WithError(err).Warn("Failed to remove identity from graph")
		}
	}

	log.Info("Deleted identity")
	return p.RebuildIndex(ctx)
}

func (p *Processor) setIndex(index *blocking.Index) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.index = index
}

func (p *Processor) liveIndex() *blocking.Index {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.index
}

// HandleMessage is the kafka consumer entry point.
func (p *Processor) HandleMessage(ctx context.Context, msg *kafka.IncomingMessage) error {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.HandleMessage")
	defer span.End()

	return p.ProcessObservation(ctx, msg.Observation)
}

// ProcessObservation resolves one observation and applies its side effects.
func (p *Processor) ProcessObservation(ctx context.Context, record *models.Record) error {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.ProcessObservation")
	defer span.End()

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"record_id": record.ID,
		"source":    record.Source,
	})

	decision, err := p.decider.Resolve(ctx, record, nil)
	if err != nil {
		log.WithError(err).Error("Failed to resolve observation")
		return err
	}

	switch decision.Type {
	case models.DecisionMatch:
		return p.applyMatch(ctx, log, record, decision)
	case models.DecisionCreateNew:
		return p.applyCreate(ctx, log, record, decision)
	case models.DecisionManualReview:
		return p.applyReview(ctx, log, decision)
	}
	return nil
}

func (p *Processor) applyMatch(ctx context.Context, log ectologger.Logger, record *models.Record, decision *models.ResolutionDecision) error {
	if err := p.entityRepo.RecordObservation(ctx, decision.Entity.ID, record.ObservedAt); err != nil {
		return err
	}

	if p.identities != nil {
		if err := p.identities.LinkObservation(ctx, decision.Entity.ID, record, decision.Confidence); err != nil {
			// graph mirror is best-effort; the relational store is authoritative
			log.WithError(err).Warn("Failed to mirror observation link to graph")
		}
	}

	if p.emitter != nil {
		if err := p.emitter.EmitEntityMatched(ctx, decision); err != nil {
			log.WithError(err).Warn("Failed to emit match event")
		}
	}

	log.WithFields(map[string]any{
		"entity_id":  decision.Entity.ID,
		"confidence": decision.Confidence,
	}).Info("Observation matched to identity")
	return nil
}

func (p *Processor) applyCreate(ctx context.Context, log ectologger.Logger, record *models.Record, decision *models.ResolutionDecision) error {
	entity, err := p.entityRepo.Create(ctx, record)
	if err != nil {
		return err
	}

	// new identities join the live index so later observations can match them
	if index := p.liveIndex(); index != nil {
		p.blocker.Add(ctx, index, entity.Record(), p.strategies)
	}

	if p.identities != nil {
		if err := p.identities.UpsertIdentity(ctx, entity); err != nil {
			log.WithError(err).Warn("Failed to mirror identity to graph")
		} else if err := p.identities.LinkObservation(ctx, entity.ID, record, decision.Confidence); err != nil {
			log.WithError(err).Warn("Failed to mirror observation link to graph")
		}
	}

	if p.emitter != nil {
		if err := p.emitter.EmitEntityCreated(ctx, entity, decision); err != nil {
			log.WithError(err).Warn("Failed to emit created event")
		}
	}

	log.WithFields(map[string]any{
		"entity_id":  entity.ID,
		"confidence": decision.Confidence,
	}).Info("Created new identity from observation")
	return nil
}

func (p *Processor) applyReview(ctx context.Context, log ectologger.Logger, decision *models.ResolutionDecision) error {
	item, err := p.reviewRepo.Enqueue(ctx, decision)
	if err != nil {
		return err
	}

	if p.emitter != nil {
		if err := p.emitter.EmitReviewQueued(ctx, item, decision); err != nil {
			log.WithError(err).Warn("Failed to emit review event")
		}
	}

	log.WithFields(map[string]any{
		"review_id":  item.ID,
		"confidence": decision.Confidence,
	}).Info("Observation queued for manual review")
	return nil
}
