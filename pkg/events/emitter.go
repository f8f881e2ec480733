// Package events handles event emission for resolution outcomes
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Emitter publishes resolution lifecycle events. The decider itself returns
// plain decisions; all fan-out to downstream consumers happens here.
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitEntityMatched emits an event for an observation linked to an existing
// identity.
func (e *Emitter) EmitEntityMatched(ctx context.Context, decision *models.ResolutionDecision) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitEntityMatched")
	defer span.End()

	event := &kafka.ResolutionEvent{
		EventType:  "entity.matched",
		EntityID:   decision.Entity.ID,
		RecordID:   decision.RecordID,
		Confidence: decision.Confidence,
		Decision:   marshalDecision(decision),
	}

	if err := e.producer.PublishResolutionEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit entity.matched event")
		return err
	}
	return nil
}

// EmitEntityCreated emits an event for a newly created identity.
func (e *Emitter) EmitEntityCreated(ctx context.Context, entity *models.ResolvedEntity, decision *models.ResolutionDecision) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitEntityCreated")
	defer span.End()

	event := &kafka.ResolutionEvent{
		EventType:  "entity.created",
		EntityID:   entity.ID,
		RecordID:   decision.RecordID,
		Confidence: decision.Confidence,
		Decision:   marshalDecision(decision),
	}

	if err := e.producer.PublishResolutionEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit entity.created event")
		return err
	}
	return nil
}

// EmitReviewQueued emits an event for an ambiguous observation sent to the
// review queue.
func (e *Emitter) EmitReviewQueued(ctx context.Context, item *models.ReviewItem, decision *models.ResolutionDecision) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitReviewQueued")
	defer span.End()

	event := &kafka.ResolutionEvent{
		EventType:  "entity.review_queued",
		EntityID:   item.CandidateID,
		RecordID:   decision.RecordID,
		Confidence: decision.Confidence,
		Decision:   marshalDecision(decision),
	}

	if err := e.producer.PublishResolutionEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit entity.review_queued event")
		return err
	}
	return nil
}

func marshalDecision(decision *models.ResolutionDecision) json.RawMessage {
	data, err := json.Marshal(decision)
	if err != nil {
		return nil
	}
	return data
}
