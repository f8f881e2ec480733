package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// IdentityService mirrors resolved identities and their observation trail
// into the graph for connection queries the relational store can't answer
// cheaply.
type IdentityService struct {
	client *Client
	logger ectologger.Logger
}

// NewIdentityService creates a new identity service
func NewIdentityService(client *Client, logger ectologger.Logger) *IdentityService {
	return &IdentityService{
		client: client,
		logger: logger,
	}
}

// UpsertIdentity creates or updates an identity node.
func (s *IdentityService) UpsertIdentity(ctx context.Context, entity *models.ResolvedEntity) error {
	ctx, span := tracing.StartSpan(ctx, "graph.IdentityService.UpsertIdentity")
	defer span.End()

	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"entity_id": entity.ID,
	})

	props := map[string]any{
		"id":                entity.ID,
		"observation_count": entity.ObservationCount,
		"first_seen_at":     entity.FirstSeenAt.UTC().Format(time.RFC3339),
		"last_seen_at":      entity.LastSeenAt.UTC().Format(time.RFC3339),
	}
	if entity.Name != nil {
		props["name"] = *entity.Name
	}
	if entity.Email != nil {
		props["email"] = *entity.Email
	}
	if entity.Department != nil {
		props["department"] = *entity.Department
	}

	cypher := `
		MERGE (i:Identity {id: $id})
		SET i = $props
		RETURN i
	`

	_, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"id":    entity.ID,
			"props": props,
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})

	if err != nil {
		log.WithError(err).Error("Failed to upsert identity in graph")
		return fmt.Errorf("failed to upsert identity in graph: %w", err)
	}

	log.Debug("Upserted identity in graph")
	return nil
}

// LinkObservation attaches an observation node to its resolved identity.
func (s *IdentityService) LinkObservation(ctx context.Context, entityID string, record *models.Record, confidence float64) error {
	ctx, span := tracing.StartSpan(ctx, "graph.IdentityService.LinkObservation")
	defer span.End()

	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"entity_id": entityID,
		"record_id": record.ID,
	})

	observedAt := record.ObservedAt
	if observedAt.IsZero() {
		observedAt = time.Now()
	}

	cypher := `
		MATCH (i:Identity {id: $entity_id})
		MERGE (o:Observation {id: $record_id})
		SET o.source = $source, o.observed_at = $observed_at
		MERGE (i)-[r:OBSERVED_AS]->(o)
		SET r.confidence = $confidence
		RETURN o
	`

	_, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"entity_id":   entityID,
			"record_id":   record.ID,
			"source":      record.Source,
			"observed_at": observedAt.UTC().Format(time.RFC3339),
			"confidence":  confidence,
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})

	if err != nil {
		log.WithError(err).Error("Failed to link observation in graph")
		return fmt.Errorf("failed to link observation in graph: %w", err)
	}

	log.Debug("Linked observation in graph")
	return nil
}

// DeleteIdentity removes an identity node and its observation links.
func (s *IdentityService) DeleteIdentity(ctx context.Context, entityID string) error {
	ctx, span := tracing.StartSpan(ctx, "graph.IdentityService.DeleteIdentity")
	defer span.End()

	cypher := `
		MATCH (i:Identity {id: $entity_id})
		DETACH DELETE i
	`

	_, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{"entity_id": entityID})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})

	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"entity_id": entityID,
		}).Error("Failed to delete identity from graph")
		return fmt.Errorf("failed to delete identity from graph: %w", err)
	}

	return nil
}

// ObservationCount returns how many observations are linked to an identity.
func (s *IdentityService) ObservationCount(ctx context.Context, entityID string) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.IdentityService.ObservationCount")
	defer span.End()

	cypher := `
		MATCH (:Identity {id: $entity_id})-[:OBSERVED_AS]->(o:Observation)
		RETURN count(o) AS observations
	`

	count, err := s.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{"entity_id": entityID})
		if err != nil {
			return nil, err
		}

		record, err := result.Single(ctx)
		if err != nil {
			return nil, err
		}
		value, _ := record.Get("observations")
		return value, nil
	})

	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"entity_id": entityID,
		}).Error("Failed to count observations in graph")
		return 0, fmt.Errorf("failed to count observations in graph: %w", err)
	}

	observations, _ := count.(int64)
	return observations, nil
}
