// Package resolvedentity persists the identity profiles observations resolve
// to.
package resolvedentity

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Repository handles resolved entity persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new resolved entity repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create persists a new identity profile built from an observation record.
func (r *Repository) Create(ctx context.Context, record *models.Record) (*models.ResolvedEntity, error) {
	ctx, span := tracing.StartSpan(ctx, "resolvedentity.Repository.Create")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method":    "Create",
		"record_id": record.ID,
	})

	now := time.Now().UTC()
	entity := &models.ResolvedEntity{
		ID:               uuid.New().String(),
		Name:             record.Name,
		Email:            record.Email,
		Phone:            record.Phone,
		StudentID:        record.StudentID,
		CardID:           record.CardID,
		DeviceHash:       record.DeviceHash,
		Department:       record.Department,
		ObservationCount: 1,
		FirstSeenAt:      now,
		LastSeenAt:       now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if !record.ObservedAt.IsZero() {
		entity.FirstSeenAt = record.ObservedAt.UTC()
		entity.LastSeenAt = record.ObservedAt.UTC()
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("resolved_entities")
	sb.Cols("id", "name", "email", "phone", "student_id", "card_id", "device_hash", "department",
		"observation_count", "first_seen_at", "last_seen_at", "created_at", "updated_at")
	sb.Values(entity.ID, entity.Name, entity.Email, entity.Phone, entity.StudentID, entity.CardID,
		entity.DeviceHash, entity.Department, entity.ObservationCount,
		entity.FirstSeenAt, entity.LastSeenAt, entity.CreatedAt, entity.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		log.WithError(err).Error("Failed to create resolved entity")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create resolved entity")
	}

	log.WithFields(map[string]any{"entity_id": entity.ID}).Debug("Created resolved entity")
	return entity, nil
}

// Get returns a resolved entity by ID, or nil when it doesn't exist.
func (r *Repository) Get(ctx context.Context, id string) (*models.ResolvedEntity, error) {
	ctx, span := tracing.StartSpan(ctx, "resolvedentity.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("*")
	sb.From("resolved_entities")
	sb.Where(sb.Equal("id", id), sb.IsNull("deleted_at"))

	query, args := sb.Build()
	var entity models.ResolvedEntity
	if err := r.db.GetContext(ctx, &entity, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"entity_id": id}).Error("Failed to get resolved entity")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get resolved entity")
	}
	return &entity, nil
}

// List returns active resolved entities, most recently seen first.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]models.ResolvedEntity, error) {
	ctx, span := tracing.StartSpan(ctx, "resolvedentity.Repository.List")
	defer span.End()

	if limit <= 0 {
		limit = 100
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("*")
	sb.From("resolved_entities")
	sb.Where(sb.IsNull("deleted_at"))
	sb.OrderBy("last_seen_at").Desc()
	sb.Limit(limit).Offset(offset)

	query, args := sb.Build()
	var entities []models.ResolvedEntity
	if err := r.db.SelectContext(ctx, &entities, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list resolved entities")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list resolved entities")
	}
	return entities, nil
}

// ListAll streams every active entity for index rebuilds. Pages internally
// so a large population doesn't need one giant result set.
func (r *Repository) ListAll(ctx context.Context) ([]models.ResolvedEntity, error) {
	ctx, span := tracing.StartSpan(ctx, "resolvedentity.Repository.ListAll")
	defer span.End()

	const pageSize = 1000

	var all []models.ResolvedEntity
	for offset := 0; ; offset += pageSize {
		page, err := r.List(ctx, pageSize, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < pageSize {
			return all, nil
		}
	}
}

// RecordObservation bumps the observation counters after an observation is
// linked to an existing identity.
func (r *Repository) RecordObservation(ctx context.Context, entityID string, observedAt time.Time) error {
	ctx, span := tracing.StartSpan(ctx, "resolvedentity.Repository.RecordObservation")
	defer span.End()

	if observedAt.IsZero() {
		observedAt = time.Now().UTC()
	}

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("resolved_entities")
	sb.Set(
		sb.Incr("observation_count"),
		sb.Assign("last_seen_at", observedAt.UTC()),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(sb.Equal("id", entityID), sb.IsNull("deleted_at"))

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"entity_id": entityID}).Error("Failed to record observation")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to record observation")
	}
	return nil
}

// Delete soft-deletes an entity.
func (r *Repository) Delete(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "resolvedentity.Repository.Delete")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("resolved_entities")
	sb.Set(sb.Assign("deleted_at", time.Now().UTC()))
	sb.Where(sb.Equal("id", id), sb.IsNull("deleted_at"))

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"entity_id": id}).Error("Failed to delete resolved entity")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete resolved entity")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"entity_id": id}).Debug("Deleted resolved entity")
	return nil
}
