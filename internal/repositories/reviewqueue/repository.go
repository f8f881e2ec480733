// Package reviewqueue persists ambiguous resolutions awaiting human
// adjudication.
package reviewqueue

import (
	"context"
	"encoding/json"
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

// Repository handles review queue persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new review queue repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Enqueue stores a manual-review decision. Details carries the full decision
// payload (best result, alternatives) so reviewers see each field's
// contribution.
func (r *Repository) Enqueue(ctx context.Context, decision *models.ResolutionDecision) (*models.ReviewItem, error) {
	ctx, span := tracing.StartSpan(ctx, "reviewqueue.Repository.Enqueue")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method":    "Enqueue",
		"record_id": decision.RecordID,
	})

	details, err := json.Marshal(decision)
	if err != nil {
		log.WithError(err).Error("Failed to marshal decision details")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to marshal decision details")
	}

	now := time.Now().UTC()
	item := &models.ReviewItem{
		ID:               uuid.New().String(),
		RecordID:         decision.RecordID,
		MatchProbability: decision.Confidence,
		Details:          details,
		Status:           models.ReviewStatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if decision.Entity != nil {
		item.CandidateID = decision.Entity.ID
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("review_queue")
	sb.Cols("id", "record_id", "candidate_id", "match_probability", "details", "status", "created_at", "updated_at")
	sb.Values(item.ID, item.RecordID, item.CandidateID, item.MatchProbability, item.Details, item.Status, item.CreatedAt, item.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		log.WithError(err).Error("Failed to enqueue review item")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to enqueue review item")
	}

	log.WithFields(map[string]any{"review_id": item.ID}).Debug("Enqueued review item")
	return item, nil
}

// Get returns a review item by ID, or nil when it doesn't exist.
func (r *Repository) Get(ctx context.Context, id string) (*models.ReviewItem, error) {
	ctx, span := tracing.StartSpan(ctx, "reviewqueue.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("*")
	sb.From("review_queue")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var item models.ReviewItem
	if err := r.db.GetContext(ctx, &item, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"review_id": id}).Error("Failed to get review item")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get review item")
	}
	return &item, nil
}

// List returns review items filtered by status, oldest first so reviewers
// drain the queue in arrival order. An empty status returns everything.
func (r *Repository) List(ctx context.Context, status string, limit, offset int) ([]models.ReviewItem, error) {
	ctx, span := tracing.StartSpan(ctx, "reviewqueue.Repository.List")
	defer span.End()

	if limit <= 0 {
		limit = 100
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("*")
	sb.From("review_queue")
	if status != "" {
		sb.Where(sb.Equal("status", status))
	}
	sb.OrderBy("created_at").Asc()
	sb.Limit(limit).Offset(offset)

	query, args := sb.Build()
	var items []models.ReviewItem
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list review items")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list review items")
	}
	return items, nil
}

// Resolve transitions a pending item to approved, rejected, or deferred.
func (r *Repository) Resolve(ctx context.Context, id, status, resolvedBy string) (*models.ReviewItem, error) {
	ctx, span := tracing.StartSpan(ctx, "reviewqueue.Repository.Resolve")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method":    "Resolve",
		"review_id": id,
		"status":    status,
	})

	switch status {
	case models.ReviewStatusApproved, models.ReviewStatusRejected, models.ReviewStatusDeferred:
	default:
		return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid review status: %s", status)
	}

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("review_queue")
	sb.Set(
		sb.Assign("status", status),
		sb.Assign("resolved_at", now),
		sb.Assign("resolved_by", resolvedBy),
		sb.Assign("updated_at", now),
	)
	sb.Where(sb.Equal("id", id), sb.Equal("status", models.ReviewStatusPending))

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.WithError(err).Error("Failed to resolve review item")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to resolve review item")
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "review item not found or already resolved")
	}

	log.Debug("Resolved review item")
	return r.Get(ctx, id)
}

// CountPending returns the number of items awaiting review.
func (r *Repository) CountPending(ctx context.Context) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "reviewqueue.Repository.CountPending")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From("review_queue")
	sb.Where(sb.Equal("status", models.ReviewStatusPending))

	query, args := sb.Build()
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count pending review items")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count pending review items")
	}
	return count, nil
}
