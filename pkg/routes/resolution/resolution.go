// Package resolution exposes the resolution engine over HTTP for ad-hoc
// resolution, batch sweeps, and metrics inspection.
package resolution

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/internal/repositories/resolvedentity"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/processor"
	"github.com/Ramsey-B/fern/pkg/resolution"
)

// Register registers resolution routes
func Register(g *echo.Group) {
	g.POST("/resolve", Resolve)
	g.POST("/resolve/batch", ResolveBatch)
	g.GET("/metrics", Metrics)
	g.GET("/candidate-pairs", CandidatePairs)
	g.POST("/reindex", Reindex)
	g.GET("/entities", ListEntities)
	g.GET("/entities/:id", GetEntity)
	g.DELETE("/entities/:id", DeleteEntity)
}

// ResolveRequest is the request body for resolving a single observation
type ResolveRequest struct {
	Record     models.Record   `json:"record" validate:"required"`
	Candidates []models.Record `json:"candidates,omitempty"`
	// Apply persists the decision's side effects instead of just returning it
	Apply bool `json:"apply"`
}

// Resolve classifies one observation record
func Resolve(c echo.Context) error {
	ctx := c.Request().Context()

	var req ResolveRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Record.ID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "record.id is required")
	}

	if req.Apply {
		ctx, proc, err := ectoinject.GetContext[*processor.Processor](ctx)
		if err != nil {
			return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
		}
		if err := proc.ProcessObservation(ctx, &req.Record); err != nil {
			return err
		}
		return c.NoContent(http.StatusAccepted)
	}

	ctx, decider, err := ectoinject.GetContext[*resolution.Decider](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	var candidates []*models.Record
	if req.Candidates != nil {
		candidates = make([]*models.Record, len(req.Candidates))
		for i := range req.Candidates {
			candidates[i] = &req.Candidates[i]
		}
	}

	decision, err := decider.Resolve(ctx, &req.Record, candidates)
	if err != nil {
		return httperror.NewHTTPErrorf(http.StatusUnprocessableEntity, "failed to resolve record: %v", err)
	}

	return c.JSON(http.StatusOK, decision)
}

// ResolveBatchRequest is the request body for a batch resolution sweep
type ResolveBatchRequest struct {
	Records []models.Record `json:"records" validate:"required,min=1"`
}

// ResolveBatch classifies a batch of observation records
func ResolveBatch(c echo.Context) error {
	ctx := c.Request().Context()

	var req ResolveBatchRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, decider, err := ectoinject.GetContext[*resolution.Decider](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	records := make([]*models.Record, len(req.Records))
	for i := range req.Records {
		records[i] = &req.Records[i]
	}

	items := decider.ResolveBatch(ctx, records)
	return c.JSON(http.StatusOK, items)
}

// Metrics returns a snapshot of the resolution metrics accumulator
func Metrics(c echo.Context) error {
	ctx := c.Request().Context()

	_, decider, err := ectoinject.GetContext[*resolution.Decider](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	return c.JSON(http.StatusOK, decider.Metrics().Snapshot())
}

// CandidatePairsRequest is the request body for an offline deduplication sweep
type CandidatePairsRequest struct {
	Records    []models.Record `json:"records" validate:"required,min=2"`
	Strategies []string        `json:"strategies,omitempty"`
}

// CandidatePairs runs blocking over a posted population and returns the
// deduplicated candidate pair set, for offline dedup sweeps.
func CandidatePairs(c echo.Context) error {
	ctx := c.Request().Context()

	var req CandidatePairsRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, sweeper, err := ectoinject.GetContext[*processor.Sweeper](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	records := make([]*models.Record, len(req.Records))
	for i := range req.Records {
		records[i] = &req.Records[i]
	}

	result, err := sweeper.Sweep(ctx, records, req.Strategies)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// ListEntities lists resolved identities, most recently seen first
func ListEntities(c echo.Context) error {
	ctx := c.Request().Context()

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	ctx, repo, err := ectoinject.GetContext[*resolvedentity.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	entities, err := repo.List(ctx, limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entities)
}

// GetEntity gets a resolved identity by ID
func GetEntity(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*resolvedentity.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	entity, err := repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if entity == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "entity not found")
	}
	return c.JSON(http.StatusOK, entity)
}

// DeleteEntity soft-deletes a resolved identity and its graph mirror
func DeleteEntity(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*resolvedentity.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	entity, err := repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if entity == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "entity not found")
	}

	ctx, proc, err := ectoinject.GetContext[*processor.Processor](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := proc.DeleteEntity(ctx, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Reindex rebuilds the blocking index from the persisted population
func Reindex(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, proc, err := ectoinject.GetContext[*processor.Processor](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := proc.RebuildIndex(ctx); err != nil {
		return err
	}
	return c.NoContent(http.StatusAccepted)
}
